package source

import (
	"encoding/json"

	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/domain"
)

func usgsEarthquakes() Source {
	return &definition[json.RawMessage]{
		key:    "usgs_earthquakes",
		format: FormatJSON,
		defaults: config.Source{
			URL:             "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson",
			UniqueKey:       "code",
			TimestampField:  "event_datetime",
			TimestampFormat: "%Y-%m-%d %H:%M:%S UTC",
		},
		fetch:  fetchJSON,
		decode: decodeFeatureCollection,
		parse:  domain.ParseUSGSFeature,
	}
}

func decodeFeatureCollection(raw []byte) ([]json.RawMessage, error) {
	var fc struct {
		Features *[]json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, &domain.FormatError{Reason: "invalid GeoJSON", Err: err}
	}
	if fc.Features == nil {
		return nil, &domain.FormatError{Reason: "GeoJSON has no features member"}
	}
	return *fc.Features, nil
}
