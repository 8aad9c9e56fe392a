package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// USGSFeature is one GeoJSON feature of the USGS earthquake summary feed.
type USGSFeature struct {
	Properties struct {
		Mag     *float64 `json:"mag"`
		Place   *string  `json:"place"`
		Time    *int64   `json:"time"` // epoch milliseconds
		Type    *string  `json:"type"`
		Status  *string  `json:"status"`
		Tsunami *int     `json:"tsunami"`
		URL     *string  `json:"url"`
		Title   *string  `json:"title"`
		Code    *string  `json:"code"`
		IDs     *string  `json:"ids"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []*float64 `json:"coordinates"` // lon, lat, depth
	} `json:"geometry"`
}

// ParseUSGSFeature maps one raw GeoJSON feature into a record keyed by code.
// A feature without time keeps a null event_datetime; one without code or ids
// has no identity and is rejected.
func ParseUSGSFeature(raw json.RawMessage) (Record, error) {
	var f USGSFeature
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode feature: %w", err)
	}
	p := f.Properties

	code := derefString(p.Code)
	if code == nil || code == "" {
		code = derefString(p.IDs)
	}
	if code == nil || code == "" {
		return nil, errMissing("code")
	}

	var eventDatetime any
	if p.Time != nil {
		eventDatetime = FormatEpochMillis(*p.Time)
	}

	var tsunami any
	if p.Tsunami != nil {
		tsunami = *p.Tsunami
	}

	return Record{
		"event_datetime": eventDatetime,
		"place":          derefString(p.Place),
		"magnitude":      derefFloat(p.Mag),
		"depth_km":       coordinate(f.Geometry.Coordinates, 2),
		"latitude":       coordinate(f.Geometry.Coordinates, 1),
		"longitude":      coordinate(f.Geometry.Coordinates, 0),
		"event_type":     derefString(p.Type),
		"status":         derefString(p.Status),
		"tsunami":        tsunami,
		"url":            derefString(p.URL),
		"title":          derefString(p.Title),
		"code":           code,
		"ids":            derefString(p.IDs),
	}, nil
}

// FormatEpochMillis renders epoch milliseconds as "YYYY-MM-DD HH:MM:SS UTC".
func FormatEpochMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(usgsLayout)
}

func coordinate(coords []*float64, i int) any {
	if i >= len(coords) {
		return nil
	}
	return derefFloat(coords[i])
}
