package domain

import (
	"context"
	"log/slog"
	"strings"
)

// Geocoding field names added to records.
const (
	FieldPlaceName        = "place_name"
	FieldFormattedAddress = "formatted_address"
	FieldGeoConfidence    = "geo_confidence"
	FieldGeoSource        = "geo_source"
)

// EnrichWithGeocoding returns a copy of rec with geocoding fields added.
// Records with coordinates and no place_name are reverse geocoded; records
// with only a location name are forward geocoded. A nil geocoder or a provider failure never drops
// the record.
func EnrichWithGeocoding(ctx context.Context, rec Record, geocoder Geocoder, keyField string, logger *slog.Logger) Record {
	if geocoder == nil {
		return rec
	}
	if _, done := rec[FieldGeoSource]; done {
		return rec
	}

	out := rec.Clone()
	key, _ := rec.Key(keyField)
	lat, hasLat := rec.Float("latitude")
	lon, hasLon := rec.Float("longitude")
	name := strings.TrimSpace(rec.String("location"))

	switch {
	case hasLat && hasLon && strings.TrimSpace(rec.String(FieldPlaceName)) != "":
		out[FieldGeoSource] = "original"

	case hasLat && hasLon:
		result, err := geocoder.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			logger.Warn("reverse geocoding failed", "key", key, "lat", lat, "lon", lon, "error", err)
			out[FieldGeoSource] = "failed"
			return out
		}
		if result.FormattedAddress == "" {
			out[FieldGeoSource] = "original"
			return out
		}
		out[FieldPlaceName] = result.PlaceName
		out[FieldFormattedAddress] = result.FormattedAddress
		out[FieldGeoConfidence] = result.Confidence
		out[FieldGeoSource] = "reverse"

	case name != "":
		result, err := geocoder.ForwardGeocode(ctx, name, rec.String("country"))
		if err != nil {
			logger.Warn("forward geocoding failed", "key", key, "location", name, "error", err)
			out[FieldGeoSource] = "failed"
			return out
		}
		if result.Lat == 0 && result.Lon == 0 {
			out[FieldGeoSource] = "original"
			return out
		}
		out["latitude"] = result.Lat
		out["longitude"] = result.Lon
		out[FieldFormattedAddress] = result.FormattedAddress
		out[FieldGeoConfidence] = result.Confidence
		out[FieldGeoSource] = "forward"

	default:
		out[FieldGeoSource] = "original"
	}
	return out
}
