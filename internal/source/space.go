package source

import (
	"encoding/json"
	"fmt"

	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/domain"
)

func noaaSWPC() Source {
	return &definition[json.RawMessage]{
		key:    "noaa_swpc",
		format: FormatJSON,
		defaults: config.Source{
			URL:            "https://services.swpc.noaa.gov/products/alerts.json",
			UniqueKey:      "noaa_id",
			TimestampField: "issue_datetime",
		},
		fetch:  fetchJSON,
		decode: decodeJSONArray,
		parse: func(raw json.RawMessage) (domain.Record, error) {
			var p domain.NOAAProduct
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("decode product: %w", err)
			}
			return domain.ParseNOAAProduct(p)
		},
	}
}

func nasaDONKI() Source {
	return &definition[json.RawMessage]{
		key:    "nasa_donki",
		format: FormatJSON,
		defaults: config.Source{
			URL:             "https://kauai.ccmc.gsfc.nasa.gov/DONKI/WS/get/notifications?type=all",
			UniqueKey:       "message_id",
			TimestampField:  "issue_datetime",
			TimestampFormat: "%Y-%m-%dT%H:%MZ",
		},
		fetch:  fetchJSON,
		decode: decodeJSONArray,
		parse: func(raw json.RawMessage) (domain.Record, error) {
			var m domain.DONKIMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, fmt.Errorf("decode notification: %w", err)
			}
			return domain.ParseDONKIMessage(m)
		},
	}
}

// decodeJSONArray splits a top-level JSON array so that one malformed
// element does not fail its siblings. An empty body is an empty array.
func decodeJSONArray(raw []byte) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &domain.FormatError{Reason: "expected a JSON array", Err: err}
	}
	return items, nil
}
