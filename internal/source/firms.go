package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/david-j-lopez-m/RF/internal/adapter/upstream"
	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/domain"
)

// firmsColumns are the columns a FIRMS area CSV must carry to derive keys.
var firmsColumns = []string{"latitude", "longitude", "acq_date", "acq_time"}

func firms() Source {
	return &definition[domain.FIRMSRow]{
		key:    "firms",
		format: FormatCSV,
		defaults: config.Source{
			URLTemplate:     "https://firms.modaps.eosdis.nasa.gov/api/area/csv/{MAP_KEY}/{SOURCE}/world/{DAY_RANGE}",
			Product:         "VIIRS_SNPP_NRT",
			DayRange:        1,
			UniqueKey:       "firms_id",
			TimestampField:  "event_datetime",
			TimestampFormat: "%Y-%m-%d %H%M",
			Timeout:         20 * time.Second,
		},
		fetch: fetchFIRMS,
		decode: func(raw []byte) ([]domain.FIRMSRow, error) {
			rows, err := upstream.DecodeCSV(raw, firmsColumns...)
			if err != nil {
				return nil, err
			}
			out := make([]domain.FIRMSRow, len(rows))
			for i, row := range rows {
				out[i] = domain.FIRMSRow(row)
			}
			return out, nil
		},
		parse: domain.ParseFIRMSRow,
		ref: func(row domain.FIRMSRow) string {
			return strings.TrimSpace(row["acq_date"] + " " + row["acq_time"])
		},
	}
}

// FIRMSURL fills the url_template placeholders.
func FIRMSURL(cfg config.Source) string {
	return strings.NewReplacer(
		"{MAP_KEY}", cfg.MapKey,
		"{SOURCE}", cfg.Product,
		"{DAY_RANGE}", strconv.Itoa(cfg.DayRange),
	).Replace(cfg.URLTemplate)
}

func fetchFIRMS(ctx context.Context, client *upstream.Client, cfg config.Source) ([]byte, error) {
	if cfg.MapKey == "" {
		return nil, fmt.Errorf("MAP_KEY is not configured")
	}
	resp, err := client.Get(ctx, FIRMSURL(cfg), nil, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
