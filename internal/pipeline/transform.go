package pipeline

import (
	"context"
	"log/slog"

	"github.com/david-j-lopez-m/RF/internal/domain"
)

// Enricher applies optional geocoding enrichment to parsed records.
type Enricher struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewEnricher creates an Enricher. Pass a nil geocoder to disable
// geocoding enrichment.
func NewEnricher(geocoder domain.Geocoder, logger *slog.Logger) *Enricher {
	return &Enricher{
		geocoder: geocoder,
		logger:   logger,
	}
}

// Enabled reports whether a geocoder is configured.
func (e *Enricher) Enabled() bool { return e != nil && e.geocoder != nil }

// Enrich returns enriched copies of records; the input slice is not modified.
func (e *Enricher) Enrich(ctx context.Context, records []domain.Record, keyField string) []domain.Record {
	if !e.Enabled() {
		return records
	}
	out := make([]domain.Record, len(records))
	for i, rec := range records {
		out[i] = domain.EnrichWithGeocoding(ctx, rec, e.geocoder, keyField, e.logger)
	}
	return out
}
