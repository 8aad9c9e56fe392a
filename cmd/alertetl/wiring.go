package main

import (
	"fmt"
	"strings"

	httpadapter "github.com/david-j-lopez-m/RF/internal/adapter/http"
	kafkaadapter "github.com/david-j-lopez-m/RF/internal/adapter/kafka"
	"github.com/david-j-lopez-m/RF/internal/adapter/mapbox"
	"github.com/david-j-lopez-m/RF/internal/adapter/sqlite"
	"github.com/david-j-lopez-m/RF/internal/adapter/upstream"
	"github.com/david-j-lopez-m/RF/internal/domain"
	"github.com/david-j-lopez-m/RF/internal/observability"
	"github.com/david-j-lopez-m/RF/internal/pipeline"
	"github.com/david-j-lopez-m/RF/internal/source"
)

// wiring is a fully wired orchestrator plus the resources it owns.
type wiring struct {
	orch     *pipeline.Orchestrator
	registry *source.Registry
	ledger   *sqlite.Ledger
	closers  []func() error
}

// history returns the ledger as a RunHistory, or nil when no ledger is configured.
func (r *wiring) history() httpadapter.RunHistory {
	if r.ledger == nil {
		return nil
	}
	return r.ledger
}

func (r *wiring) close(a *app) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}

// wire builds the orchestrator with every optional adapter the
// configuration enables.
func (a *app) wire(metrics *observability.Metrics) (*wiring, error) {
	cfg, logger := a.cfg, a.logger
	rt := &wiring{registry: source.NewRegistry(logger)}

	if unknown := rt.registry.Unknown(cfg.Sources); len(unknown) > 0 {
		logger.Warn("ignoring unknown sources in config", "sources", strings.Join(unknown, ","))
	}

	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	opts := pipeline.Options{
		Sources:  rt.registry.All(),
		Config:   cfg,
		Client:   upstream.NewClient(cfg.UserAgent, logger),
		Enricher: pipeline.NewEnricher(geocoder, logger),
		Logger:   logger,
		Metrics:  metrics,
	}

	if cfg.KafkaEnabled {
		publisher := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		opts.Publisher = publisher
		rt.closers = append(rt.closers, publisher.Close)
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	if cfg.LedgerPath != "" {
		ledger, err := sqlite.Open(cfg.LedgerPath, logger)
		if err != nil {
			rt.close(a)
			return nil, err
		}
		rt.ledger = ledger
		opts.Ledger = ledger
		rt.closers = append(rt.closers, ledger.Close)
	}

	rt.orch = pipeline.New(opts)
	return rt, nil
}

// checkKeys rejects source keys the registry does not know.
func checkKeys(registry *source.Registry, keys []string) error {
	for _, k := range keys {
		if _, ok := registry.Lookup(k); !ok {
			return fmt.Errorf("unknown source %q (known: %s)", k, strings.Join(registry.Keys(), ", "))
		}
	}
	return nil
}
