package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/david-j-lopez-m/RF/internal/adapter/upstream"
	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/domain"
	"github.com/david-j-lopez-m/RF/internal/observability"
	"github.com/david-j-lopez-m/RF/internal/source"
	"github.com/david-j-lopez-m/RF/internal/store"
)

// Publisher fans saved records out to a downstream consumer.
type Publisher interface {
	Publish(ctx context.Context, source, keyField string, records []domain.Record) error
}

// Ledger keeps the history of source runs.
type Ledger interface {
	RecordRun(ctx context.Context, outcome domain.SourceOutcome) error
}

// Options wires an Orchestrator. Publisher, Ledger and Enricher are optional.
type Options struct {
	Sources   []source.Source
	Config    *config.Config
	Client    *upstream.Client
	Enricher  *Enricher
	Publisher Publisher
	Ledger    Ledger
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// SourcePlan is a source together with its resolved settings.
type SourcePlan struct {
	Source   source.Source
	Settings config.Source
}

// Orchestrator runs every enabled source, one at a time, in table order.
type Orchestrator struct {
	plans     []SourcePlan
	client    *upstream.Client
	enricher  *Enricher
	publisher Publisher
	ledger    Ledger
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates an Orchestrator, resolving each source's settings against the
// configuration document.
func New(opts Options) *Orchestrator {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	plans := make([]SourcePlan, 0, len(opts.Sources))
	for _, src := range opts.Sources {
		plans = append(plans, SourcePlan{
			Source:   src,
			Settings: source.Resolve(src, opts.Config.Sources[src.Key()], opts.Config.TimestampFormat),
		})
	}
	return &Orchestrator{
		plans:     plans,
		client:    opts.Client,
		enricher:  opts.Enricher,
		publisher: opts.Publisher,
		ledger:    opts.Ledger,
		clock:     clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Plans returns every source with its resolved settings, in run order.
func (o *Orchestrator) Plans() []SourcePlan { return o.plans }

// CheckReadiness returns nil once a full pass has completed, or an error
// describing why the service is not yet ready.
func (o *Orchestrator) CheckReadiness(_ context.Context) error {
	if !o.ready.Load() {
		return errors.New("orchestrator has not completed a pass yet")
	}
	return nil
}

// RunOnce runs one pass. With no keys every enabled source runs; naming keys
// runs exactly those sources, enabled or not. A failing source never stops
// the ones after it.
func (o *Orchestrator) RunOnce(ctx context.Context, keys ...string) []domain.SourceOutcome {
	var outcomes []domain.SourceOutcome
	for _, plan := range o.plans {
		key := plan.Source.Key()
		if len(keys) > 0 {
			if !slices.Contains(keys, key) {
				continue
			}
		} else if !plan.Settings.Enabled {
			o.logger.Debug("source disabled, skipping", "source", key)
			continue
		}
		if ctx.Err() != nil {
			o.logger.Info("pass interrupted", "reason", ctx.Err())
			break
		}
		outcomes = append(outcomes, o.runSource(ctx, plan))
	}
	o.ready.Store(true)
	return outcomes
}

// RunEvery runs a pass immediately and then once per interval until the
// context is cancelled.
func (o *Orchestrator) RunEvery(ctx context.Context, interval time.Duration) error {
	o.logger.Info("orchestrator started", "interval", interval, "sources", len(o.plans))
	o.metrics.OrchestratorRunning.Set(1)
	defer o.metrics.OrchestratorRunning.Set(0)

	for {
		outcomes := o.RunOnce(ctx)
		o.logger.Info("pass complete", "sources", len(outcomes), "failed", countFailed(outcomes))

		if !sleepWithContext(ctx, o.clock, interval) {
			o.logger.Info("orchestrator stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// runSource fetches, parses, enriches, saves and publishes one source.
func (o *Orchestrator) runSource(ctx context.Context, plan SourcePlan) domain.SourceOutcome {
	src, cfg := plan.Source, plan.Settings
	key := src.Key()
	logger := o.logger.With("source", key)
	start := o.clock.Now()
	out := domain.SourceOutcome{
		Source:    key,
		Strategy:  cfg.Strategy(),
		StartedAt: start.UTC(),
	}

	err := o.process(ctx, logger, src, cfg, &out)
	out.FinishedAt = o.clock.Now().UTC()
	switch {
	case err != nil:
		out.Status = domain.StatusFailed
		out.ErrorClass = domain.ErrorClass(err)
		out.Error = err.Error()
		logFailure(logger, err)
	case out.Fetched == 0:
		out.Status = domain.StatusEmpty
	default:
		out.Status = domain.StatusOK
	}

	o.observe(out)
	if o.ledger != nil {
		if err := o.ledger.RecordRun(ctx, out); err != nil {
			logger.Warn("ledger write failed", "error", err)
		}
	}
	logger.Info("source finished",
		"status", out.Status,
		"records", out.Fetched,
		"skipped", out.Skipped,
		"saved", out.Saved,
		"path", out.Path,
		"duration", out.FinishedAt.Sub(out.StartedAt),
	)
	return out
}

func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, src source.Source, cfg config.Source, out *domain.SourceOutcome) error {
	strategy, err := store.New(src.Key(), cfg, o.clock, o.logger)
	if err != nil {
		return err
	}

	raw, err := src.Fetch(ctx, o.client, cfg)
	if err != nil {
		return err
	}
	batch, err := src.Decode(raw)
	if err != nil {
		var fe *domain.FormatError
		if errors.As(err, &fe) && fe.URL == "" {
			fe.URL = cfg.URL
		}
		return err
	}

	for i := range batch.Skipped {
		skip := &batch.Skipped[i]
		logger.Warn("skipping malformed item", "index", skip.Index, "ref", skip.Ref, "error", skip.Err)
	}
	out.Fetched = len(batch.Records)
	out.Skipped = len(batch.Skipped)

	records := batch.Records
	if cfg.Geocode && o.enricher.Enabled() {
		records = o.enricher.Enrich(ctx, records, cfg.UniqueKey)
	}

	res, err := strategy.Save(records)
	out.Path = res.Path
	if err != nil {
		return err
	}
	out.Saved = len(res.Written)

	if o.publisher != nil && len(res.Written) > 0 {
		if err := o.publisher.Publish(ctx, src.Key(), cfg.UniqueKey, res.Written); err != nil {
			logger.Warn("publish failed", "records", len(res.Written), "error", err)
		} else {
			o.metrics.RecordsPublished.Add(float64(len(res.Written)))
		}
	}
	return nil
}

func (o *Orchestrator) observe(out domain.SourceOutcome) {
	m := o.metrics
	m.SourceRuns.WithLabelValues(out.Source, out.Status).Inc()
	m.RecordsParsed.WithLabelValues(out.Source).Add(float64(out.Fetched))
	m.RecordsSkipped.WithLabelValues(out.Source).Add(float64(out.Skipped))
	m.RecordsSaved.WithLabelValues(out.Source).Add(float64(out.Saved))
	m.SourceDuration.WithLabelValues(out.Source).Observe(out.FinishedAt.Sub(out.StartedAt).Seconds())
	if out.Failed() {
		m.SourceErrors.WithLabelValues(out.Source, out.ErrorClass).Inc()
		return
	}
	m.LastSuccess.WithLabelValues(out.Source).Set(float64(out.FinishedAt.Unix()))
}

// logFailure logs a source failure once, with the upstream URL and status
// when the error carries them.
func logFailure(logger *slog.Logger, err error) {
	var (
		te *domain.TransportError
		fe *domain.FormatError
	)
	switch {
	case errors.As(err, &te):
		logger.Error("fetch failed", "url", te.URL, "status", te.StatusText(), "error", te.Err)
	case errors.As(err, &fe):
		logger.Error("unexpected payload", "url", fe.URL, "error", err)
	default:
		logger.Error("source failed", "error", err)
	}
}

func countFailed(outcomes []domain.SourceOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
