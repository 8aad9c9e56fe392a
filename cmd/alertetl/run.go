package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	httpadapter "github.com/david-j-lopez-m/RF/internal/adapter/http"
	"github.com/david-j-lopez-m/RF/internal/domain"
)

var errSourcesFailed = errors.New("one or more sources failed")

func newRunCmd(a *app) *cobra.Command {
	var (
		keys   []string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one pass over the enabled sources",
		Long: "Run one pass over the enabled sources in fixed order. Naming sources with " +
			"--source runs exactly those, even when disabled in the config.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.wire(a.newMetrics())
			if err != nil {
				return err
			}
			defer rt.close(a)

			if err := checkKeys(rt.registry, keys); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			outcomes := rt.orch.RunOnce(ctx, keys...)
			printOutcomes(a.out, outcomes)

			if strict && countFailed(outcomes) > 0 {
				return errSourcesFailed
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&keys, "source", "s", nil, "source key to run (repeatable)")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any source fails")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run passes on RUN_INTERVAL and expose health, metrics and run history over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := a.cfg, a.logger

			rt, err := a.wire(a.newMetrics())
			if err != nil {
				return err
			}
			defer rt.close(a)

			srv := httpadapter.NewServer(cfg.HTTPAddr, rt.orch, rt.history(), logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
					stop()
				}
			}()

			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := rt.orch.RunEvery(ctx, cfg.RunInterval); err != nil {
					logger.Error("orchestrator error", "error", err)
				}
			}()

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			select {
			case <-done:
			case <-shutdownCtx.Done():
				logger.Warn("pass still running at shutdown deadline")
			}

			logger.Info("shutdown complete")
			return nil
		},
	}
}

func printOutcomes(w io.Writer, outcomes []domain.SourceOutcome) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSTATUS\tFETCHED\tSKIPPED\tSAVED\tDETAIL")
	for _, o := range outcomes {
		detail := o.Path
		if o.Failed() {
			detail = o.ErrorClass + ": " + o.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", o.Source, o.Status, o.Fetched, o.Skipped, o.Saved, detail)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d sources, %d failed\n", len(outcomes), countFailed(outcomes))
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
