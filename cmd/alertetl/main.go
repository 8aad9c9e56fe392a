package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/observability"
)

var version = "dev"

func main() {
	if err := newRootCmd(newApp(os.Stdout)).Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand.
type app struct {
	out        io.Writer
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	newMetrics func() *observability.Metrics
}

func newApp(out io.Writer) *app {
	return &app{out: out, newMetrics: observability.NewMetrics}
}

// load resolves and reads the configuration, then builds the logger.
func (a *app) load() error {
	path, err := config.ResolvePath(a.configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.logger = observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "alertetl",
		Short:        "Collect hazard alerts from public feeds into deduplicated JSON stores",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// init and version work without a config file.
			if cmd.Name() == "init" || cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to the source config (default $ALERTETL_CONFIG, ./config.yaml, ./config.json)")

	root.AddCommand(
		newRunCmd(a),
		newServeCmd(a),
		newSourcesCmd(a),
		newParseCmd(a),
		newValidateCmd(a),
		newHistoryCmd(a),
		newInitCmd(a),
		newVersionCmd(a),
	)
	return root
}
