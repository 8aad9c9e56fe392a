package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/david-j-lopez-m/RF/internal/adapter/sqlite"
	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/domain"
	"github.com/david-j-lopez-m/RF/internal/source"
	"github.com/david-j-lopez-m/RF/internal/store"
)

// outputPath describes where a source's records land. Timestamp stores are
// dated per run, so the date segment is shown as a placeholder.
func outputPath(cfg config.Source) string {
	if cfg.Strategy() == config.DedupTimestamp {
		return filepath.Join(cfg.BaseDataPath, "YYYY-MM-DD", cfg.OutputFilename)
	}
	return filepath.Join(cfg.BaseDataPath, cfg.OutputFilename)
}

func newSourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List known sources with their resolved settings",
		RunE: func(_ *cobra.Command, _ []string) error {
			registry := source.NewRegistry(a.logger)
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tENABLED\tFORMAT\tSTRATEGY\tKEY\tOUTPUT")
			for _, src := range registry.All() {
				cfg := source.Resolve(src, a.cfg.Sources[src.Key()], a.cfg.TimestampFormat)
				fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\t%s\n",
					src.Key(), cfg.Enabled, src.Format(), cfg.Strategy(), cfg.UniqueKey, outputPath(cfg))
			}
			return tw.Flush()
		},
	}
}

func newParseCmd(a *app) *cobra.Command {
	var key, file string
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Decode a saved raw payload offline and print the parsed records as JSON",
		RunE: func(_ *cobra.Command, _ []string) error {
			registry := source.NewRegistry(a.logger)
			if err := checkKeys(registry, []string{key}); err != nil {
				return err
			}
			src, _ := registry.Lookup(key)

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading payload: %w", err)
			}
			batch, err := src.Decode(raw)
			if err != nil {
				return err
			}
			for _, skip := range batch.Skipped {
				a.logger.Warn("skipping malformed item", "source", key, "index", skip.Index, "ref", skip.Ref, "error", skip.Err)
			}

			records := batch.Records
			if records == nil {
				records = []domain.Record{}
			}
			enc := json.NewEncoder(a.out)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}
	cmd.Flags().StringVarP(&key, "source", "s", "", "source key the payload came from")
	cmd.Flags().StringVarP(&file, "file", "f", "", "raw payload file")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

var errValidationFailed = errors.New("store validation failed")

func newValidateCmd(a *app) *cobra.Command {
	var keys []string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check unique-key stores for duplicate keys and decode errors",
		RunE: func(_ *cobra.Command, _ []string) error {
			registry := source.NewRegistry(a.logger)
			if err := checkKeys(registry, keys); err != nil {
				return err
			}

			failed := false
			for _, src := range registry.All() {
				cfg := source.Resolve(src, a.cfg.Sources[src.Key()], a.cfg.TimestampFormat)
				if len(keys) > 0 {
					if !slices.Contains(keys, src.Key()) {
						continue
					}
				} else if !cfg.Enabled {
					continue
				}
				if cfg.Strategy() != config.DedupUniqueKey {
					fmt.Fprintf(a.out, "%-18s SKIP  %s stores are dated per run\n", src.Key(), cfg.Strategy())
					continue
				}

				report, err := store.Validate(outputPath(cfg), cfg.UniqueKey)
				if err != nil {
					return err
				}
				if report.Passed() {
					fmt.Fprintf(a.out, "%-18s PASS  %d records, %d without %s\n", src.Key(), report.Records, report.MissingKey, cfg.UniqueKey)
					continue
				}
				failed = true
				fmt.Fprintf(a.out, "%-18s FAIL  %s\n", src.Key(), report.Path)
				for _, p := range report.Problems {
					fmt.Fprintf(a.out, "    %s\n", p)
				}
			}
			if failed {
				return errValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&keys, "source", "s", nil, "source key to validate (repeatable)")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent source runs from the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.LedgerPath == "" {
				return errors.New("LEDGER_PATH is not set")
			}
			ledger, err := sqlite.Open(a.cfg.LedgerPath, a.logger)
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSOURCE\tSTATUS\tFETCHED\tSKIPPED\tSAVED\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.StartedAt.Format("2006-01-02 15:04:05"), r.Source, r.Status, r.Fetched, r.Skipped, r.Saved, r.ErrorClass)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default source config",
		RunE: func(_ *cobra.Command, _ []string) error {
			target := a.configPath
			if target == "" {
				target = "config.yaml"
			}
			if _, err := os.Stat(target); err == nil && !force {
				fmt.Fprintf(a.out, "Config already exists: %s\n", target)
				return nil
			}
			if dir := filepath.Dir(target); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("creating config directory: %w", err)
				}
			}
			if err := os.WriteFile(target, config.DefaultDocumentYAML, 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Fprintf(a.out, "Created config: %s\n", target)
			fmt.Fprintln(a.out, "Set FIRMS_MAP_KEY and AEMET_API_KEY, then enable firms and aemet.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(a.out, "alertetl", version)
		},
	}
}
