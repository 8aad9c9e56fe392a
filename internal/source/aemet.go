package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/david-j-lopez-m/RF/internal/adapter/upstream"
	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/domain"
)

// capFile is one extracted CAP document.
type capFile struct {
	name string
	data []byte
}

func aemet(logger *slog.Logger) Source {
	return &definition[capFile]{
		key:    "aemet",
		format: FormatCAPArchive,
		defaults: config.Source{
			URL:             "https://opendata.aemet.es/opendata/api/avisos_cap/ultimoelaborado/area/esp",
			UniqueKey:       "identifier",
			TimestampField:  "sent",
			TimestampFormat: "%Y-%m-%dT%H:%M:%S%z",
		},
		fetch: fetchAEMET,
		decode: func(raw []byte) ([]capFile, error) {
			return extractCAP(raw, logger)
		},
		parse: func(f capFile) (domain.Record, error) {
			return domain.ParseCAPAlert(f.data)
		},
		ref: func(f capFile) string { return f.name },
	}
}

// fetchAEMET performs the two-step exchange: the API answers with a JSON
// envelope whose datos member points at the archive.
func fetchAEMET(ctx context.Context, client *upstream.Client, cfg config.Source) ([]byte, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is not configured")
	}
	resp, err := client.GetJSON(ctx, cfg.URL, map[string]string{
		"accept":  "application/json",
		"api_key": cfg.Token,
	}, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Datos string `json:"datos"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, &domain.FormatError{URL: cfg.URL, Reason: "invalid envelope", Err: err}
	}
	if envelope.Datos == "" {
		return nil, &domain.FormatError{URL: cfg.URL, Reason: "envelope has no datos URL"}
	}

	archive, err := client.Get(ctx, envelope.Datos, nil, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return archive.Body, nil
}

// extractCAP unpacks the archive into a scratch directory that is removed
// before returning.
func extractCAP(raw []byte, logger *slog.Logger) (files []capFile, err error) {
	dir, err := os.MkdirTemp("", "alertetl-aemet-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.Warn("scratch cleanup failed", "source", "aemet", "path", dir, "error", rmErr)
		}
	}()

	paths, err := upstream.ExtractArchive(raw, dir)
	if err != nil {
		return nil, &domain.FormatError{Reason: "unreadable CAP archive", Err: err}
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(p), err)
		}
		files = append(files, capFile{name: filepath.Base(p), data: data})
	}
	return files, nil
}
