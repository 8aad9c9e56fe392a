package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/david-j-lopez-m/RF/internal/domain"
)

// Load reads a store file. A missing file is an empty store. A file that is
// not a JSON list of objects is reported through ErrCorrupt together with an
// empty store, so callers can log it and carry on.
func Load(path string) ([]domain.Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreIOError{Path: path, Err: err}
	}
	records, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return records, nil
}

// ErrCorrupt marks an existing store whose content could not be decoded.
var ErrCorrupt = errors.New("corrupt store")

func decode(data []byte) ([]domain.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []domain.Record
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// Write replaces the store file with records, pretty-printed with HTML
// escaping disabled. The file is written next to its destination and renamed
// into place.
func Write(path string, records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return &domain.StoreIOError{Path: path, Err: err}
	}
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.StoreIOError{Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &domain.StoreIOError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &domain.StoreIOError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &domain.StoreIOError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return &domain.StoreIOError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &domain.StoreIOError{Path: path, Err: err}
	}
	return nil
}
