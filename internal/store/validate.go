package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Report is the integrity summary of one store file.
type Report struct {
	Path       string
	Records    int
	Duplicates []string
	MissingKey int
	Problems   []string
}

func (r *Report) problemf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Passed reports whether the store holds unique keys and decodes cleanly.
func (r *Report) Passed() bool { return len(r.Problems) == 0 }

// Validate checks that the store at path decodes as a list of objects and
// that no keyField value repeats. Records without the key are counted but
// allowed. A missing file is reported as a problem rather than an error.
func Validate(path, keyField string) (*Report, error) {
	r := &Report{Path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.problemf("store file does not exist")
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	records, err := decode(data)
	if err != nil {
		r.problemf("decode: %v", err)
		return r, nil
	}
	r.Records = len(records)

	seen := make(map[string]int, len(records))
	for _, rec := range records {
		key, ok := rec.Key(keyField)
		if !ok {
			r.MissingKey++
			continue
		}
		seen[key]++
		if seen[key] == 2 {
			r.Duplicates = append(r.Duplicates, key)
		}
	}
	if len(r.Duplicates) > 0 {
		r.problemf("%d duplicate %s values", len(r.Duplicates), keyField)
	}
	return r, nil
}
