package upstream

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/david-j-lopez-m/RF/internal/domain"
)

// DecodeCSV reads a header row followed by data rows. An empty body or a
// header with no rows yields no rows and no error. A header lacking any of
// the required columns is a FormatError, which catches plain-text and HTML
// error bodies served with a 200.
func DecodeCSV(data []byte, required ...string) ([]map[string]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, &domain.FormatError{Reason: "unreadable CSV header", Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if missing := missingColumns(header, required); len(missing) > 0 {
		return nil, &domain.FormatError{Reason: "CSV header missing " + strings.Join(missing, ",")}
	}

	var rows []map[string]string
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.FormatError{Reason: "malformed CSV", Err: err}
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(fields) {
				row[name] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func missingColumns(header, required []string) []string {
	var missing []string
	for _, col := range required {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	return missing
}
