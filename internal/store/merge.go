// Package store persists each source's records as a JSON list keyed by the
// source's unique-key field.
package store

import (
	"encoding/json"

	"github.com/david-j-lopez-m/RF/internal/domain"
)

// fallbackPrefix marks identities synthesized from a record's content. It
// cannot collide with a real key value produced by the parsers.
const fallbackPrefix = "~"

// Merge unions existing and incoming by keyField. Incoming records replace
// existing ones with the same key; untouched keys keep their position and new
// keys are appended in arrival order. Records without the key are tracked by
// their canonical JSON content.
func Merge(existing, incoming []domain.Record, keyField string) []domain.Record {
	merged, _ := mergeChanges(existing, incoming, keyField)
	return merged
}

// mergeChanges is Merge that also reports which incoming records are new or
// differ from the stored record of the same identity, once per identity in
// arrival order. A record equal to what is stored is not a change.
func mergeChanges(existing, incoming []domain.Record, keyField string) (merged, changed []domain.Record) {
	order := make([]string, 0, len(existing)+len(incoming))
	byKey := make(map[string]domain.Record, len(existing)+len(incoming))
	for _, rec := range existing {
		id := identity(rec, keyField)
		if _, seen := byKey[id]; !seen {
			order = append(order, id)
		}
		byKey[id] = rec
	}

	stored := make(map[string]string, len(incoming))
	var touched []string
	for _, rec := range incoming {
		id := identity(rec, keyField)
		prev, seen := byKey[id]
		if !seen {
			order = append(order, id)
		}
		if _, done := stored[id]; !done {
			stored[id] = ""
			if seen {
				stored[id] = canonical(prev)
			}
			touched = append(touched, id)
		}
		byKey[id] = rec
	}

	merged = make([]domain.Record, len(order))
	for i, id := range order {
		merged[i] = byKey[id]
	}
	for _, id := range touched {
		if rec := byKey[id]; canonical(rec) != stored[id] {
			changed = append(changed, rec)
		}
	}
	return merged, changed
}

// canonical renders rec as JSON; map keys marshal sorted, and json.Number
// values loaded from disk render like the floats they were written from.
func canonical(rec domain.Record) string {
	data, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	return string(data)
}

// identity returns the merge identity of rec: its key value, or a fallback
// derived from its content.
func identity(rec domain.Record, keyField string) string {
	if key, ok := rec.Key(keyField); ok {
		return key
	}
	return fallbackPrefix + canonical(rec)
}
