package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// deriveKey produces a deterministic identifier for sources that publish no
// stable one. Re-fetching identical upstream fields yields the same key, so a
// repeated run is a no-op on merge.
func deriveKey(prefix string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	short := hex.EncodeToString(hash[:8])
	if prefix == "" {
		return short
	}
	return prefix + "-" + short
}
