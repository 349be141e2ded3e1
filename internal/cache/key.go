// Package cache implements the two-tier storage behind the fetch manager:
// a hot in-process tier for fast fresh reads and a persistent tier for
// degraded-mode stale reads.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint derives a stable cache key from an operation and its
// parameters. Parameter order never matters: encoding/json emits map keys
// sorted, so semantically equal calls always collide on the same key.
func Fingerprint(operation string, params map[string]any) string {
	if params == nil {
		params = map[string]any{}
	}

	canonical, err := json.Marshal(params)
	if err != nil {
		// Unencodable params (channels, funcs) should never reach here; fall
		// back to a key that at least stays stable per operation.
		canonical = []byte("{}")
	}

	sum := sha256.Sum256(append([]byte(operation+"?"), canonical...))
	return operation + ":" + hex.EncodeToString(sum[:])[:32]
}
