package reviewcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// FreshnessToken hashes the current on-disk contents of filename (resolved
// against root) into a stable token. It follows the same content-hash
// convention as a FileChange's patch SHA: identical bytes always yield
// the identical token, so a cache hit can tell "unchanged since reviewed"
// from "edited since reviewed" without storing mtimes, which drift across
// checkouts and clocks.
func FreshnessToken(root, filename string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, filename))
	if err != nil {
		return "", fmt.Errorf("reading %s for freshness token: %w", filename, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
