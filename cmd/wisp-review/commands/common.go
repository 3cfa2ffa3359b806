package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wispbit/wisp-review/internal/review"
)

// resolveAPIKey prefers the --api-key flag, falling back to the
// environment variable wisp-review's config Non-goal leaves to the
// caller to populate.
func resolveAPIKey() (string, error) {
	if apiKey != "" {
		return apiKey, nil
	}
	if key := os.Getenv("WISP_API_KEY"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key: pass --api-key or set WISP_API_KEY")
}

// resolveCacheDBPath returns the --cache-db flag, or a default rooted
// under the workspace's .wispbit directory.
func resolveCacheDBPath(root string) string {
	if cacheDBPath != "" {
		return cacheDBPath
	}
	return filepath.Join(root, ".wispbit", "cache.db")
}

// outputJSON prints v as indented JSON.
func outputJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// formatViolation renders one violation as a single summary line:
// fileName: line range: rule: description.
func formatViolation(filename string, v review.Violation) string {
	cached := ""
	if v.IsCached {
		cached = " (cached)"
	}
	return fmt.Sprintf(
		"%s:%s: %s: %s%s",
		filename, v.Line.String(), v.Rule.ID, v.Description, cached,
	)
}
