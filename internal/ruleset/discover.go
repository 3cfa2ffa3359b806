package ruleset

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// dependencyDirs are pruned during discovery regardless of nesting depth.
var dependencyDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	".git":         {},
	"dist":         {},
	"build":        {},
	".venv":        {},
}

// Loader discovers and parses rules under a workspace root.
type Loader struct {
	root string
	log  *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger overrides the Loader's logger. The default is slog.Default().
func WithLogger(log *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// NewLoader returns a Loader rooted at the given workspace directory.
func NewLoader(root string, opts ...LoaderOption) *Loader {
	l := &Loader{
		root: root,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load walks the workspace for `.wispbit/rules` directories, pruning
// hidden and dependency directories along the way, and returns every rule
// it finds.
func (l *Loader) Load() ([]Rule, error) {
	var rules []Rule

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		base := d.Name()
		if path != l.root && strings.HasPrefix(base, ".") && base != ".wispbit" {
			return filepath.SkipDir
		}
		if _, skip := dependencyDirs[base]; skip {
			return filepath.SkipDir
		}

		if base != ".wispbit" {
			return nil
		}

		rulesDir := filepath.Join(path, "rules")
		containing, relErr := filepath.Rel(l.root, filepath.Dir(path))
		if relErr != nil {
			return fmt.Errorf("resolving rule directory: %w", relErr)
		}
		if containing == "." {
			containing = ""
		}

		loaded, loadErr := l.loadRulesDir(rulesDir, containing)
		if loadErr != nil {
			if os.IsNotExist(loadErr) {
				return nil
			}
			return loadErr
		}
		rules = append(rules, loaded...)

		return filepath.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("discovering rules under %s: %w", l.root, err)
	}

	return rules, nil
}

// loadRulesDir loads every ".md" file directly under rulesDir.
func (l *Loader) loadRulesDir(rulesDir, containingDir string) ([]Rule, error) {
	entries, err := os.ReadDir(rulesDir)
	if err != nil {
		return nil, err
	}

	var rules []Rule
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		full := filepath.Join(rulesDir, entry.Name())
		raw, readErr := os.ReadFile(full)
		if readErr != nil {
			l.log.Warn("skipping unreadable rule file", "path", full, "error", readErr)
			continue
		}

		include, body := parseRuleFile(string(raw))

		relPath, relErr := filepath.Rel(l.root, full)
		if relErr != nil {
			relPath = full
		}
		relPath = filepath.ToSlash(relPath)

		id := strings.TrimSuffix(relPath, filepath.Ext(relPath))

		rules = append(rules, Rule{
			ID:        id,
			Directory: containingDir,
			Include:   include,
			Body:      body,
			Path:      relPath,
		})
	}

	return rules, nil
}
