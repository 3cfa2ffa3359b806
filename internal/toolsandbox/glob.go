package toolsandbox

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// globExcludedDirs are pruned during glob_search for performance. This is
// not the rule engine's discovery prune list: vendor and .venv are walked
// here, and other hidden directories are not pruned.
var globExcludedDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".cache":       {},
	"dist":         {},
	"build":        {},
}

// globMatch pairs a matched relative path with its modification time so
// results can be sorted newest-first without re-stat'ing.
type globMatch struct {
	path    string
	modTime int64
}

// GlobSearch walks relPath (workspace root if empty) for files matching
// pattern, excluding node_modules/.git/cache-style directories, and returns
// matches sorted by modification time, newest first.
func (s *Sandbox) GlobSearch(pattern, relPath string) ([]string, error) {
	searchRoot := s.root
	if relPath != "" {
		resolved, err := s.resolve(relPath)
		if err != nil {
			return nil, err
		}
		searchRoot = resolved
	}

	var matches []globMatch

	err := filepath.WalkDir(searchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if _, excluded := globExcludedDirs[d.Name()]; excluded && path != searchRoot {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		ok, matchErr := doublestar.Match(pattern, rel)
		if matchErr != nil {
			return nil
		}
		if !ok {
			ok, _ = doublestar.Match(pattern, filepath.Base(rel))
		}
		if !ok {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}

		matches = append(matches, globMatch{path: rel, modTime: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("glob_search under %s: %w", relPath, err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].modTime > matches[j].modTime
	})

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.path
	}

	return out, nil
}
