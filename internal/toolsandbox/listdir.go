package toolsandbox

import (
	"fmt"
	"os"

	"github.com/wispbit/wisp-review/internal/wisperr"
)

// ListDirResult is the return shape of the list_dir tool.
type ListDirResult struct {
	Files       []string
	Directories []string
	Path        string
}

// ListDir returns the immediate children of relPath, split into files and
// directories. Entries that can't be stat'd are silently skipped.
func (s *Sandbox) ListDir(relPath string) (ListDirResult, error) {
	path, err := s.resolve(relPath)
	if err != nil {
		return ListDirResult{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ListDirResult{}, fmt.Errorf(
				"%w: %s", wisperr.ErrNotFound, relPath,
			)
		}
		return ListDirResult{}, fmt.Errorf("stat %s: %w", relPath, err)
	}
	if !info.IsDir() {
		return ListDirResult{}, fmt.Errorf(
			"%w: %s is not a directory", wisperr.ErrInput, relPath,
		)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return ListDirResult{}, fmt.Errorf("reading %s: %w", relPath, err)
	}

	result := ListDirResult{Path: relPath}
	for _, entry := range entries {
		entryInfo, infoErr := entry.Info()
		if infoErr != nil {
			s.log.Warn(
				"skipping unreadable dir entry", "path", relPath,
				"entry", entry.Name(), "error", infoErr,
			)
			continue
		}

		if entryInfo.IsDir() {
			result.Directories = append(result.Directories, entry.Name())
		} else {
			result.Files = append(result.Files, entry.Name())
		}
	}

	return result, nil
}
