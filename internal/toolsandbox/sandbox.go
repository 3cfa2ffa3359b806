// Package toolsandbox implements the filesystem- and process-sandboxed
// tool surface the review loop's LLM conversation calls into: read_file,
// list_dir, grep_search, glob_search, and the complaint sink. Every tool
// confines user-supplied paths to the workspace root.
package toolsandbox

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/wispbit/wisp-review/internal/wisperr"
)

// Sandbox executes tool calls against one workspace root.
type Sandbox struct {
	root string
	log  *slog.Logger
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithLogger overrides the Sandbox's logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Sandbox) {
		s.log = log
	}
}

// New returns a Sandbox rooted at root. root is made absolute and cleaned
// up front so every subsequent resolution is comparing like with like.
func New(root string, opts ...Option) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root %q: %w", root, err)
	}

	s := &Sandbox{
		root: filepath.Clean(abs),
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Root returns the sandbox's absolute workspace root.
func (s *Sandbox) Root() string {
	return s.root
}

// resolve joins a user-supplied relative path onto the workspace root and
// rejects any result that escapes it.
func (s *Sandbox) resolve(relPath string) (string, error) {
	joined := filepath.Join(s.root, relPath)
	cleaned := filepath.Clean(joined)

	if cleaned != s.root && !strings.HasPrefix(cleaned, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf(
			"%w: path %q escapes workspace root", wisperr.ErrInput, relPath,
		)
	}

	return cleaned, nil
}
