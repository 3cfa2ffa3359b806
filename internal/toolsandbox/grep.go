package toolsandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/wispbit/wisp-review/internal/wisperr"
)

const (
	grepTimeout  = 30 * time.Second
	grepMaxMatch = 50
)

// GrepSearchArgs mirrors the grep_search tool's argument shape.
type GrepSearchArgs struct {
	Query          string
	IncludePattern string
	ExcludePattern string
	CaseSensitive  bool
}

// GrepMatch is one parsed ripgrep result line.
type GrepMatch struct {
	Path    string
	Line    int
	Content string
}

// GrepSearch runs ripgrep over the whole workspace root and returns up to
// 50 matches.
func (s *Sandbox) GrepSearch(ctx context.Context, args GrepSearchArgs) ([]GrepMatch, error) {
	searchRoot := s.root

	cmdArgs := []string{
		"--no-config", "--line-number", "--color=never",
		"--max-columns=300", "--max-filesize=1M",
		"--max-count=" + strconv.Itoa(grepMaxMatch),
	}
	if !args.CaseSensitive {
		cmdArgs = append(cmdArgs, "-i")
	}
	if args.IncludePattern != "" {
		cmdArgs = append(cmdArgs, "-g", args.IncludePattern)
	}
	if args.ExcludePattern != "" {
		cmdArgs = append(cmdArgs, "-g", "!"+args.ExcludePattern)
	}
	cmdArgs = append(cmdArgs, "--", args.Query, searchRoot)

	ctx, cancel := context.WithTimeout(ctx, grepTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "rg", cmdArgs...)
	cmd.Env = sanitizedGrepEnv()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf(
			"%w: grep_search timed out after %s", wisperr.ErrExternalTool, grepTimeout,
		)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == 1 && stderr.Len() == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf(
			"%w: rg exited %d: %s",
			wisperr.ErrExternalTool, exitErr.ExitCode(), stderr.String(),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wisperr.ErrExternalTool, err)
	}

	matches := parseGrepOutput(stdout.String(), searchRoot, s.root)
	if len(matches) > grepMaxMatch {
		matches = matches[:grepMaxMatch]
	}

	return matches, nil
}

// sanitizedGrepEnv builds the ripgrep child's environment from the current
// process's, stripping RIPGREP_CONFIG_PATH (an explicit config file) so it
// cannot pick up config from outside this call. --no-config already
// disables config-file lookup; this is the belt to that suspenders.
func sanitizedGrepEnv() []string {
	var env []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.EqualFold(key, "RIPGREP_CONFIG_PATH") {
			continue
		}
		env = append(env, kv)
	}
	return env
}

// parseGrepOutput parses "file:lineNumber:content" lines and re-relativizes
// the path to the workspace root.
func parseGrepOutput(out, searchRoot, workspaceRoot string) []GrepMatch {
	var matches []GrepMatch

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}

		lineNum, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}

		relPath := strings.TrimPrefix(parts[0], workspaceRoot+"/")
		matches = append(matches, GrepMatch{
			Path:    relPath,
			Line:    lineNum,
			Content: parts[2],
		})
	}

	return matches
}
