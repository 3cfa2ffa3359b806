// Package changesource is the narrow adapter of §4.I: given a workspace
// root and an optional base revision, it produces the FileChange list a
// review run operates on, plus the branch/commit identifiers that name
// the diff. It is a thin wrapper around the local git binary — no
// network access, no repository mutation.
package changesource

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// refPattern guards against a base revision string being interpreted as
// additional git flags or a shell-expandable range operator. Any ref we
// pass to git must match this before it reaches exec.Command.
var refPattern = regexp.MustCompile(`^[a-zA-Z0-9_./-]+$`)

func validRef(ref string) error {
	if ref == "" || !refPattern.MatchString(ref) || strings.HasPrefix(ref, "-") || strings.Contains(ref, "..") {
		return fmt.Errorf("%w: invalid git ref %q", errInvalidRef, ref)
	}
	return nil
}

func runGit(ctx context.Context, root string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func runGitTrimmed(ctx context.Context, root string, args ...string) (string, error) {
	out, err := runGit(ctx, root, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
