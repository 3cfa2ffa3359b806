package changesource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/wispbit/wisp-review/internal/review"
)

// Result is everything a review run needs to know about the diff it is
// reviewing: the FileChange list plus the branch/commit identifiers that
// name the two ends of the comparison.
type Result struct {
	Files         []review.FileChange
	CurrentBranch string
	CurrentCommit string
	DiffBranch    string
	DiffCommit    string
	Stats         DiffStats
}

// Source produces a Result from a git working tree.
type Source struct {
	// Root is the workspace root — a git working tree or a subdirectory
	// of one.
	Root string

	// Base is the branch or ref to diff against. Empty auto-detects
	// "main" or "master".
	Base string
}

// Load computes the diff between Base (or its auto-detected default) and
// the current working tree, including any uncommitted changes.
func (s Source) Load(ctx context.Context) (Result, error) {
	currentBranch, err := runGitTrimmed(ctx, s.Root, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return Result{}, fmt.Errorf("resolving current branch: %w", err)
	}

	currentCommit, err := runGitTrimmed(ctx, s.Root, "rev-parse", "HEAD")
	if err != nil {
		return Result{}, fmt.Errorf("resolving current commit: %w", err)
	}

	diffBranch := s.Base
	if diffBranch == "" {
		diffBranch, err = detectBaseBranch(ctx, s.Root)
		if err != nil {
			return Result{}, err
		}
	}
	if err := validRef(diffBranch); err != nil {
		return Result{}, err
	}

	diffCommit, err := runGitTrimmed(ctx, s.Root, "rev-parse", diffBranch)
	if err != nil {
		return Result{}, fmt.Errorf("resolving base branch %q: %w", diffBranch, err)
	}

	mergeBase, err := runGitTrimmed(ctx, s.Root, "merge-base", diffCommit, "HEAD")
	if err != nil {
		// No common ancestor (e.g. an unrelated-history base); fall back
		// to diffing straight against the base commit.
		mergeBase = diffCommit
	}

	entries, err := nameStatusEntries(ctx, s.Root, mergeBase)
	if err != nil {
		return Result{}, err
	}

	files := make([]review.FileChange, 0, len(entries))
	for _, e := range entries {
		fc, err := s.buildFileChange(ctx, mergeBase, e)
		if err != nil {
			return Result{}, fmt.Errorf("building file change for %s: %w", e.path, err)
		}
		files = append(files, fc)
	}

	return Result{
		Files:         files,
		CurrentBranch: currentBranch,
		CurrentCommit: currentCommit,
		DiffBranch:    diffBranch,
		DiffCommit:    mergeBase,
		Stats:         computeDiffStats(files),
	}, nil
}

// detectBaseBranch returns the first of "main"/"master" that exists.
func detectBaseBranch(ctx context.Context, root string) (string, error) {
	for _, candidate := range []string{"main", "master"} {
		if _, err := runGitTrimmed(ctx, root, "rev-parse", "--verify", candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no main or master branch found; pass an explicit base", errInvalidRef)
}

type nameStatusEntry struct {
	status  review.Status
	path    string
	oldPath string // set only for renames/copies
}

// nameStatusEntries lists files changed between base and the working
// tree (including uncommitted changes), classified per spec's status
// vocabulary.
func nameStatusEntries(ctx context.Context, root, base string) ([]nameStatusEntry, error) {
	out, err := runGit(ctx, root, "diff", "--find-renames", "--name-status", base)
	if err != nil {
		return nil, fmt.Errorf("listing changed files: %w", err)
	}

	var entries []nameStatusEntry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		code := fields[0]

		switch {
		case code == "A":
			entries = append(entries, nameStatusEntry{status: review.StatusAdded, path: fields[1]})
		case code == "D":
			entries = append(entries, nameStatusEntry{status: review.StatusRemoved, path: fields[1]})
		case code == "M":
			entries = append(entries, nameStatusEntry{status: review.StatusModified, path: fields[1]})
		case strings.HasPrefix(code, "R") && len(fields) >= 3:
			entries = append(entries, nameStatusEntry{status: review.StatusRenamed, oldPath: fields[1], path: fields[2]})
		case strings.HasPrefix(code, "C") && len(fields) >= 3:
			entries = append(entries, nameStatusEntry{status: review.StatusCopied, oldPath: fields[1], path: fields[2]})
		default:
			entries = append(entries, nameStatusEntry{status: review.StatusChanged, path: fields[1]})
		}
	}
	return entries, nil
}

func (s Source) buildFileChange(ctx context.Context, base string, e nameStatusEntry) (review.FileChange, error) {
	if e.status == review.StatusRemoved {
		return s.buildDeletedFileChange(ctx, base, e.path)
	}

	pathspec := e.path
	args := []string{"diff", "--find-renames", base, "--", pathspec}
	if e.oldPath != "" {
		args = []string{"diff", "--find-renames", base, "--", e.oldPath, e.path}
	}
	patch, err := runGit(ctx, s.Root, args...)
	if err != nil {
		return review.FileChange{}, fmt.Errorf("diffing %s: %w", e.path, err)
	}

	additions, deletions := countPatchLines(patch)
	return review.FileChange{
		Filename:  e.path,
		Status:    e.status,
		Patch:     patch,
		Additions: additions,
		Deletions: deletions,
		SHA:       hashPatch(patch),
	}, nil
}

// buildDeletedFileChange reconstructs a deleted file's last-known content
// at base into a fully "-"-prefixed pseudo-patch, since there is no
// working-tree side left to natively diff against.
func (s Source) buildDeletedFileChange(ctx context.Context, base, path string) (review.FileChange, error) {
	content, err := runGit(ctx, s.Root, "show", fmt.Sprintf("%s:%s", base, path))
	if err != nil {
		return review.FileChange{}, fmt.Errorf("reading last-known content of %s: %w", path, err)
	}

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if content == "" {
		lines = nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", path, path)
	b.WriteString("deleted file mode 100644\n")
	fmt.Fprintf(&b, "--- a/%s\n", path)
	b.WriteString("+++ /dev/null\n")
	fmt.Fprintf(&b, "@@ -1,%d +0,0 @@\n", len(lines))
	for _, l := range lines {
		b.WriteString("-")
		b.WriteString(l)
		b.WriteString("\n")
	}
	patch := b.String()

	return review.FileChange{
		Filename:  path,
		Status:    review.StatusRemoved,
		Patch:     patch,
		Additions: 0,
		Deletions: len(lines),
		SHA:       hashPatch(patch),
	}, nil
}

func countPatchLines(patch string) (additions, deletions int) {
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}

// hashPatch derives a FileChange's content-addressed SHA from its patch
// text, not the underlying file content — two files with identical bytes
// but different diff context still hash differently, which is exactly
// what the cache needs to invalidate on.
func hashPatch(patch string) string {
	sum := sha256.Sum256([]byte(patch))
	return hex.EncodeToString(sum[:])
}
