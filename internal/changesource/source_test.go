package changesource

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wispbit/wisp-review/internal/review"
)

// repo is a throwaway git working tree used to exercise Source against a
// real git binary.
type repo struct {
	t    *testing.T
	root string
}

func newRepo(t *testing.T) *repo {
	t.Helper()
	root := t.TempDir()
	r := &repo{t: t, root: root}
	r.git("init", "-b", "main")
	r.git("config", "user.email", "test@example.com")
	r.git("config", "user.name", "Test")
	return r
}

func (r *repo) git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.root
	out, err := cmd.CombinedOutput()
	require.NoError(r.t, err, "git %v: %s", args, out)
	return string(out)
}

func (r *repo) write(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.root, path)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(r.t, os.WriteFile(full, []byte(content), 0o644))
}

func (r *repo) commitAll(message string) {
	r.t.Helper()
	r.git("add", "-A")
	r.git("commit", "-m", message)
}

func TestLoad_ModifiedAddedAndDeletedFiles(t *testing.T) {
	r := newRepo(t)
	r.write("keep.go", "package keep\n\nfunc A() {}\n")
	r.write("gone.go", "package gone\n\nfunc B() {}\n")
	r.commitAll("base")

	r.git("checkout", "-b", "feature")
	r.write("keep.go", "package keep\n\nfunc A() { println(\"x\") }\n")
	r.write("new.go", "package new\n\nfunc C() {}\n")
	require.NoError(t, os.Remove(filepath.Join(r.root, "gone.go")))
	r.commitAll("feature work")

	result, err := (Source{Root: r.root, Base: "main"}).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "feature", result.CurrentBranch)
	require.Equal(t, "main", result.DiffBranch)

	byName := map[string]bool{}
	var deleted bool
	for _, f := range result.Files {
		byName[f.Filename] = true
		if f.Filename == "gone.go" {
			deleted = true
			require.Equal(t, "removed", string(f.Status))
			require.Contains(t, f.Patch, "-func B() {}")
			require.NotEmpty(t, f.SHA)
		}
	}
	require.True(t, deleted, "deleted file must appear with a reconstructed pseudo-patch")
	require.True(t, byName["keep.go"])
	require.True(t, byName["new.go"])
}

func TestLoad_AutoDetectsMainBranch(t *testing.T) {
	r := newRepo(t)
	r.write("a.go", "package a\n")
	r.commitAll("init")
	r.git("checkout", "-b", "feature")
	r.write("a.go", "package a\n\nfunc X() {}\n")
	r.commitAll("work")

	result, err := (Source{Root: r.root}).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "main", result.DiffBranch)
	require.Len(t, result.Files, 1)
	require.Equal(t, "a.go", result.Files[0].Filename)
}

func TestHashPatch_DiffersOnDiffContentNotFileContent(t *testing.T) {
	a := hashPatch("diff --git a/x b/x\n@@ -1 +1 @@\n-old\n+new\n")
	b := hashPatch("diff --git a/x b/x\n@@ -1 +1,2 @@\n-old\n+new\n+extra\n")
	require.NotEqual(t, a, b)
}

func TestComputeDiffStats_AggregatesByStatus(t *testing.T) {
	files := []review.FileChange{
		{Filename: "new.go", Status: review.StatusAdded, Additions: 5},
		{Filename: "keep.go", Status: review.StatusModified, Additions: 2, Deletions: 1},
		{Filename: "gone.go", Status: review.StatusRemoved, Deletions: 3},
	}
	stats := computeDiffStats(files)
	require.Equal(t, 3, stats.TotalFiles)
	require.Equal(t, 1, stats.FilesAdded)
	require.Equal(t, 1, stats.FilesModified)
	require.Equal(t, 1, stats.FilesDeleted)
	require.Equal(t, 7, stats.LinesAdded)
	require.Equal(t, 4, stats.LinesDeleted)
}
