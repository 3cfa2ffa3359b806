package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wispbit/wisp-review/internal/review"
	"github.com/wispbit/wisp-review/internal/reviewcache"
	"github.com/wispbit/wisp-review/internal/ruleset"
)

type fakeReviewer struct {
	mu    sync.Mutex
	calls []string
	fn    func(change review.FileChange) (review.FileAnalysis, error)
}

func (f *fakeReviewer) Review(_ context.Context, change review.FileChange, _ []ruleset.Rule, _ []string) (review.FileAnalysis, error) {
	f.mu.Lock()
	f.calls = append(f.calls, change.Filename)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(change)
	}
	return review.FileAnalysis{}, nil
}

func (f *fakeReviewer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func goRule(id string) ruleset.Rule {
	return ruleset.Rule{ID: id, Include: []string{"**/*.go"}, Body: "body"}
}

func TestRun_SkipsFilesWithNoMatchingRules(t *testing.T) {
	reviewer := &fakeReviewer{}
	o := New(reviewer, t.TempDir())

	changes := []review.FileChange{{Filename: "README.md", Status: review.StatusModified, Patch: "patch"}}
	results, err := o.Run(context.Background(), changes, []ruleset.Rule{goRule("r1")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Skipped)
	require.Equal(t, SkipNoMatchingRules, results[0].SkipReason)
	require.Equal(t, 0, reviewer.callCount())
}

func TestRun_ReviewsMatchingFiles(t *testing.T) {
	reviewer := &fakeReviewer{fn: func(review.FileChange) (review.FileAnalysis, error) {
		return review.FileAnalysis{Cost: 0.01}, nil
	}}
	o := New(reviewer, t.TempDir())

	changes := []review.FileChange{{Filename: "main.go", Status: review.StatusModified, Patch: "patch"}}
	results, err := o.Run(context.Background(), changes, []ruleset.Rule{goRule("r1")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].Skipped)
	require.InDelta(t, 0.01, results[0].Analysis.Cost, 1e-9)
	require.Equal(t, 1, reviewer.callCount())
}

func TestRun_PreservesInputOrderAcrossConcurrency(t *testing.T) {
	reviewer := &fakeReviewer{}
	o := New(reviewer, t.TempDir(), WithConcurrency(4))

	var changes []review.FileChange
	for i := 0; i < 20; i++ {
		changes = append(changes, review.FileChange{
			Filename: filepath.Join("pkg", string(rune('a'+i))+".go"),
			Status:   review.StatusModified,
			Patch:    "patch",
		})
	}

	results, err := o.Run(context.Background(), changes, []ruleset.Rule{goRule("r1")})
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, r := range results {
		require.Equal(t, changes[i].Filename, r.Filename)
	}
}

func TestRun_FileErrorIsIsolatedNotFatal(t *testing.T) {
	boom := errors.New("boom")
	reviewer := &fakeReviewer{fn: func(c review.FileChange) (review.FileAnalysis, error) {
		if c.Filename == "bad.go" {
			return review.FileAnalysis{}, boom
		}
		return review.FileAnalysis{}, nil
	}}
	o := New(reviewer, t.TempDir())

	changes := []review.FileChange{
		{Filename: "bad.go", Status: review.StatusModified, Patch: "patch"},
		{Filename: "good.go", Status: review.StatusModified, Patch: "patch"},
	}
	results, err := o.Run(context.Background(), changes, []ruleset.Rule{goRule("r1")})
	require.NoError(t, err)
	require.True(t, results[0].Skipped)
	require.Equal(t, SkipError, results[0].SkipReason)
	require.ErrorIs(t, results[0].Err, boom)
	require.False(t, results[1].Skipped)
}

func TestRun_CacheHitSkipsReviewer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	cache, err := reviewcache.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, cache.Close()) })

	rule := goRule("r1")
	require.NoError(t, cache.WriteReview("main.go", "sha-main", []ruleset.Rule{rule}, review.FileAnalysis{Cost: 0.002}, nil, 1000))

	reviewer := &fakeReviewer{}
	o := New(reviewer, dir, WithCache(cache))

	changes := []review.FileChange{{Filename: "main.go", Status: review.StatusModified, Patch: "patch", SHA: "sha-main"}}
	results, err := o.Run(context.Background(), changes, []ruleset.Rule{rule})
	require.NoError(t, err)
	require.True(t, results[0].Skipped)
	require.Equal(t, SkipCached, results[0].SkipReason)
	require.Equal(t, 0, reviewer.callCount())
}

func TestRun_CacheMissWritesBackForFutureRuns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	cache, err := reviewcache.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, cache.Close()) })

	rule := goRule("r1")
	reviewer := &fakeReviewer{fn: func(review.FileChange) (review.FileAnalysis, error) {
		return review.FileAnalysis{Cost: 0.003}, nil
	}}
	o := New(reviewer, dir, WithCache(cache))

	changes := []review.FileChange{{Filename: "main.go", Status: review.StatusModified, Patch: "patch", SHA: "sha-main"}}
	results, err := o.Run(context.Background(), changes, []ruleset.Rule{rule})
	require.NoError(t, err)
	require.False(t, results[0].Skipped)
	require.Equal(t, 1, reviewer.callCount())

	stats, err := cache.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.ReviewFiles)
}

func TestRun_HooksFireForEachFile(t *testing.T) {
	reviewer := &fakeReviewer{}
	var mu sync.Mutex
	var started, completed []string
	o := New(reviewer, t.TempDir(), WithHooks(Hooks{
		OnStart: func(filename string) {
			mu.Lock()
			started = append(started, filename)
			mu.Unlock()
		},
		OnComplete: func(r Result) {
			mu.Lock()
			completed = append(completed, r.Filename)
			mu.Unlock()
		},
	}))

	changes := []review.FileChange{
		{Filename: "a.go", Status: review.StatusModified, Patch: "patch"},
		{Filename: "b.go", Status: review.StatusModified, Patch: "patch"},
	}
	_, err := o.Run(context.Background(), changes, []ruleset.Rule{goRule("r1")})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a.go", "b.go"}, started)
	require.ElementsMatch(t, []string{"a.go", "b.go"}, completed)
}

func TestRun_ContextCancellationAborts(t *testing.T) {
	reviewer := &fakeReviewer{}
	o := New(reviewer, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var aborted bool
	o.hooks.OnAbort = func(error) { aborted = true }

	changes := []review.FileChange{{Filename: "a.go", Status: review.StatusModified, Patch: "patch"}}
	_, err := o.Run(ctx, changes, []ruleset.Rule{goRule("r1")})
	require.Error(t, err)
	require.True(t, aborted)
}
