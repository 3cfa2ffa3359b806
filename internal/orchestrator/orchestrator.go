// Package orchestrator bounds the concurrency of a multi-file review run:
// up to a fixed number of per-file Review Loops in flight at once, each
// dispatched against the Rule Engine, the Review Cache, and the review
// loop itself, with lifecycle hooks serialized through the orchestrator.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/wispbit/wisp-review/internal/review"
	"github.com/wispbit/wisp-review/internal/reviewcache"
	"github.com/wispbit/wisp-review/internal/ruleset"
)

// DefaultConcurrency is the maximum number of files reviewed at once.
const DefaultConcurrency = 10

// Status is a file's position in the review lifecycle.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
)

// Skip reasons for a file that never reached a completed review.
const (
	SkipNoMatchingRules = "no matching rules"
	SkipCached          = "cached"
	SkipError           = "error"
)

// Result is one file's outcome from a review run.
type Result struct {
	Filename   string
	Analysis   review.FileAnalysis
	Skipped    bool
	SkipReason string
	Err        error
}

// Hooks are invoked by the orchestrator itself, never by an individual
// file task, so observer state (a progress bar, a log stream) never needs
// its own synchronization.
type Hooks struct {
	OnStart      func(filename string)
	OnUpdateFile func(filename string, status Status)
	OnComplete   func(result Result)
	OnAbort      func(err error)
}

func (h Hooks) onStart(filename string) {
	if h.OnStart != nil {
		h.OnStart(filename)
	}
}

func (h Hooks) onUpdateFile(filename string, status Status) {
	if h.OnUpdateFile != nil {
		h.OnUpdateFile(filename, status)
	}
}

func (h Hooks) onComplete(r Result) {
	if h.OnComplete != nil {
		h.OnComplete(r)
	}
}

func (h Hooks) onAbort(err error) {
	if h.OnAbort != nil {
		h.OnAbort(err)
	}
}

// hookEventKind tags which Hooks callback a hookEvent should drive.
type hookEventKind int

const (
	hookEventStart hookEventKind = iota
	hookEventUpdateFile
	hookEventComplete
	hookEventAbort
)

// hookEvent carries one lifecycle occurrence from a file task (or Run's own
// dispatch loop) to the single goroutine that actually calls into Hooks.
// Per-file tasks only ever send on the events channel; they never call a
// Hooks method directly, which is what keeps an observer's state safe
// without its own synchronization.
type hookEvent struct {
	kind     hookEventKind
	filename string
	status   Status
	result   Result
	err      error
}

// dispatchHooks drains events and invokes the corresponding Hooks callback
// for each, one at a time, until events is closed. It is meant to run in
// its own goroutine, started once per Run call.
func (o *Orchestrator) dispatchHooks(events <-chan hookEvent) {
	for e := range events {
		switch e.kind {
		case hookEventStart:
			o.hooks.onStart(e.filename)
		case hookEventUpdateFile:
			o.hooks.onUpdateFile(e.filename, e.status)
		case hookEventComplete:
			o.hooks.onComplete(e.result)
		case hookEventAbort:
			o.hooks.onAbort(e.err)
		}
	}
}

// fileReviewer is the slice of *review.Reviewer the orchestrator depends
// on, narrowed to an interface so tests can drive the dispatch logic
// without a live LLM client and sandbox.
type fileReviewer interface {
	Review(ctx context.Context, change review.FileChange, rules []ruleset.Rule, allFiles []string) (review.FileAnalysis, error)
}

// Orchestrator runs a bounded-concurrency review pass over a set of
// FileChanges, consulting the Review Cache before falling back to the
// Review Loop for each file.
type Orchestrator struct {
	reviewer    fileReviewer
	cache       *reviewcache.Store
	root        string
	concurrency int
	hooks       Hooks
	log         *slog.Logger

	// now is overridable in tests; production callers get time.Now.
	now func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(h Hooks) Option {
	return func(o *Orchestrator) {
		o.hooks = h
	}
}

// WithCache attaches a Review Cache. Without one, every file is reviewed
// fresh and no results are recorded for future runs.
func WithCache(c *reviewcache.Store) Option {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithLogger overrides the Orchestrator's logger. The default is
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// New returns an Orchestrator that reviews files rooted at workspaceRoot
// using reviewer for the per-file Review Loop.
func New(reviewer fileReviewer, workspaceRoot string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reviewer:    reviewer,
		root:        workspaceRoot,
		concurrency: DefaultConcurrency,
		log:         slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run reviews every change in changes against rules, bounding concurrency
// at o.concurrency in-flight files at a time. It returns one Result per
// change, in the same order changes were given, regardless of completion
// order. A context cancellation stops dispatching new work and returns
// once every already-started file task has reached a natural stop; Run's
// own error reflects only the cancellation itself, not per-file errors,
// which are isolated into their Result.
func (o *Orchestrator) Run(ctx context.Context, changes []review.FileChange, rules []ruleset.Rule) ([]Result, error) {
	allFiles := make([]string, len(changes))
	for i, c := range changes {
		allFiles[i] = c.Filename
	}

	results := make([]Result, len(changes))
	sem := semaphore.NewWeighted(int64(o.concurrency))
	g, gctx := errgroup.WithContext(ctx)

	// events is drained by a single goroutine (dispatchHooks) so every
	// Hooks callback is invoked from the orchestrator itself, never from
	// a per-file task goroutine: file tasks only ever send on this
	// channel. Unbuffered is fine — dispatchHooks is always ready to
	// receive, so a send never waits on anything but that one goroutine.
	events := make(chan hookEvent)
	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		o.dispatchHooks(events)
	}()

	for i, change := range changes {
		i, change := i, change
		events <- hookEvent{kind: hookEventUpdateFile, filename: change.Filename, status: StatusQueued}

		if err := sem.Acquire(gctx, 1); err != nil {
			// The group's context was already cancelled by an earlier
			// failure or by the caller; nothing left to dispatch.
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			results[i] = o.runOne(gctx, change, rules, allFiles, events)
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		events <- hookEvent{kind: hookEventAbort, err: err}
	} else if ctx.Err() != nil {
		events <- hookEvent{kind: hookEventAbort, err: ctx.Err()}
	}
	close(events)
	<-drainDone

	if err != nil {
		return results, fmt.Errorf("review run aborted: %w", err)
	}
	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}

func (o *Orchestrator) runOne(ctx context.Context, change review.FileChange, rules []ruleset.Rule, allFiles []string, events chan<- hookEvent) Result {
	events <- hookEvent{kind: hookEventStart, filename: change.Filename}
	events <- hookEvent{kind: hookEventUpdateFile, filename: change.Filename, status: StatusProcessing}

	applicable := matchRules(change.Filename, rules)
	if len(applicable) == 0 {
		result := Result{
			Filename:   change.Filename,
			Analysis:   review.FileAnalysis{Explanation: review.ExplanationNoApplicableRules},
			Skipped:    true,
			SkipReason: SkipNoMatchingRules,
		}
		events <- hookEvent{kind: hookEventUpdateFile, filename: change.Filename, status: StatusSkipped}
		events <- hookEvent{kind: hookEventComplete, result: result}
		return result
	}

	if o.cache != nil {
		cached, hit, err := o.cache.Lookup(change.Filename, change.SHA, applicable, o.currentFreshnessToken)
		if err != nil {
			o.log.Warn("cache lookup failed, reviewing fresh", "file", change.Filename, "error", err)
		} else if hit {
			result := Result{Filename: change.Filename, Analysis: cached, Skipped: true, SkipReason: SkipCached}
			events <- hookEvent{kind: hookEventUpdateFile, filename: change.Filename, status: StatusSkipped}
			events <- hookEvent{kind: hookEventComplete, result: result}
			return result
		}
	}

	analysis, err := o.reviewer.Review(ctx, change, applicable, allFiles)
	if err != nil {
		result := Result{Filename: change.Filename, Skipped: true, SkipReason: SkipError, Err: err}
		events <- hookEvent{kind: hookEventUpdateFile, filename: change.Filename, status: StatusSkipped}
		events <- hookEvent{kind: hookEventComplete, result: result}
		return result
	}

	if o.cache != nil {
		if err := o.writeCache(change, applicable, analysis); err != nil {
			// A cache write failure degrades future caching only; it must
			// never fail the review itself.
			o.log.Warn("cache write failed", "file", change.Filename, "error", err)
		}
	}

	result := Result{Filename: change.Filename, Analysis: analysis}
	events <- hookEvent{kind: hookEventUpdateFile, filename: change.Filename, status: StatusCompleted}
	events <- hookEvent{kind: hookEventComplete, result: result}
	return result
}

func (o *Orchestrator) currentFreshnessToken(filename string) (string, error) {
	return reviewcache.FreshnessToken(o.root, filename)
}

func (o *Orchestrator) writeCache(change review.FileChange, rules []ruleset.Rule, analysis review.FileAnalysis) error {
	visited := make([]reviewcache.VisitedFile, 0, len(analysis.VisitedFiles))
	for _, f := range analysis.VisitedFiles {
		token, err := o.currentFreshnessToken(f)
		if err != nil {
			return fmt.Errorf("tokenizing visited file %s: %w", f, err)
		}
		visited = append(visited, reviewcache.VisitedFile{Filename: f, FreshnessToken: token})
	}
	return o.cache.WriteReview(change.Filename, change.SHA, rules, analysis, visited, o.now().Unix())
}

func matchRules(filename string, rules []ruleset.Rule) []ruleset.Rule {
	var matched []ruleset.Rule
	for _, r := range rules {
		if ruleset.MatchesInclude(r, filename) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}
