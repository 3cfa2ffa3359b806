package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wispbit/wisp-review/internal/changesource"
	"github.com/wispbit/wisp-review/internal/llmclient"
	"github.com/wispbit/wisp-review/internal/orchestrator"
	"github.com/wispbit/wisp-review/internal/review"
	"github.com/wispbit/wisp-review/internal/reviewcache"
	"github.com/wispbit/wisp-review/internal/ruleset"
	"github.com/wispbit/wisp-review/internal/toolsandbox"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review the current diff against codebase rules",
	RunE:  runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return fmt.Errorf("resolving workspace root: %w", err)
	}

	key, err := resolveAPIKey()
	if err != nil {
		return err
	}

	diff, err := (changesource.Source{Root: root, Base: baseBranch}).Load(ctx)
	if err != nil {
		return fmt.Errorf("loading changes: %w", err)
	}
	if len(diff.Files) == 0 {
		fmt.Println("No changes to review.")
		return nil
	}

	rules, err := ruleset.NewLoader(root).Load()
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	sandbox, err := toolsandbox.New(root)
	if err != nil {
		return fmt.Errorf("initializing sandbox: %w", err)
	}

	llm := llmclient.New(key, apiBaseURL)
	reviewer := review.NewReviewer(llm, sandbox, review.WithReviewerModel(model))

	cache, err := reviewcache.Open(resolveCacheDBPath(root))
	if err != nil {
		return fmt.Errorf("opening review cache: %w", err)
	}
	defer cache.Close()

	opts := []orchestrator.Option{orchestrator.WithCache(cache)}
	if concurrency > 0 {
		opts = append(opts, orchestrator.WithConcurrency(concurrency))
	}
	if outputFormat != "json" {
		opts = append(opts, orchestrator.WithHooks(orchestrator.Hooks{
			OnStart: func(filename string) {
				fmt.Printf("reviewing %s...\n", filename)
			},
		}))
	}
	orch := orchestrator.New(reviewer, root, opts...)

	results, err := orch.Run(ctx, diff.Files, rules)
	if err != nil {
		return fmt.Errorf("review run aborted: %w", err)
	}

	return renderResults(diff, results)
}

func renderResults(diff changesource.Result, results []orchestrator.Result) error {
	var totalCost float64
	var totalViolations int
	for _, r := range results {
		totalCost += r.Analysis.Cost
		totalViolations += len(r.Analysis.Violations)
	}

	if outputFormat == "json" {
		return outputJSON(map[string]any{
			"branch":           diff.CurrentBranch,
			"base":             diff.DiffBranch,
			"stats":            diff.Stats,
			"results":          results,
			"total_cost":       totalCost,
			"total_violations": totalViolations,
		})
	}

	for _, r := range results {
		if r.Skipped {
			if r.SkipReason == orchestrator.SkipError {
				fmt.Printf("%s: skipped (error: %v)\n", r.Filename, r.Err)
			}
			continue
		}
		for _, v := range r.Analysis.Violations {
			fmt.Println(formatViolation(r.Filename, v))
		}
	}

	fmt.Printf(
		"\n%s — %d violation(s), cost $%.4f\n",
		diff.Stats.Summary(), totalViolations, totalCost,
	)
	return nil
}
