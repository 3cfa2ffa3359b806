package review

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wispbit/wisp-review/internal/diffpatch"
	"github.com/wispbit/wisp-review/internal/llmclient"
	"github.com/wispbit/wisp-review/internal/ruleset"
	"github.com/wispbit/wisp-review/internal/toolsandbox"
)

// maxRounds bounds the tool-call/completion alternation for one file's
// review. It exists only as a backstop against a model that never stops
// calling tools; a well-behaved conversation terminates long before it.
const maxRounds = 25

// Reviewer drives the per-file tool-calling conversation described in
// §4.E and the validator pass described in §4.F.
type Reviewer struct {
	llm     *llmclient.Client
	sandbox *toolsandbox.Sandbox

	model     string
	validator *Validator
	log       *slog.Logger
}

// ReviewerOption configures a Reviewer.
type ReviewerOption func(*Reviewer)

// WithReviewerModel sets the chat completion model used for the review
// conversation. The default is "gpt-4o".
func WithReviewerModel(model string) ReviewerOption {
	return func(r *Reviewer) {
		r.model = model
	}
}

// WithReviewerLogger overrides the Reviewer's logger. The default is
// slog.Default().
func WithReviewerLogger(log *slog.Logger) ReviewerOption {
	return func(r *Reviewer) {
		r.log = log
	}
}

// NewReviewer returns a Reviewer that issues completions through llm and
// executes tool calls against sandbox.
func NewReviewer(llm *llmclient.Client, sandbox *toolsandbox.Sandbox, opts ...ReviewerOption) *Reviewer {
	r := &Reviewer{
		llm:     llm,
		sandbox: sandbox,
		model:   "gpt-4o",
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validator == nil {
		r.validator = NewValidator(llm, WithValidatorModel(r.model), WithValidatorLogger(r.log))
	}
	return r
}

// Review runs the full per-file procedure of §4.E: short-circuit checks,
// the tool-calling conversation, and the validator pass over every
// candidate violation it produced.
func (r *Reviewer) Review(ctx context.Context, change FileChange, rules []ruleset.Rule, allFiles []string) (FileAnalysis, error) {
	if change.Patch == "" {
		return FileAnalysis{Rules: rules, Explanation: ExplanationNoPatchFound}, nil
	}
	if len(rules) == 0 {
		return FileAnalysis{Rules: rules, Explanation: ExplanationNoApplicableRules}, nil
	}

	ruleIDs := make([]string, len(rules))
	for i, rule := range rules {
		ruleIDs[i] = rule.ID
	}
	ruleByID := make(map[string]ruleset.Rule, len(rules))
	for _, rule := range rules {
		ruleByID[rule.ID] = rule
	}

	sink := toolsandbox.NewComplaintSink(change.Filename, change.Patch, ruleIDs)
	numberedPatch := diffpatch.AddLineNumbersToPatch(change.Patch)

	messages := []llmclient.Message{
		{Role: llmclient.RoleSystem, Content: renderSystemPrompt(r.log, allFiles)},
		{Role: llmclient.RoleUser, Content: renderUserMessage(rules, change.Filename, change.Status, numberedPatch)},
	}

	var (
		candidates   []candidateViolation
		visitedSet   = map[string]struct{}{}
		totalCost    float64
		explanation  string
	)

	for round := 0; round < maxRounds; round++ {
		resp, err := r.llm.Complete(ctx, llmclient.Request{
			Messages: messages,
			Tools:    toolSchemas(),
			Model:    r.model,
		})
		if err != nil {
			return FileAnalysis{}, fmt.Errorf("review conversation for %s: %w", change.Filename, err)
		}
		totalCost += resp.CostUSD

		if resp.Kind != llmclient.KindTool {
			explanation = resp.Content
			break
		}

		messages = append(messages, llmclient.Message{
			Role:      llmclient.RoleAssistant,
			ToolCalls: resp.ToolCalls,
		})

		results := make([]string, len(resp.ToolCalls))
		visitedThisRound := make([]string, len(resp.ToolCalls))
		accepted := make([]*toolsandbox.Complaint, len(resp.ToolCalls))

		g, gctx := errgroup.WithContext(ctx)
		for i, call := range resp.ToolCalls {
			i, call := i, call
			g.Go(func() error {
				content, visited, candidate := dispatchTool(gctx, r.sandbox, sink, call)
				results[i] = content
				visitedThisRound[i] = visited
				accepted[i] = candidate
				return nil
			})
		}
		// No goroutine here returns an error (dispatchTool reports
		// failures as tool-result content, not Go errors), so Wait returns
		// nil; a cancelled ctx surfaces through the next Complete call.
		if err := g.Wait(); err != nil {
			return FileAnalysis{}, fmt.Errorf("%w", err)
		}

		for i, call := range resp.ToolCalls {
			messages = append(messages, llmclient.Message{
				Role:       llmclient.RoleTool,
				Content:    results[i],
				ToolCallID: call.ID,
			})
			if visitedThisRound[i] != "" {
				visitedSet[visitedThisRound[i]] = struct{}{}
			}
			if accepted[i] != nil {
				rule := ruleByID[accepted[i].RuleID]
				candidates = append(candidates, candidateViolation{
					description: accepted[i].Description,
					line:        accepted[i].Line,
					rule:        rule,
				})
			}
		}
	}

	violations, rejected, validationCost, err := r.validator.ValidateAll(ctx, change, candidates)
	if err != nil {
		return FileAnalysis{}, fmt.Errorf("validating violations for %s: %w", change.Filename, err)
	}
	totalCost += validationCost

	delete(visitedSet, change.Filename)
	visited := make([]string, 0, len(visitedSet))
	for f := range visitedSet {
		visited = append(visited, f)
	}
	sort.Strings(visited)

	return FileAnalysis{
		Violations:         violations,
		Explanation:        explanation,
		Rules:              rules,
		VisitedFiles:       visited,
		RejectedViolations: rejected,
		Cost:               totalCost,
	}, nil
}
