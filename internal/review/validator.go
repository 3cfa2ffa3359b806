package review

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/wispbit/wisp-review/internal/diffpatch"
	"github.com/wispbit/wisp-review/internal/llmclient"
)

const (
	validatorTemperature = 0.1
	validatorMaxTokens   = 300
	reportValidationTool = "report_validation"
	validationContext    = 3
)

// Validator issues the focused second-pass prompt of §4.F over each
// candidate violation, forcing a structured accept/reject verdict.
type Validator struct {
	llm   *llmclient.Client
	model string
	log   *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithValidatorModel sets the chat completion model used for validation
// calls. The default is "gpt-4o".
func WithValidatorModel(model string) ValidatorOption {
	return func(v *Validator) {
		v.model = model
	}
}

// WithValidatorLogger overrides the Validator's logger. The default is
// slog.Default().
func WithValidatorLogger(log *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		v.log = log
	}
}

// NewValidator returns a Validator that issues completions through llm.
func NewValidator(llm *llmclient.Client, opts ...ValidatorOption) *Validator {
	v := &Validator{llm: llm, model: "gpt-4o", log: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// reportValidationArgs is the JSON shape forced via the required
// report_validation tool call.
type reportValidationArgs struct {
	IsValid   bool   `json:"is_valid"`
	Reasoning string `json:"reasoning"`
}

// ValidateAll runs one validation call per candidate, in parallel, and
// partitions the results into accepted Violations and RejectedViolations.
func (v *Validator) ValidateAll(ctx context.Context, change FileChange, candidates []candidateViolation) ([]Violation, []RejectedViolation, float64, error) {
	if len(candidates) == 0 {
		return nil, nil, 0, nil
	}

	violations := make([]*Violation, len(candidates))
	rejections := make([]*RejectedViolation, len(candidates))
	costs := make([]float64, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			verdict, cost, err := v.validateOne(gctx, change, c)
			if err != nil {
				return fmt.Errorf("validating candidate against rule %s: %w", c.rule.ID, err)
			}
			costs[i] = cost

			if verdict.IsValid {
				violations[i] = &Violation{
					Description:         c.description,
					Line:                c.line,
					Rule:                c.rule,
					ValidationReasoning: verdict.Reasoning,
				}
			} else {
				rejections[i] = &RejectedViolation{
					Description: c.description,
					Line:        c.line,
					RuleID:      c.rule.ID,
					Reasoning:   verdict.Reasoning,
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, 0, err
	}

	var (
		outViolations []Violation
		outRejections []RejectedViolation
		totalCost     float64
	)
	for i := range candidates {
		totalCost += costs[i]
		if violations[i] != nil {
			outViolations = append(outViolations, *violations[i])
		}
		if rejections[i] != nil {
			outRejections = append(outRejections, *rejections[i])
		}
	}

	return outViolations, outRejections, totalCost, nil
}

// validateOne issues a single forced report_validation call for one
// candidate violation.
func (v *Validator) validateOne(ctx context.Context, change FileChange, c candidateViolation) (reportValidationArgs, float64, error) {
	hunk := diffpatch.ExtractDiffHunk(change.Patch, c.line.Start, c.line.End, c.line.Side, validationContext)

	additions := diffpatch.AddLineNumbersToPatch(diffpatch.FilterDiff(hunk, diffpatch.FilterAdditions))
	deletions := diffpatch.AddLineNumbersToPatch(diffpatch.FilterDiff(hunk, diffpatch.FilterDeletions))

	prompt := fmt.Sprintf(`Decide whether the candidate violation below is a real violation of the rule, given only the evidence shown.

## Rule

%s

## Candidate Violation

%s

## File

%s (status: %s)

## Additions In Range

`+"```"+`
%s
`+"```"+`

## Deletions In Range

`+"```"+`
%s
`+"```"+`

## Criteria

- Does the candidate match the rule's actual intent, not just its wording?
- Is it consistent with the file's status (e.g. a rule about modifying existing logic doesn't apply to a newly added file)?
- Is the judgement non-speculative: is the violation definitely present, not merely plausible?
- If the rule requires cross-file context the reviewer didn't have access to, default to valid.
- Is the original reviewer's reasoning plausible given the diff shown?

Call report_validation with your verdict.`,
		c.rule.Body, c.description, change.Filename, change.Status, additions, deletions,
	)

	temp := validatorTemperature
	maxTokens := validatorMaxTokens

	resp, err := v.llm.Complete(ctx, llmclient.Request{
		Messages: []llmclient.Message{
			{Role: llmclient.RoleUser, Content: prompt},
		},
		Tools: []llmclient.ToolSchema{{
			Name:        reportValidationTool,
			Description: "Report whether the candidate violation is real.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"is_valid":  map[string]any{"type": "boolean"},
					"reasoning": map[string]any{"type": "string"},
				},
				"required": []string{"is_valid", "reasoning"},
			},
		}},
		ToolChoice: &llmclient.ToolChoice{
			Mode:         llmclient.ToolChoiceFunction,
			FunctionName: reportValidationTool,
		},
		Model:       v.model,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return reportValidationArgs{}, 0, err
	}

	if len(resp.ToolCalls) == 0 {
		return reportValidationArgs{}, resp.CostUSD, fmt.Errorf("validator did not call %s", reportValidationTool)
	}

	var args reportValidationArgs
	if err := json.Unmarshal(resp.ToolCalls[0].Arguments, &args); err != nil {
		return reportValidationArgs{}, resp.CostUSD, fmt.Errorf("parsing validator verdict: %w", err)
	}

	return args, resp.CostUSD, nil
}
