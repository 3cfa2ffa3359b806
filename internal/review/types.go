package review

import (
	"github.com/wispbit/wisp-review/internal/diffpatch"
	"github.com/wispbit/wisp-review/internal/ruleset"
)

// Status is a FileChange's change classification.
type Status string

const (
	StatusAdded     Status = "added"
	StatusRemoved   Status = "removed"
	StatusModified  Status = "modified"
	StatusRenamed   Status = "renamed"
	StatusCopied    Status = "copied"
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
)

// FileChange is one immutable changed-file record handed to a Reviewer.
// It is read-only for the duration of the review.
type FileChange struct {
	Filename  string
	Status    Status
	Patch     string
	Additions int
	Deletions int

	// SHA is a content-addressed hash of Patch, not of file content.
	SHA string
}

// Canonical explanation tokens for short-circuited reviews.
const (
	ExplanationNoPatchFound      = "NO_PATCH_FOUND"
	ExplanationNoApplicableRules = "NO_APPLICABLE_RULES"
)

// Violation is one rule violation accepted by the complaint sink and
// cleared by the Validator.
type Violation struct {
	Description string
	Line        diffpatch.LineRef
	Rule        ruleset.Rule

	// ValidationReasoning is the Validator's justification for admitting
	// this violation.
	ValidationReasoning string

	// IsCached is true when this violation was served from the review
	// cache rather than produced by a fresh LLM conversation.
	IsCached bool
}

// RejectedViolation records a candidate violation the Validator declined
// to admit, along with its reasoning.
type RejectedViolation struct {
	Description string
	Line        diffpatch.LineRef
	RuleID      string
	Reasoning   string
}

// FileAnalysis is the outcome of reviewing one file.
type FileAnalysis struct {
	Violations []Violation

	// Explanation is the model's closing message, or one of the
	// canonical short-circuit tokens above.
	Explanation string

	Rules              []ruleset.Rule
	VisitedFiles       []string
	RejectedViolations []RejectedViolation

	// Cost is the total USD cost across every LLM call made for this
	// file's review, including the Validator's calls.
	Cost float64
}

// candidateViolation is a complaint accepted by the sandbox's complaint
// sink, pending validation.
type candidateViolation struct {
	description string
	line        diffpatch.LineRef
	rule        ruleset.Rule
}
