package toolsandbox

import (
	"fmt"

	"github.com/wispbit/wisp-review/internal/diffpatch"
	"github.com/wispbit/wisp-review/internal/wisperr"
)

// ComplaintArgs mirrors the complaint tool's argument shape: a candidate
// violation the model wants to report, not an inspection request.
type ComplaintArgs struct {
	FilePath    string
	LineStart   int
	LineEnd     int
	LineSide    diffpatch.Side
	Description string
	RuleID      string
}

// Complaint is the normalized, accepted form of a ComplaintArgs call.
type Complaint struct {
	FilePath    string
	Line        diffpatch.LineRef
	Description string
	RuleID      string
}

// ComplaintSink validates and records complaint tool calls for a single
// file under review.
type ComplaintSink struct {
	filePath string
	patch    string
	ruleIDs  map[string]struct{}
}

// NewComplaintSink returns a sink scoped to one file's review: only calls
// naming filePath and a rule id present in ruleIDs are accepted.
func NewComplaintSink(filePath, patch string, ruleIDs []string) *ComplaintSink {
	ids := make(map[string]struct{}, len(ruleIDs))
	for _, id := range ruleIDs {
		ids[id] = struct{}{}
	}

	return &ComplaintSink{
		filePath: filePath,
		patch:    patch,
		ruleIDs:  ids,
	}
}

// Accept validates a complaint call and, if valid, returns its normalized
// form. Rejections carry a wisperr.ErrInput-wrapped message the calling
// conversation loop can hand back to the model as tool-result content.
func (c *ComplaintSink) Accept(args ComplaintArgs) (Complaint, error) {
	if args.FilePath != c.filePath {
		return Complaint{}, fmt.Errorf(
			"%w: complaint filed against %q, expected the file under review %q",
			wisperr.ErrInput, args.FilePath, c.filePath,
		)
	}

	if _, ok := c.ruleIDs[args.RuleID]; !ok {
		return Complaint{}, fmt.Errorf(
			"%w: rule id %q is not in the rule set for this file",
			wisperr.ErrInput, args.RuleID,
		)
	}

	if args.LineStart == 0 || args.LineEnd == 0 {
		return Complaint{}, fmt.Errorf(
			"%w: line_start and line_end are required", wisperr.ErrInput,
		)
	}

	ref := diffpatch.LineRef{
		Start: args.LineStart,
		End:   args.LineEnd,
		Side:  args.LineSide,
	}
	if !ref.Valid() || !diffpatch.IsLineReferenceValidForPatch(ref, c.patch) {
		return Complaint{}, fmt.Errorf(
			"%w: line reference %s is not backed by this file's patch",
			wisperr.ErrInput, ref,
		)
	}

	return Complaint{
		FilePath:    args.FilePath,
		Line:        ref,
		Description: args.Description,
		RuleID:      args.RuleID,
	}, nil
}
