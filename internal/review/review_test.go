package review

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wispbit/wisp-review/internal/diffpatch"
	"github.com/wispbit/wisp-review/internal/llmclient"
	"github.com/wispbit/wisp-review/internal/ruleset"
	"github.com/wispbit/wisp-review/internal/toolsandbox"
)

const samplePatch = `@@ -1,5 +1,6 @@
 line1
-line2
+new line
 line3
 line4
 line5`

func newTestReviewer(t *testing.T) *Reviewer {
	t.Helper()
	sb, err := toolsandbox.New(t.TempDir())
	require.NoError(t, err)
	llm := llmclient.New("test-key", "")
	return NewReviewer(llm, sb)
}

func TestReview_NoPatchShortCircuits(t *testing.T) {
	r := newTestReviewer(t)
	change := FileChange{Filename: "a.go", Status: StatusModified}
	rules := []ruleset.Rule{{ID: "r1"}}

	analysis, err := r.Review(context.Background(), change, rules, []string{"a.go"})
	require.NoError(t, err)
	require.Equal(t, ExplanationNoPatchFound, analysis.Explanation)
	require.Empty(t, analysis.Violations)
}

func TestReview_NoApplicableRulesShortCircuits(t *testing.T) {
	r := newTestReviewer(t)
	change := FileChange{Filename: "a.go", Status: StatusModified, Patch: samplePatch}

	analysis, err := r.Review(context.Background(), change, nil, []string{"a.go"})
	require.NoError(t, err)
	require.Equal(t, ExplanationNoApplicableRules, analysis.Explanation)
	require.Empty(t, analysis.Violations)
}

func TestRenderUserMessage_IncludesRuleIDsAndPatch(t *testing.T) {
	rules := []ruleset.Rule{
		{ID: "no-println", Body: "Don't use println."},
		{ID: "no-todo", Body: "Don't leave TODOs."},
	}
	numbered := diffpatch.AddLineNumbersToPatch(samplePatch)

	msg := renderUserMessage(rules, "main.go", StatusModified, numbered)

	require.Contains(t, msg, "main.go (status: modified)")
	require.Contains(t, msg, "Rule no-println")
	require.Contains(t, msg, "Don't use println.")
	require.Contains(t, msg, "Rule no-todo")
	require.Contains(t, msg, numbered)
}

func TestRenderSystemPrompt_SingleFileOmitsCrossFileSection(t *testing.T) {
	prompt := renderSystemPrompt(nil, []string{"main.go"})
	require.NotContains(t, prompt, "Other Files In This Review")
}

func TestRenderSystemPrompt_MultiFileListsSiblings(t *testing.T) {
	prompt := renderSystemPrompt(nil, []string{"main.go", "helper.go"})
	require.Contains(t, prompt, "Other Files In This Review")
	require.Contains(t, prompt, "main.go")
	require.Contains(t, prompt, "helper.go")
}

func TestDispatchTool_ReadFileTracksVisited(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))
	sb, err := toolsandbox.New(root)
	require.NoError(t, err)
	sink := toolsandbox.NewComplaintSink("a.go", samplePatch, []string{"r1"})

	args, err := json.Marshal(map[string]any{
		"target_file":              "a.go",
		"should_read_entire_file": true,
	})
	require.NoError(t, err)

	content, visited, candidate := dispatchTool(context.Background(), sb, sink, llmclient.ToolCall{
		ID: "call1", Name: toolReadFile, Arguments: args,
	})

	require.Contains(t, content, "package a")
	require.Equal(t, "a.go", visited)
	require.Nil(t, candidate)
}

func TestDispatchTool_ComplaintAcceptedReturnsCandidate(t *testing.T) {
	sb, err := toolsandbox.New(t.TempDir())
	require.NoError(t, err)
	sink := toolsandbox.NewComplaintSink("a.go", samplePatch, []string{"r1"})

	args, err := json.Marshal(map[string]any{
		"file_path":   "a.go",
		"line_start":  2,
		"line_end":    2,
		"line_side":   "right",
		"description": "uses println",
		"rule_id":     "r1",
	})
	require.NoError(t, err)

	content, visited, candidate := dispatchTool(context.Background(), sb, sink, llmclient.ToolCall{
		ID: "call2", Name: toolComplaint, Arguments: args,
	})

	require.Equal(t, "complaint filed", content)
	require.Empty(t, visited)
	require.NotNil(t, candidate)
	require.Equal(t, "r1", candidate.RuleID)
	require.Equal(t, 2, candidate.Line.Start)
}

func TestDispatchTool_ComplaintWrongFileRejected(t *testing.T) {
	sb, err := toolsandbox.New(t.TempDir())
	require.NoError(t, err)
	sink := toolsandbox.NewComplaintSink("right.py", samplePatch, []string{"r1"})

	args, err := json.Marshal(map[string]any{
		"file_path":   "wrong.py",
		"line_start":  2,
		"line_end":    2,
		"line_side":   "right",
		"description": "doesn't matter",
		"rule_id":     "r1",
	})
	require.NoError(t, err)

	content, _, candidate := dispatchTool(context.Background(), sb, sink, llmclient.ToolCall{
		ID: "call3", Name: toolComplaint, Arguments: args,
	})

	require.Contains(t, content, "error:")
	require.Nil(t, candidate)
}

func TestDispatchTool_UnknownToolReturnsError(t *testing.T) {
	sb, err := toolsandbox.New(t.TempDir())
	require.NoError(t, err)
	sink := toolsandbox.NewComplaintSink("a.go", samplePatch, []string{"r1"})

	content, _, candidate := dispatchTool(context.Background(), sb, sink, llmclient.ToolCall{
		ID: "call4", Name: "not_a_real_tool", Arguments: json.RawMessage(`{}`),
	})

	require.Contains(t, content, "unknown tool")
	require.Nil(t, candidate)
}

func TestValidateAll_EmptyCandidatesIsNoop(t *testing.T) {
	v := NewValidator(llmclient.New("test-key", ""))
	violations, rejected, cost, err := v.ValidateAll(context.Background(), FileChange{}, nil)
	require.NoError(t, err)
	require.Nil(t, violations)
	require.Nil(t, rejected)
	require.Zero(t, cost)
}
