package review

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wispbit/wisp-review/internal/diffpatch"
	"github.com/wispbit/wisp-review/internal/llmclient"
	"github.com/wispbit/wisp-review/internal/toolsandbox"
)

const (
	toolReadFile   = "read_file"
	toolGrepSearch = "grep_search"
	toolGlobSearch = "glob_search"
	toolListDir    = "list_dir"
	toolComplaint  = "complaint"
)

// toolSchemas is the fixed tool-calling contract exposed to the model:
// read_file, grep_search, glob_search, list_dir, and complaint.
func toolSchemas() []llmclient.ToolSchema {
	return []llmclient.ToolSchema{
		{
			Name:        toolReadFile,
			Description: "Read a range of lines (or the whole file) from a workspace file.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"target_file":                      map[string]any{"type": "string"},
					"should_read_entire_file":           map[string]any{"type": "boolean"},
					"start_line_one_indexed":            map[string]any{"type": "integer"},
					"end_line_one_indexed_inclusive":    map[string]any{"type": "integer"},
				},
				"required": []string{"target_file", "should_read_entire_file"},
			},
		},
		{
			Name:        toolGrepSearch,
			Description: "Search the workspace for a regex pattern using ripgrep.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query":           map[string]any{"type": "string"},
					"include_pattern": map[string]any{"type": "string"},
					"exclude_pattern": map[string]any{"type": "string"},
					"case_sensitive":  map[string]any{"type": "boolean"},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        toolGlobSearch,
			Description: "List workspace files matching a glob pattern, newest first.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern": map[string]any{"type": "string"},
					"path":    map[string]any{"type": "string"},
				},
				"required": []string{"pattern"},
			},
		},
		{
			Name:        toolListDir,
			Description: "List the immediate files and directories under a workspace path.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"relative_workspace_path": map[string]any{"type": "string"},
					"explanation":             map[string]any{"type": "string"},
				},
				"required": []string{"relative_workspace_path"},
			},
		},
		{
			Name:        toolComplaint,
			Description: "File a candidate rule violation against the file under review. Not an inspection tool.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path":   map[string]any{"type": "string"},
					"line_start":  map[string]any{"type": "integer"},
					"line_end":    map[string]any{"type": "integer"},
					"line_side":   map[string]any{"type": "string", "enum": []string{"left", "right"}},
					"description": map[string]any{"type": "string"},
					"rule_id":     map[string]any{"type": "string"},
				},
				"required": []string{"file_path", "line_start", "line_end", "line_side", "description", "rule_id"},
			},
		},
	}
}

type readFileCallArgs struct {
	TargetFile           string `json:"target_file"`
	ShouldReadEntireFile bool   `json:"should_read_entire_file"`
	StartLine            int    `json:"start_line_one_indexed"`
	EndLine              int    `json:"end_line_one_indexed_inclusive"`
}

type grepSearchCallArgs struct {
	Query          string `json:"query"`
	IncludePattern string `json:"include_pattern"`
	ExcludePattern string `json:"exclude_pattern"`
	CaseSensitive  bool   `json:"case_sensitive"`
}

type globSearchCallArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
}

type listDirCallArgs struct {
	RelativeWorkspacePath string `json:"relative_workspace_path"`
}

type complaintCallArgs struct {
	FilePath    string `json:"file_path"`
	LineStart   int    `json:"line_start"`
	LineEnd     int    `json:"line_end"`
	LineSide    string `json:"line_side"`
	Description string `json:"description"`
	RuleID      string `json:"rule_id"`
}

// dispatchTool executes one tool call against the sandbox. It returns the
// tool-result content to hand back to the model, the file read by a
// successful read_file call (for visited-file tracking, empty otherwise),
// and an accepted candidate violation (for complaint calls only).
func dispatchTool(ctx context.Context, sb *toolsandbox.Sandbox, sink *toolsandbox.ComplaintSink, call llmclient.ToolCall) (content, visited string, candidate *toolsandbox.Complaint) {
	switch call.Name {
	case toolReadFile:
		var args readFileCallArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return toolErrorContent(err), "", nil
		}
		out, err := sb.ReadFile(toolsandbox.ReadFileArgs{
			TargetFile: args.TargetFile,
			Start:      args.StartLine,
			End:        args.EndLine,
			ReadEntire: args.ShouldReadEntireFile,
		})
		if err != nil {
			return toolErrorContent(err), "", nil
		}
		return out, args.TargetFile, nil

	case toolGrepSearch:
		var args grepSearchCallArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return toolErrorContent(err), "", nil
		}
		matches, err := sb.GrepSearch(ctx, toolsandbox.GrepSearchArgs{
			Query:          args.Query,
			IncludePattern: args.IncludePattern,
			ExcludePattern: args.ExcludePattern,
			CaseSensitive:  args.CaseSensitive,
		})
		if err != nil {
			return toolErrorContent(err), "", nil
		}
		return formatGrepMatches(matches), "", nil

	case toolGlobSearch:
		var args globSearchCallArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return toolErrorContent(err), "", nil
		}
		paths, err := sb.GlobSearch(args.Pattern, args.Path)
		if err != nil {
			return toolErrorContent(err), "", nil
		}
		if len(paths) == 0 {
			return "no files matched", "", nil
		}
		return joinLines(paths), "", nil

	case toolListDir:
		var args listDirCallArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return toolErrorContent(err), "", nil
		}
		result, err := sb.ListDir(args.RelativeWorkspacePath)
		if err != nil {
			return toolErrorContent(err), "", nil
		}
		return formatListDir(result), "", nil

	case toolComplaint:
		var args complaintCallArgs
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return toolErrorContent(err), "", nil
		}
		accepted, err := sink.Accept(toolsandbox.ComplaintArgs{
			FilePath:    args.FilePath,
			LineStart:   args.LineStart,
			LineEnd:     args.LineEnd,
			LineSide:    diffpatch.Side(args.LineSide),
			Description: args.Description,
			RuleID:      args.RuleID,
		})
		if err != nil {
			return toolErrorContent(err), "", nil
		}
		return "complaint filed", "", &accepted

	default:
		return fmt.Sprintf("error: unknown tool %q", call.Name), "", nil
	}
}

func toolErrorContent(err error) string {
	return fmt.Sprintf("error: %s", err)
}

func formatGrepMatches(matches []toolsandbox.GrepMatch) string {
	if len(matches) == 0 {
		return "no matches"
	}
	var b []byte
	for _, m := range matches {
		b = append(b, fmt.Sprintf("%s:%d:%s\n", m.Path, m.Line, m.Content)...)
	}
	return string(b)
}

func formatListDir(result toolsandbox.ListDirResult) string {
	var b []byte
	for _, d := range result.Directories {
		b = append(b, fmt.Sprintf("%s/\n", d)...)
	}
	for _, f := range result.Files {
		b = append(b, fmt.Sprintf("%s\n", f)...)
	}
	if len(b) == 0 {
		return "(empty)"
	}
	return string(b)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
