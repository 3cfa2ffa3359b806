package review

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/wispbit/wisp-review/internal/ruleset"
)

// crossFileRulesTmpl is the parsed template for the system prompt's
// cross-file file list, initialized once at package load time.
var crossFileRulesTmpl = template.Must(
	template.New("cross-file-rules").Parse(crossFileRulesNoteTmpl),
)

// renderSystemPrompt builds the system message: the reviewer persona plus,
// when the broader review spans more than one file, the list of sibling
// files for cross-file rule reasoning.
func renderSystemPrompt(log *slog.Logger, allFiles []string) string {
	if len(allFiles) <= 1 {
		return reviewerPersona
	}

	var buf bytes.Buffer
	if err := crossFileRulesTmpl.Execute(&buf, allFiles); err != nil {
		log.Warn("failed to render cross-file rules section", "error", err)
		return reviewerPersona
	}

	return reviewerPersona + buf.String()
}

// renderUserMessage bundles the applicable rules (each tagged by id), the
// filename, its status, and the line-numbered patch into the user turn
// that opens the review conversation.
func renderUserMessage(rules []ruleset.Rule, filename string, status Status, numberedPatch string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## File Under Review\n\n%s (status: %s)\n\n", filename, status)

	b.WriteString("## Applicable Rules\n\n")
	for _, r := range rules {
		fmt.Fprintf(&b, "### Rule %s\n\n%s\n\n", r.ID, strings.TrimSpace(r.Body))
	}

	b.WriteString("## Diff\n\nLines are labeled with their pre-change (L) and post-change (R) line numbers. Use these numbers when filing a complaint.\n\n```\n")
	b.WriteString(numberedPatch)
	b.WriteString("\n```\n")

	return b.String()
}
