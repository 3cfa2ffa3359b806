package ruleset

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// glyphReplacer removes the checkmark/cross glyphs rule bodies sometimes
// carry over from whatever authored them; they render poorly once folded
// into a prompt.
var glyphReplacer = strings.NewReplacer(
	"✅", "",
	"❌", "",
	"✓", "",
	"✗", "",
	"❎", "",
)

// parseRuleFile splits a rule's raw markdown source into its include
// patterns and normalized body.
func parseRuleFile(raw string) (include []string, body string) {
	frontmatter, rest := splitFrontmatter(raw)
	include = parseIncludeField(frontmatter)
	body = normalizeBody(rest)
	return include, body
}

// splitFrontmatter extracts an optional leading "---"..."---" block. If the
// document doesn't open with a frontmatter delimiter, the whole document is
// returned as the body with an empty frontmatter block.
func splitFrontmatter(raw string) (frontmatter, rest string) {
	trimmed := strings.TrimLeft(raw, "\n")
	if !strings.HasPrefix(trimmed, "---") {
		return "", raw
	}

	afterOpen := trimmed[3:]
	// The delimiter line may be "---\n" or "---\r\n".
	if idx := strings.IndexByte(afterOpen, '\n'); idx >= 0 {
		afterOpen = afterOpen[idx+1:]
	} else {
		return "", raw
	}

	closeIdx := strings.Index(afterOpen, "\n---")
	if closeIdx == -1 {
		return "", raw
	}

	frontmatter = afterOpen[:closeIdx]

	after := afterOpen[closeIdx+len("\n---"):]
	if nl := strings.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = ""
	}

	return frontmatter, after
}

// parseIncludeField reads the "include:" key out of a YAML-like frontmatter
// block and splits its value into individual patterns.
func parseIncludeField(frontmatter string) []string {
	for _, line := range strings.Split(frontmatter, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "include:") {
			continue
		}

		value := strings.TrimSpace(strings.TrimPrefix(trimmed, "include:"))
		value = strings.Trim(value, "[]")
		return splitPatternList(value)
	}

	return nil
}

// splitPatternList splits a comma-separated pattern list, ignoring commas
// that fall inside "{...}" brace expansions or inside quoted segments.
func splitPatternList(value string) []string {
	var (
		parts []string
		depth int
		quote rune
		cur   strings.Builder
	)

	flush := func() {
		p := strings.TrimSpace(cur.String())
		p = unquotePattern(p)
		if p != "" {
			parts = append(parts, p)
		}
		cur.Reset()
	}

	for _, r := range value {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == '{':
			depth++
			cur.WriteRune(r)
		case r == '}':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case r == ',' && depth == 0:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	return parts
}

// unquotePattern strips one layer of surrounding matching quotes and
// trims whitespace.
func unquotePattern(p string) string {
	p = strings.TrimSpace(p)
	if len(p) >= 2 {
		if (p[0] == '"' && p[len(p)-1] == '"') || (p[0] == '\'' && p[len(p)-1] == '\'') {
			p = p[1 : len(p)-1]
		}
	}
	return strings.TrimSpace(p)
}

// normalizeBody strips a single leading H1-H3 heading line (H4 and deeper
// are left alone, matching how rule authors use them for sub-sections)
// and the glyph codepoints rule bodies accumulate. Whether the leading
// block is a heading, and at what level, is decided by parsing the body
// with goldmark rather than a hand-rolled regex — the same ATX-heading
// rules (1-6 "#" characters, optional trailing closing run) a markdown
// renderer would apply.
func normalizeBody(body string) string {
	doc := goldmark.New().Parser().Parse(text.NewReader([]byte(body)))

	heading, ok := doc.FirstChild().(*ast.Heading)
	if ok && heading.Level <= 3 {
		body = stripFirstNonBlankLine(body)
	}

	return glyphReplacer.Replace(body)
}

// stripFirstNonBlankLine removes the first non-blank line, leaving any
// leading blank lines (and everything after) untouched.
func stripFirstNonBlankLine(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			return strings.Join(append(append([]string{}, lines[:i]...), lines[i+1:]...), "\n")
		}
	}
	return body
}
