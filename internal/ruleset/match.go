package ruleset

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchesInclude implements the directory-scoped include/exclude matching
// described for the rule engine: a rule applies to filePath (workspace-
// relative, forward-slash separated) iff at least one positive pattern
// matches (or there are no positive patterns at all) and no negative
// pattern matches.
func MatchesInclude(r Rule, filePath string) bool {
	positive, negative := scopedPatterns(r)

	included := len(positive) == 0
	for _, p := range positive {
		if patternMatches(p, filePath) {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, p := range negative {
		if patternMatches(p, filePath) {
			return false
		}
	}

	return true
}

// scopedPatterns rebuilds every pattern with the rule's directory prefixed
// on, and splits the result into positive and negative lists.
func scopedPatterns(r Rule) (positive, negative []string) {
	dir := strings.Trim(r.Directory, "/")

	for _, raw := range r.Include {
		p := raw
		neg := strings.HasPrefix(p, "!")
		if neg {
			p = p[1:]
		}

		if dir != "" && dir != "." && !path.IsAbs(p) && !strings.HasPrefix(p, dir+"/") {
			p = dir + "/" + p
		}

		if neg {
			negative = append(negative, p)
		} else {
			positive = append(positive, p)
		}
	}

	return positive, negative
}

// patternMatches reports whether pattern matches filePath, applying
// case-insensitive comparison, brace expansion, a bare "*" upgrade to
// cross directory separators, and a base-name fallback.
func patternMatches(pattern, filePath string) bool {
	filePath = strings.ToLower(filePath)

	for _, alt := range expandBraces(pattern) {
		alt = strings.ToLower(alt)

		for _, candidate := range crossingVariants(alt) {
			if ok, _ := doublestar.Match(candidate, filePath); ok {
				return true
			}
		}

		// Base-name match: a pattern with no path separator is allowed to
		// match anywhere in the tree by basename alone.
		if !strings.Contains(alt, "/") {
			if ok, _ := doublestar.Match(alt, path.Base(filePath)); ok {
				return true
			}
		}
	}

	return false
}

// crossingVariants returns the patterns to try for a single alternative: the
// pattern itself, plus — when it contains a bare "*" but no "**" at all — an
// upgraded form that can also match across directory separators, the
// conventional doublestar idiom for "match this filename pattern at any
// nesting depth". A segment that is exactly "*" becomes "**"; a bare "*"
// embedded in the final compound segment (e.g. "*.go") instead gets a
// "**/" inserted right before that segment.
func crossingVariants(pattern string) []string {
	if strings.Contains(pattern, "**") || !strings.Contains(pattern, "*") {
		return []string{pattern}
	}

	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if seg == "*" {
			segments[i] = "**"
		}
	}

	last := len(segments) - 1
	if segments[last] != "**" && strings.Contains(segments[last], "*") {
		dirPart := segments[:last]
		widened := append(append([]string{}, dirPart...), "**", segments[last])
		segments = widened
	}

	return []string{pattern, strings.Join(segments, "/")}
}

// expandBraces expands "{a,b,c}" alternation into the full set of literal
// patterns. Nested and multiple groups are all expanded, recursively.
// A pattern with no braces returns a one-element slice of itself.
func expandBraces(pattern string) []string {
	start := strings.IndexByte(pattern, '{')
	if start == -1 {
		return []string{pattern}
	}

	depth := 1
	end := -1
	for i := start + 1; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return []string{pattern}
	}

	prefix := pattern[:start]
	suffix := pattern[end+1:]
	alts := splitTopLevelCommas(pattern[start+1 : end])

	var out []string
	for _, alt := range alts {
		for _, expanded := range expandBraces(prefix + alt + suffix) {
			out = append(out, expanded)
		}
	}

	return out
}

// splitTopLevelCommas splits on commas that are not nested inside a further
// "{...}" group.
func splitTopLevelCommas(s string) []string {
	var (
		parts []string
		depth int
		cur   strings.Builder
	)

	for _, r := range s {
		switch r {
		case '{':
			depth++
			cur.WriteRune(r)
		case '}':
			depth--
			cur.WriteRune(r)
		case ',':
			if depth == 0 {
				parts = append(parts, cur.String())
				cur.Reset()
				continue
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())

	return parts
}
