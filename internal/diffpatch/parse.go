package diffpatch

import (
	"regexp"
	"strconv"
	"strings"
)

// hunkHeaderRegex matches a unified diff hunk header, e.g.
// "@@ -12,5 +12,6 @@ func Foo()". The trailing section heading is ignored.
var hunkHeaderRegex = regexp.MustCompile(
	`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`,
)

// parseHunkHeader extracts the old/new start and count from a hunk header
// line. A missing count defaults to 1, per the unified diff format.
func parseHunkHeader(line string) (oldStart, oldCount, newStart, newCount int, ok bool) {
	m := hunkHeaderRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, 0, 0, false
	}

	oldStart, _ = strconv.Atoi(m[1])
	oldCount = 1
	if m[2] != "" {
		oldCount, _ = strconv.Atoi(m[2])
	}

	newStart, _ = strconv.Atoi(m[3])
	newCount = 1
	if m[4] != "" {
		newCount, _ = strconv.Atoi(m[4])
	}

	return oldStart, oldCount, newStart, newCount, true
}

// splitHunks walks a unified diff and returns every hunk it finds, along
// with the preamble lines (file headers, "diff --git", etc.) that preceded
// the first hunk. Lines before the first "@@" are otherwise ignored by
// every operation in this package except FilterDiff and
// AddLineNumbersToPatch, which copy them to their output.
func splitHunks(patch string) (preamble []string, hunks []hunk) {
	lines := strings.Split(patch, "\n")

	var cur *hunk
	oldCursor, newCursor := 0, 0

	flush := func() {
		if cur != nil {
			hunks = append(hunks, *cur)
			cur = nil
		}
	}

	for _, line := range lines {
		if oldStart, oldCount, newStart, newCount, ok := parseHunkHeader(line); ok {
			flush()
			cur = &hunk{
				oldStart: oldStart,
				oldCount: oldCount,
				newStart: newStart,
				newCount: newCount,
			}
			oldCursor = oldStart
			newCursor = newStart
			continue
		}

		if cur == nil {
			preamble = append(preamble, line)
			continue
		}

		if strings.HasPrefix(line, "\\") {
			// "\ No newline at end of file" — preserved verbatim but not
			// assigned a line number.
			cur.lines = append(cur.lines, patchLine{
				kind: kindNoNewline,
				raw:  line,
			})
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"):
			cur.lines = append(cur.lines, patchLine{
				kind:    kindAdd,
				newLine: newCursor,
				content: line[1:],
				raw:     line,
			})
			newCursor++

		case strings.HasPrefix(line, "-"):
			cur.lines = append(cur.lines, patchLine{
				kind:    kindDelete,
				oldLine: oldCursor,
				content: line[1:],
				raw:     line,
			})
			oldCursor++

		default:
			// A leading space is a context line. git also emits truly
			// empty lines (no leading space at all) for blank context —
			// those are treated as context too, matching git's own
			// behaviour.
			content := line
			if strings.HasPrefix(line, " ") {
				content = line[1:]
			}
			cur.lines = append(cur.lines, patchLine{
				kind:    kindContext,
				oldLine: oldCursor,
				newLine: newCursor,
				content: content,
				raw:     line,
			})
			oldCursor++
			newCursor++
		}
	}
	flush()

	return preamble, hunks
}

// ParsePatch walks every hunk in the patch and yields one ChangedLine per
// physical diff line, in file order. Lines before the first hunk header are
// ignored. "\ No newline at end of file" markers are ignored.
func ParsePatch(patch string) []ChangedLine {
	_, hunks := splitHunks(patch)

	var out []ChangedLine
	for _, h := range hunks {
		for _, l := range h.lines {
			if l.kind == kindNoNewline {
				continue
			}
			out = append(out, ChangedLine{
				OldLine: l.oldLine,
				NewLine: l.newLine,
				Content: l.content,
			})
		}
	}

	return out
}

// ChangedLines returns the set of new-side line numbers that were added and
// the set of old-side line numbers that were removed, across every hunk in
// the patch.
func ChangedLines(patch string) (added, removed map[int]struct{}) {
	added = make(map[int]struct{})
	removed = make(map[int]struct{})

	_, hunks := splitHunks(patch)
	for _, h := range hunks {
		for _, l := range h.lines {
			switch l.kind {
			case kindAdd:
				added[l.newLine] = struct{}{}
			case kindDelete:
				removed[l.oldLine] = struct{}{}
			}
		}
	}

	return added, removed
}

// LineRange is an inclusive [Start, End] range. A hunk with a zero count on
// a given side has no range on that side (IsZero reports true).
type LineRange struct {
	Start, End int
}

// IsZero reports whether the range covers no lines at all.
func (r LineRange) IsZero() bool {
	return r.End < r.Start
}

// Contains reports whether the range fully contains the other range.
func (r LineRange) Contains(other LineRange) bool {
	if other.IsZero() {
		return false
	}
	return other.Start >= r.Start && other.End <= r.End
}

// HunkRanges returns the per-hunk inclusive line ranges on each side, in
// file order. A hunk with a declared count of 0 produces a zero-width
// range on that side.
func HunkRanges(patch string) (oldRanges, newRanges []LineRange) {
	_, hunks := splitHunks(patch)

	for _, h := range hunks {
		oldRanges = append(oldRanges, spanOf(h.oldStart, h.oldCount))
		newRanges = append(newRanges, spanOf(h.newStart, h.newCount))
	}

	return oldRanges, newRanges
}

func spanOf(start, count int) LineRange {
	if count <= 0 {
		// Zero-count spans don't cover any line; represent as empty by
		// making End < Start.
		return LineRange{Start: start, End: start - 1}
	}
	return LineRange{Start: start, End: start + count - 1}
}

// IsLineReferenceValidForPatch reports whether ref is both contained in a
// hunk's range on its side and touches at least one changed line on that
// side (added if Right, removed if Left). A reference into context-only
// lines, or one that spans a gap between hunks, is rejected.
func IsLineReferenceValidForPatch(ref LineRef, patch string) bool {
	if !ref.Valid() {
		return false
	}

	_, hunks := splitHunks(patch)
	if len(hunks) == 0 {
		return false
	}

	want := LineRange{Start: ref.Start, End: ref.End}

	for _, h := range hunks {
		var hunkSide LineRange
		if ref.Side == SideRight {
			hunkSide = spanOf(h.newStart, h.newCount)
		} else {
			hunkSide = spanOf(h.oldStart, h.oldCount)
		}

		if !hunkSide.Contains(want) {
			continue
		}

		for _, l := range h.lines {
			switch {
			case ref.Side == SideRight && l.kind == kindAdd:
				if l.newLine >= ref.Start && l.newLine <= ref.End {
					return true
				}
			case ref.Side == SideLeft && l.kind == kindDelete:
				if l.oldLine >= ref.Start && l.oldLine <= ref.End {
					return true
				}
			}
		}

		// Contained in this hunk's range but touches no changed line —
		// per spec, the tie-break is "first hunk in file order", and a
		// context-only match there is a rejection, not a fallthrough to
		// the next hunk.
		return false
	}

	return false
}
