package diffpatch

import (
	"fmt"
	"strconv"
	"strings"
)

// ExtractDiffHunk locates the first hunk containing [start, end] on the
// given side and re-renders it with `context` lines of padding on either
// side of the target range, plus the full contiguous change block the
// target range touches. The returned string is a single rebuilt hunk: a
// recomputed "@@ ... @@" header followed by the kept lines. If no hunk
// contains the range, the empty string is returned.
func ExtractDiffHunk(patch string, start, end int, side Side, context int) string {
	_, hunks := splitHunks(patch)

	for _, h := range hunks {
		var hunkSide LineRange
		if side == SideRight {
			hunkSide = spanOf(h.newStart, h.newCount)
		} else {
			hunkSide = spanOf(h.oldStart, h.oldCount)
		}

		want := LineRange{Start: start, End: end}
		if !hunkSide.Contains(want) {
			continue
		}

		return renderExtractedHunk(h, start, end, side, context)
	}

	return ""
}

// renderExtractedHunk keeps: (a) any context/side-matching change line whose
// side-specific number falls in [start-context, end+context], plus (b) the
// entirety of any contiguous non-context block that contains a line kept by
// (a) — so a deletion sitting next to a kept addition (or vice versa) is not
// stranded on its own.
func renderExtractedHunk(h hunk, start, end int, side Side, context int) string {
	lo := start - context
	hi := end + context

	inWindow := func(l patchLine) bool {
		switch l.kind {
		case kindContext:
			if side == SideRight {
				return l.newLine >= lo && l.newLine <= hi
			}
			return l.oldLine >= lo && l.oldLine <= hi
		case kindAdd:
			if side != SideRight {
				return false
			}
			return l.newLine >= lo && l.newLine <= hi
		case kindDelete:
			if side != SideLeft {
				return false
			}
			return l.oldLine >= lo && l.oldLine <= hi
		}
		return false
	}

	// Group the hunk's lines into runs of contiguous non-context lines,
	// separated by context lines (and "no newline" markers, which travel
	// with whichever run precedes them).
	keep := make([]bool, len(h.lines))
	for i, l := range h.lines {
		if l.kind == kindContext && inWindow(l) {
			keep[i] = true
		}
	}

	runStart := -1
	flushRun := func(runEnd int) {
		if runStart == -1 {
			return
		}
		anyKept := false
		for i := runStart; i < runEnd; i++ {
			if h.lines[i].kind != kindNoNewline && inWindow(h.lines[i]) {
				anyKept = true
				break
			}
		}
		if anyKept {
			for i := runStart; i < runEnd; i++ {
				keep[i] = true
			}
		}
		runStart = -1
	}

	for i, l := range h.lines {
		if l.kind == kindAdd || l.kind == kindDelete || l.kind == kindNoNewline {
			if runStart == -1 {
				runStart = i
			}
			continue
		}
		flushRun(i)
	}
	flushRun(len(h.lines))

	var (
		kept                         []patchLine
		oldStart, newStart           int
		oldCount, newCount           int
		haveOldStart, haveNewStart   bool
		pendingOld, pendingNew       = h.oldStart, h.newStart
	)

	for i, l := range h.lines {
		if !keep[i] {
			// Advance the "pending" cursors past skipped lines so that a
			// fully-additions (or fully-deletions) kept window still
			// anchors its header to the right old/new start.
			switch l.kind {
			case kindContext:
				pendingOld++
				pendingNew++
			case kindAdd:
				pendingNew++
			case kindDelete:
				pendingOld++
			}
			continue
		}

		if l.kind != kindNoNewline {
			if !haveOldStart && (l.kind == kindContext || l.kind == kindDelete) {
				oldStart = l.oldLine
				haveOldStart = true
			}
			if !haveNewStart && (l.kind == kindContext || l.kind == kindAdd) {
				newStart = l.newLine
				haveNewStart = true
			}
			if !haveOldStart {
				oldStart = pendingOld
				haveOldStart = true
			}
			if !haveNewStart {
				newStart = pendingNew
				haveNewStart = true
			}

			switch l.kind {
			case kindContext:
				oldCount++
				newCount++
			case kindAdd:
				newCount++
			case kindDelete:
				oldCount++
			}
		}

		kept = append(kept, l)
	}

	if !haveOldStart {
		oldStart = pendingOld
	}
	if !haveNewStart {
		newStart = pendingNew
	}

	header := renderHunkHeader(oldStart, oldCount, newStart, newCount)

	var sb strings.Builder
	sb.WriteString(header)
	for _, l := range kept {
		sb.WriteByte('\n')
		sb.WriteString(l.raw)
	}

	return sb.String()
}

// renderHunkHeader formats a "@@ -a[,b] +c[,d] @@" line. A count of exactly
// 1 is omitted, as git itself does. A count of 0 is always written
// explicitly (",0").
func renderHunkHeader(oldStart, oldCount, newStart, newCount int) string {
	oldSpan := strconv.Itoa(oldStart)
	if oldCount != 1 {
		oldSpan += "," + strconv.Itoa(oldCount)
	}

	newSpan := strconv.Itoa(newStart)
	if newCount != 1 {
		newSpan += "," + strconv.Itoa(newCount)
	}

	return fmt.Sprintf("@@ -%s +%s @@", oldSpan, newSpan)
}
