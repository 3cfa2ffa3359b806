package diffpatch

import "strings"

// FilterMode selects which half of each hunk FilterDiff keeps.
type FilterMode int

const (
	// FilterAdditions keeps context and added lines, dropping deletions.
	FilterAdditions FilterMode = iota

	// FilterDeletions keeps context and deleted lines, dropping additions.
	FilterDeletions
)

// FilterDiff projects a patch down to only the additions (or only the
// deletions) of every hunk, recomputing each hunk's header to match the
// lines that survive. A hunk that loses all of its change lines (nothing
// but context left) is dropped entirely. If every hunk in the patch is
// dropped this way, the whole file is dropped and the empty string is
// returned.
func FilterDiff(patch string, mode FilterMode) string {
	preamble, hunks := splitHunks(patch)

	var kept []string
	for _, h := range hunks {
		rendered, ok := filterHunk(h, mode)
		if ok {
			kept = append(kept, rendered)
		}
	}

	if len(kept) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(preamble, "\n"))
	for _, h := range kept {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(h)
	}

	return sb.String()
}

// filterHunk renders a single hunk with the opposite side's change lines
// dropped. ok is false when no change line of the requested kind survives,
// meaning the hunk carries no information worth keeping.
func filterHunk(h hunk, mode FilterMode) (rendered string, ok bool) {
	var (
		keptLines          []patchLine
		oldCount, newCount int
		anyChange          bool
	)

	for _, l := range h.lines {
		switch l.kind {
		case kindContext:
			keptLines = append(keptLines, l)
			oldCount++
			newCount++

		case kindAdd:
			if mode == FilterDeletions {
				continue
			}
			keptLines = append(keptLines, l)
			newCount++
			anyChange = true

		case kindDelete:
			if mode == FilterAdditions {
				continue
			}
			keptLines = append(keptLines, l)
			oldCount++
			anyChange = true

		case kindNoNewline:
			keptLines = append(keptLines, l)
		}
	}

	if !anyChange {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(renderHunkHeader(h.oldStart, oldCount, h.newStart, newCount))
	for _, l := range keptLines {
		sb.WriteString("\n")
		sb.WriteString(l.raw)
	}

	return sb.String(), true
}
