package diffpatch

import (
	"strconv"
	"strings"
)

// AddLineNumbersToPatch rewrites every content line of a patch with its
// old and/or new line number prefixed, so a model reading the patch can
// refer back to exact line numbers without re-deriving them. File headers
// and preamble lines pass through unchanged. Hunk headers carry no label
// and no indent; they are re-rendered from their parsed starts and counts,
// so a trailing section heading after the closing "@@" is not kept and a
// count of 1 is written without ",1". A deletion is
// labeled "L<old>", an addition "    R<new>" (right-aligned under a
// context line's two labels), and context carries both: "L<old> R<new>".
func AddLineNumbersToPatch(patch string) string {
	preamble, hunks := splitHunks(patch)

	var sb strings.Builder
	sb.WriteString(strings.Join(preamble, "\n"))

	for _, h := range hunks {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(renderHunkHeader(h.oldStart, h.oldCount, h.newStart, h.newCount))

		for _, l := range h.lines {
			sb.WriteString("\n")
			switch l.kind {
			case kindNoNewline:
				sb.WriteString(l.raw)
			case kindDelete:
				sb.WriteString("L" + strconv.Itoa(l.oldLine) + "\t" + l.raw)
			case kindAdd:
				sb.WriteString("    R" + strconv.Itoa(l.newLine) + "\t" + l.raw)
			case kindContext:
				sb.WriteString("L" + strconv.Itoa(l.oldLine) + " R" + strconv.Itoa(l.newLine) + "\t" + l.raw)
			}
		}
	}

	return sb.String()
}
