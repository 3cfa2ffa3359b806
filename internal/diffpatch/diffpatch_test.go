package diffpatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const samplePatch = `diff --git a/foo.go b/foo.go
--- a/foo.go
+++ b/foo.go
@@ -1,5 +1,6 @@
 line1
-old1
-old2
+new1
+new2
+new3
 line6`

func TestParsePatch_Empty(t *testing.T) {
	require.Empty(t, ParsePatch(""))
}

func TestParsePatch_ProducesOrderedSequence(t *testing.T) {
	lines := ParsePatch(samplePatch)
	require.Len(t, lines, 7)
	require.Equal(t, ChangedLine{OldLine: 1, NewLine: 1, Content: "line1"}, lines[0])
	require.Equal(t, ChangedLine{OldLine: 2, NewLine: 0, Content: "old1"}, lines[1])
	require.Equal(t, ChangedLine{OldLine: 3, NewLine: 0, Content: "old2"}, lines[2])
	require.Equal(t, ChangedLine{OldLine: 0, NewLine: 2, Content: "new1"}, lines[3])
	require.Equal(t, ChangedLine{OldLine: 0, NewLine: 3, Content: "new2"}, lines[4])
	require.Equal(t, ChangedLine{OldLine: 0, NewLine: 4, Content: "new3"}, lines[5])
}

func TestIsLineReferenceValidForPatch_AdditionIsValid(t *testing.T) {
	require.True(t, IsLineReferenceValidForPatch(LineRef{Start: 2, End: 4, Side: SideRight}, samplePatch))
}

func TestIsLineReferenceValidForPatch_ContextOnlyIsInvalid(t *testing.T) {
	require.False(t, IsLineReferenceValidForPatch(LineRef{Start: 1, End: 1, Side: SideRight}, samplePatch))
}

func TestIsLineReferenceValidForPatch_DeletionOnLeftIsValid(t *testing.T) {
	require.True(t, IsLineReferenceValidForPatch(LineRef{Start: 2, End: 3, Side: SideLeft}, samplePatch))
}

func TestIsLineReferenceValidForPatch_OutOfRangeIsInvalid(t *testing.T) {
	require.False(t, IsLineReferenceValidForPatch(LineRef{Start: 100, End: 100, Side: SideRight}, samplePatch))
}

func TestIsLineReferenceValidForPatch_CrossHunkReferenceIsInvalid(t *testing.T) {
	twoHunks := `@@ -1,3 +1,3 @@
 a
-b
+c
@@ -10,3 +10,3 @@
 x
-y
+z`
	// Spans from the tail of hunk 1 into the head of hunk 2 on the new side.
	require.False(t, IsLineReferenceValidForPatch(LineRef{Start: 2, End: 11, Side: SideRight}, twoHunks))
}

func TestIsLineReferenceValidForPatch_InvalidRangeRejected(t *testing.T) {
	require.False(t, IsLineReferenceValidForPatch(LineRef{Start: 5, End: 2, Side: SideRight}, samplePatch))
}

func TestFilterDiff_AdditionsOnly(t *testing.T) {
	input := `@@ -1,5 +1,5 @@
 line1
-old1
-old2
+new1
+new2
 line6`

	got := FilterDiff(input, FilterAdditions)
	want := `@@ -1,2 +1,4 @@
 line1
+new1
+new2
 line6`

	require.Equal(t, want, got)
}

func TestFilterDiff_DeletionsOnly(t *testing.T) {
	input := `@@ -1,5 +1,5 @@
 line1
-old1
-old2
+new1
+new2
 line6`

	got := FilterDiff(input, FilterDeletions)
	want := `@@ -1,4 +1,2 @@
 line1
-old1
-old2
 line6`

	require.Equal(t, want, got)
}

func TestFilterDiff_DropsContextOnlyHunk(t *testing.T) {
	input := `@@ -1,3 +1,3 @@
 a
 b
 c`

	require.Empty(t, FilterDiff(input, FilterAdditions))
}

func TestFilterDiff_Idempotent(t *testing.T) {
	once := FilterDiff(samplePatch, FilterAdditions)
	twice := FilterDiff(once, FilterAdditions)
	require.Equal(t, once, twice)
}

func TestAddLineNumbersToPatch_LabelsBothSides(t *testing.T) {
	got := AddLineNumbersToPatch(samplePatch)
	require.Contains(t, got, "L1 R1\t line1")
	require.Contains(t, got, "L2\t-old1")
	require.Contains(t, got, "    R2\t+new1")
}

func TestAddLineNumbersToPatch_Pure(t *testing.T) {
	first := AddLineNumbersToPatch(samplePatch)
	second := AddLineNumbersToPatch(samplePatch)
	require.Equal(t, first, second)
}

func TestExtractDiffHunk_ZeroContextRoundTrip(t *testing.T) {
	got := ExtractDiffHunk(samplePatch, 2, 2, SideRight, 0)
	require.Contains(t, got, "new1")
	require.NotContains(t, got, "line1")
}

func TestExtractDiffHunk_NoMatchingHunkReturnsEmpty(t *testing.T) {
	require.Empty(t, ExtractDiffHunk(samplePatch, 500, 500, SideRight, 3))
}

func TestExtractDiffHunk_WidensWithContext(t *testing.T) {
	got := ExtractDiffHunk(samplePatch, 2, 2, SideRight, 3)
	require.Contains(t, got, "line1")
	require.Contains(t, got, "line6")
}

func TestLineRange_ContainsRejectsZeroWidth(t *testing.T) {
	r := LineRange{Start: 1, End: 10}
	require.False(t, r.Contains(LineRange{Start: 5, End: 4}))
}

func TestHunkRanges_MatchesHeader(t *testing.T) {
	oldRanges, newRanges := HunkRanges(samplePatch)
	require.Equal(t, []LineRange{{Start: 1, End: 5}}, oldRanges)
	require.Equal(t, []LineRange{{Start: 1, End: 6}}, newRanges)
}

// Property: every line ParsePatch emits has at least one of OldLine/NewLine
// set.
func TestParsePatch_LineIdentityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")

		oldCount := 0
		newCount := 0

		var lines []string
		for i := 0; i < n; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "kind") {
			case 0:
				lines = append(lines, " ctx")
				oldCount++
				newCount++
			case 1:
				lines = append(lines, "-del")
				oldCount++
			case 2:
				lines = append(lines, "+add")
				newCount++
			}
		}

		header := "@@ -1," + itoa(oldCount) + " +1," + itoa(newCount) + " @@"
		patch := header + "\n" + strings.Join(lines, "\n")

		for _, cl := range ParsePatch(patch) {
			if cl.OldLine == 0 && cl.NewLine == 0 {
				t.Fatalf("changed line with neither side set: %+v", cl)
			}
		}
	})
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
