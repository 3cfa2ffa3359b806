package llmclient

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDelay_DoublesAndCaps(t *testing.T) {
	require.Equal(t, backoffBase, backoffDelay(1))
	require.Equal(t, 2*backoffBase, backoffDelay(2))
	require.Equal(t, 4*backoffBase, backoffDelay(3))

	// Far enough out that doubling would exceed the cap.
	require.Equal(t, backoffCap, backoffDelay(10))
}

func TestBackoffDelay_NeverExceedsCap(t *testing.T) {
	for attempt := 1; attempt <= 20; attempt++ {
		require.LessOrEqual(t, backoffDelay(attempt), backoffCap)
	}
}

func TestExtractCost_MissingFieldIsZero(t *testing.T) {
	require.Equal(t, 0.0, extractCost(`{"choices":[]}`))
	require.Equal(t, 0.0, extractCost(""))
}

func TestExtractCost_ParsesUsageCost(t *testing.T) {
	require.Equal(t, 0.0042, extractCost(`{"usage":{"cost":0.0042}}`))
}

func TestDescribeProviderError_FallsBackToPlainError(t *testing.T) {
	err := errors.New("dial tcp: connection refused")
	require.Equal(t, "dial tcp: connection refused", describeProviderError(err))
}

func TestToolChoice_ModesAreDistinctStrings(t *testing.T) {
	modes := []Mode{ToolChoiceAuto, ToolChoiceNone, ToolChoiceRequired, ToolChoiceFunction}
	seen := map[Mode]struct{}{}
	for _, m := range modes {
		_, dup := seen[m]
		require.False(t, dup)
		seen[m] = struct{}{}
	}
}

// Sanity check that the retry loop's delay schedule stays within the
// spec's 1s-10s band regardless of how many attempts are configured.
func TestBackoffDelay_WithinSpecBand(t *testing.T) {
	for attempt := 1; attempt <= 5; attempt++ {
		d := backoffDelay(attempt)
		require.GreaterOrEqual(t, d, 1*time.Second)
		require.LessOrEqual(t, d, 10*time.Second)
	}
}
