// Package wisperr defines the error taxonomy shared across the review
// pipeline: InputError, NotFound, ExternalToolError, ProviderError, and
// Aborted. Call sites wrap a sentinel with fmt.Errorf("...: %w", err) and
// callers classify with errors.Is.
package wisperr

import "errors"

var (
	// ErrInput marks a rejected, ill-formed request: a bad line
	// reference, an out-of-workspace path, a missing tool argument, an
	// unknown rule id passed to complaint.
	ErrInput = errors.New("input error")

	// ErrNotFound marks a missing file or directory for a tool call.
	ErrNotFound = errors.New("not found")

	// ErrExternalTool marks a failure in a child process the tool
	// executor depends on: missing binary, non-zero exit with stderr,
	// or a timeout.
	ErrExternalTool = errors.New("external tool error")

	// ErrProvider marks an LLM endpoint failure: 4xx/5xx, a malformed
	// completion, or invalid tool-call JSON.
	ErrProvider = errors.New("provider error")

	// ErrAborted marks cancellation of a task already in flight.
	ErrAborted = errors.New("aborted")
)
