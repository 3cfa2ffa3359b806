package toolsandbox

import (
	"fmt"
	"os"
	"strings"

	"github.com/wispbit/wisp-review/internal/wisperr"
)

// ReadFileArgs mirrors the read_file tool's argument shape.
type ReadFileArgs struct {
	TargetFile string
	Start      int
	End        int
	ReadEntire bool
}

// ReadFile returns the requested slice of a file's content. When
// ReadEntire is false, Start and End must satisfy 1 <= Start <= End, and
// the returned content replaces the lines outside that range with
// "[Lines a-b omitted]" placeholders.
func (s *Sandbox) ReadFile(args ReadFileArgs) (string, error) {
	path, err := s.resolve(args.TargetFile)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf(
				"%w: %s", wisperr.ErrNotFound, args.TargetFile,
			)
		}
		return "", fmt.Errorf("reading %s: %w", args.TargetFile, err)
	}

	content := string(raw)
	if args.ReadEntire {
		return content, nil
	}

	if args.Start < 1 || args.Start > args.End {
		return "", fmt.Errorf(
			"%w: invalid line range %d-%d for %s",
			wisperr.ErrInput, args.Start, args.End, args.TargetFile,
		)
	}

	lines := strings.Split(content, "\n")
	startIdx := args.Start - 1
	endIdx := args.End // exclusive, inclusive end-line maps to this index

	var out []string
	if startIdx > 0 {
		out = append(out, fmt.Sprintf("[Lines 1-%d omitted]", startIdx))
	} else if startIdx < 0 {
		startIdx = 0
	}

	if startIdx > len(lines) {
		startIdx = len(lines)
	}
	if endIdx > len(lines) {
		endIdx = len(lines)
	}
	if startIdx < endIdx {
		out = append(out, lines[startIdx:endIdx]...)
	}

	if endIdx < len(lines) {
		out = append(out, fmt.Sprintf("[Lines %d-%d omitted]", endIdx+1, len(lines)))
	}

	return strings.Join(out, "\n"), nil
}
