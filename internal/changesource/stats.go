package changesource

import (
	"fmt"

	"github.com/wispbit/wisp-review/internal/review"
)

// DiffStats summarises a Result's file list at a glance, for a CLI
// summary line or a skip-review-if-empty check.
type DiffStats struct {
	TotalFiles    int
	FilesAdded    int
	FilesModified int
	FilesDeleted  int
	FilesRenamed  int
	LinesAdded    int
	LinesDeleted  int
}

// computeDiffStats aggregates a FileChange list into a DiffStats summary.
func computeDiffStats(files []review.FileChange) DiffStats {
	s := DiffStats{TotalFiles: len(files)}
	for _, f := range files {
		switch f.Status {
		case review.StatusAdded:
			s.FilesAdded++
		case review.StatusModified, review.StatusChanged:
			s.FilesModified++
		case review.StatusRemoved:
			s.FilesDeleted++
		case review.StatusRenamed, review.StatusCopied:
			s.FilesRenamed++
		}
		s.LinesAdded += f.Additions
		s.LinesDeleted += f.Deletions
	}
	return s
}

// Summary renders a short human-readable line, e.g. "7 files, +120/-34
// lines".
func (s DiffStats) Summary() string {
	return fmt.Sprintf("%d files, +%d/-%d lines", s.TotalFiles, s.LinesAdded, s.LinesDeleted)
}
