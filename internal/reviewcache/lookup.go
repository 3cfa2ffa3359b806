package reviewcache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/wispbit/wisp-review/internal/diffpatch"
	"github.com/wispbit/wisp-review/internal/review"
	"github.com/wispbit/wisp-review/internal/ruleset"
)

// canonicalRuleIDs returns a deterministic, order-independent key for a
// set of rule ids, so a review run under the same rules always hits the
// same cache entry regardless of the order rules were loaded in.
func canonicalRuleIDs(rules []ruleset.Rule) string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "\x1f")
}

// VisitedFile pairs a file visited during a review with the freshness
// token it had at the time, for re-validating a cache hit.
type VisitedFile struct {
	Filename       string
	FreshnessToken string
}

// Lookup looks up a prior review of filename at fileSHA under the given
// rule set. A hit additionally requires that every file visited by that
// review still carries the freshness token it had at review time;
// otherwise a sibling file has changed underneath the cached verdict
// and the lookup reports a miss.
func (s *Store) Lookup(filename, fileSHA string, rules []ruleset.Rule, currentTokens func(filename string) (string, error)) (review.FileAnalysis, bool, error) {
	ruleIDs := canonicalRuleIDs(rules)

	ruleByID := make(map[string]ruleset.Rule, len(rules))
	for _, r := range rules {
		ruleByID[r.ID] = r
	}

	row := s.db.QueryRow(`
		SELECT id, cost
		FROM review_files
		WHERE filename = ? AND file_sha = ? AND rule_ids = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, filename, fileSHA, ruleIDs)

	var reviewFileID string
	var cost float64
	if err := row.Scan(&reviewFileID, &cost); err != nil {
		if err == sql.ErrNoRows {
			return review.FileAnalysis{}, false, nil
		}
		return review.FileAnalysis{}, false, fmt.Errorf("looking up cached review: %w", err)
	}

	visitedRows, err := s.db.Query(`
		SELECT filename, freshness_token
		FROM visited_files
		WHERE review_file_id = ?
	`, reviewFileID)
	if err != nil {
		return review.FileAnalysis{}, false, fmt.Errorf("loading visited files: %w", err)
	}
	defer visitedRows.Close()

	var visited []string
	for visitedRows.Next() {
		var fn, token string
		if err := visitedRows.Scan(&fn, &token); err != nil {
			return review.FileAnalysis{}, false, fmt.Errorf("scanning visited file: %w", err)
		}
		current, err := currentTokens(fn)
		if err != nil {
			return review.FileAnalysis{}, false, fmt.Errorf("computing freshness token for %s: %w", fn, err)
		}
		if current != token {
			// Something this review depended on has moved since it was
			// cached. Treat as a full miss rather than serve a stale verdict.
			return review.FileAnalysis{}, false, nil
		}
		visited = append(visited, fn)
	}
	if err := visitedRows.Err(); err != nil {
		return review.FileAnalysis{}, false, err
	}

	violationRows, err := s.db.Query(`
		SELECT rule_id, description, line_start, line_end, line_side, validation_reasoning
		FROM review_violations
		WHERE review_file_id = ?
	`, reviewFileID)
	if err != nil {
		return review.FileAnalysis{}, false, fmt.Errorf("loading cached violations: %w", err)
	}
	defer violationRows.Close()

	var violations []review.Violation
	for violationRows.Next() {
		var ruleID, description, side, reasoning string
		var start, end int
		if err := violationRows.Scan(&ruleID, &description, &start, &end, &side, &reasoning); err != nil {
			return review.FileAnalysis{}, false, fmt.Errorf("scanning cached violation: %w", err)
		}
		rule, ok := ruleByID[ruleID]
		if !ok {
			// A rule that produced this violation no longer exists in the
			// active rule set for this review; drop it rather than surface
			// a violation against a rule the caller can't see.
			continue
		}
		violations = append(violations, review.Violation{
			Description: description,
			Line: diffpatch.LineRef{
				Start: start,
				End:   end,
				Side:  diffpatch.Side(side),
			},
			Rule:                rule,
			ValidationReasoning: reasoning,
			IsCached:            true,
		})
	}
	if err := violationRows.Err(); err != nil {
		return review.FileAnalysis{}, false, err
	}

	sort.Strings(visited)
	return review.FileAnalysis{
		Violations:   violations,
		Rules:        rules,
		VisitedFiles: visited,
		Cost:         cost,
	}, true, nil
}

// WriteReview records a freshly computed review so future lookups for the
// same (filename, file SHA, rule set) can be served from cache. Cache
// entries are write-once: this always inserts a new review_files row
// rather than mutating a prior one, so a Lookup racing a WriteReview for
// the same key only ever observes a complete row.
func (s *Store) WriteReview(filename, fileSHA string, rules []ruleset.Rule, analysis review.FileAnalysis, visited []VisitedFile, createdAtUnix int64) error {
	return s.withBusyRetry(func() error {
		return s.writeReviewOnce(filename, fileSHA, rules, analysis, visited, createdAtUnix)
	})
}

func (s *Store) writeReviewOnce(filename, fileSHA string, rules []ruleset.Rule, analysis review.FileAnalysis, visited []VisitedFile, createdAtUnix int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning cache write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range rules {
		include, err := json.Marshal(r.Include)
		if err != nil {
			return fmt.Errorf("encoding rule include patterns: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO rules (id, directory, path, body, include)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				directory = excluded.directory,
				path      = excluded.path,
				body      = excluded.body,
				include   = excluded.include
		`, r.ID, r.Directory, r.Path, r.Body, string(include)); err != nil {
			return fmt.Errorf("upserting rule %s: %w", r.ID, err)
		}
	}

	reviewFileID := uuid.New().String()
	if _, err := tx.Exec(`
		INSERT INTO review_files (id, filename, file_sha, rule_ids, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, reviewFileID, filename, fileSHA, canonicalRuleIDs(rules), analysis.Cost, createdAtUnix); err != nil {
		return fmt.Errorf("inserting review_files row: %w", err)
	}

	for _, v := range analysis.Violations {
		if _, err := tx.Exec(`
			INSERT INTO review_violations
				(id, review_file_id, rule_id, description, line_start, line_end, line_side, validation_reasoning)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), reviewFileID, v.Rule.ID, v.Description, v.Line.Start, v.Line.End, string(v.Line.Side), v.ValidationReasoning); err != nil {
			return fmt.Errorf("inserting review_violations row: %w", err)
		}
	}

	for _, vf := range visited {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO visited_files (id, review_file_id, filename, freshness_token)
			VALUES (?, ?, ?, ?)
		`, uuid.New().String(), reviewFileID, vf.Filename, vf.FreshnessToken); err != nil {
			return fmt.Errorf("inserting visited_files row: %w", err)
		}
	}

	return tx.Commit()
}
