package reviewcache

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// isRetryableBusyError reports whether err represents a sqlite busy/locked
// condition that a caller should retry, rather than surface as a failure.
// Concurrent writers are expected here (multiple files under review at
// once each writing their verdict), unlike a single-writer durable store.
func isRetryableBusyError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
