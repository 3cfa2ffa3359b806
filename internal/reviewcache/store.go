package reviewcache

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlite_migrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultMaxConns        = 10
	defaultConnMaxLifetime = 10 * time.Minute
)

// Store is a sqlite-backed Review Cache.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the Store's logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Open opens (creating if necessary) the sqlite database at dbPath and
// applies every pending migration.
func Open(dbPath string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxConns)
	db.SetMaxIdleConns(defaultMaxConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	s := &Store{db: db, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating cache database: %w", err)
	}

	return s, nil
}

// migrate applies every pending golang-migrate migration embedded in
// migrationFiles. A throwaway content cache doesn't warrant the
// backup-before-migrate ceremony a durable store would: losing it only
// costs re-review work, never data.
func (s *Store) migrate() error {
	driver, err := sqlite_migrate.WithInstance(s.db, &sqlite_migrate.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite migration driver: %w", err)
	}

	src, err := httpfs.New(http.FS(migrationFiles), "migrations")
	if err != nil {
		return fmt.Errorf("reading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("migrations", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("constructing migration runner: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats reports the current row counts of each collection, for the CLI's
// cache inspect subcommand.
type Stats struct {
	Rules        int
	ReviewFiles  int
	Violations   int
	VisitedFiles int
}

// Stats returns the current row counts of each collection.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	for table, dest := range map[string]*int{
		"rules":             &stats.Rules,
		"review_files":      &stats.ReviewFiles,
		"review_violations": &stats.Violations,
		"visited_files":     &stats.VisitedFiles,
	} {
		row := s.db.QueryRow("SELECT COUNT(*) FROM " + table) //nolint:gosec
		if err := row.Scan(dest); err != nil {
			return Stats{}, fmt.Errorf("counting %s: %w", table, err)
		}
	}
	return stats, nil
}

const (
	busyRetryAttempts = 5
	busyRetryBaseWait = 20 * time.Millisecond
)

// withBusyRetry retries fn on a sqlite busy/locked error with a short
// linear backoff, for writes that race other file reviews writing their
// own verdicts concurrently.
func (s *Store) withBusyRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		err = fn()
		if err == nil || !isRetryableBusyError(err) {
			return err
		}
		s.log.Warn("cache write hit sqlite busy, retrying", "attempt", attempt)
		time.Sleep(busyRetryBaseWait * time.Duration(attempt+1))
	}
	return err
}

// Purge drops every row from every collection.
func (s *Store) Purge() error {
	for _, table := range []string{"visited_files", "review_violations", "review_files", "rules"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil { //nolint:gosec
			return fmt.Errorf("purging %s: %w", table, err)
		}
	}
	return nil
}
