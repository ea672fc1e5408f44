// Package recent persists the editor's recently opened files: most recent
// first, without duplicates, capped at a configured length.
package recent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// ErrEmptyPath is returned by Record for an empty path.
var ErrEmptyPath = errors.New("recent: empty path")

const dbDirPermissions = 0o700

const (
	sqlNextSeq = `SELECT COALESCE(MAX(opened_seq), 0) + 1 FROM recent_files`

	sqlUpsert = `INSERT INTO recent_files (path_key, path, opened_seq, opened_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path_key) DO UPDATE SET
		 path = excluded.path,
		 opened_seq = excluded.opened_seq,
		 opened_at = excluded.opened_at`

	sqlPrune = `DELETE FROM recent_files WHERE path_key NOT IN
		(SELECT path_key FROM recent_files ORDER BY opened_seq DESC LIMIT ?)`

	sqlList = `SELECT path, opened_at FROM recent_files ORDER BY opened_seq DESC`

	sqlClear = `DELETE FROM recent_files`
)

// Entry is one recently opened file.
type Entry struct {
	Path     string
	OpenedAt time.Time
}

// Store is the sole writer to the recent-files database.
type Store struct {
	db         *sql.DB
	maxEntries int
	logger     *slog.Logger
	nowFunc    func() time.Time // injectable for deterministic tests
}

// Open opens (creating if needed) the SQLite database at dbPath and runs
// migrations. maxEntries caps the list length.
func Open(ctx context.Context, dbPath string, maxEntries int, logger *slog.Logger) (*Store, error) {
	if maxEntries < 1 {
		return nil, fmt.Errorf("recent: max entries must be positive, got %d", maxEntries)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), dbDirPermissions); err != nil {
		return nil, fmt.Errorf("recent: creating database directory: %w", err)
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("recent: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	logger.Debug("recent files store opened", slog.String("db_path", dbPath))

	return &Store{
		db:         db,
		maxEntries: maxEntries,
		logger:     logger,
		nowFunc:    time.Now,
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record moves path to the front of the list, inserting it if new, and
// drops entries beyond the cap.
func (s *Store) Record(ctx context.Context, path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recent: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, sqlNextSeq).Scan(&seq); err != nil {
		return fmt.Errorf("recent: reading sequence: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqlUpsert, pathKey(path), path, seq, s.nowFunc().UnixNano()); err != nil {
		return fmt.Errorf("recent: recording %s: %w", path, err)
	}

	res, err := tx.ExecContext(ctx, sqlPrune, s.maxEntries)
	if err != nil {
		return fmt.Errorf("recent: pruning list: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("recent: committing: %w", err)
	}

	if pruned, err := res.RowsAffected(); err == nil && pruned > 0 {
		s.logger.Debug("pruned recent files", slog.Int64("count", pruned))
	}

	return nil
}

// List returns the recorded files, most recent first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, sqlList)
	if err != nil {
		return nil, fmt.Errorf("recent: listing: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e        Entry
			openedAt int64
		)

		if err := rows.Scan(&e.Path, &openedAt); err != nil {
			return nil, fmt.Errorf("recent: scanning row: %w", err)
		}

		e.OpenedAt = time.Unix(0, openedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent: iterating rows: %w", err)
	}

	return entries, nil
}

// Paths returns just the recorded paths, most recent first.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}

	return paths, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqlClear); err != nil {
		return fmt.Errorf("recent: clearing: %w", err)
	}

	return nil
}

// pathKey is the duplicate-detection key: lexically cleaned and NFC
// normalized, so a path typed on macOS (NFD) matches the same path stored
// from a file dialog.
func pathKey(path string) string {
	return norm.NFC.String(filepath.Clean(path))
}
