package queue

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"replayrig/internal/config"
	"replayrig/internal/queuefile"
	"replayrig/internal/services"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Entry is one pending replay awaiting playback.
type Entry struct {
	ID       int64
	Path     string
	Position int
	AddedAt  time.Time
}

// Store manages pending queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the pending queue database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// migrate brings the schema up to date. Embedded migration files run in
// lexical filename order; the filename sans extension is recorded in
// schema_migrations once its statements commit, so each file runs at most
// once per database.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}

	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	for _, name := range names {
		version := strings.TrimSuffix(filepath.Base(name), ".sql")
		if applied[version] {
			continue
		}
		ddl, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := s.runMigration(ctx, version, string(ddl)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) runMigration(ctx context.Context, version, ddl string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("apply migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add appends recognized replay files to the end of the pending queue,
// preserving their argument order. Files without a replay extension are
// skipped; when nothing survives the filter a validation error is returned.
func (s *Store) Add(ctx context.Context, paths ...string) ([]*Entry, error) {
	playable := make([]string, 0, len(paths))
	for _, path := range paths {
		if queuefile.IsReplayFile(path) {
			playable = append(playable, path)
		}
	}
	if len(playable) == 0 {
		return nil, services.Wrap(services.ErrValidation, "queue", "add", "no playable replay files given", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM pending_replays`).Scan(&next); err != nil {
		return nil, fmt.Errorf("read max position: %w", err)
	}
	position := int(next.Int64)
	if next.Valid {
		position++
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	entries := make([]*Entry, 0, len(playable))
	for _, path := range playable {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO pending_replays (path, position, added_at) VALUES (?, ?, ?)`,
			path, position, timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("insert pending replay: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		entries = append(entries, &Entry{ID: id, Path: path, Position: position})
		position++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add: %w", err)
	}
	return entries, nil
}

// List returns pending entries in position order.
func (s *Store) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, position, added_at FROM pending_replays ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list pending replays: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Paths returns the pending file paths in position order.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	return paths, nil
}

// Remove deletes an entry by identifier and compacts positions so the
// remaining entries stay contiguous.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin remove tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var position int
	err = tx.QueryRowContext(ctx, `SELECT position FROM pending_replays WHERE id = ?`, id).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_replays WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE pending_replays SET position = position - 1 WHERE position > ?`, position); err != nil {
		return false, fmt.Errorf("compact positions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit remove: %w", err)
	}
	return true, nil
}

// Clear removes all pending entries.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_replays`)
	if err != nil {
		return 0, fmt.Errorf("clear pending queue: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of pending entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM pending_replays`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending replays: %w", err)
	}
	return count, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry    Entry
		addedRaw string
	)
	if err := scanner.Scan(&entry.ID, &entry.Path, &entry.Position, &addedRaw); err != nil {
		return nil, err
	}
	if added, err := time.Parse(time.RFC3339Nano, addedRaw); err == nil {
		entry.AddedAt = added
	}
	return &entry, nil
}
