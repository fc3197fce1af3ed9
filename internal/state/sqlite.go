package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS offsets (
	path TEXT PRIMARY KEY,
	inode TEXT NOT NULL,
	read_offset INTEGER NOT NULL,
	updated_at TEXT NOT NULL
)`,
}

// SQLiteStore keeps offsets in a SQLite database.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations, tracked with PRAGMA user_version.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state database path cannot be empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory %q: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state database %q: %w", path, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging state database: %w", err)
	}
	if err := migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &SQLiteStore{conn: conn}, nil
}

func migrate(ctx context.Context, conn *sql.DB) error {
	var version int
	if err := conn.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		if _, err := conn.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("applying state migration %d: %w", i+1, err)
		}
		if _, err := conn.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("recording schema version %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Offsets, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT path, inode, read_offset FROM offsets`)
	if err != nil {
		return nil, fmt.Errorf("querying offsets: %w", err)
	}
	defer rows.Close()

	offsets := Offsets{}
	for rows.Next() {
		var path string
		var rec Record
		if err := rows.Scan(&path, &rec.Inode, &rec.Offset); err != nil {
			return nil, fmt.Errorf("scanning offset: %w", err)
		}
		offsets[path] = rec
	}
	return offsets, rows.Err()
}

// Save upserts every record in offsets. Rows for paths not in offsets are kept.
func (s *SQLiteStore) Save(ctx context.Context, offsets Offsets) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning state transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for path, rec := range offsets {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO offsets (path, inode, read_offset, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET inode = excluded.inode, read_offset = excluded.read_offset, updated_at = excluded.updated_at`,
			path, rec.Inode, rec.Offset, now); err != nil {
			return fmt.Errorf("saving offset for %s: %w", path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
