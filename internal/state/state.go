package state

import (
	"context"
	"path/filepath"
	"strings"
)

// Record is the read position of one source file. Inode identifies the file
// ("<ino>:<dev>") so a rotated file is read from the start.
type Record struct {
	Inode  string `json:"inode"`
	Offset int64  `json:"offset"`
}

// Offsets maps absolute source paths to their records.
type Offsets map[string]Record

// Store loads and saves offsets.
type Store interface {
	Load(ctx context.Context) (Offsets, error)
	Save(ctx context.Context, offsets Offsets) error
	Close() error
}

// Open returns the store for path: SQLite for .db, .sqlite and .sqlite3 files,
// JSON otherwise.
func Open(ctx context.Context, path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		db, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return &JSONStore{Path: path}, nil
}
