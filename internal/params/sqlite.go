package params

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	schema = `CREATE TABLE IF NOT EXISTS params (
	idx   INTEGER PRIMARY KEY,
	name  TEXT    NOT NULL,
	value INTEGER NOT NULL
)`
)

// ErrCorrupt is returned by a Store whose persisted table does not match
// the current layout.
var ErrCorrupt = errors.New("params: persisted table corrupt")

// SQLiteStore persists the parameter table in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the parameter database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("creating params table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads the persisted table.
func (s *SQLiteStore) Load(ctx context.Context) (Values, bool, error) {
	var vals Values

	rows, err := s.db.QueryContext(ctx, `SELECT idx, value FROM params ORDER BY idx`)
	if err != nil {
		return vals, false, fmt.Errorf("querying params: %w", err)
	}
	defer rows.Close()

	seen := 0
	for rows.Next() {
		var idx int
		var value int64
		if err := rows.Scan(&idx, &value); err != nil {
			return vals, false, fmt.Errorf("scanning param: %w", err)
		}
		if !Index(idx).Valid() {
			return vals, true, fmt.Errorf("%w: index %d", ErrCorrupt, idx)
		}
		vals[idx] = value
		seen++
	}
	if err := rows.Err(); err != nil {
		return vals, false, fmt.Errorf("iterating params: %w", err)
	}

	switch {
	case seen == 0:
		return vals, false, nil
	case seen != Count:
		return vals, true, fmt.Errorf("%w: %d of %d rows", ErrCorrupt, seen, Count)
	}
	return vals, true, nil
}

// Save replaces the persisted table in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, vals Values) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM params`); err != nil {
		return fmt.Errorf("clearing params: %w", err)
	}
	for i, v := range vals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO params (idx, name, value) VALUES (?, ?, ?)`, i, names[i], v); err != nil {
			return fmt.Errorf("writing %s: %w", names[i], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing params: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}
