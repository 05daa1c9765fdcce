package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultSQLiteFileName is the database filename under the data directory.
const DefaultSQLiteFileName = "nodes.db"

var sqliteMigrations = []string{
	`
CREATE TABLE IF NOT EXISTS nodes (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  version    INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_nodes_updated_at
ON nodes (updated_at DESC);
`,
}

// SQLite is a Store kept in a local SQLite file, one row per top-level key.
type SQLite struct {
	documentStore
	db *sql.DB
}

// OpenSQLite opens (or creates) the node database under dataDir and runs
// migrations.
func OpenSQLite(dataDir string, pollInterval time.Duration) (*SQLite, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create storage directory")
	}

	dbPath := filepath.Join(dataDir, DefaultSQLiteFileName)
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.ToSlash(dbPath))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite database")
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL;").Scan(&journalMode); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "enable WAL mode")
	}
	if !strings.EqualFold(journalMode, "wal") {
		_ = db.Close()
		return nil, errors.Errorf("enable WAL mode: unexpected journal mode %q", journalMode)
	}
	if err := applySQLiteMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{
		documentStore: documentStore{roots: &sqliteRoots{db: db}, interval: pollInterval},
		db:            db,
	}, nil
}

// Close closes the SQLite connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func applySQLiteMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return errors.Wrap(err, "read schema version")
	}
	if version >= len(sqliteMigrations) {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin migration transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := version; i < len(sqliteMigrations); i++ {
		if _, err := tx.Exec(sqliteMigrations[i]); err != nil {
			return errors.Wrapf(err, "apply migration %d", i+1)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d;", i+1)); err != nil {
			return errors.Wrapf(err, "set schema version %d", i+1)
		}
	}
	return errors.Wrap(tx.Commit(), "commit migration transaction")
}

type sqliteRoots struct {
	db *sql.DB
}

func (r *sqliteRoots) load(ctx context.Context, key string) ([]byte, int64, error) {
	var (
		value   string
		version int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT value, version FROM nodes WHERE key = ?`, key).Scan(&value, &version)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, errors.Wrapf(err, "load node %s", key)
	}
	return []byte(value), version, nil
}

func (r *sqliteRoots) save(ctx context.Context, key string, raw []byte, version int64) (bool, error) {
	now := time.Now().UnixMilli()

	var (
		res sql.Result
		err error
	)
	switch {
	case version == 0 && raw == nil:
		return true, nil
	case version == 0:
		res, err = r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO nodes (key, value, version, updated_at) VALUES (?, ?, 1, ?)`,
			key, string(raw), now)
	case raw == nil:
		res, err = r.db.ExecContext(ctx,
			`DELETE FROM nodes WHERE key = ? AND version = ?`,
			key, version)
	default:
		res, err = r.db.ExecContext(ctx,
			`UPDATE nodes SET value = ?, version = version + 1, updated_at = ? WHERE key = ? AND version = ?`,
			string(raw), now, key, version)
	}
	if err != nil {
		return false, errors.Wrapf(err, "save node %s", key)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "save node %s", key)
	}
	return n == 1, nil
}
