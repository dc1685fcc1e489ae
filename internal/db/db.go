package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string

	// fts is false when the SQLite build has no FTS5; search falls back to LIKE.
	fts bool
}

const schema = `
CREATE TABLE IF NOT EXISTS guides (
	uuid        TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	slug        TEXT NOT NULL DEFAULT '',
	version     TEXT NOT NULL DEFAULT '',
	start_key   TEXT NOT NULL DEFAULT '',
	imported_at INTEGER NOT NULL,
	raw         BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS keys (
	guide_uuid     TEXT NOT NULL REFERENCES guides(uuid) ON DELETE CASCADE,
	uuid           TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	slug           TEXT NOT NULL DEFAULT '',
	children_count INTEGER NOT NULL DEFAULT 0,
	filter_count   INTEGER NOT NULL DEFAULT 0,
	is_start       INTEGER NOT NULL DEFAULT 0,
	mode           TEXT NOT NULL DEFAULT 'fluid',
	PRIMARY KEY (guide_uuid, uuid)
);
CREATE INDEX IF NOT EXISTS keys_slug ON keys(slug);
CREATE INDEX IF NOT EXISTS keys_uuid ON keys(uuid);
`

const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS keys_fts USING fts5(
	name, slug, guide_uuid UNINDEXED, key_uuid UNINDEXED
);
`

// OpenDB opens a SQLite database with WAL mode and foreign keys enabled and
// creates the guide schema if needed.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// :memory: databases are per connection
	conn.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	d := &DB{conn: conn, Path: path}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate() error {
	if _, err := d.conn.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	_, err := d.conn.Exec(ftsSchema)
	d.fts = err == nil
	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// HasFTS reports whether full-text key search is available.
func (d *DB) HasFTS() bool {
	return d.fts
}
