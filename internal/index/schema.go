// Package index keeps a SQLite index of the vault's snippet documents and
// the persisted editor session.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path          TEXT PRIMARY KEY,
	checksum      TEXT NOT NULL DEFAULT '',
	snippet_count INTEGER NOT NULL DEFAULT 0,
	parse_error   TEXT NOT NULL DEFAULT '',
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS snippets (
	path        TEXT NOT NULL,
	position    INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	command     TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	output      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (path, position)
);

CREATE TABLE IF NOT EXISTS session_documents (
	position INTEGER PRIMARY KEY,
	name     TEXT NOT NULL,
	content  TEXT NOT NULL DEFAULT '',
	dirty    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS session_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
