package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/petpad/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path         string    `json:"path"`
	Checksum     string    `json:"checksum"`
	SnippetCount int       `json:"snippet_count"`
	ParseError   string    `json:"parse_error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IndexedSnippet is a snippet with its location in the vault.
type IndexedSnippet struct {
	Path     string         `json:"path"`
	Position int            `json:"position"`
	Snippet  models.Snippet `json:"snippet"`
}

// TagCount is a tag and the number of snippets carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// UpsertDocument replaces a document row and all of its snippets in one
// transaction.
func (db *DB) UpsertDocument(d DocumentRow, snippets []models.Snippet) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO documents (path, checksum, snippet_count, parse_error, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum      = excluded.checksum,
			snippet_count = excluded.snippet_count,
			parse_error   = excluded.parse_error,
			updated_at    = excluded.updated_at
	`, d.Path, d.Checksum, len(snippets), d.ParseError, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM snippets WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear snippets: %w", err)
	}
	if len(snippets) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO snippets (path, position, description, command, tags, output)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare snippet insert: %w", err)
		}
		defer stmt.Close()
		for i, s := range snippets {
			tags := s.Tags
			if tags == nil {
				tags = []string{}
			}
			tagsJSON, _ := json.Marshal(tags)
			if _, err := stmt.Exec(d.Path, i, s.Description, s.Command, string(tagsJSON), s.Output); err != nil {
				return fmt.Errorf("index: insert snippet: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document and its snippets.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM snippets WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete snippets: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or "" if it is
// not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums maps every indexed document path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ListDocuments returns every indexed document ordered by path.
func (db *DB) ListDocuments() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, checksum, snippet_count, parse_error, updated_at
		FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()
	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.Path, &d.Checksum, &d.SnippetCount, &d.ParseError, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AllSnippets returns every indexed snippet ordered by path and position.
func (db *DB) AllSnippets() ([]IndexedSnippet, error) {
	rows, err := db.conn.Query(`
		SELECT path, position, description, command, tags, output
		FROM snippets ORDER BY path, position`)
	if err != nil {
		return nil, fmt.Errorf("index: all snippets: %w", err)
	}
	defer rows.Close()
	var out []IndexedSnippet
	for rows.Next() {
		var (
			is       IndexedSnippet
			tagsJSON string
		)
		if err := rows.Scan(&is.Path, &is.Position, &is.Snippet.Description, &is.Snippet.Command, &tagsJSON, &is.Snippet.Output); err != nil {
			return nil, err
		}
		is.Snippet.Tags = []string{}
		_ = json.Unmarshal([]byte(tagsJSON), &is.Snippet.Tags)
		out = append(out, is)
	}
	return out, rows.Err()
}

// Tags counts snippets per tag across the vault, most used first.
func (db *DB) Tags() ([]TagCount, error) {
	rows, err := db.conn.Query(`
		SELECT j.value, COUNT(*)
		FROM snippets, json_each(snippets.tags) AS j
		GROUP BY j.value
		ORDER BY COUNT(*) DESC, j.value`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()
	var out []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
