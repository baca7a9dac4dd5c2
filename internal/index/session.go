package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/starford/petpad/internal/models"
)

const selectedKey = "selected"

// SaveSession replaces the persisted editor session.
func (db *DB) SaveSession(s models.SessionState) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM session_documents`); err != nil {
		return fmt.Errorf("index: clear session: %w", err)
	}
	for i, d := range s.Documents {
		if _, err := tx.Exec(`INSERT INTO session_documents (position, name, content, dirty) VALUES (?, ?, ?, ?)`,
			i, d.Name, d.Content, d.Dirty); err != nil {
			return fmt.Errorf("index: save session document: %w", err)
		}
	}
	if _, err := tx.Exec(`
		INSERT INTO session_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		selectedKey, strconv.Itoa(s.Selected)); err != nil {
		return fmt.Errorf("index: save session meta: %w", err)
	}
	return tx.Commit()
}

// LoadSession returns the persisted session, or nil if none was saved.
func (db *DB) LoadSession() (*models.SessionState, error) {
	var selected string
	err := db.conn.QueryRow(`SELECT value FROM session_meta WHERE key = ?`, selectedKey).Scan(&selected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: load session meta: %w", err)
	}

	rows, err := db.conn.Query(`SELECT name, content, dirty FROM session_documents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("index: load session: %w", err)
	}
	defer rows.Close()

	state := &models.SessionState{Documents: []models.DocumentState{}}
	state.Selected, _ = strconv.Atoi(selected)
	for rows.Next() {
		var d models.DocumentState
		if err := rows.Scan(&d.Name, &d.Content, &d.Dirty); err != nil {
			return nil, err
		}
		state.Documents = append(state.Documents, d)
	}
	return state, rows.Err()
}
