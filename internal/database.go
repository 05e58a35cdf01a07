package internal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	last_message TEXT,
	timestamp    TEXT,
	unread_count INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	session_id TEXT NOT NULL,
	position   INTEGER NOT NULL,
	id         TEXT NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (session_id, position)
);`

// OpenDatabase opens (or creates) a snapshot database and ensures its schema
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; sqlite serializes anyway and :memory: is per-connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the sessions and messages tables if missing
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(snapshotSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// MessageRow is one stored message keyed by session and position
type MessageRow struct {
	SessionID string
	Position  int
	ID        string
	Value     string
}

// QueryMessageRows returns the message rows of sessions whose id matches the
// LIKE pattern, ordered by session and position
func QueryMessageRows(db *sql.DB, pattern string) ([]MessageRow, error) {
	query := "SELECT session_id, position, id, value FROM messages WHERE session_id LIKE ? ORDER BY session_id, position"
	rows, err := db.Query(query, pattern)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var row MessageRow
		var value sql.NullString
		if err := rows.Scan(&row.SessionID, &row.Position, &row.ID, &value); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if value.Valid {
			row.Value = value.String
			out = append(out, row)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
