package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// SnapshotSchema mirrors the sessions/messages tables of the snapshot database
const SnapshotSchema = `
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

// CreateInMemoryDB creates an in-memory SQLite database with the snapshot schema
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(SnapshotSchema); err != nil {
		db.Close()
		t.Fatalf("Failed to create snapshot schema: %v", err)
	}
	return db
}

// CreateTestDB creates a test database with two sessions and three messages
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	sessions := []struct {
		id, title, last, ts string
		created             int64
	}{
		{"s1", "Migration plan", "Here is the plan", "9:01 AM", 1000},
		{"s2", "QA run", "Checks queued", "9:05 AM", 2000},
	}
	for _, s := range sessions {
		InsertSessionRow(t, db, s.id, s.title, s.last, s.ts, s.created)
	}

	InsertMessageRow(t, db, "s1", 0, "m1", `{"id":"m1","role":"user","content":"Plan the migration","timestamp":"9:00 AM","seq":1}`)
	InsertMessageRow(t, db, "s1", 1, "m2", `{"id":"m2","role":"assistant","content":"Here is the plan","timestamp":"9:01 AM","seq":2}`)
	InsertMessageRow(t, db, "s2", 0, "m3", `{"id":"m3","role":"assistant","content":"Checks queued","timestamp":"9:05 AM","seq":3}`)
	return db
}

// InsertSessionRow inserts a session row
func InsertSessionRow(t *testing.T, db *sql.DB, id, title, last, ts string, createdAt int64) {
	t.Helper()
	insertSQL := "INSERT INTO sessions (id, title, last_message, timestamp, unread_count, created_at) VALUES (?, ?, ?, ?, 0, ?)"
	if _, err := db.Exec(insertSQL, id, title, last, ts, createdAt); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}
}

// InsertMessageRow inserts a raw message row
func InsertMessageRow(t *testing.T, db *sql.DB, sessionID string, position int, id, value string) {
	t.Helper()
	insertSQL := "INSERT INTO messages (session_id, position, id, value) VALUES (?, ?, ?, ?)"
	if _, err := db.Exec(insertSQL, sessionID, position, id, value); err != nil {
		t.Fatalf("Failed to insert message: %v", err)
	}
}
