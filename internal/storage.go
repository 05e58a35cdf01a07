package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// SQLiteSnapshotter mirrors session store writes into a SQLite database.
// Session rows are upserted and message rows replaced on every event.
type SQLiteSnapshotter struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteSnapshotter wraps an open database. The schema must exist.
func NewSQLiteSnapshotter(db *sql.DB) *SQLiteSnapshotter {
	return &SQLiteSnapshotter{db: db}
}

// OpenSQLiteSnapshotter opens the snapshot database at path
func OpenSQLiteSnapshotter(path string) (*SQLiteSnapshotter, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &SnapshotError{Sink: "sqlite", Op: "open", Err: err}
	}
	return NewSQLiteSnapshotter(db), nil
}

// Close closes the underlying database
func (s *SQLiteSnapshotter) Close() error {
	return s.db.Close()
}

// Attach subscribes the snapshotter to store. Write failures are logged.
func (s *SQLiteSnapshotter) Attach(store *SessionStore) {
	store.Subscribe(func(ev SessionEvent) {
		if err := s.Snapshot(ev); err != nil {
			LogWarn("Failed to snapshot session %s: %v", ev.Session.ID, err)
		}
	})
}

// Snapshot writes one session and its messages in a single transaction
func (s *SQLiteSnapshotter) Snapshot(ev SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &SnapshotError{Sink: "sqlite", Op: "write", Err: err}
	}
	if err := writeSession(tx, ev); err != nil {
		_ = tx.Rollback()
		return &SnapshotError{Sink: "sqlite", Op: "write", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &SnapshotError{Sink: "sqlite", Op: "write", Err: err}
	}
	return nil
}

func writeSession(tx *sql.Tx, ev SessionEvent) error {
	meta := ev.Session
	_, err := tx.Exec(`INSERT INTO sessions (id, title, last_message, timestamp, unread_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			last_message = excluded.last_message,
			timestamp = excluded.timestamp,
			unread_count = excluded.unread_count`,
		string(meta.ID), meta.Title, meta.LastMessage, meta.Timestamp, meta.UnreadCount, meta.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", string(meta.ID)); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO messages (session_id, position, id, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range ev.Messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message %s: %w", m.ID, err)
		}
		if _, err := stmt.Exec(string(meta.ID), i, m.ID, string(data)); err != nil {
			return fmt.Errorf("failed to insert message %s: %w", m.ID, err)
		}
	}
	return nil
}

// LoadSessions loads all session rows, oldest first
func (s *SQLiteSnapshotter) LoadSessions() ([]ChatSession, error) {
	rows, err := s.db.Query("SELECT id, title, last_message, timestamp, unread_count, created_at FROM sessions ORDER BY created_at, id")
	if err != nil {
		return nil, &SnapshotError{Sink: "sqlite", Op: "read", Err: err}
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var (
			cs      ChatSession
			id      string
			last    sql.NullString
			ts      sql.NullString
			created int64
		)
		if err := rows.Scan(&id, &cs.Title, &last, &ts, &cs.UnreadCount, &created); err != nil {
			return nil, &SnapshotError{Sink: "sqlite", Op: "read", Err: err}
		}
		cs.ID = SessionID(id)
		cs.LastMessage = last.String
		cs.Timestamp = ts.String
		cs.CreatedAt = time.Unix(0, created).UTC()
		sessions = append(sessions, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, &SnapshotError{Sink: "sqlite", Op: "read", Err: err}
	}
	return sessions, nil
}

// LoadMessages loads all messages grouped by session id
func (s *SQLiteSnapshotter) LoadMessages() (map[SessionID][]Message, error) {
	rows, err := QueryMessageRows(s.db, "%")
	if err != nil {
		return nil, &SnapshotError{Sink: "sqlite", Op: "read", Err: err}
	}

	out := make(map[SessionID][]Message)
	for _, row := range rows {
		var m Message
		if err := json.Unmarshal([]byte(row.Value), &m); err != nil {
			LogWarn("Skipping unreadable message %s in session %s: %v", row.ID, row.SessionID, err)
			continue
		}
		sid := SessionID(row.SessionID)
		out[sid] = append(out[sid], m)
	}
	return out, nil
}

// LoadTranscripts returns every stored session with its messages
func (s *SQLiteSnapshotter) LoadTranscripts() ([]*Transcript, error) {
	sessions, err := s.LoadSessions()
	if err != nil {
		return nil, err
	}
	messages, err := s.LoadMessages()
	if err != nil {
		return nil, err
	}

	out := make([]*Transcript, 0, len(sessions))
	for _, cs := range sessions {
		out = append(out, &Transcript{Session: cs, Messages: messages[cs.ID]})
	}
	return out, nil
}

// Restore imports every stored session into store and returns the count
func (s *SQLiteSnapshotter) Restore(store *SessionStore) (int, error) {
	transcripts, err := s.LoadTranscripts()
	if err != nil {
		return 0, err
	}
	for _, t := range transcripts {
		store.Import(t.Session, t.Messages)
	}
	LogDebug("Restored %d session(s) from sqlite snapshot", len(transcripts))
	return len(transcripts), nil
}
