package internal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iksnae/workspace-chat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteSnapshotter_LoadTranscripts(t *testing.T) {
	db := testutil.CreateTestDB(t)
	defer db.Close()

	snap := NewSQLiteSnapshotter(db)
	transcripts, err := snap.LoadTranscripts()
	require.NoError(t, err)
	require.Len(t, transcripts, 2)

	first := transcripts[0]
	assert.Equal(t, SessionID("s1"), first.Session.ID)
	assert.Equal(t, "Migration plan", first.Session.Title)
	require.Len(t, first.Messages, 2)
	assert.Equal(t, RoleUser, first.Messages[0].Role)
	assert.Equal(t, "Here is the plan", first.Messages[1].Content)
	assert.Len(t, transcripts[1].Messages, 1)
}

func TestSQLiteSnapshotter_SkipsBadRows(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)
	defer db.Close()
	testutil.InsertSessionRow(t, db, "s1", "Broken", "", "", 1)
	testutil.InsertMessageRow(t, db, "s1", 0, "bad", "not valid json")
	testutil.InsertMessageRow(t, db, "s1", 1, "good", `{"id":"good","role":"user","content":"ok"}`)

	transcripts, err := NewSQLiteSnapshotter(db).LoadTranscripts()
	require.NoError(t, err)
	require.Len(t, transcripts, 1)
	require.Len(t, transcripts[0].Messages, 1)
	assert.Equal(t, "good", transcripts[0].Messages[0].ID)
}

func TestSQLiteSnapshotter_RoundTrip(t *testing.T) {
	path := filepath.Join(testutil.CreateTempDir(t), "snap.db")
	snap, err := OpenSQLiteSnapshotter(path)
	require.NoError(t, err)

	store := newTestStore()
	snap.Attach(store)

	sid := store.CreateSession(CreateSessionRequest{Title: "Persisted", Seed: []Message{
		{Role: RoleUser, Content: "hello"},
	}})
	store.AppendMessages(sid, Message{
		Role:      RoleAssistant,
		Content:   "hi",
		ToolCalls: []ToolCall{{ID: "t1", ToolName: "site_crawler", Status: ToolCallSuccess}},
	})
	require.NoError(t, store.UpdateMessage(sid, store.Messages(sid)[1].ID, func(m *Message) error {
		m.Content = "hi there"
		return nil
	}))
	require.NoError(t, snap.Close())

	reopened, err := OpenSQLiteSnapshotter(path)
	require.NoError(t, err)
	defer reopened.Close()

	restored := NewSessionStore(nil)
	n, err := reopened.Restore(restored)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	session, ok := restored.Session(sid)
	require.True(t, ok)
	assert.Equal(t, "Persisted", session.Title)
	assert.Equal(t, "hi", session.LastMessage)

	msgs := restored.Messages(sid)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi there", msgs[1].Content)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "site_crawler", msgs[1].ToolCalls[0].ToolName)
	assert.Equal(t, store.Messages(sid)[1].Seq, msgs[1].Seq)
}

func TestSQLiteSnapshotter_CreatedAtSurvives(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)
	defer db.Close()
	snap := NewSQLiteSnapshotter(db)

	created := time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC)
	require.NoError(t, snap.Snapshot(SessionEvent{Session: ChatSession{ID: "x", Title: "t", CreatedAt: created}}))
	require.NoError(t, snap.Snapshot(SessionEvent{Session: ChatSession{ID: "x", Title: "renamed", CreatedAt: created.Add(time.Hour)}}))

	sessions, err := snap.LoadSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "renamed", sessions[0].Title)
	assert.True(t, created.Equal(sessions[0].CreatedAt), "created_at is not overwritten")
}

func TestOpenSQLiteSnapshotter_Error(t *testing.T) {
	_, err := OpenSQLiteSnapshotter(filepath.Join(testutil.CreateTempDir(t), "missing", "snap.db"))
	var se *SnapshotError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "sqlite", se.Sink)
	assert.Equal(t, "open", se.Op)
}
