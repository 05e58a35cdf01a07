package internal

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *SessionStore {
	return NewSessionStore(NewStepClock(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC), time.Minute))
}

func TestSessionStore_CreateSession(t *testing.T) {
	store := newTestStore()

	id := store.CreateSession(CreateSessionRequest{
		Title: "Migration plan",
		Seed: []Message{
			{Role: RoleUser, Content: "Plan the migration"},
			{Role: RoleAssistant, Content: "Here is a plan"},
		},
	})

	session, ok := store.Session(id)
	require.True(t, ok)
	assert.Equal(t, "Migration plan", session.Title)
	assert.Equal(t, "Here is a plan", session.LastMessage)

	msgs := store.Messages(id)
	require.Len(t, msgs, 2)
	assert.NotEmpty(t, msgs[0].ID)
	assert.NotEmpty(t, msgs[0].Timestamp)
	assert.Less(t, msgs[0].Seq, msgs[1].Seq)
}

func TestSessionStore_CreateSessionIdempotent(t *testing.T) {
	store := newTestStore()
	req := CreateSessionRequest{Title: "Draft", IdempotencyKey: "draft-1"}

	first := store.CreateSession(req)
	second := store.CreateSession(req)

	assert.Equal(t, first, second)
	assert.Len(t, store.Sessions(), 1)

	other := store.CreateSession(CreateSessionRequest{Title: "Draft", IdempotencyKey: "draft-2"})
	assert.NotEqual(t, first, other)
	assert.Len(t, store.Sessions(), 2)
}

func TestSessionStore_IDsAreMonotonic(t *testing.T) {
	fixed := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	store := NewSessionStore(NewStepClock(fixed, 0))

	var prev SessionID
	for i := 0; i < 5; i++ {
		id := store.CreateSession(CreateSessionRequest{Title: "same instant"})
		assert.Greater(t, string(id), string(prev))
		prev = id
	}
}

func TestSessionStore_AppendImplicitlyCreates(t *testing.T) {
	store := newTestStore()

	store.AppendMessages("ghost", Message{Role: RoleUser, Content: "hi"})

	session, ok := store.Session("ghost")
	require.True(t, ok)
	assert.Equal(t, "hi", session.LastMessage)
	assert.Len(t, store.Messages("ghost"), 1)
}

func TestSessionStore_MessagesIsSnapshot(t *testing.T) {
	store := newTestStore()
	id := store.CreateSession(CreateSessionRequest{Title: "snap"})
	store.AppendMessages(id, Message{
		Role:      RoleAssistant,
		Content:   "running",
		ToolCalls: []ToolCall{{ID: "t1", ToolName: "scan", Status: ToolCallExecuting}},
	})

	msgs := store.Messages(id)
	msgs[0].Content = "mutated"
	msgs[0].ToolCalls[0].Status = ToolCallError

	again := store.Messages(id)
	assert.Equal(t, "running", again[0].Content)
	assert.Equal(t, ToolCallExecuting, again[0].ToolCalls[0].Status)
}

func TestSessionStore_Selection(t *testing.T) {
	store := newTestStore()
	a := store.CreateSession(CreateSessionRequest{Title: "a"})
	b := store.CreateSession(CreateSessionRequest{Title: "b"})

	require.NoError(t, store.SelectSession(a))
	store.AppendMessages(b, Message{Role: RoleAssistant, Content: "ping"})
	store.AppendMessages(a, Message{Role: RoleAssistant, Content: "seen"})

	sb, _ := store.Session(b)
	sa, _ := store.Session(a)
	assert.Equal(t, 1, sb.UnreadCount)
	assert.Equal(t, 0, sa.UnreadCount)

	require.NoError(t, store.SelectSession(b))
	sb, _ = store.Session(b)
	assert.Equal(t, 0, sb.UnreadCount)

	store.ClearSelection()
	_, ok := store.Selected()
	assert.False(t, ok)

	err := store.SelectSession("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestSessionStore_UpdateMessage(t *testing.T) {
	store := newTestStore()
	id := store.CreateSession(CreateSessionRequest{Title: "u"})
	stored := store.AppendMessages(id, Message{Role: RoleAssistant, Content: "v1"})

	err := store.UpdateMessage(id, stored[0].ID, func(m *Message) error {
		m.Content = "v2"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v2", store.Messages(id)[0].Content)

	failing := errors.New("nope")
	err = store.UpdateMessage(id, stored[0].ID, func(m *Message) error {
		m.Content = "v3"
		return failing
	})
	assert.ErrorIs(t, err, failing)
	assert.Equal(t, "v2", store.Messages(id)[0].Content)

	assert.ErrorIs(t, store.UpdateMessage(id, "nope", func(*Message) error { return nil }), ErrMessageNotFound)
	assert.ErrorIs(t, store.UpdateMessage("nope", "x", func(*Message) error { return nil }), ErrSessionNotFound)
}

func TestSessionStore_Subscribe(t *testing.T) {
	store := newTestStore()
	var events []SessionEvent
	store.Subscribe(func(e SessionEvent) { events = append(events, e) })

	id := store.CreateSession(CreateSessionRequest{Title: "sub"})
	store.AppendMessages(id, Message{Role: RoleUser, Content: "one"}, Message{Role: RoleAssistant, Content: "two"})

	require.Len(t, events, 2)
	assert.Equal(t, id, events[1].Session.ID)
	assert.Len(t, events[1].Messages, 2)
}

func TestSessionStore_SubscribeDuringNotify(t *testing.T) {
	store := newTestStore()
	var early, late int
	store.Subscribe(func(e SessionEvent) {
		early++
		if early == 1 {
			store.Subscribe(func(SessionEvent) { late++ })
		}
	})

	id := store.CreateSession(CreateSessionRequest{Title: "sub"})
	assert.Equal(t, 1, early)
	assert.Equal(t, 0, late, "a subscriber added mid-event waits for the next one")

	store.AppendMessages(id, Message{Role: RoleUser, Content: "one"})
	assert.Equal(t, 2, early)
	assert.Equal(t, 1, late)
}

func TestSessionStore_FindAndList(t *testing.T) {
	store := newTestStore()
	first := store.CreateSession(CreateSessionRequest{Title: "Alpha"})
	second := store.CreateSession(CreateSessionRequest{Title: "Beta"})

	list := store.Sessions()
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID)

	found, ok := store.Find("alpha")
	assert.True(t, ok)
	assert.Equal(t, first, found.ID)

	found, ok = store.Find(string(second))
	assert.True(t, ok)
	assert.Equal(t, second, found.ID)

	_, ok = store.Find("gamma")
	assert.False(t, ok)
}

func TestSessionStore_ConcurrentAppends(t *testing.T) {
	store := newTestStore()
	id := store.CreateSession(CreateSessionRequest{Title: "race"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AppendMessages(id, Message{Role: RoleUser, Content: "x"})
		}()
	}
	wg.Wait()

	msgs := store.Messages(id)
	assert.Len(t, msgs, 20)
	seen := map[int64]bool{}
	for _, m := range msgs {
		assert.False(t, seen[m.Seq], "duplicate seq %d", m.Seq)
		seen[m.Seq] = true
	}
}
