package internal

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionIDLayout = "20060102150405.000000000"

// CreateSessionRequest describes a session to create. Requests that share a
// non-empty IdempotencyKey resolve to the same session.
type CreateSessionRequest struct {
	Title          string
	Seed           []Message
	IdempotencyKey string
}

// SessionEvent is delivered to subscribers after every write
type SessionEvent struct {
	Session  ChatSession
	Messages []Message
}

type sessionEntry struct {
	meta     ChatSession
	messages []Message
}

// SessionStore owns every session's message list. All reads return copies.
type SessionStore struct {
	mu          sync.RWMutex
	clock       Clock
	sessions    map[SessionID]*sessionEntry
	order       []SessionID
	keys        map[string]SessionID
	selected    SessionID
	lastNano    int64
	seq         int64
	subscribers []func(SessionEvent)
}

// NewSessionStore creates an empty store
func NewSessionStore(clock Clock) *SessionStore {
	if clock == nil {
		clock = SystemClock()
	}
	return &SessionStore{
		clock:    clock,
		sessions: make(map[SessionID]*sessionEntry),
		keys:     make(map[string]SessionID),
	}
}

// Subscribe registers fn to receive a snapshot of a session after each write
func (s *SessionStore) Subscribe(fn func(SessionEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// nextID returns a time-based id strictly greater than the previous one.
// Caller holds s.mu.
func (s *SessionStore) nextID(now time.Time) SessionID {
	n := now.UnixNano()
	if n <= s.lastNano {
		n = s.lastNano + 1
	}
	s.lastNano = n
	return SessionID(time.Unix(0, n).UTC().Format(sessionIDLayout))
}

// Stamp fills in the id, display timestamp, creation time and sequence
// number of a message that lacks them.
func (s *SessionStore) Stamp(m Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stampLocked(m)
}

func (s *SessionStore) stampLocked(m Message) Message {
	now := s.clock.Now()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.Timestamp == "" {
		m.Timestamp = FormatDisplayTime(m.CreatedAt)
	}
	if m.Seq == 0 {
		s.seq++
		m.Seq = s.seq
	}
	return m
}

// CreateSession creates a session with optional seed messages and returns
// its id. A repeated IdempotencyKey returns the first id and creates nothing.
func (s *SessionStore) CreateSession(req CreateSessionRequest) SessionID {
	s.mu.Lock()
	if req.IdempotencyKey != "" {
		if id, ok := s.keys[req.IdempotencyKey]; ok {
			s.mu.Unlock()
			LogDebug("Session create for key %s already done: %s", req.IdempotencyKey, id)
			return id
		}
	}

	now := s.clock.Now()
	id := s.nextID(now)
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New chat"
	}
	entry := &sessionEntry{
		meta: ChatSession{
			ID:        id,
			Title:     title,
			Timestamp: FormatDisplayTime(now),
			CreatedAt: now,
		},
	}
	s.sessions[id] = entry
	s.order = append(s.order, id)
	if req.IdempotencyKey != "" {
		s.keys[req.IdempotencyKey] = id
	}
	for _, m := range req.Seed {
		s.appendLocked(entry, m)
	}
	event, subs := s.eventLocked(entry)
	s.mu.Unlock()

	LogDebug("Created session %s (%q) with %d seed message(s)", id, title, len(req.Seed))
	notify(subs, event)
	return id
}

// Import inserts a session under its existing id, replacing any previous
// copy. Used when restoring from a snapshot.
func (s *SessionStore) Import(session ChatSession, msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		s.order = append(s.order, session.ID)
	}
	entry := &sessionEntry{meta: session, messages: cloneMessages(msgs)}
	for _, m := range entry.messages {
		if m.Seq > s.seq {
			s.seq = m.Seq
		}
	}
	s.sessions[session.ID] = entry
}

// AppendMessages appends msgs to the tail of the session, creating an empty
// session under id if it does not exist yet.
func (s *SessionStore) AppendMessages(id SessionID, msgs ...Message) []Message {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	if !ok {
		now := s.clock.Now()
		entry = &sessionEntry{meta: ChatSession{ID: id, Title: "New chat", Timestamp: FormatDisplayTime(now), CreatedAt: now}}
		s.sessions[id] = entry
		s.order = append(s.order, id)
		LogDebug("Implicitly created session %s on append", id)
	}
	stamped := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		stamped = append(stamped, s.appendLocked(entry, m).Clone())
	}
	event, subs := s.eventLocked(entry)
	s.mu.Unlock()

	notify(subs, event)
	return stamped
}

func (s *SessionStore) appendLocked(entry *sessionEntry, m Message) Message {
	m = s.stampLocked(m).Clone()
	entry.messages = append(entry.messages, m)
	entry.meta.LastMessage = m.Content
	entry.meta.Timestamp = m.Timestamp
	if entry.meta.ID != s.selected && m.Role == RoleAssistant {
		entry.meta.UnreadCount++
	}
	return m
}

// UpdateMessage applies fn to a stored message in place
func (s *SessionStore) UpdateMessage(id SessionID, messageID string, fn func(*Message) error) error {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	idx := -1
	for i := range entry.messages {
		if entry.messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	updated := entry.messages[idx].Clone()
	if err := fn(&updated); err != nil {
		s.mu.Unlock()
		return err
	}
	entry.messages[idx] = updated
	event, subs := s.eventLocked(entry)
	s.mu.Unlock()

	notify(subs, event)
	return nil
}

// Messages returns a copy of the session's messages. Unknown ids yield nil.
func (s *SessionStore) Messages(id SessionID) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil
	}
	return cloneMessages(entry.messages)
}

// Message returns one stored message
func (s *SessionStore) Message(id SessionID, messageID string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok {
		return Message{}, false
	}
	for _, m := range entry.messages {
		if m.ID == messageID {
			return m.Clone(), true
		}
	}
	return Message{}, false
}

// Session returns the session's metadata
func (s *SessionStore) Session(id SessionID) (ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok {
		return ChatSession{}, false
	}
	return entry.meta, true
}

// Sessions lists all sessions, most recently created first
func (s *SessionStore) Sessions() []ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatSession, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.sessions[s.order[i]].meta)
	}
	return out
}

// Find resolves a session by exact id, id prefix or case-insensitive title
func (s *SessionStore) Find(ref string) (ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.sessions[SessionID(ref)]; ok {
		return entry.meta, true
	}
	for _, id := range s.order {
		meta := s.sessions[id].meta
		if strings.HasPrefix(string(id), ref) || strings.EqualFold(meta.Title, ref) {
			return meta, true
		}
	}
	return ChatSession{}, false
}

// SelectSession marks id as the active session and clears its unread count
func (s *SessionStore) SelectSession(id SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.selected = id
	entry.meta.UnreadCount = 0
	return nil
}

// ClearSelection enters "new chat" mode
func (s *SessionStore) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
}

// Selected returns the active session, if any
func (s *SessionStore) Selected() (SessionID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selected != ""
}

func (s *SessionStore) eventLocked(entry *sessionEntry) (SessionEvent, []func(SessionEvent)) {
	if len(s.subscribers) == 0 {
		return SessionEvent{}, nil
	}
	subs := slices.Clone(s.subscribers)
	return SessionEvent{Session: entry.meta, Messages: cloneMessages(entry.messages)}, subs
}

func notify(subs []func(SessionEvent), event SessionEvent) {
	for _, fn := range subs {
		fn(event)
	}
}
