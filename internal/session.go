package internal

import "time"

// SessionID identifies a chat session
type SessionID string

// ChatSession holds the metadata of one conversation
type ChatSession struct {
	ID          SessionID `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	LastMessage string    `json:"last_message,omitempty" yaml:"last_message,omitempty"`
	Timestamp   string    `json:"timestamp,omitempty" yaml:"timestamp,omitempty"` // display time, "10:32 AM"
	UnreadCount int       `json:"unread_count" yaml:"unread_count"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Message is a single entry in a session timeline
type Message struct {
	ID                string          `json:"id" yaml:"id"`
	Role              Role            `json:"role" yaml:"role"`
	Content           string          `json:"content" yaml:"content"`
	Timestamp         string          `json:"timestamp" yaml:"timestamp"`
	CreatedAt         time.Time       `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Seq               int64           `json:"seq,omitempty" yaml:"seq,omitempty"`
	Source            MessageSource   `json:"source,omitempty" yaml:"source,omitempty"`
	Artifacts         []Artifact      `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	InboxItems        []InboxItem     `json:"inbox_items,omitempty" yaml:"inbox_items,omitempty"`
	Reasoning         string          `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	ReasoningDuration int             `json:"reasoning_duration,omitempty" yaml:"reasoning_duration,omitempty"` // seconds
	ToolCalls         []ToolCall      `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	AgentResponses    []AgentResponse `json:"agent_responses,omitempty" yaml:"agent_responses,omitempty"`
}

// Artifact is generated output attached to an assistant message
type Artifact struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Kind    string `json:"kind" yaml:"kind"` // "plan", "report", "code"
	Content string `json:"content" yaml:"content"`
}

// Clone returns a deep copy of the message. Nested tool calls, agent
// responses and inbox items are copied so callers can never reach the
// store's backing arrays.
func (m Message) Clone() Message {
	out := m
	if m.Artifacts != nil {
		out.Artifacts = append([]Artifact(nil), m.Artifacts...)
	}
	if m.InboxItems != nil {
		out.InboxItems = make([]InboxItem, len(m.InboxItems))
		for i, item := range m.InboxItems {
			out.InboxItems[i] = item.Clone()
		}
	}
	if m.ToolCalls != nil {
		out.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	if m.AgentResponses != nil {
		out.AgentResponses = make([]AgentResponse, len(m.AgentResponses))
		for i, resp := range m.AgentResponses {
			out.AgentResponses[i] = resp.Clone()
		}
	}
	return out
}

func cloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// Transcript is a session together with the messages to render or export
type Transcript struct {
	Session  ChatSession `json:"session" yaml:"session"`
	Messages []Message   `json:"messages" yaml:"messages"`
}
