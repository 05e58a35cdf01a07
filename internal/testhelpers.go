package internal

import (
	"sync"
	"time"
)

// StepClock is a Clock that advances by a fixed step on every call
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStepClock starts at start and advances by step after each Now
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{now: start, step: step}
}

// Now returns the current time and advances the clock
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// CreateTestMessage creates a message with a display timestamp
func CreateTestMessage(id string, role Role, content, timestamp string) Message {
	return Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: timestamp,
	}
}

// CreateTestInboxItem creates a pending approval item
func CreateTestInboxItem(id, title string) InboxItem {
	return InboxItem{
		ID:              id,
		Title:           title,
		Summary:         "Summary of " + title,
		Type:            InboxApproval,
		Status:          InboxPending,
		Priority:        PriorityMedium,
		RelatedTaskID:   "task-" + id,
		RelatedTaskName: "Task " + title,
	}
}

// CreateTestTranscript creates a transcript with one user and one assistant message
func CreateTestTranscript(id string) *Transcript {
	created := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	return &Transcript{
		Session: ChatSession{
			ID:          SessionID(id),
			Title:       "Test Conversation",
			LastMessage: "I'm doing well, thank you!",
			Timestamp:   "10:31 AM",
			CreatedAt:   created,
		},
		Messages: []Message{
			{
				ID:        "m1",
				Role:      RoleUser,
				Content:   "Hello, how are you?",
				Timestamp: "10:30 AM",
				CreatedAt: created,
				Seq:       1,
			},
			{
				ID:        "m2",
				Role:      RoleAssistant,
				Content:   "I'm doing well, thank you!",
				Timestamp: "10:31 AM",
				CreatedAt: created.Add(time.Minute),
				Seq:       2,
			},
		},
	}
}

// CreateTestTranscriptWithMessages creates a transcript holding msgs
func CreateTestTranscriptWithMessages(id string, msgs []Message) *Transcript {
	t := CreateTestTranscript(id)
	t.Messages = msgs
	return t
}
