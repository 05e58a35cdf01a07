package internal

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedSession is a session declared in a seed file
type SeedSession struct {
	ID       SessionID `yaml:"id,omitempty"`
	Title    string    `yaml:"title"`
	Messages []Message `yaml:"messages"`
}

// Seed is the initial content of a workspace: sessions and inbox items
type Seed struct {
	Sessions []SeedSession `yaml:"sessions"`
	Inbox    []InboxItem   `yaml:"inbox"`
}

// LoadSeed reads and validates a seed YAML file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: "seed", Key: path, Err: err}
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, &ParseError{Source: "seed", Key: path, Err: err}
	}
	if err := seed.Validate(); err != nil {
		return nil, &ParseError{Source: "seed", Key: path, Err: err}
	}
	return &seed, nil
}

// Validate checks roles, item types and statuses
func (s *Seed) Validate() error {
	var errs []error
	for i, sess := range s.Sessions {
		for j, m := range sess.Messages {
			if m.Role != RoleUser && m.Role != RoleAssistant {
				errs = append(errs, fmt.Errorf("sessions[%d].messages[%d]: unknown role %q", i, j, m.Role))
			}
		}
	}
	for i, item := range s.Inbox {
		switch item.Type {
		case "", InboxApproval, InboxInfoRequest:
		default:
			errs = append(errs, fmt.Errorf("inbox[%d]: unknown type %q", i, item.Type))
		}
		switch item.Status {
		case "", InboxPending, InboxApproved, InboxRejected, InboxInfoRequested, InboxArchived:
		default:
			errs = append(errs, fmt.Errorf("inbox[%d]: unknown status %q", i, item.Status))
		}
	}
	return errors.Join(errs...)
}

// Apply loads the seed into store and inbox. Sessions with an id are
// imported under it unless the store already has them (for example after a
// snapshot restore); the rest are created once per title.
func (s *Seed) Apply(store *SessionStore, inbox *Inbox) error {
	for _, sess := range s.Sessions {
		title := strings.TrimSpace(sess.Title)
		if sess.ID != "" {
			if _, ok := store.Session(sess.ID); ok {
				continue
			}
		}
		if sess.ID == "" {
			store.CreateSession(CreateSessionRequest{
				Title:          title,
				Seed:           sess.Messages,
				IdempotencyKey: "seed-file\x1f" + title,
			})
			continue
		}

		msgs := make([]Message, 0, len(sess.Messages))
		for _, m := range sess.Messages {
			msgs = append(msgs, store.Stamp(m))
		}
		meta := ChatSession{ID: sess.ID, Title: title}
		if len(msgs) > 0 {
			first, last := msgs[0], msgs[len(msgs)-1]
			meta.CreatedAt = first.CreatedAt
			meta.LastMessage = last.Content
			meta.Timestamp = last.Timestamp
		}
		store.Import(meta, msgs)
	}

	var errs []error
	for _, item := range s.Inbox {
		if err := inbox.Add(item); err != nil {
			errs = append(errs, err)
		}
	}
	LogDebug("Applied seed: %d session(s), %d inbox item(s)", len(s.Sessions), len(s.Inbox))
	return errors.Join(errs...)
}
