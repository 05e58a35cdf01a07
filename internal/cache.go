package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const archiveVersion = "1.0"

// ArchiveSnapshotter writes each session to its own JSON file and keeps a
// YAML index of all archived sessions
type ArchiveSnapshotter struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// ArchiveMetadata stores metadata about the archive
type ArchiveMetadata struct {
	ArchiveVersion string    `yaml:"archive_version"`
	CreatedAt      time.Time `yaml:"created_at"`
	UpdatedAt      time.Time `yaml:"updated_at"`
}

// ArchiveIndexEntry represents a session entry in the index
type ArchiveIndexEntry struct {
	ID           SessionID `yaml:"id"`
	Title        string    `yaml:"title"`
	LastMessage  string    `yaml:"last_message,omitempty"`
	CreatedAt    string    `yaml:"created_at,omitempty"`
	MessageCount int       `yaml:"message_count"`
	File         string    `yaml:"file"`
}

// ArchiveIndex represents the YAML index of all sessions
type ArchiveIndex struct {
	Sessions []ArchiveIndexEntry `yaml:"sessions"`
	Metadata ArchiveMetadata     `yaml:"metadata"`
}

// NewArchiveSnapshotter creates an archive rooted at dir
func NewArchiveSnapshotter(dir string) *ArchiveSnapshotter {
	return &ArchiveSnapshotter{dir: dir, now: time.Now}
}

// Dir returns the archive directory
func (a *ArchiveSnapshotter) Dir() string {
	return a.dir
}

// EnsureDir ensures the archive directory exists
func (a *ArchiveSnapshotter) EnsureDir() error {
	return os.MkdirAll(a.dir, 0755)
}

// IndexPath returns the path to the session index YAML file
func (a *ArchiveSnapshotter) IndexPath() string {
	return filepath.Join(a.dir, "sessions.yaml")
}

var unsafeFileChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

func sessionFileName(id SessionID) string {
	return fmt.Sprintf("session_%s.json", unsafeFileChars.Replace(string(id)))
}

// SessionPath returns the path to a session's archive file
func (a *ArchiveSnapshotter) SessionPath(id SessionID) string {
	return filepath.Join(a.dir, sessionFileName(id))
}

// Attach subscribes the archive to store. Write failures are logged.
func (a *ArchiveSnapshotter) Attach(store *SessionStore) {
	store.Subscribe(func(ev SessionEvent) {
		if err := a.Snapshot(ev); err != nil {
			LogWarn("Failed to archive session %s: %v", ev.Session.ID, err)
		}
	})
}

// Snapshot saves one session file and updates the index
func (a *ArchiveSnapshotter) Snapshot(ev SessionEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := &Transcript{Session: ev.Session, Messages: ev.Messages}
	if err := a.saveSession(t); err != nil {
		return &SnapshotError{Sink: "archive", Op: "write", Err: err}
	}

	index, err := a.LoadIndex()
	if err != nil {
		if !os.IsNotExist(err) {
			LogWarn("Rebuilding unreadable archive index: %v", err)
		}
		index = &ArchiveIndex{Metadata: ArchiveMetadata{ArchiveVersion: archiveVersion, CreatedAt: a.now()}}
	}
	index.Metadata.UpdatedAt = a.now()

	entry := indexEntry(t)
	found := false
	for i := range index.Sessions {
		if index.Sessions[i].ID == entry.ID {
			index.Sessions[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Sessions = append(index.Sessions, entry)
	}

	if err := a.SaveIndex(index); err != nil {
		return &SnapshotError{Sink: "archive", Op: "write", Err: err}
	}
	return nil
}

func indexEntry(t *Transcript) ArchiveIndexEntry {
	entry := ArchiveIndexEntry{
		ID:           t.Session.ID,
		Title:        t.Session.Title,
		LastMessage:  truncate(t.Session.LastMessage, 80),
		MessageCount: len(t.Messages),
		File:         sessionFileName(t.Session.ID),
	}
	if !t.Session.CreatedAt.IsZero() {
		entry.CreatedAt = t.Session.CreatedAt.Format(time.RFC3339)
	}
	return entry
}

// LoadIndex loads the session index
func (a *ArchiveSnapshotter) LoadIndex() (*ArchiveIndex, error) {
	data, err := os.ReadFile(a.IndexPath())
	if err != nil {
		return nil, err
	}

	var index ArchiveIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}
	return &index, nil
}

// SaveIndex saves the session index
func (a *ArchiveSnapshotter) SaveIndex(index *ArchiveIndex) error {
	if err := a.EnsureDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return os.WriteFile(a.IndexPath(), data, 0644)
}

func (a *ArchiveSnapshotter) saveSession(t *Transcript) error {
	if err := a.EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return os.WriteFile(a.SessionPath(t.Session.ID), data, 0644)
}

// LoadSession loads a single session from its archive file
func (a *ArchiveSnapshotter) LoadSession(id SessionID) (*Transcript, error) {
	data, err := os.ReadFile(a.SessionPath(id))
	if err != nil {
		return nil, &SnapshotError{Sink: "archive", Op: "read", Err: err}
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, &SnapshotError{Sink: "archive", Op: "read", Err: fmt.Errorf("failed to unmarshal session: %w", err)}
	}
	return &t, nil
}

// LoadTranscripts loads all archived sessions in index order
func (a *ArchiveSnapshotter) LoadTranscripts() ([]*Transcript, error) {
	index, err := a.LoadIndex()
	if err != nil {
		return nil, &SnapshotError{Sink: "archive", Op: "read", Err: err}
	}

	var out []*Transcript
	for _, entry := range index.Sessions {
		t, err := a.LoadSession(entry.ID)
		if err != nil {
			LogWarn("Skipping archived session %s: %v", entry.ID, err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Restore imports every archived session into store and returns the count
func (a *ArchiveSnapshotter) Restore(store *SessionStore) (int, error) {
	transcripts, err := a.LoadTranscripts()
	if err != nil {
		return 0, err
	}
	for _, t := range transcripts {
		store.Import(t.Session, t.Messages)
	}
	return len(transcripts), nil
}

// Clear removes every archived session file and the index
func (a *ArchiveSnapshotter) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if index, err := a.LoadIndex(); err == nil {
		for _, entry := range index.Sessions {
			_ = os.Remove(a.SessionPath(entry.ID))
		}
	}
	if err := os.Remove(a.IndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
