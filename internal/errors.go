package internal

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrItemNotFound     = errors.New("inbox item not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrResponseNotFound = errors.New("agent response not found")
	ErrBlankInput       = errors.New("blank input")
)

// TransitionError is returned when a state machine is asked for a move its
// current state does not allow
type TransitionError struct {
	Kind   string // "inbox_item", "agent_response", "tool_call"
	ID     string
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition [%s] %s: cannot %s from %q", e.Kind, e.ID, e.Action, e.From)
}

// ParseError represents errors parsing data
type ParseError struct {
	Source string // "seed", "catalog", "script"
	Key    string // file path or entry key
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SnapshotError represents errors writing or reading a session snapshot
type SnapshotError struct {
	Sink string // "sqlite", "archive"
	Op   string // "open", "write", "read"
	Err  error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot error [%s] %s: %v", e.Sink, e.Op, e.Err)
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
