package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestTransitionError(t *testing.T) {
	err := &TransitionError{Kind: "inbox_item", ID: "x", From: "approved", Action: "reject"}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "invalid transition") {
		t.Errorf("TransitionError.Error() should contain 'invalid transition', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "approved") || !strings.Contains(errorMsg, "reject") {
		t.Errorf("TransitionError.Error() should name state and action, got: %q", errorMsg)
	}

	var target *TransitionError
	if !errors.As(error(err), &target) {
		t.Error("errors.As() should match *TransitionError")
	}
}

func TestParseError(t *testing.T) {
	originalErr := errors.New("yaml: line 3: did not find expected key")
	err := &ParseError{
		Source: "seed",
		Key:    "seed.yaml",
		Err:    originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "parse error") {
		t.Errorf("ParseError.Error() should contain 'parse error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "seed.yaml") {
		t.Errorf("ParseError.Error() should contain key, got: %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("ParseError.Unwrap() should return original error")
	}
}

func TestSnapshotError(t *testing.T) {
	originalErr := errors.New("disk full")
	err := &SnapshotError{Sink: "sqlite", Op: "write", Err: originalErr}

	if !strings.Contains(err.Error(), "snapshot error [sqlite] write") {
		t.Errorf("SnapshotError.Error() = %q", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("SnapshotError.Unwrap() should return original error")
	}
}

func TestExportError(t *testing.T) {
	originalErr := errors.New("write failed")
	err := &ExportError{Format: "jsonl", Path: "/tmp/out.jsonl", Err: originalErr}

	if !strings.Contains(err.Error(), "export error") {
		t.Errorf("ExportError.Error() should contain 'export error', got: %q", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("ExportError.Unwrap() should return original error")
	}
}

func TestSentinelErrorsWrap(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
	}{
		{"session", ErrSessionNotFound},
		{"item", ErrItemNotFound},
		{"message", ErrMessageNotFound},
		{"response", ErrResponseNotFound},
		{"blank", ErrBlankInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := errors.Join(errors.New("context"), tt.sentinel)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is() should find %v", tt.sentinel)
			}
		})
	}
}
