package internal

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestShowProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		fn      func() error
		wantErr bool
	}{
		{"successful function", func() error { return nil }, false},
		{"function with error", func() error { return errors.New("test error") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := ShowProgress(ctx, &buf, tt.name, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgress() error = %v, wantErr %v", err, tt.wantErr)
			}
			if buf.Len() != 0 {
				t.Errorf("non-terminal writer should get no spinner output, got %q", buf.String())
			}
		})
	}
}

func TestShowProgressWithSteps(t *testing.T) {
	ctx := context.Background()
	var ran []string
	step := func(name string, err error) ProgressStep {
		return ProgressStep{Message: name, Fn: func() error { ran = append(ran, name); return err }}
	}

	tests := []struct {
		name    string
		steps   []ProgressStep
		wantRan int
		wantErr bool
	}{
		{"successful steps", []ProgressStep{step("a", nil), step("b", nil)}, 2, false},
		{"stops at first error", []ProgressStep{step("a", errors.New("boom")), step("b", nil)}, 1, true},
		{"empty steps", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ran = nil
			err := ShowProgressWithSteps(ctx, &bytes.Buffer{}, tt.steps)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgressWithSteps() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(ran) != tt.wantRan {
				t.Errorf("ran %d steps, want %d", len(ran), tt.wantRan)
			}
		})
	}
}

func TestPrintHelpers(t *testing.T) {
	tests := []struct {
		name  string
		print func(w *bytes.Buffer)
		want  string
	}{
		{"success", func(w *bytes.Buffer) { PrintSuccess(w, "done") }, "done\n"},
		{"info", func(w *bytes.Buffer) { PrintInfo(w, "note") }, "note\n"},
		{"warning", func(w *bytes.Buffer) { PrintWarning(w, "careful") }, "WARNING: careful\n"},
		{"error", func(w *bytes.Buffer) { PrintError(w, "failed") }, "ERROR: failed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.print(&buf)
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
