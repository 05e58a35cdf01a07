package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/workspace-chat/internal"
	"github.com/iksnae/workspace-chat/testutil"
)

func TestJSONLExporter_Export(t *testing.T) {
	tests := []struct {
		name       string
		transcript *internal.Transcript
		lines      int
		want       []string
		notWant    []string
	}{
		{
			name:       "empty transcript",
			transcript: internal.CreateTestTranscriptWithMessages("s0", nil),
			lines:      0,
		},
		{
			name:       "plain messages",
			transcript: internal.CreateTestTranscript("s1"),
			lines:      2,
			want:       []string{`"role":"user"`, `"role":"assistant"`, `"session_id":"s1"`, `"timestamp":"10:30 AM"`},
			notWant:    []string{`"source"`, `"tool_calls"`},
		},
		{
			name: "task message",
			transcript: internal.CreateTestTranscriptWithMessages("s2", []internal.Message{{
				ID:      "m1",
				Role:    internal.RoleAssistant,
				Content: "Starting task",
				Source:  internal.SourceTaskExecution,
				ToolCalls: []internal.ToolCall{{
					ID: "t1", ToolName: "task_runner", Status: internal.ToolCallExecuting,
				}},
			}}),
			lines:   1,
			want:    []string{`"source":"task-execution"`, `"tool_name":"task_runner"`},
			notWant: []string{`"timestamp"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&JSONLExporter{}).Export(tt.transcript, &buf); err != nil {
				t.Fatalf("JSONLExporter.Export() error = %v", err)
			}

			output := strings.TrimSpace(buf.String())
			var lines []string
			if output != "" {
				lines = strings.Split(output, "\n")
			}
			if len(lines) != tt.lines {
				t.Fatalf("got %d lines, want %d", len(lines), tt.lines)
			}
			for _, line := range lines {
				var obj map[string]interface{}
				testutil.JSONUnmarshal(t, []byte(line), &obj)
			}
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %s:\n%s", want, output)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(output, nw) {
					t.Errorf("output should not contain %s:\n%s", nw, output)
				}
			}
		})
	}
}
