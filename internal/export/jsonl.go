package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/workspace-chat/internal"
)

// JSONLExporter exports transcripts in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(t *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range t.Messages {
		obj := map[string]interface{}{
			"session_id": t.Session.ID,
			"id":         msg.ID,
			"role":       msg.Role,
			"content":    msg.Content,
		}
		if msg.Timestamp != "" {
			obj["timestamp"] = msg.Timestamp
		}
		if msg.Source != internal.SourceComposer {
			obj["source"] = msg.Source
		}
		if len(msg.ToolCalls) > 0 {
			obj["tool_calls"] = msg.ToolCalls
		}
		if len(msg.AgentResponses) > 0 {
			obj["agent_responses"] = msg.AgentResponses
		}
		if len(msg.InboxItems) > 0 {
			obj["inbox_items"] = msg.InboxItems
		}
		if len(msg.Artifacts) > 0 {
			obj["artifacts"] = msg.Artifacts
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
