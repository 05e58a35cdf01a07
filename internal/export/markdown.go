package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/workspace-chat/internal"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(t *internal.Transcript, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", t.Session.Title)
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", t.Session.ID)
	if !t.Session.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Created:** %s  \n", t.Session.CreatedAt.Format("2006-01-02 15:04"))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(t.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range t.Messages {
		timestamp := ""
		if msg.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp)
		}
		label := roleLabel(msg.Role)
		switch msg.Source {
		case internal.SourceInboxAction:
			label += " · inbox"
		case internal.SourceTaskExecution:
			label += " · task"
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", label, timestamp, escapeMarkdown(msg.Content))
		writeDetails(w, msg)

		if i < len(t.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

func roleLabel(r internal.Role) string {
	if r == internal.RoleUser {
		return "User"
	}
	return "Assistant"
}

func writeDetails(w io.Writer, msg internal.Message) {
	if msg.Reasoning != "" {
		_, _ = fmt.Fprintf(w, "> Thought for %ds: %s\n\n", msg.ReasoningDuration, msg.Reasoning)
	}
	for _, item := range msg.InboxItems {
		_, _ = fmt.Fprintf(w, "> Inbox: %s [%s]\n\n", item.Title, item.Status)
	}
	for _, tc := range msg.ToolCalls {
		_, _ = fmt.Fprintf(w, "- Tool `%s`: %s\n", tc.ToolName, tc.Status)
	}
	for _, r := range msg.AgentResponses {
		name := r.Agent
		if name == "" {
			name = string(r.AgentType)
		}
		status := string(r.Status)
		if r.Resolution != "" {
			status += ", " + string(r.Resolution)
		}
		_, _ = fmt.Fprintf(w, "- Agent @%s (%s): %s\n", name, status, r.Message)
	}
	if len(msg.ToolCalls) > 0 || len(msg.AgentResponses) > 0 {
		_, _ = fmt.Fprintln(w)
	}
	for _, a := range msg.Artifacts {
		_, _ = fmt.Fprintf(w, "**Artifact:** %s\n\n```%s\n%s\n```\n\n", a.Title, a.Kind, a.Content)
	}
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
