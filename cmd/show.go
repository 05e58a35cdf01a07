package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/workspace-chat/internal"
	"github.com/spf13/cobra"
)

var (
	limit int
	since string
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session>",
	Short: "Show the timeline of a session",
	Long: `Display the merged timeline of a chat session. The session can be given
by id, id prefix or title.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := buildWorkspace(cmd.Context(), cmd.ErrOrStderr(), internal.NewManualScheduler(), internal.Hooks{})
		if err != nil {
			return err
		}
		defer ws.Close()

		meta, ok := ws.orch.Store().Find(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", internal.ErrSessionNotFound, args[0])
		}
		t, err := ws.orch.Transcript(meta.ID)
		if err != nil {
			return err
		}

		messages := t.Messages
		if since != "" {
			from, ok := internal.ParseTimeOfDay(since)
			if !ok {
				return fmt.Errorf("invalid --since time %q (expected e.g. 10:30 AM)", since)
			}
			filtered := make([]internal.Message, 0, len(messages))
			for _, msg := range messages {
				if at, ok := internal.ParseTimeOfDay(msg.Timestamp); ok && at >= from {
					filtered = append(filtered, msg)
				}
			}
			messages = filtered
		}

		out := cmd.OutOrStdout()
		displaySessionHeader(out, t)

		total := len(messages)
		if limit > 0 && limit < total {
			messages = messages[:limit]
		}
		for i, msg := range messages {
			displayMessage(out, i+1, msg, total)
		}

		if limit > 0 && limit < total {
			fmt.Fprintln(out)
			fmt.Fprintln(out, lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Render(fmt.Sprintf("... (%d more message(s))", total-limit)))
		}
		return nil
	},
}

func displaySessionHeader(w io.Writer, t *internal.Transcript) {
	if t == nil {
		return
	}
	fmt.Fprintln(w, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", t.Session.Title)))

	metaParts := []string{fmt.Sprintf("ID: %s", t.Session.ID)}
	if !t.Session.CreatedAt.IsZero() {
		metaParts = append(metaParts, fmt.Sprintf("Created: %s", t.Session.CreatedAt.Format("2006-01-02 15:04")))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", len(t.Messages)))
	fmt.Fprintln(w, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(w)
}

func displayMessage(w io.Writer, index int, msg internal.Message, total int) {
	var actorStyle lipgloss.Style
	var actorLabel string

	switch msg.Role {
	case internal.RoleUser:
		actorStyle = userMessageStyle
		actorLabel = "👤 User"
	case internal.RoleAssistant:
		actorStyle = assistantMessageStyle
		actorLabel = "🤖 Assistant"
	default:
		actorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		actorLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}
	switch msg.Source {
	case internal.SourceInboxAction:
		actorLabel += " · inbox"
	case internal.SourceTaskExecution:
		actorLabel += " · task"
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if msg.Timestamp != "" {
		header += " " + timestampStyle.Render(msg.Timestamp)
	}
	fmt.Fprintln(w, header)

	content := strings.TrimSpace(msg.Content)
	if content != "" {
		fmt.Fprintln(w, messageContentStyle.Render(wrapText(content, 80)))
	} else if len(msg.InboxItems) == 0 {
		fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}
	for _, line := range messageDetails(msg) {
		fmt.Fprintln(w, detailStyle.Render(line))
	}
	fmt.Fprintln(w)
}

// messageDetails renders the structured parts of a message as one line each
func messageDetails(msg internal.Message) []string {
	var lines []string
	if msg.Reasoning != "" {
		lines = append(lines, fmt.Sprintf("💭 Thought for %ds: %s", msg.ReasoningDuration, msg.Reasoning))
	}
	for _, item := range msg.InboxItems {
		lines = append(lines, fmt.Sprintf("📥 %s [%s]", item.Title, item.Status))
	}
	for _, tc := range msg.ToolCalls {
		lines = append(lines, fmt.Sprintf("%s %s %s", toolGlyph(tc.Status), tc.ToolName, tc.Status))
	}
	for _, r := range msg.AgentResponses {
		line := fmt.Sprintf("%s @%s %s", agentGlyph(r), agentLabel(r), r.Status)
		if r.Resolution != internal.ResolutionNone {
			line += " (" + string(r.Resolution) + ")"
		}
		if r.Message != "" {
			line += ": " + r.Message
		}
		lines = append(lines, line)
	}
	for _, a := range msg.Artifacts {
		lines = append(lines, fmt.Sprintf("📄 %s (%s)", a.Title, a.Kind))
	}
	return lines
}

func agentLabel(r internal.AgentResponse) string {
	if r.Agent != "" {
		return r.Agent
	}
	return string(r.AgentType)
}

func toolGlyph(s internal.ToolCallStatus) string {
	switch s {
	case internal.ToolCallSuccess:
		return "✓"
	case internal.ToolCallError:
		return "✗"
	default:
		return "⋯"
	}
}

func agentGlyph(r internal.AgentResponse) string {
	switch {
	case r.Resolution == internal.ResolutionRejected:
		return "✗"
	case r.Status == internal.AgentAwaitingApproval:
		return "?"
	case r.Status == internal.AgentCompleted:
		return "✓"
	default:
		return "⋯"
	}
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else if currentLine == "" {
				currentLine = word
			} else {
				currentLine += " " + word
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages from this time of day on (e.g. 10:30 AM)")
}
