package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/workspace-chat/internal"
	"github.com/spf13/cobra"
)

var (
	listClearArchive bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	unreadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// listCmd represents the sessions command
var listCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"list", "ls"},
	Short:   "List chat sessions",
	Long:    `List all chat sessions from the seed file and the configured snapshots, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listClearArchive {
			if cfg.ArchiveDir == "" {
				internal.LogWarn("--clear-archive given without an archive directory")
			} else if err := internal.NewArchiveSnapshotter(cfg.ArchiveDir).Clear(); err != nil {
				internal.LogWarn("Failed to clear archive: %v", err)
			} else {
				internal.LogInfo("Archive cleared")
			}
		}

		ws, err := buildWorkspace(cmd.Context(), cmd.ErrOrStderr(), internal.NewManualScheduler(), internal.Hooks{})
		if err != nil {
			return err
		}
		defer ws.Close()

		displaySessions(cmd.OutOrStdout(), ws.orch.Store())
		return nil
	},
}

func displaySessions(out io.Writer, store *internal.SessionStore) {
	sessions := store.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No sessions found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(sessions))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Unread")+"\t"+titleStyle.Render("Last")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 90))

	for _, s := range sessions {
		title := s.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}

		unread := dateStyle.Render("-")
		if s.UnreadCount > 0 {
			unread = unreadStyle.Render(strconv.Itoa(s.UnreadCount))
		}

		last := dateStyle.Render("-")
		if s.Timestamp != "" {
			last = dateStyle.Render(s.Timestamp)
		}

		count := countStyle.Render(strconv.Itoa(len(store.Messages(s.ID))))
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", idStyle.Render(string(s.ID)), title, count, unread, last)
	}

	_ = w.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: Use an ID or title (e.g., ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(string(sessions[0].ID))+
		idStyle.Render(") with `workspace-chat show <session>`"))
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listClearArchive, "clear-archive", false, "Clear the session archive before listing")
}
