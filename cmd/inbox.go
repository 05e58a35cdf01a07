package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/workspace-chat/internal"
	"github.com/spf13/cobra"
)

var (
	inboxStatus  string
	inboxSession string
	rejectReason string
)

var (
	priorityStyles = map[internal.Priority]lipgloss.Style{
		internal.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		internal.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		internal.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	}

	hookStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

// inboxCmd represents the inbox command
var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List inbox items",
	Long: `List the approval and information requests raised by running tasks.

Use the subcommands to act on an item:
  workspace-chat inbox approve <id>
  workspace-chat inbox reject <id> --reason "..."
  workspace-chat inbox reply <id> <text>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := buildWorkspace(cmd.Context(), cmd.ErrOrStderr(), internal.NewManualScheduler(), internal.Hooks{})
		if err != nil {
			return err
		}
		defer ws.Close()

		items := ws.orch.Inbox().Items()
		if inboxStatus != "" {
			items = ws.orch.Inbox().ByStatus(internal.InboxStatus(strings.ToLower(inboxStatus)))
		}
		displayInbox(cmd.OutOrStdout(), items)
		return nil
	},
}

var inboxApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending inbox item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInboxAction(cmd, args[0], internal.ActionApprove, "")
	},
}

var inboxRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending inbox item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInboxAction(cmd, args[0], internal.ActionReject, rejectReason)
	},
}

var inboxReplyCmd = &cobra.Command{
	Use:   "reply <id> <text...>",
	Short: "Answer an information request",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInboxAction(cmd, args[0], internal.ActionReply, strings.Join(args[1:], " "))
	},
}

var inboxOpenCmd = &cobra.Command{
	Use:   "open <id>",
	Short: "Open a chat about an inbox item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ws, err := buildWorkspace(cmd.Context(), cmd.ErrOrStderr(), internal.NewManualScheduler(), printingHooks(out))
		if err != nil {
			return err
		}
		defer ws.Close()

		sid, err := ws.orch.OpenItemInChat(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		t, err := ws.orch.Transcript(sid)
		if err != nil {
			return err
		}
		displaySessionHeader(out, t)
		for i, msg := range t.Messages {
			displayMessage(out, i+1, msg, len(t.Messages))
		}
		return nil
	},
}

var inboxTaskCmd = &cobra.Command{
	Use:   "task <id>",
	Short: "Show the task behind an inbox item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ws, err := buildWorkspace(cmd.Context(), cmd.ErrOrStderr(), internal.NewManualScheduler(), printingHooks(out))
		if err != nil {
			return err
		}
		defer ws.Close()
		return ws.orch.NavigateToTask(args[0])
	},
}

// runInboxAction resolves one item, lets its timers fire and prints the
// item state followed by the recorded exchange
func runInboxAction(cmd *cobra.Command, id string, action internal.InboxAction, note string) error {
	out := cmd.OutOrStdout()
	sched := internal.NewManualScheduler()
	ws, err := buildWorkspace(cmd.Context(), cmd.ErrOrStderr(), sched, printingHooks(out))
	if err != nil {
		return err
	}
	defer ws.Close()

	if inboxSession != "" {
		meta, ok := ws.orch.Store().Find(inboxSession)
		if !ok {
			return fmt.Errorf("%w: %s", internal.ErrSessionNotFound, inboxSession)
		}
		if err := ws.orch.SelectSession(meta.ID); err != nil {
			return err
		}
	}

	if err := ws.orch.ResolveInboxItem(cmd.Context(), id, action, note); err != nil {
		return err
	}
	sched.Flush()

	item, _ := ws.orch.Inbox().Item(id)
	internal.PrintSuccess(out, fmt.Sprintf("%s is now %s", item.Title, item.Status))
	fmt.Fprintln(out)

	var exchange []internal.Message
	for _, msg := range ws.orch.Timeline() {
		if msg.Source == internal.SourceInboxAction {
			exchange = append(exchange, msg)
		}
	}
	for i, msg := range exchange {
		displayMessage(out, i+1, msg, len(exchange))
	}
	return nil
}

// printingHooks reports host callbacks on out
func printingHooks(out io.Writer) internal.Hooks {
	return internal.Hooks{
		OnApprovalAction: func(item internal.InboxItem, action internal.InboxAction, details string) {
			line := fmt.Sprintf("↪ %s %s", action, item.ID)
			if details != "" {
				line += ": " + details
			}
			fmt.Fprintln(out, hookStyle.Render(line))
		},
		OnInlineReply: func(item internal.InboxItem, reply string) {
			fmt.Fprintln(out, hookStyle.Render(fmt.Sprintf("↪ reply %s: %s", item.ID, reply)))
		},
		OnNavigateToTask: func(taskID, taskName string) {
			if taskID == "" {
				fmt.Fprintln(out, hookStyle.Render("↪ no related task"))
				return
			}
			fmt.Fprintln(out, hookStyle.Render(fmt.Sprintf("↪ task %s (%s)", taskID, taskName)))
		},
		OnTransitionToChat: func(sid internal.SessionID, item internal.InboxItem) {
			fmt.Fprintln(out, hookStyle.Render(fmt.Sprintf("↪ chat %s opened for %s", sid, item.ID)))
		},
	}
}

func displayInbox(out io.Writer, items []internal.InboxItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📥 Inbox is empty"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📥 %d inbox item(s)", len(items))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Type")+"\t"+titleStyle.Render("Priority")+"\t"+titleStyle.Render("Status")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Task")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, item := range items {
		priority := dateStyle.Render("-")
		if item.Priority != "" {
			style, ok := priorityStyles[item.Priority]
			if !ok {
				style = dateStyle
			}
			priority = style.Render(string(item.Priority))
		}
		task := dateStyle.Render("-")
		if item.RelatedTaskName != "" {
			task = item.RelatedTaskName
		}
		title := item.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(item.ID), string(item.Type), priority, countStyle.Render(string(item.Status)), title, task)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(inboxCmd)
	inboxCmd.AddCommand(inboxApproveCmd, inboxRejectCmd, inboxReplyCmd, inboxOpenCmd, inboxTaskCmd)

	inboxCmd.Flags().StringVar(&inboxStatus, "status", "", "Only show items with this status (pending, approved, rejected, info-requested, archived)")
	inboxCmd.PersistentFlags().StringVar(&inboxSession, "session", "", "Record the exchange in this session instead of the item's own chat")
	inboxRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Why the item is rejected")
}
