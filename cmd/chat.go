package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/workspace-chat/internal"
	"github.com/iksnae/workspace-chat/internal/composer"
	"github.com/spf13/cobra"
)

// Layout constants
const (
	chatHeaderHeight = 2
	chatInputHeight  = 3
	chatStatusHeight = 1
	popupRows        = 5
	refreshInterval  = 250 * time.Millisecond
)

var (
	chatTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	popupSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62"))

	chipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Border(lipgloss.NormalBorder(), false, true).
			BorderForeground(lipgloss.Color("135"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

type chatKeyMap struct {
	Send        key.Binding
	Up          key.Binding
	Down        key.Binding
	Complete    key.Binding
	Dismiss     key.Binding
	NewChat     key.Binding
	NextSession key.Binding
	Copy        key.Binding
	Approve     key.Binding
	Reject      key.Binding
	Quit        key.Binding
}

func defaultChatKeys() chatKeyMap {
	return chatKeyMap{
		Send:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Up:          key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous")),
		Down:        key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next")),
		Complete:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete")),
		Dismiss:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close popup")),
		NewChat:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
		NextSession: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "next session")),
		Copy:        key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy reply")),
		Approve:     key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "approve agent")),
		Reject:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reject agent")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k chatKeyMap) help() string {
	var parts []string
	for _, b := range []key.Binding{k.Send, k.NewChat, k.NextSession, k.Copy, k.Approve, k.Reject, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

type activityMsg struct{}

type refreshMsg struct{}

// chatModel is the interactive chat screen
type chatModel struct {
	ctx      context.Context
	orch     *internal.Orchestrator
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	keys     chatKeyMap
	activity chan struct{}
	clip     io.Writer

	status string
	width  int
	height int
	ready  bool
}

func newChatModel(ctx context.Context, clip io.Writer) *chatModel {
	ti := textinput.New()
	ti.Placeholder = "Message, / for commands, @ for agents, :approve <id> for inbox"
	ti.Prompt = "▍ "
	ti.CharLimit = 4000
	ti.Focus()

	return &chatModel{
		ctx:      ctx,
		input:    ti,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		keys:     defaultChatKeys(),
		activity: make(chan struct{}, 1),
		clip:     clip,
		width:    100,
		height:   30,
	}
}

// attach binds the model to an orchestrator and wakes the UI on store writes
func (m *chatModel) attach(orch *internal.Orchestrator) {
	m.orch = orch
	orch.Store().Subscribe(func(internal.SessionEvent) {
		select {
		case m.activity <- struct{}{}:
		default:
		}
	})
}

// hooks report host callbacks in the status line
func (m *chatModel) hooks() internal.Hooks {
	return internal.Hooks{
		OnApprovalAction: func(item internal.InboxItem, action internal.InboxAction, details string) {
			m.status = fmt.Sprintf("%s: %s", item.Title, action)
		},
		OnInlineReply: func(item internal.InboxItem, reply string) {
			m.status = fmt.Sprintf("Replied to %s", item.Title)
		},
		OnNavigateToTask: func(taskID, taskName string) {
			if taskID == "" {
				m.status = "No related task"
				return
			}
			m.status = fmt.Sprintf("Task %s: %s", taskID, taskName)
		},
		OnTransitionToChat: func(sid internal.SessionID, item internal.InboxItem) {
			m.status = fmt.Sprintf("Opened chat for %s", item.Title)
		},
	}
}

func (m *chatModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		<-m.activity
		return activityMsg{}
	}
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m *chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForActivity(), refreshTick())
}

func (m *chatModel) viewportHeight() int {
	h := m.height - chatHeaderHeight - chatInputHeight - chatStatusHeight
	if _, ok := m.orch.Popup(); ok {
		h -= popupRows + 2
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(m.width, m.viewportHeight())
			m.ready = true
		}
		m.input.Width = m.width - 4
		m.refresh()
		return m, nil

	case activityMsg:
		m.refresh()
		return m, m.waitForActivity()

	case refreshMsg:
		m.refresh()
		return m, refreshTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *chatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if _, open := m.orch.Popup(); open {
		if k, ok := m.popupKey(msg); ok {
			res := m.orch.HandleKey(k)
			if res.Committed {
				m.input.SetValue(res.Edit.Text)
				m.input.SetCursor(res.Edit.Caret)
			}
			if res.Handled {
				m.refresh()
				return m, nil
			}
		}
	}

	switch {
	case key.Matches(msg, m.keys.Send):
		m.submit()
	case key.Matches(msg, m.keys.NewChat):
		m.orch.NewChat()
		m.status = "New chat"
	case key.Matches(msg, m.keys.NextSession):
		m.nextSession()
	case key.Matches(msg, m.keys.Copy):
		m.copyLastReply()
	case key.Matches(msg, m.keys.Approve):
		m.resolveDelegation(true)
	case key.Matches(msg, m.keys.Reject):
		m.resolveDelegation(false)
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.orch.SetInput(m.input.Value(), m.input.Position())
		m.refresh()
		return m, cmd
	}
	m.refresh()
	return m, nil
}

func (m *chatModel) popupKey(msg tea.KeyMsg) (composer.Key, bool) {
	switch {
	case key.Matches(msg, m.keys.Up):
		return composer.KeyUp, true
	case key.Matches(msg, m.keys.Down):
		return composer.KeyDown, true
	case key.Matches(msg, m.keys.Complete):
		return composer.KeyTab, true
	case key.Matches(msg, m.keys.Send):
		return composer.KeyEnter, true
	case key.Matches(msg, m.keys.Dismiss):
		return composer.KeyEscape, true
	}
	return 0, false
}

func (m *chatModel) submit() {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	m.orch.SetInput("", 0)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, ":") {
		if err := m.inboxCommand(text); err != nil {
			m.status = "Error: " + err.Error()
		}
		return
	}
	if _, err := m.orch.SendMessage(m.ctx, text); err != nil {
		m.status = "Error: " + err.Error()
	}
}

// inboxCommand runs ":approve <id>", ":reject <id> [reason]", ":reply <id> <text>",
// ":open <id>" and ":task <id>"
func (m *chatModel) inboxCommand(text string) error {
	fields := strings.Fields(strings.TrimPrefix(text, ":"))
	if len(fields) < 2 {
		return fmt.Errorf("usage: :approve|:reject|:reply|:open|:task <item-id> [text]")
	}
	verb, id := strings.ToLower(fields[0]), fields[1]
	rest := strings.Join(fields[2:], " ")

	switch verb {
	case "approve":
		return m.orch.ResolveInboxItem(m.ctx, id, internal.ActionApprove, "")
	case "reject":
		return m.orch.ResolveInboxItem(m.ctx, id, internal.ActionReject, rest)
	case "reply":
		return m.orch.ResolveInboxItem(m.ctx, id, internal.ActionReply, rest)
	case "open":
		_, err := m.orch.OpenItemInChat(m.ctx, id)
		return err
	case "task":
		return m.orch.NavigateToTask(id)
	default:
		return fmt.Errorf("unknown inbox command %q", verb)
	}
}

func (m *chatModel) nextSession() {
	sessions := m.orch.Store().Sessions()
	if len(sessions) == 0 {
		return
	}
	next := 0
	if sel, ok := m.orch.Store().Selected(); ok {
		for i, s := range sessions {
			if s.ID == sel {
				next = (i + 1) % len(sessions)
				break
			}
		}
	}
	if err := m.orch.SelectSession(sessions[next].ID); err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	m.status = sessions[next].Title
}

func (m *chatModel) copyLastReply() {
	timeline := m.orch.Timeline()
	for i := len(timeline) - 1; i >= 0; i-- {
		if timeline[i].Role != internal.RoleAssistant || timeline[i].Content == "" {
			continue
		}
		if err := internal.CopyText(timeline[i].Content, m.clip); err != nil {
			m.status = "Copy failed: " + err.Error()
			return
		}
		m.status = "Copied reply"
		return
	}
	m.status = "Nothing to copy"
}

func (m *chatModel) resolveDelegation(approve bool) {
	if err := resolveDelegation(m.orch, "", approve); err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	if approve {
		m.status = "Agent approved"
	} else {
		m.status = "Agent rejected"
	}
}

// busy reports whether the assistant still owes a reply or delegated work
func busy(timeline []internal.Message) bool {
	if len(timeline) == 0 {
		return false
	}
	last := timeline[len(timeline)-1]
	if last.Role == internal.RoleUser && last.Source == internal.SourceComposer {
		return true
	}
	for _, msg := range timeline {
		for _, tc := range msg.ToolCalls {
			if !tc.Terminal() {
				return true
			}
		}
		for _, r := range msg.AgentResponses {
			if r.Status == internal.AgentExecuting {
				return true
			}
		}
	}
	return false
}

func (m *chatModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.Width = m.width
	m.viewport.Height = m.viewportHeight()

	timeline := m.orch.Timeline()
	var b strings.Builder
	if len(timeline) == 0 {
		b.WriteString(statusStyle.Render("Start a new conversation. Type / for commands or @ to mention an agent."))
	}
	for i, msg := range timeline {
		displayMessage(&b, i+1, msg, len(timeline))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *chatModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "New chat"
	if sid, ok := m.orch.Store().Selected(); ok {
		if s, ok := m.orch.Store().Session(sid); ok {
			title = s.Title
		}
	}
	pending := len(m.orch.Inbox().ByStatus(internal.InboxPending))
	header := chatTitleStyle.Render("💬 "+title) + "  " + statusStyle.Render(fmt.Sprintf("📥 %d pending", pending))
	if busy(m.orch.Timeline()) {
		header += "  " + m.spinner.View()
	}

	var sections []string
	sections = append(sections, header, m.viewport.View())
	if popup, ok := m.orch.Popup(); ok {
		sections = append(sections, renderPopup(popup))
	}
	if chips := m.orch.MentionedAgents(); len(chips) > 0 {
		var rendered []string
		for _, c := range chips {
			rendered = append(rendered, chipStyle.Render(c.Glyph+" @"+c.Handle))
		}
		sections = append(sections, strings.Join(rendered, " "))
	}
	sections = append(sections, m.input.View())

	status := m.status
	if status == "" {
		status = m.keys.help()
	}
	sections = append(sections, statusStyle.Render(status))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderPopup(p composer.Popup) string {
	if len(p.Candidates) == 0 {
		return popupStyle.Render(statusStyle.Render("No matches"))
	}
	start := 0
	if p.Index >= popupRows {
		start = p.Index - popupRows + 1
	}
	end := start + popupRows
	if end > len(p.Candidates) {
		end = len(p.Candidates)
	}

	var lines []string
	for i := start; i < end; i++ {
		c := p.Candidates[i]
		label := c.Label
		if p.Kind == composer.KindMention {
			label = "@" + c.Handle
		}
		line := fmt.Sprintf("%s %s  %s", c.Glyph, label, statusStyle.Render(c.Description))
		if i == p.Index {
			line = popupSelectedStyle.Render(fmt.Sprintf("%s %s", c.Glyph, label)) + "  " + statusStyle.Render(c.Description)
		}
		lines = append(lines, line)
	}
	return popupStyle.Render(strings.Join(lines, "\n"))
}

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start the interactive chat screen.

Type "/" to pick a command and "@" to mention an agent. Inbox items can be
resolved inline with :approve <id>, :reject <id> [reason], :reply <id> <text>,
:open <id> and :task <id>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := newChatModel(cmd.Context(), os.Stderr)
		ws, err := buildWorkspace(cmd.Context(), cmd.ErrOrStderr(), internal.NewRealScheduler(), m.hooks())
		if err != nil {
			return err
		}
		defer ws.Close()
		m.attach(ws.orch)

		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("chat failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
