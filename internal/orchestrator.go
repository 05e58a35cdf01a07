package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iksnae/workspace-chat/internal/composer"
)

// Hooks are the host's callbacks. A nil hook is skipped.
type Hooks struct {
	OnApprovalAction       func(item InboxItem, action InboxAction, details string)
	OnInlineReply          func(item InboxItem, reply string)
	OnNavigateToTask       func(taskID, taskName string)
	OnTransitionToChat     func(sessionID SessionID, item InboxItem)
	OnCreateNewChatSession func(title string, userMessage, aiResponse Message) SessionID
}

// OrchestratorConfig wires an Orchestrator. Nil fields get defaults.
type OrchestratorConfig struct {
	Store     *SessionStore
	Inbox     *Inbox
	Scheduler Scheduler
	Responder Responder
	Catalog   *Catalog
	Hooks     Hooks

	ResponseDelay time.Duration
	ApprovalDelay time.Duration
	TaskDelay     time.Duration
	Ordering      TimelineOrder
	CurrentUser   string
}

// Orchestrator turns host intents into store writes, transient stream
// entries, scheduled replies and host callbacks.
type Orchestrator struct {
	mu        sync.Mutex
	store     *SessionStore
	inbox     *Inbox
	tracker   *DelegationTracker
	sched     Scheduler
	responder Responder
	catalog   *Catalog
	composer  *composer.Composer
	hooks     Hooks

	responseDelay time.Duration
	approvalDelay time.Duration
	taskDelay     time.Duration
	ordering      TimelineOrder
	currentUser   string

	inboxStream map[SessionID][]Message
	taskStream  map[SessionID][]Message
	draftKey    string
}

// NewOrchestrator creates an orchestrator from cfg
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Store == nil {
		cfg.Store = NewSessionStore(nil)
	}
	if cfg.Inbox == nil {
		cfg.Inbox = NewInbox(nil)
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewRealScheduler()
	}
	if cfg.Responder == nil {
		cfg.Responder = CannedResponder{}
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.CurrentUser == "" {
		cfg.CurrentUser = "You"
	}
	return &Orchestrator{
		store:         cfg.Store,
		inbox:         cfg.Inbox,
		tracker:       NewDelegationTracker(cfg.Store),
		sched:         cfg.Scheduler,
		responder:     cfg.Responder,
		catalog:       cfg.Catalog,
		composer:      composer.New(cfg.Catalog.CommandCandidates(), cfg.Catalog.MentionCandidates()),
		hooks:         cfg.Hooks,
		responseDelay: cfg.ResponseDelay,
		approvalDelay: cfg.ApprovalDelay,
		taskDelay:     cfg.TaskDelay,
		ordering:      cfg.Ordering,
		currentUser:   cfg.CurrentUser,
		inboxStream:   make(map[SessionID][]Message),
		taskStream:    make(map[SessionID][]Message),
		draftKey:      uuid.NewString(),
	}
}

// Store returns the session store
func (o *Orchestrator) Store() *SessionStore { return o.store }

// Inbox returns the inbox
func (o *Orchestrator) Inbox() *Inbox { return o.inbox }

// Catalog returns the active catalog
func (o *Orchestrator) Catalog() *Catalog {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.catalog
}

// SetCatalog swaps the agents and commands offered by the composer
func (o *Orchestrator) SetCatalog(c *Catalog) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.catalog = c
	o.composer.SetCatalog(c.CommandCandidates(), c.MentionCandidates())
}

// ReloadCatalog loads a catalog file. On error the current catalog stays.
func (o *Orchestrator) ReloadCatalog(path string) error {
	c, err := LoadCatalog(path)
	if err != nil {
		LogWarn("Keeping previous catalog: %v", err)
		return err
	}
	o.SetCatalog(c)
	LogInfo("Loaded catalog with %d agent(s) and %d command(s)", len(c.Agents), len(c.Commands))
	return nil
}

// activeOrCreateLocked returns the selected session or, in new-chat mode,
// creates one under the current draft key so repeated sends share it.
func (o *Orchestrator) activeOrCreateLocked(title string) SessionID {
	if sid, ok := o.store.Selected(); ok {
		return sid
	}
	sid := o.store.CreateSession(CreateSessionRequest{Title: title, IdempotencyKey: o.draftKey})
	if err := o.store.SelectSession(sid); err != nil {
		LogError("Failed to select new session %s: %v", sid, err)
	}
	Logger().Info("session opened from draft", "session_id", sid, "title", title)
	return sid
}

func (o *Orchestrator) mentionsIn(text string) []AgentProfile {
	var out []AgentProfile
	for _, c := range composer.ScanMentions(text, o.catalog.MentionCandidates()) {
		if a, ok := o.catalog.Agent(c.Handle); ok {
			out = append(out, a)
		}
	}
	return out
}

// SendMessage appends the user's message to the active session (creating
// one in new-chat mode) and schedules the assistant's reply. Blank text is
// ignored.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) (SessionID, error) {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		LogDebug("Ignoring blank message")
		return "", nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	sid := o.activeOrCreateLocked(truncate(prompt, 40))
	o.store.AppendMessages(sid, Message{Role: RoleUser, Content: prompt})

	req := ResponseRequest{SessionID: sid, Prompt: prompt, Mentions: o.mentionsIn(prompt)}
	if cmd, ok := o.catalog.CommandFor(prompt); ok {
		req.Command = &cmd
	}
	o.composer.Reset()

	replyCtx := context.WithoutCancel(ctx)
	o.sched.Schedule(string(sid), o.responseDelay, func() { o.deliverResponse(replyCtx, req) })
	Logger().Debug("message sent", "session_id", sid, "mentions", len(req.Mentions))
	return sid, nil
}

func (o *Orchestrator) deliverResponse(ctx context.Context, req ResponseRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sid := req.SessionID
	if _, ok := o.store.Session(sid); !ok {
		LogDebug("Dropping reply for unknown session %s", sid)
		return
	}
	reply := o.responder.Respond(ctx, req)
	for i := range reply.AgentResponses {
		o.bindCallbacks(sid, &reply.AgentResponses[i])
	}
	stored := o.store.AppendMessages(sid, reply)[0]
	if len(stored.AgentResponses) > 0 || len(stored.ToolCalls) > 0 {
		o.sched.Schedule(string(sid), o.taskDelay, func() { o.settle(sid, stored.ID) })
	}
}

func (o *Orchestrator) agentName(resp AgentResponse) string {
	if a, ok := o.catalog.Agent(resp.Agent); ok {
		return a.Name
	}
	for _, a := range o.catalog.Agents {
		if a.Type == resp.AgentType {
			return a.Name
		}
	}
	return string(resp.AgentType) + " agent"
}

func (o *Orchestrator) bindCallbacks(sid SessionID, resp *AgentResponse) {
	name := o.agentName(*resp)
	resp.OnApprove = func() {
		o.store.AppendMessages(sid, Message{Role: RoleAssistant, Content: fmt.Sprintf("%s approved. Continuing with the plan.", name)})
	}
	resp.OnReject = func() {
		o.store.AppendMessages(sid, Message{Role: RoleAssistant, Content: fmt.Sprintf("%s stopped. Nothing was changed.", name)})
	}
}

// settle finishes the delegated work of a reply once the task delay passes
func (o *Orchestrator) settle(sid SessionID, messageID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	msg, ok := o.store.Message(sid, messageID)
	if !ok {
		return
	}
	for _, r := range msg.AgentResponses {
		if r.Status != AgentExecuting {
			continue
		}
		name := o.agentName(r)
		if _, err := o.tracker.Progress(sid, messageID, r.ID, "Analysis finished"); err != nil {
			LogWarn("Progress for %s failed: %v", r.ID, err)
			continue
		}
		var err error
		if r.RequiresApproval {
			_, err = o.tracker.RequestApproval(sid, messageID, r.ID, fmt.Sprintf("%s is ready and needs your approval", name))
		} else {
			_, err = o.tracker.Complete(sid, messageID, r.ID, fmt.Sprintf("%s finished", name))
		}
		if err != nil {
			LogWarn("Settling %s failed: %v", r.ID, err)
		}
	}
	err := o.store.UpdateMessage(sid, messageID, func(m *Message) error {
		for i := range m.ToolCalls {
			if !m.ToolCalls[i].Terminal() {
				_ = m.ToolCalls[i].Complete("completed")
			}
		}
		return nil
	})
	if err != nil {
		LogWarn("Completing tool calls on %s failed: %v", messageID, err)
	}
}

// ApproveDelegation approves an awaiting agent response in the active session
func (o *Orchestrator) ApproveDelegation(messageID, responseID string) error {
	sid, ok := o.store.Selected()
	if !ok {
		return ErrSessionNotFound
	}
	_, err := o.tracker.Approve(sid, messageID, responseID)
	return err
}

// RejectDelegation rejects an awaiting agent response in the active session
func (o *Orchestrator) RejectDelegation(messageID, responseID string) error {
	sid, ok := o.store.Selected()
	if !ok {
		return ErrSessionNotFound
	}
	_, err := o.tracker.Reject(sid, messageID, responseID)
	return err
}

// RunTaskPrompt injects a task-originated exchange into the active session's
// task stream. Its tool call resolves after the task delay.
func (o *Orchestrator) RunTaskPrompt(ctx context.Context, prompt string) (SessionID, error) {
	p := strings.TrimSpace(prompt)
	if p == "" {
		LogDebug("Ignoring blank task prompt")
		return "", nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	sid := o.activeOrCreateLocked(truncate(p, 40))
	user := o.store.Stamp(Message{Role: RoleUser, Content: p, Source: SourceTaskExecution})
	assistant := o.store.Stamp(Message{
		Role:    RoleAssistant,
		Content: "Starting task: " + p,
		Source:  SourceTaskExecution,
		ToolCalls: []ToolCall{{
			ID:       uuid.NewString(),
			ToolName: "task_runner",
			Input:    p,
			Status:   ToolCallExecuting,
		}},
	})
	o.taskStream[sid] = append(o.taskStream[sid], user, assistant)
	o.sched.Schedule(string(sid), o.taskDelay, func() { o.finishTask(sid, assistant.ID) })
	return sid, nil
}

func (o *Orchestrator) finishTask(sid SessionID, messageID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.taskStream[sid] {
		m := &o.taskStream[sid][i]
		if m.ID != messageID {
			continue
		}
		for j := range m.ToolCalls {
			if err := m.ToolCalls[j].Complete("Task finished"); err != nil {
				LogDebug("Tool call already settled: %v", err)
			}
		}
		return
	}
}

// ResolveInboxItem applies a human decision to an inbox item, records the
// exchange in the active session and notifies the host. A blank reply is
// ignored.
func (o *Orchestrator) ResolveInboxItem(ctx context.Context, id string, action InboxAction, note string) error {
	note = strings.TrimSpace(note)
	if action == ActionReply && note == "" {
		LogDebug("Ignoring blank reply to %s", id)
		return nil
	}

	var transition func() (InboxItem, error)
	switch action {
	case ActionApprove:
		transition = func() (InboxItem, error) { return o.inbox.Approve(id, o.currentUser) }
	case ActionReject:
		transition = func() (InboxItem, error) { return o.inbox.Reject(id, note) }
	case ActionReply:
		transition = func() (InboxItem, error) { return o.inbox.Reply(id, note) }
	default:
		return fmt.Errorf("unknown inbox action %q", action)
	}

	original, ok := o.inbox.Item(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	inFlight := o.inbox.Processing(id)
	o.inbox.SetProcessing(id, true)
	item, err := transition()
	if err != nil {
		if !inFlight {
			o.inbox.SetProcessing(id, false)
		}
		return err
	}
	o.sched.Schedule("inbox:"+id, o.approvalDelay, func() { o.inbox.SetProcessing(id, false) })

	sid, ok := o.store.Selected()
	if !ok {
		sid = o.openChat(item)
	}

	user, ack := inboxExchange(item, action, note)
	o.mu.Lock()
	o.inboxStream[sid] = append(o.inboxStream[sid], o.store.Stamp(user), o.store.Stamp(ack))
	o.mu.Unlock()
	Logger().Info("inbox item resolved", "item_id", id, "action", string(action), "session_id", sid)

	// hooks see the item as it was when the user acted
	if action == ActionReply {
		if h := o.hooks.OnInlineReply; h != nil {
			h(original, note)
		}
		return nil
	}
	if h := o.hooks.OnApprovalAction; h != nil {
		details := ""
		if action == ActionReject {
			details = note
		}
		h(original, action, details)
	}
	return nil
}

func inboxExchange(item InboxItem, action InboxAction, note string) (Message, Message) {
	user := Message{Role: RoleUser, Source: SourceInboxAction, InboxItems: []InboxItem{item.Clone()}}
	ack := Message{Role: RoleAssistant, Source: SourceInboxAction}
	switch action {
	case ActionApprove:
		user.Content = fmt.Sprintf("I approve %q.", item.Title)
		ack.Content = fmt.Sprintf("Approved. I'll continue with %q.", item.Title)
		if item.RelatedTaskName != "" {
			ack.Content = fmt.Sprintf("Approved. I'll continue with %q in %s.", item.Title, item.RelatedTaskName)
		}
	case ActionReject:
		user.Content = fmt.Sprintf("I reject %q. Reason: %s", item.Title, item.RejectedReason)
		ack.Content = fmt.Sprintf("Understood. I won't proceed with %q.", item.Title)
	case ActionReply:
		user.Content = note
		ack.Content = fmt.Sprintf("Thanks, I've added your reply to %q.", item.Title)
	}
	return user, ack
}

// OpenItemInChat opens a chat seeded with the item's summary and selects it
func (o *Orchestrator) OpenItemInChat(ctx context.Context, id string) (SessionID, error) {
	item, ok := o.inbox.Item(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return o.openChat(item), nil
}

func (o *Orchestrator) openChat(item InboxItem) SessionID {
	user := Message{Role: RoleUser, Content: fmt.Sprintf("Let's talk about %q.", item.Title)}
	ai := Message{Role: RoleAssistant, Content: item.Summary}

	var sid SessionID
	if h := o.hooks.OnCreateNewChatSession; h != nil {
		sid = h(item.Title, user, ai)
	}
	if sid == "" || o.store.SelectSession(sid) != nil {
		sid = o.createSeeded(item.Title, user.Content, ai.Content, "item\x1f"+item.ID)
	}
	if h := o.hooks.OnTransitionToChat; h != nil {
		h(sid, item)
	}
	return sid
}

// CreateSessionWithSeed creates and selects a session holding one user
// message and one assistant reply. Repeating the call before the next
// NewChat returns the same session.
func (o *Orchestrator) CreateSessionWithSeed(title, userMessage, aiResponse string) SessionID {
	return o.createSeeded(title, userMessage, aiResponse, "seed\x1f"+title+"\x1f"+userMessage+"\x1f"+aiResponse)
}

// createSeeded scopes key to the current draft, so the same seed after a
// NewChat or CloseSession gets a fresh session.
func (o *Orchestrator) createSeeded(title, userMessage, aiResponse, key string) SessionID {
	o.mu.Lock()
	draft := o.draftKey
	o.mu.Unlock()

	sid := o.store.CreateSession(CreateSessionRequest{
		Title: title,
		Seed: []Message{
			{Role: RoleUser, Content: userMessage},
			{Role: RoleAssistant, Content: aiResponse},
		},
		IdempotencyKey: draft + "\x1f" + key,
	})
	if err := o.store.SelectSession(sid); err != nil {
		LogError("Failed to select seeded session %s: %v", sid, err)
	}
	return sid
}

// NavigateToTask asks the host to show the task behind an inbox item
func (o *Orchestrator) NavigateToTask(id string) error {
	item, ok := o.inbox.Item(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if h := o.hooks.OnNavigateToTask; h != nil {
		h(item.RelatedTaskID, item.RelatedTaskName)
	}
	return nil
}

// SelectSession makes id the active session
func (o *Orchestrator) SelectSession(id SessionID) error {
	return o.store.SelectSession(id)
}

// NewChat enters new-chat mode. The next send creates exactly one session.
func (o *Orchestrator) NewChat() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.store.ClearSelection()
	o.draftKey = uuid.NewString()
}

// CloseSession cancels pending work for a session and drops its transient
// streams. The session itself stays in the store.
func (o *Orchestrator) CloseSession(id SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := o.sched.CancelScope(string(id))
	delete(o.inboxStream, id)
	delete(o.taskStream, id)
	if sel, ok := o.store.Selected(); ok && sel == id {
		o.store.ClearSelection()
		o.draftKey = uuid.NewString()
	}
	LogDebug("Closed session %s, cancelled %d pending task(s)", id, n)
}

// Timeline returns the merged timeline of the active session
func (o *Orchestrator) Timeline() []Message {
	sid, ok := o.store.Selected()
	if !ok {
		return nil
	}
	return o.TimelineFor(sid)
}

// TimelineFor merges persisted and transient messages of any session
func (o *Orchestrator) TimelineFor(sid SessionID) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return MergeTimeline(sid, o.store.Messages(sid), o.ordering,
		Stream{SessionID: sid, Messages: o.inboxStream[sid]},
		Stream{SessionID: sid, Messages: o.taskStream[sid]},
	)
}

// Transcript returns a session with its merged timeline
func (o *Orchestrator) Transcript(sid SessionID) (*Transcript, error) {
	session, ok := o.store.Session(sid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sid)
	}
	return &Transcript{Session: session, Messages: o.TimelineFor(sid)}, nil
}

// SetInput updates the composer buffer
func (o *Orchestrator) SetInput(text string, caret int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.composer.SetInput(text, caret)
}

// Input returns the composer buffer and caret
func (o *Orchestrator) Input() (string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.composer.Text(), o.composer.Caret()
}

// HandleKey routes a key to the composer popup
func (o *Orchestrator) HandleKey(k composer.Key) composer.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.composer.HandleKey(k)
}

// Popup returns the open autocomplete popup
func (o *Orchestrator) Popup() (composer.Popup, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.composer.Popup()
}

// CommitCommand applies a command candidate to the open command popup
func (o *Orchestrator) CommitCommand(c composer.Candidate) (composer.Edit, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.composer.Commit(composer.KindCommand, c)
}

// CommitMention applies an agent candidate to the open mention popup
func (o *Orchestrator) CommitMention(c composer.Candidate) (composer.Edit, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.composer.Commit(composer.KindMention, c)
}

// MentionedAgents returns the chips for agents mentioned in the buffer
func (o *Orchestrator) MentionedAgents() []composer.Candidate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.composer.MentionedAgents()
}

// RemoveMention strips a mention chip from the buffer
func (o *Orchestrator) RemoveMention(handle string) composer.Edit {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.composer.RemoveMention(handle)
}
