package internal

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageSource tags messages that did not originate from the composer
type MessageSource string

const (
	SourceComposer      MessageSource = ""
	SourceInboxAction   MessageSource = "inbox-action"
	SourceTaskExecution MessageSource = "task-execution"
)

// ToolCallStatus is the lifecycle state of a tool invocation
type ToolCallStatus string

const (
	ToolCallExecuting ToolCallStatus = "executing"
	ToolCallSuccess   ToolCallStatus = "success"
	ToolCallError     ToolCallStatus = "error"
)

// ToolCall records one tool invocation by the assistant
type ToolCall struct {
	ID       string         `json:"id" yaml:"id"`
	ToolName string         `json:"tool_name" yaml:"tool_name"`
	Input    string         `json:"input,omitempty" yaml:"input,omitempty"`
	Output   string         `json:"output,omitempty" yaml:"output,omitempty"`
	Status   ToolCallStatus `json:"status" yaml:"status"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Terminal reports whether the call has finished
func (tc ToolCall) Terminal() bool {
	return tc.Status == ToolCallSuccess || tc.Status == ToolCallError
}

// Complete moves an executing call to success
func (tc *ToolCall) Complete(output string) error {
	if tc.Terminal() {
		return &TransitionError{Kind: "tool_call", ID: tc.ID, From: string(tc.Status), Action: "complete"}
	}
	tc.Status = ToolCallSuccess
	tc.Output = output
	return nil
}

// Fail moves an executing call to error
func (tc *ToolCall) Fail(reason string) error {
	if tc.Terminal() {
		return &TransitionError{Kind: "tool_call", ID: tc.ID, From: string(tc.Status), Action: "fail"}
	}
	tc.Status = ToolCallError
	tc.Error = reason
	return nil
}

// AgentType is the closed set of delegate agents
type AgentType string

const (
	AgentMigration AgentType = "migration"
	AgentQA        AgentType = "qa"
	AgentSitecore  AgentType = "sitecore"
	AgentContent   AgentType = "content"
)

// AgentStatus is the lifecycle state of a delegated agent response
type AgentStatus string

const (
	AgentExecuting        AgentStatus = "executing"
	AgentCompleted        AgentStatus = "completed"
	AgentAwaitingApproval AgentStatus = "awaiting-approval"
)

// Resolution records how an awaiting-approval response was settled
type Resolution string

const (
	ResolutionNone     Resolution = ""
	ResolutionApproved Resolution = "approved"
	ResolutionRejected Resolution = "rejected"
)

// AgentResponse is a delegated agent's output attached to one message
type AgentResponse struct {
	ID               string      `json:"id" yaml:"id"`
	Agent            string      `json:"agent,omitempty" yaml:"agent,omitempty"` // handle of the mentioned agent
	AgentType        AgentType   `json:"agent_type" yaml:"agent_type"`
	Message          string      `json:"message" yaml:"message"`
	Messages         []string    `json:"messages,omitempty" yaml:"messages,omitempty"`
	ToolCalls        []ToolCall  `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	Status           AgentStatus `json:"status" yaml:"status"`
	RequiresApproval bool        `json:"requires_approval,omitempty" yaml:"requires_approval,omitempty"`
	Resolution       Resolution  `json:"resolution,omitempty" yaml:"resolution,omitempty"`

	OnApprove func() `json:"-" yaml:"-"`
	OnReject  func() `json:"-" yaml:"-"`
}

// Clone copies the response including its nested slices
func (r AgentResponse) Clone() AgentResponse {
	out := r
	if r.Messages != nil {
		out.Messages = append([]string(nil), r.Messages...)
	}
	if r.ToolCalls != nil {
		out.ToolCalls = append([]ToolCall(nil), r.ToolCalls...)
	}
	return out
}

// InboxItemType distinguishes approvals from information requests
type InboxItemType string

const (
	InboxApproval    InboxItemType = "approval"
	InboxInfoRequest InboxItemType = "info-request"
)

// InboxStatus is the lifecycle state of an inbox item
type InboxStatus string

const (
	InboxPending       InboxStatus = "pending"
	InboxApproved      InboxStatus = "approved"
	InboxRejected      InboxStatus = "rejected"
	InboxInfoRequested InboxStatus = "info-requested"
	InboxArchived      InboxStatus = "archived"
)

// Priority of an inbox item
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// InboxItem is a human-in-the-loop request raised by a running task
type InboxItem struct {
	ID              string        `json:"id" yaml:"id"`
	Title           string        `json:"title" yaml:"title"`
	Summary         string        `json:"summary" yaml:"summary"`
	Details         string        `json:"details,omitempty" yaml:"details,omitempty"`
	Type            InboxItemType `json:"type" yaml:"type"`
	Status          InboxStatus   `json:"status" yaml:"status"`
	Priority        Priority      `json:"priority,omitempty" yaml:"priority,omitempty"`
	RelatedTaskID   string        `json:"related_task_id,omitempty" yaml:"related_task_id,omitempty"`
	RelatedTaskName string        `json:"related_task_name,omitempty" yaml:"related_task_name,omitempty"`
	RequestedInfo   string        `json:"requested_info,omitempty" yaml:"requested_info,omitempty"`
	AIReasoning     string        `json:"ai_reasoning,omitempty" yaml:"ai_reasoning,omitempty"`
	ApprovedBy      string        `json:"approved_by,omitempty" yaml:"approved_by,omitempty"`
	ApprovedAt      *time.Time    `json:"approved_at,omitempty" yaml:"approved_at,omitempty"`
	RejectedReason  string        `json:"rejected_reason,omitempty" yaml:"rejected_reason,omitempty"`
	InlineReply     string        `json:"inline_reply,omitempty" yaml:"inline_reply,omitempty"`
}

// Clone copies the item so embedded snapshots do not alias live state
func (i InboxItem) Clone() InboxItem {
	out := i
	if i.ApprovedAt != nil {
		t := *i.ApprovedAt
		out.ApprovedAt = &t
	}
	return out
}

// IconKind names the glyph a catalog entry is drawn with
type IconKind int

const (
	IconGeneric IconKind = iota
	IconBot
	IconArchitect
	IconMigration
	IconQA
	IconSitecore
	IconContent
	IconCommand
)

var iconNames = map[IconKind]string{
	IconGeneric:   "generic",
	IconBot:       "bot",
	IconArchitect: "architect",
	IconMigration: "migration",
	IconQA:        "qa",
	IconSitecore:  "sitecore",
	IconContent:   "content",
	IconCommand:   "command",
}

var iconGlyphs = map[IconKind]string{
	IconGeneric:   "•",
	IconBot:       "🤖",
	IconArchitect: "📐",
	IconMigration: "🚚",
	IconQA:        "🧪",
	IconSitecore:  "🧩",
	IconContent:   "📝",
	IconCommand:   "⚡",
}

func (k IconKind) String() string {
	if name, ok := iconNames[k]; ok {
		return name
	}
	return "generic"
}

// Glyph returns the terminal glyph for the icon
func (k IconKind) Glyph() string {
	if g, ok := iconGlyphs[k]; ok {
		return g
	}
	return iconGlyphs[IconGeneric]
}

// ParseIconKind maps a catalog name to an IconKind
func ParseIconKind(name string) (IconKind, error) {
	for k, n := range iconNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return k, nil
		}
	}
	return IconGeneric, fmt.Errorf("unknown icon kind %q", name)
}

// MarshalYAML writes the icon by name
func (k IconKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// UnmarshalYAML reads the icon by name
func (k *IconKind) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	kind, err := ParseIconKind(name)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
