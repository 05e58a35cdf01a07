package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/iksnae/workspace-chat/internal"
	"gopkg.in/yaml.v3"
)

// Script is a recorded sequence of host intents replayed against a
// workspace on a manual clock
type Script struct {
	Name  string       `yaml:"name"`
	Steps []ScriptStep `yaml:"steps"`
}

// ScriptStep holds exactly one intent
type ScriptStep struct {
	Send              string         `yaml:"send,omitempty"`
	Task              string         `yaml:"task,omitempty"`
	NewChat           bool           `yaml:"new_chat,omitempty"`
	Select            string         `yaml:"select,omitempty"`
	Inbox             *InboxStep     `yaml:"inbox,omitempty"`
	ApproveDelegation *DelegationRef `yaml:"approve_delegation,omitempty"`
	RejectDelegation  *DelegationRef `yaml:"reject_delegation,omitempty"`
	OpenItem          string         `yaml:"open_item,omitempty"`
	Navigate          string         `yaml:"navigate,omitempty"`
	Close             bool           `yaml:"close,omitempty"`
	Wait              string         `yaml:"wait,omitempty"`
	Flush             bool           `yaml:"flush,omitempty"`
}

// InboxStep resolves an inbox item
type InboxStep struct {
	ID     string               `yaml:"id"`
	Action internal.InboxAction `yaml:"action"`
	Note   string               `yaml:"note,omitempty"`
}

// DelegationRef picks an awaiting agent response by agent handle. An empty
// handle picks the first one.
type DelegationRef struct {
	Agent string `yaml:"agent,omitempty"`
}

// Kind names the intent a step holds, or "" when it holds none or several
func (s ScriptStep) Kind() string {
	var kinds []string
	add := func(set bool, name string) {
		if set {
			kinds = append(kinds, name)
		}
	}
	add(s.Send != "", "send")
	add(s.Task != "", "task")
	add(s.NewChat, "new_chat")
	add(s.Select != "", "select")
	add(s.Inbox != nil, "inbox")
	add(s.ApproveDelegation != nil, "approve_delegation")
	add(s.RejectDelegation != nil, "reject_delegation")
	add(s.OpenItem != "", "open_item")
	add(s.Navigate != "", "navigate")
	add(s.Close, "close")
	add(s.Wait != "", "wait")
	add(s.Flush, "flush")
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// LoadScript reads and validates a script file
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &internal.ParseError{Source: "script", Key: path, Err: err}
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &internal.ParseError{Source: "script", Key: path, Err: err}
	}
	if err := s.Validate(); err != nil {
		return nil, &internal.ParseError{Source: "script", Key: path, Err: err}
	}
	return &s, nil
}

// Validate checks that every step holds one well-formed intent
func (s *Script) Validate() error {
	var errs []error
	for i, step := range s.Steps {
		switch step.Kind() {
		case "":
			errs = append(errs, fmt.Errorf("step %d: must hold exactly one action", i+1))
		case "wait":
			if d, err := time.ParseDuration(step.Wait); err != nil || d < 0 {
				errs = append(errs, fmt.Errorf("step %d: invalid wait %q", i+1, step.Wait))
			}
		case "inbox":
			if step.Inbox.ID == "" {
				errs = append(errs, fmt.Errorf("step %d: inbox step needs an id", i+1))
			}
			switch step.Inbox.Action {
			case internal.ActionApprove, internal.ActionReject, internal.ActionReply:
			default:
				errs = append(errs, fmt.Errorf("step %d: unknown inbox action %q", i+1, step.Inbox.Action))
			}
		}
	}
	return errors.Join(errs...)
}

// scriptRunner replays a script against one workspace
type scriptRunner struct {
	orch      *internal.Orchestrator
	sched     *internal.ManualScheduler
	log       io.Writer
	keepGoing bool
}

func (r *scriptRunner) Run(ctx context.Context, s *Script) error {
	for i, step := range s.Steps {
		kind := step.Kind()
		if err := r.step(ctx, step); err != nil {
			if !r.keepGoing {
				return fmt.Errorf("step %d (%s): %w", i+1, kind, err)
			}
			internal.PrintWarning(r.log, fmt.Sprintf("step %d (%s): %v", i+1, kind, err))
			continue
		}
		internal.LogDebug("Step %d (%s) done, %d task(s) pending", i+1, kind, r.sched.Pending())
	}
	r.sched.Flush()
	return nil
}

func (r *scriptRunner) step(ctx context.Context, step ScriptStep) error {
	switch step.Kind() {
	case "send":
		_, err := r.orch.SendMessage(ctx, step.Send)
		return err
	case "task":
		_, err := r.orch.RunTaskPrompt(ctx, step.Task)
		return err
	case "new_chat":
		r.orch.NewChat()
		return nil
	case "select":
		meta, ok := r.orch.Store().Find(step.Select)
		if !ok {
			return fmt.Errorf("%w: %s", internal.ErrSessionNotFound, step.Select)
		}
		return r.orch.SelectSession(meta.ID)
	case "inbox":
		return r.orch.ResolveInboxItem(ctx, step.Inbox.ID, step.Inbox.Action, step.Inbox.Note)
	case "approve_delegation":
		return resolveDelegation(r.orch, step.ApproveDelegation.Agent, true)
	case "reject_delegation":
		return resolveDelegation(r.orch, step.RejectDelegation.Agent, false)
	case "open_item":
		_, err := r.orch.OpenItemInChat(ctx, step.OpenItem)
		return err
	case "navigate":
		return r.orch.NavigateToTask(step.Navigate)
	case "close":
		sid, ok := r.orch.Store().Selected()
		if !ok {
			return internal.ErrSessionNotFound
		}
		r.orch.CloseSession(sid)
		return nil
	case "wait":
		d, err := time.ParseDuration(step.Wait)
		if err != nil {
			return err
		}
		r.sched.Advance(d)
		return nil
	case "flush":
		r.sched.Flush()
		return nil
	default:
		return errors.New("step must hold exactly one action")
	}
}

// findAwaiting returns the newest agent response in timeline that waits for
// approval, optionally restricted to one agent handle
func findAwaiting(timeline []internal.Message, agent string) (messageID, responseID string, ok bool) {
	for i := len(timeline) - 1; i >= 0; i-- {
		msg := timeline[i]
		for _, r := range msg.AgentResponses {
			if !internal.ApprovalControlsVisible(r) {
				continue
			}
			if agent == "" || strings.EqualFold(r.Agent, agent) || strings.EqualFold(string(r.AgentType), agent) {
				return msg.ID, r.ID, true
			}
		}
	}
	return "", "", false
}

func resolveDelegation(orch *internal.Orchestrator, agent string, approve bool) error {
	msgID, respID, ok := findAwaiting(orch.Timeline(), agent)
	if !ok {
		if agent == "" {
			return internal.ErrResponseNotFound
		}
		return fmt.Errorf("%w: no response from @%s awaits approval", internal.ErrResponseNotFound, agent)
	}
	if approve {
		return orch.ApproveDelegation(msgID, respID)
	}
	return orch.RejectDelegation(msgID, respID)
}
