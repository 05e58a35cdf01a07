package internal

import (
	"fmt"

	"github.com/google/uuid"
)

// DelegationTracker drives the lifecycle of agent responses attached to
// stored messages:
//
//	executing -> completed
//	executing -> awaiting-approval -> completed (approved | rejected)
type DelegationTracker struct {
	store *SessionStore
}

// NewDelegationTracker creates a tracker writing through store
func NewDelegationTracker(store *SessionStore) *DelegationTracker {
	return &DelegationTracker{store: store}
}

// ApprovalControlsVisible reports whether approve/reject controls apply
func ApprovalControlsVisible(resp AgentResponse) bool {
	return resp.Status == AgentAwaitingApproval && resp.RequiresApproval
}

// DelegationGroup is the per-message display grouping of agent responses
type DelegationGroup struct {
	MessageID string
	Responses []AgentResponse
	Executing int
	Awaiting  int
	Completed int
}

// GroupDelegations summarizes the agent responses of a message
func GroupDelegations(msg Message) (DelegationGroup, bool) {
	if len(msg.AgentResponses) == 0 {
		return DelegationGroup{}, false
	}
	g := DelegationGroup{MessageID: msg.ID}
	for _, r := range msg.AgentResponses {
		g.Responses = append(g.Responses, r.Clone())
		switch r.Status {
		case AgentExecuting:
			g.Executing++
		case AgentAwaitingApproval:
			g.Awaiting++
		case AgentCompleted:
			g.Completed++
		}
	}
	return g, true
}

func (t *DelegationTracker) update(sid SessionID, messageID, responseID, action string, fn func(*AgentResponse) error) (AgentResponse, error) {
	var out AgentResponse
	err := t.store.UpdateMessage(sid, messageID, func(m *Message) error {
		for i := range m.AgentResponses {
			if m.AgentResponses[i].ID != responseID {
				continue
			}
			if err := fn(&m.AgentResponses[i]); err != nil {
				return err
			}
			out = m.AgentResponses[i].Clone()
			return nil
		}
		return fmt.Errorf("%w: %s", ErrResponseNotFound, responseID)
	})
	if err != nil {
		return AgentResponse{}, err
	}
	LogDebug("Agent response %s on message %s: %s -> %s", responseID, messageID, action, out.Status)
	return out, nil
}

func invalid(resp *AgentResponse, action string) error {
	return &TransitionError{Kind: "agent_response", ID: resp.ID, From: string(resp.Status), Action: action}
}

// Attach adds a response to a stored message. Missing ids are generated and
// the status defaults to executing.
func (t *DelegationTracker) Attach(sid SessionID, messageID string, resp AgentResponse) (AgentResponse, error) {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if resp.Status == "" {
		resp.Status = AgentExecuting
	}
	err := t.store.UpdateMessage(sid, messageID, func(m *Message) error {
		m.AgentResponses = append(m.AgentResponses, resp)
		return nil
	})
	if err != nil {
		return AgentResponse{}, err
	}
	return resp.Clone(), nil
}

// Progress appends an intermediate line to an executing response
func (t *DelegationTracker) Progress(sid SessionID, messageID, responseID, line string) (AgentResponse, error) {
	return t.update(sid, messageID, responseID, "progress", func(r *AgentResponse) error {
		if r.Status != AgentExecuting {
			return invalid(r, "progress")
		}
		r.Messages = append(r.Messages, line)
		return nil
	})
}

// Complete finishes an executing response
func (t *DelegationTracker) Complete(sid SessionID, messageID, responseID, summary string) (AgentResponse, error) {
	return t.update(sid, messageID, responseID, "complete", func(r *AgentResponse) error {
		if r.Status != AgentExecuting {
			return invalid(r, "complete")
		}
		r.Status = AgentCompleted
		if summary != "" {
			r.Message = summary
		}
		return nil
	})
}

// RequestApproval parks an executing response until a human decides
func (t *DelegationTracker) RequestApproval(sid SessionID, messageID, responseID, summary string) (AgentResponse, error) {
	return t.update(sid, messageID, responseID, "request_approval", func(r *AgentResponse) error {
		if r.Status != AgentExecuting {
			return invalid(r, "request_approval")
		}
		r.Status = AgentAwaitingApproval
		if summary != "" {
			r.Message = summary
		}
		return nil
	})
}

// Approve resolves an awaiting response and invokes its OnApprove callback
func (t *DelegationTracker) Approve(sid SessionID, messageID, responseID string) (AgentResponse, error) {
	return t.resolve(sid, messageID, responseID, ResolutionApproved)
}

// Reject resolves an awaiting response and invokes its OnReject callback
func (t *DelegationTracker) Reject(sid SessionID, messageID, responseID string) (AgentResponse, error) {
	return t.resolve(sid, messageID, responseID, ResolutionRejected)
}

func (t *DelegationTracker) resolve(sid SessionID, messageID, responseID string, res Resolution) (AgentResponse, error) {
	action := "approve"
	if res == ResolutionRejected {
		action = "reject"
	}
	resp, err := t.update(sid, messageID, responseID, action, func(r *AgentResponse) error {
		if !ApprovalControlsVisible(*r) {
			return invalid(r, action)
		}
		r.Status = AgentCompleted
		r.Resolution = res
		return nil
	})
	if err != nil {
		return AgentResponse{}, err
	}

	// Callbacks run after the store lock is released; they may write back.
	callback := resp.OnApprove
	if res == ResolutionRejected {
		callback = resp.OnReject
	}
	if callback != nil {
		callback()
	}
	return resp, nil
}
