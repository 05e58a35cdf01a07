package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ResponseRequest is what the assistant is asked to answer
type ResponseRequest struct {
	SessionID SessionID
	Prompt    string
	Mentions  []AgentProfile
	Command   *CommandSpec
}

// Responder produces the assistant's reply to a user message
type Responder interface {
	Respond(ctx context.Context, req ResponseRequest) Message
}

// CannedResponder returns deterministic replies. Mentioned agents become
// executing agent responses and a leading command becomes a tool call.
type CannedResponder struct{}

// Respond builds the canned assistant message
func (CannedResponder) Respond(ctx context.Context, req ResponseRequest) Message {
	msg := Message{Role: RoleAssistant}
	prompt := strings.TrimSpace(req.Prompt)

	var b strings.Builder
	switch {
	case req.Command != nil:
		fmt.Fprintf(&b, "Running %s.", req.Command.Label)
		if len(prompt) > len(req.Command.Label) && strings.EqualFold(prompt[:len(req.Command.Label)], req.Command.Label) {
			if rest := strings.TrimSpace(prompt[len(req.Command.Label):]); rest != "" {
				fmt.Fprintf(&b, " Scope: %s.", rest)
			}
		}
	default:
		fmt.Fprintf(&b, "Got it. Here is how I'd approach %q.", truncate(prompt, 60))
	}

	if len(req.Mentions) > 0 {
		names := make([]string, 0, len(req.Mentions))
		for _, a := range req.Mentions {
			names = append(names, a.Name)
		}
		fmt.Fprintf(&b, " Delegating to %s.", strings.Join(names, ", "))
		msg.Reasoning = fmt.Sprintf("The request mentions %d agent(s); each gets its own sub-task.", len(req.Mentions))
		msg.ReasoningDuration = len(req.Mentions) * 2
	}
	msg.Content = b.String()

	for _, a := range req.Mentions {
		msg.AgentResponses = append(msg.AgentResponses, AgentResponse{
			ID:               uuid.NewString(),
			Agent:            a.Handle,
			AgentType:        a.Type,
			Message:          fmt.Sprintf("%s is working on it", a.Name),
			Messages:         []string{"Reading the request"},
			Status:           AgentExecuting,
			RequiresApproval: a.RequiresApproval,
		})
	}

	if req.Command != nil && req.Command.Tool != "" {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:       uuid.NewString(),
			ToolName: req.Command.Tool,
			Input:    prompt,
			Status:   ToolCallExecuting,
		})
		msg.Artifacts = append(msg.Artifacts, Artifact{
			ID:      uuid.NewString(),
			Title:   req.Command.Label + " plan",
			Kind:    "plan",
			Content: fmt.Sprintf("1. Inventory\n2. %s\n3. Verify", req.Command.Label),
		})
	}
	return msg
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
