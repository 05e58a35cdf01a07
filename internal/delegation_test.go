package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDelegation(t *testing.T) (*DelegationTracker, *SessionStore, SessionID, string) {
	t.Helper()
	store := newTestStore()
	sid := store.CreateSession(CreateSessionRequest{Title: "delegation"})
	stored := store.AppendMessages(sid, Message{Role: RoleAssistant, Content: "Delegating"})
	return NewDelegationTracker(store), store, sid, stored[0].ID
}

func TestApprovalControlsVisible(t *testing.T) {
	tests := []struct {
		name string
		resp AgentResponse
		want bool
	}{
		{"awaiting and required", AgentResponse{Status: AgentAwaitingApproval, RequiresApproval: true}, true},
		{"awaiting not required", AgentResponse{Status: AgentAwaitingApproval}, false},
		{"executing", AgentResponse{Status: AgentExecuting, RequiresApproval: true}, false},
		{"completed", AgentResponse{Status: AgentCompleted, RequiresApproval: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApprovalControlsVisible(tt.resp))
		})
	}
}

func TestDelegationTracker_CompleteFlow(t *testing.T) {
	tracker, store, sid, msgID := setupDelegation(t)

	resp, err := tracker.Attach(sid, msgID, AgentResponse{AgentType: AgentQA, Message: "Running checks"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, AgentExecuting, resp.Status)

	_, err = tracker.Progress(sid, msgID, resp.ID, "Compared 12 pages")
	require.NoError(t, err)
	done, err := tracker.Complete(sid, msgID, resp.ID, "All checks passed")
	require.NoError(t, err)
	assert.Equal(t, AgentCompleted, done.Status)

	msg, _ := store.Message(sid, msgID)
	require.Len(t, msg.AgentResponses, 1)
	assert.Equal(t, []string{"Compared 12 pages"}, msg.AgentResponses[0].Messages)
	assert.Equal(t, "All checks passed", msg.AgentResponses[0].Message)

	_, err = tracker.Complete(sid, msgID, resp.ID, "")
	var te *TransitionError
	assert.True(t, errors.As(err, &te))
}

func TestDelegationTracker_ApprovalFlow(t *testing.T) {
	tests := []struct {
		name       string
		approve    bool
		wantRes    Resolution
		wantCalled string
	}{
		{"approve", true, ResolutionApproved, "approve"},
		{"reject", false, ResolutionRejected, "reject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, _, sid, msgID := setupDelegation(t)
			var called []string
			resp, err := tracker.Attach(sid, msgID, AgentResponse{
				AgentType:        AgentMigration,
				RequiresApproval: true,
				OnApprove:        func() { called = append(called, "approve") },
				OnReject:         func() { called = append(called, "reject") },
			})
			require.NoError(t, err)

			_, err = tracker.Approve(sid, msgID, resp.ID)
			assert.Error(t, err, "cannot approve while executing")

			_, err = tracker.RequestApproval(sid, msgID, resp.ID, "Ready to move 40 pages")
			require.NoError(t, err)

			var out AgentResponse
			if tt.approve {
				out, err = tracker.Approve(sid, msgID, resp.ID)
			} else {
				out, err = tracker.Reject(sid, msgID, resp.ID)
			}
			require.NoError(t, err)
			assert.Equal(t, AgentCompleted, out.Status)
			assert.Equal(t, tt.wantRes, out.Resolution)
			assert.Equal(t, []string{tt.wantCalled}, called)

			_, err = tracker.Approve(sid, msgID, resp.ID)
			assert.Error(t, err, "resolved responses stay resolved")
			assert.Len(t, called, 1)
		})
	}
}

func TestDelegationTracker_NilCallbacksAreNoOps(t *testing.T) {
	tracker, _, sid, msgID := setupDelegation(t)
	resp, err := tracker.Attach(sid, msgID, AgentResponse{AgentType: AgentSitecore, RequiresApproval: true})
	require.NoError(t, err)
	_, err = tracker.RequestApproval(sid, msgID, resp.ID, "")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_, err = tracker.Reject(sid, msgID, resp.ID)
	})
	assert.NoError(t, err)
}

func TestDelegationTracker_ApprovalNotRequired(t *testing.T) {
	tracker, _, sid, msgID := setupDelegation(t)
	resp, _ := tracker.Attach(sid, msgID, AgentResponse{AgentType: AgentContent})
	_, err := tracker.RequestApproval(sid, msgID, resp.ID, "")
	require.NoError(t, err)

	_, err = tracker.Approve(sid, msgID, resp.ID)
	assert.Error(t, err, "controls are hidden when approval is not required")
}

func TestDelegationTracker_Unknown(t *testing.T) {
	tracker, _, sid, msgID := setupDelegation(t)
	_, err := tracker.Complete(sid, msgID, "missing", "")
	assert.ErrorIs(t, err, ErrResponseNotFound)
	_, err = tracker.Complete(sid, "missing", "x", "")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestGroupDelegations(t *testing.T) {
	_, ok := GroupDelegations(Message{ID: "empty"})
	assert.False(t, ok)

	g, ok := GroupDelegations(Message{ID: "m", AgentResponses: []AgentResponse{
		{ID: "a", Status: AgentExecuting},
		{ID: "b", Status: AgentAwaitingApproval, RequiresApproval: true},
		{ID: "c", Status: AgentCompleted},
		{ID: "d", Status: AgentCompleted},
	}})
	require.True(t, ok)
	assert.Equal(t, "m", g.MessageID)
	assert.Equal(t, 1, g.Executing)
	assert.Equal(t, 1, g.Awaiting)
	assert.Equal(t, 2, g.Completed)
	assert.Len(t, g.Responses, 4)
}

func TestToolCallTerminal(t *testing.T) {
	tc := ToolCall{ID: "t", Status: ToolCallExecuting}
	require.NoError(t, tc.Complete("ok"))
	assert.Equal(t, ToolCallSuccess, tc.Status)
	assert.Error(t, tc.Fail("late"))
	assert.Equal(t, ToolCallSuccess, tc.Status)

	failed := ToolCall{ID: "f", Status: ToolCallExecuting}
	require.NoError(t, failed.Fail("boom"))
	assert.Error(t, failed.Complete("late"))
	assert.Equal(t, "boom", failed.Error)
}
