package internal

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestMergeTimeline_OrdersByTimeOfDay(t *testing.T) {
	persisted := []Message{
		CreateTestMessage("p1", RoleUser, "start", "9:00 AM"),
		CreateTestMessage("p2", RoleAssistant, "later", "2:00 PM"),
	}
	inbox := Stream{SessionID: "s1", Messages: []Message{
		CreateTestMessage("i1", RoleUser, "I approve", "11:30 AM"),
	}}
	task := Stream{SessionID: "s1", Messages: []Message{
		CreateTestMessage("t1", RoleUser, "run task", "10:15 AM"),
	}}

	got := MergeTimeline("s1", persisted, OrderTimeOfDay, inbox, task)
	assert.Equal(t, []string{"p1", "t1", "i1", "p2"}, ids(got))
}

func TestMergeTimeline_StableTies(t *testing.T) {
	persisted := []Message{
		CreateTestMessage("a", RoleUser, "a", "10:00 AM"),
		CreateTestMessage("b", RoleAssistant, "b", "10:00 AM"),
	}
	stream := Stream{SessionID: "s1", Messages: []Message{
		CreateTestMessage("c", RoleUser, "c", "10:00 AM"),
		CreateTestMessage("d", RoleAssistant, "d", "10:00 AM"),
	}}

	got := MergeTimeline("s1", persisted, OrderTimeOfDay, stream)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
}

func TestMergeTimeline_SameMinuteUsesSeq(t *testing.T) {
	prompt := CreateTestMessage("prompt", RoleUser, "run task", "10:00 AM")
	prompt.Seq = 4
	reply := CreateTestMessage("reply", RoleAssistant, "done", "10:00 AM")
	reply.Seq = 5
	earlier := CreateTestMessage("earlier", RoleUser, "hi", "9:59 AM")
	earlier.Seq = 9

	persisted := []Message{earlier, reply}
	task := Stream{SessionID: "s1", Messages: []Message{prompt}}

	got := MergeTimeline("s1", persisted, OrderTimeOfDay, task)
	assert.Equal(t, []string{"earlier", "prompt", "reply"}, ids(got))
}

func TestMergeTimeline_IgnoresOtherSessions(t *testing.T) {
	persisted := []Message{CreateTestMessage("p1", RoleUser, "mine", "9:00 AM")}
	foreign := Stream{SessionID: "s2", Messages: []Message{
		CreateTestMessage("x", RoleUser, "theirs", "8:00 AM"),
	}}

	got := MergeTimeline("s1", persisted, OrderTimeOfDay, foreign)
	assert.Equal(t, []string{"p1"}, ids(got))

	got = MergeTimeline("", nil, OrderTimeOfDay, Stream{Messages: foreign.Messages})
	assert.Empty(t, got)
}

func TestMergeTimeline_UnparsableTimestamps(t *testing.T) {
	created := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	persisted := []Message{
		CreateTestMessage("nowhere", RoleUser, "?", "soon"),
		{ID: "fallback", Role: RoleUser, Timestamp: "n/a", CreatedAt: created},
		CreateTestMessage("early", RoleUser, "e", "9:00 AM"),
		CreateTestMessage("late", RoleUser, "l", "11:00 AM"),
	}

	got := MergeTimeline("s1", persisted, OrderTimeOfDay)
	assert.Equal(t, []string{"early", "fallback", "late", "nowhere"}, ids(got))
}

func TestMergeTimeline_EpochOrder(t *testing.T) {
	day1 := time.Date(2026, 1, 14, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 15, 1, 0, 0, 0, time.UTC)
	persisted := []Message{
		{ID: "tomorrow", Timestamp: "1:00 AM", CreatedAt: day2, Seq: 2},
		{ID: "tonight", Timestamp: "11:00 PM", CreatedAt: day1, Seq: 1},
	}

	assert.Equal(t, []string{"tomorrow", "tonight"}, ids(MergeTimeline("s", persisted, OrderTimeOfDay)))
	assert.Equal(t, []string{"tonight", "tomorrow"}, ids(MergeTimeline("s", persisted, OrderEpoch)))
}

func TestMergeTimeline_DoesNotAliasInputs(t *testing.T) {
	persisted := []Message{{
		ID:        "p",
		Timestamp: "9:00 AM",
		ToolCalls: []ToolCall{{ID: "t", Status: ToolCallExecuting}},
	}}

	got := MergeTimeline("s", persisted, OrderTimeOfDay)
	got[0].ToolCalls[0].Status = ToolCallError
	assert.Equal(t, ToolCallExecuting, persisted[0].ToolCalls[0].Status)
}

// Any interleaving of the same inputs must produce an output ordered by
// time of day, with equal timestamps kept in concatenation order.
func TestMergeTimeline_OrderingInvariant(t *testing.T) {
	stamps := []string{"9:00 AM", "9:05 AM", "10:00 AM", "12:30 PM", "1:00 PM", "11:59 PM"}
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		var persisted, inbox, task []Message
		for i := 0; i < 12; i++ {
			m := CreateTestMessage(string(rune('a'+i)), RoleUser, "", stamps[rng.Intn(len(stamps))])
			switch rng.Intn(3) {
			case 0:
				persisted = append(persisted, m)
			case 1:
				inbox = append(inbox, m)
			default:
				task = append(task, m)
			}
		}

		got := MergeTimeline("s", persisted, OrderTimeOfDay,
			Stream{SessionID: "s", Messages: inbox},
			Stream{SessionID: "s", Messages: task})
		require.Len(t, got, 12)

		concat := append(append(append([]Message{}, persisted...), inbox...), task...)
		position := map[string]int{}
		for i, m := range concat {
			position[m.ID] = i
		}
		for i := 1; i < len(got); i++ {
			prev, _ := ParseTimeOfDay(got[i-1].Timestamp)
			cur, _ := ParseTimeOfDay(got[i].Timestamp)
			require.LessOrEqual(t, prev, cur)
			if prev == cur {
				require.Less(t, position[got[i-1].ID], position[got[i].ID])
			}
		}
	}
}

func TestParseTimelineOrder(t *testing.T) {
	assert.Equal(t, OrderEpoch, ParseTimelineOrder("epoch"))
	assert.Equal(t, OrderTimeOfDay, ParseTimelineOrder("time-of-day"))
	assert.Equal(t, OrderTimeOfDay, ParseTimelineOrder(""))
	assert.Equal(t, "epoch", OrderEpoch.String())
}
