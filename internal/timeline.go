package internal

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// TimelineOrder selects the key the merged timeline is sorted by
type TimelineOrder int

const (
	// OrderTimeOfDay sorts on the display timestamp parsed as a time of day.
	// Messages from different days interleave by clock time.
	OrderTimeOfDay TimelineOrder = iota
	// OrderEpoch sorts on creation time, then sequence number
	OrderEpoch
)

// ParseTimelineOrder maps "epoch" to OrderEpoch and anything else to OrderTimeOfDay
func ParseTimelineOrder(name string) TimelineOrder {
	if name == "epoch" {
		return OrderEpoch
	}
	return OrderTimeOfDay
}

func (o TimelineOrder) String() string {
	if o == OrderEpoch {
		return "epoch"
	}
	return "time-of-day"
}

// Stream is a transient, append-only message stream scoped to one session
type Stream struct {
	SessionID SessionID
	Messages  []Message
}

const unparsedKey = time.Duration(math.MaxInt64)

// MergeTimeline concatenates the persisted messages of the active session
// with every stream belonging to it and sorts the result. Messages sharing a
// display minute fall back to Seq, the store's insertion counter; the sort is
// stable, so unsequenced messages keep concatenation order. Streams for
// other sessions are ignored.
func MergeTimeline(active SessionID, persisted []Message, order TimelineOrder, streams ...Stream) []Message {
	merged := make([]Message, 0, len(persisted))
	for _, m := range persisted {
		merged = append(merged, m.Clone())
	}
	for _, s := range streams {
		if s.SessionID != active || active == "" {
			continue
		}
		for _, m := range s.Messages {
			merged = append(merged, m.Clone())
		}
	}

	switch order {
	case OrderEpoch:
		slices.SortStableFunc(merged, func(a, b Message) int {
			if c := cmp.Compare(epochKey(a), epochKey(b)); c != 0 {
				return c
			}
			return cmp.Compare(a.Seq, b.Seq)
		})
	default:
		slices.SortStableFunc(merged, func(a, b Message) int {
			if c := cmp.Compare(timeOfDayKey(a), timeOfDayKey(b)); c != 0 {
				return c
			}
			return cmp.Compare(a.Seq, b.Seq)
		})
	}
	return merged
}

// timeOfDayKey parses the display timestamp. Unparsable strings fall back to
// the creation time's clock time and sort last when that is missing too.
func timeOfDayKey(m Message) time.Duration {
	if d, ok := ParseTimeOfDay(m.Timestamp); ok {
		return d
	}
	if !m.CreatedAt.IsZero() {
		return timeOfDay(m.CreatedAt)
	}
	return unparsedKey
}

func epochKey(m Message) int64 {
	if m.CreatedAt.IsZero() {
		return math.MaxInt64
	}
	return m.CreatedAt.UnixNano()
}
