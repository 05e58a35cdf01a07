package internal

import (
	"fmt"
	"strings"
	"sync"
)

// InboxAction is a human decision on an inbox item
type InboxAction string

const (
	ActionApprove InboxAction = "approve"
	ActionReject  InboxAction = "reject"
	ActionReply   InboxAction = "reply"
)

// DefaultRejectReason is recorded when a rejection carries no note
const DefaultRejectReason = "Rejected without additional feedback"

// Inbox holds inbox items and enforces their state machine:
//
//	pending        -> approved | rejected | info-requested
//	info-requested -> pending | info-requested (reply)
//	any            -> archived (host only)
type Inbox struct {
	mu         sync.RWMutex
	clock      Clock
	items      []*InboxItem
	index      map[string]*InboxItem
	processing map[string]bool
}

// NewInbox creates an inbox seeded with items
func NewInbox(clock Clock, items ...InboxItem) *Inbox {
	if clock == nil {
		clock = SystemClock()
	}
	b := &Inbox{
		clock:      clock,
		index:      make(map[string]*InboxItem),
		processing: make(map[string]bool),
	}
	for _, item := range items {
		if err := b.Add(item); err != nil {
			LogWarn("Skipping inbox item: %v", err)
		}
	}
	return b
}

// Add inserts an item. Items without a status start pending.
func (b *Inbox) Add(item InboxItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if item.ID == "" {
		return fmt.Errorf("inbox item %q has no id", item.Title)
	}
	if _, ok := b.index[item.ID]; ok {
		return fmt.Errorf("duplicate inbox item %s", item.ID)
	}
	if item.Status == "" {
		item.Status = InboxPending
	}
	if item.Type == "" {
		item.Type = InboxApproval
	}
	stored := item.Clone()
	b.items = append(b.items, &stored)
	b.index[item.ID] = &stored
	return nil
}

// Items returns copies of all items in insertion order
func (b *Inbox) Items() []InboxItem {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]InboxItem, 0, len(b.items))
	for _, item := range b.items {
		out = append(out, item.Clone())
	}
	return out
}

// ByStatus returns the items currently in status
func (b *Inbox) ByStatus(status InboxStatus) []InboxItem {
	var out []InboxItem
	for _, item := range b.Items() {
		if item.Status == status {
			out = append(out, item)
		}
	}
	return out
}

// Item returns a copy of one item
func (b *Inbox) Item(id string) (InboxItem, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	item, ok := b.index[id]
	if !ok {
		return InboxItem{}, false
	}
	return item.Clone(), true
}

func (b *Inbox) transition(id string, action string, allowed []InboxStatus, apply func(*InboxItem)) (InboxItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	item, ok := b.index[id]
	if !ok {
		return InboxItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	permitted := false
	for _, s := range allowed {
		if item.Status == s {
			permitted = true
			break
		}
	}
	if !permitted {
		return InboxItem{}, &TransitionError{Kind: "inbox_item", ID: id, From: string(item.Status), Action: action}
	}
	apply(item)
	LogDebug("Inbox item %s -> %s (%s)", id, item.Status, action)
	return item.Clone(), nil
}

// Approve moves a pending item to approved and stamps who approved it and when
func (b *Inbox) Approve(id, by string) (InboxItem, error) {
	return b.transition(id, "approve", []InboxStatus{InboxPending}, func(item *InboxItem) {
		now := b.clock.Now()
		item.Status = InboxApproved
		item.ApprovedBy = by
		item.ApprovedAt = &now
	})
}

// Reject moves a pending item to rejected. A blank note records
// DefaultRejectReason.
func (b *Inbox) Reject(id, note string) (InboxItem, error) {
	reason := strings.TrimSpace(note)
	if reason == "" {
		reason = DefaultRejectReason
	}
	return b.transition(id, "reject", []InboxStatus{InboxPending}, func(item *InboxItem) {
		item.Status = InboxRejected
		item.RejectedReason = reason
	})
}

// RequestInfo moves a pending item to info-requested
func (b *Inbox) RequestInfo(id, question string) (InboxItem, error) {
	return b.transition(id, "request_info", []InboxStatus{InboxPending}, func(item *InboxItem) {
		item.Status = InboxInfoRequested
		if q := strings.TrimSpace(question); q != "" {
			item.RequestedInfo = q
		}
	})
}

// Reply records an inline reply. Approval items return to pending so they
// can be decided; info-request items stay in info-requested.
func (b *Inbox) Reply(id, text string) (InboxItem, error) {
	reply := strings.TrimSpace(text)
	if reply == "" {
		return InboxItem{}, ErrBlankInput
	}
	return b.transition(id, "reply", []InboxStatus{InboxPending, InboxInfoRequested}, func(item *InboxItem) {
		item.InlineReply = reply
		if item.Type == InboxInfoRequest {
			item.Status = InboxInfoRequested
		} else {
			item.Status = InboxPending
		}
	})
}

// Archive hides an item from every other state
func (b *Inbox) Archive(id string) (InboxItem, error) {
	return b.transition(id, "archive",
		[]InboxStatus{InboxPending, InboxApproved, InboxRejected, InboxInfoRequested},
		func(item *InboxItem) { item.Status = InboxArchived })
}

// SetProcessing toggles the optimistic in-flight flag
func (b *Inbox) SetProcessing(id string, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if on {
		b.processing[id] = true
	} else {
		delete(b.processing, id)
	}
}

// Processing reports whether an action on the item is still in flight
func (b *Inbox) Processing(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.processing[id]
}
