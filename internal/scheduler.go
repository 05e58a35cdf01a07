package internal

import (
	"sort"
	"sync"
	"time"
)

// Task is a handle to a scheduled callback
type Task interface {
	// Cancel stops the callback. It reports false if the callback already
	// ran or was cancelled.
	Cancel() bool
}

// Scheduler runs callbacks after a delay. Every task belongs to a scope
// (usually a session id) so that all work for a torn-down session can be
// cancelled at once.
type Scheduler interface {
	Schedule(scope string, delay time.Duration, fn func()) Task
	CancelScope(scope string) int
}

// RealScheduler fires callbacks from time.AfterFunc goroutines
type RealScheduler struct {
	mu     sync.Mutex
	nextID uint64
	timers map[string]map[uint64]*time.Timer
}

// NewRealScheduler creates a wall-clock scheduler
func NewRealScheduler() *RealScheduler {
	return &RealScheduler{timers: make(map[string]map[uint64]*time.Timer)}
}

type realTask struct {
	s     *RealScheduler
	scope string
	id    uint64
}

func (t *realTask) Cancel() bool {
	timer, ok := t.s.take(t.scope, t.id)
	if !ok {
		return false
	}
	timer.Stop()
	return true
}

// Schedule runs fn after delay unless the task or its scope is cancelled first
func (s *RealScheduler) Schedule(scope string, delay time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	timer := time.AfterFunc(delay, func() {
		if _, ok := s.take(scope, id); ok {
			fn()
		}
	})
	if s.timers[scope] == nil {
		s.timers[scope] = make(map[uint64]*time.Timer)
	}
	s.timers[scope][id] = timer
	return &realTask{s: s, scope: scope, id: id}
}

func (s *RealScheduler) take(scope string, id uint64) (*time.Timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.timers[scope][id]
	if !ok {
		return nil, false
	}
	delete(s.timers[scope], id)
	if len(s.timers[scope]) == 0 {
		delete(s.timers, scope)
	}
	return timer, true
}

// CancelScope stops every pending task in scope and returns how many were stopped
func (s *RealScheduler) CancelScope(scope string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, timer := range s.timers[scope] {
		if timer.Stop() {
			n++
		}
	}
	delete(s.timers, scope)
	return n
}

// Stop cancels all pending tasks
func (s *RealScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for scope, timers := range s.timers {
		for _, timer := range timers {
			timer.Stop()
		}
		delete(s.timers, scope)
	}
}

// ManualScheduler only fires callbacks when its virtual clock is advanced.
// It backs tests and scripted runs.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	nextID  uint64
	pending []*manualTask
}

type manualTask struct {
	s     *ManualScheduler
	id    uint64
	scope string
	due   time.Duration
	fn    func()
}

// NewManualScheduler creates a scheduler whose clock starts at zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (t *manualTask) Cancel() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.remove(t.id)
}

// Schedule queues fn to run once the virtual clock reaches now+delay
func (s *ManualScheduler) Schedule(scope string, delay time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{s: s, id: s.nextID, scope: scope, due: s.now + delay, fn: fn}
	s.nextID++
	s.pending = append(s.pending, t)
	return t
}

// CancelScope drops every pending task in scope
func (s *ManualScheduler) CancelScope(scope string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pending[:0]
	n := 0
	for _, t := range s.pending {
		if t.scope == scope {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.pending = kept
	return n
}

func (s *ManualScheduler) remove(id uint64) bool {
	for i, t := range s.pending {
		if t.id == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// next pops the earliest task due at or before limit. Ties run in
// scheduling order.
func (s *ManualScheduler) next(limit time.Duration) *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	sort.SliceStable(s.pending, func(i, j int) bool {
		if s.pending[i].due != s.pending[j].due {
			return s.pending[i].due < s.pending[j].due
		}
		return s.pending[i].id < s.pending[j].id
	})
	t := s.pending[0]
	if t.due > limit {
		return nil
	}
	s.pending = s.pending[1:]
	if t.due > s.now {
		s.now = t.due
	}
	return t
}

// Advance moves the virtual clock forward by d, running every task that
// becomes due (including tasks scheduled by callbacks). It returns the
// number of callbacks run.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	limit := s.now + d
	s.mu.Unlock()

	ran := 0
	for t := s.next(limit); t != nil; t = s.next(limit) {
		t.fn()
		ran++
	}

	s.mu.Lock()
	if s.now < limit {
		s.now = limit
	}
	s.mu.Unlock()
	return ran
}

// Flush runs tasks until none are pending
func (s *ManualScheduler) Flush() int {
	ran := 0
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return ran
		}
		var latest time.Duration
		for _, t := range s.pending {
			if t.due > latest {
				latest = t.due
			}
		}
		d := latest - s.now
		s.mu.Unlock()
		ran += s.Advance(d)
	}
}

// Pending returns the number of queued tasks
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Now returns the virtual clock
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
