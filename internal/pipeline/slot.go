package pipeline

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/okulab/visionsim/internal/frame"
)

// Slot is the outbound hand-off between workers and presentation. It holds
// at most the single most recent result: publishing replaces any unclaimed
// older result, and a result whose sequence number does not advance past
// everything the slot has already stored or handed out is discarded. This
// keeps presentation free of head-of-line blocking and guarantees it always
// receives the newest completed work, even with multiple workers finishing
// out of order.
type Slot struct {
	mu        sync.Mutex
	res       *frame.Result
	highWater uint64 // highest seq ever stored or taken
	notify    chan struct{}

	replaced atomic.Uint64
	stale    atomic.Uint64
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{notify: make(chan struct{}, 1)}
}

// Put publishes a result. Returns false when the result is stale, i.e. not
// newer than the last one stored or taken.
func (s *Slot) Put(r frame.Result) bool {
	s.mu.Lock()
	if r.Seq <= s.highWater && s.highWater != 0 {
		s.mu.Unlock()
		s.stale.Inc()
		return false
	}
	if s.res != nil {
		s.replaced.Inc()
	}
	res := r
	s.res = &res
	s.highWater = r.Seq
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true
}

// Take removes and returns the current result, waiting up to timeout for
// one to be published. The second return value is false on timeout.
func (s *Slot) Take(timeout time.Duration) (frame.Result, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		if s.res != nil {
			r := *s.res
			s.res = nil
			s.mu.Unlock()
			return r, true
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-deadline.C:
			return frame.Result{}, false
		}
	}
}

// TryTake removes and returns the current result without waiting.
func (s *Slot) TryTake() (frame.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res == nil {
		return frame.Result{}, false
	}
	r := *s.res
	s.res = nil
	return r, true
}

// Empty reports whether no unclaimed result is present.
func (s *Slot) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res == nil
}

// Replaced returns how many unclaimed results were overwritten by newer ones.
func (s *Slot) Replaced() uint64 {
	return s.replaced.Load()
}

// StaleDiscards returns how many late results lost the sequence-number race.
func (s *Slot) StaleDiscards() uint64 {
	return s.stale.Load()
}
