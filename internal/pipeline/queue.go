package pipeline

import (
	"time"

	"go.uber.org/atomic"

	"github.com/okulab/visionsim/internal/frame"
)

// Queue is the bounded inbound job queue between the capture loop and the
// workers. Its overflow policy is drop-newest-on-full: when the queue is
// full the incoming job is discarded so a slow worker keeps draining the
// jobs it already has instead of accumulating an ever-staler backlog.
// Drops are expected load shedding, counted but never reported as errors.
type Queue struct {
	ch    chan frame.Job
	drops atomic.Uint64
}

// NewQueue creates a queue with the given fixed capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan frame.Job, capacity)}
}

// Push attempts to enqueue a job. It never blocks; when the queue is full
// the job is dropped, the drop counter incremented and false returned.
func (q *Queue) Push(j frame.Job) bool {
	select {
	case q.ch <- j:
		return true
	default:
		q.drops.Inc()
		return false
	}
}

// Pop dequeues one job, waiting up to timeout. The second return value is
// false when the wait timed out.
func (q *Queue) Pop(timeout time.Duration) (frame.Job, bool) {
	select {
	case j := <-q.ch:
		return j, true
	default:
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case j := <-q.ch:
		return j, true
	case <-t.C:
		return frame.Job{}, false
	}
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the fixed queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Drops returns the number of jobs discarded because the queue was full.
func (q *Queue) Drops() uint64 {
	return q.drops.Load()
}
