package pipeline

import (
	"testing"
	"time"

	"github.com/okulab/visionsim/internal/frame"
)

func job(seq uint64) frame.Job {
	f := frame.New(frame.Shape{Width: 2, Height: 2})
	f.Seq = seq
	return frame.Job{Frame: f}
}

func TestQueueDropNewestOnFull(t *testing.T) {
	q := NewQueue(1)

	if !q.Push(job(1)) {
		t.Fatal("First push into empty queue failed")
	}
	for seq := uint64(2); seq <= 5; seq++ {
		if q.Push(job(seq)) {
			t.Errorf("Push of job %d succeeded on a full queue", seq)
		}
	}

	if got := q.Drops(); got != 4 {
		t.Errorf("Expected 4 drops, got %d", got)
	}
	if got := q.Len(); got != 1 {
		t.Errorf("Expected 1 retained job, got %d", got)
	}

	// The retained job must be the oldest one, not a later arrival.
	j, ok := q.Pop(10 * time.Millisecond)
	if !ok {
		t.Fatal("Pop failed on non-empty queue")
	}
	if j.Seq() != 1 {
		t.Errorf("Expected retained job seq 1, got %d", j.Seq())
	}
}

func TestQueuePopTimesOutWhenEmpty(t *testing.T) {
	q := NewQueue(2)

	start := time.Now()
	_, ok := q.Pop(20 * time.Millisecond)
	if ok {
		t.Fatal("Pop returned a job from an empty queue")
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("Pop returned before the timeout elapsed: %v", elapsed)
	}
}

func TestQueuePopWakesOnPush(t *testing.T) {
	q := NewQueue(2)

	go func() {
		time.Sleep(5 * time.Millisecond)
		q.Push(job(9))
	}()

	j, ok := q.Pop(time.Second)
	if !ok {
		t.Fatal("Pop timed out despite a concurrent push")
	}
	if j.Seq() != 9 {
		t.Errorf("Expected job seq 9, got %d", j.Seq())
	}
}

func TestQueueMinimumCapacity(t *testing.T) {
	q := NewQueue(0)
	if q.Cap() != 1 {
		t.Errorf("Expected capacity clamp to 1, got %d", q.Cap())
	}
}
