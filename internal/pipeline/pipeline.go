// Package pipeline implements the real-time frame processing pipeline:
// a capture loop, one or more transform workers and a presentation loop
// running on separate goroutines, decoupled by a bounded drop-newest job
// queue and a latest-wins result slot. The pipeline degrades gracefully
// under load: frames are shed silently and the display falls back to the
// last successfully shown frame rather than stalling.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/okulab/visionsim/internal/frame"
	"github.com/okulab/visionsim/internal/source"
)

// State describes the lifecycle of a pipeline stage.
type State int32

// Stage lifecycle states.
const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Transform turns one frame into a processed frame for the given severity.
// Implementations must be pure functions of their inputs plus state
// precomputed at construction; the pipeline guarantees a transform instance
// is never invoked from two workers at once unless Workers > 1, in which
// case the transform must be safe for concurrent Apply calls.
type Transform interface {
	Apply(f *frame.Frame, severity float64) (*frame.Frame, error)
}

// Sink receives processed frames from the presentation loop. Present must
// be non-blocking or bounded-latency.
type Sink interface {
	Present(f *frame.Frame) error
}

// Config carries the pipeline tunables. Zero values are replaced by
// defaults in New.
type Config struct {
	// QueueCapacity is the inbound queue size (default 4).
	QueueCapacity int
	// Workers is the number of transform workers (default 1).
	Workers int
	// PollTimeout bounds each worker wait on the inbound queue (default 20ms).
	PollTimeout time.Duration
	// TickInterval is the presentation tick period (default 33ms, ~30 FPS).
	TickInterval time.Duration
	// SeverityFloor is the fast-path threshold: jobs whose sampled severity
	// is below it skip the transform entirely (default 0.005).
	SeverityFloor float64
	// OnTransformError, when set, receives per-job transform failures.
	// The failing job's frame is always passed through unprocessed.
	OnTransformError func(seq uint64, err error)

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 4
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 20 * time.Millisecond
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 33 * time.Millisecond
	}
	if c.SeverityFloor <= 0 {
		c.SeverityFloor = 0.005
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Pipeline connects a frame source, a transform and a sink across three
// concurrent stages. Construct with New, drive with Run.
type Pipeline struct {
	cfg       Config
	src       source.FrameSource
	transform Transform
	sink      Sink
	logger    *slog.Logger

	severity atomic.Float64

	inbound  *Queue
	outbound *Slot
	ctrs     counters

	captureState atomic.Int32
	workerState  atomic.Int32
	presentState atomic.Int32

	captureDone chan struct{}
	workersDone chan struct{}
	done        chan struct{}
	srcErr      chan error

	started atomic.Bool
}

// New creates a pipeline. The source must already be open and the transform
// built for the source's frame shape.
func New(src source.FrameSource, transform Transform, sink Sink, cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		cfg:         cfg,
		src:         src,
		transform:   transform,
		sink:        sink,
		logger:      cfg.Logger,
		inbound:     NewQueue(cfg.QueueCapacity),
		outbound:    NewSlot(),
		captureDone: make(chan struct{}),
		workersDone: make(chan struct{}),
		done:        make(chan struct{}),
		srcErr:      make(chan error, 1),
	}
}

// SetSeverity updates the shared severity cell, clamping to [0, 1].
// Safe to call from any goroutine at any time; workers pick up the new
// value on the next job they enqueue.
func (p *Pipeline) SetSeverity(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.severity.Store(v)
}

// Severity returns the current severity value.
func (p *Pipeline) Severity() float64 {
	return p.severity.Load()
}

// CaptureState returns the capture stage state.
func (p *Pipeline) CaptureState() State { return State(p.captureState.Load()) }

// WorkerState returns the worker stage state.
func (p *Pipeline) WorkerState() State { return State(p.workerState.Load()) }

// PresentState returns the presentation stage state.
func (p *Pipeline) PresentState() State { return State(p.presentState.Load()) }

// Done is closed once all three stages have stopped.
func (p *Pipeline) Done() <-chan struct{} { return p.done }

// Run drives the pipeline until the source is exhausted, the source fails,
// or ctx is cancelled. It blocks for the whole session and only returns
// after all three stages have stopped, so callers may release the source
// and sink as soon as it does. The returned error is non-nil only for a
// source failure; exhaustion and cancellation are normal terminations.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New("pipeline already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.logger.Info("Pipeline starting",
		"queue_capacity", p.cfg.QueueCapacity,
		"workers", p.cfg.Workers,
		"tick", p.cfg.TickInterval)

	go p.captureLoop(ctx)

	var wg sync.WaitGroup
	p.workerState.Store(int32(StateRunning))
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.workerLoop(ctx)
		}()
	}
	go func() {
		wg.Wait()
		p.workerState.Store(int32(StateStopped))
		close(p.workersDone)
	}()

	// Once capture stops, remaining queued jobs are drained, not abandoned.
	go func() {
		select {
		case <-p.captureDone:
			p.workerState.CompareAndSwap(int32(StateRunning), int32(StateDraining))
		case <-p.done:
		}
	}()

	p.presentLoop(ctx)
	p.presentState.Store(int32(StateStopped))

	// The presenter only exits after workers are done or on cancellation;
	// in the latter case capture may still be blocked in a source read.
	<-p.workersDone
	close(p.done)

	err := <-p.srcErr
	if err != nil {
		p.logger.Error("Pipeline stopped on source failure", "error", err)
		return err
	}
	p.logger.Info("Pipeline stopped", "stats", p.Stats())
	return nil
}

// captureLoop reads frames from the source, tags them with sequence
// numbers, samples the severity cell and enqueues jobs under the queue's
// drop-newest policy. Source exhaustion and cancellation end the loop
// normally; a source failure is surfaced through Run.
func (p *Pipeline) captureLoop(ctx context.Context) {
	p.captureState.Store(int32(StateRunning))
	defer func() {
		p.captureState.Store(int32(StateStopped))
		close(p.captureDone)
	}()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			p.srcErr <- nil
			return
		default:
		}

		f, err := p.src.Read()
		if err != nil {
			if errors.Is(err, source.ErrExhausted) {
				p.logger.Debug("Source exhausted", "frames", seq)
				p.srcErr <- nil
				return
			}
			p.srcErr <- fmt.Errorf("source read: %w", err)
			return
		}

		seq++
		f.Seq = seq
		p.ctrs.captured.Inc()
		p.inbound.Push(frame.Job{Frame: f, Severity: p.severity.Load()})
	}
}

// workerLoop polls the inbound queue with a bounded timeout and processes
// jobs until cancelled or until capture has stopped and the queue is empty.
// A cancellation request lets the in-flight job finish; queued jobs are
// then discarded.
func (p *Pipeline) workerLoop(ctx context.Context) {
	for {
		job, ok := p.inbound.Pop(p.cfg.PollTimeout)
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-p.captureDone:
				if p.inbound.Len() == 0 {
					return
				}
			default:
			}
			continue
		}

		p.process(job)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// process applies the transform to one job and publishes the result.
// Transform failures never terminate the worker: the input frame is
// forwarded unprocessed so the display keeps moving.
func (p *Pipeline) process(job frame.Job) {
	start := time.Now()
	out := job.Frame
	passthrough := false

	if job.Severity < p.cfg.SeverityFloor {
		p.ctrs.fastPath.Inc()
		passthrough = true
	} else if res, err := p.transform.Apply(job.Frame, job.Severity); err != nil {
		p.ctrs.transformFailures.Inc()
		p.logger.Warn("Transform failed, passing frame through", "seq", job.Seq(), "error", err)
		if p.cfg.OnTransformError != nil {
			p.cfg.OnTransformError(job.Seq(), err)
		}
		passthrough = true
	} else {
		out = res
		out.Seq = job.Frame.Seq
	}

	p.ctrs.processed.Inc()
	p.ctrs.observeLatency(time.Since(start))
	p.outbound.Put(frame.Result{Frame: out, Seq: job.Frame.Seq, Passthrough: passthrough})
}

// presentLoop runs at a fixed tick. Each tick it waits at most one tick
// period for a fresh result; on timeout it re-presents the last shown
// frame so the display never freezes waiting on a slow worker. The slot's
// sequence guard makes presentation order monotonic by construction.
func (p *Pipeline) presentLoop(ctx context.Context) {
	p.presentState.Store(int32(StateRunning))

	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	var last *frame.Frame
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		res, ok := p.outbound.Take(p.cfg.TickInterval)
		if ok {
			if err := p.sink.Present(res.Frame); err != nil {
				p.logger.Warn("Sink rejected frame", "seq", res.Seq, "error", err)
			} else {
				p.ctrs.presented.Inc()
			}
			last = res.Frame
		} else {
			p.ctrs.presentTimeouts.Inc()
			if last != nil {
				if err := p.sink.Present(last); err == nil {
					p.ctrs.repeats.Inc()
				}
			}
		}

		select {
		case <-p.workersDone:
			if p.outbound.Empty() {
				return
			}
		default:
		}
	}
}
