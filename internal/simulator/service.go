// Package simulator manages simulation sessions: it owns at most one
// running pipeline at a time and exposes the control surface the API
// layer talks to.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/okulab/visionsim/internal/config"
	"github.com/okulab/visionsim/internal/effects"
	"github.com/okulab/visionsim/internal/events"
	"github.com/okulab/visionsim/internal/frame"
	"github.com/okulab/visionsim/internal/logging"
	"github.com/okulab/visionsim/internal/pipeline"
	"github.com/okulab/visionsim/internal/source"
)

// ErrNotRunning is returned by operations that need an active session.
var ErrNotRunning = errors.New("no simulation running")

// ErrAlreadyRunning is returned by Start when a session is active.
var ErrAlreadyRunning = errors.New("simulation already running")

// Options configures a Service.
type Options struct {
	// Source selects where frames come from.
	Source source.Config
	// Sink receives presented frames (typically the MJPEG broadcaster).
	Sink pipeline.Sink
	// Bus, when set, receives lifecycle and error events.
	Bus *events.Bus
	// Tuning holds per-effect parameter overrides, may be nil.
	Tuning *config.TuningConfig

	// Pipeline tunables, zero values use pipeline defaults.
	QueueCapacity int
	Workers       int
	TickInterval  time.Duration
	SeverityFloor float64
}

// Status is a point-in-time view of the service for the API.
type Status struct {
	Running      bool           `json:"running" example:"true" doc:"Whether a simulation session is active"`
	Effect       string         `json:"effect,omitempty" example:"cataract" doc:"Active effect identifier"`
	Severity     float64        `json:"severity" example:"0.5" doc:"Current severity value"`
	Source       string         `json:"source,omitempty" example:"camera" doc:"Frame source kind"`
	Width        int            `json:"width,omitempty" example:"1280" doc:"Frame width in pixels"`
	Height       int            `json:"height,omitempty" example:"720" doc:"Frame height in pixels"`
	CaptureState string         `json:"capture_state,omitempty" example:"running" doc:"Capture stage state"`
	WorkerState  string         `json:"worker_state,omitempty" example:"running" doc:"Worker stage state"`
	PresentState string         `json:"present_state,omitempty" example:"running" doc:"Presentation stage state"`
	Stats        pipeline.Stats `json:"stats" doc:"Pipeline diagnostics counters"`
}

// run holds the state of one active session.
type run struct {
	pl     *pipeline.Pipeline
	src    source.FrameSource
	cancel context.CancelFunc
	effect string
	shape  frame.Shape
	done   chan struct{}
}

// Service owns at most one simulation pipeline and carries severity and
// tuning across sessions.
type Service struct {
	opts   Options
	logger *slog.Logger

	severity atomic.Float64

	mu      sync.Mutex
	tuning  *config.TuningConfig
	current *run
}

// NewService creates a simulator service. The initial severity is zero.
func NewService(opts Options) *Service {
	return &Service{
		opts:   opts,
		logger: logging.GetLogger("simulator"),
		tuning: opts.Tuning,
	}
}

// SetTuning replaces the effect parameter overrides. The new values apply
// to the next session; a running pipeline keeps its built transform.
func (s *Service) SetTuning(tuning *config.TuningConfig) {
	s.mu.Lock()
	s.tuning = tuning
	s.mu.Unlock()
	s.logger.Info("Effect tuning updated")
}

// SetSeverity updates the severity control, clamping to [0, 1]. The value
// persists across sessions and applies to a running pipeline immediately.
func (s *Service) SetSeverity(v float64) float64 {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	s.severity.Store(v)

	s.mu.Lock()
	if s.current != nil {
		s.current.pl.SetSeverity(v)
	}
	s.mu.Unlock()

	s.publish(events.SeverityChangedEvent{
		Severity:  v,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return v
}

// Severity returns the current severity value.
func (s *Service) Severity() float64 {
	return s.severity.Load()
}

// Start opens the configured source and launches a pipeline running the
// given effect. It returns once the pipeline is live; the session then
// runs until the source is exhausted, Stop is called, or the source fails.
func (s *Service) Start(effectID string) error {
	eff, ok := effects.Get(effectID)
	if !ok {
		return effects.ErrUnknown(effectID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return ErrAlreadyRunning
	}

	src, err := source.Open(s.opts.Source)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	shape := src.Shape()

	transform, err := eff.Build(shape, s.tuning.ParamsFor(effectID))
	if err != nil {
		src.Close()
		return fmt.Errorf("failed to build effect %s: %w", effectID, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pl := pipeline.New(src, transform, s.opts.Sink, pipeline.Config{
		QueueCapacity: s.opts.QueueCapacity,
		Workers:       s.opts.Workers,
		TickInterval:  s.opts.TickInterval,
		SeverityFloor: s.opts.SeverityFloor,
		Logger:        logging.GetLogger("pipeline"),
		OnTransformError: func(seq uint64, err error) {
			s.publish(events.TransformErrorEvent{
				Effect:    effectID,
				Seq:       seq,
				Error:     err.Error(),
				Timestamp: time.Now().Format(time.RFC3339),
			})
		},
	})
	pl.SetSeverity(s.severity.Load())

	r := &run{
		pl:     pl,
		src:    src,
		cancel: cancel,
		effect: effectID,
		shape:  shape,
		done:   make(chan struct{}),
	}
	s.current = r

	go s.runSession(ctx, r)

	s.logger.Info("Simulation started",
		"effect", effectID,
		"source", s.sourceKind(),
		"width", shape.Width,
		"height", shape.Height,
		"severity", s.severity.Load())

	s.publish(events.PipelineStartedEvent{
		Effect:    effectID,
		Severity:  s.severity.Load(),
		Source:    s.sourceKind(),
		Width:     shape.Width,
		Height:    shape.Height,
		Timestamp: time.Now().Format(time.RFC3339),
	})

	return nil
}

// runSession drives one pipeline to completion and tears the session down.
func (s *Service) runSession(ctx context.Context, r *run) {
	err := r.pl.Run(ctx)

	if closeErr := r.src.Close(); closeErr != nil {
		s.logger.Warn("Failed to close source", "error", closeErr)
	}

	reason := "exhausted"
	switch {
	case err != nil:
		reason = "error"
		s.publish(events.SourceErrorEvent{
			Source:    s.sourceKind(),
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	case ctx.Err() != nil:
		reason = "requested"
	}

	stats := r.pl.Stats()

	s.mu.Lock()
	if s.current == r {
		s.current = nil
	}
	s.mu.Unlock()
	close(r.done)

	s.logger.Info("Simulation stopped", "effect", r.effect, "reason", reason, "presented", stats.FramesPresented)

	s.publish(events.PipelineStoppedEvent{
		Effect:    r.effect,
		Reason:    reason,
		Presented: stats.FramesPresented,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Stop cancels the active session and waits for the pipeline to wind down.
func (s *Service) Stop() error {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return ErrNotRunning
	}

	r.cancel()
	<-r.done
	return nil
}

// SwitchEffect stops the active session and starts a new one with the
// given effect, keeping the severity value.
func (s *Service) SwitchEffect(effectID string) error {
	if !effects.IsValid(effectID) {
		return effects.ErrUnknown(effectID)
	}

	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	previous := ""
	if r != nil {
		previous = r.effect
		r.cancel()
		<-r.done
	}

	if err := s.Start(effectID); err != nil {
		return err
	}

	s.publish(events.EffectChangedEvent{
		Previous:  previous,
		Effect:    effectID,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return nil
}

// Status reports the current session state and pipeline counters.
func (s *Service) Status() Status {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	st := Status{
		Severity: s.severity.Load(),
	}
	if r == nil {
		return st
	}

	st.Running = true
	st.Effect = r.effect
	st.Source = s.sourceKind()
	st.Width = r.shape.Width
	st.Height = r.shape.Height
	st.CaptureState = r.pl.CaptureState().String()
	st.WorkerState = r.pl.WorkerState().String()
	st.PresentState = r.pl.PresentState().String()
	st.Stats = r.pl.Stats()
	return st
}

// Stats returns the active pipeline's counters, or false when idle.
func (s *Service) Stats() (pipeline.Stats, bool) {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()

	if r == nil {
		return pipeline.Stats{}, false
	}
	return r.pl.Stats(), true
}

// Running reports whether a session is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *Service) sourceKind() string {
	if s.opts.Source.Kind == "" {
		return "camera"
	}
	return s.opts.Source.Kind
}

func (s *Service) publish(ev events.Event) {
	if s.opts.Bus != nil {
		s.opts.Bus.Publish(ev)
	}
}
