package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/atomic"

	"github.com/okulab/visionsim/internal/frame"
	"github.com/okulab/visionsim/internal/source"
)

var testShape = frame.Shape{Width: 8, Height: 6}

// seqByte is the pixel fill pattern for a given sequence number, letting
// tests verify content integrity end to end.
func seqByte(seq uint64) byte {
	return byte(seq*3%250 + 1)
}

// stubSource produces limit frames whose pixels encode their sequence
// number, then reports exhaustion (or a configured failure).
type stubSource struct {
	limit   int
	period  time.Duration
	failAt  int
	failErr error
	count   int
}

func (s *stubSource) Read() (*frame.Frame, error) {
	if s.failAt > 0 && s.count >= s.failAt {
		return nil, s.failErr
	}
	if s.limit > 0 && s.count >= s.limit {
		return nil, source.ErrExhausted
	}
	if s.period > 0 && s.count > 0 {
		time.Sleep(s.period)
	}
	s.count++

	f := frame.New(testShape)
	fill := seqByte(uint64(s.count))
	for i := range f.Pix {
		f.Pix[i] = fill
	}
	return f, nil
}

func (s *stubSource) Shape() frame.Shape { return testShape }
func (s *stubSource) Close() error       { return nil }

// recordingSink captures every presented frame.
type recordingSink struct {
	mu     sync.Mutex
	seqs   []uint64
	firsts []byte // first pixel byte of each presented frame
}

func (s *recordingSink) Present(f *frame.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs = append(s.seqs, f.Seq)
	s.firsts = append(s.firsts, f.Pix[0])
	return nil
}

func (s *recordingSink) snapshot() ([]uint64, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.seqs...), append([]byte(nil), s.firsts...)
}

// cloneTransform is an identity transform that returns an owned copy, and
// records the severity it was applied with per sequence number.
type cloneTransform struct {
	mu         sync.Mutex
	severities map[uint64]float64
	calls      atomic.Uint64
	delay      time.Duration
	err        error
}

func newCloneTransform() *cloneTransform {
	return &cloneTransform{severities: make(map[uint64]float64)}
}

func (t *cloneTransform) Apply(f *frame.Frame, severity float64) (*frame.Frame, error) {
	t.calls.Inc()
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	if t.err != nil {
		return nil, t.err
	}
	t.mu.Lock()
	t.severities[f.Seq] = severity
	t.mu.Unlock()
	return f.Clone(), nil
}

func fastConfig() Config {
	return Config{
		QueueCapacity: 128,
		PollTimeout:   2 * time.Millisecond,
		TickInterval:  2 * time.Millisecond,
	}
}

func runPipeline(t *testing.T, p *Pipeline) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.Run(ctx)
}

func assertAllStopped(t *testing.T, p *Pipeline) {
	t.Helper()
	if got := p.CaptureState(); got != StateStopped {
		t.Errorf("Capture state = %v, want stopped", got)
	}
	if got := p.WorkerState(); got != StateStopped {
		t.Errorf("Worker state = %v, want stopped", got)
	}
	if got := p.PresentState(); got != StateStopped {
		t.Errorf("Present state = %v, want stopped", got)
	}
}

func TestPipelinePresentationIsMonotonic(t *testing.T) {
	src := &stubSource{limit: 50, period: time.Millisecond}
	sink := &recordingSink{}
	p := New(src, newCloneTransform(), sink, fastConfig())
	p.SetSeverity(1)

	if err := runPipeline(t, p); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	assertAllStopped(t, p)

	seqs, _ := sink.snapshot()
	if len(seqs) == 0 {
		t.Fatal("Nothing was presented")
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] < seqs[i-1] {
			t.Fatalf("Presentation regressed: seq %d after %d at position %d", seqs[i], seqs[i-1], i)
		}
	}
	if last := seqs[len(seqs)-1]; last != 50 {
		t.Errorf("Expected final presented seq 50, got %d", last)
	}
}

func TestPipelineIdentityPreservesContent(t *testing.T) {
	src := &stubSource{limit: 30, period: time.Millisecond}
	sink := &recordingSink{}
	p := New(src, newCloneTransform(), sink, fastConfig())
	p.SetSeverity(1)

	if err := runPipeline(t, p); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	seqs, firsts := sink.snapshot()
	for i, seq := range seqs {
		if firsts[i] != seqByte(seq) {
			t.Fatalf("Frame %d content corrupted in transit: got %d, want %d",
				seq, firsts[i], seqByte(seq))
		}
	}
}

func TestPipelineStopsAllStagesAfterExhaustion(t *testing.T) {
	src := &stubSource{limit: 100}
	sink := &recordingSink{}
	p := New(src, newCloneTransform(), sink, fastConfig())
	p.SetSeverity(1)

	if err := runPipeline(t, p); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	assertAllStopped(t, p)

	stats := p.Stats()
	if stats.FramesCaptured != 100 {
		t.Errorf("Expected 100 captured frames, got %d", stats.FramesCaptured)
	}
	if stats.FramesProcessed+stats.QueueDrops != 100 {
		t.Errorf("Processed (%d) + dropped (%d) != 100", stats.FramesProcessed, stats.QueueDrops)
	}

	select {
	case <-p.Done():
	default:
		t.Error("Done channel not closed after Run returned")
	}
}

func TestPipelineTransformFailurePassesFramesThrough(t *testing.T) {
	src := &stubSource{limit: 100}
	sink := &recordingSink{}
	tr := newCloneTransform()
	tr.err = errors.New("lookup table corrupted")

	var reported atomic.Uint64
	cfg := fastConfig()
	cfg.OnTransformError = func(_ uint64, err error) {
		if err != nil {
			reported.Inc()
		}
	}

	p := New(src, tr, sink, cfg)
	p.SetSeverity(1)

	if err := runPipeline(t, p); err != nil {
		t.Fatalf("Run must absorb transform failures, got: %v", err)
	}
	assertAllStopped(t, p)

	stats := p.Stats()
	if stats.TransformFailures != 100 {
		t.Errorf("Expected 100 transform failures, got %d", stats.TransformFailures)
	}
	if reported.Load() != 100 {
		t.Errorf("Expected 100 diagnostic reports, got %d", reported.Load())
	}

	// Every presented frame must be the unmodified input.
	seqs, firsts := sink.snapshot()
	if len(seqs) == 0 {
		t.Fatal("Nothing was presented")
	}
	for i, seq := range seqs {
		if firsts[i] != seqByte(seq) {
			t.Fatalf("Frame %d was not passed through unmodified", seq)
		}
	}
}

func TestPipelineFastPathSkipsTransform(t *testing.T) {
	src := &stubSource{limit: 20}
	tr := newCloneTransform()
	p := New(src, tr, &recordingSink{}, fastConfig())
	// severity stays at 0: every job takes the fast path

	if err := runPipeline(t, p); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if calls := tr.calls.Load(); calls != 0 {
		t.Errorf("Transform invoked %d times at severity 0", calls)
	}
	stats := p.Stats()
	if stats.FastPathFrames != stats.FramesProcessed {
		t.Errorf("Fast path frames (%d) != processed frames (%d)",
			stats.FastPathFrames, stats.FramesProcessed)
	}

	// At full severity the transform must run.
	src2 := &stubSource{limit: 20}
	tr2 := newCloneTransform()
	p2 := New(src2, tr2, &recordingSink{}, fastConfig())
	p2.SetSeverity(1)
	if err := runPipeline(t, p2); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if tr2.calls.Load() == 0 {
		t.Error("Transform never invoked at severity 1")
	}
}

func TestPipelineSeverityChangeMidStream(t *testing.T) {
	src := &stubSource{limit: 100, period: 2 * time.Millisecond}
	tr := newCloneTransform()
	p := New(src, tr, &recordingSink{}, fastConfig())
	p.SetSeverity(1)

	done := make(chan error, 1)
	go func() { done <- runPipeline(t, p) }()

	time.Sleep(50 * time.Millisecond)
	p.SetSeverity(0.5)

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	// The final job must carry the updated value, and once the new value
	// appears it never reverts.
	if got := tr.severities[100]; got != 0.5 {
		t.Fatalf("Final job severity = %v, want 0.5", got)
	}
	switched := false
	for seq := uint64(1); seq <= 100; seq++ {
		sev, ok := tr.severities[seq]
		if !ok {
			continue
		}
		if sev == 0.5 {
			switched = true
		} else if switched {
			t.Fatalf("Severity reverted to %v at seq %d after the update", sev, seq)
		}
	}
	if !switched {
		t.Fatal("Updated severity never reached the worker")
	}
}

func TestPipelineSourceFailureTerminatesWithError(t *testing.T) {
	boom := fmt.Errorf("device unplugged")
	src := &stubSource{limit: 50, failAt: 5, failErr: boom}
	p := New(src, newCloneTransform(), &recordingSink{}, fastConfig())

	err := runPipeline(t, p)
	if err == nil {
		t.Fatal("Expected source failure to surface from Run")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want wrapped %v", err, boom)
	}
	assertAllStopped(t, p)
}

func TestPipelineCancellation(t *testing.T) {
	src := &stubSource{period: time.Millisecond} // unlimited
	p := New(src, newCloneTransform(), &recordingSink{}, fastConfig())
	p.SetSeverity(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Cancelled run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Pipeline did not stop after cancellation")
	}
	assertAllStopped(t, p)
}

func TestPipelineRejectsSecondRun(t *testing.T) {
	src := &stubSource{limit: 1}
	p := New(src, newCloneTransform(), &recordingSink{}, fastConfig())
	if err := runPipeline(t, p); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("Second Run must be rejected")
	}
}

func TestPipelineSeverityClamping(t *testing.T) {
	p := New(&stubSource{limit: 1}, newCloneTransform(), &recordingSink{}, Config{})
	p.SetSeverity(1.7)
	if got := p.Severity(); got != 1 {
		t.Errorf("Severity clamped to %v, want 1", got)
	}
	p.SetSeverity(-0.3)
	if got := p.Severity(); got != 0 {
		t.Errorf("Severity clamped to %v, want 0", got)
	}
}
