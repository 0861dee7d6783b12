package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/okulab/visionsim/internal/pipeline"
)

func TestCollectorIdle(t *testing.T) {
	c := NewPipelineCollector(
		func() (pipeline.Stats, bool) { return pipeline.Stats{}, false },
		func() float64 { return 0.25 },
	)

	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	expected := `
# HELP visionsim_pipeline_running Whether a simulation session is active
# TYPE visionsim_pipeline_running gauge
visionsim_pipeline_running 0
# HELP visionsim_pipeline_severity Current severity control value
# TYPE visionsim_pipeline_severity gauge
visionsim_pipeline_severity 0.25
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"visionsim_pipeline_running", "visionsim_pipeline_severity"); err != nil {
		t.Errorf("Unexpected idle metrics: %v", err)
	}
}

func TestCollectorRunning(t *testing.T) {
	stats := pipeline.Stats{
		FramesCaptured:    100,
		FramesProcessed:   95,
		FramesPresented:   90,
		QueueDrops:        5,
		TransformFailures: 2,
		WorkerLatencyUs:   1234.5,
	}
	c := NewPipelineCollector(
		func() (pipeline.Stats, bool) { return stats, true },
		func() float64 { return 0.8 },
	)

	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	expected := `
# HELP visionsim_pipeline_frames_captured_total Frames read from the source
# TYPE visionsim_pipeline_frames_captured_total counter
visionsim_pipeline_frames_captured_total 100
# HELP visionsim_pipeline_queue_drops_total Jobs shed because the inbound queue was full
# TYPE visionsim_pipeline_queue_drops_total counter
visionsim_pipeline_queue_drops_total 5
# HELP visionsim_pipeline_running Whether a simulation session is active
# TYPE visionsim_pipeline_running gauge
visionsim_pipeline_running 1
# HELP visionsim_pipeline_worker_latency_microseconds EWMA of per-job worker latency
# TYPE visionsim_pipeline_worker_latency_microseconds gauge
visionsim_pipeline_worker_latency_microseconds 1234.5
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"visionsim_pipeline_frames_captured_total",
		"visionsim_pipeline_queue_drops_total",
		"visionsim_pipeline_running",
		"visionsim_pipeline_worker_latency_microseconds"); err != nil {
		t.Errorf("Unexpected running metrics: %v", err)
	}
}
