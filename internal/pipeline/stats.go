package pipeline

import (
	"time"

	"go.uber.org/atomic"
)

// counters hold the pipeline diagnostics. All conditions other than source
// failure are absorbed locally and only ever visible here.
type counters struct {
	captured          atomic.Uint64
	processed         atomic.Uint64
	fastPath          atomic.Uint64
	transformFailures atomic.Uint64
	presented         atomic.Uint64
	repeats           atomic.Uint64
	presentTimeouts   atomic.Uint64

	// exponentially weighted moving average of per-job worker latency
	latencyEWMA atomic.Float64
}

const latencyAlpha = 0.2

func (c *counters) observeLatency(d time.Duration) {
	us := float64(d.Microseconds())
	for {
		old := c.latencyEWMA.Load()
		next := us
		if old != 0 {
			next = old + latencyAlpha*(us-old)
		}
		if c.latencyEWMA.CompareAndSwap(old, next) {
			return
		}
	}
}

// Stats is a point-in-time snapshot of pipeline diagnostics.
type Stats struct {
	FramesCaptured    uint64  `json:"frames_captured" doc:"Frames read from the source"`
	FramesProcessed   uint64  `json:"frames_processed" doc:"Jobs completed by workers"`
	FastPathFrames    uint64  `json:"fast_path_frames" doc:"Jobs passed through on the severity fast path"`
	FramesPresented   uint64  `json:"frames_presented" doc:"Fresh results handed to the sink"`
	RepeatPresents    uint64  `json:"repeat_presents" doc:"Ticks that re-presented the last shown frame"`
	QueueDrops        uint64  `json:"queue_drops" doc:"Jobs shed because the inbound queue was full"`
	SlotReplacements  uint64  `json:"slot_replacements" doc:"Unclaimed results overwritten by newer ones"`
	StaleResults      uint64  `json:"stale_results" doc:"Late results discarded by sequence guard"`
	TransformFailures uint64  `json:"transform_failures" doc:"Jobs whose transform errored and were passed through"`
	PresentTimeouts   uint64  `json:"present_timeouts" doc:"Display ticks that timed out waiting for a result"`
	WorkerLatencyUs   float64 `json:"worker_latency_us" doc:"EWMA of per-job worker latency in microseconds"`
}

// Stats returns a snapshot of the pipeline diagnostics counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		FramesCaptured:    p.ctrs.captured.Load(),
		FramesProcessed:   p.ctrs.processed.Load(),
		FastPathFrames:    p.ctrs.fastPath.Load(),
		FramesPresented:   p.ctrs.presented.Load(),
		RepeatPresents:    p.ctrs.repeats.Load(),
		QueueDrops:        p.inbound.Drops(),
		SlotReplacements:  p.outbound.Replaced(),
		StaleResults:      p.outbound.StaleDiscards(),
		TransformFailures: p.ctrs.transformFailures.Load(),
		PresentTimeouts:   p.ctrs.presentTimeouts.Load(),
		WorkerLatencyUs:   p.ctrs.latencyEWMA.Load(),
	}
}
