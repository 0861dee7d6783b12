// Package metrics exposes pipeline diagnostics as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okulab/visionsim/internal/pipeline"
)

// StatsFunc returns the active pipeline's counters, or false when no
// session is running.
type StatsFunc func() (pipeline.Stats, bool)

// SeverityFunc returns the current severity value.
type SeverityFunc func() float64

// PipelineCollector reads pipeline counters at scrape time. Counters are
// cumulative per session; a new session resets them, which Prometheus
// handles the same way it handles process restarts.
type PipelineCollector struct {
	stats    StatsFunc
	severity SeverityFunc

	captured          *prometheus.Desc
	processed         *prometheus.Desc
	fastPath          *prometheus.Desc
	presented         *prometheus.Desc
	repeats           *prometheus.Desc
	queueDrops        *prometheus.Desc
	slotReplacements  *prometheus.Desc
	staleResults      *prometheus.Desc
	transformFailures *prometheus.Desc
	presentTimeouts   *prometheus.Desc
	workerLatency     *prometheus.Desc
	severityDesc      *prometheus.Desc
	running           *prometheus.Desc
}

// NewPipelineCollector creates a collector over the given stat sources.
func NewPipelineCollector(stats StatsFunc, severity SeverityFunc) *PipelineCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName("visionsim", "pipeline", name),
			help, nil, nil,
		)
	}
	return &PipelineCollector{
		stats:             stats,
		severity:          severity,
		captured:          desc("frames_captured_total", "Frames read from the source"),
		processed:         desc("frames_processed_total", "Jobs completed by workers"),
		fastPath:          desc("fast_path_frames_total", "Jobs passed through on the severity fast path"),
		presented:         desc("frames_presented_total", "Fresh results handed to the sink"),
		repeats:           desc("repeat_presents_total", "Ticks that re-presented the last shown frame"),
		queueDrops:        desc("queue_drops_total", "Jobs shed because the inbound queue was full"),
		slotReplacements:  desc("slot_replacements_total", "Unclaimed results overwritten by newer ones"),
		staleResults:      desc("stale_results_total", "Late results discarded by the sequence guard"),
		transformFailures: desc("transform_failures_total", "Jobs whose transform errored and were passed through"),
		presentTimeouts:   desc("present_timeouts_total", "Display ticks that timed out waiting for a result"),
		workerLatency:     desc("worker_latency_microseconds", "EWMA of per-job worker latency"),
		severityDesc:      desc("severity", "Current severity control value"),
		running:           desc("running", "Whether a simulation session is active"),
	}
}

// Describe implements prometheus.Collector.
func (c *PipelineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.captured
	ch <- c.processed
	ch <- c.fastPath
	ch <- c.presented
	ch <- c.repeats
	ch <- c.queueDrops
	ch <- c.slotReplacements
	ch <- c.staleResults
	ch <- c.transformFailures
	ch <- c.presentTimeouts
	ch <- c.workerLatency
	ch <- c.severityDesc
	ch <- c.running
}

// Collect implements prometheus.Collector.
func (c *PipelineCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.severityDesc, prometheus.GaugeValue, c.severity())

	stats, ok := c.stats()
	if !ok {
		ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, 1)

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.captured, stats.FramesCaptured)
	counter(c.processed, stats.FramesProcessed)
	counter(c.fastPath, stats.FastPathFrames)
	counter(c.presented, stats.FramesPresented)
	counter(c.repeats, stats.RepeatPresents)
	counter(c.queueDrops, stats.QueueDrops)
	counter(c.slotReplacements, stats.SlotReplacements)
	counter(c.staleResults, stats.StaleResults)
	counter(c.transformFailures, stats.TransformFailures)
	counter(c.presentTimeouts, stats.PresentTimeouts)

	ch <- prometheus.MustNewConstMetric(c.workerLatency, prometheus.GaugeValue, stats.WorkerLatencyUs)
}

// Register registers the collector with the default registry.
// Safe to call once per process.
func (c *PipelineCollector) Register() error {
	return prometheus.Register(c)
}

// HTTPHandler returns the Prometheus metrics HTTP handler.
// This serves all default-registered metrics, including Go runtime ones.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
