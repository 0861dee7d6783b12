package events

// Event type constants for kelindar/event.
const (
	TypePipelineStarted uint32 = iota + 1
	TypePipelineStopped
	TypeSeverityChanged
	TypeEffectChanged
	TypeTransformError
	TypeSourceError
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PipelineStartedEvent is published when a simulation pipeline starts running.
type PipelineStartedEvent struct {
	Effect    string  `json:"effect" example:"cataract" doc:"Active effect identifier"`
	Severity  float64 `json:"severity" example:"0.5" doc:"Severity at start"`
	Source    string  `json:"source" example:"camera" doc:"Frame source kind"`
	Width     int     `json:"width" example:"1280" doc:"Frame width in pixels"`
	Height    int     `json:"height" example:"720" doc:"Frame height in pixels"`
	Timestamp string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PipelineStartedEvent.
func (e PipelineStartedEvent) Type() uint32 { return TypePipelineStarted }

// PipelineStoppedEvent is published when a simulation pipeline stops,
// either by request or because the source was exhausted.
type PipelineStoppedEvent struct {
	Effect    string `json:"effect" example:"cataract" doc:"Effect that was running"`
	Reason    string `json:"reason" example:"requested" doc:"Why the pipeline stopped: requested, exhausted, error"`
	Presented uint64 `json:"presented" example:"1420" doc:"Frames presented during the run"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PipelineStoppedEvent.
func (e PipelineStoppedEvent) Type() uint32 { return TypePipelineStopped }

// SeverityChangedEvent is published whenever the severity control moves.
type SeverityChangedEvent struct {
	Severity  float64 `json:"severity" example:"0.75" doc:"New severity value, clamped to [0,1]"`
	Timestamp string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SeverityChangedEvent.
func (e SeverityChangedEvent) Type() uint32 { return TypeSeverityChanged }

// EffectChangedEvent is published when the active effect is switched.
type EffectChangedEvent struct {
	Previous  string `json:"previous" example:"glaucoma" doc:"Previously active effect identifier"`
	Effect    string `json:"effect" example:"macular" doc:"New active effect identifier"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EffectChangedEvent.
func (e EffectChangedEvent) Type() uint32 { return TypeEffectChanged }

// TransformErrorEvent is published when an effect fails on a frame.
// The frame is still shown unprocessed, so these are informational.
type TransformErrorEvent struct {
	Effect    string `json:"effect" example:"retinopathy" doc:"Effect that failed"`
	Seq       uint64 `json:"seq" example:"1042" doc:"Sequence number of the affected frame"`
	Error     string `json:"error" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TransformErrorEvent.
func (e TransformErrorEvent) Type() uint32 { return TypeTransformError }

// SourceErrorEvent is published when frame acquisition fails terminally.
type SourceErrorEvent struct {
	Source    string `json:"source" example:"camera" doc:"Frame source kind"`
	Error     string `json:"error" example:"device disconnected" doc:"Detailed error description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SourceErrorEvent.
func (e SourceErrorEvent) Type() uint32 { return TypeSourceError }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
