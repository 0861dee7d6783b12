package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/okulab/visionsim/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream for session lifecycle, severity changes and pipeline errors",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"pipeline-started": events.PipelineStartedEvent{},
		"pipeline-stopped": events.PipelineStoppedEvent{},
		"severity-changed": events.SeverityChangedEvent{},
		"effect-changed":   events.EffectChangedEvent{},
		"transform-error":  events.TransformErrorEvent{},
		"source-error":     events.SourceErrorEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Create event channel for this connection
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.PipelineStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PipelineStoppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SeverityChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EffectChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.TransformErrorEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SourceErrorEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Send initial state so a fresh client can render the slider
		if err := send.Data(events.SeverityChangedEvent{
			Severity:  s.sim.Severity(),
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		// Keep connection alive and forward events
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					// Connection failed, clean up and exit
					return
				}
			}
		}
	})
}
