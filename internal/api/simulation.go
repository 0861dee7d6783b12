package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/okulab/visionsim/internal/api/models"
	"github.com/okulab/visionsim/internal/devices"
	"github.com/okulab/visionsim/internal/effects"
	"github.com/okulab/visionsim/internal/simulator"
)

// registerSimulationRoutes registers effect, device and session endpoints.
func (s *Server) registerSimulationRoutes() {
	// List registered effects
	huma.Register(s.api, huma.Operation{
		OperationID: "list-effects",
		Method:      http.MethodGet,
		Path:        "/api/effects",
		Summary:     "List Effects",
		Description: "Get all registered eye disease simulations",
		Tags:        []string{"effects"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.EffectsResponse, error) {
		infos := effects.List()
		return &models.EffectsResponse{
			Body: models.EffectsData{
				Effects: infos,
				Count:   len(infos),
			},
		}, nil
	})

	// List capture devices
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "Enumerate video capture devices available on this host",
		Tags:        []string{"devices"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DevicesResponse, error) {
		list, err := devices.List()
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to enumerate devices", err)
		}
		return &models.DevicesResponse{
			Body: models.DevicesData{
				Devices: list,
				Count:   len(list),
			},
		}, nil
	})

	// Session status
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Status",
		Description: "Get the current simulation session state and pipeline counters",
		Tags:        []string{"simulation"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: s.sim.Status()}, nil
	})

	// Start a session
	huma.Register(s.api, huma.Operation{
		OperationID: "start-simulation",
		Method:      http.MethodPost,
		Path:        "/api/simulation/start",
		Summary:     "Start Simulation",
		Description: "Open the configured source and start a pipeline running the given effect",
		Tags:        []string{"simulation"},
		Errors:      []int{400, 401, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StartRequest) (*models.StatusResponse, error) {
		if err := s.sim.Start(input.Body.Effect); err != nil {
			return nil, s.mapSimulatorError(err)
		}
		return &models.StatusResponse{Body: s.sim.Status()}, nil
	})

	// Stop the session
	huma.Register(s.api, huma.Operation{
		OperationID: "stop-simulation",
		Method:      http.MethodPost,
		Path:        "/api/simulation/stop",
		Summary:     "Stop Simulation",
		Description: "Stop the active session and release the source",
		Tags:        []string{"simulation"},
		Errors:      []int{401, 409},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.MessageResponse, error) {
		if err := s.sim.Stop(); err != nil {
			return nil, s.mapSimulatorError(err)
		}
		return &models.MessageResponse{
			Body: models.MessageData{
				Status:  "ok",
				Message: "Simulation stopped",
			},
		}, nil
	})

	// Switch the running effect
	huma.Register(s.api, huma.Operation{
		OperationID: "switch-effect",
		Method:      http.MethodPut,
		Path:        "/api/simulation/effect",
		Summary:     "Switch Effect",
		Description: "Switch the active effect, keeping the severity value",
		Tags:        []string{"simulation"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StartRequest) (*models.StatusResponse, error) {
		if err := s.sim.SwitchEffect(input.Body.Effect); err != nil {
			return nil, s.mapSimulatorError(err)
		}
		return &models.StatusResponse{Body: s.sim.Status()}, nil
	})

	// Severity control
	huma.Register(s.api, huma.Operation{
		OperationID: "set-severity",
		Method:      http.MethodPut,
		Path:        "/api/severity",
		Summary:     "Set Severity",
		Description: "Update the severity control; applies to the running pipeline immediately",
		Tags:        []string{"simulation"},
		Errors:      []int{401, 422},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.SeverityRequest) (*models.SeverityResponse, error) {
		applied := s.sim.SetSeverity(input.Body.Severity)
		return &models.SeverityResponse{
			Body: models.SeverityData{Severity: applied},
		}, nil
	})

	// Severity readback
	huma.Register(s.api, huma.Operation{
		OperationID: "get-severity",
		Method:      http.MethodGet,
		Path:        "/api/severity",
		Summary:     "Get Severity",
		Description: "Read the current severity value",
		Tags:        []string{"simulation"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.SeverityResponse, error) {
		return &models.SeverityResponse{
			Body: models.SeverityData{Severity: s.sim.Severity()},
		}, nil
	})
}

// mapSimulatorError converts simulator errors to HTTP status errors.
func (s *Server) mapSimulatorError(err error) error {
	switch {
	case errors.Is(err, simulator.ErrAlreadyRunning):
		return huma.Error409Conflict("simulation already running", err)
	case errors.Is(err, simulator.ErrNotRunning):
		return huma.Error409Conflict("no simulation running", err)
	case errors.Is(err, effects.ErrUnknownEffect):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError("simulation control failed", err)
	}
}
