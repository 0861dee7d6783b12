package models

import (
	"github.com/okulab/visionsim/internal/devices"
	"github.com/okulab/visionsim/internal/effects"
	"github.com/okulab/visionsim/internal/logging"
	"github.com/okulab/visionsim/internal/simulator"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27" doc:"Build date"`
	GoVersion string `json:"go_version" example:"go1.24.1" doc:"Go runtime version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Effect models
type EffectsData struct {
	Effects []effects.Info `json:"effects" doc:"Registered effects"`
	Count   int            `json:"count" example:"6" doc:"Number of registered effects"`
}

type EffectsResponse struct {
	Body EffectsData
}

// Device models
type DevicesData struct {
	Devices []devices.DeviceInfo `json:"devices" doc:"Available capture devices"`
	Count   int                  `json:"count" example:"1" doc:"Number of devices found"`
}

type DevicesResponse struct {
	Body DevicesData
}

// Simulation control models
type StartRequestData struct {
	Effect string `json:"effect" example:"cataract" doc:"Effect identifier to run"`
}

type StartRequest struct {
	Body StartRequestData
}

type StatusResponse struct {
	Body simulator.Status
}

type SeverityRequestData struct {
	Severity float64 `json:"severity" minimum:"0" maximum:"1" example:"0.5" doc:"Severity value in [0,1]"`
}

type SeverityRequest struct {
	Body SeverityRequestData
}

type SeverityData struct {
	Severity float64 `json:"severity" example:"0.5" doc:"Applied severity value after clamping"`
}

type SeverityResponse struct {
	Body SeverityData
}

// Log models
type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Buffered log entries in chronological order"`
	Count   int                `json:"count" example:"120" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}

// Generic message response
type MessageData struct {
	Status  string `json:"status" example:"ok" doc:"Operation status"`
	Message string `json:"message" example:"Simulation stopped" doc:"Status message"`
}

type MessageResponse struct {
	Body MessageData
}
