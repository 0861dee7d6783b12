package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"go.uber.org/atomic"

	"github.com/okulab/visionsim/cmd"
	"github.com/okulab/visionsim/internal/api"
	"github.com/okulab/visionsim/internal/config"
	"github.com/okulab/visionsim/internal/events"
	"github.com/okulab/visionsim/internal/logging"
	"github.com/okulab/visionsim/internal/metrics"
	"github.com/okulab/visionsim/internal/simulator"
	"github.com/okulab/visionsim/internal/sink"
	"github.com/okulab/visionsim/internal/source"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Source settings
	SourceKind   string `help:"Frame source (camera, file, synthetic)" default:"camera" toml:"source.kind" env:"SOURCE_KIND"`
	SourceDevice int    `help:"Camera index, -1 auto-detects" default:"-1" toml:"source.device" env:"SOURCE_DEVICE"`
	SourcePath   string `help:"Video file path for file sources" default:"" toml:"source.path" env:"SOURCE_PATH"`
	SourceWidth  int    `help:"Requested capture width" default:"1280" toml:"source.width" env:"SOURCE_WIDTH"`
	SourceHeight int    `help:"Requested capture height" default:"720" toml:"source.height" env:"SOURCE_HEIGHT"`
	SourceFPS    int    `help:"Requested capture frame rate" default:"30" toml:"source.fps" env:"SOURCE_FPS"`

	// Simulation settings
	Severity       string `help:"Initial severity in [0,1]" default:"0.5" toml:"simulation.severity" env:"SIMULATION_SEVERITY"`
	SeverityFloor  string `help:"Severity below which frames pass through untouched" default:"0.01" toml:"simulation.severity_floor" env:"SIMULATION_SEVERITY_FLOOR"`
	QueueCapacity  int    `help:"Pending frame queue capacity" default:"2" toml:"simulation.queue_capacity" env:"SIMULATION_QUEUE_CAPACITY"`
	Workers        int    `help:"Transform worker count" default:"1" toml:"simulation.workers" env:"SIMULATION_WORKERS"`
	TickMs         int    `help:"Presentation tick interval in milliseconds" default:"33" toml:"simulation.tick_ms" env:"SIMULATION_TICK_MS"`
	TuningFile     string `help:"Effect tuning file" default:"effects.toml" toml:"simulation.tuning_file" env:"SIMULATION_TUNING_FILE"`
	PreviewQuality int    `help:"JPEG quality for the preview stream" default:"80" toml:"simulation.preview_quality" env:"SIMULATION_PREVIEW_QUALITY"`

	// Metrics settings
	MetricsEnabled bool `help:"Expose Prometheus metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingPipeline  string `help:"Pipeline logging level" default:"info" toml:"logging.pipeline" env:"LOGGING_PIPELINE"`
	LoggingSimulator string `help:"Simulator logging level" default:"info" toml:"logging.simulator" env:"LOGGING_SIMULATOR"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingConfig    string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

func parseUnit(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 1 {
		return fallback
	}
	return v
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"pipeline":  opts.LoggingPipeline,
				"simulator": opts.LoggingSimulator,
				"api":       opts.LoggingAPI,
				"config":    opts.LoggingConfig,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()

		// Forward new log entries onto the bus for the /api/logs/stream clients
		var logSeq atomic.Uint64
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        logSeq.Add(1),
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Effect tuning overrides, hot-reloaded on file change
		tuning, tuningErr := config.LoadTuning(opts.TuningFile)
		if tuningErr != nil {
			logger.Warn("Failed to load tuning file, using built-in defaults",
				"error", tuningErr, "path", opts.TuningFile)
			tuning = &config.TuningConfig{}
		}

		preview := sink.NewMJPEG(opts.PreviewQuality, logging.GetLogger("preview"))

		sim := simulator.NewService(simulator.Options{
			Source: source.Config{
				Kind:   opts.SourceKind,
				Device: opts.SourceDevice,
				Path:   opts.SourcePath,
				Width:  opts.SourceWidth,
				Height: opts.SourceHeight,
				FPS:    float64(opts.SourceFPS),
			},
			Sink:          preview,
			Bus:           eventBus,
			Tuning:        tuning,
			QueueCapacity: opts.QueueCapacity,
			Workers:       opts.Workers,
			TickInterval:  time.Duration(opts.TickMs) * time.Millisecond,
			SeverityFloor: parseUnit(opts.SeverityFloor, 0.01),
		})
		sim.SetSeverity(parseUnit(opts.Severity, 0.5))

		apiOpts := &api.Options{
			AuthUsername:   opts.AuthUsername,
			AuthPassword:   opts.AuthPassword,
			Simulator:      sim,
			Bus:            eventBus,
			PreviewHandler: preview,
		}

		if opts.MetricsEnabled {
			collector := metrics.NewPipelineCollector(sim.Stats, sim.Severity)
			if regErr := collector.Register(); regErr != nil {
				logger.Warn("Failed to register metrics collector", "error", regErr)
			} else {
				apiOpts.PrometheusHandler = metrics.HTTPHandler()
			}
		}

		server := api.NewServer(apiOpts)

		// Watch the tuning file so parameter changes apply to the next session
		tuningWatcher := config.NewConfigWatcher(
			opts.TuningFile,
			config.LoadTuning,
			logging.GetLogger("config"),
		)
		tuningWatcher.OnReload(func(fresh *config.TuningConfig) {
			logger.Info("Tuning file reloaded", "path", opts.TuningFile)
			sim.SetTuning(fresh)
		})

		hooks.OnStart(func() {
			if watchErr := tuningWatcher.Start(); watchErr != nil {
				logger.Warn("Failed to watch tuning file, hot-reload disabled", "error", watchErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if sim.Running() {
				if stopErr := sim.Stop(); stopErr != nil {
					logger.Error("Error stopping simulation", "error", stopErr)
				}
			}

			if stopErr := tuningWatcher.Stop(); stopErr != nil {
				logger.Error("Error stopping tuning watcher", "error", stopErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateConvertCmd())
	cli.Root().AddCommand(cmd.CreateEffectsCmd())
	cli.Root().AddCommand(cmd.CreateDevicesCmd())

	cli.Run()
}
