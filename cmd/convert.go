package cmd

import (
	"errors"
	"os"

	"github.com/okulab/visionsim/internal/config"
	"github.com/okulab/visionsim/internal/effects"
	"github.com/okulab/visionsim/internal/logging"
	"github.com/okulab/visionsim/internal/sink"
	"github.com/okulab/visionsim/internal/source"
	"github.com/spf13/cobra"
)

// CreateConvertCmd creates the convert command.
func CreateConvertCmd() *cobra.Command {
	var effectID string
	var severity float64
	var tuningFile string
	var fourcc string
	var fps float64
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "convert [input] [output]",
		Short: "Apply a vision simulation to a video file",
		Long: `Reads a video file, applies the selected disease simulation frame by frame ` +
			`and writes the result to a new file. Unlike the live server this processes ` +
			`every frame in order without dropping.`,
		Args: cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			inputPath := args[0]
			outputPath := args[1]

			loggingConfig := logging.Config{
				Level:  "info",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("convert").With("effect", effectID)

			eff, ok := effects.Get(effectID)
			if !ok {
				logger.Error("Unknown effect", "effect", effectID)
				os.Exit(1)
			}

			tuning, err := config.LoadTuning(tuningFile)
			if err != nil {
				logger.Warn("Failed to load tuning file, using built-in defaults",
					"error", err, "path", tuningFile)
				tuning = &config.TuningConfig{}
			}

			src, err := source.Open(source.Config{Kind: "file", Path: inputPath})
			if err != nil {
				logger.Error("Failed to open input file", "error", err, "path", inputPath)
				os.Exit(1)
			}
			defer src.Close()

			shape := src.Shape()
			transform, err := eff.Build(shape, tuning.ParamsFor(effectID))
			if err != nil {
				logger.Error("Failed to build transform", "error", err)
				os.Exit(1)
			}

			// Prefer the input file's native rate unless overridden
			outFPS := fps
			if outFPS <= 0 {
				if rated, ok := src.(interface{ FPS() float64 }); ok {
					outFPS = rated.FPS()
				}
			}
			if outFPS <= 0 {
				outFPS = 30
			}

			writer, err := sink.NewVideoFile(outputPath, fourcc, outFPS, shape)
			if err != nil {
				logger.Error("Failed to open output file", "error", err, "path", outputPath)
				os.Exit(1)
			}
			defer writer.Close()

			logger.Info("Converting",
				"input", inputPath,
				"output", outputPath,
				"width", shape.Width,
				"height", shape.Height,
				"fps", outFPS,
				"severity", severity)

			var failures int
			for {
				f, readErr := src.Read()
				if readErr != nil {
					if errors.Is(readErr, source.ErrExhausted) {
						break
					}
					logger.Error("Failed to read frame", "error", readErr, "frame", writer.Frames())
					os.Exit(1)
				}

				out, applyErr := transform.Apply(f, severity)
				if applyErr != nil {
					// Failed frames pass through untouched so output timing stays intact
					failures++
					out = f
				}

				if writeErr := writer.Present(out); writeErr != nil {
					logger.Error("Failed to write frame", "error", writeErr, "frame", writer.Frames())
					os.Exit(1)
				}

				if writer.Frames()%300 == 0 {
					logger.Debug("Progress", "frames", writer.Frames())
				}
			}

			logger.Info("Conversion complete", "frames", writer.Frames(), "transform_failures", failures)
			if failures > 0 {
				logger.Warn("Some frames passed through unmodified", "count", failures)
			}
		},
	}

	cmd.Flags().StringVar(&effectID, "effect", "identity", "Effect to apply (see the effects command)")
	cmd.Flags().Float64Var(&severity, "severity", 1.0, "Severity in [0,1]")
	cmd.Flags().StringVar(&tuningFile, "tuning", "effects.toml", "Path to effect tuning file")
	cmd.Flags().StringVar(&fourcc, "fourcc", "avc1", "Output codec FOURCC")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Output frame rate (0 = match input)")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}
