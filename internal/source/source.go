// Package source provides frame sources for the pipeline: V4L2 cameras and
// video files through OpenCV, plus a synthetic generator for running
// without hardware.
package source

import (
	"errors"

	"github.com/okulab/visionsim/internal/frame"
)

// ErrExhausted is returned by Read when the source has no more frames.
// It is a normal pipeline termination, not a failure.
var ErrExhausted = errors.New("source exhausted")

// FrameSource produces raw frames on demand. Read blocks until a frame is
// available and returns ErrExhausted at end of stream; any other error is
// a source failure and terminates the pipeline. Implementations carry no
// concurrency of their own: Read is called from exactly one goroutine.
type FrameSource interface {
	// Read returns the next frame. The caller owns the returned frame.
	Read() (*frame.Frame, error)
	// Shape returns the fixed frame geometry for the session.
	Shape() frame.Shape
	// Close releases the underlying device or file.
	Close() error
}

// Config selects and parameterizes a source.
type Config struct {
	// Kind is "camera", "file" or "synthetic".
	Kind string `json:"kind"`
	// Device is the camera index. A negative index requests auto-detection
	// of the first available device.
	Device int `json:"device"`
	// Path is the video file path for file sources.
	Path string `json:"path"`
	// Width, Height and FPS are best-effort capture hints for cameras.
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

// Open creates a source from its config.
func Open(cfg Config) (FrameSource, error) {
	switch cfg.Kind {
	case "camera", "":
		return OpenCamera(cfg)
	case "file":
		return OpenFile(cfg.Path)
	case "synthetic":
		return NewSynthetic(cfg.Width, cfg.Height, 0), nil
	default:
		return nil, errors.New("unknown source kind: " + cfg.Kind)
	}
}
