// Package effects implements the pluggable eye-disease simulations applied
// by the pipeline workers. Each effect precomputes severity-independent
// state (masks, distance fields, lookup tables) once per frame shape and
// is then a pure function of (frame, severity).
package effects

import (
	"github.com/okulab/visionsim/internal/frame"
)

// Transform applies one impairment simulation to a frame. Apply must not
// mutate the source frame and must not retain per-call mutable history;
// the returned frame is a freshly allocated buffer owned by the caller.
type Transform interface {
	Apply(f *frame.Frame, severity float64) (*frame.Frame, error)
}

// Effect describes one disease simulation and builds transforms for a
// concrete frame shape.
type Effect interface {
	// ID is the stable identifier used by the API and config.
	ID() string
	// Name is the human-readable effect name.
	Name() string
	// Description explains what the simulation shows.
	Description() string
	// Build precomputes the transform state for the given shape. The
	// same shape and params always produce an identical transform.
	Build(shape frame.Shape, params Params) (Transform, error)
}

// TransformFunc adapts a plain function to the Transform interface.
type TransformFunc func(f *frame.Frame, severity float64) (*frame.Frame, error)

// Apply implements Transform.
func (fn TransformFunc) Apply(f *frame.Frame, severity float64) (*frame.Frame, error) {
	return fn(f, severity)
}

// clamp01 bounds severity into the closed unit interval.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clampByte converts an accumulated channel value back to a byte.
func clampByte(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
