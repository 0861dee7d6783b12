// Package sink provides presentation sinks for processed frames: an MJPEG
// HTTP broadcaster for the live preview and a video file writer for batch
// conversion.
package sink

import "github.com/okulab/visionsim/internal/frame"

// Sink receives frames from the presentation loop. Present must return
// within bounded time; a slow consumer must shed work internally rather
// than stall the caller.
type Sink interface {
	Present(f *frame.Frame) error
}

// Func adapts a function to the Sink interface.
type Func func(f *frame.Frame) error

// Present implements Sink.
func (fn Func) Present(f *frame.Frame) error { return fn(f) }

// Discard swallows all frames. Useful when no preview client is attached
// and for benchmarks.
var Discard = Func(func(*frame.Frame) error { return nil })
