// Package frame defines the pixel buffer types that move through the
// processing pipeline: Frame, Job and Result.
package frame

import (
	"image"
	"image/draw"
)

// Shape describes the fixed geometry of every frame in a session.
// Width and height never change while a pipeline is running.
type Shape struct {
	Width  int
	Height int
}

// Pixels returns the total pixel count for the shape.
func (s Shape) Pixels() int {
	return s.Width * s.Height
}

// Valid reports whether the shape has positive dimensions.
func (s Shape) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Frame is an owned RGBA pixel grid tagged with a capture sequence number.
// A frame is exclusively held by one pipeline stage at a time and is never
// mutated after the owning stage hands it off.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte // RGBA, 4 bytes per pixel
	Seq    uint64
}

// New allocates a zeroed frame with the given shape.
func New(shape Shape) *Frame {
	return &Frame{
		Width:  shape.Width,
		Height: shape.Height,
		Stride: shape.Width * 4,
		Pix:    make([]byte, shape.Width*shape.Height*4),
	}
}

// Shape returns the frame geometry.
func (f *Frame) Shape() Shape {
	return Shape{Width: f.Width, Height: f.Height}
}

// Clone returns a deep copy of the frame, including its sequence number.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		Width:  f.Width,
		Height: f.Height,
		Stride: f.Stride,
		Pix:    make([]byte, len(f.Pix)),
		Seq:    f.Seq,
	}
	copy(c.Pix, f.Pix)
	return c
}

// RGBA returns an image.RGBA view sharing the frame's pixel buffer.
// Mutating the returned image mutates the frame.
func (f *Frame) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Stride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FromImage converts an arbitrary image into an owned frame, copying pixels.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := New(Shape{Width: b.Dx(), Height: b.Dy()})
	dst := f.RGBA()
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return f
}

// Job pairs one captured frame with the severity value sampled when the
// frame was enqueued. Jobs are created by the capture loop and destroyed
// by the worker that turns them into a Result.
type Job struct {
	Frame    *Frame
	Severity float64
}

// Seq returns the sequence number of the job's frame.
func (j Job) Seq() uint64 {
	if j.Frame == nil {
		return 0
	}
	return j.Frame.Seq
}

// Result is a processed frame tagged with the sequence number of its source
// job. Presentation uses the tag to discard results older than one it has
// already shown.
type Result struct {
	Frame *Frame
	Seq   uint64
	// Passthrough is set when the transform was skipped (severity below
	// the fast-path floor) or when a transform failure forced the input
	// frame through unprocessed.
	Passthrough bool
}
