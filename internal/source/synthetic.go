package source

import (
	"time"

	"github.com/okulab/visionsim/internal/frame"
)

// Synthetic generates a moving gradient pattern at a fixed rate. It lets
// the daemon run in demo mode without a camera and gives tests a source
// with fully deterministic content. A frame limit of 0 means unlimited.
type Synthetic struct {
	shape  frame.Shape
	limit  int
	count  int
	period time.Duration
}

// NewSynthetic creates a generator. Zero or negative dimensions fall back
// to 640x480; limit bounds the number of frames before ErrExhausted.
func NewSynthetic(width, height, limit int) *Synthetic {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	return &Synthetic{
		shape:  frame.Shape{Width: width, Height: height},
		limit:  limit,
		period: 33 * time.Millisecond,
	}
}

// SetPeriod overrides the inter-frame delay. A zero period generates
// frames as fast as the caller reads them.
func (s *Synthetic) SetPeriod(d time.Duration) {
	s.period = d
}

// Read produces the next gradient frame.
func (s *Synthetic) Read() (*frame.Frame, error) {
	if s.limit > 0 && s.count >= s.limit {
		return nil, ErrExhausted
	}
	if s.period > 0 && s.count > 0 {
		time.Sleep(s.period)
	}

	f := frame.New(s.shape)
	phase := byte(s.count * 3)
	for y := 0; y < s.shape.Height; y++ {
		row := y * f.Stride
		gy := byte(y * 255 / s.shape.Height)
		for x := 0; x < s.shape.Width; x++ {
			o := row + x*4
			f.Pix[o] = byte(x*255/s.shape.Width) + phase
			f.Pix[o+1] = gy
			f.Pix[o+2] = 128 - phase
			f.Pix[o+3] = 255
		}
	}
	s.count++
	return f, nil
}

// Shape returns the generator geometry.
func (s *Synthetic) Shape() frame.Shape {
	return s.shape
}

// Close is a no-op for the generator.
func (s *Synthetic) Close() error {
	return nil
}
