package effects

import (
	"math"
	"math/rand"

	"github.com/okulab/visionsim/internal/frame"
)

// Retinopathy simulates diabetic retinopathy: dark blotches scattered
// across the field where retinal bleeding blocks vision. Severity controls
// how many blotches are active and how opaque they are.
type Retinopathy struct{}

func (Retinopathy) ID() string   { return "retinopathy" }
func (Retinopathy) Name() string { return "Diabetic retinopathy" }
func (Retinopathy) Description() string {
	return "Scattered dark blotches from retinal hemorrhages"
}

type blotch struct {
	cx, cy, r float64
	intensity float64
}

type retinopathyTransform struct {
	// masks[i] is the cumulative coverage field with blotches 0..i
	// rasterized; severity selects how deep into the stack to go and
	// scales opacity. Fields are precomputed from the seed.
	mask     []float32
	ranks    []float32 // per-pixel activation threshold in [0,1]
	shape    frame.Shape
	blotches int
}

// Build rasterizes the seeded blotch field. Tuning: seed (default 2),
// blotch count at full severity (default 28), and max/min radius as
// fractions of the frame height (defaults 0.14 / 0.04).
func (Retinopathy) Build(shape frame.Shape, params Params) (Transform, error) {
	seed := params.Seed(2)
	count := params.Int("blotches", 28)
	maxR := params.Float("max_radius", 0.14)
	minR := params.Float("min_radius", 0.04)

	rng := rand.New(rand.NewSource(seed))
	blotches := make([]blotch, count)
	for i := range blotches {
		blotches[i] = blotch{
			cx:        rng.Float64() * float64(shape.Width),
			cy:        rng.Float64() * float64(shape.Height),
			r:         (minR + rng.Float64()*(maxR-minR)) * float64(shape.Height),
			intensity: 0.55 + rng.Float64()*0.45,
		}
	}

	mask := make([]float32, shape.Pixels())
	ranks := make([]float32, shape.Pixels())
	for i, b := range blotches {
		// blotches appear progressively: each carries the severity at
		// which it becomes active
		rank := float32(i+1) / float32(count)
		x0, x1 := boundInt(b.cx-b.r, shape.Width), boundInt(b.cx+b.r+1, shape.Width)
		y0, y1 := boundInt(b.cy-b.r, shape.Height), boundInt(b.cy+b.r+1, shape.Height)
		for y := y0; y < y1; y++ {
			dy := float64(y) - b.cy
			row := y * shape.Width
			for x := x0; x < x1; x++ {
				dx := float64(x) - b.cx
				d := math.Sqrt(dx*dx+dy*dy) / b.r
				if d >= 1 {
					continue
				}
				cover := float32(b.intensity * (1 - smoothstep(d)))
				p := row + x
				if cover > mask[p] {
					mask[p] = cover
					ranks[p] = rank
				}
			}
		}
	}

	return &retinopathyTransform{
		mask:     mask,
		ranks:    ranks,
		shape:    shape,
		blotches: count,
	}, nil
}

func boundInt(v float64, limit int) int {
	i := int(v)
	if i < 0 {
		return 0
	}
	if i > limit {
		return limit
	}
	return i
}

// Apply darkens pixels whose blotch rank is active at this severity.
func (t *retinopathyTransform) Apply(f *frame.Frame, severity float64) (*frame.Frame, error) {
	severity = clamp01(severity)
	out := f.Clone()
	if severity == 0 {
		return out, nil
	}

	sev := float32(severity)
	for p, cover := range t.mask {
		if cover == 0 || t.ranks[p] > sev {
			continue
		}
		k := 1 - cover*sev
		o := p * 4
		out.Pix[o] = byte(float32(out.Pix[o]) * k)
		out.Pix[o+1] = byte(float32(out.Pix[o+1]) * k)
		out.Pix[o+2] = byte(float32(out.Pix[o+2]) * k)
	}
	return out, nil
}
