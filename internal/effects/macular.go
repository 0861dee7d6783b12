package effects

import (
	"math"
	"math/rand"

	"github.com/okulab/visionsim/internal/frame"
)

// Macular simulates age-related macular degeneration: an irregular dark
// scotoma grows over the central field while the periphery stays intact.
type Macular struct{}

func (Macular) ID() string   { return "macular" }
func (Macular) Name() string { return "Macular degeneration" }
func (Macular) Description() string {
	return "Central scotoma: an irregular blind spot covering the middle of the field"
}

const macularLobes = 9

type macularTransform struct {
	// mask holds per-pixel scotoma coverage in [0,1] at full extent,
	// precomputed from a seeded irregular boundary. Severity scales how
	// much of the mask is applied.
	mask  []float32
	shape frame.Shape
}

// Build precomputes the scotoma mask. Tuning: seed (default 1), scale
// (full-severity radius as a fraction of the shorter half-dimension,
// default 0.55) and softness (default 0.3). The same seed always yields
// a bit-identical mask.
func (Macular) Build(shape frame.Shape, params Params) (Transform, error) {
	seed := params.Seed(1)
	scale := params.Float("scale", 0.55)
	softness := params.Float("softness", 0.3)

	return &macularTransform{
		mask:  scotomaMask(shape, seed, scale, softness),
		shape: shape,
	}, nil
}

// scotomaMask rasterizes an irregular radial blob: a base radius perturbed
// per angle by seeded sinusoidal lobes, with a smooth falloff band.
func scotomaMask(shape frame.Shape, seed int64, scale, softness float64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	amps := make([]float64, macularLobes)
	phases := make([]float64, macularLobes)
	for i := range amps {
		amps[i] = rng.Float64() * 0.22
		phases[i] = rng.Float64() * 2 * math.Pi
	}

	mask := make([]float32, shape.Pixels())
	cx := float64(shape.Width-1) / 2
	cy := float64(shape.Height-1) / 2
	norm := math.Min(cx, cy)
	if norm <= 0 {
		norm = 1
	}
	if softness < 0.02 {
		softness = 0.02
	}

	for y := 0; y < shape.Height; y++ {
		dy := float64(y) - cy
		row := y * shape.Width
		for x := 0; x < shape.Width; x++ {
			dx := float64(x) - cx
			d := math.Sqrt(dx*dx+dy*dy) / norm
			theta := math.Atan2(dy, dx)

			edge := scale
			for i := 0; i < macularLobes; i++ {
				edge += scale * amps[i] * math.Sin(float64(i+2)*theta+phases[i])
			}

			cover := 1.0 - smoothstep((d-edge+softness)/softness)
			mask[row+x] = float32(cover)
		}
	}
	return mask
}

// Apply darkens each pixel by its mask coverage scaled by severity.
func (t *macularTransform) Apply(f *frame.Frame, severity float64) (*frame.Frame, error) {
	severity = clamp01(severity)
	out := f.Clone()
	if severity == 0 {
		return out, nil
	}

	sev := float32(severity)
	for p, cover := range t.mask {
		k := 1 - cover*sev
		if k >= 1 {
			continue
		}
		o := p * 4
		out.Pix[o] = byte(float32(out.Pix[o]) * k)
		out.Pix[o+1] = byte(float32(out.Pix[o+1]) * k)
		out.Pix[o+2] = byte(float32(out.Pix[o+2]) * k)
	}
	return out, nil
}
