package effects

import (
	"math"

	"github.com/okulab/visionsim/internal/frame"
)

// Glaucoma simulates tunnel vision: peripheral sight darkens toward the
// edges while a central window stays clear. Severity shrinks the window.
type Glaucoma struct{}

func (Glaucoma) ID() string   { return "glaucoma" }
func (Glaucoma) Name() string { return "Glaucoma" }
func (Glaucoma) Description() string {
	return "Tunnel vision: peripheral field loss closing in on a central window"
}

type glaucomaTransform struct {
	// dist holds the per-pixel distance from the frame center, quantized
	// to 0..255 over [0, maxDist]. Precomputed once per shape; this is
	// the severity-independent state.
	dist     []uint8
	maxDist  float64
	minClear float64
	softness float64
}

// Build precomputes the radial distance field. Tuning: min_clear_radius
// (fraction of the field that stays visible at severity 1, default 0.12)
// and edge softness (default 0.25).
func (Glaucoma) Build(shape frame.Shape, params Params) (Transform, error) {
	dist, maxDist := radialField(shape)
	return &glaucomaTransform{
		dist:     dist,
		maxDist:  maxDist,
		minClear: params.Float("min_clear_radius", 0.12),
		softness: params.Float("softness", 0.25),
	}, nil
}

// radialField computes per-pixel center distances normalized by the
// shorter half-dimension, quantized to bytes over the observed maximum
// (the corner distance).
func radialField(shape frame.Shape) ([]uint8, float64) {
	cx := float64(shape.Width-1) / 2
	cy := float64(shape.Height-1) / 2
	norm := math.Min(cx, cy)
	if norm <= 0 {
		norm = 1
	}
	maxDist := math.Sqrt(cx*cx+cy*cy) / norm

	field := make([]uint8, shape.Pixels())
	for y := 0; y < shape.Height; y++ {
		dy := float64(y) - cy
		row := y * shape.Width
		for x := 0; x < shape.Width; x++ {
			dx := float64(x) - cx
			d := math.Sqrt(dx*dx+dy*dy) / norm
			q := int(d / maxDist * 255)
			if q > 255 {
				q = 255
			}
			field[row+x] = uint8(q)
		}
	}
	return field, maxDist
}

// attenuationTable builds a 256-entry darkening table for the current
// severity, indexed by the quantized distance. The table is per-call
// scratch; the distance field is the invariant precomputed state.
func (t *glaucomaTransform) attenuationTable(severity float64) [256]float32 {
	var table [256]float32
	// the clear radius shrinks from beyond the corners down to minClear
	clear := (t.maxDist+t.softness)*(1-severity) + t.minClear*severity
	soft := t.softness
	if soft < 0.01 {
		soft = 0.01
	}
	for i := range table {
		d := float64(i) / 255 * t.maxDist
		table[i] = float32(1 - smoothstep((d-clear)/soft))
	}
	return table
}

func smoothstep(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x * x * (3 - 2*x)
}

// Apply darkens pixels by their distance-indexed attenuation.
func (t *glaucomaTransform) Apply(f *frame.Frame, severity float64) (*frame.Frame, error) {
	severity = clamp01(severity)
	out := f.Clone()
	if severity == 0 {
		return out, nil
	}

	table := t.attenuationTable(severity)
	for p, d := range t.dist {
		keep := table[d]
		if keep >= 1 {
			continue
		}
		o := p * 4
		out.Pix[o] = byte(float32(out.Pix[o]) * keep)
		out.Pix[o+1] = byte(float32(out.Pix[o+1]) * keep)
		out.Pix[o+2] = byte(float32(out.Pix[o+2]) * keep)
	}
	return out, nil
}
