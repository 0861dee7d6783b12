package effects

import (
	"fmt"

	"github.com/okulab/visionsim/internal/frame"
)

// ColorBlind simulates the dichromatic color vision deficiencies by
// projecting colors onto the reduced color plane of the missing cone type.
// Severity interpolates between normal vision and the full deficiency.
type ColorBlind struct{}

func (ColorBlind) ID() string   { return "colorblind" }
func (ColorBlind) Name() string { return "Color vision deficiency" }
func (ColorBlind) Description() string {
	return "Protanopia, deuteranopia or tritanopia color plane projection"
}

// Full-deficiency RGB projection matrices (Brettel/Vienot style,
// precomputed in sRGB space). Row-major 3x3.
var deficiencyMatrices = map[string][9]float64{
	"protan": {
		0.152286, 1.052583, -0.204868,
		0.114503, 0.786281, 0.099216,
		-0.003882, -0.048116, 1.051998,
	},
	"deutan": {
		0.367322, 0.860646, -0.227968,
		0.280085, 0.672501, 0.047413,
		-0.011820, 0.042940, 0.968881,
	},
	"tritan": {
		1.255528, -0.076749, -0.178779,
		-0.078411, 0.930809, 0.147602,
		0.004733, 0.691367, 0.303900,
	},
}

type colorBlindTransform struct {
	// m is the full-deficiency matrix in 16.16 fixed point, precomputed
	// at build time. Severity interpolation toward identity happens per
	// call in the same fixed-point domain.
	m [9]int32
}

// Build selects the deficiency variant via the "variant" tuning key
// (protan, deutan or tritan; default deutan).
func (ColorBlind) Build(_ frame.Shape, params Params) (Transform, error) {
	variant := params.String("variant", "deutan")
	m, ok := deficiencyMatrices[variant]
	if !ok {
		return nil, fmt.Errorf("unknown colorblind variant: %s", variant)
	}

	t := &colorBlindTransform{}
	for i, v := range m {
		t.m[i] = int32(v * 65536)
	}
	return t, nil
}

// Apply mixes each pixel through the severity-interpolated matrix.
func (t *colorBlindTransform) Apply(f *frame.Frame, severity float64) (*frame.Frame, error) {
	severity = clamp01(severity)
	out := f.Clone()
	if severity == 0 {
		return out, nil
	}

	// eff = identity*(1-severity) + deficiency*severity, fixed point
	s := int32(severity * 65536)
	inv := int32(65536) - s
	var eff [9]int32
	for i := range eff {
		eff[i] = int32(int64(t.m[i]) * int64(s) >> 16)
	}
	eff[0] += inv
	eff[4] += inv
	eff[8] += inv

	for i := 0; i < len(out.Pix); i += 4 {
		r := int64(out.Pix[i])
		g := int64(out.Pix[i+1])
		b := int64(out.Pix[i+2])
		out.Pix[i] = clampByte(int32((r*int64(eff[0]) + g*int64(eff[1]) + b*int64(eff[2])) >> 16))
		out.Pix[i+1] = clampByte(int32((r*int64(eff[3]) + g*int64(eff[4]) + b*int64(eff[5])) >> 16))
		out.Pix[i+2] = clampByte(int32((r*int64(eff[6]) + g*int64(eff[7]) + b*int64(eff[8])) >> 16))
	}
	return out, nil
}
