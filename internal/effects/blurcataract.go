package effects

import (
	"github.com/anthonynsimon/bild/blur"

	"github.com/okulab/visionsim/internal/frame"
)

// BlurCataract simulates cataracts: the whole field of view loses acuity
// and takes on a washed-out yellowish veil. Severity scales both the blur
// radius and the veil opacity.
type BlurCataract struct{}

func (BlurCataract) ID() string   { return "cataract" }
func (BlurCataract) Name() string { return "Cataract" }
func (BlurCataract) Description() string {
	return "Clouded lens: progressive full-field blur with a yellowish veil"
}

type blurCataractTransform struct {
	maxSigma float64
	veilMax  float64
	veilR    byte
	veilG    byte
	veilB    byte
}

// Build reads tuning: max_sigma (default 8), veil_opacity (default 0.35)
// and the veil color channels.
func (BlurCataract) Build(_ frame.Shape, params Params) (Transform, error) {
	return &blurCataractTransform{
		maxSigma: params.Float("max_sigma", 8.0),
		veilMax:  params.Float("veil_opacity", 0.35),
		veilR:    byte(params.Int("veil_r", 235)),
		veilG:    byte(params.Int("veil_g", 225)),
		veilB:    byte(params.Int("veil_b", 180)),
	}, nil
}

// Apply blurs the frame with a severity-scaled gaussian, then blends the
// veil color over the result with integer alpha arithmetic.
func (t *blurCataractTransform) Apply(f *frame.Frame, severity float64) (*frame.Frame, error) {
	severity = clamp01(severity)

	sigma := t.maxSigma * severity
	var out *frame.Frame
	if sigma > 0.1 {
		blurred := blur.Gaussian(f.RGBA(), sigma)
		out = frame.FromImage(blurred)
		out.Seq = f.Seq
	} else {
		out = f.Clone()
	}

	alpha := int32(255 * t.veilMax * severity)
	if alpha <= 0 {
		return out, nil
	}
	inv := 255 - alpha
	vr := int32(t.veilR) * alpha
	vg := int32(t.veilG) * alpha
	vb := int32(t.veilB) * alpha
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = clampByte((int32(out.Pix[i])*inv + vr) / 255)
		out.Pix[i+1] = clampByte((int32(out.Pix[i+1])*inv + vg) / 255)
		out.Pix[i+2] = clampByte((int32(out.Pix[i+2])*inv + vb) / 255)
	}
	return out, nil
}
