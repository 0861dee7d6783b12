package effects

import "github.com/okulab/visionsim/internal/frame"

// Identity passes frames through untouched. It is the default for batch
// conversion and a measurement baseline for pipeline overhead.
type Identity struct{}

func (Identity) ID() string   { return "identity" }
func (Identity) Name() string { return "Identity" }
func (Identity) Description() string {
	return "No visual impairment; frames pass through unchanged"
}

// Build returns a transform that clones the input so downstream stages
// still receive an owned buffer.
func (Identity) Build(_ frame.Shape, _ Params) (Transform, error) {
	return TransformFunc(func(f *frame.Frame, _ float64) (*frame.Frame, error) {
		return f.Clone(), nil
	}), nil
}
