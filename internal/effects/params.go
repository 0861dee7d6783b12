package effects

// Params carries per-effect tuning values, typically decoded from the
// effects TOML file. Missing or mistyped keys fall back to the provided
// default, so effects are always buildable with empty params.
type Params map[string]any

// Float returns the float value for key, accepting TOML integer decoding.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return def
	}
}

// Int returns the integer value for key.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// String returns the string value for key.
func (p Params) String(key string, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Seed returns the random seed used for mask generation. Effects built
// with the same seed produce bit-identical precomputed state.
func (p Params) Seed(def int64) int64 {
	switch v := p["seed"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return def
	}
}
