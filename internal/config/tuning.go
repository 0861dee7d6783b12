package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/okulab/visionsim/internal/effects"
)

// TuningConfig holds per-effect parameter overrides loaded from effects.toml.
// Each top-level table keys an effect ID; its entries override that effect's
// built-in defaults. Unknown effect IDs are kept so a tuning file can be
// shared across builds with differing effect sets.
type TuningConfig struct {
	Version int                       `toml:"version"`
	Effects map[string]effects.Params `toml:"effects"`
}

// ParamsFor returns the overrides for an effect, or nil when none are set.
func (tc *TuningConfig) ParamsFor(effectID string) effects.Params {
	if tc == nil || tc.Effects == nil {
		return nil
	}
	return tc.Effects[effectID]
}

// LoadTuning loads effect parameter overrides from a TOML file.
// A missing file is not an error; it yields an empty config.
func LoadTuning(path string) (*TuningConfig, error) {
	cfg := &TuningConfig{
		Version: 1,
		Effects: make(map[string]effects.Params),
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read tuning config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tuning config: %w", err)
	}

	if cfg.Effects == nil {
		cfg.Effects = make(map[string]effects.Params)
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	return cfg, nil
}
