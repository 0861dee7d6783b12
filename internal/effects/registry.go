package effects

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Effect)
)

// Register adds an effect to the registry. Registering a duplicate ID
// panics; effect IDs are program constants.
func Register(e Effect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[e.ID()]; exists {
		panic("effects: duplicate effect id " + e.ID())
	}
	registry[e.ID()] = e
}

// Get returns the effect with the given ID.
func Get(id string) (Effect, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[id]
	return e, ok
}

// IsValid reports whether an effect with the given ID is registered.
func IsValid(id string) bool {
	_, ok := Get(id)
	return ok
}

// Info summarizes a registered effect for listings.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// List returns all registered effects sorted by ID.
func List() []Info {
	registryMu.RLock()
	defer registryMu.RUnlock()

	infos := make([]Info, 0, len(registry))
	for _, e := range registry {
		infos = append(infos, Info{ID: e.ID(), Name: e.Name(), Description: e.Description()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// ErrUnknownEffect is the sentinel for lookups of unregistered effect IDs.
var ErrUnknownEffect = errors.New("unknown effect")

// ErrUnknown wraps an unknown effect ID lookup failure.
func ErrUnknown(id string) error {
	return fmt.Errorf("%w: %s", ErrUnknownEffect, id)
}

func init() {
	Register(Identity{})
	Register(BlurCataract{})
	Register(Glaucoma{})
	Register(Macular{})
	Register(Retinopathy{})
	Register(ColorBlind{})
}
