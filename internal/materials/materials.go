// Package materials holds the penetration table: the density of every
// material a projectile can tunnel through.
package materials

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/OCAP2/ballistics/pkg/core"
)

// ErrInvalidDensity is returned for zero, negative or non-finite densities.
var ErrInvalidDensity = errors.New("invalid material density")

// Table maps material IDs to densities. IDs are case-insensitive.
// It is safe for concurrent use.
type Table struct {
	mu        sync.RWMutex
	densities map[core.MaterialID]float64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{densities: make(map[core.MaterialID]float64)}
}

// FromMap creates a table from a name to density mapping.
func FromMap(m map[string]float64) (*Table, error) {
	t := NewTable()
	for name, density := range m {
		if err := t.Set(core.MaterialID(name), density); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func normalize(id core.MaterialID) core.MaterialID {
	return core.MaterialID(strings.ToLower(strings.TrimSpace(string(id))))
}

// Set stores the density for id.
func (t *Table) Set(id core.MaterialID, density float64) error {
	if density <= 0 || math.IsNaN(density) || math.IsInf(density, 0) {
		return fmt.Errorf("%w: %s=%v", ErrInvalidDensity, id, density)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.densities[normalize(id)] = density
	return nil
}

// Density returns the density of id and whether it is known.
func (t *Table) Density(id core.MaterialID) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.densities[normalize(id)]
	return d, ok
}

// Len returns the number of materials.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.densities)
}

// Entries returns all materials sorted by ID.
func (t *Table) Entries() []Material {
	t.mu.RLock()
	out := make([]Material, 0, len(t.densities))
	for id, d := range t.densities {
		out = append(out, Material{Name: string(id), Density: d})
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
