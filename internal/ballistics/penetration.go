package ballistics

import (
	"github.com/OCAP2/ballistics/pkg/core"
)

// Materials looks up the density of a struck material.
type Materials interface {
	Density(id core.MaterialID) (float64, bool)
}

// Resolver decides whether a projectile can penetrate a struck surface.
type Resolver struct {
	bullet    core.BulletParameters
	materials Materials
}

// NewResolver creates a resolver for the given bullet against a material table.
func NewResolver(bullet core.BulletParameters, materials Materials) Resolver {
	return Resolver{bullet: bullet, materials: materials}
}

// Depth returns the heuristic thickness the bullet can tunnel through in a
// material of the given density: (length/10) * (bulletDensity/materialDensity).
func (r Resolver) Depth(materialDensity float64) float64 {
	return (r.bullet.Length / 10) * (r.bullet.Density / materialDensity)
}

// Resolve returns the penetration depth for hit and whether penetration is
// possible at all. Unknown materials and non-positive depths are impenetrable.
func (r Resolver) Resolve(hit core.Hit) (float64, bool) {
	if r.materials == nil {
		return 0, false
	}
	density, ok := r.materials.Density(hit.Material)
	if !ok {
		return 0, false
	}
	depth := r.Depth(density)
	if depth > 0 {
		return depth, true
	}
	return depth, false
}
