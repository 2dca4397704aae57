// pkg/core/types.go
package core

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is the vector type used for positions, velocities and normals.
type Vec3 = mgl64.Vec3

// SurfaceID identifies a struck object in the host world.
type SurfaceID string

// MaterialID identifies the physical material reported at an intersection point.
type MaterialID string

// Hit is the result of a segment intersection query.
// Blocking is false when the query did not strike anything.
type Hit struct {
	Surface  SurfaceID
	Location Vec3 // impact point
	Normal   Vec3 // outward surface normal at the impact point
	Material MaterialID
	Blocking bool
}

// Box is an axis-aligned bounding volume described by its center and half-size.
type Box struct {
	Origin Vec3
	Extent Vec3
}

// MaxExtent returns the largest half-size component of the box.
func (b Box) MaxExtent() float64 {
	return math.Max(math.Abs(b.Extent[0]), math.Max(math.Abs(b.Extent[1]), math.Abs(b.Extent[2])))
}

// Min returns the lower corner of the box.
func (b Box) Min() Vec3 {
	return b.Origin.Sub(b.Extent)
}

// Max returns the upper corner of the box.
func (b Box) Max() Vec3 {
	return b.Origin.Add(b.Extent)
}

// IgnoreSet is a growable list of surfaces excluded from intersection queries.
// The zero value is an empty set.
type IgnoreSet []SurfaceID

// Contains reports whether id is excluded.
func (s IgnoreSet) Contains(id SurfaceID) bool {
	return slices.Contains(s, id)
}

// With returns the set extended by id. The receiver is returned unchanged
// when id is already present.
func (s IgnoreSet) With(id SurfaceID) IgnoreSet {
	if s.Contains(id) {
		return s
	}
	return append(s, id)
}

// Clone returns a copy that does not share storage with s.
func (s IgnoreSet) Clone() IgnoreSet {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

// BulletParameters are the static physical properties of a projectile.
// Caliber and length are in millimetres, mass in grams, density in g/cm³.
type BulletParameters struct {
	Caliber float64 `json:"caliber" mapstructure:"caliber"`
	Length  float64 `json:"length" mapstructure:"length"`
	Mass    float64 `json:"mass" mapstructure:"mass"`
	Density float64 `json:"density" mapstructure:"density"`
}

// DefaultBulletParameters describes a 7.62x39 round.
func DefaultBulletParameters() BulletParameters {
	return BulletParameters{
		Caliber: 7.62,
		Length:  39,
		Mass:    12.6,
		Density: 7.83,
	}
}

// Environment holds the process-wide constants used by flight integration.
type Environment struct {
	AirDensity      float64 `json:"airDensity" mapstructure:"airDensity"`
	Gravity         float64 `json:"gravity" mapstructure:"gravity"`
	DragCoefficient float64 `json:"dragCoefficient" mapstructure:"dragCoefficient"`
}

// DefaultEnvironment returns sea-level air in centimetre units.
func DefaultEnvironment() Environment {
	return Environment{
		AirDensity:      0.001225,
		Gravity:         981,
		DragCoefficient: 0.47,
	}
}

// DecalSettings are the cosmetic parameters of a bullet hole mark.
type DecalSettings struct {
	Size           Vec3
	LifeSpan       float64
	FadeScreenSize float64
}

// DefaultDecalSettings returns the stock bullet hole decal.
func DefaultDecalSettings() DecalSettings {
	return DecalSettings{
		Size:           Vec3{0.1, 20, 20},
		LifeSpan:       20,
		FadeScreenSize: 0.001,
	}
}

// Decal is a request to spawn a visual mark on a struck surface.
type Decal struct {
	Surface        SurfaceID
	Location       Vec3
	Orientation    Vec3 // the mark faces along this direction
	Size           Vec3
	LifeSpan       float64
	FadeScreenSize float64
}

// Color is a linear RGBA colour.
type Color struct {
	R, G, B, A float64
}

// Lerp interpolates linearly between c and o.
func (c Color) Lerp(o Color, alpha float64) Color {
	return Color{
		R: c.R + (o.R-c.R)*alpha,
		G: c.G + (o.G-c.G)*alpha,
		B: c.B + (o.B-c.B)*alpha,
		A: c.A + (o.A-c.A)*alpha,
	}
}

// DebugLine is a request to draw a trajectory segment.
type DebugLine struct {
	Start    Vec3
	End      Vec3
	Color    Color
	Duration float64
}

// DebugSphere is a request to draw a marker at a candidate position.
type DebugSphere struct {
	Center   Vec3
	Radius   float64
	Segments int
	Color    Color
	Duration float64
}
