// Package ballistics simulates penetrating projectiles against a host world.
//
// A Projectile is plain state. A Stepper advances it one tick at a time:
// it integrates the position, queries the world for a blocking surface,
// resolves penetration against the material table, searches for the exit
// point through the struck object and deflects the trajectory afterwards.
// Nothing in this package returns errors; every degenerate case is handled
// by substituting a policy (stop, lodge or skip the tick).
package ballistics

import (
	"github.com/OCAP2/ballistics/pkg/core"
)

// DefaultMaxExitIterations caps the exit search on degenerate geometry.
const DefaultMaxExitIterations = 64

// Cosmetic constants of the debug primitives.
const (
	debugSphereRadius   = 20
	debugSphereSegments = 4
	debugDuration       = 5
)

// DeflectionRange maps projectile speed to the half-angle (radians) of the
// post-penetration deflection cone.
type DeflectionRange struct {
	SpeedMin float64
	SpeedMax float64
	AngleMin float64
	AngleMax float64
}

// DefaultDeflectionRange returns a 5 to 10 degree cone switched at 10000 units/s.
func DefaultDeflectionRange() DeflectionRange {
	return DeflectionRange{
		SpeedMin: 10000,
		SpeedMax: 10000,
		AngleMin: 0.087266,
		AngleMax: 0.174533,
	}
}

// Config holds the construction-time parameters of the simulation.
type Config struct {
	Bullet            core.BulletParameters
	Environment       core.Environment
	Decal             core.DecalSettings
	Deflection        DeflectionRange
	MuzzleSpeed       float64
	LifeTime          float64
	FloorZ            float64
	MaxExitIterations int
	DebugLine         bool
	DebugSphere       bool
}

// DefaultConfig returns the stock rifle round configuration.
func DefaultConfig() Config {
	return Config{
		Bullet:            core.DefaultBulletParameters(),
		Environment:       core.DefaultEnvironment(),
		Decal:             core.DefaultDecalSettings(),
		Deflection:        DefaultDeflectionRange(),
		MuzzleSpeed:       75000,
		LifeTime:          3,
		FloorZ:            0,
		MaxExitIterations: DefaultMaxExitIterations,
	}
}
