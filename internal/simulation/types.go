package simulation

import (
	"log/slog"

	"github.com/OCAP2/ballistics/internal/ballistics"
	"github.com/OCAP2/ballistics/pkg/core"
)

// EffectKind tells which field of an Effect is set.
type EffectKind string

const (
	EffectDecal  EffectKind = "decal"
	EffectLine   EffectKind = "line"
	EffectSphere EffectKind = "sphere"
)

// Effect is a buffered cosmetic request.
type Effect struct {
	Kind   EffectKind
	Decal  core.Decal
	Line   core.DebugLine
	Sphere core.DebugSphere
}

// ProjectileState is a read-only copy of a live projectile.
type ProjectileState struct {
	ID         string
	Position   core.Vec3
	Velocity   core.Vec3
	Elapsed    float64
	Remaining  float64 // lifetime left before expiry
	Penetrated bool
	Lodged     bool
	Ignored    core.IgnoreSet
}

func stateOf(p *ballistics.Projectile) ProjectileState {
	return ProjectileState{
		ID:         p.ID,
		Position:   p.LastPos,
		Velocity:   p.Velocity,
		Elapsed:    p.Elapsed,
		Remaining:  p.Remaining(),
		Penetrated: p.Penetrated,
		Lodged:     p.Lodged,
		Ignored:    p.Ignored.Clone(),
	}
}

// Stats are cumulative manager counters.
type Stats struct {
	Fired          int64
	Terminated     int64
	Ticks          int64
	SinkFailures   int64
	DroppedEffects uint64
}

// LogAttrs returns the stats as slog attributes.
func (s Stats) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Int64("fired", s.Fired),
		slog.Int64("terminated", s.Terminated),
		slog.Int64("ticks", s.Ticks),
		slog.Int64("sinkFailures", s.SinkFailures),
		slog.Uint64("droppedEffects", s.DroppedEffects),
	}
}
