package ballistics

import (
	"time"

	"github.com/OCAP2/ballistics/pkg/core"
)

// TerminationReason explains why a projectile was removed.
type TerminationReason string

const (
	ReasonImpenetrable TerminationReason = "impenetrable"
	ReasonNoExit       TerminationReason = "no_exit"
	ReasonBelowFloor   TerminationReason = "below_floor"
	ReasonExpired      TerminationReason = "expired"
	ReasonRemoved      TerminationReason = "removed"
)

// Projectile is the mutable state of one simulated bullet.
// It is owned by a single simulation loop and is not safe for concurrent use.
type Projectile struct {
	ID      string
	FiredAt time.Time
	Origin  core.Vec3

	FirstPos core.Vec3 // position at the start of the last step
	LastPos  core.Vec3 // current position
	Velocity core.Vec3

	Elapsed          float64 // simulation time since spawn
	LifeTime         float64
	PenetrationDepth float64
	Penetrated       bool // last collision was a successful penetration
	Lodged           bool // stuck inside an object, no longer stepped
	Ignored          core.IgnoreSet

	muzzleSpeed float64
	bullet      core.BulletParameters
	direction   core.Vec3

	destroyed  bool
	reason     TerminationReason
	onDestroy  func(*Projectile)
	trajectory []core.TrajectoryPoint
	impacts    []core.Impact
}

// Remaining returns the lifetime left before forced removal.
func (p *Projectile) Remaining() float64 {
	return p.LifeTime - p.Elapsed
}

// Speed returns the magnitude of the velocity.
func (p *Projectile) Speed() float64 {
	return p.Velocity.Len()
}

// Destroyed reports whether the projectile has been removed.
func (p *Projectile) Destroyed() bool {
	return p.destroyed
}

// Reason returns why the projectile was removed, empty while alive.
func (p *Projectile) Reason() TerminationReason {
	return p.reason
}

// Destroy removes the projectile. Only the first call has an effect and
// reports true; later calls are no-ops.
func (p *Projectile) Destroy(reason TerminationReason) bool {
	if p.destroyed {
		return false
	}
	p.destroyed = true
	p.reason = reason
	if p.onDestroy != nil {
		p.onDestroy(p)
	}
	return true
}

// Trajectory returns the sampled positions so far.
func (p *Projectile) Trajectory() []core.TrajectoryPoint {
	return p.trajectory
}

// Impacts returns the collision events so far.
func (p *Projectile) Impacts() []core.Impact {
	return p.impacts
}

// Record builds the shot history of the projectile.
func (p *Projectile) Record() *core.ShotRecord {
	return &core.ShotRecord{
		ID:          p.ID,
		FiredAt:     p.FiredAt,
		Origin:      p.Origin,
		Direction:   p.direction,
		MuzzleSpeed: p.muzzleSpeed,
		Bullet:      p.bullet,
		FlightTime:  p.Elapsed,
		Reason:      string(p.reason),
		Trajectory:  append([]core.TrajectoryPoint(nil), p.trajectory...),
		Impacts:     append([]core.Impact(nil), p.impacts...),
	}
}

func (p *Projectile) sample() {
	p.trajectory = append(p.trajectory, core.TrajectoryPoint{Position: p.LastPos, Time: p.Elapsed})
}

func (p *Projectile) addImpact(kind core.ImpactKind, hit core.Hit) *core.Impact {
	p.impacts = append(p.impacts, core.Impact{
		Kind:     kind,
		Time:     p.Elapsed,
		Surface:  hit.Surface,
		Material: hit.Material,
		Location: hit.Location,
		Normal:   hit.Normal,
	})
	return &p.impacts[len(p.impacts)-1]
}
