package ballistics

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/OCAP2/ballistics/pkg/core"
)

// Effects receives the cosmetic requests of the stepper. Calls are fire-and-forget.
type Effects interface {
	SpawnDecal(d core.Decal)
	DrawLine(l core.DebugLine)
	DrawSphere(s core.DebugSphere)
}

// Dependencies holds the collaborators of a Stepper.
type Dependencies struct {
	World     World
	Materials Materials
	Effects   Effects
	Logger    *slog.Logger
	Metrics   *Metrics
	Rand      *rand.Rand
}

// Stepper advances projectiles through a world.
type Stepper struct {
	cfg       Config
	world     World
	resolver  Resolver
	locator   ExitLocator
	deflector *Deflector
	effects   Effects
	logger    *slog.Logger
	metrics   *Metrics
}

// NewStepper creates a stepper. A nil World makes every step a no-op.
func NewStepper(cfg Config, deps Dependencies) *Stepper {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	effects := deps.Effects
	if effects == nil {
		effects = discardEffects{}
	}
	return &Stepper{
		cfg:       cfg,
		world:     deps.World,
		resolver:  NewResolver(cfg.Bullet, deps.Materials),
		locator:   NewExitLocator(deps.World, cfg.MaxExitIterations),
		deflector: NewDeflector(cfg.Deflection, deps.Rand),
		effects:   effects,
		logger:    logger,
		metrics:   deps.Metrics,
	}
}

// Spawn creates a projectile at origin flying along direction at muzzle speed.
// onDestroy, if set, runs exactly once when the projectile is removed.
func (s *Stepper) Spawn(id string, origin, direction core.Vec3, onDestroy func(*Projectile)) *Projectile {
	dir := safeNormal(direction)
	p := &Projectile{
		ID:          id,
		FiredAt:     time.Now(),
		Origin:      origin,
		FirstPos:    origin,
		LastPos:     origin,
		Velocity:    dir.Mul(s.cfg.MuzzleSpeed),
		LifeTime:    s.cfg.LifeTime,
		muzzleSpeed: s.cfg.MuzzleSpeed,
		bullet:      s.cfg.Bullet,
		direction:   dir,
		onDestroy:   onDestroy,
	}
	p.sample()
	return p
}

// Tick accumulates dt into the projectile's elapsed time, advances it by the
// accumulated time and removes it once it falls below the floor.
func (s *Stepper) Tick(p *Projectile, dt float64) {
	if p.destroyed {
		return
	}
	p.Elapsed += dt
	s.Advance(p, p.Elapsed)

	if !p.destroyed && p.LastPos.Z() < s.cfg.FloorZ {
		p.Destroy(ReasonBelowFloor)
	}
}

// Advance moves the projectile by velocity * elapsed, resolving any surface
// struck along the way.
func (s *Stepper) Advance(p *Projectile, elapsed float64) {
	if p.destroyed || p.Lodged {
		return
	}
	if s.world == nil {
		s.logger.Debug("collision system unavailable, skipping step", "projectile", p.ID)
		return
	}
	s.metrics.step()

	p.FirstPos = p.LastPos
	candidate := p.FirstPos.Add(p.Velocity.Mul(elapsed))
	s.drawSphere(candidate)

	hit, ok := s.world.QuerySegment(p.FirstPos, candidate, p.Ignored)
	if !ok {
		s.drawLine(p, candidate)
		p.LastPos = candidate
		p.Velocity = Integrate(p.Velocity, elapsed, s.cfg.Bullet, s.cfg.Environment)
		p.sample()
		return
	}

	s.drawLine(p, hit.Location)
	s.metrics.impact(string(hit.Material))

	depth, penetrable := s.resolver.Resolve(hit)
	if !penetrable {
		s.stop(p, hit, ReasonImpenetrable)
		return
	}

	p.PenetrationDepth = depth
	s.spawnDecal(hit)
	entry := p.addImpact(core.ImpactEntry, hit)
	entry.Depth = depth
	entry.Speed = p.Speed()

	exit := s.locator.Locate(hit, p.Velocity, depth)
	s.metrics.exit(exit.Outcome)

	switch exit.Outcome {
	case ExitFound:
		s.passThrough(p, exit, elapsed)
		p.Ignored = p.Ignored.With(hit.Surface)
		p.Velocity = s.deflector.Deflect(p.Velocity, hit.Normal.Mul(-1))
		s.logger.Debug("projectile penetrated",
			"projectile", p.ID, "surface", hit.Surface, "thickness", exit.Thickness, "speed", p.Speed())

	case ExitLodged:
		p.Penetrated = false
		p.Lodged = true
		p.Velocity = core.Vec3{}
		p.LastPos = hit.Location
		lodged := p.addImpact(core.ImpactLodged, exit.Exit)
		lodged.Depth = depth
		lodged.Thickness = exit.Thickness
		lodged.Skipped = exit.Skipped.Clone()
		p.sample()
		s.logger.Debug("projectile lodged",
			"projectile", p.ID, "surface", hit.Surface, "depth", depth, "thickness", exit.Thickness)

	default:
		s.logger.Debug("no exit surface found",
			"projectile", p.ID, "surface", hit.Surface, "iterations", exit.Iterations)
		s.stop(p, hit, ReasonNoExit)
	}
}

// passThrough relocates the projectile to the exit point and bleeds speed
// in proportion to the traversed thickness.
func (s *Stepper) passThrough(p *Projectile, exit ExitResult, elapsed float64) {
	p.Velocity = p.Velocity.Mul(math.Max(0, 1-exit.Thickness*0.01))
	p.LastPos = exit.Exit.Location
	p.Velocity = Integrate(p.Velocity, elapsed, s.cfg.Bullet, s.cfg.Environment)
	s.spawnDecal(exit.Exit)
	p.Penetrated = true

	rec := p.addImpact(core.ImpactExit, exit.Exit)
	rec.Depth = p.PenetrationDepth
	rec.Thickness = exit.Thickness
	rec.Skipped = exit.Skipped.Clone()
	rec.Speed = p.Speed()
	p.sample()
}

// stop halts the projectile at the impact point and removes it.
func (s *Stepper) stop(p *Projectile, hit core.Hit, reason TerminationReason) {
	p.Penetrated = false
	p.LastPos = hit.Location
	p.Velocity = core.Vec3{}
	p.addImpact(core.ImpactStopped, hit)
	p.sample()
	p.Destroy(reason)
}

func (s *Stepper) spawnDecal(hit core.Hit) {
	s.effects.SpawnDecal(core.Decal{
		Surface:        hit.Surface,
		Location:       hit.Location,
		Orientation:    hit.Normal,
		Size:           s.cfg.Decal.Size,
		LifeSpan:       s.cfg.Decal.LifeSpan,
		FadeScreenSize: s.cfg.Decal.FadeScreenSize,
	})
}

func (s *Stepper) drawLine(p *Projectile, end core.Vec3) {
	if !s.cfg.DebugLine {
		return
	}
	s.effects.DrawLine(core.DebugLine{
		Start:    p.FirstPos,
		End:      end,
		Color:    TraceColor(p.Speed(), p.muzzleSpeed),
		Duration: debugDuration,
	})
}

func (s *Stepper) drawSphere(center core.Vec3) {
	if !s.cfg.DebugSphere {
		return
	}
	s.effects.DrawSphere(core.DebugSphere{
		Center:   center,
		Radius:   debugSphereRadius,
		Segments: debugSphereSegments,
		Color:    core.Color{R: 1, A: 1},
		Duration: debugDuration,
	})
}

type discardEffects struct{}

func (discardEffects) SpawnDecal(core.Decal)       {}
func (discardEffects) DrawLine(core.DebugLine)     {}
func (discardEffects) DrawSphere(core.DebugSphere) {}
