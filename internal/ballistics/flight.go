package ballistics

import (
	"math"
	"math/rand/v2"

	"github.com/OCAP2/ballistics/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// CrossSection returns the frontal area of a bullet of the given caliber (mm) in cm².
func CrossSection(caliber float64) float64 {
	r := caliber / 2 / 10
	return math.Pi * r * r
}

// GravityForce returns the downward pull on a bullet.
func GravityForce(bullet core.BulletParameters, env core.Environment) core.Vec3 {
	return core.Vec3{0, 0, -env.Gravity * (bullet.Mass / 1000)}
}

// DragForce returns the quadratic air resistance opposing v.
func DragForce(v core.Vec3, bullet core.BulletParameters, env core.Environment) core.Vec3 {
	magnitude := 0.5 * env.AirDensity * v.Dot(v) * env.DragCoefficient * CrossSection(bullet.Caliber)
	return safeNormal(v).Mul(-magnitude)
}

// Integrate applies one forward Euler step of gravity and drag to v.
// Stability depends on small, fixed elapsed times.
func Integrate(v core.Vec3, elapsed float64, bullet core.BulletParameters, env core.Environment) core.Vec3 {
	force := GravityForce(bullet, env).Add(DragForce(v, bullet, env))
	return v.Add(force.Mul(elapsed))
}

// AngleBetween returns the angle between a and b in degrees.
// Zero-length inputs yield 90.
func AngleBetween(a, b core.Vec3) float64 {
	cos := mgl64.Clamp(safeNormal(a).Dot(safeNormal(b)), -1, 1)
	return mgl64.RadToDeg(math.Acos(cos))
}

// MapRangeClamped maps value from [inMin, inMax] onto [outMin, outMax],
// clamping at both ends. A zero-width input range selects outMax once value
// reaches inMax and outMin below it.
func MapRangeClamped(inMin, inMax, outMin, outMax, value float64) float64 {
	var pct float64
	divisor := inMax - inMin
	if math.Abs(divisor) < 1e-8 {
		if value >= inMax {
			pct = 1
		}
	} else {
		pct = mgl64.Clamp((value-inMin)/divisor, 0, 1)
	}
	return outMin + (outMax-outMin)*pct
}

// Deflector perturbs the trajectory after a penetration event.
type Deflector struct {
	rng *rand.Rand
	r   DeflectionRange
}

// NewDeflector creates a deflector drawing from rng. A nil rng uses a
// randomly seeded source.
func NewDeflector(r DeflectionRange, rng *rand.Rand) *Deflector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Deflector{rng: rng, r: r}
}

// HalfAngle returns the cone half-angle in radians for the given speed.
func (d *Deflector) HalfAngle(speed float64) float64 {
	return MapRangeClamped(d.r.SpeedMin, d.r.SpeedMax, d.r.AngleMin, d.r.AngleMax, speed)
}

// Sample returns a random vector within the deflection cone around v,
// scaled to the speed of v.
func (d *Deflector) Sample(v core.Vec3) core.Vec3 {
	speed := v.Len()
	return d.randomInCone(v, d.HalfAngle(speed)).Mul(speed)
}

// Deflect samples a new velocity around v and keeps it from turning back
// into the struck object. inward is the impact normal negated.
func (d *Deflector) Deflect(v, inward core.Vec3) core.Vec3 {
	return BiasTowardNormal(d.Sample(v), inward)
}

// randomInCone draws a unit vector uniformly from the spherical cap of the
// given half-angle around axis.
func (d *Deflector) randomInCone(axis core.Vec3, halfAngle float64) core.Vec3 {
	dir := safeNormal(axis)
	if dir == (core.Vec3{}) {
		return dir
	}
	cosTheta := 1 - d.rng.Float64()*(1-math.Cos(halfAngle))
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := d.rng.Float64() * 2 * math.Pi

	u, w := orthonormalBasis(dir)
	return dir.Mul(cosTheta).
		Add(u.Mul(sinTheta * math.Cos(phi))).
		Add(w.Mul(sinTheta * math.Sin(phi)))
}

// BiasTowardNormal leaves sampled untouched when it makes an angle below 90
// degrees with inward. Otherwise sampled is rotated toward inward by the
// fraction (angle/90 - 1) of the angle between them.
func BiasTowardNormal(sampled, inward core.Vec3) core.Vec3 {
	angle := AngleBetween(inward, sampled)
	if angle < 90 {
		return sampled
	}
	fraction := angle/90 - 1
	if sampled == (core.Vec3{}) || inward == (core.Vec3{}) {
		return sampled
	}
	full := mgl64.QuatBetweenVectors(safeNormal(sampled), safeNormal(inward))
	partial := mgl64.QuatSlerp(mgl64.QuatIdent(), full, fraction)
	return partial.Rotate(sampled)
}

func safeNormal(v core.Vec3) core.Vec3 {
	l := v.Len()
	if l < 1e-8 {
		return core.Vec3{}
	}
	return v.Mul(1 / l)
}

func orthonormalBasis(dir core.Vec3) (core.Vec3, core.Vec3) {
	helper := core.Vec3{1, 0, 0}
	if math.Abs(dir[0]) > 0.9 {
		helper = core.Vec3{0, 1, 0}
	}
	u := safeNormal(helper.Cross(dir))
	return u, dir.Cross(u)
}
