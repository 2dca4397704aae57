package ballistics

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/OCAP2/ballistics/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossSection(t *testing.T) {
	assert.InDelta(t, math.Pi*0.381*0.381, CrossSection(7.62), 1e-12)
	assert.Equal(t, 0.0, CrossSection(0))
}

func TestIntegrate_ClosedForm(t *testing.T) {
	bullet := core.DefaultBulletParameters()
	env := core.DefaultEnvironment()
	v := core.Vec3{75000, 0, 0}
	dt := 0.01

	area := math.Pi * (7.62 / 20) * (7.62 / 20)
	drag := 0.5 * 0.001225 * 75000 * 75000 * 0.47 * area
	gravity := 981 * 12.6 / 1000

	got := Integrate(v, dt, bullet, env)
	assert.InDelta(t, 75000-drag*dt, got.X(), 1e-6)
	assert.InDelta(t, 0.0, got.Y(), 1e-12)
	assert.InDelta(t, -gravity*dt, got.Z(), 1e-9)
}

func TestIntegrate_ZeroVelocity(t *testing.T) {
	got := Integrate(core.Vec3{}, 1, core.DefaultBulletParameters(), core.DefaultEnvironment())
	assert.False(t, math.IsNaN(got.X()))
	assert.InDelta(t, -981*12.6/1000, got.Z(), 1e-9)
}

func TestAngleBetween(t *testing.T) {
	assert.InDelta(t, 0.0, AngleBetween(core.Vec3{1, 0, 0}, core.Vec3{5, 0, 0}), 1e-6)
	assert.InDelta(t, 90.0, AngleBetween(core.Vec3{1, 0, 0}, core.Vec3{0, 3, 0}), 1e-9)
	assert.InDelta(t, 180.0, AngleBetween(core.Vec3{1, 0, 0}, core.Vec3{-1, 0, 0}), 1e-6)
	assert.InDelta(t, 90.0, AngleBetween(core.Vec3{}, core.Vec3{1, 0, 0}), 1e-9)
}

func TestMapRangeClamped(t *testing.T) {
	tests := []struct {
		name                           string
		inMin, inMax, outMin, outMax, v float64
		want                           float64
	}{
		{"midpoint", 0, 100, 0, 1, 50, 0.5},
		{"below", 0, 100, 0, 1, -10, 0},
		{"above", 0, 100, 0, 1, 500, 1},
		{"degenerate below", 10000, 10000, 0.087266, 0.174533, 9999, 0.087266},
		{"degenerate at", 10000, 10000, 0.087266, 0.174533, 10000, 0.174533},
		{"degenerate above", 10000, 10000, 0.087266, 0.174533, 75000, 0.174533},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MapRangeClamped(tt.inMin, tt.inMax, tt.outMin, tt.outMax, tt.v), 1e-12)
		})
	}
}

func TestDeflector_HalfAngle(t *testing.T) {
	d := NewDeflector(DefaultDeflectionRange(), rand.New(rand.NewPCG(1, 2)))
	assert.InDelta(t, 0.174533, d.HalfAngle(75000), 1e-12)
	assert.InDelta(t, 0.087266, d.HalfAngle(500), 1e-12)
}

func TestDeflector_SampleStaysInCone(t *testing.T) {
	d := NewDeflector(DefaultDeflectionRange(), rand.New(rand.NewPCG(42, 7)))
	v := core.Vec3{30000, 20000, -5000}
	maxDeg := 0.174533 * 180 / math.Pi

	for range 1000 {
		s := d.Sample(v)
		assert.InDelta(t, v.Len(), s.Len(), 1e-6)
		assert.LessOrEqual(t, AngleBetween(v, s), maxDeg+1e-6)
	}
}

func TestDeflector_ZeroConeKeepsDirection(t *testing.T) {
	d := NewDeflector(DeflectionRange{}, rand.New(rand.NewPCG(1, 1)))
	got := d.Deflect(core.Vec3{0, 90, 0}, core.Vec3{0, 1, 0})
	assert.InDeltaSlice(t, []float64{0, 90, 0}, got[:], 1e-9)
}

func TestDeflector_ZeroVelocity(t *testing.T) {
	d := NewDeflector(DefaultDeflectionRange(), nil)
	assert.Equal(t, core.Vec3{}, d.Sample(core.Vec3{}))
}

func TestBiasTowardNormal_BelowRightAngleUnchanged(t *testing.T) {
	inward := core.Vec3{1, 0, 0}
	sampled := core.Vec3{math.Cos(math.Pi / 3), math.Sin(math.Pi / 3), 0}.Mul(500)

	assert.Equal(t, sampled, BiasTowardNormal(sampled, inward))
}

func TestBiasTowardNormal_RotatesTowardInward(t *testing.T) {
	inward := core.Vec3{1, 0, 0}
	rad := 120 * math.Pi / 180
	sampled := core.Vec3{math.Cos(rad), math.Sin(rad), 0}.Mul(500)

	got := BiasTowardNormal(sampled, inward)

	// fraction = 120/90 - 1 = 1/3 of the 120 degree gap is closed
	require.InDelta(t, 500.0, got.Len(), 1e-9)
	assert.InDelta(t, 80.0, AngleBetween(inward, got), 1e-6)
	assert.InDelta(t, 0.0, got.Z(), 1e-9)
	assert.Greater(t, got.Y(), 0.0)
}

func TestBiasTowardNormal_ExactlyRightAngle(t *testing.T) {
	inward := core.Vec3{1, 0, 0}
	sampled := core.Vec3{0, 10, 0}

	got := BiasTowardNormal(sampled, inward)
	assert.InDeltaSlice(t, sampled[:], got[:], 1e-9)
}

func TestTraceColor(t *testing.T) {
	assert.Equal(t, traceRed.Lerp(traceDarkRed, 0.25), TraceColor(1000, 1000))
	assert.Equal(t, traceOrange.Lerp(traceRed, 600.0/1000-0.5), TraceColor(600, 1000))
	assert.Equal(t, traceGreen.Lerp(traceOrange, 300.0/1000-0.25), TraceColor(300, 1000))
	assert.Equal(t, tracePale, TraceColor(0, 1000))
	assert.Equal(t, tracePale, TraceColor(500, 0))
}
