package ballistics

import (
	"math"

	"github.com/OCAP2/ballistics/pkg/core"
)

var (
	traceDarkRed = core.Color{R: 0.005208, G: 0.000029, B: 0, A: 1}
	traceRed     = core.Color{R: 0.223228, G: 0, B: 0.001518, A: 1}
	traceOrange  = core.Color{R: 1, G: 0.577581, B: 0, A: 1}
	traceGreen   = core.Color{R: 0, G: 1, B: 0.270498, A: 1}
	tracePale    = core.Color{R: 0.708376, G: 1, B: 0.701102, A: 1}
)

// TraceColor returns the debug line colour for a projectile flying at speed,
// relative to its muzzle speed. Fast segments are dark red, slow ones pale green.
func TraceColor(speed, muzzleSpeed float64) core.Color {
	var coefficient float64
	if muzzleSpeed != 0 {
		coefficient = speed / muzzleSpeed
	}
	switch {
	case coefficient > 0.75:
		return traceRed.Lerp(traceDarkRed, coefficient-0.75)
	case coefficient > 0.5:
		return traceOrange.Lerp(traceRed, coefficient-0.5)
	case coefficient > 0.25:
		return traceGreen.Lerp(traceOrange, coefficient-0.25)
	default:
		return tracePale.Lerp(traceGreen, math.Abs(coefficient))
	}
}
