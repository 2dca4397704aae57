package ballistics

import (
	"github.com/OCAP2/ballistics/pkg/core"
)

// World is the host collision system.
type World interface {
	// QuerySegment returns the first blocking surface between start and end,
	// skipping ignored surfaces. A zero-length segment reports no hit.
	QuerySegment(start, end core.Vec3, ignored core.IgnoreSet) (core.Hit, bool)
	// Bounds returns the bounding box of the object owning surface.
	Bounds(surface core.SurfaceID) (core.Box, bool)
}

// ExitOutcome is the result class of an exit search.
type ExitOutcome int

const (
	// ExitNone means no opposite surface was found within range, or the
	// iteration cap was exceeded.
	ExitNone ExitOutcome = iota
	// ExitFound means the struck object is thinner than the penetration depth.
	ExitFound
	// ExitLodged means the opposite surface was found but is too far away.
	ExitLodged
)

func (o ExitOutcome) String() string {
	switch o {
	case ExitFound:
		return "found"
	case ExitLodged:
		return "lodged"
	default:
		return "none"
	}
}

// ExitResult describes one exit search.
type ExitResult struct {
	Outcome    ExitOutcome
	Exit       core.Hit       // the struck surface seen from the far side
	Thickness  float64        // distance between entry and exit points
	Skipped    core.IgnoreSet // other surfaces passed through on the way back
	Iterations int            // number of backward queries issued
}

// ExitLocator finds where a projectile leaves a penetrated object.
type ExitLocator struct {
	world         World
	maxIterations int
}

// NewExitLocator creates a locator. maxIterations <= 0 selects DefaultMaxExitIterations.
func NewExitLocator(world World, maxIterations int) ExitLocator {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxExitIterations
	}
	return ExitLocator{world: world, maxIterations: maxIterations}
}

// Locate traces backward from beyond the struck object toward the entry
// point. Other surfaces met on the way are skipped and accumulated until the
// struck surface is re-hit from the far side. depth is the penetration budget
// for this hit and is compared against the traversal thickness.
func (l ExitLocator) Locate(entry core.Hit, direction core.Vec3, depth float64) ExitResult {
	var res ExitResult
	if l.world == nil {
		return res
	}
	box, ok := l.world.Bounds(entry.Surface)
	if !ok {
		return res
	}
	dir := safeNormal(direction)
	distance := box.MaxExtent() * 2

	start := entry.Location.Add(dir.Mul(distance))
	end := start.Sub(dir.Mul(distance))

	for res.Iterations < l.maxIterations {
		res.Iterations++
		hit, ok := l.world.QuerySegment(start, end, res.Skipped)
		if !ok {
			return res
		}
		if hit.Surface != entry.Surface {
			res.Skipped = res.Skipped.With(hit.Surface)
			start = hit.Location
			continue
		}

		res.Exit = hit
		res.Thickness = hit.Location.Sub(entry.Location).Len()
		if depth > res.Thickness {
			res.Outcome = ExitFound
		} else {
			res.Outcome = ExitLodged
		}
		return res
	}
	return res
}
