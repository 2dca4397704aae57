// Package scene provides a world of axis-aligned boxes that answers the
// segment intersection and bounds queries of the ballistics stepper.
package scene

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/OCAP2/ballistics/pkg/core"
)

// ErrInvalidSurface is returned for surfaces with an empty ID, an empty
// volume or a duplicate ID.
var ErrInvalidSurface = errors.New("invalid surface")

const epsilon = 1e-9

// Surface is a solid axis-aligned box made of a single material.
type Surface struct {
	ID       core.SurfaceID  `json:"id" mapstructure:"id"`
	Material core.MaterialID `json:"material" mapstructure:"material"`
	Min      core.Vec3       `json:"min" mapstructure:"min"`
	Max      core.Vec3       `json:"max" mapstructure:"max"`
}

// Box returns the bounding volume of the surface.
func (s Surface) Box() core.Box {
	return core.Box{
		Origin: s.Min.Add(s.Max).Mul(0.5),
		Extent: s.Max.Sub(s.Min).Mul(0.5),
	}
}

func (s Surface) validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSurface)
	}
	for i := range 3 {
		if !(s.Min[i] < s.Max[i]) {
			return fmt.Errorf("%w: %s has no volume on axis %d", ErrInvalidSurface, s.ID, i)
		}
	}
	return nil
}

// Scene is a set of surfaces. It is safe for concurrent use.
type Scene struct {
	mu       sync.RWMutex
	surfaces []Surface
	index    map[core.SurfaceID]int
}

// New creates a scene from the given surfaces.
func New(surfaces ...Surface) (*Scene, error) {
	s := &Scene{index: make(map[core.SurfaceID]int, len(surfaces))}
	for _, surface := range surfaces {
		if err := s.Add(surface); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts a surface.
func (s *Scene) Add(surface Surface) error {
	if err := surface.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[surface.ID]; ok {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidSurface, surface.ID)
	}
	s.index[surface.ID] = len(s.surfaces)
	s.surfaces = append(s.surfaces, surface)
	return nil
}

// Len returns the number of surfaces.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.surfaces)
}

// Surfaces returns a copy of all surfaces in insertion order.
func (s *Scene) Surfaces() []Surface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Surface(nil), s.surfaces...)
}

// Bounds returns the bounding box of the surface with the given ID.
func (s *Scene) Bounds(id core.SurfaceID) (core.Box, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return core.Box{}, false
	}
	return s.surfaces[i].Box(), true
}

// QuerySegment returns the nearest surface entered by the segment from start
// to end. Surfaces in ignored are skipped, as are surfaces containing start.
// A segment starting on a face and pointing inward hits that face at start.
func (s *Scene) QuerySegment(start, end core.Vec3, ignored core.IgnoreSet) (core.Hit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delta := end.Sub(start)
	best := math.Inf(1)
	var hit core.Hit

	for _, surface := range s.surfaces {
		if ignored.Contains(surface.ID) {
			continue
		}
		t, axis, ok := enter(surface.Min, surface.Max, start, delta)
		if !ok || t >= best {
			continue
		}
		best = t

		var normal core.Vec3
		normal[axis] = -math.Copysign(1, delta[axis])
		hit = core.Hit{
			Surface:  surface.ID,
			Location: start.Add(delta.Mul(t)),
			Normal:   normal,
			Material: surface.Material,
			Blocking: true,
		}
	}
	return hit, hit.Blocking
}

// enter clips the segment start + t*delta, t in [0, 1], against the box using
// the slab method and returns the parameter and axis of the entering face.
func enter(lo, hi, start, delta core.Vec3) (float64, int, bool) {
	tmin, tmax := 0.0, 1.0
	axis := -1

	for i := range 3 {
		if math.Abs(delta[i]) < epsilon {
			if start[i] < lo[i] || start[i] > hi[i] {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / delta[i]
		t1 := (lo[i] - start[i]) * inv
		t2 := (hi[i] - start[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 >= tmin {
			tmin = t1
			axis = i
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, 0, false
		}
	}

	// No entering plane at or after start: start is inside the box or the
	// segment has zero length.
	if axis < 0 {
		return 0, 0, false
	}
	return tmin, axis, true
}
