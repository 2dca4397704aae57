package scene

import (
	"testing"

	"github.com/OCAP2/ballistics/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wall() Surface {
	return Surface{
		ID:       "wall",
		Material: "concrete",
		Min:      core.Vec3{0, -20, -20},
		Max:      core.Vec3{10, 20, 20},
	}
}

func TestNew_RejectsInvalidSurfaces(t *testing.T) {
	tests := []struct {
		name    string
		surface Surface
	}{
		{"empty id", Surface{Min: core.Vec3{0, 0, 0}, Max: core.Vec3{1, 1, 1}}},
		{"flat", Surface{ID: "flat", Min: core.Vec3{0, 0, 0}, Max: core.Vec3{1, 0, 1}}},
		{"inverted", Surface{ID: "inv", Min: core.Vec3{1, 1, 1}, Max: core.Vec3{0, 0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.surface)
			assert.ErrorIs(t, err, ErrInvalidSurface)
		})
	}
}

func TestAdd_Duplicate(t *testing.T) {
	s, err := New(wall())
	require.NoError(t, err)

	err = s.Add(wall())
	assert.ErrorIs(t, err, ErrInvalidSurface)
	assert.Equal(t, 1, s.Len())
}

func TestBounds(t *testing.T) {
	s, err := New(wall())
	require.NoError(t, err)

	box, ok := s.Bounds("wall")
	require.True(t, ok)
	assert.Equal(t, core.Vec3{5, 0, 0}, box.Origin)
	assert.Equal(t, core.Vec3{5, 20, 20}, box.Extent)
	assert.Equal(t, 20.0, box.MaxExtent())

	_, ok = s.Bounds("missing")
	assert.False(t, ok)
}

func TestQuerySegment(t *testing.T) {
	s, err := New(wall())
	require.NoError(t, err)

	tests := []struct {
		name     string
		start    core.Vec3
		end      core.Vec3
		wantHit  bool
		location core.Vec3
		normal   core.Vec3
	}{
		{
			name:     "front face",
			start:    core.Vec3{-50, 0, 0},
			end:      core.Vec3{50, 0, 0},
			wantHit:  true,
			location: core.Vec3{0, 0, 0},
			normal:   core.Vec3{-1, 0, 0},
		},
		{
			name:     "back face",
			start:    core.Vec3{40, 0, 0},
			end:      core.Vec3{0, 0, 0},
			wantHit:  true,
			location: core.Vec3{10, 0, 0},
			normal:   core.Vec3{1, 0, 0},
		},
		{
			name:     "from below",
			start:    core.Vec3{5, 0, -40},
			end:      core.Vec3{5, 0, 0},
			wantHit:  true,
			location: core.Vec3{5, 0, -20},
			normal:   core.Vec3{0, 0, -1},
		},
		{
			name:     "starting on face inward",
			start:    core.Vec3{10, 0, 0},
			end:      core.Vec3{-10, 0, 0},
			wantHit:  true,
			location: core.Vec3{10, 0, 0},
			normal:   core.Vec3{1, 0, 0},
		},
		{name: "short of the wall", start: core.Vec3{-50, 0, 0}, end: core.Vec3{-1, 0, 0}},
		{name: "passes beside", start: core.Vec3{-50, 30, 0}, end: core.Vec3{50, 30, 0}},
		{name: "starts inside", start: core.Vec3{5, 0, 0}, end: core.Vec3{50, 0, 0}},
		{name: "leaving from face", start: core.Vec3{10, 0, 0}, end: core.Vec3{50, 0, 0}},
		{name: "zero length", start: core.Vec3{-1, 0, 0}, end: core.Vec3{-1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := s.QuerySegment(tt.start, tt.end, nil)
			require.Equal(t, tt.wantHit, ok)
			if !tt.wantHit {
				return
			}
			assert.Equal(t, core.SurfaceID("wall"), hit.Surface)
			assert.Equal(t, core.MaterialID("concrete"), hit.Material)
			assert.True(t, hit.Blocking)
			assert.InDeltaSlice(t, tt.location[:], hit.Location[:], 1e-9)
			assert.Equal(t, tt.normal, hit.Normal)
		})
	}
}

func TestQuerySegment_NearestAndIgnored(t *testing.T) {
	far := Surface{ID: "far", Material: "wood", Min: core.Vec3{30, -1, -1}, Max: core.Vec3{32, 1, 1}}
	s, err := New(far, wall())
	require.NoError(t, err)

	hit, ok := s.QuerySegment(core.Vec3{-50, 0, 0}, core.Vec3{50, 0, 0}, nil)
	require.True(t, ok)
	assert.Equal(t, core.SurfaceID("wall"), hit.Surface)

	hit, ok = s.QuerySegment(core.Vec3{-50, 0, 0}, core.Vec3{50, 0, 0}, core.IgnoreSet{"wall"})
	require.True(t, ok)
	assert.Equal(t, core.SurfaceID("far"), hit.Surface)
	assert.InDelta(t, 30.0, hit.Location.X(), 1e-9)

	_, ok = s.QuerySegment(core.Vec3{-50, 0, 0}, core.Vec3{50, 0, 0}, core.IgnoreSet{"wall", "far"})
	assert.False(t, ok)
}
