package simulation

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/ballistics/internal/ballistics"
	"github.com/OCAP2/ballistics/internal/materials"
	"github.com/OCAP2/ballistics/internal/scene"
	"github.com/OCAP2/ballistics/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type memorySink struct {
	mu      sync.Mutex
	records []*core.ShotRecord
	err     error
}

func (s *memorySink) RecordShot(r *core.ShotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r)
	return nil
}

func (s *memorySink) all() []*core.ShotRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*core.ShotRecord(nil), s.records...)
}

func testConfig() Config {
	bc := ballistics.DefaultConfig()
	bc.Environment = core.Environment{}
	bc.Deflection = ballistics.DeflectionRange{}
	bc.MuzzleSpeed = 100
	bc.LifeTime = 0.05
	bc.FloorZ = -1000
	return Config{Ballistics: bc, TickInterval: 0.01}
}

func wallScene(t *testing.T) *scene.Scene {
	t.Helper()
	s, err := scene.New(scene.Surface{
		ID:       "wall",
		Material: "concrete",
		Min:      core.Vec3{0, -20, -20},
		Max:      core.Vec3{10, 20, 20},
	})
	require.NoError(t, err)
	return s
}

func newTestManager(t *testing.T, cfg Config, w ballistics.World, densities map[string]float64, sink ShotSink) *Manager {
	t.Helper()
	table, err := materials.FromMap(densities)
	require.NoError(t, err)
	m, err := New(cfg, Dependencies{
		World:     w,
		Materials: table,
		Sink:      sink,
		Meter:     noop.NewMeterProvider().Meter("test"),
		Rand:      rand.New(rand.NewPCG(3, 4)),
	})
	require.NoError(t, err)
	return m
}

func TestNew_InvalidTickInterval(t *testing.T) {
	for _, interval := range []float64{-1, 1e-10, math.NaN(), math.Inf(1)} {
		cfg := testConfig()
		cfg.TickInterval = interval
		_, err := New(cfg, Dependencies{})
		assert.ErrorIs(t, err, ErrInvalidTickInterval, "interval %v", interval)
	}
}

func TestNew_DefaultTickInterval(t *testing.T) {
	cfg := testConfig()
	cfg.TickInterval = 0
	m, err := New(cfg, Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTickInterval, m.TickInterval())
}

func TestFire_ExpiresAfterLifetime(t *testing.T) {
	sink := &memorySink{}
	m := newTestManager(t, testConfig(), wallScene(t), nil, sink)

	id := m.Fire(core.Vec3{-1000, 0, 0}, core.Vec3{-1, 0, 0})
	require.NotEmpty(t, id)
	assert.Equal(t, 1, m.Active())

	ticks := m.Drain(100)

	assert.Equal(t, 0, m.Active())
	assert.Equal(t, 5, ticks)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, string(ballistics.ReasonExpired), records[0].Reason)
	assert.Empty(t, records[0].Impacts)
	assert.Equal(t, 0, m.timers.Pending())

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Fired)
	assert.Equal(t, int64(1), stats.Terminated)
	assert.Equal(t, int64(ticks), stats.Ticks)
}

func TestFire_ExpiresOnLastLifetimeTick(t *testing.T) {
	cfg := testConfig()
	cfg.Ballistics.LifeTime = 3
	sink := &memorySink{}
	m := newTestManager(t, cfg, wallScene(t), nil, sink)

	m.Fire(core.Vec3{-1000, 0, 0}, core.Vec3{-1, 0, 0})
	ticks := m.Drain(1000)

	assert.Equal(t, 300, ticks)
	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, string(ballistics.ReasonExpired), records[0].Reason)
	assert.InDelta(t, 3.0, records[0].FlightTime, 1e-9)
	assert.Len(t, records[0].Trajectory, 301)
}

func TestFire_ImpenetrableCancelsLifetimeTimer(t *testing.T) {
	sink := &memorySink{}
	m := newTestManager(t, testConfig(), wallScene(t), nil, sink)

	m.Fire(core.Vec3{-0.5, 0, 0}, core.Vec3{1, 0, 0})
	m.Tick()

	assert.Equal(t, 0, m.Active())
	assert.Equal(t, 0, m.timers.Pending())
	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, string(ballistics.ReasonImpenetrable), records[0].Reason)
}

func TestFire_PenetrationProducesEffects(t *testing.T) {
	cfg := testConfig()
	cfg.Ballistics.DebugLine = true
	m := newTestManager(t, cfg, wallScene(t), map[string]float64{"concrete": 2.0}, nil)

	id := m.Fire(core.Vec3{-0.5, 0, 0}, core.Vec3{1, 0, 0})
	m.Tick()

	state, ok := m.Snapshot(id)
	require.True(t, ok)
	assert.True(t, state.Penetrated)
	assert.Equal(t, core.IgnoreSet{"wall"}, state.Ignored)
	assert.InDelta(t, 10.0, state.Position.X(), 1e-9)
	assert.InDelta(t, 0.04, state.Remaining, 1e-9)

	var decals, lines int
	for _, fx := range m.Effects() {
		switch fx.Kind {
		case EffectDecal:
			decals++
		case EffectLine:
			lines++
		}
	}
	assert.Equal(t, 2, decals)
	assert.Equal(t, 1, lines)
	assert.Empty(t, m.Effects())
}

func TestRemove(t *testing.T) {
	sink := &memorySink{}
	m := newTestManager(t, testConfig(), wallScene(t), nil, sink)

	id := m.Fire(core.Vec3{-1000, 0, 0}, core.Vec3{-1, 0, 0})
	assert.True(t, m.Remove(id))
	assert.False(t, m.Remove(id))
	assert.False(t, m.Remove("unknown"))

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, string(ballistics.ReasonRemoved), records[0].Reason)
}

func TestShutdown(t *testing.T) {
	sink := &memorySink{}
	m := newTestManager(t, testConfig(), wallScene(t), nil, sink)

	for range 3 {
		m.Fire(core.Vec3{-1000, 0, 0}, core.Vec3{-1, 0, 0})
	}
	m.Shutdown()

	assert.Equal(t, 0, m.Active())
	assert.Len(t, sink.all(), 3)
}

func TestSinkFailureIsCounted(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	m := newTestManager(t, testConfig(), wallScene(t), nil, sink)

	id := m.Fire(core.Vec3{-1000, 0, 0}, core.Vec3{-1, 0, 0})
	m.Remove(id)

	assert.Equal(t, int64(1), m.Stats().SinkFailures)
}

func TestEffectBufferDropsOldest(t *testing.T) {
	cfg := testConfig()
	cfg.Ballistics.DebugSphere = true
	cfg.EffectBuffer = 2
	m := newTestManager(t, cfg, wallScene(t), nil, nil)

	m.Fire(core.Vec3{-1000, 0, 0}, core.Vec3{-1, 0, 0})
	for range 4 {
		m.Tick()
	}

	assert.Len(t, m.Effects(), 2)
	assert.Equal(t, uint64(2), m.Stats().DroppedEffects)
}

func TestRun_StopsWhenIdle(t *testing.T) {
	cfg := testConfig()
	cfg.Ballistics.LifeTime = 0.03
	m := newTestManager(t, cfg, wallScene(t), nil, nil)
	m.Fire(core.Vec3{-1000, 0, 0}, core.Vec3{-1, 0, 0})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, 0, m.Active())
}

func TestRun_Cancelled(t *testing.T) {
	cfg := testConfig()
	cfg.Ballistics.LifeTime = 1000
	m := newTestManager(t, cfg, wallScene(t), nil, nil)
	m.Fire(core.Vec3{-1000, 0, 0}, core.Vec3{-1, 0, 0})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Run(ctx), context.Canceled)
	assert.Equal(t, 1, m.Active())
}

func TestStats_LogAttrs(t *testing.T) {
	attrs := Stats{Fired: 2, Terminated: 1}.LogAttrs()
	require.Len(t, attrs, 5)
	assert.Equal(t, "fired", attrs[0].Key)
	assert.Equal(t, int64(2), attrs[0].Value.Int64())
}
