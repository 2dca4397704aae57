// Package simulation drives many projectiles on a shared fixed-step clock.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/ballistics/internal/ballistics"
	"github.com/OCAP2/ballistics/internal/queue"
	"github.com/OCAP2/ballistics/internal/scheduler"
	"github.com/OCAP2/ballistics/pkg/core"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/ballistics/internal/simulation"

// DefaultTickInterval is the fixed step of the simulation clock.
const DefaultTickInterval = 0.01

// ErrInvalidTickInterval is returned by New for tick intervals that are not
// a positive whole number of nanoseconds.
var ErrInvalidTickInterval = errors.New("tick interval must be at least 1ns")

// ShotSink receives the history of every retired projectile.
type ShotSink interface {
	RecordShot(s *core.ShotRecord) error
}

// Config holds the manager settings.
type Config struct {
	Ballistics   ballistics.Config
	TickInterval float64
	// EffectBuffer bounds the effect queue; the oldest effects are dropped
	// when nobody drains it. <= 0 means unbounded.
	EffectBuffer int
}

// Dependencies holds the collaborators of a Manager.
type Dependencies struct {
	World     ballistics.World
	Materials ballistics.Materials
	Sink      ShotSink
	Logger    *slog.Logger
	Meter     metric.Meter
	Rand      *rand.Rand
}

type entry struct {
	projectile *ballistics.Projectile
	timer      scheduler.TimerID
}

// Manager owns the live projectiles. It is safe for concurrent use; all
// projectile state is mutated under a single lock.
type Manager struct {
	mu      sync.Mutex
	cfg     Config
	stepper *ballistics.Stepper
	timers  *scheduler.Timers
	active  map[string]*entry
	order   []string
	retired []*core.ShotRecord

	effects *queue.Queue[Effect]
	sink    ShotSink
	logger  *slog.Logger

	fired        atomic.Int64
	terminated   atomic.Int64
	ticks        atomic.Int64
	sinkFailures atomic.Int64

	tickCounter        metric.Int64Counter
	firedCounter       metric.Int64Counter
	terminationCounter metric.Int64Counter
}

// New creates a manager. A nil World is accepted; projectiles then never move.
func New(cfg Config, deps Dependencies) (*Manager, error) {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if math.IsNaN(cfg.TickInterval) || math.IsInf(cfg.TickInterval, 0) || tickDuration(cfg.TickInterval) <= 0 {
		return nil, fmt.Errorf("%w, got %v", ErrInvalidTickInterval, cfg.TickInterval)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	m := &Manager{
		cfg:     cfg,
		timers:  scheduler.New(),
		active:  make(map[string]*entry),
		effects: queue.NewBounded[Effect](cfg.EffectBuffer),
		sink:    deps.Sink,
		logger:  logger,
	}

	var err error
	m.tickCounter, err = meter.Int64Counter(
		"ballistics.ticks",
		metric.WithDescription("Simulation ticks run"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	m.firedCounter, err = meter.Int64Counter(
		"ballistics.fired",
		metric.WithDescription("Projectiles spawned"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fired counter: %w", err)
	}
	m.terminationCounter, err = meter.Int64Counter(
		"ballistics.terminations",
		metric.WithDescription("Projectiles removed, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating terminations counter: %w", err)
	}

	stepMetrics, err := ballistics.NewMetrics(meter)
	if err != nil {
		return nil, err
	}

	m.stepper = ballistics.NewStepper(cfg.Ballistics, ballistics.Dependencies{
		World:     deps.World,
		Materials: deps.Materials,
		Effects:   m,
		Logger:    logger,
		Metrics:   stepMetrics,
		Rand:      deps.Rand,
	})
	return m, nil
}

// TickInterval returns the fixed step of the clock.
func (m *Manager) TickInterval() float64 {
	return m.cfg.TickInterval
}

// Now returns the simulation clock.
func (m *Manager) Now() float64 {
	return m.timers.Now()
}

// Fire spawns a projectile and schedules its lifetime expiry. It returns the
// projectile ID.
func (m *Manager) Fire(origin, direction core.Vec3) string {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.stepper.Spawn(id, origin, direction, m.retire)
	e := &entry{projectile: p}
	e.timer = m.timers.ScheduleOnce(p.LifeTime, func() {
		// runs inside Tick with m.mu held
		p.Destroy(ballistics.ReasonExpired)
	})
	m.active[id] = e
	m.order = append(m.order, id)

	m.fired.Add(1)
	m.firedCounter.Add(context.Background(), 1)
	m.logger.Debug("projectile fired", "projectile", id, "origin", origin, "direction", direction)
	return id
}

// Tick advances every live projectile by one interval, then fires due
// lifetime timers. Retired projectiles are handed to the sink after the
// state lock is released.
func (m *Manager) Tick() {
	m.mu.Lock()
	for _, id := range slices.Clone(m.order) {
		if e, ok := m.active[id]; ok {
			m.stepper.Tick(e.projectile, m.cfg.TickInterval)
		}
	}
	m.timers.Advance(m.cfg.TickInterval)
	retired := m.retired
	m.retired = nil
	m.mu.Unlock()

	m.ticks.Add(1)
	m.tickCounter.Add(context.Background(), 1)
	m.flush(retired)
}

// Remove destroys a live projectile. It reports false for unknown IDs.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	e, ok := m.active[id]
	if ok {
		e.projectile.Destroy(ballistics.ReasonRemoved)
	}
	retired := m.retired
	m.retired = nil
	m.mu.Unlock()

	m.flush(retired)
	return ok
}

// Shutdown removes every live projectile and flushes their records.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, id := range slices.Clone(m.order) {
		m.active[id].projectile.Destroy(ballistics.ReasonRemoved)
	}
	retired := m.retired
	m.retired = nil
	m.mu.Unlock()

	m.flush(retired)
}

// Active returns the number of live projectiles.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Snapshot returns a copy of the state of a live projectile.
func (m *Manager) Snapshot(id string) (ProjectileState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.active[id]
	if !ok {
		return ProjectileState{}, false
	}
	return stateOf(e.projectile), true
}

// Effects drains the buffered cosmetic requests.
func (m *Manager) Effects() []Effect {
	return m.effects.Drain()
}

// Drain ticks until no projectile remains or maxTicks is reached and returns
// the number of ticks run.
func (m *Manager) Drain(maxTicks int) int {
	n := 0
	for n < maxTicks && m.Active() > 0 {
		m.Tick()
		n++
	}
	return n
}

// Run ticks in real time until ctx is cancelled or no projectile remains.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickDuration(m.cfg.TickInterval))
	defer ticker.Stop()

	for {
		if m.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick()
		}
	}
}

func tickDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// retire is the destroy hook of every projectile. It runs with m.mu held.
func (m *Manager) retire(p *ballistics.Projectile) {
	e, ok := m.active[p.ID]
	if !ok {
		return
	}
	m.timers.Cancel(e.timer)
	delete(m.active, p.ID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == p.ID })
	m.retired = append(m.retired, p.Record())

	m.terminated.Add(1)
	m.terminationCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", string(p.Reason()))))
	m.logger.Debug("projectile retired",
		"projectile", p.ID, "reason", p.Reason(), "elapsed", p.Elapsed, "position", p.LastPos)
}

func (m *Manager) flush(records []*core.ShotRecord) {
	if m.sink == nil {
		return
	}
	for _, rec := range records {
		if err := m.sink.RecordShot(rec); err != nil {
			m.sinkFailures.Add(1)
			m.logger.Error("failed to record shot", "projectile", rec.ID, "error", err)
		}
	}
}

// SpawnDecal buffers a decal request.
func (m *Manager) SpawnDecal(d core.Decal) {
	m.effects.Push(Effect{Kind: EffectDecal, Decal: d})
}

// DrawLine buffers a debug line request.
func (m *Manager) DrawLine(l core.DebugLine) {
	m.effects.Push(Effect{Kind: EffectLine, Line: l})
}

// DrawSphere buffers a debug sphere request.
func (m *Manager) DrawSphere(s core.DebugSphere) {
	m.effects.Push(Effect{Kind: EffectSphere, Sphere: s})
}

// Stats returns cumulative counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Fired:          m.fired.Load(),
		Terminated:     m.terminated.Load(),
		Ticks:          m.ticks.Load(),
		SinkFailures:   m.sinkFailures.Load(),
		DroppedEffects: m.effects.Dropped(),
	}
}
