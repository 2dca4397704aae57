package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/OCAP2/ballistics/internal/config"
	"github.com/OCAP2/ballistics/internal/geo"
	"github.com/OCAP2/ballistics/internal/influx"
	"github.com/OCAP2/ballistics/internal/logging"
	"github.com/OCAP2/ballistics/internal/materials"
	intOtel "github.com/OCAP2/ballistics/internal/otel"
	"github.com/OCAP2/ballistics/internal/scene"
	"github.com/OCAP2/ballistics/internal/simulation"
	"github.com/OCAP2/ballistics/internal/storage"
	"github.com/OCAP2/ballistics/pkg/core"
	"gorm.io/gorm"
)

// run loads configDir, fires the configured shots into the configured scene
// and records every finished shot until no projectile remains.
func run(ctx context.Context, configDir string) error {
	if err := config.Load(configDir); err != nil {
		return err
	}
	SessionStartTime = time.Now()
	logLevel := config.GetString("logLevel")
	logsDir := config.GetString("logsDir")

	logFile, err := logging.OpenLogFile(logsDir, AppName, SessionStartTime)
	if err != nil {
		return err
	}
	defer logFile.Close()

	oc := config.GetOTelConfig()
	otelCfg := intOtel.Config{
		Enabled:        oc.Enabled,
		ServiceName:    oc.ServiceName,
		ServiceVersion: CurrentVersion,
		BatchTimeout:   oc.BatchTimeout,
		Endpoint:       oc.Endpoint,
		Insecure:       oc.Insecure,
	}
	if oc.Enabled {
		otelFile, err := logging.OpenLogFile(logsDir, AppName+".otel", SessionStartTime)
		if err != nil {
			return err
		}
		defer otelFile.Close()
		otelCfg.LogWriter = otelFile
	}
	OTelProvider, err = intOtel.New(otelCfg)
	if err != nil {
		return fmt.Errorf("failed to create otel provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := OTelProvider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}()

	// records logged before the manager exists carry no sim time. Only the
	// clock is read here: the manager logs while holding its own lock.
	var manager *simulation.Manager
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(logging.Options{
		Writer:      logFile,
		Level:       logLevel,
		JSON:        config.GetString("logFormat") == "json",
		LogProvider: OTelProvider.LoggerProvider(),
		Source: func() []slog.Attr {
			if manager == nil {
				return nil
			}
			return []slog.Attr{slog.Float64("simTime", manager.Now())}
		},
	})
	Logger = SlogManager.Logger()
	Logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate)

	world := config.GetWorldConfig()
	anchor, err := geo.NewAnchor(world.Latitude, world.Longitude)
	if err != nil {
		return fmt.Errorf("invalid world anchor: %w", err)
	}

	table, err := materials.FromMap(config.GetMaterials())
	if err != nil {
		return fmt.Errorf("invalid materials: %w", err)
	}
	surfaces, err := config.GetSurfaces()
	if err != nil {
		return fmt.Errorf("invalid scene: %w", err)
	}
	sc, err := scene.New(surfaces...)
	if err != nil {
		return fmt.Errorf("invalid scene: %w", err)
	}
	Logger.Info("Scene loaded", "surfaces", sc.Len(), "materials", table.Len())

	storageLog := logging.NewComponentLogger(logFile, os.Stdout, "storage", logLevel)
	backend, err := storage.NewBackend(config.GetStorageConfig(), storage.Options{
		DB:     config.GetDBConfig(),
		Anchor: anchor,
		Logger: storageLog,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to init storage backend: %w", err)
	}

	if db := backendDB(backend); db != nil {
		merged, err := materials.Sync(db, table)
		if err != nil {
			Logger.Warn("Failed to sync stored materials", "error", err)
		} else {
			table = merged
		}
	}

	simCfg := config.GetSimulationConfig()
	session := &core.Session{
		Name:      config.GetString("sessionName"),
		StartedAt: SessionStartTime,
		Latitude:  world.Latitude,
		Longitude: world.Longitude,
		Settings:  settingsSnapshot(simCfg, table),
	}
	if err := backend.StartSession(session); err != nil {
		_ = backend.Close()
		return fmt.Errorf("failed to start session: %w", err)
	}

	var influxRecorder storage.Recorder
	influxMgr := influx.NewManager(config.GetInfluxConfig(), logging.NewComponentLogger(logFile, os.Stdout, "influx", logLevel))
	if err := influxMgr.Connect(ctx); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			Logger.Warn("InfluxDB unavailable", "error", err)
		}
	} else {
		influxRecorder = influxMgr
	}
	defer influxMgr.Close()

	manager, err = simulation.New(simCfg, simulation.Dependencies{
		World:     sc,
		Materials: table,
		Sink:      storage.Tee(backend, influxRecorder),
		Logger:    Logger,
		Meter:     OTelProvider.Meter(logging.InstrumentationName),
		Rand:      newRand(int64(config.GetInt("simulation.seed"))),
	})
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("failed to create simulation: %w", err)
	}

	shots, err := config.GetShots()
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("invalid shots: %w", err)
	}
	fired := fireShots(manager, shots)
	Logger.Info("Shots fired", "count", fired)

	if config.GetBool("simulation.realtime") {
		if err := manager.Run(ctx); err != nil {
			Logger.Warn("Simulation interrupted", "error", err)
		}
	} else {
		ticks := manager.Drain(config.GetInt("simulation.maxTicks"))
		Logger.Info("Simulation drained", "ticks", ticks)
	}
	manager.Shutdown()

	logEffects(manager.Effects())
	Logger.LogAttrs(ctx, slog.LevelInfo, "Simulation finished", manager.Stats().LogAttrs()...)

	if err := backend.Close(); err != nil {
		Logger.Error("Failed to close storage backend", "error", err)
		return err
	}
	if exporter, ok := backend.(storage.Exporter); ok && exporter.GetExportedFilePath() != "" {
		Logger.Info("Session exported", "path", exporter.GetExportedFilePath())
	}

	if err := SlogManager.Flush(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return nil
}

// fireShots spawns every configured shot Count times and returns the total.
func fireShots(m *simulation.Manager, shots []config.ShotConfig) int {
	n := 0
	for _, s := range shots {
		for range s.Count {
			m.Fire(s.Origin, s.Direction)
			n++
		}
	}
	return n
}

// newRand seeds the deflection source; seed 0 picks a time-based seed.
func newRand(seed int64) *rand.Rand {
	s := uint64(seed)
	if seed == 0 {
		s = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(s, s))
}

// backendDB returns the connection of database backed storage, nil otherwise.
func backendDB(b storage.Backend) *gorm.DB {
	if d, ok := b.(interface{ DB() *gorm.DB }); ok {
		return d.DB()
	}
	return nil
}

// settingsSnapshot is stored with the session so recordings can be replayed
// against the configuration that produced them.
func settingsSnapshot(cfg simulation.Config, table *materials.Table) map[string]any {
	b := cfg.Ballistics
	densities := make(map[string]float64, table.Len())
	for _, m := range table.Entries() {
		densities[m.Name] = m.Density
	}
	return map[string]any{
		"tickInterval": cfg.TickInterval,
		"muzzleSpeed":  b.MuzzleSpeed,
		"lifeTime":     b.LifeTime,
		"floorZ":       b.FloorZ,
		"bullet": map[string]any{
			"caliber": b.Bullet.Caliber,
			"length":  b.Bullet.Length,
			"mass":    b.Bullet.Mass,
			"density": b.Bullet.Density,
		},
		"environment": map[string]any{
			"airDensity":      b.Environment.AirDensity,
			"gravity":         b.Environment.Gravity,
			"dragCoefficient": b.Environment.DragCoefficient,
		},
		"materials": densities,
	}
}

func logEffects(effects []simulation.Effect) {
	counts := make(map[simulation.EffectKind]int)
	for _, e := range effects {
		counts[e.Kind]++
	}
	Logger.Info("Effects emitted",
		"decals", counts[simulation.EffectDecal],
		"lines", counts[simulation.EffectLine],
		"spheres", counts[simulation.EffectSphere],
	)
}
