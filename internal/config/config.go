package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/OCAP2/ballistics/internal/ballistics"
	"github.com/OCAP2/ballistics/internal/scene"
	"github.com/OCAP2/ballistics/internal/simulation"
	"github.com/OCAP2/ballistics/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the name of the configuration file inside the config directory.
const FileName = "ballistics.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings. An empty Path keeps the
// database in memory and dumps it to DumpPath every DumpInterval.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type          string        `json:"type" mapstructure:"type"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
	Memory        MemoryConfig  `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig  `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds the InfluxDB connection settings.
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// URL returns the server address.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// WorldConfig anchors the local scene frame on the globe.
type WorldConfig struct {
	Latitude  float64 `json:"latitude" mapstructure:"latitude"`
	Longitude float64 `json:"longitude" mapstructure:"longitude"`
}

// ShotConfig is one scripted shot fired by the CLI driver.
type ShotConfig struct {
	Origin    core.Vec3 `json:"origin" mapstructure:"origin"`
	Direction core.Vec3 `json:"direction" mapstructure:"direction"`
	Count     int       `json:"count" mapstructure:"count"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	def := ballistics.DefaultConfig()

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./ballisticslogs")
	viper.SetDefault("logFormat", "text")
	viper.SetDefault("sessionName", "range")

	viper.SetDefault("simulation.tickInterval", simulation.DefaultTickInterval)
	viper.SetDefault("simulation.effectBuffer", 4096)
	viper.SetDefault("simulation.lifeTime", def.LifeTime)
	viper.SetDefault("simulation.muzzleSpeed", def.MuzzleSpeed)
	viper.SetDefault("simulation.floorZ", def.FloorZ)
	viper.SetDefault("simulation.maxExitIterations", def.MaxExitIterations)
	viper.SetDefault("simulation.maxTicks", 1000)
	viper.SetDefault("simulation.realtime", false)
	viper.SetDefault("simulation.seed", 0)

	viper.SetDefault("bullet.caliber", def.Bullet.Caliber)
	viper.SetDefault("bullet.length", def.Bullet.Length)
	viper.SetDefault("bullet.mass", def.Bullet.Mass)
	viper.SetDefault("bullet.density", def.Bullet.Density)

	viper.SetDefault("environment.airDensity", def.Environment.AirDensity)
	viper.SetDefault("environment.gravity", def.Environment.Gravity)
	viper.SetDefault("environment.dragCoefficient", def.Environment.DragCoefficient)

	viper.SetDefault("decal.size", []float64{def.Decal.Size[0], def.Decal.Size[1], def.Decal.Size[2]})
	viper.SetDefault("decal.lifeSpan", def.Decal.LifeSpan)
	viper.SetDefault("decal.fadeScreenSize", def.Decal.FadeScreenSize)

	viper.SetDefault("deflection.speedRange", []float64{def.Deflection.SpeedMin, def.Deflection.SpeedMax})
	viper.SetDefault("deflection.angleRange", []float64{def.Deflection.AngleMin, def.Deflection.AngleMax})

	viper.SetDefault("debug.line", false)
	viper.SetDefault("debug.sphere", false)

	viper.SetDefault("materials", map[string]float64{
		"concrete": 2.4,
		"wood":     0.7,
		"metal":    7.85,
	})

	viper.SetDefault("world.latitude", 0.0)
	viper.SetDefault("world.longitude", 0.0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.flushInterval", "2s")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpPath", "./recordings/ballistics.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "ballistics")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "ballistics")
	viper.SetDefault("influx.bucket", "shots")
	viper.SetDefault("influx.backupPath", "./ballisticslogs/influx_backup.log.gz")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "ballistics")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetBallisticsConfig assembles the per-projectile simulation parameters.
func GetBallisticsConfig() ballistics.Config {
	cfg := ballistics.DefaultConfig()

	cfg.Bullet = core.BulletParameters{
		Caliber: viper.GetFloat64("bullet.caliber"),
		Length:  viper.GetFloat64("bullet.length"),
		Mass:    viper.GetFloat64("bullet.mass"),
		Density: viper.GetFloat64("bullet.density"),
	}
	cfg.Environment = core.Environment{
		AirDensity:      viper.GetFloat64("environment.airDensity"),
		Gravity:         viper.GetFloat64("environment.gravity"),
		DragCoefficient: viper.GetFloat64("environment.dragCoefficient"),
	}

	if size, ok := vec3(viper.Get("decal.size")); ok {
		cfg.Decal.Size = size
	}
	cfg.Decal.LifeSpan = viper.GetFloat64("decal.lifeSpan")
	cfg.Decal.FadeScreenSize = viper.GetFloat64("decal.fadeScreenSize")

	if r := floats(viper.Get("deflection.speedRange")); len(r) == 2 {
		cfg.Deflection.SpeedMin, cfg.Deflection.SpeedMax = r[0], r[1]
	}
	if r := floats(viper.Get("deflection.angleRange")); len(r) == 2 {
		cfg.Deflection.AngleMin, cfg.Deflection.AngleMax = r[0], r[1]
	}

	cfg.MuzzleSpeed = viper.GetFloat64("simulation.muzzleSpeed")
	cfg.LifeTime = viper.GetFloat64("simulation.lifeTime")
	cfg.FloorZ = viper.GetFloat64("simulation.floorZ")
	cfg.MaxExitIterations = viper.GetInt("simulation.maxExitIterations")
	cfg.DebugLine = viper.GetBool("debug.line")
	cfg.DebugSphere = viper.GetBool("debug.sphere")
	return cfg
}

// GetSimulationConfig returns the manager settings.
func GetSimulationConfig() simulation.Config {
	return simulation.Config{
		Ballistics:   GetBallisticsConfig(),
		TickInterval: viper.GetFloat64("simulation.tickInterval"),
		EffectBuffer: viper.GetInt("simulation.effectBuffer"),
	}
}

// GetStorageConfig returns the recording backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:          strings.ToLower(viper.GetString("storage.type")),
		FlushInterval: viper.GetDuration("storage.flushInterval"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Protocol:   viper.GetString("influx.protocol"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetWorldConfig returns the geographic anchor of the scene.
func GetWorldConfig() WorldConfig {
	return WorldConfig{
		Latitude:  viper.GetFloat64("world.latitude"),
		Longitude: viper.GetFloat64("world.longitude"),
	}
}

// GetMaterials returns the configured material densities.
func GetMaterials() map[string]float64 {
	out := make(map[string]float64)
	for name, v := range viper.GetStringMap("materials") {
		if f, ok := toFloat(v); ok {
			out[name] = f
		}
	}
	return out
}

// GetSurfaces decodes the scene surfaces.
func GetSurfaces() ([]scene.Surface, error) {
	var surfaces []scene.Surface
	if err := viper.UnmarshalKey("scene.surfaces", &surfaces); err != nil {
		return nil, fmt.Errorf("error decoding scene.surfaces: %w", err)
	}
	return surfaces, nil
}

// GetShots decodes the scripted shots. Count defaults to one.
func GetShots() ([]ShotConfig, error) {
	var shots []ShotConfig
	if err := viper.UnmarshalKey("shots", &shots); err != nil {
		return nil, fmt.Errorf("error decoding shots: %w", err)
	}
	for i := range shots {
		if shots[i].Count <= 0 {
			shots[i].Count = 1
		}
	}
	return shots, nil
}

func floats(v any) []float64 {
	var list []any
	switch t := v.(type) {
	case []float64:
		return t
	case []any:
		list = t
	default:
		return nil
	}
	out := make([]float64, 0, len(list))
	for _, item := range list {
		f, ok := toFloat(item)
		if !ok {
			return nil
		}
		out = append(out, f)
	}
	return out
}

func vec3(v any) (core.Vec3, bool) {
	f := floats(v)
	if len(f) != 3 {
		return core.Vec3{}, false
	}
	return core.Vec3{f[0], f[1], f[2]}, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
