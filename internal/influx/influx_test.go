package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/ballistics/internal/config"
	"github.com/OCAP2/ballistics/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShot() *core.ShotRecord {
	return &core.ShotRecord{
		ID:          "shot-1",
		FiredAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Origin:      core.Vec3{0, 0, 100},
		Direction:   core.Vec3{1, 0, 0},
		MuzzleSpeed: 75000,
		Bullet:      core.DefaultBulletParameters(),
		FlightTime:  0.02,
		Reason:      "expired",
		Trajectory: []core.TrajectoryPoint{
			{Position: core.Vec3{0, 0, 100}},
			{Position: core.Vec3{300, 400, 100}, Time: 0.01},
		},
		Impacts: []core.Impact{
			{Kind: core.ImpactEntry},
			{Kind: core.ImpactExit},
			{Kind: core.ImpactEntry},
			{Kind: core.ImpactLodged},
		},
	}
}

func TestShotPoint(t *testing.T) {
	line := strings.TrimSpace(influxdb2_write.PointToLineProtocol(ShotPoint(testShot()), time.Nanosecond))

	assert.True(t, strings.HasPrefix(line, ShotMeasurement+","), line)
	for _, part := range []string{
		"reason=expired",
		"caliber=7.62",
		`id="shot-1"`,
		"penetrations=1i",
		"impacts=4i",
		"lodged=1i",
		"stopped=0i",
		"samples=2i",
		"distance=500",
	} {
		assert.Contains(t, line, part)
	}
	assert.True(t, strings.HasSuffix(line, " "+strconv.FormatInt(testShot().FiredAt.UnixNano(), 10)), line)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{Enabled: false}, zerolog.Nop())
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.Error(t, m.RecordShot(testShot()))
	assert.NoError(t, m.Close())
}

func TestConnect_UnreachableWritesBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "logs", "influx_backup.log.gz")
	m := NewManager(config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "ballistics",
		Bucket:     "shots",
		BackupPath: backup,
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)

	require.NoError(t, m.RecordShot(testShot()))
	require.NoError(t, m.RecordShot(testShot()))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "shot,"))
}

func TestConnect_UnreachableWithoutBackupPath(t *testing.T) {
	m := NewManager(config.InfluxConfig{Enabled: true, Protocol: "http", Host: "127.0.0.1", Port: "1"}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.Error(t, m.Connect(ctx))
	assert.NoError(t, m.Close())
}
