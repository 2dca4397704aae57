package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OCAP2/ballistics/internal/config"
	"github.com/OCAP2/ballistics/internal/database"
	"github.com/OCAP2/ballistics/internal/materials"
	"github.com/OCAP2/ballistics/internal/simulation"
	v1 "github.com/OCAP2/ballistics/internal/storage/memory/export/v1"
	"github.com/OCAP2/ballistics/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneJSON = `
	"sessionName": "wall test",
	"simulation": { "seed": 7, "maxTicks": 1000 },
	"scene": { "surfaces": [
		{ "id": "wall", "material": "concrete", "min": [0, -20, -20], "max": [10, 20, 120] }
	] },
	"shots": [ { "origin": [-50, 0, 100], "direction": [1, 0, 0], "count": 2 } ]`

func writeTestConfig(t *testing.T, dir, storage string) {
	t.Helper()
	body := `{
	"logsDir": ` + quote(filepath.Join(dir, "logs")) + `,
	"storage": ` + storage + `,` + sceneJSON + `
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(body), 0644))
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func readExport(t *testing.T, path string) v1.Export {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var export v1.Export
	require.NoError(t, json.Unmarshal(data, &export))
	return export
}

func TestRun_MemoryStorage(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	writeTestConfig(t, dir, `{ "type": "memory", "memory": { "outputDir": `+quote(out)+`, "compressOutput": false } }`)

	require.NoError(t, run(context.Background(), dir))

	files, err := filepath.Glob(filepath.Join(out, "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(filepath.Base(files[0]), "wall_test_"))

	export := readExport(t, files[0])
	assert.Equal(t, "wall test", export.SessionName)
	assert.Equal(t, 2, export.Summary.Shots)
	require.Len(t, export.Shots, 2)
	assert.NotEmpty(t, export.Shots[0].Impacts)
	assert.Equal(t, 75000.0, export.Settings["muzzleSpeed"])

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "ballistics.*.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	content, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "Simulation finished")
}

func TestRun_SQLiteThenExport(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "shots.db")
	out := filepath.Join(dir, "out")
	writeTestConfig(t, dir, `{
		"type": "sqlite",
		"sqlite": { "path": `+quote(dbPath)+` },
		"memory": { "outputDir": `+quote(out)+`, "compressOutput": false }
	}`)

	require.NoError(t, run(context.Background(), dir))

	db, err := database.OpenSQLite(dbPath)
	require.NoError(t, err)
	table, err := materials.Load(db)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	require.NoError(t, exportSessions(dir, []string{"1"}))

	export := readExport(t, filepath.Join(out, "session_1.json"))
	assert.Equal(t, "wall test", export.SessionName)
	assert.Equal(t, 2, export.Summary.Shots)
	require.Len(t, export.Shots, 2)
	origin := export.Shots[0].Origin
	assert.InDeltaSlice(t, []float64{-50, 0, 100}, origin[:], 1e-4)
}

func TestRun_SQLiteKeepsStoredMaterials(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "shots.db")
	out := filepath.Join(dir, "out")
	writeTestConfig(t, dir, `{
		"type": "sqlite",
		"sqlite": { "path": `+quote(dbPath)+` },
		"memory": { "outputDir": `+quote(out)+`, "compressOutput": false }
	}`)

	db, err := database.OpenSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, materials.Migrate(db))
	stored, err := materials.FromMap(map[string]float64{"glass": 2.5})
	require.NoError(t, err)
	require.NoError(t, materials.Save(db, stored))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	require.NoError(t, run(context.Background(), dir))
	require.NoError(t, exportSessions(dir, []string{"1"}))

	export := readExport(t, filepath.Join(out, "session_1.json"))
	densities, ok := export.Settings["materials"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, densities, 4)
	assert.Equal(t, 2.5, densities["glass"])
}

func TestRun_MissingConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	assert.Error(t, run(context.Background(), t.TempDir()))
}

func TestExportSessions_NeedsDatabase(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	writeTestConfig(t, dir, `{ "type": "memory" }`)

	err := exportSessions(dir, []string{"1"})
	assert.ErrorIs(t, err, errNoDatabase)
}

func TestExportSessions_InvalidID(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "shots.db")
	writeTestConfig(t, dir, `{ "type": "sqlite", "sqlite": { "path": `+quote(dbPath)+` } }`)
	db, err := database.OpenSQLite(dbPath)
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	require.NoError(t, sqlDB.Close())

	err = exportSessions(dir, []string{"abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session ID")
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "session_3.json", exportFileName(3, false))
	assert.Equal(t, "session_3.json.gz", exportFileName(3, true))
}

func TestFireShots(t *testing.T) {
	m, err := simulation.New(simulation.Config{}, simulation.Dependencies{})
	require.NoError(t, err)

	n := fireShots(m, []config.ShotConfig{
		{Origin: core.Vec3{0, 0, 0}, Direction: core.Vec3{1, 0, 0}, Count: 2},
		{Origin: core.Vec3{0, 0, 0}, Direction: core.Vec3{0, 1, 0}, Count: 1},
	})
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, m.Active())
}

func TestNewRand_Seeded(t *testing.T) {
	a, b := newRand(42), newRand(42)
	for range 5 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestSettingsSnapshot(t *testing.T) {
	table, err := materials.FromMap(map[string]float64{"wood": 0.7})
	require.NoError(t, err)

	s := settingsSnapshot(simulation.Config{TickInterval: 0.01}, table)
	assert.Equal(t, 0.01, s["tickInterval"])
	assert.Equal(t, map[string]float64{"wood": 0.7}, s["materials"])
}
