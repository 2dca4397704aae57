package materials

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/OCAP2/ballistics/pkg/core"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestTable_SetAndDensity(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Set("Concrete", 2.0))

	d, ok := tbl.Density("concrete")
	require.True(t, ok)
	assert.Equal(t, 2.0, d)

	d, ok = tbl.Density(" CONCRETE ")
	require.True(t, ok)
	assert.Equal(t, 2.0, d)

	_, ok = tbl.Density("steel")
	assert.False(t, ok)
}

func TestTable_RejectsInvalidDensity(t *testing.T) {
	tbl := NewTable()
	for _, d := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, tbl.Set("x", d), ErrInvalidDensity)
	}
	assert.Equal(t, 0, tbl.Len())
}

func TestFromMap(t *testing.T) {
	tbl, err := FromMap(map[string]float64{"wood": 0.6, "steel": 7.8})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []Material{{Name: "steel", Density: 7.8}, {Name: "wood", Density: 0.6}}, tbl.Entries())

	_, err = FromMap(map[string]float64{"void": 0})
	assert.ErrorIs(t, err, ErrInvalidDensity)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "materials.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestSaveAndLoad(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	tbl, err := FromMap(map[string]float64{"concrete": 2.0, "wood": 0.6})
	require.NoError(t, err)
	require.NoError(t, Save(db, tbl))

	// upsert overwrites existing densities
	require.NoError(t, tbl.Set("wood", 0.7))
	require.NoError(t, Save(db, tbl))

	loaded, err := Load(db)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	d, ok := loaded.Density(core.MaterialID("wood"))
	require.True(t, ok)
	assert.Equal(t, 0.7, d)
}

func TestSave_Empty(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	assert.NoError(t, Save(db, NewTable()))
}

func TestSync_MergesStoredEntries(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	stored, err := FromMap(map[string]float64{"glass": 2.5, "wood": 0.5})
	require.NoError(t, err)
	require.NoError(t, Save(db, stored))

	configured, err := FromMap(map[string]float64{"wood": 0.7, "metal": 7.85})
	require.NoError(t, err)

	merged, err := Sync(db, configured)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Len())

	d, ok := merged.Density("glass")
	require.True(t, ok)
	assert.Equal(t, 2.5, d)
	d, ok = merged.Density("wood")
	require.True(t, ok)
	assert.Equal(t, 0.7, d)

	reloaded, err := Load(db)
	require.NoError(t, err)
	assert.Equal(t, merged.Entries(), reloaded.Entries())
}
