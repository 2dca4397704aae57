package materials

import (
	"fmt"

	"github.com/OCAP2/ballistics/pkg/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Material is the database row of one penetration table entry.
type Material struct {
	Name    string  `json:"name" gorm:"primaryKey;size:64"`
	Density float64 `json:"density" gorm:"not null"`
}

// TableName overrides the default gorm table name.
func (*Material) TableName() string {
	return "materials"
}

// Migrate creates the materials table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Material{}); err != nil {
		return fmt.Errorf("failed to migrate materials: %w", err)
	}
	return nil
}

// Save upserts every entry of t.
func Save(db *gorm.DB, t *Table) error {
	rows := t.Entries()
	if len(rows) == 0 {
		return nil
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"density"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to save materials: %w", err)
	}
	return nil
}

// Load reads every stored material into a new table.
func Load(db *gorm.DB) (*Table, error) {
	var rows []Material
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load materials: %w", err)
	}
	t := NewTable()
	for _, row := range rows {
		if err := t.Set(core.MaterialID(row.Name), row.Density); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Sync merges the stored materials into t and writes the result back.
// Densities in t win over stored ones; stored materials t does not name are
// kept, so earlier sessions' entries stay usable.
func Sync(db *gorm.DB, t *Table) (*Table, error) {
	merged, err := Load(db)
	if err != nil {
		return nil, err
	}
	for _, m := range t.Entries() {
		if err := merged.Set(core.MaterialID(m.Name), m.Density); err != nil {
			return nil, err
		}
	}
	if err := Save(db, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
