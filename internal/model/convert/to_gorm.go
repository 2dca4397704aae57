// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/ballistics/internal/geo"
	"github.com/OCAP2/ballistics/internal/model"
	"github.com/OCAP2/ballistics/pkg/core"
	"gorm.io/datatypes"
)

// surfacesToJSON converts skipped surfaces to datatypes.JSON for DB storage.
func surfacesToJSON(ids []core.SurfaceID) datatypes.JSON {
	if len(ids) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(ids)
	return datatypes.JSON(data)
}

// CoreToShot converts a shot record to a GORM model.Shot. Positions are
// projected through the anchor; the trajectory becomes a LineStringZM.
func CoreToShot(rec core.ShotRecord, anchor geo.Anchor) model.Shot {
	result := model.Shot{
		ID:           rec.ID,
		FiredAt:      rec.FiredAt,
		Origin:       anchor.Point(rec.Origin),
		Direction:    geo.FormatVec3(rec.Direction),
		MuzzleSpeed:  rec.MuzzleSpeed,
		Caliber:      rec.Bullet.Caliber,
		Length:       rec.Bullet.Length,
		Mass:         rec.Bullet.Mass,
		Density:      rec.Bullet.Density,
		FlightTime:   rec.FlightTime,
		Reason:       rec.Reason,
		Penetrations: rec.Penetrations(),
		Positions:    anchor.Trajectory(rec.Trajectory),
	}

	for i, impact := range rec.Impacts {
		result.Impacts = append(result.Impacts, CoreToShotImpact(rec.ID, i, impact, anchor))
	}
	return result
}

// CoreToShotImpact converts one impact of shot shotID.
func CoreToShotImpact(shotID string, seq int, i core.Impact, anchor geo.Anchor) model.ShotImpact {
	return model.ShotImpact{
		ShotID:    shotID,
		Seq:       seq,
		Kind:      string(i.Kind),
		Time:      i.Time,
		Surface:   string(i.Surface),
		Material:  string(i.Material),
		Location:  anchor.Point(i.Location),
		Normal:    geo.FormatVec3(i.Normal),
		Speed:     i.Speed,
		Depth:     i.Depth,
		Thickness: i.Thickness,
		Skipped:   surfacesToJSON(i.Skipped),
	}
}
