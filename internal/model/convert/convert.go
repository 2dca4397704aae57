package convert

import (
	"encoding/json"
	"sort"

	"github.com/OCAP2/ballistics/internal/geo"
	"github.com/OCAP2/ballistics/internal/model"
	"github.com/OCAP2/ballistics/pkg/core"
)

// ShotToCore converts a stored shot back to a record. Impacts are ordered by
// their sequence number.
func ShotToCore(s model.Shot, anchor geo.Anchor) core.ShotRecord {
	direction, _ := geo.ParseVec3(s.Direction)

	rec := core.ShotRecord{
		ID:          s.ID,
		FiredAt:     s.FiredAt,
		Origin:      anchor.LocalFromPoint(s.Origin),
		Direction:   direction,
		MuzzleSpeed: s.MuzzleSpeed,
		Bullet: core.BulletParameters{
			Caliber: s.Caliber,
			Length:  s.Length,
			Mass:    s.Mass,
			Density: s.Density,
		},
		FlightTime: s.FlightTime,
		Reason:     s.Reason,
		Trajectory: anchor.TrajectoryFromGeometry(s.Positions),
	}

	impacts := append([]model.ShotImpact(nil), s.Impacts...)
	sort.SliceStable(impacts, func(i, j int) bool { return impacts[i].Seq < impacts[j].Seq })
	for _, i := range impacts {
		rec.Impacts = append(rec.Impacts, ShotImpactToCore(i, anchor))
	}
	return rec
}

// ShotImpactToCore converts a stored impact back to a core.Impact.
func ShotImpactToCore(i model.ShotImpact, anchor geo.Anchor) core.Impact {
	normal, _ := geo.ParseVec3(i.Normal)

	var skipped []core.SurfaceID
	if len(i.Skipped) > 0 {
		_ = json.Unmarshal(i.Skipped, &skipped)
	}
	if len(skipped) == 0 {
		skipped = nil
	}

	return core.Impact{
		Kind:      core.ImpactKind(i.Kind),
		Time:      i.Time,
		Surface:   core.SurfaceID(i.Surface),
		Material:  core.MaterialID(i.Material),
		Location:  anchor.LocalFromPoint(i.Location),
		Normal:    normal,
		Speed:     i.Speed,
		Depth:     i.Depth,
		Thickness: i.Thickness,
		Skipped:   skipped,
	}
}
