package v1

import (
	"sort"
	"time"

	"github.com/OCAP2/ballistics/pkg/core"
)

// SessionData contains all the data needed to build an export
type SessionData struct {
	Session *core.Session
	Shots   []core.ShotRecord
}

// Build creates an Export from the session data. Shots are ordered by
// firing time.
func Build(data *SessionData) Export {
	export := Export{
		Version: FormatVersion,
		Shots:   make([]Shot, 0, len(data.Shots)),
		Summary: Summary{Reasons: make(map[string]int)},
	}

	if s := data.Session; s != nil {
		export.SessionName = s.Name
		export.StartedAt = formatTime(s.StartedAt)
		export.Latitude = s.Latitude
		export.Longitude = s.Longitude
		export.Settings = s.Settings
	}

	shots := append([]core.ShotRecord(nil), data.Shots...)
	sort.SliceStable(shots, func(i, j int) bool {
		return shots[i].FiredAt.Before(shots[j].FiredAt)
	})

	for i := range shots {
		shot := buildShot(&shots[i])
		export.Shots = append(export.Shots, shot)
		export.Summary.Shots++
		export.Summary.Penetrations += shot.Penetrations
		export.Summary.Reasons[shot.Reason]++
	}

	return export
}

func buildShot(rec *core.ShotRecord) Shot {
	shot := Shot{
		ID:          rec.ID,
		FiredAt:     formatTime(rec.FiredAt),
		Origin:      rec.Origin,
		Direction:   rec.Direction,
		MuzzleSpeed: rec.MuzzleSpeed,
		Bullet: Bullet{
			Caliber: rec.Bullet.Caliber,
			Length:  rec.Bullet.Length,
			Mass:    rec.Bullet.Mass,
			Density: rec.Bullet.Density,
		},
		FlightTime:   rec.FlightTime,
		Reason:       rec.Reason,
		Penetrations: rec.Penetrations(),
		Positions:    make([][4]float64, 0, len(rec.Trajectory)),
		Impacts:      make([]Impact, 0, len(rec.Impacts)),
	}

	for _, p := range rec.Trajectory {
		shot.Positions = append(shot.Positions, [4]float64{p.Position[0], p.Position[1], p.Position[2], p.Time})
	}

	for _, i := range rec.Impacts {
		impact := Impact{
			Kind:      string(i.Kind),
			Time:      i.Time,
			Surface:   string(i.Surface),
			Material:  string(i.Material),
			Location:  i.Location,
			Normal:    i.Normal,
			Speed:     i.Speed,
			Depth:     i.Depth,
			Thickness: i.Thickness,
		}
		for _, id := range i.Skipped {
			impact.Skipped = append(impact.Skipped, string(id))
		}
		shot.Impacts = append(shot.Impacts, impact)
	}

	return shot
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
