// pkg/core/events.go
package core

import (
	"time"
)

// ImpactKind classifies a collision event on a projectile's path.
type ImpactKind string

const (
	ImpactEntry   ImpactKind = "entry"   // penetrable surface struck
	ImpactExit    ImpactKind = "exit"    // projectile left the struck object
	ImpactLodged  ImpactKind = "lodged"  // exit found but too thick
	ImpactStopped ImpactKind = "stopped" // impenetrable surface or no exit
)

// TrajectoryPoint represents a single position sample in a projectile trajectory.
// Time is the projectile's elapsed simulation time when the sample was taken.
type TrajectoryPoint struct {
	Position Vec3
	Time     float64
}

// Impact records one collision event of a projectile.
type Impact struct {
	Kind      ImpactKind
	Time      float64
	Surface   SurfaceID
	Material  MaterialID
	Location  Vec3
	Normal    Vec3
	Speed     float64     // projectile speed after the event
	Depth     float64     // penetration budget for the struck material
	Thickness float64     // traversal thickness, exit and lodged events only
	Skipped   []SurfaceID // surfaces skipped by the exit search
}

// ShotRecord is the complete history of one projectile, produced when it is destroyed.
type ShotRecord struct {
	ID          string
	FiredAt     time.Time
	Origin      Vec3
	Direction   Vec3
	MuzzleSpeed float64
	Bullet      BulletParameters
	FlightTime  float64
	Reason      string
	Trajectory  []TrajectoryPoint
	Impacts     []Impact
}

// Penetrations returns the number of exit events in the record.
func (s *ShotRecord) Penetrations() int {
	n := 0
	for _, i := range s.Impacts {
		if i.Kind == ImpactExit {
			n++
		}
	}
	return n
}

// FinalPosition returns the last sampled position, or the origin when no samples exist.
func (s *ShotRecord) FinalPosition() Vec3 {
	if len(s.Trajectory) == 0 {
		return s.Origin
	}
	return s.Trajectory[len(s.Trajectory)-1].Position
}
