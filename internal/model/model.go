// Package model defines the GORM models of recorded shots.
package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels are migrated on every backend.
var DatabaseModels = []any{
	&Session{},
	&Shot{},
	&ShotImpact{},
}

// Session is one run of the simulator against a scene.
type Session struct {
	gorm.Model
	Name      string         `json:"name" gorm:"size:127"`
	StartedAt time.Time      `json:"startedAt"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Location  geom.Point     `json:"location"` // anchor in EPSG:3857
	Settings  datatypes.JSON `json:"settings"` // ballistics configuration snapshot
	Shots     []Shot
}

func (*Session) TableName() string {
	return "sessions"
}

// Shot is the complete flight of one projectile.
type Shot struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	SessionID   uint       `json:"sessionId" gorm:"index:idx_shot_session_id"`
	Session     Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	FiredAt     time.Time  `json:"firedAt"`
	Origin      geom.Point `json:"origin"`
	Direction   string     `json:"direction" gorm:"size:96"` // unit vector "x,y,z"
	MuzzleSpeed float64    `json:"muzzleSpeed"`
	Caliber     float64    `json:"caliber"`
	Length      float64    `json:"length"`
	Mass        float64    `json:"mass"`
	Density     float64    `json:"density"`
	FlightTime  float64    `json:"flightTime"`
	Reason      string     `json:"reason" gorm:"size:32;index:idx_shot_reason"`

	Penetrations int `json:"penetrations"`

	Positions geom.Geometry `json:"-"` // LineStringZM of positions over time [x,y,z,elapsed]

	Impacts []ShotImpact `json:"impacts" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*Shot) TableName() string {
	return "shots"
}

// ShotImpact is one collision event of a shot.
type ShotImpact struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	ShotID    string         `json:"shotId" gorm:"size:36;index:idx_impact_shot_id"`
	Seq       int            `json:"seq"`
	Kind      string         `json:"kind" gorm:"size:16"`
	Time      float64        `json:"time"`
	Surface   string         `json:"surface" gorm:"size:64"`
	Material  string         `json:"material" gorm:"size:64;index:idx_impact_material"`
	Location  geom.Point     `json:"location"`
	Normal    string         `json:"normal" gorm:"size:96"`
	Speed     float64        `json:"speed"`
	Depth     float64        `json:"depth"`
	Thickness float64        `json:"thickness"`
	Skipped   datatypes.JSON `json:"skipped"`
}

func (*ShotImpact) TableName() string {
	return "shot_impacts"
}
