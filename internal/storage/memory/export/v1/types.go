// Package v1 contains the v1 export format for recorded shots.
package v1

// FormatVersion is written to every export.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	Version     int            `json:"version"`
	SessionName string         `json:"sessionName"`
	StartedAt   string         `json:"startedAt"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Settings    map[string]any `json:"settings,omitempty"`
	Shots       []Shot         `json:"shots"`
	Summary     Summary        `json:"summary"`
}

// Summary aggregates the shots of an export.
type Summary struct {
	Shots        int            `json:"shots"`
	Penetrations int            `json:"penetrations"`
	Reasons      map[string]int `json:"reasons"`
}

// Bullet holds the physical parameters of a shot
type Bullet struct {
	Caliber float64 `json:"caliber"`
	Length  float64 `json:"length"`
	Mass    float64 `json:"mass"`
	Density float64 `json:"density"`
}

// Shot is the flight of one projectile
type Shot struct {
	ID           string       `json:"id"`
	FiredAt      string       `json:"firedAt"`
	Origin       [3]float64   `json:"origin"`
	Direction    [3]float64   `json:"direction"`
	MuzzleSpeed  float64      `json:"muzzleSpeed"`
	Bullet       Bullet       `json:"bullet"`
	FlightTime   float64      `json:"flightTime"`
	Reason       string       `json:"reason"`
	Penetrations int          `json:"penetrations"`
	Positions    [][4]float64 `json:"positions"` // [x, y, z, elapsed]
	Impacts      []Impact     `json:"impacts"`
}

// Impact is one collision event of a shot
type Impact struct {
	Kind      string     `json:"kind"`
	Time      float64    `json:"time"`
	Surface   string     `json:"surface"`
	Material  string     `json:"material,omitempty"`
	Location  [3]float64 `json:"location"`
	Normal    [3]float64 `json:"normal"`
	Speed     float64    `json:"speed"`
	Depth     float64    `json:"depth,omitempty"`
	Thickness float64    `json:"thickness,omitempty"`
	Skipped   []string   `json:"skipped,omitempty"`
}
