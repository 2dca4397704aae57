// pkg/core/session.go
package core

import "time"

// Session describes one run of the simulator. Settings is a free-form
// snapshot of the configuration the run used.
type Session struct {
	Name      string
	StartedAt time.Time
	Latitude  float64
	Longitude float64
	Settings  map[string]any
}
