package domain

import "time"

// Attempt records one player action against the live zone.
type Attempt struct {
	Index       int       `json:"index"`
	MarkerAngle float64   `json:"markerAngle"`
	ZoneCenter  float64   `json:"zoneCenter"`
	ZoneSize    float64   `json:"zoneSize"`
	Hit         bool      `json:"hit"`
	At          time.Time `json:"at"`
}
