package domain

import (
	"time"
)

const (
	pickerBasePeriod = 3 * time.Second
	needleBasePeriod = 2 * time.Second
)

// Marker is a constant-velocity rotation anchored at a restart instant.
// Its angle is always derived, never stored.
type Marker struct {
	Period    time.Duration `json:"period"`
	RestartAt time.Time     `json:"restartAt"`
}

// PickerPeriod is the full-rotation time of the circle-mode picker.
func PickerPeriod(speed float64) time.Duration {
	return scaledPeriod(pickerBasePeriod, speed)
}

// NeedlePeriod is the full-rotation time of the skill-check needle, which
// runs at twice the picker speed.
func NeedlePeriod(speed float64) time.Duration {
	return scaledPeriod(needleBasePeriod, speed*2)
}

func scaledPeriod(base time.Duration, speed float64) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	return time.Duration(float64(base) / speed)
}

func (m *Marker) Restart(now time.Time) {
	m.RestartAt = now
}

// Angle returns the marker position in [0, 360) at now.
func (m Marker) Angle(now time.Time) float64 {
	if m.Period <= 0 || m.RestartAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(m.RestartAt)
	if elapsed < 0 {
		return 0
	}
	phase := elapsed % m.Period
	return NormalizeAngle(float64(phase) / float64(m.Period) * fullTurn)
}

// TimeToAngle is the offset after a restart at which the marker first
// reaches deg.
func (m Marker) TimeToAngle(deg float64) time.Duration {
	return time.Duration(NormalizeAngle(deg) / fullTurn * float64(m.Period))
}
