package domain

import (
	"math"
	"math/rand"
)

const fullTurn = 360.0

// NormalizeAngle maps any angle into [0, 360).
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, fullTurn)
	if a < 0 {
		a += fullTurn
	}
	if a >= fullTurn {
		a = 0
	}
	return a
}

// CircularDistance is the shortest angular distance between a and b, in
// [0, 180].
func CircularDistance(a, b float64) float64 {
	d := math.Abs(NormalizeAngle(a) - NormalizeAngle(b))
	return math.Min(d, fullTurn-d)
}

// HitTest reports whether marker lies within tolerance degrees of target
// on the circle.
func HitTest(marker, target, tolerance float64) bool {
	return CircularDistance(marker, target) <= tolerance
}

// TargetZone is the live arc a circle-mode marker must land in.
type TargetZone struct {
	Center float64 `json:"center"`
	Size   float64 `json:"size"`
}

func (z TargetZone) Tolerance() float64 {
	return z.Size / 2
}

func (z TargetZone) Contains(angle float64) bool {
	return HitTest(angle, z.Center, z.Tolerance())
}

// VisualWidth is the on-screen width of the zone in pixels.
func (z TargetZone) VisualWidth() float64 {
	return math.Max(50, z.Size*1.5)
}

// NewTargetZone places a zone uniformly on the circle with an extra
// ±30° jitter.
func NewTargetZone(size float64, r *rand.Rand) TargetZone {
	base := math.Floor(r.Float64() * fullTurn)
	offset := (r.Float64() - 0.5) * 60
	return TargetZone{
		Center: NormalizeAngle(base + offset + fullTurn),
		Size:   size,
	}
}

// SkillZone is the skill-check success window. It never wraps past 360.
type SkillZone struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (z SkillZone) Contains(angle float64) bool {
	return angle >= z.Start && angle <= z.End
}

const skillZoneMaxStart = 270.0

func NewSkillZone(size float64, r *rand.Rand) SkillZone {
	start := r.Float64() * skillZoneMaxStart
	return SkillZone{Start: start, End: start + size}
}
