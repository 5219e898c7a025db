package domain

import (
	"math"
	"math/rand"
	"testing"
)

func TestCircularDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{name: "same angle", a: 90, b: 90, want: 0},
		{name: "wraparound", a: 2, b: 358, want: 4},
		{name: "no wrap", a: 2, b: 200, want: 162},
		{name: "opposite", a: 0, b: 180, want: 180},
		{name: "negative input", a: -10, b: 10, want: 20},
		{name: "over a turn", a: 725, b: 0, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CircularDistance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("CircularDistance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestHitTest(t *testing.T) {
	tests := []struct {
		name                string
		marker, target, tol float64
		want                bool
	}{
		{name: "inside across seam", marker: 2, target: 358, tol: 10, want: true},
		{name: "far away", marker: 2, target: 200, tol: 10, want: false},
		{name: "exactly on edge", marker: 115, target: 100, tol: 15, want: true},
		{name: "just outside", marker: 115.1, target: 100, tol: 15, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HitTest(tt.marker, tt.target, tt.tol); got != tt.want {
				t.Fatalf("HitTest(%v, %v, %v) = %v, want %v", tt.marker, tt.target, tt.tol, got, tt.want)
			}
		})
	}
}

func TestHitTestSymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 1000; i++ {
		a := r.Float64() * 360
		b := r.Float64() * 360
		tol := r.Float64() * 60

		if HitTest(a, b, tol) != HitTest(b, a, tol) {
			t.Fatalf("HitTest not symmetric for %v, %v, %v", a, b, tol)
		}
		if d := CircularDistance(a, b); d < 0 || d > 180 {
			t.Fatalf("distance %v out of [0,180]", d)
		}
	}
}

func TestNormalizeAngle(t *testing.T) {
	for _, in := range []float64{-720, -1, 0, 359.999, 360, 1e6} {
		got := NormalizeAngle(in)
		if got < 0 || got >= 360 {
			t.Fatalf("NormalizeAngle(%v) = %v, outside [0,360)", in, got)
		}
	}
}

func TestNewTargetZoneInRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		z := NewTargetZone(30, r)
		if z.Center < 0 || z.Center >= 360 {
			t.Fatalf("zone center %v outside [0,360)", z.Center)
		}
		if z.Tolerance() != 15 {
			t.Fatalf("tolerance = %v, want 15", z.Tolerance())
		}
		if !z.Contains(z.Center) {
			t.Fatalf("zone does not contain its own center")
		}
	}
}

func TestNewSkillZoneBounds(t *testing.T) {
	r := rand.New(rand.NewSource(3))

	for i := 0; i < 500; i++ {
		z := NewSkillZone(50, r)
		if z.Start < 0 || z.Start >= 270 {
			t.Fatalf("skill zone start %v outside [0,270)", z.Start)
		}
		if z.End-z.Start != 50 {
			t.Fatalf("skill zone width %v, want 50", z.End-z.Start)
		}
	}
}

func TestVisualWidth(t *testing.T) {
	if w := (TargetZone{Size: 20}).VisualWidth(); w != 50 {
		t.Fatalf("small zone width = %v, want 50", w)
	}
	if w := (TargetZone{Size: 50}).VisualWidth(); w != 75 {
		t.Fatalf("easy zone width = %v, want 75", w)
	}
}
