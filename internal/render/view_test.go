package render

import (
	"bytes"
	"image/png"
	"math/rand"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/hperssn/lockpick/internal/clock"
	"github.com/hperssn/lockpick/internal/domain"
	"github.com/hperssn/lockpick/internal/popup"
)

func startedSession(t *testing.T, cfg domain.StartConfig) (*domain.Session, *clock.Manual) {
	t.Helper()

	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := domain.NewSession("view", "host", cfg, clk, rand.New(rand.NewSource(11)))
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s, clk
}

func TestTimerHelpers(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		progress  float64
		text      string
	}{
		{30 * time.Second, 100, "30s"},
		{14900 * time.Millisecond, 14900.0 / 30000 * 100, "15s"},
		{100 * time.Millisecond, 100.0 / 30000 * 100, "1s"},
		{-100 * time.Millisecond, 0, "0s"},
	}
	for _, tt := range tests {
		if got := TimerProgress(tt.remaining, 30*time.Second); got != tt.progress {
			t.Errorf("TimerProgress(%v) = %v, want %v", tt.remaining, got, tt.progress)
		}
		if got := TimerText(tt.remaining); got != tt.text {
			t.Errorf("TimerText(%v) = %q, want %q", tt.remaining, got, tt.text)
		}
	}
}

func TestNewViewCircle(t *testing.T) {
	s, clk := startedSession(t, domain.StartConfig{Difficulty: "hard", Pins: 3, MaxAttempts: 3})

	clk.Advance(s.Marker.TimeToAngle(s.Zone.Center + 180))
	s.Act()
	clk.Advance(s.Marker.TimeToAngle(s.Zone.Center))
	s.Act()

	v := NewView(s, clk.Now(), true, popup.View{})
	if v.DifficultyLabel != "Difficulty: Hard" {
		t.Fatalf("label = %q", v.DifficultyLabel)
	}
	if v.AttemptsText != "Attempts: 2/3" {
		t.Fatalf("attempts text = %q", v.AttemptsText)
	}
	if len(v.Pins) != 3 || !v.Pins[0] || v.Pins[1] {
		t.Fatalf("pins = %v", v.Pins)
	}
	if v.Zone == nil || v.Zone.VisualWidth != 50 || v.Zone.Tolerance != 10 {
		t.Fatalf("zone = %+v", v.Zone)
	}
	if v.SkillZone != nil || v.Checks != nil {
		t.Fatalf("circle view carries skill-check state")
	}
}

func TestNewViewSkillCheck(t *testing.T) {
	s, clk := startedSession(t, domain.StartConfig{GameType: "skillcheck"})

	clk.Advance(s.Marker.TimeToAngle((s.SkillZone.Start + s.SkillZone.End) / 2))
	s.Act()

	v := NewView(s, clk.Now(), true, popup.View{})
	want := []string{"success", "active", ""}
	for i := range want {
		if v.Checks[i] != want[i] {
			t.Fatalf("checks = %v, want %v", v.Checks, want)
		}
	}
	if v.Zone != nil || v.SkillZone == nil {
		t.Fatalf("skill view zones = %+v %+v", v.Zone, v.SkillZone)
	}
}

func TestRenderDial(t *testing.T) {
	s, clk := startedSession(t, domain.StartConfig{})
	v := NewView(s, clk.Now(), true, popup.View{})

	data, err := RenderDial(v, 200)
	if err != nil {
		t.Fatalf("RenderDial: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Fatalf("bounds = %v", b)
	}

	tiny, err := RenderDial(v, 10)
	if err != nil {
		t.Fatalf("RenderDial tiny: %v", err)
	}
	img, _ = png.Decode(bytes.NewReader(tiny))
	if img.Bounds().Dx() != 64 {
		t.Fatalf("tiny dial not clamped: %v", img.Bounds())
	}
}

func TestTerminalDraw(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(80, 30)

	s, clk := startedSession(t, domain.StartConfig{})
	v := NewView(s, clk.Now(), true, popup.View{Notice: popup.Notice{Title: "Hi", Message: "there"}, Visible: true})

	term := NewTerminal(screen)
	term.SetStatus("probe")
	term.Draw(v)

	// marker starts at twelve o'clock, straight above the hub
	cx, cy := 40, 15
	if r, _, _, _ := screen.GetContent(cx, cy); r != 'o' {
		t.Fatalf("hub rune = %q", r)
	}
	if r, _, _, _ := screen.GetContent(cx, cy-1); r != '•' {
		t.Fatalf("marker rune above hub = %q", r)
	}
	if r, _, _, _ := screen.GetContent(0, 29); r != 'p' {
		t.Fatalf("status line rune = %q", r)
	}
}
