// Package render turns session state into something a player can see.
// Renderers only read derived state; they never mutate a session.
package render

import (
	"fmt"
	"math"
	"time"

	"github.com/hperssn/lockpick/internal/domain"
	"github.com/hperssn/lockpick/internal/popup"
)

type ZoneView struct {
	Center      float64 `json:"center"`
	Size        float64 `json:"size"`
	Tolerance   float64 `json:"tolerance"`
	VisualWidth float64 `json:"visualWidth"`
}

type View struct {
	SessionID       string            `json:"sessionId"`
	Mode            domain.Mode       `json:"mode"`
	Difficulty      domain.Difficulty `json:"difficulty"`
	DifficultyLabel string            `json:"difficultyLabel"`
	State           domain.State      `json:"state"`
	Visible         bool              `json:"visible"`

	MarkerAngle float64           `json:"markerAngle"`
	Zone        *ZoneView         `json:"zone,omitempty"`
	SkillZone   *domain.SkillZone `json:"skillZone,omitempty"`

	Pins   []bool   `json:"pins,omitempty"`
	Checks []string `json:"checks,omitempty"`

	AttemptsText  string  `json:"attemptsText"`
	TimerProgress float64 `json:"timerProgress"`
	TimerText     string  `json:"timerText"`
	Message       string  `json:"message,omitempty"`

	Popup popup.View `json:"popup"`
}

// NewView derives the display state of s at now. visible is false once the
// interface has been hidden after resolution.
func NewView(s *domain.Session, now time.Time, visible bool, p popup.View) View {
	v := View{
		SessionID:       s.ID,
		Mode:            s.Mode,
		Difficulty:      s.Difficulty,
		DifficultyLabel: "Difficulty: " + s.Difficulty.Label(),
		State:           s.State,
		Visible:         visible,
		MarkerAngle:     s.Marker.Angle(now),
		AttemptsText:    fmt.Sprintf("Attempts: %d/%d", s.AttemptsLeft(), s.MaxAttempts),
		TimerProgress:   TimerProgress(s.Remaining, s.TimeBudget),
		TimerText:       TimerText(s.Remaining),
		Message:         s.Message,
		Popup:           p,
	}

	switch s.Mode {
	case domain.ModeSkillCheck:
		zone := s.SkillZone
		v.SkillZone = &zone
		v.Checks = make([]string, s.ChecksNeeded)
		for i := range v.Checks {
			switch {
			case i < s.Checks:
				v.Checks[i] = "success"
			case i == s.Checks && s.State == domain.StateRunning:
				v.Checks[i] = "active"
			}
		}
	default:
		v.Zone = &ZoneView{
			Center:      s.Zone.Center,
			Size:        s.Zone.Size,
			Tolerance:   s.Zone.Tolerance(),
			VisualWidth: s.Zone.VisualWidth(),
		}
		v.Pins = make([]bool, s.TotalPins)
		for i := 0; i < s.Pins && i < len(v.Pins); i++ {
			v.Pins[i] = true
		}
	}

	return v
}

// TimerProgress is the remaining share of the budget in percent, never
// below zero.
func TimerProgress(remaining, budget time.Duration) float64 {
	if budget <= 0 {
		return 0
	}
	return math.Max(0, float64(remaining)/float64(budget)*100)
}

// TimerText shows whole seconds left, rounded up.
func TimerText(remaining time.Duration) string {
	secs := int(math.Ceil(remaining.Seconds()))
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%ds", secs)
}
