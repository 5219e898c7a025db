package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/hperssn/lockpick/internal/clock"
)

var (
	ErrNotRunning     = errors.New("session not running")
	ErrAlreadyStarted = errors.New("session already started")
	ErrWrongMode      = errors.New("action not available in this mode")
)

const (
	MsgSuccess   = "Lock picked successfully!"
	MsgBroke     = "Lockpick broke!"
	MsgTimeout   = "Time ran out!"
	MsgCancelled = "Player cancelled the game"
	MsgEnded     = "Game ended"
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

func (s State) Resolved() bool {
	return s == StateSucceeded || s == StateFailed
}

type Session struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	Mode         Mode          `json:"mode"`
	Difficulty   Difficulty    `json:"difficulty"`
	Settings     Settings      `json:"settings"`
	TotalPins    int           `json:"totalPins"`
	MaxAttempts  int           `json:"maxAttempts"`
	ChecksNeeded int           `json:"checksNeeded"`
	TimeBudget   time.Duration `json:"timeBudget"`
	Remaining    time.Duration `json:"remaining"`

	Pins     int `json:"pins"`
	Attempts int `json:"attempts"`
	Checks   int `json:"checks"`

	State     State      `json:"state"`
	Zone      TargetZone `json:"zone"`
	SkillZone SkillZone  `json:"skillZone"`
	Marker    Marker     `json:"marker"`
	Message   string     `json:"message,omitempty"`
	History   []Attempt  `json:"history"`

	StartedAt  time.Time `json:"startedAt"`
	ResolvedAt time.Time `json:"resolvedAt"`

	clock clock.Clock
	rng   *rand.Rand
}

// Outcome describes the effect of one event on a session.
type Outcome struct {
	Hit      bool    `json:"hit"`
	Angle    float64 `json:"angle"`
	Pins     int     `json:"pins"`
	Attempts int     `json:"attempts"`
	Checks   int     `json:"checks"`
	Resolved bool    `json:"resolved"`
	Success  bool    `json:"success"`
	Message  string  `json:"message,omitempty"`
}

// Probe is a diagnostic hit-test that does not count as an attempt.
type Probe struct {
	MarkerAngle float64 `json:"markerAngle"`
	ZoneCenter  float64 `json:"zoneCenter"`
	Tolerance   float64 `json:"tolerance"`
	Distance    float64 `json:"distance"`
	Hit         bool    `json:"hit"`
}

func NewSession(id string, userID string, cfg StartConfig, clk clock.Clock, r *rand.Rand) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	if clk == nil {
		clk = clock.System
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	res := cfg.Resolve()
	settings := SettingsFor(res.Difficulty)

	period := PickerPeriod(settings.Speed)
	if res.Mode == ModeSkillCheck {
		period = NeedlePeriod(settings.Speed)
	}

	return &Session{
		ID:           id,
		UserID:       userID,
		Mode:         res.Mode,
		Difficulty:   res.Difficulty,
		Settings:     settings,
		TotalPins:    res.Pins,
		MaxAttempts:  res.MaxAttempts,
		ChecksNeeded: SkillChecksNeeded,
		TimeBudget:   settings.TimeLimit,
		Remaining:    settings.TimeLimit,
		State:        StateIdle,
		Marker:       Marker{Period: period},
		clock:        clk,
		rng:          r,
	}
}

// Start moves an idle session to running and places the first zone.
func (s *Session) Start() error {
	if s.State != StateIdle {
		return ErrAlreadyStarted
	}

	s.Pins = 0
	s.Attempts = 0
	s.Checks = 0
	s.History = nil
	s.Remaining = s.TimeBudget
	s.StartedAt = s.clock.Now()
	s.State = StateRunning
	s.regenerate()
	return nil
}

// MarkerAngle is the current derived marker position.
func (s *Session) MarkerAngle() float64 {
	return s.Marker.Angle(s.clock.Now())
}

// Act applies one player action at the current clock instant.
func (s *Session) Act() (Outcome, error) {
	if s.State != StateRunning {
		return Outcome{}, ErrNotRunning
	}

	now := s.clock.Now()
	angle := s.Marker.Angle(now)

	var hit bool
	switch s.Mode {
	case ModeSkillCheck:
		hit = s.SkillZone.Contains(angle)
	default:
		hit = s.Zone.Contains(angle)
	}

	s.History = append(s.History, Attempt{
		Index:       len(s.History),
		MarkerAngle: angle,
		ZoneCenter:  s.zoneCenter(),
		ZoneSize:    s.Settings.ZoneSize,
		Hit:         hit,
		At:          now,
	})

	if hit {
		s.recordHit()
	} else {
		s.recordMiss()
	}

	out := s.outcome()
	out.Hit = hit
	out.Angle = angle
	return out, nil
}

func (s *Session) recordHit() {
	if s.Mode == ModeSkillCheck {
		s.Checks++
		if s.Checks >= s.ChecksNeeded {
			s.resolve(true, MsgSuccess)
			return
		}
		s.regenerate()
		return
	}

	s.Pins++
	if s.Pins >= s.TotalPins {
		s.resolve(true, MsgSuccess)
		return
	}
	s.regenerate()
}

func (s *Session) recordMiss() {
	s.Attempts++
	if s.Attempts >= s.MaxAttempts {
		s.resolve(false, MsgBroke)
		return
	}
	s.regenerate()
}

// Probe reports where the marker is relative to the zone without
// consuming an attempt. Only circle mode has a probe.
func (s *Session) Probe() (Probe, error) {
	if s.State != StateRunning {
		return Probe{}, ErrNotRunning
	}
	if s.Mode != ModeCircle {
		return Probe{}, ErrWrongMode
	}

	angle := s.MarkerAngle()
	d := CircularDistance(angle, s.Zone.Center)
	return Probe{
		MarkerAngle: angle,
		ZoneCenter:  s.Zone.Center,
		Tolerance:   s.Zone.Tolerance(),
		Distance:    d,
		Hit:         d <= s.Zone.Tolerance(),
	}, nil
}

// Tick decrements the countdown by step and fails the session once it
// reaches zero.
func (s *Session) Tick(step time.Duration) (Outcome, error) {
	if s.State != StateRunning {
		return Outcome{}, ErrNotRunning
	}

	s.Remaining -= step
	if s.Remaining <= 0 {
		s.resolve(false, MsgTimeout)
	}
	return s.outcome(), nil
}

// Cancel force-fails a running session with reason.
func (s *Session) Cancel(reason string) (Outcome, error) {
	if s.State != StateRunning {
		return Outcome{}, ErrNotRunning
	}
	if reason == "" {
		reason = MsgEnded
	}
	s.resolve(false, reason)
	return s.outcome(), nil
}

// Clone returns a copy safe to hand out while the session keeps running.
func (s *Session) Clone() *Session {
	c := *s
	c.History = append([]Attempt(nil), s.History...)
	return &c
}

// ProgressMessage is the host-facing pin progress text.
func (s *Session) ProgressMessage() string {
	return fmt.Sprintf("Pin %d/%d picked!", s.Pins, s.TotalPins)
}

func (s *Session) AttemptsLeft() int {
	return s.MaxAttempts - s.Attempts
}

func (s *Session) resolve(success bool, message string) {
	if success {
		s.State = StateSucceeded
	} else {
		s.State = StateFailed
	}
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	s.Message = message
	s.ResolvedAt = s.clock.Now()
}

// regenerate places a new zone and re-anchors the marker so that each
// zone starts with the marker at zero.
func (s *Session) regenerate() {
	switch s.Mode {
	case ModeSkillCheck:
		s.SkillZone = NewSkillZone(s.Settings.ZoneSize, s.rng)
	default:
		s.Zone = NewTargetZone(s.Settings.ZoneSize, s.rng)
	}
	s.Marker.Restart(s.clock.Now())
}

func (s *Session) zoneCenter() float64 {
	if s.Mode == ModeSkillCheck {
		return (s.SkillZone.Start + s.SkillZone.End) / 2
	}
	return s.Zone.Center
}

func (s *Session) outcome() Outcome {
	return Outcome{
		Pins:     s.Pins,
		Attempts: s.Attempts,
		Checks:   s.Checks,
		Resolved: s.State.Resolved(),
		Success:  s.State == StateSucceeded,
		Message:  s.Message,
	}
}
