package storage

import (
	"time"

	"github.com/hperssn/lockpick/internal/domain"
)

type SuccessLevel string

const (
	SuccessLevelFail  SuccessLevel = "fail"
	SuccessLevelOK    SuccessLevel = "ok"
	SuccessLevelGreat SuccessLevel = "great"
)

type SessionRecord struct {
	ID           string          `json:"id" bson:"_id"`
	UserID       string          `json:"userId" bson:"userId"`
	Mode         string          `json:"mode" bson:"mode"`
	Difficulty   string          `json:"difficulty" bson:"difficulty"`
	TotalPins    int             `json:"totalPins" bson:"totalPins"`
	MaxAttempts  int             `json:"maxAttempts" bson:"maxAttempts"`
	Pins         int             `json:"pins" bson:"pins"`
	AttemptsUsed int             `json:"attemptsUsed" bson:"attemptsUsed"`
	Checks       int             `json:"checks" bson:"checks"`
	Success      SuccessLevel    `json:"success" bson:"success"`
	Message      string          `json:"message" bson:"message"`
	ElapsedMs    int64           `json:"elapsedMs" bson:"elapsedMs"`
	StartedAt    time.Time       `json:"startedAt" bson:"startedAt"`
	CompletedAt  time.Time       `json:"completedAt" bson:"completedAt"`
	Attempts     []AttemptRecord `json:"attempts" bson:"attempts"`
}

type AttemptRecord struct {
	Index       int       `json:"index" bson:"index"`
	MarkerAngle float64   `json:"markerAngle" bson:"markerAngle"`
	ZoneCenter  float64   `json:"zoneCenter" bson:"zoneCenter"`
	ZoneSize    float64   `json:"zoneSize" bson:"zoneSize"`
	Hit         bool      `json:"hit" bson:"hit"`
	At          time.Time `json:"at" bson:"at"`
}

// LevelFor grades a resolved session: a flawless success is great.
func LevelFor(s *domain.Session) SuccessLevel {
	switch {
	case s.State != domain.StateSucceeded:
		return SuccessLevelFail
	case s.Attempts == 0:
		return SuccessLevelGreat
	default:
		return SuccessLevelOK
	}
}

// FromDomainSession converts a resolved domain.Session to a SessionRecord
func FromDomainSession(s *domain.Session) *SessionRecord {
	attempts := make([]AttemptRecord, len(s.History))
	for i, a := range s.History {
		attempts[i] = AttemptRecord{
			Index:       a.Index,
			MarkerAngle: a.MarkerAngle,
			ZoneCenter:  a.ZoneCenter,
			ZoneSize:    a.ZoneSize,
			Hit:         a.Hit,
			At:          a.At,
		}
	}

	completed := s.ResolvedAt
	if completed.IsZero() {
		completed = time.Now()
	}

	return &SessionRecord{
		ID:           s.ID,
		UserID:       s.UserID,
		Mode:         string(s.Mode),
		Difficulty:   string(s.Difficulty),
		TotalPins:    s.TotalPins,
		MaxAttempts:  s.MaxAttempts,
		Pins:         s.Pins,
		AttemptsUsed: s.Attempts,
		Checks:       s.Checks,
		Success:      LevelFor(s),
		Message:      s.Message,
		ElapsedMs:    (s.TimeBudget - s.Remaining).Milliseconds(),
		StartedAt:    s.StartedAt,
		CompletedAt:  completed,
		Attempts:     attempts,
	}
}
