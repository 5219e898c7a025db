package runner

import (
	"time"

	"github.com/hperssn/lockpick/internal/domain"
)

type EventType string

const (
	EventStarted  EventType = "started"
	EventTick     EventType = "tick"
	EventHit      EventType = "hit"
	EventMiss     EventType = "miss"
	EventProbe    EventType = "probe"
	EventResolved EventType = "resolved"
	EventClosed   EventType = "closed"
)

// Event is published to subscribers of a session.
type Event struct {
	Type        EventType       `json:"type"`
	SessionID   string          `json:"sessionId"`
	RemainingMs int64           `json:"remainingMs"`
	Outcome     *domain.Outcome `json:"outcome,omitempty"`
	Probe       *domain.Probe   `json:"probe,omitempty"`
	At          time.Time       `json:"at"`
}
