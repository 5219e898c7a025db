package domain

import (
	"strings"
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Mode string

const (
	ModeCircle     Mode = "circle"
	ModeSkillCheck Mode = "skillcheck"
)

// Settings are the per-difficulty tuning values.
type Settings struct {
	Speed     float64       `json:"speed"`
	ZoneSize  float64       `json:"zoneSize"`
	TimeLimit time.Duration `json:"timeLimit"`
}

var difficulties = map[Difficulty]Settings{
	DifficultyEasy:   {Speed: 0.8, ZoneSize: 50, TimeLimit: 45000 * time.Millisecond},
	DifficultyMedium: {Speed: 1.0, ZoneSize: 30, TimeLimit: 30000 * time.Millisecond},
	DifficultyHard:   {Speed: 1.2, ZoneSize: 20, TimeLimit: 20000 * time.Millisecond},
}

// SettingsFor returns the tuning for d, falling back to medium.
func SettingsFor(d Difficulty) Settings {
	if s, ok := difficulties[d]; ok {
		return s
	}
	return difficulties[DifficultyMedium]
}

// ParseDifficulty is case-insensitive; anything unknown is medium.
func ParseDifficulty(s string) Difficulty {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := difficulties[d]; ok {
		return d
	}
	return DifficultyMedium
}

// ParseMode is case-insensitive; anything unknown is circle.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSkillCheck:
		return ModeSkillCheck
	default:
		return ModeCircle
	}
}

// Label is the capitalized difficulty name shown to the player.
func (d Difficulty) Label() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}
