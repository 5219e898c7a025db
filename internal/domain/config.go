package domain

const (
	DefaultPins        = 5
	DefaultMaxAttempts = 3
	SkillChecksNeeded  = 3
)

// StartConfig is the payload of a start request. Zero or unknown values
// fall back to defaults.
type StartConfig struct {
	GameType    string `json:"gameType"`
	Difficulty  string `json:"difficulty"`
	Pins        int    `json:"pins"`
	MaxAttempts int    `json:"maxAttempts"`
}

// Resolved is a StartConfig with every default applied.
type Resolved struct {
	Mode        Mode
	Difficulty  Difficulty
	Pins        int
	MaxAttempts int
}

func (c StartConfig) Resolve() Resolved {
	r := Resolved{
		Mode:        ParseMode(c.GameType),
		Difficulty:  ParseDifficulty(c.Difficulty),
		Pins:        c.Pins,
		MaxAttempts: c.MaxAttempts,
	}
	if r.Pins <= 0 {
		r.Pins = DefaultPins
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = DefaultMaxAttempts
	}
	return r
}
