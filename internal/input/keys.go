// Package input maps the keyboard surface of the minigame to actions.
package input

type Action int

const (
	ActionNone Action = iota
	ActionAttempt
	ActionCancel
	ActionProbe
)

func (a Action) String() string {
	switch a {
	case ActionAttempt:
		return "attempt"
	case ActionCancel:
		return "cancel"
	case ActionProbe:
		return "probe"
	default:
		return "none"
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// keyCodes follows the KeyboardEvent.code names a browser host reports.
var keyCodes = map[string]Action{
	"Space":       ActionAttempt,
	"Enter":       ActionAttempt,
	"NumpadEnter": ActionAttempt,
	"Escape":      ActionCancel,
	"KeyT":        ActionProbe,
}

// FromCode resolves a key code. Unknown codes are ActionNone.
func FromCode(code string) Action {
	return keyCodes[code]
}

// FromRune resolves a typed character, for terminals that deliver runes.
func FromRune(r rune) Action {
	switch r {
	case ' ':
		return ActionAttempt
	case 't', 'T':
		return ActionProbe
	default:
		return ActionNone
	}
}
