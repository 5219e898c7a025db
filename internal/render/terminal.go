package render

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/hperssn/lockpick/internal/domain"
	"github.com/hperssn/lockpick/internal/popup"
)

var (
	styleRing   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleZone   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleMarker = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleText   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	stylePopup  = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
	styleGood   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	styleBad    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed)
)

// terminal cells are roughly twice as tall as they are wide
const cellAspect = 2.0

// Terminal draws views onto a tcell screen.
type Terminal struct {
	screen tcell.Screen
	status string
}

func NewTerminal(screen tcell.Screen) *Terminal {
	return &Terminal{screen: screen}
}

// SetStatus sets the line printed under the dial, used for probe output.
func (t *Terminal) SetStatus(s string) {
	t.status = s
}

func (t *Terminal) Draw(v View) {
	s := t.screen
	s.Clear()

	w, h := s.Size()
	cx, cy := w/2, h/2
	radius := math.Min(float64(h)/2-4, float64(w)/(2*cellAspect)-2)
	if radius < 3 {
		radius = 3
	}

	if v.Visible {
		t.drawRing(cx, cy, radius, v)
		t.drawMarker(cx, cy, radius, v.MarkerAngle)

		t.text(cx-len(v.DifficultyLabel)/2, cy-int(radius)-3, v.DifficultyLabel, styleText)
		footer := v.AttemptsText + "   " + v.TimerText
		t.text(cx-len(footer)/2, cy+int(radius)+2, footer, styleText)
		pl := progressLine(v)
		t.text(cx-len([]rune(pl))/2, cy+int(radius)+3, pl, styleText)
		t.drawTimerBar(cx, cy+int(radius)+4, v.TimerProgress)
	}

	if t.status != "" {
		t.text(0, h-1, t.status, styleDim)
	}
	t.drawPopup(w, v.Popup)

	s.Show()
}

func (t *Terminal) drawRing(cx, cy int, radius float64, v View) {
	steps := int(radius * 16)
	for i := 0; i < steps; i++ {
		deg := float64(i) * 360 / float64(steps)
		x, y := polar(cx, cy, radius, deg)

		style, ch := styleRing, '·'
		if inZone(v, deg) {
			style, ch = styleZone, '█'
		}
		t.screen.SetContent(x, y, ch, nil, style)
	}
}

func (t *Terminal) drawMarker(cx, cy int, radius, deg float64) {
	for r := 1.0; r <= radius; r += 0.5 {
		x, y := polar(cx, cy, r, deg)
		t.screen.SetContent(x, y, '•', nil, styleMarker)
	}
	t.screen.SetContent(cx, cy, 'o', nil, styleMarker)
}

func (t *Terminal) drawTimerBar(cx, y int, progress float64) {
	const width = 30
	filled := int(math.Round(progress / 100 * width))
	x0 := cx - width/2
	for i := 0; i < width; i++ {
		ch := '░'
		if i < filled {
			ch = '█'
		}
		t.screen.SetContent(x0+i, y, ch, nil, styleText)
	}
}

func (t *Terminal) drawPopup(w int, p popup.View) {
	if !p.Visible {
		return
	}

	style := stylePopup
	switch p.Type {
	case popup.KindSuccess:
		style = styleGood
	case popup.KindFailure:
		style = styleBad
	}
	if p.Fading {
		style = style.Dim(true)
	}

	line := " " + p.Title + ": " + p.Message + " "
	t.text((w-len([]rune(line)))/2, 1, line, style)
}

func (t *Terminal) text(x, y int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		t.screen.SetContent(x+i, y, r, nil, style)
	}
}

func polar(cx, cy int, r, deg float64) (int, int) {
	rad := deg * math.Pi / 180
	x := float64(cx) + math.Sin(rad)*r*cellAspect
	y := float64(cy) - math.Cos(rad)*r
	return int(math.Round(x)), int(math.Round(y))
}

func inZone(v View, deg float64) bool {
	switch {
	case v.Zone != nil:
		return domain.HitTest(deg, v.Zone.Center, v.Zone.Tolerance)
	case v.SkillZone != nil:
		return v.SkillZone.Contains(deg)
	}
	return false
}

func progressLine(v View) string {
	var out []rune
	if v.Pins != nil {
		for _, done := range v.Pins {
			if done {
				out = append(out, '●', ' ')
			} else {
				out = append(out, '○', ' ')
			}
		}
		return string(out)
	}
	for _, c := range v.Checks {
		switch c {
		case "success":
			out = append(out, '✔', ' ')
		case "active":
			out = append(out, '▸', ' ')
		default:
			out = append(out, '·', ' ')
		}
	}
	return string(out)
}
