package render

import (
	"bytes"
	"image/png"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// toCanvas converts a dial angle (0° at twelve o'clock, clockwise) to the
// radians gg expects.
func toCanvas(deg float64) float64 {
	return gg.Radians(deg - 90)
}

// RenderDial draws the lock face of v as a PNG of size×size pixels.
func RenderDial(v View, size int) ([]byte, error) {
	if size < 64 {
		size = 64
	}

	dc := gg.NewContext(size, size)
	dc.SetRGB(0.09, 0.09, 0.11)
	dc.Clear()

	cx := float64(size) / 2
	cy := float64(size) / 2
	radius := float64(size) * 0.38

	dc.SetLineWidth(float64(size) / 40)
	dc.SetRGB(0.3, 0.3, 0.34)
	dc.DrawCircle(cx, cy, radius)
	dc.Stroke()

	// zone
	dc.SetRGB(0.3, 0.69, 0.31)
	dc.SetLineWidth(float64(size) / 18)
	switch {
	case v.Zone != nil:
		dc.DrawArc(cx, cy, radius, toCanvas(v.Zone.Center-v.Zone.Tolerance), toCanvas(v.Zone.Center+v.Zone.Tolerance))
		dc.Stroke()
	case v.SkillZone != nil:
		dc.DrawArc(cx, cy, radius, toCanvas(v.SkillZone.Start), toCanvas(v.SkillZone.End))
		dc.Stroke()
	}

	// marker
	rad := gg.Radians(v.MarkerAngle)
	dc.SetRGB(0.9, 0.2, 0.2)
	dc.SetLineWidth(float64(size) / 80)
	dc.DrawLine(cx, cy, cx+math.Sin(rad)*radius*1.1, cy-math.Cos(rad)*radius*1.1)
	dc.Stroke()
	dc.DrawCircle(cx, cy, float64(size)/40)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(0.95, 0.95, 0.95)
	dc.DrawStringAnchored(v.DifficultyLabel, cx, float64(size)*0.05, 0.5, 0.5)
	dc.DrawStringAnchored(v.AttemptsText+"  "+v.TimerText, cx, float64(size)*0.95, 0.5, 0.5)

	drawProgress(dc, v, size)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawProgress puts one dot per pin or check under the dial.
func drawProgress(dc *gg.Context, v View, size int) {
	var done []bool
	if v.Pins != nil {
		done = v.Pins
	} else {
		for _, c := range v.Checks {
			done = append(done, c == "success")
		}
	}
	if len(done) == 0 {
		return
	}

	spacing := float64(size) / float64(len(done)+1)
	y := float64(size) * 0.88
	for i, d := range done {
		if d {
			dc.SetRGB(0.3, 0.69, 0.31)
		} else {
			dc.SetRGB(0.4, 0.4, 0.44)
		}
		dc.DrawCircle(spacing*float64(i+1), y, float64(size)/60)
		dc.Fill()
	}
}
