package popup

import (
	"sync"
	"time"

	"github.com/hperssn/lockpick/internal/clock"
)

const (
	DefaultDuration = 4000 * time.Millisecond
	FadeDuration    = 400 * time.Millisecond
)

type Kind string

const (
	KindStart   Kind = "start"
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
	KindInfo    Kind = "info"
)

// Notice is what a show request carries.
type Notice struct {
	Type     Kind          `json:"type"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// View is the visible state of the popup.
type View struct {
	Notice
	Visible bool `json:"visible"`
	Fading  bool `json:"fading"`
}

// Popup is the notification surface of one host. Show auto-hides after
// the notice duration; Hide fades out and then hides. Hide is idempotent.
type Popup struct {
	mu    sync.Mutex
	clock clock.Clock

	view View
	gen  int

	autoHide clock.Timer
	fade     clock.Timer
}

func New(clk clock.Clock) *Popup {
	if clk == nil {
		clk = clock.System
	}
	return &Popup{clock: clk}
}

func (p *Popup) Show(n Notice) {
	if n.Duration <= 0 {
		n.Duration = DefaultDuration
	}
	if n.Type == "" {
		n.Type = KindInfo
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopTimers()
	p.gen++
	gen := p.gen

	p.view = View{Notice: n, Visible: true}
	p.autoHide = p.clock.AfterFunc(n.Duration, func() { p.hide(gen) })
}

func (p *Popup) Hide() {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	p.hide(gen)
}

func (p *Popup) hide(gen int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// a newer Show owns the surface now
	if gen != p.gen || !p.view.Visible || p.view.Fading {
		return
	}

	if p.autoHide != nil {
		p.autoHide.Stop()
		p.autoHide = nil
	}
	p.view.Fading = true
	p.fade = p.clock.AfterFunc(FadeDuration, func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		if gen != p.gen {
			return
		}
		p.view.Visible = false
		p.view.Fading = false
	})
}

func (p *Popup) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

func (p *Popup) stopTimers() {
	if p.autoHide != nil {
		p.autoHide.Stop()
		p.autoHide = nil
	}
	if p.fade != nil {
		p.fade.Stop()
		p.fade = nil
	}
}
