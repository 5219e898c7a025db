package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/hperssn/lockpick/internal/clock"
	"github.com/hperssn/lockpick/internal/domain"
	"github.com/hperssn/lockpick/internal/input"
	"github.com/hperssn/lockpick/internal/notify"
	"github.com/hperssn/lockpick/internal/popup"
	"github.com/hperssn/lockpick/internal/render"
	"github.com/hperssn/lockpick/internal/runner"
	"github.com/hperssn/lockpick/internal/sound"
)

const frameInterval = 33 * time.Millisecond

type cuePlayer interface {
	Play(sound.Cue)
}

type gameOptions struct {
	Clock        clock.Clock
	Notifier     notify.Notifier
	Sound        cuePlayer
	TickInterval time.Duration
}

// game is one local round: a session runner, the terminal it draws on and
// the keyboard that drives it.
type game struct {
	screen   tcell.Screen
	term     *render.Terminal
	runner   *runner.SessionRunner
	popup    *popup.Popup
	clock    clock.Clock
	notifier notify.Notifier
	sound    cuePlayer

	events  <-chan runner.Event
	release func()
}

func newGame(screen tcell.Screen, s *domain.Session, opts gameOptions) *game {
	if opts.Clock == nil {
		opts.Clock = clock.System
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}

	pop := popup.New(opts.Clock)
	r := runner.NewSessionRunner(s, runner.Options{
		Clock:        opts.Clock,
		Notifier:     opts.Notifier,
		Popup:        pop,
		TickInterval: opts.TickInterval,
	})

	return &game{
		screen:   screen,
		term:     render.NewTerminal(screen),
		runner:   r,
		popup:    pop,
		clock:    opts.Clock,
		notifier: opts.Notifier,
		sound:    opts.Sound,
	}
}

func (g *game) start() error {
	g.events, g.release = g.runner.Subscribe()
	return g.runner.Start()
}

func (g *game) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	defer g.release()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !g.handleInput(ev) {
				g.quit()
				return
			}

		case ev, ok := <-g.events:
			if !ok {
				g.events = nil
				g.term.SetStatus("Press q or Esc to quit")
				continue
			}
			g.onEvent(ev)

		case <-ticker.C:
			g.draw()
		}
	}
}

// quit settles the round with the host before the process exits: a
// running session is cancelled and a result waiting out the display delay
// is sent now.
func (g *game) quit() {
	if g.runner.Session().State == domain.StateRunning {
		g.runner.Cancel(domain.MsgCancelled)
	}
	g.runner.Flush()
	g.runner.Stop()
}

func (g *game) draw() {
	v := render.NewView(g.runner.Session(), g.clock.Now(), !g.runner.Closed(), g.popup.View())
	g.term.Draw(v)
}

// handleInput reports whether the game keeps running.
func (g *game) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return false
		}

		action := input.ActionNone
		switch ev.Key() {
		case tcell.KeyEnter:
			action = input.ActionAttempt
		case tcell.KeyEscape:
			action = input.ActionCancel
		case tcell.KeyRune:
			if ev.Rune() == 'q' {
				return !g.runner.Session().State.Resolved()
			}
			action = input.FromRune(ev.Rune())
		}
		return g.apply(action)

	case *tcell.EventResize:
		g.screen.Sync()
	}

	return true
}

func (g *game) apply(action input.Action) bool {
	running := g.runner.Session().State == domain.StateRunning

	switch action {
	case input.ActionAttempt:
		g.runner.Act()

	case input.ActionCancel:
		if !running {
			g.notifier.Close(context.Background(), g.runner.Session().UserID)
			return false
		}
		g.runner.Cancel(domain.MsgCancelled)

	case input.ActionProbe:
		p, err := g.runner.Probe()
		if err != nil {
			g.term.SetStatus(err.Error())
			break
		}
		g.term.SetStatus(fmt.Sprintf("marker %.1f°  zone %.1f°±%.1f°  distance %.1f°  hit=%v",
			p.MarkerAngle, p.ZoneCenter, p.Tolerance, p.Distance, p.Hit))
	}
	return true
}

func (g *game) onEvent(ev runner.Event) {
	if g.sound == nil {
		return
	}

	switch ev.Type {
	case runner.EventHit:
		if ev.Outcome != nil && !ev.Outcome.Resolved {
			g.sound.Play(sound.CueHit)
		}
	case runner.EventMiss:
		if ev.Outcome != nil && !ev.Outcome.Resolved {
			g.sound.Play(sound.CueMiss)
		}
	case runner.EventResolved:
		if ev.Outcome != nil && ev.Outcome.Success {
			g.sound.Play(sound.CueUnlock)
		} else {
			g.sound.Play(sound.CueBroken)
		}
	}
}
