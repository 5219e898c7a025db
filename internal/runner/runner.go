package runner

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hperssn/lockpick/internal/clock"
	"github.com/hperssn/lockpick/internal/domain"
	"github.com/hperssn/lockpick/internal/notify"
	"github.com/hperssn/lockpick/internal/popup"
)

const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultResultDelay  = 500 * time.Millisecond

	successPopupDuration = 5000 * time.Millisecond
	failurePopupDuration = 4000 * time.Millisecond
	defaultFailureText   = "The lockpick attempt failed. Try again with better timing."
)

type Options struct {
	Clock    clock.Clock
	Notifier notify.Notifier
	Popup    *popup.Popup

	// TickInterval is the wall time between countdown ticks; TickStep is
	// how much of the budget each tick consumes.
	TickInterval time.Duration
	TickStep     time.Duration
	ResultDelay  time.Duration

	// OnResolved receives a copy of the session once, right after it
	// resolves.
	OnResolved func(*domain.Session)
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.System
	}
	if o.Notifier == nil {
		o.Notifier = notify.Nop{}
	}
	if o.Popup == nil {
		o.Popup = popup.New(o.Clock)
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.TickStep <= 0 {
		o.TickStep = DefaultTickInterval
	}
	if o.ResultDelay <= 0 {
		o.ResultDelay = DefaultResultDelay
	}
	return o
}

// SessionRunner drives one session: it owns the countdown goroutine,
// serializes every mutation, fans events out to subscribers and delivers
// the result to the host after the display delay.
type SessionRunner struct {
	mu sync.Mutex

	session *domain.Session
	opts    Options
	ctx     context.Context
	cancel  context.CancelFunc

	subs    map[int]chan Event
	nextSub int

	resultTimer clock.Timer
	pending     *pendingResult
	closed      bool
}

// pendingResult is the host result waiting out the display delay.
type pendingResult struct {
	hostID string
	result notify.Result
}

func NewSessionRunner(s *domain.Session, opts Options) *SessionRunner {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionRunner{
		session: s,
		opts:    opts.withDefaults(),
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[int]chan Event),
	}
}

// Start runs the session and its countdown.
func (r *SessionRunner) Start() error {
	r.mu.Lock()
	if err := r.session.Start(); err != nil {
		r.mu.Unlock()
		return err
	}
	s := r.session
	r.publish(Event{Type: EventStarted})
	r.mu.Unlock()

	r.opts.Popup.Show(popup.Notice{
		Type:  popup.KindStart,
		Title: "Time to Pick This Lock",
		Message: fmt.Sprintf("Line up the red line with the green zone, then hit SPACE! Difficulty: %s",
			s.Difficulty.Label()),
	})
	log.Printf("session %s started: mode=%s difficulty=%s zone=%.0f°", s.ID, s.Mode, s.Difficulty, s.Settings.ZoneSize)

	go r.countdown()
	return nil
}

func (r *SessionRunner) countdown() {
	ticker := time.NewTicker(r.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !r.tick() {
				return
			}
		case <-r.ctx.Done():
			return
		}
	}
}

// tick reports whether the countdown should keep going.
func (r *SessionRunner) tick() bool {
	r.mu.Lock()
	out, err := r.session.Tick(r.opts.TickStep)
	if err != nil {
		r.mu.Unlock()
		return false
	}
	r.publish(Event{Type: EventTick})
	if out.Resolved {
		r.publish(Event{Type: EventResolved, Outcome: &out})
	}
	r.mu.Unlock()

	if out.Resolved {
		r.resolved(out)
		return false
	}
	return true
}

// Act applies the player's attempt at the current clock instant.
func (r *SessionRunner) Act() (domain.Outcome, error) {
	r.mu.Lock()
	out, err := r.session.Act()
	if err != nil {
		r.mu.Unlock()
		return out, err
	}

	s := r.session
	evt := EventMiss
	if out.Hit {
		evt = EventHit
	}
	r.publish(Event{Type: evt, Outcome: &out})
	if out.Resolved {
		r.publish(Event{Type: EventResolved, Outcome: &out})
	}

	var progress *notify.Progress
	if out.Hit && s.Mode == domain.ModeCircle {
		progress = &notify.Progress{Pin: s.Pins, Total: s.TotalPins, Message: s.ProgressMessage()}
	}
	r.mu.Unlock()

	if out.Hit {
		log.Printf("session %s hit at %.1f° (pins %d, checks %d)", s.ID, out.Angle, out.Pins, out.Checks)
	} else {
		log.Printf("session %s miss at %.1f° (attempt %d/%d)", s.ID, out.Angle, out.Attempts, s.MaxAttempts)
	}

	// the last pin goes out before the result can be scheduled
	if progress != nil && out.Resolved {
		r.opts.Notifier.Progress(context.Background(), s.UserID, *progress)
	} else if progress != nil {
		go r.opts.Notifier.Progress(context.Background(), s.UserID, *progress)
	}
	if out.Resolved {
		r.resolved(out)
	}
	return out, nil
}

// Probe is the diagnostic hit-test; it never consumes an attempt.
func (r *SessionRunner) Probe() (domain.Probe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.session.Probe()
	if err != nil {
		return p, err
	}
	r.publish(Event{Type: EventProbe, Probe: &p})
	log.Printf("session %s probe: marker %.1f° zone %.1f°±%.1f° distance %.1f° hit=%v",
		r.session.ID, p.MarkerAngle, p.ZoneCenter, p.Tolerance, p.Distance, p.Hit)
	return p, nil
}

// Cancel force-fails the session.
func (r *SessionRunner) Cancel(reason string) (domain.Outcome, error) {
	r.mu.Lock()
	out, err := r.session.Cancel(reason)
	if err != nil {
		r.mu.Unlock()
		return out, err
	}
	r.publish(Event{Type: EventResolved, Outcome: &out})
	r.mu.Unlock()

	r.resolved(out)
	return out, nil
}

// resolved runs exactly once per session, outside the lock.
func (r *SessionRunner) resolved(out domain.Outcome) {
	r.cancel()

	snapshot := r.Session()
	log.Printf("session %s resolved: success=%v message=%q", snapshot.ID, out.Success, out.Message)

	if out.Success {
		r.opts.Popup.Show(popup.Notice{
			Type:     popup.KindSuccess,
			Title:    "Vehicle Unlocked!",
			Message:  "You successfully picked the lock. You can now enter the vehicle.",
			Duration: successPopupDuration,
		})
	} else {
		msg := out.Message
		if msg == "" {
			msg = defaultFailureText
		}
		r.opts.Popup.Show(popup.Notice{
			Type:     popup.KindFailure,
			Title:    "Lockpicking Failed!",
			Message:  msg,
			Duration: failurePopupDuration,
		})
	}

	if r.opts.OnResolved != nil {
		r.opts.OnResolved(snapshot)
	}

	result := notify.Result{
		Success:   out.Success,
		Message:   out.Message,
		ShowPopup: true,
		PopupType: string(popup.KindFailure),
	}
	if out.Success {
		result.PopupType = string(popup.KindSuccess)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.pending = &pendingResult{hostID: snapshot.UserID, result: result}
	r.resultTimer = r.opts.Clock.AfterFunc(r.opts.ResultDelay, r.deliver)
}

// deliver hides the interface and sends the pending result, at most once.
func (r *SessionRunner) deliver() {
	r.mu.Lock()
	p := r.pending
	r.pending = nil
	r.mu.Unlock()

	if p == nil {
		return
	}
	r.close()
	r.opts.Notifier.Result(context.Background(), p.hostID, p.result)
}

// Flush sends a result still waiting out the display delay right away.
func (r *SessionRunner) Flush() {
	r.mu.Lock()
	if r.resultTimer != nil {
		r.resultTimer.Stop()
	}
	r.mu.Unlock()

	r.deliver()
}

// close hides the interface and ends every subscription.
func (r *SessionRunner) close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.publish(Event{Type: EventClosed})
	r.closed = true
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
}

// Stop abandons the session without notifying the host.
func (r *SessionRunner) Stop() {
	r.cancel()

	r.mu.Lock()
	if r.resultTimer != nil {
		r.resultTimer.Stop()
	}
	r.pending = nil
	r.mu.Unlock()

	r.close()
}

// Subscribe returns a channel of events and a func to release it. The
// channel is closed once the interface is hidden.
func (r *SessionRunner) Subscribe() (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Event, 64)
	if r.closed {
		close(ch)
		return ch, func() {}
	}

	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subs[id]; ok {
			close(c)
			delete(r.subs, id)
		}
	}
}

// Closed reports whether the result has been delivered and the UI hidden.
func (r *SessionRunner) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *SessionRunner) Session() *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Clone()
}

// publish must be called with r.mu held.
func (r *SessionRunner) publish(e Event) {
	e.SessionID = r.session.ID
	e.RemainingMs = r.session.Remaining.Milliseconds()
	e.At = r.opts.Clock.Now()

	for _, ch := range r.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
