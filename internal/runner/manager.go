package runner

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/hperssn/lockpick/internal/domain"
	"github.com/hperssn/lockpick/internal/input"
	"github.com/hperssn/lockpick/internal/popup"
	"github.com/hperssn/lockpick/internal/render"
	"github.com/hperssn/lockpick/internal/storage"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrNoActiveSession = errors.New("no active session for host")
	ErrSessionRunning  = errors.New("session still running")
)

const (
	cleanupInterval = 5 * time.Minute
	sessionTTL      = 1 * time.Hour
)

// SessionManager holds every session and the per-host surfaces (active
// session and popup) they render into.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*SessionRunner
	active   map[string]string
	popups   map[string]*popup.Popup

	opts Options
	repo storage.Repository
	seed func() *rand.Rand
	done chan struct{}
}

// NewSessionManager builds a manager. repo may be nil, in which case
// results are not persisted.
func NewSessionManager(opts Options, repo storage.Repository) *SessionManager {
	m := &SessionManager{
		sessions: make(map[string]*SessionRunner),
		active:   make(map[string]string),
		popups:   make(map[string]*popup.Popup),
		opts:     opts.withDefaults(),
		repo:     repo,
		seed: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		done: make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// WithRand replaces the source of per-session random generators.
func (m *SessionManager) WithRand(seed func() *rand.Rand) *SessionManager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed = seed
	return m
}

func (m *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupOldSessions()
		case <-m.done:
			return
		}
	}
}

func (m *SessionManager) cleanupOldSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.opts.Clock.Now().Add(-sessionTTL)

	for id, r := range m.sessions {
		sess := r.Session()
		if sess.State.Resolved() && sess.ResolvedAt.Before(cutoff) {
			r.Stop()
			delete(m.sessions, id)
			if m.active[sess.UserID] == id {
				delete(m.active, sess.UserID)
			}
		}
	}
}

// Shutdown stops every session and the cleanup loop.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}
	for id, r := range m.sessions {
		r.Stop()
		delete(m.sessions, id)
	}
}

// NewSession builds an idle session for hostID wired to the manager's clock.
func (m *SessionManager) NewSession(hostID string, cfg domain.StartConfig) *domain.Session {
	m.mu.Lock()
	seed := m.seed
	m.mu.Unlock()

	return domain.NewSession("", hostID, cfg, m.opts.Clock, seed())
}

// StartSession registers and starts s. A still-running session of the same
// host is reset: it is dropped without a result.
func (m *SessionManager) StartSession(s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return ErrSessionExists
	}

	if prevID, ok := m.active[s.UserID]; ok {
		if prev, ok := m.sessions[prevID]; ok && !prev.Session().State.Resolved() {
			prev.Stop()
			delete(m.sessions, prevID)
			log.Printf("session %s reset by new start for host %s", prevID, s.UserID)
		}
	}

	opts := m.opts
	opts.Popup = m.popupLocked(s.UserID)
	opts.OnResolved = m.persist

	r := NewSessionRunner(s, opts)
	if err := r.Start(); err != nil {
		return err
	}

	m.sessions[s.ID] = r
	m.active[s.UserID] = s.ID

	return nil
}

// StopSession drops a resolved session. A result still waiting out the
// display delay is sent first.
func (m *SessionManager) StopSession(id string) error {
	m.mu.Lock()
	r, exists := m.sessions[id]
	if !exists {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	sess := r.Session()
	if !sess.State.Resolved() {
		m.mu.Unlock()
		return ErrSessionRunning
	}
	delete(m.sessions, id)
	if m.active[sess.UserID] == id {
		delete(m.active, sess.UserID)
	}
	m.mu.Unlock()

	r.Flush()
	r.Stop()
	return nil
}

// EndSession force-fails a running session.
func (m *SessionManager) EndSession(id string, reason string) (domain.Outcome, error) {
	r, err := m.runner(id)
	if err != nil {
		return domain.Outcome{}, err
	}
	return r.Cancel(reason)
}

func (m *SessionManager) Act(id string) (domain.Outcome, error) {
	r, err := m.runner(id)
	if err != nil {
		return domain.Outcome{}, err
	}
	return r.Act()
}

func (m *SessionManager) Probe(id string) (domain.Probe, error) {
	r, err := m.runner(id)
	if err != nil {
		return domain.Probe{}, err
	}
	return r.Probe()
}

func (m *SessionManager) GetSession(id string) (*domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, exists := m.sessions[id]
	if !exists {
		return nil, false
	}
	return r.Session(), true
}

// View returns the display state of a session as of now.
func (m *SessionManager) View(id string) (render.View, bool) {
	r, err := m.runner(id)
	if err != nil {
		return render.View{}, false
	}
	s := r.Session()
	return render.NewView(s, m.opts.Clock.Now(), !r.Closed(), m.Popup(s.UserID).View()), true
}

// Subscribe returns the event stream of a session.
func (m *SessionManager) Subscribe(id string) (<-chan Event, func(), bool) {
	r, err := m.runner(id)
	if err != nil {
		return nil, nil, false
	}
	ch, release := r.Subscribe()
	return ch, release, true
}

// ActiveSession returns the id of the host's most recent session.
func (m *SessionManager) ActiveSession(hostID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.active[hostID]
	return id, ok
}

// KeyResult says what a key press did.
type KeyResult struct {
	Action  input.Action
	Outcome *domain.Outcome
	Probe   *domain.Probe
}

// Key routes a key code from host hostID. Escape with no running session
// asks the host to close its UI.
func (m *SessionManager) Key(hostID, code string) (KeyResult, error) {
	res := KeyResult{Action: input.FromCode(code)}
	if res.Action == input.ActionNone {
		return res, nil
	}

	id, ok := m.ActiveSession(hostID)
	running := false
	if ok {
		if s, found := m.GetSession(id); found && s.State == domain.StateRunning {
			running = true
		}
	}

	if !running {
		if res.Action == input.ActionCancel {
			go m.opts.Notifier.Close(context.Background(), hostID)
		}
		return res, ErrNoActiveSession
	}

	switch res.Action {
	case input.ActionAttempt:
		out, err := m.Act(id)
		if err != nil {
			return res, err
		}
		res.Outcome = &out
	case input.ActionCancel:
		out, err := m.EndSession(id, domain.MsgCancelled)
		if err != nil {
			return res, err
		}
		res.Outcome = &out
	case input.ActionProbe:
		p, err := m.Probe(id)
		if err != nil {
			return res, err
		}
		res.Probe = &p
	}
	return res, nil
}

func (m *SessionManager) ShowPopup(hostID string, n popup.Notice) {
	m.Popup(hostID).Show(n)
}

func (m *SessionManager) HidePopup(hostID string) {
	m.Popup(hostID).Hide()
}

// Popup returns the popup surface of hostID, creating it on first use.
func (m *SessionManager) Popup(hostID string) *popup.Popup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.popupLocked(hostID)
}

func (m *SessionManager) popupLocked(hostID string) *popup.Popup {
	p, ok := m.popups[hostID]
	if !ok {
		p = popup.New(m.opts.Clock)
		m.popups[hostID] = p
	}
	return p
}

func (m *SessionManager) runner(id string) (*SessionRunner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return r, nil
}

func (m *SessionManager) persist(s *domain.Session) {
	if m.opts.OnResolved != nil {
		m.opts.OnResolved(s)
	}
	if m.repo == nil {
		return
	}
	if err := m.repo.SaveSession(storage.FromDomainSession(s)); err != nil {
		log.Printf("failed to save session %s: %v", s.ID, err)
	}
}
