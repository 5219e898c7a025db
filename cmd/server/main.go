package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hperssn/lockpick/internal/auth"
	"github.com/hperssn/lockpick/internal/config"
	"github.com/hperssn/lockpick/internal/domain"
	"github.com/hperssn/lockpick/internal/http"
	"github.com/hperssn/lockpick/internal/notify"
	"github.com/hperssn/lockpick/internal/popup"
	"github.com/hperssn/lockpick/internal/runner"
	"github.com/hperssn/lockpick/internal/storage"
)

func main() {
	issue := flag.String("issue", "", "print a signed token for this host id and exit")
	ttl := flag.Duration("ttl", 24*time.Hour, "lifetime of a token printed by -issue")
	flag.Parse()

	cfg := config.Load()

	if *issue != "" {
		token, err := issueToken(cfg.JWTSecret, *issue, *ttl)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(token)
		return
	}

	repo, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	if repo != nil {
		defer repo.Close()
	}

	manager := runner.NewSessionManager(runner.Options{
		Notifier:    notify.NewHTTPNotifier(cfg.HostURL, cfg.NotifyTimeout),
		ResultDelay: cfg.ResultDelay,
	}, repo)
	defer manager.Shutdown()

	r := newRouter(manager, repo, auth.New(cfg.JWTSecret))

	log.Printf("listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal(err)
	}
}

var errNoSecret = errors.New("LOCKPICK_JWT_SECRET is not set; hosts authenticate by header")

// issueToken signs a host token with the server secret.
func issueToken(secret, hostID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errNoSecret
	}
	return auth.New(secret).Issue(hostID, ttl)
}

func newRouter(manager *runner.SessionManager, repo storage.Repository, authn *auth.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(authn.Middleware)

	r.Post("/sessions", startSession(manager))
	r.Get("/sessions/{id}", getSession(manager))
	r.Get("/sessions/{id}/status", getSessionStatus(manager))
	r.Post("/sessions/{id}/act", act(manager))
	r.Post("/sessions/{id}/probe", probe(manager))
	r.Post("/sessions/{id}/stop", stopSession(manager))
	r.Delete("/sessions/{id}", deleteSession(manager))
	r.Get("/sessions/{id}/events", httpapi.StreamSessionEvents(manager))
	r.Get("/sessions/{id}/dial.png", httpapi.ServeDial(manager))

	r.Post("/popup", showPopup(manager))
	r.Delete("/popup", hidePopup(manager))
	r.Get("/popup", getPopup(manager))

	r.Get("/ws", httpapi.HostSocket(manager))

	r.Get("/history", getHistory(repo))
	r.Get("/stats", getStats(repo))

	return r
}

func startSession(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg domain.StartConfig

		// an empty or malformed body starts with defaults
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
				log.Printf("start request with malformed config, using defaults: %v", err)
				cfg = domain.StartConfig{}
			}
		}

		session := m.NewSession(auth.HostID(r), cfg)

		if err := m.StartSession(session); err != nil {
			respondError(w, err.Error(), http.StatusConflict)
			return
		}

		view, _ := m.View(session.ID)
		respondJSON(w, view, http.StatusCreated)
	}
}

// ownedSession loads the session in the URL and checks it belongs to the
// caller. Sessions of other hosts are reported as missing.
func ownedSession(m *runner.SessionManager, w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	id := chi.URLParam(r, "id")

	session, ok := m.GetSession(id)
	if !ok || session.UserID != auth.HostID(r) {
		respondError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func getSession(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := ownedSession(m, w, r)
		if !ok {
			return
		}

		view, ok := m.View(session.ID)
		if !ok {
			respondError(w, "session not found", http.StatusNotFound)
			return
		}
		respondJSON(w, view, http.StatusOK)
	}
}

func getSessionStatus(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := ownedSession(m, w, r)
		if !ok {
			return
		}

		status := struct {
			ID          string       `json:"id"`
			State       domain.State `json:"state"`
			Resolved    bool         `json:"resolved"`
			Pins        int          `json:"pins"`
			TotalPins   int          `json:"totalPins"`
			Checks      int          `json:"checks"`
			Attempts    int          `json:"attempts"`
			MaxAttempts int          `json:"maxAttempts"`
			RemainingMs int64        `json:"remainingMs"`
			Message     string       `json:"message,omitempty"`
		}{
			ID:          session.ID,
			State:       session.State,
			Resolved:    session.State.Resolved(),
			Pins:        session.Pins,
			TotalPins:   session.TotalPins,
			Checks:      session.Checks,
			Attempts:    session.Attempts,
			MaxAttempts: session.MaxAttempts,
			RemainingMs: session.Remaining.Milliseconds(),
			Message:     session.Message,
		}

		respondJSON(w, status, http.StatusOK)
	}
}

func act(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := ownedSession(m, w, r)
		if !ok {
			return
		}

		out, err := m.Act(session.ID)
		if err != nil {
			respondError(w, err.Error(), statusFor(err))
			return
		}
		respondJSON(w, out, http.StatusOK)
	}
}

func probe(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := ownedSession(m, w, r)
		if !ok {
			return
		}

		p, err := m.Probe(session.ID)
		if err != nil {
			respondError(w, err.Error(), statusFor(err))
			return
		}
		respondJSON(w, p, http.StatusOK)
	}
}

func stopSession(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := ownedSession(m, w, r)
		if !ok {
			return
		}

		out, err := m.EndSession(session.ID, domain.MsgEnded)
		if err != nil {
			respondError(w, err.Error(), statusFor(err))
			return
		}
		respondJSON(w, out, http.StatusOK)
	}
}

func deleteSession(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := ownedSession(m, w, r)
		if !ok {
			return
		}

		if err := m.StopSession(session.ID); err != nil {
			respondError(w, err.Error(), statusFor(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func showPopup(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type     popup.Kind `json:"type"`
			Title    string     `json:"title"`
			Message  string     `json:"message"`
			Duration int        `json:"duration"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		hostID := auth.HostID(r)
		m.ShowPopup(hostID, popup.Notice{
			Type:     req.Type,
			Title:    req.Title,
			Message:  req.Message,
			Duration: time.Duration(req.Duration) * time.Millisecond,
		})
		respondJSON(w, m.Popup(hostID).View(), http.StatusOK)
	}
}

func hidePopup(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.HidePopup(auth.HostID(r))
		w.WriteHeader(http.StatusNoContent)
	}
}

func getPopup(m *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, m.Popup(auth.HostID(r)).View(), http.StatusOK)
	}
}

func getHistory(repo storage.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			respondError(w, "storage disabled", http.StatusServiceUnavailable)
			return
		}

		var (
			records []storage.SessionRecord
			err     error
		)

		hostID := auth.HostID(r)
		if raw := r.URL.Query().Get("since"); raw != "" {
			since, perr := time.Parse(time.RFC3339, raw)
			if perr != nil {
				respondError(w, "since must be RFC3339", http.StatusBadRequest)
				return
			}
			records, err = repo.GetRecentSessions(hostID, since)
		} else {
			records, err = repo.GetSessionsByUser(hostID)
		}

		if err != nil {
			log.Printf("failed to load history for %s: %v", hostID, err)
			respondError(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []storage.SessionRecord{}
		}
		respondJSON(w, records, http.StatusOK)
	}
}

func getStats(repo storage.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			respondError(w, "storage disabled", http.StatusServiceUnavailable)
			return
		}

		stats, err := repo.GetSessionStats(auth.HostID(r))
		if err != nil {
			log.Printf("failed to load stats: %v", err)
			respondError(w, "failed to load stats", http.StatusInternalServerError)
			return
		}
		respondJSON(w, stats, http.StatusOK)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotRunning), errors.Is(err, runner.ErrSessionRunning):
		return http.StatusConflict
	case errors.Is(err, domain.ErrWrongMode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
