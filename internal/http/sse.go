package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hperssn/lockpick/internal/auth"
	"github.com/hperssn/lockpick/internal/runner"
)

// message is the envelope shared by the SSE stream and the websocket.
type message struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

const (
	typeView  = "view"
	typeEvent = "event"
	typeError = "error"
)

// StreamSessionEvents writes the current view followed by every session
// event until the interface closes or the client goes away.
func StreamSessionEvents(manager *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		id, ok := ownedSessionID(manager, w, r)
		if !ok {
			return
		}

		events, release, ok := manager.Subscribe(id)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		defer release()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		if view, ok := manager.View(id); ok {
			writeSSE(w, message{Type: typeView, Data: view})
			flusher.Flush()
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}

				writeSSE(w, message{Type: typeEvent, Data: ev})
				flusher.Flush()

			case <-r.Context().Done():
				return
			}
		}
	}
}

// ownedSessionID resolves the session in the URL for the calling host.
// Sessions of other hosts are reported as missing.
func ownedSessionID(manager *runner.SessionManager, w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")

	s, ok := manager.GetSession(id)
	if !ok || s.UserID != auth.HostID(r) {
		http.Error(w, "session not found", http.StatusNotFound)
		return "", false
	}
	return id, true
}

func writeSSE(w http.ResponseWriter, m message) {
	data, _ := json.Marshal(m)
	w.Write([]byte("data: "))
	w.Write(data)
	w.Write([]byte("\n\n"))
}
