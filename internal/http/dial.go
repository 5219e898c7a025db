package httpapi

import (
	"log"
	"net/http"
	"strconv"

	"github.com/hperssn/lockpick/internal/render"
	"github.com/hperssn/lockpick/internal/runner"
)

const defaultDialSize = 320

// ServeDial renders the session dial as a PNG. ?size= sets the edge length.
func ServeDial(manager *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ownedSessionID(manager, w, r)
		if !ok {
			return
		}

		view, ok := manager.View(id)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		size := defaultDialSize
		if raw := r.URL.Query().Get("size"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "invalid size", http.StatusBadRequest)
				return
			}
			size = min(n, 1024)
		}

		png, err := render.RenderDial(view, size)
		if err != nil {
			log.Printf("render dial for %s: %v", id, err)
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(png)
	}
}
