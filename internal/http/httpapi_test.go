package httpapi_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/hperssn/lockpick/internal/auth"
	"github.com/hperssn/lockpick/internal/clock"
	"github.com/hperssn/lockpick/internal/domain"
	httpapi "github.com/hperssn/lockpick/internal/http"
	"github.com/hperssn/lockpick/internal/notify"
	"github.com/hperssn/lockpick/internal/runner"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	clk     *clock.Manual
	rec     *notify.Recorder
	manager *runner.SessionManager
	server  *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()

	clk := clock.NewManual(epoch)
	rec := &notify.Recorder{}
	m := runner.NewSessionManager(runner.Options{
		Clock:        clk,
		Notifier:     rec,
		TickInterval: time.Hour,
	}, nil)

	r := chi.NewRouter()
	r.Use(auth.New("").Middleware)
	r.Get("/sessions/{id}/events", httpapi.StreamSessionEvents(m))
	r.Get("/sessions/{id}/dial.png", httpapi.ServeDial(m))
	r.Get("/ws", httpapi.HostSocket(m))

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		m.Shutdown()
	})

	return &env{clk: clk, rec: rec, manager: m, server: srv}
}

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

// get issues a GET as host.
func get(t *testing.T, e *env, path, host string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Auth-User", host)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func TestStreamSessionEvents(t *testing.T) {
	e := newEnv(t)

	s := e.manager.NewSession("host-1", domain.StartConfig{})
	if err := e.manager.StartSession(s); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	resp := get(t, e, "/sessions/"+s.ID+"/events", "host-1")
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	next := func() (envelope, bool) {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return envelope{}, false
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var env envelope
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &env); err != nil {
				t.Fatalf("decode %q: %v", line, err)
			}
			return env, true
		}
	}

	first, ok := next()
	if !ok || first.Type != "view" {
		t.Fatalf("first message = %+v", first)
	}

	if _, err := e.manager.EndSession(s.ID, domain.MsgEnded); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	e.clk.Advance(runner.DefaultResultDelay)

	var types []runner.EventType
	for {
		msg, ok := next()
		if !ok {
			break
		}
		var ev runner.Event
		json.Unmarshal(msg.Data, &ev)
		types = append(types, ev.Type)
	}

	if len(types) != 2 || types[0] != runner.EventResolved || types[1] != runner.EventClosed {
		t.Fatalf("events = %v, want [resolved closed]", types)
	}
}

func TestStreamSessionEvents_NotFound(t *testing.T) {
	e := newEnv(t)

	resp := get(t, e, "/sessions/missing/events", "host-1")
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSessionReadsHiddenFromOtherHosts(t *testing.T) {
	e := newEnv(t)

	s := e.manager.NewSession("garage", domain.StartConfig{})
	if err := e.manager.StartSession(s); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	for _, path := range []string{"/sessions/" + s.ID + "/events", "/sessions/" + s.ID + "/dial.png"} {
		resp := get(t, e, path, "intruder")
		resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s as intruder: status = %d, want 404", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct == "image/png" || ct == "text/event-stream" {
			t.Errorf("%s as intruder: leaked content type %q", path, ct)
		}
	}
}

func TestServeDial(t *testing.T) {
	e := newEnv(t)

	s := e.manager.NewSession("host-1", domain.StartConfig{GameType: "skillcheck"})
	if err := e.manager.StartSession(s); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	resp := get(t, e, "/sessions/"+s.ID+"/dial.png?size=128", "host-1")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("status = %d type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("body is not a PNG")
	}

	resp = get(t, e, "/sessions/"+s.ID+"/dial.png?size=big", "host-1")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad size status = %d, want 400", resp.StatusCode)
	}
}

func dial(t *testing.T, e *env, host string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	header := http.Header{}
	header.Set("X-Auth-User", host)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg envelope
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHostSocket_StartAndCancel(t *testing.T) {
	e := newEnv(t)
	conn := dial(t, e, "garage-1")

	conn.WriteJSON(map[string]any{
		"action":     "startLockpick",
		"gameType":   "circle",
		"difficulty": "hard",
		"pins":       2,
	})

	msg := read(t, conn)
	if msg.Type != "view" {
		t.Fatalf("first message = %+v", msg)
	}
	var view struct {
		SessionID       string `json:"sessionId"`
		DifficultyLabel string `json:"difficultyLabel"`
		AttemptsText    string `json:"attemptsText"`
		Pins            []bool `json:"pins"`
	}
	json.Unmarshal(msg.Data, &view)
	if view.DifficultyLabel != "Difficulty: Hard" || view.AttemptsText != "Attempts: 3/3" || len(view.Pins) != 2 {
		t.Fatalf("view = %+v", view)
	}

	conn.WriteJSON(map[string]any{"action": "keydown", "code": "Escape"})

	var sawKey, sawResolved bool
	for !(sawKey && sawResolved) {
		msg := read(t, conn)
		switch msg.Type {
		case "key":
			if msg.Error != "" {
				t.Fatalf("key error: %s", msg.Error)
			}
			sawKey = true
		case "event":
			var ev runner.Event
			json.Unmarshal(msg.Data, &ev)
			if ev.Type == runner.EventResolved {
				if ev.Outcome == nil || ev.Outcome.Message != domain.MsgCancelled {
					t.Fatalf("resolved event = %+v", ev)
				}
				sawResolved = true
			}
		}
	}

	e.clk.Advance(runner.DefaultResultDelay)
	waitFor(t, func() bool { return e.rec.Count(notify.EndpointResult) == 1 })

	s, ok := e.manager.GetSession(view.SessionID)
	if !ok || s.State != domain.StateFailed {
		t.Fatalf("session state = %v", s)
	}
}

func TestHostSocket_StartWithNestedConfig(t *testing.T) {
	e := newEnv(t)
	conn := dial(t, e, "garage-5")

	conn.WriteJSON(map[string]any{
		"action": "startLockpick",
		"config": map[string]any{
			"gameType":    "skillcheck",
			"difficulty":  "hard",
			"maxAttempts": 4,
		},
	})

	msg := read(t, conn)
	if msg.Type != "view" {
		t.Fatalf("first message = %+v", msg)
	}
	var view struct {
		Mode         domain.Mode       `json:"mode"`
		Difficulty   domain.Difficulty `json:"difficulty"`
		AttemptsText string            `json:"attemptsText"`
	}
	json.Unmarshal(msg.Data, &view)
	if view.Difficulty != domain.DifficultyHard || view.Mode != domain.ModeSkillCheck || view.AttemptsText != "Attempts: 4/4" {
		t.Fatalf("view = %+v", view)
	}
}

func TestHostSocket_EscapeWhileIdleClosesUI(t *testing.T) {
	e := newEnv(t)
	conn := dial(t, e, "garage-2")

	conn.WriteJSON(map[string]any{"action": "keydown", "code": "Escape"})

	msg := read(t, conn)
	if msg.Type != "key" || msg.Error != "" {
		t.Fatalf("message = %+v", msg)
	}
	waitFor(t, func() bool { return e.rec.Count(notify.EndpointClose) == 1 })
}

func TestHostSocket_Popup(t *testing.T) {
	e := newEnv(t)
	conn := dial(t, e, "garage-3")

	conn.WriteJSON(map[string]any{
		"action":   "showNotificationPopup",
		"type":     "info",
		"title":    "Heads up",
		"message":  "Cops nearby",
		"duration": 1000,
	})

	msg := read(t, conn)
	var view struct {
		Title   string `json:"title"`
		Visible bool   `json:"visible"`
	}
	json.Unmarshal(msg.Data, &view)
	if msg.Type != "popup" || !view.Visible || view.Title != "Heads up" {
		t.Fatalf("popup message = %+v %+v", msg, view)
	}

	conn.WriteJSON(map[string]any{"action": "hideNotificationPopup"})
	msg = read(t, conn)
	json.Unmarshal(msg.Data, &view)
	if msg.Type != "popup" {
		t.Fatalf("message = %+v", msg)
	}

	e.clk.Advance(time.Second)
	if e.manager.Popup("garage-3").View().Visible {
		t.Fatalf("popup still visible after fade")
	}
}

func TestHostSocket_UnknownAction(t *testing.T) {
	e := newEnv(t)
	conn := dial(t, e, "garage-4")

	conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"dance"}`))
	if msg := read(t, conn); msg.Type != "error" || !strings.Contains(msg.Error, "dance") {
		t.Fatalf("message = %+v", msg)
	}

	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	if msg := read(t, conn); msg.Type != "error" {
		t.Fatalf("message = %+v", msg)
	}
}
