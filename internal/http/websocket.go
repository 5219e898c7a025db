package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hperssn/lockpick/internal/auth"
	"github.com/hperssn/lockpick/internal/domain"
	"github.com/hperssn/lockpick/internal/popup"
	"github.com/hperssn/lockpick/internal/runner"
)

const (
	ActionStart     = "startLockpick"
	ActionEnd       = "endLockpick"
	ActionShowPopup = "showNotificationPopup"
	ActionHidePopup = "hideNotificationPopup"
	ActionKeyDown   = "keydown"

	typePopup = "popup"
	typeKey   = "key"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inbound carries every host message; only the fields of Action are read.
// A start may carry its settings flat or nested under config.
type inbound struct {
	Action string `json:"action"`

	domain.StartConfig
	Config *domain.StartConfig `json:"config"`

	Type     popup.Kind `json:"type"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Duration int        `json:"duration"`

	Code string `json:"code"`
}

// connection is one host attached over a websocket. Only writePump writes
// to ws.
type connection struct {
	ws      *websocket.Conn
	send    chan []byte
	done    chan struct{}
	hostID  string
	manager *runner.SessionManager
}

// HostSocket is the message channel of a host: it accepts the host
// messages and pushes views and session events back.
func HostSocket(manager *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hostID := auth.HostID(r)
		if hostID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("Upgrade error:", err)
			return
		}

		c := &connection{
			ws:      ws,
			send:    make(chan []byte, 256),
			done:    make(chan struct{}),
			hostID:  hostID,
			manager: manager,
		}
		log.Printf("host %s connected", hostID)

		if id, ok := manager.ActiveSession(hostID); ok {
			c.follow(id)
		}

		go c.writePump()
		c.readPump()
	}
}

func (c *connection) readPump() {
	defer func() {
		close(c.done)
		c.ws.Close()
		log.Printf("host %s disconnected", c.hostID)
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Error reading message from host %s: %v", c.hostID, err)
			}
			return
		}
		c.handle(data)
	}
}

func (c *connection) writePump() {
	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("error writing message: %v", err)
				c.ws.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *connection) handle(data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.fail(fmt.Errorf("malformed message: %w", err))
		return
	}

	switch in.Action {
	case ActionStart:
		cfg := in.StartConfig
		if in.Config != nil {
			cfg = *in.Config
		}

		s := c.manager.NewSession(c.hostID, cfg)
		if err := c.manager.StartSession(s); err != nil {
			c.fail(err)
			return
		}
		c.follow(s.ID)
		c.emitView(s.ID)

	case ActionEnd:
		id, ok := c.manager.ActiveSession(c.hostID)
		if !ok {
			c.fail(runner.ErrNoActiveSession)
			return
		}
		if _, err := c.manager.EndSession(id, domain.MsgEnded); err != nil {
			c.fail(err)
			return
		}

	case ActionShowPopup:
		c.manager.ShowPopup(c.hostID, popup.Notice{
			Type:     in.Type,
			Title:    in.Title,
			Message:  in.Message,
			Duration: time.Duration(in.Duration) * time.Millisecond,
		})
		c.emit(message{Type: typePopup, Data: c.manager.Popup(c.hostID).View()})

	case ActionHidePopup:
		c.manager.HidePopup(c.hostID)
		c.emit(message{Type: typePopup, Data: c.manager.Popup(c.hostID).View()})

	case ActionKeyDown:
		res, err := c.manager.Key(c.hostID, in.Code)
		out := message{Type: typeKey, Data: res}
		// Escape with nothing running is the close request, not a failure.
		if err != nil && !errors.Is(err, runner.ErrNoActiveSession) {
			out.Error = err.Error()
		}
		c.emit(out)

	default:
		c.fail(fmt.Errorf("unknown action %q", in.Action))
	}
}

// follow forwards the events of session id until it closes or the host
// disconnects.
func (c *connection) follow(id string) {
	events, release, ok := c.manager.Subscribe(id)
	if !ok {
		return
	}

	go func() {
		defer release()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				c.emit(message{Type: typeEvent, Data: ev})
			case <-c.done:
				return
			}
		}
	}()
}

func (c *connection) emitView(id string) {
	if view, ok := c.manager.View(id); ok {
		c.emit(message{Type: typeView, Data: view})
	}
}

func (c *connection) fail(err error) {
	c.emit(message{Type: typeError, Error: err.Error()})
}

func (c *connection) emit(m message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Printf("failed to encode %s message: %v", m.Type, err)
		return
	}

	select {
	case c.send <- data:
	case <-c.done:
	default:
		log.Printf("dropping %s message for host %s: send buffer full", m.Type, c.hostID)
	}
}
