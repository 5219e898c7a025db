// Package notify delivers progress and result messages to the host.
//
// Delivery is best-effort: every message is sent at most once, failures are
// logged and dropped, and nothing is retried. Game correctness never
// depends on the host having received a message.
package notify

import (
	"context"
	"sync"
)

const (
	EndpointProgress = "lockpickProgress"
	EndpointResult   = "lockpickResult"
	EndpointClose    = "closeUI"
)

type Progress struct {
	Pin     int    `json:"pin"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ShowPopup bool   `json:"showPopup"`
	PopupType string `json:"popupType"`
}

type Notifier interface {
	Progress(ctx context.Context, hostID string, p Progress)
	Result(ctx context.Context, hostID string, r Result)
	Close(ctx context.Context, hostID string)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Progress(context.Context, string, Progress) {}
func (Nop) Result(context.Context, string, Result) {}
func (Nop) Close(context.Context, string) {}

// Message is one delivery captured by a Recorder.
type Message struct {
	HostID   string
	Endpoint string
	Payload  any
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Progress(_ context.Context, hostID string, p Progress) {
	r.add(Message{HostID: hostID, Endpoint: EndpointProgress, Payload: p})
}

func (r *Recorder) Result(_ context.Context, hostID string, res Result) {
	r.add(Message{HostID: hostID, Endpoint: EndpointResult, Payload: res})
}

func (r *Recorder) Close(_ context.Context, hostID string) {
	r.add(Message{HostID: hostID, Endpoint: EndpointClose, Payload: struct{}{}})
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Count returns how many messages went to endpoint.
func (r *Recorder) Count(endpoint string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, m := range r.messages {
		if m.Endpoint == endpoint {
			n++
		}
	}
	return n
}

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}
