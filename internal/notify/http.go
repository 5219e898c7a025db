package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const HostHeader = "X-Lockpick-Host"

// HTTPNotifier POSTs JSON payloads to {BaseURL}/{endpoint}.
type HTTPNotifier struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPNotifier(baseURL string, timeout time.Duration) *HTTPNotifier {
	return &HTTPNotifier{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (n *HTTPNotifier) Progress(ctx context.Context, hostID string, p Progress) {
	n.deliver(ctx, hostID, EndpointProgress, p)
}

func (n *HTTPNotifier) Result(ctx context.Context, hostID string, r Result) {
	n.deliver(ctx, hostID, EndpointResult, r)
}

func (n *HTTPNotifier) Close(ctx context.Context, hostID string) {
	n.deliver(ctx, hostID, EndpointClose, struct{}{})
}

func (n *HTTPNotifier) deliver(ctx context.Context, hostID, endpoint string, payload any) {
	if err := n.Post(ctx, hostID, endpoint, payload); err != nil {
		log.Printf("notify %s for host %s dropped: %v", endpoint, hostID, err)
	}
}

// Post sends one message and reports what went wrong, if anything.
func (n *HTTPNotifier) Post(ctx context.Context, hostID, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if hostID != "" {
		req.Header.Set(HostHeader, hostID)
	}

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("host responded %s", resp.Status)
	}
	return nil
}
