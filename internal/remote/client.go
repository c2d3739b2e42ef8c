package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/sgupta906/oboarding-sub000/internal/model"
)

// Client talks to a Hub: collection snapshots arrive over a WebSocket feed,
// writes go over HTTP. It implements the backing-store contract the sync
// engine consumes.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a client for the hub at baseURL (e.g. "http://host:port").
//
// If logger is nil, a default logger writing to stderr is used.
func NewClient(baseURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// wsURL derives the WebSocket endpoint from the base URL.
func (c *Client) wsURL() string {
	url := c.baseURL + "/ws"
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}

// Subscribe opens the live feed for one collection. Every snapshot the hub
// pushes (including the initial one on subscribe) is delivered to onSnapshot
// as a JSON array of records. Feed failures are reported through onError
// once, after which no further callbacks fire.
//
// The returned stop function closes the feed; calling it more than once is
// harmless.
func (c *Client) Subscribe(ctx context.Context, key model.Key, onSnapshot func([]byte), onError func(error)) (func(), error) {
	if !key.Valid() {
		return nil, fmt.Errorf("unknown collection key %q", key)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.wsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial hub feed: %w", err)
	}

	req, err := json.Marshal(subscribeRequest{Action: "subscribe", Collection: key})
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "")
		return nil, fmt.Errorf("failed to marshal subscribe request: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "")
		return nil, fmt.Errorf("failed to send subscribe request: %w", err)
	}

	readCtx, stopRead := context.WithCancel(ctx)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			stopRead()
			_ = conn.Close(websocket.StatusNormalClosure, "")
		})
	}

	go c.readLoop(readCtx, conn, key, onSnapshot, onError)

	return stop, nil
}

// readLoop dispatches snapshot frames for one subscription until the
// connection closes or the subscription is stopped.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, key model.Key, onSnapshot func([]byte), onError func(error)) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// A stop() cancellation is a clean shutdown, not a feed error.
			if ctx.Err() == nil && onError != nil {
				onError(fmt.Errorf("feed for %s closed: %w", key, err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Printf("Invalid hub frame: %v", err)
			continue
		}
		if msg.Type != MessageTypeSnapshot || msg.Collection != key {
			continue
		}

		onSnapshot(msg.Data)
	}
}

// Create writes a new record to the hub. The record must marshal to a JSON
// object; the hub assigns an id if the record carries none.
func (c *Client) Create(ctx context.Context, key model.Key, record any) error {
	return c.write(ctx, http.MethodPost, fmt.Sprintf("%s/v1/%s", c.baseURL, key), record)
}

// Update replaces the record with the given id.
func (c *Client) Update(ctx context.Context, key model.Key, id string, record any) error {
	return c.write(ctx, http.MethodPut, fmt.Sprintf("%s/v1/%s/%s", c.baseURL, key, id), record)
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, key model.Key, id string) error {
	return c.write(ctx, http.MethodDelete, fmt.Sprintf("%s/v1/%s/%s", c.baseURL, key, id), nil)
}

// List fetches the current full list of one collection.
func (c *Client) List(ctx context.Context, key model.Key) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/%s", c.baseURL, key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hub returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

func (c *Client) write(ctx context.Context, method, url string, record any) error {
	var body io.Reader
	if record != nil {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if record != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hub write failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("hub returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
