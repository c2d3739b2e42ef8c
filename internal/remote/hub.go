// Package remote implements the authoritative backing store for the
// onboarding core: a Hub that owns the canonical collection lists and
// broadcasts per-collection snapshots over WebSocket, and a Client that
// exposes the subscribe/create/update/delete contract the sync engine
// consumes.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/sgupta906/oboarding-sub000/internal/model"
)

// Message is a hub broadcast frame.
type Message struct {
	Type       string          `json:"type"`
	Collection model.Key       `json:"collection,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// MessageTypeSnapshot carries the full current list of one collection.
const MessageTypeSnapshot = "snapshot"

// subscribeRequest is the only frame clients send.
type subscribeRequest struct {
	Action     string    `json:"action"` // subscribe, unsubscribe
	Collection model.Key `json:"collection"`
}

// recordEnvelope extracts the identifier from an otherwise opaque record.
type recordEnvelope struct {
	ID string `json:"id"`
}

// HubConfig holds hub server configuration.
type HubConfig struct {
	// Port to listen on (0 picks a random available port)
	Port int

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultHubConfig returns sensible defaults.
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		Port:   8470,
		Logger: log.New(os.Stderr, "[hub] ", log.LstdFlags),
	}
}

// Hub is the authoritative store. It keeps every collection as a list of raw
// JSON records, serves CRUD over HTTP, and pushes a fresh snapshot to every
// subscribed WebSocket client after each write.
type Hub struct {
	addr     string
	listener net.Listener
	server   *http.Server

	mu    sync.RWMutex
	lists map[model.Key][]json.RawMessage

	clientsMu sync.Mutex
	clients   map[*hubClient]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

type hubClient struct {
	conn *websocket.Conn

	mu   sync.Mutex
	subs map[model.Key]bool
}

// NewHub creates a hub with empty collections.
func NewHub(config *HubConfig) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[hub] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())

	lists := make(map[model.Key][]json.RawMessage)
	for _, key := range model.Keys() {
		lists[key] = nil
	}

	return &Hub{
		addr:    fmt.Sprintf(":%d", config.Port),
		lists:   lists,
		clients: make(map[*hubClient]bool),
		ctx:     ctx,
		cancel:  cancel,
		logger:  config.Logger,
	}
}

// Start begins serving HTTP and WebSocket traffic.
func (h *Hub) Start() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	h.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/{collection}", h.handleList)
	mux.HandleFunc("POST /v1/{collection}", h.handleCreate)
	mux.HandleFunc("PUT /v1/{collection}/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /v1/{collection}/{id}", h.handleDelete)
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/health", h.handleHealth)

	h.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.Printf("Hub listening on %s", ln.Addr())
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the hub.
func (h *Hub) Stop() error {
	h.logger.Println("Stopping hub")

	h.cancel()

	h.clientsMu.Lock()
	for client := range h.clients {
		_ = client.conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(h.clients, client)
	}
	h.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("hub shutdown error: %w", err)
	}

	h.wg.Wait()
	h.logger.Println("Hub stopped")
	return nil
}

// Addr returns the hub's listening address.
func (h *Hub) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.addr
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// Seed replaces one collection's list wholesale and broadcasts it. Used to
// preload fixtures and by tests to simulate out-of-band writers.
func (h *Hub) Seed(key model.Key, records []json.RawMessage) error {
	if !key.Valid() {
		return fmt.Errorf("unknown collection key %q", key)
	}

	h.mu.Lock()
	h.lists[key] = append([]json.RawMessage(nil), records...)
	h.mu.Unlock()

	h.broadcast(key)
	return nil
}

func (h *Hub) snapshot(key model.Key) []json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]json.RawMessage(nil), h.lists[key]...)
}

func parseCollection(w http.ResponseWriter, r *http.Request) (model.Key, bool) {
	key := model.Key(r.PathValue("collection"))
	if !key.Valid() {
		http.Error(w, fmt.Sprintf("unknown collection %q", key), http.StatusNotFound)
		return "", false
	}
	return key, true
}

func (h *Hub) handleList(w http.ResponseWriter, r *http.Request) {
	key, ok := parseCollection(w, r)
	if !ok {
		return
	}

	records := h.snapshot(key)
	if records == nil {
		records = []json.RawMessage{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

func (h *Hub) handleCreate(w http.ResponseWriter, r *http.Request) {
	key, ok := parseCollection(w, r)
	if !ok {
		return
	}

	var record json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, fmt.Sprintf("invalid record: %v", err), http.StatusBadRequest)
		return
	}

	var env recordEnvelope
	if err := json.Unmarshal(record, &env); err != nil {
		http.Error(w, fmt.Sprintf("invalid record: %v", err), http.StatusBadRequest)
		return
	}

	// Assign a server-side id when the client didn't provide one.
	if env.ID == "" {
		env.ID = uuid.NewString()
		patched, err := setRecordID(record, env.ID)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid record: %v", err), http.StatusBadRequest)
			return
		}
		record = patched
	}

	h.mu.Lock()
	replaced := false
	for i, cur := range h.lists[key] {
		if recordID(cur) == env.ID {
			h.lists[key][i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		h.lists[key] = append(h.lists[key], record)
	}
	h.mu.Unlock()

	h.broadcast(key)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(record)
}

func (h *Hub) handleUpdate(w http.ResponseWriter, r *http.Request) {
	key, ok := parseCollection(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	var record json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, fmt.Sprintf("invalid record: %v", err), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	found := false
	for i, cur := range h.lists[key] {
		if recordID(cur) == id {
			h.lists[key][i] = record
			found = true
			break
		}
	}
	h.mu.Unlock()

	if !found {
		http.Error(w, fmt.Sprintf("record %q not found in %s", id, key), http.StatusNotFound)
		return
	}

	h.broadcast(key)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Hub) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := parseCollection(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	h.mu.Lock()
	list := h.lists[key]
	out := list[:0]
	found := false
	for _, cur := range list {
		if recordID(cur) == id {
			found = true
			continue
		}
		out = append(out, cur)
	}
	h.lists[key] = out
	h.mu.Unlock()

	if !found {
		http.Error(w, fmt.Sprintf("record %q not found in %s", id, key), http.StatusNotFound)
		return
	}

	h.broadcast(key)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": h.ClientCount(),
	})
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &hubClient{conn: conn, subs: make(map[model.Key]bool)}

	h.clientsMu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Printf("Client connected (total: %d)", count)

	go h.readLoop(client)
}

// readLoop handles subscribe/unsubscribe frames and client disconnects.
func (h *Hub) readLoop(client *hubClient) {
	defer h.removeClient(client)

	for {
		_, data, err := client.conn.Read(h.ctx)
		if err != nil {
			return
		}

		var req subscribeRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.logger.Printf("Invalid client frame: %v", err)
			continue
		}
		if !req.Collection.Valid() {
			h.logger.Printf("Subscribe for unknown collection %q", req.Collection)
			continue
		}

		switch req.Action {
		case "subscribe":
			client.mu.Lock()
			client.subs[req.Collection] = true
			client.mu.Unlock()
			// Deliver the current snapshot immediately on subscribe.
			h.send(client, req.Collection)
		case "unsubscribe":
			client.mu.Lock()
			delete(client.subs, req.Collection)
			client.mu.Unlock()
		default:
			h.logger.Printf("Unknown client action %q", req.Action)
		}
	}
}

// broadcast pushes the current snapshot of one collection to every client
// subscribed to it.
func (h *Hub) broadcast(key model.Key) {
	h.clientsMu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for client := range h.clients {
		client.mu.Lock()
		subscribed := client.subs[key]
		client.mu.Unlock()
		if subscribed {
			clients = append(clients, client)
		}
	}
	h.clientsMu.Unlock()

	for _, client := range clients {
		h.send(client, key)
	}
}

func (h *Hub) send(client *hubClient, key model.Key) {
	records := h.snapshot(key)
	if records == nil {
		records = []json.RawMessage{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		h.logger.Printf("Failed to marshal snapshot for %s: %v", key, err)
		return
	}

	frame, err := json.Marshal(Message{
		Type:       MessageTypeSnapshot,
		Collection: key,
		Timestamp:  time.Now(),
		Data:       data,
	})
	if err != nil {
		h.logger.Printf("Failed to marshal frame for %s: %v", key, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = client.conn.Write(ctx, websocket.MessageText, frame)
	cancel()

	if err != nil {
		h.logger.Printf("Failed to send to client: %v", err)
		h.removeClient(client)
	}
}

func (h *Hub) removeClient(client *hubClient) {
	h.clientsMu.Lock()
	if _, exists := h.clients[client]; exists {
		delete(h.clients, client)
		count := len(h.clients)
		h.clientsMu.Unlock()

		_ = client.conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Printf("Client disconnected (total: %d)", count)
	} else {
		h.clientsMu.Unlock()
	}
}

// recordID extracts the id field from a raw record; empty on decode failure.
func recordID(record json.RawMessage) string {
	var env recordEnvelope
	if err := json.Unmarshal(record, &env); err != nil {
		return ""
	}
	return env.ID
}

// setRecordID rewrites the id field of a raw record.
func setRecordID(record json.RawMessage, id string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return nil, err
	}
	idRaw, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	fields["id"] = idRaw
	return json.Marshal(fields)
}
