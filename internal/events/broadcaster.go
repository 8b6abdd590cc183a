package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/coco-ai/tool-service/pkg/tool"
)

// EventMessage is the wire format for stream events.
type EventMessage struct {
	Type      string      `json:"type"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
	Seq       int64       `json:"seq"`
}

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // gorilla connections allow one concurrent writer
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcaster fans execution events out to connected WebSocket clients.
type Broadcaster struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger
	seq      uint64

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

// NewBroadcaster creates a broadcaster. checkOrigin decides which upgrade
// requests are accepted; nil allows every origin.
func NewBroadcaster(logger zerolog.Logger, checkOrigin func(r *http.Request) bool) *Broadcaster {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// HandleWebSocket upgrades the request and registers the client until it
// disconnects.
func (b *Broadcaster) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	c := &client{id: clientID, conn: conn}

	b.mu.Lock()
	b.clients[clientID] = c
	b.mu.Unlock()

	b.logger.Info().Str("clientId", clientID).Str("ip", r.RemoteAddr).Msg("Event stream client connected")

	go b.readLoop(c)
}

// readLoop discards inbound frames and tears the client down on error. The
// stream is outbound-only but the read pump is required to notice closes.
func (b *Broadcaster) readLoop(c *client) {
	defer func() {
		c.conn.Close()
		b.mu.Lock()
		delete(b.clients, c.id)
		b.mu.Unlock()
		b.logger.Info().Str("clientId", c.id).Msg("Event stream client disconnected")
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends an event to all connected clients.
func (b *Broadcaster) Broadcast(event string, data interface{}) {
	msg := EventMessage{
		Type:      "event",
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
		Seq:       int64(atomic.AddUint64(&b.seq, 1)),
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(jsonData); err != nil {
			b.logger.Warn().Err(err).Str("clientId", c.id).Str("event", event).Msg("Dropping client after write failure")
			c.conn.Close()
			b.mu.Lock()
			delete(b.clients, c.id)
			b.mu.Unlock()
		}
	}
}

// ToolExecuted emits a tool.executed event. Implements tool.Observer.
func (b *Broadcaster) ToolExecuted(rec tool.Execution) {
	b.Broadcast("tool.executed", map[string]interface{}{
		"tool_name":      rec.ToolName,
		"success":        rec.Success,
		"execution_time": rec.ExecutionTime,
		"timestamp":      rec.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close rejects new connections and disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.clients = make(map[string]*client)
	b.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}
