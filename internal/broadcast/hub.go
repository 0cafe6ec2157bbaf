package broadcast

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/clinic"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// SnapshotSource supplies the state a display needs right after connecting.
type SnapshotSource interface {
	Snapshots(ctx context.Context) ([]clinic.Snapshot, error)
}

// welcome carries the snapshot messages for a client that is already
// registered, so Run queues them behind any event it delivered meanwhile.
type welcome struct {
	client   *Client
	messages [][]byte
}

// Client is one websocket connection.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the set of connected displays and fans events out to them. A
// single goroutine (Run) owns the client set.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	welcome    chan welcome
	done       chan struct{}
	connected  atomic.Int64

	source   SnapshotSource
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		welcome:    make(chan welcome),
		done:       make(chan struct{}),
		logger:     logger.Named("hub"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// SetSnapshotSource must be called before Run.
func (h *Hub) SetSnapshotSource(src SnapshotSource) {
	h.source = src
}

// ClientCount reports how many displays are connected.
func (h *Hub) ClientCount() int {
	return int(h.connected.Load())
}

// Run serves register, unregister and broadcast until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.connected.Store(0)
			return
		case client := <-h.register:
			h.clients[client] = true
			h.connected.Store(int64(len(h.clients)))
			h.logger.Debug("client registered", zap.String("client_id", client.id))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.connected.Store(int64(len(h.clients)))
				h.logger.Debug("client unregistered", zap.String("client_id", client.id))
			}
		case w := <-h.welcome:
			for _, message := range w.messages {
				if !h.deliver(w.client, message) {
					break
				}
			}
			h.connected.Store(int64(len(h.clients)))
		case message := <-h.broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}
			h.connected.Store(int64(len(h.clients)))
		}
	}
}

// deliver queues message for a registered client, dropping the client when
// its buffer is full. Only Run may call it.
func (h *Hub) deliver(client *Client, message []byte) bool {
	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		close(client.send)
		delete(h.clients, client)
		h.logger.Warn("dropping slow client", zap.String("client_id", client.id))
		return false
	}
}

// Publish queues an event for every client without blocking. Events are
// dropped when the hub is saturated.
func (h *Hub) Publish(topic string, payload any) {
	message, err := encode(topic, payload)
	if err != nil {
		h.logger.Error("encode event", zap.String("topic", topic), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast buffer full, event dropped", zap.String("topic", topic))
	}
}

// ServeWS upgrades the request, sends the greeting and registers the client.
// Snapshots are loaded only after registration, so an event published while
// they load still reaches the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	if hello, err := encode(clinic.TopicConnected, map[string]any{
		"id":        client.id,
		"timestamp": time.Now().UnixMilli(),
	}); err == nil {
		client.send <- hello
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)

	messages := h.snapshotMessages(r.Context())
	if len(messages) == 0 {
		return
	}
	select {
	case h.welcome <- welcome{client: client, messages: messages}:
	case <-h.done:
	}
}

func (h *Hub) snapshotMessages(ctx context.Context) [][]byte {
	if h.source == nil {
		return nil
	}
	snapshots, err := h.source.Snapshots(ctx)
	if err != nil {
		h.logger.Warn("load snapshots for new client", zap.Error(err))
		return nil
	}
	messages := make([][]byte, 0, len(snapshots))
	for _, snap := range snapshots {
		message, err := encode(snap.Topic, snap.Payload)
		if err != nil {
			h.logger.Error("encode snapshot", zap.String("topic", snap.Topic), zap.Error(err))
			continue
		}
		messages = append(messages, message)
	}
	return messages
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Displays only listen; anything they send is discarded.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
