// Package server fans aggregated events out to WebSocket subscribers and
// answers quote requests over HTTP. It owns downstream delivery only; the
// feed core never depends on it.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"crossbook/internal/book"
	"crossbook/internal/venue"
)

const clientSendBuffer = 64

// Hub tracks connected subscribers and the latest state to replay to new
// ones. Delivery is best-effort: a client that cannot keep up is dropped.
type Hub struct {
	mu         sync.Mutex
	clients    map[uuid.UUID]*client
	lastStatus map[book.VenueID]venue.Status
	lastBooks  map[book.VenueID]*BookMessage
	lastAgg    *book.AggregatedBook

	upgrader websocket.Upgrader
	log      *slog.Logger
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*client),
		lastStatus: make(map[book.VenueID]venue.Status),
		lastBooks:  make(map[book.VenueID]*BookMessage),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log.With("component", "hub"),
	}
}

// PublishBook broadcasts a venue book event and retains it for replay.
func (h *Hub) PublishBook(nb *book.NormalizedBook) {
	msg := bookMessage(nb)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastBooks[nb.Venue] = msg
	h.broadcastLocked(msg)
}

// PublishStatus broadcasts a venue connectivity event and retains it.
func (h *Hub) PublishStatus(v book.VenueID, s venue.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastStatus[v] = s
	h.broadcastLocked(statusMessage(v, s))
}

// PublishAggregate broadcasts the merged book.
func (h *Hub) PublishAggregate(agg *book.AggregatedBook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastAgg = agg
	h.broadcastLocked(aggregateMessage(agg))
}

// ServeWS upgrades the request and replays the latest status, per-venue book
// and aggregate to the new subscriber.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	for v, s := range h.lastStatus {
		h.sendLocked(c, statusMessage(v, s))
	}
	for _, msg := range h.lastBooks {
		h.sendLocked(c, msg)
	}
	if h.lastAgg != nil {
		h.sendLocked(c, aggregateMessage(h.lastAgg))
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client connected", "id", c.id, "total", total)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) broadcastLocked(msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("couldn't marshal message", "error", err)
		return
	}
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("client too slow, dropping", "id", c.id)
			h.removeLocked(c.id)
		}
	}
}

func (h *Hub) sendLocked(c *client, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// writePump drains a client's send buffer onto its socket.
func (h *Hub) writePump(c *client) {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c.id)
			return
		}
	}
}

// readPump discards inbound frames and detects the peer closing.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c.id)
			return
		}
	}
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	h.removeLocked(id)
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Info("client disconnected", "id", id, "total", total)
}

func (h *Hub) removeLocked(id uuid.UUID) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)
	c.conn.Close()
}
