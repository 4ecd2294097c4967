package devserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// liveReloadWriteWait bounds a single frame write. A page that stops
	// reading is dropped after this long instead of blocking its writer.
	liveReloadWriteWait = 10 * time.Second

	// liveReloadPongWait is how long a page may stay silent before it is
	// considered gone. Every pong extends the read deadline by this much.
	liveReloadPongWait = 60 * time.Second

	// liveReloadPingEvery must be shorter than liveReloadPongWait so a
	// healthy page always answers a ping before its deadline passes.
	liveReloadPingEvery = (liveReloadPongWait * 9) / 10

	// liveReloadQueue is the per-page send buffer. Reload messages are
	// idempotent, so a full queue can safely drop further ones.
	liveReloadQueue = 8
)

// Message types sent to live reload clients.
const (
	MessageHello  = "hello"
	MessageReload = "reload"
)

// Message is the JSON frame sent over the live reload socket.
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Path string `json:"path,omitempty"`
}

// liveReloadUpgrader accepts any Origin. The socket only ever sends
// "reload" hints to pages and reads nothing from them, so a cross-origin
// page connecting to it learns nothing.
var liveReloadUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// liveReloadClient is one connected page.
type liveReloadClient struct {
	// id is sent to the page in the hello message and used in logs.
	id string

	// conn is written only by the client's writeLoop goroutine; gorilla
	// connections support one concurrent writer.
	conn *websocket.Conn

	// send queues messages for writeLoop. Closing it makes writeLoop send
	// a close frame and exit.
	send chan Message

	// once guards close(send), which both unregister and Hub.Close may
	// attempt.
	once sync.Once
}

// close closes the send queue exactly once. Callers hold Hub.mu, so no
// Broadcast can be sending on the channel at the same time.
func (c *liveReloadClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans live reload messages out to connected pages.
type Hub struct {
	// mu guards clients and closed, and serialises every close of a
	// client's send channel against sends to it.
	mu      sync.Mutex
	clients map[string]*liveReloadClient

	// closed is set by Close; later connections are refused.
	closed bool

	logger *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]*liveReloadClient),
		logger:  logger,
	}
}

// ServeHTTP upgrades the request to a websocket and keeps it registered
// until the page goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := liveReloadUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &liveReloadClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Message, liveReloadQueue),
	}
	// The hello is queued before the client becomes visible to Broadcast
	// and Close. The queue is empty at this point, so this never blocks,
	// and once registered the channel may be closed by Close at any time.
	client.send <- Message{Type: MessageHello, ID: client.id}
	if !h.register(client) {
		_ = conn.Close()
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(client)
	}()

	// Pages send nothing; reading only serves to process pongs and to
	// notice when the connection goes away. The read deadline turns a
	// silently vanished page into a read error.
	_ = conn.SetReadDeadline(time.Now().Add(liveReloadPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(liveReloadPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// Unregistering closes the send queue, which stops the writer; wait
	// for it so the connection is fully closed before the handler returns.
	h.unregister(client)
	<-writerDone
}

// writeLoop is the only goroutine writing to c.conn. It forwards queued
// messages, pings on a timer and closes the connection when the queue is
// closed or a write fails.
func (h *Hub) writeLoop(c *liveReloadClient) {
	ticker := time.NewTicker(liveReloadPingEvery)
	defer ticker.Stop()
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveReloadWriteWait))
			if !ok {
				// Queue closed by unregister or Close: say goodbye
				// politely so the page does not log an abnormal closure.
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveReloadWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// register adds c unless the hub is already closed. It reports whether c
// was added; a refused client still owns its connection and must close it.
func (h *Hub) register(c *liveReloadClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.logger.Debug("live reload client connected", "id", c.id)
	return true
}

// unregister removes c and closes its queue. It is safe to call after
// Close has already done both.
func (h *Hub) unregister(c *liveReloadClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		h.logger.Debug("live reload client disconnected", "id", c.id)
	}
	c.close()
}

// Broadcast queues msg for every client and returns how many received it.
// Clients whose queue is full are skipped.
func (h *Hub) Broadcast(msg Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for _, c := range h.clients {
		// Never block while holding mu: a slow page must not hold up
		// other pages or the watcher calling Broadcast.
		select {
		case c.send <- msg:
			sent++
		default:
			h.logger.Debug("live reload client queue full", "id", c.id)
		}
	}
	return sent
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}
