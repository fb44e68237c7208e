package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/idlekernel/internal/engine"
	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
	"github.com/MRamiBalles/idlekernel/internal/platform/metrics"
)

// Frame is one server-to-client message.
type Frame struct {
	Type   string             `json:"type"` // "state", "reply"
	State  *engine.StateView  `json:"state,omitempty"`
	Events []events.GameEvent `json:"events,omitempty"`
	Reply  *Reply             `json:"reply,omitempty"`
}

// HubOptions sizes the hub.
type HubOptions struct {
	BroadcastInterval    time.Duration
	SendBuffer           int
	MaxClients           int
	MaxMessagesPerSecond int
	MessageBurst         int
}

type envelope struct {
	client  *Client
	message []byte
}

// Hub maintains the set of active clients, broadcasts the state view to them
// and routes their commands.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	direct     chan envelope
	done       chan struct{}
	mu         sync.Mutex
	count      int

	engine  *engine.Engine
	router  *Router
	opts    HubOptions
	lastSeq int64

	upgrader websocket.Upgrader
	logger   *logger.Logger
	metrics  *metrics.Collector
}

// NewHub initializes a new WebSocket Hub.
func NewHub(e *engine.Engine, router *Router, opts HubOptions, log *logger.Logger) *Hub {
	if opts.BroadcastInterval <= 0 {
		opts.BroadcastInterval = 250 * time.Millisecond
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.MaxMessagesPerSecond <= 0 {
		opts.MaxMessagesPerSecond = 20
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = opts.MaxMessagesPerSecond
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan envelope),
		done:       make(chan struct{}),
		engine:     e,
		router:     router,
		opts:       opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  log,
		metrics: metrics.Get(),
	}
}

// Run starts the Hub's main loop: client bookkeeping, direct replies and the
// periodic state broadcast. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.opts.BroadcastInterval)
	defer ticker.Stop()
	defer close(h.done)

	if el := h.engine.EventLog(); el != nil {
		h.lastSeq = el.LastSeq()
	}

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket Hub shutting down.")
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("New WebSocket client connected")
			if msg, err := h.stateFrame(nil); err == nil {
				h.send(client, msg)
			}
		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.logger.Info("WebSocket client disconnected")
			}
		case env := <-h.direct:
			if h.clients[env.client] {
				h.send(env.client, env.message)
			}
		case <-ticker.C:
			h.broadcastState()
		}
	}
}

// broadcastState pushes the view plus the journal entries since the last
// broadcast. Skipped when nobody is listening.
func (h *Hub) broadcastState() {
	var fresh []events.GameEvent
	if el := h.engine.EventLog(); el != nil {
		fresh = el.Since(h.lastSeq)
		h.lastSeq = el.LastSeq()
	}
	if len(h.clients) == 0 {
		return
	}
	msg, err := h.stateFrame(fresh)
	if err != nil {
		h.logger.Errorf("Failed to serialize state frame: %v", err)
		return
	}
	for client := range h.clients {
		h.send(client, msg)
	}
}

func (h *Hub) stateFrame(fresh []events.GameEvent) ([]byte, error) {
	view := h.engine.View()
	return json.Marshal(Frame{Type: "state", State: &view, Events: fresh})
}

// send never blocks the hub; a client that cannot keep up is disconnected.
func (h *Hub) send(client *Client, msg []byte) {
	select {
	case client.send <- msg:
		h.metrics.RecordWSMessage(false)
	default:
		h.logger.Warn("Client send buffer full; disconnecting")
		h.metrics.RecordWSError()
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.mu.Lock()
	h.count--
	h.mu.Unlock()
	h.metrics.RecordWSConnection(-1)
}

// reserve claims a connection slot, enforcing MaxClients.
func (h *Hub) reserve() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.opts.MaxClients > 0 && h.count >= h.opts.MaxClients {
		return false
	}
	h.count++
	return true
}

func (h *Hub) release() {
	h.mu.Lock()
	h.count--
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// ServeWS upgrades the request and starts the client pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.reserve() {
		h.logger.Warn("Rejecting WebSocket client: server full")
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.release()
		h.metrics.RecordWSError()
		h.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, h.opts.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(h.opts.MaxMessagesPerSecond), h.opts.MessageBurst),
	}
	h.metrics.RecordWSConnection(1)
	select {
	case h.register <- client:
	case <-h.done:
		h.release()
		h.metrics.RecordWSConnection(-1)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// reply queues msg for one client through the hub loop.
func (h *Hub) reply(client *Client, msg []byte) {
	select {
	case h.direct <- envelope{client: client, message: msg}:
	case <-h.done:
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
