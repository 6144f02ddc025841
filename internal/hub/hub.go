// Package hub fans state changes out to connected browser clients over
// WebSocket and replays the current history to late joiners.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/yudhap/lanflow/internal/event"
	"github.com/yudhap/lanflow/internal/metrics"
	"github.com/yudhap/lanflow/internal/store"
)

const defaultSendBuffer = 32

// ClientState tracks a connection through its lifecycle.
type ClientState int32

const (
	StateConnecting ClientState = iota
	StateOpen
	StateClosed
)

// Client is one connected browser. It has no persisted identity; it
// exists only for the socket's lifetime.
type Client struct {
	ID          string
	ConnectedAt time.Time

	conn      *websocket.Conn
	send      chan []byte
	state     atomic.Int32
	closeOnce sync.Once
}

// State returns the connection state.
func (c *Client) State() ClientState {
	return ClientState(c.state.Load())
}

func (c *Client) setState(s ClientState) {
	c.state.Store(int32(s))
}

// Hub maintains the set of connected clients and pushes events to them.
type Hub struct {
	store      *store.Store
	urls       *URLBuilder
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	upgrader   websocket.Upgrader
	sendBuffer int
	events     <-chan event.Event
	cancelSub  func()

	mu      sync.Mutex
	clients map[string]*Client
}

// New creates a hub over the given store. The bus subscription is taken
// here, not in Run, so events published before the loop starts are
// queued rather than lost.
func New(st *store.Store, urls *URLBuilder, logger zerolog.Logger, m *metrics.Metrics) *Hub {
	events, cancel := st.Bus().Subscribe(64)

	return &Hub{
		store:      st,
		urls:       urls,
		logger:     logger.With().Str("component", "hub").Logger(),
		metrics:    m,
		sendBuffer: defaultSendBuffer,
		events:     events,
		cancelSub:  cancel,
		clients:    make(map[string]*Client),
		upgrader: websocket.Upgrader{
			// Any device on the LAN is a peer; there is no origin policy.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run consumes domain events until ctx is done. History-cleared and
// files-received events are desktop-side concerns and are not pushed.
func (h *Hub) Run(ctx context.Context) {
	defer h.cancelSub()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-h.events:
			if !ok {
				return
			}
			switch evt.Kind {
			case event.KindBatchCreated:
				if batch, ok := evt.Payload.(*store.Batch); ok {
					h.Broadcast("new-batch", h.urls.BatchToView(batch))
				}
			case event.KindTextRecorded:
				if text, ok := evt.Payload.(*store.TextEntry); ok {
					h.Broadcast("new-text", TextToView(text))
				}
			}
		}
	}
}

// HandleWebSocket upgrades the request and registers the client. The
// history snapshot is queued before the client joins the broadcast set,
// so it is always the first message the client reads.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	clientID, _ := gonanoid.New()
	client := &Client{
		ID:          clientID,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, h.sendBuffer),
	}

	// Snapshot and registration happen under one lock so no broadcast
	// can slip between them: a batch created concurrently lands either
	// in this snapshot or in a later event, never in neither.
	h.mu.Lock()
	history := h.urls.SnapshotToHistory(h.store.Snapshot())
	data, err := json.Marshal(history)
	if err != nil {
		h.mu.Unlock()
		h.logger.Error().Err(err).Msg("Failed to marshal history")
		conn.Close()
		return
	}
	client.send <- data
	client.setState(StateOpen)
	h.clients[clientID] = client
	h.mu.Unlock()
	h.metrics.ClientsConnected.Inc()

	h.logger.Info().
		Str("clientId", clientID).
		Str("ip", r.RemoteAddr).
		Msg("Client connected")

	go h.writePump(client)
	go h.readPump(client)
}

// writePump drains the client's outbound queue onto the socket.
func (h *Hub) writePump(c *Client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug().Err(err).Str("clientId", c.ID).Msg("Write failed")
			break
		}
	}
	c.conn.Close()
}

// readPump consumes the socket until the client goes away. Browser
// clients never send application messages; reads only surface closure.
func (h *Hub) readPump(c *Client) {
	defer h.remove(c)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("clientId", c.ID).Msg("WebSocket error")
			}
			return
		}
	}
}

// remove prunes a client from the broadcast set and tears it down.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()

	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		close(c.send)
		c.conn.Close()
	})

	if present {
		h.metrics.ClientsConnected.Dec()
		h.logger.Info().Str("clientId", c.ID).Msg("Client disconnected")
	}
}

// Broadcast pushes one event to every open client. A client whose queue
// is full misses the event; nothing blocks, and a failed client never
// affects the others.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(EventMessage{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", eventType).Msg("Failed to marshal event")
		return
	}

	sent := 0
	dropped := 0

	// Exclusive with client registration, which snapshots history under
	// the same lock.
	h.mu.Lock()
	for _, c := range h.clients {
		if c.State() != StateOpen {
			continue
		}
		select {
		case c.send <- payload:
			sent++
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	h.metrics.BroadcastsSentTotal.WithLabelValues(eventType).Add(float64(sent))
	if dropped > 0 {
		h.metrics.BroadcastsDroppedTotal.Add(float64(dropped))
		h.logger.Warn().
			Str("event", eventType).
			Int("dropped", dropped).
			Msg("Dropped event for slow clients")
	}

	h.logger.Debug().
		Str("event", eventType).
		Int("sent", sent).
		Int("dropped", dropped).
		Msg("Event broadcast complete")
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client, for shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
