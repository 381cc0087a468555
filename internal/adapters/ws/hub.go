// Package ws provides the live verdict feed over WebSocket. A single hub
// fans consensus updates out to every connected dashboard client.
package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/okian/matchboard/internal/domain/types"
	"github.com/okian/matchboard/pkg/logger"
	"github.com/okian/matchboard/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultBroadcastBuffer = 256
	defaultSendBuffer      = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards connect from arbitrary origins
	},
}

// Hub manages WebSocket connections and fans verdicts out to them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	logger logger.Logger
}

// NewHub creates a new hub with configuration options.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, defaultBroadcastBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger.Get().Named("ws-hub"),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run starts the hub's main loop until ctx is canceled. Only this
// goroutine touches the clients map, so no locking is needed.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			metrics.UpdateWebsocketClients(0)
			return

		case c := <-h.register:
			h.clients[c] = true
			metrics.UpdateWebsocketClients(len(h.clients))
			h.logger.Debug(ctx, "client connected",
				logger.String("remote", c.remoteAddr),
				logger.Int("total", len(h.clients)),
			)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			metrics.UpdateWebsocketClients(len(h.clients))
			h.logger.Debug(ctx, "client disconnected",
				logger.String("remote", c.remoteAddr),
				logger.Int("total", len(h.clients)),
			)

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Client's buffer is full, close connection
					close(c.send)
					delete(h.clients, c)
					metrics.RecordWebsocketDropped()
				}
			}
			metrics.UpdateWebsocketClients(len(h.clients))
		}
	}
}

// NotifyConsensus sends a verdict to all connected clients. It never
// blocks: when the broadcast channel is full the verdict is dropped,
// the next submission re-derives it anyway.
func (h *Hub) NotifyConsensus(view types.ConsensusView) {
	data, err := json.Marshal(view)
	if err != nil {
		h.logger.Error(context.Background(), "failed to marshal verdict", logger.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
		metrics.RecordWebsocketBroadcast()
	default:
		metrics.RecordWebsocketDropped()
		h.logger.Warn(context.Background(), "broadcast channel full, dropping verdict",
			logger.String("matchID", view.MatchID),
		)
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and attaches
// it to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, defaultSendBuffer),
		remoteAddr: clientIP(r),
	}

	h.register <- c

	go c.writePump()
	go c.readPump()
}
