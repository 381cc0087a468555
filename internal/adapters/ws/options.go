package ws

import (
	"github.com/okian/matchboard/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBroadcastBuffer sets the capacity of the hub's broadcast channel.
func WithBroadcastBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.broadcast = make(chan []byte, size)
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(logger logger.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}
