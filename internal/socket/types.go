package socket

import (
	"errors"
	"time"

	"github.com/roomlink/realtime/internal/protocol"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// InboundFrame wraps a decoded frame with its receive timestamp.
type InboundFrame struct {
	Frame      protocol.Frame
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Config configures a transport client.
type Config struct {
	URL          string        // WebSocket URL (e.g., wss://realtime.example.com/ws)
	Token        string        // Bearer token, attached at construction time only
	PingTimeout  time.Duration // Max time without ping before considering connection stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Frame channel buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   256,
	}
}
