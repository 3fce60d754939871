package connection

import (
	"errors"
	"time"

	"github.com/roomlink/realtime/internal/token"
)

// Errors
var (
	ErrNotInitialized       = errors.New("connection manager not initialized")
	ErrAlreadyConnecting    = errors.New("connection attempt already in flight")
	ErrNotConnected         = errors.New("not connected")
	ErrAuthTokenUnavailable = errors.New("no auth token available")
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFaulted
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Session is the authenticated identity bound to the live connection.
// Populated from connect and session_data frames, cleared on disconnect.
type Session struct {
	SessionID   string
	UserID      string
	Username    string
	ConnectedAt time.Time
}

// Config configures the connection manager.
type Config struct {
	URL            string        // WebSocket URL
	ConnectTimeout time.Duration // Deadline for the connect handshake (default: 5s)
	WriteTimeout   time.Duration // Write deadline for outbound frames
	PingTimeout    time.Duration // Staleness threshold for the transport heartbeat
	BufferSize     int           // Inbound frame buffer size
	Refresh        token.Config  // Token refresh scheduler settings
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		WriteTimeout:   5 * time.Second,
		PingTimeout:    60 * time.Second,
		BufferSize:     256,
		Refresh:        token.DefaultConfig(),
	}
}

// Stats provides a point-in-time view of the manager.
type Stats struct {
	State           string
	Initialized     bool
	SessionID       string
	PendingRequests int
}
