package room

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotInRoom = errors.New("not in a room")
)

// Timeout error texts for the correlated room operations.
const (
	createTimeoutMessage = "Timeout waiting for room creation confirmation"
	joinTimeoutMessage   = "Timeout waiting for room join confirmation"
)

// Membership is the single room the session currently occupies.
type Membership struct {
	RoomID       string
	CurrentSize  int
	MaxSize      int
	Permission   string
	AllowedUsers []string
	AllowedRoles []string
	JoinedAt     time.Time
}

// Options are the room attributes sent with a create request.
type Options struct {
	Permission   string
	MaxSize      int
	AllowedUsers []string
	AllowedRoles []string
}

// Config configures the room coordinator.
type Config struct {
	// OperationTimeout bounds each correlated create/join (default: 5s).
	OperationTimeout time.Duration

	// LegacyRoomJoined switches create/join success correlation to the
	// shared room_joined event used by the older protocol revision, with
	// join filtering on room_id. The canonical contract uses the split
	// create_room_success / join_room_success events.
	LegacyRoomJoined bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		OperationTimeout: 5 * time.Second,
	}
}
