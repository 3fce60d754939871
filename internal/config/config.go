package config

import (
	"time"

	"github.com/roomlink/realtime/internal/state"
)

// ClientConfig is the root configuration for a realtime client instance.
type ClientConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Connection ConnectionConfig `yaml:"connection"`
	Rooms      RoomsConfig      `yaml:"rooms"`
	State      StateConfig      `yaml:"state"`
}

// InstanceConfig identifies this client.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds realtime server settings.
type ServerConfig struct {
	URL string `yaml:"url"` // WebSocket URL (e.g., wss://realtime.example.com/ws)
}

// AuthConfig holds credential settings.
type AuthConfig struct {
	Token           string        `yaml:"token"`            // Bearer token; ${VAR} expansion applies
	JWT             bool          `yaml:"jwt"`              // Treat token as a JWT and check exp locally
	Leeway          time.Duration `yaml:"leeway"`           // Treat JWT as stale this long before exp
	RefreshInterval time.Duration `yaml:"refresh_interval"` // Validity check interval
	OnInvalid       string        `yaml:"on_invalid"`       // "stop" or "disconnect"
}

// ConnectionConfig holds transport and handshake settings.
type ConnectionConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	BufferSize     int           `yaml:"buffer_size"`
}

// RoomsConfig holds room operation settings.
type RoomsConfig struct {
	OperationTimeout time.Duration `yaml:"operation_timeout"`
	LegacyRoomJoined bool          `yaml:"legacy_room_joined"` // Correlate on the shared room_joined event
}

// StateConfig holds state sink settings. An empty postgres host selects the
// in-memory sink.
type StateConfig struct {
	Key             string         `yaml:"key"`
	TrustSinkOnInit bool           `yaml:"trust_sink_on_init"`
	Postgres        state.DBConfig `yaml:"postgres"`
}
