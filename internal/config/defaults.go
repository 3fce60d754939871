package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultConnectTimeout   = 5 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultPingTimeout      = 60 * time.Second
	DefaultBufferSize       = 256
	DefaultOperationTimeout = 5 * time.Second
	DefaultRefreshInterval  = 4 * time.Minute
	DefaultLeeway           = 30 * time.Second
	DefaultOnInvalid        = "stop"
	DefaultStateKey         = "realtime"
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 4
	DefaultMinConns         = 1
)

func (c *ClientConfig) applyDefaults() {
	if c.Auth.RefreshInterval == 0 {
		c.Auth.RefreshInterval = DefaultRefreshInterval
	}
	if c.Auth.Leeway == 0 {
		c.Auth.Leeway = DefaultLeeway
	}
	if c.Auth.OnInvalid == "" {
		c.Auth.OnInvalid = DefaultOnInvalid
	}

	if c.Connection.ConnectTimeout == 0 {
		c.Connection.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	if c.Rooms.OperationTimeout == 0 {
		c.Rooms.OperationTimeout = DefaultOperationTimeout
	}

	if c.State.Key == "" {
		c.State.Key = DefaultStateKey
	}

	if c.State.Postgres.Host != "" {
		if c.State.Postgres.Port == 0 {
			c.State.Postgres.Port = DefaultDBPort
		}
		if c.State.Postgres.SSLMode == "" {
			c.State.Postgres.SSLMode = DefaultDBSSLMode
		}
		if c.State.Postgres.MaxConns == 0 {
			c.State.Postgres.MaxConns = DefaultMaxConns
		}
		if c.State.Postgres.MinConns == 0 {
			c.State.Postgres.MinConns = DefaultMinConns
		}
	}
}
