package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *ClientConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.URL == "" {
		return errors.New("server.url is required")
	}
	if !strings.HasPrefix(c.Server.URL, "ws://") && !strings.HasPrefix(c.Server.URL, "wss://") {
		return fmt.Errorf("server.url must be a ws:// or wss:// URL, got %q", c.Server.URL)
	}

	if c.Auth.Token == "" {
		return errors.New("auth.token is required")
	}
	if c.Auth.OnInvalid != "stop" && c.Auth.OnInvalid != "disconnect" {
		return fmt.Errorf("auth.on_invalid must be \"stop\" or \"disconnect\", got %q", c.Auth.OnInvalid)
	}

	if c.Connection.BufferSize < 1 {
		return errors.New("connection.buffer_size must be >= 1")
	}

	if c.State.Postgres.Host != "" {
		db := c.State.Postgres
		if db.Name == "" {
			return errors.New("state.postgres.name is required")
		}
		if db.User == "" {
			return errors.New("state.postgres.user is required")
		}
		if db.Port < 1 || db.Port > 65535 {
			return fmt.Errorf("state.postgres.port must be between 1 and 65535, got %d", db.Port)
		}
		if db.MaxConns < 1 {
			return errors.New("state.postgres.max_conns must be >= 1")
		}
	}

	return nil
}
