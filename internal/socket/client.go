// Package socket implements the WebSocket transport underneath the
// connection manager.
//
// The client:
//   - Dials with the bearer token attached as a query parameter and an
//     Authorization header; the token is never renegotiated mid-connection
//   - Decodes inbound bytes into protocol frames on a single read loop, so
//     frame order matches arrival order
//   - Never blocks on a slow consumer (buffered channel, drop on overflow)
//   - Detects stale connections via ping/pong timing
package socket

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/roomlink/realtime/internal/protocol"
)

// Client is a single WebSocket connection to the realtime server.
type Client interface {
	// Connect establishes the WebSocket connection.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection.
	Close() error

	// Send writes one frame to the connection.
	Send(f protocol.Frame) error

	// Frames returns a channel of all decoded inbound frames.
	Frames() <-chan InboundFrame

	// Errors returns a channel of connection errors.
	Errors() <-chan error

	// IsConnected returns the transport's own view of the connection state.
	// Callers that need a trustworthy answer must reconcile this against
	// their locally tracked state; see the connection package.
	IsConnected() bool
}

// client implements the Client interface.
type client struct {
	cfg    Config
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	frames chan InboundFrame
	errors chan error
	done   chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	connected  bool
	lastPingAt time.Time
	closed     bool
}

// NewClient creates a new transport client.
func NewClient(cfg Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &client{
		cfg:    cfg,
		logger: logger,
		frames: make(chan InboundFrame, cfg.BufferSize),
		errors: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialURL, err := attachToken(c.cfg.URL, c.cfg.Token)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, dialURL, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	// Server-initiated ping: respond with pong and refresh staleness clock.
	conn.SetPingHandler(func(data string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()

		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(data string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()
		return nil
	})

	go c.readLoop()
	go c.heartbeatLoop()

	c.logger.Debug("websocket connected", "url", c.cfg.URL)

	return nil
}

// attachToken adds the bearer token as a query parameter.
func attachToken(rawURL, token string) (string, error) {
	if token == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Close gracefully closes the connection.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.mu.Unlock()

	close(c.done)

	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return c.conn.Close()
	}

	return nil
}

// Send writes one frame to the connection.
func (c *client) Send(f protocol.Frame) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	c.mu.RUnlock()

	data, err := f.Encode()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Frames returns the inbound frame channel.
func (c *client) Frames() <-chan InboundFrame {
	return c.frames
}

// Errors returns the errors channel.
func (c *client) Errors() <-chan error {
	return c.errors
}

// IsConnected returns the transport's view of the connection state.
func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readLoop reads and decodes messages until the connection dies.
func (c *client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
				return
			default:
				select {
				case c.errors <- err:
				default:
				}
				return
			}
		}

		f, err := protocol.DecodeFrame(data)
		if err != nil {
			c.logger.Warn("discarding undecodable message", "error", err)
			continue
		}

		msg := InboundFrame{
			Frame:      f,
			ReceivedAt: receivedAt,
		}

		select {
		case c.frames <- msg:
		case <-c.done:
			return
		default:
			c.logger.Warn("frame buffer full, dropping frame", "event", f.Event)
		}
	}
}

// heartbeatLoop monitors for stale connections.
func (c *client) heartbeatLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()

			if conn != nil {
				deadline := time.Now().Add(c.cfg.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
					c.logger.Debug("failed to send ping", "error", err)
				}
			}

			c.mu.RLock()
			lastPing := c.lastPingAt
			c.mu.RUnlock()

			if time.Since(lastPing) > c.cfg.PingTimeout {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", c.cfg.PingTimeout,
				)
				select {
				case c.errors <- ErrStaleConnection:
				default:
				}
				return
			}
		}
	}
}
