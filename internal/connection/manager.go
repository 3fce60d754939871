package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roomlink/realtime/internal/broker"
	"github.com/roomlink/realtime/internal/credentials"
	"github.com/roomlink/realtime/internal/protocol"
	"github.com/roomlink/realtime/internal/socket"
	"github.com/roomlink/realtime/internal/token"
)

// Manager owns the transport handle and exposes the connection lifecycle.
// Exactly one transport handle exists per manager; components that need
// updates subscribe to the broker's channels instead of holding their own
// handle.
type Manager struct {
	cfg        Config
	creds      credentials.Provider
	events     *broker.Broker
	correlator *broker.Correlator
	refresher  *token.Scheduler
	logger     *slog.Logger

	// newClient is swapped in tests to inject a mock transport.
	newClient func(socket.Config, *slog.Logger) socket.Client

	mu          sync.Mutex
	client      socket.Client
	initialized bool
	connecting  bool
	connected   bool
	faulted     bool
	session     Session

	pumpCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager creates a connection manager. A nil credential provider is a
// programmer error and panics at construction.
func NewManager(cfg Config, creds credentials.Provider, logger *slog.Logger) *Manager {
	if creds == nil {
		panic("connection: credential provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:       cfg,
		creds:     creds,
		logger:    logger,
		newClient: socket.NewClient,
	}
	m.events = broker.New(logger)
	m.correlator = broker.NewCorrelator(m.events, logger)
	m.refresher = token.New(cfg.Refresh, creds, m.Disconnect, logger)

	return m
}

// Broker returns the event broker owned by this manager.
func (m *Manager) Broker() *broker.Broker {
	return m.events
}

// Correlator returns the request correlator bound to this manager's broker.
func (m *Manager) Correlator() *broker.Correlator {
	return m.correlator
}

// Initialize prepares the manager without opening the socket: it obtains a
// token from the credential provider, constructs the transport with the
// token attached, starts the frame pump, and starts the token refresh
// scheduler. Idempotent; when already initialized it returns the current
// connectivity.
func (m *Manager) Initialize(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return m.reconcileLocked(), nil
	}

	tok, ok := m.creds.CurrentToken()
	if !ok {
		return false, ErrAuthTokenUnavailable
	}

	sockCfg := socket.Config{
		URL:          m.cfg.URL,
		Token:        tok,
		PingTimeout:  m.cfg.PingTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.BufferSize,
	}
	m.client = m.newClient(sockCfg, m.logger)

	pumpCtx, cancel := context.WithCancel(context.Background())
	m.pumpCancel = cancel
	m.wg.Add(1)
	go m.pump(pumpCtx, m.client)

	// The scheduler must outlive this call; Disconnect stops it, the
	// caller's ctx must not.
	m.refresher.Start(context.Background())
	m.initialized = true
	m.faulted = false

	m.logger.Info("connection manager initialized", "url", m.cfg.URL)

	return m.reconcileLocked(), nil
}

// IsInitialized reports whether Initialize has run since the last Disconnect.
func (m *Manager) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Connect opens the socket and waits for the server's connect
// acknowledgment. Initializes first when needed. When an attempt is already
// in flight it returns false with ErrAlreadyConnecting and issues no second
// attempt: the transport's own connected flag cannot be trusted right after
// a dial, so the in-flight guard is the only thing preventing a duplicate
// transport.
func (m *Manager) Connect(ctx context.Context) (bool, error) {
	if _, err := m.Initialize(ctx); err != nil {
		return false, err
	}

	m.mu.Lock()
	if m.connecting {
		m.mu.Unlock()
		return false, ErrAlreadyConnecting
	}
	if m.reconcileLocked() {
		m.mu.Unlock()
		return true, nil
	}
	m.connecting = true
	client := m.client
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.connecting = false
		m.mu.Unlock()
	}()

	ev, err := m.correlator.AwaitFunc(ctx, broker.Request{
		Op:           "connect",
		SuccessEvent: protocol.EventConnect,
		ErrorEvent:   protocol.EventConnectError,
		Timeout:      m.cfg.ConnectTimeout,
	}, func() error {
		return client.Connect(ctx)
	})
	if err != nil {
		m.mu.Lock()
		m.faulted = true
		m.mu.Unlock()

		// Surface the failure on the error channel as well, so passive
		// subscribers observe it alongside the returned error. Dial
		// failures never reach the broker otherwise.
		if _, isServer := err.(*broker.ServerError); !isServer {
			m.dispatchLocalError(err)
		}

		m.logger.Warn("connect failed", "error", err)
		return false, err
	}

	m.mu.Lock()
	m.connected = true
	m.faulted = false
	if info, ok := ev.Payload.(protocol.ConnectInfo); ok && info.SID != "" {
		m.session.SessionID = info.SID
	}
	m.session.ConnectedAt = time.Now()
	sid := m.session.SessionID
	m.mu.Unlock()

	m.logger.Info("connected", "session_id", sid)
	return true, nil
}

// dispatchLocalError feeds a locally detected connect failure through the
// broker so it reaches the error/status channels exactly once.
func (m *Manager) dispatchLocalError(err error) {
	f, mkErr := protocol.NewFrame(protocol.EventConnectError, protocol.ErrorInfo{Message: err.Error()})
	if mkErr != nil {
		return
	}
	m.events.Dispatch(f)
}

// Disconnect tears the connection down: closes the transport if present,
// stops the token refresh scheduler, and resets local state. Always safe to
// call, never fails, idempotent.
func (m *Manager) Disconnect() {
	m.refresher.Stop()

	m.mu.Lock()
	client := m.client
	cancel := m.pumpCancel
	m.client = nil
	m.pumpCancel = nil
	m.initialized = false
	m.connecting = false
	m.connected = false
	m.faulted = false
	m.session = Session{}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if client != nil {
		client.Close()
	}
	m.wg.Wait()

	// Dispose clears the handler table; category subscriptions survive so
	// passive consumers keep their channels across reconnects.
	m.events.ClearHandlers()

	m.logger.Info("disconnected")
}

// Close disconnects and releases all broker subscriptions.
func (m *Manager) Close() {
	m.Disconnect()
	m.events.Reset()
}

// IsConnected reconciles the locally tracked flag against the transport's
// own status and self-corrects drift before answering.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconcileLocked()
}

func (m *Manager) reconcileLocked() bool {
	transport := m.client != nil && m.client.IsConnected()
	corrected, drifted := ReconcileConnected(m.connected, transport, m.connecting)
	if drifted {
		m.logger.Debug("connectivity drift corrected",
			"local", m.connected,
			"transport", transport,
		)
		m.connected = corrected
	}
	return corrected
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.connecting:
		return StateConnecting
	case m.reconcileLocked():
		return StateConnected
	case m.faulted:
		return StateFaulted
	default:
		return StateDisconnected
	}
}

// Session returns the current session, ok=false when no session is live.
func (m *Manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.SessionID == "" {
		return Session{}, false
	}
	return m.session, true
}

// Emit sends one frame to the server. Fails with ErrNotConnected when the
// reconciled connectivity says the transport is down.
func (m *Manager) Emit(f protocol.Frame) error {
	m.mu.Lock()
	client := m.client
	connected := m.reconcileLocked()
	m.mu.Unlock()

	if client == nil {
		return ErrNotInitialized
	}
	if !connected {
		return ErrNotConnected
	}
	return client.Send(f)
}

// EmitEvent marshals the payload and sends it under the event name.
func (m *Manager) EmitEvent(event string, payload any) error {
	f, err := protocol.NewFrame(event, payload)
	if err != nil {
		return err
	}
	return m.Emit(f)
}

// Stats returns a point-in-time view for operational logging.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	initialized := m.initialized
	sid := m.session.SessionID
	m.mu.Unlock()

	return Stats{
		State:           m.State().String(),
		Initialized:     initialized,
		SessionID:       sid,
		PendingRequests: m.correlator.PendingCount(),
	}
}

// pump forwards every inbound frame to the broker in arrival order, folding
// transport-level errors into synthesized status frames so passive
// subscribers and awaiting callers observe the same stream.
func (m *Manager) pump(ctx context.Context, client socket.Client) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-client.Errors():
			m.logger.Warn("transport error", "error", err)

			// The pump dies with the transport. Drop the initialized state
			// so the next Connect builds a fresh client and pump instead of
			// re-dialing a transport nobody reads from.
			m.mu.Lock()
			m.connected = false
			m.faulted = true
			m.initialized = false
			m.session = Session{}
			stale := m.client
			cancel := m.pumpCancel
			m.client = nil
			m.pumpCancel = nil
			m.mu.Unlock()

			m.refresher.Stop()
			if cancel != nil {
				cancel()
			}
			if stale != nil {
				stale.Close()
			}

			f, mkErr := protocol.NewFrame(protocol.EventDisconnect, protocol.DisconnectInfo{Reason: err.Error()})
			if mkErr == nil {
				m.events.Dispatch(f)
			}
			return

		case in := <-client.Frames():
			m.observe(in.Frame)
			m.events.Dispatch(in.Frame)
		}
	}
}

// observe updates manager state from an inbound frame before it is
// dispatched, so broker consumers always see state and event in agreement.
func (m *Manager) observe(f protocol.Frame) {
	switch f.Event {
	case protocol.EventConnect:
		var info protocol.ConnectInfo
		if err := f.DecodeData(&info); err == nil && info.SID != "" {
			m.mu.Lock()
			m.session.SessionID = info.SID
			m.mu.Unlock()
		}

	case protocol.EventSessionData:
		var data protocol.SessionData
		if err := f.DecodeData(&data); err != nil {
			m.logger.Warn("bad session_data payload", "error", err)
			return
		}
		m.mu.Lock()
		m.session.UserID = data.UserID
		m.session.Username = data.Username
		m.mu.Unlock()

	case protocol.EventDisconnect:
		m.mu.Lock()
		m.connected = false
		m.session = Session{}
		m.mu.Unlock()

	case protocol.EventConnectError:
		m.mu.Lock()
		m.connected = false
		m.faulted = true
		m.mu.Unlock()
	}
}
