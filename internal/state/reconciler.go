package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roomlink/realtime/internal/broker"
	"github.com/roomlink/realtime/internal/connection"
	"github.com/roomlink/realtime/internal/protocol"
	"github.com/roomlink/realtime/internal/room"
)

// Config configures the state reconciler.
type Config struct {
	// Key is the sink entry this process publishes under.
	Key string

	// TrustSinkOnInit makes Initialize treat a sink snapshot with
	// connected=true as an already-live session and skip opening a second
	// transport. Only sound when the sink has a single writer; disable to
	// force a real connect.
	TrustSinkOnInit bool

	// WriteTimeout bounds each sink write (default: 2s).
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Key:             "realtime",
		TrustSinkOnInit: true,
		WriteTimeout:    2 * time.Second,
	}
}

// Reconciler publishes derived connection/session/room snapshots to the
// external sink after every state-affecting event.
type Reconciler struct {
	cfg    Config
	conn   *connection.Manager
	rooms  *room.Coordinator
	sink   Sink
	logger *slog.Logger

	mu      sync.Mutex
	lastErr string

	subs []*broker.Subscription
	wg   sync.WaitGroup
}

// NewReconciler creates a reconciler and starts observing the broker's
// status, session, room, and error channels.
func NewReconciler(cfg Config, conn *connection.Manager, rooms *room.Coordinator, sink Sink, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Key == "" {
		cfg.Key = DefaultConfig().Key
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	r := &Reconciler{
		cfg:    cfg,
		conn:   conn,
		rooms:  rooms,
		sink:   sink,
		logger: logger,
	}

	b := conn.Broker()
	status := b.Subscribe(broker.CategoryStatus, 16)
	session := b.Subscribe(broker.CategorySession, 16)
	roomEvents := b.Subscribe(broker.CategoryRoom, 16)
	errs := b.Subscribe(broker.CategoryError, 16)
	r.subs = []*broker.Subscription{status, session, roomEvents, errs}

	r.wg.Add(1)
	go r.watch(status, session, roomEvents, errs)

	return r
}

// Initialize reads the sink first: when another consumer already reports a
// live connection and the sink is trusted, it skips opening a new transport
// and reports connected. Otherwise it initializes and connects the manager,
// then publishes the resulting snapshot.
func (r *Reconciler) Initialize(ctx context.Context) (bool, error) {
	snap, ok, err := r.sink.Get(ctx, r.cfg.Key)
	if err != nil {
		r.logger.Warn("sink read failed, proceeding with connect", "error", err)
	} else if ok && snap.Connected && r.cfg.TrustSinkOnInit {
		// The sink is taken at its word here; the transport handle is not
		// verified on this path.
		r.logger.Info("sink reports live connection, skipping connect",
			"session_id", snap.SessionID,
		)
		return true, nil
	}

	if _, err := r.conn.Initialize(ctx); err != nil {
		return false, err
	}

	connected, err := r.conn.Connect(ctx)
	r.publish()
	if err != nil {
		return false, err
	}
	return connected, nil
}

// Close disconnects the observers and publishes a final snapshot.
func (r *Reconciler) Close() {
	for _, sub := range r.subs {
		sub.Cancel()
	}
	r.wg.Wait()
	r.publish()
}

// watch folds all observed channels into snapshot publishes. Channels close
// individually on Cancel; watch exits when all are drained.
func (r *Reconciler) watch(status, session, roomEvents, errs *broker.Subscription) {
	defer r.wg.Done()

	statusC, sessionC, roomC, errC := status.C, session.C, roomEvents.C, errs.C

	for statusC != nil || sessionC != nil || roomC != nil || errC != nil {
		var (
			ev broker.Event
			ok bool
		)
		select {
		case ev, ok = <-statusC:
			if !ok {
				statusC = nil
				continue
			}
		case ev, ok = <-sessionC:
			if !ok {
				sessionC = nil
				continue
			}
		case ev, ok = <-roomC:
			if !ok {
				roomC = nil
				continue
			}
		case ev, ok = <-errC:
			if !ok {
				errC = nil
				continue
			}
		}

		r.observe(ev)
		r.publish()
	}
}

func (r *Reconciler) observe(ev broker.Event) {
	switch ev.Frame.Event {
	case protocol.EventError, protocol.EventConnectError:
		if p, ok := ev.Payload.(protocol.ErrorInfo); ok {
			r.mu.Lock()
			r.lastErr = p.Text()
			r.mu.Unlock()
		}
	case protocol.EventConnect:
		r.mu.Lock()
		r.lastErr = ""
		r.mu.Unlock()
	}
}

// publish writes the current derived snapshot to the sink.
func (r *Reconciler) publish() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	snap := r.snapshot()
	if err := r.sink.Set(ctx, r.cfg.Key, snap); err != nil {
		r.logger.Warn("sink write failed", "error", err)
	}
}

// snapshot derives the current external view from the live components.
func (r *Reconciler) snapshot() Snapshot {
	r.mu.Lock()
	lastErr := r.lastErr
	r.mu.Unlock()

	snap := Snapshot{
		Connected: r.conn.IsConnected(),
		Error:     lastErr,
		UpdatedAt: time.Now(),
	}

	if sess, ok := r.conn.Session(); ok {
		snap.SessionID = sess.SessionID
		snap.UserID = sess.UserID
		snap.Username = sess.Username
		snap.ConnectedAt = sess.ConnectedAt
	}

	if r.rooms != nil {
		if m, ok := r.rooms.Membership(); ok {
			snap.CurrentRoomID = m.RoomID
		}
	}

	return snap
}
