package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roomlink/realtime/internal/protocol"
)

// TimeoutError reports a correlated request that received no matching
// response before its deadline.
type TimeoutError struct {
	Op      string
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: timed out waiting for response", e.Op)
}

// ServerError carries the error text from an error-response event.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// Request describes one correlated request: the events that settle it, an
// optional payload filter, and a deadline.
type Request struct {
	// Op names the operation for logs and timeout errors.
	Op string

	// SuccessEvent settles the request successfully.
	SuccessEvent string

	// ErrorEvent settles the request with a ServerError. Optional.
	ErrorEvent string

	// Match, when set, must return true for a success event to settle the
	// request; non-matching events are ignored and the wait continues.
	Match func(Event) bool

	// Timeout bounds the wait. Required.
	Timeout time.Duration

	// TimeoutMessage overrides the default timeout error text.
	TimeoutMessage string
}

// Correlator awaits one-shot responses on the broker's handler table.
type Correlator struct {
	broker *Broker
	logger *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]string // request ID -> op, for stats and logs
}

// NewCorrelator creates a correlator bound to a broker.
func NewCorrelator(b *Broker, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		broker:  b,
		logger:  logger,
		pending: make(map[uuid.UUID]string),
	}
}

// PendingCount returns the number of in-flight requests.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Await registers one-shot listeners for the request's success and error
// events, then blocks until one of them fires, the deadline passes, or ctx
// is canceled. Both listeners are removed before Await returns, on every
// path, so a late server response is silently dropped.
//
// The send itself belongs to the caller and must happen after Await's
// listeners are armed; use the Armed callback pattern via AwaitFunc when the
// emission can fail.
func (c *Correlator) Await(ctx context.Context, req Request) (Event, error) {
	return c.AwaitFunc(ctx, req, nil)
}

// AwaitFunc arms the listeners, invokes send (when non-nil), and waits.
// Arming before sending closes the window where a fast response could arrive
// with no listener registered.
func (c *Correlator) AwaitFunc(ctx context.Context, req Request, send func() error) (Event, error) {
	id := uuid.New()
	c.mu.Lock()
	c.pending[id] = req.Op
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	// Buffered so the first settling event wins and later ones fall
	// through to the default branch.
	successCh := make(chan Event, 1)
	errorCh := make(chan Event, 1)

	c.broker.RegisterEventHandler(req.SuccessEvent, func(ev Event) {
		if req.Match != nil && !req.Match(ev) {
			return
		}
		select {
		case successCh <- ev:
		default:
		}
	})
	defer c.broker.UnregisterEventHandler(req.SuccessEvent)

	if req.ErrorEvent != "" {
		c.broker.RegisterEventHandler(req.ErrorEvent, func(ev Event) {
			select {
			case errorCh <- ev:
			default:
			}
		})
		defer c.broker.UnregisterEventHandler(req.ErrorEvent)
	}

	if send != nil {
		if err := send(); err != nil {
			return Event{}, err
		}
	}

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()

	case <-timer.C:
		c.logger.Debug("request timed out", "op", req.Op, "request_id", id)
		return Event{}, &TimeoutError{Op: req.Op, Message: req.TimeoutMessage}

	case ev := <-errorCh:
		msg := serverErrorText(ev)
		c.logger.Debug("request failed", "op", req.Op, "error", msg)
		return ev, &ServerError{Message: msg}

	case ev := <-successCh:
		return ev, nil
	}
}

func serverErrorText(ev Event) string {
	if p, ok := ev.Payload.(protocol.ErrorInfo); ok && p.Text() != "" {
		return p.Text()
	}
	return "server error"
}
