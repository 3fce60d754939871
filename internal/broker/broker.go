package broker

import (
	"log/slog"
	"sync"

	"github.com/roomlink/realtime/internal/protocol"
)

// Category groups inbound events by purpose. A consumer subscribes only to
// the categories it needs.
type Category string

const (
	CategoryStatus  Category = "status"  // connect, disconnect, connect_error
	CategorySession Category = "session" // session_data
	CategoryRoom    Category = "room"    // room create/join/leave responses
	CategoryMessage Category = "message" // chat messages
	CategoryError   Category = "error"   // server errors
	CategoryCustom  Category = "custom"  // everything unrecognized
)

// CategoryOf maps an event name to its channel category.
func CategoryOf(event string) Category {
	switch event {
	case protocol.EventConnect, protocol.EventDisconnect, protocol.EventConnectError:
		return CategoryStatus
	case protocol.EventSessionData:
		return CategorySession
	case protocol.EventCreateRoomSuccess, protocol.EventCreateRoomError,
		protocol.EventJoinRoomSuccess, protocol.EventJoinRoomError,
		protocol.EventRoomJoined:
		return CategoryRoom
	case protocol.EventMessage:
		return CategoryMessage
	case protocol.EventError:
		return CategoryError
	default:
		return CategoryCustom
	}
}

// Event is a dispatched frame with its decoded payload.
type Event struct {
	Category Category
	Frame    protocol.Frame
	Payload  protocol.Payload
}

// Handler is a registered callback for a single event name.
type Handler func(Event)

// Subscription is a category channel held by one consumer. The channel never
// blocks the broker; events are dropped when the consumer falls behind.
type Subscription struct {
	C <-chan Event

	broker *Broker
	cat    Category
	ch     chan Event
	once   sync.Once
}

// Cancel removes the subscription and closes its channel. Removal happens
// under the broker lock, so no dispatch can send after Cancel returns.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.broker.unsubscribe(s)
		close(s.ch)
	})
}

// Stats contains broker runtime counters.
type Stats struct {
	Dispatched   int64
	Dropped      int64
	DecodeErrors int64
}

// Broker demultiplexes inbound frames.
type Broker struct {
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	subs     map[Category][]*Subscription

	dispatched   int64
	dropped      int64
	decodeErrors int64
}

// New creates an event broker.
func New(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		logger:   logger,
		handlers: make(map[string]Handler),
		subs:     make(map[Category][]*Subscription),
	}
}

// RegisterEventHandler installs the handler for an event name. The table is
// single-entry: a second registration for the same name replaces the first.
func (b *Broker) RegisterEventHandler(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = h
}

// UnregisterEventHandler removes the handler for an event name, if any.
func (b *Broker) UnregisterEventHandler(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, event)
}

// HasHandler reports whether a handler is registered for the event name.
func (b *Broker) HasHandler(event string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.handlers[event]
	return ok
}

// HandlerCount returns the number of registered handlers.
func (b *Broker) HandlerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// Subscribe opens a category channel with the given buffer size.
func (b *Broker) Subscribe(cat Category, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{
		broker: b,
		cat:    cat,
		ch:     make(chan Event, buffer),
	}
	sub.C = sub.ch

	b.mu.Lock()
	b.subs[cat] = append(b.subs[cat], sub)
	b.mu.Unlock()

	return sub
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.cat]
	for i, s := range list {
		if s == sub {
			b.subs[sub.cat] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Dispatch routes one inbound frame: decode the payload, invoke the
// registered handler if present, then fan out to the frame's category
// subscribers. Called from the transport read loop, so ordering follows
// arrival order.
func (b *Broker) Dispatch(f protocol.Frame) {
	payload, err := protocol.DecodePayload(f)
	if err != nil {
		b.mu.Lock()
		b.decodeErrors++
		b.mu.Unlock()
		b.logger.Warn("undecodable payload", "event", f.Event, "error", err)
		payload = protocol.RawPayload(f.Data)
	}

	ev := Event{
		Category: CategoryOf(f.Event),
		Frame:    f,
		Payload:  payload,
	}

	b.mu.Lock()
	handler := b.handlers[f.Event]
	b.dispatched++
	b.mu.Unlock()

	if handler != nil {
		handler(ev)
	}

	// Fan out under the lock: subscriber channels are only closed after
	// removal from b.subs, and sends never block.
	b.mu.Lock()
	for _, sub := range b.subs[ev.Category] {
		select {
		case sub.ch <- ev:
		default:
			b.dropped++
			b.logger.Warn("subscriber buffer full, dropping event",
				"event", f.Event,
				"category", ev.Category,
			)
		}
	}
	b.mu.Unlock()
}

// ClearHandlers empties the handler table, leaving category subscriptions
// in place. Used on disconnect, where passive consumers keep their channels.
func (b *Broker) ClearHandlers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string]Handler)
}

// Reset clears the handler table and cancels all subscriptions. Used on
// manager dispose.
func (b *Broker) Reset() {
	b.mu.Lock()
	b.handlers = make(map[string]Handler)
	var all []*Subscription
	for _, list := range b.subs {
		all = append(all, list...)
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.Cancel()
	}
}

// Stats returns current counters.
func (b *Broker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Dispatched:   b.dispatched,
		Dropped:      b.dropped,
		DecodeErrors: b.decodeErrors,
	}
}
