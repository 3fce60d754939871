// Package room implements the Room Coordinator component.
//
// Create and join are confirmed operations: each one is a correlated
// request with one-shot success/error listeners and a deadline. Leave is
// deliberately optimistic: the baseline protocol has no leave confirmation,
// so local membership clears synchronously and the frame is fire-and-forget.
// Membership is single-valued; joining while in a room leaves the prior
// room first.
package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roomlink/realtime/internal/broker"
	"github.com/roomlink/realtime/internal/connection"
	"github.com/roomlink/realtime/internal/protocol"
)

// Coordinator issues room operations over the connection manager.
type Coordinator struct {
	cfg    Config
	conn   *connection.Manager
	logger *slog.Logger

	mu         sync.Mutex
	membership *Membership

	statusSub *broker.Subscription
	wg        sync.WaitGroup
}

// NewCoordinator creates a room coordinator. It subscribes to the status
// channel so a disconnect clears membership even when no room call is in
// flight.
func NewCoordinator(cfg Config, conn *connection.Manager, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultConfig().OperationTimeout
	}

	c := &Coordinator{
		cfg:    cfg,
		conn:   conn,
		logger: logger,
	}

	c.statusSub = conn.Broker().Subscribe(broker.CategoryStatus, 16)
	c.wg.Add(1)
	go c.watchStatus()

	return c
}

// Close releases the status subscription.
func (c *Coordinator) Close() {
	c.statusSub.Cancel()
	c.wg.Wait()
}

// Membership returns the current room membership, ok=false when not in a room.
func (c *Coordinator) Membership() (Membership, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.membership == nil {
		return Membership{}, false
	}
	return *c.membership, true
}

// CreateRoom issues a create_room request for the owner and waits for the
// server's confirmation or error, subject to the operation timeout. Both
// one-shot listeners are removed whichever way the call settles.
func (c *Coordinator) CreateRoom(ctx context.Context, ownerID string, opts Options) (Membership, error) {
	successEvent := protocol.EventCreateRoomSuccess
	if c.cfg.LegacyRoomJoined {
		successEvent = protocol.EventRoomJoined
	}

	ev, err := c.conn.Correlator().AwaitFunc(ctx, broker.Request{
		Op:             "create_room",
		SuccessEvent:   successEvent,
		ErrorEvent:     protocol.EventCreateRoomError,
		Timeout:        c.cfg.OperationTimeout,
		TimeoutMessage: createTimeoutMessage,
	}, func() error {
		return c.conn.EmitEvent(protocol.EventCreateRoom, protocol.CreateRoomRequest{
			UserID:       ownerID,
			Permission:   opts.Permission,
			MaxSize:      opts.MaxSize,
			AllowedUsers: opts.AllowedUsers,
			AllowedRoles: opts.AllowedRoles,
		})
	})
	if err != nil {
		c.logger.Warn("create room failed", "owner", ownerID, "error", err)
		return Membership{}, err
	}

	m := membershipFrom(ev)
	c.setMembership(m)
	c.logger.Info("room created", "room_id", m.RoomID, "max_size", m.MaxSize)
	return m, nil
}

// JoinRoom issues a join_room request and waits for confirmation. When the
// session already occupies a room, that room is left first; the leave is
// fire-and-forget because it has no confirmed response.
func (c *Coordinator) JoinRoom(ctx context.Context, roomID, userID string) (Membership, error) {
	c.mu.Lock()
	prior := c.membership
	c.mu.Unlock()

	if prior != nil && prior.RoomID != roomID {
		if err := c.LeaveRoom(prior.RoomID); err != nil {
			c.logger.Warn("leave before join failed", "room_id", prior.RoomID, "error", err)
		}
	}

	req := broker.Request{
		Op:             "join_room",
		SuccessEvent:   protocol.EventJoinRoomSuccess,
		ErrorEvent:     protocol.EventJoinRoomError,
		Timeout:        c.cfg.OperationTimeout,
		TimeoutMessage: joinTimeoutMessage,
	}
	if c.cfg.LegacyRoomJoined {
		// Shared success event: take only the confirmation for this room.
		req.SuccessEvent = protocol.EventRoomJoined
		req.Match = func(ev broker.Event) bool {
			info, ok := ev.Payload.(protocol.RoomInfo)
			return ok && info.RoomID == roomID
		}
	}

	ev, err := c.conn.Correlator().AwaitFunc(ctx, req, func() error {
		return c.conn.EmitEvent(protocol.EventJoinRoom, protocol.JoinRoomRequest{
			RoomID: roomID,
			UserID: userID,
		})
	})
	if err != nil {
		c.logger.Warn("join room failed", "room_id", roomID, "error", err)
		return Membership{}, err
	}

	m := membershipFrom(ev)
	c.setMembership(m)
	c.logger.Info("room joined", "room_id", m.RoomID, "current_size", m.CurrentSize)
	return m, nil
}

// LeaveRoom emits leave_room and clears local membership synchronously,
// without waiting for the server. Best-effort by contract, unlike the
// confirmed create/join.
func (c *Coordinator) LeaveRoom(roomID string) error {
	c.mu.Lock()
	if c.membership != nil && c.membership.RoomID == roomID {
		c.membership = nil
	}
	c.mu.Unlock()

	err := c.conn.EmitEvent(protocol.EventLeaveRoom, protocol.LeaveRoomRequest{RoomID: roomID})
	if err != nil {
		c.logger.Warn("leave room emit failed", "room_id", roomID, "error", err)
		return err
	}

	c.logger.Info("room left", "room_id", roomID)
	return nil
}

// SendMessage sends a chat message to the current room. Fire-and-forget.
func (c *Coordinator) SendMessage(text string) error {
	c.mu.Lock()
	m := c.membership
	c.mu.Unlock()

	if m == nil {
		return ErrNotInRoom
	}
	if !c.conn.IsConnected() {
		return connection.ErrNotConnected
	}

	return c.conn.EmitEvent(protocol.EventSendMessage, protocol.SendMessageRequest{
		RoomID:  m.RoomID,
		Message: text,
	})
}

// Broadcast sends a message outside any room scope. Fire-and-forget.
func (c *Coordinator) Broadcast(text string) error {
	if !c.conn.IsConnected() {
		return connection.ErrNotConnected
	}
	return c.conn.EmitEvent(protocol.EventBroadcast, protocol.BroadcastRequest{Message: text})
}

func (c *Coordinator) setMembership(m Membership) {
	c.mu.Lock()
	c.membership = &m
	c.mu.Unlock()
}

// watchStatus clears membership when the connection drops.
func (c *Coordinator) watchStatus() {
	defer c.wg.Done()

	for ev := range c.statusSub.C {
		if ev.Frame.Event != protocol.EventDisconnect {
			continue
		}
		c.mu.Lock()
		had := c.membership != nil
		c.membership = nil
		c.mu.Unlock()
		if had {
			c.logger.Debug("membership cleared on disconnect")
		}
	}
}

func membershipFrom(ev broker.Event) Membership {
	m := Membership{JoinedAt: time.Now()}
	if info, ok := ev.Payload.(protocol.RoomInfo); ok {
		m.RoomID = info.RoomID
		m.CurrentSize = info.CurrentSize
		m.MaxSize = info.MaxSize
		m.Permission = info.Permission
		m.AllowedUsers = info.AllowedUsers
		m.AllowedRoles = info.AllowedRoles
	}
	return m
}
