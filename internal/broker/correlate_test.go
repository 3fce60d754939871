package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roomlink/realtime/internal/protocol"
)

func TestCorrelator_SuccessSettles(t *testing.T) {
	b := New(nil)
	c := NewCorrelator(b, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Dispatch(frame(t, "op_success", protocol.RoomInfo{RoomID: "r1"}))
	}()

	ev, err := c.Await(context.Background(), Request{
		Op:           "op",
		SuccessEvent: "op_success",
		ErrorEvent:   "op_error",
		Timeout:      time.Second,
	})
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if ev.Frame.Event != "op_success" {
		t.Errorf("event = %q", ev.Frame.Event)
	}

	if b.HasHandler("op_success") || b.HasHandler("op_error") {
		t.Error("listeners leaked after success")
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", c.PendingCount())
	}
}

func TestCorrelator_ErrorSettlesWithServerError(t *testing.T) {
	b := New(nil)
	c := NewCorrelator(b, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Dispatch(frame(t, "op_error", protocol.ErrorInfo{Message: "room is full"}))
	}()

	_, err := c.Await(context.Background(), Request{
		Op:           "op",
		SuccessEvent: "op_success",
		ErrorEvent:   "op_error",
		Timeout:      time.Second,
	})

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("error = %v, want ServerError", err)
	}
	if serverErr.Message != "room is full" {
		t.Errorf("message = %q", serverErr.Message)
	}

	if b.HasHandler("op_success") || b.HasHandler("op_error") {
		t.Error("listeners leaked after error")
	}
}

func TestCorrelator_TimeoutCleansUpListeners(t *testing.T) {
	b := New(nil)
	c := NewCorrelator(b, nil)

	before := b.HandlerCount()

	_, err := c.Await(context.Background(), Request{
		Op:             "op",
		SuccessEvent:   "op_success",
		ErrorEvent:     "op_error",
		Timeout:        50 * time.Millisecond,
		TimeoutMessage: "Timeout waiting for room join confirmation",
	})

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if timeoutErr.Error() != "Timeout waiting for room join confirmation" {
		t.Errorf("message = %q", timeoutErr.Error())
	}

	if got := b.HandlerCount(); got != before {
		t.Errorf("HandlerCount = %d, want %d (no listener leak)", got, before)
	}

	// A late response must be silently dropped.
	b.Dispatch(frame(t, "op_success", protocol.RoomInfo{RoomID: "r1"}))
}

func TestCorrelator_MatchFilterSkipsNonMatching(t *testing.T) {
	b := New(nil)
	c := NewCorrelator(b, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Dispatch(frame(t, protocol.EventRoomJoined, protocol.RoomInfo{RoomID: "other"}))
		time.Sleep(10 * time.Millisecond)
		b.Dispatch(frame(t, protocol.EventRoomJoined, protocol.RoomInfo{RoomID: "mine"}))
	}()

	ev, err := c.Await(context.Background(), Request{
		Op:           "join_room",
		SuccessEvent: protocol.EventRoomJoined,
		Match: func(ev Event) bool {
			info, ok := ev.Payload.(protocol.RoomInfo)
			return ok && info.RoomID == "mine"
		},
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if info := ev.Payload.(protocol.RoomInfo); info.RoomID != "mine" {
		t.Errorf("settled on room %q, want %q", info.RoomID, "mine")
	}
}

func TestCorrelator_SendFailureShortCircuits(t *testing.T) {
	b := New(nil)
	c := NewCorrelator(b, nil)

	sendErr := errors.New("transport down")
	_, err := c.AwaitFunc(context.Background(), Request{
		Op:           "op",
		SuccessEvent: "op_success",
		ErrorEvent:   "op_error",
		Timeout:      time.Second,
	}, func() error {
		return sendErr
	})

	if !errors.Is(err, sendErr) {
		t.Fatalf("error = %v, want send error", err)
	}
	if b.HasHandler("op_success") || b.HasHandler("op_error") {
		t.Error("listeners leaked after send failure")
	}
}

func TestCorrelator_ContextCancel(t *testing.T) {
	b := New(nil)
	c := NewCorrelator(b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Await(ctx, Request{
		Op:           "op",
		SuccessEvent: "op_success",
		Timeout:      time.Second,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if b.HasHandler("op_success") {
		t.Error("listener leaked after cancel")
	}
}

func TestCorrelator_FirstSettleWins(t *testing.T) {
	b := New(nil)
	c := NewCorrelator(b, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Dispatch(frame(t, "op_success", protocol.RoomInfo{RoomID: "first"}))
		time.Sleep(20 * time.Millisecond)
		b.Dispatch(frame(t, "op_error", protocol.ErrorInfo{Message: "late error"}))
	}()

	_, err := c.Await(context.Background(), Request{
		Op:           "op",
		SuccessEvent: "op_success",
		ErrorEvent:   "op_error",
		Timeout:      time.Second,
	})
	if err != nil {
		t.Fatalf("success should have settled first, got %v", err)
	}
}
