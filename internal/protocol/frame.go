package protocol

import (
	"encoding/json"
	"fmt"
)

// Outbound event names.
const (
	EventCreateRoom  = "create_room"
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
	EventBroadcast   = "broadcast"
)

// Inbound event names.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
	EventSessionData  = "session_data"
	EventMessage      = "message"
	EventError        = "error"

	EventCreateRoomSuccess = "create_room_success"
	EventCreateRoomError   = "create_room_error"
	EventJoinRoomSuccess   = "join_room_success"
	EventJoinRoomError     = "join_room_error"

	// EventRoomJoined is the shared success event used by the legacy
	// protocol revision for both create and join.
	EventRoomJoined = "room_joined"
)

// Frame is the wire envelope for every message in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame builds a frame with the payload marshaled into Data.
func NewFrame(event string, payload any) (Frame, error) {
	if payload == nil {
		return Frame{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Frame{Event: event, Data: data}, nil
}

// Encode serializes the frame for the wire.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// DecodeFrame parses raw wire bytes into a frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("decode frame: missing event name")
	}
	return f, nil
}

// DecodeData unmarshals the frame payload into v.
func (f Frame) DecodeData(v any) error {
	if len(f.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", f.Event, err)
	}
	return nil
}
