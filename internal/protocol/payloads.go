package protocol

// Payload is the tagged union of all inbound event payloads. Exactly one
// concrete type exists per event name; DecodePayload picks it.
type Payload interface {
	isPayload()
}

// ConnectInfo carries the transport-assigned session ID on connect.
type ConnectInfo struct {
	SID string `json:"sid"`
}

// DisconnectInfo carries the server-reported disconnect reason, if any.
type DisconnectInfo struct {
	Reason string `json:"reason,omitempty"`
}

// SessionData identifies the authenticated user bound to the connection.
type SessionData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// RoomInfo is the confirmed-response payload for room create/join.
type RoomInfo struct {
	RoomID       string   `json:"room_id"`
	CurrentSize  int      `json:"current_size"`
	MaxSize      int      `json:"max_size"`
	Permission   string   `json:"permission,omitempty"`
	AllowedUsers []string `json:"allowed_users,omitempty"`
	AllowedRoles []string `json:"allowed_roles,omitempty"`
}

// ChatMessage is an inbound room message.
type ChatMessage struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

// ErrorInfo is a server error payload. Different protocol revisions use
// "message" or "error" for the text; Text merges them.
type ErrorInfo struct {
	Message string `json:"message,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Text returns the error text regardless of which wire field carried it.
func (e ErrorInfo) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err
}

// RawPayload is the catch-all for custom events with no registered shape.
type RawPayload []byte

func (ConnectInfo) isPayload()    {}
func (DisconnectInfo) isPayload() {}
func (SessionData) isPayload()    {}
func (RoomInfo) isPayload()       {}
func (ChatMessage) isPayload()    {}
func (ErrorInfo) isPayload()      {}
func (RawPayload) isPayload()     {}

// DecodePayload maps a frame to its typed payload. Unknown events decode to
// RawPayload so custom handlers still see the bytes.
func DecodePayload(f Frame) (Payload, error) {
	switch f.Event {
	case EventConnect:
		var p ConnectInfo
		err := f.DecodeData(&p)
		return p, err
	case EventDisconnect:
		var p DisconnectInfo
		err := f.DecodeData(&p)
		return p, err
	case EventSessionData:
		var p SessionData
		err := f.DecodeData(&p)
		return p, err
	case EventCreateRoomSuccess, EventJoinRoomSuccess, EventRoomJoined:
		var p RoomInfo
		err := f.DecodeData(&p)
		return p, err
	case EventMessage:
		var p ChatMessage
		err := f.DecodeData(&p)
		return p, err
	case EventConnectError, EventError, EventCreateRoomError, EventJoinRoomError:
		var p ErrorInfo
		err := f.DecodeData(&p)
		return p, err
	default:
		return RawPayload(f.Data), nil
	}
}

// Outbound request payloads.

// CreateRoomRequest is the create_room payload: the owner plus room options.
type CreateRoomRequest struct {
	UserID       string   `json:"user_id"`
	Permission   string   `json:"permission,omitempty"`
	MaxSize      int      `json:"max_size,omitempty"`
	AllowedUsers []string `json:"allowed_users,omitempty"`
	AllowedRoles []string `json:"allowed_roles,omitempty"`
}

// JoinRoomRequest is the join_room payload.
type JoinRoomRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// LeaveRoomRequest is the leave_room payload. No confirmed response.
type LeaveRoomRequest struct {
	RoomID string `json:"room_id"`
}

// SendMessageRequest is the send_message payload.
type SendMessageRequest struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

// BroadcastRequest is the broadcast payload.
type BroadcastRequest struct {
	Message string `json:"message"`
}
