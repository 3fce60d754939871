package protocol

import (
	"testing"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		event   string
		wantErr bool
	}{
		{"room success", `{"event":"create_room_success","data":{"room_id":"r1"}}`, "create_room_success", false},
		{"no data", `{"event":"disconnect"}`, "disconnect", false},
		{"missing event", `{"data":{"x":1}}`, "", true},
		{"not json", `garbage`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFrame([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeFrame failed: %v", err)
			}
			if f.Event != tt.event {
				t.Errorf("event = %q, want %q", f.Event, tt.event)
			}
		})
	}
}

func TestDecodePayload_TypedVariants(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"event":"join_room_success","data":{"room_id":"r9","current_size":3,"max_size":10}}`))
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}

	p, err := DecodePayload(f)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}

	info, ok := p.(RoomInfo)
	if !ok {
		t.Fatalf("payload type = %T, want RoomInfo", p)
	}
	if info.RoomID != "r9" || info.CurrentSize != 3 || info.MaxSize != 10 {
		t.Errorf("unexpected room info: %+v", info)
	}
}

func TestDecodePayload_UnknownEventIsRaw(t *testing.T) {
	f := Frame{Event: "typing_indicator", Data: []byte(`{"user":"u1"}`)}

	p, err := DecodePayload(f)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	raw, ok := p.(RawPayload)
	if !ok {
		t.Fatalf("payload type = %T, want RawPayload", p)
	}
	if string(raw) != `{"user":"u1"}` {
		t.Errorf("raw payload = %s", raw)
	}
}

func TestErrorInfo_TextMergesWireVariants(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"message field", `{"message":"room full"}`, "room full"},
		{"error field", `{"error":"bad token"}`, "bad token"},
		{"message wins", `{"message":"a","error":"b"}`, "a"},
		{"empty", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Frame{Event: EventError, Data: []byte(tt.data)}
			p, err := DecodePayload(f)
			if err != nil {
				t.Fatalf("DecodePayload failed: %v", err)
			}
			if got := p.(ErrorInfo).Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewFrame_RoundTrip(t *testing.T) {
	f, err := NewFrame(EventJoinRoom, JoinRoomRequest{RoomID: "r1", UserID: "u1"})
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	data, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	back, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}

	var req JoinRoomRequest
	if err := back.DecodeData(&req); err != nil {
		t.Fatalf("DecodeData failed: %v", err)
	}
	if req.RoomID != "r1" || req.UserID != "u1" {
		t.Errorf("unexpected request: %+v", req)
	}
}
