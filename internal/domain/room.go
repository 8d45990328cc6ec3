package domain

import "encoding/json"

type (
	RoomName string
	RoomID   string
)

const MaxRoomNameLen = 64

type Room struct {
	ID   RoomID   `json:"id"`
	Name RoomName `json:"name"`
}

// Recording is the outbound AV pipeline state of a room:
// a cloud recording and/or an RTMP live stream driven by a layout.
type Recording struct {
	Recording     bool            `json:"recording"`
	LiveStreaming bool            `json:"live_streaming"`
	RtmpURL       string          `json:"rtmp_url,omitempty"`
	Layout        json.RawMessage `json:"layout,omitempty"`
	StartedBy     UserID          `json:"started_by,omitempty"`
}
