package domain

import "encoding/json"

const TrackKindVideo = "video"

// TrackInfo identifies a media track owned by the transport layer.
type TrackInfo struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	StreamID string `json:"stream_id,omitempty"`
}

// Participant is the public view of a room member sent over signaling.
type Participant struct {
	SessionID string          `json:"session_id"`
	UserName  string          `json:"user_name"`
	UserData  json.RawMessage `json:"user_data,omitempty"`
}
