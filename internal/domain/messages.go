package domain

import "encoding/json"

// Signal message types from client.
const (
	MsgTypeJoin                = "join"
	MsgTypeLeave               = "leave"
	MsgTypePing                = "ping"
	MsgTypeWhoAmI              = "whoami"
	MsgTypeRename              = "rename"
	MsgTypeAppMessage          = "app-message"
	MsgTypeSetUserData         = "set-user-data"
	MsgTypeOffer               = "offer"
	MsgTypeAnswer              = "answer"
	MsgTypeCandidate           = "candidate"
	MsgTypeStartRecording      = "start-recording"
	MsgTypeUpdateRecording     = "update-recording"
	MsgTypeStopRecording       = "stop-recording"
	MsgTypeStartLiveStreaming  = "start-live-streaming"
	MsgTypeUpdateLiveStreaming = "update-live-streaming"
	MsgTypeStopLiveStreaming   = "stop-live-streaming"
)

// Signal message types to client.
const (
	MsgTypeJoined               = "joined"
	MsgTypeLeft                 = "left"
	MsgTypeParticipantJoined    = "participant-joined"
	MsgTypeParticipantLeft      = "participant-left"
	MsgTypeTrackStarted         = "track-started"
	MsgTypeTrackStopped         = "track-stopped"
	MsgTypeRecordingStarted     = "recording-started"
	MsgTypeRecordingStopped     = "recording-stopped"
	MsgTypeRecordingError       = "recording-error"
	MsgTypeLiveStreamingStarted = "live-streaming-started"
	MsgTypeLiveStreamingStopped = "live-streaming-stopped"
	MsgTypePong                 = "pong"
	MsgTypeError                = "error"
)

// BroadcastRecipient addresses an app message to every other participant.
const BroadcastRecipient = "*"

// Envelope is the common header of all signal messages.
type Envelope struct {
	Type string `json:"type"`
}

// Client -> Server

type JoinMessage struct {
	Type  string `json:"type"`
	Room  string `json:"room"`
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
}

// SendAppMessage carries opaque application data to one member or to all.
type SendAppMessage struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

type SetUserDataMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type RecordingMessage struct {
	Type    string          `json:"type"`
	RtmpURL string          `json:"rtmp_url,omitempty"`
	Layout  json.RawMessage `json:"layout,omitempty"`
}

// Server -> Client

type JoinedMessage struct {
	Type         string        `json:"type"`
	SessionID    string        `json:"session_id"`
	Room         RoomID        `json:"room"`
	RoomName     RoomName      `json:"room_name"`
	Participants []Participant `json:"participants"`
}

type ParticipantMessage struct {
	Type        string      `json:"type"`
	Participant Participant `json:"participant"`
}

type ParticipantLeftMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// AppMessage is an application message as delivered to its recipient.
type AppMessage struct {
	Type   string          `json:"type"`
	FromID string          `json:"from_id"`
	Data   json.RawMessage `json:"data"`
}

type TrackMessage struct {
	Type        string       `json:"type"`
	Participant *Participant `json:"participant,omitempty"`
	Track       TrackInfo    `json:"track"`
}

// RecordingEventMessage announces recording and live stream state changes.
// On recording-error, Request names the rejected request so the client knows
// which pipeline failed.
type RecordingEventMessage struct {
	Type    string `json:"type"`
	Request string `json:"request,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IsLiveStreamingRequest reports whether typ drives the live stream rather
// than the recording.
func IsLiveStreamingRequest(typ string) bool {
	switch typ {
	case MsgTypeStartLiveStreaming, MsgTypeUpdateLiveStreaming, MsgTypeStopLiveStreaming:
		return true
	}
	return false
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadPayload   = "BAD_PAYLOAD"
	ErrCodeNotInRoom    = "NOT_IN_ROOM"
	ErrCodeBadToken     = "BAD_TOKEN"
	ErrCodeNoRecipient  = "NO_RECIPIENT"
	ErrCodeNoRtmpURL    = "NO_RTMP_URL"
	ErrCodeInvalidName  = "INVALID_NAME"
	ErrCodeAlreadyInUse = "ALREADY_ACTIVE"
	ErrCodeNotActive    = "NOT_ACTIVE"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeMedia        = "MEDIA_FAILED"
)

// NewErrorMessage creates a new error message.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
