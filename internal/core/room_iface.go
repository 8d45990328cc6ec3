package core

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Rundown/internal/domain"
)

var ErrMemberNotFound = errors.New("member not found")

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	// Participants returns every member with its sticky user data.
	Participants() []domain.Participant
	Participant(sid SessionID) (domain.Participant, bool)

	AddMember(sid SessionID, ms MemberSession)
	RemoveMember(sid SessionID)
	Broadcast(from SessionID, data Frame) PublishResult
	SendTo(to SessionID, data Frame) error
	SetUserData(sid SessionID, data json.RawMessage) error

	Recording() domain.Recording
	// ModifyRecording applies fn atomically. On error the state is kept.
	ModifyRecording(fn func(*domain.Recording) error) error
}

type RoomInfo struct {
	ID          domain.RoomID   `json:"id"`
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
	Recording   bool            `json:"recording"`
	Streaming   bool            `json:"live_streaming"`
}

type RoomManager interface {
	GetOrCreate(name domain.RoomName) RoomService
	Get(name domain.RoomName) (RoomService, bool)
	List() []RoomInfo
	StopRoom(name domain.RoomName)
}
