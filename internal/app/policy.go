package app

import (
	"fmt"

	"github.com/dkeye/Rundown/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

// Policy decides what happens to a member whose send buffer is full.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// SimplePolicy drops the frame. Every broadcast carries the full state, so
// a slow member catches up with the next one.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction {
	return DropFrame
}

// StrictPolicy disconnects slow members.
type StrictPolicy struct{}

func (StrictPolicy) OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction {
	return KickMember
}

// PolicyByName resolves the backpressure_policy setting.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return SimplePolicy{}, nil
	case "kick":
		return StrictPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", name)
}
