package client

import (
	"errors"
	"testing"

	"github.com/dkeye/Rundown/internal/domain"
)

func TestParseFrame_JoinedReplaysParticipants(t *testing.T) {
	frame := `{"type":"joined","session_id":"v1","room":"r","room_name":"studio","participants":[
		{"session_id":"h1","user_name":"host","user_data":{"vcsParams":{"video.guestName":"Jane"}}},
		{"session_id":"g1","user_name":"guest"}]}`
	events, err := parseFrame([]byte(frame))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("expected joined plus two participants, got %+v", events)
	}
	if events[0].Type != domain.MsgTypeJoined || events[0].SessionID != "v1" {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	host := events[1]
	if host.Type != domain.MsgTypeParticipantJoined || host.Participant.SessionID != "h1" {
		t.Fatalf("unexpected host event %+v", host)
	}
	if string(host.Participant.UserData) != `{"vcsParams":{"video.guestName":"Jane"}}` {
		t.Fatalf("user data lost: %s", host.Participant.UserData)
	}
}

func TestParseFrame_Kinds(t *testing.T) {
	cases := []struct {
		frame string
		check func(Event) bool
	}{
		{`{"type":"participant-left","session_id":"g1"}`, func(e Event) bool { return e.SessionID == "g1" }},
		{`{"type":"app-message","from_id":"h1","data":{"x":1}}`, func(e Event) bool { return e.App.FromID == "h1" && string(e.App.Data) == `{"x":1}` }},
		{`{"type":"track-started","participant":{"session_id":"g1","user_name":"guest"},"track":{"id":"t1","kind":"video"}}`,
			func(e Event) bool { return e.Participant.UserName == "guest" && e.Track.Kind == "video" }},
		{`{"type":"track-stopped","track":{"id":"t1","kind":"video"}}`, func(e Event) bool { return e.Participant.SessionID == "" }},
		{`{"type":"recording-error","request":"start-live-streaming","error":"disk full"}`,
			func(e Event) bool { return e.Error == "disk full" && e.Request == domain.MsgTypeStartLiveStreaming }},
		{`{"type":"error","code":"BAD_TOKEN","message":"nope"}`, func(e Event) bool { return e.Error == "BAD_TOKEN: nope" }},
		{`{"type":"left"}`, func(e Event) bool { return e.Type == domain.MsgTypeLeft }},
	}
	for _, tc := range cases {
		events, err := parseFrame([]byte(tc.frame))
		if err != nil {
			t.Fatalf("%s: %v", tc.frame, err)
		}
		if len(events) != 1 || !tc.check(events[0]) {
			t.Fatalf("%s: unexpected %+v", tc.frame, events)
		}
	}
}

func TestParseFrame_Errors(t *testing.T) {
	if _, err := parseFrame([]byte(`{"type":"whoami"}`)); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
	if _, err := parseFrame([]byte(`nope`)); err == nil {
		t.Fatalf("expected a decode error")
	}
}
