package sfu

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/dkeye/Rundown/internal/domain"
)

func newLocalTrack(t *testing.T) *webrtc.TrackLocalStaticRTP {
	t.Helper()
	track, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "stream")
	if err != nil {
		t.Fatal(err)
	}
	return track
}

func TestForward_DropsDeletedOutTracks(t *testing.T) {
	relay := NewRelay(nil, domain.TrackInfo{ID: "t1", Kind: domain.TrackKindVideo}, func() {})
	live := NewOutTrack(newLocalTrack(t), nil)
	gone := NewOutTrack(newLocalTrack(t), nil)
	gone.MarkDelete()
	relay.AddOutTrack("a", live)
	relay.AddOutTrack("b", gone)

	logger := zerolog.Nop()
	relay.forward(&rtp.Packet{Header: rtp.Header{Version: 2, SequenceNumber: 1}}, &logger)

	if relay.subscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", relay.subscriberCount())
	}
	if _, ok := relay.outTrack("a"); !ok {
		t.Fatalf("live out track was removed")
	}
}

func TestMarkAllDelete(t *testing.T) {
	relay := NewRelay(nil, domain.TrackInfo{ID: "t1"}, func() {})
	ot := NewOutTrack(newLocalTrack(t), nil)
	relay.AddOutTrack("a", ot)

	relay.markAllDelete()
	if ot.GetState() != TrackStateDelete {
		t.Fatalf("out track should be marked for delete")
	}
}

func TestRelayManager_Empty(t *testing.T) {
	m := NewRelayManager()
	if m.HasRelay("x") {
		t.Fatalf("no relay expected")
	}
	if stopped := m.StopRelay("x"); len(stopped) != 0 {
		t.Fatalf("nothing to stop, got %v", stopped)
	}
	if m.Subscribers("x", domain.TrackKindVideo) != 0 {
		t.Fatalf("no subscribers expected")
	}
}
