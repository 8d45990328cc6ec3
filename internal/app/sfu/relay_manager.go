package sfu

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// relayKey allows one audio and one video relay per publisher.
type relayKey struct {
	SID  core.SessionID
	Kind string
}

type RelayManager struct {
	mu     sync.RWMutex
	relays map[relayKey]*Relay
}

func NewRelayManager() *RelayManager {
	return &RelayManager{
		relays: make(map[relayKey]*Relay),
	}
}

// TrackInfoOf describes a remote track for signaling.
func TrackInfoOf(track *webrtc.TrackRemote) domain.TrackInfo {
	return domain.TrackInfo{
		ID:       track.ID(),
		Kind:     track.Kind().String(),
		StreamID: track.StreamID(),
	}
}

// StartRelay creates a new Relay for the given publisher track and starts its loop.
// A relay of the same kind already running for sid is replaced and returned.
func (m *RelayManager) StartRelay(ctx context.Context, sid core.SessionID, track *webrtc.TrackRemote) (replaced *domain.TrackInfo) {
	info := TrackInfoOf(track)
	logger := log.With().
		Str("module", "relay").
		Str("sid", string(sid)).
		Str("kind", info.Kind).
		Logger()

	relayCtx, cancel := context.WithCancel(ctx)
	relay := NewRelay(track, info, cancel)
	key := relayKey{SID: sid, Kind: info.Kind}

	m.mu.Lock()
	if old, ok := m.relays[key]; ok {
		logger.Info().Str("old_track", old.Info.ID).Msg("replacing existing relay for sid")
		old.markAllDelete()
		if old.cancel != nil {
			old.cancel()
		}
		prev := old.Info
		replaced = &prev
	}
	m.relays[key] = relay
	m.mu.Unlock()

	logger.Info().Str("track_id", info.ID).Msg("starting relay loop")

	go relay.loop(relayCtx, &logger)
	return replaced
}

// Subscribe forwards the publisher's track of src's kind to dst.
func (m *RelayManager) Subscribe(srcSID, dstSID core.SessionID, dst core.MediaConnection, src *webrtc.TrackRemote) error {
	key := relayKey{SID: srcSID, Kind: src.Kind().String()}
	m.mu.RLock()
	relay, ok := m.relays[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no %s relay for %s", key.Kind, srcSID)
	}
	if ot, ok := relay.outTrack(dstSID); ok && ot.GetState() == TrackStateOk {
		return nil
	}

	local, err := webrtc.NewTrackLocalStaticRTP(src.Codec().RTPCodecCapability, src.ID(), src.StreamID())
	if err != nil {
		return fmt.Errorf("new local track: %w", err)
	}
	sender, err := dst.AddLocalTrack(local)
	if err != nil {
		return fmt.Errorf("add local track: %w", err)
	}
	relay.AddOutTrack(dstSID, NewOutTrack(local, sender))
	log.Debug().Str("module", "relay").Str("src", string(srcSID)).Str("dst", string(dstSID)).Str("kind", key.Kind).Msg("subscribed")
	return nil
}

// MarkSubscriberDelete stops forwarding every track of srcSID to dstSID.
func (m *RelayManager) MarkSubscriberDelete(srcSID, dstSID core.SessionID) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for key, relay := range m.relays {
		if key.SID != srcSID {
			continue
		}
		if ot, ok := relay.outTrack(dstSID); ok {
			ot.MarkDelete()
		}
	}
}

// StopRelay stops every relay of srcSID and returns the tracks that stopped.
func (m *RelayManager) StopRelay(srcSID core.SessionID) []domain.TrackInfo {
	m.mu.Lock()
	var stopped []*Relay
	for key, relay := range m.relays {
		if key.SID == srcSID {
			stopped = append(stopped, relay)
			delete(m.relays, key)
		}
	}
	m.mu.Unlock()

	infos := make([]domain.TrackInfo, 0, len(stopped))
	for _, relay := range stopped {
		relay.markAllDelete()
		if relay.cancel != nil {
			relay.cancel()
		}
		infos = append(infos, relay.Info)
	}
	return infos
}

// HasRelay reports whether sid publishes any track.
func (m *RelayManager) HasRelay(sid core.SessionID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for key := range m.relays {
		if key.SID == sid {
			return true
		}
	}
	return false
}

// SrcTracks returns the published tracks of sid.
func (m *RelayManager) SrcTracks(sid core.SessionID) []*webrtc.TrackRemote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*webrtc.TrackRemote
	for key, relay := range m.relays {
		if key.SID == sid {
			out = append(out, relay.Src)
		}
	}
	return out
}

// Published returns the track infos of sid.
func (m *RelayManager) Published(sid core.SessionID) []domain.TrackInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.TrackInfo
	for key, relay := range m.relays {
		if key.SID == sid {
			out = append(out, relay.Info)
		}
	}
	return out
}

// Subscribers counts the subscribers of sid's relay of kind.
func (m *RelayManager) Subscribers(sid core.SessionID, kind string) int {
	m.mu.RLock()
	relay, ok := m.relays[relayKey{SID: sid, Kind: kind}]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return relay.subscriberCount()
}
