package core

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/dkeye/Rundown/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room   *domain.Room
	mu     sync.RWMutex
	bySID  map[SessionID]MemberSession
	joined map[SessionID]uint64
	seq    uint64
	rec    domain.Recording
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:   room,
		bySID:  make(map[SessionID]MemberSession),
		joined: make(map[SessionID]uint64),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) AddMember(sid SessionID, ms MemberSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySID[sid] = ms
	r.seq++
	r.joined[sid] = r.seq
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("sid", string(sid)).Msg("member added")
}

func (r *roomImpl) RemoveMember(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bySID, sid)
	delete(r.joined, sid)
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("sid", string(sid)).Msg("member removed")
}

func (r *roomImpl) Broadcast(from SessionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for sid, m := range r.bySID {
		if sid == from {
			continue
		}
		sig := m.Signal()
		if sig == nil {
			continue
		}
		if err := sig.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) SendTo(to SessionID, data Frame) error {
	r.mu.RLock()
	m, ok := r.bySID[to]
	r.mu.RUnlock()
	if !ok || m.Signal() == nil {
		return ErrMemberNotFound
	}
	return m.Signal().TrySend(data)
}

// SetUserData replaces the sticky payload of a member.
func (r *roomImpl) SetUserData(sid SessionID, data json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.bySID[sid]
	if !ok {
		return ErrMemberNotFound
	}
	m.Meta().UserData = append(json.RawMessage(nil), data...)
	return nil
}

// Participants is ordered by join time.
func (r *roomImpl) Participants() []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sids := make([]SessionID, 0, len(r.bySID))
	for sid := range r.bySID {
		sids = append(sids, sid)
	}
	sort.Slice(sids, func(i, j int) bool { return r.joined[sids[i]] < r.joined[sids[j]] })

	out := make([]domain.Participant, 0, len(sids))
	for _, sid := range sids {
		out = append(out, participantOf(sid, r.bySID[sid]))
	}
	return out
}

func (r *roomImpl) Participant(sid SessionID) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.bySID[sid]
	if !ok {
		return domain.Participant{}, false
	}
	return participantOf(sid, m), true
}

func participantOf(sid SessionID, m MemberSession) domain.Participant {
	meta := m.Meta()
	return domain.Participant{
		SessionID: string(sid),
		UserName:  meta.User.Username,
		UserData:  meta.UserData,
	}
}

func (r *roomImpl) Recording() domain.Recording {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rec
}

func (r *roomImpl) ModifyRecording(fn func(*domain.Recording) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.rec
	if err := fn(&rec); err != nil {
		return err
	}
	r.rec = rec
	return nil
}
