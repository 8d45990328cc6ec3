// Package tracks keeps the remote video track of each participant role and
// orders them into the composition's video slots.
package tracks

import (
	"github.com/rs/zerolog"

	"github.com/dkeye/Rundown/internal/domain"
)

// Record is the known video source of one role. The track is owned by the
// transport; the registry only keeps a reference.
type Record struct {
	Role      domain.Role
	SessionID string
	Track     domain.TrackInfo
}

// Registry maps roles to their current video record.
// At most one record exists per role.
type Registry struct {
	byRole map[domain.Role]Record
	logger zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		byRole: make(map[domain.Role]Record),
		logger: logger,
	}
}

// OnTrackAvailable inserts or replaces the record of role.
// Roles outside the known set are logged and ignored.
func (r *Registry) OnTrackAvailable(role string, sessionID string, track domain.TrackInfo) bool {
	parsed, ok := domain.ParseRole(role)
	if !ok {
		r.logger.Warn().Str("role", role).Str("sid", sessionID).Msg("remote participant with invalid role")
		return false
	}
	r.byRole[parsed] = Record{Role: parsed, SessionID: sessionID, Track: track}
	r.logger.Info().Str("role", role).Str("sid", sessionID).Str("track_id", track.ID).Msg("got remote participant")
	return true
}

// OnTrackLost drops the record whose track matches. A track belonging to a
// record that was already replaced is a silent no-op.
func (r *Registry) OnTrackLost(track domain.TrackInfo) bool {
	for role, rec := range r.byRole {
		if rec.Track.ID == track.ID {
			delete(r.byRole, role)
			r.logger.Info().Str("role", string(role)).Str("track_id", track.ID).Msg("removing remote participant")
			return true
		}
	}
	return false
}

// OrderedSlots returns [host, guest]. Each entry is localSessionID when the
// local role owns that slot, else the remote record's session id, else "".
func (r *Registry) OrderedSlots(localRole domain.Role, localSessionID string) [2]string {
	return [2]string{
		r.slotFor(domain.RoleHost, localRole, localSessionID),
		r.slotFor(domain.RoleGuest, localRole, localSessionID),
	}
}

func (r *Registry) slotFor(slotRole, localRole domain.Role, localSessionID string) string {
	if localRole == slotRole {
		return localSessionID
	}
	if rec, ok := r.byRole[slotRole]; ok {
		return rec.SessionID
	}
	return ""
}

// BySession finds the record of a remote session.
func (r *Registry) BySession(sessionID string) (Record, bool) {
	for _, rec := range r.byRole {
		if rec.SessionID == sessionID {
			return rec, true
		}
	}
	return Record{}, false
}

func (r *Registry) ByRole(role domain.Role) (Record, bool) {
	rec, ok := r.byRole[role]
	return rec, ok
}

func (r *Registry) Len() int { return len(r.byRole) }
