package tracks

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/dkeye/Rundown/internal/domain"
)

func newTestRegistry() *Registry {
	return NewRegistry(zerolog.Nop())
}

func video(id string) domain.TrackInfo {
	return domain.TrackInfo{ID: id, Kind: domain.TrackKindVideo}
}

func TestOnTrackAvailable_RejectsUnknownRole(t *testing.T) {
	r := newTestRegistry()
	if r.OnTrackAvailable("producer", "p1", video("t1")) {
		t.Fatalf("unknown role must be rejected")
	}
	if r.Len() != 0 {
		t.Fatalf("registry should stay empty")
	}
}

func TestOnTrackAvailable_ReplacesPerRole(t *testing.T) {
	r := newTestRegistry()
	r.OnTrackAvailable("guest", "g1", video("t1"))
	r.OnTrackAvailable("guest", "g2", video("t2"))

	if r.Len() != 1 {
		t.Fatalf("expected one record per role, got %d", r.Len())
	}
	rec, ok := r.ByRole(domain.RoleGuest)
	if !ok || rec.SessionID != "g2" || rec.Track.ID != "t2" {
		t.Fatalf("expected replaced record, got %+v", rec)
	}
}

func TestOnTrackLost(t *testing.T) {
	r := newTestRegistry()
	r.OnTrackAvailable("guest", "g1", video("t1"))
	r.OnTrackAvailable("guest", "g2", video("t2"))

	// t1 belonged to a superseded record.
	if r.OnTrackLost(video("t1")) {
		t.Fatalf("stale track must be a no-op")
	}
	if !r.OnTrackLost(video("t2")) {
		t.Fatalf("matching track must be removed")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry")
	}
}

func TestOrderedSlots(t *testing.T) {
	cases := []struct {
		name      string
		localRole domain.Role
		localSID  string
		setup     func(r *Registry)
		want      [2]string
	}{
		{
			name:      "host alone",
			localRole: domain.RoleHost,
			localSID:  "local",
			want:      [2]string{"local", ""},
		},
		{
			name:      "host with guest",
			localRole: domain.RoleHost,
			localSID:  "local",
			setup:     func(r *Registry) { r.OnTrackAvailable("guest", "g1", video("t1")) },
			want:      [2]string{"local", "g1"},
		},
		{
			name:      "guest sees host",
			localRole: domain.RoleGuest,
			localSID:  "local",
			setup:     func(r *Registry) { r.OnTrackAvailable("host", "h1", video("t1")) },
			want:      [2]string{"h1", "local"},
		},
		{
			name:      "viewer sees both",
			localRole: domain.RoleViewer,
			localSID:  "",
			setup: func(r *Registry) {
				r.OnTrackAvailable("host", "h1", video("t1"))
				r.OnTrackAvailable("guest", "g1", video("t2"))
			},
			want: [2]string{"h1", "g1"},
		},
		{
			name:      "viewer tracks never take a slot",
			localRole: domain.RoleHost,
			localSID:  "local",
			setup:     func(r *Registry) { r.OnTrackAvailable("viewer", "v1", video("t3")) },
			want:      [2]string{"local", ""},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRegistry()
			if tc.setup != nil {
				tc.setup(r)
			}
			if got := r.OrderedSlots(tc.localRole, tc.localSID); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBySession(t *testing.T) {
	r := newTestRegistry()
	r.OnTrackAvailable("host", "h1", video("t1"))

	if rec, ok := r.BySession("h1"); !ok || rec.Role != domain.RoleHost {
		t.Fatalf("expected host record, got %+v %v", rec, ok)
	}
	if _, ok := r.BySession("nobody"); ok {
		t.Fatalf("unexpected record")
	}
}
