package render

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkeye/Rundown/internal/domain"
)

type recordingOutput struct {
	params     map[string]any
	slotWrites int
	lastSlots  []InputSlot
	scale      float64
}

func newRecordingOutput() *recordingOutput {
	return &recordingOutput{params: make(map[string]any)}
}

func (o *recordingOutput) SetParamValue(id string, value any) { o.params[id] = value }

func (o *recordingOutput) SetActiveVideoInputSlots(slots []InputSlot) {
	o.slotWrites++
	o.lastSlots = slots
}

func (o *recordingOutput) SetScaleFactor(f float64) { o.scale = f }

func activeIDs(slots []InputSlot) []string {
	var ids []string
	for _, s := range slots {
		if s.Active {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func TestNewComposition_Defaults(t *testing.T) {
	out := newRecordingOutput()
	c := NewComposition(domain.RoleHost, out, zerolog.Nop())

	if out.params["textStyles.fontFamily"] != "Teko" {
		t.Fatalf("initial params not pushed: %v", out.params)
	}
	if ids := activeIDs(out.lastSlots); len(ids) != 1 || ids[0] != LocalVideoInputID {
		t.Fatalf("host should start with the local camera, got %v", ids)
	}
	if len(out.lastSlots) != MaxVideoInputSlots {
		t.Fatalf("expected %d input slots, got %d", MaxVideoInputSlots, len(out.lastSlots))
	}
	if c.LocalSessionID() != LocalSessionID {
		t.Fatalf("host has a local session id")
	}

	viewer := NewComposition(domain.RoleViewer, newRecordingOutput(), zerolog.Nop())
	if viewer.LocalSessionID() != "" {
		t.Fatalf("viewer sends no video")
	}
}

func TestAssignSlots_Diffs(t *testing.T) {
	out := newRecordingOutput()
	c := NewComposition(domain.RoleHost, out, zerolog.Nop())
	writes := out.slotWrites

	slots := []Slot{
		{SessionID: LocalSessionID, Local: true, DisplayName: "host"},
		{SessionID: "g1", TrackID: "t1", DisplayName: "guest"},
	}
	c.AssignSlots(slots)
	if out.slotWrites != writes+1 {
		t.Fatalf("new slot set must be written")
	}
	if ids := activeIDs(out.lastSlots); len(ids) != 2 || ids[1] != "videotrack_t1" {
		t.Fatalf("unexpected active inputs %v", ids)
	}

	// Same sources again: nothing to do.
	c.AssignSlots(slots)
	if out.slotWrites != writes+1 {
		t.Fatalf("unchanged slots must not be rewritten")
	}

	// The guest republished its camera.
	slots[1].TrackID = "t2"
	c.AssignSlots(slots)
	if out.slotWrites != writes+2 {
		t.Fatalf("changed track must be rewritten")
	}
	if ids := activeIDs(out.lastSlots); ids[1] != "videotrack_t2" {
		t.Fatalf("unexpected active inputs %v", ids)
	}

	c.AssignSlots(slots[:1])
	if ids := activeIDs(out.lastSlots); len(ids) != 1 {
		t.Fatalf("guest slot should be released, got %v", ids)
	}
}

func TestApplyParameters_Merges(t *testing.T) {
	out := newRecordingOutput()
	c := NewComposition(domain.RoleViewer, out, zerolog.Nop())

	c.ApplyParameters(map[string]any{"video.guestName": "Jane"})
	snap := c.Snapshot()
	if snap.Params["video.guestName"] != "Jane" || snap.Params["textStyles.fontFamily"] != "Teko" {
		t.Fatalf("params not merged: %v", snap.Params)
	}

	c.SetParameter("video.guestName", "John")
	if out.params["video.guestName"] != "John" {
		t.Fatalf("param not pushed")
	}
	c.SetParameter("video.guestName", nil)
	if c.Snapshot().Params["video.guestName"] != "John" {
		t.Fatalf("nil values are ignored")
	}
}

func TestScaleFactor(t *testing.T) {
	cases := []struct {
		name     string
		role     domain.Role
		w, h     int
		viewport Size
		scale    float64
	}{
		{"host landscape", domain.RoleHost, 960, 540, Size{1920, 1080}, 0.5},
		{"host never flips", domain.RoleHost, 540, 960, Size{1920, 1080}, 540.0 / 1920},
		{"viewer flips to portrait", domain.RoleViewer, 540, 960, Size{1080, 1920}, 0.5},
		{"guest landscape", domain.RoleGuest, 1920, 1080, Size{1920, 1080}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := newRecordingOutput()
			c := NewComposition(tc.role, out, zerolog.Nop())
			c.SetDisplaySize(tc.w, tc.h)

			snap := c.Snapshot()
			if snap.Viewport != tc.viewport {
				t.Fatalf("viewport = %v, want %v", snap.Viewport, tc.viewport)
			}
			if snap.ScaleFactor != tc.scale || out.scale != tc.scale {
				t.Fatalf("scale = %v (out %v), want %v", snap.ScaleFactor, out.scale, tc.scale)
			}
		})
	}
}

func TestCover(t *testing.T) {
	c := NewComposition(domain.RoleViewer, newRecordingOutput(), zerolog.Nop())
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Cover(time.Second)
	if !c.Covered() {
		t.Fatalf("should be covered")
	}
	if snap := c.Snapshot(); snap.Params != nil || snap.Inputs != nil {
		t.Fatalf("covered surface must not show anything: %+v", snap)
	}
	now = now.Add(2 * time.Second)
	snap := c.Snapshot()
	if c.Covered() || snap.Covered {
		t.Fatalf("cover should have expired")
	}
	if len(snap.Inputs) != MaxVideoInputSlots || snap.Params["textStyles.fontFamily"] != "Teko" {
		t.Fatalf("uncovered surface should show the composition: %+v", snap)
	}
}

func TestAssignSlots_RenamedParticipant(t *testing.T) {
	out := newRecordingOutput()
	c := NewComposition(domain.RoleViewer, out, zerolog.Nop())
	slots := []Slot{{SessionID: "g1", TrackID: "t1", DisplayName: "guest"}}
	c.AssignSlots(slots)
	writes := out.slotWrites

	slots[0].DisplayName = "Jane"
	c.AssignSlots(slots)
	if out.slotWrites != writes+1 {
		t.Fatalf("a new display name must be written")
	}
	if out.lastSlots[0].ID != "videotrack_t1" || out.lastSlots[0].DisplayName != "Jane" {
		t.Fatalf("unexpected first input %+v", out.lastSlots[0])
	}
}

func TestDefaultInputNames(t *testing.T) {
	out := newRecordingOutput()
	NewComposition(domain.RoleViewer, out, zerolog.Nop())
	if got := out.lastSlots[11].DisplayName; got != "Participant 12" {
		t.Fatalf("input 12 name = %q", got)
	}
}
