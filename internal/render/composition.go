package render

import (
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkeye/Rundown/internal/domain"
	"github.com/dkeye/Rundown/internal/session"
)

const (
	MaxVideoInputSlots = 20
	LocalVideoInputID  = "livecam0"
	// LocalSessionID stands for the local camera in slot orderings.
	LocalSessionID = "local"
)

// Size is a pixel size.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

var DefaultViewport = Size{W: 1920, H: 1080}

type source struct {
	id          string
	sessionID   string
	trackID     string
	displayName string
}

// Composition keeps the renderer-side state: param values, the ordered video
// sources and the composition's input slots. Slot updates are diffed against
// the previous assignment so the compositor is only touched on change.
type Composition struct {
	mu sync.RWMutex

	out    Output
	logger zerolog.Logger

	params         map[string]any
	viewport       Size
	display        Size
	flipToPortrait bool
	scaleFactor    float64
	hasLocalVideo  bool

	sources []source
	inputs  [MaxVideoInputSlots]InputSlot

	coveredUntil time.Time
	now          func() time.Time
}

// NewComposition starts a composition for the local role. Non-host displays
// flip to portrait when their container is taller than wide.
func NewComposition(role domain.Role, out Output, logger zerolog.Logger) *Composition {
	c := &Composition{
		out:            out,
		logger:         logger,
		params:         maps.Clone(session.InitialParams),
		viewport:       DefaultViewport,
		flipToPortrait: role != domain.RoleHost,
		hasLocalVideo:  role.HasVideo(),
		scaleFactor:    1,
		now:            time.Now,
	}
	for i := range c.inputs {
		c.setInput(i, false, "", "")
	}
	if c.hasLocalVideo {
		c.setInput(0, true, LocalVideoInputID, "")
		c.sources = []source{{id: LocalVideoInputID, displayName: ""}}
	}
	for k, v := range c.params {
		c.out.SetParamValue(k, v)
	}
	c.out.SetActiveVideoInputSlots(c.inputSlice())
	return c
}

// LocalSessionID returns the synthetic id of the local camera, or "" when
// the role has no local video.
func (c *Composition) LocalSessionID() string {
	if c.hasLocalVideo {
		return LocalSessionID
	}
	return ""
}

func (c *Composition) SetParameter(name string, value any) {
	if value == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params[name] = value
	c.out.SetParamValue(name, value)
}

// ApplyParameters merges params over the current values and resends all of
// them, so the renderer ends up in the same state as a fresh start.
func (c *Composition) ApplyParameters(params map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.params, params)
	for k, v := range c.params {
		c.out.SetParamValue(k, v)
	}
}

func (c *Composition) AssignSlots(slots []Slot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]source, 0, len(slots))
	for _, s := range slots {
		if s.Local {
			if !c.hasLocalVideo {
				c.logger.Warn().Str("sid", s.SessionID).Msg("local session in slots but local video not available")
				next = append(next, source{})
				continue
			}
			name := s.DisplayName
			if name == "" {
				name = "Local"
			}
			next = append(next, source{id: LocalVideoInputID, sessionID: s.SessionID, displayName: name})
			continue
		}

		prev, found := c.findSource(s.SessionID)
		if found && prev.trackID == s.TrackID {
			prev.displayName = s.DisplayName
			next = append(next, prev)
			continue
		}
		if found {
			c.logger.Info().Str("sid", s.SessionID).Msg("track has changed")
		}
		next = append(next, source{
			id:          "videotrack_" + s.TrackID,
			sessionID:   s.SessionID,
			trackID:     s.TrackID,
			displayName: s.DisplayName,
		})
	}

	if !c.changed(next) {
		return
	}
	c.sources = next
	for i := range c.inputs {
		if i < len(next) {
			c.setInput(i, true, next[i].id, next[i].displayName)
		} else {
			c.setInput(i, false, "", "")
		}
	}
	c.logger.Info().Int("slots", len(next)).Msg("updating video slots with ordering")
	c.out.SetActiveVideoInputSlots(c.inputSlice())

	// New video layers need a rescale to land in the right positions.
	c.rescale()
}

func (c *Composition) NotifyViewportChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rescale()
}

// SetDisplaySize reports the size of the surface the composition is drawn
// into.
func (c *Composition) SetDisplaySize(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display = Size{W: w, H: h}
	if c.flipToPortrait && w > 0 && h > 0 {
		usePortrait := w < h
		currentlyPortrait := c.viewport.W < c.viewport.H
		if usePortrait != currentlyPortrait {
			c.viewport = Size{W: c.viewport.H, H: c.viewport.W}
			c.logger.Info().Int("w", c.viewport.W).Int("h", c.viewport.H).Msg("restarting with viewport size")
			for k, v := range c.params {
				c.out.SetParamValue(k, v)
			}
			c.out.SetActiveVideoInputSlots(c.inputSlice())
		}
	}
	c.rescale()
}

// Cover masks the surface for d, giving a replica time to receive the
// authority's state before anything is shown. A covered snapshot carries
// neither params nor inputs.
func (c *Composition) Cover(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coveredUntil = c.now().Add(d)
}

func (c *Composition) Covered() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().Before(c.coveredUntil)
}

// Snapshot is a read-only view of the composition.
type Snapshot struct {
	Params      map[string]any `json:"params,omitempty"`
	Inputs      []InputSlot    `json:"inputs,omitempty"`
	Viewport    Size           `json:"viewport"`
	ScaleFactor float64        `json:"scale_factor"`
	Covered     bool           `json:"covered"`
}

func (c *Composition) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{
		Viewport:    c.viewport,
		ScaleFactor: c.scaleFactor,
		Covered:     c.now().Before(c.coveredUntil),
	}
	if !snap.Covered {
		snap.Params = maps.Clone(c.params)
		snap.Inputs = c.inputSlice()
	}
	return snap
}

func (c *Composition) rescale() {
	if c.display.W == 0 || c.display.H == 0 {
		return
	}
	asp := float64(c.viewport.W) / float64(c.viewport.H)
	if asp >= 1 {
		c.scaleFactor = float64(c.display.W) / float64(c.viewport.W)
	} else {
		c.scaleFactor = float64(c.display.H) / float64(c.viewport.H)
	}
	c.out.SetScaleFactor(c.scaleFactor)
}

func (c *Composition) changed(next []source) bool {
	if len(next) != len(c.sources) {
		return true
	}
	for i := range next {
		if next[i].id != c.sources[i].id || next[i].displayName != c.sources[i].displayName {
			return true
		}
	}
	return false
}

func (c *Composition) findSource(sessionID string) (source, bool) {
	for _, s := range c.sources {
		if s.sessionID == sessionID && s.trackID != "" {
			return s, true
		}
	}
	return source{}, false
}

func (c *Composition) setInput(idx int, active bool, id, name string) {
	if name == "" {
		name = "Participant " + strconv.Itoa(idx+1)
	}
	c.inputs[idx] = InputSlot{ID: id, Active: active, Type: "camera", DisplayName: name}
}

func (c *Composition) inputSlice() []InputSlot {
	out := make([]InputSlot, len(c.inputs))
	copy(out, c.inputs[:])
	return out
}
