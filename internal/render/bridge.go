// Package render projects session params and video slots onto the
// composition that draws the broadcast.
package render

import "github.com/rs/zerolog"

// Slot assigns one video source to a display position.
type Slot struct {
	SessionID   string
	TrackID     string
	DisplayName string
	Local       bool
}

// Bridge is what the session core drives. Params are always in transport
// form and at most two slots are assigned per call.
type Bridge interface {
	SetParameter(name string, value any)
	ApplyParameters(params map[string]any)
	AssignSlots(slots []Slot)
	NotifyViewportChanged()
}

// InputSlot is one of the composition's video inputs.
type InputSlot struct {
	ID          string `json:"id"`
	Active      bool   `json:"active"`
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
}

// Output is the compositor runtime the Composition pushes to.
type Output interface {
	SetParamValue(id string, value any)
	SetActiveVideoInputSlots(slots []InputSlot)
	SetScaleFactor(f float64)
}

// LogOutput writes every compositor call to the log.
type LogOutput struct {
	Logger zerolog.Logger
}

func (o LogOutput) SetParamValue(id string, value any) {
	o.Logger.Debug().Str("param", id).Interface("value", value).Msg("set param")
}

func (o LogOutput) SetActiveVideoInputSlots(slots []InputSlot) {
	active := 0
	for _, s := range slots {
		if s.Active {
			active++
		}
	}
	o.Logger.Info().Int("active", active).Msg("video input slots updated")
}

func (o LogOutput) SetScaleFactor(f float64) {
	o.Logger.Debug().Float64("scale", f).Msg("scale factor")
}
