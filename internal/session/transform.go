package session

import (
	"strings"
)

// fullWidthComma looks like a comma but is not parsed as a list separator
// by the composition.
const fullWidthComma = "，"

// PresetCustom and CompositionID describe the cloud composition the
// recording and live stream run.
const (
	PresetCustom  = "custom"
	CompositionID = "daily:rundown"
)

// TransportForm projects params onto the value types the renderer and the
// recording pipeline accept (string, number, bool).
// The projection is one-way: lists collapse into a single string and are
// never expanded back. Applying it to its own output is the identity.
func TransportForm(p Params) Params {
	out := make(Params, len(p))
	for name, v := range p {
		out[name] = TransportValue(name, v)
	}
	return out
}

// TransportValue projects a single param value.
func TransportValue(name ParamName, v any) any {
	if name == ParamRundownItems {
		if items, ok := v.([]string); ok {
			return joinItems(items)
		}
	}
	return v
}

// joinItems joins with plain commas after replacing commas inside items.
func joinItems(items []string) string {
	escaped := make([]string, len(items))
	for i, s := range items {
		escaped[i] = strings.ReplaceAll(s, ",", fullWidthComma)
	}
	return strings.Join(escaped, ",")
}

// StringMap flattens params for consumers keyed by plain strings.
func (p Params) StringMap() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[string(k)] = v
	}
	return out
}

// Layout is the payload sent when starting or updating a recording or
// live stream.
type Layout struct {
	Preset            string         `json:"preset"`
	CompositionParams map[string]any `json:"composition_params"`
	CompositionID     string         `json:"composition_id,omitempty"`
}

// ServerLayout builds the layout for the given params. The composition id
// is only carried when the recording or stream starts.
func ServerLayout(p Params, start bool) Layout {
	l := Layout{
		Preset:            PresetCustom,
		CompositionParams: TransportForm(p).StringMap(),
	}
	if start {
		l.CompositionID = CompositionID
	}
	return l
}
