// Package authority implements the single-writer protocol that keeps every
// client's session document in line with the host's.
//
// The host mutates its document and broadcasts it. Replicas only apply what
// the host sends: full vcsParams snapshots, single-key interaction controls,
// and the snapshot attached to the host's participant record at join time.
// Poll votes travel the other way, addressed to whoever last sent a control.
package authority

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dkeye/Rundown/internal/domain"
	"github.com/dkeye/Rundown/internal/render"
	"github.com/dkeye/Rundown/internal/session"
	"github.com/dkeye/Rundown/internal/tracks"
)

// App message fields.
const (
	FieldVcsParams           = "vcsParams"
	FieldInteractionControl  = "interactionControl"
	FieldInteractionResponse = "interactionResponse"
)

var (
	ErrTransportNotReady = errors.New("authority: transport not ready")
	ErrNoRecipient       = errors.New("authority: no interaction recipient")
	ErrNoRTMPURL         = errors.New("authority: no rtmp url configured")
	ErrInvalidResponse   = errors.New("authority: invalid interaction response")
)

// State is the synchronization state of the local client.
type State int

const (
	StateJoining State = iota
	StateSynchronizing
	StateSynchronized
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateSynchronizing:
		return "synchronizing"
	case StateSynchronized:
		return "synchronized"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Transport is the room connection as seen by the controller.
type Transport interface {
	Ready() bool
	// SendAppMessage sends data to one session id or to domain.BroadcastRecipient.
	SendAppMessage(data any, to string) error
	// SetUserData replaces the sticky payload of the local participant.
	SetUserData(data any) error

	StartRecording(layout session.Layout) error
	UpdateRecording(layout session.Layout) error
	StopRecording() error
	StartLiveStreaming(rtmpURL string, layout session.Layout) error
	UpdateLiveStreaming(layout session.Layout) error
	StopLiveStreaming() error
}

// PollView shows the voting panel on viewers.
type PollView interface {
	SetPollQuestion(q string)
	SetPollVisible(visible bool)
}

type Options struct {
	Transport Transport
	Bridge    render.Bridge
	// PollView is optional.
	PollView PollView
	// LocalSessionID stands for the local camera in slot orderings.
	// Empty when the local role sends no video.
	LocalSessionID string
	// SeedRundown replaces the default rundown items on the host.
	SeedRundown []string
	Logger      zerolog.Logger
}

// Controller is the session context of one client. It owns the document,
// the track registry and the interaction state, and is driven from a single
// goroutine.
type Controller struct {
	role      domain.Role
	doc       *session.Document
	tracks    *tracks.Registry
	transport Transport
	bridge    render.Bridge
	poll      PollView
	localSID  string
	logger    zerolog.Logger

	state                    State
	pendingResponseRecipient string
	participants             map[string]domain.Participant

	recording     bool
	liveStreaming bool
	rtmpURL       string
}

func New(role domain.Role, opts Options) *Controller {
	c := &Controller{
		role:         role,
		doc:          session.New(role),
		tracks:       tracks.NewRegistry(opts.Logger),
		transport:    opts.Transport,
		bridge:       opts.Bridge,
		poll:         opts.PollView,
		localSID:     opts.LocalSessionID,
		logger:       opts.Logger,
		participants: make(map[string]domain.Participant),
	}
	if role.IsAuthority() && opts.SeedRundown != nil {
		_ = c.doc.Set(session.NamespaceVcsParams, string(session.ParamRundownItems), opts.SeedRundown)
	}
	c.bridge.ApplyParameters(session.TransportForm(c.doc.VcsParams).StringMap())
	c.projectSlots()
	return c
}

func (c *Controller) Role() domain.Role { return c.role }

func (c *Controller) State() State { return c.state }

// Document returns the local document. Callers must not mutate it.
func (c *Controller) Document() *session.Document { return c.doc }

// OrderedSlots is the current [host, guest] ordering, "" for an empty slot.
func (c *Controller) OrderedSlots() [2]string {
	return c.tracks.OrderedSlots(c.role, c.localSID)
}

func (c *Controller) PendingResponseRecipient() string { return c.pendingResponseRecipient }

func (c *Controller) Recording() bool     { return c.recording }
func (c *Controller) LiveStreaming() bool { return c.liveStreaming }

// OnJoined is called once the transport has joined the room.
// The host is its own source of truth and publishes right away.
func (c *Controller) OnJoined() {
	if !c.role.IsAuthority() {
		// A snapshot may already have arrived ahead of the join reply.
		if c.state == StateJoining {
			c.state = StateSynchronizing
			c.logger.Info().Str("role", string(c.role)).Msg("joined, waiting for session state")
		}
		return
	}
	c.state = StateSynchronized
	c.bridge.NotifyViewportChanged()
	if err := c.broadcastVcsParams(); err != nil {
		c.logger.Error().Err(err).Msg("initial broadcast failed")
	}
}

// UpdateValue writes value under ns[key] and propagates it. vcsParams
// changes go out as the full mapping; interaction changes go out as that
// single key. A propagation error leaves the local mutation in place, the
// next change resends the whole state.
func (c *Controller) UpdateValue(ns session.Namespace, key string, value any) (*session.Document, error) {
	if err := c.doc.Set(ns, key, value); err != nil {
		c.logger.Warn().Err(err).Str("role", string(c.role)).Str("key", key).Msg("rejected session update")
		return c.doc, err
	}

	switch ns {
	case session.NamespaceInteractions:
		return c.doc, c.broadcastInteractionControl(key, value)
	case session.NamespaceVcsParams:
		err := c.broadcastVcsParams()
		name := session.ParamName(key)
		c.bridge.SetParameter(key, session.TransportValue(name, c.doc.VcsParams[name]))
		return c.doc, err
	}
	return c.doc, nil
}

func (c *Controller) broadcastVcsParams() error {
	if !c.transport.Ready() {
		c.logger.Warn().Msg("broadcastVcsParams: transport not ready")
		return ErrTransportNotReady
	}
	params := session.TransportForm(c.doc.VcsParams).StringMap()
	payload := map[string]any{FieldVcsParams: params}

	var errs []error
	if err := c.transport.SendAppMessage(payload, domain.BroadcastRecipient); err != nil {
		errs = append(errs, fmt.Errorf("broadcast vcsParams: %w", err))
	}
	if c.recording {
		if err := c.transport.UpdateRecording(session.ServerLayout(c.doc.VcsParams, false)); err != nil {
			errs = append(errs, fmt.Errorf("update recording: %w", err))
		}
	}
	if c.liveStreaming {
		if err := c.transport.UpdateLiveStreaming(session.ServerLayout(c.doc.VcsParams, false)); err != nil {
			errs = append(errs, fmt.Errorf("update live streaming: %w", err))
		}
	}
	// Late joiners pick the state up from the host's participant record.
	if err := c.transport.SetUserData(payload); err != nil {
		errs = append(errs, fmt.Errorf("set user data: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		c.logger.Error().Err(err).Msg("broadcastVcsParams")
	}
	return err
}

func (c *Controller) broadcastInteractionControl(key string, value any) error {
	if !c.transport.Ready() {
		c.logger.Warn().Str("key", key).Msg("broadcastInteractionControl: transport not ready")
		return ErrTransportNotReady
	}
	payload := map[string]any{FieldInteractionControl: map[string]any{key: value}}
	if err := c.transport.SendAppMessage(payload, domain.BroadcastRecipient); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("broadcastInteractionControl")
		return fmt.Errorf("broadcast interaction control: %w", err)
	}
	return nil
}

// OnAppMessage dispatches every known field of an inbound app message.
func (c *Controller) OnAppMessage(msg domain.AppMessage) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg.Data, &fields); err != nil {
		c.logger.Warn().Err(err).Str("from", msg.FromID).Msg("malformed app message")
		return
	}
	if raw, ok := fields[FieldVcsParams]; ok {
		c.onRemoteVcsParams(msg.FromID, raw)
	}
	if raw, ok := fields[FieldInteractionControl]; ok {
		c.onRemoteInteractionControl(msg.FromID, raw)
	}
	if raw, ok := fields[FieldInteractionResponse]; ok {
		c.onRemoteInteractionResponse(msg.FromID, raw)
	}
}

func (c *Controller) onRemoteVcsParams(from string, raw json.RawMessage) {
	if c.role.IsAuthority() {
		c.logger.Warn().Str("from", from).Msg("ignoring vcsParams sent to the host")
		return
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil || params == nil {
		c.logger.Warn().Err(err).Str("from", from).Msg("malformed vcsParams")
		return
	}
	c.applySnapshot(params)
}

func (c *Controller) applySnapshot(params map[string]any) {
	p := make(session.Params, len(params))
	for k, v := range params {
		p[session.ParamName(k)] = v
	}
	c.doc.ReplaceVcsParams(p)
	first := c.state != StateSynchronized
	c.state = StateSynchronized
	c.bridge.ApplyParameters(session.TransportForm(c.doc.VcsParams).StringMap())
	if first {
		c.logger.Info().Str("role", string(c.role)).Msg("session state synchronized")
		// The first full layout lands on a surface sized before any state.
		c.bridge.NotifyViewportChanged()
	}
}

func (c *Controller) onRemoteInteractionControl(from string, raw json.RawMessage) {
	if c.role.IsAuthority() {
		c.logger.Warn().Str("from", from).Msg("ignoring interactionControl sent to the host")
		return
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		c.logger.Warn().Err(err).Str("from", from).Msg("malformed interactionControl")
		return
	}
	c.pendingResponseRecipient = from
	for k, v := range data {
		c.doc.Interactions[k] = v
	}
	c.logger.Debug().Str("from", from).Interface("data", data).Msg("remote control data")

	if open, ok := data[session.InteractionPollOpen].(bool); ok && c.poll != nil {
		c.poll.SetPollQuestion(c.doc.PollQuestion())
		c.poll.SetPollVisible(open)
	}
}

type interactionResponse struct {
	Vote *bool `json:"vote"`
}

// onRemoteInteractionResponse counts a vote. Votes are counted whether the
// poll is open or not, and a duplicated delivery counts twice.
func (c *Controller) onRemoteInteractionResponse(from string, raw json.RawMessage) {
	if !c.role.IsAuthority() {
		return
	}
	var resp interactionResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Vote == nil {
		c.logger.Error().Err(errors.Join(ErrInvalidResponse, err)).Str("from", from).RawJSON("data", raw).Msg("invalid data in interaction response")
		return
	}
	name := session.ParamPollNoVotes
	if *resp.Vote {
		name = session.ParamPollYesVotes
	}
	value := session.IntValue(c.doc.VcsParams[name]) + 1
	if _, err := c.UpdateValue(session.NamespaceVcsParams, string(name), value); err != nil {
		c.logger.Warn().Err(err).Str("param", string(name)).Msg("vote counted locally only")
	}
}

// Vote sends a poll answer to the client that opened the poll.
func (c *Controller) Vote(yes bool) error {
	if !c.transport.Ready() {
		c.logger.Error().Msg("sendInteractionResponse: transport not ready")
		return ErrTransportNotReady
	}
	if c.pendingResponseRecipient == "" {
		c.logger.Error().Msg("sendInteractionResponse: recipient not available")
		return ErrNoRecipient
	}
	c.logger.Info().Bool("vote", yes).Str("to", c.pendingResponseRecipient).Msg("voting")
	payload := map[string]any{FieldInteractionResponse: map[string]any{"vote": yes}}
	if err := c.transport.SendAppMessage(payload, c.pendingResponseRecipient); err != nil {
		return fmt.Errorf("send interaction response: %w", err)
	}
	return nil
}

// OnParticipantJoined handles a remote member. A replica recovers the host's
// state from the snapshot attached to its record.
func (c *Controller) OnParticipantJoined(p domain.Participant) {
	c.participants[p.SessionID] = p
	if c.role.IsAuthority() || len(p.UserData) == 0 {
		return
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(p.UserData, &data); err != nil {
		c.logger.Warn().Err(err).Str("sid", p.SessionID).Msg("malformed participant user data")
		return
	}
	if raw, ok := data[FieldVcsParams]; ok {
		c.onRemoteVcsParams(p.SessionID, raw)
	}
}

func (c *Controller) OnParticipantLeft(sessionID string) {
	delete(c.participants, sessionID)
}

// OnTrackStarted registers a remote video track under the participant's role.
func (c *Controller) OnTrackStarted(p domain.Participant, track domain.TrackInfo) {
	if track.Kind != domain.TrackKindVideo {
		return
	}
	c.participants[p.SessionID] = p
	if c.tracks.OnTrackAvailable(p.UserName, p.SessionID, track) {
		c.projectSlots()
	}
}

func (c *Controller) OnTrackStopped(track domain.TrackInfo) {
	if track.Kind != domain.TrackKindVideo {
		return
	}
	if c.tracks.OnTrackLost(track) {
		c.projectSlots()
	}
}

// projectSlots recomputes the full slot assignment. Empty slots are not
// passed on.
func (c *Controller) projectSlots() {
	ordered := c.OrderedSlots()
	slots := make([]render.Slot, 0, len(ordered))
	for _, sid := range ordered {
		if sid == "" {
			continue
		}
		if sid == c.localSID {
			slots = append(slots, render.Slot{SessionID: sid, DisplayName: string(c.role), Local: true})
			continue
		}
		rec, ok := c.tracks.BySession(sid)
		if !ok {
			continue
		}
		slots = append(slots, render.Slot{
			SessionID:   sid,
			TrackID:     rec.Track.ID,
			DisplayName: c.participants[sid].UserName,
		})
	}
	c.bridge.AssignSlots(slots)
}
