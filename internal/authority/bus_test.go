package authority

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dkeye/Rundown/internal/domain"
	"github.com/dkeye/Rundown/internal/render"
	"github.com/dkeye/Rundown/internal/session"
)

// envelope is one app message in flight on the bus.
type envelope struct {
	from string
	to   string
	data json.RawMessage
}

// bus connects several controllers in one process. Messages are queued on
// send and delivered in order by flush.
type bus struct {
	t       *testing.T
	members map[string]*member
	order   []string
	queue   []envelope
	sent    []envelope
}

type member struct {
	sid       string
	ctrl      *Controller
	transport *busTransport
	bridge    *fakeBridge
	poll      *fakePoll
}

func newBus(t *testing.T) *bus {
	return &bus{t: t, members: make(map[string]*member)}
}

// join creates a controller for role and connects it as sid.
func (b *bus) join(sid string, role domain.Role) *member {
	b.t.Helper()
	// Whatever is in flight was sent before the newcomer existed.
	b.flush()
	m := &member{
		sid:       sid,
		transport: &busTransport{bus: b, sid: sid, ready: true},
		bridge:    newFakeBridge(),
		poll:      &fakePoll{},
	}
	local := ""
	if role.HasVideo() {
		local = render.LocalSessionID
	}
	m.ctrl = New(role, Options{
		Transport:      m.transport,
		Bridge:         m.bridge,
		PollView:       m.poll,
		LocalSessionID: local,
		Logger:         zerolog.Nop(),
	})
	m.ctrl.OnJoined()

	// Existing members are announced to the newcomer with their user data.
	for _, other := range b.order {
		o := b.members[other]
		m.ctrl.OnParticipantJoined(domain.Participant{
			SessionID: o.sid,
			UserName:  string(o.ctrl.Role()),
			UserData:  o.transport.userData,
		})
	}
	b.members[sid] = m
	b.order = append(b.order, sid)
	return m
}

// flush delivers queued messages until the bus is quiet.
func (b *bus) flush() {
	for len(b.queue) > 0 {
		env := b.queue[0]
		b.queue = b.queue[1:]
		b.deliver(env)
	}
}

func (b *bus) deliver(env envelope) {
	msg := domain.AppMessage{Type: domain.MsgTypeAppMessage, FromID: env.from, Data: env.data}
	if env.to == domain.BroadcastRecipient {
		for _, sid := range b.order {
			if sid != env.from {
				b.members[sid].ctrl.OnAppMessage(msg)
			}
		}
		return
	}
	if m, ok := b.members[env.to]; ok {
		m.ctrl.OnAppMessage(msg)
	}
}

// sentBy returns the messages sent by sid, in order.
func (b *bus) sentBy(sid string) []envelope {
	var out []envelope
	for _, e := range b.sent {
		if e.from == sid {
			out = append(out, e)
		}
	}
	return out
}

type busTransport struct {
	bus      *bus
	sid      string
	ready    bool
	userData json.RawMessage

	recordingStarts []session.Layout
	recordingUpdate []session.Layout
	recordingStops  int
	streamStarts    []string
	streamUpdates   []session.Layout
	streamStops     int
}

func (t *busTransport) Ready() bool { return t.ready }

func (t *busTransport) SendAppMessage(data any, to string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	env := envelope{from: t.sid, to: to, data: raw}
	t.bus.sent = append(t.bus.sent, env)
	t.bus.queue = append(t.bus.queue, env)
	return nil
}

func (t *busTransport) SetUserData(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	t.userData = raw
	return nil
}

func (t *busTransport) StartRecording(layout session.Layout) error {
	t.recordingStarts = append(t.recordingStarts, layout)
	return nil
}

func (t *busTransport) UpdateRecording(layout session.Layout) error {
	t.recordingUpdate = append(t.recordingUpdate, layout)
	return nil
}

func (t *busTransport) StopRecording() error {
	t.recordingStops++
	return nil
}

func (t *busTransport) StartLiveStreaming(rtmpURL string, layout session.Layout) error {
	t.streamStarts = append(t.streamStarts, rtmpURL)
	return nil
}

func (t *busTransport) UpdateLiveStreaming(layout session.Layout) error {
	t.streamUpdates = append(t.streamUpdates, layout)
	return nil
}

func (t *busTransport) StopLiveStreaming() error {
	t.streamStops++
	return nil
}

type fakeBridge struct {
	params    map[string]any
	sets      int
	applies   int
	slotCalls [][]render.Slot
	viewport  int
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{params: make(map[string]any)}
}

func (f *fakeBridge) SetParameter(name string, value any) {
	f.sets++
	f.params[name] = value
}

func (f *fakeBridge) ApplyParameters(params map[string]any) {
	f.applies++
	for k, v := range params {
		f.params[k] = v
	}
}

func (f *fakeBridge) AssignSlots(slots []render.Slot) {
	f.slotCalls = append(f.slotCalls, slots)
}

func (f *fakeBridge) NotifyViewportChanged() { f.viewport++ }

func (f *fakeBridge) lastSlots() []render.Slot {
	if len(f.slotCalls) == 0 {
		return nil
	}
	return f.slotCalls[len(f.slotCalls)-1]
}

type fakePoll struct {
	question string
	visible  bool
}

func (p *fakePoll) SetPollQuestion(q string)    { p.question = q }
func (p *fakePoll) SetPollVisible(visible bool) { p.visible = visible }

// decodeVcsParams extracts the vcsParams field of an app message.
func decodeVcsParams(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var fields struct {
		VcsParams map[string]any `json:"vcsParams"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("decode app message: %v", err)
	}
	return fields.VcsParams
}
