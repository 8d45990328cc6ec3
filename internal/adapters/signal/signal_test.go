package signal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/Rundown/internal/app"
	"github.com/dkeye/Rundown/internal/app/orch"
	"github.com/dkeye/Rundown/internal/app/sfu"
	"github.com/dkeye/Rundown/internal/core"
	"github.com/dkeye/Rundown/internal/domain"
)

func newTestController(opts Options) *SignalWSController {
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(),
		Policy:   app.SimplePolicy{},
		Relays:   sfu.NewRelayManager(),
	}
	return NewSignalWSController(o, opts)
}

// connect binds a socket-less connection to sid.
func connect(ctl *SignalWSController, sid core.SessionID) *WsSignalConn {
	conn := &WsSignalConn{send: make(chan core.Frame, sendBuffer)}
	user := ctl.Orch.Registry.GetOrCreateUser(sid)
	sess := core.NewMemberSession(domain.NewMember(user)).UpdateSignal(conn)
	ctl.Orch.Connect(sid, sess, func() {})
	return conn
}

// drain returns the queued frames decoded as generic maps.
func drain(t *testing.T, c *WsSignalConn) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case f := <-c.send:
			var m map[string]any
			if err := json.Unmarshal(f, &m); err != nil {
				t.Fatalf("bad frame %s: %v", f, err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func types(msgs []map[string]any) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m["type"].(string))
	}
	return out
}

func send(ctl *SignalWSController, sid core.SessionID, c *WsSignalConn, v any) {
	b, _ := json.Marshal(v)
	ctl.handleSignal(sid, c, b)
}

func TestJoin_ReportsExistingParticipants(t *testing.T) {
	ctl := newTestController(Options{})
	host := connect(ctl, "h1")
	send(ctl, "h1", host, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: "host"})
	send(ctl, "h1", host, domain.SetUserDataMessage{
		Type: domain.MsgTypeSetUserData,
		Data: json.RawMessage(`{"vcsParams":{"video.guestName":"Jane"}}`),
	})
	drain(t, host)

	viewer := connect(ctl, "v1")
	send(ctl, "v1", viewer, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: "viewer"})

	msgs := drain(t, viewer)
	if len(msgs) != 1 || msgs[0]["type"] != domain.MsgTypeJoined {
		t.Fatalf("expected joined, got %v", types(msgs))
	}
	var joined domain.JoinedMessage
	b, _ := json.Marshal(msgs[0])
	if err := json.Unmarshal(b, &joined); err != nil {
		t.Fatal(err)
	}
	if joined.SessionID != "v1" || len(joined.Participants) != 1 {
		t.Fatalf("unexpected joined %+v", joined)
	}
	p := joined.Participants[0]
	if p.SessionID != "h1" || p.UserName != "host" || string(p.UserData) != `{"vcsParams":{"video.guestName":"Jane"}}` {
		t.Fatalf("host participant = %+v", p)
	}

	if got := types(drain(t, host)); len(got) != 1 || got[0] != domain.MsgTypeParticipantJoined {
		t.Fatalf("host should hear about the viewer, got %v", got)
	}
}

func TestJoin_Token(t *testing.T) {
	ctl := newTestController(Options{RoomTokens: map[string]string{"host": "s3cret"}})
	c := connect(ctl, "h1")

	send(ctl, "h1", c, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: "host", Token: "nope"})
	msgs := drain(t, c)
	if len(msgs) != 1 || msgs[0]["code"] != domain.ErrCodeBadToken {
		t.Fatalf("expected BAD_TOKEN, got %v", msgs)
	}
	if _, _, ok := ctl.Orch.Registry.RoomOf("h1"); ok {
		t.Fatalf("rejected join must not enter the room")
	}

	send(ctl, "h1", c, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: "host", Token: "s3cret"})
	if got := types(drain(t, c)); len(got) != 1 || got[0] != domain.MsgTypeJoined {
		t.Fatalf("expected joined, got %v", got)
	}

	// Names without a configured token join freely.
	v := connect(ctl, "v1")
	send(ctl, "v1", v, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: "viewer"})
	if got := types(drain(t, v)); len(got) != 1 || got[0] != domain.MsgTypeJoined {
		t.Fatalf("expected joined, got %v", got)
	}
}

func TestAppMessage_Routing(t *testing.T) {
	ctl := newTestController(Options{})
	host, guest, viewer := connect(ctl, "h1"), connect(ctl, "g1"), connect(ctl, "v1")
	for sid, c := range map[core.SessionID]*WsSignalConn{"h1": host, "g1": guest, "v1": viewer} {
		send(ctl, sid, c, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: string(sid)})
	}
	drain(t, host)
	drain(t, guest)
	drain(t, viewer)

	send(ctl, "h1", host, domain.SendAppMessage{
		Type: domain.MsgTypeAppMessage,
		To:   domain.BroadcastRecipient,
		Data: json.RawMessage(`{"interactionControl":{"poll.open":true}}`),
	})
	if len(drain(t, host)) != 0 {
		t.Fatalf("broadcast must skip the sender")
	}
	for _, c := range []*WsSignalConn{guest, viewer} {
		msgs := drain(t, c)
		if len(msgs) != 1 || msgs[0]["from_id"] != "h1" {
			t.Fatalf("expected one app message from h1, got %v", msgs)
		}
	}

	send(ctl, "v1", viewer, domain.SendAppMessage{
		Type: domain.MsgTypeAppMessage,
		To:   "h1",
		Data: json.RawMessage(`{"interactionResponse":{"vote":true}}`),
	})
	if msgs := drain(t, host); len(msgs) != 1 || msgs[0]["from_id"] != "v1" {
		t.Fatalf("vote not delivered to host: %v", msgs)
	}
	if len(drain(t, guest)) != 0 {
		t.Fatalf("unicast leaked to guest")
	}

	send(ctl, "v1", viewer, domain.SendAppMessage{
		Type: domain.MsgTypeAppMessage,
		To:   "gone",
		Data: json.RawMessage(`{}`),
	})
	if msgs := drain(t, viewer); len(msgs) != 1 || msgs[0]["code"] != domain.ErrCodeNoRecipient {
		t.Fatalf("expected NO_RECIPIENT, got %v", msgs)
	}
}

func TestAppMessage_RateLimited(t *testing.T) {
	ctl := newTestController(Options{MessageLimit: 2, MessageInterval: time.Hour})
	host, viewer := connect(ctl, "h1"), connect(ctl, "v1")
	send(ctl, "h1", host, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: "host"})
	send(ctl, "v1", viewer, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: "viewer"})
	drain(t, host)

	msg := domain.SendAppMessage{Type: domain.MsgTypeAppMessage, To: "*", Data: json.RawMessage(`{"x":1}`)}
	for i := 0; i < 3; i++ {
		send(ctl, "h1", host, msg)
	}
	if n := len(drain(t, viewer)); n != 3 {
		// joined plus two app messages
		t.Fatalf("expected 3 frames at the viewer, got %d", n)
	}
	if msgs := drain(t, host); len(msgs) != 1 || msgs[0]["code"] != domain.ErrCodeRateLimited {
		t.Fatalf("expected RATE_LIMITED, got %v", msgs)
	}
}

func TestRecording_ErrorsGoToRequester(t *testing.T) {
	ctl := newTestController(Options{})
	host, viewer := connect(ctl, "h1"), connect(ctl, "v1")

	send(ctl, "h1", host, domain.RecordingMessage{Type: domain.MsgTypeStartRecording})
	if msgs := drain(t, host); len(msgs) != 1 || msgs[0]["code"] != domain.ErrCodeNotInRoom {
		t.Fatalf("expected NOT_IN_ROOM, got %v", msgs)
	}

	send(ctl, "h1", host, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: "host"})
	send(ctl, "v1", viewer, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: "viewer"})
	drain(t, host)
	drain(t, viewer)

	send(ctl, "h1", host, domain.RecordingMessage{Type: domain.MsgTypeStartRecording, Layout: json.RawMessage(`{"preset":"custom"}`)})
	if got := types(drain(t, viewer)); len(got) != 1 || got[0] != domain.MsgTypeRecordingStarted {
		t.Fatalf("viewer should see recording-started, got %v", got)
	}
	drain(t, host)

	send(ctl, "h1", host, domain.RecordingMessage{Type: domain.MsgTypeStartLiveStreaming})
	msgs := drain(t, host)
	if len(msgs) != 1 || msgs[0]["type"] != domain.MsgTypeRecordingError {
		t.Fatalf("expected recording-error, got %v", msgs)
	}
	if msgs[0]["request"] != domain.MsgTypeStartLiveStreaming {
		t.Fatalf("recording-error should name the failed request, got %v", msgs[0])
	}
	if len(drain(t, viewer)) != 0 {
		t.Fatalf("failed request must not be announced")
	}
}

func TestLeave_And_WhoAmI(t *testing.T) {
	ctl := newTestController(Options{})
	c := connect(ctl, "h1")
	send(ctl, "h1", c, domain.JoinMessage{Type: domain.MsgTypeJoin, Room: "studio", Name: "host"})
	drain(t, c)

	send(ctl, "h1", c, domain.Envelope{Type: domain.MsgTypeWhoAmI})
	msgs := drain(t, c)
	if len(msgs) != 1 || msgs[0]["room_name"] != "studio" || msgs[0]["username"] != "host" {
		t.Fatalf("unexpected whoami %v", msgs)
	}

	send(ctl, "h1", c, domain.Envelope{Type: domain.MsgTypeLeave})
	if got := types(drain(t, c)); len(got) != 1 || got[0] != domain.MsgTypeLeft {
		t.Fatalf("expected left, got %v", got)
	}
	send(ctl, "h1", c, domain.Envelope{Type: domain.MsgTypeWhoAmI})
	if msgs := drain(t, c); msgs[0]["room_name"] != nil {
		t.Fatalf("left member still reports a room: %v", msgs)
	}

	send(ctl, "h1", c, domain.Envelope{Type: domain.MsgTypePing})
	if got := types(drain(t, c)); got[0] != domain.MsgTypePong {
		t.Fatalf("expected pong, got %v", got)
	}
}

func TestMalformedMessage(t *testing.T) {
	ctl := newTestController(Options{})
	c := connect(ctl, "h1")
	ctl.handleSignal("h1", c, []byte(`{not json`))
	if msgs := drain(t, c); len(msgs) != 1 || msgs[0]["code"] != domain.ErrCodeBadPayload {
		t.Fatalf("expected BAD_PAYLOAD, got %v", msgs)
	}
}

func TestWsSignalConn_Backpressure(t *testing.T) {
	c := &WsSignalConn{send: make(chan core.Frame, 1)}
	if err := c.TrySend(core.Frame(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := c.TrySend(core.Frame(`{}`)); err != ErrBackpressure {
		t.Fatalf("expected ErrBackpressure, got %v", err)
	}
	c.Close()
	c.Close()
	if err := c.TrySend(core.Frame(`{}`)); err != core.ErrConnClosed {
		t.Fatalf("expected ErrConnClosed, got %v", err)
	}
}
