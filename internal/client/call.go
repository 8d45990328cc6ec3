// Package client connects one broadcast participant to the signaling server
// and runs its session state machine.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/Rundown/internal/authority"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/dkeye/Rundown/internal/session"
)

var (
	ErrNotReady     = errors.New("call: not joined yet")
	ErrBackpressure = errors.New("call: send queue full")
	ErrClosed       = errors.New("call: closed")
)

const (
	sendBuffer  = 64
	eventBuffer = 256
	writeWait   = 5 * time.Second
)

// CallOptions describe where and as whom to join.
type CallOptions struct {
	URL   string
	Room  string
	Name  string
	Token string
	// ClientToken identifies this process to the server across reconnects.
	// A random one is used when empty.
	ClientToken string
	Dialer      *websocket.Dialer
	Logger      zerolog.Logger
}

// Call is the signaling connection of one participant. It implements
// authority.Transport; inbound messages are delivered on Events.
type Call struct {
	opts   CallOptions
	conn   *websocket.Conn
	send   chan []byte
	events chan Event
	ready  atomic.Bool
	sid    atomic.Value

	wg        conc.WaitGroup
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	logger    zerolog.Logger
}

var _ authority.Transport = (*Call)(nil)

// Dial connects and requests to join the room. Events flow until ctx is
// canceled, the server goes away or Close is called.
func Dial(ctx context.Context, opts CallOptions) (*Call, error) {
	if opts.ClientToken == "" {
		opts.ClientToken = uuid.NewString()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	header.Add("Cookie", (&http.Cookie{Name: "ct", Value: opts.ClientToken}).String())

	conn, _, err := dialer.DialContext(ctx, opts.URL, header)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &Call{
		opts:   opts,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		events: make(chan Event, eventBuffer),
		cancel: cancel,
		logger: opts.Logger.With().Str("module", "client.call").Logger(),
	}
	c.wg.Go(func() { c.writePump(ctx) })
	c.wg.Go(func() { c.readPump(ctx) })

	if err := c.write(domain.JoinMessage{
		Type:  domain.MsgTypeJoin,
		Room:  opts.Room,
		Name:  opts.Name,
		Token: opts.Token,
	}); err != nil {
		c.Close()
		return nil, err
	}
	c.logger.Info().Str("url", opts.URL).Str("room", opts.Room).Str("name", opts.Name).Msg("joining")
	return c, nil
}

// Events is closed when the connection ends.
func (c *Call) Events() <-chan Event { return c.events }

// SessionID is the id the server assigned on join.
func (c *Call) SessionID() string {
	sid, _ := c.sid.Load().(string)
	return sid
}

// Close leaves the room and waits for the pumps to stop.
func (c *Call) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.cancel()
		_ = c.conn.Close()
	})
	c.wg.Wait()
}

func (c *Call) readPump(ctx context.Context) {
	defer func() {
		close(c.events)
		c.ready.Store(false)
		c.cancel()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn().Err(err).Msg("read")
			}
			return
		}
		events, err := parseFrame(data)
		if err != nil {
			c.logger.Debug().Err(err).Msg("dropping frame")
			continue
		}
		for _, ev := range events {
			if ev.Type == domain.MsgTypeJoined {
				c.sid.Store(ev.SessionID)
				c.ready.Store(true)
			}
			if ev.Type == domain.MsgTypeLeft {
				c.ready.Store(false)
			}
			select {
			case c.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Call) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = c.conn.Close()
			return
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error().Err(err).Msg("write")
				return
			}
		}
	}
}

func (c *Call) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// writeJoined is write for requests that only make sense inside a room.
func (c *Call) writeJoined(v any) error {
	if !c.ready.Load() {
		return ErrNotReady
	}
	return c.write(v)
}

func (c *Call) Ready() bool { return c.ready.Load() }

func (c *Call) SendAppMessage(data any, to string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.writeJoined(domain.SendAppMessage{Type: domain.MsgTypeAppMessage, To: to, Data: raw})
}

func (c *Call) SetUserData(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.writeJoined(domain.SetUserDataMessage{Type: domain.MsgTypeSetUserData, Data: raw})
}

func (c *Call) recording(typ, rtmpURL string, layout *session.Layout) error {
	msg := domain.RecordingMessage{Type: typ, RtmpURL: rtmpURL}
	if layout != nil {
		raw, err := json.Marshal(layout)
		if err != nil {
			return err
		}
		msg.Layout = raw
	}
	return c.writeJoined(msg)
}

func (c *Call) StartRecording(layout session.Layout) error {
	return c.recording(domain.MsgTypeStartRecording, "", &layout)
}

func (c *Call) UpdateRecording(layout session.Layout) error {
	return c.recording(domain.MsgTypeUpdateRecording, "", &layout)
}

func (c *Call) StopRecording() error {
	return c.recording(domain.MsgTypeStopRecording, "", nil)
}

func (c *Call) StartLiveStreaming(rtmpURL string, layout session.Layout) error {
	return c.recording(domain.MsgTypeStartLiveStreaming, rtmpURL, &layout)
}

func (c *Call) UpdateLiveStreaming(layout session.Layout) error {
	return c.recording(domain.MsgTypeUpdateLiveStreaming, "", &layout)
}

func (c *Call) StopLiveStreaming() error {
	return c.recording(domain.MsgTypeStopLiveStreaming, "", nil)
}
