package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dkeye/Rundown/internal/authority"
	"github.com/dkeye/Rundown/internal/domain"
	"github.com/dkeye/Rundown/internal/render"
	"github.com/dkeye/Rundown/internal/session"
)

type nopTransport struct{ sent int }

func (t *nopTransport) Ready() bool                                     { return true }
func (t *nopTransport) SendAppMessage(any, string) error                { t.sent++; return nil }
func (t *nopTransport) SetUserData(any) error                           { return nil }
func (t *nopTransport) StartRecording(session.Layout) error             { return nil }
func (t *nopTransport) UpdateRecording(session.Layout) error            { return nil }
func (t *nopTransport) StopRecording() error                            { return nil }
func (t *nopTransport) StartLiveStreaming(string, session.Layout) error { return nil }
func (t *nopTransport) UpdateLiveStreaming(session.Layout) error        { return nil }
func (t *nopTransport) StopLiveStreaming() error                        { return nil }

func newController(role domain.Role) (*authority.Controller, *nopTransport) {
	tr := &nopTransport{}
	comp := render.NewComposition(role, render.LogOutput{Logger: zerolog.Nop()}, zerolog.Nop())
	ctrl := authority.New(role, authority.Options{
		Transport:      tr,
		Bridge:         comp,
		LocalSessionID: comp.LocalSessionID(),
		Logger:         zerolog.Nop(),
	})
	ctrl.OnJoined()
	return ctrl, tr
}

func TestRunCommand_HostRundown(t *testing.T) {
	ctrl, tr := newController(domain.RoleHost)
	before := tr.sent

	if _, err := runCommand(ctrl, "items Intro | News | Outro"); err != nil {
		t.Fatal(err)
	}
	if got := ctrl.Document().RundownItems(); len(got) != 3 || got[1] != "News" {
		t.Fatalf("unexpected items %q", got)
	}
	out, err := runCommand(ctrl, "next")
	if err != nil {
		t.Fatal(err)
	}
	if ctrl.Document().CurrentItem() != "News" || !strings.Contains(out, "> News") {
		t.Fatalf("next did not advance:\n%s", out)
	}
	if tr.sent <= before {
		t.Fatalf("host changes must be broadcast")
	}
}

func TestRunCommand_StreamNeedsURL(t *testing.T) {
	ctrl, _ := newController(domain.RoleHost)
	if _, err := runCommand(ctrl, "stream"); !errors.Is(err, authority.ErrNoRTMPURL) {
		t.Fatalf("expected ErrNoRTMPURL, got %v", err)
	}
	out, err := runCommand(ctrl, "stream rtmp://live/key")
	if err != nil || !ctrl.LiveStreaming() || out != "live streaming: true" {
		t.Fatalf("stream not started: %q %v", out, err)
	}
}

func TestRunCommand_ReplicaIsReadOnly(t *testing.T) {
	ctrl, _ := newController(domain.RoleViewer)
	if _, err := runCommand(ctrl, "next"); !errors.Is(err, session.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if _, err := runCommand(ctrl, "vote yes"); !errors.Is(err, authority.ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	if _, err := runCommand(ctrl, "vote maybe"); err == nil {
		t.Fatalf("bad vote accepted")
	}
	if _, err := runCommand(ctrl, "dance"); !errors.Is(err, errUnknownCommand) {
		t.Fatalf("expected errUnknownCommand, got %v", err)
	}
}
