package authority

import (
	"github.com/dkeye/Rundown/internal/session"
)

// Host controls. On a replica each of them fails with session.ErrReadOnly
// and changes nothing.

func (c *Controller) SetRundownItems(items []string) error {
	if _, err := c.UpdateValue(session.NamespaceVcsParams, string(session.ParamRundownItems), items); err != nil {
		return err
	}
	// Keep the position a valid index into the new list.
	if pos := c.doc.RundownPosition(); pos > 0 && pos >= len(items) {
		_, err := c.UpdateValue(session.NamespaceVcsParams, string(session.ParamRundownPosition), max(len(items)-1, 0))
		return err
	}
	return nil
}

// NextItem advances the rundown. At the last item it is a no-op.
func (c *Controller) NextItem() error {
	if !c.doc.Writable() {
		return session.ErrReadOnly
	}
	pos, moved := c.doc.NextPosition()
	if !moved {
		return nil
	}
	_, err := c.UpdateValue(session.NamespaceVcsParams, string(session.ParamRundownPosition), pos)
	return err
}

// PrevItem steps the rundown back. At the first item it is a no-op.
func (c *Controller) PrevItem() error {
	if !c.doc.Writable() {
		return session.ErrReadOnly
	}
	pos, moved := c.doc.PrevPosition()
	if !moved {
		return nil
	}
	_, err := c.UpdateValue(session.NamespaceVcsParams, string(session.ParamRundownPosition), pos)
	return err
}

func (c *Controller) SetGuestName(name string) error {
	_, err := c.UpdateValue(session.NamespaceVcsParams, string(session.ParamGuestName), name)
	return err
}

func (c *Controller) SetPollQuestion(q string) error {
	_, err := c.UpdateValue(session.NamespaceVcsParams, string(session.ParamPollQuestion), q)
	return err
}

func (c *Controller) TogglePollOpen() (bool, error) {
	open := !c.doc.PollOpen()
	if _, err := c.UpdateValue(session.NamespaceInteractions, session.InteractionPollOpen, open); err != nil {
		return c.doc.PollOpen(), err
	}
	return open, nil
}

func (c *Controller) TogglePollResult() (bool, error) {
	show := !c.doc.ShowPollResult()
	if _, err := c.UpdateValue(session.NamespaceVcsParams, string(session.ParamShowPollResult), show); err != nil {
		return c.doc.ShowPollResult(), err
	}
	return show, nil
}

func (c *Controller) SetStreamingURL(rtmpURL string) {
	c.rtmpURL = rtmpURL
	c.logger.Info().Str("rtmp_url", rtmpURL).Msg("updated streaming config")
}

// ToggleRecording starts or stops the recording with the current layout.
func (c *Controller) ToggleRecording() (bool, error) {
	if !c.doc.Writable() {
		return c.recording, session.ErrReadOnly
	}
	if !c.transport.Ready() {
		return c.recording, ErrTransportNotReady
	}
	if c.recording {
		if err := c.transport.StopRecording(); err != nil {
			return c.recording, err
		}
		c.recording = false
		return false, nil
	}
	if err := c.transport.StartRecording(session.ServerLayout(c.doc.VcsParams, true)); err != nil {
		return c.recording, err
	}
	c.recording = true
	return true, nil
}

// ToggleLiveStreaming starts or stops the live stream to the configured
// RTMP URL.
func (c *Controller) ToggleLiveStreaming() (bool, error) {
	if !c.doc.Writable() {
		return c.liveStreaming, session.ErrReadOnly
	}
	if c.rtmpURL == "" {
		c.logger.Warn().Msg("live streaming needs a target streaming URL")
		return c.liveStreaming, ErrNoRTMPURL
	}
	if !c.transport.Ready() {
		return c.liveStreaming, ErrTransportNotReady
	}
	if c.liveStreaming {
		if err := c.transport.StopLiveStreaming(); err != nil {
			return c.liveStreaming, err
		}
		c.liveStreaming = false
		return false, nil
	}
	if err := c.transport.StartLiveStreaming(c.rtmpURL, session.ServerLayout(c.doc.VcsParams, true)); err != nil {
		return c.liveStreaming, err
	}
	c.liveStreaming = true
	return true, nil
}

// OnRecordingStarted and friends keep the local flags in line with what the
// room reports, e.g. when the recording fails on the server side.
func (c *Controller) OnRecordingStarted() {
	c.logger.Info().Msg("recording started")
	c.recording = true
}

func (c *Controller) OnRecordingStopped() {
	c.logger.Info().Msg("recording stopped")
	c.recording = false
}

func (c *Controller) OnRecordingError(reason string) {
	c.logger.Error().Str("reason", reason).Msg("recording error")
	c.recording = false
}

func (c *Controller) OnLiveStreamingStarted() {
	c.logger.Info().Msg("live streaming started")
	c.liveStreaming = true
}

func (c *Controller) OnLiveStreamingStopped() {
	c.logger.Info().Msg("live streaming stopped")
	c.liveStreaming = false
}

func (c *Controller) OnLiveStreamingError(reason string) {
	c.logger.Error().Str("reason", reason).Msg("live streaming error")
	c.liveStreaming = false
}
