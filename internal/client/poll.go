package client

import "github.com/rs/zerolog"

// LogPollView reports the viewer's voting panel to the log.
type LogPollView struct {
	Logger zerolog.Logger
}

func (v LogPollView) SetPollQuestion(q string) {
	v.Logger.Info().Str("module", "client.poll").Str("question", q).Msg("poll question")
}

func (v LogPollView) SetPollVisible(visible bool) {
	v.Logger.Info().Str("module", "client.poll").Bool("visible", visible).Msg("poll panel")
}
