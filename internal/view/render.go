package view

import (
	"github.com/rs/zerolog/log"

	"github.com/minaret-home/minaret/internal/model"
)

// LogRenderer writes each projection to the structured log. Headless
// deployments use it; the board itself is consumed over the HTTP API.
type LogRenderer struct{}

func (LogRenderer) Render(board model.Board) {
	log.Trace().
		Str("next", board.NextLabel).
		Str("countdown", board.Countdown).
		Str("playback", board.Playback.State.String()).
		Bool("night", board.IsNight).
		Msg("board updated")
}
