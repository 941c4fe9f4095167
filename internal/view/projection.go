// Package view owns the live schedule board: it caches the latest snapshot,
// re-projects it on every push, and keeps the countdown badge fresh on a
// one-second tick.
package view

import (
	"fmt"

	"github.com/minaret-home/minaret/internal/model"
	"github.com/minaret-home/minaret/internal/schedule"
)

// AllCompleteText is the hero label once the day's prayers are exhausted.
const AllCompleteText = "All prayers completed for today"

// Renderer consumes finished board projections. Implementations own the
// display surface; the view layer never touches one directly.
type Renderer interface {
	Render(board model.Board)
}

// Project maps a snapshot to a display-ready board. It is pure: the countdown
// is computed against the snapshot's own capture instant, so projecting the
// same snapshot twice yields the same board.
func Project(snap *model.Snapshot) model.Board {
	if snap == nil {
		return model.Board{}
	}

	rows := make([]model.Row, 0, model.EventCount)
	for _, ev := range model.Events() {
		status := schedule.Classify(snap, ev)
		rows = append(rows, model.Row{
			Event:      ev,
			Status:     status,
			Time:       snap.Facts[ev].DisplayTime,
			StatusText: status.Label(),
		})
	}

	board := model.Board{
		Rows:     rows,
		Playback: snap.Playback,
		IsNight:  snap.IsNight,
	}

	if ev, display, ok := schedule.NextLabel(snap); ok {
		board.NextLabel = fmt.Sprintf("%s %s %s", ev.Emoji(), ev, display)
	} else {
		board.NextLabel = AllCompleteText
	}

	if target, ok := schedule.NextTarget(snap); ok {
		board.Countdown = schedule.FormatCountdown(target, snap.Now).Text
	} else {
		board.Countdown = schedule.NoTarget().Text
	}

	return board
}
