package schedule

import (
	"fmt"
	"time"

	"github.com/minaret-home/minaret/internal/model"
)

const (
	// DueText is shown once the target instant has arrived.
	DueText = "Now"
	// ExhaustedText is shown when there is no target left today. This is a
	// different terminal state from DueText, never a zeroed countdown.
	ExhaustedText = "No more prayers today"
)

// FormatCountdown renders the remaining time from now until target. The diff
// is truncated to whole seconds; zero or negative means the target is due.
// The hour component is omitted entirely when zero, seconds are always
// two-digit padded: "1h 4m 05s", "4m 05s".
func FormatCountdown(target, now time.Time) model.CountdownState {
	diff := int(target.Sub(now) / time.Second)
	if diff <= 0 {
		return model.CountdownState{Text: DueText, Due: true}
	}

	h := diff / 3600
	m := diff % 3600 / 60
	s := diff % 60

	var text string
	if h == 0 {
		text = fmt.Sprintf("%dm %02ds", m, s)
	} else {
		text = fmt.Sprintf("%dh %dm %02ds", h, m, s)
	}
	return model.CountdownState{Hours: h, Minutes: m, Seconds: s, Text: text}
}

// NoTarget is the countdown for an unresolvable next-event pointer.
func NoTarget() model.CountdownState {
	return model.CountdownState{Text: ExhaustedText, Exhausted: true}
}
