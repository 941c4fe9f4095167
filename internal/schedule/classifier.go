// Package schedule holds the pure board logic: classifying each event into a
// display status and formatting the countdown to the next prayer. Every
// function here is total over its inputs and reads time only from arguments.
package schedule

import (
	"time"

	"github.com/minaret-home/minaret/internal/model"
)

// Classify maps one event of a snapshot to exactly one display status.
// Precedence, first match wins:
//
//	unknown facts, disabled, played, next pointer, passed time, upcoming.
//
// Disabled deliberately overrides played and next: a muted prayer always
// shows Disabled no matter what else is true of it.
func Classify(snap *model.Snapshot, ev model.Event) model.DisplayStatus {
	facts := snap.Facts[ev]
	if !facts.Known {
		return model.StatusUnknown
	}
	if !facts.Enabled {
		return model.StatusDisabled
	}
	if facts.Played {
		return model.StatusPlayed
	}
	if snap.Next != nil && *snap.Next == ev {
		return model.StatusNext
	}
	if facts.ScheduledAt != nil && facts.ScheduledAt.Before(snap.Now) {
		return model.StatusPassed
	}
	return model.StatusUpcoming
}

// NextLabel resolves the hero banner for the snapshot's next-event pointer.
// ok is false when the pointer is absent or names an event whose state is
// unavailable; callers render the all-complete sentinel in that case.
func NextLabel(snap *model.Snapshot) (ev model.Event, displayTime string, ok bool) {
	if snap.Next == nil {
		return 0, "", false
	}
	facts := snap.Facts[*snap.Next]
	if !facts.Known {
		return 0, "", false
	}
	return *snap.Next, facts.DisplayTime, true
}

// NextTarget resolves the countdown target instant from the snapshot.
func NextTarget(snap *model.Snapshot) (time.Time, bool) {
	if snap.Next == nil {
		return time.Time{}, false
	}
	facts := snap.Facts[*snap.Next]
	if !facts.Known || facts.ScheduledAt == nil {
		return time.Time{}, false
	}
	return *facts.ScheduledAt, true
}
