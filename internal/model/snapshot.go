package model

import "time"

// EventFacts are the externally supplied facts for one event at one instant.
type EventFacts struct {
	// Known is false when the entity state was "unknown" or "unavailable".
	Known bool
	// ScheduledAt is the prayer instant; nil when the source did not supply one.
	ScheduledAt *time.Time
	// DisplayTime is the upstream-formatted time string, authoritative for
	// display but never used for time arithmetic.
	DisplayTime string
	Played      bool
	Enabled     bool
}

// Snapshot is an immutable view of all six events plus the next-event pointer,
// captured at Now. Snapshots are replaced wholesale on every push; they are
// never field-merged.
type Snapshot struct {
	Facts [EventCount]EventFacts
	// Next is nil when the pointer entity is absent or all prayers are done.
	Next     *Event
	Now      time.Time
	IsNight  bool
	Playback Playback
}

// CountdownState is the per-tick countdown to the next event. Due and
// Exhausted are distinct terminal states: Due means the target has arrived,
// Exhausted means there is no target left today.
type CountdownState struct {
	Hours     int
	Minutes   int
	Seconds   int
	Text      string
	Due       bool
	Exhausted bool
}
