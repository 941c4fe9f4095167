package model

import "strings"

// Event is one of the six daily prayer events tracked by the board.
// The declared order is the display order.
type Event int

const (
	Fajr Event = iota
	Sunrise
	Dhuhr
	Asr
	Maghrib
	Isha
)

// EventCount is the number of tracked events.
const EventCount = 6

var eventNames = [EventCount]string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

var eventEmojis = [EventCount]string{"🌅", "☀️", "🕌", "🌤️", "🌇", "🌙"}

// Events returns the six events in display order.
func Events() [EventCount]Event {
	return [EventCount]Event{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}
}

func (e Event) String() string {
	if e < 0 || e >= EventCount {
		return "unknown"
	}
	return eventNames[e]
}

// Key returns the lower-case entity key used on the wire.
func (e Event) Key() string {
	return strings.ToLower(e.String())
}

func (e Event) Emoji() string {
	if e < 0 || e >= EventCount {
		return ""
	}
	return eventEmojis[e]
}

// ParseEvent resolves a canonical event name, case-insensitively.
func ParseEvent(name string) (Event, bool) {
	for i, n := range eventNames {
		if strings.EqualFold(name, n) {
			return Event(i), true
		}
	}
	return 0, false
}

// DisplayStatus is the classification result for one event on the board.
type DisplayStatus int

const (
	StatusUnknown DisplayStatus = iota
	StatusPlayed
	StatusNext
	StatusPassed
	StatusUpcoming
	StatusDisabled
)

func (s DisplayStatus) String() string {
	switch s {
	case StatusPlayed:
		return "played"
	case StatusNext:
		return "next"
	case StatusPassed:
		return "passed"
	case StatusUpcoming:
		return "upcoming"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Label is the human-readable status text shown on a board row.
func (s DisplayStatus) Label() string {
	switch s {
	case StatusPlayed:
		return "Played"
	case StatusNext:
		return "Next"
	case StatusPassed:
		return "Passed"
	case StatusUpcoming:
		return "Upcoming"
	case StatusDisabled:
		return "Disabled"
	default:
		return "Unavailable"
	}
}

// PlaybackState describes what the azan player is doing.
type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	PlaybackDownloading
	PlaybackPlaying
)

func (p PlaybackState) String() string {
	switch p {
	case PlaybackDownloading:
		return "downloading"
	case PlaybackPlaying:
		return "playing"
	default:
		return "idle"
	}
}

// ParsePlaybackState maps a status entity state back to a PlaybackState.
// Unrecognized values fall back to idle.
func ParsePlaybackState(s string) PlaybackState {
	switch s {
	case "downloading":
		return PlaybackDownloading
	case "playing":
		return PlaybackPlaying
	default:
		return PlaybackIdle
	}
}

// Playback couples the player state with the event being played, if any.
type Playback struct {
	State            PlaybackState
	CurrentlyPlaying *Event
}
