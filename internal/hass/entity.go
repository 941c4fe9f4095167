// Package hass speaks the Home-Assistant-style entity protocol over MQTT:
// inbound retained state documents per entity key, outbound fire-and-forget
// service commands.
package hass

import (
	"time"

	"github.com/minaret-home/minaret/internal/model"
)

// Sentinel entity states. Entities carrying either are treated as having no
// usable facts; they never produce an error.
const (
	StateUnknown     = "unknown"
	StateUnavailable = "unavailable"
)

// Well-known entity keys beside the six per-event keys.
const (
	KeyNext   = "next"
	KeyStatus = "status"
	KeyNight  = "night"
)

// EntityState is one published entity document: a state string plus loosely
// typed attributes. Attribute accessors are total; absent or mistyped values
// yield the zero value.
type EntityState struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Known reports whether the entity carries usable facts.
func (e *EntityState) Known() bool {
	return e != nil && e.State != "" && e.State != StateUnknown && e.State != StateUnavailable
}

// Str returns the named attribute as a string, or "" when absent.
func (e *EntityState) Str(key string) string {
	if e == nil {
		return ""
	}
	if s, ok := e.Attributes[key].(string); ok {
		return s
	}
	return ""
}

// Bool returns the named attribute as a bool, or false when absent.
func (e *EntityState) Bool(key string) bool {
	if e == nil {
		return false
	}
	if b, ok := e.Attributes[key].(bool); ok {
		return b
	}
	return false
}

// Time parses the named attribute as an RFC 3339 instant, or nil.
func (e *EntityState) Time(key string) *time.Time {
	raw := e.Str(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// entityTable is the mutable backing for snapshot builds: the latest seen
// EntityState per key. A Snapshot is a pure function of the table and a
// capture instant.
type entityTable map[string]*EntityState

func (t entityTable) snapshot(now time.Time) *model.Snapshot {
	snap := &model.Snapshot{Now: now}

	for _, ev := range model.Events() {
		es := t[ev.Key()]
		if !es.Known() {
			continue
		}
		facts := model.EventFacts{
			Known:       true,
			ScheduledAt: es.Time("datetime"),
			DisplayTime: es.Str("time"),
			Played:      es.Bool("played"),
			Enabled:     es.Bool("enabled"),
		}
		if facts.DisplayTime == "" {
			// the entity state itself is the HH:MM display string
			facts.DisplayTime = es.State
		}
		snap.Facts[ev] = facts
	}

	if next := t[KeyNext]; next.Known() {
		if ev, ok := model.ParseEvent(next.State); ok {
			snap.Next = &ev
		}
	}

	if night := t[KeyNight]; night.Known() {
		snap.IsNight = night.State == "on"
	}

	if status := t[KeyStatus]; status.Known() {
		snap.Playback.State = model.ParsePlaybackState(status.State)
		if ev, ok := model.ParseEvent(status.Str("currently_playing")); ok {
			snap.Playback.CurrentlyPlaying = &ev
		}
	}

	return snap
}
