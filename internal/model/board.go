package model

// Row is one display-ready line of the schedule board.
type Row struct {
	Event      Event
	Status     DisplayStatus
	Time       string
	StatusText string
}

// Board is the full projection handed to a Renderer: one row per event in
// display order, the hero label for the next prayer, and the countdown badge.
type Board struct {
	Rows      []Row
	NextLabel string
	Countdown string
	Playback  Playback
	IsNight   bool
}
