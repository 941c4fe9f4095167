package packets

// RowResponse is one schedule line as shown on the board.
type RowResponse struct {
	Prayer string `json:"prayer"`
	Emoji  string `json:"emoji"`
	Time   string `json:"time"`
	Status string `json:"status"`
	Label  string `json:"label"`
}

type PlaybackResponse struct {
	State            string  `json:"state"`
	CurrentlyPlaying *string `json:"currently_playing,omitempty"`
}

type BoardResponse struct {
	Rows      []RowResponse    `json:"rows"`
	NextLabel string           `json:"next_label"`
	Countdown string           `json:"countdown"`
	Playback  PlaybackResponse `json:"playback"`
	IsNight   bool             `json:"is_night"`
}

// ScheduleEntryResponse is one raw upstream entry for the day.
type ScheduleEntryResponse struct {
	Prayer   string `json:"prayer"`
	Time     string `json:"time"`
	Datetime string `json:"datetime"`
	Enabled  bool   `json:"enabled"`
}

type ScheduleResponse struct {
	Date    string                  `json:"date"`
	Entries []ScheduleEntryResponse `json:"entries"`
	Suhoor  *string                 `json:"suhoor,omitempty"`
	Hijri   HijriResponse           `json:"hijri"`
}

type HijriResponse struct {
	Day       int    `json:"day"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	IsRamadan bool   `json:"is_ramadan"`
}
