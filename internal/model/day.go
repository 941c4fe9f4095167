package model

import "time"

// PrayerTime is one normalized upstream entry for a day.
type PrayerTime struct {
	Event   Event     `db:"event" json:"event"`
	At      time.Time `db:"scheduled_at" json:"at"`
	Display string    `db:"display_time" json:"display"`
	Enabled bool      `db:"enabled" json:"enabled"`
}

// HijriDate is the Islamic calendar date reported by the upstream source.
type HijriDate struct {
	Day       int    `json:"day"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
}

// IsRamadan reports whether the date falls in the month of Ramadan.
func (h HijriDate) IsRamadan() bool {
	return h.Month == 9
}

// Day is one fetched and normalized day of prayer times.
type Day struct {
	// Date in YYYY-MM-DD form, local to the configured timezone.
	Date     string       `json:"date"`
	Times    []PrayerTime `json:"times"`
	SuhoorAt *time.Time   `json:"suhoor_at,omitempty"`
	Hijri    HijriDate    `json:"hijri"`
}

// Time returns the entry for ev, or nil when the day has none.
func (d *Day) Time(ev Event) *PrayerTime {
	for i := range d.Times {
		if d.Times[i].Event == ev {
			return &d.Times[i]
		}
	}
	return nil
}

// NextAfter returns the first enabled entry strictly after now, or nil when
// the day is exhausted.
func (d *Day) NextAfter(now time.Time) *PrayerTime {
	for i := range d.Times {
		if d.Times[i].Enabled && d.Times[i].At.After(now) {
			return &d.Times[i]
		}
	}
	return nil
}
