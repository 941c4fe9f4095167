package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-home/minaret/internal/model"
)

type dayRow struct {
	Event       string    `db:"event"`
	ScheduledAt time.Time `db:"scheduled_at"`
	DisplayTime string    `db:"display_time"`
	Enabled     bool      `db:"enabled"`
}

// UpsertDay replaces the stored schedule for the day's date.
func (s *pgStore) UpsertDay(day *model.Day) error {
	tx, err := s.db.Beginx()
	if err != nil {
		log.Error().Err(err).Msg("UpsertDay begin failed")
		return err
	}
	defer tx.Rollback()

	const q = `
	INSERT INTO prayer_days (date, event, scheduled_at, display_time, enabled)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (date, event) DO UPDATE
	SET scheduled_at = EXCLUDED.scheduled_at,
	    display_time = EXCLUDED.display_time,
	    enabled      = EXCLUDED.enabled;`

	for _, pt := range day.Times {
		if _, err := tx.Exec(q, day.Date, pt.Event.Key(), pt.At, pt.Display, pt.Enabled); err != nil {
			log.Error().Err(err).Str("date", day.Date).Str("event", pt.Event.Key()).Msg("UpsertDay failed")
			return err
		}
	}

	return tx.Commit()
}

// GetDay loads the stored schedule for a date. Returns sql.ErrNoRows when
// nothing was stored for it.
func (s *pgStore) GetDay(date string) (*model.Day, error) {
	var rows []dayRow
	const q = `
	SELECT event, scheduled_at, display_time, enabled
	  FROM prayer_days
	 WHERE date = $1
	 ORDER BY scheduled_at;`
	if err := s.db.Select(&rows, q, date); err != nil {
		log.Error().Err(err).Str("date", date).Msg("GetDay failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}

	day := &model.Day{Date: date}
	for _, r := range rows {
		ev, ok := model.ParseEvent(r.Event)
		if !ok {
			continue
		}
		day.Times = append(day.Times, model.PrayerTime{
			Event:   ev,
			At:      r.ScheduledAt,
			Display: r.DisplayTime,
			Enabled: r.Enabled,
		})
	}
	return day, nil
}

// MarkPlayed records one azan playback. Replaying the same event on the same
// date is a no-op: played is monotonic per day.
func (s *pgStore) MarkPlayed(date string, ev model.Event, at time.Time) error {
	_, err := s.db.Exec(`
	INSERT INTO play_log (date, event, played_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (date, event) DO NOTHING;`, date, ev.Key(), at)
	if err != nil {
		log.Error().Err(err).Str("date", date).Str("event", ev.Key()).Msg("MarkPlayed failed")
	}
	return err
}

// PlayedOn rebuilds the played set for a date.
func (s *pgStore) PlayedOn(date string) (map[model.Event]bool, error) {
	var keys []string
	if err := s.db.Select(&keys, `SELECT event FROM play_log WHERE date = $1;`, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[model.Event]bool{}, nil
		}
		log.Error().Err(err).Str("date", date).Msg("PlayedOn failed")
		return nil, err
	}

	played := make(map[model.Event]bool, len(keys))
	for _, key := range keys {
		if ev, ok := model.ParseEvent(key); ok {
			played[ev] = true
		}
	}
	return played, nil
}
