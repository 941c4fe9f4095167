package upstream

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/minaret-home/minaret/internal/config"
	"github.com/minaret-home/minaret/internal/model"
)

// FetchResult is the raw output of one provider fetch: per-event clock
// strings plus calendar metadata. TwelveHour marks providers that report
// afternoon prayers on a 12-hour clock.
type FetchResult struct {
	Times      map[model.Event]string
	Hijri      model.HijriDate
	TwelveHour bool
}

// Source is a prayer times provider.
type Source interface {
	Fetch(ctx context.Context) (*FetchResult, error)
}

// NewSource selects the provider for the configured source name.
func NewSource(cfg *config.Config) Source {
	if cfg.Source == config.SourceAladhan {
		return NewAladhanClient(cfg.City, cfg.Country, cfg.Method)
	}
	return NewQatarMOIClient()
}

// parseClock extracts hour and minute from "HH:MM", tolerating trailing
// timezone notes like "04:45 (AST)".
func parseClock(raw string) (hour, minute int, err error) {
	clean := strings.TrimSpace(raw)
	clean = strings.SplitN(clean, " ", 2)[0]
	clean = strings.SplitN(clean, "(", 2)[0]

	parts := strings.Split(clean, ":")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("malformed clock value %q", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed hour in %q", raw)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed minute in %q", raw)
	}
	return hour, minute, nil
}

// afternoonEvents are reported without an AM/PM marker by 12-hour providers.
var afternoonEvents = map[model.Event]bool{
	model.Asr:     true,
	model.Maghrib: true,
	model.Isha:    true,
}

// Normalize converts raw provider output into a Day anchored on now's date
// and location. Events with missing or unparseable times are dropped; the
// suhoor alarm is injected relative to Fajr when configured.
func Normalize(now time.Time, res *FetchResult, cfg *config.Config) *model.Day {
	day := &model.Day{
		Date:  now.Format("2006-01-02"),
		Hijri: res.Hijri,
	}

	var fajrAt *time.Time
	for _, ev := range model.Events() {
		raw, ok := res.Times[ev]
		if !ok {
			continue
		}
		hour, minute, err := parseClock(raw)
		if err != nil {
			continue
		}

		// 12-hour providers report afternoon prayers without +12
		if res.TwelveHour && afternoonEvents[ev] && hour < 10 {
			hour += 12
		}

		at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if ev == model.Fajr {
			fajrAt = &at
		}

		day.Times = append(day.Times, model.PrayerTime{
			Event:   ev,
			At:      at,
			Display: fmt.Sprintf("%02d:%02d", hour, minute),
			Enabled: cfg.Enabled[ev],
		})
	}

	if cfg.SuhoorEnabled && fajrAt != nil {
		if !cfg.SuhoorRamadanOnly || res.Hijri.IsRamadan() {
			suhoor := fajrAt.Add(-cfg.SuhoorOffset)
			day.SuhoorAt = &suhoor
		}
	}

	return day
}
