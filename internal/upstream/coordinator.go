package upstream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-home/minaret/internal/config"
	"github.com/minaret-home/minaret/internal/db"
	"github.com/minaret-home/minaret/internal/hass"
	"github.com/minaret-home/minaret/internal/model"
	"github.com/minaret-home/minaret/internal/redis"
)

// azanGrace bounds how long after its instant a prayer still triggers the
// azan; beyond it the prayer is silently marked passed (e.g. after downtime).
const azanGrace = 5 * time.Minute

// alarmScanInterval is how often due prayers and the next pointer are checked.
const alarmScanInterval = 15 * time.Second

// Publisher pushes entity state documents to the board transport.
type Publisher interface {
	PublishState(key string, es hass.EntityState)
}

// Player runs azan playback. Implementations own the media pipeline.
type Player interface {
	Play(ctx context.Context, ev model.Event) error
	PlayAlarm(ctx context.Context) error
	Stop()
}

// Coordinator owns the day's schedule: it fetches from the provider on an
// interval, preserves the played set across same-day refreshes, publishes all
// entity states, and fires the azan when a prayer comes due.
type Coordinator struct {
	cfg    *config.Config
	source Source
	store  db.Store
	pub    Publisher
	player Player
	clock  func() time.Time

	mu           sync.Mutex
	day          *model.Day
	played       map[model.Event]bool
	suhoorPlayed bool
	lastNext     string

	refresh chan struct{}
}

func NewCoordinator(cfg *config.Config, source Source, store db.Store, pub Publisher, player Player) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		source:  source,
		store:   store,
		pub:     pub,
		player:  player,
		clock:   time.Now,
		played:  make(map[model.Event]bool),
		refresh: make(chan struct{}, 1),
	}
}

// Run fetches immediately, then on the configured interval, while scanning
// for due prayers. Returns when ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	log.Info().Str("source", c.cfg.Source).Msg("starting prayer times coordinator")

	c.refreshOnce(ctx)

	timer := time.NewTimer(c.cfg.RefreshInterval)
	defer timer.Stop()
	alarm := time.NewTicker(alarmScanInterval)
	defer alarm.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("prayer times coordinator shutting down")
			return
		case <-timer.C:
			c.refreshOnce(ctx)
			timer.Reset(c.cfg.RefreshInterval)
		case <-c.refresh:
			c.refreshOnce(ctx)
			timer.Reset(c.cfg.RefreshInterval)
		case now := <-alarm.C:
			c.scan(ctx, now)
		}
	}
}

// RefreshNow queues an out-of-band refresh. Non-blocking; a refresh already
// queued absorbs the request.
func (c *Coordinator) RefreshNow() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// refreshOnce fetches, normalizes, persists and publishes today's schedule.
// A failed fetch never clears the published state: the previous day data (or
// the Redis-cached schedule after a restart) keeps serving the board.
func (c *Coordinator) refreshOnce(ctx context.Context) {
	now := c.clock()
	date := now.Format("2006-01-02")

	day := c.fetchDay(ctx, now)
	if day == nil {
		return
	}

	played, err := c.store.PlayedOn(day.Date)
	if err != nil {
		played = make(map[model.Event]bool)
	}

	c.mu.Lock()
	if c.day != nil && c.day.Date == day.Date {
		// preserve the in-memory played set across same-day refreshes
		for ev := range c.played {
			played[ev] = true
		}
	} else {
		c.suhoorPlayed = false
	}
	c.day = day
	c.played = played
	c.mu.Unlock()

	if err := c.store.UpsertDay(day); err != nil {
		log.Error().Err(err).Str("date", date).Msg("failed to persist day schedule")
	}

	log.Info().Str("date", day.Date).Int("times", len(day.Times)).Msg("prayer times refreshed")
	c.publishAll(now)
}

// fetchDay resolves today's schedule: provider first, then the Redis cache,
// then whatever day is already in memory.
func (c *Coordinator) fetchDay(ctx context.Context, now time.Time) *model.Day {
	date := now.Format("2006-01-02")

	res, err := c.source.Fetch(ctx)
	if err == nil {
		day := Normalize(now, res, c.cfg)
		if body, err := json.Marshal(day); err == nil {
			redis.Set(ctx, dayCacheKey(date), body, 24*time.Hour)
		}
		return day
	}
	log.Error().Err(err).Msg("failed to fetch prayer times")

	if cached, ok := redis.Get(ctx, dayCacheKey(date)); ok {
		var day model.Day
		if err := json.Unmarshal([]byte(cached), &day); err == nil {
			log.Info().Str("date", date).Msg("serving day schedule from cache")
			return &day
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

func dayCacheKey(date string) string {
	return "minaret:day:" + date
}

// scan fires the azan for due prayers and keeps the next pointer fresh as
// prayer instants pass.
func (c *Coordinator) scan(ctx context.Context, now time.Time) {
	c.mu.Lock()
	day := c.day
	c.mu.Unlock()
	if day == nil {
		return
	}

	if day.Date != now.Format("2006-01-02") {
		// the day rolled over between refreshes
		c.RefreshNow()
		return
	}

	for _, pt := range day.Times {
		c.mu.Lock()
		played := c.played[pt.Event]
		c.mu.Unlock()

		// prayers missed by more than the grace window stay unplayed and
		// show as Passed on the board
		if played || !pt.Enabled || pt.At.After(now) || now.Sub(pt.At) >= azanGrace {
			continue
		}
		log.Info().Str("prayer", pt.Event.String()).Msg("prayer time reached, playing azan")
		go func(ev model.Event) {
			if err := c.player.Play(ctx, ev); err != nil {
				log.Error().Err(err).Str("prayer", ev.String()).Msg("azan playback failed")
			}
		}(pt.Event)
		c.MarkPlayed(pt.Event)
	}

	c.mu.Lock()
	suhoorDue := day.SuhoorAt != nil && !c.suhoorPlayed &&
		!day.SuhoorAt.After(now) && now.Sub(*day.SuhoorAt) < azanGrace
	if suhoorDue {
		c.suhoorPlayed = true
	}
	c.mu.Unlock()

	if suhoorDue {
		log.Info().Msg("suhoor time reached, playing alarm")
		go func() {
			if err := c.player.PlayAlarm(ctx); err != nil {
				log.Error().Err(err).Msg("suhoor alarm playback failed")
			}
		}()
	}

	// republish when the next pointer moved past an event
	if c.nextKey(now) != c.lastNext {
		c.publishAll(now)
	}
}

// MarkPlayed records a completed azan and republishes the board entities.
// Played is monotonic within a day.
func (c *Coordinator) MarkPlayed(ev model.Event) {
	c.mu.Lock()
	if c.played[ev] {
		c.mu.Unlock()
		return
	}
	c.played[ev] = true
	day := c.day
	c.mu.Unlock()

	if day != nil {
		if err := c.store.MarkPlayed(day.Date, ev, c.clock()); err != nil {
			log.Error().Err(err).Str("prayer", ev.String()).Msg("failed to record playback")
		}
	}
	c.publishAll(c.clock())
}

func (c *Coordinator) nextKey(now time.Time) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.day == nil {
		return ""
	}
	if next := c.day.NextAfter(now); next != nil {
		return next.Event.String()
	}
	return ""
}

// publishAll pushes every entity state in one pass: the six events, the next
// pointer and the night flag. The status entity is owned by the player.
func (c *Coordinator) publishAll(now time.Time) {
	c.mu.Lock()
	day := c.day
	played := make(map[model.Event]bool, len(c.played))
	for ev := range c.played {
		played[ev] = true
	}
	c.mu.Unlock()
	if day == nil {
		return
	}

	for _, ev := range model.Events() {
		entry := day.Time(ev)
		if entry == nil {
			c.pub.PublishState(ev.Key(), hass.EntityState{State: hass.StateUnknown})
			continue
		}
		c.pub.PublishState(ev.Key(), hass.EntityState{
			State: entry.Display,
			Attributes: map[string]any{
				"prayer_name": ev.String(),
				"time":        entry.Display,
				"datetime":    entry.At.Format(time.RFC3339),
				"played":      played[ev],
				"enabled":     entry.Enabled,
			},
		})
	}

	if next := day.NextAfter(now); next != nil {
		c.pub.PublishState(hass.KeyNext, hass.EntityState{
			State: next.Event.String(),
			Attributes: map[string]any{
				"time":     next.Display,
				"datetime": next.At.Format(time.RFC3339),
			},
		})
		c.mu.Lock()
		c.lastNext = next.Event.String()
		c.mu.Unlock()
	} else {
		c.pub.PublishState(hass.KeyNext, hass.EntityState{State: hass.StateUnknown})
		c.mu.Lock()
		c.lastNext = ""
		c.mu.Unlock()
	}

	if fajr, maghrib := day.Time(model.Fajr), day.Time(model.Maghrib); fajr != nil && maghrib != nil {
		night := "off"
		if now.Before(fajr.At) || now.After(maghrib.At) {
			night = "on"
		}
		c.pub.PublishState(hass.KeyNight, hass.EntityState{State: night})
	}
}

// Day returns the current in-memory schedule, or nil before the first fetch.
func (c *Coordinator) Day() *model.Day {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

// HandlePlay implements hass.CommandHandler: a test playback request. Test
// plays never mark the prayer as played.
func (c *Coordinator) HandlePlay(ev model.Event) {
	go func() {
		if err := c.player.Play(context.Background(), ev); err != nil {
			log.Error().Err(err).Str("prayer", ev.String()).Msg("test playback failed")
		}
	}()
}

// HandleStop implements hass.CommandHandler.
func (c *Coordinator) HandleStop() {
	c.player.Stop()
}

// HandleRefresh implements hass.CommandHandler.
func (c *Coordinator) HandleRefresh() {
	c.RefreshNow()
}
