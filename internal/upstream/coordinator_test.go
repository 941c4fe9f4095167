package upstream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minaret-home/minaret/internal/hass"
	"github.com/minaret-home/minaret/internal/model"
)

type fakeSource struct {
	mu    sync.Mutex
	res   *FetchResult
	err   error
	calls int
}

func (f *fakeSource) Fetch(ctx context.Context) (*FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	states map[string]hass.EntityState
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{states: make(map[string]hass.EntityState)}
}

func (f *fakePublisher) PublishState(key string, es hass.EntityState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[key] = es
}

func (f *fakePublisher) state(key string) (hass.EntityState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	es, ok := f.states[key]
	return es, ok
}

type fakeStore struct {
	mu     sync.Mutex
	days   map[string]*model.Day
	played map[string]map[model.Event]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		days:   make(map[string]*model.Day),
		played: make(map[string]map[model.Event]bool),
	}
}

func (f *fakeStore) CreateUser(string, string, *string) (int, error) { return 0, errors.New("unused") }
func (f *fakeStore) GetUserByEmail(string) (*model.User, error)      { return nil, errors.New("unused") }
func (f *fakeStore) GetUserByID(int) (*model.User, error)            { return nil, errors.New("unused") }
func (f *fakeStore) UpdateUserProfile(int, string, *string) error    { return errors.New("unused") }

func (f *fakeStore) UpsertDay(day *model.Day) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days[day.Date] = day
	return nil
}

func (f *fakeStore) GetDay(date string) (*model.Day, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if day, ok := f.days[date]; ok {
		return day, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) MarkPlayed(date string, ev model.Event, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.played[date] == nil {
		f.played[date] = make(map[model.Event]bool)
	}
	f.played[date][ev] = true
	return nil
}

func (f *fakeStore) PlayedOn(date string) (map[model.Event]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[model.Event]bool)
	for ev := range f.played[date] {
		out[ev] = true
	}
	return out, nil
}

type fakePlayer struct {
	mu     sync.Mutex
	plays  []model.Event
	alarms int
	stops  int
}

func (f *fakePlayer) Play(_ context.Context, ev model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, ev)
	return nil
}

func (f *fakePlayer) PlayAlarm(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alarms++
	return nil
}

func (f *fakePlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakePlayer) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

func newTestCoordinator(now time.Time, src Source) (*Coordinator, *fakePublisher, *fakeStore, *fakePlayer) {
	pub := newFakePublisher()
	store := newFakeStore()
	player := &fakePlayer{}
	coord := NewCoordinator(defaultConfig(), src, store, pub, player)
	coord.clock = func() time.Time { return now }
	return coord, pub, store, player
}

func TestRefreshPublishesAllEntities(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{res: &FetchResult{Times: rawTimes(), TwelveHour: true}}
	coord, pub, store, _ := newTestCoordinator(now, src)

	coord.refreshOnce(context.Background())

	for _, ev := range model.Events() {
		es, ok := pub.state(ev.Key())
		require.True(t, ok, "entity %s must be published", ev.Key())
		assert.True(t, es.Known())
		assert.Equal(t, ev.String(), es.Str("prayer_name"))
	}

	next, ok := pub.state(hass.KeyNext)
	require.True(t, ok)
	assert.Equal(t, "Dhuhr", next.State, "9am: dhuhr is the next enabled prayer")

	night, ok := pub.state(hass.KeyNight)
	require.True(t, ok)
	assert.Equal(t, "off", night.State)

	stored, err := store.GetDay("2026-03-14")
	require.NoError(t, err)
	assert.Len(t, stored.Times, model.EventCount)
}

func TestRefreshFailureKeepsPreviousDay(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{res: &FetchResult{Times: rawTimes(), TwelveHour: true}}
	coord, pub, _, _ := newTestCoordinator(now, src)

	coord.refreshOnce(context.Background())
	require.NotNil(t, coord.Day())

	src.mu.Lock()
	src.err = errors.New("upstream down")
	src.mu.Unlock()

	coord.refreshOnce(context.Background())

	assert.NotNil(t, coord.Day(), "a failed fetch must not clear the schedule")
	es, ok := pub.state(model.Fajr.Key())
	require.True(t, ok)
	assert.True(t, es.Known())
}

func TestRefreshWithNothingToServe(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{err: errors.New("upstream down")}
	coord, pub, _, _ := newTestCoordinator(now, src)

	coord.refreshOnce(context.Background())

	assert.Nil(t, coord.Day())
	_, ok := pub.state(model.Fajr.Key())
	assert.False(t, ok, "nothing may be published without any schedule")
}

func TestScanPlaysDueAzanOnce(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{res: &FetchResult{Times: rawTimes(), TwelveHour: true}}
	coord, pub, store, player := newTestCoordinator(now, src)
	coord.refreshOnce(context.Background())

	// one minute past dhuhr
	due := time.Date(2026, 3, 14, 11, 35, 0, 0, time.UTC)
	coord.clock = func() time.Time { return due }
	coord.scan(context.Background(), due)

	assert.Eventually(t, func() bool { return player.playCount() == 1 }, time.Second, time.Millisecond)

	es, _ := pub.state(model.Dhuhr.Key())
	assert.True(t, es.Bool("played"))

	played, err := store.PlayedOn("2026-03-14")
	require.NoError(t, err)
	assert.True(t, played[model.Dhuhr])

	// a second scan must not replay
	coord.scan(context.Background(), due.Add(time.Minute))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, player.playCount())
}

func TestScanSkipsMissedPrayersBeyondGrace(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{res: &FetchResult{Times: rawTimes(), TwelveHour: true}}
	coord, pub, _, player := newTestCoordinator(now, src)
	coord.refreshOnce(context.Background())

	late := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)
	coord.scan(context.Background(), late)
	time.Sleep(10 * time.Millisecond)

	assert.Zero(t, player.playCount(), "prayers missed beyond the grace window stay silent")
	es, _ := pub.state(model.Dhuhr.Key())
	assert.False(t, es.Bool("played"), "missed prayers show as passed, not played")
}

func TestScanAdvancesNextPointer(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{res: &FetchResult{Times: rawTimes(), TwelveHour: true}}
	coord, pub, _, _ := newTestCoordinator(now, src)
	coord.refreshOnce(context.Background())

	next, _ := pub.state(hass.KeyNext)
	require.Equal(t, "Dhuhr", next.State)

	afternoon := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)
	coord.scan(context.Background(), afternoon)

	next, _ = pub.state(hass.KeyNext)
	assert.Equal(t, "Asr", next.State)
}

func TestExhaustedDayPublishesUnknownNext(t *testing.T) {
	lateNight := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	src := &fakeSource{res: &FetchResult{Times: rawTimes(), TwelveHour: true}}
	coord, pub, _, _ := newTestCoordinator(lateNight, src)
	coord.refreshOnce(context.Background())

	next, ok := pub.state(hass.KeyNext)
	require.True(t, ok)
	assert.False(t, next.Known())

	night, _ := pub.state(hass.KeyNight)
	assert.Equal(t, "on", night.State)
}

func TestSameDayRefreshPreservesPlayed(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{res: &FetchResult{Times: rawTimes(), TwelveHour: true}}
	coord, pub, _, _ := newTestCoordinator(now, src)
	coord.refreshOnce(context.Background())

	coord.MarkPlayed(model.Fajr)
	coord.refreshOnce(context.Background())

	es, _ := pub.state(model.Fajr.Key())
	assert.True(t, es.Bool("played"), "played set survives same-day refreshes")
}

func TestTestPlayDoesNotMarkPlayed(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{res: &FetchResult{Times: rawTimes(), TwelveHour: true}}
	coord, pub, _, player := newTestCoordinator(now, src)
	coord.refreshOnce(context.Background())

	coord.HandlePlay(model.Isha)
	assert.Eventually(t, func() bool { return player.playCount() == 1 }, time.Second, time.Millisecond)

	es, _ := pub.state(model.Isha.Key())
	assert.False(t, es.Bool("played"))
}

func TestHandleStopAndRefresh(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{res: &FetchResult{Times: rawTimes(), TwelveHour: true}}
	coord, _, _, player := newTestCoordinator(now, src)

	coord.HandleStop()
	player.mu.Lock()
	assert.Equal(t, 1, player.stops)
	player.mu.Unlock()

	coord.HandleRefresh()
	select {
	case <-coord.refresh:
	default:
		t.Fatal("refresh request not queued")
	}
}

func TestScanPlaysSuhoorAlarm(t *testing.T) {
	now := time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC)
	cfg := defaultConfig()
	cfg.SuhoorEnabled = true
	cfg.SuhoorRamadanOnly = false

	src := &fakeSource{res: &FetchResult{Times: rawTimes(), TwelveHour: true}}
	pub := newFakePublisher()
	store := newFakeStore()
	player := &fakePlayer{}
	coord := NewCoordinator(cfg, src, store, pub, player)
	coord.clock = func() time.Time { return now }
	coord.refreshOnce(context.Background())

	require.NotNil(t, coord.Day().SuhoorAt)

	due := coord.Day().SuhoorAt.Add(time.Minute)
	coord.scan(context.Background(), due)

	assert.Eventually(t, func() bool {
		player.mu.Lock()
		defer player.mu.Unlock()
		return player.alarms == 1
	}, time.Second, time.Millisecond)

	// suhoor fires once per day
	coord.scan(context.Background(), due.Add(time.Minute))
	time.Sleep(10 * time.Millisecond)
	player.mu.Lock()
	assert.Equal(t, 1, player.alarms)
	player.mu.Unlock()
}
