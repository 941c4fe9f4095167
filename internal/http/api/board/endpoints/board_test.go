package endpoints

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minaret-home/minaret/internal/http/api"
	"github.com/minaret-home/minaret/internal/http/api/board/packets"
	"github.com/minaret-home/minaret/internal/model"
	"github.com/minaret-home/minaret/internal/view"
)

type fakeScheduler struct {
	day *model.Day
}

func (f *fakeScheduler) Day() *model.Day { return f.day }

type nopRenderer struct{}

func (nopRenderer) Render(model.Board) {}

func testSnapshot(now time.Time) *model.Snapshot {
	snap := &model.Snapshot{Now: now}
	dhuhrAt := now.Add(90 * time.Second)
	displays := map[model.Event]string{
		model.Fajr:    "04:45",
		model.Sunrise: "06:01",
		model.Dhuhr:   "11:34",
		model.Asr:     "15:01",
		model.Maghrib: "17:48",
		model.Isha:    "19:18",
	}
	for ev, display := range displays {
		snap.Facts[ev] = model.EventFacts{
			Known:       true,
			DisplayTime: display,
			Enabled:     ev != model.Sunrise,
		}
	}
	facts := snap.Facts[model.Fajr]
	facts.Played = true
	snap.Facts[model.Fajr] = facts

	facts = snap.Facts[model.Dhuhr]
	facts.ScheduledAt = &dhuhrAt
	snap.Facts[model.Dhuhr] = facts

	next := model.Dhuhr
	snap.Next = &next
	return snap
}

func testRouter(lv *view.LiveView, sched Scheduler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api.MountGroup(r, api.GroupConfig{Prefix: "/api"}, BoardModule(lv, sched))
	return r
}

func TestGetBoard(t *testing.T) {
	now := time.Date(2026, 3, 14, 11, 32, 30, 0, time.UTC)
	lv := view.NewLiveView(nopRenderer{})
	lv.Apply(testSnapshot(now))

	r := testRouter(lv, &fakeScheduler{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/board", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp packets.BoardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Rows, model.EventCount)
	assert.Equal(t, "Fajr", resp.Rows[0].Prayer)
	assert.Equal(t, "played", resp.Rows[0].Status)
	assert.Equal(t, "disabled", resp.Rows[1].Status)
	assert.Equal(t, "next", resp.Rows[2].Status)
	assert.Contains(t, resp.NextLabel, "Dhuhr")
	assert.Equal(t, "idle", resp.Playback.State)
}

func TestGetBoardBeforeFirstPush(t *testing.T) {
	lv := view.NewLiveView(nopRenderer{})
	r := testRouter(lv, &fakeScheduler{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/board", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetSchedule(t *testing.T) {
	at := time.Date(2026, 3, 14, 11, 34, 0, 0, time.UTC)
	suhoor := time.Date(2026, 3, 14, 3, 45, 0, 0, time.UTC)
	day := &model.Day{
		Date: "2026-03-14",
		Times: []model.PrayerTime{
			{Event: model.Dhuhr, At: at, Display: "11:34", Enabled: true},
		},
		SuhoorAt: &suhoor,
		Hijri:    model.HijriDate{Day: 25, Month: 9, MonthName: "Ramadan"},
	}

	lv := view.NewLiveView(nopRenderer{})
	r := testRouter(lv, &fakeScheduler{day: day})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/board/schedule", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp packets.ScheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2026-03-14", resp.Date)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "Dhuhr", resp.Entries[0].Prayer)
	assert.True(t, resp.Hijri.IsRamadan)
	require.NotNil(t, resp.Suhoor)
}

func TestGetScheduleBeforeFirstFetch(t *testing.T) {
	lv := view.NewLiveView(nopRenderer{})
	r := testRouter(lv, &fakeScheduler{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/board/schedule", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
