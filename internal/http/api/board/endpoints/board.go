package endpoints

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minaret-home/minaret/internal/http/api"
	"github.com/minaret-home/minaret/internal/http/api/board/packets"
	"github.com/minaret-home/minaret/internal/model"
	"github.com/minaret-home/minaret/internal/view"
)

// Scheduler exposes the current day's raw schedule.
type Scheduler interface {
	Day() *model.Day
}

// BoardModule mounts the public board endpoints.
func BoardModule(lv *view.LiveView, sched Scheduler) api.Module {
	ctl := &boardController{view: lv, sched: sched, clock: time.Now}
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_GET("/board", ctl.getBoard)
		c.PUBLIC_GET("/board/schedule", ctl.getSchedule)
	})
}

type boardController struct {
	view  *view.LiveView
	sched Scheduler
	clock func() time.Time
}

// GET /api/board
func (b *boardController) getBoard(ctx *gin.Context) (any, *api.APIError) {
	board, ok := b.view.Board(b.clock())
	if !ok {
		return nil, &api.APIError{Code: http.StatusServiceUnavailable, Message: "no schedule data yet"}
	}
	return boardResponse(board), nil
}

// GET /api/board/schedule
func (b *boardController) getSchedule(ctx *gin.Context) (any, *api.APIError) {
	day := b.sched.Day()
	if day == nil {
		return nil, &api.APIError{Code: http.StatusServiceUnavailable, Message: "no schedule data yet"}
	}

	resp := packets.ScheduleResponse{
		Date: day.Date,
		Hijri: packets.HijriResponse{
			Day:       day.Hijri.Day,
			Month:     day.Hijri.Month,
			MonthName: day.Hijri.MonthName,
			IsRamadan: day.Hijri.IsRamadan(),
		},
	}
	for _, pt := range day.Times {
		resp.Entries = append(resp.Entries, packets.ScheduleEntryResponse{
			Prayer:   pt.Event.String(),
			Time:     pt.Display,
			Datetime: pt.At.Format(time.RFC3339),
			Enabled:  pt.Enabled,
		})
	}
	if day.SuhoorAt != nil {
		s := day.SuhoorAt.Format(time.RFC3339)
		resp.Suhoor = &s
	}
	return resp, nil
}

func boardResponse(board model.Board) packets.BoardResponse {
	resp := packets.BoardResponse{
		NextLabel: board.NextLabel,
		Countdown: board.Countdown,
		IsNight:   board.IsNight,
		Playback:  packets.PlaybackResponse{State: board.Playback.State.String()},
	}
	if ev := board.Playback.CurrentlyPlaying; ev != nil {
		name := ev.String()
		resp.Playback.CurrentlyPlaying = &name
	}
	for _, row := range board.Rows {
		resp.Rows = append(resp.Rows, packets.RowResponse{
			Prayer: row.Event.String(),
			Emoji:  row.Event.Emoji(),
			Time:   row.Time,
			Status: row.Status.String(),
			Label:  row.StatusText,
		})
	}
	return resp
}
