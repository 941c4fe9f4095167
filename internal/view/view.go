package view

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-home/minaret/internal/model"
	"github.com/minaret-home/minaret/internal/schedule"
)

// LiveView reconciles two update cadences against one cached snapshot: pushes
// replace the snapshot and re-render the whole board atomically, ticks only
// refresh the countdown badge against the latest cache. The mutex serializes
// both paths, so a tick can never format a countdown for a snapshot that the
// next render will show as superseded.
type LiveView struct {
	renderer Renderer
	interval time.Duration

	mu     sync.Mutex
	snap   *model.Snapshot
	ticker *time.Ticker
	done   chan struct{}
}

// NewLiveView creates a detached view rendering into r with a 1s tick.
func NewLiveView(r Renderer) *LiveView {
	return &LiveView{renderer: r, interval: time.Second}
}

// Apply replaces the cached snapshot and re-renders all rows, the hero label
// and the countdown in one pass. The previous snapshot is discarded wholesale.
func (v *LiveView) Apply(snap *model.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snap = snap
	v.renderer.Render(Project(snap))
}

// Attach starts the countdown ticker. Idempotent: attaching an already
// attached view is a no-op, so re-attachment never spawns duplicate timers.
func (v *LiveView) Attach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.done != nil {
		return
	}
	v.ticker = time.NewTicker(v.interval)
	v.done = make(chan struct{})
	go v.loop(v.ticker, v.done)
	log.Debug().Msg("live view attached")
}

// Detach stops the countdown ticker. Idempotent: detaching a detached or
// never-attached view is a no-op, not an error.
func (v *LiveView) Detach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.done == nil {
		return
	}
	v.ticker.Stop()
	close(v.done)
	v.ticker = nil
	v.done = nil
	log.Debug().Msg("live view detached")
}

// Board returns the latest projection with the countdown recomputed against
// now. ok is false while no snapshot has been pushed yet.
func (v *LiveView) Board(now time.Time) (model.Board, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snap == nil {
		return model.Board{}, false
	}
	return v.projectAt(now), true
}

func (v *LiveView) loop(ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			v.tick(now)
		}
	}
}

// tick refreshes only the countdown badge. Ticks are idempotent pure
// recomputations: one firing that lands while a push holds the lock simply
// waits and then reads the fresh cache.
func (v *LiveView) tick(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snap == nil {
		return
	}
	v.renderer.Render(v.projectAt(now))
}

func (v *LiveView) projectAt(now time.Time) model.Board {
	board := Project(v.snap)
	if target, ok := schedule.NextTarget(v.snap); ok {
		board.Countdown = schedule.FormatCountdown(target, now).Text
	}
	return board
}
