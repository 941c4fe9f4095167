package playback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minaret-home/minaret/internal/config"
	"github.com/minaret-home/minaret/internal/hass"
	"github.com/minaret-home/minaret/internal/model"
	"github.com/minaret-home/minaret/internal/storage"
)

// maxPlayDuration bounds how long the status entity may report playing
// before it falls back to idle on its own. An azan never runs this long.
const maxPlayDuration = 10 * time.Minute

var ErrNoAudio = errors.New("no azan audio configured")

// MediaSink drives the actual media player and carries the status entity.
type MediaSink interface {
	PublishState(key string, es hass.EntityState)
	PlayMedia(url string)
	StopMedia()
}

// Controller downloads azan audio, hands it to the media pipeline and owns
// the status entity. One playback at a time; a new play preempts the last.
type Controller struct {
	cfg    *config.Config
	store  storage.Storage
	sink   MediaSink
	client *http.Client

	mu         sync.Mutex
	state      model.PlaybackState
	current    *model.Event
	generation int
	idleTimer  *time.Timer
}

func NewController(cfg *config.Config, store storage.Storage, sink MediaSink) *Controller {
	return &Controller{
		cfg:    cfg,
		store:  store,
		sink:   sink,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Play downloads the azan for ev, caches it and starts the media pipeline.
// Blocks until playback has started or failed.
func (p *Controller) Play(ctx context.Context, ev model.Event) error {
	src := p.audioURL(ev)
	if src == "" {
		return ErrNoAudio
	}

	gen := p.transition(model.PlaybackDownloading, &ev)

	mediaURL, err := p.fetch(ctx, src)
	if err != nil {
		p.settle(gen)
		return fmt.Errorf("failed to fetch azan audio: %w", err)
	}

	if !p.begin(gen, mediaURL) {
		return nil
	}
	log.Info().Str("prayer", ev.String()).Str("url", mediaURL).Msg("azan playback started")
	return nil
}

// PlayAlarm plays the suhoor alarm sound.
func (p *Controller) PlayAlarm(ctx context.Context) error {
	if p.cfg.AlarmURL == "" {
		return ErrNoAudio
	}

	gen := p.transition(model.PlaybackDownloading, nil)

	mediaURL, err := p.fetch(ctx, p.cfg.AlarmURL)
	if err != nil {
		p.settle(gen)
		return fmt.Errorf("failed to fetch alarm audio: %w", err)
	}

	if !p.begin(gen, mediaURL) {
		return nil
	}
	log.Info().Str("url", mediaURL).Msg("alarm playback started")
	return nil
}

// Stop cuts playback and resets the status entity to idle.
func (p *Controller) Stop() {
	p.sink.StopMedia()
	p.mu.Lock()
	p.generation++
	p.setLocked(model.PlaybackIdle, nil)
	p.mu.Unlock()
	log.Info().Msg("playback stopped")
}

// State reports what the player is doing right now.
func (p *Controller) State() model.Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.Playback{State: p.state, CurrentlyPlaying: p.current}
}

// audioURL picks the configured audio for ev. Fajr has its own recording
// when one is configured.
func (p *Controller) audioURL(ev model.Event) string {
	if ev == model.Fajr && p.cfg.FajrAzanURL != "" {
		return p.cfg.FajrAzanURL
	}
	return p.cfg.AzanURL
}

// fetch downloads src and caches it through storage, returning the URL the
// media pipeline should stream.
func (p *Controller) fetch(ctx context.Context, src string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from audio source", resp.StatusCode)
	}

	return p.store.Save(blobName(src), resp.Body)
}

// blobName derives a cache key from the source URL path.
func blobName(src string) string {
	u, err := url.Parse(src)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "azan.mp3"
	}
	return path.Base(u.Path)
}

// transition bumps the generation, preempting any in-flight playback, and
// publishes the new state. Returns the generation token for this attempt.
func (p *Controller) transition(state model.PlaybackState, ev *model.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.setLocked(state, ev)
	return p.generation
}

// begin flips a download into playing unless a later attempt preempted it.
func (p *Controller) begin(gen int, mediaURL string) bool {
	p.mu.Lock()
	if p.generation != gen {
		p.mu.Unlock()
		return false
	}
	p.setLocked(model.PlaybackPlaying, p.current)

	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.idleTimer = time.AfterFunc(maxPlayDuration, func() { p.settle(gen) })
	p.mu.Unlock()

	p.sink.PlayMedia(mediaURL)
	return true
}

// settle drops back to idle if this attempt is still the active one.
func (p *Controller) settle(gen int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		return
	}
	p.setLocked(model.PlaybackIdle, nil)
}

// setLocked updates the state and publishes the status entity. Caller holds
// the mutex.
func (p *Controller) setLocked(state model.PlaybackState, ev *model.Event) {
	p.state = state
	p.current = ev

	es := hass.EntityState{State: state.String()}
	if ev != nil && state != model.PlaybackIdle {
		es.Attributes = map[string]any{"currently_playing": ev.Key()}
	}
	p.sink.PublishState(hass.KeyStatus, es)
}