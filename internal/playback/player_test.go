package playback

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minaret-home/minaret/internal/config"
	"github.com/minaret-home/minaret/internal/hass"
	"github.com/minaret-home/minaret/internal/model"
)

type fakeSink struct {
	mu      sync.Mutex
	states  []hass.EntityState
	played  []string
	stopped int
}

func (f *fakeSink) PublishState(key string, es hass.EntityState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key == hass.KeyStatus {
		f.states = append(f.states, es)
	}
}

func (f *fakeSink) PlayMedia(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, url)
}

func (f *fakeSink) StopMedia() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeSink) statusTrail() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.states))
	for i, es := range f.states {
		out[i] = es.State
	}
	return out
}

type fakeStorage struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (f *fakeStorage) Save(name string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[name] = body
	return "cache://" + name, nil
}

func audioServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPlayDownloadsAndStartsMedia(t *testing.T) {
	srv := audioServer(t, "azan-bytes")
	sink := &fakeSink{}
	store := &fakeStorage{}
	cfg := &config.Config{AzanURL: srv.URL + "/azan.mp3"}

	p := NewController(cfg, store, sink)
	require.NoError(t, p.Play(context.Background(), model.Dhuhr))

	assert.Equal(t, []string{"downloading", "playing"}, sink.statusTrail())
	assert.Equal(t, []string{"cache://azan.mp3"}, sink.played)
	assert.Equal(t, []byte("azan-bytes"), store.saved["azan.mp3"])

	st := p.State()
	assert.Equal(t, model.PlaybackPlaying, st.State)
	require.NotNil(t, st.CurrentlyPlaying)
	assert.Equal(t, model.Dhuhr, *st.CurrentlyPlaying)
}

func TestPlayFajrUsesDedicatedRecording(t *testing.T) {
	srv := audioServer(t, "fajr-bytes")
	sink := &fakeSink{}
	store := &fakeStorage{}
	cfg := &config.Config{
		AzanURL:     srv.URL + "/azan.mp3",
		FajrAzanURL: srv.URL + "/fajr.mp3",
	}

	p := NewController(cfg, store, sink)
	require.NoError(t, p.Play(context.Background(), model.Fajr))

	assert.Contains(t, store.saved, "fajr.mp3")
}

func TestPlayWithoutConfiguredAudio(t *testing.T) {
	p := NewController(&config.Config{}, &fakeStorage{}, &fakeSink{})
	assert.ErrorIs(t, p.Play(context.Background(), model.Asr), ErrNoAudio)
	assert.Equal(t, model.PlaybackIdle, p.State().State)
}

func TestPlayDownloadFailureSettlesToIdle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	sink := &fakeSink{}
	cfg := &config.Config{AzanURL: srv.URL + "/azan.mp3"}
	p := NewController(cfg, &fakeStorage{}, sink)

	assert.Error(t, p.Play(context.Background(), model.Maghrib))
	assert.Equal(t, []string{"downloading", "idle"}, sink.statusTrail())
	assert.Empty(t, sink.played)
}

func TestStopResetsStatus(t *testing.T) {
	srv := audioServer(t, "azan-bytes")
	sink := &fakeSink{}
	cfg := &config.Config{AzanURL: srv.URL + "/azan.mp3"}
	p := NewController(cfg, &fakeStorage{}, sink)

	require.NoError(t, p.Play(context.Background(), model.Isha))
	p.Stop()

	assert.Equal(t, 1, sink.stopped)
	st := p.State()
	assert.Equal(t, model.PlaybackIdle, st.State)
	assert.Nil(t, st.CurrentlyPlaying)
	assert.Equal(t, "idle", sink.statusTrail()[len(sink.statusTrail())-1])
}

func TestPlayAlarm(t *testing.T) {
	srv := audioServer(t, "alarm-bytes")
	sink := &fakeSink{}
	cfg := &config.Config{AlarmURL: srv.URL + "/alarm.wav"}
	p := NewController(cfg, &fakeStorage{}, sink)

	require.NoError(t, p.PlayAlarm(context.Background()))

	assert.Equal(t, []string{"cache://alarm.wav"}, sink.played)
	st := p.State()
	assert.Equal(t, model.PlaybackPlaying, st.State)
	assert.Nil(t, st.CurrentlyPlaying, "the alarm is not tied to a prayer")
}

func TestPlayAlarmWithoutConfiguredAudio(t *testing.T) {
	p := NewController(&config.Config{}, &fakeStorage{}, &fakeSink{})
	assert.ErrorIs(t, p.PlayAlarm(context.Background()), ErrNoAudio)
}

func TestBlobName(t *testing.T) {
	assert.Equal(t, "azan.mp3", blobName("https://cdn.example.com/audio/azan.mp3"))
	assert.Equal(t, "alarm.wav", blobName("https://cdn.example.com/alarm.wav?x=1"))
	assert.Equal(t, "azan.mp3", blobName("://bad"))
}
