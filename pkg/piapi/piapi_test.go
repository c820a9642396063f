package piapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu       sync.Mutex
	statuses []string
	clips    string
	polls    int
	failPoll int
	lastBody map[string]any
	lastKey  string
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastKey = r.Header.Get("X-API-Key")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/music":
		f.lastBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		fmt.Fprint(w, `{"code":200,"message":"success","data":{"task_id":"task-1"}}`)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/music/"):
		f.polls++
		if f.failPoll > 0 {
			f.failPoll--
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		status := f.statuses[len(f.statuses)-1]
		if f.polls <= len(f.statuses) {
			status = f.statuses[f.polls-1]
		}
		clips := "[]"
		if status == "success" {
			clips = f.clips
		}
		fmt.Fprintf(w, `{"code":200,"message":"ok","data":{"task_id":"task-1","status":%q,"clips":%s}}`, status, clips)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, h http.Handler, key string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(&Config{
		BaseURL: srv.URL,
		APIKey:  key,
		Wait:    time.Nanosecond,
	})
}

const oneClip = `[{"id":"clip-1","title":"Rain","audio_url":"https://cdn1.suno.ai/clip-1.mp3","image_url":"https://cdn2.suno.ai/clip-1.jpg","created_at":"2026-10-17T10:00:00Z","metadata":{"duration":185,"tags":"lofi","prompt":"lofi rain"}}]`

func TestSubmit(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(t, p, "secret")

	job, err := c.Submit(context.Background(), music.Request{Prompt: "lofi rain", Style: "lofi"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", job.TaskID)
	assert.Equal(t, music.Pending, job.Status)
	assert.Equal(t, "secret", p.lastKey)

	input := p.lastBody["input"].(map[string]any)
	assert.Equal(t, "lofi rain", input["prompt"])
	assert.Equal(t, "lofi rain", input["title"])
	assert.Equal(t, "lofi", input["tags"])
	assert.Equal(t, "chirp-v4", p.lastBody["mv"])
	assert.Equal(t, true, p.lastBody["custom_mode"])
}

func TestSubmitInstrumentalDefaults(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(t, p, "secret")

	long := strings.Repeat("á", 60)
	_, err := c.Submit(context.Background(), music.Request{Prompt: long, Instrumental: true})
	require.NoError(t, err)

	input := p.lastBody["input"].(map[string]any)
	assert.Equal(t, "", input["prompt"])
	assert.Equal(t, strings.Repeat("á", 50), input["title"])
	assert.Equal(t, "pop", input["tags"])
}

func TestSubmitWithoutKey(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(t, p, "")

	_, err := c.Submit(context.Background(), music.Request{Prompt: "x"})
	var cfgErr *music.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Nil(t, p.lastBody)
}

func TestSubmitRemoteError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"message":"insufficient credits"}`)
	}), "secret")

	_, err := c.Submit(context.Background(), music.Request{Prompt: "x"})
	var remote *music.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusPaymentRequired, remote.StatusCode)
	assert.Contains(t, remote.Body, "insufficient credits")
}

func TestToStatus(t *testing.T) {
	tests := map[string]music.Status{
		"pending":    music.Pending,
		"starting":   music.Processing,
		"processing": music.Processing,
		"retry":      music.Processing,
		"success":    music.Completed,
		"SUCCESS":    music.Completed,
		"failed":     music.Failed,
		"queued":     music.Processing,
		"":           music.Processing,
	}
	for in, want := range tests {
		assert.Equal(t, want, toStatus(in), in)
	}
}

func TestAwaitCompletion(t *testing.T) {
	p := &fakeProvider{statuses: []string{"pending", "processing", "success"}, clips: oneClip}
	c := newTestClient(t, p, "secret")

	var progress []music.Status
	tracks, err := c.AwaitCompletion(context.Background(), "task-1", func(s music.Status) {
		progress = append(progress, s)
	}, 10, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, []music.Status{music.Pending, music.Processing}, progress)
	assert.Equal(t, 3, p.polls)

	tr := tracks[0]
	assert.Equal(t, "clip-1", tr.ID)
	assert.Equal(t, "Rain", tr.Title)
	assert.Equal(t, 185.0, tr.Duration)
	assert.Equal(t, "https://cdn1.suno.ai/clip-1.mp3", tr.AudioURL)
	assert.Equal(t, "lofi", tr.Genre)
	assert.Equal(t, music.DefaultArtist, tr.Artist)
	assert.Equal(t, time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), tr.CreatedAt)
}

func TestAwaitCompletionTimeout(t *testing.T) {
	p := &fakeProvider{statuses: []string{"processing"}}
	c := newTestClient(t, p, "secret")

	var calls int
	_, err := c.AwaitCompletion(context.Background(), "task-1", func(music.Status) { calls++ }, 3, time.Millisecond)
	assert.ErrorIs(t, err, music.ErrTimeout)
	assert.Equal(t, 3, p.polls)
	assert.Equal(t, 3, calls)
}

func TestAwaitCompletionFailed(t *testing.T) {
	p := &fakeProvider{statuses: []string{"processing", "failed"}}
	c := newTestClient(t, p, "secret")

	_, err := c.AwaitCompletion(context.Background(), "task-1", nil, 60, time.Millisecond)
	assert.ErrorIs(t, err, music.ErrGenerationFailed)
	assert.False(t, errors.Is(err, music.ErrTimeout))
	assert.Equal(t, 2, p.polls)
}

func TestAwaitCompletionToleratesPollErrors(t *testing.T) {
	p := &fakeProvider{statuses: []string{"success"}, clips: oneClip, failPoll: 2}
	c := newTestClient(t, p, "secret")

	tracks, err := c.AwaitCompletion(context.Background(), "task-1", nil, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
	assert.Equal(t, 3, p.polls)
}

func TestAwaitCompletionAbortsOnRepeatedPollErrors(t *testing.T) {
	p := &fakeProvider{statuses: []string{"success"}, clips: oneClip, failPoll: 10}
	c := newTestClient(t, p, "secret")

	_, err := c.AwaitCompletion(context.Background(), "task-1", nil, 10, time.Millisecond)
	var remote *music.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusBadGateway, remote.StatusCode)
	assert.Equal(t, maxPollErrors, p.polls)
}

func TestAwaitCompletionCancel(t *testing.T) {
	p := &fakeProvider{statuses: []string{"processing"}}
	c := newTestClient(t, p, "secret")

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.AwaitCompletion(ctx, "task-1", func(music.Status) { cancel() }, 60, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClipListObject(t *testing.T) {
	var l clipList
	err := json.Unmarshal([]byte(`{"b":{"title":"B"},"a":{"id":"a","title":"A"}}`), &l)
	require.NoError(t, err)
	require.Len(t, l, 2)
	assert.Equal(t, "a", l[0].ID)
	assert.Equal(t, "b", l[1].ID)
}

func TestToTrackDefaults(t *testing.T) {
	c := New(&Config{APIKey: "k"})
	tr := c.toTrack(clip{StreamAudioURL: "https://cdn1.suno.ai/stream.mp3"}, "task-9")
	assert.Equal(t, "task-9", tr.ID)
	assert.Equal(t, "Generated Track", tr.Title)
	assert.Equal(t, music.DefaultDuration, tr.Duration)
	assert.Equal(t, music.PlaceholderCover("task-9"), tr.Cover)
	assert.Equal(t, "https://cdn1.suno.ai/stream.mp3", tr.AudioURL)
	assert.Equal(t, music.DefaultGenre, tr.Genre)

	tr = c.toTrack(clip{ID: "x", AudioURL: "full.mp3", StreamAudioURL: "stream.mp3"}, "task")
	assert.Equal(t, "full.mp3", tr.AudioURL)
}

func TestPreferStreamFollowsHook(t *testing.T) {
	low := true
	c := New(&Config{APIKey: "k", PreferStream: func() bool { return low }})
	cl := clip{ID: "x", AudioURL: "full.mp3", StreamAudioURL: "stream.mp3"}

	assert.Equal(t, "stream.mp3", c.toTrack(cl, "task").AudioURL)
	low = false
	assert.Equal(t, "full.mp3", c.toTrack(cl, "task").AudioURL)
	low = true
	assert.Equal(t, "full.mp3", c.toTrack(clip{ID: "y", AudioURL: "full.mp3"}, "task").AudioURL)
}
