package headless

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func TestHandleClock(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	h := &handle{duration: 60, now: c.now}

	require.NoError(t, h.Play())
	c.t = c.t.Add(10 * time.Second)
	assert.InDelta(t, 10, h.Position(), 0.001)

	require.NoError(t, h.Pause())
	c.t = c.t.Add(10 * time.Second)
	assert.InDelta(t, 10, h.Position(), 0.001)

	require.NoError(t, h.Seek(90))
	assert.InDelta(t, 60, h.Position(), 0.001)
	require.NoError(t, h.Seek(-1))
	assert.InDelta(t, 0, h.Position(), 0.001)
	require.NoError(t, h.Release())
	assert.Error(t, h.Play())
}

func TestHandleEnded(t *testing.T) {
	h := &handle{duration: 0.02, now: time.Now}
	done := make(chan struct{})
	h.OnEnded(func() { close(done) })
	require.NoError(t, h.Play())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ended not fired")
	}
	assert.InDelta(t, 0.02, h.Position(), 0.0001)
}

func TestHandleReleasedNeverEnds(t *testing.T) {
	h := &handle{duration: 0.02, now: time.Now}
	fired := make(chan struct{}, 1)
	h.OnEnded(func() { fired <- struct{}{} })
	require.NoError(t, h.Play())
	require.NoError(t, h.Release())

	select {
	case <-fired:
		t.Fatal("released handle fired ended")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLoadUnknownFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an mp3"))
	}))
	defer srv.Close()

	o := New(nil, nil)
	h, err := o.Load(context.Background(), srv.URL+"/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, 0.0, h.Duration())
}

func TestLoadMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	o := New(nil, nil)
	_, err := o.Load(context.Background(), srv.URL+"/song.mp3")
	assert.Error(t, err)

	_, err = o.Load(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}

func TestLoadLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3"), 0644))

	o := New(nil, nil)
	h, err := o.Load(context.Background(), "file://"+path)
	require.NoError(t, err)
	require.NoError(t, h.Play())
	require.NoError(t, h.Release())
}
