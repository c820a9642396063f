package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/darioluanne770968-prog/suno-clone/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	out      *fakeOutput
	url      string
	playing  bool
	position float64
	duration float64
	volume   float64
	seeks    []float64
	plays    int
	released bool
	ended    func()
}

func (h *fakeHandle) Play() error               { h.playing = true; h.plays++; return nil }
func (h *fakeHandle) Pause() error              { h.playing = false; return nil }
func (h *fakeHandle) SetVolume(v float64) error { h.volume = v; return nil }
func (h *fakeHandle) Duration() float64         { return h.duration }
func (h *fakeHandle) Position() float64         { return h.position }
func (h *fakeHandle) OnEnded(fn func())         { h.ended = fn }

func (h *fakeHandle) Seek(sec float64) error {
	h.position = sec
	h.seeks = append(h.seeks, sec)
	return nil
}

func (h *fakeHandle) Release() error {
	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	h.released = true
	h.out.live--
	if h.out.releaseErr != nil {
		return h.out.releaseErr
	}
	return nil
}

type fakeOutput struct {
	mu         sync.Mutex
	handles    []*fakeHandle
	live       int
	maxLive    int
	duration   float64
	releaseErr error
	loadErr    error
}

func (o *fakeOutput) Load(_ context.Context, url string) (Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loadErr != nil {
		return nil, o.loadErr
	}
	h := &fakeHandle{out: o, url: url, duration: o.duration}
	o.handles = append(o.handles, h)
	o.live++
	if o.live > o.maxLive {
		o.maxLive = o.live
	}
	return h, nil
}

func (o *fakeOutput) last() *fakeHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.handles) == 0 {
		return nil
	}
	return o.handles[len(o.handles)-1]
}

func testTracks(n int) []music.Track {
	var ts []music.Track
	for i := 0; i < n; i++ {
		ts = append(ts, music.Track{
			ID:       fmt.Sprintf("t%d", i),
			AudioURL: fmt.Sprintf("https://example.com/t%d.mp3", i),
			Duration: 180,
		})
	}
	return ts
}

func newTestSession(out *fakeOutput, autoPlay func() bool) *Session {
	return New(&Config{Output: out, AutoPlay: autoPlay})
}

func TestPlayTrack(t *testing.T) {
	ctx := context.Background()
	out := &fakeOutput{duration: 185}
	s := newTestSession(out, nil)

	tr := testTracks(1)[0]
	require.NoError(t, s.PlayTrack(ctx, tr))

	h := out.last()
	require.NotNil(t, h)
	assert.Equal(t, tr.AudioURL, h.url)
	assert.True(t, h.playing)
	assert.Equal(t, DefaultVolume, h.volume)

	st := s.State()
	assert.True(t, st.Playing)
	assert.Equal(t, "t0", st.Current.ID)
	assert.Equal(t, 185.0, st.Duration)
	assert.Equal(t, 0.0, st.Progress)
}

func TestDurationEstimateUntilKnown(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSession(out, nil)
	require.NoError(t, s.PlayTrack(context.Background(), testTracks(1)[0]))
	assert.Equal(t, 180.0, s.State().Duration)

	out.last().duration = 172
	s.Tick()
	assert.Equal(t, 172.0, s.State().Duration)
}

func TestSingleHandle(t *testing.T) {
	ctx := context.Background()
	out := &fakeOutput{releaseErr: errors.New("teardown failed")}
	s := newTestSession(out, nil)
	ts := testTracks(3)
	s.Enqueue(ts...)

	require.NoError(t, s.PlayTrack(ctx, ts[0]))
	require.NoError(t, s.Next(ctx))
	require.NoError(t, s.Next(ctx))

	assert.Equal(t, 1, out.maxLive)
	require.Len(t, out.handles, 3)
	assert.True(t, out.handles[0].released)
	assert.True(t, out.handles[1].released)
	assert.False(t, out.handles[2].released)
	assert.True(t, out.handles[2].playing)
	assert.Equal(t, "t2", s.State().Current.ID)
}

func TestEmptyAudioURL(t *testing.T) {
	ctx := context.Background()
	out := &fakeOutput{}
	s := newTestSession(out, nil)
	require.NoError(t, s.PlayTrack(ctx, music.Track{ID: "pending"}))
	assert.Empty(t, out.handles)

	st := s.State()
	require.NotNil(t, st.Current)
	assert.Equal(t, "pending", st.Current.ID)
	assert.False(t, st.Playing)

	require.NoError(t, s.Play(ctx))
	require.NoError(t, s.Toggle(ctx))
	assert.False(t, s.State().Playing)
	assert.Empty(t, out.handles)
}

func TestEndedOntoEmptyAudioURL(t *testing.T) {
	ctx := context.Background()
	out := &fakeOutput{}
	s := newTestSession(out, nil)
	ts := []music.Track{testTracks(1)[0], {ID: "pending"}}
	s.Enqueue(ts...)
	s.Engine().SetRepeat(queue.RepeatAll)
	require.NoError(t, s.PlayTrack(ctx, ts[0]))

	h := out.last()
	h.ended()

	assert.True(t, h.released)
	require.Len(t, out.handles, 1)
	st := s.State()
	require.NotNil(t, st.Current)
	assert.Equal(t, "pending", st.Current.ID)
	assert.False(t, st.Playing)

	// Skipping past it binds the next playable track again.
	require.NoError(t, s.Next(ctx))
	require.Len(t, out.handles, 2)
	assert.Equal(t, "t0", s.State().Current.ID)
	assert.False(t, s.State().Playing)
	require.NoError(t, s.Play(ctx))
	assert.True(t, s.State().Playing)
	assert.True(t, out.last().playing)
}

func TestLoadError(t *testing.T) {
	out := &fakeOutput{loadErr: errors.New("unsupported")}
	s := newTestSession(out, nil)
	err := s.PlayTrack(context.Background(), testTracks(1)[0])
	assert.Error(t, err)
	assert.False(t, s.State().Playing)
}

func TestEndedRepeatOne(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSession(out, nil)
	ts := testTracks(2)
	s.Enqueue(ts...)
	require.NoError(t, s.PlayTrack(context.Background(), ts[0]))
	s.Engine().SetRepeat(queue.RepeatOne)

	h := out.last()
	h.position = 180
	h.playing = false
	h.ended()

	assert.Len(t, out.handles, 1)
	assert.Equal(t, []float64{0}, h.seeks)
	assert.True(t, h.playing)
	st := s.State()
	assert.Equal(t, "t0", st.Current.ID)
	assert.Equal(t, 0.0, st.Progress)
}

func TestEndedAdvances(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSession(out, nil)
	ts := testTracks(2)
	s.Enqueue(ts...)
	require.NoError(t, s.PlayTrack(context.Background(), ts[0]))

	out.last().ended()
	require.Len(t, out.handles, 2)
	assert.True(t, out.handles[1].playing)
	assert.Equal(t, "t1", s.State().Current.ID)

	// End of queue with repeat off stops playback.
	out.last().ended()
	assert.Len(t, out.handles, 2)
	assert.False(t, s.State().Playing)
	assert.Equal(t, "t1", s.State().Current.ID)
}

func TestStaleEndedIgnored(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSession(out, nil)
	ts := testTracks(3)
	s.Enqueue(ts...)
	require.NoError(t, s.PlayTrack(context.Background(), ts[0]))
	first := out.last()
	require.NoError(t, s.Next(context.Background()))

	first.ended()
	assert.Equal(t, "t1", s.State().Current.ID)
	assert.Len(t, out.handles, 2)
}

func TestEndedWithoutAutoPlay(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSession(out, func() bool { return false })
	ts := testTracks(2)
	s.Enqueue(ts...)
	require.NoError(t, s.PlayTrack(context.Background(), ts[0]))

	out.last().ended()
	st := s.State()
	assert.False(t, st.Playing)
	assert.Equal(t, "t0", st.Current.ID)
	assert.Len(t, out.handles, 1)
}

func TestSeekClamps(t *testing.T) {
	out := &fakeOutput{duration: 100}
	s := newTestSession(out, nil)
	require.NoError(t, s.PlayTrack(context.Background(), testTracks(1)[0]))

	s.Seek(250)
	assert.Equal(t, 100.0, s.State().Progress)
	s.Seek(-4)
	assert.Equal(t, 0.0, s.State().Progress)
	s.Seek(42)
	assert.Equal(t, 42.0, s.State().Progress)
	assert.Equal(t, []float64{100, 0, 42}, out.last().seeks)
}

func TestMuteRestoresVolume(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSession(out, nil)
	require.NoError(t, s.PlayTrack(context.Background(), testTracks(1)[0]))
	h := out.last()

	s.SetVolume(0.4)
	s.Mute()
	assert.Equal(t, 0.0, h.volume)
	assert.True(t, s.State().Muted)

	s.Unmute()
	assert.Equal(t, 0.4, h.volume)
	assert.False(t, s.State().Muted)

	assert.True(t, s.ToggleMute())
	assert.False(t, s.ToggleMute())
	assert.Equal(t, 0.4, s.State().Volume)
}

func TestTickOnlyWhilePlaying(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSession(out, nil)
	require.NoError(t, s.PlayTrack(context.Background(), testTracks(1)[0]))
	h := out.last()

	h.position = 12
	s.Tick()
	assert.Equal(t, 12.0, s.State().Progress)

	s.Pause()
	assert.False(t, h.playing)
	h.position = 30
	s.Tick()
	assert.Equal(t, 12.0, s.State().Progress)
}

func TestPreviousRewindsHandle(t *testing.T) {
	out := &fakeOutput{}
	s := newTestSession(out, nil)
	ts := testTracks(2)
	s.Enqueue(ts...)
	require.NoError(t, s.PlayTrack(context.Background(), ts[1]))
	h := out.last()
	h.position = 10
	s.Tick()

	require.NoError(t, s.Previous(context.Background()))
	assert.Equal(t, "t1", s.State().Current.ID)
	assert.Equal(t, []float64{0}, h.seeks)

	require.NoError(t, s.Previous(context.Background()))
	assert.Equal(t, "t0", s.State().Current.ID)
	assert.True(t, h.released)
}

func TestOnChange(t *testing.T) {
	s := newTestSession(&fakeOutput{}, nil)
	var got []State
	s.OnChange(func(st State) { got = append(got, st) })

	s.SetVolume(0.5)
	s.Enqueue(testTracks(1)...)
	require.Len(t, got, 2)
	assert.Equal(t, 0.5, got[0].Volume)
	assert.Len(t, got[1].Queue, 1)
}
