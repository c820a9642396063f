package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/darioluanne770968-prog/suno-clone/pkg/queue"
	"go.uber.org/zap"
)

const (
	DefaultVolume = 0.8
	// TickInterval is the cadence at which progress is sampled while playing.
	TickInterval = time.Second
)

// Output is an audio backend able to load a media url.
type Output interface {
	Load(ctx context.Context, url string) (Handle, error)
}

// Handle is a loaded media item. Implementations must not call the ended
// callback from inside their own methods.
type Handle interface {
	Play() error
	Pause() error
	Seek(sec float64) error
	SetVolume(v float64) error
	// Duration returns the media length in seconds, 0 while unknown.
	Duration() float64
	Position() float64
	OnEnded(fn func())
	Release() error
}

// State is the queue state plus the session volume.
type State struct {
	queue.State
	Volume float64 `json:"volume"`
	Muted  bool    `json:"isMuted"`
}

type Config struct {
	Output Output
	Engine *queue.Engine
	Volume float64
	// AutoPlay reports whether playback continues with the next track when
	// the current one ends. Nil means always.
	AutoPlay func() bool
	Logger   *zap.Logger
}

// Session binds the queue engine to a single output handle.
type Session struct {
	mu     sync.Mutex
	engine *queue.Engine
	out    Output
	handle Handle
	bound  string
	gen    uint64

	vmu       sync.Mutex
	volume    float64
	preMute   float64
	muted     bool
	observers []func(State)

	autoPlay func() bool
	log      *zap.Logger
}

func New(cfg *Config) *Session {
	engine := cfg.Engine
	if engine == nil {
		engine = queue.New()
	}
	volume := cfg.Volume
	if volume <= 0 || volume > 1 {
		volume = DefaultVolume
	}
	s := &Session{
		engine:   engine,
		out:      cfg.Output,
		volume:   volume,
		preMute:  volume,
		autoPlay: cfg.AutoPlay,
		log:      logger.OrNop(cfg.Logger).Named("player"),
	}
	engine.OnChange(func(st queue.State) {
		s.notify(st)
	})
	return s
}

// Engine returns the queue engine driven by the session.
func (s *Session) Engine() *queue.Engine {
	return s.engine
}

// OnChange registers fn to be called with a snapshot after every queue or
// volume change. fn must not call session methods other than State.
func (s *Session) OnChange(fn func(State)) {
	s.vmu.Lock()
	defer s.vmu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Session) notify(st queue.State) {
	s.vmu.Lock()
	full := State{State: st, Volume: s.volume, Muted: s.muted}
	obs := append([]func(State){}, s.observers...)
	s.vmu.Unlock()
	for _, o := range obs {
		o(full)
	}
}

func (s *Session) State() State {
	st := s.engine.State()
	s.vmu.Lock()
	defer s.vmu.Unlock()
	return State{State: st, Volume: s.volume, Muted: s.muted}
}

// PlayTrack makes t the current track and starts playing it.
func (s *Session) PlayTrack(ctx context.Context, t music.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetCurrent(t)
	if s.handle != nil && s.bound == t.ID {
		if err := s.handle.Seek(0); err != nil {
			s.log.Warn("couldn't rewind", zap.Error(err))
		}
	}
	if err := s.bind(ctx); err != nil {
		s.engine.Pause()
		return err
	}
	s.play()
	return nil
}

// Play resumes the current track. It is a no-op without a current track.
func (s *Session) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.bind(ctx); err != nil {
		return err
	}
	s.play()
	return nil
}

func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pause()
}

func (s *Session) Toggle(ctx context.Context) error {
	if s.engine.State().Playing {
		s.Pause()
		return nil
	}
	return s.Play(ctx)
}

func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, s.engine.Next())
}

func (s *Session) Previous(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, s.engine.Previous())
}

func (s *Session) Enqueue(tracks ...music.Track) int {
	return s.engine.Enqueue(tracks...)
}

func (s *Session) Dequeue(id string) bool {
	return s.engine.Dequeue(id)
}

func (s *Session) Clear() {
	s.engine.Clear()
}

func (s *Session) ToggleShuffle() bool {
	return s.engine.ToggleShuffle()
}

func (s *Session) CycleRepeat() queue.Repeat {
	return s.engine.CycleRepeat()
}

// Seek moves the playback cursor, clamped to the known duration.
func (s *Session) Seek(sec float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine.Current() == nil {
		return
	}
	dur := s.engine.State().Duration
	if s.handle != nil {
		if d := s.handle.Duration(); d > 0 {
			dur = d
		}
	}
	if sec < 0 {
		sec = 0
	}
	if dur > 0 && sec > dur {
		sec = dur
	}
	s.engine.SetProgress(sec)
	if s.handle != nil {
		if err := s.handle.Seek(sec); err != nil {
			s.log.Warn("couldn't seek", zap.Float64("position", sec), zap.Error(err))
		}
	}
}

// SetVolume sets the volume in [0, 1] and clears mute.
func (s *Session) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.setVolume(func() {
		s.volume = v
		s.muted = false
	})
}

// Mute silences the output and remembers the current level.
func (s *Session) Mute() {
	s.setVolume(func() {
		if s.muted {
			return
		}
		s.preMute = s.volume
		s.volume = 0
		s.muted = true
	})
}

// Unmute restores the level from before Mute.
func (s *Session) Unmute() {
	s.setVolume(func() {
		if !s.muted {
			return
		}
		s.volume = s.preMute
		if s.volume == 0 {
			s.volume = DefaultVolume
		}
		s.muted = false
	})
}

func (s *Session) ToggleMute() bool {
	s.vmu.Lock()
	muted := s.muted
	s.vmu.Unlock()
	if muted {
		s.Unmute()
	} else {
		s.Mute()
	}
	return !muted
}

func (s *Session) setVolume(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vmu.Lock()
	fn()
	v := s.volume
	s.vmu.Unlock()
	if s.handle != nil {
		if err := s.handle.SetVolume(v); err != nil {
			s.log.Warn("couldn't set volume", zap.Float64("volume", v), zap.Error(err))
		}
	}
	s.notify(s.engine.State())
}

// Tick mirrors the handle position and duration into the engine. Nothing is
// sampled while paused.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil || !s.engine.State().Playing {
		return
	}
	if d := s.handle.Duration(); d > 0 {
		s.engine.SetDuration(d)
	}
	s.engine.SetProgress(s.handle.Position())
}

// Run samples progress every TickInterval until ctx is done, then releases
// the output handle.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Close releases the output handle.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
	s.bound = ""
}

func (s *Session) apply(ctx context.Context, c queue.Change) error {
	switch c {
	case queue.Restarted:
		if s.handle != nil {
			if err := s.handle.Seek(0); err != nil {
				s.log.Warn("couldn't rewind", zap.Error(err))
			}
		}
	case queue.Switched:
		if err := s.bind(ctx); err != nil {
			s.engine.Pause()
			return err
		}
		if s.engine.State().Playing {
			s.play()
		}
	case queue.Stopped:
		s.pauseHandle()
	}
	return nil
}

// bind makes sure the handle matches the current track. The previous handle
// is always released first.
func (s *Session) bind(ctx context.Context) error {
	cur := s.engine.Current()
	if cur == nil {
		s.release()
		s.bound = ""
		return nil
	}
	if s.handle != nil && s.bound == cur.ID {
		return nil
	}
	s.release()
	s.bound = cur.ID
	if !cur.Playable() {
		return nil
	}
	if s.out == nil {
		return fmt.Errorf("player: no audio output configured")
	}
	h, err := s.out.Load(ctx, cur.AudioURL)
	if err != nil {
		s.bound = ""
		return fmt.Errorf("player: couldn't load %s: %w", cur.ID, err)
	}
	s.handle = h
	gen := s.gen
	h.OnEnded(func() {
		s.ended(gen)
	})
	s.vmu.Lock()
	v := s.volume
	s.vmu.Unlock()
	if err := h.SetVolume(v); err != nil {
		s.log.Warn("couldn't set volume", zap.Float64("volume", v), zap.Error(err))
	}
	if d := h.Duration(); d > 0 {
		s.engine.SetDuration(d)
	}
	s.log.Debug("track loaded", zap.String("track", cur.ID), zap.String("url", cur.AudioURL))
	return nil
}

// release tears down the current handle. Errors are logged and swallowed.
func (s *Session) release() {
	s.gen++
	if s.handle == nil {
		return
	}
	if err := s.handle.Release(); err != nil {
		s.log.Debug("couldn't release handle", zap.Error(err))
	}
	s.handle = nil
}

// play starts the bound handle. A current track without media stays paused:
// nothing could sample its progress or report its end.
func (s *Session) play() {
	if s.handle == nil {
		s.engine.Pause()
		return
	}
	if !s.engine.Play() {
		return
	}
	if err := s.handle.Play(); err != nil {
		s.log.Warn("couldn't play", zap.String("track", s.bound), zap.Error(err))
	}
}

func (s *Session) pause() {
	s.engine.Pause()
	s.pauseHandle()
}

func (s *Session) pauseHandle() {
	if s.handle == nil {
		return
	}
	if err := s.handle.Pause(); err != nil {
		s.log.Warn("couldn't pause", zap.String("track", s.bound), zap.Error(err))
	}
}

// ended handles the end of the media bound at generation gen. Events from
// released handles are ignored.
func (s *Session) ended(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.handle == nil {
		return
	}
	st := s.engine.State()
	switch {
	case st.Repeat == queue.RepeatOne:
		s.engine.SetProgress(0)
		if err := s.handle.Seek(0); err != nil {
			s.log.Warn("couldn't rewind", zap.Error(err))
		}
		if err := s.handle.Play(); err != nil {
			s.log.Warn("couldn't play", zap.String("track", s.bound), zap.Error(err))
		}
	case s.autoPlay != nil && !s.autoPlay():
		s.engine.Stop()
		if err := s.handle.Seek(0); err != nil {
			s.log.Warn("couldn't rewind", zap.Error(err))
		}
	default:
		c := s.engine.Next()
		if err := s.apply(context.Background(), c); err != nil {
			s.log.Error("couldn't advance after track ended", zap.Error(err))
			return
		}
		// A restarted handle has stopped on its own.
		if c == queue.Restarted && st.Playing {
			s.play()
		}
	}
}
