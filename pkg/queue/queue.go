package queue

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
)

// RestartThreshold is the elapsed time in seconds after which Previous
// restarts the current track instead of moving back.
const RestartThreshold = 3.0

type Repeat string

const (
	RepeatOff Repeat = "off"
	RepeatAll Repeat = "all"
	RepeatOne Repeat = "one"
)

func ParseRepeat(s string) (Repeat, error) {
	switch r := Repeat(s); r {
	case RepeatOff, RepeatAll, RepeatOne:
		return r, nil
	case "":
		return RepeatOff, nil
	default:
		return "", fmt.Errorf("queue: invalid repeat mode %q", s)
	}
}

// Change reports what a Next or Previous call did to the current track.
type Change int

const (
	// None means nothing changed.
	None Change = iota
	// Restarted means the current track is kept and progress is back to 0.
	Restarted
	// Switched means a different track is now current.
	Switched
	// Stopped means the end of the queue was reached and playback stopped.
	Stopped
)

func (c Change) String() string {
	switch c {
	case Restarted:
		return "restarted"
	case Switched:
		return "switched"
	case Stopped:
		return "stopped"
	default:
		return "none"
	}
}

// State is a snapshot of the queue engine.
type State struct {
	Queue    []music.Track `json:"queue"`
	Current  *music.Track  `json:"currentTrack"`
	Playing  bool          `json:"isPlaying"`
	Shuffle  bool          `json:"shuffle"`
	Repeat   Repeat        `json:"repeat"`
	Progress float64       `json:"progress"`
	Duration float64       `json:"duration"`
}

// Engine owns the play queue, the current track and the shuffle and repeat
// policy. It performs no I/O.
type Engine struct {
	mu        sync.Mutex
	queue     []music.Track
	current   *music.Track
	playing   bool
	shuffle   bool
	repeat    Repeat
	progress  float64
	duration  float64
	intn      func(int) int
	observers []func(State)
}

type Option func(*Engine)

// WithRand sets the random source used to pick shuffled tracks.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.intn = r.Intn
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		repeat: RepeatOff,
		intn:   rand.Intn,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// OnChange registers fn to be called with a snapshot after every mutation.
// Observers run outside the engine lock.
func (e *Engine) OnChange(fn func(State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// update runs fn under the lock and notifies observers when it reports a
// change.
func (e *Engine) update(fn func() bool) {
	e.mu.Lock()
	changed := fn()
	var st State
	var obs []func(State)
	if changed && len(e.observers) > 0 {
		st = e.snapshot()
		obs = append(obs, e.observers...)
	}
	e.mu.Unlock()
	for _, o := range obs {
		o(st)
	}
}

func (e *Engine) snapshot() State {
	st := State{
		Queue:    append([]music.Track{}, e.queue...),
		Playing:  e.playing,
		Shuffle:  e.shuffle,
		Repeat:   e.repeat,
		Progress: e.progress,
		Duration: e.duration,
	}
	if e.current != nil {
		c := *e.current
		st.Current = &c
	}
	return st
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Current returns a copy of the current track, or nil.
func (e *Engine) Current() *music.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	c := *e.current
	return &c
}

// SetCurrent replaces the current track and resets progress. The track does
// not need to be queued.
func (e *Engine) SetCurrent(t music.Track) {
	e.update(func() bool {
		e.setCurrent(t)
		return true
	})
}

func (e *Engine) setCurrent(t music.Track) {
	e.current = &t
	e.progress = 0
	e.duration = t.Duration
}

// Enqueue appends the tracks whose ids are not queued yet in a single update
// and returns how many were added.
func (e *Engine) Enqueue(tracks ...music.Track) int {
	var n int
	e.update(func() bool {
		seen := make(map[string]struct{}, len(e.queue)+len(tracks))
		for _, t := range e.queue {
			seen[t.ID] = struct{}{}
		}
		next := e.queue
		for _, t := range tracks {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			next = append(next, t)
			n++
		}
		e.queue = next
		return n > 0
	})
	return n
}

// Dequeue removes the track with the given id. The current track is kept even
// if it is the one removed.
func (e *Engine) Dequeue(id string) bool {
	var ok bool
	e.update(func() bool {
		i := e.indexOf(id)
		if i < 0 {
			return false
		}
		e.queue = append(e.queue[:i:i], e.queue[i+1:]...)
		ok = true
		return true
	})
	return ok
}

func (e *Engine) Clear() {
	e.update(func() bool {
		if len(e.queue) == 0 {
			return false
		}
		e.queue = nil
		return true
	})
}

// ToggleShuffle flips shuffle. The queue order is never changed.
func (e *Engine) ToggleShuffle() bool {
	var v bool
	e.update(func() bool {
		e.shuffle = !e.shuffle
		v = e.shuffle
		return true
	})
	return v
}

func (e *Engine) SetShuffle(v bool) {
	e.update(func() bool {
		changed := e.shuffle != v
		e.shuffle = v
		return changed
	})
}

// CycleRepeat advances off → all → one → off.
func (e *Engine) CycleRepeat() Repeat {
	var r Repeat
	e.update(func() bool {
		switch e.repeat {
		case RepeatOff:
			e.repeat = RepeatAll
		case RepeatAll:
			e.repeat = RepeatOne
		default:
			e.repeat = RepeatOff
		}
		r = e.repeat
		return true
	})
	return r
}

func (e *Engine) SetRepeat(r Repeat) {
	e.update(func() bool {
		changed := e.repeat != r
		e.repeat = r
		return changed
	})
}

// Play starts playback. It returns false when there is no current track.
func (e *Engine) Play() bool {
	var ok bool
	e.update(func() bool {
		if e.current == nil {
			return false
		}
		ok = true
		changed := !e.playing
		e.playing = true
		return changed
	})
	return ok
}

func (e *Engine) Pause() {
	e.update(func() bool {
		changed := e.playing
		e.playing = false
		return changed
	})
}

// Stop pauses playback and rewinds the current track.
func (e *Engine) Stop() {
	e.update(func() bool {
		changed := e.playing || e.progress != 0
		e.playing = false
		e.progress = 0
		return changed
	})
}

func (e *Engine) SetProgress(sec float64) {
	if sec < 0 {
		sec = 0
	}
	e.update(func() bool {
		changed := e.progress != sec
		e.progress = sec
		return changed
	})
}

func (e *Engine) SetDuration(sec float64) {
	if sec < 0 {
		sec = 0
	}
	e.update(func() bool {
		changed := e.duration != sec
		e.duration = sec
		return changed
	})
}

// Next selects the track that follows the current one.
//
// Shuffle picks uniformly among the other queued tracks, whatever the repeat
// mode. Without shuffle, repeat one keeps the current track and sequential
// playback advances by one, wrapping only when repeat is all.
func (e *Engine) Next() Change {
	var c Change
	e.update(func() bool {
		c = e.next()
		return c != None
	})
	return c
}

func (e *Engine) next() Change {
	if len(e.queue) == 0 {
		return None
	}
	idx := e.currentIndex()
	if e.shuffle {
		return e.switchTo(e.pick(idx))
	}
	if e.repeat == RepeatOne && e.current != nil {
		e.progress = 0
		return Restarted
	}
	if idx+1 < len(e.queue) {
		return e.switchTo(idx + 1)
	}
	if e.repeat == RepeatAll {
		return e.switchTo(0)
	}
	e.playing = false
	return Stopped
}

// pick returns a random index other than skip, or the only index when the
// queue has a single entry.
func (e *Engine) pick(skip int) int {
	n := len(e.queue)
	if n == 1 {
		return 0
	}
	if skip < 0 || skip >= n {
		return e.intn(n)
	}
	i := e.intn(n - 1)
	if i >= skip {
		i++
	}
	return i
}

// Previous restarts the current track when more than RestartThreshold
// seconds have elapsed, otherwise it moves to the prior entry wrapping to the
// last one.
func (e *Engine) Previous() Change {
	var c Change
	e.update(func() bool {
		c = e.previous()
		return c != None
	})
	return c
}

func (e *Engine) previous() Change {
	if e.current != nil && e.progress > RestartThreshold {
		e.progress = 0
		return Restarted
	}
	if len(e.queue) == 0 {
		return None
	}
	idx := e.currentIndex()
	if idx <= 0 {
		return e.switchTo(len(e.queue) - 1)
	}
	return e.switchTo(idx - 1)
}

func (e *Engine) switchTo(i int) Change {
	t := e.queue[i]
	same := e.current != nil && e.current.ID == t.ID
	e.setCurrent(t)
	if same {
		return Restarted
	}
	return Switched
}

func (e *Engine) currentIndex() int {
	if e.current == nil {
		return -1
	}
	return e.indexOf(e.current.ID)
}

func (e *Engine) indexOf(id string) int {
	for i, t := range e.queue {
		if t.ID == id {
			return i
		}
	}
	return -1
}
