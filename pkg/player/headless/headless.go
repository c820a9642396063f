// Package headless provides a player output that plays nothing. It probes MP3
// media for its length and advances a wall clock while playing, so a session
// can be driven end to end without an audio device.
package headless

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/darioluanne770968-prog/suno-clone/pkg/player"
	mp3 "github.com/hajimehoshi/go-mp3"
	"go.uber.org/zap"
)

var _ player.Output = (*Output)(nil)

type Output struct {
	client *http.Client
	log    *zap.Logger
	now    func() time.Time
}

func New(client *http.Client, log *zap.Logger) *Output {
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	return &Output{
		client: client,
		log:    logger.OrNop(log).Named("headless"),
		now:    time.Now,
	}
}

// Load fetches the media and probes its duration. Media that can't be
// decoded as MP3 is still loaded with an unknown duration.
func (o *Output) Load(ctx context.Context, u string) (player.Handle, error) {
	b, err := o.fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	duration, err := probe(b)
	if err != nil {
		o.log.Warn("couldn't probe duration", zap.String("url", u), zap.Error(err))
	}
	return &handle{
		duration: duration,
		volume:   player.DefaultVolume,
		now:      o.now,
	}, nil
}

func (o *Output) fetch(ctx context.Context, u string) ([]byte, error) {
	if strings.HasPrefix(u, "http") {
		req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
		if err != nil {
			return nil, fmt.Errorf("headless: couldn't create request: %w", err)
		}
		resp, err := o.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("headless: couldn't download %s: %w", u, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("headless: couldn't download %s: status %d", u, resp.StatusCode)
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("headless: couldn't read %s: %w", u, err)
		}
		return b, nil
	}
	b, err := os.ReadFile(strings.TrimPrefix(u, "file://"))
	if err != nil {
		return nil, fmt.Errorf("headless: couldn't read %s: %w", u, err)
	}
	return b, nil
}

// probe returns the length in seconds of MP3 data.
func probe(b []byte) (float64, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("headless: couldn't decode mp3: %w", err)
	}
	// Decoded output is 16-bit stereo: 4 bytes per sample.
	samples := d.Length() / 4
	if samples <= 0 || d.SampleRate() == 0 {
		return 0, nil
	}
	return float64(samples) / float64(d.SampleRate()), nil
}

type handle struct {
	mu       sync.Mutex
	duration float64
	volume   float64
	offset   float64
	started  time.Time
	playing  bool
	released bool
	seq      uint64
	timer    *time.Timer
	ended    func()
	now      func() time.Time
}

func (h *handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return fmt.Errorf("headless: handle released")
	}
	if h.playing {
		return nil
	}
	h.playing = true
	h.started = h.now()
	h.schedule()
	return nil
}

func (h *handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.playing {
		return nil
	}
	h.offset = h.position()
	h.playing = false
	h.stopTimer()
	return nil
}

func (h *handle) Seek(sec float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sec < 0 {
		sec = 0
	}
	if h.duration > 0 && sec > h.duration {
		sec = h.duration
	}
	h.offset = sec
	h.started = h.now()
	if h.playing {
		h.schedule()
	}
	return nil
}

func (h *handle) SetVolume(v float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = v
	return nil
}

func (h *handle) Duration() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.duration
}

func (h *handle) Position() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position()
}

func (h *handle) OnEnded(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ended = fn
}

func (h *handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.playing = false
	h.stopTimer()
	return nil
}

func (h *handle) position() float64 {
	pos := h.offset
	if h.playing {
		pos += h.now().Sub(h.started).Seconds()
	}
	if h.duration > 0 && pos > h.duration {
		pos = h.duration
	}
	return pos
}

// schedule arms the end-of-media timer. Unknown durations never end.
func (h *handle) schedule() {
	h.stopTimer()
	if h.duration <= 0 {
		return
	}
	left := time.Duration((h.duration - h.offset) * float64(time.Second))
	if left < 0 {
		left = 0
	}
	seq := h.seq
	h.timer = time.AfterFunc(left, func() {
		h.finish(seq)
	})
}

func (h *handle) stopTimer() {
	h.seq++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// finish fires the ended callback unless the timer armed at seq was
// superseded.
func (h *handle) finish(seq uint64) {
	h.mu.Lock()
	if seq != h.seq || h.released || !h.playing {
		h.mu.Unlock()
		return
	}
	h.offset = h.duration
	h.playing = false
	h.timer = nil
	fn := h.ended
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}
