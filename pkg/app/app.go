// Package app composes the generation client, the library, the playback
// session and the settings into the create song workflow.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/library"
	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/darioluanne770968-prog/suno-clone/pkg/notify"
	"github.com/darioluanne770968-prog/suno-clone/pkg/player"
	"github.com/darioluanne770968-prog/suno-clone/pkg/settings"
	"github.com/darioluanne770968-prog/suno-clone/pkg/storage"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

var (
	ErrEmptyPrompt = errors.New("app: prompt is empty")
	ErrBusy        = errors.New("app: a generation is already running")
	ErrNotFound    = errors.New("app: not found")
)

// Jobs keeps the history of submitted generations.
type Jobs interface {
	SetJob(ctx context.Context, v *storage.Job) error
	GetJob(ctx context.Context, id string) (*storage.Job, error)
}

var _ Jobs = (*storage.Store)(nil)

type Config struct {
	Generator music.Generator
	Library   *library.Library
	Session   *player.Session
	Settings  *settings.Settings
	Notifier  notify.Notifier
	Jobs      Jobs

	// MaxAttempts and Interval configure completion polling. Zero values
	// use the generator defaults.
	MaxAttempts int
	Interval    time.Duration

	Logger *zap.Logger
}

type App struct {
	gen         music.Generator
	lib         *library.Library
	session     *player.Session
	settings    *settings.Settings
	notifier    notify.Notifier
	jobs        Jobs
	maxAttempts int
	interval    time.Duration
	log         *zap.Logger

	mu       sync.Mutex
	busy     bool
	task     string
	status   music.Status
	requests map[string]music.Request
}

func New(cfg *Config) *App {
	lib := cfg.Library
	if lib == nil {
		lib = library.New(nil)
	}
	st := cfg.Settings
	if st == nil {
		st = settings.New(nil)
	}
	n := cfg.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	return &App{
		gen:         cfg.Generator,
		lib:         lib,
		session:     cfg.Session,
		settings:    st,
		notifier:    n,
		jobs:        cfg.Jobs,
		maxAttempts: cfg.MaxAttempts,
		interval:    cfg.Interval,
		log:         logger.OrNop(cfg.Logger).Named("app"),
		requests:    map[string]music.Request{},
	}
}

func (a *App) Library() *library.Library    { return a.lib }
func (a *App) Session() *player.Session     { return a.session }
func (a *App) Settings() *settings.Settings { return a.settings }

// Progress is the state of the running generation.
type Progress struct {
	Generating bool         `json:"isGenerating"`
	TaskID     string       `json:"taskId,omitempty"`
	Status     music.Status `json:"status,omitempty"`
}

func (a *App) Generating() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Progress{Generating: a.busy, TaskID: a.task, Status: a.status}
}

// Create submits the request, waits for it to complete and delivers the
// resulting tracks to the library and the queue. The first playable track
// starts playing.
func (a *App) Create(ctx context.Context, req music.Request, onProgress func(music.Status)) ([]music.Track, error) {
	job, err := a.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.Await(ctx, job.TaskID, onProgress)
}

// Submit starts a generation. On success the generation slot stays taken
// until Await is called with the returned task id.
func (a *App) Submit(ctx context.Context, req music.Request) (*music.Job, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if err := a.acquire(""); err != nil {
		return nil, err
	}
	job, err := a.gen.Submit(ctx, req)
	if err != nil {
		a.release()
		return nil, err
	}
	a.mu.Lock()
	a.task = job.TaskID
	a.status = job.Status
	a.requests[job.TaskID] = req
	a.mu.Unlock()

	a.record(ctx, &storage.Job{
		ID:           ulid.Make().String(),
		TaskID:       job.TaskID,
		Prompt:       req.Prompt,
		Style:        req.Style,
		Title:        req.Title,
		Instrumental: req.Instrumental,
		Status:       string(job.Status),
	})
	a.log.Info("generation submitted", zap.String("task", job.TaskID), zap.Stringer("request", req))
	return job, nil
}

// Await waits for a submitted task and delivers its tracks. Library and
// queue are left untouched on error.
func (a *App) Await(ctx context.Context, taskID string, onProgress func(music.Status)) ([]music.Track, error) {
	if err := a.acquire(taskID); err != nil {
		return nil, err
	}
	defer a.release()

	req := a.request(ctx, taskID)
	progress := func(s music.Status) {
		a.mu.Lock()
		a.status = s
		a.mu.Unlock()
		if onProgress != nil {
			onProgress(s)
		}
	}
	tracks, err := a.gen.AwaitCompletion(ctx, taskID, progress, a.maxAttempts, a.interval)
	if err != nil {
		a.finish(ctx, taskID, music.Failed, err)
		return nil, err
	}
	tracks, err = a.deliver(ctx, req, tracks)
	if err != nil {
		a.finish(ctx, taskID, music.Failed, err)
		return nil, err
	}
	a.finish(ctx, taskID, music.Completed, nil)
	return tracks, nil
}

// Resume awaits a job from the history, looked up by job id or task id.
func (a *App) Resume(ctx context.Context, id string, onProgress func(music.Status)) ([]music.Track, error) {
	if a.jobs == nil {
		return nil, fmt.Errorf("app: no job history: %w", ErrNotFound)
	}
	job, err := a.jobs.GetJob(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("app: job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("app: couldn't get job %s: %w", id, err)
	}
	return a.Await(ctx, job.TaskID, onProgress)
}

// Poll returns the provider state of a task without delivering anything.
func (a *App) Poll(ctx context.Context, taskID string) (*music.Job, error) {
	return a.gen.Poll(ctx, taskID)
}

// PlayFromLibrary queues a library track and plays it.
func (a *App) PlayFromLibrary(ctx context.Context, id string) error {
	t, ok := a.lib.Get(id)
	if !ok {
		return fmt.Errorf("app: track %s: %w", id, ErrNotFound)
	}
	a.session.Enqueue(t)
	return a.session.PlayTrack(ctx, t)
}

func (a *App) ToggleLike(ctx context.Context, id string) (bool, error) {
	return a.lib.ToggleLike(ctx, id)
}

// acquire takes the generation slot. A task that already owns it may take
// it again.
func (a *App) acquire(taskID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy && (taskID == "" || a.task != taskID) {
		return ErrBusy
	}
	a.busy = true
	a.task = taskID
	a.status = music.Pending
	return nil
}

func (a *App) release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.busy = false
	a.task = ""
	a.status = ""
}

func (a *App) request(ctx context.Context, taskID string) music.Request {
	a.mu.Lock()
	req, ok := a.requests[taskID]
	a.mu.Unlock()
	if ok || a.jobs == nil {
		return req
	}
	job, err := a.jobs.GetJob(ctx, taskID)
	if err != nil {
		return req
	}
	return music.Request{
		Prompt:       job.Prompt,
		Style:        job.Style,
		Title:        job.Title,
		Instrumental: job.Instrumental,
	}
}

func (a *App) deliver(ctx context.Context, req music.Request, tracks []music.Track) ([]music.Track, error) {
	out := make([]music.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Prompt == "" {
			t.Prompt = req.Prompt
		}
		if (t.Genre == "" || t.Genre == music.DefaultGenre) && req.Style != "" {
			t.Genre = req.Style
		}
		out = append(out, t)
	}
	if _, err := a.lib.AddTracks(ctx, out); err != nil {
		return nil, fmt.Errorf("app: couldn't add tracks to library: %w", err)
	}
	if a.session == nil {
		return out, nil
	}
	a.session.Enqueue(out...)
	for _, t := range out {
		if !t.Playable() {
			continue
		}
		if err := a.session.PlayTrack(ctx, t); err != nil {
			a.log.Warn("couldn't play track", zap.String("track", t.ID), zap.Error(err))
		}
		break
	}
	if a.settings.Notifications() {
		if err := a.notifier.Notify(ctx, out); err != nil {
			a.log.Warn("couldn't notify", zap.Error(err))
		}
	}
	return out, nil
}

func (a *App) finish(ctx context.Context, taskID string, status music.Status, cause error) {
	a.mu.Lock()
	delete(a.requests, taskID)
	a.mu.Unlock()
	if a.jobs == nil {
		return
	}
	job, err := a.jobs.GetJob(ctx, taskID)
	if err != nil {
		a.log.Warn("couldn't get job", zap.String("task", taskID), zap.Error(err))
		return
	}
	job.Status = string(status)
	job.Error = ""
	if cause != nil {
		job.Error = cause.Error()
		if errors.Is(cause, music.ErrTimeout) {
			job.Status = "timeout"
		}
	}
	a.record(ctx, job)
}

func (a *App) record(ctx context.Context, job *storage.Job) {
	if a.jobs == nil {
		return
	}
	if err := a.jobs.SetJob(ctx, job); err != nil {
		a.log.Warn("couldn't save job", zap.String("task", job.TaskID), zap.Error(err))
	}
}
