package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/app"
	"github.com/darioluanne770968-prog/suno-clone/pkg/filestore"
	"github.com/darioluanne770968-prog/suno-clone/pkg/inspire"
	"github.com/darioluanne770968-prog/suno-clone/pkg/library"
	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/darioluanne770968-prog/suno-clone/pkg/settings"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Options struct {
	App *app.App
	// Files is optional, archiving is disabled without it.
	Files  *filestore.Store
	Client *http.Client
	Picker *inspire.Picker
	// Writer is optional, prompt ideas fall back to the picker without it.
	Writer      *inspire.Writer
	Cache       string
	Debug       bool
	Credentials map[string]string
	Logger      *zap.Logger
}

type server struct {
	ctx    context.Context
	app    *app.App
	files  *filestore.Store
	client *http.Client
	picker *inspire.Picker
	writer *inspire.Writer
	hub    *hub
	log    *zap.Logger
}

// NewHandler returns the API router. Background generations started by the
// API stop when ctx is done.
func NewHandler(ctx context.Context, opts *Options) http.Handler {
	log := logger.OrNop(opts.Logger).Named("web")
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	picker := opts.Picker
	if picker == nil {
		picker = inspire.NewPicker(nil, time.Now().UnixNano())
	}
	s := &server{
		ctx:    ctx,
		app:    opts.App,
		files:  opts.Files,
		client: client,
		picker: picker,
		writer: opts.Writer,
		hub:    newHub(log),
		log:    log,
	}
	s.app.Session().OnChange(s.hub.broadcast)

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	if len(opts.Credentials) > 0 {
		mux.Use(middleware.BasicAuth("private", opts.Credentials))
	}

	cache := opts.Cache
	if cache == "" && s.files != nil {
		cache = s.files.LocalRoot()
	}
	if cache != "" {
		mux.Get("/cache/*", http.StripPrefix("/cache/", http.FileServer(http.Dir(cache))).ServeHTTP)
	}

	// Websocket connections are long lived and must skip the timeout.
	mux.Get("/api/player/events", func(w http.ResponseWriter, r *http.Request) {
		s.hub.serve(w, r, s.app.Session().State())
	})

	mux.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		if opts.Debug {
			r.Use(middleware.Logger)
		}

		r.Post("/api/generate", s.generate)
		r.Get("/api/generate/status", s.status)
		r.Get("/api/generate/progress", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, s.app.Generating())
		})

		r.Get("/api/tracks", s.tracks)
		r.Get("/api/tracks/{id}", s.track)
		r.Post("/api/tracks/{id}/like", s.like)
		r.Post("/api/tracks/{id}/play", s.playTrack)
		r.Post("/api/tracks/{id}/archive", s.archive)

		r.Get("/api/player", s.player)
		r.Post("/api/player/{action}", s.playerAction)
		r.Post("/api/queue", s.enqueue)
		r.Delete("/api/queue/{id}", s.dequeue)
		r.Delete("/api/queue", func(w http.ResponseWriter, r *http.Request) {
			s.app.Session().Clear()
			writeJSON(w, http.StatusOK, s.app.Session().State())
		})

		r.Get("/api/settings", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, s.app.Settings().Values())
		})
		r.Put("/api/settings", s.updateSettings)

		r.Get("/api/prompts/random", s.randomPrompt)
	})
	return mux
}

type generateRequest struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style"`
	Title        string `json:"title"`
	Instrumental bool   `json:"instrumental"`
}

type jobData struct {
	TaskID string        `json:"taskId"`
	Status music.Status  `json:"status,omitempty"`
	Tracks []music.Track `json:"tracks,omitempty"`
}

type jobResponse struct {
	Code int     `json:"code"`
	Msg  string  `json:"msg"`
	Data jobData `json:"data"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// generate submits the request and awaits it in the background. Clients
// follow it through the status endpoint or the player events.
func (s *server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	job, err := s.app.Submit(r.Context(), music.Request{
		Prompt:       req.Prompt,
		Style:        req.Style,
		Title:        req.Title,
		Instrumental: req.Instrumental,
	})
	if err != nil {
		s.writeError(w, "Failed to generate music", err)
		return
	}
	go func() {
		if _, err := s.app.Await(s.ctx, job.TaskID, nil); err != nil {
			s.log.Warn("generation failed", zap.String("task", job.TaskID), zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusOK, jobResponse{
		Code: http.StatusOK,
		Msg:  "success",
		Data: jobData{TaskID: job.TaskID, Status: job.Status},
	})
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Task ID is required"})
		return
	}
	job, err := s.app.Poll(r.Context(), taskID)
	if err != nil {
		s.writeError(w, "Failed to get status", err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{
		Code: http.StatusOK,
		Msg:  job.Message,
		Data: jobData{TaskID: job.TaskID, Status: job.Status, Tracks: job.Tracks},
	})
}

type trackResponse struct {
	music.Track
	Liked bool `json:"liked"`
}

func (s *server) withLikes(tracks []music.Track) []trackResponse {
	lib := s.app.Library()
	out := make([]trackResponse, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, trackResponse{Track: t, Liked: lib.IsLiked(t.ID)})
	}
	return out
}

func (s *server) tracks(w http.ResponseWriter, r *http.Request) {
	f, err := library.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid filter", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.withLikes(s.app.Library().Tracks(f)))
}

func (s *server) track(w http.ResponseWriter, r *http.Request) {
	t, ok := s.app.Library().Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Track not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.withLikes([]music.Track{t})[0])
}

func (s *server) like(w http.ResponseWriter, r *http.Request) {
	liked, err := s.app.ToggleLike(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "Failed to like track", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (s *server) playTrack(w http.ResponseWriter, r *http.Request) {
	if err := s.app.PlayFromLibrary(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, "Failed to play track", err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Session().State())
}

func (s *server) archive(w http.ResponseWriter, r *http.Request) {
	if s.files == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "File storage not configured"})
		return
	}
	id := chi.URLParam(r, "id")
	t, ok := s.app.Library().Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Track not found"})
		return
	}
	if err := s.files.Archive(r.Context(), s.client, t); err != nil {
		s.writeError(w, "Failed to archive track", err)
		return
	}
	resp := map[string]string{"id": id}
	if root := s.files.LocalRoot(); root != "" {
		if _, err := os.Stat(filepath.Join(root, filestore.MP3(id))); err == nil {
			resp["audioUrl"] = "/cache/" + filestore.MP3(id)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) player(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Session().State())
}

type seekRequest struct {
	Position float64 `json:"position"`
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

func (s *server) playerAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := s.app.Session()
	var err error
	switch action := chi.URLParam(r, "action"); action {
	case "play":
		err = session.Play(ctx)
	case "pause":
		session.Pause()
	case "toggle":
		err = session.Toggle(ctx)
	case "next":
		err = session.Next(ctx)
	case "previous":
		err = session.Previous(ctx)
	case "shuffle":
		session.ToggleShuffle()
	case "repeat":
		session.CycleRepeat()
	case "mute":
		session.Mute()
	case "unmute":
		session.Unmute()
	case "seek":
		var req seekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Details: err.Error()})
			return
		}
		session.Seek(req.Position)
	case "volume":
		var req volumeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Details: err.Error()})
			return
		}
		session.SetVolume(req.Volume)
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Unknown action %q", action)})
		return
	}
	if err != nil {
		s.writeError(w, "Playback failed", err)
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

type enqueueRequest struct {
	IDs []string `json:"ids"`
}

func (s *server) enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	var tracks []music.Track
	for _, id := range req.IDs {
		t, ok := s.app.Library().Get(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Track not found", Details: id})
			return
		}
		tracks = append(tracks, t)
	}
	s.app.Session().Enqueue(tracks...)
	writeJSON(w, http.StatusOK, s.app.Session().State())
}

func (s *server) dequeue(w http.ResponseWriter, r *http.Request) {
	if !s.app.Session().Dequeue(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Track not in queue"})
		return
	}
	writeJSON(w, http.StatusOK, s.app.Session().State())
}

func (s *server) updateSettings(w http.ResponseWriter, r *http.Request) {
	v := s.app.Settings().Values()
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	if err := s.app.Settings().Update(r.Context(), v); err != nil {
		s.writeError(w, "Failed to update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Settings().Values())
}

func (s *server) randomPrompt(w http.ResponseWriter, r *http.Request) {
	hint := r.URL.Query().Get("hint")
	if s.writer != nil {
		p, err := s.writer.Idea(r.Context(), hint)
		if err == nil {
			writeJSON(w, http.StatusOK, p)
			return
		}
		s.log.Warn("couldn't get prompt idea", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, s.picker.Pick())
}

func (s *server) writeError(w http.ResponseWriter, msg string, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.log.Error(msg, zap.Error(err))
	}
	resp := errorResponse{Error: msg, Details: err.Error()}
	var cfgErr *music.ConfigError
	if errors.As(err, &cfgErr) {
		resp.Details = fmt.Sprintf("%s %s not configured", cfgErr.Service, cfgErr.Field)
	}
	var remoteErr *music.RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Body != "" {
		resp.Details = remoteErr.Body
	}
	writeJSON(w, code, resp)
}

func statusCode(err error) int {
	var cfgErr *music.ConfigError
	var remoteErr *music.RemoteError
	switch {
	case errors.Is(err, app.ErrEmptyPrompt), errors.Is(err, settings.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, music.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, music.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.As(err, &remoteErr):
		if remoteErr.StatusCode >= 400 {
			return remoteErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
