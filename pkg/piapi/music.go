package piapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"go.uber.org/zap"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60

	// maxPollErrors is the number of consecutive failed polls tolerated
	// before the wait is aborted.
	maxPollErrors = 3
)

type generateRequest struct {
	CustomMode bool          `json:"custom_mode"`
	MV         string        `json:"mv"`
	Input      generateInput `json:"input"`
}

type generateInput struct {
	Prompt         string  `json:"prompt"`
	Title          string  `json:"title"`
	Tags           string  `json:"tags"`
	ContinueAt     float32 `json:"continue_at"`
	ContinueClipID string  `json:"continue_clip_id"`
}

type generateResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

type taskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    task   `json:"data"`
}

type task struct {
	TaskID string   `json:"task_id"`
	Status string   `json:"status"`
	Clips  clipList `json:"clips"`
	Error  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type clip struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	AudioURL       string   `json:"audio_url"`
	StreamAudioURL string   `json:"stream_audio_url"`
	ImageURL       string   `json:"image_url"`
	ImageLargeURL  string   `json:"image_large_url"`
	Status         string   `json:"status"`
	CreatedAt      string   `json:"created_at"`
	Metadata       metadata `json:"metadata"`
}

type metadata struct {
	Tags                 string  `json:"tags"`
	Prompt               string  `json:"prompt"`
	GPTDescriptionPrompt string  `json:"gpt_description_prompt"`
	Duration             float64 `json:"duration"`
	ErrorType            *string `json:"error_type"`
	ErrorMessage         *string `json:"error_message"`
}

// clipList accepts both a JSON array of clips and an object keyed by clip id.
type clipList []clip

func (l *clipList) UnmarshalJSON(b []byte) error {
	var list []clip
	if err := json.Unmarshal(b, &list); err == nil {
		*l = list
		return nil
	}
	var byID map[string]clip
	if err := json.Unmarshal(b, &byID); err != nil {
		return fmt.Errorf("piapi: clips are neither a list nor an object: %w", err)
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	list = make([]clip, 0, len(ids))
	for _, id := range ids {
		c := byID[id]
		if c.ID == "" {
			c.ID = id
		}
		list = append(list, c)
	}
	*l = list
	return nil
}

var statuses = map[string]music.Status{
	"pending":    music.Pending,
	"starting":   music.Processing,
	"processing": music.Processing,
	"retry":      music.Processing,
	"success":    music.Completed,
	"completed":  music.Completed,
	"failed":     music.Failed,
}

// toStatus maps a provider status onto the canonical set. Unknown values are
// reported as processing so the job is never dropped.
func toStatus(s string) music.Status {
	if v, ok := statuses[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v
	}
	return music.Processing
}

// Submit sends a generation request and returns the pending job.
func (c *Client) Submit(ctx context.Context, req music.Request) (*music.Job, error) {
	if err := c.checkConfig(); err != nil {
		return nil, err
	}
	title := req.Title
	if title == "" {
		title = truncate(req.Prompt, 50)
	}
	tags := req.Style
	if tags == "" {
		tags = "pop"
	}
	prompt := req.Prompt
	if req.Instrumental {
		prompt = ""
	}
	in := &generateRequest{
		CustomMode: true,
		MV:         c.model,
		Input: generateInput{
			Prompt: prompt,
			Title:  title,
			Tags:   tags,
		},
	}
	var resp generateResponse
	b, err := c.do(ctx, "POST", "music", in, &resp)
	if err != nil {
		return nil, fmt.Errorf("piapi: couldn't submit generation: %w", err)
	}
	if resp.Data.TaskID == "" {
		return nil, fmt.Errorf("piapi: empty task id: %w", &music.RemoteError{
			Op: "POST", URL: c.baseURL + "/music", StatusCode: resp.Code, Body: string(b),
		})
	}
	c.log.Info("generation submitted", zap.String("task", resp.Data.TaskID), zap.String("title", title))
	return &music.Job{
		TaskID:  resp.Data.TaskID,
		Status:  music.Pending,
		Message: resp.Message,
	}, nil
}

// Poll returns the current snapshot of a job. Tracks are only set once the
// job is completed.
func (c *Client) Poll(ctx context.Context, taskID string) (*music.Job, error) {
	if err := c.checkConfig(); err != nil {
		return nil, err
	}
	var resp taskResponse
	if _, err := c.do(ctx, "GET", fmt.Sprintf("music/%s", taskID), nil, &resp); err != nil {
		return nil, fmt.Errorf("piapi: couldn't get task %s: %w", taskID, err)
	}
	job := &music.Job{
		TaskID:  resp.Data.TaskID,
		Status:  toStatus(resp.Data.Status),
		Message: resp.Message,
	}
	if job.TaskID == "" {
		job.TaskID = taskID
	}
	if msg := resp.Data.Error.Message; msg != "" {
		job.Message = msg
	}
	if job.Status != music.Completed {
		return job, nil
	}
	for _, cl := range resp.Data.Clips {
		job.Tracks = append(job.Tracks, c.toTrack(cl, job.TaskID))
	}
	return job, nil
}

// AwaitCompletion polls the job at a fixed interval until it completes,
// fails or the attempt budget is exhausted. onProgress is called once per
// non-terminal poll.
func (c *Client) AwaitCompletion(ctx context.Context, taskID string, onProgress func(music.Status), maxAttempts int, interval time.Duration) ([]music.Track, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	var nErr int
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		job, err := c.Poll(ctx, taskID)
		var cfgErr *music.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			return nil, err
		case ctx.Err() != nil:
			return nil, fmt.Errorf("piapi: %w", ctx.Err())
		case err != nil:
			nErr++
			if nErr >= maxPollErrors {
				return nil, err
			}
			c.log.Warn("poll failed, retrying", zap.String("task", taskID), zap.Int("attempt", attempt), zap.Error(err))
		default:
			nErr = 0
			if job.Status == music.Completed && len(job.Tracks) > 0 {
				return job.Tracks, nil
			}
			if job.Status == music.Failed {
				if job.Message != "" {
					return nil, fmt.Errorf("piapi: task %s: %w: %s", taskID, music.ErrGenerationFailed, job.Message)
				}
				return nil, fmt.Errorf("piapi: task %s: %w", taskID, music.ErrGenerationFailed)
			}
			if c.debug {
				c.log.Debug("task pending", zap.String("task", taskID), zap.String("status", string(job.Status)), zap.Int("attempt", attempt))
			}
			if onProgress != nil {
				onProgress(job.Status)
			}
		}

		if attempt == maxAttempts {
			break
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("piapi: %w", ctx.Err())
		case <-t.C:
		}
	}
	return nil, fmt.Errorf("piapi: task %s after %d attempts: %w", taskID, maxAttempts, music.ErrTimeout)
}

func (c *Client) toTrack(cl clip, taskID string) music.Track {
	id := cl.ID
	if id == "" {
		id = taskID
	}
	title := cl.Title
	if title == "" {
		title = "Generated Track"
	}
	audio := cl.AudioURL
	if audio == "" || (c.preferStream != nil && c.preferStream() && cl.StreamAudioURL != "") {
		audio = cl.StreamAudioURL
		if audio == "" {
			audio = cl.AudioURL
		}
	}
	cover := cl.ImageURL
	if cover == "" {
		cover = cl.ImageLargeURL
	}
	if cover == "" {
		cover = music.PlaceholderCover(id)
	}
	duration := cl.Metadata.Duration
	if duration <= 0 {
		duration = music.DefaultDuration
	}
	genre := cl.Metadata.Tags
	if genre == "" {
		genre = music.DefaultGenre
	}
	prompt := cl.Metadata.Prompt
	if prompt == "" {
		prompt = cl.Metadata.GPTDescriptionPrompt
	}
	createdAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, cl.CreatedAt); err == nil {
		createdAt = t.UTC()
	}
	return music.Track{
		ID:        id,
		Title:     title,
		Artist:    music.DefaultArtist,
		Genre:     genre,
		Cover:     cover,
		AudioURL:  audio,
		Duration:  duration,
		Prompt:    prompt,
		CreatedAt: createdAt,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
