package music

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultDuration = 180.0
	DefaultArtist   = "AI Generated"
	DefaultGenre    = "AI Music"
)

// Track is a playable song. Tracks are values and are never mutated once
// created; any change produces a new Track.
type Track struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Genre    string  `json:"genre"`
	Cover    string  `json:"cover"`
	AudioURL string  `json:"audioUrl"`
	Duration float64 `json:"duration"`
	// Prompt is only set for generated tracks.
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Playable reports whether the track can be handed to an output.
func (t Track) Playable() bool {
	return t.AudioURL != ""
}

func (t Track) String() string {
	return fmt.Sprintf("{%s, %q, %s}", t.ID, t.Title, time.Duration(t.Duration*float64(time.Second)))
}

// PlaceholderCover returns a deterministic cover image for the given id.
func PlaceholderCover(id string) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/400/400", id)
}

// Status is the canonical job status all provider statuses are mapped onto.
type Status string

const (
	Pending    Status = "pending"
	Processing Status = "processing"
	Completed  Status = "completed"
	Failed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == Completed || s == Failed
}

// Request is a generation request.
type Request struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style,omitempty"`
	Title        string `json:"title,omitempty"`
	Instrumental bool   `json:"instrumental,omitempty"`
}

func (r Request) String() string {
	return fmt.Sprintf("{p: %s, s: %s, t: %s, i: %v}", r.Prompt, r.Style, r.Title, r.Instrumental)
}

// Job is a snapshot of a remote generation job.
type Job struct {
	TaskID  string  `json:"taskId"`
	Status  Status  `json:"status"`
	Tracks  []Track `json:"tracks,omitempty"`
	Message string  `json:"message,omitempty"`
}

type Generator interface {
	Submit(ctx context.Context, req Request) (*Job, error)
	Poll(ctx context.Context, taskID string) (*Job, error)
	AwaitCompletion(ctx context.Context, taskID string, onProgress func(Status), maxAttempts int, interval time.Duration) ([]Track, error)
}
