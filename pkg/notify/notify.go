package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
)

// Notifier tells the user that generated tracks are ready.
type Notifier interface {
	Notify(ctx context.Context, tracks []music.Track) error
}

type Nop struct{}

func (Nop) Notify(context.Context, []music.Track) error {
	return nil
}

// Message formats the "song ready" text for a batch of tracks.
func Message(tracks []music.Track) string {
	var sb strings.Builder
	switch len(tracks) {
	case 0:
		return ""
	case 1:
		sb.WriteString("Your song is ready\n")
	default:
		sb.WriteString(fmt.Sprintf("Your %d songs are ready\n", len(tracks)))
	}
	for _, t := range tracks {
		sb.WriteString(fmt.Sprintf("\n%s (%s)", t.Title, formatDuration(t.Duration)))
		if t.Genre != "" {
			sb.WriteString(" - " + t.Genre)
		}
		if t.AudioURL != "" {
			sb.WriteString("\n" + t.AudioURL)
		}
	}
	return sb.String()
}

func formatDuration(sec float64) string {
	s := int(sec + 0.5)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
