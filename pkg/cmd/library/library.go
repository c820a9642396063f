package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	sunoclone "github.com/darioluanne770968-prog/suno-clone"
	"github.com/darioluanne770968-prog/suno-clone/pkg/library"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/gocarina/gocsv"
)

type Config struct {
	sunoclone.Config

	Filter string
	// Export writes the tracks as csv to the given file, "-" for stdout.
	Export string
}

type record struct {
	ID        string  `csv:"id"`
	Title     string  `csv:"title"`
	Artist    string  `csv:"artist"`
	Genre     string  `csv:"genre"`
	Duration  float64 `csv:"duration"`
	AudioURL  string  `csv:"audio_url"`
	Cover     string  `csv:"cover"`
	Prompt    string  `csv:"prompt"`
	Liked     bool    `csv:"liked"`
	CreatedAt string  `csv:"created_at"`
}

// Run lists the library.
func Run(ctx context.Context, cfg *Config) error {
	f, err := library.ParseFilter(cfg.Filter)
	if err != nil {
		return err
	}
	env, err := sunoclone.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	defer env.Close()

	tracks := env.Library.Tracks(f)
	if cfg.Export == "" {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tGENRE\tDURATION\tLIKED")
		for _, t := range tracks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", t.ID, t.Title, t.Genre,
				time.Duration(t.Duration)*time.Second, env.Library.IsLiked(t.ID))
		}
		return w.Flush()
	}

	out := io.Writer(os.Stdout)
	if cfg.Export != "-" {
		file, err := os.Create(cfg.Export)
		if err != nil {
			return fmt.Errorf("library: couldn't create %s: %w", cfg.Export, err)
		}
		defer file.Close()
		out = file
	}
	return Export(out, tracks, env.Library.IsLiked)
}

// Export writes tracks as csv.
func Export(w io.Writer, tracks []music.Track, liked func(string) bool) error {
	records := make([]*record, 0, len(tracks))
	for _, t := range tracks {
		records = append(records, &record{
			ID:        t.ID,
			Title:     t.Title,
			Artist:    t.Artist,
			Genre:     t.Genre,
			Duration:  t.Duration,
			AudioURL:  t.AudioURL,
			Cover:     t.Cover,
			Prompt:    t.Prompt,
			Liked:     liked(t.ID),
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("library: couldn't write csv: %w", err)
	}
	return nil
}
