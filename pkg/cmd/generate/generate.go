package generate

import (
	"context"
	"fmt"
	"os"
	"time"

	sunoclone "github.com/darioluanne770968-prog/suno-clone"
	"github.com/darioluanne770968-prog/suno-clone/pkg/inspire"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"github.com/darioluanne770968-prog/suno-clone/pkg/player"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

type Config struct {
	sunoclone.Config

	Prompt       string
	Style        string
	Title        string
	Instrumental bool

	// Random picks a preset when no prompt is given.
	Random  bool
	Presets string

	// Play keeps the process alive while the queue plays.
	Play    bool
	Timeout time.Duration
}

// Run generates songs from a prompt and adds them to the library.
func Run(ctx context.Context, cfg *Config) error {
	env, err := sunoclone.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	defer env.Close()
	log := env.Log

	log.Info("generate: started")
	defer log.Info("generate: ended")

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req := music.Request{
		Prompt:       cfg.Prompt,
		Style:        cfg.Style,
		Title:        cfg.Title,
		Instrumental: cfg.Instrumental,
	}
	if req.Prompt == "" && cfg.Random {
		presets := inspire.Defaults()
		if cfg.Presets != "" {
			presets, err = inspire.Load(cfg.Presets)
			if err != nil {
				return fmt.Errorf("generate: couldn't load presets: %w", err)
			}
		}
		p := inspire.NewPicker(presets, time.Now().UnixNano()).Pick()
		log.Info("random preset", zap.Stringer("preset", p))
		req = p.Request()
		if cfg.Style != "" {
			req.Style = cfg.Style
		}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("submitting"),
		progressbar.OptionClearOnFinish(),
	)
	tracks, err := env.App.Create(ctx, req, func(s music.Status) {
		bar.Describe(string(s))
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	for _, t := range tracks {
		fmt.Printf("%s\t%s\t%s\t%s\n", t.ID, t.Title, formatDuration(t.Duration), t.AudioURL)
	}

	if !cfg.Play {
		return nil
	}
	return play(ctx, env)
}

// play runs the playback loop until the queue stops.
func play(ctx context.Context, env *sunoclone.Env) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopped := make(chan struct{}, 1)
	env.Session.OnChange(func(st player.State) {
		if !st.Playing {
			select {
			case stopped <- struct{}{}:
			default:
			}
		}
	})
	go env.Session.Run(ctx)
	if !env.Session.State().Playing {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopped:
			if !env.Session.State().Playing {
				return nil
			}
		}
	}
}

func formatDuration(sec float64) string {
	d := time.Duration(sec) * time.Second
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
