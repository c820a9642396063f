package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sunoclone "github.com/darioluanne770968-prog/suno-clone"
	"github.com/darioluanne770968-prog/suno-clone/pkg/library"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"go.uber.org/zap"
)

type Config struct {
	sunoclone.Config

	IDs         []string
	Filter      string
	Concurrency int
}

// Run copies the audio and cover of library tracks into the file store.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.FSType == "" {
		return errors.New("archive: fs type is empty")
	}
	env, err := sunoclone.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	defer env.Close()
	log := env.Log

	var tracks []music.Track
	if len(cfg.IDs) > 0 {
		for _, id := range cfg.IDs {
			t, ok := env.Library.Get(id)
			if !ok {
				return fmt.Errorf("archive: track %s not found", id)
			}
			tracks = append(tracks, t)
		}
	} else {
		f, err := library.ParseFilter(cfg.Filter)
		if err != nil {
			return err
		}
		tracks = env.Library.Tracks(f)
	}

	var done int
	log.Info("archive: started", zap.Int("tracks", len(tracks)))
	defer func() {
		log.Info("archive: ended", zap.Int("archived", done))
	}()

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	sem := make(chan struct{}, concurrency)
	for _, t := range tracks {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(t music.Track) {
			defer func() {
				<-sem
				wg.Done()
			}()
			err := env.Files.Archive(ctx, env.Client, t)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("couldn't archive track", zap.String("track", t.ID), zap.Error(err))
				errs = append(errs, err)
				return
			}
			done++
		}(t)
	}
	wg.Wait()
	return errors.Join(errs...)
}
