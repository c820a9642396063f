package filestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"go.uber.org/zap"
)

// Archive downloads the audio and cover of a track and stores them under the
// track id.
func (s *Store) Archive(ctx context.Context, client *http.Client, t music.Track) error {
	if !t.Playable() {
		return fmt.Errorf("filestore: track %s has no audio", t.ID)
	}
	if client == nil {
		client = http.DefaultClient
	}
	dir, err := os.MkdirTemp("", "sunoclone-archive-")
	if err != nil {
		return fmt.Errorf("filestore: couldn't create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	audio := filepath.Join(dir, MP3(t.ID))
	if err := download(ctx, client, t.AudioURL, audio); err != nil {
		return err
	}
	if err := s.SetMP3(ctx, audio, t.ID); err != nil {
		return fmt.Errorf("filestore: couldn't store audio of %s: %w", t.ID, err)
	}
	if t.Cover != "" {
		cover := filepath.Join(dir, JPG(t.ID))
		if err := download(ctx, client, t.Cover, cover); err != nil {
			s.log.Warn("couldn't download cover", zap.String("track", t.ID), zap.Error(err))
			return nil
		}
		if err := s.SetJPG(ctx, cover, t.ID); err != nil {
			return fmt.Errorf("filestore: couldn't store cover of %s: %w", t.ID, err)
		}
	}
	s.log.Info("track archived", zap.String("track", t.ID), zap.String("type", s.typ))
	return nil
}

func download(ctx context.Context, client *http.Client, u, path string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("filestore: couldn't create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("filestore: couldn't download %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("filestore: couldn't download %s: status %d", u, resp.StatusCode)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("filestore: couldn't create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("filestore: couldn't write %s: %w", path, err)
	}
	return nil
}
