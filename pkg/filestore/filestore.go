package filestore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/filestore/local"
	"github.com/darioluanne770968-prog/suno-clone/pkg/filestore/minio"
	"github.com/darioluanne770968-prog/suno-clone/pkg/filestore/s3"
	"github.com/darioluanne770968-prog/suno-clone/pkg/filestore/tgstore"
	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	tgbot "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

type fs interface {
	Upload(ctx context.Context, path, name string) error
	Download(ctx context.Context, path, name string) error
	Delete(ctx context.Context, name string) error
}

type Store struct {
	fs   fs
	typ  string
	root string
	log  *zap.Logger
}

func (s *Store) SetMP3(ctx context.Context, path, id string) error {
	return s.fs.Upload(ctx, path, MP3(id))
}

func (s *Store) SetJPG(ctx context.Context, path, id string) error {
	return s.fs.Upload(ctx, path, JPG(id))
}

func (s *Store) GetMP3(ctx context.Context, path, id string) error {
	return s.fs.Download(ctx, path, MP3(id))
}

func (s *Store) GetJPG(ctx context.Context, path, id string) error {
	return s.fs.Download(ctx, path, JPG(id))
}

// Delete removes the audio and cover of a track.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.fs.Delete(ctx, MP3(id)); err != nil {
		return err
	}
	return s.fs.Delete(ctx, JPG(id))
}

func (s *Store) Type() string {
	return s.typ
}

// LocalRoot returns the directory of a local store, empty otherwise.
func (s *Store) LocalRoot() string {
	return s.root
}

type Config struct {
	Type  string
	Conn  string
	Proxy string
	Debug bool
	// Refs is needed by backends that can't address files by name.
	Refs   tgstore.Refs
	Logger *zap.Logger
}

// New returns a file store. Connection strings by type:
//
//	local:    <dir>
//	s3:       <key>:<secret>@<bucket>.<region>[@<endpoint>]
//	minio:    http[s]://<key>:<secret>@<host>/<bucket>
//	telegram: <token>@<chat>
func New(ctx context.Context, cfg *Config) (*Store, error) {
	log := logger.OrNop(cfg.Logger).Named("filestore")
	conn := cfg.Conn
	store := &Store{typ: cfg.Type, log: log}
	switch cfg.Type {
	case "telegram":
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid telegram connection string %q", conn)
		}
		chat, err := strconv.ParseInt(split[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("filestore: invalid telegram chat id %q: %w", split[1], err)
		}
		if cfg.Refs == nil {
			return nil, fmt.Errorf("filestore: telegram needs a file reference store")
		}
		client, err := httpClient(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		bot, err := tgbot.NewBotAPIWithClient(split[0], client)
		if err != nil {
			return nil, fmt.Errorf("filestore: couldn't create telegram bot: %w", err)
		}
		candidate, err := tgstore.New(bot, chat, client, cfg.Refs, log)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		store.fs = candidate
	case "s3":
		split := strings.SplitN(conn, "@", 3)
		if len(split) < 2 {
			return nil, fmt.Errorf("filestore: invalid s3 connection string %q", conn)
		}
		auth := strings.Split(split[0], ":")
		if len(auth) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 auth string %q", conn)
		}
		loc := strings.Split(split[1], ".")
		if len(loc) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 location string %q", conn)
		}
		var endpoint string
		if len(split) == 3 {
			endpoint = split[2]
		}
		candidate, err := s3.New(ctx, &s3.Config{
			Key:      auth[0],
			Secret:   auth[1],
			Bucket:   loc[0],
			Region:   loc[1],
			Endpoint: endpoint,
			Debug:    cfg.Debug,
			Logger:   log,
		})
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		store.fs = candidate
	case "minio":
		u, err := url.Parse(conn)
		if err != nil || u.Host == "" || u.User == nil {
			return nil, fmt.Errorf("filestore: invalid minio connection string %q", conn)
		}
		secret, _ := u.User.Password()
		bucket := strings.Trim(u.Path, "/")
		if bucket == "" {
			return nil, fmt.Errorf("filestore: missing minio bucket in %q", conn)
		}
		candidate, err := minio.New(ctx, u.Host, u.User.Username(), secret, bucket, u.Scheme == "https", cfg.Debug, log)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		store.fs = candidate
	case "local":
		candidate, err := local.New(conn)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		store.fs = candidate
		store.root = candidate.Root()
	default:
		return nil, fmt.Errorf("filestore: unknown file storage type %q", cfg.Type)
	}
	return store, nil
}

func httpClient(proxy string) (*http.Client, error) {
	client := &http.Client{
		Timeout: 60 * time.Second,
	}
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("filestore: invalid proxy %s: %w", proxy, err)
		}
		client.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	return client, nil
}

func JPG(id string) string {
	return id + ".jpg"
}

func MP3(id string) string {
	return id + ".mp3"
}
