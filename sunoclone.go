// Package sunoclone wires the components used by the commands: logger,
// storage, generation client, playback session, library, settings,
// notifications and file store.
package sunoclone

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/app"
	"github.com/darioluanne770968-prog/suno-clone/pkg/filestore"
	"github.com/darioluanne770968-prog/suno-clone/pkg/library"
	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/darioluanne770968-prog/suno-clone/pkg/notify"
	"github.com/darioluanne770968-prog/suno-clone/pkg/notify/telegram"
	"github.com/darioluanne770968-prog/suno-clone/pkg/piapi"
	"github.com/darioluanne770968-prog/suno-clone/pkg/player"
	"github.com/darioluanne770968-prog/suno-clone/pkg/player/headless"
	"github.com/darioluanne770968-prog/suno-clone/pkg/settings"
	"github.com/darioluanne770968-prog/suno-clone/pkg/storage"
	"go.uber.org/zap"
)

type Config struct {
	Debug    bool
	LogLevel string
	LogFile  string

	DBType string
	DBConn string
	FSType string
	FSConn string
	Proxy  string

	APIKey       string
	BaseURL      string
	Model        string
	Wait         time.Duration
	PollInterval time.Duration
	MaxAttempts  int

	TelegramToken string
	TelegramChat  int64
}

// Env holds the components opened from a Config.
type Env struct {
	Log      *zap.Logger
	Client   *http.Client
	Store    *storage.Store
	Files    *filestore.Store
	Settings *settings.Settings
	Library  *library.Library
	Session  *player.Session
	App      *app.App
}

// Logger creates the logger described by the config.
func Logger(cfg *Config) (*zap.Logger, error) {
	level := cfg.LogLevel
	if level == "" && cfg.Debug {
		level = "debug"
	}
	return logger.New(logger.Config{
		Level:   level,
		Console: true,
		File:    cfg.LogFile,
	})
}

// OpenStore opens and migrates the database.
func OpenStore(ctx context.Context, cfg *Config, log *zap.Logger) (*storage.Store, error) {
	dbType, dbConn := cfg.DBType, cfg.DBConn
	if dbType == "" {
		dbType = "sqlite"
	}
	if dbType == "sqlite" && dbConn == "" {
		dbConn = "sunoclone.db"
	}
	store, err := storage.New(dbType, dbConn, cfg.Debug, log)
	if err != nil {
		return nil, fmt.Errorf("sunoclone: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return nil, fmt.Errorf("sunoclone: couldn't start orm store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("sunoclone: couldn't migrate orm store: %w", err)
	}
	return store, nil
}

// HTTPClient returns a client using the configured proxy.
func HTTPClient(cfg *Config) (*http.Client, error) {
	client := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("sunoclone: invalid proxy URL: %w", err)
		}
		client.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	return client, nil
}

// Open creates every component and loads the persisted library and
// settings.
func Open(ctx context.Context, cfg *Config) (*Env, error) {
	log, err := Logger(cfg)
	if err != nil {
		return nil, err
	}
	env := &Env{Log: log}
	ok := false
	defer func() {
		if !ok {
			env.Close()
		}
	}()

	env.Client, err = HTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	env.Store, err = OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	env.Settings = settings.New(env.Store)
	if err := env.Settings.Load(ctx); err != nil {
		return nil, fmt.Errorf("sunoclone: couldn't load settings: %w", err)
	}
	values := env.Settings.Values()

	env.Library = library.New(env.Store)
	if err := env.Library.Load(ctx); err != nil {
		return nil, fmt.Errorf("sunoclone: couldn't load library: %w", err)
	}

	if cfg.FSType != "" {
		env.Files, err = filestore.New(ctx, &filestore.Config{
			Type:   cfg.FSType,
			Conn:   cfg.FSConn,
			Proxy:  cfg.Proxy,
			Debug:  cfg.Debug,
			Refs:   env.Store,
			Logger: log,
		})
		if err != nil {
			return nil, fmt.Errorf("sunoclone: couldn't create file storage: %w", err)
		}
	}

	generator := piapi.New(&piapi.Config{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Wait:         cfg.Wait,
		Debug:        cfg.Debug,
		Client:       env.Client,
		PreferStream: func() bool {
			return env.Settings.Values().AudioQuality == settings.Low
		},
		Logger:       log,
	})

	env.Session = player.New(&player.Config{
		Output:   headless.New(env.Client, log),
		Volume:   values.Volume,
		AutoPlay: env.Settings.AutoPlay,
		Logger:   log,
	})

	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramToken != "" {
		notifier, err = telegram.New(&telegram.Config{
			Token:  cfg.TelegramToken,
			Chat:   cfg.TelegramChat,
			Proxy:  cfg.Proxy,
			Debug:  cfg.Debug,
			Logger: log,
		})
		if err != nil {
			return nil, fmt.Errorf("sunoclone: couldn't create notifier: %w", err)
		}
	}

	env.App = app.New(&app.Config{
		Generator:   generator,
		Library:     env.Library,
		Session:     env.Session,
		Settings:    env.Settings,
		Notifier:    notifier,
		Jobs:        env.Store,
		MaxAttempts: cfg.MaxAttempts,
		Interval:    cfg.PollInterval,
		Logger:      log,
	})
	ok = true
	return env, nil
}

// Close releases the playback output and the database.
func (e *Env) Close() {
	if e.Session != nil {
		e.Session.Close()
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			e.Log.Warn("couldn't close store", zap.Error(err))
		}
	}
	_ = e.Log.Sync()
}
