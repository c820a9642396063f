package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sunoclone "github.com/darioluanne770968-prog/suno-clone"
	"github.com/darioluanne770968-prog/suno-clone/pkg/inspire"
	"github.com/darioluanne770968-prog/suno-clone/pkg/ngrok"
	"go.uber.org/zap"
)

type Config struct {
	sunoclone.Config

	Addr        string
	Credentials map[string]string
	Cache       string
	Presets     string

	OpenAIToken string
	OpenAIModel string

	// Ngrok starts an ngrok agent to expose the server publicly.
	Ngrok bool
}

// Serve starts the api server and the playback loop.
func Serve(ctx context.Context, cfg *Config) error {
	env, err := sunoclone.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	defer env.Close()
	log := env.Log

	log.Info("web: server started")
	defer log.Info("web: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	presets := inspire.Defaults()
	if cfg.Presets != "" {
		presets, err = inspire.Load(cfg.Presets)
		if err != nil {
			return fmt.Errorf("web: couldn't load presets: %w", err)
		}
	}
	var writer *inspire.Writer
	if cfg.OpenAIToken != "" {
		writer, err = inspire.NewWriter(&inspire.Config{
			Token:  cfg.OpenAIToken,
			Model:  cfg.OpenAIModel,
			Debug:  cfg.Debug,
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("web: couldn't create openai client: %w", err)
		}
	}

	handler := NewHandler(ctx, &Options{
		App:         env.App,
		Files:       env.Files,
		Client:      env.Client,
		Picker:      inspire.NewPicker(presets, time.Now().UnixNano()),
		Writer:      writer,
		Cache:       cfg.Cache,
		Debug:       cfg.Debug,
		Credentials: cfg.Credentials,
		Logger:      log,
	})

	// Create server
	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("web: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("web: invalid port: %s", split[1])
	}
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: handler,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Info("starting server", zap.String("addr", note))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
			cancel()
		}
	}()

	if cfg.Ngrok {
		u, stop, err := ngrok.Run(ctx, &ngrok.Config{
			Port:   strconv.Itoa(port),
			Start:  true,
			Logger: log,
		})
		if err != nil {
			log.Warn("couldn't start ngrok", zap.Error(err))
		} else {
			defer stop()
			log.Info("public url", zap.String("url", u))
		}
	}

	go env.Session.Run(ctx)

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("couldn't shutdown server", zap.Error(err))
	}
	return nil
}
