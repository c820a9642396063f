package piapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"github.com/darioluanne770968-prog/suno-clone/pkg/music"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.piapi.ai/api/suno/v1"
	DefaultModel   = "chirp-v4"
)

var _ music.Generator = (*Client)(nil)

type Client struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	model        string
	preferStream func() bool
	debug        bool
	limiter      *rate.Limiter
	log          *zap.Logger
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Wait is the minimum time between two requests.
	Wait   time.Duration
	Debug  bool
	Client *http.Client
	// PreferStream is asked on every mapped track whether the stream URL
	// wins over the full quality audio URL.
	PreferStream func() bool
	Logger       *zap.Logger
}

func New(cfg *Config) *Client {
	wait := cfg.Wait
	if wait == 0 {
		wait = 1 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client:       client,
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		model:        model,
		preferStream: cfg.PreferStream,
		debug:        cfg.Debug,
		limiter:      rate.NewLimiter(rate.Every(wait), 1),
		log:          logger.OrNop(cfg.Logger).Named("piapi"),
	}
}

func (c *Client) checkConfig() error {
	if c.apiKey == "" {
		return &music.ConfigError{Service: "piapi", Field: "api key"}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	var body []byte
	var reqBody io.Reader
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("piapi: couldn't marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(body)
	}
	logBody := string(body)
	if len(logBody) > 100 {
		logBody = logBody[:100] + "..."
	}
	if c.debug {
		c.log.Debug("request", zap.String("method", method), zap.String("path", path), zap.String("body", logBody))
	}

	u := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(path, "/"))
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("piapi: couldn't create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	if in != nil {
		req.Header.Set("content-type", "application/json")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("piapi: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &music.RemoteError{Op: method, URL: u, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &music.RemoteError{Op: method, URL: u, Err: fmt.Errorf("couldn't read response body: %w", err)}
	}
	if c.debug {
		c.log.Debug("response", zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &music.RemoteError{Op: method, URL: u, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, &music.RemoteError{
				Op: method, URL: u, StatusCode: resp.StatusCode, Body: string(respBody),
				Err: fmt.Errorf("couldn't unmarshal response body (%T): %w", out, err),
			}
		}
	}
	return respBody, nil
}
