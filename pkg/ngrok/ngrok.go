// Package ngrok exposes a local port through an ngrok agent.
package ngrok

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/darioluanne770968-prog/suno-clone/pkg/logger"
	"go.uber.org/zap"
)

// BinPath is the path to the ngrok binary
var BinPath = "ngrok"

// DefaultAPI is the local agent api of ngrok.
const DefaultAPI = "http://localhost:4040"

type Config struct {
	// Port is the local port to expose.
	Port string
	// API is the agent api address, defaults to DefaultAPI.
	API string
	// Start launches the ngrok binary. When false an agent must already be
	// running.
	Start   bool
	Timeout time.Duration
	Logger  *zap.Logger
}

type tunnelsResponse struct {
	Tunnels []struct {
		Name      string `json:"name"`
		PublicURL string `json:"public_url"`
		Proto     string `json:"proto"`
		Config    struct {
			Addr string `json:"addr"`
		} `json:"config"`
	} `json:"tunnels"`
}

// Run returns the public url of the tunnel pointing to the configured port.
// The returned cancel func stops the agent started by Run.
func Run(ctx context.Context, cfg *Config) (string, context.CancelFunc, error) {
	log := logger.OrNop(cfg.Logger).Named("ngrok")
	api := cfg.API
	if api == "" {
		api = DefaultAPI
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	if cfg.Start {
		go func() {
			cmd := exec.CommandContext(ctx, BinPath, "http", cfg.Port)
			data, err := cmd.CombinedOutput()
			if err != nil && ctx.Err() == nil {
				log.Error("ngrok: agent exited", zap.Error(err), zap.String("output", string(data)))
			}
		}()
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
	}
	deadline := time.Now().Add(timeout)
	for {
		u, err := lookup(ctx, client, api, cfg.Port)
		if err == nil && u != "" {
			log.Info("ngrok: tunnel ready", zap.String("url", u))
			return u, cancel, nil
		}
		if time.Now().After(deadline) {
			cancel()
			if err == nil {
				err = fmt.Errorf("no tunnel for port %s", cfg.Port)
			}
			return "", nil, fmt.Errorf("ngrok: couldn't get tunnel: %w", err)
		}
		select {
		case <-ctx.Done():
			cancel()
			return "", nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func lookup(ctx context.Context, client *http.Client, api, port string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", strings.TrimRight(api, "/")+"/api/tunnels", nil)
	if err != nil {
		return "", fmt.Errorf("ngrok: couldn't create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ngrok: couldn't reach agent: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ngrok: agent status %d", resp.StatusCode)
	}
	var tr tunnelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("ngrok: couldn't decode tunnels: %w", err)
	}
	var u string
	for _, t := range tr.Tunnels {
		if tunnelPort(t.Config.Addr) != port {
			continue
		}
		if strings.HasPrefix(t.PublicURL, "https://") {
			return t.PublicURL, nil
		}
		u = strings.Replace(t.PublicURL, "tcp://", "http://", 1)
	}
	return u, nil
}

// tunnelPort extracts the port from addresses like "http://localhost:1337",
// "localhost:1337" or "1337".
func tunnelPort(addr string) string {
	addr = strings.TrimPrefix(strings.TrimPrefix(addr, "http://"), "https://")
	if _, p, err := net.SplitHostPort(addr); err == nil {
		return p
	}
	return addr
}
