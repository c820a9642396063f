package ngrok

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tunnels", r.URL.Path)
		_, _ = w.Write([]byte(`{"tunnels":[
			{"name":"other","public_url":"https://other.ngrok.app","proto":"https","config":{"addr":"http://localhost:8080"}},
			{"name":"cmd","public_url":"http://abc.ngrok.app","proto":"http","config":{"addr":"http://localhost:1337"}},
			{"name":"cmd-tls","public_url":"https://abc.ngrok.app","proto":"https","config":{"addr":"http://localhost:1337"}}
		]}`))
	}))
	defer srv.Close()

	u, cancel, err := Run(context.Background(), &Config{Port: "1337", API: srv.URL})
	require.NoError(t, err)
	defer cancel()
	assert.Equal(t, "https://abc.ngrok.app", u)
}

func TestRunNoTunnel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tunnels":[]}`))
	}))
	defer srv.Close()

	_, _, err := Run(context.Background(), &Config{Port: "1337", API: srv.URL, Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tunnel for port 1337")
}

func TestTunnelPort(t *testing.T) {
	assert.Equal(t, "1337", tunnelPort("http://localhost:1337"))
	assert.Equal(t, "1337", tunnelPort("localhost:1337"))
	assert.Equal(t, "1337", tunnelPort("1337"))
}
