package music

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationFailed is returned when the remote job reports a failure.
	ErrGenerationFailed = errors.New("music generation failed")
	// ErrTimeout is returned when the poll budget is exhausted while the job
	// is still running. The job may still complete and can be polled later.
	ErrTimeout = errors.New("generation timed out")
)

// ConfigError is returned when a required credential or setting is missing.
type ConfigError struct {
	Service string
	Field   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s not configured", e.Service, e.Field)
}

// RemoteError is returned when a call to the generation service fails,
// either at the transport level (StatusCode is 0) or with a non-2xx status.
type RemoteError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s failed: %v", e.Op, e.URL, e.Err)
	}
	body := e.Body
	if len(body) > 100 {
		body = body[:100] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s returned %d: %v (%s)", e.Op, e.URL, e.StatusCode, e.Err, body)
	}
	return fmt.Sprintf("%s %s returned %d (%s)", e.Op, e.URL, e.StatusCode, body)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
