package notewire

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sachindrat2/notewire/pkg/core"
)

// options holds the internal configuration for the facade.
type options struct {
	baseURL    string
	dataDir    string
	timeout    time.Duration
	logger     *slog.Logger
	httpClient *http.Client
	store      core.SessionStore
}

// Option defines a functional option for configuring the client.
type Option func(*options)

func defaultOptions() *options {
	return &options{}
}

// WithBaseURL sets the API base URL. Required.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithDataDir overrides where the session slot and note cache live.
// Defaults to the user config directory.
func WithDataDir(dir string) Option {
	return func(o *options) {
		o.dataDir = dir
	}
}

// WithTimeout overrides the per-request time bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithLogger sets the logger for all layers.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient injects a custom transport (e.g. a test server's client).
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithSessionStore injects a custom session store (e.g. an in-memory one).
// If provided, the file-backed store is skipped.
func WithSessionStore(s core.SessionStore) Option {
	return func(o *options) {
		o.store = s
	}
}
