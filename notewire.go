// Package notewire is a client for a remote notes API: a persisted session
// with bearer-token auth, a deduplicating HTTP gateway, and a last-known-good
// notes cache that keeps lists readable when the network or auth layer fails.
//
// The facade wires the layers together:
//
//	client, err := notewire.New(
//		notewire.WithBaseURL("https://api.example.com"),
//		notewire.WithLogger(slog.Default()),
//	)
package notewire

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"

	"github.com/sachindrat2/notewire/pkg/gateway"
	"github.com/sachindrat2/notewire/pkg/notes"
	"github.com/sachindrat2/notewire/pkg/session"
)

// Client bundles the wired layers. Session owns the auth lifecycle, Notes
// the cached note list, API the raw transport.
type Client struct {
	Session *session.Manager
	Notes   *notes.Service
	API     *gateway.Client

	DataDir string

	store  *session.FileStore
	logger *slog.Logger
}

// New wires a store, gateway, session manager and notes service from the
// given options. WithBaseURL is required.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.baseURL == "" {
		return nil, errors.New("a base URL is required")
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dataDir := o.dataDir
	if dataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(base, "notewire")
	}

	var fileStore *session.FileStore
	store := o.store
	if store == nil {
		fileStore = session.NewFileStore(dataDir, logger)
		store = fileStore
	}

	httpClient := o.httpClient
	if httpClient == nil {
		// The refresh endpoint is cookie-based, so the default client
		// carries a jar.
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Jar: jar}
	}

	api := gateway.New(gateway.Config{
		BaseURL:    o.baseURL,
		Store:      store,
		HTTPClient: httpClient,
		Timeout:    o.timeout,
		Logger:     logger,
	})

	cache := notes.NewCache(filepath.Join(dataDir, "cache"), logger)

	mgr := session.NewManager(session.Config{
		Store:  store,
		API:    api,
		Cache:  cache,
		Logger: logger,
	})

	svc := notes.NewService(notes.Config{
		API:     api,
		Cache:   cache,
		Subject: mgr.Subject,
		Logger:  logger,
	})

	return &Client{
		Session: mgr,
		Notes:   svc,
		API:     api,
		DataDir: dataDir,
		store:   fileStore,
		logger:  logger,
	}, nil
}

// SessionFile returns the file-backed session store when the default store
// is in use, for watchers. Nil when a custom store was injected.
func (c *Client) SessionFile() *session.FileStore {
	return c.store
}

// Close detaches the session manager from the gateway.
func (c *Client) Close() {
	c.Session.Close()
}
