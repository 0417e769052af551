// Package gateway is the HTTP client for the remote notes API. It attaches
// the bearer credential from the session store, collapses concurrent
// identical requests into one transport call, enforces a per-request time
// bound, and classifies failures into the taxonomy in pkg/core.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sachindrat2/notewire/pkg/core"
)

// DefaultTimeout bounds a single request. A request still unresolved at the
// bound is abandoned and reported as core.ErrTimeout.
const DefaultTimeout = 15 * time.Second

// Responses synthesized by the dev relay proxy carry this header so the
// client can tell an origin rejection from an ordinary upstream failure.
const (
	RelayErrorHeader      = "X-Relay-Error"
	RelayErrorCrossOrigin = "cross-origin"
	RelayErrorUpstream    = "upstream"
)

// ExpiredEvent is delivered to subscribers when an authenticated request
// comes back 401. By the time a subscriber runs, the session store is
// already cleared.
type ExpiredEvent struct {
	Reason   string
	Endpoint string
}

// Config holds the configuration for the client.
type Config struct {
	BaseURL    string
	Store      core.SessionStore
	HTTPClient *http.Client // optional; a cookie jar is needed for /refresh
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client issues requests against the remote API.
type Client struct {
	baseURL string
	http    *http.Client
	store   core.SessionStore
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	inflight map[string]*call
	subs     map[int]func(ExpiredEvent)
	nextSub  int
}

// call is one in-flight transport request shared by deduplicated callers.
type call struct {
	done chan struct{}
	body []byte
	err  error
}

// New creates a client. Store is required; the zero Timeout means
// DefaultTimeout.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     httpClient,
		store:    cfg.Store,
		timeout:  timeout,
		logger:   logger,
		inflight: make(map[string]*call),
		subs:     make(map[int]func(ExpiredEvent)),
	}
}

// OnSessionExpired registers fn to run whenever an authenticated request is
// rejected with 401. The returned func cancels the subscription.
func (c *Client) OnSessionExpired(fn func(ExpiredEvent)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Request issues an HTTP call with the bearer credential attached when one
// is stored. Concurrent calls with the same method and endpoint share a
// single transport call and its result, so a double-submit cannot create a
// note twice.
//
// body may be nil, url.Values (form-encoded), []byte (sent as-is), or any
// JSON-marshalable value.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	return c.request(ctx, method, endpoint, body, true)
}

// RequestAnonymous never attaches the bearer credential, and a 401 surfaces
// as a plain HTTPError instead of invalidating the session. Login and
// registration use it so a rejected credential cannot log out an existing
// session.
func (c *Client) RequestAnonymous(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	return c.request(ctx, method, endpoint, body, false)
}

// JSON issues an authenticated request and decodes the response into out.
func (c *Client) JSON(ctx context.Context, method, endpoint string, body, out any) error {
	data, err := c.Request(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, method, endpoint string, body any, withAuth bool) ([]byte, error) {
	// The auth mode is part of the key: an anonymous call must never adopt
	// the result of an in-flight authenticated one, or vice versa.
	key := method + " " + endpoint
	if !withAuth {
		key = "anon " + key
	}

	c.mu.Lock()
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		c.logger.Debug("joining in-flight request", "key", key)
		select {
		case <-cl.done:
			return cl.body, cl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.body, cl.err = c.do(ctx, method, endpoint, body, withAuth)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(cl.done)

	return cl.body, cl.err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, withAuth bool) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case url.Values:
		rd = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	case []byte:
		rd = bytes.NewReader(b)
		contentType = "application/json"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		rd = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, rd)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	authenticated := false
	if withAuth {
		if sess, err := c.store.Load(); err == nil && sess.Valid() {
			req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
			authenticated = true
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s: %w", method, endpoint, core.ErrTimeout)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%s %s: %v: %w", method, endpoint, err, core.ErrNetwork)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s: %w", method, endpoint, core.ErrTimeout)
		}
		return nil, fmt.Errorf("%s %s: %v: %w", method, endpoint, err, core.ErrNetwork)
	}

	if resp.Header.Get(RelayErrorHeader) == RelayErrorCrossOrigin {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, core.ErrCrossOrigin)
	}

	if resp.StatusCode == http.StatusUnauthorized && authenticated {
		// Ordering matters: the store must be cleared before anyone observes
		// the expiry event, and the event must fire before the caller sees
		// the error.
		c.expireSession(endpoint)
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, core.ErrSessionExpired)
	}

	if resp.StatusCode >= 400 {
		return nil, &core.HTTPError{Status: resp.StatusCode, Body: string(data), Endpoint: endpoint}
	}

	return data, nil
}

func (c *Client) expireSession(endpoint string) {
	if err := c.store.Clear(); err != nil {
		c.logger.Warn("failed to clear session after 401", "err", err)
	}
	c.mu.Lock()
	subs := make([]func(ExpiredEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	ev := ExpiredEvent{Reason: "unauthorized", Endpoint: endpoint}
	c.logger.Info("session rejected by server", "endpoint", endpoint)
	for _, fn := range subs {
		fn(ev)
	}
}
