// Package relay is the development CORS relay: it forwards requests to the
// real API and injects the permissive CORS headers the upstream refuses to
// send, so a browser frontend served from another origin can talk to it.
package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gorilla/mux"
	"github.com/sachindrat2/notewire/pkg/gateway"
)

// Config holds the configuration for the relay.
type Config struct {
	Upstream       string   // base URL of the real API
	AllowedOrigins []string // glob patterns, e.g. "http://localhost:*"; empty allows all
	Logger         *slog.Logger
}

// Relay forwards requests to the upstream API with CORS handled locally.
// Rejections it synthesizes are stamped with gateway.RelayErrorHeader so the
// API client can classify them.
type Relay struct {
	upstream *url.URL
	allowed  []string
	proxy    *httputil.ReverseProxy
	router   *mux.Router
	logger   *slog.Logger
}

// New creates a relay for the given upstream.
func New(cfg Config) (*Relay, error) {
	u, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream URL must be absolute, got %q", cfg.Upstream)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Relay{
		upstream: u,
		allowed:  cfg.AllowedOrigins,
		logger:   logger,
	}

	r.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.Out.Host = u.Host
		},
		ModifyResponse: r.stampCORS,
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			logger.Warn("upstream unreachable", "upstream", u.String(), "err", err)
			w.Header().Set(gateway.RelayErrorHeader, gateway.RelayErrorUpstream)
			http.Error(w, "upstream unreachable", http.StatusBadGateway)
		},
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", r.health).Methods(http.MethodGet)
	router.PathPrefix("/").HandlerFunc(r.relay)
	r.router = router

	return r, nil
}

// Handler returns the relay's HTTP handler.
func (r *Relay) Handler() http.Handler {
	return r.router
}

func (r *Relay) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","upstream":%q}`, r.upstream.String())
}

func (r *Relay) relay(w http.ResponseWriter, req *http.Request) {
	origin := req.Header.Get("Origin")
	if origin != "" && !r.originAllowed(origin) {
		r.logger.Info("rejecting disallowed origin", "origin", origin)
		w.Header().Set(gateway.RelayErrorHeader, gateway.RelayErrorCrossOrigin)
		http.Error(w, "origin not allowed: "+origin, http.StatusBadGateway)
		return
	}

	if req.Method == http.MethodOptions {
		// Preflights are answered locally; the upstream rejects OPTIONS.
		writeCORS(w.Header(), origin)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	r.proxy.ServeHTTP(w, req)
}

func (r *Relay) stampCORS(resp *http.Response) error {
	writeCORS(resp.Header, resp.Request.Header.Get("Origin"))
	return nil
}

func (r *Relay) originAllowed(origin string) bool {
	if len(r.allowed) == 0 {
		return true
	}
	for _, pattern := range r.allowed {
		if ok, err := doublestar.Match(pattern, origin); err == nil && ok {
			return true
		}
	}
	return false
}

func writeCORS(h http.Header, origin string) {
	if origin == "" {
		origin = "*"
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	h.Set("Access-Control-Allow-Credentials", "true")
}

// ListenAndServe runs the relay until ctx is canceled.
func (r *Relay) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: r.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("relay listening", "addr", addr, "upstream", r.upstream.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
