// Package session owns the client-side auth lifecycle: the persisted session
// slot, bearer token claim inspection, and the state machine that moves a
// profile between anonymous and authenticated.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sachindrat2/notewire/pkg/core"
	"github.com/sachindrat2/notewire/pkg/gateway"
)

// State is the auth state of the profile.
type State int

const (
	// StateUnknown holds before the first storage read.
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// CacheWiper removes cached per-user data when a session ends.
type CacheWiper interface {
	Wipe(subject string) error
}

// Config holds the configuration for the Manager.
type Config struct {
	Store  core.SessionStore
	API    *gateway.Client
	Cache  CacheWiper       // optional
	Logger *slog.Logger     // optional
	Now    func() time.Time // optional, for tests
}

// Manager orchestrates login, registration, logout and silent refresh, and
// reacts to the gateway's expiry signal. It is the only writer of the
// session state; the rest of the program reads it through State, Current and
// Subject.
type Manager struct {
	store  core.SessionStore
	api    *gateway.Client
	cache  CacheWiper
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       State
	session     *core.Session
	watchers    map[int]func(State)
	nextWatcher int

	stopExpiry func()
}

// NewManager creates a Manager and subscribes it to the gateway's expiry
// signal. Call Close to detach it.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		store:    cfg.Store,
		api:      cfg.API,
		cache:    cfg.Cache,
		logger:   logger,
		now:      now,
		state:    StateUnknown,
		watchers: make(map[int]func(State)),
	}
	m.stopExpiry = cfg.API.OnSessionExpired(m.onExpired)
	return m
}

// Close detaches the manager from the gateway's expiry signal.
func (m *Manager) Close() {
	if m.stopExpiry != nil {
		m.stopExpiry()
	}
}

// State returns the current auth state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns a copy of the active session, or nil when anonymous.
func (m *Manager) Current() *core.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	cp := *m.session
	return &cp
}

// Subject returns the user identity derived from the active session's token
// claims, or "" when anonymous or the token was opaque.
func (m *Manager) Subject() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.Subject
}

// OnStateChange registers fn to run after every state transition. The
// returned func cancels the subscription.
func (m *Manager) OnStateChange(fn func(State)) (cancel func()) {
	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

// Bootstrap resolves the initial Unknown state from the persisted store.
// A stored token with confirmed expiry goes through silent refresh; when the
// refresh fails the slot is cleared and the profile is anonymous. The policy
// is uniform: refresh-then-logout, with no bypass.
func (m *Manager) Bootstrap(ctx context.Context) error {
	sess, err := m.store.Load()
	if err != nil {
		m.setState(StateAnonymous, nil)
		return err
	}
	if !sess.Valid() {
		m.setState(StateAnonymous, nil)
		return nil
	}

	claims, derr := DecodeClaims(sess.AccessToken)
	if derr == nil && claims.Expired(m.now()) {
		m.logger.Info("stored token is past its exp claim, attempting silent refresh")
		fresh, rerr := m.Refresh(ctx)
		if rerr != nil {
			m.logger.Info("silent refresh failed, signing out", "err", rerr)
			if cerr := m.store.Clear(); cerr != nil {
				m.logger.Warn("failed to clear expired session", "err", cerr)
			}
			m.setState(StateAnonymous, nil)
			return nil
		}
		m.setState(StateAuthenticated, fresh)
		return nil
	}

	// Undecodable tokens are usable opaque credentials; expiry stays
	// advisory and the server's next 401 is the real check.
	m.setState(StateAuthenticated, sess)
	return nil
}

// tokenResponse is the shape of /token, /register and /refresh replies.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a session. Failures never mutate existing
// state; they surface as ErrInvalidCredentials, ErrUserNotFound, or a
// transport error.
func (m *Manager) Login(ctx context.Context, username, password string) (*core.Session, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	data, err := m.api.RequestAnonymous(ctx, http.MethodPost, "/token", form)
	if err != nil {
		return nil, classifyLoginError(err)
	}
	return m.adoptToken(data)
}

// Register creates an account and signs the profile in with the returned
// token. A duplicate username surfaces as ErrConflict.
func (m *Manager) Register(ctx context.Context, username, password string) (*core.Session, error) {
	payload := map[string]string{
		"username": username,
		"password": password,
	}
	data, err := m.api.RequestAnonymous(ctx, http.MethodPost, "/register", payload)
	if err != nil {
		return nil, classifyRegisterError(err)
	}
	return m.adoptToken(data)
}

// Refresh exchanges the refresh cookie for a new access token and replaces
// the persisted session wholesale.
func (m *Manager) Refresh(ctx context.Context) (*core.Session, error) {
	data, err := m.api.RequestAnonymous(ctx, http.MethodPost, "/refresh", nil)
	if err != nil {
		return nil, err
	}
	return m.adoptToken(data)
}

// Logout signs the profile out: best-effort server notification, then the
// session slot and the user's cache slot are cleared unconditionally.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()

	if _, err := m.api.Request(ctx, http.MethodPost, "/logout", nil); err != nil && !errors.Is(err, core.ErrSessionExpired) {
		m.logger.Debug("server logout failed", "err", err)
	}

	if err := m.store.Clear(); err != nil {
		return err
	}
	m.wipeCache(sess)
	m.setState(StateAnonymous, nil)
	return nil
}

// VerifyCode confirms the email verification code sent on registration.
func (m *Manager) VerifyCode(ctx context.Context, code string) error {
	_, err := m.api.Request(ctx, http.MethodPost, "/verify-code", map[string]string{"code": code})
	return err
}

// RequestPasswordReset asks the server to mail a reset link for the account.
func (m *Manager) RequestPasswordReset(ctx context.Context, username string) error {
	_, err := m.api.RequestAnonymous(ctx, http.MethodPost, "/password-reset/request", map[string]string{"username": username})
	return err
}

// ResetPassword completes a reset with the token from the mailed link. The
// server expects the token in the query string.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	endpoint := "/password-reset/confirm?token=" + url.QueryEscape(token)
	_, err := m.api.RequestAnonymous(ctx, http.MethodPost, endpoint, map[string]string{"password": newPassword})
	return err
}

func (m *Manager) adoptToken(data []byte) (*core.Session, error) {
	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response carried no access_token")
	}

	sess := &core.Session{AccessToken: tr.AccessToken, TokenType: tr.TokenType}
	claims, err := DecodeClaims(tr.AccessToken)
	if err != nil {
		// Display fields stay empty; the token still works as an opaque
		// bearer credential.
		m.logger.Debug("token claims not decodable", "err", err)
	} else {
		sess.Subject = claims.Subject
		sess.ExpiresAt = claims.Expiry
		sess.RawClaims = claims.Raw
	}

	if err := m.store.Save(sess); err != nil {
		return nil, err
	}
	m.setState(StateAuthenticated, sess)
	return sess, nil
}

// onExpired reacts to the gateway's 401 signal. The store is already cleared
// by the time this runs.
func (m *Manager) onExpired(ev gateway.ExpiredEvent) {
	m.mu.Lock()
	sess := m.session
	m.mu.Unlock()

	m.logger.Info("session expired", "reason", ev.Reason, "endpoint", ev.Endpoint)
	m.wipeCache(sess)
	m.setState(StateAnonymous, nil)
}

func (m *Manager) wipeCache(sess *core.Session) {
	if m.cache == nil || sess == nil {
		return
	}
	if err := m.cache.Wipe(sess.Subject); err != nil {
		m.logger.Warn("failed to wipe cached notes", "subject", sess.Subject, "err", err)
	}
}

func (m *Manager) setState(state State, sess *core.Session) {
	m.mu.Lock()
	m.state = state
	m.session = sess
	watchers := make([]func(State), 0, len(m.watchers))
	for _, fn := range m.watchers {
		watchers = append(watchers, fn)
	}
	m.mu.Unlock()

	for _, fn := range watchers {
		fn(state)
	}
}

func classifyLoginError(err error) error {
	var he *core.HTTPError
	if errors.As(err, &he) {
		switch he.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", he.Endpoint, core.ErrInvalidCredentials)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", he.Endpoint, core.ErrUserNotFound)
		}
	}
	return err
}

func classifyRegisterError(err error) error {
	var he *core.HTTPError
	if errors.As(err, &he) {
		switch he.Status {
		case http.StatusConflict:
			return fmt.Errorf("%s: %w", he.Endpoint, core.ErrConflict)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%s: %w", he.Endpoint, core.ErrInvalidCredentials)
		}
	}
	return err
}
