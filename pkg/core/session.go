package core

import "time"

// Session is the client-side record asserting "this profile is logged in as
// Subject with AccessToken". Subject, ExpiresAt and RawClaims are derived
// from the token when it decodes and are advisory only; the authoritative
// validity check is always the server's next 401.
type Session struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type,omitempty"`
	Subject     string         `json:"subject,omitempty"`
	ExpiresAt   time.Time      `json:"expires_at,omitempty"`
	RawClaims   map[string]any `json:"raw_claims,omitempty"`
}

// Valid reports whether the session is usable as a credential: the token is
// present and non-empty. Expiry is deliberately not consulted here.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != ""
}

// SessionStore persists at most one Session per profile.
//
// Load returns (nil, nil) when no session is stored. A corrupted slot is
// cleared as a side effect of detecting the corruption and reported as
// absent, never as an error. Save must fully replace the stored value, so a
// concurrent reader in another process never observes a torn write.
type SessionStore interface {
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}
