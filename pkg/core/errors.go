package core

import (
	"errors"
	"fmt"
)

// Transport and auth errors observed by clients of the remote API.
var (
	// ErrTimeout is returned when a request exceeds its time bound.
	ErrTimeout = errors.New("request timed out")
	// ErrNetwork is returned when the transport could not reach the server.
	ErrNetwork = errors.New("server unreachable")
	// ErrCrossOrigin is returned when the dev relay rejected the request's
	// origin. Kept distinct from ErrNetwork because the remediation differs:
	// fix the relay allowlist instead of the connectivity.
	ErrCrossOrigin = errors.New("cross-origin request blocked")
	// ErrSessionExpired is returned on a 401 from an authenticated endpoint.
	// By the time a caller sees it, the persisted session is already cleared.
	ErrSessionExpired = errors.New("session expired")
)

// Credential errors surfaced by login and registration.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrConflict           = errors.New("username already registered")
)

// ErrNotDecodable is returned when a token does not parse as a three-segment
// compact token. It is never fatal: callers must treat an undecodable token
// as "expiry unknown", not as expired or invalid.
var ErrNotDecodable = errors.New("token not decodable")

// HTTPError is a non-2xx response from a server that was actually reached.
// The 401 case is classified as ErrSessionExpired instead and never surfaces
// as an HTTPError on authenticated requests.
type HTTPError struct {
	Status   int
	Body     string
	Endpoint string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: server returned %d", e.Endpoint, e.Status)
}
