package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sachindrat2/notewire/pkg/core"
)

// Claims holds the fields inspected client-side from a bearer token payload.
// The signature is never verified here; verification is the server's job.
type Claims struct {
	Subject string
	Expiry  time.Time // zero when the token carries no exp claim
	Raw     map[string]any
}

// DecodeClaims splits a compact three-segment token (header.payload.signature,
// base64url segments) and decodes the payload. Any malformation yields
// core.ErrNotDecodable. Callers must treat an undecodable token as "expiry
// unknown", never as expired or invalid.
func DecodeClaims(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("token has %d segments, want 3: %w", len(parts), core.ErrNotDecodable)
	}

	// Tokens in the wild are unpadded, but some issuers pad anyway.
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, fmt.Errorf("payload segment is not base64url: %w", core.ErrNotDecodable)
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("payload segment is not JSON: %w", core.ErrNotDecodable)
	}

	c := &Claims{Raw: raw}
	if sub, ok := raw["sub"].(string); ok {
		c.Subject = sub
	}
	if exp, ok := raw["exp"].(float64); ok {
		c.Expiry = time.Unix(int64(exp), 0)
	}
	return c, nil
}

// Expired reports whether now is past the exp claim. Unknown expiry (nil
// claims, or a token without exp) is never expired.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.Expiry.IsZero() {
		return false
	}
	return now.After(c.Expiry)
}
