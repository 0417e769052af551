package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sachindrat2/notewire/pkg/core"
)

// makeToken builds an unsigned three-segment token with the given payload.
func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("failed to marshal claims: %v", err)
	}
	seg := base64.RawURLEncoding.EncodeToString
	return seg([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." + seg(payload) + ".sig"
}

func TestDecodeClaims_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", "a.b"},
		{"four segments", "a.b.c.d"},
		{"payload not base64url", "a.!!not-base64!!.c"},
		{"payload not JSON", "a." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".c"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := DecodeClaims(tc.token)
			if !errors.Is(err, core.ErrNotDecodable) {
				t.Fatalf("expected ErrNotDecodable, got %v", err)
			}
			// Undecodable means expiry unknown, never expired.
			if claims.Expired(time.Now()) {
				t.Errorf("nil claims must never report expired")
			}
		})
	}
}

func TestDecodeClaims_ExtractsSubjectAndExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	token := makeToken(t, map[string]any{"sub": "alice", "exp": exp})

	claims, err := DecodeClaims(token)
	if err != nil {
		t.Fatalf("DecodeClaims failed: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("expected subject alice, got %q", claims.Subject)
	}
	if !claims.Expiry.Equal(time.Unix(exp, 0)) {
		t.Errorf("expected expiry %d, got %v", exp, claims.Expiry)
	}
}

func TestClaims_Expired(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	past := &Claims{Expiry: now.Add(-time.Minute)}
	if !past.Expired(now) {
		t.Errorf("expected past expiry to be expired")
	}

	future := &Claims{Expiry: now.Add(time.Minute)}
	if future.Expired(now) {
		t.Errorf("expected future expiry to not be expired")
	}

	// No exp claim: unknown, never expired.
	unknown := &Claims{}
	if unknown.Expired(now) {
		t.Errorf("expected missing exp to be treated as unknown, not expired")
	}
}

func TestDecodeClaims_PaddedPayload(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"sub":"bob"}`))
	claims, err := DecodeClaims("h." + payload + ".s")
	if err != nil {
		t.Fatalf("padded payload should decode: %v", err)
	}
	if claims.Subject != "bob" {
		t.Errorf("expected subject bob, got %q", claims.Subject)
	}
}
