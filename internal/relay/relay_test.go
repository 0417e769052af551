package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sachindrat2/notewire/pkg/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelay(t *testing.T, upstream http.Handler, origins ...string) *httptest.Server {
	t.Helper()
	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)

	r, err := New(Config{Upstream: up.URL, AllowedOrigins: origins})
	require.NoError(t, err)

	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestRelay_ForwardsAndStampsCORS(t *testing.T) {
	srv := newTestRelay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1}]`))
	}))

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/notes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, `[{"id":1}]`, string(body))
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestRelay_AnswersPreflightLocally(t *testing.T) {
	upstreamHit := false
	srv := newTestRelay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHit = true
	}))

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/notes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, upstreamHit, "preflight must never reach the upstream")
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRelay_RejectsDisallowedOrigin(t *testing.T) {
	srv := newTestRelay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		"http://localhost:*")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/notes", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, gateway.RelayErrorCrossOrigin, resp.Header.Get(gateway.RelayErrorHeader))
}

func TestRelay_OriginGlobMatches(t *testing.T) {
	srv := newTestRelay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}), "http://localhost:*")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/notes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRelay_UpstreamDownIsMarked(t *testing.T) {
	up := httptest.NewServer(nil)
	upURL := up.URL
	up.Close()

	r, err := New(Config{Upstream: upURL})
	require.NoError(t, err)
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/notes")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, gateway.RelayErrorUpstream, resp.Header.Get(gateway.RelayErrorHeader))
}

func TestRelay_Health(t *testing.T) {
	srv := newTestRelay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestNew_RejectsRelativeUpstream(t *testing.T) {
	_, err := New(Config{Upstream: "not-a-url"})
	require.Error(t, err)
}
