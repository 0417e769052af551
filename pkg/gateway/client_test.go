package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sachindrat2/notewire/pkg/core"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	sess *core.Session
}

func (m *memStore) Load() (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, nil
	}
	cp := *m.sess
	return &cp, nil
}

func (m *memStore) Save(s *core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sess = &cp
	return nil
}

func (m *memStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}

func newTestClient(t *testing.T, handler http.Handler, store core.SessionStore) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Store: store}), srv
}

func TestRequest_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	store := &memStore{sess: &core.Session{AccessToken: "tok-1"}}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}), store)

	_, err := client.Request(context.Background(), http.MethodGet, "/notes", nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-1", gotAuth)
}

func TestRequest_OmitsHeaderWithoutSession(t *testing.T) {
	var sawAuth bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.Write([]byte(`{}`))
	}), &memStore{})

	_, err := client.Request(context.Background(), http.MethodGet, "/notes", nil)
	require.NoError(t, err)
	require.False(t, sawAuth, "no token stored, no Authorization header")
}

func TestRequest_DedupesConcurrentCalls(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`[{"id":1,"title":"A"}]`))
	}), &memStore{})

	var wg sync.WaitGroup
	results := make([][]byte, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Request(context.Background(), http.MethodGet, "/notes", nil)
		}(i)
	}

	// Give both callers time to reach the in-flight map before the handler
	// is allowed to answer.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, results[0], results[1])
	require.Equal(t, int32(1), hits.Load(), "both callers must share one transport call")
}

func TestRequest_AnonymousNotDedupedWithAuthenticated(t *testing.T) {
	var hits atomic.Int32
	var authHeaders sync.Map
	release := make(chan struct{})
	store := &memStore{sess: &core.Session{AccessToken: "tok-1"}}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders.Store(hits.Add(1), r.Header.Get("Authorization"))
		<-release
		w.Write([]byte(`{}`))
	}), store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = client.Request(context.Background(), http.MethodPost, "/refresh", nil)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = client.RequestAnonymous(context.Background(), http.MethodPost, "/refresh", nil)
	}()

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int32(2), hits.Load(), "auth and anonymous calls must not share a transport call")

	headers := make(map[string]bool)
	authHeaders.Range(func(_, v any) bool {
		headers[v.(string)] = true
		return true
	})
	require.True(t, headers["Bearer tok-1"], "the authenticated call must carry its bearer")
	require.True(t, headers[""], "the anonymous call must not adopt the bearer")
}

func TestRequest_DistinctEndpointsNotDeduped(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}), &memStore{})

	_, err := client.Request(context.Background(), http.MethodGet, "/notes", nil)
	require.NoError(t, err)
	_, err = client.Request(context.Background(), http.MethodGet, "/notes/1", nil)
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestRequest_TimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL, Store: &memStore{}, Timeout: 50 * time.Millisecond})
	_, err := client.Request(context.Background(), http.MethodGet, "/slow", nil)
	require.ErrorIs(t, err, core.ErrTimeout)
}

func TestRequest_NetworkErrorClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // sever the transport

	client := New(Config{BaseURL: srv.URL, Store: &memStore{}})
	_, err := client.Request(context.Background(), http.MethodGet, "/notes", nil)
	require.ErrorIs(t, err, core.ErrNetwork)
}

func TestRequest_CrossOriginMarkerClassified(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RelayErrorHeader, RelayErrorCrossOrigin)
		w.WriteHeader(http.StatusBadGateway)
	}), &memStore{})

	_, err := client.Request(context.Background(), http.MethodGet, "/notes", nil)
	require.ErrorIs(t, err, core.ErrCrossOrigin)
}

func TestRequest_HTTPErrorCarriesStatusAndBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}), &memStore{})

	_, err := client.Request(context.Background(), http.MethodGet, "/notes", nil)
	var he *core.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusInternalServerError, he.Status)
	require.Equal(t, "boom", he.Body)
	require.Equal(t, "/notes", he.Endpoint)
}

func TestRequest_UnauthorizedClearsStoreBeforeNotify(t *testing.T) {
	store := &memStore{sess: &core.Session{AccessToken: "stale"}}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), store)

	var events []ExpiredEvent
	var storeAtNotify *core.Session
	cancel := client.OnSessionExpired(func(ev ExpiredEvent) {
		// The listener must already see storage cleared.
		storeAtNotify, _ = store.Load()
		events = append(events, ev)
	})
	defer cancel()

	_, err := client.Request(context.Background(), http.MethodGet, "/notes", nil)
	require.ErrorIs(t, err, core.ErrSessionExpired)

	require.Len(t, events, 1, "expiry event must fire before the error settles")
	require.Nil(t, storeAtNotify)
	require.Equal(t, "/notes", events[0].Endpoint)
	require.Equal(t, "unauthorized", events[0].Reason)
}

func TestRequestAnonymous_401IsPlainHTTPError(t *testing.T) {
	store := &memStore{sess: &core.Session{AccessToken: "current"}}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}), store)

	fired := false
	cancel := client.OnSessionExpired(func(ExpiredEvent) { fired = true })
	defer cancel()

	_, err := client.RequestAnonymous(context.Background(), http.MethodPost, "/token", nil)
	var he *core.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusUnauthorized, he.Status)

	// A rejected login attempt must not log out the existing session.
	require.False(t, fired)
	sess, _ := store.Load()
	require.NotNil(t, sess)
}

func TestOnSessionExpired_Cancel(t *testing.T) {
	client := New(Config{BaseURL: "http://unused", Store: &memStore{}})
	fired := false
	cancel := client.OnSessionExpired(func(ExpiredEvent) { fired = true })
	cancel()
	client.expireSession("/notes")
	require.False(t, fired)
}

func TestRequest_ContextCancelPropagates(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}), &memStore{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := client.Request(ctx, http.MethodGet, "/notes", nil)
	require.True(t, errors.Is(err, context.Canceled))
}
