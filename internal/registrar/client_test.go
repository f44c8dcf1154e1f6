// internal/registrar/client_test.go
//
// Unit-tests for token caching and the single auth retry.
//
// Context
// -------
// fakeRegistrar counts logins and can be told to answer the next N data
// calls with HTTP 401 or the application-level auth-expired code.  The
// properties under test are the auth contract: one login is shared across
// calls within the TTL, an expired token triggers exactly one
// re-authentication plus one retry, and a persistently failing auth never
// loops.
//
// Run: go test ./internal/registrar -v

package registrar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRegistrar struct {
	mu       sync.Mutex
	logins   int
	dataOps  int
	deny401  int // answer this many data calls with HTTP 401
	deny1002 int // answer this many data calls with code 1002
}

func (f *fakeRegistrar) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Method == http.MethodPost && r.URL.Path == "/auth/login" {
			f.logins++
			data, _ := json.Marshal(map[string]any{
				"token":      fmt.Sprintf("tok-%d", f.logins),
				"expires_in": 3600,
			})
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code": 0, "message": "ok", "data": json.RawMessage(data),
			})
			return
		}

		f.dataOps++
		switch {
		case f.deny401 > 0:
			f.deny401--
			w.WriteHeader(http.StatusUnauthorized)
		case f.deny1002 > 0:
			f.deny1002--
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code": 1002, "message": "token expired",
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code": 0, "message": "ok", "data": json.RawMessage(`[]`),
			})
		}
	})
}

func newTestClient(t *testing.T, srv *httptest.Server) (*Client, TokenCache) {
	t.Helper()
	cache := NewMemoryTokenCache()
	cl := New(Options{
		BaseURL:  srv.URL,
		Mode:     "sandbox",
		Username: "acct",
		Password: "secret",
		TokenTTL: 40 * time.Minute,
		Timeout:  5 * time.Second,
		Cache:    cache,
	}, zap.NewNop().Sugar())
	return cl, cache
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	fake := &fakeRegistrar{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	cl, _ := newTestClient(t, srv)

	_, err := cl.ListTLDs(context.Background())
	require.NoError(t, err)
	_, err = cl.ListTLDs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, fake.logins, "two calls inside the TTL must share one login")
	assert.Equal(t, 2, fake.dataOps)
}

func TestAuthExpiredRetriesExactlyOnce(t *testing.T) {
	for name, setup := range map[string]func(*fakeRegistrar){
		"http 401":  func(f *fakeRegistrar) { f.deny401 = 1 },
		"code 1002": func(f *fakeRegistrar) { f.deny1002 = 1 },
	} {
		t.Run(name, func(t *testing.T) {
			fake := &fakeRegistrar{}
			setup(fake)
			srv := httptest.NewServer(fake.handler())
			defer srv.Close()
			cl, _ := newTestClient(t, srv)

			// Seed the cache with a login, then expire it server-side.
			_, err := cl.ListTLDs(context.Background())
			require.NoError(t, err, "call must succeed after one retry")

			assert.Equal(t, 2, fake.dataOps, "one original call + one retry")
			assert.Equal(t, 2, fake.logins, "initial login + re-authentication")
		})
	}
}

func TestAuthExpiredNeverLoops(t *testing.T) {
	fake := &fakeRegistrar{deny401: 1000}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	cl, _ := newTestClient(t, srv)

	_, err := cl.ListTLDs(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, fake.dataOps, "exactly one retry, then give up")
}

func TestMemoryTokenCacheTTL(t *testing.T) {
	c := NewMemoryTokenCache()
	ctx := context.Background()

	c.Set(ctx, "k", "tok", 50*time.Millisecond)
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "tok", got)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "expired entry must miss")

	c.Set(ctx, "k", "tok2", time.Minute)
	c.Invalidate(ctx, "k")
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "invalidated entry must miss")
}

func TestCacheKeyStability(t *testing.T) {
	a := CacheKey("sandbox", "acct")
	b := CacheKey("sandbox", "acct")
	c := CacheKey("live", "acct")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "mode must partition the cache")
	assert.NotContains(t, a, "acct", "key must not embed the raw username")
}
