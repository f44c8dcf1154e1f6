// internal/registrar/domains_test.go
//
// Unit-tests for glue-record classification, registration payloads, the
// availability ordering, and the nameserver lock dance.
//
// Run: go test ./internal/registrar -v

package registrar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// staticIPs resolves from a fixed table and fails on anything else.
func staticIPs(table map[string]string) LookupIPFunc {
	return func(_ context.Context, host string) (string, error) {
		if ip, ok := table[host]; ok {
			return ip, nil
		}
		return "", fmt.Errorf("unexpected lookup for %s", host)
	}
}

func glueClient(t *testing.T, baseURL string, ips map[string]string) *Client {
	t.Helper()
	return New(Options{
		BaseURL:  baseURL,
		Mode:     "sandbox",
		Username: "acct",
		Password: "secret",
		TokenTTL: time.Hour,
		Timeout:  5 * time.Second,
		Cache:    NewMemoryTokenCache(),
		LookupIP: staticIPs(ips),
	}, zap.NewNop().Sugar())
}

func TestClassifyNameserversOwnGetGlue(t *testing.T) {
	cl := glueClient(t, "http://invalid.invalid", map[string]string{
		"ns1.example.com": "192.0.2.1",
		"ns2.example.com": "192.0.2.2",
	})

	got, err := cl.classifyNameservers(context.Background(), "example.com",
		[]string{"ns1.example.com", "ns2.example.com"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Nameserver{Name: "ns1.example.com", IP: "192.0.2.1"}, got[0])
	assert.Equal(t, Nameserver{Name: "ns2.example.com", IP: "192.0.2.2"}, got[1])
}

func TestClassifyNameserversExternalNameOnly(t *testing.T) {
	// An empty table: any resolution attempt fails the test.
	cl := glueClient(t, "http://invalid.invalid", nil)

	got, err := cl.classifyNameservers(context.Background(), "example.com",
		[]string{"ns1.cloudflare.com"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Nameserver{Name: "ns1.cloudflare.com"}, got[0], "external NS must carry no IP")
}

func TestClassifyNameserversSuffixRule(t *testing.T) {
	// "notexample.com" must NOT count as inside "example.com".
	cl := glueClient(t, "http://invalid.invalid", nil)
	got, err := cl.classifyNameservers(context.Background(), "example.com",
		[]string{"ns1.notexample.com"})
	require.NoError(t, err)
	assert.Empty(t, got[0].IP)
}

// registrarHarness is a minimal envelope server with a login endpoint and
// one programmable data route.
type registrarHarness struct {
	mu   sync.Mutex
	last *http.Request
	body []byte
	data any
}

func (h *registrarHarness) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if r.URL.Path == "/auth/login" {
			data, _ := json.Marshal(map[string]any{"token": "tok", "expires_in": 3600})
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": json.RawMessage(data)})
			return
		}
		h.last = r.Clone(context.Background())
		h.body, _ = io.ReadAll(r.Body)
		raw, _ := json.Marshal(h.data)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": json.RawMessage(raw)})
	})
}

func TestRegisterDomainSubmitsGlue(t *testing.T) {
	h := &registrarHarness{data: Domain{ID: 7, Name: "example", Extension: "com", Status: "REQ"}}
	srv := httptest.NewServer(h.handler())
	defer srv.Close()

	cl := glueClient(t, srv.URL, map[string]string{"ns1.example.com": "192.0.2.1"})
	dom, err := cl.RegisterDomain(context.Background(), "example", "com", 1,
		AllFrom("H100"), []string{"ns1.example.com", "ns1.cloudflare.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), dom.ID)

	var req registerRequest
	require.NoError(t, json.Unmarshal(h.body, &req))
	require.Len(t, req.Nameservers, 2)
	assert.Equal(t, "192.0.2.1", req.Nameservers[0].IP, "own NS must carry glue")
	assert.Empty(t, req.Nameservers[1].IP, "external NS must be name-only")
	assert.Equal(t, "H100", req.RegistrantHandle)
	assert.Equal(t, "H100", req.BillingHandle)
}

func TestCheckAvailabilityOrdering(t *testing.T) {
	h := &registrarHarness{data: []CheckResult{
		{Name: "x", Extension: "xyz", Available: true, Price: 2},
		{Name: "x", Extension: "nl", Available: true, Price: 9},
		{Name: "x", Extension: "cheap", Available: true, Price: 1},
		{Name: "x", Extension: "com", Available: true, Price: 12},
	}}
	srv := httptest.NewServer(h.handler())
	defer srv.Close()
	cl := glueClient(t, srv.URL, nil)

	out, err := cl.CheckAvailability(context.Background(),
		[]DomainQuery{{Name: "x", Extension: "com"}}, true)
	require.NoError(t, err)
	require.Len(t, out, 4)

	// Priority extensions first in list order, the rest by ascending price.
	assert.Equal(t, "com", out[0].Extension)
	assert.Equal(t, "nl", out[1].Extension)
	assert.Equal(t, "cheap", out[2].Extension)
	assert.Equal(t, "xyz", out[3].Extension)
}

// lockRecorder replays a GetDomain snapshot and records every mutation so
// the unlock → update → re-lock order can be asserted.
func TestUpdateNameserversLockDance(t *testing.T) {
	var ops []string
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.URL.Path == "/auth/login" {
			data, _ := json.Marshal(map[string]any{"token": "tok", "expires_in": 3600})
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": json.RawMessage(data)})
			return
		}
		if r.Method == http.MethodGet {
			raw, _ := json.Marshal(Domain{ID: 7, Name: "example", Extension: "com", IsLocked: true})
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": json.RawMessage(raw)})
			return
		}

		var req updateDomainRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch {
		case req.IsLocked != nil && !*req.IsLocked:
			ops = append(ops, "unlock")
		case req.IsLocked != nil && *req.IsLocked:
			ops = append(ops, "relock")
		default:
			ops = append(ops, "update")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": json.RawMessage(`{}`)})
	}))
	defer srv.Close()

	cl := glueClient(t, srv.URL, nil)
	err := cl.UpdateNameservers(context.Background(), 7,
		[]string{"ns1.cloudflare.com", "ns2.cloudflare.com"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"unlock", "update", "relock"}, ops)
}
