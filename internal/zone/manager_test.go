// internal/zone/manager_test.go
//
// Unit-tests for the availability check ordering and record creation.
//
// Context
// -------
// CheckAvailability must run its checks cheapest-first: format, local DB,
// reserved list, provider.  Each test pins one short-circuit by making a
// later stage fail the test if reached (an httptest server that calls
// t.Error, or an unexpected sqlmock query).
//
// Run: go test ./internal/zone -v

package zone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const domainExistsQuery = `SELECT 1 FROM tenant WHERE domain = ? AND deleted_at IS NULL LIMIT 1`

func testDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

// forbiddenProvider fails the test on any request.
func forbiddenProvider(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("provider must not be called, got %s %s", r.Method, r.URL.Path)
		http.Error(w, "unexpected", http.StatusInternalServerError)
	}))
}

func newTestManager(db *sqlx.DB, providerURL string) *Manager {
	cl := NewClient(providerURL, "token", "acct", 5*time.Second)
	return NewManager(cl, db, "basezone", "musedock.com", "edge.musedock.com", "full", zap.NewNop().Sugar())
}

func respond(w http.ResponseWriter, result any) {
	raw, _ := json.Marshal(result)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"errors":  []any{},
		"result":  json.RawMessage(raw),
	})
}

func TestCheckAvailabilityBadFormat(t *testing.T) {
	db, mock := testDB(t)
	srv := forbiddenProvider(t)
	defer srv.Close()
	m := newTestManager(db, srv.URL)

	for _, sub := range []string{"ab", "-acme", "acme-", "under_score", "UP CASE"} {
		got, err := m.CheckAvailability(context.Background(), sub)
		if err != nil {
			t.Fatalf("CheckAvailability(%q): %v", sub, err)
		}
		if got.Available {
			t.Errorf("%q must be rejected on format", sub)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("DB must not be queried for bad formats: %v", err)
	}
}

func TestCheckAvailabilityTakenLocally(t *testing.T) {
	db, mock := testDB(t)
	srv := forbiddenProvider(t)
	defer srv.Close()
	m := newTestManager(db, srv.URL)

	mock.ExpectQuery(regexp.QuoteMeta(domainExistsQuery)).
		WithArgs("acme.musedock.com").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	got, err := m.CheckAvailability(context.Background(), "acme")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if got.Available || got.Reason != "subdomain is already taken" {
		t.Fatalf("unexpected verdict: %+v", got)
	}
}

func TestCheckAvailabilityReserved(t *testing.T) {
	db, mock := testDB(t)
	srv := forbiddenProvider(t)
	defer srv.Close()
	m := newTestManager(db, srv.URL)

	mock.ExpectQuery(regexp.QuoteMeta(domainExistsQuery)).
		WithArgs("admin.musedock.com").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	got, err := m.CheckAvailability(context.Background(), "admin")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if got.Available || got.Reason != "subdomain is reserved" {
		t.Fatalf("unexpected verdict: %+v", got)
	}
}

func TestCheckAvailabilityProviderDecides(t *testing.T) {
	cases := []struct {
		name      string
		records   []DNSRecord
		available bool
	}{
		{"record exists", []DNSRecord{{ID: "r1", Type: "CNAME", Name: "acme.musedock.com"}}, false},
		{"no records", nil, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			db, mock := testDB(t)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				respond(w, c.records)
			}))
			defer srv.Close()
			m := newTestManager(db, srv.URL)

			mock.ExpectQuery(regexp.QuoteMeta(domainExistsQuery)).
				WithArgs("acme.musedock.com").
				WillReturnRows(sqlmock.NewRows([]string{"1"}))

			got, err := m.CheckAvailability(context.Background(), "acme")
			if err != nil {
				t.Fatalf("CheckAvailability: %v", err)
			}
			if got.Available != c.available {
				t.Fatalf("available = %v, want %v (%+v)", got.Available, c.available, got)
			}
		})
	}
}

func TestCreateRecordShape(t *testing.T) {
	var captured DNSRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		captured.ID = "rec-123"
		respond(w, captured)
	}))
	defer srv.Close()
	db, _ := testDB(t)
	m := newTestManager(db, srv.URL)

	id, err := m.CreateRecord(context.Background(), "acme", true)
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if id != "rec-123" {
		t.Fatalf("unexpected record id %q", id)
	}
	if captured.Type != "CNAME" || captured.Name != "acme.musedock.com" ||
		captured.Content != "edge.musedock.com" || captured.TTL != 1 || !captured.Proxied {
		t.Fatalf("unexpected record payload: %+v", captured)
	}
}

func TestVerifyNameservers(t *testing.T) {
	status := "pending"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, ZoneInfo{ID: "z1", Status: status})
	}))
	defer srv.Close()
	db, _ := testDB(t)
	m := newTestManager(db, srv.URL)

	live, err := m.VerifyNameservers(context.Background(), "z1")
	if err != nil || live {
		t.Fatalf("pending zone reported live (err=%v)", err)
	}

	status = "active"
	live, err = m.VerifyNameservers(context.Background(), "z1")
	if err != nil || !live {
		t.Fatalf("active zone not reported live (err=%v)", err)
	}
}
