// internal/registrar/contacts_test.go
//
// Unit-tests for registrar contact handle reuse.
//
// Context
// -------
// GetOrCreateContact must create a registrar contact at most once per
// email: the local contact table answers first, the registrar's own
// search second, and only a double miss creates.  The fake registrar
// counts creations; sqlmock plays the local table.
//
// Run: go test ./internal/registrar -v

package registrar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var contactColumns = []string{
	"id", "handle", "name", "company", "email", "phone", "street", "zip",
	"city", "country", "vat_number", "reg_number", "created_at", "updated_at",
}

var testContact = ContactInput{
	Name:    "Ana de Vries",
	Email:   "ana@x.com",
	Phone:   "+31 6 12345678",
	Street:  "Keizersgracht 1",
	Zip:     "1015 CS",
	City:    "Amsterdam",
	Country: "NL",
}

type contactServer struct {
	mu       sync.Mutex
	creates  int
	existing []RegistrarContact // answer to the search
}

func (s *contactServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case r.URL.Path == "/auth/login":
			data, _ := json.Marshal(map[string]any{"token": "tok", "expires_in": 3600})
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": json.RawMessage(data)})
		case r.Method == http.MethodGet && r.URL.Path == "/customers":
			raw, _ := json.Marshal(s.existing)
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": json.RawMessage(raw)})
		case r.Method == http.MethodPost && r.URL.Path == "/customers":
			s.creates++
			raw, _ := json.Marshal(RegistrarContact{Handle: "H100", Email: testContact.Email})
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "data": json.RawMessage(raw)})
		default:
			http.Error(w, "unexpected route "+r.URL.Path, http.StatusBadRequest)
		}
	})
}

func contactClient(t *testing.T, url string) *Client {
	t.Helper()
	return New(Options{
		BaseURL:  url,
		Mode:     "sandbox",
		Username: "acct",
		Password: "secret",
		TokenTTL: time.Hour,
		Timeout:  5 * time.Second,
		Cache:    NewMemoryTokenCache(),
	}, zap.NewNop().Sugar())
}

func TestGetOrCreateContactCreatesOnce(t *testing.T) {
	fake := &contactServer{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	cl := contactClient(t, srv.URL)

	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "mysql")

	// First call: local miss, registrar miss, create, local insert.
	mock.ExpectQuery(`(?s)SELECT.+FROM\s+contact`).
		WithArgs(testContact.Email).
		WillReturnRows(sqlmock.NewRows(contactColumns))
	mock.ExpectExec(`INSERT INTO contact`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h1, err := cl.GetOrCreateContact(context.Background(), db, testContact)
	require.NoError(t, err)
	assert.Equal(t, "H100", h1)
	assert.Equal(t, 1, fake.creates)

	// Second call: the local row answers, no HTTP at all.
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT.+FROM\s+contact`).
		WithArgs(testContact.Email).
		WillReturnRows(sqlmock.NewRows(contactColumns).AddRow(
			1, "H100", testContact.Name, "", testContact.Email, testContact.Phone,
			testContact.Street, testContact.Zip, testContact.City, testContact.Country,
			"", "", now, now))

	h2, err := cl.GetOrCreateContact(context.Background(), db, testContact)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "same email must map to the same handle")
	assert.Equal(t, 1, fake.creates, "second call must not create again")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateContactAdoptsRegistrarHandle(t *testing.T) {
	fake := &contactServer{existing: []RegistrarContact{{Handle: "H042", Email: testContact.Email}}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	cl := contactClient(t, srv.URL)

	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "mysql")

	mock.ExpectQuery(`(?s)SELECT.+FROM\s+contact`).
		WithArgs(testContact.Email).
		WillReturnRows(sqlmock.NewRows(contactColumns))
	mock.ExpectExec(`INSERT INTO contact`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h, err := cl.GetOrCreateContact(context.Background(), db, testContact)
	require.NoError(t, err)
	assert.Equal(t, "H042", h, "pre-existing registrar contact must be adopted")
	assert.Equal(t, 0, fake.creates)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateContactRejectsBadPhoneLocally(t *testing.T) {
	fake := &contactServer{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	cl := contactClient(t, srv.URL)

	bad := testContact
	bad.Phone = "12"
	_, err := cl.CreateContact(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, 0, fake.creates, "a malformed phone must fail before the API call")
}
