package provision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/musedock/provisioner/internal/zone"
)

type fakeEmail struct {
	enableCalls int
	addCalls    int
	lastFrom    string
	lastTo      string
}

func (f *fakeEmail) EnableForwarding(_ context.Context, _, to string) error {
	f.enableCalls++
	f.lastTo = to
	return nil
}

func (f *fakeEmail) CatchAll(_ context.Context, _ string) (*zone.EmailRule, error) {
	return &zone.EmailRule{Name: "catch_all", Enabled: true}, nil
}

func (f *fakeEmail) AddForward(_ context.Context, _, from, to string) (string, error) {
	f.addCalls++
	f.lastFrom, f.lastTo = from, to
	return "rule-1", nil
}

func (f *fakeEmail) RemoveForward(_ context.Context, _, _ string) error { return nil }

func newForwarding(t *testing.T) (*MailForwarding, *fakeEmail, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { rawDB.Close() })
	fake := &fakeEmail{}
	f := NewMailForwarding(sqlx.NewDb(rawDB, "mysql"), fake, zap.NewNop().Sugar())
	return f, fake, mock
}

func customTenantRow(zoneID any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(tenantColumns).AddRow(
		21, 11, "example.com", "example", "starter", false, "",
		"active", zoneID, false, now, nil, "route_example_com", "active",
		nil, nil, now, now)
}

func TestAddForwardHappyPath(t *testing.T) {
	f, fake, mock := newForwarding(t)
	mock.ExpectQuery(tenantByDomain).WithArgs("example.com").
		WillReturnRows(customTenantRow("z1"))

	id, err := f.AddForward(context.Background(), "example.com",
		ForwardRequest{From: "Info@Example.com", To: "Owner@Gmail.com"})
	if err != nil {
		t.Fatalf("AddForward: %v", err)
	}
	if id != "rule-1" {
		t.Errorf("rule id = %q", id)
	}
	if fake.lastFrom != "info@example.com" || fake.lastTo != "owner@gmail.com" {
		t.Errorf("addresses not lowercased: from=%q to=%q", fake.lastFrom, fake.lastTo)
	}
}

func TestAddForwardRejectsForeignAddress(t *testing.T) {
	f, fake, mock := newForwarding(t)
	mock.ExpectQuery(tenantByDomain).WithArgs("example.com").
		WillReturnRows(customTenantRow("z1"))

	_, err := f.AddForward(context.Background(), "example.com",
		ForwardRequest{From: "info@other.com", To: "owner@gmail.com"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if fake.addCalls != 0 {
		t.Error("provider must not be called for a foreign from address")
	}
}

func TestForwardingRequiresCustomDomain(t *testing.T) {
	f, fake, mock := newForwarding(t)
	now := time.Now()
	mock.ExpectQuery(tenantByDomain).WithArgs("acme.musedock.com").
		WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(
			21, 11, "acme.musedock.com", "acme", "free", true, "musedock.com",
			"active", "rec-1", true, now, nil, "route_acme_musedock_com", "active",
			nil, nil, now, now))

	err := f.EnableCatchAll(context.Background(), "acme.musedock.com", "owner@gmail.com")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if fake.enableCalls != 0 {
		t.Error("provider must not be called for a subdomain tenant")
	}
}

func TestEnableCatchAllRequiresZone(t *testing.T) {
	f, fake, mock := newForwarding(t)
	mock.ExpectQuery(tenantByDomain).WithArgs("example.com").
		WillReturnRows(customTenantRow(nil))

	err := f.EnableCatchAll(context.Background(), "example.com", "owner@gmail.com")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if fake.enableCalls != 0 {
		t.Error("provider must not be called before the zone step completes")
	}
}
