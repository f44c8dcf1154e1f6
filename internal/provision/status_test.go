package provision

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/musedock/provisioner/internal/probe"
)

type fakeProber struct{ calls int }

func (f *fakeProber) Check(_ context.Context, _ string) probe.Report {
	f.calls++
	return probe.Report{DNSResolves: true, HTTPReachable: true, TLSValid: true}
}

func TestTenantStatusProbesOnlyConfiguredRoutes(t *testing.T) {
	rawDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "mysql")
	prober := &fakeProber{}

	now := time.Now()
	mock.ExpectQuery(tenantByDomain).WithArgs("acme.musedock.com").
		WillReturnRows(sqlmock.NewRows(tenantColumns).AddRow(
			21, 11, "acme.musedock.com", "acme", "free", true, "musedock.com",
			"active", "rec-1", true, now, nil, "route_acme_musedock_com", "active",
			nil, nil, now, now))

	st, err := TenantStatus(context.Background(), db, prober, "acme.musedock.com")
	if err != nil {
		t.Fatalf("TenantStatus: %v", err)
	}
	if !st.FullyProvisioned || st.Probe == nil {
		t.Fatalf("expected probe on a fully provisioned tenant: %+v", st)
	}
	if !st.Healthy {
		t.Error("all probe checks passed, so the summary must be healthy")
	}
	if prober.calls != 1 {
		t.Errorf("probe ran %d times", prober.calls)
	}

	// Route still missing: the probe must not run.
	mock.ExpectQuery(tenantByDomain).WithArgs("new.musedock.com").
		WillReturnRows(tenantRow(22, "new.musedock.com", "new", "pending", "rec-2", nil))

	st, err = TenantStatus(context.Background(), db, prober, "new.musedock.com")
	if err != nil {
		t.Fatalf("TenantStatus: %v", err)
	}
	if st.Probe != nil {
		t.Error("probe must be skipped before the route exists")
	}
	if st.Healthy {
		t.Error("a skipped probe must not report healthy")
	}
	if prober.calls != 1 {
		t.Errorf("probe ran %d times, want still 1", prober.calls)
	}
}
