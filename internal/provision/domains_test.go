package provision

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/musedock/provisioner/internal/order"
	"github.com/musedock/provisioner/internal/registrar"
)

type fakeReg struct {
	handle string
	domain *registrar.Domain
	err    error
}

func (f *fakeReg) CheckAvailability(_ context.Context, _ []registrar.DomainQuery, _ bool) ([]registrar.CheckResult, error) {
	return nil, nil
}

func (f *fakeReg) GetOrCreateContact(_ context.Context, _ *sqlx.DB, _ registrar.ContactInput) (string, error) {
	return f.handle, nil
}

func (f *fakeReg) RegisterDomain(_ context.Context, _, _ string, _ int, _ registrar.Handles, _ []string) (*registrar.Domain, error) {
	return f.domain, f.err
}

func (f *fakeReg) TransferDomain(_ context.Context, _, _, _ string, _ registrar.Handles, _ []string) (*registrar.Domain, error) {
	return f.domain, f.err
}

func (f *fakeReg) UpdateNameservers(_ context.Context, _ int64, _ []string) error { return nil }
func (f *fakeReg) RenewDomain(_ context.Context, _ int64, _ int) error            { return nil }
func (f *fakeReg) GetAuthCode(_ context.Context, _ int64) (string, error)         { return "", nil }
func (f *fakeReg) GetDomain(_ context.Context, _ int64) (*registrar.Domain, error) {
	return f.domain, nil
}
func (f *fakeReg) ListTLDs(_ context.Context) ([]registrar.TLDInfo, error) { return nil, nil }
func (f *fakeReg) Self(_ context.Context) (*registrar.Reseller, error)     { return nil, nil }

func TestSplitDomain(t *testing.T) {
	cases := []struct {
		in        string
		name, ext string
		ok        bool
	}{
		{"example.com", "example", "com", true},
		{"example.co.uk", "example", "co.uk", true},
		{"Example.COM.", "example", "com", true},
		{"  shop.nl ", "shop", "nl", true},
		{"example", "", "", false},
		{".com", "", "", false},
		{"example.", "", "", false},
		{"", "", "", false},
	}
	for _, c := range cases {
		name, ext, err := SplitDomain(c.in)
		if c.ok && err != nil {
			t.Errorf("SplitDomain(%q): unexpected error %v", c.in, err)
			continue
		}
		if !c.ok {
			if err == nil {
				t.Errorf("SplitDomain(%q): expected an error", c.in)
			}
			continue
		}
		if name != c.name || ext != c.ext {
			t.Errorf("SplitDomain(%q) = (%q, %q), want (%q, %q)", c.in, name, ext, c.name, c.ext)
		}
	}
}

func TestPlaceOrderLinksZoneToOrder(t *testing.T) {
	rawDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer rawDB.Close()
	db := sqlx.NewDb(rawDB, "mysql")

	reg := &fakeReg{
		handle: "H-1",
		domain: &registrar.Domain{ID: 9001, Status: "ACT"},
	}
	zones := &fakeZones{available: true}
	d := NewDomainOrders(db, reg, zones, zap.NewNop().Sugar())

	mock.ExpectQuery(tenantByDomain).WithArgs("shop.musedock.com").
		WillReturnRows(tenantRow(21, "shop.musedock.com", "shop", "active", "rec-1", "active"))
	mock.ExpectExec(`INSERT INTO domain_registration_order`).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(`UPDATE domain_registration_order SET zone_id`).
		WithArgs("z1", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := d.PlaceOrder(context.Background(), OrderRequest{
		TenantDomain: "shop.musedock.com",
		Domain:       "example.com",
		Kind:         order.KindRegistration,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if rec.ID != 7 {
		t.Fatalf("order id = %d, want 7", rec.ID)
	}
	if rec.ZoneID == nil || *rec.ZoneID != "z1" {
		t.Fatalf("order must carry the onboarded zone, got %v", rec.ZoneID)
	}
	if rec.Status != order.StatusCompleted {
		t.Errorf("status = %q, want %q", rec.Status, order.StatusCompleted)
	}
	if rec.RegistrarOrderID == nil || *rec.RegistrarOrderID != "9001" {
		t.Errorf("registrar id = %v, want 9001", rec.RegistrarOrderID)
	}
	if rec.Nameservers != "ns1.provider.net,ns2.provider.net" {
		t.Errorf("nameservers = %q", rec.Nameservers)
	}
	if zones.addZoneCalls != 1 {
		t.Errorf("zone onboarding ran %d times, want 1", zones.addZoneCalls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
