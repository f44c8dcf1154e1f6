// internal/provision/status.go
//
// Read-only tenant status: persisted progress markers plus a live
// reachability probe of the served domain.
package provision

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/musedock/provisioner/internal/probe"
	"github.com/musedock/provisioner/internal/tenant"
)

// HealthProber runs the live end-of-chain check (DNS, HTTP, TLS).
type HealthProber interface {
	Check(ctx context.Context, domain string) probe.Report
}

// Status is the read model returned by the status endpoint.
type Status struct {
	TenantID    uint64 `json:"tenant_id"`
	Domain      string `json:"domain"`
	Slug        string `json:"slug"`
	Plan        string `json:"plan"`
	IsSubdomain bool   `json:"is_subdomain"`
	State       string `json:"state"`

	ZoneConfigured   bool       `json:"zone_configured"`
	ZoneRecordID     string     `json:"zone_record_id,omitempty"`
	ZoneProxied      bool       `json:"zone_proxied"`
	ZoneConfiguredAt *time.Time `json:"zone_configured_at,omitempty"`
	ZoneError        string     `json:"zone_error,omitempty"`

	RouteConfigured bool   `json:"route_configured"`
	RouteID         string `json:"route_id,omitempty"`

	FullyProvisioned bool `json:"fully_provisioned"`

	// Healthy summarizes the probe; false whenever the probe was skipped.
	Healthy bool          `json:"healthy"`
	Probe   *probe.Report `json:"probe,omitempty"`
}

// TenantStatus assembles the status read model.  The probe runs only for
// tenants whose route exists; before that the domain cannot possibly
// serve, and the probe would just burn its timeout.
func TenantStatus(ctx context.Context, db *sqlx.DB, prober HealthProber, domain string) (*Status, error) {
	rec, err := tenant.ByDomain(ctx, db, strings.ToLower(domain))
	if err != nil {
		return nil, err
	}

	st := &Status{
		TenantID:         rec.ID,
		Domain:           rec.Domain,
		Slug:             rec.Slug,
		Plan:             rec.Plan,
		IsSubdomain:      rec.IsSubdomain,
		State:            rec.Status,
		ZoneConfigured:   rec.ZoneConfigured(),
		ZoneProxied:      rec.ZoneProxied,
		ZoneConfiguredAt: rec.ZoneConfiguredAt,
		RouteConfigured:  rec.RouteConfigured(),
		FullyProvisioned: rec.FullyProvisioned(),
	}
	if rec.ZoneRecordID != nil {
		st.ZoneRecordID = *rec.ZoneRecordID
	}
	if rec.ZoneErrorLog != nil {
		st.ZoneError = *rec.ZoneErrorLog
	}
	if rec.RouteID != nil {
		st.RouteID = *rec.RouteID
	}

	if prober != nil && st.RouteConfigured {
		rep := prober.Check(ctx, rec.Domain)
		st.Probe = &rep
		st.Healthy = rep.Healthy()
	}
	return st, nil
}
