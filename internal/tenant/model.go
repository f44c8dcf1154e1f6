// internal/tenant/model.go
//
// Tenant row and provisioning progress markers.
//
// Context
// -------
// One Record is one provisioned site.  Beyond identity (domain, slug,
// owner) the row carries the *progress markers* that make provisioning
// resumable: each external configuration step writes its outcome into a
// dedicated column, and a later call reads them to decide which steps are
// still missing.  The markers are the single source of truth; nothing else
// tracks partial progress.
//
// A tenant is fully provisioned iff ZoneRecordID is non-NULL and
// RouteStatus == RouteActive.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package tenant

import "time"

// Tenant statuses.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusWaitingNS = "waiting_ns_change"
	StatusError     = "error"
	StatusSuspended = "suspended"
)

// Route status values persisted in route_status.
const (
	RouteActive = "active"
	RouteError  = "error"
)

// Record mirrors one row in the `tenant` table.
type Record struct {
	ID           uint64 `db:"id"`
	CustomerID   uint64 `db:"customer_id"`
	Domain       string `db:"domain"` // fully qualified, unique
	Slug         string `db:"slug"`   // unique, numeric-suffix collision resolved
	Plan         string `db:"plan"`
	IsSubdomain  bool   `db:"is_subdomain"`
	ParentDomain string `db:"parent_domain"`
	Status       string `db:"status"`

	// Progress markers (see package comment).
	ZoneRecordID     *string    `db:"zone_record_id"`
	ZoneProxied      bool       `db:"zone_proxied"`
	ZoneConfiguredAt *time.Time `db:"zone_configured_at"`
	ZoneErrorLog     *string    `db:"zone_error_log"`
	RouteID          *string    `db:"route_id"`
	RouteStatus      *string    `db:"route_status"`

	SuspendedAt *time.Time `db:"suspended_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// ZoneConfigured reports whether the DNS step has completed.
func (r *Record) ZoneConfigured() bool { return r.ZoneRecordID != nil }

// RouteConfigured reports whether the reverse-proxy step has completed.
func (r *Record) RouteConfigured() bool {
	return r.RouteStatus != nil && *r.RouteStatus == RouteActive
}

// FullyProvisioned is the invariant the rest of the system relies on.
func (r *Record) FullyProvisioned() bool {
	return r.ZoneConfigured() && r.RouteConfigured()
}
