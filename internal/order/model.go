// internal/order/model.go
//
// Domain registration orders and registrar status mapping.
package order

import "time"

// Local order statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Order kinds.
const (
	KindRegistration = "registration"
	KindTransfer     = "transfer"
)

// registrarStatus maps the registrar's three-letter codes onto our local
// statuses.  Unknown codes stay pending so a later poll can settle them.
var registrarStatus = map[string]string{
	"ACT": StatusCompleted,
	"REQ": StatusProcessing,
	"PEN": StatusPending,
	"FAI": StatusFailed,
	"DEL": StatusCancelled,
}

// StatusFromRegistrar translates a registrar code, defaulting to pending.
func StatusFromRegistrar(code string) string {
	if s, ok := registrarStatus[code]; ok {
		return s
	}
	return StatusPending
}

// Record mirrors one row in the `domain_registration_order` table: one
// registrar-side registration or transfer for a tenant's custom domain.
type Record struct {
	ID        uint64 `db:"id"`
	TenantID  uint64 `db:"tenant_id"`
	Kind      string `db:"kind"`
	Domain    string `db:"domain"`    // name without extension
	Extension string `db:"extension"` // "com", "nl", …

	RegistrantHandle string `db:"registrant_handle"`
	AdminHandle      string `db:"admin_handle"`
	TechHandle       string `db:"tech_handle"`
	BillingHandle    string `db:"billing_handle"`

	Nameservers string  `db:"nameservers"` // comma-joined
	Status      string  `db:"status"`
	AuthCode    *string `db:"auth_code"`
	ZoneID      *string `db:"zone_id"` // provider zone, once onboarded

	RegistrarOrderID *string   `db:"registrar_order_id"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// FQDN returns the full domain name.
func (r *Record) FQDN() string { return r.Domain + "." + r.Extension }
