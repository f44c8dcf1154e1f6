// internal/zone/manager.go
//
// Provisioning-facing DNS operations.
//
// Context
// -------
// Two sub-flows share this manager.  Free subdomains live inside a base
// zone we already control: availability is checked cheapest-first (format,
// local DB, reserved words, provider), then one CNAME is created at the
// fixed target host.  Custom domains are onboarded as their own zone; the
// customer repoints nameservers, and VerifyNameservers polls until the
// delegation lands.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package zone

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/musedock/provisioner/internal/tenant"
)

// reservedSubdomains can never be claimed by a customer, regardless of
// provider-side availability.
var reservedSubdomains = map[string]struct{}{
	"www": {}, "mail": {}, "email": {}, "smtp": {}, "imap": {}, "pop": {},
	"ftp": {}, "ns1": {}, "ns2": {}, "api": {}, "app": {}, "admin": {},
	"dashboard": {}, "billing": {}, "support": {}, "help": {}, "status": {},
	"blog": {}, "shop": {}, "cdn": {}, "static": {}, "assets": {},
	"dev": {}, "staging": {}, "test": {}, "demo": {}, "docs": {},
	"musedock": {},
}

// Availability is the verdict of CheckAvailability.  Reason is a
// human-readable explanation when Available is false.
type Availability struct {
	Available bool
	Reason    string
}

// Manager combines the provider client with local state for the
// subdomain and custom-domain flows.
type Manager struct {
	cl         *Client
	db         *sqlx.DB
	baseZoneID string
	baseDomain string
	targetHost string
	tlsMode    string
	log        *zap.SugaredLogger
}

// NewManager wires a Manager.
func NewManager(cl *Client, db *sqlx.DB, baseZoneID, baseDomain, targetHost, tlsMode string, log *zap.SugaredLogger) *Manager {
	return &Manager{
		cl:         cl,
		db:         db,
		baseZoneID: baseZoneID,
		baseDomain: baseDomain,
		targetHost: targetHost,
		tlsMode:    tlsMode,
		log:        log,
	}
}

// FQDN expands a bare subdomain label to its full domain under the base.
func (m *Manager) FQDN(subdomain string) string {
	return subdomain + "." + m.baseDomain
}

//
// Free-subdomain flow
//

// ValidFormat checks label shape only: 3–63 characters, lowercase
// alphanumerics and hyphens, no leading or trailing hyphen.
func ValidFormat(subdomain string) bool {
	if len(subdomain) < 3 || len(subdomain) > 63 {
		return false
	}
	if subdomain[0] == '-' || subdomain[len(subdomain)-1] == '-' {
		return false
	}
	for _, r := range subdomain {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}

// CheckAvailability runs the availability checks cheapest-first and
// short-circuits on the first "unavailable" verdict.  Only the final,
// provider-side lookup can return a non-nil error.
func (m *Manager) CheckAvailability(ctx context.Context, subdomain string) (Availability, error) {
	sub := strings.ToLower(strings.TrimSpace(subdomain))

	if !ValidFormat(sub) {
		return Availability{Reason: "subdomain must be 3-63 characters, letters, digits, and hyphens only"}, nil
	}

	taken, err := tenant.DomainExists(ctx, m.db, m.FQDN(sub))
	if err != nil {
		return Availability{}, fmt.Errorf("local availability lookup: %w", err)
	}
	if taken {
		return Availability{Reason: "subdomain is already taken"}, nil
	}

	if _, reserved := reservedSubdomains[sub]; reserved {
		return Availability{Reason: "subdomain is reserved"}, nil
	}

	records, err := m.cl.ListRecords(ctx, m.baseZoneID, "", m.FQDN(sub))
	if err != nil {
		return Availability{}, err
	}
	if len(records) > 0 {
		return Availability{Reason: "subdomain is already in use"}, nil
	}

	return Availability{Available: true}, nil
}

// CreateRecord creates the subdomain's CNAME at the fixed target host and
// returns the provider-assigned record id for later reference or removal.
func (m *Manager) CreateRecord(ctx context.Context, subdomain string, proxied bool) (string, error) {
	rec := DNSRecord{
		Type:    "CNAME",
		Name:    m.FQDN(subdomain),
		Content: m.targetHost,
		TTL:     1, // provider-managed ("automatic")
		Proxied: proxied,
	}
	id, err := m.cl.CreateRecord(ctx, m.baseZoneID, rec)
	if err != nil {
		return "", err
	}
	m.log.Infow("dns record created",
		"name", rec.Name, "target", rec.Content, "proxied", proxied, "record_id", id)
	return id, nil
}

// UpdateProxyStatus flips the CDN-termination flag on an existing record,
// preserving every other field via read-modify-write.
func (m *Manager) UpdateProxyStatus(ctx context.Context, recordID string, proxied bool) error {
	rec, err := m.cl.GetRecord(ctx, m.baseZoneID, recordID)
	if err != nil {
		return err
	}
	if rec.Proxied == proxied {
		return nil
	}
	rec.Proxied = proxied
	return m.cl.UpdateRecord(ctx, m.baseZoneID, *rec)
}

// RemoveRecord deletes the subdomain's record; used by tenant teardown.
func (m *Manager) RemoveRecord(ctx context.Context, recordID string) error {
	return m.cl.DeleteRecord(ctx, m.baseZoneID, recordID)
}

//
// Custom-domain flow
//

// AddZone onboards a custom domain for full management, sets the
// zone-wide TLS mode, and returns the zone id plus the nameservers the
// customer must configure at their registrar.
func (m *Manager) AddZone(ctx context.Context, domain string) (*ZoneInfo, error) {
	zi, err := m.cl.CreateZone(ctx, domain)
	if err != nil {
		return nil, err
	}
	if err := m.cl.SetTLSMode(ctx, zi.ID, m.tlsMode); err != nil {
		return nil, err
	}
	m.log.Infow("zone onboarded",
		"domain", domain, "zone_id", zi.ID, "nameservers", zi.NameServers)
	return zi, nil
}

// VerifyNameservers polls zone status; true means the customer's NS
// change has propagated and the zone is live.  This is the trigger that
// flips a tenant from waiting_ns_change to active.
func (m *Manager) VerifyNameservers(ctx context.Context, zoneID string) (bool, error) {
	zi, err := m.cl.GetZone(ctx, zoneID)
	if err != nil {
		return false, err
	}
	return zi.Status == "active", nil
}
