// internal/provision/forwarding.go
//
// Email forwarding for custom-domain tenants.
//
// Context
// -------
// Forwarding rides on the tenant's managed zone, so it is only offered
// once a custom domain has completed its zone step.  Subdomain tenants
// share the base zone and never get forwarding; mail for the base domain
// is operator-managed.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/musedock/provisioner/internal/tenant"
	"github.com/musedock/provisioner/internal/zone"
)

// EmailService is the slice of zone.Manager the forwarding flow needs.
type EmailService interface {
	EnableForwarding(ctx context.Context, zoneID, catchAllTo string) error
	CatchAll(ctx context.Context, zoneID string) (*zone.EmailRule, error)
	AddForward(ctx context.Context, zoneID, from, to string) (string, error)
	RemoveForward(ctx context.Context, zoneID, ruleID string) error
}

// MailForwarding resolves tenant domains to their zones and delegates
// rule management to the provider client.
type MailForwarding struct {
	db    *sqlx.DB
	zones EmailService
	log   *zap.SugaredLogger
}

// NewMailForwarding wires a MailForwarding service.
func NewMailForwarding(db *sqlx.DB, zones EmailService, log *zap.SugaredLogger) *MailForwarding {
	return &MailForwarding{db: db, zones: zones, log: log}
}

// ForwardRequest is one per-address rule: mail for From is delivered to
// To.  From must live inside the tenant's own domain.
type ForwardRequest struct {
	From string `json:"from" validate:"required,email"`
	To   string `json:"to"   validate:"required,email"`
}

// zoneFor resolves a tenant domain to its managed zone id, rejecting
// subdomain tenants and tenants whose zone step has not completed.
func (f *MailForwarding) zoneFor(ctx context.Context, domain string) (*tenant.Record, string, error) {
	rec, err := tenant.ByDomain(ctx, f.db, strings.ToLower(strings.TrimSpace(domain)))
	if err != nil {
		return nil, "", err
	}
	if rec.IsSubdomain {
		return nil, "", &ValidationError{Msg: "email forwarding requires a custom domain"}
	}
	if !rec.ZoneConfigured() {
		return nil, "", &ValidationError{Msg: "domain has no configured zone yet"}
	}
	return rec, *rec.ZoneRecordID, nil
}

// EnableCatchAll turns forwarding on for the tenant's zone and points the
// catch-all at forwardTo.
func (f *MailForwarding) EnableCatchAll(ctx context.Context, domain, forwardTo string) error {
	if err := validate.Var(forwardTo, "required,email"); err != nil {
		return &ValidationError{Msg: "forward_to must be a valid email address"}
	}
	rec, zoneID, err := f.zoneFor(ctx, domain)
	if err != nil {
		return err
	}
	if err := f.zones.EnableForwarding(ctx, zoneID, forwardTo); err != nil {
		return fmt.Errorf("enable forwarding: %w", err)
	}
	f.log.Infow("catch-all enabled", "tenant_id", rec.ID, "domain", rec.Domain, "forward_to", forwardTo)
	return nil
}

// CatchAll returns the current catch-all rule for the tenant's zone.
func (f *MailForwarding) CatchAll(ctx context.Context, domain string) (*zone.EmailRule, error) {
	_, zoneID, err := f.zoneFor(ctx, domain)
	if err != nil {
		return nil, err
	}
	return f.zones.CatchAll(ctx, zoneID)
}

// AddForward creates one per-address rule and returns the provider rule
// id the caller needs for later removal.
func (f *MailForwarding) AddForward(ctx context.Context, domain string, req ForwardRequest) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", &ValidationError{Msg: "from and to must be valid email addresses"}
	}
	rec, zoneID, err := f.zoneFor(ctx, domain)
	if err != nil {
		return "", err
	}
	from := strings.ToLower(req.From)
	if !strings.HasSuffix(from, "@"+rec.Domain) {
		return "", &ValidationError{Msg: "from address must belong to " + rec.Domain}
	}
	id, err := f.zones.AddForward(ctx, zoneID, from, strings.ToLower(req.To))
	if err != nil {
		return "", fmt.Errorf("add forward: %w", err)
	}
	return id, nil
}

// RemoveForward deletes a per-address rule by provider rule id.
func (f *MailForwarding) RemoveForward(ctx context.Context, domain, ruleID string) error {
	_, zoneID, err := f.zoneFor(ctx, domain)
	if err != nil {
		return err
	}
	if ruleID == "" {
		return &ValidationError{Msg: "rule id is required"}
	}
	if err := f.zones.RemoveForward(ctx, zoneID, ruleID); err != nil {
		return fmt.Errorf("remove forward: %w", err)
	}
	return nil
}
