// internal/provision/domains.go
//
// Registrar-side domain orders for custom-domain tenants.
//
// Context
// -------
// A tenant on a custom domain can either bring a domain they already own
// (the nameserver-repoint flow in orchestrator.go) or buy/transfer one
// through us.  DomainOrders drives the second path: the zone is onboarded
// at the DNS provider first so its assigned nameservers can be submitted
// with the registration, which skips the manual repoint entirely.  Every
// submitted order is persisted locally with the registrar's status code
// mapped onto our order lifecycle.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package provision

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/musedock/provisioner/internal/order"
	"github.com/musedock/provisioner/internal/registrar"
	"github.com/musedock/provisioner/internal/tenant"
)

// RegistrarService is the slice of registrar.Client the order flow needs.
type RegistrarService interface {
	CheckAvailability(ctx context.Context, domains []registrar.DomainQuery, withPrice bool) ([]registrar.CheckResult, error)
	GetOrCreateContact(ctx context.Context, db *sqlx.DB, in registrar.ContactInput) (string, error)
	RegisterDomain(ctx context.Context, name, extension string, years int, handles registrar.Handles, nameservers []string) (*registrar.Domain, error)
	TransferDomain(ctx context.Context, name, extension, authCode string, handles registrar.Handles, nameservers []string) (*registrar.Domain, error)
	UpdateNameservers(ctx context.Context, id int64, nameservers []string) error
	RenewDomain(ctx context.Context, id int64, years int) error
	GetAuthCode(ctx context.Context, id int64) (string, error)
	GetDomain(ctx context.Context, id int64) (*registrar.Domain, error)
	ListTLDs(ctx context.Context) ([]registrar.TLDInfo, error)
	Self(ctx context.Context) (*registrar.Reseller, error)
}

// DomainOrders coordinates registrar, DNS provider, and local order rows.
type DomainOrders struct {
	db    *sqlx.DB
	reg   RegistrarService
	zones ZoneService
	log   *zap.SugaredLogger
}

// NewDomainOrders wires a DomainOrders.
func NewDomainOrders(db *sqlx.DB, reg RegistrarService, zones ZoneService, log *zap.SugaredLogger) *DomainOrders {
	return &DomainOrders{db: db, reg: reg, zones: zones, log: log}
}

// SplitDomain separates "example.co.uk" into ("example", "co.uk").  The
// registrar addresses domains as name plus extension, never as one FQDN.
func SplitDomain(fqdn string) (name, extension string, err error) {
	fqdn = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(fqdn, ".")))
	i := strings.Index(fqdn, ".")
	if i <= 0 || i == len(fqdn)-1 {
		return "", "", &ValidationError{Msg: "domain must contain a name and an extension"}
	}
	return fqdn[:i], fqdn[i+1:], nil
}

// CheckDomains queries registrar-side availability, with pricing, for a
// set of full domain names.
func (d *DomainOrders) CheckDomains(ctx context.Context, fqdns []string) ([]registrar.CheckResult, error) {
	if len(fqdns) == 0 {
		return nil, &ValidationError{Msg: "at least one domain is required"}
	}
	queries := make([]registrar.DomainQuery, 0, len(fqdns))
	for _, f := range fqdns {
		name, ext, err := SplitDomain(f)
		if err != nil {
			return nil, err
		}
		queries = append(queries, registrar.DomainQuery{Name: name, Extension: ext})
	}
	return d.reg.CheckAvailability(ctx, queries, true)
}

// OrderRequest is the input for PlaceOrder.
type OrderRequest struct {
	TenantDomain string                 `json:"tenant_domain" validate:"required,fqdn"`
	Domain       string                 `json:"domain" validate:"required,fqdn"`
	Kind         string                 `json:"kind" validate:"required,oneof=registration transfer"`
	Years        int                    `json:"years" validate:"omitempty,min=1,max=10"`
	AuthCode     string                 `json:"auth_code"`
	Contact      registrar.ContactInput `json:"contact"`
}

// PlaceOrder runs a registration or transfer end to end: zone onboarding,
// contact handle resolution, registrar submission, and the local order
// row.  A registrar failure after the zone exists is recorded as a failed
// order; the zone is left in place for a retry.
func (d *DomainOrders) PlaceOrder(ctx context.Context, req OrderRequest) (*order.Record, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	name, ext, err := SplitDomain(req.Domain)
	if err != nil {
		return nil, err
	}
	if req.Kind == order.KindTransfer && req.AuthCode == "" {
		return nil, &ValidationError{Msg: "transfers require an auth code"}
	}
	years := req.Years
	if years == 0 {
		years = 1
	}

	ten, err := tenant.ByDomain(ctx, d.db, strings.ToLower(req.TenantDomain))
	if err != nil {
		return nil, err
	}

	handle, err := d.reg.GetOrCreateContact(ctx, d.db, req.Contact)
	if err != nil {
		return nil, fmt.Errorf("contact handle: %w", err)
	}

	zi, err := d.zones.AddZone(ctx, name+"."+ext)
	if err != nil {
		return nil, fmt.Errorf("zone onboarding: %w", err)
	}

	var dom *registrar.Domain
	if req.Kind == order.KindTransfer {
		dom, err = d.reg.TransferDomain(ctx, name, ext, req.AuthCode, registrar.AllFrom(handle), zi.NameServers)
	} else {
		dom, err = d.reg.RegisterDomain(ctx, name, ext, years, registrar.AllFrom(handle), zi.NameServers)
	}

	rec := &order.Record{
		TenantID:         ten.ID,
		Kind:             req.Kind,
		Domain:           name,
		Extension:        ext,
		RegistrantHandle: handle,
		AdminHandle:      handle,
		TechHandle:       handle,
		BillingHandle:    handle,
		Nameservers:      strings.Join(zi.NameServers, ","),
		Status:           order.StatusFailed,
	}
	if err == nil {
		rec.Status = order.StatusFromRegistrar(dom.Status)
		id := strconv.FormatInt(dom.ID, 10)
		rec.RegistrarOrderID = &id
		if dom.AuthCode != "" {
			rec.AuthCode = &dom.AuthCode
		}
	}

	if _, ierr := order.Insert(ctx, d.db, rec); ierr != nil {
		if err != nil {
			return nil, fmt.Errorf("registrar order failed (%s) and could not be recorded: %w", err, ierr)
		}
		return nil, fmt.Errorf("record order: %w", ierr)
	}
	if zerr := order.SetZone(ctx, d.db, rec.ID, zi.ID); zerr != nil {
		d.log.Errorw("linking zone to order failed", "order_id", rec.ID, "err", zerr)
	} else {
		rec.ZoneID = &zi.ID
	}
	if err != nil {
		d.log.Errorw("registrar order failed", "domain", req.Domain, "kind", req.Kind, "err", err)
		return rec, err
	}

	d.log.Infow("domain order placed",
		"domain", req.Domain, "kind", req.Kind, "status", rec.Status, "registrar_id", dom.ID)
	return rec, nil
}

// RefreshOrder re-polls the registrar and settles a pending order's local
// status.
func (d *DomainOrders) RefreshOrder(ctx context.Context, fqdn string) (*order.Record, error) {
	rec, id, err := d.lookup(ctx, fqdn)
	if err != nil {
		return nil, err
	}
	dom, err := d.reg.GetDomain(ctx, id)
	if err != nil {
		return nil, err
	}
	status := order.StatusFromRegistrar(dom.Status)
	if status != rec.Status {
		if err := order.UpdateStatus(ctx, d.db, rec.ID, status); err != nil {
			return nil, err
		}
		rec.Status = status
	}
	return rec, nil
}

// Renew extends the registration period.
func (d *DomainOrders) Renew(ctx context.Context, fqdn string, years int) error {
	if years <= 0 {
		years = 1
	}
	_, id, err := d.lookup(ctx, fqdn)
	if err != nil {
		return err
	}
	return d.reg.RenewDomain(ctx, id, years)
}

// AuthCode fetches the transfer-out code from the registrar and persists
// it on the order row.
func (d *DomainOrders) AuthCode(ctx context.Context, fqdn string) (string, error) {
	rec, id, err := d.lookup(ctx, fqdn)
	if err != nil {
		return "", err
	}
	code, err := d.reg.GetAuthCode(ctx, id)
	if err != nil {
		return "", err
	}
	if err := order.SetAuthCode(ctx, d.db, rec.ID, code); err != nil {
		return "", err
	}
	return code, nil
}

// SetNameservers pushes a new delegation through the registrar's
// unlock/update/re-lock sequence and records it locally.
func (d *DomainOrders) SetNameservers(ctx context.Context, fqdn string, nameservers []string) error {
	if len(nameservers) < 2 {
		return &ValidationError{Msg: "at least two nameservers are required"}
	}
	rec, id, err := d.lookup(ctx, fqdn)
	if err != nil {
		return err
	}
	if err := d.reg.UpdateNameservers(ctx, id, nameservers); err != nil {
		return err
	}
	return order.SetNameservers(ctx, d.db, rec.ID, strings.Join(nameservers, ","))
}

// TLDs returns the registrar's extension catalogue with pricing.
func (d *DomainOrders) TLDs(ctx context.Context) ([]registrar.TLDInfo, error) {
	return d.reg.ListTLDs(ctx)
}

// Reseller returns our registrar account state, including balance.
func (d *DomainOrders) Reseller(ctx context.Context) (*registrar.Reseller, error) {
	return d.reg.Self(ctx)
}

// lookup resolves an order row plus its registrar-side domain id.
func (d *DomainOrders) lookup(ctx context.Context, fqdn string) (*order.Record, int64, error) {
	name, ext, err := SplitDomain(fqdn)
	if err != nil {
		return nil, 0, err
	}
	rec, err := order.ByDomain(ctx, d.db, name, ext)
	if err != nil {
		return nil, 0, err
	}
	if rec.RegistrarOrderID == nil {
		return nil, 0, &ConflictError{Msg: "order was never accepted by the registrar"}
	}
	id, err := strconv.ParseInt(*rec.RegistrarOrderID, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("corrupt registrar order id %q: %w", *rec.RegistrarOrderID, err)
	}
	return rec, id, nil
}
