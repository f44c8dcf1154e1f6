// internal/provision/orchestrator.go
//
// Tenant provisioning pipeline.
//
// Context
// -------
// ProvisionTenant is the one write path that creates a tenant.  It runs
// in two phases with very different failure semantics:
//
//   1. Local phase: validation plus one DB transaction creating the
//      customer, tenant, root admin, and default policy rows.  Any error
//      here rolls back everything; nothing external has been touched.
//   2. External phase: DNS/CDN zone step, reverse-proxy route step, and
//      the welcome notification.  Each is best-effort: its outcome is
//      written into the tenant's progress markers, and a failure never
//      unwinds the local rows.  A later call resumes exactly the missing
//      steps by reading those markers.
//
// No DB transaction is ever open across an external HTTP call.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/musedock/provisioner/internal/admin"
	"github.com/musedock/provisioner/internal/config"
	"github.com/musedock/provisioner/internal/customer"
	"github.com/musedock/provisioner/internal/metrics"
	"github.com/musedock/provisioner/internal/notify"
	"github.com/musedock/provisioner/internal/policy"
	"github.com/musedock/provisioner/internal/route"
	"github.com/musedock/provisioner/internal/tenant"
	"github.com/musedock/provisioner/internal/zone"
)

// ZoneService is the slice of zone.Manager the pipeline needs.
type ZoneService interface {
	CheckAvailability(ctx context.Context, subdomain string) (zone.Availability, error)
	CreateRecord(ctx context.Context, subdomain string, proxied bool) (string, error)
	UpdateProxyStatus(ctx context.Context, recordID string, proxied bool) error
	RemoveRecord(ctx context.Context, recordID string) error
	AddZone(ctx context.Context, domain string) (*zone.ZoneInfo, error)
	VerifyNameservers(ctx context.Context, zoneID string) (bool, error)
	FQDN(subdomain string) string
}

// RouteService is the slice of route.Manager the pipeline needs.
type RouteService interface {
	Upsert(ctx context.Context, spec route.Spec) (string, error)
	Remove(ctx context.Context, routeID string) error
}

// ErrAccountCreation is the only message a failed local transaction
// surfaces to the caller.  The underlying cause (SQL error text, driver
// codes) goes to the log and must never reach a response body.
var ErrAccountCreation = errors.New("could not create account")

// Orchestrator drives the full pipeline.  All collaborators are injected
// so tests can substitute fakes for the provider clients.
type Orchestrator struct {
	db     *sqlx.DB
	zones  ZoneService
	routes RouteService
	mail   notify.Notifier
	cfg    config.Provision
	log    *zap.SugaredLogger
}

// New wires an Orchestrator.
func New(db *sqlx.DB, zones ZoneService, routes RouteService, mail notify.Notifier, cfg config.Provision, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{db: db, zones: zones, routes: routes, mail: mail, cfg: cfg, log: log}
}

// ProvisionTenant runs the pipeline for one signup.  The returned Result
// is complete even when err is non-nil; err is non-nil only for local
// failures (validation, conflicts, DB).  External-step failures are
// reported inside the Result with Success still true.
func (o *Orchestrator) ProvisionTenant(ctx context.Context, req Request) (Result, error) {
	metrics.ProvisionAttemptsTotal.Inc()

	res := Result{AttemptID: uuid.NewString()}
	log := o.log.With("attempt_id", res.AttemptID, "email", req.Email)

	if err := validateShape(&req); err != nil {
		res.stepFail(StepValidate, err)
		res.Error = err.Error()
		return res, err
	}

	req.Subdomain = strings.ToLower(strings.TrimSpace(req.Subdomain))
	req.CustomDomain = strings.ToLower(strings.TrimSpace(req.CustomDomain))

	domain := req.CustomDomain
	if req.IsSubdomain() {
		domain = o.zones.FQDN(req.Subdomain)
	}
	res.Domain = domain

	// Idempotency: a repeated signup with the same email and domain
	// resumes the incomplete external steps instead of failing.
	existing, err := o.findExisting(ctx, req.Email, domain)
	if err != nil {
		res.stepFail(StepValidate, err)
		res.Error = err.Error()
		return res, err
	}
	if existing != nil {
		log.Infow("resuming existing tenant", "tenant_id", existing.ID, "domain", existing.Domain)
		metrics.ProvisionResumesTotal.Inc()
		res.Resumed = true
		res.TenantID, res.Slug = existing.ID, existing.Slug
		res.AdminURL = adminURL(existing.Domain)
		res.stepSkip(StepValidate)
		res.stepSkip(StepLocal)
		o.runExternalSteps(ctx, log, existing, &res, nil)
		res.Success = true
		return res, nil
	}

	if err := o.checkAvailability(ctx, &req, domain); err != nil {
		res.stepFail(StepValidate, err)
		res.Error = err.Error()
		return res, err
	}
	res.stepOK(StepValidate)

	rec, cust, err := o.createLocal(ctx, &req, domain)
	if err != nil {
		log.Errorw("local transaction failed", "err", err)
		res.stepFail(StepLocal, ErrAccountCreation)
		res.Error = ErrAccountCreation.Error()
		return res, ErrAccountCreation
	}
	res.stepOK(StepLocal)
	res.TenantID, res.Slug = rec.ID, rec.Slug
	res.AdminURL = adminURL(rec.Domain)
	log = log.With("tenant_id", rec.ID, "domain", rec.Domain)
	log.Infow("tenant created", "slug", rec.Slug, "plan", rec.Plan)

	o.runExternalSteps(ctx, log, rec, &res, cust)
	res.Success = true
	return res, nil
}

// findExisting detects the resume case.  A matching email whose tenant is
// the requested domain resumes; an email or domain attached to anything
// else is a conflict.
func (o *Orchestrator) findExisting(ctx context.Context, email, domain string) (*tenant.Record, error) {
	cust, err := customer.ByEmail(ctx, o.db, email)
	if err != nil && !errors.Is(err, customer.ErrNotFound) {
		return nil, fmt.Errorf("customer lookup: %w", err)
	}

	rec, terr := tenant.ByDomain(ctx, o.db, domain)
	if terr != nil && !errors.Is(terr, tenant.ErrNotFound) {
		return nil, fmt.Errorf("tenant lookup: %w", terr)
	}

	switch {
	case cust != nil && rec != nil && rec.CustomerID == cust.ID:
		return rec, nil
	case rec != nil:
		return nil, &ConflictError{Msg: "domain is already taken"}
	case cust != nil:
		return nil, &ConflictError{Msg: "email is already registered"}
	default:
		return nil, nil
	}
}

// checkAvailability runs the flow-specific domain checks.
func (o *Orchestrator) checkAvailability(ctx context.Context, req *Request, domain string) error {
	if req.IsSubdomain() {
		avail, err := o.zones.CheckAvailability(ctx, req.Subdomain)
		if err != nil {
			return fmt.Errorf("availability check: %w", err)
		}
		if !avail.Available {
			return &ConflictError{Msg: avail.Reason}
		}
		return nil
	}

	taken, err := tenant.DomainExists(ctx, o.db, domain)
	if err != nil {
		return fmt.Errorf("availability check: %w", err)
	}
	if taken {
		return &ConflictError{Msg: "domain is already taken"}
	}
	return nil
}

// slugBase derives the slug from the domain the customer picked: the
// subdomain label, or the leftmost label of a custom domain.  The slug
// feeds the document-root path, so it must mirror the site's identity,
// not the owner's display name.  The name is only a fallback for labels
// with no usable characters.
func slugBase(req *Request) string {
	label := req.Subdomain
	if !req.IsSubdomain() {
		label = req.CustomDomain
		if i := strings.Index(label, "."); i > 0 {
			label = label[:i]
		}
	}
	slug := tenant.MakeSlug(label)
	if slug == "site" && label != "site" {
		if fromName := tenant.MakeSlug(req.Name); fromName != "site" {
			return fromName
		}
	}
	return slug
}

// createLocal is the single transaction of the pipeline: customer, tenant,
// root admin, and default policy rows, all or nothing.
func (o *Orchestrator) createLocal(ctx context.Context, req *Request, domain string) (*tenant.Record, *customer.Record, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	slug, err := tenant.UniqueSlug(ctx, o.db, slugBase(req))
	if err != nil {
		return nil, nil, fmt.Errorf("slug: %w", err)
	}

	tx, err := o.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	cust := &customer.Record{
		Name:          req.Name,
		Email:         req.Email,
		PasswordHash:  string(hash),
		Status:        customer.StatusPendingVerification,
		SignupUA:      req.SignupUA,
		SignupCountry: req.SignupCountry,
	}
	if _, err := customer.Insert(ctx, tx, cust); err != nil {
		return nil, nil, fmt.Errorf("insert customer: %w", err)
	}

	rec := &tenant.Record{
		CustomerID:  cust.ID,
		Domain:      domain,
		Slug:        slug,
		Plan:        req.Plan,
		IsSubdomain: req.IsSubdomain(),
		Status:      tenant.StatusPending,
	}
	if rec.IsSubdomain {
		rec.ParentDomain = o.cfg.BaseDomain
	}
	if _, err := tenant.Insert(ctx, tx, rec); err != nil {
		return nil, nil, fmt.Errorf("insert tenant: %w", err)
	}

	adm := &admin.Record{
		TenantID:     rec.ID,
		CustomerID:   cust.ID,
		Email:        req.Email,
		PasswordHash: string(hash),
		IsRoot:       true,
	}
	adminID, err := admin.Insert(ctx, tx, adm)
	if err != nil {
		return nil, nil, fmt.Errorf("insert admin: %w", err)
	}

	if err := policy.ApplyDefaults(ctx, tx, rec.ID, adminID); err != nil {
		return nil, nil, fmt.Errorf("default policy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return rec, cust, nil
}

// runExternalSteps executes (or resumes) the best-effort half of the
// pipeline.  cust is non-nil only on a fresh signup; the welcome mail is
// sent once, never on resume.
func (o *Orchestrator) runExternalSteps(ctx context.Context, log *zap.SugaredLogger, rec *tenant.Record, res *Result, cust *customer.Record) {
	o.runZoneStep(ctx, log, rec, res)
	o.runRouteStep(ctx, log, rec, res)
	o.settleStatus(ctx, log, rec, res)

	if cust == nil {
		res.stepSkip(StepNotify)
		return
	}
	w := notify.Welcome{To: cust.Email, Name: cust.Name, Domain: rec.Domain, AdminURL: res.AdminURL}
	if err := o.mail.SendWelcome(ctx, w); err != nil {
		metrics.NotifyFailuresTotal.Inc()
		log.Warnw("welcome notification failed", "err", err)
		res.stepFail(StepNotify, err)
		return
	}
	res.stepOK(StepNotify)
}

func (o *Orchestrator) runZoneStep(ctx context.Context, log *zap.SugaredLogger, rec *tenant.Record, res *Result) {
	if rec.ZoneConfigured() {
		res.ZoneConfigured = true
		res.stepSkip(StepZone)
		return
	}

	var (
		id      string
		proxied bool
		err     error
	)
	if rec.IsSubdomain {
		sub := strings.TrimSuffix(rec.Domain, "."+rec.ParentDomain)
		proxied = o.cfg.ProxiedDefault
		id, err = o.zones.CreateRecord(ctx, sub, proxied)
	} else {
		var zi *zone.ZoneInfo
		zi, err = o.zones.AddZone(ctx, rec.Domain)
		if err == nil {
			id = zi.ID
			res.Nameservers = zi.NameServers
		}
	}
	if err != nil {
		metrics.ZoneStepFailuresTotal.Inc()
		log.Errorw("zone step failed", "err", err)
		if derr := tenant.SetZoneError(ctx, o.db, rec.ID, err.Error()); derr != nil {
			log.Errorw("persisting zone error failed", "err", derr)
		}
		res.stepFail(StepZone, err)
		return
	}

	if derr := tenant.SetZoneResult(ctx, o.db, rec.ID, id, proxied); derr != nil {
		log.Errorw("persisting zone result failed", "err", derr)
		res.stepFail(StepZone, derr)
		return
	}
	rec.ZoneRecordID, rec.ZoneProxied = &id, proxied
	if !rec.IsSubdomain {
		// The customer still has to repoint NS at their registrar.
		if derr := tenant.SetStatus(ctx, o.db, rec.ID, tenant.StatusWaitingNS); derr != nil {
			log.Errorw("persisting status failed", "err", derr)
		} else {
			rec.Status = tenant.StatusWaitingNS
		}
	}
	res.ZoneConfigured = true
	res.stepOK(StepZone)
}

func (o *Orchestrator) runRouteStep(ctx context.Context, log *zap.SugaredLogger, rec *tenant.Record, res *Result) {
	if rec.RouteConfigured() {
		res.RouteConfigured = true
		res.stepSkip(StepRoute)
		return
	}

	spec := route.Spec{
		Domain:      rec.Domain,
		IncludeWww:  !rec.IsSubdomain,
		DocRoot:     fmt.Sprintf(o.cfg.DocRootPattern, rec.Slug),
		EntryScript: o.cfg.EntryScript,
		PHPUpstream: o.cfg.PHPUpstream,
	}
	id, err := o.routes.Upsert(ctx, spec)
	if err != nil {
		metrics.RouteStepFailuresTotal.Inc()
		log.Errorw("route step failed", "err", err)
		if derr := tenant.SetRouteError(ctx, o.db, rec.ID); derr != nil {
			log.Errorw("persisting route error failed", "err", derr)
		}
		res.stepFail(StepRoute, err)
		return
	}

	if derr := tenant.SetRouteResult(ctx, o.db, rec.ID, id); derr != nil {
		log.Errorw("persisting route result failed", "err", derr)
		res.stepFail(StepRoute, derr)
		return
	}
	active := tenant.RouteActive
	rec.RouteID, rec.RouteStatus = &id, &active
	res.RouteConfigured = true
	res.stepOK(StepRoute)
}

// settleStatus flips a fully-configured subdomain tenant to active.
// Custom domains stay in waiting_ns_change until Verify sees the
// delegation land.
func (o *Orchestrator) settleStatus(ctx context.Context, log *zap.SugaredLogger, rec *tenant.Record, res *Result) {
	if !rec.IsSubdomain || !rec.FullyProvisioned() || rec.Status == tenant.StatusActive {
		return
	}
	if err := tenant.SetStatus(ctx, o.db, rec.ID, tenant.StatusActive); err != nil {
		log.Errorw("activating tenant failed", "err", err)
		return
	}
	rec.Status = tenant.StatusActive
}

// Verify re-runs the missing external steps for an existing tenant, and,
// for custom domains, polls whether the nameserver change has landed.
func (o *Orchestrator) Verify(ctx context.Context, domain string) (Result, error) {
	rec, err := tenant.ByDomain(ctx, o.db, strings.ToLower(domain))
	if err != nil {
		return Result{}, err
	}

	metrics.ProvisionResumesTotal.Inc()
	res := Result{
		AttemptID: uuid.NewString(),
		Resumed:   true,
		TenantID:  rec.ID,
		Domain:    rec.Domain,
		Slug:      rec.Slug,
		AdminURL:  adminURL(rec.Domain),
	}
	log := o.log.With("attempt_id", res.AttemptID, "tenant_id", rec.ID, "domain", rec.Domain)

	res.stepSkip(StepValidate)
	res.stepSkip(StepLocal)
	o.runZoneStep(ctx, log, rec, &res)
	o.runRouteStep(ctx, log, rec, &res)

	if !rec.IsSubdomain && rec.Status == tenant.StatusWaitingNS && rec.ZoneConfigured() {
		live, verr := o.zones.VerifyNameservers(ctx, *rec.ZoneRecordID)
		switch {
		case verr != nil:
			log.Warnw("nameserver verification failed", "err", verr)
		case live && rec.FullyProvisioned():
			if serr := tenant.SetStatus(ctx, o.db, rec.ID, tenant.StatusActive); serr != nil {
				log.Errorw("activating tenant failed", "err", serr)
			} else {
				rec.Status = tenant.StatusActive
				log.Infow("nameserver delegation live, tenant activated")
			}
		}
	}
	o.settleStatus(ctx, log, rec, &res)

	res.stepSkip(StepNotify)
	res.Success = true
	return res, nil
}

// SetProxy flips CDN termination for a subdomain tenant's DNS record and
// mirrors the flag onto the tenant row.
func (o *Orchestrator) SetProxy(ctx context.Context, domain string, proxied bool) error {
	rec, err := tenant.ByDomain(ctx, o.db, strings.ToLower(domain))
	if err != nil {
		return err
	}
	if !rec.IsSubdomain {
		return &ValidationError{Msg: "proxy status applies to subdomain tenants only"}
	}
	if !rec.ZoneConfigured() {
		return &ValidationError{Msg: "tenant has no configured DNS record yet"}
	}
	if err := o.zones.UpdateProxyStatus(ctx, *rec.ZoneRecordID, proxied); err != nil {
		return fmt.Errorf("update proxy status: %w", err)
	}
	return tenant.SetZoneProxied(ctx, o.db, rec.ID, proxied)
}

// Deprovision tears down a tenant's external configuration and soft-
// removes the row.  Both removals are idempotent, so a failed teardown is
// safe to call again.  A custom domain's zone stays onboarded: the
// delegation belongs to the customer and unwinding it is theirs to do.
func (o *Orchestrator) Deprovision(ctx context.Context, domain string) error {
	rec, err := tenant.ByDomain(ctx, o.db, strings.ToLower(domain))
	if err != nil {
		return err
	}
	log := o.log.With("tenant_id", rec.ID, "domain", rec.Domain)

	if rec.RouteID != nil {
		if err := o.routes.Remove(ctx, *rec.RouteID); err != nil {
			return fmt.Errorf("remove route: %w", err)
		}
		log.Infow("route removed", "route_id", *rec.RouteID)
	}
	if rec.IsSubdomain && rec.ZoneRecordID != nil {
		if err := o.zones.RemoveRecord(ctx, *rec.ZoneRecordID); err != nil {
			return fmt.Errorf("remove dns record: %w", err)
		}
		log.Infow("dns record removed", "record_id", *rec.ZoneRecordID)
	}

	if err := tenant.SoftDelete(ctx, o.db, rec.ID); err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}
	log.Infow("tenant deprovisioned")
	return nil
}

func adminURL(domain string) string { return "https://" + domain + "/admin" }
