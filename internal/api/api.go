// internal/api/api.go
//
// HTTP surface of the provisioner.
//
// Context
// -------
// Thin chi handlers over the provisioning services: decode, delegate,
// encode.  All domain decisions live in internal/provision; this package
// only maps Go errors onto HTTP status codes.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/musedock/provisioner/internal/middleware"
	"github.com/musedock/provisioner/internal/order"
	"github.com/musedock/provisioner/internal/provision"
	"github.com/musedock/provisioner/internal/remote"
	"github.com/musedock/provisioner/internal/requestinfo"
	"github.com/musedock/provisioner/internal/tenant"
)

// API bundles the handler dependencies.
type API struct {
	db     *sqlx.DB
	orch   *provision.Orchestrator
	orders *provision.DomainOrders
	mail   *provision.MailForwarding
	prober provision.HealthProber
	log    *zap.SugaredLogger
}

// New wires the API.
func New(db *sqlx.DB, orch *provision.Orchestrator, orders *provision.DomainOrders, mail *provision.MailForwarding, prober provision.HealthProber, log *zap.SugaredLogger) *API {
	return &API{db: db, orch: orch, orders: orders, mail: mail, prober: prober, log: log}
}

// Router assembles the full route tree, including health and metrics.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Security)
	r.Use(middleware.RequestLog(a.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/provision", a.handleProvision)
		r.Route("/tenants/{domain}", func(r chi.Router) {
			r.Post("/verify", a.handleVerify)
			r.Get("/status", a.handleStatus)
			r.Put("/proxy", a.handleSetProxy)
			r.Get("/orders", a.handleTenantOrders)
			r.Delete("/", a.handleDeprovision)
		})

		r.Post("/domains/check", a.handleDomainCheck)
		r.Post("/domains/orders", a.handlePlaceOrder)
		r.Route("/domains/{domain}", func(r chi.Router) {
			r.Get("/order", a.handleRefreshOrder)
			r.Post("/renew", a.handleRenew)
			r.Post("/nameservers", a.handleNameservers)
			r.Get("/authcode", a.handleAuthCode)

			r.Route("/email", func(r chi.Router) {
				r.Get("/catchall", a.handleGetCatchAll)
				r.Put("/catchall", a.handleSetCatchAll)
				r.Post("/forwards", a.handleAddForward)
				r.Delete("/forwards/{rule}", a.handleRemoveForward)
			})
		})

		r.Get("/tlds", a.handleTLDs)
		r.Get("/reseller", a.handleReseller)
	})
	return r
}

//
// Provisioning
//

func (a *API) handleProvision(w http.ResponseWriter, r *http.Request) {
	var req provision.Request
	if !decode(w, r, &req) {
		return
	}

	origin := requestinfo.FromRequest(r)
	req.SignupUA = origin.UASummary
	req.SignupCountry = origin.Country

	res, err := a.orch.ProvisionTenant(r.Context(), req)
	if err != nil {
		a.writeError(w, err, res)
		return
	}
	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	res, err := a.orch.Verify(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := provision.TenantStatus(r.Context(), a.db, a.prober, chi.URLParam(r, "domain"))
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleSetProxy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Proxied bool `json:"proxied"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := a.orch.SetProxy(r.Context(), chi.URLParam(r, "domain"), req.Proxied); err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proxied": req.Proxied})
}

func (a *API) handleTenantOrders(w http.ResponseWriter, r *http.Request) {
	rec, err := tenant.ByDomain(r.Context(), a.db, strings.ToLower(chi.URLParam(r, "domain")))
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	orders, err := order.ByTenant(r.Context(), a.db, rec.ID)
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (a *API) handleDeprovision(w http.ResponseWriter, r *http.Request) {
	if err := a.orch.Deprovision(r.Context(), chi.URLParam(r, "domain")); err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deprovisioned"})
}

//
// Domain orders
//

func (a *API) handleDomainCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domains []string `json:"domains"`
	}
	if !decode(w, r, &req) {
		return
	}
	results, err := a.orders.CheckDomains(r.Context(), req.Domains)
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (a *API) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req provision.OrderRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := a.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		// A failed registrar submission still produced an order row the
		// caller can poll; surface both.
		if rec != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{"order": rec, "error": err.Error()})
			return
		}
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) handleRefreshOrder(w http.ResponseWriter, r *http.Request) {
	rec, err := a.orders.RefreshOrder(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleRenew(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Years int `json:"years"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := a.orders.Renew(r.Context(), chi.URLParam(r, "domain"), req.Years); err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renewed"})
}

func (a *API) handleNameservers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nameservers []string `json:"nameservers"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := a.orders.SetNameservers(r.Context(), chi.URLParam(r, "domain"), req.Nameservers); err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (a *API) handleAuthCode(w http.ResponseWriter, r *http.Request) {
	code, err := a.orders.AuthCode(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_code": code})
}

//
// Email forwarding
//

func (a *API) handleGetCatchAll(w http.ResponseWriter, r *http.Request) {
	rule, err := a.mail.CatchAll(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (a *API) handleSetCatchAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ForwardTo string `json:"forward_to"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := a.mail.EnableCatchAll(r.Context(), chi.URLParam(r, "domain"), req.ForwardTo); err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

func (a *API) handleAddForward(w http.ResponseWriter, r *http.Request) {
	var req provision.ForwardRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := a.mail.AddForward(r.Context(), chi.URLParam(r, "domain"), req)
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"rule_id": id})
}

func (a *API) handleRemoveForward(w http.ResponseWriter, r *http.Request) {
	err := a.mail.RemoveForward(r.Context(), chi.URLParam(r, "domain"), chi.URLParam(r, "rule"))
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

//
// Registrar account
//

func (a *API) handleTLDs(w http.ResponseWriter, r *http.Request) {
	tlds, err := a.orders.TLDs(r.Context())
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tlds": tlds})
}

func (a *API) handleReseller(w http.ResponseWriter, r *http.Request) {
	res, err := a.orders.Reseller(r.Context())
	if err != nil {
		a.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

//
// Encoding helpers
//

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto HTTP statuses.  res, when non-nil,
// is the partial pipeline result that accompanied the failure.
//
// Opaque internal errors (DB, driver, wrapping chains) never reach the
// body: the caller sees "internal error" and the detail goes to the log.
// ErrAccountCreation is already caller-safe and passes through verbatim.
func (a *API) writeError(w http.ResponseWriter, err error, res any) {
	status := http.StatusInternalServerError

	var ve *provision.ValidationError
	var ce *provision.ConflictError
	switch {
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &ce):
		status = http.StatusConflict
	case errors.Is(err, tenant.ErrNotFound), errors.Is(err, order.ErrNotFound):
		status = http.StatusNotFound
	case remote.IsConnection(err), remote.IsApplication(err):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError && !errors.Is(err, provision.ErrAccountCreation) {
		a.log.Errorw("request failed", "err", err)
		msg, res = "internal error", nil
	}

	body := map[string]any{"error": msg}
	if res != nil {
		body["result"] = res
	}
	writeJSON(w, status, body)
}
