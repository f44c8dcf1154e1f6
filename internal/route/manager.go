// internal/route/manager.go
//
// Idempotent route upsert/remove against the proxy control plane.
//
// Context
// -------
// The control plane stores routes in an array and evaluates them in
// order, and it will happily hold two routes with the same `@id`.  A
// stale duplicate sitting at a lower index silently shadows every later
// update, so duplicates are treated as an error condition to repair, not
// a warning: Upsert always rewrites the lowest-indexed match in place and
// deletes the rest.  There is never a delete-then-insert window with no
// working route.
//
// Deletions walk indices in descending order so earlier indices stay
// stable while later ones disappear.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/musedock/provisioner/internal/metrics"
	"github.com/musedock/provisioner/internal/remote"
)

const provider = "route"

// Manager drives the proxy admin API.  Safe for concurrent use; resty
// clients are goroutine-safe.
type Manager struct {
	c      *resty.Client
	server string
	log    *zap.SugaredLogger
}

// NewManager builds a Manager for one admin endpoint and server name.
func NewManager(adminAddr, serverName string, timeout time.Duration, log *zap.SugaredLogger) *Manager {
	c := resty.New().
		SetBaseURL(adminAddr).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Manager{c: c, server: serverName, log: log}
}

func (m *Manager) routesPath() string {
	return "/config/apps/http/servers/" + m.server + "/routes"
}

func (m *Manager) errorRoutesPath() string {
	return "/config/apps/http/servers/" + m.server + "/errors/routes"
}

// Upsert installs (or refreshes) the route document and its error branch
// for a domain.  It returns the deterministic route id on success.  A
// failed duplicate deletion is reported as failure even though the primary
// update landed, because survivors can resurrect stale configuration.
func (m *Manager) Upsert(ctx context.Context, spec Spec) (string, error) {
	doc := Build(spec)
	if err := m.upsertIn(ctx, m.routesPath(), doc); err != nil {
		return "", err
	}
	if err := m.upsertIn(ctx, m.errorRoutesPath(), BuildErrorBranch(spec)); err != nil {
		return "", err
	}
	m.log.Infow("proxy route upserted", "domain", spec.Domain, "route_id", doc.ID)
	return doc.ID, nil
}

// Remove deletes every route carrying routeID from both collections.  A
// cleanly-absent route is success; removal is idempotent.
func (m *Manager) Remove(ctx context.Context, routeID string) error {
	var errs []error
	for _, collection := range []string{m.routesPath(), m.errorRoutesPath()} {
		id := routeID
		if collection == m.errorRoutesPath() {
			id = routeID + "_err"
		}
		idxs, err := m.matchingIndices(ctx, collection, id)
		if err != nil {
			return err
		}
		errs = append(errs, m.deleteIndices(ctx, collection, idxs)...)
	}
	return errors.Join(errs...)
}

// upsertIn applies the update-lowest, delete-rest rule inside one
// collection.
func (m *Manager) upsertIn(ctx context.Context, collection string, doc Document) error {
	idxs, err := m.matchingIndices(ctx, collection, doc.ID)
	if err != nil {
		return err
	}

	if len(idxs) == 0 {
		resp, err := m.c.R().SetContext(ctx).SetBody(doc).Post(collection)
		if err != nil {
			return remote.ConnErr(provider, "routes.create", err)
		}
		if resp.IsError() {
			return remote.AppErr(provider, "routes.create", string(resp.Body()))
		}
		return nil
	}

	// Always refresh the first-evaluated copy in place.
	lowest := idxs[0]
	resp, err := m.c.R().SetContext(ctx).SetBody(doc).
		Put(collection + "/" + strconv.Itoa(lowest))
	if err != nil {
		return remote.ConnErr(provider, "routes.update", err)
	}
	if resp.IsError() {
		return remote.AppErr(provider, "routes.update", string(resp.Body()))
	}

	if len(idxs) > 1 {
		m.log.Warnw("duplicate proxy routes found", "route_id", doc.ID, "count", len(idxs))
	}
	if errs := m.deleteIndices(ctx, collection, idxs[1:]); len(errs) > 0 {
		return errors.Join(errs...)
	}
	metrics.RouteDuplicatesPruned.Add(float64(len(idxs) - 1))
	return nil
}

// matchingIndices lists the collection and returns the indices whose
// `@id` equals id, ascending.
func (m *Manager) matchingIndices(ctx context.Context, collection, id string) ([]int, error) {
	resp, err := m.c.R().SetContext(ctx).Get(collection)
	if err != nil {
		return nil, remote.ConnErr(provider, "routes.list", err)
	}
	if resp.StatusCode() == 404 {
		// Collection not configured yet; treat as empty.
		return nil, nil
	}
	if resp.IsError() {
		return nil, remote.AppErr(provider, "routes.list", string(resp.Body()))
	}

	var raw []json.RawMessage
	body := resp.Body()
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, remote.AppErr(provider, "routes.list",
			fmt.Sprintf("malformed routes array: %v", err))
	}

	var idxs []int
	for i, r := range raw {
		var probe struct {
			ID string `json:"@id"`
		}
		if err := json.Unmarshal(r, &probe); err != nil {
			continue // non-object entry; not ours
		}
		if probe.ID == id {
			idxs = append(idxs, i)
		}
	}
	sort.Ints(idxs)
	return idxs, nil
}

// deleteIndices removes the given indices in descending order, collecting
// per-index failures.
func (m *Manager) deleteIndices(ctx context.Context, collection string, idxs []int) []error {
	var errs []error
	for i := len(idxs) - 1; i >= 0; i-- {
		target := collection + "/" + strconv.Itoa(idxs[i])
		resp, err := m.c.R().SetContext(ctx).Delete(target)
		if err != nil {
			errs = append(errs, remote.ConnErr(provider, "routes.delete", err))
			continue
		}
		if resp.IsError() {
			errs = append(errs, remote.AppErr(provider, "routes.delete", string(resp.Body())))
		}
	}
	return errs
}
