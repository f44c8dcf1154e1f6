// internal/tenant/repository.go
//
// sqlx query helpers for the `tenant` table.
//
// Context
// -------
// Insert runs inside the provisioning transaction.  The marker setters run
// *outside* any transaction: each is one single-row UPDATE fired after an
// external call succeeds or fails, so no DB lock is ever held across an
// HTTP round trip to a third party.  Every setter first re-reads the row
// and validates the implied state transition (see state.go).
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no tenant matches the lookup.
var ErrNotFound = errors.New("tenant not found")

const selectCols = `
        id, customer_id, domain, slug, plan, is_subdomain, parent_domain,
        status, zone_record_id, zone_proxied, zone_configured_at,
        zone_error_log, route_id, route_status,
        suspended_at, deleted_at, created_at, updated_at`

// ByDomain fetches a tenant row by its fully-qualified domain.  Soft-
// removed tenants are invisible here.
func ByDomain(ctx context.Context, db *sqlx.DB, domain string) (*Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   tenant
        WHERE  domain = ?
          AND  deleted_at IS NULL
        LIMIT  1;`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, domain); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ByID fetches a tenant row by primary key.
func ByID(ctx context.Context, db *sqlx.DB, id uint64) (*Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   tenant
        WHERE  id = ?
          AND  deleted_at IS NULL
        LIMIT  1;`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// DomainExists is the fast local half of the availability check.
func DomainExists(ctx context.Context, db *sqlx.DB, domain string) (bool, error) {
	const q = `SELECT 1 FROM tenant WHERE domain = ? AND deleted_at IS NULL LIMIT 1`
	return exists(ctx, db, q, domain)
}

// SlugExists reports whether a slug is already issued.
func SlugExists(ctx context.Context, db *sqlx.DB, slug string) (bool, error) {
	const q = `SELECT 1 FROM tenant WHERE slug = ? AND deleted_at IS NULL LIMIT 1`
	return exists(ctx, db, q, slug)
}

func exists(ctx context.Context, db *sqlx.DB, q string, arg any) (bool, error) {
	var dummy int
	err := db.GetContext(ctx, &dummy, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert creates the row inside the caller's transaction with all progress
// markers NULL.
func Insert(ctx context.Context, tx *sqlx.Tx, rec *Record) (uint64, error) {
	const q = `
        INSERT INTO tenant
               (customer_id, domain, slug, plan, is_subdomain, parent_domain, status)
        VALUES (:customer_id, :domain, :slug, :plan, :is_subdomain, :parent_domain, :status)`
	res, err := tx.NamedExecContext(ctx, q, rec)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	rec.ID = uint64(id)
	return rec.ID, nil
}

//
// Marker setters
//

// SetZoneResult records a successful DNS step: record id, proxy flag, and
// timestamp, clearing any prior error log.
func SetZoneResult(ctx context.Context, db *sqlx.DB, id uint64, recordID string, proxied bool) error {
	if err := checkTransition(ctx, db, id, StateZoneDone); err != nil {
		return err
	}
	const q = `
        UPDATE tenant
        SET    zone_record_id = ?, zone_proxied = ?, zone_configured_at = ?,
               zone_error_log = NULL
        WHERE  id = ?`
	_, err := db.ExecContext(ctx, q, recordID, proxied, time.Now().UTC(), id)
	return err
}

// SetZoneError persists the provider error text; the tenant becomes
// resumable rather than failed-for-good.
func SetZoneError(ctx context.Context, db *sqlx.DB, id uint64, msg string) error {
	if err := checkTransition(ctx, db, id, StateFailed); err != nil {
		return err
	}
	const q = `UPDATE tenant SET zone_error_log = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, q, msg, id)
	return err
}

// SetRouteResult records a successful proxy step.
func SetRouteResult(ctx context.Context, db *sqlx.DB, id uint64, routeID string) error {
	if err := checkTransition(ctx, db, id, StateRouteDone); err != nil {
		return err
	}
	const q = `UPDATE tenant SET route_id = ?, route_status = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, q, routeID, RouteActive, id)
	return err
}

// SetRouteError marks the proxy step failed.
func SetRouteError(ctx context.Context, db *sqlx.DB, id uint64) error {
	if err := checkTransition(ctx, db, id, StateFailed); err != nil {
		return err
	}
	const q = `UPDATE tenant SET route_status = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, q, RouteError, id)
	return err
}

// SetStatus updates the lifecycle status column, e.g. waiting_ns_change →
// active once VerifyNameservers sees the delegation land.
func SetStatus(ctx context.Context, db *sqlx.DB, id uint64, status string) error {
	const q = `UPDATE tenant SET status = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, q, status, id)
	return err
}

// SetZoneProxied records a CDN-termination flip.  Not a progress change,
// so no transition check.
func SetZoneProxied(ctx context.Context, db *sqlx.DB, id uint64, proxied bool) error {
	const q = `UPDATE tenant SET zone_proxied = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, q, proxied, id)
	return err
}

// SoftDelete hides the tenant from every lookup while keeping the row for
// audit.  The domain and slug become reusable only after a manual purge.
func SoftDelete(ctx context.Context, db *sqlx.DB, id uint64) error {
	const q = `UPDATE tenant SET deleted_at = ?, status = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, q, time.Now().UTC(), StatusSuspended, id)
	return err
}

// checkTransition re-reads the row and validates the implied edge.  A
// missing row surfaces as ErrNotFound.
func checkTransition(ctx context.Context, db *sqlx.DB, id uint64, to State) error {
	rec, err := ByID(ctx, db, id)
	if err != nil {
		return err
	}
	return Transition(StateOf(rec), to)
}
