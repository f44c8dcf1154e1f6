package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no order matches the lookup.
var ErrNotFound = errors.New("order not found")

const selectCols = `
        id, tenant_id, kind, domain, extension,
        registrant_handle, admin_handle, tech_handle, billing_handle,
        nameservers, status, auth_code, zone_id, registrar_order_id,
        created_at, updated_at`

// ByTenant returns all orders for a tenant, newest first.
func ByTenant(ctx context.Context, db *sqlx.DB, tenantID uint64) ([]Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   domain_registration_order
        WHERE  tenant_id = ?
        ORDER  BY id DESC`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, tenantID); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByDomain returns the most recent order for a full domain name.
func ByDomain(ctx context.Context, db *sqlx.DB, domain, extension string) (*Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   domain_registration_order
        WHERE  domain = ? AND extension = ?
        ORDER  BY id DESC
        LIMIT  1;`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, domain, extension); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Insert stores a freshly submitted order.
func Insert(ctx context.Context, db *sqlx.DB, rec *Record) (uint64, error) {
	const q = `
        INSERT INTO domain_registration_order
               (tenant_id, kind, domain, extension, registrant_handle,
                admin_handle, tech_handle, billing_handle, nameservers,
                status, auth_code, zone_id, registrar_order_id)
        VALUES (:tenant_id, :kind, :domain, :extension, :registrant_handle,
                :admin_handle, :tech_handle, :billing_handle, :nameservers,
                :status, :auth_code, :zone_id, :registrar_order_id)`
	res, err := sqlx.NamedExecContext(ctx, db, q, rec)
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

// UpdateStatus reflects a polled registrar status change.
func UpdateStatus(ctx context.Context, db *sqlx.DB, id uint64, status string) error {
	const q = `UPDATE domain_registration_order SET status = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, q, status, id)
	return err
}

// SetZone links the provider zone created for this order's domain.
func SetZone(ctx context.Context, db *sqlx.DB, id uint64, zoneID string) error {
	const q = `UPDATE domain_registration_order SET zone_id = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, q, zoneID, id)
	return err
}

// SetAuthCode stores a freshly retrieved transfer auth code.
func SetAuthCode(ctx context.Context, db *sqlx.DB, id uint64, code string) error {
	const q = `UPDATE domain_registration_order SET auth_code = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, q, code, id)
	return err
}

// SetNameservers records the delegation as last pushed to the registrar.
func SetNameservers(ctx context.Context, db *sqlx.DB, id uint64, joined string) error {
	const q = `UPDATE domain_registration_order SET nameservers = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, q, joined, id)
	return err
}
