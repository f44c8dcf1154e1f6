package admin

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Insert creates the admin row inside the caller's transaction.  Used only
// during tenant creation, which is why there is no standalone-DB variant.
func Insert(ctx context.Context, tx *sqlx.Tx, rec *Record) (uint64, error) {
	const q = `
        INSERT INTO admin
               (tenant_id, customer_id, email, password_hash, is_root)
        VALUES (:tenant_id, :customer_id, :email, :password_hash, :is_root)`
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
