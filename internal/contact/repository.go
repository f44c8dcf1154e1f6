package contact

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no contact matches the lookup.
var ErrNotFound = errors.New("contact not found")

// ByEmail fetches a contact row by exact email match.  This is the lookup
// that makes registrar handle reuse work.
func ByEmail(ctx context.Context, db *sqlx.DB, email string) (*Record, error) {
	const q = `
        SELECT id, handle, name, company, email, phone, street, zip, city,
               country, vat_number, reg_number, created_at, updated_at
        FROM   contact
        WHERE  email = ?
        LIMIT  1;`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Insert stores a contact whose handle the registrar just issued.
func Insert(ctx context.Context, db *sqlx.DB, rec *Record) (uint64, error) {
	const q = `
        INSERT INTO contact
               (handle, name, company, email, phone, street, zip, city,
                country, vat_number, reg_number)
        VALUES (:handle, :name, :company, :email, :phone, :street, :zip,
                :city, :country, :vat_number, :reg_number)`
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
