package customer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no customer matches the lookup.
var ErrNotFound = errors.New("customer not found")

// ByEmail fetches a single customer row by exact email.  The caller
// supplies a context so the lookup respects request deadlines.
func ByEmail(ctx context.Context, db *sqlx.DB, email string) (*Record, error) {
	const q = `
        SELECT id, name, email, password_hash, status,
               signup_ua, signup_country, suspended_at,
               created_at, updated_at
        FROM   customer
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

// EmailExists is the cheap pre-insert uniqueness probe used by
// provisioning validation.
func EmailExists(ctx context.Context, db *sqlx.DB, email string) (bool, error) {
	const q = `SELECT 1 FROM customer WHERE email = ? LIMIT 1`
	var dummy int
	err := db.GetContext(ctx, &dummy, q, email)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert creates the row inside the caller's transaction and returns the
// generated id.  Timestamps are set by the database.
func Insert(ctx context.Context, tx *sqlx.Tx, rec *Record) (uint64, error) {
	const q = `
        INSERT INTO customer
               (name, email, password_hash, status, signup_ua, signup_country)
        VALUES (:name, :email, :password_hash, :status, :signup_ua, :signup_country)`
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
