package admin

import "time"

// Record mirrors one row in the `admin` table: a tenant-scoped login.
// Exactly one row per tenant carries IsRoot = true, bound at creation time
// to the tenant's owning customer with the same credentials.  Either side
// may change its email or password later without affecting the other.
type Record struct {
	ID           uint64    `db:"id"`
	TenantID     uint64    `db:"tenant_id"`
	CustomerID   uint64    `db:"customer_id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsRoot       bool      `db:"is_root"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
