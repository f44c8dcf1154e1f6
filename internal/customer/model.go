package customer

import "time"

// Statuses for the customer lifecycle.  A customer is created as
// pending_verification inside the provisioning transaction and flipped to
// active once the verification mail is confirmed (outside this subsystem).
const (
	StatusPendingVerification = "pending_verification"
	StatusActive              = "active"
	StatusSuspended           = "suspended"
)

// Record mirrors one row in the `customer` table.  Email is unique; the
// orchestrator checks it before insert so duplicate signups fail during
// validation, not on a constraint error.
//
// SignupUA and SignupCountry are best-effort audit fields filled from the
// originating HTTP request (see internal/requestinfo); both may be empty.
type Record struct {
	ID            uint64     `db:"id"`
	Name          string     `db:"name"`
	Email         string     `db:"email"`
	PasswordHash  string     `db:"password_hash"`
	Status        string     `db:"status"`
	SignupUA      string     `db:"signup_ua"`
	SignupCountry string     `db:"signup_country"`
	SuspendedAt   *time.Time `db:"suspended_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}
