// internal/provision/request.go
//
// Provisioning request validation.
//
// Context
// -------
// Validation is the fail-fast gate: everything here runs before any row
// is written or any provider is called, and a failure has zero side
// effects.  Cheap checks run first (struct shape), then local DB lookups,
// then the one provider-side availability probe.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package provision

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Request is the caller-facing provisioning input.  Exactly one of
// Subdomain and CustomDomain must be set.
type Request struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`

	Subdomain    string `json:"subdomain" validate:"omitempty,min=3,max=63"`
	CustomDomain string `json:"custom_domain" validate:"omitempty,fqdn"`

	Plan string `json:"plan" validate:"omitempty,oneof=free starter pro"`

	// SignupUA and SignupCountry are filled by the HTTP layer, never by
	// the caller.
	SignupUA      string `json:"-"`
	SignupCountry string `json:"-"`
}

// IsSubdomain reports which flow the request takes.
func (r *Request) IsSubdomain() bool { return r.Subdomain != "" }

var validate = validator.New()

// ValidationError carries a caller-correctable input problem.  It is
// surfaced verbatim.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError marks a resource that already exists (email, domain,
// reserved subdomain).  Also surfaced verbatim.
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

// validateShape checks struct-level rules plus the one-of-two domain
// fields constraint.
func validateShape(r *Request) error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return &ValidationError{Msg: fmt.Sprintf("field %q fails rule %q", f.Field(), f.Tag())}
		}
		return &ValidationError{Msg: err.Error()}
	}

	if (r.Subdomain == "") == (r.CustomDomain == "") {
		return &ValidationError{Msg: "exactly one of subdomain and custom_domain must be set"}
	}
	if r.Plan == "" {
		r.Plan = "free"
	}
	return nil
}
