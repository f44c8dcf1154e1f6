// internal/remote/error.go
//
// Error taxonomy for external provider calls.
//
// Context
// -------
// Every registrar, DNS, and proxy call can fail in two distinct ways:
//
//   • Connection – the HTTP round trip itself broke (DNS, dial, timeout).
//     Usually transient; callers may retry transparently.
//   • Application – the provider answered and rejected the request.  The
//     provider's message is worth surfacing to the operator or end user.
//
// All three clients wrap their failures in *remote.Error so the
// orchestrator can log one taxonomy instead of sniffing provider-specific
// error strings.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package remote

import (
	"errors"
	"fmt"
)

// Kind classifies where a remote call failed.
type Kind int

const (
	// Connection covers transport-level failures: dial, TLS, timeout.
	Connection Kind = iota
	// Application covers provider-level rejections: 4xx/5xx bodies,
	// non-zero result codes, malformed payloads.
	Application
)

func (k Kind) String() string {
	if k == Connection {
		return "connection"
	}
	return "application"
}

// Error carries the failing provider, the failure class, and the original
// cause.  Provider is a short tag ("registrar", "zone", "route").
type Error struct {
	Provider string
	Kind     Kind
	Op       string // short operation name, e.g. "dns_record.create"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", e.Provider, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ConnErr wraps a transport failure.
func ConnErr(provider, op string, err error) *Error {
	return &Error{Provider: provider, Kind: Connection, Op: op, Err: err}
}

// AppErr wraps a provider rejection.  msg becomes the cause when no
// underlying error exists.
func AppErr(provider, op, msg string) *Error {
	return &Error{Provider: provider, Kind: Application, Op: op, Err: errors.New(msg)}
}

// IsConnection reports whether err (anywhere in its chain) is a
// connection-layer remote failure.
func IsConnection(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == Connection
}

// IsApplication reports whether err is a provider-level rejection.
func IsApplication(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == Application
}
