// internal/registrar/types.go
//
// Typed request/response payloads for the registrar API.
//
// The registrar wraps every response in {code, message, data} and signals
// success with code == 0 regardless of HTTP status.  Shapes here are
// deliberately explicit so a payload mistake fails at compile time, not
// at the registry.
package registrar

import "encoding/json"

// envelope is the registrar's uniform response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// codeAuthExpired is the registrar's application-level "token no longer
// valid" code, returned with HTTP 200.
const codeAuthExpired = 1002

//
// Auth
//

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

//
// Availability
//

// DomainQuery is one name + extension pair for a batched check.
type DomainQuery struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

type checkRequest struct {
	Domains   []DomainQuery `json:"domains"`
	WithPrice bool          `json:"with_price"`
}

// CheckResult is the registrar's verdict for one queried domain.
type CheckResult struct {
	Name      string  `json:"name"`
	Extension string  `json:"extension"`
	Available bool    `json:"available"`
	Premium   bool    `json:"premium"`
	Price     float64 `json:"price"`    // registration price, when requested
	Currency  string  `json:"currency"` // ISO 4217
}

// FQDN returns the full domain name for display.
func (r CheckResult) FQDN() string { return r.Name + "." + r.Extension }

//
// Nameservers
//

// Nameserver is one delegation entry.  IP is attached only for "own"
// nameservers (hosts inside the domain being registered), where the
// registry needs a glue record; sending an IP for an external nameserver
// causes registry-level rejection.
type Nameserver struct {
	Name string `json:"name"`
	IP   string `json:"ip,omitempty"`
}

//
// Registration / transfer
//

type registerRequest struct {
	Name             string       `json:"name"`
	Extension        string       `json:"extension"`
	Years            int          `json:"years"`
	RegistrantHandle string       `json:"registrant_handle"`
	AdminHandle      string       `json:"admin_handle"`
	TechHandle       string       `json:"tech_handle"`
	BillingHandle    string       `json:"billing_handle"`
	Nameservers      []Nameserver `json:"nameservers"`
}

type transferRequest struct {
	registerRequest
	AuthCode string `json:"auth_code"`
}

// Domain is the registrar's view of one domain under management.
type Domain struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Extension   string       `json:"extension"`
	Status      string       `json:"status"` // ACT, REQ, PEN, FAI, DEL
	AuthCode    string       `json:"auth_code"`
	IsLocked    bool         `json:"is_locked"`
	Nameservers []Nameserver `json:"nameservers"`
}

// updateDomainRequest mutates a domain in place.  Pointer fields are
// omitted when nil so unrelated attributes stay untouched.
type updateDomainRequest struct {
	Nameservers []Nameserver `json:"nameservers,omitempty"`
	IsLocked    *bool        `json:"is_locked,omitempty"`
}

type renewRequest struct {
	Years int `json:"years"`
}

//
// Contacts
//

// ContactInput is the caller-facing contact shape; the phone number is
// parsed into its components before submission.
type ContactInput struct {
	Name      string
	Company   string
	Email     string
	Phone     string // as entered, e.g. "+31 6 12345678"
	Street    string
	Zip       string
	City      string
	Country   string // ISO 3166-1 alpha-2
	VATNumber string
	RegNumber string
}

type createContactRequest struct {
	Name        string `json:"name"`
	Company     string `json:"company,omitempty"`
	Email       string `json:"email"`
	PhoneCC     string `json:"phone_country_code"`
	PhoneArea   string `json:"phone_area_code"`
	PhoneNumber string `json:"phone_subscriber"`
	Street      string `json:"street"`
	Zip         string `json:"zip"`
	City        string `json:"city"`
	Country     string `json:"country"`
	VATNumber   string `json:"vat_number,omitempty"`
	RegNumber   string `json:"reg_number,omitempty"`
}

// RegistrarContact is a stored contact as the registrar reports it.
type RegistrarContact struct {
	Handle string `json:"handle"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

//
// TLDs and reseller
//

// TLDInfo is one extension's pricing row.
type TLDInfo struct {
	Extension     string  `json:"extension"`
	RegisterPrice float64 `json:"register_price"`
	RenewPrice    float64 `json:"renew_price"`
	TransferPrice float64 `json:"transfer_price"`
	Currency      string  `json:"currency"`
}

// Reseller is our own account's state at the registrar.
type Reseller struct {
	Name     string  `json:"name"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}
