// internal/registrar/contacts.go
//
// Registrar contact management with handle reuse.
//
// Context
// -------
// Contact handles are reused aggressively: one local contact row (keyed
// by exact email) maps to one registrar handle, shared by every domain
// that customer registers.  GetOrCreate checks the local table first,
// then the registrar's own search, and only creates when both miss.
// Without this, every registration mints a fresh registrar contact and
// the reseller account silts up.
package registrar

import (
	"context"
	"errors"
	"net/url"

	"github.com/jmoiron/sqlx"

	"github.com/musedock/provisioner/internal/contact"
)

// CreateContact validates and submits a new registrar contact, returning
// the issued handle.  The phone number is decomposed locally first so a
// malformed number fails before the API call.
func (cl *Client) CreateContact(ctx context.Context, in ContactInput) (string, error) {
	phone, err := ParsePhone(in.Phone, in.Country)
	if err != nil {
		return "", err
	}

	req := createContactRequest{
		Name:        in.Name,
		Company:     in.Company,
		Email:       in.Email,
		PhoneCC:     phone.CountryCode,
		PhoneArea:   phone.AreaCode,
		PhoneNumber: phone.Subscriber,
		Street:      in.Street,
		Zip:         in.Zip,
		City:        in.City,
		Country:     in.Country,
		VATNumber:   in.VATNumber,
		RegNumber:   in.RegNumber,
	}
	var out RegistrarContact
	if err := cl.call(ctx, "customers.create", "POST", "/customers", req, &out); err != nil {
		return "", err
	}
	cl.log.Infow("registrar contact created", "handle", out.Handle, "email", in.Email)
	return out.Handle, nil
}

// searchContacts queries the registrar's stored contacts by exact email.
func (cl *Client) searchContacts(ctx context.Context, email string) ([]RegistrarContact, error) {
	var out []RegistrarContact
	err := cl.call(ctx, "customers.search", "GET",
		"/customers?email="+url.QueryEscape(email), nil, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrCreateContact returns the handle for an email, creating the
// registrar contact at most once.  The local contact table is
// authoritative; the registrar search covers handles created before the
// local table existed.
func (cl *Client) GetOrCreateContact(ctx context.Context, db *sqlx.DB, in ContactInput) (string, error) {
	local, err := contact.ByEmail(ctx, db, in.Email)
	if err == nil {
		return local.Handle, nil
	}
	if !errors.Is(err, contact.ErrNotFound) {
		return "", err
	}

	handle := ""
	remote, err := cl.searchContacts(ctx, in.Email)
	if err != nil {
		return "", err
	}
	if len(remote) > 0 {
		handle = remote[0].Handle
	} else {
		handle, err = cl.CreateContact(ctx, in)
		if err != nil {
			return "", err
		}
	}

	rec := &contact.Record{
		Handle:    handle,
		Name:      in.Name,
		Company:   in.Company,
		Email:     in.Email,
		Phone:     in.Phone,
		Street:    in.Street,
		Zip:       in.Zip,
		City:      in.City,
		Country:   in.Country,
		VATNumber: in.VATNumber,
		RegNumber: in.RegNumber,
	}
	if _, err := contact.Insert(ctx, db, rec); err != nil {
		return "", err
	}
	return handle, nil
}
