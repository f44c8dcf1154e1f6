// internal/registrar/domains.go
//
// Domain search, registration, transfer, and nameserver management.
//
// Context
// -------
// Two behaviors here carry registry-level sharp edges:
//
//   • Glue records.  A nameserver that lives *inside* the domain being
//     registered ("own") must be submitted with a resolved IP so the
//     registry can publish a glue record.  A nameserver outside the
//     domain ("external") must be submitted by name only; attaching an IP
//     there is rejected at the registry.
//
//   • Transfer locks.  Nameserver changes on a locked domain require
//     unlock → update → re-lock, and the re-lock happens in ALL cases,
//     update error or not: lock state must never regress because an
//     unrelated change failed.  The original update error is still
//     surfaced to the caller after the re-lock completes.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// extensionPriority is the fixed ordering for availability results:
// extensions in this list sort first, in list order; everything else
// follows, sorted by ascending price.
var extensionPriority = []string{"com", "net", "org", "io", "nl", "eu", "dev", "app"}

func priorityRank(ext string) int {
	for i, e := range extensionPriority {
		if e == ext {
			return i
		}
	}
	return len(extensionPriority)
}

// CheckAvailability batches several name + extension pairs in one call
// and returns the results in presentation order (see extensionPriority).
func (cl *Client) CheckAvailability(ctx context.Context, domains []DomainQuery, withPrice bool) ([]CheckResult, error) {
	var out []CheckResult
	err := cl.call(ctx, "domains.check", "POST", "/domains/check",
		checkRequest{Domains: domains, WithPrice: withPrice}, &out)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := priorityRank(out[i].Extension), priorityRank(out[j].Extension)
		if ri != rj {
			return ri < rj
		}
		if ri < len(extensionPriority) {
			// Both inside the priority list and tied: keep query order.
			return false
		}
		return out[i].Price < out[j].Price
	})
	return out, nil
}

// classifyNameservers splits nameservers into submission form.  "Own"
// nameservers (the domain itself or any host beneath it) get a resolved
// IP attached; external ones are sent by name only.
func (cl *Client) classifyNameservers(ctx context.Context, domain string, nameservers []string) ([]Nameserver, error) {
	domain = strings.ToLower(domain)
	out := make([]Nameserver, 0, len(nameservers))
	for _, ns := range nameservers {
		name := strings.ToLower(strings.TrimSuffix(ns, "."))
		entry := Nameserver{Name: name}
		if name == domain || strings.HasSuffix(name, "."+domain) {
			ip, err := cl.lookupIP(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("resolve glue for %s: %w", name, err)
			}
			entry.IP = ip
		}
		out = append(out, entry)
	}
	return out, nil
}

// RegisterDomain submits a new registration and returns the registrar's
// domain object.
func (cl *Client) RegisterDomain(ctx context.Context, name, extension string, years int, handles Handles, nameservers []string) (*Domain, error) {
	ns, err := cl.classifyNameservers(ctx, name+"."+extension, nameservers)
	if err != nil {
		return nil, err
	}
	req := registerRequest{
		Name:             name,
		Extension:        extension,
		Years:            years,
		RegistrantHandle: handles.Registrant,
		AdminHandle:      handles.Admin,
		TechHandle:       handles.Tech,
		BillingHandle:    handles.Billing,
		Nameservers:      ns,
	}
	var out Domain
	if err := cl.call(ctx, "domains.register", "POST", "/domains", req, &out); err != nil {
		return nil, err
	}
	cl.log.Infow("domain registration submitted",
		"domain", out.Name+"."+out.Extension, "status", out.Status)
	return &out, nil
}

// TransferDomain submits an inbound transfer with its auth code.
func (cl *Client) TransferDomain(ctx context.Context, name, extension, authCode string, handles Handles, nameservers []string) (*Domain, error) {
	ns, err := cl.classifyNameservers(ctx, name+"."+extension, nameservers)
	if err != nil {
		return nil, err
	}
	req := transferRequest{
		registerRequest: registerRequest{
			Name:             name,
			Extension:        extension,
			Years:            1,
			RegistrantHandle: handles.Registrant,
			AdminHandle:      handles.Admin,
			TechHandle:       handles.Tech,
			BillingHandle:    handles.Billing,
			Nameservers:      ns,
		},
		AuthCode: authCode,
	}
	var out Domain
	if err := cl.call(ctx, "domains.transfer", "POST", "/domains/transfer", req, &out); err != nil {
		return nil, err
	}
	cl.log.Infow("domain transfer submitted",
		"domain", out.Name+"."+out.Extension, "status", out.Status)
	return &out, nil
}

// Handles groups the four contact roles on an order.  Most orders reuse
// one handle for all four.
type Handles struct {
	Registrant string
	Admin      string
	Tech       string
	Billing    string
}

// AllFrom fills every role with the same handle.
func AllFrom(handle string) Handles {
	return Handles{Registrant: handle, Admin: handle, Tech: handle, Billing: handle}
}

// GetDomain fetches current registrar state, including lock status and
// the transfer auth code.
func (cl *Client) GetDomain(ctx context.Context, id int64) (*Domain, error) {
	var out Domain
	err := cl.call(ctx, "domains.get", "GET", "/domains/"+strconv.FormatInt(id, 10), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RenewDomain extends the registration.
func (cl *Client) RenewDomain(ctx context.Context, id int64, years int) error {
	return cl.call(ctx, "domains.renew", "POST",
		"/domains/"+strconv.FormatInt(id, 10)+"/renew", renewRequest{Years: years}, nil)
}

// GetAuthCode returns the transfer-out auth code for a domain.
func (cl *Client) GetAuthCode(ctx context.Context, id int64) (string, error) {
	d, err := cl.GetDomain(ctx, id)
	if err != nil {
		return "", err
	}
	return d.AuthCode, nil
}

// setLock toggles the transfer lock.
func (cl *Client) setLock(ctx context.Context, id int64, locked bool) error {
	req := updateDomainRequest{IsLocked: &locked}
	return cl.call(ctx, "domains.lock", "PUT", "/domains/"+strconv.FormatInt(id, 10), req, nil)
}

// UpdateNameservers applies a nameserver change, driving the lock dance
// when needed.  The re-lock runs whether or not the update succeeded; a
// re-lock failure is joined onto whatever the update produced.
func (cl *Client) UpdateNameservers(ctx context.Context, id int64, nameservers []string) error {
	d, err := cl.GetDomain(ctx, id)
	if err != nil {
		return err
	}

	ns, err := cl.classifyNameservers(ctx, d.Name+"."+d.Extension, nameservers)
	if err != nil {
		return err
	}

	if d.IsLocked {
		if err := cl.setLock(ctx, id, false); err != nil {
			return fmt.Errorf("unlock before nameserver update: %w", err)
		}
	}

	updateErr := cl.call(ctx, "domains.nameservers", "PUT",
		"/domains/"+strconv.FormatInt(id, 10), updateDomainRequest{Nameservers: ns}, nil)

	if d.IsLocked {
		if lockErr := cl.setLock(ctx, id, true); lockErr != nil {
			updateErr = errors.Join(updateErr,
				fmt.Errorf("re-lock after nameserver update: %w", lockErr))
		}
	}

	if updateErr != nil {
		return updateErr
	}
	cl.log.Infow("nameservers updated", "domain", d.Name+"."+d.Extension, "count", len(ns))
	return nil
}
