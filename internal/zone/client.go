// internal/zone/client.go
//
// Typed client for the DNS/CDN provider's REST API.
//
// Context
// -------
// The provider wraps every response in the same envelope: a `success`
// flag, an `errors` array, and a `result` payload.  A transport failure
// and a provider rejection are different animals for the caller (retry
// quietly versus show the message), so every helper funnels failures
// through the remote.Error taxonomy.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package zone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/musedock/provisioner/internal/remote"
)

const provider = "zone"

//
// Wire types
//

type envelope struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DNSRecord is one record in a zone.
type DNSRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl,omitempty"`
	Proxied bool   `json:"proxied"`
}

// ZoneInfo is the provider's view of one onboarded zone.
type ZoneInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"` // "pending" until NS delegation lands, then "active"
	NameServers []string `json:"name_servers"`
}

type createZoneRequest struct {
	Name    string      `json:"name"`
	Account zoneAccount `json:"account"`
	Type    string      `json:"type"`
}

type zoneAccount struct {
	ID string `json:"id"`
}

type settingValue struct {
	Value string `json:"value"`
}

//
// Client
//

// Client is the low-level typed API surface.  Manager composes it with
// local state into the provisioning-facing operations.
type Client struct {
	c         *resty.Client
	accountID string
}

// NewClient configures a bearer-token resty client for the provider.
func NewClient(apiBase, token, accountID string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(apiBase).
		SetTimeout(timeout).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{c: c, accountID: accountID}
}

// call performs one round trip and decodes the envelope.  out may be nil
// when the caller only cares about success.
func (cl *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	req := cl.c.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return remote.ConnErr(provider, op, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return remote.AppErr(provider, op,
			fmt.Sprintf("malformed response (HTTP %d): %v", resp.StatusCode(), err))
	}
	if !env.Success {
		return remote.AppErr(provider, op, joinAPIErrors(env.Errors, resp.StatusCode()))
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return remote.AppErr(provider, op, fmt.Sprintf("malformed result: %v", err))
		}
	}
	return nil
}

func joinAPIErrors(errs []apiError, status int) string {
	if len(errs) == 0 {
		return fmt.Sprintf("provider rejected the request (HTTP %d)", status)
	}
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%d: %s", e.Code, e.Message)
	}
	return msg
}

//
// DNS records
//

// ListRecords returns the records in zoneID filtered by type and name;
// pass "" to skip a filter.
func (cl *Client) ListRecords(ctx context.Context, zoneID, recType, name string) ([]DNSRecord, error) {
	q := url.Values{}
	if recType != "" {
		q.Set("type", recType)
	}
	if name != "" {
		q.Set("name", name)
	}
	path := "/zones/" + zoneID + "/dns_records"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var out []DNSRecord
	if err := cl.call(ctx, "dns_record.list", "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRecord inserts a record and returns the provider-assigned id.
func (cl *Client) CreateRecord(ctx context.Context, zoneID string, rec DNSRecord) (string, error) {
	var out DNSRecord
	err := cl.call(ctx, "dns_record.create", "POST", "/zones/"+zoneID+"/dns_records", rec, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// GetRecord fetches one record by id.
func (cl *Client) GetRecord(ctx context.Context, zoneID, recordID string) (*DNSRecord, error) {
	var out DNSRecord
	err := cl.call(ctx, "dns_record.get", "GET",
		"/zones/"+zoneID+"/dns_records/"+recordID, nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRecord replaces a record's mutable fields.
func (cl *Client) UpdateRecord(ctx context.Context, zoneID string, rec DNSRecord) error {
	return cl.call(ctx, "dns_record.update", "PATCH",
		"/zones/"+zoneID+"/dns_records/"+rec.ID, rec, nil)
}

// DeleteRecord removes one record.
func (cl *Client) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	return cl.call(ctx, "dns_record.delete", "DELETE",
		"/zones/"+zoneID+"/dns_records/"+recordID, nil, nil)
}

//
// Zones
//

// CreateZone onboards a domain for full (nameserver-delegation)
// management.
func (cl *Client) CreateZone(ctx context.Context, domain string) (*ZoneInfo, error) {
	body := createZoneRequest{
		Name:    domain,
		Account: zoneAccount{ID: cl.accountID},
		Type:    "full",
	}
	var out ZoneInfo
	if err := cl.call(ctx, "zone.create", "POST", "/zones", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetZone fetches zone status and nameservers.
func (cl *Client) GetZone(ctx context.Context, zoneID string) (*ZoneInfo, error) {
	var out ZoneInfo
	if err := cl.call(ctx, "zone.get", "GET", "/zones/"+zoneID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTLSMode sets the zone-wide TLS termination mode.
func (cl *Client) SetTLSMode(ctx context.Context, zoneID, mode string) error {
	return cl.call(ctx, "zone.tls_mode", "PATCH",
		"/zones/"+zoneID+"/settings/ssl", settingValue{Value: mode}, nil)
}
