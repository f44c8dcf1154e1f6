package registrar

import "context"

// ListTLDs returns the registrar's extension pricing table.
func (cl *Client) ListTLDs(ctx context.Context) ([]TLDInfo, error) {
	var out []TLDInfo
	if err := cl.call(ctx, "tlds.list", "GET", "/tlds", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Self returns our own reseller account state, mainly the prepaid
// balance.  Registrations silently fail registrar-side when the balance
// runs dry, so the dashboard surfaces this.
func (cl *Client) Self(ctx context.Context) (*Reseller, error) {
	var out Reseller
	if err := cl.call(ctx, "resellers.self", "GET", "/resellers/self", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
