// internal/zone/email.go
//
// Email-routing rule CRUD.
//
// The provider models forwarding as rules inside a zone plus verified
// destination addresses at the account level.  The catch-all is not a
// list entry: it is a singleton resource with a fixed identifier, fetched
// and replaced in place.
package zone

import "context"

// EmailRule is one forwarding rule.
type EmailRule struct {
	ID       string        `json:"id,omitempty"`
	Name     string        `json:"name,omitempty"`
	Enabled  bool          `json:"enabled"`
	Matchers []EmailMatch  `json:"matchers"`
	Actions  []EmailAction `json:"actions"`
}

// EmailMatch selects which messages a rule applies to.
type EmailMatch struct {
	Type  string `json:"type"`            // "literal" or "all"
	Field string `json:"field,omitempty"` // "to"
	Value string `json:"value,omitempty"`
}

// EmailAction says what to do with a matched message.
type EmailAction struct {
	Type  string   `json:"type"` // "forward" or "drop"
	Value []string `json:"value,omitempty"`
}

// destinationAddress is an account-level forwarding target that must be
// verified before rules can reference it.
type destinationAddress struct {
	Email string `json:"email"`
}

// EnableEmailRouting switches routing on for a zone.  The provider
// answers with the MX/TXT records it installed; we do not need them.
func (cl *Client) EnableEmailRouting(ctx context.Context, zoneID string) error {
	return cl.call(ctx, "email.enable", "POST",
		"/zones/"+zoneID+"/email/routing/enable", nil, nil)
}

// GetCatchAll reads the singleton catch-all rule.
func (cl *Client) GetCatchAll(ctx context.Context, zoneID string) (*EmailRule, error) {
	var out EmailRule
	err := cl.call(ctx, "email.catch_all.get", "GET",
		"/zones/"+zoneID+"/email/routing/rules/catch_all", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetCatchAll replaces the singleton catch-all rule so every otherwise
// unmatched address forwards to forwardTo.
func (cl *Client) SetCatchAll(ctx context.Context, zoneID, forwardTo string) error {
	rule := EmailRule{
		Name:     "catch_all",
		Enabled:  true,
		Matchers: []EmailMatch{{Type: "all"}},
		Actions:  []EmailAction{{Type: "forward", Value: []string{forwardTo}}},
	}
	return cl.call(ctx, "email.catch_all.set", "PUT",
		"/zones/"+zoneID+"/email/routing/rules/catch_all", rule, nil)
}

// AddForwardingRule creates a per-address rule and returns its id.
func (cl *Client) AddForwardingRule(ctx context.Context, zoneID, from, to string) (string, error) {
	rule := EmailRule{
		Name:     "forward " + from,
		Enabled:  true,
		Matchers: []EmailMatch{{Type: "literal", Field: "to", Value: from}},
		Actions:  []EmailAction{{Type: "forward", Value: []string{to}}},
	}
	var out EmailRule
	err := cl.call(ctx, "email.rule.create", "POST",
		"/zones/"+zoneID+"/email/routing/rules", rule, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// DeleteForwardingRule removes a per-address rule.
func (cl *Client) DeleteForwardingRule(ctx context.Context, zoneID, ruleID string) error {
	return cl.call(ctx, "email.rule.delete", "DELETE",
		"/zones/"+zoneID+"/email/routing/rules/"+ruleID, nil, nil)
}

// AddDestinationAddress registers a forwarding target at the account
// level; the provider mails a verification link to it.
func (cl *Client) AddDestinationAddress(ctx context.Context, email string) error {
	return cl.call(ctx, "email.address.create", "POST",
		"/accounts/"+cl.accountID+"/email/routing/addresses",
		destinationAddress{Email: email}, nil)
}
