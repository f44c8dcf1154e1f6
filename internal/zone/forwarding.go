// internal/zone/forwarding.go
//
// Manager-level email forwarding for custom-domain zones.
//
// The provider requires three things before mail flows: routing enabled
// on the zone, the destination address registered (and verified by its
// owner) at the account level, and a rule referencing it.  Destination
// registration is idempotent on the provider side for already-verified
// addresses, so every call registers unconditionally.
package zone

import "context"

// EnableForwarding switches email routing on for a zone and installs a
// catch-all rule forwarding to catchAllTo.
func (m *Manager) EnableForwarding(ctx context.Context, zoneID, catchAllTo string) error {
	if err := m.cl.EnableEmailRouting(ctx, zoneID); err != nil {
		return err
	}
	if err := m.cl.AddDestinationAddress(ctx, catchAllTo); err != nil {
		return err
	}
	if err := m.cl.SetCatchAll(ctx, zoneID, catchAllTo); err != nil {
		return err
	}
	m.log.Infow("catch-all forwarding enabled", "zone_id", zoneID, "forward_to", catchAllTo)
	return nil
}

// CatchAll reads the current catch-all rule for a zone.
func (m *Manager) CatchAll(ctx context.Context, zoneID string) (*EmailRule, error) {
	return m.cl.GetCatchAll(ctx, zoneID)
}

// AddForward creates a per-address forwarding rule and returns its id.
func (m *Manager) AddForward(ctx context.Context, zoneID, from, to string) (string, error) {
	if err := m.cl.AddDestinationAddress(ctx, to); err != nil {
		return "", err
	}
	id, err := m.cl.AddForwardingRule(ctx, zoneID, from, to)
	if err != nil {
		return "", err
	}
	m.log.Infow("forwarding rule created",
		"zone_id", zoneID, "from", from, "to", to, "rule_id", id)
	return id, nil
}

// RemoveForward deletes a per-address forwarding rule.
func (m *Manager) RemoveForward(ctx context.Context, zoneID, ruleID string) error {
	return m.cl.DeleteForwardingRule(ctx, zoneID, ruleID)
}
