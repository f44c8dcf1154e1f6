// internal/tenant/state.go
//
// Explicit provisioning state machine.
//
// Context
// -------
// The progress markers are the persisted representation, but call sites
// should not infer progress from column nullability.  StateOf collapses a
// Record into one tagged state, and CanTransition is the single place that
// knows which moves are legal.  Repositories refuse marker updates that
// would encode an illegal transition.
package tenant

import "fmt"

// State is the collapsed provisioning state of a tenant.
type State int

const (
	// StateCreated: rows committed, no external step attempted yet.
	StateCreated State = iota
	// StateZonePending: custom domain waiting for the customer's
	// nameserver change to propagate.
	StateZonePending
	// StateZoneDone: DNS record exists, proxy route still missing.
	StateZoneDone
	// StateRouteDone: both external steps done; fully provisioned.
	StateRouteDone
	// StateFailed: the last attempted step recorded an error.
	StateFailed
)

var stateNames = map[State]string{
	StateCreated:     "created",
	StateZonePending: "zone_pending",
	StateZoneDone:    "zone_done",
	StateRouteDone:   "route_done",
	StateFailed:      "failed",
}

func (s State) String() string { return stateNames[s] }

// StateOf derives the tagged state from a Record's markers and status.
func StateOf(r *Record) State {
	switch {
	case r.FullyProvisioned():
		return StateRouteDone
	case r.Status == StatusWaitingNS:
		return StateZonePending
	case r.ZoneConfigured():
		if r.RouteStatus != nil && *r.RouteStatus == RouteError {
			return StateFailed
		}
		return StateZoneDone
	case r.ZoneErrorLog != nil:
		return StateFailed
	default:
		return StateCreated
	}
}

// FailureReason returns the persisted error text for a failed tenant, or
// "" when none is recorded.
func FailureReason(r *Record) string {
	if r.ZoneErrorLog != nil {
		return *r.ZoneErrorLog
	}
	return ""
}

// transitions defines the legal state machine edges.  Failed is always
// re-enterable toward the step it failed at, which is what makes retries
// safe to offer.
var transitions = map[State][]State{
	StateCreated:     {StateZonePending, StateZoneDone, StateFailed},
	StateZonePending: {StateZoneDone, StateRouteDone, StateFailed},
	StateZoneDone:    {StateRouteDone, StateFailed},
	StateFailed:      {StateZonePending, StateZoneDone, StateRouteDone, StateFailed},
	StateRouteDone:   {},
}

// CanTransition reports whether from → to is a legal edge.  Staying in
// place is always legal; repeated idempotent steps land on the same state.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates an edge and returns a descriptive error on refusal.
func Transition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal tenant state transition %s → %s", from, to)
	}
	return nil
}
