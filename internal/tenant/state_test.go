// internal/tenant/state_test.go
//
// Unit-tests for the provisioning state machine.
//
// Run: go test ./internal/tenant -v

package tenant

import "testing"

func strptr(s string) *string { return &s }

func TestStateOf(t *testing.T) {
	active := RouteActive
	failed := RouteError

	cases := []struct {
		name string
		rec  Record
		want State
	}{
		{"fresh", Record{Status: StatusPending}, StateCreated},
		{"zone done", Record{Status: StatusPending, ZoneRecordID: strptr("r1")}, StateZoneDone},
		{"fully provisioned", Record{Status: StatusActive,
			ZoneRecordID: strptr("r1"), RouteStatus: &active}, StateRouteDone},
		{"waiting on NS", Record{Status: StatusWaitingNS, ZoneRecordID: strptr("z1")}, StateZonePending},
		{"zone errored", Record{Status: StatusPending, ZoneErrorLog: strptr("boom")}, StateFailed},
		{"route errored", Record{Status: StatusPending,
			ZoneRecordID: strptr("r1"), RouteStatus: &failed}, StateFailed},
	}
	for _, c := range cases {
		if got := StateOf(&c.rec); got != c.want {
			t.Errorf("%s: StateOf = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	legal := [][2]State{
		{StateCreated, StateZoneDone},
		{StateCreated, StateZonePending},
		{StateCreated, StateFailed},
		{StateZonePending, StateZoneDone},
		{StateZonePending, StateRouteDone},
		{StateZoneDone, StateRouteDone},
		{StateFailed, StateZoneDone},
		{StateFailed, StateRouteDone},
		{StateZoneDone, StateZoneDone}, // idempotent repeat
	}
	for _, e := range legal {
		if !CanTransition(e[0], e[1]) {
			t.Errorf("%v → %v must be legal", e[0], e[1])
		}
	}

	illegal := [][2]State{
		{StateRouteDone, StateCreated},
		{StateRouteDone, StateZoneDone},
		{StateZoneDone, StateCreated},
		{StateCreated, StateRouteDone}, // the route step requires the zone first
	}
	for _, e := range illegal {
		if CanTransition(e[0], e[1]) {
			t.Errorf("%v → %v must be refused", e[0], e[1])
		}
	}

	if err := Transition(StateRouteDone, StateCreated); err == nil {
		t.Error("Transition must surface an error for an illegal edge")
	}
}
