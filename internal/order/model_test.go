package order

import "testing"

func TestStatusFromRegistrar(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"ACT", StatusCompleted},
		{"REQ", StatusProcessing},
		{"PEN", StatusPending},
		{"FAI", StatusFailed},
		{"DEL", StatusCancelled},
		{"XYZ", StatusPending}, // unknown codes stay pollable
		{"", StatusPending},
	}
	for _, c := range cases {
		if got := StatusFromRegistrar(c.code); got != c.want {
			t.Errorf("StatusFromRegistrar(%q) = %q, want %q", c.code, got, c.want)
		}
	}
}
