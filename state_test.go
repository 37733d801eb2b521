package relaypay_test

import (
	"testing"

	relaypay "github.com/reserve-vault/relaypay/go"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from    relaypay.ProtocolState
		event   relaypay.Event
		want    relaypay.ProtocolState
		invalid bool
	}{
		{relaypay.StateIdle, relaypay.EventStart, relaypay.StateSigning, false},
		{relaypay.StateSigning, relaypay.EventSigned, relaypay.StateVerifying, false},
		{relaypay.StateVerifying, relaypay.EventVerified, relaypay.StateSettling, false},
		{relaypay.StateSettling, relaypay.EventSettled, relaypay.StateSuccess, false},

		{relaypay.StateSigning, relaypay.EventFail, relaypay.StateError, false},
		{relaypay.StateSettling, relaypay.EventFail, relaypay.StateError, false},
		{relaypay.StateIdle, relaypay.EventFail, relaypay.StateError, false},
		{relaypay.StateSuccess, relaypay.EventReset, relaypay.StateIdle, false},
		{relaypay.StateError, relaypay.EventReset, relaypay.StateIdle, false},
		{relaypay.StateVerifying, relaypay.EventReset, relaypay.StateIdle, false},

		{relaypay.StateIdle, relaypay.EventSigned, relaypay.StateIdle, true},
		{relaypay.StateSigning, relaypay.EventStart, relaypay.StateSigning, true},
		{relaypay.StateVerifying, relaypay.EventSettled, relaypay.StateVerifying, true},
		{relaypay.StateSuccess, relaypay.EventStart, relaypay.StateSuccess, true},
		{relaypay.StateError, relaypay.EventVerified, relaypay.StateError, true},
	}

	for _, tt := range tests {
		got, err := relaypay.Transition(tt.from, tt.event)
		if tt.invalid {
			if err == nil {
				t.Errorf("%s on %s: expected error", tt.event, tt.from)
			}
		} else if err != nil {
			t.Errorf("%s on %s: unexpected error: %v", tt.event, tt.from, err)
		}
		if got != tt.want {
			t.Errorf("%s on %s: got %s, want %s", tt.event, tt.from, got, tt.want)
		}
	}
}

func TestProtocolStateClassification(t *testing.T) {
	for _, s := range []relaypay.ProtocolState{relaypay.StateSigning, relaypay.StateVerifying, relaypay.StateSettling} {
		if !s.InFlight() || s.IsTerminal() {
			t.Errorf("%s should be in flight and not terminal", s)
		}
	}
	for _, s := range []relaypay.ProtocolState{relaypay.StateSuccess, relaypay.StateError} {
		if s.InFlight() || !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if relaypay.StateIdle.InFlight() || relaypay.StateIdle.IsTerminal() {
		t.Error("idle should be neither in flight nor terminal")
	}
}
