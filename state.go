package relaypay

import "fmt"

// ProtocolState is the client-visible phase of a transfer flow
type ProtocolState string

const (
	StateIdle      ProtocolState = "idle"
	StateSigning   ProtocolState = "signing"
	StateVerifying ProtocolState = "verifying"
	StateSettling  ProtocolState = "settling"
	StateSuccess   ProtocolState = "success"
	StateError     ProtocolState = "error"
)

// IsTerminal reports whether no further progress happens without a reset
func (s ProtocolState) IsTerminal() bool {
	return s == StateSuccess || s == StateError
}

// InFlight reports whether a flow currently holds the signing/verifying/settling region
func (s ProtocolState) InFlight() bool {
	return s == StateSigning || s == StateVerifying || s == StateSettling
}

// Event drives a state transition
type Event string

const (
	EventStart    Event = "start"
	EventSigned   Event = "signed"
	EventVerified Event = "verified"
	EventSettled  Event = "settled"
	EventFail     Event = "fail"
	EventReset    Event = "reset"
)

// Transition returns the state reached from s on event e.
// Reset and Fail are accepted from every state.
func Transition(s ProtocolState, e Event) (ProtocolState, error) {
	switch e {
	case EventReset:
		return StateIdle, nil
	case EventFail:
		return StateError, nil
	}

	switch {
	case s == StateIdle && e == EventStart:
		return StateSigning, nil
	case s == StateSigning && e == EventSigned:
		return StateVerifying, nil
	case s == StateVerifying && e == EventVerified:
		return StateSettling, nil
	case s == StateSettling && e == EventSettled:
		return StateSuccess, nil
	}
	return s, fmt.Errorf("invalid transition: %s on %s", e, s)
}
