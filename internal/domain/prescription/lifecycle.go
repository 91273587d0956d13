package prescription

import "fmt"

// State is a lifecycle state of a prescription task. The harness mirrors
// the state machine the remote service enforces so that illegal local
// steps are caught before a request is even built.
type State int

const (
	Draft State = iota
	Activated
	Assigned
	DirectlyAssigned
	Accepted
	Dispensed
	Closed
	Aborted
	Rejected
)

func (s State) String() string {
	switch s {
	case Draft:
		return "draft"
	case Activated:
		return "activated"
	case Assigned:
		return "assigned"
	case DirectlyAssigned:
		return "directly-assigned"
	case Accepted:
		return "accepted"
	case Dispensed:
		return "dispensed"
	case Closed:
		return "closed"
	case Aborted:
		return "aborted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition may leave the state.
func (s State) Terminal() bool {
	return s == Dispensed || s == Closed || s == Aborted
}

// transitions is the legal-successor table. Rejected is transient: it
// immediately re-arms the task as Assigned for a different dispensing
// party.
var transitions = map[State][]State{
	Draft:            {Activated, Aborted},
	Activated:        {Assigned, DirectlyAssigned, Aborted},
	Assigned:         {Accepted, Aborted},
	DirectlyAssigned: {Accepted, Aborted},
	Accepted:         {Dispensed, Closed, Aborted, Rejected},
	Rejected:         {Assigned},
	Dispensed:        {},
	Closed:           {},
	Aborted:          {},
}

// CanTransition reports whether from may legally move to to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LifecycleError is a locally detected illegal transition attempt. It is
// the same conflict class the remote service would report, surfaced
// before any request is sent.
type LifecycleError struct {
	TaskID string
	From   State
	To     State
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("task %s: illegal transition %s -> %s", e.TaskID, e.From, e.To)
}

// Transition moves the record to the target state after checking the
// guard table. Rejecting an accepted record invalidates its secret so a
// later dispense with the stale secret fails on authorization.
func Transition(r *Record, to State) error {
	if !CanTransition(r.State, to) {
		return &LifecycleError{TaskID: r.TaskID, From: r.State, To: to}
	}
	if to == Rejected {
		r.Secret = ""
		// Re-arm immediately for the next dispensing party.
		r.State = Assigned
		return nil
	}
	r.State = to
	return nil
}
