package actor

import "errors"

// ErrEmptySelection is returned when a pick is attempted on an empty
// sequence. It usually means a scenario precondition was not met, so it
// is never coerced to a default record.
var ErrEmptySelection = errors.New("selection from empty sequence")

// Strategy selects one element from an ordered sequence.
type Strategy int

const (
	// Earliest picks the oldest appended element.
	Earliest Strategy = iota
	// Latest picks the most recently appended element.
	Latest
)

func (s Strategy) String() string {
	switch s {
	case Earliest:
		return "earliest"
	case Latest:
		return "latest"
	default:
		return "unknown"
	}
}

// Pick deterministically selects one element from seq according to the
// strategy.
func Pick[T any](seq []T, s Strategy) (T, error) {
	var zero T
	if len(seq) == 0 {
		return zero, ErrEmptySelection
	}
	if s == Latest {
		return seq[len(seq)-1], nil
	}
	return seq[0], nil
}
