package protocol

import (
	"errors"
	"fmt"
	"net/http"
)

// OutcomeKind classifies a non-success response from the workflow
// service. Scenarios assert on the specific kind, so the taxonomy is
// never collapsed into a generic failure.
type OutcomeKind int

const (
	// KindAuthorization: wrong or missing access code or secret.
	KindAuthorization OutcomeKind = iota
	// KindConflict: transition attempted from a state that forbids it.
	KindConflict
	// KindNotFound: the resource never existed for this caller.
	KindNotFound
	// KindGone: the resource existed but was deleted or expired.
	KindGone
	// KindPrecondition: the request itself was malformed or not yet valid.
	KindPrecondition
	// KindUnavailable: the service failed; not a scenario outcome.
	KindUnavailable
)

func (k OutcomeKind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not-found"
	case KindGone:
		return "gone"
	case KindPrecondition:
		return "precondition"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// OutcomeError is a classified failure returned by the workflow service.
type OutcomeError struct {
	Kind        OutcomeKind
	Status      int
	Diagnostics string
}

func (e *OutcomeError) Error() string {
	if e.Diagnostics == "" {
		return fmt.Sprintf("%s (http %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (http %d): %s", e.Kind, e.Status, e.Diagnostics)
}

// FromStatus maps an HTTP status to a classified outcome error.
func FromStatus(status int, diagnostics string) *OutcomeError {
	var kind OutcomeKind
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuthorization
	case status == http.StatusConflict:
		kind = KindConflict
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusGone:
		kind = KindGone
	case status >= 400 && status < 500:
		kind = KindPrecondition
	default:
		kind = KindUnavailable
	}
	return &OutcomeError{Kind: kind, Status: status, Diagnostics: diagnostics}
}

// KindOf extracts the outcome kind from an error chain. The second
// return is false when the error is not a classified outcome.
func KindOf(err error) (OutcomeKind, bool) {
	var oe *OutcomeError
	if errors.As(err, &oe) {
		return oe.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given outcome classification.
func IsKind(err error, kind OutcomeKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
