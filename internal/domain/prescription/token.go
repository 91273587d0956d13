package prescription

import "fmt"

// Role is the closed set of participant roles able to attempt lifecycle
// transitions. TokenFor switches exhaustively over it so a newly added
// role without a token rule fails loudly instead of defaulting.
type Role int

const (
	Doctor Role = iota
	Patient
	Pharmacy
	Representative
	Payer
)

func (r Role) String() string {
	switch r {
	case Doctor:
		return "doctor"
	case Patient:
		return "patient"
	case Pharmacy:
		return "pharmacy"
	case Representative:
		return "representative"
	case Payer:
		return "payer"
	default:
		return "unknown"
	}
}

// Token is the authorization pair accompanying a lifecycle transition.
// Either field may be empty when the role does not need it.
type Token struct {
	AccessCode string
	Secret     string
}

// Override replaces token fields for negative testing. A nil field keeps
// the computed value, so "wrong secret" scenarios stay expressible
// without bypassing the rest of the transition logic.
type Override struct {
	AccessCode *string
	Secret     *string
}

// Apply returns the token with any overrides substituted.
func (o *Override) Apply(t Token) Token {
	if o == nil {
		return t
	}
	if o.AccessCode != nil {
		t.AccessCode = *o.AccessCode
	}
	if o.Secret != nil {
		t.Secret = *o.Secret
	}
	return t
}

// TokenFor computes the token the given role must present to act on the
// record.
func TokenFor(role Role, rec *Record) (Token, error) {
	switch role {
	case Doctor:
		return Token{AccessCode: rec.AccessCode}, nil
	case Patient:
		// The original owner acts through the authenticated identity
		// channel; only a handed-over record needs its access code.
		if rec.Origin == OriginHandover {
			return Token{AccessCode: rec.AccessCode}, nil
		}
		return Token{}, nil
	case Representative:
		if rec.AccessCode == "" {
			return Token{}, fmt.Errorf("task %s: representative needs an access code from the hand-over", rec.TaskID)
		}
		return Token{AccessCode: rec.AccessCode}, nil
	case Pharmacy:
		if rec.Secret == "" {
			return Token{}, fmt.Errorf("task %s: no secret minted, prescription was never accepted", rec.TaskID)
		}
		return Token{AccessCode: rec.AccessCode, Secret: rec.Secret}, nil
	case Payer:
		return Token{AccessCode: rec.AccessCode}, nil
	default:
		return Token{}, fmt.Errorf("no token rule for role %d", role)
	}
}
