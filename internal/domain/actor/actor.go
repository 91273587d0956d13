package actor

import (
	"fmt"
	"sync"
)

// CapabilityKind names a bundle of state and behavior an actor can hold.
type CapabilityKind string

const (
	Prescribes             CapabilityKind = "prescribes"
	ReceivesPrescriptions  CapabilityKind = "receives-prescriptions"
	DispensesPrescriptions CapabilityKind = "dispenses-prescriptions"
	ReceivesDispensedDrugs CapabilityKind = "receives-dispensed-drugs"
	ExchangesMessages      CapabilityKind = "exchanges-messages"
	ManagesChargeItems     CapabilityKind = "manages-charge-items"
	AuthorizesChargeItems  CapabilityKind = "authorizes-charge-items"
)

// Capability is a typed bag of state attached to exactly one actor.
// Concrete capability types live in the domain packages that own their
// record types.
type Capability interface {
	Kind() CapabilityKind
}

// MissingCapabilityError indicates an operation was attempted on an
// actor that was never equipped for it, which is the primary way the
// harness catches test-authoring mistakes.
type MissingCapabilityError struct {
	Actor string
	Want  CapabilityKind
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("actor %q has no capability %q", e.Actor, e.Want)
}

// Actor is a named simulated participant holding a set of capabilities.
type Actor struct {
	Name string

	caps map[CapabilityKind]Capability
}

// Grant attaches a capability to the actor. Granting the same kind twice
// keeps the first instance; capability identity is immutable once set.
func (a *Actor) Grant(c Capability) {
	if _, ok := a.caps[c.Kind()]; ok {
		return
	}
	a.caps[c.Kind()] = c
}

// Has reports whether a capability of the given kind was granted.
func (a *Actor) Has(kind CapabilityKind) bool {
	_, ok := a.caps[kind]
	return ok
}

// Capability resolves a granted capability by kind.
func (a *Actor) Capability(kind CapabilityKind) (Capability, error) {
	c, ok := a.caps[kind]
	if !ok {
		return nil, &MissingCapabilityError{Actor: a.Name, Want: kind}
	}
	return c, nil
}

// Registry owns all actors of one scenario and is discarded with it.
// It is an explicit object rather than process state so concurrently
// running scenarios cannot cross-contaminate.
type Registry struct {
	mu     sync.Mutex
	actors map[string]*Actor
}

// NewRegistry returns an empty per-scenario registry.
func NewRegistry() *Registry {
	return &Registry{actors: make(map[string]*Actor)}
}

// ActorNamed creates or returns the singleton actor with the given name.
func (r *Registry) ActorNamed(name string) *Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors[name]; ok {
		return a
	}
	a := &Actor{Name: name, caps: make(map[CapabilityKind]Capability)}
	r.actors[name] = a
	return a
}

// Names returns the names of all registered actors.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.actors))
	for n := range r.actors {
		names = append(names, n)
	}
	return names
}
