package actor

import "fmt"

// Resolve looks up a capability by kind and asserts its concrete type.
// A kind registered with a different concrete type is a programming
// error in actor setup and fails loudly.
func Resolve[C Capability](a *Actor, kind CapabilityKind) (C, error) {
	var zero C
	c, err := a.Capability(kind)
	if err != nil {
		return zero, err
	}
	typed, ok := c.(C)
	if !ok {
		return zero, fmt.Errorf("actor %q: capability %q has unexpected type %T", a.Name, kind, c)
	}
	return typed, nil
}
