package object

// Visitor is a kind-indexed table of handlers, giving O(1) dispatch on the
// kind discriminant (spec §9: "implement as a generated jump table keyed by
// the kind byte"). The zero value of Visitor dispatches nothing; callers
// populate only the kinds they care about and fall back to Default.
type Visitor struct {
	handlers [numKinds]func(Object) (Object, bool)
	Default  func(Object) (Object, bool)
}

// On registers a handler for kind k.
func (v *Visitor) On(k Kind, fn func(Object) (Object, bool)) {
	if k < numKinds {
		v.handlers[k] = fn
	}
}

// Visit dispatches o to its registered handler, or to Default if none is
// registered for o's kind.
func (v *Visitor) Visit(o Object) (Object, bool) {
	if o == nil {
		return nil, false
	}
	k := o.Kind()
	if k < numKinds && v.handlers[k] != nil {
		return v.handlers[k](o)
	}
	if v.Default != nil {
		return v.Default(o)
	}
	return nil, false
}

// Equal reports structural equality honoring every kind's own Equal
// implementation, with the nil-singleton special case (two nils are always
// equal regardless of Go nil vs. the boxed singleton).
func Equal(a, b Object) bool {
	if IsNil(a) && IsNil(b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Equal(b)
}

// HashOf returns o's hash, treating a Go nil the same as the nil singleton.
func HashOf(o Object) uint64 {
	if IsNil(o) {
		return 0
	}
	return o.Hash()
}
