package object

import "fmt"

// TransientVector is a single-owner mutable copy of a Vector's elements,
// usable only between transient() and persistent!() (spec §3 lifecycle).
// Operations after Persistent return an error rather than panicking, so
// embedding code can surface "transient used after persistent!" as a
// regular runtime error.
type TransientVector struct {
	frozen bool
	items  []Object // simplified dense backing store for the mutation window
}

func NewTransientVector(v *Vector) *TransientVector {
	items := make([]Object, v.Count())
	for i := range items {
		items[i], _ = v.Nth(i)
	}
	return &TransientVector{items: items}
}

func (t *TransientVector) Kind() Kind { return KindTransientVector }
func (t *TransientVector) Equal(other Object) bool { return t == other }
func (t *TransientVector) Hash() uint64            { return uint64(len(t.items)) }
func (t *TransientVector) String() string          { return fmt.Sprintf("#<transient-vector %d>", len(t.items)) }

var errTransientFrozen = fmt.Errorf("transient used after persistent!")

// Conj appends in place, returning an error if already frozen.
func (t *TransientVector) Conj(v Object) error {
	if t.frozen {
		return errTransientFrozen
	}
	t.items = append(t.items, v)
	return nil
}

// Assoc mutates index i in place.
func (t *TransientVector) Assoc(i int, v Object) error {
	if t.frozen {
		return errTransientFrozen
	}
	if i < 0 || i >= len(t.items) {
		return boundsError("assoc!", "transient-vector", i, len(t.items))
	}
	t.items[i] = v
	return nil
}

// Persistent freezes the transient and returns the resulting Vector. The
// transient itself becomes unusable (spec: "reject further operations
// after freeze").
func (t *TransientVector) Persistent() (*Vector, error) {
	if t.frozen {
		return nil, errTransientFrozen
	}
	t.frozen = true
	return NewVector(t.items...), nil
}

// TransientHashMap mirrors TransientVector for maps.
type TransientHashMap struct {
	frozen bool
	m      *HashMap
}

func NewTransientHashMap(m *HashMap) *TransientHashMap { return &TransientHashMap{m: m} }

func (t *TransientHashMap) Kind() Kind             { return KindTransientHashMap }
func (t *TransientHashMap) Equal(other Object) bool { return t == other }
func (t *TransientHashMap) Hash() uint64            { return t.m.Hash() }
func (t *TransientHashMap) String() string          { return fmt.Sprintf("#<transient-map %d>", t.m.Count()) }

func (t *TransientHashMap) Assoc(k, v Object) error {
	if t.frozen {
		return errTransientFrozen
	}
	t.m = t.m.Assoc(k, v)
	return nil
}

func (t *TransientHashMap) Dissoc(k Object) error {
	if t.frozen {
		return errTransientFrozen
	}
	t.m = t.m.Dissoc(k)
	return nil
}

func (t *TransientHashMap) Persistent() (*HashMap, error) {
	if t.frozen {
		return nil, errTransientFrozen
	}
	t.frozen = true
	return t.m, nil
}

// TransientHashSet mirrors TransientVector for sets.
type TransientHashSet struct {
	frozen bool
	s      *HashSet
}

func NewTransientHashSet(s *HashSet) *TransientHashSet { return &TransientHashSet{s: s} }

func (t *TransientHashSet) Kind() Kind             { return KindTransientHashSet }
func (t *TransientHashSet) Equal(other Object) bool { return t == other }
func (t *TransientHashSet) Hash() uint64            { return t.s.Hash() }
func (t *TransientHashSet) String() string          { return fmt.Sprintf("#<transient-set %d>", t.s.Count()) }

func (t *TransientHashSet) Conj(v Object) error {
	if t.frozen {
		return errTransientFrozen
	}
	t.s = t.s.Conj(v).(*HashSet)
	return nil
}

func (t *TransientHashSet) Disj(v Object) error {
	if t.frozen {
		return errTransientFrozen
	}
	t.s = t.s.Disj(v)
	return nil
}

func (t *TransientHashSet) Persistent() (*HashSet, error) {
	if t.frozen {
		return nil, errTransientFrozen
	}
	t.frozen = true
	return t.s, nil
}
