package object

import "fmt"

// TypeError reports a conversion of a non-matching object to a specific
// kind, naming both kinds per spec §4.1.
type TypeError struct {
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type-error: expected %s, got %s", e.Want, e.Got)
}

func typeError(want, got Kind) error { return &TypeError{Want: want, Got: got} }

// BoundsError reports an out-of-range index access.
type BoundsError struct {
	Op     string
	Kind   string
	Index  int
	Length int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("bounds-error: %s on %s: index %d, length %d", e.Op, e.Kind, e.Index, e.Length)
}

func boundsError(op, kind string, index, length int) error {
	return &BoundsError{Op: op, Kind: kind, Index: index, Length: length}
}

// UnboundVarError reports a deref of a var with no thread binding and no
// root value (spec §4.1 var semantics).
type UnboundVarError struct {
	Ns   string
	Name string
}

func (e *UnboundVarError) Error() string {
	return fmt.Sprintf("unbound-var: %s/%s", e.Ns, e.Name)
}
