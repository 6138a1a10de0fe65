package object

import "hash/fnv"

// String is an immutable byte sequence with a precomputed hash, per spec §3.
type String struct {
	v    string
	hash uint64
}

// EmptyString is the interned empty-string singleton.
var EmptyString = &String{v: "", hash: fnvHash("")}

// NewString constructs a String, memoizing its hash at construction time
// (spec §4.1: "hashes are memoized").
func NewString(s string) *String {
	if s == "" && EmptyString != nil {
		return EmptyString
	}
	return &String{v: s, hash: fnvHash(s)}
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func (s *String) Kind() Kind { return KindString }
func (s *String) Equal(other Object) bool {
	o, ok := other.(*String)
	return ok && s.v == o.v
}
func (s *String) Hash() uint64   { return s.hash }
func (s *String) String() string { return s.v }
func (s *String) Value() string  { return s.v }
func (s *String) Len() int       { return len([]rune(s.v)) }

// Seq returns the lazy character sequence of the string, per the universal
// seq protocol (spec §4.1).
func (s *String) Seq() Seq {
	runes := []rune(s.v)
	return newSliceSeq(runes, func(r rune) Object { return Char(r) })
}
