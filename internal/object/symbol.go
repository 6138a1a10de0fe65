package object

// Symbol carries an optional namespace, a name, and a metadata reference
// (spec §3). Unlike Keyword, symbols are not interned: two symbols with the
// same (ns, name) are distinct objects unless explicitly shared, matching
// the parent dialect's semantics of symbols as potentially metadata-bearing
// local references.
type Symbol struct {
	Ns   string
	Name string
	Meta Meta
}

// NewSymbol constructs a symbol. ns may be empty for an unqualified symbol.
func NewSymbol(ns, name string) *Symbol {
	return &Symbol{Ns: ns, Name: name}
}

func (s *Symbol) Kind() Kind { return KindSymbol }
func (s *Symbol) Equal(other Object) bool {
	o, ok := other.(*Symbol)
	return ok && s.Ns == o.Ns && s.Name == o.Name
}
func (s *Symbol) Hash() uint64 {
	return fnvHash(s.Ns) ^ fnvHash(s.Name)<<1
}
func (s *Symbol) String() string {
	if s.Ns == "" {
		return s.Name
	}
	return s.Ns + "/" + s.Name
}

// WithMeta returns a copy of s carrying the given metadata attached.
func (s *Symbol) WithMeta(m Meta) *Symbol {
	return &Symbol{Ns: s.Ns, Name: s.Name, Meta: m}
}

// Qualified reports whether the symbol carries an explicit namespace
// segment (ns/name form), relevant to the analyzer's resolution order
// (spec §4.3).
func (s *Symbol) Qualified() bool { return s.Ns != "" }
