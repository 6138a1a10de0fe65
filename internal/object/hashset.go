package object

// HashSet is a persistent set implemented as a map to a sentinel unit value
// per spec §4.1 ("set is a map to unit").
type HashSet struct {
	m *HashMap
}

var setMember = Bool(true)

// EmptyHashSet is the interned empty set.
var EmptyHashSet = &HashSet{m: EmptyHashMap}

func NewHashSet(items ...Object) *HashSet {
	s := EmptyHashSet
	for _, it := range items {
		s = s.Conj(it).(*HashSet)
	}
	return s
}

func (s *HashSet) Kind() Kind { return KindHashSet }
func (s *HashSet) Count() int { return s.m.Count() }

func (s *HashSet) Equal(other Object) bool {
	o, ok := other.(*HashSet)
	return ok && s.m.Equal(o.m)
}
func (s *HashSet) Hash() uint64 { return s.m.Hash() }
func (s *HashSet) String() string {
	out := "#{"
	first := true
	s.Range(func(v Object) bool {
		if !first {
			out += " "
		}
		first = false
		out += v.String()
		return true
	})
	return out + "}"
}

// Contains reports set membership.
func (s *HashSet) Contains(v Object) bool {
	_, ok := s.m.Get(v)
	return ok
}

// Conj returns a new set with v added.
func (s *HashSet) Conj(v Object) Object {
	return &HashSet{m: s.m.Assoc(v, setMember)}
}

// Disj returns a new set with v removed (a disj on a disj operation, spec
// invariant 2: the receiver is not observably mutated).
func (s *HashSet) Disj(v Object) *HashSet {
	return &HashSet{m: s.m.Dissoc(v)}
}

func (s *HashSet) Range(f func(v Object) bool) {
	s.m.Range(func(k, _ Object) bool { return f(k) })
}

func (s *HashSet) Seq() Seq {
	var items []Object
	s.Range(func(v Object) bool {
		items = append(items, v)
		return true
	})
	return NewSeq(items)
}
