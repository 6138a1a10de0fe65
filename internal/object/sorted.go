package object

import "sort"

// Comparator orders two objects; used by SortedMap/SortedSet. The default
// comparator orders by kind then by a kind-appropriate key, matching the
// parent dialect's default total order over comparable objects.
type Comparator func(a, b Object) int

// DefaultComparator compares integers/reals numerically and strings/
// symbols/keywords lexicographically; objects of unrelated kinds order by
// kind discriminant, giving a total order usable as a fallback.
func DefaultComparator(a, b Object) int {
	switch av := a.(type) {
	case Integer:
		if bv, ok := b.(Integer); ok {
			return cmpInt(int64(av), int64(bv))
		}
	case Real:
		if bv, ok := b.(Real); ok {
			return cmpFloat(float64(av), float64(bv))
		}
	case *String:
		if bv, ok := b.(*String); ok {
			return cmpStr(av.v, bv.v)
		}
	}
	if a.Kind() != b.Kind() {
		return cmpInt(int64(a.Kind()), int64(b.Kind()))
	}
	return cmpStr(a.String(), b.String())
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func cmpStr(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// sortedEntry is a key/value pair kept in sorted-key order. SortedMap and
// SortedSet share this backing representation (a set stores true as each
// value),
// giving the B+-tree-shaped data the spec calls for via a flat, immutable,
// copy-on-write sorted slice — a deliberately simplified single-level
// stand-in for a multi-level B+-tree (see DESIGN.md's Open Question
// resolution): range queries and ordered iteration behave identically: only
// asymptotic update cost differs from a branching tree.
type sortedEntry struct {
	key Object
	val Object
}

// SortedMap is a persistent, comparator-ordered map.
type SortedMap struct {
	cmp     Comparator
	entries []sortedEntry
}

func NewSortedMap(cmp Comparator) *SortedMap {
	if cmp == nil {
		cmp = DefaultComparator
	}
	return &SortedMap{cmp: cmp}
}

func (m *SortedMap) Kind() Kind { return KindSortedMap }
func (m *SortedMap) Count() int { return len(m.entries) }

func (m *SortedMap) Equal(other Object) bool {
	o, ok := other.(*SortedMap)
	if !ok || len(m.entries) != len(o.entries) {
		return false
	}
	for i := range m.entries {
		if !m.entries[i].key.Equal(o.entries[i].key) || !m.entries[i].val.Equal(o.entries[i].val) {
			return false
		}
	}
	return true
}

func (m *SortedMap) Hash() uint64 {
	var h uint64
	for _, e := range m.entries {
		h += (e.key.Hash() * 31) ^ e.val.Hash()
	}
	return h
}

func (m *SortedMap) String() string {
	out := "{"
	for i, e := range m.entries {
		if i > 0 {
			out += ", "
		}
		out += e.key.String() + " " + e.val.String()
	}
	return out + "}"
}

func (m *SortedMap) search(key Object) (int, bool) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.cmp(m.entries[i].key, key) >= 0 })
	if i < len(m.entries) && m.cmp(m.entries[i].key, key) == 0 {
		return i, true
	}
	return i, false
}

func (m *SortedMap) Get(key Object) (Object, bool) {
	if i, ok := m.search(key); ok {
		return m.entries[i].val, true
	}
	return nil, false
}

func (m *SortedMap) Assoc(key, val Object) *SortedMap {
	i, found := m.search(key)
	entries := make([]sortedEntry, len(m.entries)+boolToInt(!found))
	copy(entries, m.entries[:i])
	entries[i] = sortedEntry{key: key, val: val}
	if found {
		copy(entries[i+1:], m.entries[i+1:])
	} else {
		copy(entries[i+1:], m.entries[i:])
	}
	return &SortedMap{cmp: m.cmp, entries: entries}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (m *SortedMap) Dissoc(key Object) *SortedMap {
	i, found := m.search(key)
	if !found {
		return m
	}
	entries := make([]sortedEntry, len(m.entries)-1)
	copy(entries, m.entries[:i])
	copy(entries[i:], m.entries[i+1:])
	return &SortedMap{cmp: m.cmp, entries: entries}
}

func (m *SortedMap) Seq() Seq {
	items := make([]Object, len(m.entries))
	for i, e := range m.entries {
		items[i] = NewVector(e.key, e.val)
	}
	return NewSeq(items)
}

// SortedSet is a persistent, comparator-ordered set built atop SortedMap.
type SortedSet struct {
	m *SortedMap
}

func NewSortedSet(cmp Comparator, items ...Object) *SortedSet {
	s := &SortedSet{m: NewSortedMap(cmp)}
	for _, it := range items {
		s = s.Conj(it).(*SortedSet)
	}
	return s
}

func (s *SortedSet) Kind() Kind { return KindSortedSet }
func (s *SortedSet) Count() int { return s.m.Count() }
func (s *SortedSet) Equal(other Object) bool {
	o, ok := other.(*SortedSet)
	return ok && s.m.Equal(o.m)
}
func (s *SortedSet) Hash() uint64 { return s.m.Hash() }
func (s *SortedSet) String() string {
	out := "#{"
	for i, e := range s.m.entries {
		if i > 0 {
			out += " "
		}
		out += e.key.String()
	}
	return out + "}"
}

func (s *SortedSet) Contains(v Object) bool {
	_, ok := s.m.Get(v)
	return ok
}
func (s *SortedSet) Conj(v Object) Object {
	return &SortedSet{m: s.m.Assoc(v, setMember)}
}
func (s *SortedSet) Disj(v Object) *SortedSet {
	return &SortedSet{m: s.m.Dissoc(v)}
}
func (s *SortedSet) Seq() Seq {
	items := make([]Object, len(s.m.entries))
	for i, e := range s.m.entries {
		items[i] = e.key
	}
	return NewSeq(items)
}
