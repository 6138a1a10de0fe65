package object

// List is a persistent singly-linked list with O(1) conj (pushes to the
// front, matching the parent dialect's cons semantics) and O(1) pop
// (returns the rest). Structure is shared between a list and its conj
// result — no copying occurs (spec §4.1 "purely functional structure
// sharing").
type List struct {
	head Object
	tail *List
	cnt  int
}

// EmptyList is the interned empty list.
var EmptyList = &List{}

func NewList(items ...Object) *List {
	l := EmptyList
	for i := len(items) - 1; i >= 0; i-- {
		l = l.Conj(items[i]).(*List)
	}
	return l
}

func (l *List) Kind() Kind { return KindList }
func (l *List) Equal(other Object) bool {
	o, ok := other.(*List)
	if !ok {
		if s, ok := other.(Seq); ok {
			return l.Seq().Equal(s)
		}
		return false
	}
	a, b := l, o
	for a.cnt > 0 && b.cnt > 0 {
		if !a.head.Equal(b.head) {
			return false
		}
		a, b = a.tail, b.tail
	}
	return a.cnt == 0 && b.cnt == 0
}
func (l *List) Hash() uint64 {
	var h uint64 = 1
	for n := l; n.cnt > 0; n = n.tail {
		h = h*31 + n.head.Hash()
	}
	return h
}
func (l *List) String() string {
	out := "("
	for n, i := l, 0; n.cnt > 0; n, i = n.tail, i+1 {
		if i > 0 {
			out += " "
		}
		out += n.head.String()
	}
	return out + ")"
}

// Conj prepends v, returning a new list that shares the receiver as its
// tail — the receiver is never mutated (spec invariant 2).
func (l *List) Conj(v Object) Object {
	return &List{head: v, tail: l, cnt: l.cnt + 1}
}

// Pop returns the list without its first element. Popping the empty list
// fails with bounds-error per spec §4.1.
func (l *List) Pop() (Object, error) {
	if l.cnt == 0 {
		return nil, boundsError("pop", "list", 0, 0)
	}
	return l.tail, nil
}

func (l *List) First() Object {
	if l.cnt == 0 {
		return Nil
	}
	return l.head
}

func (l *List) Rest() Seq {
	if l.cnt <= 1 {
		return EmptyList
	}
	return l.tail
}

func (l *List) IsEmpty() bool { return l.cnt == 0 }
func (l *List) Count() int    { return l.cnt }
func (l *List) Seq() Seq      { return l }
