package object

import (
	"context"
	"testing"
)

func TestNilSingleton(t *testing.T) {
	if !IsNil(Nil) {
		t.Fatal("Nil should be nil")
	}
	if IsNil(NewInteger(0)) {
		t.Fatal("0 is not nil")
	}
}

func TestHashEqualContract(t *testing.T) {
	a := NewInteger(42)
	b := NewInteger(42)
	if !a.Equal(b) {
		t.Fatal("42 should equal 42")
	}
	if a.Hash() != b.Hash() {
		t.Fatal("equal objects must hash equal")
	}
}

func TestKeywordInterning(t *testing.T) {
	table := NewKeywordTable()
	a := table.Intern("user", "foo")
	b := table.Intern("user", "foo")
	if a != b {
		t.Fatal("keywords with the same (ns, name) must be reference-equal")
	}
}

func TestRealSpecialValues(t *testing.T) {
	inf := Real(1)
	for i := 0; i < 2000; i++ {
		inf = inf * 10
	}
	if inf.String() != "##Inf" {
		t.Fatalf("expected ##Inf, got %s", inf.String())
	}
	nan := Real(0)
	nan = nan / nan
	if nan.String() != "##NaN" {
		t.Fatalf("expected ##NaN, got %s", nan.String())
	}
}

func TestListConjPopImmutable(t *testing.T) {
	l := NewList(NewInteger(2), NewInteger(3))
	l2 := l.Conj(NewInteger(1)).(*List)
	if l2.Count() != 3 || l.Count() != 2 {
		t.Fatal("conj must not mutate the receiver")
	}
	rest, err := l2.Pop()
	if err != nil {
		t.Fatal(err)
	}
	if rest.(*List).Count() != 2 {
		t.Fatal("pop should drop one element")
	}
}

func TestVectorConjAssocNthImmutable(t *testing.T) {
	v := EmptyVector
	for i := 0; i < 100; i++ {
		v = v.Conj(NewInteger(int64(i))).(*Vector)
	}
	if v.Count() != 100 {
		t.Fatalf("expected count 100, got %d", v.Count())
	}
	nth50, err := v.Nth(50)
	if err != nil || nth50.(Integer) != 50 {
		t.Fatalf("nth(50) = %v, %v", nth50, err)
	}
	v2, err := v.Assoc(50, NewInteger(999))
	if err != nil {
		t.Fatal(err)
	}
	old, _ := v.Nth(50)
	if old.(Integer) != 50 {
		t.Fatal("assoc must not mutate the receiver")
	}
	updated, _ := v2.Nth(50)
	if updated.(Integer) != 999 {
		t.Fatal("assoc should update the new vector")
	}
}

func TestVectorOutOfRange(t *testing.T) {
	v := NewVector(NewInteger(1))
	_, err := v.Nth(5)
	if _, ok := err.(*BoundsError); !ok {
		t.Fatalf("expected *BoundsError, got %T", err)
	}
}

func TestHashMapAssocGetDissoc(t *testing.T) {
	m := EmptyHashMap
	for i := 0; i < 200; i++ {
		m = m.Assoc(NewInteger(int64(i)), NewInteger(int64(i*i)))
	}
	if m.Count() != 200 {
		t.Fatalf("expected 200 entries, got %d", m.Count())
	}
	v, ok := m.Get(NewInteger(42))
	if !ok || v.(Integer) != 42*42 {
		t.Fatalf("get(42) = %v, %v", v, ok)
	}
	m2 := m.Dissoc(NewInteger(42))
	if _, ok := m2.Get(NewInteger(42)); ok {
		t.Fatal("dissoc should remove the key")
	}
	if _, ok := m.Get(NewInteger(42)); !ok {
		t.Fatal("dissoc must not mutate the receiver")
	}
}

func TestHashMapCollisionHandling(t *testing.T) {
	// Two strings chosen to not collide in practice, but we exercise the
	// collision path indirectly by inserting many keys and checking all
	// remain retrievable.
	m := EmptyHashMap
	keys := make([]*String, 0, 500)
	for i := 0; i < 500; i++ {
		k := NewString(string(rune('a'+i%26)) + string(rune(i)))
		keys = append(keys, k)
		m = m.Assoc(k, NewInteger(int64(i)))
	}
	for i, k := range keys {
		v, ok := m.Get(k)
		if !ok || v.(Integer) != Integer(i) {
			t.Fatalf("key %d missing or wrong value: %v %v", i, v, ok)
		}
	}
}

func TestHashSetConjDisj(t *testing.T) {
	s := EmptyHashSet
	s = s.Conj(NewInteger(1)).(*HashSet)
	s = s.Conj(NewInteger(2)).(*HashSet)
	if !s.Contains(NewInteger(1)) || !s.Contains(NewInteger(2)) {
		t.Fatal("set should contain both elements")
	}
	s2 := s.Disj(NewInteger(1))
	if s2.Contains(NewInteger(1)) {
		t.Fatal("disj should remove the element")
	}
	if !s.Contains(NewInteger(1)) {
		t.Fatal("disj must not mutate the receiver")
	}
}

func TestSortedMapOrdering(t *testing.T) {
	m := NewSortedMap(nil)
	m = m.Assoc(NewInteger(3), NewInteger(30))
	m = m.Assoc(NewInteger(1), NewInteger(10))
	m = m.Assoc(NewInteger(2), NewInteger(20))
	seq := m.Seq()
	var order []int64
	for !seq.IsEmpty() {
		pair := seq.First().(*Vector)
		k, _ := pair.Nth(0)
		order = append(order, int64(k.(Integer)))
		seq = seq.Rest()
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected sorted order, got %v", order)
	}
}

func TestTransientVectorLifecycle(t *testing.T) {
	tv := NewTransientVector(EmptyVector)
	if err := tv.Conj(NewInteger(1)); err != nil {
		t.Fatal(err)
	}
	persisted, err := tv.Persistent()
	if err != nil {
		t.Fatal(err)
	}
	if persisted.Count() != 1 {
		t.Fatal("expected 1 element after persistent!")
	}
	if err := tv.Conj(NewInteger(2)); err == nil {
		t.Fatal("expected error on use-after-persistent!")
	}
}

func TestVarDerefUnbound(t *testing.T) {
	ns := NewNamespace("user")
	v := ns.Intern("x")
	if _, err := v.Deref(nil); err == nil {
		t.Fatal("expected unbound-var error")
	}
	v.BindRoot(NewInteger(10))
	val, err := v.Deref(nil)
	if err != nil || val.(Integer) != 10 {
		t.Fatalf("deref after bind-root failed: %v %v", val, err)
	}
}

func TestNamespaceInternIdempotent(t *testing.T) {
	ns := NewNamespace("user")
	a := ns.Intern("f")
	b := ns.Intern("f")
	if a != b {
		t.Fatal("intern must be idempotent on identity")
	}
}

func TestNamespaceReferFirstWins(t *testing.T) {
	a := NewNamespace("a")
	b := NewNamespace("b")
	a.Intern("shared").BindRoot(NewInteger(1))
	b.Intern("shared").BindRoot(NewInteger(2))

	user := NewNamespace("user")
	user.Refer(a, ReferOptions{})
	user.Refer(b, ReferOptions{})

	v, ok := user.Lookup("shared")
	if !ok {
		t.Fatal("expected shared to be referred")
	}
	if v.Namespace() != a {
		t.Fatal("first refer should win absent :rename or :only")
	}
}

func TestCallableArityDispatch(t *testing.T) {
	c := NewCallable("f")
	c.Arities[0] = func(ctx context.Context, args []Object) (Object, error) {
		return NewInteger(0), nil
	}
	c.MinArity = 1
	c.Variadic = func(ctx context.Context, args []Object) (Object, error) {
		return NewInteger(int64(len(args))), nil
	}

	ctx := context.Background()
	v, err := c.Invoke(ctx, nil)
	if err != nil || v.(Integer) != 0 {
		t.Fatalf("zero-arity call failed: %v %v", v, err)
	}
	v, err = c.Invoke(ctx, []Object{NewInteger(1), NewInteger(2), NewInteger(3)})
	if err != nil || v.(Integer) != 3 {
		t.Fatalf("variadic call failed: %v %v", v, err)
	}
}
