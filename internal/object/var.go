package object

import (
	"context"
	"fmt"
	"sync"
)

// Var is a named mutable cell within a namespace (spec §3/§4.1). Go has no
// first-class thread-local storage, so the "per-thread binding stack" is
// modeled explicitly via context.Context rather than implicit goroutine-
// local state: Bind pushes a frame by returning a derived context, and the
// binding is lexically popped simply by the caller resuming the parent
// context once the dynamic extent ends — the same push/pop discipline the
// spec describes, expressed through Go's existing context-threading idiom
// instead of invented thread-local plumbing (spec §9: "all APIs should
// accept an explicit context reference").
type Var struct {
	ns   *Namespace
	name string
	meta Meta

	mu   sync.Mutex
	root Object
	set  bool
}

func newVar(ns *Namespace, name string) *Var {
	return &Var{ns: ns, name: name, meta: make(Meta)}
}

func (v *Var) Kind() Kind              { return KindVar }
func (v *Var) Equal(other Object) bool { return v == other }
func (v *Var) Hash() uint64            { return fnvHash(v.ns.name) ^ fnvHash(v.name)<<1 }
func (v *Var) String() string          { return fmt.Sprintf("#'%s/%s", v.ns.name, v.name) }

// Namespace returns the namespace that interned this var — always the
// interning namespace, even when referenced via another (spec invariant
// 4 and §3 var semantics).
func (v *Var) Namespace() *Namespace { return v.ns }
func (v *Var) Name() string          { return v.name }
func (v *Var) Meta() Meta            { return v.meta }
func (v *Var) SetMeta(m Meta)        { v.meta = m }

// AlterRoot atomically replaces the var's root value with f(current).
func (v *Var) AlterRoot(f func(Object) Object) Object {
	v.mu.Lock()
	defer v.mu.Unlock()
	var cur Object = Nil
	if v.set {
		cur = v.root
	}
	v.root = f(cur)
	v.set = true
	return v.root
}

// BindRoot rebinds the root value directly, preserving the var's identity
// (re-def semantics: spec lifecycle "re-defining rebinds root, preserves
// identity").
func (v *Var) BindRoot(val Object) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.root = val
	v.set = true
}

type bindingsKey struct{}

type bindingFrame struct {
	v      *Var
	val    Object
	parent *bindingFrame
}

// Bind returns a context carrying a new dynamic binding of v to val, on top
// of whatever bindings ctx already carries. The binding is visible to Deref
// calls made with the returned context (or any context derived from it)
// until the caller stops propagating it — the lexical pop is implicit in
// not passing the returned context back out of the dynamic extent.
func Bind(ctx context.Context, v *Var, val Object) context.Context {
	top, _ := ctx.Value(bindingsKey{}).(*bindingFrame)
	return context.WithValue(ctx, bindingsKey{}, &bindingFrame{v: v, val: val, parent: top})
}

// Deref returns the top of ctx's thread-binding stack for v if present,
// else v's root, else UnboundVarError (spec §4.1).
func (v *Var) Deref(ctx context.Context) (Object, error) {
	if ctx != nil {
		frame, _ := ctx.Value(bindingsKey{}).(*bindingFrame)
		for f := frame; f != nil; f = f.parent {
			if f.v == v {
				return f.val, nil
			}
		}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.set {
		return v.root, nil
	}
	return nil, &UnboundVarError{Ns: v.ns.name, Name: v.name}
}

// IsBound reports whether v has a root value or a binding in ctx.
func (v *Var) IsBound(ctx context.Context) bool {
	_, err := v.Deref(ctx)
	return err == nil
}

// IsMacro reports whether the var's metadata carries the macro marker
// (spec §4.3 macro expansion trigger).
func (v *Var) IsMacro() bool {
	kw := InternKeyword("", "macro")
	val, ok := v.meta[kw.String()]
	return ok && val.Equal(True)
}
