package object

import (
	"context"
	"fmt"
)

// Arity identifies a fixed parameter count, or the variadic tail arity
// (spec §3: "arities 0..10 and variadic").
const VariadicArity = -1

// Fn is the Go-level implementation behind a compiled function, multimethod
// dispatch object, or user-type callable (spec §3 "callable"). Polymorphic
// call-site behavior is registered per type rather than modeled as a deep
// interface hierarchy (spec §9).
type Fn func(ctx context.Context, args []Object) (Object, error)

// Callable is a polymorphic call site. Variadic functions advertise
// MinArity as the fixed prefix length; fixed-arity functions list every
// supported arity explicitly so wrong-arity can be detected before
// invocation.
type Callable struct {
	Name      string
	Arities   map[int]Fn // fixed-arity implementations, keyed by arg count
	Variadic  Fn         // non-nil if this callable accepts a variadic tail
	MinArity  int        // minimum arg count accepted by Variadic
	Meta      Meta
}

func NewCallable(name string) *Callable {
	return &Callable{Name: name, Arities: make(map[int]Fn)}
}

func (c *Callable) Kind() Kind              { return KindCallable }
func (c *Callable) Equal(other Object) bool { return c == other }
func (c *Callable) Hash() uint64            { return fnvHash(c.Name) }
func (c *Callable) String() string          { return fmt.Sprintf("#<fn %s>", c.Name) }

// WrongArityError reports an arity not supported by the callable.
type WrongArityError struct {
	Name  string
	Got   int
}

func (e *WrongArityError) Error() string {
	return fmt.Sprintf("wrong-arity: %s called with %d arguments", e.Name, e.Got)
}

// NotCallableError is thrown when Invoke is attempted on a non-callable
// object (spec §7 runtime errors).
type NotCallableError struct{ Kind Kind }

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("not-callable: value of kind %s is not callable", e.Kind)
}

// Invoke dispatches to the matching fixed arity, falling back to the
// variadic implementation when len(args) >= MinArity. Ten-argument
// fixed-arity calls and the eleventh-argument overflow into the variadic
// tail are both exercised by this single dispatch path (spec §8 boundary
// behaviors).
func (c *Callable) Invoke(ctx context.Context, args []Object) (Object, error) {
	if fn, ok := c.Arities[len(args)]; ok {
		return fn(ctx, args)
	}
	if c.Variadic != nil && len(args) >= c.MinArity {
		return c.Variadic(ctx, args)
	}
	return nil, &WrongArityError{Name: c.Name, Got: len(args)}
}

// Invoke is a free function so non-Callable objects that register their own
// call-site table entry (spec §9: "a user-defined type that wishes to be
// callable registers its call-site table entry") can still be invoked
// uniformly.
func Invoke(ctx context.Context, callee Object, args []Object) (Object, error) {
	if c, ok := callee.(*Callable); ok {
		return c.Invoke(ctx, args)
	}
	if cs, ok := callSiteTable[callee.Kind()]; ok {
		return cs(ctx, callee, args)
	}
	return nil, &NotCallableError{Kind: callee.Kind()}
}

// CallSite is the signature a user type registers to become callable
// without being a *Callable itself.
type CallSite func(ctx context.Context, self Object, args []Object) (Object, error)

var callSiteTable = map[Kind]CallSite{}

// RegisterCallSite installs a call-site implementation for kind k. Intended
// for user-defined types layered on top of the closed Kind variant via the
// OpaqueBox escape hatch.
func RegisterCallSite(k Kind, cs CallSite) {
	callSiteTable[k] = cs
}
