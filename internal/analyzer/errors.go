package analyzer

import (
	"fmt"

	"github.com/oxhq/corelisp/internal/reader"
)

// UnresolvedSymbolError reports a symbol that resolved against none of the
// lookup steps in spec §4.3's resolution order.
type UnresolvedSymbolError struct {
	Symbol string
	Loc    reader.Location
}

func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("unresolved-symbol: %s at %s:%d:%d", e.Symbol, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// InvalidDefError reports a malformed `def` form.
type InvalidDefError struct {
	Reason string
	Loc    reader.Location
}

func (e *InvalidDefError) Error() string {
	return fmt.Sprintf("invalid-def: %s at %s:%d:%d", e.Reason, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// InvalidFnParamError reports a fn* parameter list that isn't a vector of
// symbols (plus at most one `&` variadic marker).
type InvalidFnParamError struct {
	Reason string
	Loc    reader.Location
}

func (e *InvalidFnParamError) Error() string {
	return fmt.Sprintf("invalid-fn-param: %s at %s:%d:%d", e.Reason, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// InvalidRecurError reports a recur whose argument count doesn't match its
// enclosing loop*/fn* arity, or one that appears outside any enclosing
// loop*/fn*.
type InvalidRecurError struct {
	Reason string
	Loc    reader.Location
}

func (e *InvalidRecurError) Error() string {
	return fmt.Sprintf("invalid-recur: %s at %s:%d:%d", e.Reason, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// InvalidCppUnboxError reports an unboxing attempt against a non-primitive
// or against a type with no known native representation.
type InvalidCppUnboxError struct {
	Reason string
	Loc    reader.Location
}

func (e *InvalidCppUnboxError) Error() string {
	return fmt.Sprintf("invalid-cpp-unbox: %s at %s:%d:%d", e.Reason, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// InvalidInteropCallError reports a C++ interop call that couldn't be
// classified (spec §4.3: "by argument count ... otherwise global/member
// call").
type InvalidInteropCallError struct {
	Reason string
	Loc    reader.Location
}

func (e *InvalidInteropCallError) Error() string {
	return fmt.Sprintf("invalid-interop-call: %s at %s:%d:%d", e.Reason, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// TypeMismatchError reports an expression whose inferred type tag
// contradicts the context it's used in.
type TypeMismatchError struct {
	Want, Got string
	Loc       reader.Location
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type-mismatch: want %s, got %s at %s:%d:%d", e.Want, e.Got, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// WrongArityError reports a special form invoked with an unsupported
// number of arguments (distinct from object.WrongArityError, which is a
// runtime-level error raised by Callable.Invoke).
type WrongArityError struct {
	Form string
	Got  int
	Loc  reader.Location
}

func (e *WrongArityError) Error() string {
	return fmt.Sprintf("wrong-arity: %s called with %d arguments at %s:%d:%d", e.Form, e.Got, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}
