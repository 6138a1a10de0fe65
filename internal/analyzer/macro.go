package analyzer

import (
	"context"

	"github.com/oxhq/corelisp/internal/object"
	"github.com/oxhq/corelisp/internal/reader"
)

// expansionFrame records one macro-expansion step so that def metadata can
// walk back to the outermost call site with a real source location (spec
// §4.3: "attaching file/line/column to a new var, walk up the expansion
// stack and use the outermost form's location that has a non-placeholder
// file path").
type expansionFrame struct {
	macro *object.Var
	loc   reader.Location
}

// placeholderOrigin marks a location synthesized by the analyzer itself
// (e.g. inside a macro's own implementation) rather than read from real
// source text.
const placeholderOrigin = "<macroexpansion>"

// pushExpansion records a macro call and returns a function to pop it once
// the expansion's re-analysis completes.
func (a *Analyzer) pushExpansion(v *object.Var, loc reader.Location) func() {
	a.expansions = append(a.expansions, expansionFrame{macro: v, loc: loc})
	return func() { a.expansions = a.expansions[:len(a.expansions)-1] }
}

// outermostLocation returns the outermost (earliest pushed) frame on the
// expansion stack whose location has a real (non-placeholder) origin,
// falling back to loc itself when no frame qualifies.
func (a *Analyzer) outermostLocation(loc reader.Location) reader.Location {
	for _, f := range a.expansions {
		if f.loc.Origin != "" && f.loc.Origin != placeholderOrigin {
			return f.loc
		}
	}
	return loc
}

// expandMacro invokes a macro var's underlying callable against the form's
// unevaluated tail, per spec §4.3: "calls the macro's function with the
// form's tail and the caller's namespace". The macro receives the calling
// *object.Namespace itself as its first argument, followed by the tail, so
// pure object.Callable implementations don't need a dedicated
// namespace-aware signature.
func (a *Analyzer) expandMacro(ctx context.Context, v *object.Var, tail []object.Object) (object.Object, error) {
	root, err := v.Deref(ctx)
	if err != nil {
		return nil, err
	}
	callable, ok := root.(*object.Callable)
	if !ok {
		return nil, &object.NotCallableError{Kind: root.Kind()}
	}
	args := make([]object.Object, 0, len(tail)+1)
	args = append(args, a.CurrentNS)
	args = append(args, tail...)
	return callable.Invoke(ctx, args)
}
