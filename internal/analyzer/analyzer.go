package analyzer

import (
	"context"
	"fmt"

	"github.com/oxhq/corelisp/internal/object"
	"github.com/oxhq/corelisp/internal/reader"
)

// Analyzer is the single component that understands the dialect's
// semantics (spec §4.3 contract). One Analyzer is bound to one current
// namespace; callers construct a fresh one (or call SetNamespace) when
// moving between namespaces, matching the reader/analyzer/codegen
// per-request single-threaded discipline (spec §5).
type Analyzer struct {
	CurrentNS     *object.Namespace
	Registry      NamespaceRegistry
	CoreNamespace string
	Keywords      *object.KeywordTable

	expansions []expansionFrame
	loopDepth  []int // arity of the nearest enclosing loop*/fn*, for recur validation
}

// New constructs an Analyzer over ns, resolving referred/core symbols
// through registry. coreNamespace names the implicit fallback namespace for
// unqualified symbols (spec §4.3 unqualified step 4); pass "" to default to
// "clojure.core".
func New(ns *object.Namespace, registry NamespaceRegistry, coreNamespace string) *Analyzer {
	if coreNamespace == "" {
		coreNamespace = "clojure.core"
	}
	return &Analyzer{
		CurrentNS:     ns,
		Registry:      registry,
		CoreNamespace: coreNamespace,
		Keywords:      object.DefaultKeywords,
	}
}

// Analyze analyzes one top-level form read by the reader.
func (a *Analyzer) Analyze(ctx context.Context, f reader.Form) (*Expr, error) {
	return a.analyzeValue(ctx, NewScope(nil), f.Value, f.Loc)
}

func (a *Analyzer) analyzeValue(ctx context.Context, scope *Scope, v object.Object, loc reader.Location) (*Expr, error) {
	switch val := v.(type) {
	case *object.Symbol:
		return a.analyzeSymbol(scope, val, loc)
	case *object.List:
		return a.analyzeList(ctx, scope, val, loc)
	case *object.Vector:
		return a.analyzeVectorCtor(ctx, scope, val, loc)
	case *object.HashMap:
		return a.analyzeMapCtor(ctx, scope, val, loc)
	case *object.HashSet:
		return a.analyzeSetCtor(ctx, scope, val, loc)
	default:
		return &Expr{Kind: ExprLiteral, Loc: loc, Value: v}, nil
	}
}

func (a *Analyzer) analyzeSymbol(scope *Scope, sym *object.Symbol, loc reader.Location) (*Expr, error) {
	res, ok := a.resolveSymbol(scope, sym)
	if !ok {
		return nil, &UnresolvedSymbolError{Symbol: sym.String(), Loc: loc}
	}
	switch res.kind {
	case resLocal:
		return &Expr{Kind: ExprLocalRef, Loc: loc, LocalName: res.local}, nil
	case resVar:
		return &Expr{Kind: ExprVarDeref, Loc: loc, Var: res.v, Tag: tagOf(res.v)}, nil
	case resCppGlobal:
		return &Expr{Kind: ExprCppValue, Loc: loc, CppScope: res.cppScope, CppName: res.cppName}, nil
	}
	return nil, &UnresolvedSymbolError{Symbol: sym.String(), Loc: loc}
}

func (a *Analyzer) analyzeVectorCtor(ctx context.Context, scope *Scope, v *object.Vector, loc reader.Location) (*Expr, error) {
	items := make([]*Expr, v.Count())
	for i := range items {
		el, _ := v.Nth(i)
		ex, err := a.analyzeValue(ctx, scope, el, loc)
		if err != nil {
			return nil, err
		}
		items[i] = ex
	}
	return &Expr{Kind: ExprVectorCtor, Loc: loc, Items: items}, nil
}

func (a *Analyzer) analyzeSetCtor(ctx context.Context, scope *Scope, s *object.HashSet, loc reader.Location) (*Expr, error) {
	var items []*Expr
	var outerErr error
	s.Range(func(v object.Object) bool {
		ex, err := a.analyzeValue(ctx, scope, v, loc)
		if err != nil {
			outerErr = err
			return false
		}
		items = append(items, ex)
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return &Expr{Kind: ExprSetCtor, Loc: loc, Items: items}, nil
}

// analyzeMapCtor flattens the map into alternating key/value Items
// (keys at even indices), mirroring the source literal's read order.
func (a *Analyzer) analyzeMapCtor(ctx context.Context, scope *Scope, m *object.HashMap, loc reader.Location) (*Expr, error) {
	var items []*Expr
	var outerErr error
	m.Range(func(k, v object.Object) bool {
		kx, err := a.analyzeValue(ctx, scope, k, loc)
		if err != nil {
			outerErr = err
			return false
		}
		vx, err := a.analyzeValue(ctx, scope, v, loc)
		if err != nil {
			outerErr = err
			return false
		}
		items = append(items, kx, vx)
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return &Expr{Kind: ExprMapCtor, Loc: loc, Items: items}, nil
}

func (a *Analyzer) analyzeList(ctx context.Context, scope *Scope, l *object.List, loc reader.Location) (*Expr, error) {
	if l.IsEmpty() {
		return &Expr{Kind: ExprLiteral, Loc: loc, Value: l}, nil
	}
	head := l.First()
	tail := listTail(l)

	if sym, ok := head.(*object.Symbol); ok && !sym.Qualified() {
		if expr, handled, err := a.analyzeSpecialForm(ctx, scope, sym.Name, tail, loc); handled {
			return expr, err
		}
		if v, ok := a.CurrentNS.Lookup(sym.Name); ok && v.IsMacro() {
			return a.analyzeMacroCall(ctx, scope, v, tail, loc)
		}
	}
	if sym, ok := head.(*object.Symbol); ok && sym.Qualified() {
		if expr, handled, err := a.analyzeInteropCall(ctx, scope, sym, tail, loc); handled {
			return expr, err
		}
	}
	return a.analyzeInvoke(ctx, scope, head, tail, loc)
}

func listTail(l *object.List) []object.Object {
	var out []object.Object
	rest := l.Rest()
	for !rest.IsEmpty() {
		out = append(out, rest.First())
		rest = rest.Rest()
	}
	return out
}

func (a *Analyzer) analyzeMacroCall(ctx context.Context, scope *Scope, v *object.Var, tail []object.Object, loc reader.Location) (*Expr, error) {
	pop := a.pushExpansion(v, loc)
	defer pop()
	expanded, err := a.expandMacro(ctx, v, tail)
	if err != nil {
		return nil, fmt.Errorf("macroexpand %s: %w", v.String(), err)
	}
	return a.analyzeValue(ctx, scope, expanded, a.outermostLocation(loc))
}

func (a *Analyzer) analyzeInvoke(ctx context.Context, scope *Scope, head object.Object, tail []object.Object, loc reader.Location) (*Expr, error) {
	calleeExpr, err := a.analyzeValue(ctx, scope, head, loc)
	if err != nil {
		return nil, err
	}
	args := make([]*Expr, len(tail))
	for i, t := range tail {
		ax, err := a.analyzeValue(ctx, scope, t, loc)
		if err != nil {
			return nil, err
		}
		args[i] = autoUnboxIfOperator(calleeExpr, ax)
	}
	return &Expr{Kind: ExprInvoke, Loc: loc, Callee: calleeExpr, Args: args}, nil
}

// autoUnboxIfOperator applies spec §4.3's auto-unboxing rule to an invoke
// argument when the callee itself classified as a C++ builtin operator.
func autoUnboxIfOperator(callee *Expr, arg *Expr) *Expr {
	if callee.Kind == ExprCppBuiltinOp {
		return autoUnbox(arg)
	}
	return arg
}
