package analyzer

import (
	"context"

	"github.com/oxhq/corelisp/internal/object"
	"github.com/oxhq/corelisp/internal/reader"
)

// analyzeSpecialForm dispatches on a special-form name. handled is false
// when name isn't a special form at all, so the caller falls through to
// macro lookup / generic invoke.
func (a *Analyzer) analyzeSpecialForm(ctx context.Context, scope *Scope, name string, tail []object.Object, loc reader.Location) (*Expr, bool, error) {
	switch name {
	case "quote":
		if len(tail) != 1 {
			return nil, true, &WrongArityError{Form: "quote", Got: len(tail), Loc: loc}
		}
		return &Expr{Kind: ExprQuote, Loc: loc, Value: tail[0]}, true, nil
	case "if":
		e, err := a.analyzeIf(ctx, scope, tail, loc)
		return e, true, err
	case "do":
		e, err := a.analyzeDo(ctx, scope, tail, loc)
		return e, true, err
	case "let*":
		e, err := a.analyzeLet(ctx, scope, tail, loc, false)
		return e, true, err
	case "letfn*":
		e, err := a.analyzeLet(ctx, scope, tail, loc, true)
		return e, true, err
	case "loop*":
		e, err := a.analyzeLoop(ctx, scope, tail, loc)
		return e, true, err
	case "recur":
		e, err := a.analyzeRecur(ctx, scope, tail, loc)
		return e, true, err
	case "fn*":
		e, err := a.analyzeFn(ctx, scope, tail, loc)
		return e, true, err
	case "def":
		e, err := a.analyzeDef(ctx, scope, tail, loc)
		return e, true, err
	case "var":
		e, err := a.analyzeVarForm(tail, loc)
		return e, true, err
	case "try":
		e, err := a.analyzeTry(ctx, scope, tail, loc)
		return e, true, err
	case "throw":
		e, err := a.analyzeThrow(ctx, scope, tail, loc)
		return e, true, err
	case "cpp-raw":
		e, err := a.analyzeCppRaw(tail, loc)
		return e, true, err
	case ".":
		e, err := a.analyzeCppMemberCall(ctx, scope, tail, loc)
		return e, true, err
	case ".-":
		e, err := a.analyzeCppMemberAccess(ctx, scope, tail, loc)
		return e, true, err
	}
	return nil, false, nil
}

func (a *Analyzer) analyzeBody(ctx context.Context, scope *Scope, forms []object.Object, loc reader.Location) ([]*Expr, error) {
	out := make([]*Expr, len(forms))
	for i, f := range forms {
		ex, err := a.analyzeValue(ctx, scope, f, loc)
		if err != nil {
			return nil, err
		}
		out[i] = ex
	}
	return out, nil
}

func (a *Analyzer) analyzeIf(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location) (*Expr, error) {
	if len(tail) != 2 && len(tail) != 3 {
		return nil, &WrongArityError{Form: "if", Got: len(tail), Loc: loc}
	}
	test, err := a.analyzeValue(ctx, scope, tail[0], loc)
	if err != nil {
		return nil, err
	}
	then, err := a.analyzeValue(ctx, scope, tail[1], loc)
	if err != nil {
		return nil, err
	}
	var elseExpr *Expr
	if len(tail) == 3 {
		elseExpr, err = a.analyzeValue(ctx, scope, tail[2], loc)
		if err != nil {
			return nil, err
		}
	} else {
		elseExpr = &Expr{Kind: ExprLiteral, Loc: loc, Value: object.Nil}
	}
	return &Expr{Kind: ExprIf, Loc: loc, Test: test, Then: then, Else: elseExpr}, nil
}

func (a *Analyzer) analyzeDo(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location) (*Expr, error) {
	body, err := a.analyzeBody(ctx, scope, tail, loc)
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: ExprDo, Loc: loc, Body: body}, nil
}

// analyzeLet handles both let* (sequential, non-recursive bindings) and
// letfn* (mutually recursive function bindings: all names are bound in
// scope before any init is analyzed).
func (a *Analyzer) analyzeLet(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location, recursive bool) (*Expr, error) {
	if len(tail) < 1 {
		return nil, &InvalidFnParamError{Reason: "let requires a binding vector", Loc: loc}
	}
	bindVec, ok := tail[0].(*object.Vector)
	if !ok || bindVec.Count()%2 != 0 {
		return nil, &InvalidFnParamError{Reason: "binding form must be an even-length vector", Loc: loc}
	}
	inner := NewScope(scope)
	n := bindVec.Count() / 2
	names := make([]string, n)
	inits := make([]object.Object, n)
	for i := 0; i < n; i++ {
		nameObj, _ := bindVec.Nth(2 * i)
		initObj, _ := bindVec.Nth(2*i + 1)
		sym, ok := nameObj.(*object.Symbol)
		if !ok || sym.Qualified() {
			return nil, &InvalidFnParamError{Reason: "binding name must be an unqualified symbol", Loc: loc}
		}
		names[i] = sym.Name
		inits[i] = initObj
		if recursive {
			inner.Bind(sym.Name)
		}
	}
	bindings := make([]Binding, n)
	for i := 0; i < n; i++ {
		initExpr, err := a.analyzeValue(ctx, inner, inits[i], loc)
		if err != nil {
			return nil, err
		}
		bindings[i] = Binding{Name: names[i], Init: initExpr}
		if !recursive {
			inner.Bind(names[i])
		}
	}
	body, err := a.analyzeBody(ctx, inner, tail[1:], loc)
	if err != nil {
		return nil, err
	}
	kind := ExprLet
	if recursive {
		kind = ExprLetFn
	}
	return &Expr{Kind: kind, Loc: loc, Bindings: bindings, Body: body}, nil
}

func (a *Analyzer) analyzeLoop(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location) (*Expr, error) {
	if len(tail) < 1 {
		return nil, &InvalidFnParamError{Reason: "loop requires a binding vector", Loc: loc}
	}
	bindVec, ok := tail[0].(*object.Vector)
	if !ok || bindVec.Count()%2 != 0 {
		return nil, &InvalidFnParamError{Reason: "binding form must be an even-length vector", Loc: loc}
	}
	inner := NewScope(scope)
	n := bindVec.Count() / 2
	bindings := make([]Binding, n)
	for i := 0; i < n; i++ {
		nameObj, _ := bindVec.Nth(2 * i)
		initObj, _ := bindVec.Nth(2*i + 1)
		sym, ok := nameObj.(*object.Symbol)
		if !ok || sym.Qualified() {
			return nil, &InvalidFnParamError{Reason: "binding name must be an unqualified symbol", Loc: loc}
		}
		initExpr, err := a.analyzeValue(ctx, inner, initObj, loc)
		if err != nil {
			return nil, err
		}
		bindings[i] = Binding{Name: sym.Name, Init: initExpr}
		inner.Bind(sym.Name)
	}
	a.loopDepth = append(a.loopDepth, n)
	body, err := a.analyzeBody(ctx, inner, tail[1:], loc)
	a.loopDepth = a.loopDepth[:len(a.loopDepth)-1]
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: ExprLoop, Loc: loc, Bindings: bindings, Body: body}, nil
}

func (a *Analyzer) analyzeRecur(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location) (*Expr, error) {
	if len(a.loopDepth) == 0 {
		return nil, &InvalidRecurError{Reason: "recur outside loop*/fn*", Loc: loc}
	}
	want := a.loopDepth[len(a.loopDepth)-1]
	if len(tail) != want {
		return nil, &InvalidRecurError{Reason: "argument count does not match enclosing loop* arity", Loc: loc}
	}
	args, err := a.analyzeBody(ctx, scope, tail, loc)
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: ExprRecur, Loc: loc, RecurArgs: args}, nil
}

func (a *Analyzer) analyzeFn(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location) (*Expr, error) {
	if len(tail) == 0 {
		return nil, &InvalidFnParamError{Reason: "fn* requires at least one arity", Loc: loc}
	}
	name := ""
	rest := tail
	if sym, ok := tail[0].(*object.Symbol); ok {
		name = sym.Name
		rest = tail[1:]
	}
	if len(rest) == 0 {
		return nil, &InvalidFnParamError{Reason: "fn* requires a parameter vector or at least one arity", Loc: loc}
	}
	// Normalize to a list of (params body...) arity forms: either a single
	// ([params] body...) shape, or one-or-more (([params] body...) ...).
	var arityForms [][]object.Object
	if _, ok := rest[0].(*object.Vector); ok {
		arityForms = [][]object.Object{rest}
	} else {
		for _, f := range rest {
			l, ok := f.(*object.List)
			if !ok {
				return nil, &InvalidFnParamError{Reason: "each fn* arity must be a list", Loc: loc}
			}
			arityForms = append(arityForms, listAll(l))
		}
	}

	fn := &FnExpr{Name: name}
	for _, af := range arityForms {
		if len(af) < 1 {
			return nil, &InvalidFnParamError{Reason: "arity missing parameter vector", Loc: loc}
		}
		paramsVec, ok := af[0].(*object.Vector)
		if !ok {
			return nil, &InvalidFnParamError{Reason: "parameter list must be a vector", Loc: loc}
		}
		params, variadic, err := parseParams(paramsVec, loc)
		if err != nil {
			return nil, err
		}
		inner := NewScope(scope)
		for _, p := range params {
			inner.Bind(p)
		}
		a.loopDepth = append(a.loopDepth, len(params))
		body, err := a.analyzeBody(ctx, inner, af[1:], loc)
		a.loopDepth = a.loopDepth[:len(a.loopDepth)-1]
		if err != nil {
			return nil, err
		}
		arity := Arity{Params: params, Body: body}
		if variadic {
			fn.Variadic = &arity
		} else {
			fn.Arities = append(fn.Arities, arity)
		}
	}
	return &Expr{Kind: ExprFn, Loc: loc, Fn: fn}, nil
}

func listAll(l *object.List) []object.Object {
	var out []object.Object
	var n object.Seq = l
	for !n.IsEmpty() {
		out = append(out, n.First())
		n = n.Rest()
	}
	return out
}

// parseParams validates a fn*/loop* parameter vector: plain symbols, with
// an optional trailing `& rest` variadic marker (spec §4.3 fn* arities).
func parseParams(v *object.Vector, loc reader.Location) ([]string, bool, error) {
	var params []string
	variadic := false
	for i := 0; i < v.Count(); i++ {
		item, _ := v.Nth(i)
		sym, ok := item.(*object.Symbol)
		if !ok || sym.Qualified() {
			return nil, false, &InvalidFnParamError{Reason: "parameter must be an unqualified symbol", Loc: loc}
		}
		if sym.Name == "&" {
			if i != v.Count()-2 {
				return nil, false, &InvalidFnParamError{Reason: "& must be followed by exactly one rest parameter", Loc: loc}
			}
			variadic = true
			continue
		}
		params = append(params, sym.Name)
	}
	return params, variadic, nil
}

func (a *Analyzer) analyzeDef(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location) (*Expr, error) {
	if len(tail) < 1 || len(tail) > 2 {
		return nil, &InvalidDefError{Reason: "def takes a symbol and an optional init", Loc: loc}
	}
	sym, ok := tail[0].(*object.Symbol)
	if !ok || sym.Qualified() {
		return nil, &InvalidDefError{Reason: "def target must be an unqualified symbol", Loc: loc}
	}
	defLoc := a.outermostLocation(loc)
	v := a.CurrentNS.Intern(sym.Name)
	if sym.Meta != nil {
		v.SetMeta(v.Meta().Merge(sym.Meta))
	}
	var initExpr *Expr
	if len(tail) == 2 {
		var err error
		initExpr, err = a.analyzeValue(ctx, scope, tail[1], loc)
		if err != nil {
			return nil, err
		}
	}
	return &Expr{
		Kind:    ExprDef,
		Loc:     defLoc,
		DefName: sym.Name,
		DefNs:   a.CurrentNS,
		DefInit: initExpr,
		DefVar:  v,
		DefMeta: v.Meta(),
	}, nil
}

func (a *Analyzer) analyzeVarForm(tail []object.Object, loc reader.Location) (*Expr, error) {
	if len(tail) != 1 {
		return nil, &WrongArityError{Form: "var", Got: len(tail), Loc: loc}
	}
	sym, ok := tail[0].(*object.Symbol)
	if !ok {
		return nil, &InvalidDefError{Reason: "var requires a symbol argument", Loc: loc}
	}
	ns := a.CurrentNS
	name := sym.Name
	if sym.Qualified() {
		if target, ok := a.Registry.Find(sym.Ns); ok {
			ns = target
		}
	}
	v, ok := ns.Lookup(name)
	if !ok {
		return nil, &UnresolvedSymbolError{Symbol: sym.String(), Loc: loc}
	}
	return &Expr{Kind: ExprVarRef, Loc: loc, Var: v}, nil
}

func (a *Analyzer) analyzeTry(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location) (*Expr, error) {
	var body []object.Object
	var catches []CatchClause
	var finallyBody []object.Object
	for _, f := range tail {
		l, ok := f.(*object.List)
		if ok && !l.IsEmpty() {
			if sym, ok := l.First().(*object.Symbol); ok && sym.Name == "catch" {
				items := listAll(l)
				if len(items) < 3 {
					return nil, &InvalidDefError{Reason: "catch requires an exception tag, a binding, and a body", Loc: loc}
				}
				tagSym, _ := items[1].(*object.Symbol)
				bindSym, ok := items[2].(*object.Symbol)
				if !ok {
					return nil, &InvalidDefError{Reason: "catch binding must be a symbol", Loc: loc}
				}
				inner := NewScope(scope)
				inner.Bind(bindSym.Name)
				catchBody, err := a.analyzeBody(ctx, inner, items[3:], loc)
				if err != nil {
					return nil, err
				}
				tagName := ""
				if tagSym != nil {
					tagName = tagSym.Name
				}
				catches = append(catches, CatchClause{ExceptionTag: tagName, Binding: bindSym.Name, Body: catchBody})
				continue
			}
			if sym, ok := l.First().(*object.Symbol); ok && sym.Name == "finally" {
				finallyBody = listAll(l)[1:]
				continue
			}
		}
		body = append(body, f)
	}
	bodyExprs, err := a.analyzeBody(ctx, scope, body, loc)
	if err != nil {
		return nil, err
	}
	var finallyExprs []*Expr
	if finallyBody != nil {
		finallyExprs, err = a.analyzeBody(ctx, scope, finallyBody, loc)
		if err != nil {
			return nil, err
		}
	}
	return &Expr{Kind: ExprTry, Loc: loc, Body: bodyExprs, Catches: catches, Finally: finallyExprs}, nil
}

func (a *Analyzer) analyzeThrow(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location) (*Expr, error) {
	if len(tail) != 1 {
		return nil, &WrongArityError{Form: "throw", Got: len(tail), Loc: loc}
	}
	thrown, err := a.analyzeValue(ctx, scope, tail[0], loc)
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: ExprThrow, Loc: loc, Thrown: thrown}, nil
}

func (a *Analyzer) analyzeCppRaw(tail []object.Object, loc reader.Location) (*Expr, error) {
	if len(tail) != 1 {
		return nil, &WrongArityError{Form: "cpp-raw", Got: len(tail), Loc: loc}
	}
	s, ok := tail[0].(*object.String)
	if !ok {
		return nil, &InvalidInteropCallError{Reason: "cpp-raw requires a string literal", Loc: loc}
	}
	return &Expr{Kind: ExprCppRaw, Loc: loc, CppRaw: s.Value()}, nil
}
