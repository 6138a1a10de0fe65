package analyzer

import (
	"context"
	"unicode"

	"github.com/oxhq/corelisp/internal/object"
	"github.com/oxhq/corelisp/internal/reader"
)

// analyzeInteropCall recognizes a qualified symbol call `(scope/name
// args...)` whose head resolves to a C++ scope (either a registered
// native-header alias or the reserved `cpp` prefix) and classifies it per
// spec §4.3's argument-count rule, rather than falling through to a
// generic dynamic invoke.
func (a *Analyzer) analyzeInteropCall(ctx context.Context, scope *Scope, sym *object.Symbol, tail []object.Object, loc reader.Location) (*Expr, bool, error) {
	res, ok := a.resolveQualified(sym)
	if !ok || res.kind != resCppGlobal {
		return nil, false, nil
	}
	args, err := a.analyzeBody(ctx, scope, tail, loc)
	if err != nil {
		return nil, true, err
	}
	isClassScope := startsUpper(res.cppName)
	kind := classifyInteropCall(res.cppScope, res.cppName, len(args), isClassScope)
	for i, ag := range args {
		args[i] = autoUnbox(ag)
	}
	switch kind {
	case ExprCppValue:
		return &Expr{Kind: ExprCppValue, Loc: loc, CppScope: res.cppScope, CppName: res.cppName}, true, nil
	case ExprCppNew:
		return &Expr{Kind: ExprCppNew, Loc: loc, CppScope: res.cppScope, CppName: res.cppName, CppArgs: args}, true, nil
	case ExprCppBuiltinOp:
		return &Expr{Kind: ExprCppBuiltinOp, Loc: loc, CppScope: res.cppScope, CppName: res.cppName, CppArgs: args}, true, nil
	default:
		return &Expr{Kind: ExprCppGlobalCall, Loc: loc, CppScope: res.cppScope, CppName: res.cppName, CppArgs: args}, true, nil
	}
}

func startsUpper(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}

// analyzeCppMemberCall handles `(. target method args...)`.
func (a *Analyzer) analyzeCppMemberCall(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location) (*Expr, error) {
	if len(tail) < 2 {
		return nil, &InvalidInteropCallError{Reason: "member call requires a target and a method name", Loc: loc}
	}
	target, err := a.analyzeValue(ctx, scope, tail[0], loc)
	if err != nil {
		return nil, err
	}
	methodSym, ok := tail[1].(*object.Symbol)
	if !ok {
		return nil, &InvalidInteropCallError{Reason: "method name must be a symbol", Loc: loc}
	}
	args, err := a.analyzeBody(ctx, scope, tail[2:], loc)
	if err != nil {
		return nil, err
	}
	for i, ag := range args {
		args[i] = autoUnbox(ag)
	}
	return &Expr{Kind: ExprCppMemberCall, Loc: loc, CppTarget: target, CppName: methodSym.Name, CppArgs: args}, nil
}

// analyzeCppMemberAccess handles `(.- target field)`.
func (a *Analyzer) analyzeCppMemberAccess(ctx context.Context, scope *Scope, tail []object.Object, loc reader.Location) (*Expr, error) {
	if len(tail) != 2 {
		return nil, &InvalidInteropCallError{Reason: "member access requires exactly a target and a field name", Loc: loc}
	}
	target, err := a.analyzeValue(ctx, scope, tail[0], loc)
	if err != nil {
		return nil, err
	}
	fieldSym, ok := tail[1].(*object.Symbol)
	if !ok {
		return nil, &InvalidInteropCallError{Reason: "field name must be a symbol", Loc: loc}
	}
	return &Expr{Kind: ExprCppMemberAccess, Loc: loc, CppTarget: target, CppName: fieldSym.Name}, nil
}
