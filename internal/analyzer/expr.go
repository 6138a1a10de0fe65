// Package analyzer turns reader forms into a typed expression tree, the
// single component that understands the dialect's semantics (spec §4.3).
// Codegen, by contrast, is mechanical: it never makes a semantic decision
// the analyzer hasn't already encoded into the tree.
package analyzer

import (
	"github.com/oxhq/corelisp/internal/object"
	"github.com/oxhq/corelisp/internal/reader"
)

// ExprKind is the closed variant of expression node kinds the analyzer can
// produce (spec §4.3 "Expression kinds").
type ExprKind int

const (
	ExprLiteral ExprKind = iota
	ExprVectorCtor
	ExprMapCtor
	ExprSetCtor
	ExprIf
	ExprDo
	ExprLet
	ExprLetFn
	ExprLoop
	ExprRecur
	ExprFn
	ExprDef
	ExprVarRef
	ExprVarDeref
	ExprLocalRef
	ExprInvoke
	ExprTry
	ExprThrow
	ExprQuote
	ExprCppRaw
	ExprCppValue
	ExprCppNew
	ExprCppMemberAccess
	ExprCppMemberCall
	ExprCppGlobalCall
	ExprCppBuiltinOp
	ExprCppCast
	ExprCppUnbox
)

// Expr is one node of the analyzed expression tree. Every node carries its
// originating source location (propagated from the reader, or inherited
// from the expanding macro call per the expansion-stack rule) and, where
// applicable, an inferred C++ type tag driving interop unboxing decisions
// (spec §4.3 ":tag metadata").
type Expr struct {
	Kind ExprKind
	Loc  reader.Location

	// Literal / Quote
	Value object.Object

	// Ctor (vector/map/set)
	Items []*Expr

	// If
	Test, Then, Else *Expr

	// Do / Try body, Let/LetFn/Loop bindings+body
	Body     []*Expr
	Bindings []Binding

	// Fn
	Fn *FnExpr

	// Def
	DefName   string
	DefNs     *object.Namespace
	DefInit   *Expr
	DefVar    *object.Var
	DefMeta   object.Meta

	// VarRef / VarDeref
	Var *object.Var

	// LocalRef
	LocalName string

	// Invoke
	Callee *Expr
	Args   []*Expr

	// Recur
	RecurArgs []*Expr

	// Try/Catch
	Catches []CatchClause
	Finally []*Expr

	// Throw
	Thrown *Expr

	// Cpp*
	CppScope   string // native header alias / scope prefix, or "" for `cpp` global
	CppName    string // member/global/new target name
	CppTarget  *Expr  // receiver for member access/call
	CppArgs    []*Expr
	CppVariadic bool
	CppVoid    bool // whether this call's return type is void (spec: "untyped object")
	CppRaw     string

	Cast *CastInfo

	// Tag is the inferred C++ type this expression's value should be
	// treated as at interop use-sites (spec §4.3 ":tag metadata").
	Tag string
}

// Binding is one let*/letfn*/loop* binding pair.
type Binding struct {
	Name string
	Init *Expr
}

// FnExpr describes one fn* literal: a set of arities, each with its own
// parameter list and body, plus an optional variadic tail arity.
type FnExpr struct {
	Name     string // empty for anonymous fns
	Arities  []Arity
	Variadic *Arity
}

// Arity is one parameter-list/body pair within a fn*.
type Arity struct {
	Params []string
	Body   []*Expr
}

// CatchClause is one catch clause of a try expression.
type CatchClause struct {
	ExceptionTag string
	Binding      string
	Body         []*Expr
}

// CastInfo describes an ExprCppCast node: the object.CastPolicy applied,
// the native C++ type converted to or from, and the wrapped expression.
type CastInfo struct {
	Policy     object.CastPolicy
	NativeType string
	Inner      *Expr
}
