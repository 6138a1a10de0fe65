package analyzer

import (
	"github.com/oxhq/corelisp/internal/object"
	"github.com/oxhq/corelisp/internal/reader"
)

// nativeNumericTag reports the native numeric type a builtin operator
// expects for a boxed primitive literal: "long" for integers, "double" for
// reals (spec §4.3 auto-unboxing rule).
func nativeNumericTag(e *Expr) (string, bool) {
	if e.Kind != ExprLiteral {
		return "", false
	}
	switch e.Value.(type) {
	case object.Integer:
		return "long", true
	case object.Real:
		return "double", true
	}
	return "", false
}

// autoUnbox wraps e in a from-object cpp-cast when it is a boxed primitive
// literal being consumed by a builtin operator or an overloaded
// operator[], per spec §4.3's "auto-unboxing of primitive literals" rule.
// An ExprLocalRef is unboxed only when it already carries a Tag; local
// references produced by symbol analysis carry no Tag, so a let-bound
// local (e.g. n in `(let [n 5] (cpp/+ n 1))`) is passed boxed.
func autoUnbox(e *Expr) *Expr {
	if nt, ok := nativeNumericTag(e); ok {
		return &Expr{
			Kind: ExprCppCast,
			Loc:  e.Loc,
			Cast: &CastInfo{Policy: object.CastFromObject, NativeType: nt, Inner: e},
			Tag:  nt,
		}
	}
	if e.Kind == ExprLocalRef && e.Tag != "" {
		return &Expr{
			Kind: ExprCppCast,
			Loc:  e.Loc,
			Cast: &CastInfo{Policy: object.CastFromObject, NativeType: e.Tag, Inner: e},
			Tag:  e.Tag,
		}
	}
	return e
}

// classifyInteropCall implements spec §4.3's call-site classification: "by
// argument count (zero-arg symbol evaluates to value; one-arg with class
// scope evaluates to constructor; otherwise global/member call)".
func classifyInteropCall(scope, name string, argc int, isClassScope bool) ExprKind {
	switch {
	case argc == 0:
		return ExprCppValue
	case argc == 1 && isClassScope:
		return ExprCppNew
	default:
		if scope == "" {
			return ExprCppBuiltinOp
		}
		return ExprCppGlobalCall
	}
}

// voidCallResult synthesizes the nil literal a void-returning interop call
// produces as its value expression-type (spec §4.3 "void-valued calls").
func voidCallResult(loc reader.Location) *Expr {
	return &Expr{Kind: ExprLiteral, Loc: loc, Value: object.Nil, Tag: "void"}
}

// decaysToPointer reports whether an array type `elemType[n]` may appear on
// the right of an assignment to `elemType*` (array-to-pointer decay).
// Only identical element type names are accepted; other implicit
// conversions between element and pointee type are not recognised.
// arrayElem/ptrElem are the bare element type names with array/pointer
// suffixes already stripped.
func decaysToPointer(arrayElem, ptrElem string) bool {
	return arrayElem == ptrElem
}
