package codegen

import (
	"fmt"
	"math"
	"strings"

	"github.com/oxhq/corelisp/internal/analyzer"
	"github.com/oxhq/corelisp/internal/object"
)

// runtimeRoot is the fully-qualified global-root prefix every runtime
// symbol reference carries, so a target namespace segment that happens to
// collide with a runtime name never captures the reference (spec §4.4
// "`::` prefix").
const runtimeRoot = "::corelisp::rt::"

// Output is the result of one Generate call.
type Output struct {
	Source string
	// EntrySymbol is the C-linkage factory/entry name callers resolve
	// after the JIT/cross-compiler has built Source (spec §4.4 module /
	// wasm-aot targets: "referenced at runtime via a C-linkage factory
	// name").
	EntrySymbol string
	// Deps holds cpp-raw text to be fed to the JIT's deps buffer
	// verbatim, except when CompileFiles skip applies (spec §4.4).
	Deps []string
}

// Generator lowers one analyzed expression tree into target source text.
// A Generator is not safe for concurrent use; callers construct one per
// compilation request, matching the reader/analyzer/codegen per-request
// single-threaded discipline (spec §5).
type Generator struct {
	opts Options
	buf  strings.Builder
	deps []string
}

// New constructs a Generator for one Generate call under opts.
func New(opts Options) *Generator {
	if opts.Counter == nil {
		opts.Counter = NewCounter()
	}
	return &Generator{opts: opts}
}

// Generate emits source text for expr under the configured target.
func (g *Generator) Generate(expr *analyzer.Expr) (Output, error) {
	switch g.opts.Target {
	case TargetEval:
		return g.generateEval(expr)
	case TargetModule:
		return g.generateModule(expr, true)
	case TargetWasmAOT:
		return g.generateModule(expr, false)
	case TargetPatch:
		return g.generatePatch(expr)
	default:
		return Output{}, &InvalidTargetError{Target: g.opts.Target}
	}
}

// generateEval wraps expr's value in an anonymous function body, the
// "single-statement wrapper" JIT evaluation shape (spec §4.4).
func (g *Generator) generateEval(expr *analyzer.Expr) (Output, error) {
	body, err := g.emitExpr(expr)
	if err != nil {
		return Output{}, err
	}
	entry := g.nextSymbol("eval_thunk")
	fmt.Fprintf(&g.buf, "extern \"C\" %sobject* %s() {\n  return %s;\n}\n", runtimeRoot, entry, body)
	return Output{Source: g.buf.String(), EntrySymbol: entry, Deps: g.deps}, nil
}

// generateModule emits a namespace-loader function. When withNsIntern is
// false (wasm-aot target), the ns-intern call is omitted so the module can
// be linked into a standalone artifact (spec §4.4).
func (g *Generator) generateModule(expr *analyzer.Expr, withNsIntern bool) (Output, error) {
	body, err := g.emitExpr(expr)
	if err != nil {
		return Output{}, err
	}
	mangled := mangle(g.opts.Namespace)
	entry := "load_" + mangled
	fmt.Fprintf(&g.buf, "extern \"C\" %sobject* %s() {\n", runtimeRoot, entry)
	if withNsIntern {
		fmt.Fprintf(&g.buf, "  %sns_intern(\"%s\");\n", runtimeRoot, g.opts.Namespace)
	}
	fmt.Fprintf(&g.buf, "  return %s;\n}\n", body)
	return Output{Source: g.buf.String(), EntrySymbol: entry, Deps: g.deps}, nil
}

// generatePatch emits a hot-reload addendum: a freestanding function with
// a counter-qualified name, attachable to an existing module's state
// without redefining the module's own entry symbol.
func (g *Generator) generatePatch(expr *analyzer.Expr) (Output, error) {
	body, err := g.emitExpr(expr)
	if err != nil {
		return Output{}, err
	}
	entry := g.nextSymbol("patch")
	fmt.Fprintf(&g.buf, "extern \"C\" %sobject* %s() {\n  return %s;\n}\n", runtimeRoot, entry, body)
	return Output{Source: g.buf.String(), EntrySymbol: entry, Deps: g.deps}, nil
}

func (g *Generator) nextSymbol(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, g.opts.Counter.Next())
}

func mangle(ns string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_").Replace(ns)
}

// emitExpr dispatches on expr.Kind, returning a C++ expression-text
// fragment that evaluates to the corresponding runtime object*.
func (g *Generator) emitExpr(expr *analyzer.Expr) (string, error) {
	switch expr.Kind {
	case analyzer.ExprLiteral:
		return g.emitLiteral(expr)
	case analyzer.ExprQuote:
		return g.emitLiteral(&analyzer.Expr{Kind: analyzer.ExprLiteral, Value: expr.Value, Loc: expr.Loc})
	case analyzer.ExprVectorCtor, analyzer.ExprMapCtor, analyzer.ExprSetCtor:
		return g.emitCtor(expr)
	case analyzer.ExprIf:
		return g.emitIf(expr)
	case analyzer.ExprDo:
		return g.emitDo(expr)
	case analyzer.ExprLet, analyzer.ExprLetFn:
		return g.emitLet(expr)
	case analyzer.ExprLoop:
		return g.emitLoop(expr)
	case analyzer.ExprRecur:
		return g.emitRecur(expr)
	case analyzer.ExprFn:
		return g.emitFn(expr)
	case analyzer.ExprDef:
		return g.emitDef(expr)
	case analyzer.ExprVarRef:
		return fmt.Sprintf("%svar_ref(\"%s\", \"%s\")", runtimeRoot, expr.Var.Namespace().Name(), expr.Var.Name()), nil
	case analyzer.ExprVarDeref:
		return fmt.Sprintf("%svar_deref(\"%s\", \"%s\")", runtimeRoot, expr.Var.Namespace().Name(), expr.Var.Name()), nil
	case analyzer.ExprLocalRef:
		return localVarName(expr.LocalName), nil
	case analyzer.ExprInvoke:
		return g.emitInvoke(expr)
	case analyzer.ExprTry:
		return g.emitTry(expr)
	case analyzer.ExprThrow:
		return g.emitThrow(expr)
	case analyzer.ExprCppRaw:
		return g.emitCppRaw(expr)
	case analyzer.ExprCppValue:
		return g.emitCppValue(expr)
	case analyzer.ExprCppNew:
		return g.emitCppNew(expr)
	case analyzer.ExprCppMemberAccess:
		return g.emitCppMemberAccess(expr)
	case analyzer.ExprCppMemberCall:
		return g.emitCppMemberCall(expr)
	case analyzer.ExprCppGlobalCall:
		return g.emitCppGlobalCall(expr)
	case analyzer.ExprCppBuiltinOp:
		return g.emitCppBuiltinOp(expr)
	case analyzer.ExprCppCast:
		return g.emitCast(expr)
	case analyzer.ExprCppUnbox:
		return g.emitUnbox(expr)
	default:
		return "", &UnsupportedExprError{Kind: expr.Kind, Loc: expr.Loc}
	}
}

// localVarName maps a dialect-level local binding name to a valid C++
// identifier. Dialect identifiers may contain characters ('-', '*', '?',
// '!') that aren't valid in C++, so every generated local is prefixed and
// sanitized rather than emitted verbatim.
func localVarName(name string) string {
	var sb strings.Builder
	sb.WriteString("l_")
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			fmt.Fprintf(&sb, "_%x_", r)
		}
	}
	return sb.String()
}

// emitLiteral emits a lifted literal as a boxed constant (spec §4.4: "every
// lifted literal is emitted as a boxed constant except at a use-site in a
// C++ builtin operator"). Special float values emit numeric_limits calls
// rather than textual inf/nan (spec §4.4).
func (g *Generator) emitLiteral(expr *analyzer.Expr) (string, error) {
	return emitBoxedConstant(expr.Value), nil
}

func emitBoxedConstant(v object.Object) string {
	switch val := v.(type) {
	case object.Integer:
		return fmt.Sprintf("%sbox_integer(%dLL)", runtimeRoot, int64(val))
	case object.Real:
		return fmt.Sprintf("%sbox_real(%s)", runtimeRoot, emitDoubleLiteral(float64(val)))
	case object.BigInt:
		return fmt.Sprintf("%sbox_bigint(\"%s\")", runtimeRoot, val.V.String())
	case object.BigDecimal:
		return fmt.Sprintf("%sbox_bigdecimal(\"%s\")", runtimeRoot, val.V.FloatString(20))
	case object.Ratio:
		return fmt.Sprintf("%sbox_ratio(%dLL, %dLL)", runtimeRoot, val.V.Num().Int64(), val.V.Denom().Int64())
	case *object.String:
		return fmt.Sprintf("%sbox_string(%q)", runtimeRoot, val.Value())
	case object.Char:
		return fmt.Sprintf("%sbox_char(%d)", runtimeRoot, rune(val))
	case *object.Keyword:
		if val.Ns == "" {
			return fmt.Sprintf("%sbox_keyword(\"\", %q)", runtimeRoot, val.Name)
		}
		return fmt.Sprintf("%sbox_keyword(%q, %q)", runtimeRoot, val.Ns, val.Name)
	case *object.Symbol:
		return fmt.Sprintf("%sbox_symbol(%q, %q)", runtimeRoot, val.Ns, val.Name)
	default:
		if object.IsNil(v) {
			return runtimeRoot + "nil_value()"
		}
		if v == object.True {
			return runtimeRoot + "true_value()"
		}
		if v == object.False {
			return runtimeRoot + "false_value()"
		}
		return fmt.Sprintf("%sbox_opaque(%q)", runtimeRoot, v.String())
	}
}

// emitDoubleLiteral renders a double literal, using numeric_limits calls
// for the three special IEEE-754 values instead of textual inf/nan (spec
// §4.4, and the reader's ##Inf/##-Inf/##NaN round-trip, §8).
func emitDoubleLiteral(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "std::numeric_limits<double>::infinity()"
	case math.IsInf(f, -1):
		return "-std::numeric_limits<double>::infinity()"
	case math.IsNaN(f):
		return "std::numeric_limits<double>::quiet_NaN()"
	default:
		return fmt.Sprintf("%g", f)
	}
}

func (g *Generator) emitCtor(expr *analyzer.Expr) (string, error) {
	parts := make([]string, len(expr.Items))
	for i, it := range expr.Items {
		p, err := g.emitExpr(it)
		if err != nil {
			return "", err
		}
		parts[i] = p
	}
	var ctor string
	switch expr.Kind {
	case analyzer.ExprVectorCtor:
		ctor = "make_vector"
	case analyzer.ExprMapCtor:
		ctor = "make_map"
	case analyzer.ExprSetCtor:
		ctor = "make_set"
	}
	return fmt.Sprintf("%s%s({%s})", runtimeRoot, ctor, strings.Join(parts, ", ")), nil
}

func (g *Generator) emitIf(expr *analyzer.Expr) (string, error) {
	test, err := g.emitExpr(expr.Test)
	if err != nil {
		return "", err
	}
	then, err := g.emitExpr(expr.Then)
	if err != nil {
		return "", err
	}
	els, err := g.emitExpr(expr.Else)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%struthy(%s) ? %s : %s)", runtimeRoot, test, then, els), nil
}

// emitDo emits a GNU statement-expression sequencing every body form, the
// value of the last one surviving as the expression's result.
func (g *Generator) emitDo(expr *analyzer.Expr) (string, error) {
	return g.emitBodyAsExpr(expr.Body)
}

// emitBodyAsExpr lowers a body of one-or-more expressions into a single
// C++ expression via a statement-expression, discarding every value but
// the last.
func (g *Generator) emitBodyAsExpr(body []*analyzer.Expr) (string, error) {
	if len(body) == 0 {
		return runtimeRoot + "nil_value()", nil
	}
	if len(body) == 1 {
		return g.emitExpr(body[0])
	}
	var sb strings.Builder
	sb.WriteString("({ ")
	for i, b := range body {
		s, err := g.emitExpr(b)
		if err != nil {
			return "", err
		}
		if i == len(body)-1 {
			fmt.Fprintf(&sb, "%s; ", s)
		} else {
			fmt.Fprintf(&sb, "(void)(%s); ", s)
		}
	}
	sb.WriteString("})")
	return sb.String(), nil
}

func (g *Generator) emitLet(expr *analyzer.Expr) (string, error) {
	var sb strings.Builder
	sb.WriteString("({ ")
	for _, b := range expr.Bindings {
		init, err := g.emitExpr(b.Init)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "auto %s = %s; ", localVarName(b.Name), voidSafe(b.Init, init))
	}
	body, err := g.emitBodyStatements(expr.Body)
	if err != nil {
		return "", err
	}
	sb.WriteString(body)
	sb.WriteString(" })")
	return sb.String(), nil
}

// voidSafe implements the void-returning-call let-body rule: a void-typed
// interop call result gets wrapped as a nil-valued object so that a let
// binding (or the final body expression) always produces an object (spec
// §4.4 "Void-returning calls in a let body").
func voidSafe(src *analyzer.Expr, emitted string) string {
	if src != nil && src.CppVoid {
		return fmt.Sprintf("((void)(%s), %snil_value())", emitted, runtimeRoot)
	}
	return emitted
}

// emitBodyStatements lowers a body sequence for use inside an existing
// statement-expression block (let/loop), returning "stmt; stmt; result;".
func (g *Generator) emitBodyStatements(body []*analyzer.Expr) (string, error) {
	if len(body) == 0 {
		return runtimeRoot + "nil_value();", nil
	}
	var sb strings.Builder
	for i, b := range body {
		s, err := g.emitExpr(b)
		if err != nil {
			return "", err
		}
		s = voidSafe(b, s)
		if i == len(body)-1 {
			fmt.Fprintf(&sb, "%s;", s)
		} else {
			fmt.Fprintf(&sb, "(void)(%s); ", s)
		}
	}
	return sb.String(), nil
}

// emitLoop emits a loop* as a C++ while(true) wrapping mutable locals for
// the loop bindings; recur reassigns them and continues.
func (g *Generator) emitLoop(expr *analyzer.Expr) (string, error) {
	var sb strings.Builder
	sb.WriteString("({ ")
	for _, b := range expr.Bindings {
		init, err := g.emitExpr(b.Init)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "auto %s = %s; ", localVarName(b.Name), voidSafe(b.Init, init))
	}
	sb.WriteString(fmt.Sprintf("%sobject* __loop_result; while (true) { ", runtimeRoot))
	body, err := g.emitLoopBody(expr.Body, expr.Bindings)
	if err != nil {
		return "", err
	}
	sb.WriteString(body)
	sb.WriteString(" } __loop_result; })")
	return sb.String(), nil
}

// emitLoopBody is like emitBodyStatements, but a trailing recur reassigns
// the loop locals and `continue`s instead of producing a value, and any
// other trailing expression assigns __loop_result and `break`s.
func (g *Generator) emitLoopBody(body []*analyzer.Expr, bindings []analyzer.Binding) (string, error) {
	if len(body) == 0 {
		return "__loop_result = " + runtimeRoot + "nil_value(); break;", nil
	}
	var sb strings.Builder
	for i, b := range body {
		if i < len(body)-1 {
			s, err := g.emitExpr(b)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "(void)(%s); ", voidSafe(b, s))
			continue
		}
		if b.Kind == analyzer.ExprRecur {
			vals := make([]string, len(b.RecurArgs))
			for j, a := range b.RecurArgs {
				v, err := g.emitExpr(a)
				if err != nil {
					return "", err
				}
				vals[j] = v
			}
			for j, bd := range bindings {
				fmt.Fprintf(&sb, "%s = %s; ", localVarName(bd.Name), vals[j])
			}
			sb.WriteString("continue;")
			return sb.String(), nil
		}
		s, err := g.emitExpr(b)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "__loop_result = %s; break;", voidSafe(b, s))
	}
	return sb.String(), nil
}

// emitRecur is only reached when recur appears outside a tail position the
// loop emitter recognizes directly (e.g. inside a nested fn* tail); the
// generic form re-dispatches through the runtime's recur trampoline.
func (g *Generator) emitRecur(expr *analyzer.Expr) (string, error) {
	vals := make([]string, len(expr.RecurArgs))
	for i, a := range expr.RecurArgs {
		v, err := g.emitExpr(a)
		if err != nil {
			return "", err
		}
		vals[i] = v
	}
	return fmt.Sprintf("%srecur({%s})", runtimeRoot, strings.Join(vals, ", ")), nil
}

// emitFn emits a closure literal implementing object's callable protocol,
// one C++ lambda per arity plus an optional variadic lambda, assembled
// into a runtime callable value.
func (g *Generator) emitFn(expr *analyzer.Expr) (string, error) {
	var arities []string
	for _, a := range expr.Fn.Arities {
		s, err := g.emitArity(a)
		if err != nil {
			return "", err
		}
		arities = append(arities, s)
	}
	variadic := "nullptr"
	if expr.Fn.Variadic != nil {
		s, err := g.emitArity(*expr.Fn.Variadic)
		if err != nil {
			return "", err
		}
		variadic = s
	}
	name := expr.Fn.Name
	if name == "" {
		name = g.nextSymbol("fn")
	}
	return fmt.Sprintf("%smake_callable(%q, {%s}, %s)", runtimeRoot, name, strings.Join(arities, ", "), variadic), nil
}

func (g *Generator) emitArity(a analyzer.Arity) (string, error) {
	params := make([]string, len(a.Params))
	for i, p := range a.Params {
		params[i] = fmt.Sprintf("%sobject* %s", runtimeRoot, localVarName(p))
	}
	body, err := g.emitBodyAsExpr(a.Body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[=](%s) -> %sobject* { return %s; }", strings.Join(params, ", "), runtimeRoot, body), nil
}

func (g *Generator) emitDef(expr *analyzer.Expr) (string, error) {
	init := runtimeRoot + "nil_value()"
	if expr.DefInit != nil {
		s, err := g.emitExpr(expr.DefInit)
		if err != nil {
			return "", err
		}
		init = s
	}
	return fmt.Sprintf("%sdef(\"%s\", \"%s\", %s)", runtimeRoot, expr.DefNs.Name(), expr.DefName, init), nil
}

func (g *Generator) emitInvoke(expr *analyzer.Expr) (string, error) {
	callee, err := g.emitExpr(expr.Callee)
	if err != nil {
		return "", err
	}
	args := make([]string, len(expr.Args))
	for i, a := range expr.Args {
		s, err := g.emitExpr(a)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	return fmt.Sprintf("%sinvoke(%s, {%s})", runtimeRoot, callee, strings.Join(args, ", ")), nil
}

func (g *Generator) emitTry(expr *analyzer.Expr) (string, error) {
	body, err := g.emitBodyAsExpr(expr.Body)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("({ ")
	fmt.Fprintf(&sb, "%sobject* __try_result; try { __try_result = %s; } ", runtimeRoot, body)
	for _, c := range expr.Catches {
		cbody, err := g.emitBodyAsExpr(c.Body)
		if err != nil {
			return "", err
		}
		tag := c.ExceptionTag
		if tag == "" {
			tag = "std::exception"
		}
		fmt.Fprintf(&sb, "catch (const %s& %s) { __try_result = %s; } ", tag, localVarName(c.Binding), cbody)
	}
	if len(expr.Finally) > 0 {
		fin, err := g.emitBodyAsExpr(expr.Finally)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "(void)(%s); ", fin)
	}
	sb.WriteString("__try_result; })")
	return sb.String(), nil
}

func (g *Generator) emitThrow(expr *analyzer.Expr) (string, error) {
	v, err := g.emitExpr(expr.Thrown)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sthrow_object(%s)", runtimeRoot, v), nil
}

// emitCppRaw copies the block verbatim into the deps buffer (spec §4.4),
// unless *compile-files* is set and the target is module/wasm-aot, in
// which case the JIT path skips re-parsing it since it will be parsed
// once via the generated module.
func (g *Generator) emitCppRaw(expr *analyzer.Expr) (string, error) {
	skip := g.opts.CompileFiles && (g.opts.Target == TargetModule || g.opts.Target == TargetWasmAOT)
	if !skip {
		g.deps = append(g.deps, expr.CppRaw)
	}
	return runtimeRoot + "nil_value()", nil
}

func (g *Generator) emitCppValue(expr *analyzer.Expr) (string, error) {
	return cppScopedName(expr.CppScope, expr.CppName), nil
}

func (g *Generator) emitCppNew(expr *analyzer.Expr) (string, error) {
	args, err := g.emitCppArgs(expr.CppArgs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("new %s(%s)", cppScopedName(expr.CppScope, expr.CppName), strings.Join(args, ", ")), nil
}

func (g *Generator) emitCppMemberAccess(expr *analyzer.Expr) (string, error) {
	target, err := g.emitExpr(expr.CppTarget)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s)->%s", target, expr.CppName), nil
}

// emitCppMemberCall emits `(target)->name(args...)`. The same text calls a
// method or a function-pointer member such as struct->callback(args...);
// the member's type is not inspected.
func (g *Generator) emitCppMemberCall(expr *analyzer.Expr) (string, error) {
	target, err := g.emitExpr(expr.CppTarget)
	if err != nil {
		return "", err
	}
	args, err := g.emitCppArgs(expr.CppArgs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s)->%s(%s)", target, expr.CppName, strings.Join(args, ", ")), nil
}

func (g *Generator) emitCppGlobalCall(expr *analyzer.Expr) (string, error) {
	args, err := g.emitCppArgs(expr.CppArgs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", cppScopedName(expr.CppScope, expr.CppName), strings.Join(args, ", ")), nil
}

func (g *Generator) emitCppBuiltinOp(expr *analyzer.Expr) (string, error) {
	args, err := g.emitCppArgs(expr.CppArgs)
	if err != nil {
		return "", err
	}
	if len(args) == 2 {
		return fmt.Sprintf("(%s %s %s)", args[0], expr.CppName, args[1]), nil
	}
	return fmt.Sprintf("(%s %s)", expr.CppName, strings.Join(args, " ")), nil
}

func (g *Generator) emitCppArgs(args []*analyzer.Expr) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, err := g.emitExpr(a)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func cppScopedName(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

// emitCast implements the three cpp-cast conversion policies (spec §3,
// §4.3): from-object unboxes a boxed primitive via expect_object<T>(...)->
// data (spec §4.4's literal unboxing accessor), into-object boxes a
// native value, cpp-to-cpp converts directly between native types.
func (g *Generator) emitCast(expr *analyzer.Expr) (string, error) {
	if expr.Cast == nil {
		return "", &UnresolvedCastError{Loc: expr.Loc}
	}
	inner, err := g.emitExpr(expr.Cast.Inner)
	if err != nil {
		return "", err
	}
	switch expr.Cast.Policy {
	case object.CastFromObject:
		return fmt.Sprintf("%sexpect_object<%s>(%s)->data", runtimeRoot, expr.Cast.NativeType, inner), nil
	case object.CastIntoObject:
		return fmt.Sprintf("%sbox_native<%s>(%s)", runtimeRoot, expr.Cast.NativeType, inner), nil
	case object.CastCppToCpp:
		return fmt.Sprintf("static_cast<%s>(%s)", expr.Cast.NativeType, inner), nil
	default:
		return "", &UnresolvedCastError{Loc: expr.Loc}
	}
}

func (g *Generator) emitUnbox(expr *analyzer.Expr) (string, error) {
	return g.emitCast(expr)
}
