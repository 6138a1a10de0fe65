package analyzer

import (
	"context"
	"testing"

	"github.com/oxhq/corelisp/internal/object"
	"github.com/oxhq/corelisp/internal/reader"
)

type fakeRegistry struct {
	nss map[string]*object.Namespace
}

func (f *fakeRegistry) Find(dotted string) (*object.Namespace, bool) {
	ns, ok := f.nss[dotted]
	return ns, ok
}

func newTestAnalyzer() (*Analyzer, *object.Namespace, *fakeRegistry) {
	core := object.NewNamespace("clojure.core")
	user := object.NewNamespace("user")
	reg := &fakeRegistry{nss: map[string]*object.Namespace{"clojure.core": core, "user": user}}
	a := New(user, reg, "clojure.core")
	return a, user, reg
}

func analyzeSrc(t *testing.T, a *Analyzer, src string) *Expr {
	t.Helper()
	f, ok, err := reader.New([]byte(src), "<test>").Read()
	if err != nil || !ok {
		t.Fatalf("failed to read %q: ok=%v err=%v", src, ok, err)
	}
	ex, err := a.Analyze(context.Background(), f)
	if err != nil {
		t.Fatalf("failed to analyze %q: %v", src, err)
	}
	return ex
}

func TestAnalyzeLiteral(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex := analyzeSrc(t, a, "42")
	if ex.Kind != ExprLiteral {
		t.Fatalf("expected literal, got %v", ex.Kind)
	}
}

func TestAnalyzeIf(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex := analyzeSrc(t, a, "(if true 1 2)")
	if ex.Kind != ExprIf {
		t.Fatalf("expected if, got %v", ex.Kind)
	}
	if ex.Then.Value.(object.Integer) != 1 || ex.Else.Value.(object.Integer) != 2 {
		t.Fatalf("unexpected then/else: %v %v", ex.Then.Value, ex.Else.Value)
	}
}

func TestAnalyzeIfWithoutElse(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex := analyzeSrc(t, a, "(if true 1)")
	if !object.IsNil(ex.Else.Value) {
		t.Fatalf("expected nil else branch, got %v", ex.Else.Value)
	}
}

func TestAnalyzeLet(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex := analyzeSrc(t, a, "(let* [x 1 y x] y)")
	if ex.Kind != ExprLet {
		t.Fatalf("expected let, got %v", ex.Kind)
	}
	if len(ex.Bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(ex.Bindings))
	}
	if ex.Body[0].Kind != ExprLocalRef || ex.Body[0].LocalName != "y" {
		t.Fatalf("expected local ref to y, got %+v", ex.Body[0])
	}
}

func TestAnalyzeLetUnresolvedInit(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	_, err := parseAndAnalyze(a, "(let* [x zzz] x)")
	if _, ok := err.(*UnresolvedSymbolError); !ok {
		t.Fatalf("expected *UnresolvedSymbolError, got %v", err)
	}
}

func TestAnalyzeFnAndInvoke(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex := analyzeSrc(t, a, "(fn* [a b] a)")
	if ex.Kind != ExprFn {
		t.Fatalf("expected fn, got %v", ex.Kind)
	}
	if len(ex.Fn.Arities) != 1 || len(ex.Fn.Arities[0].Params) != 2 {
		t.Fatalf("unexpected fn arities: %+v", ex.Fn)
	}
}

func TestAnalyzeFnVariadic(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex := analyzeSrc(t, a, "(fn* [a & rest] a)")
	if ex.Fn.Variadic == nil {
		t.Fatal("expected a variadic arity")
	}
	if len(ex.Fn.Variadic.Params) != 2 {
		t.Fatalf("expected params [a rest], got %v", ex.Fn.Variadic.Params)
	}
}

func TestAnalyzeDefInternsVar(t *testing.T) {
	a, ns, _ := newTestAnalyzer()
	ex := analyzeSrc(t, a, "(def x 10)")
	if ex.Kind != ExprDef {
		t.Fatalf("expected def, got %v", ex.Kind)
	}
	v, ok := ns.Lookup("x")
	if !ok || v != ex.DefVar {
		t.Fatal("def should intern the var in the current namespace")
	}
}

func TestAnalyzeLoopRecurArityMismatch(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	_, err := parseAndAnalyze(a, "(loop* [x 0] (recur x x))")
	if _, ok := err.(*InvalidRecurError); !ok {
		t.Fatalf("expected *InvalidRecurError, got %v", err)
	}
}

func TestAnalyzeRecurOutsideLoop(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	_, err := parseAndAnalyze(a, "(recur 1)")
	if _, ok := err.(*InvalidRecurError); !ok {
		t.Fatalf("expected *InvalidRecurError, got %v", err)
	}
}

func TestAnalyzeRecurMatchingArity(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex, err := parseAndAnalyze(a, "(loop* [x 0] (recur 1))")
	if err != nil {
		t.Fatal(err)
	}
	if ex.Body[0].Kind != ExprRecur {
		t.Fatalf("expected recur, got %v", ex.Body[0].Kind)
	}
}

func parseAndAnalyze(a *Analyzer, src string) (*Expr, error) {
	f, ok, err := reader.New([]byte(src), "<test>").Read()
	if err != nil || !ok {
		return nil, err
	}
	return a.Analyze(context.Background(), f)
}

func TestAnalyzeUnresolvedSymbol(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	_, err := parseAndAnalyze(a, "totally-unknown-symbol")
	if _, ok := err.(*UnresolvedSymbolError); !ok {
		t.Fatalf("expected *UnresolvedSymbolError, got %v", err)
	}
}

func TestAnalyzeQualifiedVarResolution(t *testing.T) {
	a, _, reg := newTestAnalyzer()
	core, _ := reg.Find("clojure.core")
	core.Intern("inc").BindRoot(object.NewInteger(1))

	ex, err := parseAndAnalyze(a, "clojure.core/inc")
	if err != nil {
		t.Fatal(err)
	}
	if ex.Kind != ExprVarDeref {
		t.Fatalf("expected var-deref, got %v", ex.Kind)
	}
}

func TestAnalyzeCppGlobalCall(t *testing.T) {
	a, ns, _ := newTestAnalyzer()
	ns.AliasNativeHeader("std", "<cstdio>")
	ex, err := parseAndAnalyze(a, `(std/printf "hi")`)
	if err != nil {
		t.Fatal(err)
	}
	if ex.Kind != ExprCppGlobalCall {
		t.Fatalf("expected cpp-global-call, got %v", ex.Kind)
	}
	if ex.CppScope != "std" || ex.CppName != "printf" {
		t.Fatalf("unexpected scope/name: %s/%s", ex.CppScope, ex.CppName)
	}
}

func TestAnalyzeCppValueZeroArg(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex, err := parseAndAnalyze(a, "cpp/errno")
	if err != nil {
		t.Fatal(err)
	}
	if ex.Kind != ExprCppValue {
		t.Fatalf("expected cpp-value, got %v", ex.Kind)
	}
}

func TestAnalyzeCppNewOneArgClassScope(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex, err := parseAndAnalyze(a, "(cpp/Widget 1)")
	if err != nil {
		t.Fatal(err)
	}
	if ex.Kind != ExprCppNew {
		t.Fatalf("expected cpp-new, got %v", ex.Kind)
	}
}

func TestAnalyzeCppRaw(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex, err := parseAndAnalyze(a, `#cpp "int x = 1;"`)
	if err != nil {
		t.Fatal(err)
	}
	if ex.Kind != ExprCppRaw || ex.CppRaw != "int x = 1;" {
		t.Fatalf("unexpected cpp-raw expr: %+v", ex)
	}
}

func TestAnalyzeCppMemberAccessAndCall(t *testing.T) {
	a, ns, _ := newTestAnalyzer()
	ns.Intern("obj").BindRoot(object.Nil)

	ex, err := parseAndAnalyze(a, "(.- obj field)")
	if err != nil {
		t.Fatal(err)
	}
	if ex.Kind != ExprCppMemberAccess || ex.CppName != "field" {
		t.Fatalf("unexpected member access: %+v", ex)
	}

	ex2, err := parseAndAnalyze(a, "(. obj method 1 2)")
	if err != nil {
		t.Fatal(err)
	}
	if ex2.Kind != ExprCppMemberCall || ex2.CppName != "method" || len(ex2.CppArgs) != 2 {
		t.Fatalf("unexpected member call: %+v", ex2)
	}
}

func TestAnalyzeAutoUnboxOnBuiltinOperator(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	// No native-header alias registered for "cpp": resolution falls through
	// to the reserved cpp-prefix step, which classifies as a builtin
	// operator only when the scope is empty.
	ex, err := parseAndAnalyze(a, "(cpp/+ 1 2)")
	if err != nil {
		t.Fatal(err)
	}
	if ex.Kind != ExprCppBuiltinOp {
		t.Fatalf("expected cpp-builtin-op, got %v", ex.Kind)
	}
	for _, arg := range ex.CppArgs {
		if arg.Kind != ExprCppCast {
			t.Fatalf("expected auto-unboxed cpp-cast argument, got %v", arg.Kind)
		}
	}
}

func TestAnalyzeMacroExpansion(t *testing.T) {
	a, ns, _ := newTestAnalyzer()
	unless := ns.Intern("unless")
	macroFn := object.NewCallable("unless")
	macroFn.Variadic = func(ctx context.Context, args []object.Object) (object.Object, error) {
		// (unless test then) => (if test nil then)
		test, then := args[1], args[2]
		return object.NewList(object.NewSymbol("", "if"), test, object.Nil, then), nil
	}
	macroFn.MinArity = 0
	unless.BindRoot(macroFn)
	unless.SetMeta(object.Meta{":macro": object.True})

	ex, err := parseAndAnalyze(a, "(unless false 5)")
	if err != nil {
		t.Fatal(err)
	}
	if ex.Kind != ExprIf {
		t.Fatalf("expected macro to expand to if, got %v", ex.Kind)
	}
}

func TestAnalyzeTryCatchFinally(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex, err := parseAndAnalyze(a, "(try 1 (catch Exception e e) (finally 2))")
	if err != nil {
		t.Fatal(err)
	}
	if ex.Kind != ExprTry {
		t.Fatalf("expected try, got %v", ex.Kind)
	}
	if len(ex.Catches) != 1 || ex.Catches[0].Binding != "e" {
		t.Fatalf("unexpected catch clauses: %+v", ex.Catches)
	}
	if len(ex.Finally) != 1 {
		t.Fatalf("expected one finally expr, got %d", len(ex.Finally))
	}
}

// TestAnalyzeDefMetadataSurvivesCollectionFlattening guards against a
// regression where `^`-prefixed metadata on a symbol nested inside a list
// was silently dropped once the reader flattened that list down to bare
// object.Objects: the metadata must be carried on the symbol itself, not
// just the reader's ephemeral Form wrapper.
func TestAnalyzeDefMetadataSurvivesCollectionFlattening(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	ex := analyzeSrc(t, a, "(def ^:dynamic x 1)")
	if ex.Kind != ExprDef {
		t.Fatalf("expected def, got %v", ex.Kind)
	}
	if v, ok := ex.DefVar.Meta()[":dynamic"]; !ok || !v.Equal(object.True) {
		t.Fatalf("expected :dynamic metadata on the interned var, got %v", ex.DefVar.Meta())
	}
}

func TestAnalyzeVectorMapSetCtors(t *testing.T) {
	a, _, _ := newTestAnalyzer()
	if ex := analyzeSrc(t, a, "[1 2 3]"); ex.Kind != ExprVectorCtor || len(ex.Items) != 3 {
		t.Fatalf("unexpected vector ctor: %+v", ex)
	}
	if ex := analyzeSrc(t, a, "{:a 1}"); ex.Kind != ExprMapCtor || len(ex.Items) != 2 {
		t.Fatalf("unexpected map ctor: %+v", ex)
	}
	if ex := analyzeSrc(t, a, "#{1 2}"); ex.Kind != ExprSetCtor || len(ex.Items) != 2 {
		t.Fatalf("unexpected set ctor: %+v", ex)
	}
}
