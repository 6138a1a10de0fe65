package codegen

import (
	"context"
	"strings"
	"testing"

	"github.com/oxhq/corelisp/internal/analyzer"
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

func newTestAnalyzer() *analyzer.Analyzer {
	core := object.NewNamespace("clojure.core")
	user := object.NewNamespace("user")
	reg := &fakeRegistry{nss: map[string]*object.Namespace{"clojure.core": core, "user": user}}
	return analyzer.New(user, reg, "clojure.core")
}

func analyzeSrc(t *testing.T, a *analyzer.Analyzer, src string) *analyzer.Expr {
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

func generate(t *testing.T, target Target, src string) Output {
	t.Helper()
	a := newTestAnalyzer()
	expr := analyzeSrc(t, a, src)
	g := New(Options{Target: target, Namespace: "user"})
	out, err := g.Generate(expr)
	if err != nil {
		t.Fatalf("generate(%q): %v", src, err)
	}
	return out
}

func TestGenerateEvalLiteral(t *testing.T) {
	out := generate(t, TargetEval, "42")
	if !strings.Contains(out.Source, "box_integer(42LL)") {
		t.Fatalf("expected boxed integer literal, got %s", out.Source)
	}
	if !strings.Contains(out.Source, "eval_thunk_") {
		t.Fatalf("expected eval_thunk entry symbol, got %s", out.EntrySymbol)
	}
}

func TestGenerateModuleEmitsNsIntern(t *testing.T) {
	out := generate(t, TargetModule, "(def x 1)")
	if !strings.Contains(out.Source, "ns_intern(\"user\")") {
		t.Fatalf("expected ns_intern call in module target, got %s", out.Source)
	}
	if !strings.HasPrefix(out.EntrySymbol, "load_user") {
		t.Fatalf("expected load_user entry symbol, got %s", out.EntrySymbol)
	}
}

func TestGenerateWasmAOTOmitsNsIntern(t *testing.T) {
	out := generate(t, TargetWasmAOT, "(def x 1)")
	if strings.Contains(out.Source, "ns_intern") {
		t.Fatalf("wasm-aot target must omit ns-intern call, got %s", out.Source)
	}
}

func TestGeneratePatchEntrySymbol(t *testing.T) {
	out := generate(t, TargetPatch, "42")
	if !strings.HasPrefix(out.EntrySymbol, "patch_") {
		t.Fatalf("expected patch_ entry symbol, got %s", out.EntrySymbol)
	}
}

func TestGenerateIfEmitsTernary(t *testing.T) {
	out := generate(t, TargetEval, "(if true 1 2)")
	if !strings.Contains(out.Source, "truthy") || !strings.Contains(out.Source, "?") {
		t.Fatalf("expected truthy ternary, got %s", out.Source)
	}
}

func TestGenerateFloatSpecialValues(t *testing.T) {
	huge := 1e300
	if got := emitDoubleLiteral(huge * huge); !strings.Contains(got, "infinity()") {
		t.Fatalf("expected infinity(), got %s", got)
	}
	if got := emitDoubleLiteral(-huge * huge); !strings.Contains(got, "-std::numeric_limits") {
		t.Fatalf("expected negative infinity, got %s", got)
	}
	var nan float64
	nan = nan / nan // NaN without math.NaN() to avoid an extra import in the test
	if got := emitDoubleLiteral(nan); !strings.Contains(got, "quiet_NaN()") {
		t.Fatalf("expected quiet_NaN(), got %s", got)
	}
}

func TestGenerateCppBuiltinOpInfix(t *testing.T) {
	out := generate(t, TargetEval, "(cpp/+ 1 2)")
	if !strings.Contains(out.Source, "box_integer(1LL))->data + ") {
		t.Fatalf("expected infix + between unboxed operands, got %s", out.Source)
	}
	if !strings.Contains(out.Source, "expect_object<") {
		t.Fatalf("expected auto-unboxing cast before the operator, got %s", out.Source)
	}
}

func TestGenerateCppRawSkippedUnderCompileFiles(t *testing.T) {
	a := newTestAnalyzer()
	expr := analyzeSrc(t, a, `(cpp-raw "int x = 1;")`)
	g := New(Options{Target: TargetModule, Namespace: "user", CompileFiles: true})
	out, err := g.Generate(expr)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Deps) != 0 {
		t.Fatalf("expected cpp-raw to be skipped under *compile-files* for module target, got deps %v", out.Deps)
	}
}

func TestGenerateCppRawCopiedForEvalTargetUnderCompileFiles(t *testing.T) {
	a := newTestAnalyzer()
	expr := analyzeSrc(t, a, `(cpp-raw "int x = 1;")`)
	g := New(Options{Target: TargetEval, Namespace: "user", CompileFiles: true})
	out, err := g.Generate(expr)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Deps) != 1 || out.Deps[0] != "int x = 1;" {
		t.Fatalf("expected cpp-raw text copied verbatim for eval target, got deps %v", out.Deps)
	}
}

func TestGenerateDeterministicCounter(t *testing.T) {
	a1 := newTestAnalyzer()
	expr1 := analyzeSrc(t, a1, "(fn* [x] x)")
	g1 := New(Options{Target: TargetEval, Namespace: "user", Counter: NewCounter()})
	out1, err := g1.Generate(expr1)
	if err != nil {
		t.Fatal(err)
	}

	a2 := newTestAnalyzer()
	expr2 := analyzeSrc(t, a2, "(fn* [x] x)")
	g2 := New(Options{Target: TargetEval, Namespace: "user", Counter: NewCounter()})
	out2, err := g2.Generate(expr2)
	if err != nil {
		t.Fatal(err)
	}

	if out1.Source != out2.Source {
		t.Fatalf("expected identical output for identical trees with fresh counters, got:\n%s\nvs\n%s", out1.Source, out2.Source)
	}
}

func TestGenerateLetVoidCallYieldsNilResult(t *testing.T) {
	a := newTestAnalyzer()
	// cpp-value on an unresolved native symbol still produces a CppValue
	// node; we only need Tag/CppVoid machinery exercised through a plain
	// invoke here since constructing a genuine void-typed interop call
	// requires a registered native header. voidSafe is covered directly.
	expr := &analyzer.Expr{Kind: analyzer.ExprLiteral, Value: object.Integer(1), CppVoid: true}
	got := voidSafe(expr, "some_call()")
	if !strings.Contains(got, "nil_value()") || !strings.Contains(got, "some_call()") {
		t.Fatalf("expected void-call wrapped with nil_value(), got %s", got)
	}
}

func TestInvalidTargetError(t *testing.T) {
	a := newTestAnalyzer()
	expr := analyzeSrc(t, a, "42")
	g := New(Options{Target: Target(99)})
	_, err := g.Generate(expr)
	if _, ok := err.(*InvalidTargetError); !ok {
		t.Fatalf("expected *InvalidTargetError, got %v", err)
	}
}

func TestMangleNamespace(t *testing.T) {
	if got := mangle("my-app.core"); got != "my_app_core" {
		t.Fatalf("expected my_app_core, got %s", got)
	}
}

func TestLocalVarNameSanitizesSpecialChars(t *testing.T) {
	got := localVarName("x?")
	if !strings.HasPrefix(got, "l_x") {
		t.Fatalf("expected sanitized local name, got %s", got)
	}
}
