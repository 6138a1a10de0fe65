package remote

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/oxhq/corelisp/internal/jit"
	"github.com/oxhq/corelisp/internal/reader"
	"github.com/oxhq/corelisp/internal/runtime"
)

func startTestServer(t *testing.T) (*Client, func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(runtime.NewContext(jit.NewReferenceEngine()))
	go s.Serve(ctx, ln)

	client, err := Dial(ln.Addr().String())
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}

	return client, func() {
		client.Close()
		cancel()
	}
}

func TestClientCompileLiteral(t *testing.T) {
	client, stop := startTestServer(t)
	defer stop()

	resp, err := client.Compile("user", "42")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusCompiled {
		t.Fatalf("expected compiled status, got %+v", resp)
	}
	if resp.EntrySymbol == "" {
		t.Fatal("expected a non-empty entry symbol")
	}
}

func TestClientNativeSourceReturnsText(t *testing.T) {
	client, stop := startTestServer(t)
	defer stop()

	resp, err := client.NativeSource("user", "42")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusSource {
		t.Fatalf("expected source status, got %+v", resp)
	}
	if resp.Text == "" {
		t.Fatal("expected non-empty native source text")
	}
}

func TestClientCompileReadError(t *testing.T) {
	client, stop := startTestServer(t)
	defer stop()

	resp, err := client.Compile("user", "(")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusError {
		t.Fatalf("expected error status for unbalanced input, got %+v", resp)
	}
	if resp.ErrType != "read-error" {
		t.Fatalf("expected read-error classification, got %q", resp.ErrType)
	}
}

func TestClientCompileMultiFormWrapsInDo(t *testing.T) {
	client, stop := startTestServer(t)
	defer stop()

	resp, err := client.Compile("user", "(def a 1) (def b 2) (+ a b)")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusCompiled {
		t.Fatalf("expected compiled status, got %+v", resp)
	}
}

func TestServerEvaluatesLeadingNsFormEagerly(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	ctx.Namespaces.GetOrCreate("other.ns").Intern("thing")

	s := NewServer(ctx)
	resp := s.dispatch(context.Background(), Request{
		Op:   OpCompile,
		NS:   "user",
		Code: `(ns user (:require [other.ns :as o])) 1`,
	})
	if resp.Status != StatusCompiled {
		t.Fatalf("expected compiled status, got %+v", resp)
	}

	userNS, ok := ctx.Namespaces.Find("user")
	if !ok {
		t.Fatal("expected the ns form to have interned the user namespace")
	}
	if _, ok := userNS.ResolveAlias("o"); !ok {
		t.Fatal("expected the ns form's :require alias to be registered before analysis")
	}
}

func TestIsNsForm(t *testing.T) {
	forms, err := reader.New([]byte(`(ns foo.bar)`), "test").ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if !isNsForm(forms[0].Value) {
		t.Fatal("expected (ns foo.bar) to be recognized as an ns form")
	}

	forms, err = reader.New([]byte(`(+ 1 2)`), "test").ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if isNsForm(forms[0].Value) {
		t.Fatal("did not expect (+ 1 2) to be recognized as an ns form")
	}
}

func TestParseNsFormExtractsRequireClauses(t *testing.T) {
	forms, err := reader.New([]byte(`(ns app.core (:require [app.util :as u] app.raw))`), "test").ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	name, requires, ok := parseNsForm(forms[0].Value)
	if !ok {
		t.Fatal("expected parseNsForm to succeed")
	}
	if name != "app.core" {
		t.Fatalf("expected name app.core, got %q", name)
	}
	if len(requires) != 2 {
		t.Fatalf("expected 2 require clauses, got %d: %+v", len(requires), requires)
	}
	if requires[0].Namespace != "app.util" || requires[0].Alias != "u" {
		t.Fatalf("unexpected first clause: %+v", requires[0])
	}
	if requires[1].Namespace != "app.raw" || requires[1].Alias != "" {
		t.Fatalf("unexpected second clause: %+v", requires[1])
	}
}

func TestEvaluateNsFormRegistersAliases(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	forms, err := reader.New([]byte(`(ns app.core (:require [app.util :as u]))`), "test").ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	ns, requires, ok := evaluateNsForm(ctx, forms[0].Value)
	if !ok {
		t.Fatal("expected evaluateNsForm to succeed")
	}
	if ns.Name() != "app.core" {
		t.Fatalf("unexpected namespace name %q", ns.Name())
	}
	if len(requires) != 1 {
		t.Fatalf("expected 1 require clause, got %d", len(requires))
	}

	target, ok := ns.ResolveAlias("u")
	if !ok || target.Name() != "app.util" {
		t.Fatal("expected alias u to resolve to app.util")
	}
}

func TestNewCompiledResponseSetsStatusAndEntrySymbol(t *testing.T) {
	resp := NewCompiledResponse("req-1", "eval_thunk_1", []byte{0xDE, 0xAD, 0xBE, 0xEF})
	if resp.Status != StatusCompiled {
		t.Fatal("expected compiled status")
	}
	if resp.EntrySymbol != "eval_thunk_1" {
		t.Fatal("expected entry symbol to round-trip unchanged")
	}
}

func TestErrorResponseCarriesType(t *testing.T) {
	resp := NewErrorResponse("req-2", "analyze-error", errors.New("unresolved symbol"))
	if resp.Status != StatusError {
		t.Fatal("expected error status")
	}
	if resp.ErrType != "analyze-error" {
		t.Fatal("expected error type to be preserved")
	}
}
