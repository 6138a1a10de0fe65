package nrepl

import (
	"context"
	"testing"

	"github.com/oxhq/corelisp/internal/jit"
	"github.com/oxhq/corelisp/internal/runtime"
)

func TestBencodeEncodeDecodeRoundTrip(t *testing.T) {
	original := map[string]any{
		"op":   "eval",
		"code": "(+ 1 2)",
		"id":   "1",
	}
	encoded, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var d Decoder
	values, err := d.Feed(encoded)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("expected 1 decoded value, got %d", len(values))
	}
	m, ok := values[0].(map[string]any)
	if !ok {
		t.Fatalf("expected decoded value to be a dict, got %T", values[0])
	}
	if string(m["op"].([]byte)) != "eval" {
		t.Fatalf("unexpected op: %v", m["op"])
	}
}

func TestBencodeDecoderBuffersIncompleteFrame(t *testing.T) {
	encoded, err := Encode(map[string]any{"op": "eval"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var d Decoder
	values, err := d.Feed(encoded[:len(encoded)-3])
	if err != nil {
		t.Fatalf("feed partial: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected no values from a partial frame, got %d", len(values))
	}
	if d.Buffered() == 0 {
		t.Fatal("expected the partial frame to remain buffered")
	}

	values, err = d.Feed(encoded[len(encoded)-3:])
	if err != nil {
		t.Fatalf("feed rest: %v", err)
	}
	if len(values) != 1 {
		t.Fatalf("expected the frame to complete once the rest arrives, got %d", len(values))
	}
}

func TestBencodeDecoderRejectsInvalidLeadingByte(t *testing.T) {
	var d Decoder
	_, err := d.Feed([]byte("x:bad"))
	if err == nil {
		t.Fatal("expected an error for an invalid bencode leading byte")
	}
}

func TestBencodeDecodeNestedListsAndDicts(t *testing.T) {
	original := map[string]any{
		"completions": []any{
			map[string]any{"candidate": "foo", "type": "var"},
			map[string]any{"candidate": "bar", "type": "var"},
		},
	}
	encoded, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var d Decoder
	values, err := d.Feed(encoded)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	m := values[0].(map[string]any)
	completions := m["completions"].([]any)
	if len(completions) != 2 {
		t.Fatalf("expected 2 completions, got %d", len(completions))
	}
}

func TestSessionDefaultsToUserNamespace(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	sess := NewSession("test-session", ctx)
	if sess.CurrentNamespace() != "user" {
		t.Fatalf("expected default namespace user, got %q", sess.CurrentNamespace())
	}
}

func TestHandleEvalSimpleLiteral(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	sess := NewSession("test-session", ctx)

	req := map[string]any{"op": "eval", "code": "42", "id": "1", "ns": "user"}
	frames := Dispatch(context.Background(), sess, req)
	if len(frames) == 0 {
		t.Fatal("expected at least a done frame")
	}
	last := frames[len(frames)-1]
	statuses, ok := last["status"].([]any)
	if !ok || len(statuses) == 0 || statuses[0] != "done" {
		t.Fatalf("expected final frame to carry a done status, got %v", last)
	}
}

func TestHandleEvalMultipleFormsFoldIntoOneUnit(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	sess := NewSession("test-session", ctx)

	req := map[string]any{"op": "eval", "code": "(def a 1) (def b 2) 3", "id": "1", "ns": "user"}
	frames := Dispatch(context.Background(), sess, req)
	last := frames[len(frames)-1]
	statuses, _ := last["status"].([]any)
	if len(statuses) == 0 || statuses[0] != "done" {
		t.Fatalf("expected a successful done frame, got %v", frames)
	}
}

func TestHandleEvalReadErrorReportsErrStatus(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	sess := NewSession("test-session", ctx)

	req := map[string]any{"op": "eval", "code": "(", "id": "1", "ns": "user"}
	frames := Dispatch(context.Background(), sess, req)
	last := frames[len(frames)-1]
	statuses, _ := last["status"].([]any)
	if len(statuses) < 2 || statuses[1] != "eval-error" {
		t.Fatalf("expected an eval-error status, got %v", last)
	}
}

func TestHandleCompleteUnionsPublicVars(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	sess := NewSession("test-session", ctx)

	req := map[string]any{"op": "eval", "code": "(def greet 1)", "id": "1", "ns": "user"}
	Dispatch(context.Background(), sess, req)

	completeReq := map[string]any{"op": "complete", "prefix": "gre", "ns": "user"}
	frames := Dispatch(context.Background(), sess, completeReq)
	last := frames[len(frames)-1]
	completions, _ := last["completions"].([]any)
	found := false
	for _, c := range completions {
		entry := c.(map[string]any)
		if entry["candidate"] == "greet" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected greet among completions, got %v", completions)
	}
}

func TestHandleCompleteCppPrefixUsesRegisteredSymbols(t *testing.T) {
	engine := jit.NewReferenceEngine()
	if err := engine.RegisterSymbol(jit.RegisteredSymbol{MangledName: "foo_bar", Value: 1}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := runtime.NewContext(engine)
	sess := NewSession("test-session", ctx)

	req := map[string]any{"op": "complete", "prefix": "cpp/foo", "ns": "user"}
	frames := Dispatch(context.Background(), sess, req)
	last := frames[len(frames)-1]
	completions, _ := last["completions"].([]any)
	if len(completions) != 1 {
		t.Fatalf("expected exactly 1 cpp completion, got %d: %v", len(completions), completions)
	}
	entry := completions[0].(map[string]any)
	if entry["candidate"] != "cpp/foo_bar" {
		t.Fatalf("unexpected candidate %v", entry["candidate"])
	}
}

func TestHandleInfoReportsDefiningNamespace(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	sess := NewSession("test-session", ctx)

	Dispatch(context.Background(), sess, map[string]any{"op": "eval", "code": "(def pi 3)", "id": "1", "ns": "user"})

	req := map[string]any{"op": "info", "symbol": "pi", "ns": "user"}
	frames := Dispatch(context.Background(), sess, req)
	last := frames[len(frames)-1]
	if last["ns-name"] != "user" {
		t.Fatalf("expected ns-name user, got %v", last["ns-name"])
	}
	if last["name"] != "pi" {
		t.Fatalf("expected name pi, got %v", last["name"])
	}
}

func TestHandleInfoUnknownSymbolReportsNoInfo(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	sess := NewSession("test-session", ctx)

	req := map[string]any{"op": "info", "symbol": "does-not-exist", "ns": "user"}
	frames := Dispatch(context.Background(), sess, req)
	last := frames[len(frames)-1]
	statuses, _ := last["status"].([]any)
	if len(statuses) < 2 || statuses[1] != "no-info" {
		t.Fatalf("expected no-info status, got %v", last)
	}
}

func TestHandleTestEqualityAssertion(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	sess := NewSession("test-session", ctx)

	req := map[string]any{"op": "test", "code": "(is (= 1 1))", "ns": "user"}
	frames := Dispatch(context.Background(), sess, req)
	last := frames[len(frames)-1]
	results, _ := last["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("expected 1 test result, got %d", len(results))
	}
	report := results[0].(map[string]any)
	if report["pass"] != true {
		t.Fatalf("expected a passing equality assertion, got %v", report)
	}
}

func TestHandleTestFailingEqualityAssertion(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	sess := NewSession("test-session", ctx)

	req := map[string]any{"op": "test", "code": "(is (= 1 2))", "ns": "user"}
	frames := Dispatch(context.Background(), sess, req)
	last := frames[len(frames)-1]
	results, _ := last["results"].([]any)
	report := results[0].(map[string]any)
	if report["pass"] != false {
		t.Fatalf("expected a failing equality assertion, got %v", report)
	}
}

func TestDispatchUnknownOp(t *testing.T) {
	ctx := runtime.NewContext(jit.NewReferenceEngine())
	sess := NewSession("test-session", ctx)

	frames := Dispatch(context.Background(), sess, map[string]any{"op": "bogus"})
	last := frames[len(frames)-1]
	statuses, _ := last["status"].([]any)
	if len(statuses) < 2 || statuses[1] != "unknown-op" {
		t.Fatalf("expected unknown-op status, got %v", last)
	}
}
