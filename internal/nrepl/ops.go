package nrepl

import (
	"context"
	"fmt"
	"strings"

	"github.com/oxhq/corelisp/internal/analyzer"
	"github.com/oxhq/corelisp/internal/codegen"
	"github.com/oxhq/corelisp/internal/jit"
	"github.com/oxhq/corelisp/internal/object"
	"github.com/oxhq/corelisp/internal/reader"
)

// Dispatch handles one decoded request dict and returns the frames to
// write back, in order (spec §4.8 ordering: output frames, then the
// value frame, then the done frame for eval; other ops return whatever
// shape their op defines followed by a done frame).
func Dispatch(ctx context.Context, s *Session, req map[string]any) []map[string]any {
	op := bstr(req, "op")
	switch op {
	case "eval":
		return handleEval(ctx, s, req)
	case "complete":
		return handleComplete(s, req)
	case "info", "eldoc":
		return handleInfo(s, req)
	case "test":
		return handleTest(ctx, s, req)
	default:
		return []map[string]any{doneFrame(req, map[string]any{
			"status": []any{"error", "unknown-op"},
		})}
	}
}

func doneFrame(req map[string]any, extra map[string]any) map[string]any {
	frame := map[string]any{"id": bstr(req, "id"), "session": bstr(req, "session")}
	if status, ok := extra["status"]; ok {
		frame["status"] = status
	} else {
		frame["status"] = []any{"done"}
	}
	for k, v := range extra {
		if k == "status" {
			continue
		}
		frame[k] = v
	}
	return frame
}

// handleEval evaluates req's code against the session's current (or
// request-supplied) namespace: analyze every form, fold multi-form
// requests into one `do`, codegen the eval target, and compile (spec
// §4.8 eval). Output frames precede the value frame which precedes the
// done frame.
func handleEval(ctx context.Context, s *Session, req map[string]any) []map[string]any {
	ns := bstr(req, "ns")
	if ns == "" {
		ns = s.CurrentNamespace()
	} else {
		s.setCurrentNamespace(ns)
	}
	namespace := s.ctx.Namespaces.GetOrCreate(ns)

	code := bstr(req, "code")
	forms, err := reader.New([]byte(code), ns).ReadAll()
	if err != nil {
		return []map[string]any{doneFrame(req, map[string]any{
			"status": []any{"done", "eval-error"},
			"err":    err.Error(),
		})}
	}
	if len(forms) == 0 {
		return []map[string]any{doneFrame(req, nil)}
	}

	a := s.ctx.NewAnalyzer(namespace)
	exprs := make([]*analyzer.Expr, 0, len(forms))
	for _, f := range forms {
		expr, err := a.Analyze(ctx, f)
		if err != nil {
			return []map[string]any{doneFrame(req, map[string]any{
				"status": []any{"done", "eval-error"},
				"err":    err.Error(),
			})}
		}
		exprs = append(exprs, expr)
	}

	body := exprs[len(exprs)-1]
	if len(exprs) > 1 {
		body = &analyzer.Expr{Kind: analyzer.ExprDo, Loc: exprs[0].Loc, Body: exprs}
	}

	s.mu.Lock()
	s.nextEvalCounter++
	counter := codegen.NewCounter()
	s.mu.Unlock()

	gen := codegen.New(codegen.Options{
		Target:       codegen.TargetEval,
		Namespace:    ns,
		CompileFiles: s.ctx.CompileFiles(),
		Counter:      counter,
	})
	out, err := gen.Generate(body)
	if err != nil {
		return []map[string]any{doneFrame(req, map[string]any{
			"status": []any{"done", "eval-error"},
			"err":    err.Error(),
		})}
	}

	cacheKey := analyzer.CacheKey(ns, exprs, code)
	compiled, err := s.ctx.CompileCached(ctx, cacheKey, jit.CompileRequest{
		Namespace:   ns,
		EntrySymbol: out.EntrySymbol,
		Source:      out.Source,
		Deps:        out.Deps,
	})
	if err != nil {
		return []map[string]any{doneFrame(req, map[string]any{
			"status": []any{"done", "eval-error"},
			"err":    err.Error(),
		})}
	}

	var frames []map[string]any
	if s.stdout.Len() > 0 {
		frames = append(frames, map[string]any{"id": bstr(req, "id"), "session": s.ID, "out": s.stdout.String()})
		s.stdout.Reset()
	}
	if s.stderr.Len() > 0 {
		frames = append(frames, map[string]any{"id": bstr(req, "id"), "session": s.ID, "err": s.stderr.String()})
		s.stderr.Reset()
	}
	frames = append(frames, map[string]any{
		"id":      bstr(req, "id"),
		"session": s.ID,
		"ns":      ns,
		// The reference JIT engine does not execute linked code; the
		// entry symbol stands in for "the compiled thunk's result",
		// documented in DESIGN.md rather than faked as a printed value.
		"value": compiled.EntrySymbol,
	})
	frames = append(frames, doneFrame(req, nil))
	return frames
}

// handleComplete returns completion candidates unioning vars in scope and
// cpp-prefixed registered native globals (spec §4.8 complete).
func handleComplete(s *Session, req map[string]any) []map[string]any {
	ns := bstr(req, "ns")
	if ns == "" {
		ns = s.CurrentNamespace()
	}
	prefix := bstr(req, "prefix")

	var candidates []any
	if strings.HasPrefix(prefix, "cpp/") {
		want := strings.TrimPrefix(prefix, "cpp/")
		if re, ok := s.engine().(*jit.ReferenceEngine); ok {
			for _, name := range re.Symbols() {
				if strings.HasPrefix(name, want) {
					candidates = append(candidates, map[string]any{
						"candidate": "cpp/" + name,
						"type":      "native-global",
						"ns":        "cpp",
					})
				}
			}
		}
	} else if namespace, ok := s.ctx.Namespaces.Find(ns); ok {
		for name, v := range namespace.PublicVars() {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			entry := map[string]any{
				"candidate": name,
				"type":      "var",
				"ns":        v.Namespace().Name(),
			}
			if doc, ok := v.Meta()["doc"]; ok {
				entry["doc"] = doc.String()
			}
			if arglists, ok := v.Meta()["arglists"]; ok {
				entry["arglists"] = arglists.String()
			}
			candidates = append(candidates, entry)
		}
	}

	return []map[string]any{doneFrame(req, map[string]any{"completions": candidates})}
}

// handleInfo answers a single-symbol detail request. For a var, ns-name
// is the var's defining namespace, not the lookup namespace (spec §4.8
// info/eldoc): v.Namespace().Name() is always the interning namespace
// (object.Var's doc comment: "always the interning namespace, even when
// referenced via another"), so that invariant falls out for free.
func handleInfo(s *Session, req map[string]any) []map[string]any {
	ns := bstr(req, "ns")
	if ns == "" {
		ns = s.CurrentNamespace()
	}
	sym := bstr(req, "symbol")

	if strings.HasPrefix(sym, "cpp/") {
		name := strings.TrimPrefix(sym, "cpp/")
		if re, ok := s.engine().(*jit.ReferenceEngine); ok {
			if regSym, found := re.Lookup(name); found {
				return []map[string]any{doneFrame(req, map[string]any{
					"ns-name": "cpp",
					"name":    name,
					"value":   fmt.Sprintf("%v", regSym.Value),
				})}
			}
		}
		return []map[string]any{doneFrame(req, map[string]any{"status": []any{"done", "no-info"}})}
	}

	namespace, ok := s.ctx.Namespaces.Find(ns)
	if !ok {
		return []map[string]any{doneFrame(req, map[string]any{"status": []any{"done", "no-info"}})}
	}
	v, ok := namespace.Lookup(sym)
	if !ok {
		return []map[string]any{doneFrame(req, map[string]any{"status": []any{"done", "no-info"}})}
	}

	info := map[string]any{
		"ns-name": v.Namespace().Name(),
		"name":    v.Name(),
	}
	if doc, ok := v.Meta()["doc"]; ok {
		info["doc"] = doc.String()
	}
	if arglists, ok := v.Meta()["arglists"]; ok {
		info["arglists"] = arglists.String()
	}
	if file, ok := v.Meta()["file"]; ok {
		info["file"] = file.String()
	}
	if line, ok := v.Meta()["line"]; ok {
		info["line"] = line.String()
	}
	return []map[string]any{doneFrame(req, info)}
}

// handleTest runs the top-level `is` assertions in req's code; other
// forms, deftest included, are skipped. Each `(is (= actual expected))`
// form is evaluated as an
// equality check: actual/expected in the report carry the analyzed
// expression's *values*, not the source forms (spec §4.8 test), which
// here means the literal object.Object each side analyzes to, since the
// reference JIT does not execute compiled code.
func handleTest(ctx context.Context, s *Session, req map[string]any) []map[string]any {
	ns := bstr(req, "ns")
	if ns == "" {
		ns = s.CurrentNamespace()
	}
	namespace := s.ctx.Namespaces.GetOrCreate(ns)

	code := bstr(req, "code")
	forms, err := reader.New([]byte(code), ns).ReadAll()
	if err != nil {
		return []map[string]any{doneFrame(req, map[string]any{
			"status": []any{"done", "test-error"},
			"err":    err.Error(),
		})}
	}

	a := s.ctx.NewAnalyzer(namespace)
	var results []any
	for _, f := range forms {
		loc := f.Loc
		list, ok := f.Value.(*object.List)
		if !ok || list.IsEmpty() {
			continue
		}
		head, ok := list.First().(*object.Symbol)
		if !ok || head.Name != "is" {
			continue
		}
		rest, err := list.Pop()
		if err != nil {
			continue
		}
		assertion, ok := rest.(*object.List)
		if !ok || assertion.IsEmpty() {
			continue
		}

		report := map[string]any{
			"file": loc.Origin,
			"line": int64(loc.StartLine),
		}
		if eqForm, ok := assertion.First().(*object.List); ok && !eqForm.IsEmpty() {
			if op, ok := eqForm.First().(*object.Symbol); ok && op.Name == "=" {
				rest2, _ := eqForm.Pop()
				args, _ := rest2.(*object.List)
				actualExpr, err1 := a.Analyze(ctx, reader.Form{Value: args.First(), Loc: loc})
				remaining, _ := args.Pop()
				var expectedVal object.Object
				if r2, ok := remaining.(*object.List); ok && !r2.IsEmpty() {
					expectedVal = r2.First()
				}
				expectedExpr, err2 := a.Analyze(ctx, reader.Form{Value: expectedVal, Loc: loc})
				if err1 == nil && err2 == nil && actualExpr.Kind == analyzer.ExprLiteral && expectedExpr.Kind == analyzer.ExprLiteral {
					report["type"] = "equality"
					report["actual"] = actualExpr.Value.String()
					report["expected"] = expectedExpr.Value.String()
					report["pass"] = actualExpr.Value.Equal(expectedExpr.Value)
				}
			}
		}
		results = append(results, report)
	}

	return []map[string]any{doneFrame(req, map[string]any{"results": results})}
}
