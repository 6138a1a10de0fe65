package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/oxhq/corelisp/internal/analyzer"
	"github.com/oxhq/corelisp/internal/codegen"
	"github.com/oxhq/corelisp/internal/jit"
	"github.com/oxhq/corelisp/internal/reader"
	"github.com/oxhq/corelisp/internal/runtime"
)

// odrMarkerMacro is defined on every cross-compile so header-only
// third-party libraries compiled into the target application do not also
// emit their implementation bodies in the generated module (spec §4.7
// "ODR-duplication defense").
const odrMarkerMacro = "JANK_IOS_JIT"

// Server is the host side of the remote compile server (spec §4.7): it
// owns a runtime.Context and answers compile/require/eval/native-source
// requests over newline-delimited JSON, one connection per client. The
// connection loop follows the teacher's mcp StdioServer shape
// (bufio.Reader/Writer around an encoding/json codec), adapted from
// stdio framing to one goroutine per net.Conn.
type Server struct {
	Ctx *runtime.Context

	// DefaultIncludePaths is stored for the server's compile paths but
	// not read by them: jit.CompileRequest has no include-path field, so
	// neither these paths nor a request's IncludePaths reach the compiler.
	DefaultIncludePaths []string

	Logger *slog.Logger
}

// NewServer constructs a Server bound to ctx.
func NewServer(ctx *runtime.Context) *Server {
	return &Server{Ctx: ctx, Logger: slog.Default()}
}

// ListenAndServe accepts connections on addr until ctx is cancelled or
// the listener errors.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("remote: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on an already-bound listener until ctx is
// cancelled or the listener errors. Split out from ListenAndServe so
// tests can bind an ephemeral port (":0") and read back its real address
// before serving.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("remote: accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	dec := json.NewDecoder(bufio.NewReader(conn))
	w := bufio.NewWriter(conn)
	enc := json.NewEncoder(w)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) {
				s.Logger.Warn("remote: decode request", "error", err)
			}
			return
		}

		resp := s.dispatch(ctx, req)
		if err := enc.Encode(resp); err != nil {
			s.Logger.Warn("remote: encode response", "error", err)
			return
		}
		if err := w.Flush(); err != nil {
			s.Logger.Warn("remote: flush response", "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Op {
	case OpCompile, OpEval:
		return s.handleCompile(ctx, req)
	case OpRequire:
		return s.handleRequire(ctx, req)
	case OpNativeSource:
		return s.handleNativeSource(ctx, req)
	default:
		return NewErrorResponse(req.ID, "unknown-op", fmt.Errorf("remote: unknown op %q", req.Op))
	}
}

// compileUnit holds the result of the shared analyze+codegen pipeline
// compile/eval/native-source all run before diverging on what they do
// with the output.
type compileUnit struct {
	out  codegen.Output
	deps []string
	// cacheKey is the incremental-cache key analyzeAndGenerate derived
	// from the analyzed forms (analyzer.CacheKey): a def's qualified
	// name when the request analyzed to exactly one def, or a
	// namespace+source fallback otherwise.
	cacheKey string
}

// analyzeAndGenerate reads req.Code in a fresh (or existing) namespace,
// evaluates a leading `ns` form eagerly (spec §4.7), analyzes every form,
// and emits TargetEval source for the whole request as one body.
func (s *Server) analyzeAndGenerate(ctx context.Context, req Request) (*compileUnit, error) {
	ns := s.Ctx.Namespaces.GetOrCreate(req.NS)

	forms, err := reader.New([]byte(req.Code), req.NS).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if len(forms) == 0 {
		return nil, fmt.Errorf("read: request code contains no forms")
	}

	// The analyzer has no special-form support for `ns` (namespace
	// declaration is a host-side concern here, not an analyzed
	// expression); evaluate it for its aliasing side effects and drop it
	// from the forms that go through analyze+codegen (spec §4.7).
	if isNsForm(forms[0].Value) {
		if _, _, ok := evaluateNsForm(s.Ctx, forms[0].Value); !ok {
			return nil, fmt.Errorf("read: malformed ns form")
		}
		forms = forms[1:]
	}
	if len(forms) == 0 {
		return nil, fmt.Errorf("read: request code contains only an ns form")
	}

	a := s.Ctx.NewAnalyzer(ns)
	opts := codegen.Options{
		Target:       codegen.TargetEval,
		Namespace:    req.NS,
		CompileFiles: s.Ctx.CompileFiles(),
		Counter:      codegen.NewCounter(),
	}
	gen := codegen.New(opts)

	exprs := make([]*analyzer.Expr, 0, len(forms))
	for _, f := range forms {
		expr, err := a.Analyze(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("analyze: %w", err)
		}
		exprs = append(exprs, expr)
	}

	// A request may carry several top-level forms (defs followed by a
	// final expression); wrap them in one `do` so a single Generate call
	// produces one self-contained eval-target unit, instead of discarding
	// everything but the last form's output.
	body := exprs[len(exprs)-1]
	if len(exprs) > 1 {
		body = &analyzer.Expr{Kind: analyzer.ExprDo, Loc: exprs[0].Loc, Body: exprs}
	}

	out, err := gen.Generate(body)
	if err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}
	return &compileUnit{out: out, deps: out.Deps, cacheKey: analyzer.CacheKey(req.NS, exprs, req.Code)}, nil
}

func (s *Server) handleCompile(ctx context.Context, req Request) Response {
	unit, err := s.analyzeAndGenerate(ctx, req)
	if err != nil {
		return NewErrorResponse(req.ID, classifyError(err), err)
	}

	compiled, err := s.Ctx.CompileCached(ctx, unit.cacheKey, jit.CompileRequest{
		Namespace:   req.NS,
		EntrySymbol: unit.out.EntrySymbol,
		Source:      s.withODRMarker(unit.out.Source),
		Deps:        unit.deps,
	})
	if err != nil {
		return NewErrorResponse(req.ID, "jit-error", err)
	}

	return NewCompiledResponse(req.ID, compiled.EntrySymbol, compiled.ObjectBytes)
}

// handleRequire compiles req.NS and every :require dependency reachable
// from its leading ns form, depth-first, returning each compiled module
// exactly once in dependency-first (load) order. The host always forces
// origin=source for this walk (spec §4.7: "force a fresh compile graph
// for each request"), so a stale cached artifact never silently wins.
func (s *Server) handleRequire(ctx context.Context, req Request) Response {
	visited := make(map[string]bool)
	var modules []CompiledModule

	var walk func(namespace, source string) error
	walk = func(namespace, source string) error {
		if visited[namespace] {
			return nil
		}
		visited[namespace] = true

		if source == "" {
			resolved, err := s.Ctx.Loader.Resolve(namespace, runtime.OriginSource)
			if err != nil {
				return err
			}
			data, err := readSourceFile(resolved.SourcePath)
			if err != nil {
				return err
			}
			source = data
		}

		forms, err := reader.New([]byte(source), namespace).ReadAll()
		if err != nil {
			return fmt.Errorf("read %s: %w", namespace, err)
		}
		if len(forms) > 0 && isNsForm(forms[0].Value) {
			_, requires, ok := evaluateNsForm(s.Ctx, forms[0].Value)
			if ok {
				for _, dep := range requires {
					if err := walk(dep.Namespace, ""); err != nil {
						return err
					}
				}
			}
		}

		sub := Request{ID: req.ID, Op: OpCompile, Code: source, NS: namespace}
		unit, err := s.analyzeAndGenerate(ctx, sub)
		if err != nil {
			return fmt.Errorf("%s: %w", namespace, err)
		}
		compiled, err := s.Ctx.CompileCached(ctx, unit.cacheKey, jit.CompileRequest{
			Namespace:   namespace,
			EntrySymbol: unit.out.EntrySymbol,
			Source:      s.withODRMarker(unit.out.Source),
			Deps:        unit.deps,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", namespace, err)
		}
		modules = append(modules, CompiledModule{
			Namespace:   namespace,
			EntrySymbol: compiled.EntrySymbol,
			ObjectBytes: compiled.ObjectBytes,
		})
		return nil
	}

	source := req.Source
	if source == "" {
		resolved, err := s.Ctx.Loader.Resolve(req.NS, runtime.OriginSource)
		if err != nil {
			return NewErrorResponse(req.ID, "load-error", err)
		}
		data, err := readSourceFile(resolved.SourcePath)
		if err != nil {
			return NewErrorResponse(req.ID, "load-error", err)
		}
		source = data
	}

	if err := walk(req.NS, source); err != nil {
		return NewErrorResponse(req.ID, classifyError(err), err)
	}
	return NewRequireResponse(req.ID, modules)
}

func (s *Server) handleNativeSource(ctx context.Context, req Request) Response {
	unit, err := s.analyzeAndGenerate(ctx, req)
	if err != nil {
		return NewErrorResponse(req.ID, classifyError(err), err)
	}
	return NewSourceResponse(req.ID, unit.out.Source)
}

// withODRMarker prefixes generated source with the ODR-defense marker
// macro definition (spec §4.7).
func (s *Server) withODRMarker(source string) string {
	return fmt.Sprintf("#define %s 1\n%s", odrMarkerMacro, source)
}

func classifyError(err error) string {
	switch {
	case errContains(err, "read:"):
		return "read-error"
	case errContains(err, "analyze:"):
		return "analyze-error"
	case errContains(err, "codegen:"):
		return "codegen-error"
	default:
		return "load-error"
	}
}

func errContains(err error, prefix string) bool {
	msg := err.Error()
	return len(msg) >= len(prefix) && msg[:len(prefix)] == prefix
}

func readSourceFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("remote: read %s: %w", path, err)
	}
	return string(data), nil
}
