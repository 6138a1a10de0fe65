// Package runtime assembles the single process-wide container spec §4.6
// describes: namespace/keyword interning tables, the *compile-files*
// flag, the module loader, the JIT processor handle, the incremental and
// persistent cache handles, and the per-thread current namespace /
// allocator. The design note in spec §4.6 is followed literally: Context
// is an explicit value passed and held by callers, never process-global
// state (a bare package-level var would make multi-tenant embedding,
// e.g. the remote compile server juggling many client sessions,
// impossible to isolate).
package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/oxhq/corelisp/internal/analyzer"
	"github.com/oxhq/corelisp/internal/cache"
	"github.com/oxhq/corelisp/internal/jit"
	"github.com/oxhq/corelisp/internal/logging"
	"github.com/oxhq/corelisp/internal/object"
)

// NamespaceTable is the process-wide (or context-scoped) namespace
// interning table, the runtime-side counterpart of object.KeywordTable
// and the concrete implementation analyzer.NamespaceRegistry's narrow
// interface expects. Locking follows the same reader-writer discipline
// as object.Namespace itself.
type NamespaceTable struct {
	mu    sync.RWMutex
	table map[string]*object.Namespace
}

// NewNamespaceTable returns an empty NamespaceTable.
func NewNamespaceTable() *NamespaceTable {
	return &NamespaceTable{table: make(map[string]*object.Namespace)}
}

// Find implements analyzer.NamespaceRegistry.
func (t *NamespaceTable) Find(dotted string) (*object.Namespace, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ns, ok := t.table[dotted]
	return ns, ok
}

// GetOrCreate returns the namespace for dotted, interning a fresh empty
// one on first reference.
func (t *NamespaceTable) GetOrCreate(dotted string) *object.Namespace {
	t.mu.RLock()
	if ns, ok := t.table[dotted]; ok {
		t.mu.RUnlock()
		return ns
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if ns, ok := t.table[dotted]; ok {
		return ns
	}
	ns := object.NewNamespace(dotted)
	t.table[dotted] = ns
	return ns
}

// All returns a snapshot of every interned namespace, for completion and
// introspection use by the nREPL engine.
func (t *NamespaceTable) All() []*object.Namespace {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*object.Namespace, 0, len(t.table))
	for _, ns := range t.table {
		out = append(out, ns)
	}
	return out
}

// Context is the runtime's single process-wide (or per-tenant, for the
// remote compile server) container (spec §4.6).
type Context struct {
	Namespaces  *NamespaceTable
	Keywords    *object.KeywordTable
	Loader      *Loader
	JIT         jit.Engine
	Incremental *jit.IncrementalCache
	Cache       *cache.ObjectCache

	// compileFiles mirrors the dynamic var *compile-files*: true while
	// cross-compiling AOT modules, controlling whether side-effecting
	// top-level forms execute during codegen (spec §4.4/§4.6).
	compileFiles atomic.Bool

	// CoreNamespace names the implicit fallback namespace unqualified
	// symbol resolution falls back to (spec §4.3 step 4).
	CoreNamespace string
}

// NewContext constructs a Context with fresh namespace/keyword tables, a
// fresh incremental cache, and the given JIT engine. Cache is left nil;
// callers that want the on-disk object cache call AttachCache.
func NewContext(engine jit.Engine) *Context {
	return &Context{
		Namespaces:    NewNamespaceTable(),
		Keywords:      object.NewKeywordTable(),
		Loader:        NewLoader(nil),
		JIT:           engine,
		Incremental:   jit.NewIncrementalCache(),
		CoreNamespace: "clojure.core",
	}
}

// AttachCache wires the on-disk object cache into ctx.
func (c *Context) AttachCache(objCache *cache.ObjectCache) {
	c.Cache = objCache
}

// CompileCached drives the two-layer compile path spec §4.5 describes:
// the in-memory incremental cache (keyed by cacheKey, typically a def's
// qualified name) skips recompiling a def whose generated source hasn't
// structurally changed since the last call in this process, and — on an
// incremental miss — the on-disk object cache skips the JIT's parse/link
// step entirely by loading a previously linked object when one exists
// under the same structural hash, falling back to a real JIT.Compile
// only when neither cache has it.
//
// The structural hash is computed from req.Source up front (codegen has
// already run by the time a caller reaches this method), so cacheKey
// only needs to disambiguate *what* is being compiled, not detect
// whether it changed — GetOrCompile's hash comparison does that.
func (c *Context) CompileCached(ctx context.Context, cacheKey string, req jit.CompileRequest) (*jit.CompiledUnit, error) {
	hash := jit.StructuralHash(req.Source)
	v, hit, err := c.Incremental.GetOrCompile(cacheKey, hash, func() (any, error) {
		return c.compileOrLoad(ctx, hash, req)
	})
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)
	if hit {
		logger.Debug("incremental cache hit", "key", cacheKey, "hash", hash)
	}
	unit, ok := v.(*jit.CompiledUnit)
	if !ok {
		return nil, fmt.Errorf("runtime: incremental cache entry for %q is not a *jit.CompiledUnit", cacheKey)
	}
	return unit, nil
}

// compileOrLoad is the incremental cache's miss path: try the on-disk
// object cache first, and only ask the JIT to actually parse/link
// req.Source when nothing is cached there either.
func (c *Context) compileOrLoad(ctx context.Context, hash string, req jit.CompileRequest) (any, error) {
	logger := logging.FromContext(ctx)
	if c.Cache != nil {
		if data, ok, err := c.Cache.Get(hash); err == nil && ok {
			unit, err := c.JIT.LoadObject(ctx, data, req.EntrySymbol)
			if err == nil {
				logger.Debug("persistent cache hit", "hash", hash, "size", humanize.Bytes(uint64(len(data))))
				return unit, nil
			}
			logger.Warn("persistent cache entry failed to load, recompiling", "hash", hash, "error", err)
		}
	}

	unit, err := c.JIT.Compile(ctx, req)
	if err != nil {
		return nil, err
	}
	if c.Cache != nil {
		if err := c.Cache.Put(unit.StructuralHash, unit.ObjectBytes); err != nil {
			logger.Warn("persistent cache write failed", "hash", unit.StructuralHash, "error", err)
		} else {
			logger.Debug("persistent cache put", "hash", unit.StructuralHash, "size", humanize.Bytes(uint64(len(unit.ObjectBytes))))
		}
	}
	return unit, nil
}

// CompileFiles reports the current *compile-files* setting.
func (c *Context) CompileFiles() bool { return c.compileFiles.Load() }

// SetCompileFiles updates *compile-files*. Like the dialect's dynamic
// vars, this is a process-wide (or per-Context) setting, not threaded
// per-goroutine; a cross-compile driver sets it once before the AOT
// compilation pass and restores it after.
func (c *Context) SetCompileFiles(v bool) { c.compileFiles.Store(v) }

// NewAnalyzer constructs an analyzer.Analyzer bound to ns and this
// Context's namespace registry/core namespace, and installs this
// Context's keyword table so interop keyword literals intern against the
// same table the rest of the runtime uses.
func (c *Context) NewAnalyzer(ns *object.Namespace) *analyzer.Analyzer {
	a := analyzer.New(ns, c.Namespaces, c.CoreNamespace)
	a.Keywords = c.Keywords
	return a
}

// currentNSKey / currentAllocatorKey are context.Context keys for the
// per-thread current namespace and allocator (spec §4.6: "Current
// namespace (per thread)", "Current allocator (per thread)"). Go has no
// thread-locals; a context.Context value threaded through every call is
// the idiomatic per-goroutine equivalent, and is what the teacher's own
// request-scoped state (mcp/server.go's per-request context) already
// does for request-scoped values.
type ctxKey int

const (
	currentNSKey ctxKey = iota
	currentAllocatorKey
)

// WithCurrentNamespace returns a derived context.Context with ns bound as
// the current namespace for unqualified `def`/eval resolution.
func WithCurrentNamespace(ctx context.Context, ns *object.Namespace) context.Context {
	return context.WithValue(ctx, currentNSKey, ns)
}

// CurrentNamespace returns the namespace bound by WithCurrentNamespace, or
// ok=false if none is bound (callers fall back to a default, typically
// "user").
func CurrentNamespace(ctx context.Context) (*object.Namespace, bool) {
	ns, ok := ctx.Value(currentNSKey).(*object.Namespace)
	return ns, ok
}

// WithAllocator returns a derived context.Context with alloc bound as the
// current per-thread allocator (spec §4.6 "Allocator swap").
func WithAllocator(ctx context.Context, alloc *Allocator) context.Context {
	return context.WithValue(ctx, currentAllocatorKey, alloc)
}

// CurrentAllocator returns the allocator bound by WithAllocator, or the
// default GC-backed allocator if none is bound.
func CurrentAllocator(ctx context.Context) *Allocator {
	if alloc, ok := ctx.Value(currentAllocatorKey).(*Allocator); ok {
		return alloc
	}
	return DefaultAllocator
}
