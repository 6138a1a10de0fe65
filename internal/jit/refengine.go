package jit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// ReferenceEngine is a pure-Go stand-in for the embedded C++
// interpreter: it validates generated source with a tree-sitter cpp
// grammar (catching the gross syntax errors a real parse/link pass would
// reject) and resolves entry symbols against an in-process registry of
// Go-side factories rather than linking real machine code. It exists so
// the rest of the pipeline (runtime, remote server, nREPL) has a
// concrete Engine to drive and test against without a real LLVM/Clang
// toolchain embedded in the process.
//
// Grounded on the teacher's providers/base/cache.go ASTCache for the
// parser-pool-plus-sync.Map shape. RegisterSymbol only records the
// symbol (a later registration under the same name replaces it); Compile
// does not check the names a source references against the registry, and
// an entry symbol with no registration gets a nil-returning factory.
type ReferenceEngine struct {
	mu         sync.RWMutex
	symbols    map[string]RegisteredSymbol
	parserPool sync.Pool
}

// NewReferenceEngine constructs an empty ReferenceEngine.
func NewReferenceEngine() *ReferenceEngine {
	e := &ReferenceEngine{symbols: make(map[string]RegisteredSymbol)}
	e.parserPool.New = func() any {
		p := sitter.NewParser()
		p.SetLanguage(cpp.GetLanguage())
		return p
	}
	return e
}

func (e *ReferenceEngine) RegisterSymbol(sym RegisteredSymbol) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.symbols[sym.MangledName] = sym
	return nil
}

func (e *ReferenceEngine) lookup(name string) (RegisteredSymbol, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sym, ok := e.symbols[name]
	return sym, ok
}

// Lookup exposes lookup to callers outside the package (internal/abi's
// "find a symbol by mangled name" ABI operation).
func (e *ReferenceEngine) Lookup(name string) (RegisteredSymbol, bool) {
	return e.lookup(name)
}

// Symbols returns the mangled names of every registered symbol, for the
// nREPL engine's `complete` op (spec §4.8: "C++ globals registered under
// the `cpp` prefix").
func (e *ReferenceEngine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.symbols))
	for name := range e.symbols {
		names = append(names, name)
	}
	return names
}

// Compile parses req.Source (and each deps entry) with the cpp grammar,
// rejecting anything tree-sitter flags as a syntax error, then returns a
// CompiledUnit whose Factory invokes whatever was registered under
// req.EntrySymbol, or a stub nil-returning factory if nothing is
// registered (an eval/module entry point is not expected to be
// pre-registered; only runtime-provided native symbols are).
func (e *ReferenceEngine) Compile(ctx context.Context, req CompileRequest) (*CompiledUnit, error) {
	for _, dep := range req.Deps {
		if err := e.checkSyntax(ctx, dep); err != nil {
			return nil, &JITError{Namespace: req.Namespace, Diagnostic: err.Error()}
		}
	}
	if err := e.checkSyntax(ctx, req.Source); err != nil {
		return nil, &JITError{Namespace: req.Namespace, Diagnostic: err.Error()}
	}

	hash := StructuralHash(req.Source)
	factory := e.factoryFor(req.EntrySymbol)
	return &CompiledUnit{
		EntrySymbol:    req.EntrySymbol,
		StructuralHash: hash,
		ObjectBytes:    []byte(req.Source),
		Factory:        factory,
	}, nil
}

// LoadObject re-links a previously produced unit: since ReferenceEngine's
// "object bytes" are just the generated source text, loading is
// equivalent to re-validating it and re-resolving the entry symbol.
func (e *ReferenceEngine) LoadObject(ctx context.Context, objectBytes []byte, entrySymbol string) (*CompiledUnit, error) {
	source := string(objectBytes)
	if err := e.checkSyntax(ctx, source); err != nil {
		return nil, &JITError{Namespace: entrySymbol, Diagnostic: err.Error()}
	}
	return &CompiledUnit{
		EntrySymbol:    entrySymbol,
		StructuralHash: StructuralHash(source),
		ObjectBytes:    objectBytes,
		Factory:        e.factoryFor(entrySymbol),
	}, nil
}

func (e *ReferenceEngine) factoryFor(entrySymbol string) Factory {
	return func() (any, error) {
		sym, ok := e.lookup(entrySymbol)
		if !ok {
			return nil, nil
		}
		return sym.Value, nil
	}
}

func (e *ReferenceEngine) checkSyntax(ctx context.Context, source string) error {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	p := e.parserPool.Get().(*sitter.Parser)
	defer e.parserPool.Put(p)

	tree, err := p.ParseCtx(ctx, nil, []byte(source))
	if err != nil {
		return err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return fmt.Errorf("syntax error in generated source near byte %d", firstErrorOffset(root))
	}
	return nil
}

func firstErrorOffset(n *sitter.Node) uint32 {
	if n.Type() == "ERROR" {
		return n.StartByte()
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() {
			return firstErrorOffset(child)
		}
	}
	return n.StartByte()
}
