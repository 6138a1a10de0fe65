// Package jit embeds an incremental C++ interpreter: it accepts codegen
// output, compiles it to in-memory machine code, links it against the
// current process's registered symbols, and exposes entry points the
// runtime can call (spec §4.5). It also owns the incremental (in-memory)
// compiled-artifact cache; the persistent on-disk cache lives in
// internal/cache and is consulted by the runtime before the JIT is asked
// to do anything at all.
package jit

import (
	"context"
)

// CompiledUnit is one successfully compiled/linked translation unit: the
// address of its entry factory function (opaque to the JIT; the runtime
// knows how to call it) plus the bytes the persistent cache should
// persist if the caller wants to.
type CompiledUnit struct {
	EntrySymbol    string
	StructuralHash string
	ObjectBytes    []byte
	Factory        Factory
}

// Factory produces the runtime object a compiled def or eval thunk
// evaluates to. It stands in for "call the function at this address" in
// a pure-Go reference engine; a production engine would instead resolve
// EntrySymbol to a real function pointer via the linked object.
type Factory func() (any, error)

// RegisteredSymbol is one entry installed into the JIT's main linking
// dylib via RegisterSymbol, consulted before parsing declarations that
// reference it.
type RegisteredSymbol struct {
	MangledName string
	Addr        uintptr
	Callable    bool
	Value       any // reference-engine stand-in for Addr, when Addr is not a real pointer
}

// Engine is the JIT processor's contract (spec §4.5): register symbols,
// compile generated source into linked units, and load precompiled
// objects. Implementations must be safe for concurrent use: multiple
// namespaces can compile concurrently (spec §5).
type Engine interface {
	// RegisterSymbol installs an absolute address (or, in a reference
	// engine, a Go value standing in for one) before any declaration
	// referencing mangledName is parsed. Calling this after a
	// declaration referencing the symbol has already been compiled is a
	// caller error: the interpreter will have already emitted a fresh
	// (wrong) definition.
	RegisterSymbol(sym RegisteredSymbol) error

	// Compile parses and links source (generated by internal/codegen),
	// returning the unit's entry point. A parse/link failure returns a
	// *JITError carrying diagnostic text; the caller's runtime context
	// is left unmodified (spec §4.5 failure semantics: "the partial def
	// is rolled back").
	Compile(ctx context.Context, req CompileRequest) (*CompiledUnit, error)

	// LoadObject links a precompiled object (bytes previously produced
	// by Compile, or read back from the persistent cache) and returns
	// the address of its named factory function.
	LoadObject(ctx context.Context, objectBytes []byte, entrySymbol string) (*CompiledUnit, error)
}

// CompileRequest bundles one codegen unit with the deps text that must be
// linked alongside it (cpp-raw blocks codegen routed to the deps buffer).
type CompileRequest struct {
	Namespace   string
	EntrySymbol string
	Source      string
	Deps        []string
}
