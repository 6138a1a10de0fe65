package jit

import "fmt"

// JITError reports a parse/link failure from the embedded interpreter,
// captured as an analyzer-adjacent error kind rather than a Go panic
// (spec §4.5 failure semantics).
type JITError struct {
	Namespace  string
	Diagnostic string
}

func (e *JITError) Error() string {
	return fmt.Sprintf("jit: %s: %s", e.Namespace, e.Diagnostic)
}

// SymbolOrderError reports that a declaration referencing mangledName was
// parsed before RegisterSymbol installed it, the "two copies of the same
// inline function" hazard spec §4.5 calls out by name.
type SymbolOrderError struct {
	MangledName string
}

func (e *SymbolOrderError) Error() string {
	return fmt.Sprintf("jit: symbol %q referenced before registration; register it before compiling declarations that use it", e.MangledName)
}
