// Package codegen lowers an analyzed expression tree (internal/analyzer)
// into target source text for one of the JIT/cross-compiler's four
// compilation targets (spec §4.4). Codegen never makes a semantic
// decision the analyzer hasn't already encoded into the tree; it is a
// mechanical tree-to-text transform, grounded on the teacher's
// manipulator/writer staged-text idiom.
package codegen

import "sync/atomic"

// Target identifies one of the four compilation shapes the generator can
// produce for a single analyzed top-level form (spec §4.4).
type Target int

const (
	// TargetEval emits an anonymous function body returning the
	// expression's value, for JIT evaluation of a single form.
	TargetEval Target = iota
	// TargetModule emits a namespace-loader function `load_<mangled>()`
	// that interns the namespace's vars and returns a handle.
	TargetModule
	// TargetWasmAOT is identical to TargetModule but omits the
	// ns-intern call, so the module can link into a standalone artifact.
	TargetWasmAOT
	// TargetPatch emits a small addendum attached to an existing
	// module's state, for hot-reload.
	TargetPatch
)

func (t Target) String() string {
	switch t {
	case TargetEval:
		return "eval"
	case TargetModule:
		return "module"
	case TargetWasmAOT:
		return "wasm-aot"
	case TargetPatch:
		return "patch"
	default:
		return "unknown"
	}
}

// Options configures one Generate call.
type Options struct {
	Target Target

	// Namespace is the dotted namespace name being compiled, mangled into
	// the module target's load_<mangled> function name.
	Namespace string

	// CompileFiles mirrors the dynamic var `*compile-files*`: when true
	// and the target is module/wasm-aot, cpp-raw blocks are NOT
	// re-copied into the JIT deps buffer, since they will be parsed once
	// via the generated module (spec §4.4 cpp-raw skip rule).
	CompileFiles bool

	// Counter supplies deterministic, monotonically increasing names for
	// generated symbols (spec §4.4 "Determinism"). Callers share one
	// Counter across a compilation session so repeated Generate calls
	// never collide.
	Counter *Counter
}

// Counter is a monotonic generated-symbol name source. Two identical
// expression trees compiled against two Counters seeded at the same value
// produce byte-identical output, which is the incremental cache's
// structural-hash precondition (spec §4.4/§4.5).
type Counter struct {
	n int64
}

// NewCounter returns a Counter starting at 0.
func NewCounter() *Counter { return &Counter{} }

// Next returns the next generated symbol suffix.
func (c *Counter) Next() int64 {
	return atomic.AddInt64(&c.n, 1)
}
