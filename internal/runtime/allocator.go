package runtime

import "sync/atomic"

// Allocator is the per-thread allocation strategy bound with
// WithAllocator (spec §4.6 "Current allocator"). It allocates nothing
// itself, and persistent-collection nodes are not built through it.
// DefaultAllocator stands for the Go garbage collector; an Arena is only
// a distinct generation stamp, so a Handle made under one arena reads as
// invalid (Handle.Valid) while a different arena is current. An arena
// has no teardown step and releases nothing.
type Allocator struct {
	name       string
	generation uint64
	arena      bool
}

// DefaultAllocator is the GC-backed allocator used when no arena is
// active. Nodes allocated under it live exactly as long as the Go
// garbage collector sees a reference to them.
var DefaultAllocator = &Allocator{name: "gc"}

// NewArena returns a fresh Arena allocator. Each Arena carries a distinct
// generation stamp so a node allocated under one arena can be detected as
// stale if it escapes into a later arena's scope (see Handle.Generation).
func NewArena(name string) *Allocator {
	return &Allocator{name: name, generation: nextGeneration(), arena: true}
}

var generationCounter uint64

func nextGeneration() uint64 {
	return atomic.AddUint64(&generationCounter, 1)
}

// IsArena reports whether a is a scoped arena rather than the default GC
// allocator.
func (a *Allocator) IsArena() bool { return a.arena }

// Generation returns a's generation stamp, 0 for DefaultAllocator.
func (a *Allocator) Generation() uint64 { return a.generation }

// Handle tags a persistent-collection node with the allocator generation
// it was built under. A node re-rooted into a later scope (copied rather
// than referenced) gets a fresh Handle for the new scope; one that is not
// must not be read once its originating arena's scope has exited (spec
// §4.6: "must not outlive the arena unless re-rooted through a copy").
type Handle struct {
	Generation uint64
}

// NewHandle tags a node as allocated under a.
func (a *Allocator) NewHandle() Handle {
	return Handle{Generation: a.generation}
}

// Valid reports whether h's originating allocator is still a, the check a
// debug build would run before dereferencing an arena-tagged node outside
// its scope.
func (h Handle) Valid(current *Allocator) bool {
	if current == nil || !current.arena {
		return true // GC allocator: nodes are always valid while referenced
	}
	return h.Generation == current.generation
}
