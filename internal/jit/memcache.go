package jit

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// IncrementalCache maps a def's qualified name to its last-compiled
// structural hash and resulting var reference (spec §4.5 "Incremental
// (in-memory) cache"). Grounded on the teacher's providers/base/cache.go
// ASTCache: a lock-free sync.Map keyed this time by def name instead of
// source hash, with hit/miss atomic counters (entries are never evicted,
// only replaced or invalidated), plus a
// singleflight.Group (absent from the teacher, adopted from the wider
// pack) so two goroutines racing to recompile the same def only pay the
// compile cost once.
type IncrementalCache struct {
	entries sync.Map // string -> *incrementalEntry
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

type incrementalEntry struct {
	structuralHash string
	value          any
}

// NewIncrementalCache returns an empty IncrementalCache.
func NewIncrementalCache() *IncrementalCache {
	return &IncrementalCache{}
}

// GetOrCompile returns the cached value for name if its stored structural
// hash matches structuralHash (spec: "On re-evaluation of a def whose
// hash matches the cached entry, return the cached var without
// recompiling"). Otherwise it calls compile exactly once even under
// concurrent callers for the same name, stores the result, and returns
// it.
func (c *IncrementalCache) GetOrCompile(name, structuralHash string, compile func() (any, error)) (any, bool, error) {
	if e, ok := c.entries.Load(name); ok {
		entry := e.(*incrementalEntry)
		if entry.structuralHash == structuralHash {
			c.hits.Add(1)
			return entry.value, true, nil
		}
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(name+"\x00"+structuralHash, func() (any, error) {
		if e, ok := c.entries.Load(name); ok {
			if entry := e.(*incrementalEntry); entry.structuralHash == structuralHash {
				return entry.value, nil
			}
		}
		val, err := compile()
		if err != nil {
			return nil, err
		}
		c.entries.Store(name, &incrementalEntry{structuralHash: structuralHash, value: val})
		return val, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, false, nil
}

// Invalidate drops name's cached entry, forcing the next GetOrCompile to
// recompile regardless of structural hash (used when a namespace is
// reloaded from scratch rather than incrementally patched).
func (c *IncrementalCache) Invalidate(name string) {
	c.entries.Delete(name)
}

// Stats mirrors the teacher's ASTCache.Stats shape.
func (c *IncrementalCache) Stats() map[string]int64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	rate := int64(0)
	if total > 0 {
		rate = hits * 100 / total
	}
	return map[string]int64{
		"hits":     hits,
		"misses":   misses,
		"hit_rate": rate,
	}
}
