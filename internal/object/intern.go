package object

import "sync"

// Keyword is an interned singleton by (ns, name): spec §3 requires that two
// keywords produced anywhere in the process with the same (ns, name) be
// reference-equal. The interning table below follows the teacher registry's
// RWMutex discipline (internal/registry/registry.go: readers predominate,
// writers take the full lock), generalized from a provider-name table to a
// keyword-identity table.
type Keyword struct {
	Ns   string
	Name string
}

func (k *Keyword) Kind() Kind { return KindKeyword }
func (k *Keyword) Equal(other Object) bool {
	// Interning guarantees reference equality is sufficient, but Equal must
	// still hold structurally for keywords constructed outside the intern
	// table (e.g. deserialized from a remote host).
	o, ok := other.(*Keyword)
	return ok && k.Ns == o.Ns && k.Name == o.Name
}
func (k *Keyword) Hash() uint64 { return fnvHash(k.Ns) ^ fnvHash(k.Name)<<1 }
func (k *Keyword) String() string {
	if k.Ns == "" {
		return ":" + k.Name
	}
	return ":" + k.Ns + "/" + k.Name
}

// KeywordTable is a process-wide (or test-scoped) interning table for
// keywords. A single DefaultKeywords instance is used for production
// bring-up (spec §9: "a single process-wide handle is permissible for
// initial bring-up"), but every API accepts an explicit table so the
// runtime context (internal/runtime) can offer multi-tenant embedding.
type KeywordTable struct {
	mu    sync.RWMutex
	table map[string]*Keyword
}

func NewKeywordTable() *KeywordTable {
	return &KeywordTable{table: make(map[string]*Keyword)}
}

// Intern returns the canonical *Keyword for (ns, name), double-checking
// under the write lock on miss so concurrent first-interns of the same
// keyword still converge on one object (teacher precedent:
// providers/base/cache.go's sync.Map LoadOrStore compute-if-absent path).
func (t *KeywordTable) Intern(ns, name string) *Keyword {
	key := ns + "\x00" + name
	t.mu.RLock()
	if kw, ok := t.table[key]; ok {
		t.mu.RUnlock()
		return kw
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if kw, ok := t.table[key]; ok {
		return kw
	}
	kw := &Keyword{Ns: ns, Name: name}
	t.table[key] = kw
	return kw
}

// DefaultKeywords is the process-wide keyword interning table used when no
// explicit runtime context is threaded through (tests, simple embeddings).
var DefaultKeywords = NewKeywordTable()

// InternKeyword interns against the default table.
func InternKeyword(ns, name string) *Keyword { return DefaultKeywords.Intern(ns, name) }
