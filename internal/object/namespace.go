package object

import (
	"sync"
)

// Namespace is a named container: symbol→var map, symbol→namespace
// aliases, and symbol→native-header aliases (spec §4.1). Locking follows
// the teacher registry's reader-writer discipline (internal/registry/
// registry.go): lookups take the read lock, mutation the write lock.
type Namespace struct {
	name string

	mu            sync.RWMutex
	vars          map[string]*Var
	nsAliases     map[string]*Namespace
	nativeAliases map[string]string // scope prefix -> native header path
	referred      map[string]referredEntry
	loaded        bool // require() idempotence marker
}

func NewNamespace(name string) *Namespace {
	return &Namespace{
		name:          name,
		vars:          make(map[string]*Var),
		nsAliases:     make(map[string]*Namespace),
		nativeAliases: make(map[string]string),
	}
}

func (ns *Namespace) Kind() Kind              { return KindNamespace }
func (ns *Namespace) Equal(other Object) bool { return ns == other }
func (ns *Namespace) Hash() uint64            { return fnvHash(ns.name) }
func (ns *Namespace) String() string          { return ns.name }
func (ns *Namespace) Name() string            { return ns.name }

// Intern returns the var for sym, creating it on first reference. Intern is
// idempotent on identity (spec §4.1 / invariant 3): a second Intern call
// for the same symbol returns the same *Var.
func (ns *Namespace) Intern(name string) *Var {
	ns.mu.RLock()
	if v, ok := ns.vars[name]; ok {
		ns.mu.RUnlock()
		return v
	}
	ns.mu.RUnlock()

	ns.mu.Lock()
	defer ns.mu.Unlock()
	if v, ok := ns.vars[name]; ok {
		return v
	}
	v := newVar(ns, name)
	ns.vars[name] = v
	return v
}

// Lookup returns the interned var for name without creating it.
func (ns *Namespace) Lookup(name string) (*Var, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	v, ok := ns.vars[name]
	return v, ok
}

// ReferOptions controls which public vars of a target namespace are
// aliased into ns by Refer (spec §4.1: ":exclude S, :only S, :rename M").
type ReferOptions struct {
	Exclude map[string]bool
	Only    map[string]bool
	Rename  map[string]string
}

// referred tracks which local names came from a Refer call, distinct from
// names introduced directly by Intern, so a later conflicting Refer can
// apply first-wins semantics (spec §9 open question: "first-wins; ...
// unless :rename or :only is used explicitly").
type referredEntry struct {
	from *Namespace
	v    *Var
}

// Refer installs aliases in ns for target's vars, subject to opts. Per
// spec §9's resolved open question, a name already referred from a
// different source namespace is left alone (first referrer wins) unless
// the caller used :rename (which always creates a new local name) or
// :only (which is an explicit, authoritative selection for this call).
func (ns *Namespace) Refer(target *Namespace, opts ReferOptions) {
	target.mu.RLock()
	names := make([]string, 0, len(target.vars))
	for n := range target.vars {
		names = append(names, n)
	}
	target.mu.RUnlock()

	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.referred == nil {
		ns.referred = make(map[string]referredEntry)
	}

	for _, name := range names {
		if len(opts.Only) > 0 && !opts.Only[name] {
			continue
		}
		if opts.Exclude[name] {
			continue
		}
		v, _ := target.Lookup(name)
		localName := name
		explicit := false
		if rn, ok := opts.Rename[name]; ok {
			localName = rn
			explicit = true
		}
		if !explicit && len(opts.Only) == 0 {
			if existing, ok := ns.referred[localName]; ok && existing.from != target {
				continue // first-wins: another namespace already referred this name
			}
			if _, direct := ns.vars[localName]; direct {
				continue // a local def always wins over a referred alias
			}
		}
		ns.vars[localName] = v
		ns.referred[localName] = referredEntry{from: target, v: v}
	}
}

// AliasNamespace installs a short name for target, resolved during
// qualified-symbol analysis (spec §4.3 resolution order, step 1).
func (ns *Namespace) AliasNamespace(alias string, target *Namespace) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.nsAliases[alias] = target
}

func (ns *Namespace) ResolveAlias(alias string) (*Namespace, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	target, ok := ns.nsAliases[alias]
	return target, ok
}

// AliasNativeHeader binds a scope prefix to a native header path, the
// effect of the analyzer instructing the embedded C++ interpreter to parse
// `#include <header>` (spec §4.3 C++ interop subsystem).
func (ns *Namespace) AliasNativeHeader(scope, header string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.nativeAliases[scope] = header
}

func (ns *Namespace) ResolveNativeHeader(scope string) (string, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	header, ok := ns.nativeAliases[scope]
	return header, ok
}

// MarkLoaded and Loaded implement require()'s idempotence marker: a module
// is loaded exactly once per process (spec §4.1, invariant 5).
func (ns *Namespace) MarkLoaded() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.loaded = true
}

func (ns *Namespace) Loaded() bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.loaded
}

// PublicVars returns a snapshot of all interned vars directly owned by ns
// (not including referred aliases), for completion/introspection use by
// the nREPL engine.
func (ns *Namespace) PublicVars() map[string]*Var {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	out := make(map[string]*Var, len(ns.vars))
	for k, v := range ns.vars {
		if v.Namespace() == ns {
			out[k] = v
		}
	}
	return out
}
