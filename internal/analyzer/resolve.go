package analyzer

import (
	"strings"

	"github.com/oxhq/corelisp/internal/object"
)

// NamespaceRegistry resolves a dotted module name (e.g. "clojure.core") to
// its interned Namespace, the last step of unqualified symbol resolution
// (spec §4.3, step 4). It is a narrow interface rather than a concrete
// dependency on internal/runtime to avoid an import cycle: runtime depends
// on analyzer, not the reverse.
type NamespaceRegistry interface {
	Find(dotted string) (*object.Namespace, bool)
}

// Scope is a lexical scope chain of local bindings, consulted before any
// namespace-level lookup (spec §4.3, unqualified step 1).
type Scope struct {
	parent *Scope
	names  map[string]bool
}

// NewScope opens a child scope over parent (nil for the top-level scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, names: make(map[string]bool)}
}

// Bind introduces name as a local in this scope.
func (s *Scope) Bind(name string) { s.names[name] = true }

// Has reports whether name is bound in this scope or an enclosing one.
func (s *Scope) Has(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.names[name] {
			return true
		}
	}
	return false
}

// resolution classifies where a symbol resolved, so callers can build the
// right Expr kind without re-deriving the same lookup.
type resolution struct {
	kind       resolutionKind
	local      string
	v          *object.Var
	cppScope   string
	cppName    string
}

type resolutionKind int

const (
	resLocal resolutionKind = iota
	resVar
	resCppGlobal
)

// resolveSymbol implements spec §4.3's symbol resolution order. coreNS is
// consulted as the fallback namespace for unqualified symbols (step 4,
// "clojure.core" in the parent dialect; here the ambient core namespace
// name carried by the Analyzer).
func (a *Analyzer) resolveSymbol(scope *Scope, sym *object.Symbol) (resolution, bool) {
	if sym.Qualified() {
		return a.resolveQualified(sym)
	}
	return a.resolveUnqualified(scope, sym)
}

func (a *Analyzer) resolveQualified(sym *object.Symbol) (resolution, bool) {
	// Step 1: explicit alias in the current namespace.
	if target, ok := a.CurrentNS.ResolveAlias(sym.Ns); ok {
		if v, ok := target.Lookup(sym.Name); ok {
			return resolution{kind: resVar, v: v}, true
		}
	}
	// Step 2: interned namespaces directly.
	if a.Registry != nil {
		if target, ok := a.Registry.Find(sym.Ns); ok {
			if v, ok := target.Lookup(sym.Name); ok {
				return resolution{kind: resVar, v: v}, true
			}
		}
	}
	// Step 3: registered native-header alias -> C++ reference.
	if _, ok := a.CurrentNS.ResolveNativeHeader(sym.Ns); ok {
		return resolution{kind: resCppGlobal, cppScope: sym.Ns, cppName: sym.Name}, true
	}
	// Step 4: reserved `cpp` prefix -> global C++ scope.
	if sym.Ns == "cpp" {
		return resolution{kind: resCppGlobal, cppScope: "", cppName: sym.Name}, true
	}
	return resolution{}, false
}

func (a *Analyzer) resolveUnqualified(scope *Scope, sym *object.Symbol) (resolution, bool) {
	// Step 1: lexical locals.
	if scope != nil && scope.Has(sym.Name) {
		return resolution{kind: resLocal, local: sym.Name}, true
	}
	// Step 2: current-namespace interns.
	if v, ok := a.CurrentNS.Lookup(sym.Name); ok {
		return resolution{kind: resVar, v: v}, true
	}
	// Step 3: referred vars — Lookup already returns referred aliases
	// since Namespace.Refer installs them directly into the vars map, so
	// this step is covered by step 2 above.
	// Step 4: core namespace.
	if a.Registry != nil {
		if core, ok := a.Registry.Find(a.CoreNamespace); ok {
			if v, ok := core.Lookup(sym.Name); ok {
				return resolution{kind: resVar, v: v}, true
			}
		}
	}
	return resolution{}, false
}

// tagOf inspects a resolved var's metadata for a `:tag` entry (spec §4.3
// ":tag metadata" design note), returning "" if absent.
func tagOf(v *object.Var) string {
	if v == nil {
		return ""
	}
	tag, ok := v.Meta()[":tag"]
	if !ok {
		return ""
	}
	if s, ok := tag.(*object.String); ok {
		return s.Value()
	}
	if k, ok := tag.(*object.Keyword); ok {
		return k.Name
	}
	return strings.TrimSpace(tag.String())
}
