package remote

import (
	"github.com/oxhq/corelisp/internal/object"
	"github.com/oxhq/corelisp/internal/runtime"
)

// RequireClause is one `[ns-name :as alias]` (or bare `ns-name`) entry of
// an `ns` form's `:require` clause.
type RequireClause struct {
	Namespace string
	Alias     string
}

// seqItems walks any object.Seq (List or Vector via its Seq()) into a
// plain slice, used to destructure ns-form shapes without caring whether
// the reader produced a list or vector for a given position.
func seqItems(v object.Object) []object.Object {
	var items []object.Object
	switch s := v.(type) {
	case object.Seq:
		for !s.IsEmpty() {
			items = append(items, s.First())
			s = s.Rest()
		}
	case object.Seqable:
		seq := s.Seq()
		for !seq.IsEmpty() {
			items = append(items, seq.First())
			seq = seq.Rest()
		}
	}
	return items
}

// isNsForm reports whether form is `(ns ...)`, the host-side rule spec
// §4.7 singles out: "When the first form in a request is an `ns` form,
// evaluate it... so that its `:require` clauses register aliases before
// subsequent forms are analyzed."
func isNsForm(form object.Object) bool {
	items := seqItems(form)
	if len(items) == 0 {
		return false
	}
	sym, ok := items[0].(*object.Symbol)
	return ok && sym.Ns == "" && sym.Name == "ns"
}

// parseNsForm extracts the declared namespace name and :require clauses
// from `(ns name (:require [dep :as alias] ...) ...)`. Unrecognized
// clause heads (:import, :refer-clojure, etc.) are silently skipped; the
// remote compile server only needs enough of `ns` to register aliases
// before analysis, not the full namespace-form grammar.
func parseNsForm(form object.Object) (name string, requires []RequireClause, ok bool) {
	items := seqItems(form)
	if len(items) < 2 {
		return "", nil, false
	}
	nameSym, ok := items[1].(*object.Symbol)
	if !ok {
		return "", nil, false
	}
	name = nameSym.Name

	for _, clause := range items[2:] {
		clauseItems := seqItems(clause)
		if len(clauseItems) == 0 {
			continue
		}
		kw, ok := clauseItems[0].(*object.Keyword)
		if !ok || kw.Name != "require" {
			continue
		}
		for _, spec := range clauseItems[1:] {
			requires = append(requires, parseRequireSpec(spec))
		}
	}
	return name, requires, true
}

// parseRequireSpec destructures one :require entry: a bare symbol, or a
// `[dep :as alias]` vector.
func parseRequireSpec(spec object.Object) RequireClause {
	if sym, ok := spec.(*object.Symbol); ok {
		return RequireClause{Namespace: sym.Name}
	}
	items := seqItems(spec)
	if len(items) == 0 {
		return RequireClause{}
	}
	dep, _ := items[0].(*object.Symbol)
	clause := RequireClause{Namespace: dep.Name}
	for i := 1; i+1 < len(items); i += 2 {
		kw, ok := items[i].(*object.Keyword)
		if !ok || kw.Name != "as" {
			continue
		}
		if alias, ok := items[i+1].(*object.Symbol); ok {
			clause.Alias = alias.Name
		}
	}
	return clause
}

// evaluateNsForm registers ns's name and (via alias, not a real load) its
// :require dependencies against ctx's namespace table, so a qualified
// reference in a later form of the same request resolves. This is a
// deliberately partial stand-in for the full `ns` macro (no :import,
// :refer-clojure, or transitive source loading) scoped to what the
// remote compile server needs: alias registration ahead of analysis.
func evaluateNsForm(ctx *runtime.Context, form object.Object) (*object.Namespace, []RequireClause, bool) {
	name, requires, ok := parseNsForm(form)
	if !ok {
		return nil, nil, false
	}
	ns := ctx.Namespaces.GetOrCreate(name)
	for _, req := range requires {
		dep := ctx.Namespaces.GetOrCreate(req.Namespace)
		alias := req.Alias
		if alias == "" {
			alias = req.Namespace
		}
		ns.AliasNamespace(alias, dep)
	}
	return ns, requires, true
}
