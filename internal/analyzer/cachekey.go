package analyzer

// CacheKey derives the incremental compile cache's key (spec §4.5: "on
// re-evaluation of a def whose hash matches the cached entry, return the
// cached var without recompiling"). When the analyzed body is exactly one
// top-level def, the key is the def's qualified name, so redefining it
// under a different body invalidates the old entry via the structural
// hash while re-evaluating it unchanged hits. Any other shape (a bare
// eval expression, or several forms folded into one ExprDo) has no
// single def identity to key on, so the key falls back to the namespace
// plus the literal source text: identical repeated input still hits,
// distinct input just gets its own slot instead of evicting an unrelated
// one.
func CacheKey(ns string, exprs []*Expr, source string) string {
	if len(exprs) == 1 && exprs[0].Kind == ExprDef {
		return exprs[0].DefNs.Name() + "/" + exprs[0].DefName
	}
	return ns + "\x00" + source
}
