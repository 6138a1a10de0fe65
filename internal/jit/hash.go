package jit

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// genSymSuffix matches the "_<digits>" suffix internal/codegen's Counter
// appends to every generated symbol name (fn_3, eval_thunk_12, patch_7,
// ...). StructuralHash strips these before hashing so that two otherwise
// identical expression trees compiled against counters seeded at
// different offsets still hash identically (spec §4.5: "The structural
// hash ignores source positions and counter-based names").
var genSymSuffix = regexp.MustCompile(`_[0-9]+\b`)

// StructuralHash computes the incremental cache key for a unit of
// generated source text. Codegen never emits source-position comments,
// so the only positional noise to normalize is the counter suffix.
func StructuralHash(source string) string {
	normalized := genSymSuffix.ReplaceAllString(source, "_N")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
