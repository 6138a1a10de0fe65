// Package object implements the dialect's uniform tagged heap value: every
// runtime value is an Object carrying a single-byte Kind discriminant plus
// kind-specific payload. The variant is closed; dispatch over Kind is table
// driven (see dispatch.go) rather than via Go type switches scattered across
// the codebase, so adding or auditing a kind touches one place.
package object

// Kind is the single-byte discriminant carried by every Object. Values are
// stable across compilation units and across host/target object files —
// treated as ABI per spec §3.
type Kind uint8

const (
	KindNil Kind = iota
	KindBoolean
	KindInteger
	KindReal
	KindBigInt
	KindBigDecimal
	KindRatio
	KindChar
	KindString
	KindSymbol
	KindKeyword
	KindList
	KindVector
	KindHashMap
	KindHashSet
	KindSortedSet
	KindSortedMap
	KindTransientVector
	KindTransientHashMap
	KindTransientHashSet
	KindVar
	KindNamespace
	KindCallable
	KindOpaqueBox
	KindCppCast

	numKinds
)

var kindNames = [numKinds]string{
	KindNil:              "nil",
	KindBoolean:          "boolean",
	KindInteger:          "integer",
	KindReal:             "real",
	KindBigInt:           "big-integer",
	KindBigDecimal:       "big-decimal",
	KindRatio:            "ratio",
	KindChar:             "character",
	KindString:           "string",
	KindSymbol:           "symbol",
	KindKeyword:          "keyword",
	KindList:             "list",
	KindVector:           "vector",
	KindHashMap:          "hash-map",
	KindHashSet:          "hash-set",
	KindSortedSet:        "sorted-set",
	KindSortedMap:        "sorted-map",
	KindTransientVector:  "transient-vector",
	KindTransientHashMap: "transient-hash-map",
	KindTransientHashSet: "transient-hash-set",
	KindVar:              "var",
	KindNamespace:        "namespace",
	KindCallable:         "callable",
	KindOpaqueBox:        "opaque-box",
	KindCppCast:          "cpp-cast",
}

// String returns the kind's canonical printed name, used in error messages
// (type-error names both kinds) and in the printer.
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return "unknown-kind"
}

// Flags are polymorphic behavior bits queried via table dispatch rather than
// a virtual hierarchy (spec §9: "polymorphic behavior flags ... are bit
// flags on the object header"). A user type that wants to be callable
// registers its own flag/table entry through RegisterCallSite.
type Flags uint8

const (
	FlagSeqable Flags = 1 << iota
	FlagCounted
	FlagCallable
	FlagReducible
)

var kindFlags = [numKinds]Flags{
	KindList:             FlagSeqable | FlagCounted,
	KindVector:           FlagSeqable | FlagCounted | FlagReducible,
	KindHashMap:          FlagSeqable | FlagCounted | FlagReducible,
	KindHashSet:          FlagSeqable | FlagCounted | FlagReducible,
	KindSortedSet:        FlagSeqable | FlagCounted | FlagReducible,
	KindSortedMap:        FlagSeqable | FlagCounted | FlagReducible,
	KindString:           FlagSeqable | FlagCounted,
	KindCallable:         FlagCallable,
	KindTransientVector:  FlagCounted,
	KindTransientHashMap: FlagCounted,
	KindTransientHashSet: FlagCounted,
}

// FlagsFor returns the default behavior flags for a kind.
func FlagsFor(k Kind) Flags {
	if k < numKinds {
		return kindFlags[k]
	}
	return 0
}
