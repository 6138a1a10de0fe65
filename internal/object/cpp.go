package object

import "fmt"

// OpaqueBox carries a native pointer (represented here as an opaque Go
// value, since this module has no cgo boundary of its own) and a type
// descriptor string; opaque to the dialect itself (spec §3).
type OpaqueBox struct {
	TypeDescriptor string
	Ptr            any
}

func NewOpaqueBox(typeDescriptor string, ptr any) *OpaqueBox {
	return &OpaqueBox{TypeDescriptor: typeDescriptor, Ptr: ptr}
}

func (b *OpaqueBox) Kind() Kind              { return KindOpaqueBox }
func (b *OpaqueBox) Equal(other Object) bool { return b == other }
func (b *OpaqueBox) Hash() uint64            { return fnvHash(b.TypeDescriptor) }
func (b *OpaqueBox) String() string {
	return fmt.Sprintf("#<opaque %s>", b.TypeDescriptor)
}

// CastPolicy distinguishes the three cpp-cast conversion policies the
// analyzer can attach to an expression (spec §4.3).
type CastPolicy int

const (
	// CastFromObject unboxes a boxed primitive literal to a native type,
	// e.g. for auto-unboxing into a builtin operator operand.
	CastFromObject CastPolicy = iota
	// CastIntoObject boxes a native value back into a dialect object,
	// e.g. the implicit boxing performed on an interop call's return value.
	CastIntoObject
	// CastCppToCpp converts between two native C++ types directly (no
	// dialect object boundary crossed), e.g. array-to-pointer decay.
	CastCppToCpp
)

func (p CastPolicy) String() string {
	switch p {
	case CastFromObject:
		return "from-object"
	case CastIntoObject:
		return "into-object"
	case CastCppToCpp:
		return "cpp-to-cpp"
	default:
		return "unknown-cast"
	}
}

// CppCast is an analysis-time artifact wrapping another expression with a
// conversion policy (spec §3). It is an Object (not merely an analyzer
// expression node) because the object model's closed variant must account
// for it crossing the analyzer/codegen boundary inside typed literal
// tables during testing and introspection.
type CppCast struct {
	Policy     CastPolicy
	NativeType string // e.g. "long", "double", "int*"
	Inner      Object
}

func NewCppCast(policy CastPolicy, nativeType string, inner Object) *CppCast {
	return &CppCast{Policy: policy, NativeType: nativeType, Inner: inner}
}

func (c *CppCast) Kind() Kind { return KindCppCast }
func (c *CppCast) Equal(other Object) bool {
	o, ok := other.(*CppCast)
	return ok && c.Policy == o.Policy && c.NativeType == o.NativeType && c.Inner.Equal(o.Inner)
}
func (c *CppCast) Hash() uint64 {
	return fnvHash(c.NativeType) ^ uint64(c.Policy)<<3 ^ c.Inner.Hash()
}
func (c *CppCast) String() string {
	return fmt.Sprintf("#<cpp-cast %s %s %s>", c.Policy, c.NativeType, c.Inner.String())
}
