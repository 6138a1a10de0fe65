package codegen

import (
	"fmt"

	"github.com/oxhq/corelisp/internal/analyzer"
	"github.com/oxhq/corelisp/internal/reader"
)

// UnsupportedExprError reports an Expr.Kind the generator has no emission
// rule for (closed variant: this indicates a gap between analyzer.ExprKind
// and the emission dispatch table, not a user-facing compile error).
type UnsupportedExprError struct {
	Kind analyzer.ExprKind
	Loc  reader.Location
}

func (e *UnsupportedExprError) Error() string {
	return fmt.Sprintf("codegen: no emission rule for expression kind %d at %s:%d:%d", e.Kind, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// InvalidTargetError reports a Target value outside the closed Target enum.
type InvalidTargetError struct {
	Target Target
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("codegen: invalid compilation target %d", int(e.Target))
}

// UnresolvedCastError reports a cast expression missing the policy
// information the analyzer is required to have attached.
type UnresolvedCastError struct {
	Loc reader.Location
}

func (e *UnresolvedCastError) Error() string {
	return fmt.Sprintf("codegen: cast expression missing cast info at %s:%d:%d", e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}
