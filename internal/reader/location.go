// Package reader turns source text into a sequence of forms (object.Object
// values), attaching precise source-location metadata to every form it
// produces (spec §4.2).
package reader

import "github.com/oxhq/corelisp/internal/object"

// Location pins a form to its origin: a named source buffer plus 1-based
// line/column and 0-based byte-offset bounds, sufficient for diagnostics and
// for the nREPL engine's "absolute line number through macro expansion"
// requirement.
type Location struct {
	Origin    string
	StartLine int
	StartCol  int
	StartByte int
	EndLine   int
	EndCol    int
	EndByte   int
}

// Form pairs a read value with its source location and any reader- or
// user-attached metadata. Primitives carry no Meta field of their own (spec
// §3), so the reader keeps location and metadata alongside the value rather
// than forcing it into the object itself. The analyzer does not read
// Form.Meta; it reads only a symbol's own Meta field, which
// readMetaPrefixed fills for `^`-prefixed symbols.
type Form struct {
	Value object.Object
	Meta  object.Meta
	Loc   Location
}

// withMeta returns a copy of f with m merged in (m's entries win, per the
// reader's left-to-right accumulate-then-attach rule), and the reader's own
// location always taking precedence over anything parsed as `:location` in
// surrounding metadata.
func (f Form) withMeta(m object.Meta) Form {
	f.Meta = f.Meta.Merge(m)
	return f
}
