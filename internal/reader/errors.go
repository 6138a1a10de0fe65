package reader

import "fmt"

// UnterminatedError reports a collection or string that ran off the end of
// the buffer before its closing delimiter (spec §4.2 errors).
type UnterminatedError struct {
	What string // "collection" or "string"
	Loc  Location
}

func (e *UnterminatedError) Error() string {
	return fmt.Sprintf("unterminated-%s: starting at %s:%d:%d", e.What, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// InvalidEscapeError reports an unrecognized backslash escape inside a
// string literal.
type InvalidEscapeError struct {
	Escape string
	Loc    Location
}

func (e *InvalidEscapeError) Error() string {
	return fmt.Sprintf("invalid-escape: %q at %s:%d:%d", e.Escape, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// InvalidNumberError reports a token that looked numeric but failed to
// parse under any supported radix/format. The reader also returns it for
// an unknown `#` dispatch word, a `#cpp` not followed by a string, an
// unrecognized character literal, and an empty token.
type InvalidNumberError struct {
	Token string
	Loc   Location
}

func (e *InvalidNumberError) Error() string {
	return fmt.Sprintf("invalid-number: %q at %s:%d:%d", e.Token, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}

// UnbalancedDelimiterError reports a closing delimiter with no matching
// opener, or a mismatched closer (e.g. `(]`).
type UnbalancedDelimiterError struct {
	Delim string
	Loc   Location
}

func (e *UnbalancedDelimiterError) Error() string {
	return fmt.Sprintf("unbalanced-delimiter: %q at %s:%d:%d", e.Delim, e.Loc.Origin, e.Loc.StartLine, e.Loc.StartCol)
}
