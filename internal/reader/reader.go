package reader

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/oxhq/corelisp/internal/object"
)

// DialectFeature is the feature tag every reader conditional's configured
// feature set includes at minimum, identifying this dialect to `#?(...)`
// branches (spec §4.2).
const DialectFeature = "corelisp"

// Reader is a single-pass recursive-descent parser over a source buffer,
// producing a lazy finite sequence of Forms (spec §4.2 contract). It is not
// safe for concurrent use; callers needing concurrent reads construct one
// Reader per goroutine, matching the per-request single-threaded discipline
// described in spec §5.
type Reader struct {
	src      []byte
	origin   string
	pos      int
	line     int
	col      int
	features map[string]bool
}

// New constructs a Reader over src, reporting positions against origin
// (typically a file path or "<repl>"). extraFeatures, if given, are added
// to the reader-conditional feature set alongside DialectFeature.
func New(src []byte, origin string, extraFeatures ...string) *Reader {
	features := map[string]bool{DialectFeature: true}
	for _, f := range extraFeatures {
		features[f] = true
	}
	return &Reader{src: src, origin: origin, line: 1, col: 1, features: features}
}

// ReadAll reads every form in the buffer.
func (r *Reader) ReadAll() ([]Form, error) {
	var forms []Form
	for {
		f, ok, err := r.Read()
		if err != nil {
			return forms, err
		}
		if !ok {
			return forms, nil
		}
		forms = append(forms, f)
	}
}

// Read reads the next form, or returns ok=false at end of input.
func (r *Reader) Read() (Form, bool, error) {
	r.skipAtmosphere()
	if r.atEOF() {
		return Form{}, false, nil
	}
	return r.readForm()
}

func (r *Reader) atEOF() bool { return r.pos >= len(r.src) }

func (r *Reader) peek() byte {
	if r.atEOF() {
		return 0
	}
	return r.src[r.pos]
}

func (r *Reader) peekAt(off int) byte {
	if r.pos+off >= len(r.src) {
		return 0
	}
	return r.src[r.pos+off]
}

func (r *Reader) advance() byte {
	c := r.src[r.pos]
	r.pos++
	if c == '\n' {
		r.line++
		r.col = 1
	} else {
		r.col++
	}
	return c
}

func (r *Reader) mark() Location {
	return Location{Origin: r.origin, StartLine: r.line, StartCol: r.col, StartByte: r.pos}
}

func (r *Reader) close(loc Location) Location {
	loc.EndLine, loc.EndCol, loc.EndByte = r.line, r.col, r.pos
	return loc
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == ','
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '[', ']', '{', '}', '"', ';', '\'', '`', '~', '^', '@', 0:
		return true
	}
	return isWhitespace(c)
}

// skipAtmosphere consumes whitespace, commas (treated as whitespace per
// Clojure-family convention), and `;` line comments.
func (r *Reader) skipAtmosphere() {
	for !r.atEOF() {
		c := r.peek()
		switch {
		case isWhitespace(c):
			r.advance()
		case c == ';':
			for !r.atEOF() && r.peek() != '\n' {
				r.advance()
			}
		default:
			return
		}
	}
}

func (r *Reader) readForm() (Form, bool, error) {
	start := r.mark()
	c := r.peek()
	switch {
	case c == '(':
		return r.readSeq(')', "list", start)
	case c == '[':
		return r.readSeq(']', "vector", start)
	case c == '{':
		return r.readSeq('}', "map", start)
	case c == '"':
		return r.readString(start)
	case c == ':':
		return r.readKeyword(start)
	case c == '\'':
		r.advance()
		return r.readWrapped("quote", start)
	case c == '`':
		r.advance()
		return r.readWrapped("syntax-quote", start)
	case c == '~':
		r.advance()
		if r.peek() == '@' {
			r.advance()
			return r.readWrapped("unquote-splicing", start)
		}
		return r.readWrapped("unquote", start)
	case c == '@':
		r.advance()
		return r.readWrapped("deref", start)
	case c == '^':
		return r.readMetaPrefixed(start)
	case c == '#':
		return r.readDispatch(start)
	case c == ')' || c == ']' || c == '}':
		r.advance()
		return Form{}, false, &UnbalancedDelimiterError{Delim: string(c), Loc: r.close(start)}
	default:
		return r.readAtom(start)
	}
}

// readSeq reads a parenthesized/bracketed/braced sequence of forms into the
// collection kind named by what (spec §4.2: "()", "[]", "{}", "#{}" share
// this same balanced-read loop; the caller supplies the closing delimiter
// and the eventual container constructor).
func (r *Reader) readSeq(closer byte, what string, start Location) (Form, bool, error) {
	r.advance() // opener
	var items []Form
	for {
		r.skipAtmosphere()
		if r.atEOF() {
			return Form{}, false, &UnterminatedError{What: "collection", Loc: r.close(start)}
		}
		if r.peek() == closer {
			r.advance()
			return r.buildCollection(what, items, r.close(start)), true, nil
		}
		if r.peek() == ')' || r.peek() == ']' || r.peek() == '}' {
			return Form{}, false, &UnbalancedDelimiterError{Delim: string(r.peek()), Loc: r.close(start)}
		}
		f, ok, err := r.readForm()
		if err != nil {
			return Form{}, false, err
		}
		if !ok {
			return Form{}, false, &UnterminatedError{What: "collection", Loc: r.close(start)}
		}
		items = append(items, f)
	}
}

func (r *Reader) buildCollection(what string, items []Form, loc Location) Form {
	switch what {
	case "list":
		vals := make([]object.Object, len(items))
		for i, it := range items {
			vals[i] = it.Value
		}
		return Form{Value: object.NewList(vals...), Loc: loc}
	case "vector":
		vals := make([]object.Object, len(items))
		for i, it := range items {
			vals[i] = it.Value
		}
		return Form{Value: object.NewVector(vals...), Loc: loc}
	case "map":
		pairs := make([]object.Object, len(items))
		for i, it := range items {
			pairs[i] = it.Value
		}
		return Form{Value: object.NewHashMap(pairs...), Loc: loc}
	case "set":
		s := object.EmptyHashSet
		for _, it := range items {
			s = s.Conj(it.Value).(*object.HashSet)
		}
		return Form{Value: s, Loc: loc}
	}
	panic("reader: unknown collection kind " + what)
}

func (r *Reader) readWrapped(sym string, start Location) (Form, bool, error) {
	f, ok, err := r.Read()
	if err != nil {
		return Form{}, false, err
	}
	if !ok {
		return Form{}, false, &UnterminatedError{What: "collection", Loc: r.close(start)}
	}
	wrapped := object.NewList(object.NewSymbol("", sym), f.Value)
	return Form{Value: wrapped, Loc: r.close(start)}, true, nil
}

// readMetaPrefixed reads one or more `^` metadata prefixes, accumulating
// them left-to-right into a single map before reading and attaching to the
// following form (spec §4.2: "accumulates into a single map then attaches
// to the following form").
func (r *Reader) readMetaPrefixed(start Location) (Form, bool, error) {
	acc := object.Meta{}
	for r.peek() == '^' {
		r.advance()
		mf, ok, err := r.readForm()
		if err != nil {
			return Form{}, false, err
		}
		if !ok {
			return Form{}, false, &UnterminatedError{What: "collection", Loc: r.close(start)}
		}
		for k, v := range metaFragment(mf.Value) {
			acc[k] = v
		}
		r.skipAtmosphere()
	}
	f, ok, err := r.readForm()
	if err != nil {
		return Form{}, false, err
	}
	if !ok {
		return Form{}, false, &UnterminatedError{What: "collection", Loc: r.close(start)}
	}
	f = f.withMeta(acc)
	f.Loc = r.close(start)
	// Symbols carry their own Meta field, so metadata survives being
	// flattened into a containing collection's []object.Object items
	// (buildCollection keeps only Form.Value); every other kind relies on
	// the caller consulting Form.Meta directly at the top level.
	if sym, ok := f.Value.(*object.Symbol); ok {
		f.Value = sym.WithMeta(sym.Meta.Merge(acc))
	}
	return f, true, nil
}

// metaFragment normalizes one `^`-prefixed form into metadata entries:
// `^{...}` merges directly, `^:kw` sets {kw: true}, `^sym` sets {:tag sym},
// `^"str"` sets {:tag str} (spec §4.2).
func metaFragment(v object.Object) object.Meta {
	switch val := v.(type) {
	case *object.HashMap:
		out := object.Meta{}
		val.Range(func(k, v object.Object) bool {
			out[k.String()] = v
			return true
		})
		return out
	case *object.Keyword:
		return object.Meta{val.String(): object.True}
	default:
		return object.Meta{":tag": v}
	}
}

// readDispatch handles `#` reader macros: `#{...}` sets, `#?(...)` reader
// conditionals, the `##Inf`/`##-Inf`/`##NaN` reals, and `#cpp "..."` C++
// literals (spec §4.2).
func (r *Reader) readDispatch(start Location) (Form, bool, error) {
	r.advance() // '#'
	switch r.peek() {
	case '{':
		return r.readSeq('}', "set", start)
	case '?':
		r.advance()
		return r.readReaderConditional(start)
	default:
		return r.readDispatchWord(start)
	}
}

func (r *Reader) readDispatchWord(start Location) (Form, bool, error) {
	word := r.readBareToken()
	switch word {
	case "#Inf", "#-Inf", "#NaN":
		v, _ := parseNumber("#" + word)
		return Form{Value: v, Loc: r.close(start)}, true, nil
	case "cpp":
		r.skipAtmosphere()
		if r.peek() != '"' {
			return Form{}, false, &InvalidNumberError{Token: "#cpp", Loc: r.close(start)}
		}
		sf, _, err := r.readString(r.mark())
		if err != nil {
			return Form{}, false, err
		}
		lit := object.NewList(object.NewSymbol("", "cpp-raw"), sf.Value)
		return Form{Value: lit, Loc: r.close(start)}, true, nil
	default:
		return Form{}, false, &InvalidNumberError{Token: "#" + word, Loc: r.close(start)}
	}
}

func (r *Reader) readBareToken() string {
	startPos := r.pos
	for !r.atEOF() && !isDelimiter(r.peek()) {
		r.advance()
	}
	return string(r.src[startPos:r.pos])
}

// readReaderConditional reads `#?(:tag form :tag form ... )`, evaluating
// branches at read time against the reader's configured feature set; the
// first matching branch's form is returned, non-matching branches are
// skipped using only balanced-delimiter counting so forward-incompatible
// syntax in a skipped branch never needs to parse (spec §4.2 algorithms).
func (r *Reader) readReaderConditional(start Location) (Form, bool, error) {
	r.skipAtmosphere()
	if r.peek() != '(' {
		return Form{}, false, &UnbalancedDelimiterError{Delim: "#?", Loc: r.close(start)}
	}
	r.advance()

	var matched *Form
	for {
		r.skipAtmosphere()
		if r.atEOF() {
			return Form{}, false, &UnterminatedError{What: "collection", Loc: r.close(start)}
		}
		if r.peek() == ')' {
			r.advance()
			break
		}
		tagForm, ok, err := r.readForm()
		if err != nil {
			return Form{}, false, err
		}
		if !ok {
			return Form{}, false, &UnterminatedError{What: "collection", Loc: r.close(start)}
		}
		kw, _ := tagForm.Value.(*object.Keyword)
		r.skipAtmosphere()
		matches := kw != nil && (kw.Name == "default" || r.features[kw.Name])
		if matches && matched == nil {
			f, ok, err := r.readForm()
			if err != nil {
				return Form{}, false, err
			}
			if !ok {
				return Form{}, false, &UnterminatedError{What: "collection", Loc: r.close(start)}
			}
			matched = &f
		} else {
			if err := r.skipBalanced(); err != nil {
				return Form{}, false, err
			}
		}
	}
	if matched == nil {
		return r.Read()
	}
	matched.Loc = r.close(start)
	return *matched, true, nil
}

// skipBalanced consumes exactly one form's worth of source by counting
// delimiter balance only — it never actually parses the skipped branch, so
// a non-matching reader-conditional branch may contain syntax this reader
// version doesn't otherwise understand (spec §4.2).
func (r *Reader) skipBalanced() error {
	r.skipAtmosphere()
	if r.atEOF() {
		return &UnterminatedError{What: "collection", Loc: r.mark()}
	}
	c := r.peek()
	if c == '#' {
		r.advance()
		return r.skipBalanced()
	}
	if c == '"' {
		_, _, err := r.readString(r.mark())
		return err
	}
	opener := c
	var closer byte
	switch opener {
	case '(':
		closer = ')'
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	default:
		r.readBareToken()
		return nil
	}
	r.advance()
	depth := 1
	for depth > 0 {
		if r.atEOF() {
			return &UnterminatedError{What: "collection", Loc: r.mark()}
		}
		switch r.advance() {
		case opener:
			depth++
		case closer:
			depth--
		case '"':
			for !r.atEOF() && r.peek() != '"' {
				if r.peek() == '\\' {
					r.advance()
				}
				r.advance()
			}
			if !r.atEOF() {
				r.advance()
			}
		}
	}
	return nil
}

func (r *Reader) readString(start Location) (Form, bool, error) {
	r.advance() // opening quote
	var sb strings.Builder
	for {
		if r.atEOF() {
			return Form{}, false, &UnterminatedError{What: "string", Loc: r.close(start)}
		}
		c := r.advance()
		if c == '"' {
			return Form{Value: object.NewString(sb.String()), Loc: r.close(start)}, true, nil
		}
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if r.atEOF() {
			return Form{}, false, &UnterminatedError{What: "string", Loc: r.close(start)}
		}
		esc := r.advance()
		switch esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		case '0':
			sb.WriteByte(0)
		default:
			return Form{}, false, &InvalidEscapeError{Escape: "\\" + string(esc), Loc: r.close(start)}
		}
	}
}

func (r *Reader) readKeyword(start Location) (Form, bool, error) {
	r.advance() // ':'
	tok := r.readBareToken()
	ns, name := splitQualified(tok)
	return Form{Value: object.InternKeyword(ns, name), Loc: r.close(start)}, true, nil
}

func splitQualified(tok string) (ns, name string) {
	if i := strings.IndexByte(tok, '/'); i > 0 && i < len(tok)-1 {
		return tok[:i], tok[i+1:]
	}
	return "", tok
}

// readAtom reads a number, symbol, character literal, or reserved
// nil/true/false token.
func (r *Reader) readAtom(start Location) (Form, bool, error) {
	if r.peek() == '\\' {
		return r.readChar(start)
	}
	tok := r.readBareToken()
	if tok == "" {
		return Form{}, false, &InvalidNumberError{Token: tok, Loc: r.close(start)}
	}
	switch tok {
	case "nil":
		return Form{Value: object.Nil, Loc: r.close(start)}, true, nil
	case "true":
		return Form{Value: object.True, Loc: r.close(start)}, true, nil
	case "false":
		return Form{Value: object.False, Loc: r.close(start)}, true, nil
	}
	if looksNumeric(tok) {
		v, err := parseNumber(tok)
		if err != nil {
			return Form{}, false, &InvalidNumberError{Token: tok, Loc: r.close(start)}
		}
		return Form{Value: v, Loc: r.close(start)}, true, nil
	}
	ns, name := splitQualified(tok)
	return Form{Value: object.NewSymbol(ns, name), Loc: r.close(start)}, true, nil
}

func (r *Reader) readChar(start Location) (Form, bool, error) {
	r.advance() // backslash
	if r.atEOF() {
		return Form{}, false, &UnterminatedError{What: "string", Loc: r.close(start)}
	}
	tok := r.readBareToken()
	if tok == "" {
		// A single punctuation rune immediately following the backslash,
		// e.g. \( or \;.
		tok = string(r.advance())
	}
	switch tok {
	case "newline":
		return Form{Value: object.NewChar('\n'), Loc: r.close(start)}, true, nil
	case "space":
		return Form{Value: object.NewChar(' '), Loc: r.close(start)}, true, nil
	case "tab":
		return Form{Value: object.NewChar('\t'), Loc: r.close(start)}, true, nil
	case "return":
		return Form{Value: object.NewChar('\r'), Loc: r.close(start)}, true, nil
	}
	runes := []rune(tok)
	if len(runes) != 1 {
		return Form{}, false, &InvalidNumberError{Token: "\\" + tok, Loc: r.close(start)}
	}
	return Form{Value: object.NewChar(runes[0]), Loc: r.close(start)}, true, nil
}

func looksNumeric(tok string) bool {
	c := tok[0]
	if c >= '0' && c <= '9' {
		return true
	}
	if (c == '+' || c == '-') && len(tok) > 1 {
		c2 := tok[1]
		return c2 >= '0' && c2 <= '9'
	}
	return false
}

// parseNumber dispatches among integer (decimal/hex/radix), ratio, and real
// (including the special ##Inf/##-Inf/##NaN spellings) per spec §4.2.
func parseNumber(tok string) (object.Object, error) {
	switch tok {
	case "##Inf":
		return object.NewReal(posInf()), nil
	case "##-Inf":
		return object.NewReal(negInf()), nil
	case "##NaN":
		return object.NewReal(nan()), nil
	}
	if i := strings.IndexByte(tok, '/'); i > 0 && i < len(tok)-1 {
		num, ok1 := new(big.Int).SetString(tok[:i], 10)
		den, ok2 := new(big.Int).SetString(tok[i+1:], 10)
		if ok1 && ok2 {
			return object.NewRatio(new(big.Rat).SetFrac(num, den)), nil
		}
		return nil, fmt.Errorf("invalid ratio %q", tok)
	}
	if strings.HasSuffix(tok, "N") {
		n, ok := new(big.Int).SetString(tok[:len(tok)-1], 10)
		if !ok {
			return nil, fmt.Errorf("invalid big integer %q", tok)
		}
		return object.NewBigInt(n), nil
	}
	if strings.HasSuffix(tok, "M") {
		v, ok := new(big.Rat).SetString(tok[:len(tok)-1])
		if !ok {
			return nil, fmt.Errorf("invalid big decimal %q", tok)
		}
		return object.NewBigDecimal(v), nil
	}
	if base, digits, ok := parseRadixPrefix(tok); ok {
		n, err := strconv.ParseInt(digits, base, 64)
		if err != nil {
			return nil, err
		}
		return object.NewInteger(n), nil
	}
	if strings.ContainsAny(tok, ".eE") {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, err
		}
		return object.NewReal(f), nil
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return nil, err
	}
	return object.NewInteger(n), nil
}

// parseRadixPrefix recognizes 0x/0X hex and NrDDD arbitrary-radix forms.
func parseRadixPrefix(tok string) (base int, digits string, ok bool) {
	neg := strings.HasPrefix(tok, "-")
	body := tok
	if neg || strings.HasPrefix(tok, "+") {
		body = tok[1:]
	}
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		d := body[2:]
		if neg {
			d = "-" + d
		}
		return 16, d, true
	}
	if i := strings.IndexByte(body, 'r'); i > 0 {
		baseStr, rest := body[:i], body[i+1:]
		b, err := strconv.Atoi(baseStr)
		if err != nil || b < 2 || b > 36 {
			return 0, "", false
		}
		if neg {
			rest = "-" + rest
		}
		return b, rest, true
	}
	return 0, "", false
}

func posInf() float64 {
	f := 1.0
	for i := 0; i < 2000; i++ {
		f *= 10
	}
	return f
}

func negInf() float64 { return -posInf() }

func nan() float64 {
	z := 0.0
	return z / z
}
