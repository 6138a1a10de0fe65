package nrepl

import (
	"bytes"
	"sync"

	"github.com/oxhq/corelisp/internal/jit"
	"github.com/oxhq/corelisp/internal/runtime"
)

// Session is one nREPL client connection's state (spec §4.8): current
// namespace, output-redirection sinks, the incremental bencode decoder
// for incomplete frames, and per-op state. A single session's operations
// are sequential (spec §5 "single session is sequential"); mu guards
// currentNS and nextEvalCounter against concurrent access.
type Session struct {
	ID string

	mu        sync.Mutex
	ctx       *runtime.Context
	currentNS string

	// stdout/stderr, captured per op and flushed as an "out"/"err" frame
	// before the op's value frame (spec §4.8 eval ordering rule).
	stdout bytes.Buffer
	stderr bytes.Buffer

	decoder Decoder

	nextEvalCounter int64
}

// NewSession constructs a Session bound to ctx, defaulting the current
// namespace to ctx.CoreNamespace's sibling "user" (the dialect's default
// REPL namespace), matching the runtime's own default of falling back to
// "clojure.core" for unqualified resolution while evaluating in "user".
func NewSession(id string, ctx *runtime.Context) *Session {
	ctx.Namespaces.GetOrCreate("user")
	return &Session{ID: id, ctx: ctx, currentNS: "user"}
}

// CurrentNamespace returns the session's current namespace name,
// resolved by proper name (spec §4.8 eval: "resolved by proper name,
// never by path-derived name" — Session.currentNS is always set from an
// explicit `ns` field in a request, never inferred from a source path).
func (s *Session) CurrentNamespace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentNS
}

func (s *Session) setCurrentNamespace(ns string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentNS = ns
}

// Feed decodes as many complete request dicts as buf now completes.
func (s *Session) Feed(buf []byte) ([]map[string]any, error) {
	values, err := s.decoder.Feed(buf)
	if err != nil {
		return nil, err
	}
	reqs := make([]map[string]any, 0, len(values))
	for _, v := range values {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		reqs = append(reqs, m)
	}
	return reqs, nil
}

func bstr(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case []byte:
		return string(v)
	case string:
		return v
	}
	return ""
}

// engine exposes the session's JIT engine for ops that need to inspect
// registered native symbols (complete's `cpp` prefix union, spec §4.8).
func (s *Session) engine() jit.Engine {
	return s.ctx.JIT
}
