package remote

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// Client is a minimal target-side stand-in for the remote compile
// protocol (spec §4.7 "target-side rules"): it dials a Server, assigns
// request ids, and matches responses back to callers. Production targets
// (mobile/WASM embedders) would implement this in their own native host
// glue; this Go client exists so the protocol can be exercised end to end
// from tests and from internal/abi's Bridge.
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
	mu   sync.Mutex // serializes one request/response round trip at a time

	nextID atomic.Int64
}

// Dial connects to a remote compile server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", addr, err)
	}
	return &Client{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(bufio.NewReader(conn)),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) roundTrip(req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req.ID = c.nextID.Add(1)
	if err := c.enc.Encode(req); err != nil {
		return Response{}, fmt.Errorf("remote: send request: %w", err)
	}
	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("remote: receive response: %w", err)
	}
	return resp, nil
}

// Compile asks the host to analyze+codegen+cross-compile code in ns,
// returning the compiled object bytes.
func (c *Client) Compile(ns, code string) (Response, error) {
	return c.roundTrip(Request{Op: OpCompile, NS: ns, Code: code})
}

// Eval is like Compile, but signals the host the result is intended to be
// executed for its value once loaded.
func (c *Client) Eval(ns, code string) (Response, error) {
	return c.roundTrip(Request{Op: OpEval, NS: ns, Code: code})
}

// Require asks the host to compile ns and its transitive :require
// dependencies, in load order. source, if non-empty, is used instead of
// the host's own module loader (e.g. for a namespace the target has only
// in memory).
func (c *Client) Require(ns, source string) (Response, error) {
	return c.roundTrip(Request{Op: OpRequire, NS: ns, Source: source})
}

// NativeSource asks the host for the codegen text of code in ns, without
// compiling it, for offline introspection on targets that lack
// native-source capability themselves.
func (c *Client) NativeSource(ns, code string) (Response, error) {
	return c.roundTrip(Request{Op: OpNativeSource, NS: ns, Code: code})
}
