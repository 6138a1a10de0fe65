// Package abi is the seam where a cross-target embedder (mobile app,
// WASM host) links against corelisp through a minimal stable C ABI (spec
// §6 "Runtime C ABI"). Bridge holds the pure-Go implementation every
// operation the ABI promises; abi_cgo.go exports cgo-callable C wrappers
// around a package-level Bridge singleton when built with cgo enabled
// (mirroring the teacher's unix/windows build-tag split in
// mcp/safety_process_unix.go / safety_process_windows.go, here splitting
// on cgo availability instead of OS).
package abi

import (
	"context"
	"fmt"
	"sync"

	"github.com/oxhq/corelisp/internal/jit"
	"github.com/oxhq/corelisp/internal/remote"
	"github.com/oxhq/corelisp/internal/runtime"
)

// Bridge implements every operation spec §6's C ABI lists: initialize
// runtime; load bytes as an object file; find/register a symbol;
// configure and toggle the remote-compile host/port; evaluate a string;
// query whether remote compile is active. One Bridge is the process-wide
// embedding surface a host application holds.
type Bridge struct {
	mu sync.Mutex

	ctx          *runtime.Context
	remoteAddr   string
	remoteClient *remote.Client
}

// NewBridge constructs a Bridge with a fresh runtime.Context over engine
// ("initialize runtime").
func NewBridge(engine jit.Engine) *Bridge {
	return &Bridge{ctx: runtime.NewContext(engine)}
}

// LoadObject links a precompiled object (spec §6 "load bytes as an
// object file") and returns its entry symbol.
func (b *Bridge) LoadObject(ctx context.Context, objectBytes []byte, entrySymbol string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	unit, err := b.ctx.JIT.LoadObject(ctx, objectBytes, entrySymbol)
	if err != nil {
		return "", err
	}
	return unit.EntrySymbol, nil
}

// FindSymbol reports whether mangledName is registered, and its callable
// flag if so ("find a symbol by mangled name").
func (b *Bridge) FindSymbol(mangledName string) (jit.RegisteredSymbol, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if engine, ok := b.ctx.JIT.(*jit.ReferenceEngine); ok {
		return engine.Lookup(mangledName)
	}
	return jit.RegisteredSymbol{}, false
}

// RegisterSymbol installs sym before any declaration referencing it is
// compiled ("register a symbol").
func (b *Bridge) RegisterSymbol(sym jit.RegisteredSymbol) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx.JIT.RegisterSymbol(sym)
}

// ConfigureRemote records the host/port a later ConnectRemote dials
// ("configure remote-compile host/port").
func (b *Bridge) ConfigureRemote(addr string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remoteAddr = addr
}

// ConnectRemote dials the configured remote compile server ("connect...
// remote compile").
func (b *Bridge) ConnectRemote() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remoteAddr == "" {
		return fmt.Errorf("abi: no remote address configured")
	}
	client, err := remote.Dial(b.remoteAddr)
	if err != nil {
		return err
	}
	b.remoteClient = client
	return nil
}

// DisconnectRemote closes the remote compile connection, if any
// ("disconnect remote compile").
func (b *Bridge) DisconnectRemote() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remoteClient == nil {
		return nil
	}
	err := b.remoteClient.Close()
	b.remoteClient = nil
	return err
}

// RemoteActive reports whether a remote compile connection is currently
// open ("query whether remote compile is active").
func (b *Bridge) RemoteActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remoteClient != nil
}

// Eval evaluates code in namespace ns ("evaluate a string"). When a
// remote compile connection is active, per spec §6's target-side
// routing rule, eval is routed to the remote host instead of analyzing
// locally (the local analyzer may lack headers the remote host has).
func (b *Bridge) Eval(ctx context.Context, ns, code string) (string, error) {
	b.mu.Lock()
	client := b.remoteClient
	namespace := b.ctx.Namespaces.GetOrCreate(ns)
	b.mu.Unlock()

	if client != nil {
		resp, err := client.Eval(ns, code)
		if err != nil {
			return "", err
		}
		if resp.Status == remote.StatusError {
			return "", fmt.Errorf("abi: remote eval: %s", resp.Message)
		}
		return resp.EntrySymbol, nil
	}

	_ = namespace
	return "", fmt.Errorf("abi: local eval requires a full analyze/codegen/JIT driver; use internal/runtime and internal/jit directly, or ConfigureRemote+ConnectRemote")
}
