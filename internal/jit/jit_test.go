package jit

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestReferenceEngineCompileValidSource(t *testing.T) {
	e := NewReferenceEngine()
	out, err := e.Compile(context.Background(), CompileRequest{
		Namespace:   "user",
		EntrySymbol: "eval_thunk_1",
		Source:      "extern \"C\" int eval_thunk_1() { return 1; }",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.EntrySymbol != "eval_thunk_1" {
		t.Fatalf("unexpected entry symbol %q", out.EntrySymbol)
	}
}

func TestReferenceEngineCompileSyntaxError(t *testing.T) {
	e := NewReferenceEngine()
	_, err := e.Compile(context.Background(), CompileRequest{
		Namespace:   "user",
		EntrySymbol: "broken",
		Source:      "extern \"C\" int broken( {{{ return;",
	})
	var jitErr *JITError
	if !errors.As(err, &jitErr) {
		t.Fatalf("expected *JITError, got %v", err)
	}
}

func TestReferenceEngineSymbolResolution(t *testing.T) {
	e := NewReferenceEngine()
	if err := e.RegisterSymbol(RegisteredSymbol{MangledName: "host_fn", Value: 42}); err != nil {
		t.Fatal(err)
	}
	out, err := e.Compile(context.Background(), CompileRequest{
		Namespace:   "user",
		EntrySymbol: "host_fn",
		Source:      "extern \"C\" int host_fn() { return 42; }",
	})
	if err != nil {
		t.Fatal(err)
	}
	v, err := out.Factory()
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("expected factory to resolve registered value 42, got %v", v)
	}
}

func TestStructuralHashIgnoresCounterSuffix(t *testing.T) {
	a := StructuralHash("auto fn_3 = [](){ return box_integer(1LL); };")
	b := StructuralHash("auto fn_17 = [](){ return box_integer(1LL); };")
	if a != b {
		t.Fatalf("expected hashes to match ignoring counter suffix, got %s vs %s", a, b)
	}
	c := StructuralHash("auto fn_3 = [](){ return box_integer(2LL); };")
	if a == c {
		t.Fatal("expected differing literal to produce a different hash")
	}
}

func TestIncrementalCacheHitOnMatchingHash(t *testing.T) {
	c := NewIncrementalCache()
	calls := 0
	compile := func() (any, error) {
		calls++
		return "var", nil
	}
	v1, hit1, err := c.GetOrCompile("user/x", "hash-a", compile)
	if err != nil || hit1 {
		t.Fatalf("expected a cold miss, got hit=%v err=%v", hit1, err)
	}
	v2, hit2, err := c.GetOrCompile("user/x", "hash-a", compile)
	if err != nil || !hit2 {
		t.Fatalf("expected a cache hit, got hit=%v err=%v", hit2, err)
	}
	if v1 != v2 {
		t.Fatalf("expected identical cached value, got %v vs %v", v1, v2)
	}
	if calls != 1 {
		t.Fatalf("expected compile to run exactly once, ran %d times", calls)
	}
}

func TestIncrementalCacheMissOnChangedHash(t *testing.T) {
	c := NewIncrementalCache()
	calls := 0
	compile := func() (any, error) {
		calls++
		return calls, nil
	}
	if _, _, err := c.GetOrCompile("user/x", "hash-a", compile); err != nil {
		t.Fatal(err)
	}
	v, hit, err := c.GetOrCompile("user/x", "hash-b", compile)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Fatal("expected a miss when the structural hash changes")
	}
	if v != 2 {
		t.Fatalf("expected recompilation, got %v", v)
	}
}

func TestIncrementalCacheSingleflightDedupesConcurrentCompiles(t *testing.T) {
	c := NewIncrementalCache()
	var calls int
	var mu sync.Mutex
	release := make(chan struct{})
	compile := func() (any, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = c.GetOrCompile("user/y", "hash-a", compile)
		}()
	}
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected singleflight to collapse concurrent compiles to 1 call, got %d", calls)
	}
}

func TestIncrementalCacheInvalidate(t *testing.T) {
	c := NewIncrementalCache()
	calls := 0
	compile := func() (any, error) {
		calls++
		return calls, nil
	}
	_, _, _ = c.GetOrCompile("user/z", "hash-a", compile)
	c.Invalidate("user/z")
	_, hit, _ := c.GetOrCompile("user/z", "hash-a", compile)
	if hit {
		t.Fatal("expected invalidated entry to force a recompile")
	}
	if calls != 2 {
		t.Fatalf("expected 2 compiles after invalidation, got %d", calls)
	}
}
