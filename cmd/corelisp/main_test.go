package main

import (
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/oxhq/corelisp/internal/codegen"
	"github.com/oxhq/corelisp/internal/config"
	"github.com/oxhq/corelisp/internal/jit"
	"github.com/oxhq/corelisp/internal/logging"
	"github.com/oxhq/corelisp/internal/runtime"
)

func TestGenerateAndCompileSingleLiteral(t *testing.T) {
	rctx := runtime.NewContext(jit.NewReferenceEngine())
	out, cacheKey, err := generateAndCompile(context.Background(), rctx, "user", "42", codegen.TargetEval)
	if err != nil {
		t.Fatalf("generateAndCompile: %v", err)
	}
	if out.EntrySymbol == "" {
		t.Fatal("expected a non-empty entry symbol")
	}
	if cacheKey == "" {
		t.Fatal("expected a non-empty cache key")
	}
}

func TestGenerateAndCompileFoldsMultipleForms(t *testing.T) {
	rctx := runtime.NewContext(jit.NewReferenceEngine())
	out, cacheKey, err := generateAndCompile(context.Background(), rctx, "user", "(def a 1) (def b 2) 3", codegen.TargetEval)
	if err != nil {
		t.Fatalf("generateAndCompile: %v", err)
	}
	if out.EntrySymbol == "" {
		t.Fatal("expected a non-empty entry symbol for the folded do-block")
	}
	// Several forms fold into one ExprDo, so there's no single def
	// identity to key on: the cache key falls back to ns+source.
	if cacheKey != "user\x00(def a 1) (def b 2) 3" {
		t.Fatalf("expected the namespace+source fallback key, got %q", cacheKey)
	}
}

func TestGenerateAndCompileKeysOnQualifiedDefName(t *testing.T) {
	rctx := runtime.NewContext(jit.NewReferenceEngine())
	_, cacheKey, err := generateAndCompile(context.Background(), rctx, "user", "(def a 1)", codegen.TargetEval)
	if err != nil {
		t.Fatalf("generateAndCompile: %v", err)
	}
	if cacheKey != "user/a" {
		t.Fatalf("expected cache key %q, got %q", "user/a", cacheKey)
	}
}

func TestGenerateAndCompileRejectsEmptySource(t *testing.T) {
	rctx := runtime.NewContext(jit.NewReferenceEngine())
	if _, _, err := generateAndCompile(context.Background(), rctx, "user", "   ", codegen.TargetEval); err == nil {
		t.Fatal("expected an error for source with no forms")
	}
}

func TestGenerateAndCompileModuleTarget(t *testing.T) {
	rctx := runtime.NewContext(jit.NewReferenceEngine())
	out, _, err := generateAndCompile(context.Background(), rctx, "user", "42", codegen.TargetModule)
	if err != nil {
		t.Fatalf("generateAndCompile: %v", err)
	}
	if out.Source == "" {
		t.Fatal("expected non-empty generated source for a module target")
	}
}

func TestNewRuntimeContextAttachesCache(t *testing.T) {
	cfg := &config.Config{
		CacheDir:     t.TempDir(),
		SearchPaths:  []string{"."},
		CompileFiles: false,
	}
	rctx, err := newRuntimeContext(cfg)
	if err != nil {
		t.Fatalf("newRuntimeContext: %v", err)
	}
	if rctx.Cache == nil {
		t.Fatal("expected an object cache to be attached")
	}
}

func TestNewRuntimeContextAttachesEncryptedCache(t *testing.T) {
	cfg := &config.Config{
		CacheDir:            t.TempDir(),
		CacheMasterKey:      "a test master secret, at least 16 bytes",
		CacheEncryptionAlgo: "xchacha20poly1305",
		SearchPaths:         []string{"."},
		CompileFiles:        false,
	}
	rctx, err := newRuntimeContext(cfg)
	if err != nil {
		t.Fatalf("newRuntimeContext: %v", err)
	}
	if rctx.Cache == nil {
		t.Fatal("expected an object cache to be attached")
	}
}

func TestNewRuntimeContextWithoutCacheDirLeavesCacheNil(t *testing.T) {
	cfg := &config.Config{SearchPaths: []string{"."}, CompileFiles: false}
	rctx, err := newRuntimeContext(cfg)
	if err != nil {
		t.Fatalf("newRuntimeContext: %v", err)
	}
	if rctx.Cache != nil {
		t.Fatal("expected no object cache when CacheDir is empty")
	}
}

func TestCommandTreeHasExpectedSubcommands(t *testing.T) {
	var namespace string
	cfg := &config.Config{RemoteAddr: "127.0.0.1:0", NReplAddr: "127.0.0.1:0"}
	logger := logging.New(logging.LevelError)

	cmds := []*cobra.Command{
		newEvalCmd(cfg, &namespace),
		newCompileCmd(cfg, &namespace),
		newReplCmd(cfg, &namespace),
		newServeCmd(cfg, logger),
		newNreplCmd(cfg, logger),
	}
	want := map[string]bool{"eval": false, "compile": false, "repl": false, "serve": false, "nrepl": false}
	for _, cmd := range cmds {
		name := cmd.Name()
		if _, ok := want[name]; !ok {
			t.Fatalf("unexpected subcommand %q", name)
		}
		want[name] = true
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}
