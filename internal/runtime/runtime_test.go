package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/oxhq/corelisp/internal/jit"
)

func TestNamespaceTableGetOrCreateIdempotent(t *testing.T) {
	tbl := NewNamespaceTable()
	a := tbl.GetOrCreate("user")
	b := tbl.GetOrCreate("user")
	if a != b {
		t.Fatal("expected GetOrCreate to return the same namespace object")
	}
}

func TestNamespaceTableFind(t *testing.T) {
	tbl := NewNamespaceTable()
	if _, ok := tbl.Find("user"); ok {
		t.Fatal("expected Find to miss before any namespace is created")
	}
	tbl.GetOrCreate("user")
	if _, ok := tbl.Find("user"); !ok {
		t.Fatal("expected Find to hit after GetOrCreate")
	}
}

func TestContextCompileFilesToggle(t *testing.T) {
	c := NewContext(jit.NewReferenceEngine())
	if c.CompileFiles() {
		t.Fatal("expected *compile-files* to default to false")
	}
	c.SetCompileFiles(true)
	if !c.CompileFiles() {
		t.Fatal("expected *compile-files* to be true after SetCompileFiles(true)")
	}
}

func TestContextNewAnalyzerResolvesAcrossNamespaces(t *testing.T) {
	c := NewContext(jit.NewReferenceEngine())
	user := c.Namespaces.GetOrCreate("user")
	c.Namespaces.GetOrCreate("clojure.core")

	a := c.NewAnalyzer(user)
	if a.CurrentNS != user {
		t.Fatal("expected analyzer's current namespace to be the one passed in")
	}
	if ns, ok := a.Registry.Find("clojure.core"); !ok || ns.Name() != "clojure.core" {
		t.Fatal("expected analyzer's registry to resolve clojure.core via the shared NamespaceTable")
	}
}

func TestCurrentNamespaceContext(t *testing.T) {
	c := NewContext(jit.NewReferenceEngine())
	user := c.Namespaces.GetOrCreate("user")

	ctx := WithCurrentNamespace(context.Background(), user)
	ns, ok := CurrentNamespace(ctx)
	if !ok || ns != user {
		t.Fatal("expected CurrentNamespace to return the bound namespace")
	}

	if _, ok := CurrentNamespace(context.Background()); ok {
		t.Fatal("expected a bare context to have no bound namespace")
	}
}

func TestAllocatorDefaultIsAlwaysValid(t *testing.T) {
	h := DefaultAllocator.NewHandle()
	if !h.Valid(DefaultAllocator) {
		t.Fatal("expected a GC-allocator handle to always be valid")
	}
}

func TestArenaHandleInvalidAfterNewArena(t *testing.T) {
	a1 := NewArena("scope-1")
	h := a1.NewHandle()
	if !h.Valid(a1) {
		t.Fatal("expected handle to be valid under its own arena")
	}
	a2 := NewArena("scope-2")
	if h.Valid(a2) {
		t.Fatal("expected handle from one arena generation to be invalid under a different arena")
	}
}

func TestWithAllocatorDefaultsWhenUnbound(t *testing.T) {
	alloc := CurrentAllocator(context.Background())
	if alloc != DefaultAllocator {
		t.Fatal("expected CurrentAllocator to default to DefaultAllocator")
	}
	arena := NewArena("req-scope")
	ctx := WithAllocator(context.Background(), arena)
	if CurrentAllocator(ctx) != arena {
		t.Fatal("expected CurrentAllocator to return the bound arena")
	}
}

func TestDottedToRelPath(t *testing.T) {
	cases := map[string]string{
		"user":            "user.jank",
		"my-app.core":     filepath.Join("my_app", "core.jank"),
		"a.b.c":           filepath.Join("a", "b", "c.jank"),
		"clojure.core":    filepath.Join("clojure", "core.jank"),
	}
	for dotted, want := range cases {
		if got := dottedToRelPath(dotted); got != want {
			t.Errorf("dottedToRelPath(%q) = %q, want %q", dotted, got, want)
		}
	}
}

func TestLoaderResolveFindsSourceFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "my_app"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "my_app", "core.jank"), []byte("(ns my-app.core)"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader([]string{dir})
	res, err := l.Resolve("my-app.core", OriginSource)
	if err != nil {
		t.Fatal(err)
	}
	if res.UseArtifact {
		t.Fatal("expected OriginSource to never select an artifact")
	}
	if res.SourcePath != filepath.Join(dir, "my_app", "core.jank") {
		t.Fatalf("unexpected source path %q", res.SourcePath)
	}
}

func TestLoaderResolveMissing(t *testing.T) {
	l := NewLoader([]string{t.TempDir()})
	if _, err := l.Resolve("does.not.exist", OriginSource); err == nil {
		t.Fatal("expected an error for an unresolvable namespace")
	}
}

func TestLoaderConstrainedDowngradesLatestToSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "user.jank"), []byte("(ns user)"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader([]string{dir})
	l.Constrained = true
	l.Lookup = func(namespace string, sourceModTime int64) (string, bool) {
		t.Fatal("Lookup must not be consulted once OriginLatest is downgraded to OriginSource on a constrained target")
		return "", false
	}

	res, err := l.Resolve("user", OriginLatest)
	if err != nil {
		t.Fatal(err)
	}
	if res.UseArtifact {
		t.Fatal("expected constrained target to downgrade OriginLatest to OriginSource")
	}
}

func TestLoaderLatestPrefersFresherArtifact(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "user.jank"), []byte("(ns user)"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader([]string{dir})
	l.Lookup = func(namespace string, sourceModTime int64) (string, bool) {
		return "deadbeef", true
	}

	res, err := l.Resolve("user", OriginLatest)
	if err != nil {
		t.Fatal(err)
	}
	if !res.UseArtifact || res.ArtifactHash != "deadbeef" {
		t.Fatalf("expected a fresher artifact to win, got %+v", res)
	}
}
