package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Origin selects which artifact Loader.Resolve prefers for a given module (spec
// §4.6 "Module loader").
type Origin int

const (
	// OriginSource forces a fresh compile from source text, ignoring any
	// cached artifact.
	OriginSource Origin = iota
	// OriginLatest prefers a compiled artifact over source when the
	// artifact is fresher, falling back to source otherwise.
	OriginLatest
)

// sourceExtension is the dialect's source file suffix.
const sourceExtension = ".jank"

// Resolved is what Loader.Resolve hands back: the module's source path
// (always populated, even when an artifact wins, so callers can report
// provenance) plus whether a fresher compiled artifact should be used
// instead.
type Resolved struct {
	Namespace      string
	SourcePath     string
	UseArtifact    bool
	ArtifactHash   string // structural hash to hand to the persistent cache, if UseArtifact
}

// ArtifactLookup answers "is there a compiled artifact for this namespace
// fresher than modTime, and if so what's its structural hash", letting
// Loader stay decoupled from internal/cache's concrete schema.
type ArtifactLookup func(namespace string, sourceModTime int64) (structuralHash string, fresherThanSource bool)

// Loader maps dotted module names to source files across a search path
// (spec §4.6), the runtime-side counterpart of the teacher's FileWalker
// (core/filewalker.go) glob matching, narrowed from "walk a directory
// tree" to "resolve one dotted name to one file".
type Loader struct {
	SearchPaths []string
	// Constrained marks a cross-compile target that cannot JIT-compile
	// at all (spec §4.6: "constrained cross-compile targets that cannot
	// JIT-compile"); on such a target, OriginLatest is silently
	// downgraded to OriginSource so dependency graphs recompile through
	// the normal analyze->codegen path.
	Constrained bool

	Lookup ArtifactLookup
}

// NewLoader constructs a Loader over searchPaths (dotted names are
// resolved relative to each path in order, first match wins).
func NewLoader(searchPaths []string) *Loader {
	return &Loader{SearchPaths: searchPaths}
}

// dottedToRelPath converts "my-app.core" to "my_app/core.jank", matching
// the dialect's usual hyphen/dot module-path convention (hyphens in a
// namespace segment map to underscores in the file path, dots to path
// separators).
func dottedToRelPath(dotted string) string {
	segments := strings.Split(dotted, ".")
	for i, s := range segments {
		segments[i] = strings.ReplaceAll(s, "-", "_")
	}
	return filepath.Join(segments...) + sourceExtension
}

// Resolve finds dotted's source file across the search path and decides,
// per origin, whether the runtime should load a compiled artifact
// instead.
func (l *Loader) Resolve(dotted string, origin Origin) (*Resolved, error) {
	rel := dottedToRelPath(dotted)

	var sourcePath string
	for _, root := range l.SearchPaths {
		candidate := filepath.Join(root, rel)
		matches, err := doublestar.Glob(os.DirFS(root), rel)
		if err != nil {
			return nil, fmt.Errorf("runtime: glob search path %q: %w", root, err)
		}
		if len(matches) > 0 {
			sourcePath = candidate
			break
		}
	}
	if sourcePath == "" {
		return nil, fmt.Errorf("runtime: namespace %q not found on search path (looked for %s)", dotted, rel)
	}

	res := &Resolved{Namespace: dotted, SourcePath: sourcePath}

	effectiveOrigin := origin
	if effectiveOrigin == OriginLatest && l.Constrained {
		effectiveOrigin = OriginSource
	}

	if effectiveOrigin == OriginLatest && l.Lookup != nil {
		info, err := os.Stat(sourcePath)
		if err == nil {
			if hash, fresher := l.Lookup(dotted, info.ModTime().UnixNano()); fresher {
				res.UseArtifact = true
				res.ArtifactHash = hash
			}
		}
	}

	return res, nil
}
