package codegen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// StagedArtifact is one generated compilation unit awaiting commit into the
// JIT's module/object state. Staging lets a caller generate, inspect, and
// diff an artifact before it becomes visible to other threads resolving
// vars against the namespace, mirroring the teacher's stage-before-mutate
// writer discipline (internal/writer/staging.go) adapted from "file on
// disk" to "namespace's loaded module state".
type StagedArtifact struct {
	Namespace   string
	Target      Target
	EntrySymbol string
	Source      string
	Deps        []string
	// BaseSourceSHA256 is the hash of the module source this artifact was
	// generated against, empty for a fresh (non-patch) compilation. A
	// patch's Commit call fails if the namespace's current source hash no
	// longer matches this value, the same conflict check the teacher's
	// CommitWriter applies per staged file.
	BaseSourceSHA256 string
}

func sha256Hex(s string) string {
	if s == "" {
		return ""
	}
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Stage wraps a freshly generated Output into a StagedArtifact ready for
// ordered commit, recording baseSource's hash for later conflict detection
// (baseSource is empty for TargetEval/TargetModule/TargetWasmAOT, which
// never depend on pre-existing module state).
func Stage(ns string, target Target, out Output, baseSource string) *StagedArtifact {
	return &StagedArtifact{
		Namespace:        ns,
		Target:           target,
		EntrySymbol:      out.EntrySymbol,
		Source:           out.Source,
		Deps:             out.Deps,
		BaseSourceSHA256: sha256Hex(baseSource),
	}
}

// Stager accumulates staged artifacts for one compilation session, the
// generator-side analogue of the teacher's StagingWriter: it never mutates
// the runtime's loaded module state directly, only records what a
// subsequent Commit pass should apply.
type Stager struct {
	mu        sync.Mutex
	artifacts []*StagedArtifact
}

// NewStager returns an empty Stager.
func NewStager() *Stager {
	return &Stager{artifacts: make([]*StagedArtifact, 0, 4)}
}

// Add records a staged artifact.
func (s *Stager) Add(a *StagedArtifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, a)
}

// Artifacts returns a snapshot of all staged artifacts in stage order.
func (s *Stager) Artifacts() []*StagedArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*StagedArtifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Committer applies staged artifacts against a live module-state backend.
// ModuleSource resolves a namespace's current loaded-source hash (the JIT's
// view, see internal/jit); Load is invoked once per artifact, in stage
// order, to actually link the generated source and register its entry
// symbol.
type Committer struct {
	ModuleSource func(ns string) (currentSourceSHA256 string, ok bool)
	Load         func(a *StagedArtifact) error

	applied []string
	skipped []string
}

// StaleArtifactError reports that an artifact's base module moved since it
// was staged, the patch-target analogue of the teacher's "file modified
// since staging" conflict.
type StaleArtifactError struct {
	Namespace string
}

func (e *StaleArtifactError) Error() string {
	return fmt.Sprintf("codegen: namespace %q changed since artifact was staged, recompile required", e.Namespace)
}

// Commit applies every staged artifact in order, aborting on the first
// error so the caller can recompile and retry rather than risk a partially
// applied patch sequence (mirrors CommitWriter.ApplyStagedChanges's
// abort-on-first-error rule).
func (c *Committer) Commit(artifacts []*StagedArtifact) error {
	for _, a := range artifacts {
		if a.Target == TargetPatch && a.BaseSourceSHA256 != "" && c.ModuleSource != nil {
			cur, ok := c.ModuleSource(a.Namespace)
			if !ok || cur != a.BaseSourceSHA256 {
				c.skipped = append(c.skipped, a.Namespace)
				return &StaleArtifactError{Namespace: a.Namespace}
			}
		}
		if err := c.Load(a); err != nil {
			return err
		}
		c.applied = append(c.applied, a.Namespace)
	}
	return nil
}

// Applied returns the namespaces successfully committed so far.
func (c *Committer) Applied() []string { return c.applied }
