package codegen

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff between a namespace's previously generated
// module source and a freshly generated patch artifact's source, so a
// hot-reload tool can show the operator what a patch will change before
// Commit is called. Grounded on the teacher's diff-preview step
// (internal/writer/staging.go's StagingWriter.Summary, via util.UnifiedDiff).
func Diff(namespace, oldSource, newSource string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldSource),
		B:        difflib.SplitLines(newSource),
		FromFile: namespace + " (loaded)",
		ToFile:   namespace + " (patch)",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// PatchSet bundles a target namespace's in-flight patch artifact with the
// diff preview against its currently loaded source, for a caller to
// inspect before deciding whether to request Commit. No other package
// constructs one.
type PatchSet struct {
	Artifact *StagedArtifact
	Preview  string
}

// NewPatchSet builds a PatchSet from a staged patch artifact and the
// namespace's current loaded source text.
func NewPatchSet(a *StagedArtifact, loadedSource string) (*PatchSet, error) {
	preview, err := Diff(a.Namespace, loadedSource, a.Source)
	if err != nil {
		return nil, err
	}
	return &PatchSet{Artifact: a, Preview: preview}, nil
}
