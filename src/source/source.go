// Package source fetches build input trees from their providers into a
// scratch directory that lives for exactly one build.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Spec describes where a build's input tree comes from. It is part of
// the build descriptor, so both json and yaml tags are carried.
type Spec struct {
	Provider       string `json:"provider" yaml:"provider"`
	URI            string `json:"uri" yaml:"uri"`
	DockerfilePath string `json:"dockerfile_path,omitempty" yaml:"dockerfile_path,omitempty"`

	ProviderParams struct {
		GitCommit string `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	} `json:"provider_params,omitempty" yaml:"provider_params,omitempty"`
}

// VCSInfo identifies the exact revision a source tree was taken from.
type VCSInfo struct {
	VCSType string
	VCSURL  string
	VCSRef  string
}

// Source is a build input tree. Get materializes it on first call and
// returns the same path afterwards; Remove tears down the whole
// workdir including everything providers put next to the tree.
type Source interface {
	// Get ensures the tree is on disk and returns its path.
	Get(ctx context.Context) (string, error)

	// Workdir is the scratch directory the tree lives under.
	Workdir() string

	// VCSInfo describes the fetched revision, nil when the provider has
	// no revision notion.
	VCSInfo() *VCSInfo

	// Remove deletes the workdir.
	Remove() error
}

// New builds a Source for the spec, rooted at a fresh directory under
// tmpdir. tmpdir empty means the system temp directory.
func New(spec Spec, tmpdir string) (Source, error) {
	workdir, err := os.MkdirTemp(tmpdir, "kiln-source-")
	if err != nil {
		return nil, fmt.Errorf("creating source workdir: %w", err)
	}

	switch spec.Provider {
	case "git", "":
		return &GitSource{spec: spec, workdir: workdir}, nil
	case "path":
		return &PathSource{spec: spec, workdir: workdir}, nil
	default:
		os.RemoveAll(workdir)
		return nil, fmt.Errorf("unknown source provider %q", spec.Provider)
	}
}

// sourcePath is where every provider materializes the tree inside the
// workdir, leaving the rest of the workdir free for build artifacts.
func sourcePath(workdir string) string {
	return filepath.Join(workdir, "source")
}
