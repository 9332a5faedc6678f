package source

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// PathSource copies a local directory into the workdir, so plugins can
// mutate the tree without touching the caller's checkout.
type PathSource struct {
	spec    Spec
	workdir string

	path string
}

var _ Source = (*PathSource)(nil)

func (s *PathSource) Get(ctx context.Context) (string, error) {
	if s.path != "" {
		return s.path, nil
	}

	from := strings.TrimPrefix(s.spec.URI, "file://")
	path := sourcePath(s.workdir)
	if err := os.CopyFS(path, os.DirFS(from)); err != nil {
		return "", fmt.Errorf("copying source tree from %s: %w", from, err)
	}
	s.path = path
	return path, nil
}

func (s *PathSource) Workdir() string { return s.workdir }

// VCSInfo is nil, a plain directory has no revision.
func (s *PathSource) VCSInfo() *VCSInfo { return nil }

func (s *PathSource) Remove() error {
	return os.RemoveAll(s.workdir)
}
