package source

import (
	"context"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitSource clones a git repository and optionally checks out a fixed
// commit, so rebuilds of the same descriptor see the same tree.
type GitSource struct {
	spec    Spec
	workdir string

	path string
	info *VCSInfo
}

var _ Source = (*GitSource)(nil)

func (s *GitSource) Get(ctx context.Context) (string, error) {
	if s.path != "" {
		return s.path, nil
	}

	path := sourcePath(s.workdir)
	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL: s.spec.URI,
	})
	if err != nil {
		return "", fmt.Errorf("cloning %s: %w", s.spec.URI, err)
	}

	if commit := s.spec.ProviderParams.GitCommit; commit != "" {
		hash, err := repo.ResolveRevision(plumbing.Revision(commit))
		if err != nil {
			return "", fmt.Errorf("resolving revision %s: %w", commit, err)
		}
		tree, err := repo.Worktree()
		if err != nil {
			return "", fmt.Errorf("opening worktree: %w", err)
		}
		if err := tree.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
			return "", fmt.Errorf("checking out %s: %w", commit, err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	s.info = &VCSInfo{
		VCSType: "git",
		VCSURL:  s.spec.URI,
		VCSRef:  head.Hash().String(),
	}
	s.path = path
	return path, nil
}

func (s *GitSource) Workdir() string { return s.workdir }

func (s *GitSource) VCSInfo() *VCSInfo { return s.info }

func (s *GitSource) Remove() error {
	return os.RemoveAll(s.workdir)
}
