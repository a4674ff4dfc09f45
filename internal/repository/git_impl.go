package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

const lockFileName = "monorelease.lock"

// gitRepository is the implementation of the GitRepository interface.

type gitRepository struct {
	repo   *git.Repository
	dir    string
	token  string
	remote string
}

// NewGitRepository opens the repository containing dir.
func NewGitRepository(dir, token, remote string) (GitRepository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	if remote == "" {
		remote = git.DefaultRemoteName
	}
	return &gitRepository{repo: repo, dir: dir, token: strings.TrimSpace(token), remote: remote}, nil
}

// StageAll stages all worktree changes, like `git add --all`.
func (r *gitRepository) StageAll(_ context.Context) error {
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := w.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

// CurrentBranch returns the short name of the checked out branch.
func (r *gitRepository) CurrentBranch(_ context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash().String())
	}
	return head.Name().Short(), nil
}

// TagExists checks if a tag exists.
func (r *gitRepository) TagExists(_ context.Context, tag string) (bool, error) {
	_, err := r.repo.Tag(tag)
	if errors.Is(err, git.ErrTagNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tag %s: %w", tag, err)
	}
	return true, nil
}

// getAuth returns basic auth for GitHub when a token is configured.
func (r *gitRepository) getAuth() transport.AuthMethod {
	if r.token == "" {
		return nil
	}
	// Use x-access-token as username for GitHub token authentication
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: r.token,
	}
}

func (r *gitRepository) push(ctx context.Context, refSpec string) error {
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: r.remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(refSpec)},
		Auth:       r.getAuth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

// PushBranch pushes a branch to the remote.
func (r *gitRepository) PushBranch(ctx context.Context, name string) error {
	ref := plumbing.NewBranchReferenceName(name)
	if err := r.push(ctx, fmt.Sprintf("%s:%s", ref, ref)); err != nil {
		return fmt.Errorf("failed to push branch %s: %w", name, err)
	}
	return nil
}

// PushTags pushes all tags to the remote.
func (r *gitRepository) PushTags(ctx context.Context) error {
	if err := r.push(ctx, "refs/tags/*:refs/tags/*"); err != nil {
		return fmt.Errorf("failed to push tags: %w", err)
	}
	return nil
}

func (r *gitRepository) LockPath() string {
	if fs, ok := r.repo.Storer.(*filesystem.Storage); ok {
		return filepath.Join(fs.Filesystem().Root(), lockFileName)
	}
	return filepath.Join(r.dir, git.GitDirName, lockFileName)
}
