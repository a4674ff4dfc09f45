package repository

import "context"

// GitRepository defines the interface for Git operations.
type GitRepository interface {
	// StageAll stages every modification, addition and deletion in the worktree.
	StageAll(ctx context.Context) error
	CurrentBranch(ctx context.Context) (string, error)
	TagExists(ctx context.Context, tag string) (bool, error)
	PushBranch(ctx context.Context, name string) error
	// PushTags pushes every local tag to the remote.
	PushTags(ctx context.Context) error
	// LockPath is where the run lock lives, inside the git directory.
	LockPath() string
}
