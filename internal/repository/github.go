package repository

import "context"

// GithubRepository defines the interface for GitHub API operations.

type GithubRepository interface {
	// ResolveRef returns the commit SHA a ref such as heads/master points to.
	ResolveRef(ctx context.Context, ref string) (string, error)
	CommitMessage(ctx context.Context, sha string) (string, error)
}
