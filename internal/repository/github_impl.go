package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/compozy/monorelease/internal/config"
	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

// githubRepository is the implementation of the GithubRepository interface.
type githubRepository struct {
	client *github.Client
	owner  string
	repo   string
}

type GithubOption func(*githubOptions)

type githubOptions struct {
	baseURL string
}

// WithBaseURL points the client at a different API root, e.g. GitHub Enterprise.
func WithBaseURL(url string) GithubOption {
	return func(o *githubOptions) {
		o.baseURL = url
	}
}

// NewGithubRepository creates a new GithubRepository with validation.
// An empty token yields an unauthenticated client.
func NewGithubRepository(token, owner, repo string, opts ...GithubOption) (GithubRepository, error) {
	if err := config.ValidateGitHubOwnerRepo(owner, repo); err != nil {
		return nil, fmt.Errorf("invalid repository configuration: %w", err)
	}
	options := &githubOptions{}
	for _, opt := range opts {
		opt(options)
	}
	var httpClient *http.Client
	if token = strings.TrimSpace(token); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	client := github.NewClient(httpClient)
	if options.baseURL != "" {
		baseURL, err := url.Parse(options.baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		if !strings.HasSuffix(baseURL.Path, "/") {
			baseURL.Path += "/"
		}
		client.BaseURL = baseURL
	}
	return &githubRepository{
		client: client,
		owner:  owner,
		repo:   repo,
	}, nil
}

// ResolveRef fetches the reference and returns the SHA of the object it points to.
func (r *githubRepository) ResolveRef(ctx context.Context, ref string) (string, error) {
	reference, _, err := r.client.Git.GetRef(ctx, r.owner, r.repo, ref)
	if err != nil {
		return "", fmt.Errorf("failed to get ref %s: %w", ref, err)
	}
	sha := reference.GetObject().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("ref %s has no target object", ref)
	}
	return sha, nil
}

// CommitMessage fetches the full message of a commit.
func (r *githubRepository) CommitMessage(ctx context.Context, sha string) (string, error) {
	commit, _, err := r.client.Repositories.GetCommit(ctx, r.owner, r.repo, sha, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", sha, err)
	}
	return commit.GetCommit().GetMessage(), nil
}
