package orchestrator

import (
	"context"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockGitRepository struct{ mock.Mock }

func (m *mockGitRepository) StageAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *mockGitRepository) CurrentBranch(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *mockGitRepository) TagExists(ctx context.Context, tag string) (bool, error) {
	args := m.Called(ctx, tag)
	return args.Bool(0), args.Error(1)
}
func (m *mockGitRepository) PushBranch(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
func (m *mockGitRepository) PushTags(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *mockGitRepository) LockPath() string {
	args := m.Called()
	return args.String(0)
}

type mockGithubRepository struct{ mock.Mock }

func (m *mockGithubRepository) ResolveRef(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}
func (m *mockGithubRepository) CommitMessage(ctx context.Context, sha string) (string, error) {
	args := m.Called(ctx, sha)
	return args.String(0), args.Error(1)
}

type mockNpmService struct{ mock.Mock }

func (m *mockNpmService) Version(ctx context.Context, dir string, kind domain.BumpKind, message string) (string, error) {
	args := m.Called(ctx, dir, kind, message)
	return args.String(0), args.Error(1)
}

type mockRunLock struct{ mock.Mock }

func (m *mockRunLock) Acquire(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *mockRunLock) Release() error {
	args := m.Called()
	return args.Error(0)
}
func (m *mockRunLock) Path() string {
	return "/repo/.git/monorelease.lock"
}
