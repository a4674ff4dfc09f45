package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/usecase"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	headSHA      = "6dcb09b5b57875f334f61aebed695e2e4193db5e"
	mergeDevelop = "Merge pull request #7 from acme/develop\n\nSprint 12"
	mergeHotfix  = "Merge pull request #8 from acme/hotfix-login"
	apiManifest  = "{\n  \"name\": \"api\",\n  \"version\": \"1.0.0\"\n}\n"
	webManifest  = "{\n  \"name\": \"web\",\n  \"version\": \"1.0.0\"\n}\n"
)

type releaseFixture struct {
	fs     afero.Fs
	git    *mockGitRepository
	github *mockGithubRepository
	npm    *mockNpmService
	lock   *mockRunLock
	out    *bytes.Buffer
	orch   *ReleaseOrchestrator
}

func newReleaseFixture(t *testing.T) *releaseFixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range map[string]string{
		"/repo/package.json":     `{"name": "root", "version": "1.0.0"}`,
		"/repo/api/package.json": apiManifest,
		"/repo/web/package.json": webManifest,
		"/repo/docs/index.md":    "# docs\n",
	} {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	f := &releaseFixture{
		fs:     fs,
		git:    new(mockGitRepository),
		github: new(mockGithubRepository),
		npm:    new(mockNpmService),
		lock:   new(mockRunLock),
		out:    &bytes.Buffer{},
	}
	f.orch = NewReleaseOrchestrator(f.git, f.github, f.fs, f.npm, f.lock, Settings{
		Matcher:       domain.NewIntegrationMatcher("acme", "develop"),
		CommitMessage: "New release: %s",
		Logger:        zaptest.NewLogger(t),
		Output:        f.out,
	})
	return f
}

func (f *releaseFixture) expectClassify(message string) {
	f.github.On("ResolveRef", mock.Anything, "heads/master").Return(headSHA, nil)
	f.github.On("CommitMessage", mock.Anything, headSHA).Return(message, nil)
}

func (f *releaseFixture) expectNpmVersion(kind domain.BumpKind, version string) {
	f.npm.On("Version", mock.Anything, "/repo", kind, "New release: %s").
		Run(func(_ mock.Arguments) {
			_ = afero.WriteFile(f.fs, "/repo/package.json",
				[]byte(`{"name": "root", "version": "`+version+`"}`), 0644)
		}).
		Return("v"+version, nil)
}

func (f *releaseFixture) read(t *testing.T, path string) string {
	t.Helper()
	data, err := afero.ReadFile(f.fs, path)
	require.NoError(t, err)
	return string(data)
}

func releaseConfig() ReleaseConfig {
	return ReleaseConfig{Ref: "refs/heads/master", WorkingDir: "/repo", CIOutput: true}
}

func TestReleaseOrchestrator_Execute(t *testing.T) {
	t.Run("Should release a minor version after a develop merge", func(t *testing.T) {
		f := newReleaseFixture(t)
		f.lock.On("Acquire", mock.Anything).Return(nil)
		f.lock.On("Release").Return(nil)
		f.expectClassify(mergeDevelop)
		f.git.On("StageAll", mock.Anything).Return(nil)
		f.expectNpmVersion(domain.BumpKindMinor, "1.1.0")
		f.git.On("TagExists", mock.Anything, "v1.1.0").Return(true, nil)
		f.git.On("CurrentBranch", mock.Anything).Return("master", nil)
		f.git.On("PushBranch", mock.Anything, "master").Return(nil)
		f.git.On("PushTags", mock.Anything).Return(nil)

		release, err := f.orch.Execute(context.Background(), releaseConfig())
		require.NoError(t, err)
		assert.Equal(t, domain.BumpKindMinor, release.Kind)
		assert.Equal(t, "1.0.0", release.Previous.String())
		assert.Equal(t, "1.1.0", release.Next.String())
		assert.Equal(t, "v1.1.0", release.TagName())
		assert.Equal(t, headSHA, release.HeadSHA)
		assert.Equal(t, "heads/master", release.Ref)
		assert.Equal(t, []string{"api", "web"}, release.Modules)
		assert.Contains(t, f.read(t, "/repo/api/package.json"), `"version": "1.1.0"`)
		assert.Contains(t, f.read(t, "/repo/web/package.json"), `"version": "1.1.0"`)
		assert.Equal(t, "# docs\n", f.read(t, "/repo/docs/index.md"))
		assert.Equal(t,
			"bump=minor\nprevious_version=1.0.0\nmodules=api,web\nversion=1.1.0\n",
			f.out.String())
		f.git.AssertExpectations(t)
		f.github.AssertExpectations(t)
		f.npm.AssertExpectations(t)
		f.lock.AssertExpectations(t)
	})

	t.Run("Should release a patch version for any other merge", func(t *testing.T) {
		f := newReleaseFixture(t)
		f.lock.On("Acquire", mock.Anything).Return(nil)
		f.lock.On("Release").Return(nil)
		f.expectClassify(mergeHotfix)
		f.git.On("StageAll", mock.Anything).Return(nil)
		f.expectNpmVersion(domain.BumpKindPatch, "1.0.1")
		f.git.On("TagExists", mock.Anything, "v1.0.1").Return(true, nil)
		f.git.On("CurrentBranch", mock.Anything).Return("master", nil)
		f.git.On("PushBranch", mock.Anything, "master").Return(nil)
		f.git.On("PushTags", mock.Anything).Return(nil)

		release, err := f.orch.Execute(context.Background(), releaseConfig())
		require.NoError(t, err)
		assert.Equal(t, "1.0.1", release.Next.String())
		assert.Contains(t, f.read(t, "/repo/api/package.json"), `"version": "1.0.1"`)
		f.npm.AssertExpectations(t)
	})

	t.Run("Should restore module manifests and skip the push when npm fails", func(t *testing.T) {
		f := newReleaseFixture(t)
		f.lock.On("Acquire", mock.Anything).Return(nil)
		f.lock.On("Release").Return(nil)
		f.expectClassify(mergeDevelop)
		f.git.On("StageAll", mock.Anything).Return(nil)
		bumpErr := &domain.BumpError{
			Kind:     domain.BumpKindMinor,
			ExitCode: 1,
			Stderr:   "npm ERR! Git working directory not clean.",
		}
		f.npm.On("Version", mock.Anything, "/repo", domain.BumpKindMinor, "New release: %s").Return("", bumpErr)

		_, err := f.orch.Execute(context.Background(), releaseConfig())
		var target *domain.BumpError
		require.True(t, errors.As(err, &target))
		assert.Contains(t, err.Error(), "Git working directory not clean")
		assert.Equal(t, apiManifest, f.read(t, "/repo/api/package.json"))
		assert.Equal(t, webManifest, f.read(t, "/repo/web/package.json"))
		f.git.AssertNumberOfCalls(t, "StageAll", 2)
		f.git.AssertNotCalled(t, "PushBranch", mock.Anything, mock.Anything)
		f.git.AssertNotCalled(t, "PushTags", mock.Anything)
		f.lock.AssertExpectations(t)
	})

	t.Run("Should give modules the version npm releases from a prerelease root", func(t *testing.T) {
		f := newReleaseFixture(t)
		require.NoError(t, writeFile(f, "/repo/package.json", `{"name": "root", "version": "1.1.0-beta.1"}`))
		f.lock.On("Acquire", mock.Anything).Return(nil)
		f.lock.On("Release").Return(nil)
		f.expectClassify(mergeDevelop)
		f.git.On("StageAll", mock.Anything).Return(nil)
		f.expectNpmVersion(domain.BumpKindMinor, "1.1.0")
		f.git.On("TagExists", mock.Anything, "v1.1.0").Return(true, nil)
		f.git.On("CurrentBranch", mock.Anything).Return("master", nil)
		f.git.On("PushBranch", mock.Anything, "master").Return(nil)
		f.git.On("PushTags", mock.Anything).Return(nil)

		release, err := f.orch.Execute(context.Background(), releaseConfig())
		require.NoError(t, err)
		assert.Equal(t, "1.1.0", release.Next.String())
		assert.Contains(t, f.read(t, "/repo/api/package.json"), `"version": "1.1.0"`)
		assert.Contains(t, f.read(t, "/repo/web/package.json"), `"version": "1.1.0"`)
		f.git.AssertExpectations(t)
	})

	t.Run("Should not push when npm releases a different version than the modules", func(t *testing.T) {
		f := newReleaseFixture(t)
		f.lock.On("Acquire", mock.Anything).Return(nil)
		f.lock.On("Release").Return(nil)
		f.expectClassify(mergeDevelop)
		f.git.On("StageAll", mock.Anything).Return(nil)
		f.expectNpmVersion(domain.BumpKindMinor, "1.2.0")
		f.git.On("TagExists", mock.Anything, "v1.2.0").Return(true, nil)

		_, err := f.orch.Execute(context.Background(), releaseConfig())
		require.Error(t, err)
		assert.ErrorIs(t, err, usecase.ErrReleaseCommitted)
		assert.Contains(t, err.Error(), "npm released 1.2.0 but modules were set to 1.1.0")
		assert.Contains(t, err.Error(), "v1.2.0 was committed and tagged locally but not pushed")
		assert.Contains(t, f.read(t, "/repo/api/package.json"), `"version": "1.1.0"`)
		f.git.AssertNumberOfCalls(t, "StageAll", 1)
		f.git.AssertNotCalled(t, "CurrentBranch", mock.Anything)
		f.git.AssertNotCalled(t, "PushBranch", mock.Anything, mock.Anything)
		f.git.AssertNotCalled(t, "PushTags", mock.Anything)
		f.lock.AssertExpectations(t)
	})

	t.Run("Should keep module manifests when publishing fails after the release commit", func(t *testing.T) {
		f := newReleaseFixture(t)
		f.lock.On("Acquire", mock.Anything).Return(nil)
		f.lock.On("Release").Return(nil)
		f.expectClassify(mergeDevelop)
		f.git.On("StageAll", mock.Anything).Return(nil)
		f.expectNpmVersion(domain.BumpKindMinor, "1.1.0")
		f.git.On("TagExists", mock.Anything, "v1.1.0").Return(false, errors.New("corrupt object"))

		_, err := f.orch.Execute(context.Background(), releaseConfig())
		assert.ErrorIs(t, err, usecase.ErrReleaseCommitted)
		assert.Contains(t, err.Error(), "module rollback skipped")
		assert.Contains(t, f.read(t, "/repo/api/package.json"), `"version": "1.1.0"`)
		assert.Contains(t, f.read(t, "/repo/web/package.json"), `"version": "1.1.0"`)
		f.git.AssertNumberOfCalls(t, "StageAll", 1)
		f.git.AssertNotCalled(t, "PushBranch", mock.Anything, mock.Anything)
		f.git.AssertNotCalled(t, "PushTags", mock.Anything)
	})

	t.Run("Should fail without writing when classification fails", func(t *testing.T) {
		f := newReleaseFixture(t)
		f.lock.On("Acquire", mock.Anything).Return(nil)
		f.lock.On("Release").Return(nil)
		f.github.On("ResolveRef", mock.Anything, "heads/master").Return("", errors.New("401 Bad credentials"))

		_, err := f.orch.Execute(context.Background(), releaseConfig())
		assert.ErrorContains(t, err, "Bad credentials")
		assert.Equal(t, apiManifest, f.read(t, "/repo/api/package.json"))
		f.git.AssertNotCalled(t, "StageAll", mock.Anything)
		f.npm.AssertNotCalled(t, "Version", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.lock.AssertExpectations(t)
	})

	t.Run("Should report a push failure after committing locally", func(t *testing.T) {
		f := newReleaseFixture(t)
		f.lock.On("Acquire", mock.Anything).Return(nil)
		f.lock.On("Release").Return(nil)
		f.expectClassify(mergeDevelop)
		f.git.On("StageAll", mock.Anything).Return(nil)
		f.expectNpmVersion(domain.BumpKindMinor, "1.1.0")
		f.git.On("TagExists", mock.Anything, "v1.1.0").Return(true, nil)
		f.git.On("CurrentBranch", mock.Anything).Return("master", nil)
		f.git.On("PushBranch", mock.Anything, "master").Return(errors.New("non-fast-forward update"))

		release, err := f.orch.Execute(context.Background(), releaseConfig())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "v1.1.0 was committed and tagged locally but not pushed")
		require.NotNil(t, release)
		assert.Equal(t, "1.1.0", release.Next.String())
		assert.Contains(t, f.read(t, "/repo/api/package.json"), `"version": "1.1.0"`)
	})

	t.Run("Should not touch anything when the lock is held", func(t *testing.T) {
		f := newReleaseFixture(t)
		f.lock.On("Acquire", mock.Anything).Return(errors.New("another release run holds the lock"))

		_, err := f.orch.Execute(context.Background(), releaseConfig())
		assert.ErrorContains(t, err, "failed to lock working copy")
		f.github.AssertNotCalled(t, "ResolveRef", mock.Anything, mock.Anything)
		f.lock.AssertNotCalled(t, "Release")
	})

	t.Run("Should reject an invalid ref", func(t *testing.T) {
		f := newReleaseFixture(t)
		cfg := releaseConfig()
		cfg.Ref = "refs/heads/../master"
		_, err := f.orch.Execute(context.Background(), cfg)
		assert.ErrorContains(t, err, "invalid ref")
	})

	t.Run("Should print status lines when CI output is off", func(t *testing.T) {
		f := newReleaseFixture(t)
		f.lock.On("Acquire", mock.Anything).Return(nil)
		f.lock.On("Release").Return(nil)
		f.expectClassify(mergeDevelop)
		f.git.On("StageAll", mock.Anything).Return(nil)
		f.expectNpmVersion(domain.BumpKindMinor, "1.1.0")
		f.git.On("TagExists", mock.Anything, "v1.1.0").Return(true, nil)
		f.git.On("CurrentBranch", mock.Anything).Return("master", nil)
		f.git.On("PushBranch", mock.Anything, "master").Return(nil)
		f.git.On("PushTags", mock.Anything).Return(nil)
		cfg := releaseConfig()
		cfg.CIOutput = false

		_, err := f.orch.Execute(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, "release successful, new version is 1.1.0\n", f.out.String())
	})
}

func writeFile(f *releaseFixture, path, content string) error {
	return afero.WriteFile(f.fs, path, []byte(content), 0644)
}
