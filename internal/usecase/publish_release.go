package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultCommitMessage is passed to npm, which replaces %s with the version.
const DefaultCommitMessage = "New release: %s"

// ErrReleaseCommitted marks failures that happen after npm created the release
// commit and tag. Module manifests must not be restored on top of that commit.
var ErrReleaseCommitted = errors.New("release commit exists, module rollback skipped")

// PublishReleaseUseCase commits and tags the release through npm, then
// pushes it.
type PublishReleaseUseCase struct {
	FS            afero.Fs
	GitRepo       repository.GitRepository
	NpmSvc        service.NpmService
	ManifestName  string
	CommitMessage string
	Logger        *zap.Logger
}

// Execute runs `npm version <kind>` in rootDir and returns the version read
// back from the root manifest.
func (uc *PublishReleaseUseCase) Execute(
	ctx context.Context,
	rootDir string,
	kind domain.BumpKind,
) (*domain.Version, error) {
	message := uc.CommitMessage
	if message == "" {
		message = DefaultCommitMessage
	}
	out, err := uc.NpmSvc.Version(ctx, rootDir, kind, message)
	if err != nil {
		uc.logger().Error("Error preparing the release", zap.Error(err))
		return nil, err
	}
	manifest, err := readManifest(uc.FS, filepath.Join(rootDir, manifestName(uc.ManifestName)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read released manifest: %w", ErrReleaseCommitted, err)
	}
	version, err := domain.NewVersion(manifest.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid released version %q: %w", ErrReleaseCommitted, manifest.Version, err)
	}
	exists, err := uc.GitRepo.TagExists(ctx, version.Tag())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReleaseCommitted, err)
	}
	if !exists {
		uc.logger().Warn("Release tag not found after npm version", zap.String("tag", version.Tag()))
	}
	uc.logger().Info("Release prepared successfully",
		zap.String("npm_output", out),
		zap.Stringer("version", version),
	)
	return version, nil
}

// Push sends the current branch and every tag to the remote.
func (uc *PublishReleaseUseCase) Push(ctx context.Context) error {
	branch, err := uc.GitRepo.CurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current branch: %w", err)
	}
	uc.logger().Info("Pushing new release", zap.String("branch", branch))
	if err := uc.GitRepo.PushBranch(ctx, branch); err != nil {
		return err
	}
	if err := uc.GitRepo.PushTags(ctx); err != nil {
		return err
	}
	return nil
}

func (uc *PublishReleaseUseCase) logger() *zap.Logger {
	if uc.Logger == nil {
		return zap.NewNop()
	}
	return uc.Logger
}
