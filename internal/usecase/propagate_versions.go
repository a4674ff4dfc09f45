package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// FilePermissionsReadWrite is used when a rewritten file's mode is unknown.
const FilePermissionsReadWrite = 0644

// FileSnapshot holds the original content of a file before it was rewritten.
type FileSnapshot struct {
	Path string
	Data []byte
	Mode os.FileMode
}

// PropagationResult lists the bumped modules and the snapshots needed to undo them.
type PropagationResult struct {
	Modules   []string
	Snapshots []FileSnapshot
}

type fileRewrite struct {
	snapshot FileSnapshot
	updated  []byte
}

// PropagateVersionsUseCase aligns every module manifest with the release version.
type PropagateVersionsUseCase struct {
	FS           afero.Fs
	GitRepo      repository.GitRepository
	ManifestName string
	Logger       *zap.Logger
}

// Discover lists the immediate subdirectories of rootDir holding a manifest,
// sorted by name, and parses each manifest. It fails before anything is written
// if any manifest cannot be used.
func (uc *PropagateVersionsUseCase) Discover(_ context.Context, rootDir string) ([]*domain.Manifest, error) {
	entries, err := afero.ReadDir(uc.FS, rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", rootDir, err)
	}
	var manifests []*domain.Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(rootDir, entry.Name(), manifestName(uc.ManifestName))
		exists, err := afero.Exists(uc.FS, path)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", path, err)
		}
		if !exists {
			continue
		}
		manifest, err := readManifest(uc.FS, path)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, manifest)
	}
	return manifests, nil
}

// Execute rewrites each module to version and stages the working tree.
func (uc *PropagateVersionsUseCase) Execute(
	ctx context.Context,
	rootDir string,
	version string,
) (*PropagationResult, error) {
	manifests, err := uc.Discover(ctx, rootDir)
	if err != nil {
		return nil, err
	}
	result := &PropagationResult{}
	var rewrites []fileRewrite
	for _, manifest := range manifests {
		moduleRewrites, err := uc.planModule(manifest, version)
		if err != nil {
			return nil, err
		}
		rewrites = append(rewrites, moduleRewrites...)
		result.Modules = append(result.Modules, filepath.Base(filepath.Dir(manifest.Path)))
	}
	uc.logger().Info("Bumping module versions",
		zap.String("version", version),
		zap.Strings("modules", result.Modules),
	)
	for _, rw := range rewrites {
		if err := ctx.Err(); err != nil {
			return nil, uc.abort(ctx, result.Snapshots, err)
		}
		if err := afero.WriteFile(uc.FS, rw.snapshot.Path, rw.updated, rw.snapshot.Mode); err != nil {
			// The failed file may have been truncated, so it is restored too
			writeErr := fmt.Errorf("failed to write %s: %w", rw.snapshot.Path, err)
			return nil, uc.abort(ctx, append(result.Snapshots, rw.snapshot), writeErr)
		}
		result.Snapshots = append(result.Snapshots, rw.snapshot)
	}
	if err := uc.GitRepo.StageAll(ctx); err != nil {
		return nil, uc.abort(ctx, result.Snapshots, fmt.Errorf("failed to stage changes: %w", err))
	}
	return result, nil
}

// Restore writes the snapshots back in reverse order and re-stages the tree.
func (uc *PropagateVersionsUseCase) Restore(ctx context.Context, snapshots []FileSnapshot) error {
	if err := uc.restoreFiles(snapshots); err != nil {
		return err
	}
	if err := uc.GitRepo.StageAll(ctx); err != nil {
		return fmt.Errorf("failed to stage restored files: %w", err)
	}
	return nil
}

func (uc *PropagateVersionsUseCase) restoreFiles(snapshots []FileSnapshot) error {
	var errs []error
	for i := len(snapshots) - 1; i >= 0; i-- {
		s := snapshots[i]
		if err := afero.WriteFile(uc.FS, s.Path, s.Data, s.Mode); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", s.Path, err))
		}
	}
	return errors.Join(errs...)
}

// abort undoes partial writes. The index is left alone since nothing was staged.
func (uc *PropagateVersionsUseCase) abort(_ context.Context, written []FileSnapshot, cause error) error {
	if err := uc.restoreFiles(written); err != nil {
		uc.logger().Error("Failed to restore module manifests", zap.Error(err))
		return errors.Join(cause, err)
	}
	if len(written) > 0 {
		uc.logger().Warn("Restored module manifests after failure", zap.Int("files", len(written)))
	}
	return cause
}

// planModule computes the new manifest and lock file bytes for one module.
func (uc *PropagateVersionsUseCase) planModule(manifest *domain.Manifest, version string) ([]fileRewrite, error) {
	var rewrites []fileRewrite
	updated, changed, err := manifest.WithVersion(version)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", manifest.Path, err)
	}
	if changed {
		rw, err := uc.rewrite(manifest.Path, manifest.Raw(), updated)
		if err != nil {
			return nil, err
		}
		rewrites = append(rewrites, rw)
	}
	lockPath := filepath.Join(filepath.Dir(manifest.Path), domain.LockFileName)
	lockRewrite, ok, err := uc.planLockFile(lockPath, version)
	if err != nil {
		return nil, err
	}
	if ok {
		rewrites = append(rewrites, lockRewrite)
	}
	return rewrites, nil
}

// planLockFile updates the top-level and root package versions of a lock
// file, the same fields `npm version` touches.
func (uc *PropagateVersionsUseCase) planLockFile(path, version string) (fileRewrite, bool, error) {
	exists, err := afero.Exists(uc.FS, path)
	if err != nil || !exists {
		return fileRewrite{}, false, err
	}
	original, err := afero.ReadFile(uc.FS, path)
	if err != nil {
		return fileRewrite{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !json.Valid(original) {
		return fileRewrite{}, false, fmt.Errorf("failed to parse %s: invalid JSON", path)
	}
	updated := original
	changed := false
	for _, field := range [][]string{{"version"}, {"packages", "", "version"}} {
		if !domain.HasJSONString(updated, field...) {
			continue
		}
		out, fieldChanged, err := domain.SetJSONString(updated, version, field...)
		if err != nil {
			return fileRewrite{}, false, fmt.Errorf("failed to update %s: %w", path, err)
		}
		updated = out
		changed = changed || fieldChanged
	}
	if !changed {
		return fileRewrite{}, false, nil
	}
	rw, err := uc.rewrite(path, original, updated)
	return rw, err == nil, err
}

func (uc *PropagateVersionsUseCase) rewrite(path string, original, updated []byte) (fileRewrite, error) {
	mode := os.FileMode(FilePermissionsReadWrite)
	info, err := uc.FS.Stat(path)
	if err != nil {
		return fileRewrite{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Mode().IsRegular() {
		mode = info.Mode().Perm()
	}
	return fileRewrite{
		snapshot: FileSnapshot{Path: path, Data: original, Mode: mode},
		updated:  updated,
	}, nil
}

func (uc *PropagateVersionsUseCase) logger() *zap.Logger {
	if uc.Logger == nil {
		return zap.NewNop()
	}
	return uc.Logger
}
