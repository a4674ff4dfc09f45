package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/spf13/afero"
)

// CalculateVersionUseCase computes the next version from the root manifest.
type CalculateVersionUseCase struct {
	FS           afero.Fs
	ManifestName string
}

// Execute runs the use case.
func (uc *CalculateVersionUseCase) Execute(
	_ context.Context,
	rootDir string,
	kind domain.BumpKind,
) (previous, next *domain.Version, err error) {
	manifest, err := readManifest(uc.FS, filepath.Join(rootDir, manifestName(uc.ManifestName)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read root manifest: %w", err)
	}
	previous, err = domain.NewVersion(manifest.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid root version %q: %w", manifest.Version, err)
	}
	nextVersion, err := domain.NextVersion(manifest.Version, kind)
	if err != nil {
		return nil, nil, err
	}
	next, err = domain.NewVersion(nextVersion)
	if err != nil {
		return nil, nil, err
	}
	return previous, next, nil
}

func manifestName(name string) string {
	if name == "" {
		return domain.ManifestFileName
	}
	return name
}

func readManifest(fs afero.Fs, path string) (*domain.Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return domain.ParseManifest(path, data)
}
