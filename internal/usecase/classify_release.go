package usecase

import (
	"context"
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
	"go.uber.org/zap"
)

// ClassifyResult is the outcome of inspecting the head commit of a ref.
type ClassifyResult struct {
	Kind    domain.BumpKind
	Ref     string
	SHA     string
	Subject string
}

// ClassifyReleaseUseCase decides between a minor and a patch release from the
// head commit of the released branch.
type ClassifyReleaseUseCase struct {
	GithubRepo repository.GithubRepository
	Matcher    domain.ReleaseMatcher
	Logger     *zap.Logger
}

// Execute runs the use case.
func (uc *ClassifyReleaseUseCase) Execute(ctx context.Context, ref string) (*ClassifyResult, error) {
	ref = domain.NormalizeRef(ref)
	sha, err := uc.GithubRepo.ResolveRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	message, err := uc.GithubRepo.CommitMessage(ctx, sha)
	if err != nil {
		return nil, fmt.Errorf("failed to read head commit of %s: %w", ref, err)
	}
	result := &ClassifyResult{
		Kind:    domain.Classify(uc.Matcher, message),
		Ref:     ref,
		SHA:     sha,
		Subject: domain.Subject(message),
	}
	uc.logger().Info("Classified release",
		zap.String("ref", ref),
		zap.String("sha", sha),
		zap.String("subject", result.Subject),
		zap.Stringer("bump", result.Kind),
	)
	return result, nil
}

func (uc *ClassifyReleaseUseCase) logger() *zap.Logger {
	if uc.Logger == nil {
		return zap.NewNop()
	}
	return uc.Logger
}
