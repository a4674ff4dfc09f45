package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
	"github.com/compozy/monorelease/internal/usecase"
	"go.uber.org/zap"
)

// ReleaseConfig contains the per-invocation options of a release run.
type ReleaseConfig struct {
	Ref        string
	WorkingDir string
	DryRun     bool
	CIOutput   bool
}

// Settings carries the configured behavior shared by every run.
type Settings struct {
	Matcher         domain.ReleaseMatcher
	ManifestName    string
	CommitMessage   string
	WorkflowTimeout time.Duration
	Logger          *zap.Logger
	// Output receives CI lines and status messages. Defaults to stdout.
	Output io.Writer
}

// ReleaseOrchestrator orchestrates the entire release workflow.
type ReleaseOrchestrator struct {
	gitRepo    repository.GitRepository
	githubRepo repository.GithubRepository
	fsRepo     repository.FileSystemRepository
	npmSvc     service.NpmService
	lock       repository.RunLock
	settings   Settings
	logger     *zap.Logger
	out        io.Writer
}

// NewReleaseOrchestrator creates a new release orchestrator.
func NewReleaseOrchestrator(
	gitRepo repository.GitRepository,
	githubRepo repository.GithubRepository,
	fsRepo repository.FileSystemRepository,
	npmSvc service.NpmService,
	lock repository.RunLock,
	settings Settings,
) *ReleaseOrchestrator {
	logger := settings.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := settings.Output
	if out == nil {
		out = os.Stdout
	}
	if settings.WorkflowTimeout <= 0 {
		settings.WorkflowTimeout = DefaultWorkflowTimeout
	}
	return &ReleaseOrchestrator{
		gitRepo:    gitRepo,
		githubRepo: githubRepo,
		fsRepo:     fsRepo,
		npmSvc:     npmSvc,
		lock:       lock,
		settings:   settings,
		logger:     logger,
		out:        out,
	}
}

// workflowContext holds shared state for workflow execution
type workflowContext struct {
	classified  *usecase.ClassifyResult
	previous    *domain.Version
	next        *domain.Version
	propagation *usecase.PropagationResult
	released    *domain.Version
	// committed is set once npm has created the release commit and tag.
	committed bool
}

// Execute runs the release workflow and returns what was released.
func (o *ReleaseOrchestrator) Execute(ctx context.Context, cfg ReleaseConfig) (*domain.Release, error) {
	ctx, cancel := context.WithTimeout(ctx, o.settings.WorkflowTimeout)
	defer cancel()
	if cfg.Ref == "" {
		cfg.Ref = domain.DefaultRef
	}
	if err := ValidateRef(cfg.Ref); err != nil {
		return nil, fmt.Errorf("invalid ref: %w", err)
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = "."
	}
	if cfg.DryRun {
		return o.executeDryRun(ctx, cfg)
	}
	if err := o.acquireLock(ctx); err != nil {
		return nil, err
	}
	defer o.releaseLock()
	return o.executeWithSaga(ctx, cfg)
}

func (o *ReleaseOrchestrator) acquireLock(ctx context.Context) error {
	if o.lock == nil {
		return nil
	}
	o.logger.Debug("Acquiring run lock", zap.String("path", o.lock.Path()))
	if err := o.lock.Acquire(ctx); err != nil {
		return fmt.Errorf("failed to lock working copy: %w", err)
	}
	return nil
}

func (o *ReleaseOrchestrator) releaseLock() {
	if o.lock == nil {
		return
	}
	if err := o.lock.Release(); err != nil {
		o.logger.Warn("Failed to release run lock", zap.Error(err))
	}
}

// executeWithSaga runs the local steps as a saga, then pushes.
func (o *ReleaseOrchestrator) executeWithSaga(ctx context.Context, cfg ReleaseConfig) (*domain.Release, error) {
	saga := NewSagaExecutor(o.logger)
	logger := o.logger.With(zap.String("run_id", saga.RunID()))
	propagator := o.propagator(logger)
	compensator := NewCompensatingActions(propagator, logger)
	wctx := &workflowContext{}

	o.addClassifyStep(saga, cfg, compensator, wctx, logger)
	o.addCalculateVersionStep(saga, cfg, compensator, wctx, logger)
	o.addPropagateStep(saga, cfg, compensator, wctx, propagator, logger)
	o.addPublishStep(saga, cfg, compensator, wctx, logger)

	if err := saga.Execute(ctx); err != nil {
		return nil, fmt.Errorf("release failed: %w", err)
	}

	release := o.buildRelease(wctx)
	logger.Info("Pushing new release to github")
	publisher := o.publisher(logger)
	if err := publisher.Push(ctx); err != nil {
		return release, fmt.Errorf("release %s was committed and tagged locally but not pushed: %w",
			release.TagName(), err)
	}
	o.printCIOutput(cfg.CIOutput, "version=%s\n", release.Next)
	o.printStatus(cfg.CIOutput, fmt.Sprintf("release successful, new version is %s", release.Next))
	logger.Info("Release successful", zap.Stringer("version", release.Next))
	return release, nil
}

func (o *ReleaseOrchestrator) addClassifyStep(
	saga *SagaExecutor,
	cfg ReleaseConfig,
	compensator *CompensatingActions,
	wctx *workflowContext,
	logger *zap.Logger,
) {
	saga.AddStep(SagaStep{
		Name: "Classify Release",
		Type: domain.OperationTypeClassifyRelease,
		Execute: func(ctx context.Context) (map[string]any, error) {
			result, err := o.classify(ctx, cfg.Ref, logger)
			if err != nil {
				return nil, err
			}
			wctx.classified = result
			o.printCIOutput(cfg.CIOutput, "bump=%s\n", result.Kind)
			return map[string]any{"bump": result.Kind.String(), "sha": result.SHA}, nil
		},
		Compensate: compensator.NoOp,
	})
}

func (o *ReleaseOrchestrator) addCalculateVersionStep(
	saga *SagaExecutor,
	cfg ReleaseConfig,
	compensator *CompensatingActions,
	wctx *workflowContext,
	logger *zap.Logger,
) {
	saga.AddStep(SagaStep{
		Name: "Calculate Version",
		Type: domain.OperationTypeCalculateVersion,
		Execute: func(ctx context.Context) (map[string]any, error) {
			previous, next, err := o.calculateVersion(ctx, cfg.WorkingDir, wctx.classified.Kind)
			if err != nil {
				return nil, err
			}
			wctx.previous, wctx.next = previous, next
			saga.SetVersion(next.String())
			o.printCIOutput(cfg.CIOutput, "previous_version=%s\n", previous)
			logger.Info("Preparing release",
				zap.Stringer("bump", wctx.classified.Kind),
				zap.Stringer("version", next),
			)
			return map[string]any{"version": next.String()}, nil
		},
		Compensate: compensator.NoOp,
	})
}

func (o *ReleaseOrchestrator) addPropagateStep(
	saga *SagaExecutor,
	cfg ReleaseConfig,
	compensator *CompensatingActions,
	wctx *workflowContext,
	propagator *usecase.PropagateVersionsUseCase,
	logger *zap.Logger,
) {
	saga.AddStep(SagaStep{
		Name: "Propagate Versions",
		Type: domain.OperationTypePropagateVersions,
		Execute: func(ctx context.Context) (map[string]any, error) {
			result, err := propagator.Execute(ctx, cfg.WorkingDir, wctx.next.String())
			if err != nil {
				return nil, fmt.Errorf("failed to propagate version: %w", err)
			}
			wctx.propagation = result
			o.printCIOutput(cfg.CIOutput, "modules=%s\n", strings.Join(result.Modules, ","))
			return map[string]any{
				rollbackKeySnapshots: result.Snapshots,
				"modules":            result.Modules,
			}, nil
		},
		Compensate: func(ctx context.Context, rollbackData map[string]any) error {
			if wctx.committed {
				logger.Warn("Release commit exists, leaving module manifests in place")
				return nil
			}
			return compensator.RestoreManifests(ctx, rollbackData)
		},
	})
}

func (o *ReleaseOrchestrator) addPublishStep(
	saga *SagaExecutor,
	cfg ReleaseConfig,
	compensator *CompensatingActions,
	wctx *workflowContext,
	logger *zap.Logger,
) {
	saga.AddStep(SagaStep{
		Name: "Publish Release",
		Type: domain.OperationTypePublishRelease,
		Execute: func(ctx context.Context) (map[string]any, error) {
			released, err := o.publisher(logger).Execute(ctx, cfg.WorkingDir, wctx.classified.Kind)
			if err != nil {
				var bumpErr *domain.BumpError
				if errors.As(err, &bumpErr) {
					o.printStatus(cfg.CIOutput, "error preparing the release")
				}
				wctx.committed = errors.Is(err, usecase.ErrReleaseCommitted)
				return nil, err
			}
			wctx.committed = true
			wctx.released = released
			if released.Compare(wctx.next) != 0 {
				logger.Error("npm released a different version than the modules",
					zap.Stringer("expected", wctx.next),
					zap.Stringer("version", released),
				)
				return nil, fmt.Errorf(
					"%w: npm released %s but modules were set to %s; %s was committed and tagged locally but not pushed",
					usecase.ErrReleaseCommitted, released, wctx.next, released.Tag(),
				)
			}
			return map[string]any{"version": released.String()}, nil
		},
		Compensate: compensator.NoOp,
	})
}

func (o *ReleaseOrchestrator) buildRelease(wctx *workflowContext) *domain.Release {
	release := &domain.Release{
		Previous: wctx.previous,
		Next:     wctx.next,
	}
	if wctx.released != nil {
		release.Next = wctx.released
	}
	if wctx.classified != nil {
		release.Kind = wctx.classified.Kind
		release.Ref = wctx.classified.Ref
		release.HeadSHA = wctx.classified.SHA
	}
	if wctx.propagation != nil {
		release.Modules = wctx.propagation.Modules
	}
	return release
}

func (o *ReleaseOrchestrator) classify(
	ctx context.Context,
	ref string,
	logger *zap.Logger,
) (*usecase.ClassifyResult, error) {
	uc := &usecase.ClassifyReleaseUseCase{
		GithubRepo: o.githubRepo,
		Matcher:    o.matcher(),
		Logger:     logger,
	}
	result, err := uc.Execute(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to classify release: %w", err)
	}
	return result, nil
}

func (o *ReleaseOrchestrator) calculateVersion(
	ctx context.Context,
	dir string,
	kind domain.BumpKind,
) (*domain.Version, *domain.Version, error) {
	uc := &usecase.CalculateVersionUseCase{
		FS:           o.fsRepo,
		ManifestName: o.settings.ManifestName,
	}
	previous, next, err := uc.Execute(ctx, dir, kind)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to calculate version: %w", err)
	}
	if err := ValidateVersion(next.String()); err != nil {
		return nil, nil, fmt.Errorf("invalid version: %w", err)
	}
	return previous, next, nil
}

func (o *ReleaseOrchestrator) propagator(logger *zap.Logger) *usecase.PropagateVersionsUseCase {
	return &usecase.PropagateVersionsUseCase{
		FS:           o.fsRepo,
		GitRepo:      o.gitRepo,
		ManifestName: o.settings.ManifestName,
		Logger:       logger,
	}
}

func (o *ReleaseOrchestrator) publisher(logger *zap.Logger) *usecase.PublishReleaseUseCase {
	return &usecase.PublishReleaseUseCase{
		FS:            o.fsRepo,
		GitRepo:       o.gitRepo,
		NpmSvc:        o.npmSvc,
		ManifestName:  o.settings.ManifestName,
		CommitMessage: o.settings.CommitMessage,
		Logger:        logger,
	}
}

func (o *ReleaseOrchestrator) matcher() domain.ReleaseMatcher {
	if o.settings.Matcher == nil {
		return domain.NewIntegrationMatcher("", "")
	}
	return o.settings.Matcher
}

// printCIOutput prints output in CI format if enabled
func (o *ReleaseOrchestrator) printCIOutput(ciOutput bool, format string, args ...any) {
	if ciOutput {
		fmt.Fprintf(o.out, format, args...)
	}
}

// printStatus prints status messages when not in CI mode
func (o *ReleaseOrchestrator) printStatus(ciOutput bool, message string) {
	if !ciOutput {
		fmt.Fprintln(o.out, message)
	}
}
