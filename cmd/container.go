package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/compozy/monorelease/internal/config"
	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/logger"
	"github.com/compozy/monorelease/internal/orchestrator"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// container holds all the dependencies for the application.

type container struct {
	cfg    *config.Config
	logger *zap.Logger

	fsRepo  repository.FileSystemRepository
	gitRepo repository.GitRepository
	npmSvc  service.NpmService
	lock    repository.RunLock
}

// newContainer loads configuration from dir (or the current directory) and
// creates the dependencies that do not depend on the target repository.
func newContainer(dir string) (*container, error) {
	configDir := dir
	if configDir == "" {
		configDir = "."
	}
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		cfg.WorkingDir = dir
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.GithubToken != "" && !config.KnownGitHubTokenFormat(cfg.GithubToken) {
		log.Warn("GitHub token has an unrecognized format, sending it as is")
	}

	fsRepo := repository.FileSystemRepository(afero.NewOsFs())
	gitRepo, err := repository.NewGitRepository(cfg.WorkingDir, cfg.GithubToken, cfg.RemoteName)
	if err != nil {
		return nil, err
	}

	return &container{
		cfg:     cfg,
		logger:  log,
		fsRepo:  fsRepo,
		gitRepo: gitRepo,
		npmSvc:  service.NewNpmService(cfg.NpmBin),
		lock:    repository.NewRunLock(gitRepo.LockPath(), cfg.LockTimeout),
	}, nil
}

// matcher builds the release matcher from configuration.
func (c *container) matcher(owner string) (domain.ReleaseMatcher, error) {
	if c.cfg.MergePattern != "" {
		return domain.NewPatternMatcher(c.cfg.MergePattern)
	}
	return domain.NewIntegrationMatcher(owner, c.cfg.IntegrationBranch), nil
}

// releaseOrchestrator wires the orchestrator for owner/repo.
func (c *container) releaseOrchestrator(owner, repo string) (*orchestrator.ReleaseOrchestrator, error) {
	var opts []repository.GithubOption
	if c.cfg.GithubAPIURL != "" {
		opts = append(opts, repository.WithBaseURL(c.cfg.GithubAPIURL))
	}
	ghRepo, err := repository.NewGithubRepository(c.cfg.GithubToken, owner, repo, opts...)
	if err != nil {
		return nil, err
	}
	matcher, err := c.matcher(owner)
	if err != nil {
		return nil, err
	}
	return orchestrator.NewReleaseOrchestrator(
		c.gitRepo,
		ghRepo,
		c.fsRepo,
		c.npmSvc,
		c.lock,
		orchestrator.Settings{
			Matcher:         matcher,
			ManifestName:    c.cfg.ManifestName,
			CommitMessage:   c.cfg.CommitMessage,
			WorkflowTimeout: c.cfg.WorkflowTimeout,
			Logger:          c.logger.With(zap.String("repository", owner+"/"+repo)),
		},
	), nil
}

// buildRelease is the runnerFactory used by the CLI.
func buildRelease(opts releaseOptions) (releaseRunner, orchestrator.ReleaseConfig, error) {
	c, err := newContainer(opts.dir)
	if err != nil {
		return nil, orchestrator.ReleaseConfig{}, fmt.Errorf("failed to initialize: %w", err)
	}
	orch, err := c.releaseOrchestrator(opts.owner, opts.repo)
	if err != nil {
		return nil, orchestrator.ReleaseConfig{}, fmt.Errorf("failed to initialize: %w", err)
	}
	workingDir, err := filepath.Abs(c.cfg.WorkingDir)
	if err != nil {
		return nil, orchestrator.ReleaseConfig{}, fmt.Errorf("failed to resolve working dir: %w", err)
	}
	return orch, orchestrator.ReleaseConfig{
		Ref:        c.cfg.CurrentRef,
		WorkingDir: workingDir,
	}, nil
}

// InitCommands initializes all commands with their dependencies
func InitCommands() error {
	rootCmd.AddCommand(NewReleaseCmd(buildRelease))
	rootCmd.AddCommand(newVersionCmd())
	return nil
}
