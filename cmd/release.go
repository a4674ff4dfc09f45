package cmd

import (
	"context"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/orchestrator"
	"github.com/spf13/cobra"
)

type releaseOptions struct {
	owner    string
	repo     string
	dir      string
	dryRun   bool
	ciOutput bool
}

type releaseRunner interface {
	Execute(ctx context.Context, cfg orchestrator.ReleaseConfig) (*domain.Release, error)
}

// runnerFactory builds the orchestrator and the run configuration for opts.
type runnerFactory func(opts releaseOptions) (releaseRunner, orchestrator.ReleaseConfig, error)

// NewReleaseCmd creates the release command
func NewReleaseCmd(factory runnerFactory) *cobra.Command {
	var opts releaseOptions
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Bump the project version and tag the new release in git",
		Long: `Bump the project version and tag the new release in git.

This command runs the whole release:
- Classifies the release from the head commit of CURRENT_REF
- Calculates the next version from the root package.json
- Writes that version to every module package.json and stages the changes
- Runs npm version to commit and tag the release
- Pushes the branch and tags`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			runner, cfg, err := factory(opts)
			if err != nil {
				return err
			}
			cfg.DryRun = opts.dryRun
			cfg.CIOutput = opts.ciOutput
			_, err = runner.Execute(cmd.Context(), cfg)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.owner, "owner", "", "The repository owner")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "The repository name")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Root of the monorepo (defaults to working_dir)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show what would be released without making changes")
	cmd.Flags().BoolVar(&opts.ciOutput, "ci-output", false, "Output in CI-friendly format")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("repo")
	return cmd
}
