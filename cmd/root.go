package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/compozy/monorelease/pkg/version"
	"github.com/spf13/cobra"
)

var errCommandRequired = errors.New("a command is required")

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monorelease",
		Short: "Release a monorepo of npm modules in lockstep",
		Long: `monorelease bumps the version of an npm monorepo and all of its modules.

A merge from the integration branch produces a minor release, anything else a
patch release. The new version is written to every module manifest, then
npm commits and tags the release and the result is pushed.`,
		Version:       version.Summary(),
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errCommandRequired
		},
	}
}

// Execute runs the root command, canceling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
