// Package commands implements the notifyctl command tree.
package commands

import (
	"github.com/dvloznov/bank-notifier/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel string
}

func (o *rootOptions) logger(cmd *cobra.Command) zerolog.Logger {
	return logger.NewWithLevel(cmd.ErrOrStderr(), o.logLevel)
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "notifyctl",
		Short: "Operate the bank notification parser",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newParseCommand(opts),
		newPackagesCommand(opts),
		newRequestsCommand(opts),
		newMigrateCommand(opts),
		newNotionCommand(opts),
		newWarehouseCommand(opts),
	)

	return rootCmd
}
