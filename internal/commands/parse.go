package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/bank-notifier/internal/notification"
	"github.com/spf13/cobra"
)

func newParseCommand(opts *rootOptions) *cobra.Command {
	var pkg string

	cmd := &cobra.Command{
		Use:   "parse [text|-]",
		Short: "Parse one notification and print the transaction as JSON",
		Long: "Parse one notification with the built-in parsers. The text is read\n" +
			"from the argument, or from stdin when the argument is '-' or missing.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}

			router := notification.DefaultRouter(opts.logger(cmd))
			tx := router.ParseNotification(pkg, text)
			if tx == nil {
				return fmt.Errorf("could not parse notification for package: %s", pkg)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tx)
		},
	}

	cmd.Flags().StringVar(&pkg, "package", "com.VCB", "source application package id")

	return cmd
}

func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}

	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	// Shell pipes add a trailing newline the phone never sends.
	return strings.TrimRight(string(b), "\r\n"), nil
}

func newPackagesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List the package ids that have a parser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			router := notification.DefaultRouter(opts.logger(cmd))
			for _, pkg := range router.Packages() {
				d, _ := router.Dispatcher(pkg)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", pkg, strings.Join(d.Extractors(), ", "))
			}
			return nil
		},
	}
}
