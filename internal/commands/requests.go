package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/bank-notifier/internal/config"
	"github.com/dvloznov/bank-notifier/internal/notification"
	"github.com/dvloznov/bank-notifier/internal/requestlog"
	"github.com/spf13/cobra"
)

const textPreviewLen = 60

func newRequestsCommand(opts *rootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Inspect the request log",
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", config.Load().DBFilename, "request log database file")

	cmd.AddCommand(
		newRequestsListCommand(&dbPath),
		newRequestsShowCommand(&dbPath),
		newRequestsReplayCommand(opts, &dbPath),
	)

	return cmd
}

func openRequestLog(dbPath string) (*requestlog.Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("request log is disabled: pass --db or set DB_FILENAME")
	}
	return requestlog.Open(dbPath)
}

func newRequestsListCommand(dbPath *string) *cobra.Command {
	var (
		status string
		pkg    string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRequestLog(*dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), requestlog.Filter{
				Status:  requestlog.Status(status),
				Package: pkg,
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tRECEIVED\tSTATUS\tPACKAGE\tSINK ID\tTEXT")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID,
					e.ReceivedAt.Local().Format(time.DateTime),
					e.Status,
					e.Package,
					e.SinkID,
					preview(e.Text),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only entries with this status")
	cmd.Flags().StringVar(&pkg, "package", "", "only entries from this package")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries")

	return cmd
}

func newRequestsShowCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one journaled request as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRequestLog(*dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entry)
		},
	}
}

// Replay re-parses unmatched requests with the current parsers. It reports
// only; nothing is delivered.
func newRequestsReplayCommand(opts *rootOptions, dbPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-parse unmatched requests and report which now match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openRequestLog(*dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), requestlog.Filter{
				Status: requestlog.StatusUnmatched,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			router := notification.DefaultRouter(opts.logger(cmd))
			matched := 0
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tRESULT\tAMOUNT\tTRANSACTION")
			for _, e := range entries {
				tx := router.ParseNotification(e.Package, e.Text)
				if tx == nil {
					fmt.Fprintf(tw, "%s\tunmatched\t\t%s\n", e.ID, preview(e.Text))
					continue
				}
				matched++
				fmt.Fprintf(tw, "%s\tmatched\t%d\t%s\n", e.ID, tx.Amount, tx.Transaction)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d unmatched requests now parse\n", matched, len(entries))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 500, "maximum number of entries to replay")

	return cmd
}

func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= textPreviewLen {
		return s
	}
	return string(r[:textPreviewLen-1]) + "…"
}
