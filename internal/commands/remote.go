package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dvloznov/bank-notifier/internal/config"
	infraBQ "github.com/dvloznov/bank-notifier/internal/infra/bigquery"
	"github.com/dvloznov/bank-notifier/internal/logger"
	"github.com/dvloznov/bank-notifier/internal/notionsync"
	"github.com/spf13/cobra"
)

func newNotionCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notion",
		Short: "Manage pages in the Notion transactions database",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "archive <page-id>",
		Short: "Archive a page created from a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.NotionAPIKey == "" {
				return fmt.Errorf("NOTION_API_KEY is required")
			}

			sink := notionsync.NewSink(notionsync.NewNotionClient(cfg.NotionAPIKey), cfg.NotionDatabaseID, opts.logger(cmd))
			if err := sink.Archive(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Archived page %s.\n", args[0])
			return nil
		},
	})

	return cmd
}

func newWarehouseCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warehouse",
		Short: "Query transactions stored in BigQuery",
	}

	var from, to string
	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions that occurred in [from, to)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseDateRange(from, to, time.Now())
			if err != nil {
				return err
			}

			cfg := config.Load()
			if cfg.BigQueryProjectID == "" {
				return fmt.Errorf("BIGQUERY_PROJECT_ID is required")
			}

			sink, err := infraBQ.NewTransactionSink(cmd.Context(), cfg.BigQueryProjectID, cfg.BigQueryDataset, cfg.BigQueryTable, opts.logger(cmd))
			if err != nil {
				return err
			}
			defer sink.Close()

			rows, err := sink.QueryByDateRange(cmd.Context(), start, end)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OCCURRED\tAMOUNT\tTYPE\tMETHOD\tTRANSACTION")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
					r.OccurredAt.Local().Format(time.DateTime),
					r.Amount,
					r.Direction,
					r.PaymentMethod,
					r.Transaction,
				)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&from, "from", "", "start date, YYYY-MM-DD (default 30 days ago)")
	list.Flags().StringVar(&to, "to", "", "end date, YYYY-MM-DD, exclusive (default tomorrow)")

	cmd.AddCommand(list, newSyncNotionCommand(opts))
	return cmd
}

func newSyncNotionCommand(opts *rootOptions) *cobra.Command {
	var (
		from, to string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "sync-notion",
		Short: "Create Notion pages for warehouse transactions in [from, to)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseDateRange(from, to, time.Now())
			if err != nil {
				return err
			}

			cfg := config.Load()
			if cfg.BigQueryProjectID == "" {
				return fmt.Errorf("BIGQUERY_PROJECT_ID is required")
			}
			if !dryRun && (cfg.NotionAPIKey == "" || cfg.NotionDatabaseID == "") {
				return fmt.Errorf("NOTION_API_KEY and NOTION_DATABASE_ID are required")
			}

			log := opts.logger(cmd)
			ctx := logger.WithContext(cmd.Context(), log)

			source, err := infraBQ.NewTransactionSink(ctx, cfg.BigQueryProjectID, cfg.BigQueryDataset, cfg.BigQueryTable, log)
			if err != nil {
				return err
			}
			defer source.Close()

			pages := notionsync.NewSink(notionsync.NewNotionClient(cfg.NotionAPIKey), cfg.NotionDatabaseID, log)

			stats, err := notionsync.Backfill(ctx, source, pages, start, end, dryRun)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d rows, %d pages created, %d failed\n", stats.Total, stats.Created, stats.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date, YYYY-MM-DD (default 30 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "end date, YYYY-MM-DD, exclusive (default tomorrow)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log what would be created without writing")

	return cmd
}

// parseDateRange resolves --from/--to in the local zone.
func parseDateRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	start := today.AddDate(0, 0, -30)
	if from != "" {
		t, err := time.ParseInLocation(time.DateOnly, from, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		start = t
	}

	end := today.AddDate(0, 0, 1)
	if to != "" {
		t, err := time.ParseInLocation(time.DateOnly, to, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		end = t
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must be after --from")
	}
	return start, end, nil
}
