package commands

import (
	"fmt"

	"github.com/dvloznov/bank-notifier/internal/config"
	infraBQ "github.com/dvloznov/bank-notifier/internal/infra/bigquery"
	"github.com/dvloznov/bank-notifier/internal/requestlog"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var (
		dbPath   string
		bigQuery bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply request log migrations and optionally create the BigQuery table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := opts.logger(cmd)
			out := cmd.OutOrStdout()

			if dbPath != "" {
				if err := requestlog.RunMigrations(dbPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "Request log %s is up to date.\n", dbPath)
			}

			if !bigQuery {
				return nil
			}

			cfg := config.Load()
			if cfg.BigQueryProjectID == "" {
				return fmt.Errorf("BIGQUERY_PROJECT_ID is required for --bigquery")
			}

			sink, err := infraBQ.NewTransactionSink(cmd.Context(), cfg.BigQueryProjectID, cfg.BigQueryDataset, cfg.BigQueryTable, log)
			if err != nil {
				return err
			}
			defer sink.Close()

			if err := sink.EnsureTable(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "BigQuery table %s.%s.%s is ready.\n", cfg.BigQueryProjectID, cfg.BigQueryDataset, cfg.BigQueryTable)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", config.Load().DBFilename, "request log database file; empty skips it")
	cmd.Flags().BoolVar(&bigQuery, "bigquery", false, "also create the BigQuery transactions table")

	return cmd
}
