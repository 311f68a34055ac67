package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/bank-notifier/internal/domain"
	infraBQ "github.com/dvloznov/bank-notifier/internal/infra/bigquery"
	"github.com/dvloznov/bank-notifier/internal/logger"
)

// BatchSize is the number of rows logged as one progress step.
const BatchSize = 100

// RowSource lists warehouse rows by occurrence time.
type RowSource interface {
	QueryByDateRange(ctx context.Context, start, end time.Time) ([]*infraBQ.NotificationTransactionRow, error)
}

// PageWriter creates one page per transaction. *Sink implements it.
type PageWriter interface {
	Save(ctx context.Context, tx domain.Transaction, at time.Time) (string, error)
}

// BackfillStats summarises a Backfill run.
type BackfillStats struct {
	Total   int
	Created int
	Failed  int
}

// Backfill copies warehouse rows in [start, end) into Notion. It does not
// look for existing pages, so running it twice over the same range creates
// duplicates. Individual page failures are logged and counted, not returned.
func Backfill(ctx context.Context, source RowSource, pages PageWriter, start, end time.Time, dryRun bool) (BackfillStats, error) {
	log := logger.FromContext(ctx)

	log.Info().
		Time("start_date", start).
		Time("end_date", end).
		Bool("dry_run", dryRun).
		Msg("Starting Notion backfill")

	rows, err := source.QueryByDateRange(ctx, start, end)
	if err != nil {
		return BackfillStats{}, fmt.Errorf("Backfill: query rows: %w", err)
	}

	stats := BackfillStats{Total: len(rows)}
	log.Info().Int("row_count", len(rows)).Msg("Retrieved rows from BigQuery")

	for i := 0; i < len(rows); i += BatchSize {
		batchEnd := min(i+BatchSize, len(rows))
		log.Info().
			Int("batch_start", i).
			Int("batch_end", batchEnd).
			Msg("Processing batch")

		for _, row := range rows[i:batchEnd] {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("Backfill: %w", err)
			}

			if dryRun {
				log.Info().
					Str("row_id", row.RowID).
					Int64("amount", row.Amount).
					Msg("[DRY RUN] Would create Notion page")
				stats.Created++
				continue
			}

			pageID, err := pages.Save(ctx, row.ToTransaction(), row.OccurredAt)
			if err != nil {
				log.Warn().Err(err).Str("row_id", row.RowID).Msg("Failed to create Notion page")
				stats.Failed++
				continue
			}

			log.Debug().Str("row_id", row.RowID).Str("page_id", pageID).Msg("Backfilled row")
			stats.Created++
		}
	}

	log.Info().
		Int("created", stats.Created).
		Int("failed", stats.Failed).
		Int("total", stats.Total).
		Msg("Notion backfill completed")

	return stats, nil
}
