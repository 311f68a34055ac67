package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// rowInserter is the part of *bigquery.Inserter the sink uses.
type rowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// TransactionSink streams parsed transactions into a BigQuery table.
type TransactionSink struct {
	client   *bigquery.Client
	table    *bigquery.Table
	inserter rowInserter
	log      zerolog.Logger
	now      func() time.Time
}

// NewTransactionSink creates a sink writing to projectID.datasetID.tableID
// with a shared BigQuery client.
func NewTransactionSink(ctx context.Context, projectID, datasetID, tableID string, log zerolog.Logger) (*TransactionSink, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewTransactionSink: creating client: %w", err)
	}

	// Fully qualified so the client's default project does not matter.
	table := client.DatasetInProject(projectID, datasetID).Table(tableID)

	return &TransactionSink{
		client:   client,
		table:    table,
		inserter: table.Inserter(),
		log:      log,
		now:      time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (s *TransactionSink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Name returns the sink name used in logs.
func (s *TransactionSink) Name() string { return "bigquery" }

// Save inserts one row and returns its row id. The row id doubles as the
// streaming insert id so a retried job is deduplicated by BigQuery.
func (s *TransactionSink) Save(ctx context.Context, tx domain.Transaction, at time.Time) (string, error) {
	row := RowFromTransaction(tx, at, s.now())

	saver := &bigquery.StructSaver{
		Struct:   row,
		InsertID: row.RowID,
	}
	if err := s.inserter.Put(ctx, saver); err != nil {
		return "", fmt.Errorf("Save: inserting row: %w", err)
	}

	s.log.Info().
		Str("row_id", row.RowID).
		Int64("amount", row.Amount).
		Msg("Inserted transaction row")

	return row.RowID, nil
}

// EnsureTable creates the table, partitioned by day on occurred_at, unless it exists.
func (s *TransactionSink) EnsureTable(ctx context.Context) error {
	schema, err := bigquery.InferSchema(NotificationTransactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}

	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "occurred_at",
		},
	}

	err = s.table.Create(ctx, meta)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		s.log.Info().Str("table", s.table.FullyQualifiedName()).Msg("Table already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("EnsureTable: creating table: %w", err)
	}

	s.log.Info().Str("table", s.table.FullyQualifiedName()).Msg("Created table")
	return nil
}

// QueryByDateRange returns the rows whose occurred_at falls in [start, end).
func (s *TransactionSink) QueryByDateRange(ctx context.Context, start, end time.Time) ([]*NotificationTransactionRow, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			row_id,
			occurred_at,
			amount,
			direction,
			transaction,
			notes,
			payment_method,
			category,
			ingested_at
		FROM `+"`%s.%s.%s`"+`
		WHERE occurred_at >= @start_ts
		  AND occurred_at < @end_ts
		ORDER BY occurred_at, ingested_at
	`, s.table.ProjectID, s.table.DatasetID, s.table.TableID))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_ts", Value: start.UTC()},
		{Name: "end_ts", Value: end.UTC()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryByDateRange: query read: %w", err)
	}

	var rows []*NotificationTransactionRow
	for {
		var r NotificationTransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
