package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/google/uuid"
)

// NotificationTransactionRow is one parsed notification in the warehouse table.
type NotificationTransactionRow struct {
	RowID string `bigquery:"row_id"` // REQUIRED, also the insert id

	OccurredAt time.Time `bigquery:"occurred_at"` // REQUIRED, partition column

	Amount    int64  `bigquery:"amount"`    // REQUIRED, signed whole units
	Direction string `bigquery:"direction"` // REQUIRED, Income or Expense

	Transaction string              `bigquery:"transaction"` // REQUIRED
	Notes       bigquery.NullString `bigquery:"notes"`       // NULLABLE

	PaymentMethod string `bigquery:"payment_method"` // REQUIRED
	Category      string `bigquery:"category"`       // REQUIRED

	IngestedAt time.Time `bigquery:"ingested_at"` // REQUIRED
}

// RowFromTransaction builds a row with a fresh row id.
func RowFromTransaction(tx domain.Transaction, occurredAt, ingestedAt time.Time) *NotificationTransactionRow {
	return &NotificationTransactionRow{
		RowID:         uuid.New().String(),
		OccurredAt:    occurredAt.UTC(),
		Amount:        tx.Amount,
		Direction:     string(tx.Type),
		Transaction:   tx.Transaction,
		Notes:         bigquery.NullString{StringVal: tx.Notes, Valid: tx.Notes != ""},
		PaymentMethod: tx.PaymentMethod,
		Category:      tx.Category,
		IngestedAt:    ingestedAt.UTC(),
	}
}

// ToTransaction converts a row read back from the warehouse.
func (r *NotificationTransactionRow) ToTransaction() domain.Transaction {
	return domain.Transaction{
		Amount:        r.Amount,
		Type:          domain.TransactionType(r.Direction),
		Transaction:   r.Transaction,
		Notes:         r.Notes.StringVal,
		PaymentMethod: r.PaymentMethod,
		Category:      r.Category,
	}
}
