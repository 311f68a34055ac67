package ingest

import (
	"context"
	"time"

	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/rs/zerolog"
)

// DiscardSink logs records instead of storing them.
type DiscardSink struct {
	log zerolog.Logger
}

// NewDiscardSink creates a sink that only logs.
func NewDiscardSink(log zerolog.Logger) *DiscardSink {
	return &DiscardSink{log: log}
}

// Name implements Sink.
func (d *DiscardSink) Name() string { return "none" }

// Save implements Sink. It never fails and returns an empty id.
func (d *DiscardSink) Save(ctx context.Context, tx domain.Transaction, at time.Time) (string, error) {
	d.log.Info().
		Int64("amount", tx.Amount).
		Str("type", string(tx.Type)).
		Str("transaction", tx.Transaction).
		Time("occurred_at", at).
		Msg("Discarding transaction")
	return "", nil
}

var _ Sink = (*DiscardSink)(nil)
