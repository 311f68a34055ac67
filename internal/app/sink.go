// Package app builds the configured delivery backends for the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/bank-notifier/internal/amqp"
	"github.com/dvloznov/bank-notifier/internal/config"
	infraBQ "github.com/dvloznov/bank-notifier/internal/infra/bigquery"
	"github.com/dvloznov/bank-notifier/internal/ingest"
	"github.com/dvloznov/bank-notifier/internal/notionsync"
	"github.com/rs/zerolog"
)

// Sink is a configured backend plus what the HTTP layer calls it.
type Sink struct {
	ingest.Sink
	Label string

	close func() error
}

// Close releases the backend's connections, if it holds any.
func (s *Sink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// NewSink builds the backend named by cfg.SinkBackend. cfg must already be valid.
func NewSink(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Sink, error) {
	log = log.With().Str("sink", cfg.SinkBackend).Logger()

	switch cfg.SinkBackend {
	case config.SinkNotion:
		client := notionsync.NewNotionClient(cfg.NotionAPIKey)
		return &Sink{
			Sink:  notionsync.NewSink(client, cfg.NotionDatabaseID, log),
			Label: "Notion",
		}, nil

	case config.SinkAMQP:
		pub, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, log)
		if err != nil {
			return nil, fmt.Errorf("NewSink: %w", err)
		}
		return &Sink{Sink: pub, Label: "AMQP", close: pub.Close}, nil

	case config.SinkBigQuery:
		bq, err := infraBQ.NewTransactionSink(ctx, cfg.BigQueryProjectID, cfg.BigQueryDataset, cfg.BigQueryTable, log)
		if err != nil {
			return nil, fmt.Errorf("NewSink: %w", err)
		}
		return &Sink{Sink: bq, Label: "BigQuery", close: bq.Close}, nil

	case config.SinkNone:
		return &Sink{Sink: ingest.NewDiscardSink(log), Label: "the log"}, nil
	}

	return nil, fmt.Errorf("NewSink: unknown sink backend %q", cfg.SinkBackend)
}
