package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/rs/zerolog"
)

// Sink writes each transaction as a new page in a Notion database.
type Sink struct {
	client     NotionService
	databaseID string
	log        zerolog.Logger
}

// NewSink creates a Sink writing to databaseID through client.
func NewSink(client NotionService, databaseID string, log zerolog.Logger) *Sink {
	return &Sink{
		client:     client,
		databaseID: databaseID,
		log:        log,
	}
}

// Name returns the sink name used in logs.
func (s *Sink) Name() string { return "notion" }

// Save creates the page and returns its id. Failures are returned as-is;
// retrying is left to the caller.
func (s *Sink) Save(ctx context.Context, tx domain.Transaction, at time.Time) (string, error) {
	page, err := s.client.CreatePage(ctx, s.databaseID, TransactionToNotionProperties(tx, at), IconForType(tx.Type))
	if err != nil {
		return "", fmt.Errorf("Save: %w", err)
	}

	pageID := string(page.ID)
	s.log.Info().
		Str("page_id", pageID).
		Str("transaction", tx.Transaction).
		Int64("amount", tx.Amount).
		Msg("Created Notion page")

	return pageID, nil
}

// Archive removes a previously created page, for undoing a bad import.
func (s *Sink) Archive(ctx context.Context, pageID string) error {
	if err := s.client.DeletePage(ctx, pageID); err != nil {
		return fmt.Errorf("Archive: %w", err)
	}
	s.log.Info().Str("page_id", pageID).Msg("Archived Notion page")
	return nil
}
