package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/google/uuid"
)

// TransactionEvent is the message published for each parsed transaction.
type TransactionEvent struct {
	MessageID   string             `json:"message_id"`
	Transaction domain.Transaction `json:"transaction"`
	OccurredAt  time.Time          `json:"occurred_at"`
	PublishedAt time.Time          `json:"published_at"`
}

// NewTransactionEvent creates an event with a fresh message id.
func NewTransactionEvent(tx domain.Transaction, occurredAt, publishedAt time.Time) *TransactionEvent {
	return &TransactionEvent{
		MessageID:   uuid.New().String(),
		Transaction: tx,
		OccurredAt:  occurredAt.UTC(),
		PublishedAt: publishedAt.UTC(),
	}
}

// ToJSON serializes the event.
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event published by this service.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal transaction event: %w", err)
	}
	if e.MessageID == "" {
		return nil, fmt.Errorf("unmarshal transaction event: missing message_id")
	}
	return &e, nil
}
