// Package ingest turns an incoming notification into a delivered transaction:
// parse, validate, then hand the record to a sink directly or through the job queue.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/dvloznov/bank-notifier/internal/jobs"
	"github.com/dvloznov/bank-notifier/internal/requestlog"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrUnparsable means no parser recognised the package or the message.
	ErrUnparsable = errors.New("could not parse notification")
	// ErrSinkFailure wraps any error returned by the sink.
	ErrSinkFailure = errors.New("sink failure")
)

// Parser is satisfied by *notification.Router.
type Parser interface {
	ParseNotification(packageID, message string) *domain.Transaction
}

// Sink stores a parsed transaction and returns the id it was stored under.
type Sink interface {
	Name() string
	Save(ctx context.Context, tx domain.Transaction, at time.Time) (string, error)
}

// Journal records request outcomes. *requestlog.Store satisfies it.
type Journal interface {
	Record(ctx context.Context, e requestlog.Entry) (string, error)
	UpdateStatus(ctx context.Context, id string, status requestlog.Status, sinkID, errMsg string) error
}

// Request is one notification as received by the API.
type Request struct {
	Package string
	Text    string
	Time    time.Time
}

// Result describes what happened to a parsed notification.
type Result struct {
	RequestID   string
	Transaction domain.Transaction
	SinkID      string
	JobID       string
	Queued      bool
}

// Service wires the parser to a sink. Journal and Publisher are optional.
type Service struct {
	parser    Parser
	sink      Sink
	journal   Journal
	publisher jobs.Publisher
	log       zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithJournal records every request outcome in j.
func WithJournal(j Journal) Option {
	return func(s *Service) {
		s.journal = j
	}
}

// WithPublisher switches the service to asynchronous delivery through p.
func WithPublisher(p jobs.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// NewService creates a Service delivering to sink.
func NewService(parser Parser, sink Sink, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		parser: parser,
		sink:   sink,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Async reports whether records are delivered through the job queue.
func (s *Service) Async() bool {
	return s.publisher != nil
}

// Process parses req and delivers the record. Sink errors are never retried here.
func (s *Service) Process(ctx context.Context, req Request) (*Result, error) {
	requestID := uuid.New().String()
	log := s.log.With().
		Str("request_id", requestID).
		Str("package", req.Package).
		Logger()

	tx := s.parser.ParseNotification(req.Package, req.Text)
	if tx == nil {
		s.record(ctx, requestID, req, requestlog.StatusUnmatched, "", "")
		return nil, fmt.Errorf("%w for package: %s", ErrUnparsable, req.Package)
	}

	if err := tx.Validate(); err != nil {
		log.Error().Err(err).Msg("Parsed transaction failed validation")
		s.record(ctx, requestID, req, requestlog.StatusInvalid, "", err.Error())
		return nil, err
	}

	result := &Result{RequestID: requestID, Transaction: *tx}

	if s.publisher != nil {
		job := &jobs.DeliverTransactionJob{
			RequestID:   requestID,
			Package:     req.Package,
			Transaction: *tx,
			OccurredAt:  req.Time,
		}
		// Journal first: the worker may finish before Publish returns.
		s.record(ctx, requestID, req, requestlog.StatusQueued, "", "")
		if err := s.publisher.PublishDeliverTransaction(ctx, job); err != nil {
			s.update(ctx, requestID, requestlog.StatusSinkFailed, "", err.Error())
			return nil, fmt.Errorf("Process: enqueue delivery: %w", err)
		}

		log.Info().Str("job_id", job.JobID).Msg("Transaction queued for delivery")
		result.JobID = job.JobID
		result.Queued = true
		return result, nil
	}

	sinkID, err := s.sink.Save(ctx, *tx, req.Time)
	if err != nil {
		log.Error().Err(err).Str("sink", s.sink.Name()).Msg("Sink rejected transaction")
		s.record(ctx, requestID, req, requestlog.StatusSinkFailed, "", err.Error())
		return nil, fmt.Errorf("%w (%s): %w", ErrSinkFailure, s.sink.Name(), err)
	}

	log.Info().
		Str("sink", s.sink.Name()).
		Str("sink_id", sinkID).
		Int64("amount", tx.Amount).
		Str("type", string(tx.Type)).
		Msg("Transaction delivered")

	s.record(ctx, requestID, req, requestlog.StatusSaved, sinkID, "")
	result.SinkID = sinkID
	return result, nil
}

// Deliver is the queue handler for asynchronous mode.
func (s *Service) Deliver(ctx context.Context, job jobs.Job) error {
	j, ok := job.(*jobs.DeliverTransactionJob)
	if !ok {
		return fmt.Errorf("unexpected job type: %T", job)
	}

	sinkID, err := s.sink.Save(ctx, j.Transaction, j.OccurredAt)
	if err != nil {
		s.update(ctx, j.RequestID, requestlog.StatusSinkFailed, "", err.Error())
		return fmt.Errorf("%w (%s): %w", ErrSinkFailure, s.sink.Name(), err)
	}

	j.SinkID = sinkID
	s.update(ctx, j.RequestID, requestlog.StatusSaved, sinkID, "")

	s.log.Info().
		Str("job_id", j.JobID).
		Str("request_id", j.RequestID).
		Str("sink", s.sink.Name()).
		Str("sink_id", sinkID).
		Msg("Queued transaction delivered")
	return nil
}

// record and update are best effort: a journal outage must not fail ingestion.
func (s *Service) record(ctx context.Context, id string, req Request, status requestlog.Status, sinkID, errMsg string) {
	if s.journal == nil {
		return
	}
	_, err := s.journal.Record(ctx, requestlog.Entry{
		ID:         id,
		Package:    req.Package,
		Text:       req.Text,
		ReceivedAt: req.Time,
		Status:     status,
		SinkID:     sinkID,
		Error:      errMsg,
	})
	if err != nil {
		s.log.Error().Err(err).Str("request_id", id).Msg("Failed to journal request")
	}
}

func (s *Service) update(ctx context.Context, id string, status requestlog.Status, sinkID, errMsg string) {
	if s.journal == nil || id == "" {
		return
	}
	if err := s.journal.UpdateStatus(ctx, id, status, sinkID, errMsg); err != nil {
		s.log.Error().Err(err).Str("request_id", id).Msg("Failed to update request journal")
	}
}
