package notification

import (
	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/rs/zerolog"
)

// Dispatcher tries the extractors registered for one bank package in order.
// The extractor list is copied at construction and never changes afterwards.
type Dispatcher struct {
	pkg        string
	extractors []Extractor
	log        zerolog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for match and no-match diagnostics.
func WithLogger(log zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// NewDispatcher creates a dispatcher for pkg. Registration order is the
// tie-break when two formats could match the same message.
func NewDispatcher(pkg string, extractors []Extractor, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		pkg:        pkg,
		extractors: append([]Extractor(nil), extractors...),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("package", pkg).Logger()
	return d
}

// Package returns the package identifier this dispatcher serves.
func (d *Dispatcher) Package() string {
	return d.pkg
}

// Extractors returns the extractor names in trial order.
func (d *Dispatcher) Extractors() []string {
	names := make([]string, len(d.extractors))
	for i, e := range d.extractors {
		names[i] = e.Name()
	}
	return names
}

// Dispatch returns the record produced by the first extractor that accepts message.
// When none does, the raw message is logged for format discovery and false is returned.
func (d *Dispatcher) Dispatch(message string) (domain.Transaction, bool) {
	for _, e := range d.extractors {
		if tx, ok := e.Extract(message); ok {
			d.log.Debug().
				Str("extractor", e.Name()).
				Msg("Notification matched")
			return tx, true
		}
	}

	d.log.Warn().
		Str("unmatched_message", message).
		Int("extractors_tried", len(d.extractors)).
		Msg("Notification did not match any known format")
	return domain.Transaction{}, false
}
