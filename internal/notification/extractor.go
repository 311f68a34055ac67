// Package notification turns raw bank notification text into transaction records.
//
// Extractors recognise exactly one message shape each. A Dispatcher tries the
// extractors of one bank in registration order, and a Router picks the
// dispatcher for the package that emitted the notification. Nothing here does
// I/O or holds mutable state, so every type is safe for concurrent use.
package notification

import "github.com/dvloznov/bank-notifier/internal/domain"

// Extractor recognises one notification format.
// Extract returns false when the message does not have that format; it never
// returns a partially filled record.
type Extractor interface {
	Name() string
	Extract(message string) (domain.Transaction, bool)
}

// ExtractFunc is the signature of a single-format parser.
type ExtractFunc func(message string) (domain.Transaction, bool)

type namedExtractor struct {
	name string
	fn   ExtractFunc
}

// NewExtractor wraps fn as an Extractor reported under name.
func NewExtractor(name string, fn ExtractFunc) Extractor {
	return namedExtractor{name: name, fn: fn}
}

func (e namedExtractor) Name() string { return e.name }

func (e namedExtractor) Extract(message string) (domain.Transaction, bool) {
	return e.fn(message)
}
