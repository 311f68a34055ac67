package notification

import (
	"sort"

	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/rs/zerolog"
)

// Router maps a notification source package to its bank dispatcher.
// The table is built once and only read afterwards.
type Router struct {
	dispatchers map[string]*Dispatcher
	log         zerolog.Logger
}

// NewRouter builds a router over dispatchers. Panics on a duplicate package.
func NewRouter(log zerolog.Logger, dispatchers ...*Dispatcher) *Router {
	table := make(map[string]*Dispatcher, len(dispatchers))
	for _, d := range dispatchers {
		if _, ok := table[d.Package()]; ok {
			panic("duplicate notification package: " + d.Package())
		}
		table[d.Package()] = d
	}
	return &Router{dispatchers: table, log: log}
}

// DefaultRouter returns a router with every built-in bank registered.
func DefaultRouter(log zerolog.Logger) *Router {
	return NewRouter(log,
		NewVCBDispatcher(WithLogger(log)),
	)
}

// Route parses message with the dispatcher registered for packageID.
// An unknown package is an expected outcome and yields false, not an error.
func (r *Router) Route(packageID, message string) (domain.Transaction, bool) {
	d, ok := r.dispatchers[packageID]
	if !ok {
		r.log.Warn().Str("package", packageID).Msg("No parser registered for package")
		return domain.Transaction{}, false
	}
	return d.Dispatch(message)
}

// ParseNotification returns the parsed record, or nil when the package or the
// message format is not recognised.
func (r *Router) ParseNotification(packageID, message string) *domain.Transaction {
	tx, ok := r.Route(packageID, message)
	if !ok {
		return nil
	}
	return &tx
}

// Packages returns the registered package identifiers, sorted.
func (r *Router) Packages() []string {
	pkgs := make([]string, 0, len(r.dispatchers))
	for p := range r.dispatchers {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)
	return pkgs
}

// Dispatcher returns the dispatcher for packageID, if any.
func (r *Router) Dispatcher(packageID string) (*Dispatcher, bool) {
	d, ok := r.dispatchers[packageID]
	return d, ok
}
