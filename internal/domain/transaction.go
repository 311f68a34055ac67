package domain

import (
	"errors"
	"fmt"
	"strings"
)

// TransactionType is the direction of money movement for a parsed notification.
type TransactionType string

const (
	// TransactionTypeIncome marks money coming into the account.
	TransactionTypeIncome TransactionType = "Income"
	// TransactionTypeExpense marks money leaving the account.
	TransactionTypeExpense TransactionType = "Expense"
)

// ErrInvalidTransaction is returned by Validate when a record breaks the record contract.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Transaction represents one normalized transaction extracted from a bank notification.
// Amount is a whole-unit currency amount: negative for money out, positive for money in.
// The JSON shape is what API clients receive as "parsedData".
type Transaction struct {
	Amount        int64           `json:"amount"`
	Type          TransactionType `json:"type"`
	Transaction   string          `json:"transaction"`   // counterparty or merchant label
	Notes         string          `json:"notes"`         // audit trail back to the raw message
	PaymentMethod string          `json:"paymentMethod"` // e.g. "VCB Account", "VCB Card"
	Category      string          `json:"category"`
}

// NewTransaction builds a record whose Amount sign is derived from typ.
// magnitude is taken as an absolute value.
func NewTransaction(magnitude int64, typ TransactionType, label, notes, paymentMethod, category string) Transaction {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if typ == TransactionTypeExpense {
		magnitude = -magnitude
	}

	return Transaction{
		Amount:        magnitude,
		Type:          typ,
		Transaction:   label,
		Notes:         notes,
		PaymentMethod: paymentMethod,
		Category:      category,
	}
}

// IsIncome reports whether the transaction is an inflow.
func (t Transaction) IsIncome() bool {
	return t.Type == TransactionTypeIncome
}

// Validate checks the record before it is handed to a sink.
// All violations are reported together.
func (t Transaction) Validate() error {
	var problems []string

	switch t.Type {
	case TransactionTypeIncome:
		if t.Amount < 0 {
			problems = append(problems, fmt.Sprintf("income with negative amount %d", t.Amount))
		}
	case TransactionTypeExpense:
		if t.Amount > 0 {
			problems = append(problems, fmt.Sprintf("expense with positive amount %d", t.Amount))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown type %q", t.Type))
	}

	if strings.TrimSpace(t.Transaction) == "" {
		problems = append(problems, "transaction label is empty")
	}
	if strings.TrimSpace(t.PaymentMethod) == "" {
		problems = append(problems, "payment method is empty")
	}
	if strings.TrimSpace(t.Category) == "" {
		problems = append(problems, "category is empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTransaction, strings.Join(problems, "; "))
	}
	return nil
}
