package notification

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/dvloznov/bank-notifier/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingExtractor records how often it was called.
type countingExtractor struct {
	name  string
	calls int
	tx    domain.Transaction
	match bool
}

func (c *countingExtractor) Name() string { return c.name }

func (c *countingExtractor) Extract(string) (domain.Transaction, bool) {
	c.calls++
	return c.tx, c.match
}

func TestDispatcher_FirstMatchWins(t *testing.T) {
	first := &countingExtractor{
		name:  "first",
		match: true,
		tx:    domain.NewTransaction(1, domain.TransactionTypeIncome, "first", "", "m", "c"),
	}
	second := &countingExtractor{
		name:  "second",
		match: true,
		tx:    domain.NewTransaction(2, domain.TransactionTypeIncome, "second", "", "m", "c"),
	}

	d := NewDispatcher("com.test", []Extractor{first, second})
	tx, ok := d.Dispatch("anything")

	require.True(t, ok)
	assert.Equal(t, "first", tx.Transaction)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "later extractors must not run after a match")
}

func TestDispatcher_FallsThroughInOrder(t *testing.T) {
	var order []string
	mk := func(name string, match bool) Extractor {
		return NewExtractor(name, func(string) (domain.Transaction, bool) {
			order = append(order, name)
			if !match {
				return domain.Transaction{}, false
			}
			return domain.NewTransaction(5, domain.TransactionTypeExpense, name, "", "m", "c"), true
		})
	}

	d := NewDispatcher("com.test", []Extractor{mk("a", false), mk("b", false), mk("c", true), mk("d", true)})
	tx, ok := d.Dispatch("msg")

	require.True(t, ok)
	assert.Equal(t, "c", tx.Transaction)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, []string{"a", "b", "c", "d"}, d.Extractors())
}

func TestDispatcher_NoMatchLogsRawMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	d := NewDispatcher("com.test", []Extractor{
		NewExtractor("never", func(string) (domain.Transaction, bool) { return domain.Transaction{}, false }),
	}, WithLogger(logger.NewWithWriter(buf)))

	tx, ok := d.Dispatch("Tin nhan la 123")

	assert.False(t, ok)
	assert.Equal(t, domain.Transaction{}, tx)
	out := buf.String()
	assert.Contains(t, out, "unmatched_message")
	assert.Contains(t, out, "Tin nhan la 123")
	assert.Contains(t, out, "com.test")
	assert.Contains(t, out, `"level":"warn"`)
}

func TestDispatcher_RegistrationIsCopied(t *testing.T) {
	never := NewExtractor("never", func(string) (domain.Transaction, bool) { return domain.Transaction{}, false })
	list := []Extractor{never}
	d := NewDispatcher("com.test", list)

	list[0] = NewExtractor("always", func(string) (domain.Transaction, bool) {
		return domain.NewTransaction(1, domain.TransactionTypeIncome, "x", "", "m", "c"), true
	})

	_, ok := d.Dispatch("msg")
	assert.False(t, ok)
}

func TestVCBDispatcher_OverlappingMessagePrefersTransfer(t *testing.T) {
	// Both VCB shapes appear; the transfer extractor is registered first.
	msg := "Thẻ VCB Visa 4xxx1234 sử dụng tại SHOP số tiền 10,000 VND. Số dư TK VCB 0541000346532 -10,000 VND lúc 18-07-2025. Ref R1.SHOP"

	_, cardOK := VCBCreditCard.Extract(msg)
	require.True(t, cardOK, "crafted message must satisfy both formats")

	tx, ok := NewVCBDispatcher().Dispatch(msg)
	require.True(t, ok)
	assert.Equal(t, "VCB Account", tx.PaymentMethod)
	assert.Equal(t, int64(-10000), tx.Amount)
}

func TestVCBDispatcher_Idempotent(t *testing.T) {
	d := NewVCBDispatcher()
	for _, msg := range []string{vcbOutgoing, vcbIncoming, vcbCard} {
		a, okA := d.Dispatch(msg)
		b, okB := d.Dispatch(msg)
		require.True(t, okA)
		require.True(t, okB)
		assert.Equal(t, a, b)
	}
}

func TestVCBDispatcher_SignAgreesWithType(t *testing.T) {
	messages := []string{
		vcbOutgoing,
		vcbIncoming,
		vcbCard,
		strings.Replace(vcbIncoming, "+20,270", "+0", 1),
		strings.Replace(vcbOutgoing, "-1,000", "-0", 1),
		"Thẻ VCB Visa 4xxx1234 sử dụng tại A số tiền +1 VND",
	}

	d := NewVCBDispatcher()
	for _, msg := range messages {
		tx, ok := d.Dispatch(msg)
		require.True(t, ok, msg)
		switch tx.Type {
		case domain.TransactionTypeIncome:
			assert.GreaterOrEqual(t, tx.Amount, int64(0), msg)
		case domain.TransactionTypeExpense:
			assert.LessOrEqual(t, tx.Amount, int64(0), msg)
		default:
			t.Fatalf("unexpected type %q", tx.Type)
		}
	}
}
