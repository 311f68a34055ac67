package notification

import (
	"testing"

	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	vcbOutgoing = "Số dư TK VCB 0541000346532 -1,000 VND lúc 17-07-2025 13:52:49. Số dư 319,000 VND. Ref MBVCB.10226218427.BUI THANH XUAN chuyen tien.CT tu 0541000346532 BUI THANH XUAN toi 9963595567 TRAN THU UYEN"
	vcbIncoming = "Số dư TK VCB 0541000346532 +20,270 VND lúc 17-07-2025 13:55:18. Số dư 339,270 VND. Ref MBVCB.10226239116.TRAN THU UYEN chuyen tien.CT tu 9963595567 TRAN THU UYEN toi 0541000346532 BUI THANH XUAN"
	vcbCard     = "Thẻ VCB Visa 4xxx1234 sử dụng tại GRAB*FOOD số tiền 125,000 VND lúc 18-07-2025 09:12:01"
)

func TestVCBAccountTransfer_Outgoing(t *testing.T) {
	tx, ok := VCBAccountTransfer.Extract(vcbOutgoing)
	require.True(t, ok)

	assert.Equal(t, domain.Transaction{
		Amount:        -1000,
		Type:          domain.TransactionTypeExpense,
		Transaction:   "CT tu 0541000346532 BUI THANH XUAN toi 9963595567 TRAN THU UYEN",
		Notes:         "Ref MBVCB.10226218427.BUI THANH XUAN chuyen tien. CT tu 0541000346532 BUI THANH XUAN toi 9963595567 TRAN THU UYEN. ",
		PaymentMethod: "VCB Account",
		Category:      "Utilities",
	}, tx)
}

func TestVCBAccountTransfer_Incoming(t *testing.T) {
	tx, ok := VCBAccountTransfer.Extract(vcbIncoming)
	require.True(t, ok)

	assert.Equal(t, int64(20270), tx.Amount)
	assert.Equal(t, domain.TransactionTypeIncome, tx.Type)
	assert.Equal(t, "CT tu 9963595567 TRAN THU UYEN toi 0541000346532 BUI THANH XUAN", tx.Transaction)
	assert.Equal(t, "VCB Account", tx.PaymentMethod)
}

func TestVCBAccountTransfer_Shapes(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		wantOK     bool
		wantAmount int64
		wantLabel  string
		wantNotes  string
	}{
		{
			name:       "no grouping separator",
			message:    "Số dư TK VCB 0541000346532 -1000 VND lúc 17-07-2025 13:52:49. Số dư 319,000 VND. Ref FT123.Tien an",
			wantOK:     true,
			wantAmount: -1000,
			wantLabel:  "Tien an",
			wantNotes:  "Ref FT123. Tien an. ",
		},
		{
			name:       "trailing period keeps the description",
			message:    "Số dư TK VCB 0541000346532 +5,000 VND lúc 17-07-2025 13:52:49. Số dư 324,000 VND. Ref FT123.Hoan tien.",
			wantOK:     true,
			wantAmount: 5000,
			wantLabel:  "Hoan tien",
			wantNotes:  "Ref FT123. Hoan tien. ",
		},
		{
			name:       "trailing newline is ignored",
			message:    "Số dư TK VCB 0541000346532 +5,000 VND lúc 17-07-2025 13:52:49. Số dư 324,000 VND. Ref FT123.Hoan tien\n",
			wantOK:     true,
			wantAmount: 5000,
			wantLabel:  "Hoan tien",
			wantNotes:  "Ref FT123. Hoan tien. ",
		},
		{
			name:       "blank description falls back to default label",
			message:    "Số dư TK VCB 0541000346532 +5,000 VND lúc 17-07-2025 13:52:49. Số dư 324,000 VND. Ref FT123.   ",
			wantOK:     true,
			wantAmount: 5000,
			wantLabel:  "VCB Account Transfer",
			wantNotes:  "Ref FT123. . ",
		},
		{
			name:       "period inside description moves its head into the reference",
			message:    "Số dư TK VCB 0541000346532 -2,000 VND lúc 17-07-2025 13:52:49. Số dư 317,000 VND. Ref FT9.Thanh toan hoa don T7.2025",
			wantOK:     true,
			wantAmount: -2000,
			wantLabel:  "2025",
			wantNotes:  "Ref FT9.Thanh toan hoa don T7. 2025. ",
		},
		{
			name:    "missing sign glyph",
			message: "Số dư TK VCB 0541000346532 1,000 VND lúc 17-07-2025 13:52:49. Ref FT123.Tien an",
		},
		{
			name:    "missing Ref segment",
			message: "Số dư TK VCB 0541000346532 -1,000 VND lúc 17-07-2025 13:52:49. Số dư 319,000 VND.",
		},
		{
			name:    "reference without description",
			message: "Số dư TK VCB 0541000346532 -1,000 VND lúc 17-07-2025. Ref FT123",
		},
		{
			name:    "amount of separators only",
			message: "Số dư TK VCB 0541000346532 -,,, VND lúc 17-07-2025. Ref FT123.Tien an",
		},
		{
			name:    "amount overflows",
			message: "Số dư TK VCB 0541000346532 +99,999,999,999,999,999,999 VND lúc 17-07-2025. Ref FT123.Tien an",
		},
		{
			name:    "wrong field order",
			message: "Số dư -1,000 VND TK VCB 0541000346532 lúc 17-07-2025. Ref FT123.Tien an",
		},
		{
			name:    "card message",
			message: vcbCard,
		},
		{
			name:    "empty message",
			message: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ok := VCBAccountTransfer.Extract(tt.message)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, domain.Transaction{}, tx)
				return
			}
			assert.Equal(t, tt.wantAmount, tx.Amount)
			assert.Equal(t, tt.wantLabel, tx.Transaction)
			assert.Equal(t, tt.wantNotes, tx.Notes)
			assert.NoError(t, tx.Validate())
		})
	}
}

func TestVCBCreditCard(t *testing.T) {
	tx, ok := VCBCreditCard.Extract(vcbCard)
	require.True(t, ok)

	assert.Equal(t, domain.Transaction{
		Amount:        -125000,
		Type:          domain.TransactionTypeExpense,
		Transaction:   "GRAB*FOOD",
		Notes:         "Payment with VCB Visa 4xxx1234. Original amount: 125,000 VND.",
		PaymentMethod: "VCB Card",
		Category:      "Utilities",
	}, tx)
}

func TestVCBCreditCard_Shapes(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		wantOK     bool
		wantAmount int64
		wantLabel  string
		wantNotes  string
	}{
		{
			name:       "plus glyph is still an expense",
			message:    "Thẻ VCB Visa 4xxx1234 sử dụng tại SHOPEE số tiền +50,000 VND",
			wantOK:     true,
			wantAmount: -50000,
			wantLabel:  "SHOPEE",
			wantNotes:  "Payment with VCB Visa 4xxx1234. Original amount: 50,000 VND.",
		},
		{
			name:       "minus glyph is not doubled",
			message:    "Thẻ VCB Visa 4xxx1234 sử dụng tại SHOPEE số tiền -50,000 VND",
			wantOK:     true,
			wantAmount: -50000,
			wantLabel:  "SHOPEE",
			wantNotes:  "Payment with VCB Visa 4xxx1234. Original amount: 50,000 VND.",
		},
		{
			name:       "foreign currency is kept as written",
			message:    "Thẻ VCB Mastercard 5xxx9876 sử dụng tại NETFLIX.COM số tiền 12 USD lúc 01-08-2025",
			wantOK:     true,
			wantAmount: -12,
			wantLabel:  "NETFLIX.COM",
			wantNotes:  "Payment with VCB Mastercard 5xxx9876. Original amount: 12 USD.",
		},
		{
			name:       "blank merchant falls back to default label",
			message:    "Thẻ VCB Visa 4xxx1234 sử dụng tại   số tiền 10,000 VND",
			wantOK:     true,
			wantAmount: -10000,
			wantLabel:  "VCB Card Payment",
			wantNotes:  "Payment with VCB Visa 4xxx1234. Original amount: 10,000 VND.",
		},
		{
			name:    "card number without four digits",
			message: "Thẻ VCB Visa sử dụng tại SHOPEE số tiền 50,000 VND",
		},
		{
			name:    "missing amount",
			message: "Thẻ VCB Visa 4xxx1234 sử dụng tại SHOPEE số tiền VND",
		},
		{
			name:    "unaccented labels",
			message: "The VCB Visa 4xxx1234 su dung tai SHOPEE so tien 50,000 VND",
		},
		{
			name:    "transfer message",
			message: vcbOutgoing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ok := VCBCreditCard.Extract(tt.message)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, domain.Transaction{}, tx)
				return
			}
			assert.Equal(t, domain.TransactionTypeExpense, tx.Type)
			assert.Equal(t, tt.wantAmount, tx.Amount)
			assert.Equal(t, tt.wantLabel, tx.Transaction)
			assert.Equal(t, tt.wantNotes, tx.Notes)
		})
	}
}
