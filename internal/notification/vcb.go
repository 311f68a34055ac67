package notification

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/bank-notifier/internal/domain"
)

// VCB labels and defaults.
const (
	VCBPackage = "com.VCB"

	vcbAccountMethod    = "VCB Account"
	vcbCardMethod       = "VCB Card"
	vcbDefaultCategory  = "Utilities"
	vcbTransferFallback = "VCB Account Transfer"
	vcbCardFallback     = "VCB Card Payment"
)

var (
	// Số dư TK VCB 0541000346532 +20,270 VND lúc 17-07-2025 13:55:18. Số dư 339,270 VND. Ref MBVCB.10226239116.TRAN THU UYEN chuyen tien.CT tu 9963595567 TRAN THU UYEN toi 0541000346532 BUI THANH XUAN
	//
	// The reference runs up to the last period that is followed by text; the
	// segment after it is the transfer description. A period inside the
	// description therefore moves its head into the reference.
	vcbTransferPattern = regexp.MustCompile(
		`(?P<account>TK VCB \d+)\s(?P<sign>[+-])(?P<amount>[\d,]+)\s+VND.*?Ref\s(?P<ref>.*)\.(?P<transaction>[^.]+)(?:\.(?P<details>[^.]*))?$`,
	)

	// Thẻ VCB Visa 4xxx1234 sử dụng tại GRAB*FOOD số tiền 125,000 VND lúc ...
	vcbCardPattern = regexp.MustCompile(
		`Thẻ (?P<card>VCB .*?\d{4}) sử dụng tại (?P<merchant>.*?) số tiền [+-]?(?P<amount>[\d,]+)\s+(?P<currency>\w+)`,
	)
)

// accountTransferFields holds the raw captures of a VCB balance-change message.
type accountTransferFields struct {
	Account     string
	Sign        string
	Amount      string
	Ref         string
	Transaction string
	Details     string
}

// cardChargeFields holds the raw captures of a VCB card usage message.
type cardChargeFields struct {
	Card     string
	Merchant string
	Amount   string
	Currency string
}

// VCBAccountTransfer parses "Số dư TK VCB ..." balance-change notifications.
var VCBAccountTransfer = NewExtractor("vcb_account_transfer", extractVCBAccountTransfer)

// VCBCreditCard parses "Thẻ VCB ... sử dụng tại ..." card notifications.
// Card usage is always an outflow.
var VCBCreditCard = NewExtractor("vcb_credit_card", extractVCBCreditCard)

// NewVCBDispatcher returns the dispatcher for Vietcombank notifications.
func NewVCBDispatcher(opts ...DispatcherOption) *Dispatcher {
	return NewDispatcher(VCBPackage, []Extractor{VCBAccountTransfer, VCBCreditCard}, opts...)
}

func extractVCBAccountTransfer(message string) (domain.Transaction, bool) {
	f, ok := matchAccountTransfer(message)
	if !ok {
		return domain.Transaction{}, false
	}
	return f.normalize()
}

func matchAccountTransfer(message string) (accountTransferFields, bool) {
	// The description is anchored to the end of the text, so line endings
	// must not be mistaken for it.
	groups, ok := namedMatch(vcbTransferPattern, strings.TrimRight(message, "\r\n"))
	if !ok {
		return accountTransferFields{}, false
	}
	return accountTransferFields{
		Account:     groups["account"],
		Sign:        groups["sign"],
		Amount:      groups["amount"],
		Ref:         groups["ref"],
		Transaction: groups["transaction"],
		Details:     groups["details"],
	}, true
}

func (f accountTransferFields) normalize() (domain.Transaction, bool) {
	amount, err := ParseAmount(f.Amount)
	if err != nil {
		return domain.Transaction{}, false
	}

	typ := domain.TransactionTypeExpense
	if f.Sign == "+" {
		typ = domain.TransactionTypeIncome
	}

	description := strings.TrimSpace(f.Transaction)
	notes := fmt.Sprintf("Ref %s. %s. %s", strings.TrimSpace(f.Ref), description, strings.TrimSpace(f.Details))

	return domain.NewTransaction(
		amount,
		typ,
		orDefault(description, vcbTransferFallback),
		notes,
		vcbAccountMethod,
		vcbDefaultCategory,
	), true
}

func extractVCBCreditCard(message string) (domain.Transaction, bool) {
	f, ok := matchCardCharge(message)
	if !ok {
		return domain.Transaction{}, false
	}
	return f.normalize()
}

func matchCardCharge(message string) (cardChargeFields, bool) {
	groups, ok := namedMatch(vcbCardPattern, message)
	if !ok {
		return cardChargeFields{}, false
	}
	return cardChargeFields{
		Card:     groups["card"],
		Merchant: groups["merchant"],
		Amount:   groups["amount"],
		Currency: groups["currency"],
	}, true
}

func (f cardChargeFields) normalize() (domain.Transaction, bool) {
	amount, err := ParseAmount(f.Amount)
	if err != nil {
		return domain.Transaction{}, false
	}

	// No currency conversion: the amount is recorded as written.
	notes := fmt.Sprintf("Payment with %s. Original amount: %s %s.", strings.TrimSpace(f.Card), f.Amount, f.Currency)

	return domain.NewTransaction(
		amount,
		domain.TransactionTypeExpense,
		orDefault(strings.TrimSpace(f.Merchant), vcbCardFallback),
		notes,
		vcbCardMethod,
		vcbDefaultCategory,
	), true
}

// namedMatch runs re against s and returns its named groups.
func namedMatch(re *regexp.Regexp, s string) (map[string]string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	groups := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = m[i]
		}
	}
	return groups, true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
