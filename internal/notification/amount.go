package notification

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedAmount is returned when an amount token is not a comma-grouped whole number.
var ErrMalformedAmount = errors.New("malformed amount")

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// ParseAmount turns a token like "20,270" into 20270.
// Grouping commas are stripped; the rest must be a non-negative integer that fits in int64.
func ParseAmount(token string) (int64, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(token), ",", "")
	if digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, token)
	}

	d, err := decimal.NewFromString(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedAmount, token, err)
	}
	if !d.IsInteger() || d.IsNegative() || d.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, token)
	}

	return d.IntPart(), nil
}
