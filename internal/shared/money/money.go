// Package money holds the single parsing and formatting point for hourly
// rates. Both the creator and editor flows validate through ParseRate so the
// two inputs can never drift apart in what they accept.
package money

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"user-rates/internal/shared/apperror"
)

const CurrencySuffix = "€"

// Placeholder is rendered when no rate is known for a user.
const Placeholder = "—"

var errInvalidRate = apperror.New(
	apperror.CodeInvalidInput,
	"Hourly rate must be a non-negative number with at most 2 decimals",
	http.StatusBadRequest,
)

// ParseRate parses operator input into a rate value. A decimal comma is
// normalized to a point before parsing. Empty input, non-numeric input,
// negative values and more than two fractional digits are rejected.
func ParseRate(input string) (decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return decimal.Decimal{}, errInvalidRate.WithField("hourly_rate")
	}

	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errInvalidRate.WithField("hourly_rate")
	}

	if d.IsNegative() {
		return decimal.Decimal{}, errInvalidRate.WithField("hourly_rate")
	}

	if d.Exponent() < -2 {
		return decimal.Decimal{}, errInvalidRate.WithField("hourly_rate")
	}

	return d, nil
}

// FormatRate renders a rate for display: two fixed decimals plus the currency
// suffix, or the placeholder when the rate is unknown.
func FormatRate(d *decimal.Decimal) string {
	if d == nil {
		return Placeholder
	}
	return d.StringFixed(2) + " " + CurrencySuffix
}
