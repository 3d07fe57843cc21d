// Package currencyutils normalizes the monetary strings found in statement
// exports into decimal amounts.
package currencyutils

import (
	"regexp"
	"strings"

	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/parsererror"

	"github.com/shopspring/decimal"
)

// defaultSymbols are stripped when the mapping does not configure a symbol.
// R$ must come before $ so the R is not left behind.
var defaultSymbols = []string{"R$", "$"}

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// NormalizeAmount converts a raw amount cell to a decimal rounded to two
// places, following the mapping's amount format. Unless
// NegativeValuesAreIncome is set the absolute value is returned. Zero and
// unparsable values yield an *parsererror.InvalidAmountError.
func NormalizeAmount(raw string, format models.AmountFormat) (decimal.Decimal, error) {
	cleaned := StandardizeAmount(raw, format)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, &parsererror.InvalidAmountError{Value: raw, Reason: "no digits found"}
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &parsererror.InvalidAmountError{Value: raw, Reason: "not a number", Err: err}
	}
	amount = amount.Round(2)
	if amount.IsZero() {
		return decimal.Zero, &parsererror.InvalidAmountError{Value: raw, Reason: "amount is zero"}
	}

	if !format.NegativeValuesAreIncome {
		amount = amount.Abs()
	}
	return amount, nil
}

// StandardizeAmount rewrites raw into the canonical form understood by
// decimal.NewFromString: digits, at most one '.' and an optional '-'.
func StandardizeAmount(raw string, format models.AmountFormat) string {
	s := strings.TrimSpace(raw)

	if format.CurrencySymbol != "" {
		s = strings.ReplaceAll(s, format.CurrencySymbol, "")
	} else {
		for _, sym := range defaultSymbols {
			s = strings.ReplaceAll(s, sym, "")
		}
	}

	if ts := format.ThousandsSeparator; ts != "" && ts != "." && ts != "," {
		s = strings.ReplaceAll(s, ts, "")
	}

	switch {
	case format.DecimalSeparator == ".":
		s = strings.ReplaceAll(s, ",", "")
	case format.DecimalSeparator == "," && format.ThousandsSeparator == ".":
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		// 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ",", ".")
	}

	// Trailing minus as printed by some banks (45,90-).
	s = nonNumeric.ReplaceAllString(s, "")
	if strings.HasSuffix(s, "-") && !strings.HasPrefix(s, "-") {
		s = "-" + strings.TrimSuffix(s, "-")
	}
	return s
}

// FormatAmount formats a decimal amount with two decimal places and the
// currency symbol for the given code.
// Returns strings like "R$ 1234.56" or "€1234.56"
func FormatAmount(amount decimal.Decimal, currency string) string {
	formattedAmount := amount.StringFixed(2)

	if currency != "" {
		switch strings.ToUpper(currency) {
		case "BRL":
			return "R$ " + formattedAmount
		case "EUR":
			return "€" + formattedAmount
		case "USD":
			return "$" + formattedAmount
		case "CHF":
			return "CHF " + formattedAmount
		default:
			return currency + " " + formattedAmount
		}
	}

	return formattedAmount
}
