// Package money formats and parses currency amounts.
package money

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency code is given.
const DefaultCurrency = "TTD"

var symbols = map[string]string{
	"TTD": "TT$",
	"USD": "US$",
	"EUR": "€",
	"GBP": "£",
	"CAD": "CA$",
	"BBD": "BDS$",
	"JMD": "J$",
}

// Symbol returns the display prefix for a currency code.
func Symbol(currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = DefaultCurrency
	}
	if s, ok := symbols[code]; ok {
		return s
	}
	return code + " "
}

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders an amount like "TT$1,234.50" or "-US$12.00".
func Format(amount decimal.Decimal, currency string) string {
	amount = Round(amount)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	return sign + Symbol(currency) + Group(amount.StringFixed(2))
}

// Group inserts thousands separators into a plain "1234.56" string.
func Group(plain string) string {
	intPart, frac, hasFrac := strings.Cut(plain, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// Parse reads an amount as found in bank exports and receipts.
//
// It accepts currency prefixes ("TT$", "USD", "$"), thousands separators,
// decimal commas ("1.234,56"), parentheses or a trailing minus for
// negatives, and DR/CR suffixes.
func Parse(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	neg := false
	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "DR"):
		neg = true
		s = strings.TrimSpace(s[:len(s)-2])
	case strings.HasSuffix(upper, "CR"):
		s = strings.TrimSpace(s[:len(s)-2])
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = !neg
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasSuffix(s, "-") {
		neg = !neg
		s = strings.TrimSpace(s[:len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = strings.TrimSpace(s[1:])
	} else if strings.HasPrefix(s, "+") {
		s = strings.TrimSpace(s[1:])
	}

	// Currency prefix: letters and symbols before the first digit.
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != ',' && r != '-'
	})
	// A sign may follow the symbol, as in "$-12.00".
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	}
	s = strings.ReplaceAll(s, " ", "")

	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return decimal.Zero, fmt.Errorf("parsing amount %q: unexpected %q", raw, r)
		}
	}

	d, err := decimal.NewFromString(normalizeSeparators(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites s so that '.' is the only decimal separator
// and thousands separators are gone.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		// A single comma followed by exactly two digits is a decimal comma.
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 == 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	}
	return s
}
