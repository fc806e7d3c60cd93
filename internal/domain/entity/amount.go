package entity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeAmount parses a non-negative decimal and formats it with two fraction digits
func NormalizeAmount(raw string) (string, error) {
	d, err := ParseAmount(raw)
	if err != nil {
		return "", err
	}
	return d.StringFixed(2), nil
}

// ParseAmount parses a non-negative decimal amount
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a number", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q is negative", raw)
	}
	return d, nil
}

// SumAmounts adds line amounts and returns the total with two fraction digits
func SumAmounts(amounts []string) (string, error) {
	total := decimal.Zero
	for i, a := range amounts {
		d, err := ParseAmount(a)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}
		total = total.Add(d)
	}
	return total.StringFixed(2), nil
}

// AmountsEqual compares two amounts after rounding both to the cent
func AmountsEqual(a, b string) bool {
	da, err := ParseAmount(a)
	if err != nil {
		return false
	}
	db, err := ParseAmount(b)
	if err != nil {
		return false
	}
	return da.StringFixed(2) == db.StringFixed(2)
}
