// Package core provides money parsing and handling utilities.
//
// Amounts are fixed-point decimals with two fractional digits. Every
// transaction amount is positive; the direction of a money movement is
// carried by its Kind and turned into a signed balance change by Effect.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a single transaction may carry.
var MaxAmount = decimal.RequireFromString("99999999.99")

// ParseAmount converts user input to a positive two-decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero on the third decimal place.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks that d is a usable transaction amount.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() || d.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// Effect returns the signed change a transaction of the given kind applies to
// its sub-budget balance: expenses subtract, income adds.
func Effect(kind Kind, amount decimal.Decimal) decimal.Decimal {
	if kind == KindExpense {
		return amount.Neg()
	}
	return amount
}

// Apply returns the balance after t is recorded.
func Apply(balance decimal.Decimal, t Transaction) decimal.Decimal {
	return balance.Add(Effect(t.Kind, t.Amount))
}

// Reverse returns the balance after t is undone.
func Reverse(balance decimal.Decimal, t Transaction) decimal.Decimal {
	return balance.Sub(Effect(t.Kind, t.Amount))
}

// FormatAmount renders d with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
