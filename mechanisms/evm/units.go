package evm

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern accepts digits with at most one decimal point, e.g. "10", "0.5", ".5", "5."
var amountPattern = regexp.MustCompile(`^\d*\.?\d*$`)

// ParseDecimal parses a user-entered decimal amount. It accepts only the
// digits-and-one-point form; signs, exponents, separators and surrounding
// whitespace are rejected.
func ParseDecimal(amount string) (decimal.Decimal, error) {
	if amount == "" || amount == "." {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	if !amountPattern.MatchString(amount) {
		return decimal.Zero, fmt.Errorf("invalid amount format: %q", amount)
	}
	d, err := decimal.NewFromString(normalizeDecimal(amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %w", err)
	}
	return d, nil
}

// ParsePositiveDecimal parses amount and requires it to be strictly positive
func ParsePositiveDecimal(amount string) (decimal.Decimal, error) {
	d, err := ParseDecimal(amount)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be greater than zero: %s", amount)
	}
	return d, nil
}

// ToSmallestUnit converts a decimal amount to the token's smallest unit.
// It fails when amount carries more fractional digits than decimals allows.
func ToSmallestUnit(amount decimal.Decimal, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("invalid decimals: %d", decimals)
	}
	shifted := amount.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), decimals)
	}
	return shifted.BigInt(), nil
}

// RoundToSmallestUnit converts a decimal amount to the smallest unit,
// rounding half away from zero.
func RoundToSmallestUnit(amount decimal.Decimal, decimals int) *big.Int {
	return amount.Shift(int32(decimals)).Round(0).BigInt()
}

// ParseUnits parses a decimal string into the smallest unit
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	d, err := ParseDecimal(amount)
	if err != nil {
		return nil, err
	}
	return ToSmallestUnit(d, decimals)
}

// FormatUnits renders a smallest-unit integer as a decimal string without
// trailing zeros, e.g. 12000000 with 6 decimals becomes "12".
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

func normalizeDecimal(s string) string {
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	return strings.TrimSuffix(s, ".")
}
