package evm

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimal(t *testing.T) {
	valid := map[string]string{
		"10":    "10",
		"0.5":   "0.5",
		".5":    "0.5",
		"5.":    "5",
		"12.25": "12.25",
		"007":   "7",
	}
	for input, want := range valid {
		d, err := ParseDecimal(input)
		if err != nil {
			t.Errorf("ParseDecimal(%q) returned error: %v", input, err)
			continue
		}
		if !d.Equal(decimal.RequireFromString(want)) {
			t.Errorf("ParseDecimal(%q) = %s, want %s", input, d, want)
		}
	}

	for _, input := range []string{"", ".", "abc", "-1", "1e6", "1,000", "1.2.3", "+4", "0x10", " 10 ", "10 ", "\t1"} {
		if _, err := ParseDecimal(input); err == nil {
			t.Errorf("ParseDecimal(%q) should fail", input)
		}
	}
}

func TestParsePositiveDecimal(t *testing.T) {
	for _, input := range []string{"0", "0.0", "000", "."} {
		if _, err := ParsePositiveDecimal(input); err == nil {
			t.Errorf("ParsePositiveDecimal(%q) should fail", input)
		}
	}
	d, err := ParsePositiveDecimal("0.000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsPositive() {
		t.Errorf("expected positive amount, got %s", d)
	}
}

func TestToSmallestUnit(t *testing.T) {
	t.Run("Whole and fractional amounts", func(t *testing.T) {
		cases := []struct {
			amount   string
			decimals int
			want     string
		}{
			{"12", 6, "12000000"},
			{"0.5", 6, "500000"},
			{"1.000001", 6, "1000001"},
			{"1", 18, "1000000000000000000"},
			{"3", 0, "3"},
		}
		for _, tc := range cases {
			got, err := ToSmallestUnit(decimal.RequireFromString(tc.amount), tc.decimals)
			if err != nil {
				t.Fatalf("ToSmallestUnit(%s, %d) returned error: %v", tc.amount, tc.decimals, err)
			}
			if got.String() != tc.want {
				t.Errorf("ToSmallestUnit(%s, %d) = %s, want %s", tc.amount, tc.decimals, got, tc.want)
			}
		}
	})

	t.Run("Too many decimal places", func(t *testing.T) {
		if _, err := ToSmallestUnit(decimal.RequireFromString("1.0000001"), 6); err == nil {
			t.Error("expected error for 7 decimal places with 6 decimals")
		}
	})

	t.Run("Negative decimals", func(t *testing.T) {
		if _, err := ToSmallestUnit(decimal.NewFromInt(1), -1); err == nil {
			t.Error("expected error for negative decimals")
		}
	})
}

func TestRoundToSmallestUnit(t *testing.T) {
	got := RoundToSmallestUnit(decimal.RequireFromString("1.0000005"), 6)
	if got.String() != "1000001" {
		t.Errorf("expected half to round up, got %s", got)
	}
	got = RoundToSmallestUnit(decimal.RequireFromString("1.0000004"), 6)
	if got.String() != "1000000" {
		t.Errorf("expected rounding down, got %s", got)
	}
}

func TestParseAndFormatUnits(t *testing.T) {
	value, err := ParseUnits("12.5", 6)
	if err != nil {
		t.Fatalf("ParseUnits failed: %v", err)
	}
	if value.Cmp(big.NewInt(12500000)) != 0 {
		t.Errorf("ParseUnits = %s, want 12500000", value)
	}

	if got := FormatUnits(big.NewInt(12000000), 6); got != "12" {
		t.Errorf("FormatUnits = %q, want \"12\"", got)
	}
	if got := FormatUnits(big.NewInt(1), 6); got != "0.000001" {
		t.Errorf("FormatUnits = %q, want \"0.000001\"", got)
	}
	if got := FormatUnits(nil, 6); got != "0" {
		t.Errorf("FormatUnits(nil) = %q, want \"0\"", got)
	}
}
