package models

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountFromHumanStringRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"integer", "1001"},
		{"fractional", "995.624615"},
		{"zero", "0"},
		{"full precision", "0.00000001"},
		{"large", "123456789012345678.123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := AmountFromHumanString("ethereum-usdc", tt.value)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", tt.value, err)
			}

			parsed, err := AmountFromHumanString("ethereum-usdc", amount.HumanString())
			if err != nil {
				t.Fatalf("failed to re-parse %q: %v", amount.HumanString(), err)
			}
			if !parsed.Equal(amount) {
				t.Errorf("round trip changed value: %s != %s", parsed, amount)
			}

			expected, _ := decimal.NewFromString(tt.value)
			if !amount.Value().Equal(expected) {
				t.Errorf("expected value %s, got %s", expected, amount.Value())
			}
		})
	}
}

func TestNewAmountRejectsNegative(t *testing.T) {
	if _, err := NewAmount("ethereum-usdc", decimal.NewFromInt(-1)); err == nil {
		t.Error("expected error for negative amount")
	}
}

func TestAmountAtomic(t *testing.T) {
	amount, err := AmountFromHumanString("ethereum-usdc", "995.624615")
	if err != nil {
		t.Fatalf("failed to parse amount: %v", err)
	}

	atomic, err := amount.Atomic(6)
	if err != nil {
		t.Fatalf("failed to convert to atomic: %v", err)
	}
	if atomic.Cmp(big.NewInt(995624615)) != 0 {
		t.Errorf("expected 995624615, got %s", atomic)
	}

	// Too much precision for the token's decimals must be rejected, not
	// truncated.
	if _, err := amount.Atomic(5); err == nil {
		t.Error("expected error for precision overflow")
	}
}

func TestAmountFromAtomic(t *testing.T) {
	amount, err := AmountFromAtomic("solana-usdc", big.NewInt(995624615), 6)
	if err != nil {
		t.Fatalf("failed to convert from atomic: %v", err)
	}
	if amount.HumanString() != "995.624615" {
		t.Errorf("expected 995.624615, got %s", amount.HumanString())
	}
}

func TestAmountAdd(t *testing.T) {
	a, _ := AmountFromHumanString("solana-usdc", "1.5")
	b, _ := AmountFromHumanString("solana-usdc", "2.25")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("failed to add amounts: %v", err)
	}
	if sum.HumanString() != "3.75" {
		t.Errorf("expected 3.75, got %s", sum.HumanString())
	}

	other, _ := AmountFromHumanString("solana-usdt", "1")
	if _, err := a.Add(other); err == nil {
		t.Error("expected error adding amounts of different tokens")
	}
}
