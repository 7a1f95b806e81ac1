package models

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount binds an arbitrary-precision decimal value (in human units) to a
// token identity. Amounts are immutable; operations return new instances.
type Amount struct {
	tokenID TokenID
	value   decimal.Decimal
}

// NewAmount creates an amount from a decimal value. The value must be
// non-negative.
func NewAmount(tokenID TokenID, value decimal.Decimal) (Amount, error) {
	if value.IsNegative() {
		return Amount{}, fmt.Errorf("amount for token %s must be non-negative, got %s", tokenID, value)
	}
	return Amount{tokenID: tokenID, value: value}, nil
}

// AmountFromHumanString parses a human-readable decimal string, e.g. "1001"
// or "995.624615".
func AmountFromHumanString(tokenID TokenID, s string) (Amount, error) {
	value, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q for token %s: %w", s, tokenID, err)
	}
	return NewAmount(tokenID, value)
}

// AmountFromAtomic converts an atomic integer quantity back to human units
// using the token's on-chain decimal count.
func AmountFromAtomic(tokenID TokenID, atomic *big.Int, decimals uint8) (Amount, error) {
	value := decimal.NewFromBigInt(atomic, -int32(decimals))
	return NewAmount(tokenID, value)
}

// ZeroAmount returns the zero amount for a token.
func ZeroAmount(tokenID TokenID) Amount {
	return Amount{tokenID: tokenID, value: decimal.Zero}
}

// TokenID returns the token identity the amount is bound to.
func (a Amount) TokenID() TokenID { return a.tokenID }

// Value returns the decimal value in human units.
func (a Amount) Value() decimal.Decimal { return a.value }

// IsZero reports whether the value is exactly zero.
func (a Amount) IsZero() bool { return a.value.IsZero() }

// HumanString renders the value losslessly; parsing the result with
// AmountFromHumanString yields an equal amount.
func (a Amount) HumanString() string { return a.value.String() }

// Atomic converts the value to the on-chain integer representation. It
// refuses to silently truncate precision below the token's decimal count.
func (a Amount) Atomic(decimals uint8) (*big.Int, error) {
	shifted := a.value.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %s of token %s does not fit in %d decimals", a.value, a.tokenID, decimals)
	}
	return shifted.BigInt(), nil
}

// Add returns a new amount with the sum of both values. The tokens must
// match.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.tokenID != b.tokenID {
		return Amount{}, fmt.Errorf("cannot add amounts of %s and %s", a.tokenID, b.tokenID)
	}
	return Amount{tokenID: a.tokenID, value: a.value.Add(b.value)}, nil
}

// Equal reports value and token equality.
func (a Amount) Equal(b Amount) bool {
	return a.tokenID == b.tokenID && a.value.Equal(b.value)
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.value, a.tokenID)
}
