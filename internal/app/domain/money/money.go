// Package money defines the monetary conventions of the engine.
//
// Listing prices are authored in the reference currency (USD) with two or
// more decimal places. Settlement happens in the native currency, a
// fixed-point value with 18 decimal places. Conversions divide the USD
// amount by the current rate (USD per one native unit) and round half away
// from zero at the native scale; the rounding mode is part of the public
// contract and is pinned by tests.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// NativeScale is the fixed-point precision of the settlement currency.
const NativeScale = 18

// ErrInvalidAmount reports a malformed or non-positive monetary amount.
var ErrInvalidAmount = errors.New("invalid amount")

// ConvertUSD converts a reference-currency amount into native units at the
// given rate (USD per one native unit).
func ConvertUSD(usd, rate decimal.Decimal) (decimal.Decimal, error) {
	if usd.Sign() < 0 || rate.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return usd.DivRound(rate, NativeScale), nil
}

// ParseAmount parses a strictly positive decimal amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FeeSplit divides an amount into the platform fee and the remainder paid to
// the beneficiary. Fees are expressed in basis points and rounded at the
// native scale, so fee+net always equals the original amount.
func FeeSplit(amount decimal.Decimal, feeBps int64) (fee, net decimal.Decimal) {
	if feeBps <= 0 {
		return decimal.Zero, amount
	}
	fee = amount.Mul(decimal.New(feeBps, -4)).Round(NativeScale)
	return fee, amount.Sub(fee)
}
