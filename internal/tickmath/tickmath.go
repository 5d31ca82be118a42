// Package tickmath converts concentrated-liquidity tick indices into decimal prices.
//
//	price(tick) = 1.0001^tick * 10^(decimalsA - decimalsB)
//
// With decimalsA/decimalsB set to the pool's token0/token1 decimals this is the
// amount of token1 paid for one whole token0. Token ordering is taken from the
// source as-is: when the caller thinks of token1 as the base asset the result is
// the reciprocal of the expected price. Nothing here detects that case; use
// RangeFor with invert set to flip the quote.
//
// Exponentiation runs on shopspring/decimal at a fixed working scale; final
// values are rounded half away from zero.
package tickmath

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"positionScope/internal/model"
)

const (
	// PriceScale is the number of fractional digits in formatted prices.
	PriceScale int32 = 6

	// MinTick and MaxTick bound tick indices accepted by the converter.
	MinTick int32 = -887272
	MaxTick int32 = 887272

	workScale int32 = 80
)

var (
	// ErrTickOutOfRange is returned for ticks outside [MinTick, MaxTick].
	ErrTickOutOfRange = errors.New("tick out of range")
	// ErrInvertedRange is returned when tickLower > tickUpper.
	ErrInvertedRange = errors.New("tick lower above tick upper")

	tickBase = decimal.New(10001, -4)
	one      = decimal.NewFromInt(1)
)

// PriceAt returns the price at tick rounded to scale fractional digits.
func PriceAt(tick int32, decimalsA, decimalsB uint8, scale int32) (decimal.Decimal, error) {
	if tick < MinTick || tick > MaxTick {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrTickOutOfRange, tick)
	}

	n := int64(tick)
	if n < 0 {
		n = -n
	}
	p := pow(tickBase, n)
	if tick < 0 {
		p = one.DivRound(p, workScale)
	}
	p = p.Shift(int32(decimalsA) - int32(decimalsB))
	return p.Round(scale), nil
}

// Price formats the price at tick with exactly PriceScale fractional digits.
func Price(tick int32, decimalsA, decimalsB uint8) (string, error) {
	p, err := PriceAt(tick, decimalsA, decimalsB, PriceScale)
	if err != nil {
		return "", err
	}
	return p.StringFixed(PriceScale), nil
}

// RangeFor converts tick bounds into a PriceRange. Both bounds go through the
// same rounding so MinPrice <= MaxPrice holds whenever tickLower <= tickUpper.
//
// With invert set the range is quoted as token0 per token1:
// min = 1/price(tickUpper), max = 1/price(tickLower).
func RangeFor(tickLower, tickUpper int32, decimals0, decimals1 uint8, invert bool) (model.PriceRange, error) {
	if tickLower > tickUpper {
		return model.PriceRange{}, fmt.Errorf("%w: %d > %d", ErrInvertedRange, tickLower, tickUpper)
	}

	lowTick, highTick := tickLower, tickUpper
	decA, decB := decimals0, decimals1
	if invert {
		lowTick, highTick = -tickUpper, -tickLower
		decA, decB = decimals1, decimals0
	}

	minPrice, err := Price(lowTick, decA, decB)
	if err != nil {
		return model.PriceRange{}, err
	}
	maxPrice, err := Price(highTick, decA, decB)
	if err != nil {
		return model.PriceRange{}, err
	}
	return model.PriceRange{MinPrice: minPrice, MaxPrice: maxPrice}, nil
}

// InRange reports whether currentTick lies within [tickLower, tickUpper].
// Both bounds are inclusive.
func InRange(currentTick, tickLower, tickUpper int32) bool {
	return currentTick >= tickLower && currentTick <= tickUpper
}

// FormatAmount renders a smallest-unit integer amount at the token's decimals.
func FormatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).StringFixed(int32(decimals))
}

func pow(base decimal.Decimal, n int64) decimal.Decimal {
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Truncate(workScale)
		}
		n >>= 1
		if n > 0 {
			base = base.Mul(base).Truncate(workScale)
		}
	}
	return result
}
