package tickmath

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPriceKnownValues(t *testing.T) {
	cases := []struct {
		tick      int32
		decimalsA uint8
		decimalsB uint8
		want      string
	}{
		{0, 18, 18, "1.000000"},
		{1, 18, 18, "1.000100"},
		{-1, 18, 18, "0.999900"},
		{100, 18, 18, "1.010050"},
		{-100, 18, 18, "0.990050"},
		{200, 18, 18, "1.020200"},
		{10000, 18, 18, "2.718146"},
		{-10000, 18, 18, "0.367898"},
		{5000, 6, 6, "1.648680"},
		{-200000, 18, 6, "2063.215669"},
		{-276324, 6, 18, "0.000000"},
		{MaxTick, 18, 18, "340256786836388094050805785052946541066.751508"},
		{MinTick, 18, 18, "0.000000"},
	}

	for _, tc := range cases {
		got, err := Price(tc.tick, tc.decimalsA, tc.decimalsB)
		if err != nil {
			t.Fatalf("price(%d, %d, %d): %v", tc.tick, tc.decimalsA, tc.decimalsB, err)
		}
		if got != tc.want {
			t.Fatalf("price(%d, %d, %d) = %s, want %s", tc.tick, tc.decimalsA, tc.decimalsB, got, tc.want)
		}
	}
}

func TestPriceDeterministic(t *testing.T) {
	for _, tick := range []int32{-887272, -123457, -1, 0, 7, 98765, 887272} {
		a, err := Price(tick, 18, 6)
		if err != nil {
			t.Fatalf("price: %v", err)
		}
		b, err := Price(tick, 18, 6)
		if err != nil {
			t.Fatalf("price: %v", err)
		}
		if a != b {
			t.Fatalf("tick %d: %s != %s", tick, a, b)
		}
	}
}

func TestPriceReciprocalSymmetry(t *testing.T) {
	tolerance := decimal.New(1, -12)
	pairs := [][2]uint8{{18, 18}, {6, 18}, {18, 6}, {8, 0}}
	for _, tick := range []int32{0, 1, -1, 60, -500, 2500, -6000, 50000} {
		for _, pair := range pairs {
			a, err := PriceAt(tick, pair[0], pair[1], 30)
			if err != nil {
				t.Fatalf("price: %v", err)
			}
			b, err := PriceAt(-tick, pair[1], pair[0], 30)
			if err != nil {
				t.Fatalf("price: %v", err)
			}
			diff := a.Mul(b).Sub(decimal.NewFromInt(1)).Abs()
			if diff.GreaterThan(tolerance) {
				t.Fatalf("tick %d decimals %v: product off by %s", tick, pair, diff)
			}
		}
	}
}

func TestPriceRoundedReciprocal(t *testing.T) {
	for _, tick := range []int32{0, 1, -1, 10, 500, -2500, 6000} {
		a, err := PriceAt(tick, 18, 18, PriceScale)
		if err != nil {
			t.Fatalf("price: %v", err)
		}
		b, err := PriceAt(-tick, 18, 18, PriceScale)
		if err != nil {
			t.Fatalf("price: %v", err)
		}
		diff := a.Mul(b).Sub(decimal.NewFromInt(1)).Abs()
		if diff.GreaterThan(decimal.New(1, -5)) {
			t.Fatalf("tick %d: product off by %s", tick, diff)
		}
	}
}

func TestPriceOutOfRange(t *testing.T) {
	if _, err := Price(MaxTick+1, 18, 18); !errors.Is(err, ErrTickOutOfRange) {
		t.Fatalf("expected ErrTickOutOfRange, got %v", err)
	}
	if _, err := Price(MinTick-1, 18, 18); !errors.Is(err, ErrTickOutOfRange) {
		t.Fatalf("expected ErrTickOutOfRange, got %v", err)
	}
}

func TestRangeForOrdered(t *testing.T) {
	ticks := []int32{-887272, -300000, -60000, -100, -1, 0, 1, 99, 100, 101, 60000, 300000, 887272}
	decimals := [][2]uint8{{18, 18}, {6, 18}, {18, 6}}
	for _, invert := range []bool{false, true} {
		for _, d := range decimals {
			for i := range ticks {
				for j := i; j < len(ticks); j++ {
					r, err := RangeFor(ticks[i], ticks[j], d[0], d[1], invert)
					if err != nil {
						t.Fatalf("range: %v", err)
					}
					minPrice := decimal.RequireFromString(r.MinPrice)
					maxPrice := decimal.RequireFromString(r.MaxPrice)
					if minPrice.GreaterThan(maxPrice) {
						t.Fatalf("ticks [%d, %d] decimals %v invert %v: min %s > max %s",
							ticks[i], ticks[j], d, invert, r.MinPrice, r.MaxPrice)
					}
				}
			}
		}
	}
}

func TestRangeForInvert(t *testing.T) {
	r, err := RangeFor(-200, 100, 18, 18, true)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	// 1/1.0001^100 and 1/1.0001^-200
	if r.MinPrice != "0.990050" || r.MaxPrice != "1.020200" {
		t.Fatalf("inverted range mismatch: %+v", r)
	}
}

func TestRangeForRejectsInvertedTicks(t *testing.T) {
	if _, err := RangeFor(200, 100, 18, 18, false); !errors.Is(err, ErrInvertedRange) {
		t.Fatalf("expected ErrInvertedRange, got %v", err)
	}
}

func TestInRange(t *testing.T) {
	cases := []struct {
		current int32
		want    bool
	}{
		{150, true},
		{100, true},
		{200, true},
		{99, false},
		{201, false},
	}
	for _, tc := range cases {
		if got := InRange(tc.current, 100, 200); got != tc.want {
			t.Fatalf("InRange(%d, 100, 200) = %v, want %v", tc.current, got, tc.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		value    *big.Int
		decimals uint8
		want     string
	}{
		{nil, 18, "0"},
		{big.NewInt(0), 6, "0.000000"},
		{big.NewInt(1234567), 6, "1.234567"},
		{big.NewInt(1), 18, "0.000000000000000001"},
		{big.NewInt(42), 0, "42"},
		{new(big.Int).Mul(big.NewInt(15), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)), 18, "1.500000000000000000"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.value, tc.decimals); got != tc.want {
			t.Fatalf("FormatAmount(%v, %d) = %s, want %s", tc.value, tc.decimals, got, tc.want)
		}
	}
}
