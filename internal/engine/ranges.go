package engine

import (
	"github.com/shopspring/decimal"

	"positionScope/internal/model"
	"positionScope/internal/tickmath"
)

type rangeStrategy struct {
	name   string
	label  string
	spread decimal.Decimal
}

var rangeStrategies = []rangeStrategy{
	{name: "aggressive", label: "±10%", spread: decimal.New(10, -2)},
	{name: "balanced", label: "±20%", spread: decimal.New(20, -2)},
	{name: "conservative", label: "±50%", spread: decimal.New(50, -2)},
}

// SuggestRanges returns symmetric bands around price. A zero or negative
// price yields none.
func SuggestRanges(price decimal.Decimal) []model.RangeSuggestion {
	if !price.IsPositive() {
		return nil
	}
	one := decimal.NewFromInt(1)
	out := make([]model.RangeSuggestion, 0, len(rangeStrategies))
	for _, s := range rangeStrategies {
		out = append(out, model.RangeSuggestion{
			Strategy: s.name,
			Spread:   s.label,
			MinPrice: price.Mul(one.Sub(s.spread)).Round(tickmath.PriceScale),
			MaxPrice: price.Mul(one.Add(s.spread)).Round(tickmath.PriceScale),
		})
	}
	return out
}
