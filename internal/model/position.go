package model

import "github.com/shopspring/decimal"

// PriceRange holds the price bounds of a position as fixed-precision decimal strings.
type PriceRange struct {
	MinPrice string `json:"min_price"`
	MaxPrice string `json:"max_price"`
}

// Position is a normalized liquidity position. InRange is evaluated against
// the owning pool's tick at query time. Liquidity stays a base-10 string so
// uint128 values survive JSON consumers.
type Position struct {
	ID             string          `json:"id"`
	Owner          string          `json:"owner,omitempty"`
	TickLower      int32           `json:"tick_lower"`
	TickUpper      int32           `json:"tick_upper"`
	Liquidity      string          `json:"liquidity"`
	PriceRange     PriceRange      `json:"price_range"`
	InRange        bool            `json:"in_range"`
	CollectedFees0 decimal.Decimal `json:"collected_fees0"`
	CollectedFees1 decimal.Decimal `json:"collected_fees1"`
}

// PositionDetail is one position read from a position manager contract.
//
// TokensOwed0 and TokensOwed1 only include fees already checkpointed into the
// position record. Fees earned since the last checkpoint are still embedded in
// the pool's fee growth and are not part of these amounts.
type PositionDetail struct {
	Position    Position  `json:"position"`
	Operator    string    `json:"operator"`
	Pool        string    `json:"pool"`
	Fee         uint32    `json:"fee"`
	CurrentTick int32     `json:"current_tick"`
	Token0      TokenMeta `json:"token0"`
	Token1      TokenMeta `json:"token1"`
	TokensOwed0 string    `json:"tokens_owed0"`
	TokensOwed1 string    `json:"tokens_owed1"`
}
