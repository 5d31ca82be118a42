package model

import "github.com/shopspring/decimal"

// Pool version labels.
const (
	VersionV3 = "V3"
	VersionV2 = "V2"
)

// TokenMeta captures ERC20 metadata. Decimals is zero when the source does not report it.
type TokenMeta struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	Name     string `json:"name,omitempty"`
}

// PoolSummary is a pool as quoted by the market-data aggregator.
//
// Token0 and Token1 follow the aggregator's base/quote order, which is not
// necessarily the pool contract's token0/token1 order. Decimals are not
// reported by the aggregator and stay zero here.
type PoolSummary struct {
	Address      string          `json:"address"`
	Platform     string          `json:"platform"`
	Pair         string          `json:"pair"`
	Version      string          `json:"version"`
	URL          string          `json:"url,omitempty"`
	Token0       TokenMeta       `json:"token0"`
	Token1       TokenMeta       `json:"token1"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
	LiquidityUSD decimal.Decimal `json:"liquidity_usd"`
}

// Concentrated reports whether the pool is a concentrated-liquidity pool.
func (p PoolSummary) Concentrated() bool {
	return p.Version == VersionV3
}

// PoolPositions pairs a discovered pool with the positions read from its
// indexing service. Token0/Token1 here are in pool contract order with the
// decimals reported by the indexer; prices in Positions use that order.
type PoolPositions struct {
	Pool        PoolSummary       `json:"pool"`
	CurrentTick int32             `json:"current_tick"`
	FeeTier     uint32            `json:"fee_tier"`
	Token0      TokenMeta         `json:"token0"`
	Token1      TokenMeta         `json:"token1"`
	Ranges      []RangeSuggestion `json:"ranges,omitempty"`
	Positions   []Position        `json:"positions"`
}

// RangeSuggestion is a symmetric price band around the quoted USD price.
type RangeSuggestion struct {
	Strategy string          `json:"strategy"`
	Spread   string          `json:"spread"`
	MinPrice decimal.Decimal `json:"min_price"`
	MaxPrice decimal.Decimal `json:"max_price"`
}
