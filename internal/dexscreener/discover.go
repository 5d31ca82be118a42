package dexscreener

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"positionScope/internal/model"
)

// Default result sizes.
const (
	DefaultTopN        = 5
	DefaultSummaryTopN = 10
)

// Options controls ranking.
type Options struct {
	TopN int
	// ConcentratedOnly keeps only v3-labelled pairs, for callers that need
	// position-level detail downstream.
	ConcentratedOnly bool
}

// Discover returns the token's pools ranked by USD liquidity, descending.
// Ties keep response order. An empty result is not an error.
func (c *Client) Discover(ctx context.Context, token string, opts Options) ([]model.PoolSummary, error) {
	pairs, err := c.Pairs(ctx, token)
	if err != nil {
		return nil, err
	}
	pools := Rank(pairs, opts)
	c.logger.Debug("pools ranked",
		zap.String("token", token),
		zap.Int("pairs", len(pairs)),
		zap.Int("pools", len(pools)),
		zap.Bool("concentrated_only", opts.ConcentratedOnly),
	)
	return pools, nil
}

// Rank filters, sorts and truncates pairs.
func Rank(pairs []Pair, opts Options) []model.PoolSummary {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	pools := make([]model.PoolSummary, 0, len(pairs))
	for _, pair := range pairs {
		if opts.ConcentratedOnly && !pair.Concentrated() {
			continue
		}
		pools = append(pools, toSummary(pair))
	}

	sort.SliceStable(pools, func(i, j int) bool {
		return pools[i].LiquidityUSD.GreaterThan(pools[j].LiquidityUSD)
	})
	if len(pools) > topN {
		pools = pools[:topN]
	}
	return pools
}

func toSummary(pair Pair) model.PoolSummary {
	version := model.VersionV2
	if pair.Concentrated() {
		version = model.VersionV3
	}
	return model.PoolSummary{
		Address:  pair.PairAddress,
		Platform: pair.DexID,
		Pair:     pair.BaseToken.Symbol + "/" + pair.QuoteToken.Symbol,
		Version:  version,
		URL:      pair.URL,
		Token0: model.TokenMeta{
			Address: pair.BaseToken.Address,
			Symbol:  pair.BaseToken.Symbol,
			Name:    pair.BaseToken.Name,
		},
		Token1: model.TokenMeta{
			Address: pair.QuoteToken.Address,
			Symbol:  pair.QuoteToken.Symbol,
			Name:    pair.QuoteToken.Name,
		},
		PriceUSD:     pair.PriceUSD,
		Volume24h:    pair.VolumeH24(),
		LiquidityUSD: pair.LiquidityUSD(),
	}
}
