package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"go.uber.org/zap"

	"positionScope/internal/metrics"
	"positionScope/internal/model"
	"positionScope/internal/subgraph"
	"positionScope/internal/tickmath"
)

// Reasons a pool contributes no positions.
const (
	dropUnsupported = "unsupported_platform"
	dropNotFound    = "not_found"
	dropFailed      = "failed"
	dropEmpty       = "empty"
)

// NormalizePositions reads the pool's positions from its platform's indexer
// and converts them. It never fails: unsupported platforms, unknown pools and
// upstream errors all yield an empty slice and are logged.
func (e *Engine) NormalizePositions(ctx context.Context, pool model.PoolSummary) []model.Position {
	result, err := e.poolPositions(ctx, pool)
	if err != nil {
		e.collapse(pool, err)
		return []model.Position{}
	}
	return result.Positions
}

// poolPositions is one fan-out branch. Its error is collapsed by the caller.
func (e *Engine) poolPositions(ctx context.Context, pool model.PoolSummary) (model.PoolPositions, error) {
	if e.positions == nil {
		return model.PoolPositions{}, fmt.Errorf("%w: no position source configured", subgraph.ErrUnsupportedPlatform)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	raw, err := e.positions.PoolPositions(ctx, pool.Platform, pool.Address, e.cfg.TopPositions)
	if err != nil {
		return model.PoolPositions{}, err
	}

	state := raw.Pool
	positions := make([]model.Position, 0, len(raw.Positions))
	for _, rp := range raw.Positions {
		if rp.Liquidity == nil || rp.Liquidity.Sign() <= 0 {
			continue
		}
		priceRange, err := tickmath.RangeFor(rp.TickLower, rp.TickUpper, state.Token0.Decimals, state.Token1.Decimals, e.cfg.InvertPrices)
		if err != nil {
			metrics.PositionsSkippedTotal.Inc()
			e.logger.Warn("position skipped",
				zap.String("pool", pool.Address),
				zap.String("position", rp.ID),
				zap.Int32("tick_lower", rp.TickLower),
				zap.Int32("tick_upper", rp.TickUpper),
				zap.Error(err),
			)
			continue
		}
		positions = append(positions, model.Position{
			ID:             rp.ID,
			Owner:          rp.Owner,
			TickLower:      rp.TickLower,
			TickUpper:      rp.TickUpper,
			Liquidity:      rp.Liquidity.String(),
			PriceRange:     priceRange,
			InRange:        tickmath.InRange(state.Tick, rp.TickLower, rp.TickUpper),
			CollectedFees0: rp.CollectedFees0,
			CollectedFees1: rp.CollectedFees1,
		})
	}

	sortByLiquidity(positions)
	if len(positions) > e.cfg.TopPositions {
		positions = positions[:e.cfg.TopPositions]
	}

	return model.PoolPositions{
		Pool:        pool,
		CurrentTick: state.Tick,
		FeeTier:     state.FeeTier,
		Token0:      state.Token0,
		Token1:      state.Token1,
		Ranges:      SuggestRanges(pool.PriceUSD),
		Positions:   positions,
	}, nil
}

// collapse logs a branch failure and returns the drop reason.
func (e *Engine) collapse(pool model.PoolSummary, err error) string {
	fields := []zap.Field{
		zap.String("pool", pool.Address),
		zap.String("platform", pool.Platform),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, subgraph.ErrUnsupportedPlatform):
		e.logger.Debug("platform has no position index", fields...)
		return dropUnsupported
	case errors.Is(err, subgraph.ErrPoolNotFound):
		e.logger.Info("pool not indexed", fields...)
		return dropNotFound
	default:
		e.logger.Warn("pool positions unavailable", fields...)
		return dropFailed
	}
}

// sortByLiquidity orders positions by liquidity, descending, keeping source
// order on ties.
func sortByLiquidity(positions []model.Position) {
	liquidity := make(map[string]*big.Int, len(positions))
	value := func(p model.Position) *big.Int {
		if v, ok := liquidity[p.Liquidity]; ok {
			return v
		}
		v, ok := new(big.Int).SetString(p.Liquidity, 10)
		if !ok {
			v = new(big.Int)
		}
		liquidity[p.Liquidity] = v
		return v
	}
	sort.SliceStable(positions, func(i, j int) bool {
		return value(positions[i]).Cmp(value(positions[j])) > 0
	})
}
