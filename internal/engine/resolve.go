package engine

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"positionScope/internal/dex"
	"positionScope/internal/metrics"
	"positionScope/internal/model"
	"positionScope/internal/tickmath"
)

// ResolvePosition reads one position from the position manager together with
// both tokens' metadata, its owner and the pool's current tick.
//
// Every read must succeed. Any failure, including an unparsable id or a
// position that does not exist, is reported as ErrPositionLookupFailed and no
// partial detail is returned.
func (e *Engine) ResolvePosition(ctx context.Context, positionID string) (model.PositionDetail, error) {
	id := strings.TrimSpace(positionID)
	if id == "" {
		return model.PositionDetail{}, invalidInput("position id is required")
	}
	if e.chain == nil {
		return model.PositionDetail{}, lookupFailed("no chain client configured")
	}
	tokenID, ok := new(big.Int).SetString(id, 10)
	if !ok || tokenID.Sign() < 0 {
		return model.PositionDetail{}, lookupFailed("invalid position id %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	started := time.Now()
	detail, err := e.resolve(ctx, tokenID)
	if err != nil {
		metrics.ObserveUpstream(metrics.SourceChain, metrics.OutcomeUnavailable, started)
		e.logger.Warn("position lookup failed", zap.String("position", id), zap.Error(err))
		return model.PositionDetail{}, fmt.Errorf("%w: position %s: %w", ErrPositionLookupFailed, id, err)
	}
	metrics.ObserveUpstream(metrics.SourceChain, metrics.OutcomeOK, started)
	return detail, nil
}

func (e *Engine) resolve(ctx context.Context, tokenID *big.Int) (model.PositionDetail, error) {
	manager := e.cfg.PositionManager
	pos, err := dex.FetchPosition(ctx, e.chain, manager, tokenID)
	if err != nil {
		return model.PositionDetail{}, err
	}

	var (
		token0, token1 model.TokenMeta
		owner          common.Address
		pool           common.Address
		slot0          dex.Slot0
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		token0, err = dex.FetchTokenMeta(gctx, e.chain, pos.Token0, e.logger)
		return err
	})
	g.Go(func() error {
		var err error
		token1, err = dex.FetchTokenMeta(gctx, e.chain, pos.Token1, e.logger)
		return err
	})
	g.Go(func() error {
		var err error
		owner, err = dex.FetchOwner(gctx, e.chain, manager, tokenID)
		return err
	})
	g.Go(func() error {
		var err error
		pool, err = dex.FetchPoolAddress(gctx, e.chain, manager, pos.Token0, pos.Token1, pos.Fee)
		if err != nil {
			return err
		}
		slot0, err = dex.FetchSlot0(gctx, e.chain, pool)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PositionDetail{}, err
	}

	priceRange, err := tickmath.RangeFor(pos.TickLower, pos.TickUpper, token0.Decimals, token1.Decimals, e.cfg.InvertPrices)
	if err != nil {
		return model.PositionDetail{}, err
	}

	return model.PositionDetail{
		Position: model.Position{
			ID:         tokenID.String(),
			Owner:      owner.Hex(),
			TickLower:  pos.TickLower,
			TickUpper:  pos.TickUpper,
			Liquidity:  pos.Liquidity.String(),
			PriceRange: priceRange,
			InRange:    tickmath.InRange(slot0.Tick, pos.TickLower, pos.TickUpper),
		},
		Operator:    pos.Operator.Hex(),
		Pool:        pool.Hex(),
		Fee:         pos.Fee,
		CurrentTick: slot0.Tick,
		Token0:      token0,
		Token1:      token1,
		TokensOwed0: tickmath.FormatAmount(pos.TokensOwed0, token0.Decimals),
		TokensOwed1: tickmath.FormatAmount(pos.TokensOwed1, token1.Decimals),
	}, nil
}
