package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"positionScope/internal/metrics"
	"positionScope/internal/model"
)

type branchResult struct {
	pool model.PoolPositions
	err  error
}

// Aggregate discovers the token's pools and reads their positions
// concurrently. Output follows discovery order, not completion order.
//
// Discovery finding no pools fails with ErrNoPoolsFound. Pools whose
// positions cannot be read, or that have none, are dropped; if every pool is
// dropped the result is empty and err is nil. Cancellation of ctx fails the
// whole call with ErrUpstreamUnavailable.
func (e *Engine) Aggregate(ctx context.Context, token string) ([]model.PoolPositions, error) {
	token = strings.TrimSpace(token)
	pools, err := e.DiscoverPools(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		return nil, fmt.Errorf("%w for token %s", ErrNoPoolsFound, token)
	}

	results := make([]branchResult, len(pools))
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, pool := range pools {
		g.Go(func() error {
			res, err := e.poolPositions(ctx, pool)
			results[i] = branchResult{pool: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	// Branch deadlines collapse per pool; the caller giving up does not.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: aggregate %s: %w", ErrUpstreamUnavailable, token, err)
	}

	out := make([]model.PoolPositions, 0, len(pools))
	for i, res := range results {
		if res.err != nil {
			reason := e.collapse(pools[i], res.err)
			metrics.PoolsDroppedTotal.WithLabelValues(reason).Inc()
			continue
		}
		if len(res.pool.Positions) == 0 {
			metrics.PoolsDroppedTotal.WithLabelValues(dropEmpty).Inc()
			e.logger.Debug("pool has no positions", zap.String("pool", pools[i].Address))
			continue
		}
		out = append(out, res.pool)
	}

	e.logger.Info("aggregate complete",
		zap.String("token", token),
		zap.Int("pools_discovered", len(pools)),
		zap.Int("pools_returned", len(out)),
	)
	return out, nil
}
