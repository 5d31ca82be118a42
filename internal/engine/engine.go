// Package engine aggregates liquidity positions across the pools of a token
// and resolves single positions from a position manager contract.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"positionScope/internal/dex"
	"positionScope/internal/dexscreener"
	"positionScope/internal/model"
	"positionScope/internal/subgraph"
)

// DefaultPositionManager is the PancakeSwap v3 NonfungiblePositionManager on BSC.
const DefaultPositionManager = "0x46A15B0b27311cedF172AB29E4f4766fbE7F4364"

// PoolDiscoverer ranks a token's pools. *dexscreener.Client satisfies it.
type PoolDiscoverer interface {
	Discover(ctx context.Context, token string, opts dexscreener.Options) ([]model.PoolSummary, error)
}

// PositionSource reads indexed positions for a pool. *subgraph.Client satisfies it.
type PositionSource interface {
	PoolPositions(ctx context.Context, platform, poolAddress string, first int) (subgraph.PoolPositions, error)
}

// Config holds engine limits.
type Config struct {
	TopPools       int
	TopPositions   int
	SummaryPools   int
	Concurrency    int
	RequestTimeout time.Duration
	// InvertPrices quotes ranges as token0 per token1.
	InvertPrices    bool
	PositionManager common.Address
}

// Engine wires discovery, indexing and chain reads together. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	pools     PoolDiscoverer
	positions PositionSource
	chain     dex.Caller
	cfg       Config
	logger    *zap.Logger
}

// New creates an engine. chain may be nil when single-position lookups are not needed.
func New(pools PoolDiscoverer, positions PositionSource, chain dex.Caller, cfg Config, logger *zap.Logger) *Engine {
	if cfg.TopPools <= 0 {
		cfg.TopPools = dexscreener.DefaultTopN
	}
	if cfg.TopPositions <= 0 {
		cfg.TopPositions = subgraph.DefaultFirst
	}
	if cfg.SummaryPools <= 0 {
		cfg.SummaryPools = dexscreener.DefaultSummaryTopN
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.PositionManager == (common.Address{}) {
		cfg.PositionManager = common.HexToAddress(DefaultPositionManager)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		pools:     pools,
		positions: positions,
		chain:     chain,
		cfg:       cfg,
		logger:    logger,
	}
}

// DiscoverPools returns the token's concentrated-liquidity pools, ranked and
// capped at TopPools. No pools is an empty result, not an error.
func (e *Engine) DiscoverPools(ctx context.Context, token string) ([]model.PoolSummary, error) {
	return e.discover(ctx, token, dexscreener.Options{TopN: e.cfg.TopPools, ConcentratedOnly: true})
}

// SummarizePools returns the token's most liquid pools of any version.
func (e *Engine) SummarizePools(ctx context.Context, token string) ([]model.PoolSummary, error) {
	pools, err := e.discover(ctx, token, dexscreener.Options{TopN: e.cfg.SummaryPools})
	if err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		return nil, fmt.Errorf("%w for token %s", ErrNoPoolsFound, token)
	}
	return pools, nil
}

func (e *Engine) discover(ctx context.Context, token string, opts dexscreener.Options) ([]model.PoolSummary, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalidInput("token address is required")
	}
	if e.pools == nil {
		return nil, fmt.Errorf("%w: no pool discoverer configured", ErrUpstreamUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	pools, err := e.pools.Discover(ctx, token, opts)
	if err != nil {
		return nil, classify(err)
	}
	return pools, nil
}
