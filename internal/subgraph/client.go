// Package subgraph reads pool state and liquidity positions from v3
// exchange subgraphs over GraphQL.
package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"positionScope/internal/metrics"
	"positionScope/internal/model"
)

// DefaultFirst is how many positions are requested per pool.
const DefaultFirst = 10

var (
	// ErrUnsupportedPlatform means no endpoint is configured for the platform.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrPoolNotFound means the subgraph has no record of the pool.
	ErrPoolNotFound = errors.New("pool not found in subgraph")
	// ErrUnavailable covers network failures, timeouts, non-2xx responses and GraphQL errors.
	ErrUnavailable = errors.New("subgraph unavailable")
	// ErrMalformed covers responses that do not match the expected schema.
	ErrMalformed = errors.New("subgraph response malformed")
)

const poolPositionsQuery = `query PoolPositions($pool: String!, $first: Int!) {
  pool(id: $pool) {
    tick
    feeTier
    token0 { id symbol decimals }
    token1 { id symbol decimals }
  }
  positions(
    first: $first
    where: { pool: $pool, liquidity_gt: 0 }
    orderBy: liquidity
    orderDirection: desc
  ) {
    id
    owner
    tickLower { tickIdx }
    tickUpper { tickIdx }
    liquidity
    collectedFeesToken0
    collectedFeesToken1
  }
}`

const pingQuery = `{ pools(first: 1) { id } }`

// Config controls the GraphQL client.
type Config struct {
	Endpoints Endpoints
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Client queries subgraphs by platform. The endpoint map is fixed at
// construction and only read afterwards.
type Client struct {
	http      *resty.Client
	endpoints Endpoints
	logger    *zap.Logger
}

// PoolState is the pool-level part of a positions query.
type PoolState struct {
	Tick    int32
	FeeTier uint32
	Token0  model.TokenMeta
	Token1  model.TokenMeta
}

// RawPosition is a position as indexed, before price conversion.
type RawPosition struct {
	ID             string
	Owner          string
	TickLower      int32
	TickUpper      int32
	Liquidity      *big.Int
	CollectedFees0 decimal.Decimal
	CollectedFees1 decimal.Decimal
}

// PoolPositions is the decoded result of one positions query.
type PoolPositions struct {
	Pool      PoolState
	Positions []RawPosition
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// NewClient builds a client from cfg. A nil endpoint map uses DefaultEndpoints.
func NewClient(cfg Config) *Client {
	endpoints := cfg.Endpoints
	if endpoints == nil {
		endpoints = DefaultEndpoints()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:      httpClient,
		endpoints: endpoints.normalized(),
		logger:    logger,
	}
}

// Endpoints returns a copy of the configured endpoint map.
func (c *Client) Endpoints() Endpoints {
	out := make(Endpoints, len(c.endpoints))
	for k, v := range c.endpoints {
		out[k] = v
	}
	return out
}

// Supports reports whether platform has a configured endpoint.
func (c *Client) Supports(platform string) bool {
	_, ok := c.endpoints.Lookup(platform)
	return ok
}

// PoolPositions fetches the pool's current state and its top positions by
// liquidity. The pool address is lower-cased before querying.
func (c *Client) PoolPositions(ctx context.Context, platform, poolAddress string, first int) (PoolPositions, error) {
	endpoint, ok := c.endpoints.Lookup(platform)
	if !ok {
		return PoolPositions{}, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
	if first <= 0 {
		first = DefaultFirst
	}

	started := time.Now()
	data, err := c.do(ctx, endpoint, graphQLRequest{
		Query: poolPositionsQuery,
		Variables: map[string]interface{}{
			"pool":  strings.ToLower(strings.TrimSpace(poolAddress)),
			"first": first,
		},
	})
	if err != nil {
		metrics.ObserveUpstream(metrics.SourceSubgraph, outcomeOf(err), started)
		return PoolPositions{}, err
	}

	result, err := decodePoolPositions(data)
	metrics.ObserveUpstream(metrics.SourceSubgraph, outcomeOf(err), started)
	if err != nil {
		return PoolPositions{}, err
	}
	c.logger.Debug("subgraph positions fetched",
		zap.String("platform", platform),
		zap.String("pool", poolAddress),
		zap.Int("positions", len(result.Positions)),
	)
	return result, nil
}

// Ping issues a minimal query against platform's endpoint.
func (c *Client) Ping(ctx context.Context, platform string) error {
	endpoint, ok := c.endpoints.Lookup(platform)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
	started := time.Now()
	data, err := c.do(ctx, endpoint, graphQLRequest{Query: pingQuery})
	if err == nil {
		var payload struct {
			Pools []struct {
				ID string `json:"id"`
			} `json:"pools"`
		}
		if decodeErr := json.Unmarshal(data, &payload); decodeErr != nil {
			err = fmt.Errorf("%w: %v", ErrMalformed, decodeErr)
		}
	}
	metrics.ObserveUpstream(metrics.SourceSubgraph, outcomeOf(err), started)
	return err
}

func (c *Client) do(ctx context.Context, endpoint string, req graphQLRequest) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}

	var payload graphQLResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(payload.Errors) > 0 {
		messages := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			messages = append(messages, e.Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, strings.Join(messages, "; "))
	}
	if len(payload.Data) == 0 || string(payload.Data) == "null" {
		return nil, fmt.Errorf("%w: missing data", ErrMalformed)
	}
	return payload.Data, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrPoolNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrMalformed):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeUnavailable
	}
}

// number is a GraphQL BigInt/BigDecimal scalar; subgraphs send these quoted.
type number string

func (n *number) UnmarshalJSON(b []byte) error {
	text := string(b)
	if text == "null" {
		*n = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	*n = number(strings.TrimSpace(text))
	return nil
}

type wireToken struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals number `json:"decimals"`
}

type wireTick struct {
	TickIdx number `json:"tickIdx"`
}

type wirePosition struct {
	ID                  string    `json:"id"`
	Owner               string    `json:"owner"`
	TickLower           *wireTick `json:"tickLower"`
	TickUpper           *wireTick `json:"tickUpper"`
	Liquidity           number    `json:"liquidity"`
	CollectedFeesToken0 number    `json:"collectedFeesToken0"`
	CollectedFeesToken1 number    `json:"collectedFeesToken1"`
}

type wirePool struct {
	Tick    number     `json:"tick"`
	FeeTier number     `json:"feeTier"`
	Token0  *wireToken `json:"token0"`
	Token1  *wireToken `json:"token1"`
}

type wirePoolPositions struct {
	Pool      *wirePool      `json:"pool"`
	Positions []wirePosition `json:"positions"`
}

func decodePoolPositions(data json.RawMessage) (PoolPositions, error) {
	var payload wirePoolPositions
	if err := json.Unmarshal(data, &payload); err != nil {
		return PoolPositions{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Pool == nil {
		return PoolPositions{}, ErrPoolNotFound
	}

	state, err := payload.Pool.state()
	if err != nil {
		return PoolPositions{}, fmt.Errorf("%w: pool: %v", ErrMalformed, err)
	}

	positions := make([]RawPosition, 0, len(payload.Positions))
	for i, wire := range payload.Positions {
		pos, err := wire.position()
		if err != nil {
			return PoolPositions{}, fmt.Errorf("%w: position %d: %v", ErrMalformed, i, err)
		}
		positions = append(positions, pos)
	}
	return PoolPositions{Pool: state, Positions: positions}, nil
}

func (p wirePool) state() (PoolState, error) {
	if p.Token0 == nil || p.Token1 == nil {
		return PoolState{}, errors.New("missing token")
	}
	tick, err := parseTick(p.Tick)
	if err != nil {
		return PoolState{}, fmt.Errorf("tick: %w", err)
	}
	var feeTier uint32
	if p.FeeTier != "" {
		fee, err := strconv.ParseUint(string(p.FeeTier), 10, 32)
		if err != nil {
			return PoolState{}, fmt.Errorf("feeTier: %w", err)
		}
		feeTier = uint32(fee)
	}
	token0, err := p.Token0.meta()
	if err != nil {
		return PoolState{}, fmt.Errorf("token0: %w", err)
	}
	token1, err := p.Token1.meta()
	if err != nil {
		return PoolState{}, fmt.Errorf("token1: %w", err)
	}
	return PoolState{Tick: tick, FeeTier: feeTier, Token0: token0, Token1: token1}, nil
}

func (t wireToken) meta() (model.TokenMeta, error) {
	decimals, err := strconv.ParseUint(string(t.Decimals), 10, 8)
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("decimals %q: %w", t.Decimals, err)
	}
	return model.TokenMeta{Address: t.ID, Symbol: t.Symbol, Decimals: uint8(decimals)}, nil
}

func (w wirePosition) position() (RawPosition, error) {
	if w.ID == "" {
		return RawPosition{}, errors.New("missing id")
	}
	if w.TickLower == nil || w.TickUpper == nil {
		return RawPosition{}, errors.New("missing tick bounds")
	}
	lower, err := parseTick(w.TickLower.TickIdx)
	if err != nil {
		return RawPosition{}, fmt.Errorf("tickLower: %w", err)
	}
	upper, err := parseTick(w.TickUpper.TickIdx)
	if err != nil {
		return RawPosition{}, fmt.Errorf("tickUpper: %w", err)
	}
	liquidity, ok := new(big.Int).SetString(string(w.Liquidity), 10)
	if !ok || liquidity.Sign() < 0 {
		return RawPosition{}, fmt.Errorf("liquidity %q", w.Liquidity)
	}
	fees0, err := parseFees(w.CollectedFeesToken0)
	if err != nil {
		return RawPosition{}, fmt.Errorf("collectedFeesToken0: %w", err)
	}
	fees1, err := parseFees(w.CollectedFeesToken1)
	if err != nil {
		return RawPosition{}, fmt.Errorf("collectedFeesToken1: %w", err)
	}
	return RawPosition{
		ID:             w.ID,
		Owner:          w.Owner,
		TickLower:      lower,
		TickUpper:      upper,
		Liquidity:      liquidity,
		CollectedFees0: fees0,
		CollectedFees1: fees1,
	}, nil
}

func parseTick(n number) (int32, error) {
	if n == "" {
		return 0, errors.New("missing")
	}
	v, err := strconv.ParseInt(string(n), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

func parseFees(n number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero, err
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative %s", v)
	}
	return v, nil
}
