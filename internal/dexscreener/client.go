// Package dexscreener queries the DexScreener market-data API and ranks the
// pools it reports for a token.
package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"positionScope/internal/metrics"
)

// DefaultBaseURL is the public DexScreener API.
const DefaultBaseURL = "https://api.dexscreener.com"

var (
	// ErrInvalidToken is returned for an empty token address.
	ErrInvalidToken = errors.New("token address is required")
	// ErrUnavailable covers network failures, timeouts and non-2xx responses.
	ErrUnavailable = errors.New("dexscreener unavailable")
	// ErrMalformed covers bodies that do not match the pair schema.
	ErrMalformed = errors.New("dexscreener response malformed")
)

// Config controls the HTTP client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is requests per second; zero or less disables limiting.
	RateLimit float64
	Logger    *zap.Logger
}

// Client is a DexScreener API client. It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Token is a base or quote token as reported by DexScreener.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Volume holds rolling volume windows in USD.
type Volume struct {
	H24 decimal.Decimal `json:"h24"`
}

// Liquidity holds pool liquidity figures.
type Liquidity struct {
	USD decimal.Decimal `json:"usd"`
}

// Pair is one pool descriptor. Numeric fields accept JSON numbers, quoted
// numbers and null.
type Pair struct {
	ChainID     string          `json:"chainId"`
	DexID       string          `json:"dexId"`
	URL         string          `json:"url"`
	PairAddress string          `json:"pairAddress"`
	Labels      []string        `json:"labels"`
	BaseToken   Token           `json:"baseToken"`
	QuoteToken  Token           `json:"quoteToken"`
	PriceUSD    decimal.Decimal `json:"priceUsd"`
	Volume      *Volume         `json:"volume"`
	Liquidity   *Liquidity      `json:"liquidity"`
}

type pairsResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// NewClient builds a client from cfg, filling defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{http: httpClient, limiter: limiter, logger: logger}
}

// Pairs fetches every pair DexScreener lists for token. A response without
// pairs yields an empty slice and no error.
func (c *Client) Pairs(ctx context.Context, token string) ([]Pair, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
		}
	}

	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("token", token).
		Get("/latest/dex/tokens/{token}")
	if err != nil {
		metrics.ObserveUpstream(metrics.SourceDexScreener, metrics.OutcomeUnavailable, started)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !resp.IsSuccess() {
		metrics.ObserveUpstream(metrics.SourceDexScreener, metrics.OutcomeUnavailable, started)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}

	pairs, err := decodePairs(resp.Body())
	if err != nil {
		metrics.ObserveUpstream(metrics.SourceDexScreener, metrics.OutcomeMalformed, started)
		return nil, err
	}
	metrics.ObserveUpstream(metrics.SourceDexScreener, metrics.OutcomeOK, started)
	c.logger.Debug("dexscreener pairs fetched", zap.String("token", token), zap.Int("pairs", len(pairs)))
	return pairs, nil
}

func decodePairs(body []byte) ([]Pair, error) {
	var payload pairsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i, pair := range payload.Pairs {
		if err := pair.validate(); err != nil {
			return nil, fmt.Errorf("%w: pair %d: %v", ErrMalformed, i, err)
		}
	}
	if payload.Pairs == nil {
		return []Pair{}, nil
	}
	return payload.Pairs, nil
}

func (p Pair) validate() error {
	if strings.TrimSpace(p.PairAddress) == "" {
		return errors.New("missing pairAddress")
	}
	if strings.TrimSpace(p.DexID) == "" {
		return errors.New("missing dexId")
	}
	if p.PriceUSD.IsNegative() {
		return fmt.Errorf("negative priceUsd %s", p.PriceUSD)
	}
	if p.VolumeH24().IsNegative() {
		return fmt.Errorf("negative volume %s", p.VolumeH24())
	}
	if p.LiquidityUSD().IsNegative() {
		return fmt.Errorf("negative liquidity %s", p.LiquidityUSD())
	}
	return nil
}

// VolumeH24 returns the 24h volume, zero when absent.
func (p Pair) VolumeH24() decimal.Decimal {
	if p.Volume == nil {
		return decimal.Zero
	}
	return p.Volume.H24
}

// LiquidityUSD returns the USD liquidity, zero when absent.
func (p Pair) LiquidityUSD() decimal.Decimal {
	if p.Liquidity == nil {
		return decimal.Zero
	}
	return p.Liquidity.USD
}

// Concentrated reports whether the pair carries the v3 label.
func (p Pair) Concentrated() bool {
	for _, label := range p.Labels {
		if strings.EqualFold(label, "v3") {
			return true
		}
	}
	return false
}
