package dexscreener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const samplePairs = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {
      "chainId": "bsc",
      "dexId": "pancakeswap",
      "url": "https://dexscreener.com/bsc/0xpool1",
      "pairAddress": "0xPool1",
      "labels": ["v3"],
      "baseToken": {"address": "0xaaa", "name": "Token A", "symbol": "AAA"},
      "quoteToken": {"address": "0xbbb", "name": "Wrapped BNB", "symbol": "WBNB"},
      "priceUsd": "1.25",
      "volume": {"h24": 1000.5},
      "liquidity": {"usd": 50000}
    },
    {
      "chainId": "bsc",
      "dexId": "pancakeswap",
      "url": "https://dexscreener.com/bsc/0xpool2",
      "pairAddress": "0xPool2",
      "baseToken": {"address": "0xaaa", "symbol": "AAA"},
      "quoteToken": {"address": "0xccc", "symbol": "USDT"},
      "priceUsd": "1.24",
      "volume": {"h24": 50},
      "liquidity": {"usd": 90000}
    },
    {
      "chainId": "bsc",
      "dexId": "uniswap",
      "url": "https://dexscreener.com/bsc/0xpool3",
      "pairAddress": "0xPool3",
      "labels": ["v3"],
      "baseToken": {"address": "0xaaa", "symbol": "AAA"},
      "quoteToken": {"address": "0xccc", "symbol": "USDT"},
      "priceUsd": "1.26",
      "liquidity": null
    },
    {
      "chainId": "bsc",
      "dexId": "sushiswap",
      "url": "https://dexscreener.com/bsc/0xpool4",
      "pairAddress": "0xPool4",
      "labels": ["v3"],
      "baseToken": {"address": "0xaaa", "symbol": "AAA"},
      "quoteToken": {"address": "0xddd", "symbol": "BUSD"},
      "priceUsd": "1.25",
      "liquidity": {"usd": 50000}
    }
  ]
}`

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/dex/tokens/0xtoken" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDiscoverConcentratedOnly(t *testing.T) {
	server := newTestServer(t, http.StatusOK, samplePairs)
	client := NewClient(Config{BaseURL: server.URL, Timeout: time.Second})

	pools, err := client.Discover(context.Background(), "0xtoken", Options{TopN: 5, ConcentratedOnly: true})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	want := []string{"0xPool1", "0xPool4", "0xPool3"}
	if len(pools) != len(want) {
		t.Fatalf("expected %d pools, got %d", len(want), len(pools))
	}
	for i, addr := range want {
		if pools[i].Address != addr {
			t.Fatalf("pool %d: expected %s, got %s", i, addr, pools[i].Address)
		}
	}
	if pools[0].Pair != "AAA/WBNB" || pools[0].Version != "V3" || pools[0].Platform != "pancakeswap" {
		t.Fatalf("summary mismatch: %+v", pools[0])
	}
	if pools[0].PriceUSD.String() != "1.25" || pools[0].Volume24h.String() != "1000.5" {
		t.Fatalf("decimal mismatch: %s %s", pools[0].PriceUSD, pools[0].Volume24h)
	}
	if !pools[2].LiquidityUSD.IsZero() {
		t.Fatalf("null liquidity should be zero, got %s", pools[2].LiquidityUSD)
	}
}

func TestDiscoverSummaryKeepsAllVersions(t *testing.T) {
	server := newTestServer(t, http.StatusOK, samplePairs)
	client := NewClient(Config{BaseURL: server.URL})

	pools, err := client.Discover(context.Background(), "0xtoken", Options{TopN: 2})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("expected top 2, got %d", len(pools))
	}
	if pools[0].Address != "0xPool2" || pools[0].Version != "V2" {
		t.Fatalf("expected v2 pool first, got %+v", pools[0])
	}
	if pools[1].Address != "0xPool1" {
		t.Fatalf("expected stable tie order, got %s", pools[1].Address)
	}
}

func TestDiscoverNoPairs(t *testing.T) {
	for _, body := range []string{`{"schemaVersion":"1.0.0","pairs":null}`, `{"pairs":[]}`} {
		server := newTestServer(t, http.StatusOK, body)
		client := NewClient(Config{BaseURL: server.URL})
		pools, err := client.Discover(context.Background(), "0xtoken", Options{})
		if err != nil {
			t.Fatalf("discover %s: %v", body, err)
		}
		if len(pools) != 0 {
			t.Fatalf("expected no pools for %s, got %d", body, len(pools))
		}
	}
}

func TestDiscoverErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, want: ErrUnavailable},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, want: ErrUnavailable},
		{name: "not json", status: http.StatusOK, body: `<html>`, want: ErrMalformed},
		{name: "wrong shape", status: http.StatusOK, body: `{"pairs":{"a":1}}`, want: ErrMalformed},
		{name: "missing address", status: http.StatusOK, body: `{"pairs":[{"dexId":"pancakeswap"}]}`, want: ErrMalformed},
		{name: "bad price", status: http.StatusOK, body: `{"pairs":[{"dexId":"x","pairAddress":"0x1","priceUsd":"abc"}]}`, want: ErrMalformed},
		{name: "negative liquidity", status: http.StatusOK, body: `{"pairs":[{"dexId":"x","pairAddress":"0x1","liquidity":{"usd":-5}}]}`, want: ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestServer(t, tc.status, tc.body)
			client := NewClient(Config{BaseURL: server.URL})
			_, err := client.Discover(context.Background(), "0xtoken", Options{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDiscoverTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Discover(context.Background(), "0xtoken", Options{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestDiscoverUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: url, Timeout: time.Second})
	_, err := client.Discover(context.Background(), "0xtoken", Options{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestDiscoverRejectsEmptyToken(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Discover(context.Background(), "  ", Options{}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestRankDefaultsTopN(t *testing.T) {
	pairs := make([]Pair, 0, 8)
	for i := 0; i < 8; i++ {
		pairs = append(pairs, Pair{DexID: "pancakeswap", PairAddress: string(rune('a' + i))})
	}
	pools := Rank(pairs, Options{})
	if len(pools) != DefaultTopN {
		t.Fatalf("expected %d pools, got %d", DefaultTopN, len(pools))
	}
	for i, pool := range pools {
		if pool.Address != string(rune('a'+i)) {
			t.Fatalf("tie order broken at %d: %s", i, pool.Address)
		}
	}
}
