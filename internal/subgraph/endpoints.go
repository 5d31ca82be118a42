package subgraph

import (
	"sort"
	"strings"
)

// Endpoints maps a DexScreener dexId to the GraphQL endpoint indexing that
// exchange's concentrated-liquidity positions.
type Endpoints map[string]string

// DefaultEndpoints returns the BSC v3 subgraphs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		"pancakeswap": "https://api.thegraph.com/subgraphs/name/pancakeswap/exchange-v3-bsc",
		"uniswap":     "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v3-bsc",
		"sushiswap":   "https://api.thegraph.com/subgraphs/name/sushi-v3/v3-bsc",
	}
}

// Lookup resolves a platform, ignoring case and surrounding space.
func (e Endpoints) Lookup(platform string) (string, bool) {
	url, ok := e[strings.ToLower(strings.TrimSpace(platform))]
	if !ok || url == "" {
		return "", false
	}
	return url, true
}

// Platforms returns the configured platforms in sorted order.
func (e Endpoints) Platforms() []string {
	out := make([]string, 0, len(e))
	for platform := range e {
		out = append(out, platform)
	}
	sort.Strings(out)
	return out
}

// With returns a normalized copy of e with overrides layered on top.
func (e Endpoints) With(overrides map[string]string) Endpoints {
	out := e.normalized()
	for platform, url := range Endpoints(overrides).normalized() {
		out[platform] = url
	}
	return out
}

func (e Endpoints) normalized() Endpoints {
	out := make(Endpoints, len(e))
	for platform, url := range e {
		key := strings.ToLower(strings.TrimSpace(platform))
		url = strings.TrimSpace(url)
		if key == "" || url == "" {
			continue
		}
		out[key] = url
	}
	return out
}
