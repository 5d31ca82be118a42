package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"positionScope/internal/dexscreener"
	"positionScope/internal/engine"
)

// EnvPrefix is prepended to every environment variable, e.g. LPSCOPE_RPC.
const EnvPrefix = "LPSCOPE"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	DexScreenerURL  string
	TopPools        int
	TopPositions    int
	SummaryPools    int
	Concurrency     int
	RequestTimeout  time.Duration
	RateLimit       float64
	Subgraphs       map[string]string
	InvertPrices    bool
	RPCURL          string
	PositionManager string
	Out             string
	PGDSN           string
	Listen          string
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
// Keys not bound to a flag on the current command still resolve from the
// file, the environment, or their defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("dexscreener-url", dexscreener.DefaultBaseURL)
	v.SetDefault("top-pools", 5)
	v.SetDefault("top-positions", 10)
	v.SetDefault("summary-pools", 10)
	v.SetDefault("concurrency", 4)
	v.SetDefault("request-timeout", 10*time.Second)
	v.SetDefault("rate-limit", 5.0)
	v.SetDefault("invert-prices", false)
	v.SetDefault("position-manager", engine.DefaultPositionManager)
	v.SetDefault("listen", ":8080")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		DexScreenerURL:  v.GetString("dexscreener-url"),
		TopPools:        v.GetInt("top-pools"),
		TopPositions:    v.GetInt("top-positions"),
		SummaryPools:    v.GetInt("summary-pools"),
		Concurrency:     v.GetInt("concurrency"),
		RequestTimeout:  v.GetDuration("request-timeout"),
		RateLimit:       v.GetFloat64("rate-limit"),
		Subgraphs:       getStringMap(v, "subgraph"),
		InvertPrices:    v.GetBool("invert-prices"),
		RPCURL:          v.GetString("rpc"),
		PositionManager: v.GetString("position-manager"),
		Out:             v.GetString("out"),
		PGDSN:           v.GetString("pg-dsn"),
		Listen:          v.GetString("listen"),
		LogLevel:        v.GetString("log-level"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if c.TopPools <= 0 {
		return fmt.Errorf("top-pools must be positive, got %d", c.TopPools)
	}
	if c.TopPositions <= 0 {
		return fmt.Errorf("top-positions must be positive, got %d", c.TopPositions)
	}
	if c.SummaryPools <= 0 {
		return fmt.Errorf("summary-pools must be positive, got %d", c.SummaryPools)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request-timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate-limit must not be negative, got %v", c.RateLimit)
	}
	return nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
