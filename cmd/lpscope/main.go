package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"positionScope/internal/chain"
	"positionScope/internal/config"
	"positionScope/internal/dex"
	"positionScope/internal/dexscreener"
	"positionScope/internal/engine"
	"positionScope/internal/subgraph"
)

const defaultTimeout = 10 * time.Second

func main() {
	root := &cobra.Command{
		Use:          "lpscope",
		Short:        "Concentrated-liquidity pool and position explorer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <token>",
		Short: "Rank a token's v3 pools and their top positions",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	addEngineFlags(analyzeCmd)
	analyzeCmd.Flags().String("out", "", "append the report to this JSONL file")
	analyzeCmd.Flags().String("pg-dsn", "", "Postgres DSN for report storage")
	root.AddCommand(analyzeCmd)

	poolsCmd := &cobra.Command{
		Use:   "pools <token>",
		Short: "List a token's most liquid pools of any version",
		Args:  cobra.ExactArgs(1),
		RunE:  runPools,
	}
	poolsCmd.Flags().String("dexscreener-url", dexscreener.DefaultBaseURL, "DexScreener API base URL")
	poolsCmd.Flags().Int("summary-pools", dexscreener.DefaultSummaryTopN, "pools to list")
	poolsCmd.Flags().Duration("request-timeout", defaultTimeout, "per-request timeout")
	poolsCmd.Flags().Float64("rate-limit", 5, "DexScreener requests per second (0 disables)")
	poolsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(poolsCmd)

	positionCmd := &cobra.Command{
		Use:   "position <id>",
		Short: "Resolve one position from the position manager contract",
		Args:  cobra.ExactArgs(1),
		RunE:  runPosition,
	}
	addChainFlags(positionCmd)
	positionCmd.Flags().Duration("request-timeout", defaultTimeout, "per-request timeout")
	positionCmd.Flags().Bool("invert-prices", false, "quote ranges as token0 per token1")
	positionCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(positionCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE:  runServe,
	}
	addEngineFlags(serveCmd)
	addChainFlags(serveCmd)
	serveCmd.Flags().Int("summary-pools", dexscreener.DefaultSummaryTopN, "pools listed by /api/pools")
	serveCmd.Flags().String("listen", ":8080", "listen address")
	root.AddCommand(serveCmd)

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Check every configured subgraph endpoint",
		RunE:  runProbe,
	}
	probeCmd.Flags().String("subgraph", "", "platform=url overrides (comma-separated)")
	probeCmd.Flags().Duration("request-timeout", defaultTimeout, "per-request timeout")
	probeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(probeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("dexscreener-url", dexscreener.DefaultBaseURL, "DexScreener API base URL")
	cmd.Flags().Int("top-pools", dexscreener.DefaultTopN, "pools to analyze")
	cmd.Flags().Int("top-positions", subgraph.DefaultFirst, "positions per pool")
	cmd.Flags().Int("concurrency", 4, "pools queried in parallel")
	cmd.Flags().Duration("request-timeout", defaultTimeout, "per-request timeout")
	cmd.Flags().Float64("rate-limit", 5, "DexScreener requests per second (0 disables)")
	cmd.Flags().String("subgraph", "", "platform=url overrides (comma-separated)")
	cmd.Flags().Bool("invert-prices", false, "quote ranges as token0 per token1")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "BSC RPC URL")
	cmd.Flags().String("position-manager", engine.DefaultPositionManager, "NonfungiblePositionManager address")
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// endpoints layers configured overrides onto the default subgraph map.
func endpoints(cfg config.Config) subgraph.Endpoints {
	return subgraph.DefaultEndpoints().With(cfg.Subgraphs)
}

// buildEngine wires the clients. The chain client is only dialled when an
// RPC URL is configured; the returned cleanup closes it.
func buildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*engine.Engine, func(), error) {
	pools := dexscreener.NewClient(dexscreener.Config{
		BaseURL:   cfg.DexScreenerURL,
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	})
	positions := subgraph.NewClient(subgraph.Config{
		Endpoints: endpoints(cfg),
		Timeout:   cfg.RequestTimeout,
		Logger:    logger,
	})

	if cfg.PositionManager != "" && !common.IsHexAddress(cfg.PositionManager) {
		return nil, nil, fmt.Errorf("invalid position manager address: %s", cfg.PositionManager)
	}

	cleanup := func() {}
	var caller dex.Caller
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect rpc: %w", err)
		}
		caller = chainClient
		cleanup = chainClient.Close

		if chainID, err := chainClient.GetChainID(ctx); err != nil {
			logger.Warn("rpc chain id unavailable", zap.String("rpc", cfg.RPCURL), zap.Error(err))
		} else {
			logger.Info("rpc connected", zap.String("chain_id", chainID.String()))
		}
	}

	eng := engine.New(pools, positions, caller, engine.Config{
		TopPools:        cfg.TopPools,
		TopPositions:    cfg.TopPositions,
		SummaryPools:    cfg.SummaryPools,
		Concurrency:     cfg.Concurrency,
		RequestTimeout:  cfg.RequestTimeout,
		InvertPrices:    cfg.InvertPrices,
		PositionManager: common.HexToAddress(cfg.PositionManager),
	}, logger)
	return eng, cleanup, nil
}

func printJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
