package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"positionScope/internal/subgraph"
)

type probeResult struct {
	Platform  string `json:"platform"`
	Endpoint  string `json:"endpoint"`
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func runProbe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := subgraph.NewClient(subgraph.Config{
		Endpoints: endpoints(cfg),
		Timeout:   cfg.RequestTimeout,
		Logger:    logger,
	})
	configured := client.Endpoints()
	platforms := configured.Platforms()

	results := make([]probeResult, len(platforms))
	var g errgroup.Group
	for i, platform := range platforms {
		g.Go(func() error {
			started := time.Now()
			err := client.Ping(ctx, platform)
			res := probeResult{
				Platform:  platform,
				Endpoint:  configured[platform],
				OK:        err == nil,
				LatencyMS: time.Since(started).Milliseconds(),
			}
			if err != nil {
				res.Error = err.Error()
				logger.Warn("subgraph unreachable", zap.String("platform", platform), zap.Error(err))
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := printJSON(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	for _, res := range results {
		if !res.OK {
			return fmt.Errorf("one or more subgraph endpoints unreachable")
		}
	}
	return nil
}
