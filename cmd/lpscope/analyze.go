package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"positionScope/internal/model"
	"positionScope/internal/storage"
	"positionScope/internal/storage/postgres"
)

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var sinks storage.MultiSink
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlSink(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	token := strings.TrimSpace(args[0])
	logger.Info("analyze start",
		zap.String("token", token),
		zap.Int("top_pools", cfg.TopPools),
		zap.Int("top_positions", cfg.TopPositions),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Bool("invert_prices", cfg.InvertPrices),
	)

	pools, err := eng.Aggregate(ctx, token)
	if err != nil {
		return err
	}
	if pools == nil {
		pools = []model.PoolPositions{}
	}

	report := model.Report{
		RunID:       uuid.NewString(),
		Token:       token,
		GeneratedAt: time.Now().UTC(),
		Pools:       pools,
	}
	if len(sinks) > 0 {
		if err := sinks.PutReport(ctx, report); err != nil {
			return fmt.Errorf("store report: %w", err)
		}
		logger.Info("report stored", zap.String("run_id", report.RunID), zap.Int("sinks", len(sinks)))
	}

	return printJSON(cmd.OutOrStdout(), report)
}
