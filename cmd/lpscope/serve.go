package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"positionScope/internal/api"
	"positionScope/internal/config"
)

const (
	// limiterSlack covers a DexScreener rate-limiter wait ahead of discovery.
	limiterSlack = 5 * time.Second
	writeSlack   = 5 * time.Second
)

// requestBudget is the longest an analyze request can take: discovery, then
// ceil(TopPools/Concurrency) waves of pool reads, each under RequestTimeout.
func requestBudget(cfg config.Config) time.Duration {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	waves := (cfg.TopPools + concurrency - 1) / concurrency
	if waves < 1 {
		waves = 1
	}
	return time.Duration(1+waves)*cfg.RequestTimeout + limiterSlack
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	if cfg.RPCURL == "" {
		logger.Warn("no rpc configured, position lookups will fail")
	}

	budget := requestBudget(cfg)
	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      api.NewServer(eng, budget, logger).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: budget + writeSlack,
		IdleTimeout:  60 * time.Second,
	}
	logger.Info("api request budget", zap.Duration("budget", budget), zap.Duration("write_timeout", srv.WriteTimeout))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("api shutting down")
	return srv.Shutdown(shutdownCtx)
}
