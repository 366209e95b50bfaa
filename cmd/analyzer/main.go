package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/cache"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/config"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/database"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/services"
)

const serviceName = "stock-predictor-analyzer"

func main() {
	tickers := flag.String("tickers", "", "comma separated tickers; defaults to configured or active tickers")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, parseTickers(*tickers)); err != nil {
		fmt.Fprintf(os.Stderr, "Analyzer failed: %v\n", err)
		os.Exit(1)
	}
}

// run performs one recompute pass over the ticker universe.
func run(ctx context.Context, tickers []string) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	logging.LogStartup(logger, serviceName, "1.0.0")
	runID := uuid.NewString()
	start := time.Now()

	db, err := database.NewPostgresConnectionWithRetry(ctx, cfg.Database, database.DefaultConnectPolicy(), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := database.NewRedisConnectionWithRetry(ctx, cfg.Redis, database.DefaultConnectPolicy(), logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	traced := database.NewTracedDB(db.Pool, logger, database.DefaultSlowQueryThreshold)
	repo := database.NewAnalysisRepository(traced, logger)
	scoreCache := cache.NewRedisScoreCache(redisClient.Client, cfg.Cache, logger)
	analysis := services.NewAnalysisService(cfg.Analysis, repo, scoreCache, logger)

	report, err := analysis.AnalyzeUniverse(ctx, tickers)
	scoreCache.LogStats()

	details := map[string]interface{}{
		"run_id":      runID,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if report != nil {
		details["analyzed"] = len(report.Results)
		details["failed"] = len(report.Failed)
	}
	logging.LogBusinessEvent(logger, "analysis_pass_completed", details)

	reason := "pass completed"
	if errors.Is(err, context.Canceled) {
		reason = "signal received"
	}
	logging.LogShutdown(logger, serviceName, reason)

	if err != nil {
		return fmt.Errorf("analysis run %s: %w", runID, err)
	}
	return nil
}

// parseTickers splits a comma separated ticker list, dropping blanks.
func parseTickers(raw string) []string {
	var tickers []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}
