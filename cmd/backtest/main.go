package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/cache"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/config"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/database"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/services"
)

const serviceName = "stock-predictor-backtest"

// options holds the raw command line values.
type options struct {
	strategyPath string
	ticker       string
	from         string
	to           string
	capital      string
	commission   float64
	slippage     float64
	// set reports which flags were given explicitly
	set map[string]bool
}

func main() {
	opts := options{}
	flag.StringVar(&opts.strategyPath, "strategy", "", "path to a strategy JSON document (required)")
	flag.StringVar(&opts.ticker, "ticker", "", "ticker to simulate (required)")
	flag.StringVar(&opts.from, "from", "", "first day, YYYY-MM-DD")
	flag.StringVar(&opts.to, "to", "", "last day, YYYY-MM-DD")
	flag.StringVar(&opts.capital, "capital", "", "initial capital; defaults to configuration")
	flag.Float64Var(&opts.commission, "commission", 0, "commission percent per fill")
	flag.Float64Var(&opts.slippage, "slippage", 0, "slippage percent per fill")
	flag.Parse()

	opts.set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Backtest failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	job, err := buildJob(opts)
	if err != nil {
		return err
	}

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Logs go to stderr so stdout carries only the result.
	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	logger.SetOutput(os.Stderr)
	logging.LogStartup(logger, serviceName, "1.0.0")
	defer logging.LogShutdown(logger, serviceName, "run finished")

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
	engine := services.NewBacktestEngine(cfg.Backtest, logger)
	backtests := services.NewBacktestService(engine, analysis, repo, scoreCache, logger)

	result, err := backtests.Run(ctx, job)
	if err != nil {
		return err
	}
	logging.WithComponent(logger, "backtest").WithFields(logrus.Fields{
		"run_id":       result.RunID,
		"ticker":       result.Ticker,
		"total_trades": result.TotalTrades,
		"total_return": result.TotalReturn,
	}).Info("Backtest finished")
	return writeResult(out, result)
}

// buildJob turns command line options into a backtest job.
func buildJob(opts options) (services.BacktestJob, error) {
	var job services.BacktestJob
	if opts.strategyPath == "" {
		return job, errors.New("-strategy is required")
	}
	if opts.ticker == "" {
		return job, errors.New("-ticker is required")
	}

	strategy, err := loadStrategy(opts.strategyPath)
	if err != nil {
		return job, err
	}
	job.Ticker = opts.ticker
	job.Strategy = *strategy

	if job.From, err = parseDay("from", opts.from); err != nil {
		return job, err
	}
	if job.To, err = parseDay("to", opts.to); err != nil {
		return job, err
	}
	if opts.capital != "" {
		if job.InitialCapital, err = decimal.NewFromString(opts.capital); err != nil {
			return job, fmt.Errorf("invalid -capital %q: %w", opts.capital, err)
		}
	}
	if opts.set["commission"] {
		commission := opts.commission
		job.CommissionPct = &commission
	}
	if opts.set["slippage"] {
		slippage := opts.slippage
		job.SlippagePct = &slippage
	}
	return job, nil
}

func loadStrategy(path string) (*models.Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy: %w", err)
	}
	var strategy models.Strategy
	if err := json.Unmarshal(data, &strategy); err != nil {
		return nil, fmt.Errorf("failed to parse strategy %s: %w", path, err)
	}
	return &strategy, nil
}

func parseDay(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -%s %q: %w", name, value, err)
	}
	return day, nil
}

func writeResult(out io.Writer, result *models.BacktestResult) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
