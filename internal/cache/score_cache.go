package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/config"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
	"github.com/ElectricHyena/stock-predictor-sub000/pkg/interfaces"
)

const (
	DefaultPredictabilityTTL = 30 * time.Minute
	DefaultBacktestTTL       = time.Hour
)

// scoreCacheStats tracks cache performance metrics
type scoreCacheStats struct {
	hits   int64
	misses int64
	sets   int64
	mu     sync.RWMutex
}

// RedisScoreCache caches predictability scores and backtest results in Redis
// as JSON with per-kind TTLs. Keys are predictability:{TICKER} and
// backtest:{TICKER}:{fingerprint}, both under an optional prefix.
type RedisScoreCache struct {
	redis             *redis.Client
	predictabilityTTL time.Duration
	backtestTTL       time.Duration
	prefix            string
	stats             *scoreCacheStats
	logger            *logrus.Logger
}

var _ interfaces.ScoreCache = (*RedisScoreCache)(nil)

// NewRedisScoreCache creates a new Redis-based score cache. Zero TTLs fall
// back to 30 minutes for scores and one hour for backtests.
func NewRedisScoreCache(redisClient *redis.Client, cfg config.CacheConfig, logger *logrus.Logger) *RedisScoreCache {
	c := &RedisScoreCache{
		redis:             redisClient,
		predictabilityTTL: cfg.PredictabilityTTL,
		backtestTTL:       cfg.BacktestTTL,
		prefix:            cfg.KeyPrefix,
		stats:             &scoreCacheStats{},
		logger:            logging.OrDiscard(logger),
	}
	if c.predictabilityTTL <= 0 {
		c.predictabilityTTL = DefaultPredictabilityTTL
	}
	if c.backtestTTL <= 0 {
		c.backtestTTL = DefaultBacktestTTL
	}
	return c
}

func (c *RedisScoreCache) predictabilityKey(ticker string) string {
	return c.prefix + "predictability:" + strings.ToUpper(ticker)
}

func (c *RedisScoreCache) backtestKey(ticker, fingerprint string) string {
	return c.prefix + "backtest:" + strings.ToUpper(ticker) + ":" + fingerprint
}

// GetPredictability retrieves the cached score of a ticker.
func (c *RedisScoreCache) GetPredictability(ctx context.Context, ticker string) (*models.PredictabilityScore, bool) {
	var score models.PredictabilityScore
	if !c.get(ctx, c.predictabilityKey(ticker), &score) {
		return nil, false
	}
	return &score, true
}

// SetPredictability stores a score under its ticker.
func (c *RedisScoreCache) SetPredictability(ctx context.Context, score *models.PredictabilityScore) error {
	if score == nil {
		return errors.New("cannot cache a nil predictability score")
	}
	return c.set(ctx, c.predictabilityKey(score.Ticker), score, c.predictabilityTTL)
}

// InvalidatePredictability removes the cached score of a ticker.
func (c *RedisScoreCache) InvalidatePredictability(ctx context.Context, ticker string) error {
	key := c.predictabilityKey(ticker)
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}
	return nil
}

// GetBacktest retrieves a cached backtest result.
func (c *RedisScoreCache) GetBacktest(ctx context.Context, ticker, fingerprint string) (*models.BacktestResult, bool) {
	var result models.BacktestResult
	if !c.get(ctx, c.backtestKey(ticker, fingerprint), &result) {
		return nil, false
	}
	return &result, true
}

// SetBacktest stores a backtest result under its ticker and fingerprint.
func (c *RedisScoreCache) SetBacktest(ctx context.Context, ticker, fingerprint string, result *models.BacktestResult) error {
	if result == nil {
		return errors.New("cannot cache a nil backtest result")
	}
	return c.set(ctx, c.backtestKey(ticker, fingerprint), result, c.backtestTTL)
}

// InvalidateBacktests removes every cached backtest of a ticker.
func (c *RedisScoreCache) InvalidateBacktests(ctx context.Context, ticker string) (int, error) {
	pattern := c.backtestKey(ticker, "*")

	// Get all keys matching the pattern using SCAN for better performance
	var keys []string
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("error scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"ticker":  strings.ToUpper(ticker),
		"removed": len(keys),
	}).Debug("Invalidated cached backtests")
	return len(keys), nil
}

// GetStats returns current cache statistics
func (c *RedisScoreCache) GetStats() interfaces.ScoreCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return interfaces.ScoreCacheStats{
		Hits:   c.stats.hits,
		Misses: c.stats.misses,
		Sets:   c.stats.sets,
	}
}

// LogStats logs current cache performance statistics
func (c *RedisScoreCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}

	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"hit_rate": fmt.Sprintf("%.2f%%", hitRate),
	}).Info("Score cache stats")
}

// get decodes key into dest. Redis and decoding errors count as misses.
func (c *RedisScoreCache) get(ctx context.Context, key string, dest interface{}) bool {
	start := time.Now()
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Redis error reading cache entry")
		}
		c.recordMiss()
		logging.LogCacheOperation(c.logger, "get", key, false, time.Since(start).Milliseconds())
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.WithFields(logrus.Fields{
			"key":   key,
			"error": err.Error(),
		}).Warn("Discarding undecodable cache entry")
		c.recordMiss()
		return false
	}

	c.stats.mu.Lock()
	c.stats.hits++
	c.stats.mu.Unlock()
	logging.LogCacheOperation(c.logger, "get", key, true, time.Since(start).Milliseconds())
	return true
}

func (c *RedisScoreCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error serializing %s: %w", key, err)
	}

	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis error setting %s: %w", key, err)
	}

	c.stats.mu.Lock()
	c.stats.sets++
	c.stats.mu.Unlock()
	return nil
}

func (c *RedisScoreCache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.misses++
	c.stats.mu.Unlock()
}
