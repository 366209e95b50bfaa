package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/config"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
)

// RetryPolicy defines retry behavior for failed operations
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultConnectPolicy is used when opening Postgres and Redis connections.
func DefaultConnectPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retry runs operation until it succeeds, the policy is exhausted or ctx is
// done. The last operation error is returned.
func Retry(ctx context.Context, operationName string, policy RetryPolicy, logger *logrus.Logger, operation func() error) error {
	logger = logging.OrDiscard(logger)
	start := time.Now()
	delay := policy.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			if attempt > 0 {
				logger.WithFields(logrus.Fields{
					"operation": operationName,
					"attempts":  attempt + 1,
					"duration":  time.Since(start),
				}).Info("Operation recovered after retry")
			}
			return nil
		}
		lastErr = err

		// Don't retry on last attempt
		if attempt == policy.MaxRetries {
			break
		}

		logger.WithFields(logrus.Fields{
			"operation": operationName,
			"attempt":   attempt + 1,
			"error":     err.Error(),
			"delay":     delay,
		}).Warn("Operation failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * policy.BackoffFactor)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	logger.WithFields(logrus.Fields{
		"operation": operationName,
		"attempts":  policy.MaxRetries + 1,
		"duration":  time.Since(start),
		"error":     lastErr.Error(),
	}).Error("Operation failed after all retries")
	return lastErr
}

// NewPostgresConnectionWithRetry opens the pool, retrying while the database
// is unreachable.
func NewPostgresConnectionWithRetry(ctx context.Context, cfg config.DatabaseConfig, policy RetryPolicy, logger *logrus.Logger) (*PostgresDB, error) {
	var db *PostgresDB
	err := Retry(ctx, "postgres_connect", policy, logger, func() error {
		var connErr error
		db, connErr = NewPostgresConnection(ctx, cfg, logger)
		return connErr
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewRedisConnectionWithRetry opens the client, retrying while Redis is unreachable.
func NewRedisConnectionWithRetry(ctx context.Context, cfg config.RedisConfig, policy RetryPolicy, logger *logrus.Logger) (*RedisClient, error) {
	var client *RedisClient
	err := Retry(ctx, "redis_connect", policy, logger, func() error {
		var connErr error
		client, connErr = NewRedisConnection(cfg, logger)
		return connErr
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
