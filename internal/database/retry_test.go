package database

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/config"
)

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:    retries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetry_RecoversAfterFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	calls := 0

	err := Retry(context.Background(), "flaky", fastPolicy(3), logger, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "Operation recovered after retry", hook.LastEntry().Message)
	assert.Equal(t, 3, hook.LastEntry().Data["attempts"])
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	logger, hook := test.NewNullLogger()
	calls := 0
	lastErr := errors.New("still down")

	err := Retry(context.Background(), "down", fastPolicy(2), logger, func() error {
		calls++
		return lastErr
	})

	assert.ErrorIs(t, err, lastErr)
	assert.Equal(t, 3, calls)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	err := Retry(ctx, "cancelled", fastPolicy(5), nil, func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRetry_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour, BackoffFactor: 2}

	err := Retry(ctx, "slow", policy, nil, func() error {
		cancel()
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultConnectPolicy(t *testing.T) {
	policy := DefaultConnectPolicy()
	assert.Equal(t, 5, policy.MaxRetries)
	assert.Greater(t, policy.MaxDelay, policy.InitialDelay)
}

func TestNewRedisConnectionWithRetry(t *testing.T) {
	s := miniredis.RunT(t)
	host, portStr, _ := strings.Cut(s.Addr(), ":")
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := NewRedisConnectionWithRetry(context.Background(), config.RedisConfig{Host: host, Port: port}, fastPolicy(1), nil)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestNewPostgresConnectionWithRetry_GivesUp(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     1,
		User:     "test",
		Password: "test",
		DBName:   "test",
		SSLMode:  "disable",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := NewPostgresConnectionWithRetry(ctx, cfg, fastPolicy(1), nil)
	assert.Error(t, err)
	assert.Nil(t, db)
}
