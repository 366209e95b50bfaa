package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogrusLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"info", logrus.InfoLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogrusLevel(tt.input))
		})
	}
}

func TestNewLogger_ProductionUsesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "production")

	WithTicker(logger, "AAPL").Info("scored")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "AAPL", entry["ticker"])
	assert.Equal(t, "scored", entry["msg"])
}

func TestNewLogger_DevelopmentUsesText(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "development")

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	_, ok := logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))

	logger := logrus.New()
	assert.Same(t, logger, OrDiscard(logger))
}

func TestLogBusinessEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "production")

	LogBusinessEvent(logger, "correlation_recomputed", map[string]interface{}{"ticker": "MSFT", "records": 3})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "correlation_recomputed", entry["event_type"])
	assert.Equal(t, "business", entry["event"])
}

func TestLogCacheOperation_DebugOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "production")

	LogCacheOperation(logger, "get", "predictability:AAPL", true, 2)
	assert.Empty(t, buf.String())

	logger.SetLevel(logrus.DebugLevel)
	LogCacheOperation(logger, "get", "predictability:AAPL", true, 2)
	assert.Contains(t, buf.String(), "predictability:AAPL")
}
