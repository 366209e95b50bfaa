package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a logrus logger configured for the given level and environment.
// Development gets human-readable text output; every other environment gets JSON.
func NewLogger(logLevel string, environment string) *logrus.Logger {
	return newLogger(os.Stdout, logLevel, environment)
}

func newLogger(out io.Writer, logLevel string, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(ParseLogrusLevel(logLevel))

	if strings.EqualFold(environment, "development") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

// Discard returns a logger that drops everything. Components fall back to it
// when constructed with a nil logger.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithComponent creates a logger entry with component context
func WithComponent(logger *logrus.Logger, componentName string) *logrus.Entry {
	return OrDiscard(logger).WithField("component", componentName)
}

// WithTicker creates a logger entry with ticker context
func WithTicker(logger *logrus.Logger, ticker string) *logrus.Entry {
	return OrDiscard(logger).WithField("ticker", ticker)
}

// LogStartup logs application startup information
func LogStartup(logger *logrus.Logger, serviceName string, version string) {
	OrDiscard(logger).WithFields(logrus.Fields{
		"service": serviceName,
		"version": version,
		"event":   "startup",
	}).Info("Application startup")
}

// LogShutdown logs application shutdown information
func LogShutdown(logger *logrus.Logger, serviceName string, reason string) {
	OrDiscard(logger).WithFields(logrus.Fields{
		"service": serviceName,
		"reason":  reason,
		"event":   "shutdown",
	}).Info("Application shutdown")
}

// LogCacheOperation logs cache operations in a standardized format
func LogCacheOperation(logger *logrus.Logger, operation string, key string, hit bool, durationMs int64) {
	OrDiscard(logger).WithFields(logrus.Fields{
		"operation":   operation,
		"key":         key,
		"hit":         hit,
		"duration_ms": durationMs,
		"event":       "cache",
	}).Debug("Cache operation")
}

// LogDatabaseOperation logs database operations in a standardized format
func LogDatabaseOperation(logger *logrus.Logger, operation string, table string, durationMs int64, rowsAffected int64) {
	OrDiscard(logger).WithFields(logrus.Fields{
		"operation":     operation,
		"table":         table,
		"duration_ms":   durationMs,
		"rows_affected": rowsAffected,
		"event":         "database",
	}).Info("Database operation")
}

// LogBusinessEvent logs business events in a standardized format
func LogBusinessEvent(logger *logrus.Logger, eventType string, details map[string]interface{}) {
	OrDiscard(logger).WithFields(logrus.Fields{
		"event_type": eventType,
		"details":    details,
		"event":      "business",
	}).Info("Business event")
}
