package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
)

// DefaultSlowQueryThreshold is the duration above which statements are logged at Warn.
const DefaultSlowQueryThreshold = 500 * time.Millisecond

// TracedDB wraps a pool and logs statement durations.
type TracedDB struct {
	pool          DatabasePool
	logger        *logrus.Logger
	slowThreshold time.Duration
}

// NewTracedDB creates a traced wrapper around pool. A non-positive
// threshold uses DefaultSlowQueryThreshold.
func NewTracedDB(pool DatabasePool, logger *logrus.Logger, slowThreshold time.Duration) *TracedDB {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowQueryThreshold
	}
	return &TracedDB{
		pool:          pool,
		logger:        logging.OrDiscard(logger),
		slowThreshold: slowThreshold,
	}
}

var _ DatabasePool = (*TracedDB)(nil)

// Query executes a query and logs its duration.
func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	start := time.Now()
	rows, err := db.pool.Query(ctx, sql, args...)
	db.trace("query", sql, time.Since(start), -1, err)
	return rows, err
}

// QueryRow executes a query that returns a single row. Scan errors surface
// to the caller, so only the dispatch time is logged.
func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	start := time.Now()
	row := db.pool.QueryRow(ctx, sql, args...)
	db.trace("query_row", sql, time.Since(start), -1, nil)
	return row
}

// Exec executes a statement and logs its duration and affected rows.
func (db *TracedDB) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := db.pool.Exec(ctx, sql, arguments...)
	db.trace("exec", sql, time.Since(start), tag.RowsAffected(), err)
	return tag, err
}

// Begin starts a transaction.
func (db *TracedDB) Begin(ctx context.Context) (pgx.Tx, error) {
	start := time.Now()
	tx, err := db.pool.Begin(ctx)
	db.trace("begin", "BEGIN", time.Since(start), -1, err)
	return tx, err
}

func (db *TracedDB) trace(op, sql string, elapsed time.Duration, rows int64, err error) {
	fields := logrus.Fields{
		"operation":   op,
		"statement":   statementSummary(sql),
		"duration_ms": elapsed.Milliseconds(),
	}
	if rows >= 0 {
		fields["rows_affected"] = rows
	}

	entry := db.logger.WithFields(fields)
	switch {
	case err != nil:
		entry.WithError(err).Error("Database statement failed")
	case elapsed >= db.slowThreshold:
		entry.Warn("Slow database statement")
	default:
		entry.Debug("Database statement")
	}
}

// statementSummary collapses whitespace and truncates long statements.
func statementSummary(sql string) string {
	const maxLen = 120
	out := make([]byte, 0, len(sql))
	space := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			space = len(out) > 0
			continue
		}
		if space {
			out = append(out, ' ')
			space = false
		}
		out = append(out, c)
	}
	if len(out) > maxLen {
		return string(out[:maxLen]) + "..."
	}
	return string(out)
}
