package database

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTracedDB(t *testing.T, threshold time.Duration) (*TracedDB, pgxmock.PgxPoolIface, *test.Hook) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewTracedDB(mockPool, logger, threshold), mockPool, hook
}

func TestTracedDB_ExecLogsRowsAffected(t *testing.T) {
	db, mockPool, hook := setupTracedDB(t, time.Hour)

	mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM correlation_records")).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	tag, err := db.Exec(context.Background(), "DELETE FROM correlation_records\n\t\tWHERE ticker = $1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(3), tag.RowsAffected())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "exec", entry.Data["operation"])
	assert.Equal(t, int64(3), entry.Data["rows_affected"])
	assert.Equal(t, "DELETE FROM correlation_records WHERE ticker = $1", entry.Data["statement"])
}

func TestTracedDB_QueryErrorLoggedAtError(t *testing.T) {
	db, mockPool, hook := setupTracedDB(t, time.Hour)

	mockPool.ExpectQuery(regexp.QuoteMeta("SELECT symbol")).WillReturnError(assert.AnError)

	_, err := db.Query(context.Background(), "SELECT symbol FROM tickers")
	assert.ErrorIs(t, err, assert.AnError)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "Database statement failed", entry.Message)
}

func TestTracedDB_SlowStatementWarns(t *testing.T) {
	db, mockPool, hook := setupTracedDB(t, time.Millisecond)

	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1)).
		WillDelayFor(5 * time.Millisecond)

	_, err := db.Exec(context.Background(), "INSERT INTO events VALUES ($1)", "x")
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
}

func TestTracedDB_WrapsRepositoryTransactions(t *testing.T) {
	db, mockPool, hook := setupTracedDB(t, time.Hour)
	repo := NewAnalysisRepository(db, nil)

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()

	err := repo.UpsertEvents(context.Background(), sampleEvents())
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())

	// Statements inside the transaction run on the tx, so only BEGIN is traced.
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "begin", hook.LastEntry().Data["operation"])
}

func TestNewTracedDB_DefaultThreshold(t *testing.T) {
	db := NewTracedDB(nil, nil, 0)
	assert.Equal(t, DefaultSlowQueryThreshold, db.slowThreshold)
}

func TestStatementSummary(t *testing.T) {
	assert.Equal(t, "SELECT 1", statementSummary("\n\t  SELECT   1 \n"))

	long := "SELECT " + strings.Repeat("x", 200)
	summary := statementSummary(long)
	assert.Len(t, summary, 123)
	assert.True(t, strings.HasSuffix(summary, "..."))
}
