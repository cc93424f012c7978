package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"eof", io.EOF, true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"broken pipe", syscall.EPIPE, true},
		{"pg connection exception", &pq.Error{Code: "08006"}, true},
		{"pg admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"pg cannot connect now", &pq.Error{Code: "57P03"}, true},
		{"pg unique violation", &pq.Error{Code: "23505"}, false},
		{"plain error", errors.New("some query error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}

func TestWithRetryStopsOnDeterministicError(t *testing.T) {
	calls := 0
	wantErr := errors.New("constraint violated")

	err := WithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesTransientErrors(t *testing.T) {
	calls := 0

	err := WithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		return driver.ErrBadConn
	})

	assert.ErrorIs(t, err, driver.ErrBadConn)
	assert.Equal(t, 3, calls)
}

func TestWithRetryRecovers(t *testing.T) {
	calls := 0

	err := WithRetry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return io.EOF
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { conn.Close() })
	return conn, mock
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	conn, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE things").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithTx(context.Background(), conn, func(tx *sqlx.Tx) error {
		_, err := tx.Exec("UPDATE things SET x = 1")
		return err
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE things").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := WithTx(context.Background(), conn, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec("UPDATE things SET x = 1"); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	conn, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), conn, func(tx *sqlx.Tx) error {
			panic("mid-transaction panic")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
