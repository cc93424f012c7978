// Package db is the persistence gateway: it owns the connection pool and the
// retry policy for transient storage failures. Everything above it issues
// parameterized queries only; table names come from closed in-code maps.
package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"log"
	"net"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	// AcquireTimeout bounds how long a single attempt may wait for a pooled
	// connection and for the query itself.
	AcquireTimeout = 10 * time.Second

	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
)

// Connect opens the pool and verifies it, retrying while the database is
// still coming up.
func Connect(databaseURL string) (*sqlx.DB, error) {
	var (
		conn *sqlx.DB
		err  error
	)
	backoff := 500 * time.Millisecond
	for attempt := 1; attempt <= 5; attempt++ {
		conn, err = sqlx.Connect("postgres", databaseURL)
		if err == nil {
			break
		}
		log.Printf("db connect attempt %d failed: %v", attempt, err)
		time.Sleep(backoff)
		backoff *= 2
	}
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)
	return conn, nil
}

// IsTransient reports whether err looks like a connection-level failure that
// a fresh attempt may survive: refused/reset connections, a dead pooled
// connection, or the server terminating the backend (pg class 08, 57P01).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if len(code) >= 2 && code[:2] == "08" {
			return true
		}
		// admin_shutdown / crash_shutdown / cannot_connect_now
		switch code {
		case "57P01", "57P02", "57P03":
			return true
		}
	}
	return false
}

// WithRetry runs fn with a per-attempt timeout, retrying transient failures
// with exponential backoff. Deterministic errors (validation, ownership,
// missing rows) pass through on the first attempt.
func WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, AcquireTimeout)
		err = fn(attemptCtx)
		cancel()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt < maxAttempts {
			log.Printf("transient db error (attempt %d/%d): %v", attempt, maxAttempts, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}
	return err
}

// WithTx runs fn inside a transaction. The transaction is rolled back on any
// error or panic, so a mid-sequence failure leaves no visible partial state.
func WithTx(ctx context.Context, conn *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}
