package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/retry"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 50 * time.Millisecond
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

func (c Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Open connects and waits up to 15s for the database to answer a ping.
func Open(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	err = retry.Do(ctx, 6, 250*time.Millisecond, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

type Option func(*retrier)

func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(r *retrier) {
		r.attempts = attempts
		r.baseDelay = baseDelay
	}
}

type retrier struct {
	attempts  int
	baseDelay time.Duration
}

func newRetrier(opts []Option) retrier {
	r := retrier{attempts: defaultRetryAttempts, baseDelay: defaultRetryDelay}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// run retries fn while it fails with a transient database error. Once the
// attempts are spent the error is wrapped with domain.ErrStorage.
func (r retrier) run(ctx context.Context, fn func() error) error {
	err := retry.Do(ctx, r.attempts, r.baseDelay, func() error {
		err := fn()
		if err != nil && !isTransient(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil && isTransient(err) {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "08" {
			return true
		}
		switch pqErr.Code {
		case "40001", "40P01", "53300", "57P01":
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
