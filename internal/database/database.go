// Package database centralises sqlx connection helpers.  The default driver
// is go-sql-driver/mysql, which also works with MariaDB.
//
// Public entry points:
//
//	Open(ctx, dsn)                      – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, Options)  – fine-grained control.
//
// Both helpers Ping the database before returning, retrying with
// exponential backoff, so callers fail fast during bootstrap yet survive
// a database that is still starting.  Callers should Close() the returned
// *sqlx.DB when no longer needed.
package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Options tunes the pool and the initial ping.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         uint64
	RetryBackoff    time.Duration
}

// DefaultOptions returns 15 open, 5 idle, a 30-minute lifetime, and three
// ping retries.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Retries:         3,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// Open uses DefaultOptions.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, DefaultOptions())
}

// OpenWithOptions opens a pool with opts and pings until it answers or
// the retries are spent.
func OpenWithOptions(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := Ping(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Ping retries db.PingContext with exponential backoff.
func Ping(ctx context.Context, db *sqlx.DB, opts Options) error {
	eb := backoff.NewExponentialBackOff()
	if opts.RetryBackoff > 0 {
		eb.InitialInterval = opts.RetryBackoff
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, opts.Retries), ctx)
	return backoff.Retry(func() error { return db.PingContext(ctx) }, policy)
}
