// Package checkers adapts the service's stores to health.Checker.
package checkers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// DefaultTimeout ограничивает один ping, чтобы зависшее хранилище не держало /ready.
const DefaultTimeout = time.Second

// PingChecker reports a store healthy when its ping returns within the timeout.
type PingChecker struct {
	name    string
	timeout time.Duration
	ping    func(ctx context.Context) error
}

func NewPingChecker(name string, timeout time.Duration, ping func(ctx context.Context) error) *PingChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PingChecker{name: name, timeout: timeout, ping: ping}
}

// NewPostgresChecker пингует пул pgx.
func NewPostgresChecker(pool *pgxpool.Pool) *PingChecker {
	return NewPingChecker("postgres", DefaultTimeout, pool.Ping)
}

// NewSQLChecker covers database/sql backed stores such as SQLite.
func NewSQLChecker(name string, db *sqlx.DB) *PingChecker {
	return NewPingChecker(name, DefaultTimeout, db.PingContext)
}

func NewRedisChecker(client *redis.Client) *PingChecker {
	return NewPingChecker("redis", DefaultTimeout, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.ping(ctx)
}
