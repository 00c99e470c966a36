package health

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 2 * time.Second

// Checker reports a dependency's health as an error.
type Checker func() error

// Pinger is any dependency that can be probed with a context.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker probes p with a bounded context.
func PingChecker(p Pinger, timeout time.Duration) Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return p.Ping(ctx)
	}
}

// DatabaseChecker returns a health check for the PostgreSQL pool
func DatabaseChecker(pool *pgxpool.Pool) Checker {
	return PingChecker(pool, defaultTimeout)
}

// RedisChecker returns a health check for Redis
func RedisChecker(client *redis.Client) Checker {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		return client.Ping(ctx).Err()
	}
}

// Cached remembers the last result of check for ttl, errors included.
func Cached(check Checker, ttl time.Duration) Checker {
	var (
		mu      sync.Mutex
		last    error
		checked time.Time
	)
	return func() error {
		mu.Lock()
		defer mu.Unlock()
		if !checked.IsZero() && time.Since(checked) < ttl {
			return last
		}
		last = check()
		checked = time.Now()
		return last
	}
}
