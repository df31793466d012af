// Package db defines the key-value store contract backing the search cache,
// analytics counters, and rate limiting.
package db

import (
	"context"
	"time"
)

// Store is the main store facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces, not on Store.
type Store interface {
	Pinger
	KVStore
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations with TTL and pattern scanning.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) (int64, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// CounterStore provides atomic counters with expiry.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
