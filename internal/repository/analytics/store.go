// Package analytics persists per-tenant, per-day search counters in the
// shared key-value store.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/staffdex/internal/db"
)

// Metric names tracked per tenant per day.
const (
	MetricSearches    = "searches"
	MetricZeroResults = "zero_results"
	MetricResultsSum  = "results_sum"
	MetricClicks      = "clicks"
)

// store is the consumer interface for analytics counters (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store implements the analytics sink counters on INCRBY + GET with TTL.
type Store struct {
	store     store
	prefix    string
	retention time.Duration
}

// New creates an analytics counter store.
// retention is the TTL for daily counter keys (recommended: 90 days).
func New(s store, prefix string, retention time.Duration) *Store {
	return &Store{store: s, prefix: prefix, retention: retention}
}

// IncrMetric atomically increments a tenant's daily counter and arms its TTL.
func (s *Store) IncrMetric(ctx context.Context, tenantID, day, metric string, delta int64) error {
	key := s.key(tenantID, day, metric)
	if _, err := s.store.IncrBy(ctx, key, delta); err != nil {
		return fmt.Errorf("analytics INCRBY %s: %w", key, err)
	}

	// TTL is armed once per key (NX), so repeat increments never extend it.
	if err := s.store.Expire(ctx, key, s.retention, true); err != nil {
		return fmt.Errorf("analytics EXPIRE %s: %w", key, err)
	}
	return nil
}

// GetMetric reads a tenant's daily counter. Missing keys read as zero.
func (s *Store) GetMetric(ctx context.Context, tenantID, day, metric string) (int64, error) {
	key := s.key(tenantID, day, metric)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("analytics GET %s: %w", key, err)
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("analytics parse %s: %w", key, err)
	}
	return n, nil
}

func (s *Store) key(tenantID, day, metric string) string {
	return fmt.Sprintf("%sanalytics:%s:%s:%s", s.prefix, tenantID, day, metric)
}
