// Package cache stores rendered search responses in a TTL key-value store.
// Keys embed the tenant id so one tenant can never observe another's entries.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/staffdex/internal/db"
	"github.com/kailas-cloud/staffdex/internal/domain/match"
	"github.com/kailas-cloud/staffdex/internal/domain/search/query"
	"github.com/kailas-cloud/staffdex/internal/domain/search/result"
)

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	DelMulti(ctx context.Context, keys []string) (int64, error)
}

// Store caches search responses. Read and write failures are absorbed here:
// the pipeline proceeds as a cache miss and the error is only logged.
type Store struct {
	store  store
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a response cache with the given key prefix and entry TTL.
func New(s store, prefix string, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{store: s, prefix: prefix, ttl: ttl, logger: logger}
}

// keyPayload is the canonical cache key input. Every field that changes the
// rendered response participates in the hash.
type keyPayload struct {
	Tenant    string        `json:"tenant"`
	Text      string        `json:"text"`
	Filters   query.Filters `json:"filters"`
	Page      int           `json:"page"`
	PageSize  int           `json:"pageSize"`
	Weights   match.Weights `json:"weights"`
	Threshold float64       `json:"threshold"`
}

// Key derives the stable cache key for a query. The tenant id appears in
// plain text so DeleteTenant can clear a namespace by pattern.
func (c *Store) Key(q *query.Query) string {
	payload, _ := json.Marshal(keyPayload{
		Tenant:    q.TenantID(),
		Text:      q.Text(),
		Filters:   q.Filters(),
		Page:      q.Page(),
		PageSize:  q.PageSize(),
		Weights:   q.Weights(),
		Threshold: q.FuzzyThreshold(),
	})
	h := sha256.Sum256(payload)
	return fmt.Sprintf("%ssearch:%s:%s", c.prefix, q.TenantID(), hex.EncodeToString(h[:]))
}

// Get returns a cached response, or false on miss or store failure.
func (c *Store) Get(ctx context.Context, key string) (*result.Response, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read search cache", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var resp result.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("Failed to decode cached response", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &resp, true
}

// Set writes a response with the configured TTL. Failures are logged and
// swallowed; caching is best-effort.
func (c *Store) Set(ctx context.Context, key string, resp *result.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("Failed to encode response for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to write search cache", zap.String("key", key), zap.Error(err))
	}
}

// DeleteTenant clears every cache entry for a tenant and returns the count.
func (c *Store) DeleteTenant(ctx context.Context, tenantID string) (int64, error) {
	pattern := fmt.Sprintf("%ssearch:%s:*", c.prefix, tenantID)
	keys, err := c.store.Scan(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("scan tenant cache %s: %w", tenantID, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := c.store.DelMulti(ctx, keys)
	if err != nil {
		return removed, fmt.Errorf("clear tenant cache %s: %w", tenantID, err)
	}
	return removed, nil
}
