package search

import (
	"context"

	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/search/query"
	"github.com/kailas-cloud/staffdex/internal/domain/search/result"
)

// RecordSource supplies tenant-scoped candidate records narrowed by coarse
// structured filters. The engine owns no persistence.
type RecordSource interface {
	FindCandidates(ctx context.Context, tenantID string, f query.Filters) ([]domain.Record, error)
}

// ResponseCache caches rendered responses. Get and Set are best-effort: a
// failing cache never fails a search.
type ResponseCache interface {
	Key(q *query.Query) string
	Get(ctx context.Context, key string) (*result.Response, bool)
	Set(ctx context.Context, key string, resp *result.Response)
	DeleteTenant(ctx context.Context, tenantID string) (int64, error)
}

// Sink receives search events. Calls are fire-and-forget from the
// orchestrator's perspective; errors are logged, never propagated.
type Sink interface {
	RecordSearch(ctx context.Context, tenantID, text string, resultCount int, tookMs int64) error
}
