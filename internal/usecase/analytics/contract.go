package analytics

import "context"

// Counters is the persistence the analytics service depends on (ISP).
type Counters interface {
	IncrMetric(ctx context.Context, tenantID, day, metric string, delta int64) error
	GetMetric(ctx context.Context, tenantID, day, metric string) (int64, error)
}
