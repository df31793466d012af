package health

import "context"

// CachePinger checks cache store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// RecordsPinger checks record source availability.
type RecordsPinger interface {
	Ping(ctx context.Context) error
}
