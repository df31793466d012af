package domain

import "errors"

var (
	// ErrInvalidQuery signals a malformed search query or pagination.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrRecordSource signals that the employee record source is unavailable.
	ErrRecordSource = errors.New("record source unavailable")
	// ErrCacheUnavailable signals a cache store failure. Never surfaced to
	// callers; the pipeline proceeds as a cache miss.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrTenantContext signals a missing or unresolvable tenant.
	ErrTenantContext = errors.New("tenant context missing")
	// ErrForbidden signals an operation not permitted for the caller role.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited signals a per-tenant rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)
