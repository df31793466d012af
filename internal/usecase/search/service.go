// Package search implements the directory search engine: multi-strategy
// matching, score combination, caching, suggestions, and autocomplete.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/search/query"
	"github.com/kailas-cloud/staffdex/internal/domain/search/result"
)

const (
	defaultLowResults      = 2
	defaultSuggestionFloor = 0.25
	defaultFetchTimeout    = 4 * time.Second
	defaultRetryBackoff    = 200 * time.Millisecond
	analyticsTimeout       = 2 * time.Second

	emptyQueryMessage = "Please provide a search query"
)

// Service orchestrates the search pipeline: cache-first lookup, candidate
// fetch, matching, ranking, pagination, suggestions, and analytics emission.
type Service struct {
	records   RecordSource
	cache     ResponseCache
	analytics Sink
	logger    *zap.Logger

	lowResults      int
	suggestionFloor float64
	fetchTimeout    time.Duration
	retryBackoff    time.Duration

	cacheTotal *prometheus.CounterVec
	duration   prometheus.Observer
}

// New creates a search service. analytics may be nil to disable event emission.
func New(records RecordSource, cache ResponseCache, analytics Sink, logger *zap.Logger) *Service {
	return &Service{
		records:         records,
		cache:           cache,
		analytics:       analytics,
		logger:          logger,
		lowResults:      defaultLowResults,
		suggestionFloor: defaultSuggestionFloor,
		fetchTimeout:    defaultFetchTimeout,
		retryBackoff:    defaultRetryBackoff,
	}
}

// WithLimits overrides the low-results threshold for suggestions and the
// suggestion similarity floor.
func (s *Service) WithLimits(lowResults int, suggestionFloor float64) *Service {
	if lowResults > 0 {
		s.lowResults = lowResults
	}
	if suggestionFloor > 0 {
		s.suggestionFloor = suggestionFloor
	}
	return s
}

// WithFetchPolicy overrides the record source timeout and retry backoff.
func (s *Service) WithFetchPolicy(timeout, backoff time.Duration) *Service {
	if timeout > 0 {
		s.fetchTimeout = timeout
	}
	if backoff > 0 {
		s.retryBackoff = backoff
	}
	return s
}

// WithMetrics attaches search metrics. cacheTotal is a counter vec with label
// "result" ("hit"/"miss"); duration observes end-to-end search seconds.
func (s *Service) WithMetrics(cacheTotal *prometheus.CounterVec, duration prometheus.Observer) *Service {
	s.cacheTotal = cacheTotal
	s.duration = duration
	return s
}

// Search executes one search request end to end.
func (s *Service) Search(ctx context.Context, q *query.Query) (*result.Response, error) {
	start := time.Now()

	if q.IsEmpty() {
		return s.emptyResponse(q, start), nil
	}

	key := s.cache.Key(q)
	if resp, ok := s.cache.Get(ctx, key); ok {
		s.incCache("hit")
		resp.Meta.Cached = true
		resp.Meta.ResponseTime = time.Since(start).String()
		resp.ExecutionTimeMs = time.Since(start).Milliseconds()
		return resp, nil
	}
	s.incCache("miss")

	candidates, err := s.fetchCandidates(ctx, q.TenantID(), q.Filters())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRecordSource, err)
	}

	candidates = s.ownTenantOnly(candidates, q.TenantID())
	candidates = filterBySkills(candidates, q.Filters().Skills)

	evidence := matchCandidates(candidates, q)
	ranked := rankCandidates(candidates, evidence, q.Weights())

	total := len(ranked)
	page := paginate(ranked, q.Offset(), q.PageSize())

	resp := &result.Response{
		Results:  page,
		Total:    total,
		Page:     q.Page(),
		PageSize: q.PageSize(),
		HasMore:  q.Page()*q.PageSize() < total,
		Query:    q.Text(),
		Filters:  echoFilters(q.Filters()),
	}

	if total <= s.lowResults {
		resp.Suggestions = s.suggestionsFor(ctx, q)
	}

	elapsed := time.Since(start)
	resp.ExecutionTimeMs = elapsed.Milliseconds()
	resp.Meta = result.Meta{Cached: false, ResponseTime: elapsed.String()}
	s.observe(elapsed)

	// An abandoned request must not publish partial work.
	if ctx.Err() != nil {
		return nil, fmt.Errorf("search canceled: %w", ctx.Err())
	}

	s.cache.Set(ctx, key, resp)
	s.emitSearchEvent(ctx, q.TenantID(), q.Text(), total, elapsed.Milliseconds())

	return resp, nil
}

// Suggest computes "did you mean" terms for a query against the tenant's
// vocabulary. Bounds: 0..maxSuggestions items.
func (s *Service) Suggest(ctx context.Context, tenantID, text string, limit int) ([]string, error) {
	tokens := query.Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > maxSuggestions {
		limit = maxSuggestions
	}

	records, err := s.fetchCandidates(ctx, tenantID, query.Filters{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRecordSource, err)
	}
	records = s.ownTenantOnly(records, tenantID)

	return suggestTerms(tokens, vocabulary(records), s.suggestionFloor, limit), nil
}

// Autocomplete returns typeahead completions for a fragment. Fast path: no
// caching, no ranking combiner, prefix matches before fuzzy fallback.
func (s *Service) Autocomplete(ctx context.Context, tenantID, fragment string, typ VocabType, limit int) ([]string, error) {
	if typ == "" {
		typ = VocabAll
	}
	if !typ.IsValid() {
		return nil, fmt.Errorf("%w: unknown autocomplete type %q", domain.ErrInvalidQuery, typ)
	}
	if limit <= 0 {
		limit = DefaultAutocompleteLimit
	}
	if limit > MaxAutocompleteLimit {
		limit = MaxAutocompleteLimit
	}
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}

	records, err := s.fetchCandidates(ctx, tenantID, query.Filters{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRecordSource, err)
	}
	records = s.ownTenantOnly(records, tenantID)

	return complete(fragment, completionTerms(records, typ), query.DefaultFuzzyThreshold, limit), nil
}

// ClearCache drops every cached response for a tenant.
func (s *Service) ClearCache(ctx context.Context, tenantID string) (int64, error) {
	n, err := s.cache.DeleteTenant(ctx, tenantID)
	if err != nil {
		return n, fmt.Errorf("clear cache: %w", err)
	}
	return n, nil
}

// fetchCandidates calls the record source with a timeout and one bounded retry.
func (s *Service) fetchCandidates(ctx context.Context, tenantID string, f query.Filters) ([]domain.Record, error) {
	fetch := func() ([]domain.Record, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
		return s.records.FindCandidates(fetchCtx, tenantID, f)
	}

	records, err := fetch()
	if err == nil {
		return records, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	s.logger.Warn("Record source fetch failed, retrying once",
		zap.String("tenant", tenantID), zap.Error(err))

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch candidates: %w", ctx.Err())
	case <-time.After(s.retryBackoff):
	}

	records, err = fetch()
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	return records, nil
}

// ownTenantOnly drops any record not belonging to the querying tenant.
// A foreign-tenant record must never reach ranking or the cache.
func (s *Service) ownTenantOnly(records []domain.Record, tenantID string) []domain.Record {
	out := records[:0]
	for _, rec := range records {
		if rec.TenantID != tenantID {
			s.logger.Error("Record source returned a foreign-tenant record, dropping it",
				zap.String("tenant", tenantID),
				zap.String("record_tenant", rec.TenantID),
				zap.String("record_id", rec.ID),
			)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// filterBySkills enforces exact case-insensitive skill membership in-process,
// regardless of how coarsely the record source filtered.
func filterBySkills(records []domain.Record, skills []string) []domain.Record {
	if len(skills) == 0 {
		return records
	}

	out := records[:0]
	for _, rec := range records {
		has := make(map[string]bool, len(rec.Skills))
		for _, sk := range rec.Skills {
			has[strings.ToLower(sk)] = true
		}
		ok := true
		for _, want := range skills {
			if !has[want] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out
}

func paginate(ranked []result.Ranked, offset, size int) []result.Ranked {
	if offset >= len(ranked) {
		return []result.Ranked{}
	}
	end := offset + size
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}

func (s *Service) emptyResponse(q *query.Query, start time.Time) *result.Response {
	elapsed := time.Since(start)
	return &result.Response{
		Results:         []result.Ranked{},
		Total:           0,
		Page:            q.Page(),
		PageSize:        q.PageSize(),
		HasMore:         false,
		Query:           q.Text(),
		Message:         emptyQueryMessage,
		Filters:         echoFilters(q.Filters()),
		ExecutionTimeMs: elapsed.Milliseconds(),
		Meta:            result.Meta{Cached: false, ResponseTime: elapsed.String()},
	}
}

// suggestionsFor is best-effort: a vocabulary fetch failure only costs the
// hint, never the search.
func (s *Service) suggestionsFor(ctx context.Context, q *query.Query) []string {
	records, err := s.fetchCandidates(ctx, q.TenantID(), query.Filters{})
	if err != nil {
		s.logger.Warn("Skipping suggestions, vocabulary fetch failed",
			zap.String("tenant", q.TenantID()), zap.Error(err))
		return nil
	}
	records = s.ownTenantOnly(records, q.TenantID())
	return suggestTerms(q.Tokens(), vocabulary(records), s.suggestionFloor, maxSuggestions)
}

// emitSearchEvent fires the analytics event without blocking the response and
// without letting a sink failure propagate.
func (s *Service) emitSearchEvent(ctx context.Context, tenantID, text string, resultCount int, tookMs int64) {
	if s.analytics == nil {
		return
	}

	go func() {
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), analyticsTimeout)
		defer cancel()
		if err := s.analytics.RecordSearch(emitCtx, tenantID, text, resultCount, tookMs); err != nil {
			s.logger.Warn("Failed to record search event",
				zap.String("tenant", tenantID), zap.Error(err))
		}
	}()
}

func (s *Service) incCache(outcome string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) observe(elapsed time.Duration) {
	if s.duration != nil {
		s.duration.Observe(elapsed.Seconds())
	}
}

func echoFilters(f query.Filters) result.Filters {
	return result.Filters{
		Department:      f.Department,
		Title:           f.Title,
		Skills:          f.Skills,
		IncludeInactive: f.IncludeInactive,
	}
}
