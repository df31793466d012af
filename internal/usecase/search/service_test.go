package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/search/query"
	"github.com/kailas-cloud/staffdex/internal/domain/search/result"
)

// --- Mocks ---

type mockRecords struct {
	mu      sync.Mutex
	records []domain.Record
	err     error
	failN   int // fail the first N calls, then succeed
	calls   int
}

func (m *mockRecords) FindCandidates(_ context.Context, _ string, _ query.Filters) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failN > 0 {
		m.failN--
		return nil, errors.New("source unavailable")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

func (m *mockRecords) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockCache struct {
	entries    map[string]*result.Response
	setCalls   int
	lastSetKey string
	deleted    string
	deletedN   int64
	deleteErr  error
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]*result.Response{}}
}

func (m *mockCache) Key(q *query.Query) string {
	// Page and size must be part of the key or different pages collide.
	return fmt.Sprintf("search:%s:%s:%d:%d", q.TenantID(), q.Text(), q.Page(), q.PageSize())
}

func (m *mockCache) Get(_ context.Context, key string) (*result.Response, bool) {
	resp, ok := m.entries[key]
	return resp, ok
}

func (m *mockCache) Set(_ context.Context, key string, resp *result.Response) {
	m.setCalls++
	m.lastSetKey = key
	m.entries[key] = resp
}

func (m *mockCache) DeleteTenant(_ context.Context, tenantID string) (int64, error) {
	m.deleted = tenantID
	return m.deletedN, m.deleteErr
}

type mockSink struct {
	events chan sinkEvent
	err    error
}

type sinkEvent struct {
	tenantID    string
	text        string
	resultCount int
}

func newMockSink() *mockSink {
	return &mockSink{events: make(chan sinkEvent, 8)}
}

func (m *mockSink) RecordSearch(_ context.Context, tenantID, text string, resultCount int, _ int64) error {
	m.events <- sinkEvent{tenantID: tenantID, text: text, resultCount: resultCount}
	return m.err
}

func testRecords() []domain.Record {
	now := time.Now()
	return []domain.Record{
		{
			ID: "r1", TenantID: "t1", FirstName: "Anna", LastName: "Karlsson",
			Title: "Software Engineer", Department: "Engineering",
			Skills: []string{"Go", "Kubernetes"}, IsActive: true, UpdatedAt: now,
		},
		{
			ID: "r2", TenantID: "t1", FirstName: "Annika", LastName: "Berg",
			Title: "Product Manager", Department: "Product",
			Skills: []string{"Roadmaps"}, IsActive: true, UpdatedAt: now.Add(-time.Hour),
		},
		{
			ID: "r3", TenantID: "t1", FirstName: "Johan", LastName: "Annas",
			Title: "Designer", Department: "Design",
			Skills: []string{"Figma"}, IsActive: true, UpdatedAt: now.Add(-2 * time.Hour),
		},
	}
}

func makeQuery(t *testing.T, text string) *query.Query {
	t.Helper()
	q, err := query.New("t1", text, query.Filters{}, query.DefaultPage, 0, query.Options{})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return &q
}

func newTestService(records *mockRecords, cache *mockCache, sink Sink) *Service {
	return New(records, cache, sink, zap.NewNop()).
		WithFetchPolicy(time.Second, time.Millisecond)
}

// --- Tests ---

func TestSearch_EmptyQuery_SkipsSource(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	svc := newTestService(records, newMockCache(), nil)

	resp, err := svc.Search(context.Background(), makeQuery(t, "   "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("expected total=0, got %d", resp.Total)
	}
	if resp.Message == "" {
		t.Error("expected a guidance message for the empty query")
	}
	if records.callCount() != 0 {
		t.Errorf("record source should not be called, got %d calls", records.callCount())
	}
}

func TestSearch_MatchesAndRanks(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	cache := newMockCache()
	svc := newTestService(records, cache, nil)

	resp, err := svc.Search(context.Background(), makeQuery(t, "anna"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("expected 3 results, got %d", resp.Total)
	}
	// "anna" is contained in Anna, Annika is a fuzzy/partial hit, Annas
	// contains the token. The exact firstName hit must come first.
	if resp.Results[0].Record.ID != "r1" {
		t.Errorf("expected r1 first, got %s", resp.Results[0].Record.ID)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Rank > resp.Results[i-1].Rank {
			t.Errorf("results not sorted by rank descending at index %d", i)
		}
	}
	if cache.setCalls != 1 {
		t.Errorf("expected one cache set, got %d", cache.setCalls)
	}
	if resp.Meta.Cached {
		t.Error("fresh response must not be flagged as cached")
	}
}

func TestSearch_CacheHit(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	cache := newMockCache()
	cached := &result.Response{
		Results: []result.Ranked{}, Total: 7, Query: "anna",
	}
	cache.entries[cache.Key(makeQuery(t, "anna"))] = cached
	svc := newTestService(records, cache, nil)

	resp, err := svc.Search(context.Background(), makeQuery(t, "anna"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Meta.Cached {
		t.Error("expected cached flag on cache hit")
	}
	if resp.Total != 7 {
		t.Errorf("expected the cached payload, got total=%d", resp.Total)
	}
	if records.callCount() != 0 {
		t.Errorf("record source should not be called on cache hit, got %d calls", records.callCount())
	}
}

func TestSearch_Deterministic(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	svc := newTestService(records, newMockCache(), nil)

	first, err := svc.Search(context.Background(), makeQuery(t, "anna"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for run := 0; run < 5; run++ {
		cache := newMockCache() // fresh cache so every run computes
		svc := newTestService(records, cache, nil)
		resp, err := svc.Search(context.Background(), makeQuery(t, "anna"))
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
		if len(resp.Results) != len(first.Results) {
			t.Fatalf("run %d: result count changed: %d vs %d", run, len(resp.Results), len(first.Results))
		}
		for i := range resp.Results {
			if resp.Results[i].Record.ID != first.Results[i].Record.ID {
				t.Errorf("run %d: order changed at index %d: %s vs %s",
					run, i, resp.Results[i].Record.ID, first.Results[i].Record.ID)
			}
			if resp.Results[i].Rank != first.Results[i].Rank {
				t.Errorf("run %d: rank changed at index %d", run, i)
			}
		}
	}
}

func TestSearch_ForeignTenantRecordDropped(t *testing.T) {
	recs := testRecords()
	recs = append(recs, domain.Record{
		ID: "evil", TenantID: "t2", FirstName: "Anna", LastName: "Intruder",
		IsActive: true, UpdatedAt: time.Now(),
	})
	records := &mockRecords{records: recs}
	svc := newTestService(records, newMockCache(), nil)

	resp, err := svc.Search(context.Background(), makeQuery(t, "anna"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range resp.Results {
		if r.Record.TenantID != "t1" {
			t.Errorf("foreign-tenant record %s leaked into results", r.Record.ID)
		}
	}
}

func TestSearch_SourceRetrySucceeds(t *testing.T) {
	records := &mockRecords{records: testRecords(), failN: 1}
	svc := newTestService(records, newMockCache(), nil)

	resp, err := svc.Search(context.Background(), makeQuery(t, "anna"))
	if err != nil {
		t.Fatalf("expected retry to recover, got: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected 3 results after retry, got %d", resp.Total)
	}
	if records.callCount() != 2 {
		t.Errorf("expected exactly 2 source calls, got %d", records.callCount())
	}
}

func TestSearch_SourceFailure(t *testing.T) {
	records := &mockRecords{err: errors.New("connection refused")}
	svc := newTestService(records, newMockCache(), nil)

	_, err := svc.Search(context.Background(), makeQuery(t, "anna"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrRecordSource) {
		t.Errorf("expected ErrRecordSource, got %v", err)
	}
	if records.callCount() != 2 {
		t.Errorf("expected one retry (2 calls), got %d", records.callCount())
	}
}

func TestSearch_LowResults_AttachesSuggestions(t *testing.T) {
	records := &mockRecords{records: testRecords()[:1]}
	svc := newTestService(records, newMockCache(), nil)

	// A typo for "engineer": no exact hit, low result count, so the
	// vocabulary should offer corrections.
	resp, err := svc.Search(context.Background(), makeQuery(t, "enginere"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total > 2 {
		t.Fatalf("scenario needs a low-results search, got %d", resp.Total)
	}
	if len(resp.Suggestions) == 0 {
		t.Fatal("expected suggestions for a low-results search")
	}
	found := false
	for _, s := range resp.Suggestions {
		if s == "engineer" || s == "engineering" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an engineering-related suggestion, got %v", resp.Suggestions)
	}
}

func TestSearch_Pagination(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	svc := newTestService(records, newMockCache(), nil)

	q, err := query.New("t1", "anna", query.Filters{}, 1, 2, query.Options{})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	page1, err := svc.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page1.Total != 3 {
		t.Errorf("total must count all matches, got %d", page1.Total)
	}
	if len(page1.Results) != 2 {
		t.Errorf("expected 2 results on page 1, got %d", len(page1.Results))
	}
	if !page1.HasMore {
		t.Error("expected hasMore on page 1")
	}

	q2, err := query.New("t1", "anna", query.Filters{}, 2, 2, query.Options{})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	page2, err := svc.Search(context.Background(), &q2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page2.Results) != 1 {
		t.Errorf("expected 1 result on page 2, got %d", len(page2.Results))
	}
	if page2.HasMore {
		t.Error("expected hasMore=false on the last page")
	}
	if page1.Results[0].Record.ID == page2.Results[0].Record.ID {
		t.Error("pages must not overlap")
	}
}

func TestSearch_PageBeyondResults(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	svc := newTestService(records, newMockCache(), nil)

	q, err := query.New("t1", "anna", query.Filters{}, 50, 20, query.Options{})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	resp, err := svc.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected empty page, got %d results", len(resp.Results))
	}
	if resp.Total != 3 {
		t.Errorf("total must still count all matches, got %d", resp.Total)
	}
	if resp.HasMore {
		t.Error("expected hasMore=false beyond the last page")
	}
}

func TestSearch_SkillsFilterExact(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	svc := newTestService(records, newMockCache(), nil)

	q, err := query.New("t1", "anna", query.Filters{Skills: []string{"go"}},
		query.DefaultPage, 0, query.Options{})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	resp, err := svc.Search(context.Background(), &q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range resp.Results {
		has := false
		for _, sk := range r.Record.Skills {
			if sk == "Go" {
				has = true
			}
		}
		if !has {
			t.Errorf("record %s lacks the required skill", r.Record.ID)
		}
	}
	if resp.Total != 1 {
		t.Errorf("expected only the Go engineer, got %d", resp.Total)
	}
}

func TestSearch_EmitsAnalyticsEvent(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	sink := newMockSink()
	svc := newTestService(records, newMockCache(), sink)

	if _, err := svc.Search(context.Background(), makeQuery(t, "anna")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case ev := <-sink.events:
		if ev.tenantID != "t1" {
			t.Errorf("expected tenant t1, got %s", ev.tenantID)
		}
		if ev.text != "anna" {
			t.Errorf("expected query text, got %q", ev.text)
		}
		if ev.resultCount != 3 {
			t.Errorf("expected resultCount=3, got %d", ev.resultCount)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("analytics event was never emitted")
	}
}

func TestSearch_SinkFailureDoesNotFailSearch(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	sink := newMockSink()
	sink.err = errors.New("analytics down")
	svc := newTestService(records, newMockCache(), sink)

	resp, err := svc.Search(context.Background(), makeQuery(t, "anna"))
	if err != nil {
		t.Fatalf("sink failure must not fail the search: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected 3 results, got %d", resp.Total)
	}
	<-sink.events
}

func TestSuggest(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	svc := newTestService(records, newMockCache(), nil)

	terms, err := svc.Suggest(context.Background(), "t1", "enginere", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms) == 0 {
		t.Fatal("expected suggestions")
	}
}

func TestSuggest_EmptyText(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	svc := newTestService(records, newMockCache(), nil)

	terms, err := svc.Suggest(context.Background(), "t1", "  ", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if terms != nil {
		t.Errorf("expected no suggestions for empty text, got %v", terms)
	}
	if records.callCount() != 0 {
		t.Error("record source should not be called for empty text")
	}
}

func TestAutocomplete_InvalidType(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	svc := newTestService(records, newMockCache(), nil)

	_, err := svc.Autocomplete(context.Background(), "t1", "an", VocabType("bogus"), 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestAutocomplete_PrefixFirst(t *testing.T) {
	records := &mockRecords{records: testRecords()}
	svc := newTestService(records, newMockCache(), nil)

	terms, err := svc.Autocomplete(context.Background(), "t1", "An", VocabNames, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(terms) == 0 {
		t.Fatal("expected completions")
	}
	if terms[0] != "Anna" {
		t.Errorf("expected prefix match 'Anna' first, got %q", terms[0])
	}
}

func TestClearCache(t *testing.T) {
	cache := newMockCache()
	cache.deletedN = 4
	svc := newTestService(&mockRecords{}, cache, nil)

	n, err := svc.ClearCache(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 deleted entries, got %d", n)
	}
	if cache.deleted != "t1" {
		t.Errorf("expected tenant t1 deletion, got %q", cache.deleted)
	}
}

func TestClearCache_Error(t *testing.T) {
	cache := newMockCache()
	cache.deleteErr = errors.New("cache down")
	svc := newTestService(&mockRecords{}, cache, nil)

	if _, err := svc.ClearCache(context.Background(), "t1"); err == nil {
		t.Fatal("expected error")
	}
}
