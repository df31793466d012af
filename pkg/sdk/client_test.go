package staffdex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "key"); err == nil {
		t.Fatal("expected error for empty base URL")
	}
	if _, err := New("http://localhost:8080", ""); err == nil {
		t.Fatal("expected error for empty API key")
	}
	if _, err := New("ftp://localhost", "key"); err == nil {
		t.Fatal("expected error for non-http scheme")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New("http://localhost:8080/", "key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
	}
}

func TestClientOptions(t *testing.T) {
	custom := &http.Client{Timeout: 3 * time.Second}
	c, err := New("http://localhost:8080", "key",
		WithHTTPClient(custom),
		WithUserAgent("staffdex-test/1.0"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.httpc != custom {
		t.Error("custom HTTP client was not used")
	}
	if c.userAgent != "staffdex-test/1.0" {
		t.Errorf("userAgent = %q", c.userAgent)
	}
}

func TestWithTimeout(t *testing.T) {
	c, err := New("http://localhost:8080", "key", WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.httpc.Timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", c.httpc.Timeout)
	}
}

// newTestClient spins up a server with the given handler and returns a
// client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSearch(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()

		json.NewEncoder(w).Encode(SearchResponse{
			Results: []Result{{
				Record:    Record{ID: "e1", FirstName: "Anna"},
				Rank:      0.92,
				MatchType: "exact",
			}},
			Total:    1,
			Page:     2,
			PageSize: 10,
			Query:    "anna",
		})
	})

	resp, err := c.Search(context.Background(), SearchParams{
		Query:           "anna",
		Page:            2,
		PageSize:        10,
		Department:      "Engineering",
		Skills:          []string{"Go", "Kubernetes"},
		IncludeInactive: true,
		FuzzyThreshold:  0.5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotPath != "/api/v1/search" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	for key, want := range map[string]string{
		"q":               "anna",
		"page":            "2",
		"pageSize":        "10",
		"department":      "Engineering",
		"skills":          "Go,Kubernetes",
		"includeInactive": "true",
		"fuzzyThreshold":  "0.5",
	} {
		if got := gotQuery[key]; len(got) != 1 || got[0] != want {
			t.Errorf("query %s = %v, want %q", key, got, want)
		}
	}

	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("total = %d, results = %d", resp.Total, len(resp.Results))
	}
	if resp.Results[0].Record.ID != "e1" {
		t.Errorf("record id = %q", resp.Results[0].Record.ID)
	}
	if resp.Results[0].Rank != 0.92 {
		t.Errorf("rank = %v", resp.Results[0].Rank)
	}
}

func TestSearch_ZeroParamsOmitted(t *testing.T) {
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(SearchResponse{})
	})

	if _, err := c.Search(context.Background(), SearchParams{Query: "anna"}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	for _, key := range []string{"page", "pageSize", "department", "title", "skills", "includeInactive", "fuzzyThreshold"} {
		if _, ok := gotQuery[key]; ok {
			t.Errorf("query param %s should be omitted", key)
		}
	}
}

func TestSearch_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "rate_limited",
			"message": "Rate limit exceeded",
		})
	})

	_, err := c.Search(context.Background(), SearchParams{Query: "anna"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("errors.Is(err, ErrRateLimited) = false, err = %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is not *APIError: %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Rate limit exceeded" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestSearch_NonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	_, err := c.Search(context.Background(), SearchParams{Query: "anna"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is not *APIError: %v", err)
	}
	if apiErr.Code != "internal_error" {
		t.Errorf("code = %q, want internal_error fallback", apiErr.Code)
	}
}

func TestSuggestions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search/suggestions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "3" {
			t.Errorf("limit = %q", got)
		}
		json.NewEncoder(w).Encode(SuggestionsResponse{
			Suggestions: []string{"engineer", "engineering"},
			Query:       "enginere",
			Count:       2,
		})
	})

	resp, err := c.Suggestions(context.Background(), "enginere", 3)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if resp.Count != 2 || len(resp.Suggestions) != 2 {
		t.Errorf("count = %d, suggestions = %v", resp.Count, resp.Suggestions)
	}
}

func TestAutocomplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search/autocomplete" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != VocabNames {
			t.Errorf("type = %q", got)
		}
		json.NewEncoder(w).Encode(AutocompleteResponse{
			Suggestions: []string{"Anna", "Annika"},
			Query:       "An",
			Type:        VocabNames,
			Count:       2,
		})
	})

	resp, err := c.Autocomplete(context.Background(), "An", VocabNames, 0)
	if err != nil {
		t.Fatalf("Autocomplete: %v", err)
	}
	if resp.Type != VocabNames || resp.Count != 2 {
		t.Errorf("type = %q, count = %d", resp.Type, resp.Count)
	}
}

func TestTrack(t *testing.T) {
	var gotBody TrackEvent
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	err := c.Track(context.Background(), TrackEvent{
		Query:         "anna",
		ResultCount:   5,
		ClickedResult: "e1",
	})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if gotBody.Query != "anna" || gotBody.ResultCount != 5 || gotBody.ClickedResult != "e1" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestClearCache(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/search/cache" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]int64{"cleared": 7})
	})

	n, err := c.ClearCache(context.Background())
	if err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if n != 7 {
		t.Errorf("cleared = %d, want 7", n)
	}
}

func TestClearCache_Forbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "forbidden",
			"message": "admin role required",
		})
	})

	_, err := c.ClearCache(context.Background())
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("errors.Is(err, ErrForbidden) = false, err = %v", err)
	}
}

func TestStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("days"); got != "14" {
			t.Errorf("days = %q", got)
		}
		json.NewEncoder(w).Encode(Stats{
			TenantID:      "t1",
			Days:          14,
			TotalSearches: 42,
			Daily:         []DayStats{{Day: "2025-06-15", Searches: 42}},
		})
	})

	stats, err := c.Stats(context.Background(), 14)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalSearches != 42 || len(stats.Daily) != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHealth_Degraded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(HealthStatus{
			Status: "degraded",
			Checks: map[string]string{"cache": "error", "records": "ok"},
		})
	})

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if status.Status != "degraded" {
		t.Errorf("status = %q", status.Status)
	}
	if status.Checks["cache"] != "error" {
		t.Errorf("checks = %v", status.Checks)
	}
}

func TestAPIError_UnknownCode(t *testing.T) {
	err := &APIError{StatusCode: 500, Code: "internal_error", Message: "boom"}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrForbidden) {
		t.Error("unknown code must not match a sentinel")
	}
	if err.Error() == "" {
		t.Error("empty error string")
	}
}
