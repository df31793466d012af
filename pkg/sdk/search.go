package staffdex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Search runs a ranked directory search scoped to the key's tenant.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("q", params.Query)
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(params.PageSize))
	}
	if params.Department != "" {
		q.Set("department", params.Department)
	}
	if params.Title != "" {
		q.Set("title", params.Title)
	}
	if len(params.Skills) > 0 {
		q.Set("skills", strings.Join(params.Skills, ","))
	}
	if params.IncludeInactive {
		q.Set("includeInactive", "true")
	}
	if params.FuzzyThreshold > 0 {
		q.Set("fuzzyThreshold", strconv.FormatFloat(params.FuzzyThreshold, 'f', -1, 64))
	}

	var resp SearchResponse
	if err := c.do(ctx, http.MethodGet, basePath, q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Suggestions returns typo-corrected alternatives for a query.
// limit <= 0 uses the server default.
func (c *Client) Suggestions(ctx context.Context, query string, limit int) (*SuggestionsResponse, error) {
	q := url.Values{}
	q.Set("q", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp SuggestionsResponse
	if err := c.do(ctx, http.MethodGet, basePath+"/suggestions", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Autocomplete returns completions for a fragment from the given
// vocabulary (one of the Vocab* constants; "" means VocabAll).
func (c *Client) Autocomplete(ctx context.Context, fragment, vocab string, limit int) (*AutocompleteResponse, error) {
	q := url.Values{}
	q.Set("q", fragment)
	if vocab != "" {
		q.Set("type", vocab)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp AutocompleteResponse
	if err := c.do(ctx, http.MethodGet, basePath+"/autocomplete", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Track reports a search event for analytics. Best-effort on the
// server side: the call succeeds even when the event is dropped.
func (c *Client) Track(ctx context.Context, event TrackEvent) error {
	return c.do(ctx, http.MethodPost, basePath+"/track", nil, event, nil)
}

// ClearCache invalidates all cached search responses for the key's
// tenant and returns the number of entries removed. Admin only.
func (c *Client) ClearCache(ctx context.Context) (int64, error) {
	var resp struct {
		Cleared int64 `json:"cleared"`
	}
	if err := c.do(ctx, http.MethodDelete, basePath+"/cache", nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Cleared, nil
}

// Stats returns search analytics for the trailing window of days.
// days <= 0 uses the server default. Admin only.
func (c *Client) Stats(ctx context.Context, days int) (*Stats, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}

	var resp Stats
	if err := c.do(ctx, http.MethodGet, basePath+"/stats", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the service health. A degraded service answers with
// 503 but still reports its per-component checks, so the status is
// decoded from the body regardless of the response code.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("staffdex: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("staffdex: request failed: %w", err)
	}
	defer resp.Body.Close()

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("staffdex: decode response: %w", err)
	}
	return &status, nil
}
