package staffdex

import "time"

// Record is a single employee directory entry.
type Record struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Title      string    `json:"title"`
	Department string    `json:"department"`
	Skills     []string  `json:"skills"`
	Bio        string    `json:"bio"`
	IsActive   bool      `json:"isActive"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Result is a ranked search hit.
type Result struct {
	Record Record `json:"record"`
	// Rank is the normalized relevance score in [0,1].
	Rank          float64  `json:"rank"`
	MatchType     string   `json:"matchType"`
	MatchedFields []string `json:"matchedFields"`
}

// Meta carries response provenance.
type Meta struct {
	Cached       bool   `json:"cached"`
	ResponseTime string `json:"responseTime"`
}

// Filters echoes the structured filters the query was served with.
type Filters struct {
	Department      string   `json:"department,omitempty"`
	Title           string   `json:"title,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	IncludeInactive bool     `json:"includeInactive"`
}

// SearchResponse is one page of ranked results.
type SearchResponse struct {
	Results         []Result `json:"results"`
	Total           int      `json:"total"`
	Page            int      `json:"page"`
	PageSize        int      `json:"pageSize"`
	HasMore         bool     `json:"hasMore"`
	Query           string   `json:"query"`
	ExecutionTimeMs int64    `json:"executionTimeMs"`
	Suggestions     []string `json:"suggestions,omitempty"`
	Message         string   `json:"message,omitempty"`
	Filters         Filters  `json:"filters"`
	Meta            Meta     `json:"meta"`
}

// SearchParams are the inputs to Client.Search. Query is the only
// required field; zero values fall back to server defaults.
type SearchParams struct {
	Query      string
	Page       int
	PageSize   int
	Department string
	Title      string
	Skills     []string
	// IncludeInactive requires an admin key; the server answers 403
	// (ErrForbidden) otherwise.
	IncludeInactive bool
	// FuzzyThreshold overrides the server's similarity floor for this
	// call. Zero means the configured default; valid range is (0, 1].
	FuzzyThreshold float64
}

// SuggestionsResponse holds typo-corrected alternatives for a query.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
	Query       string   `json:"query"`
	Count       int      `json:"count"`
}

// Vocabulary types accepted by Client.Autocomplete.
const (
	VocabNames       = "names"
	VocabTitles      = "titles"
	VocabDepartments = "departments"
	VocabSkills      = "skills"
	VocabAll         = "all"
)

// AutocompleteResponse holds prefix completions for a fragment.
type AutocompleteResponse struct {
	Suggestions []string `json:"suggestions"`
	Query       string   `json:"query"`
	Type        string   `json:"type"`
	Count       int      `json:"count"`
}

// TrackEvent reports a completed search, optionally with the result
// the user clicked.
type TrackEvent struct {
	Query         string `json:"query"`
	ResultCount   int    `json:"resultCount"`
	ClickedResult string `json:"clickedResult,omitempty"`
}

// DayStats is the per-day analytics slice inside Stats.
type DayStats struct {
	Day         string `json:"day"`
	Searches    int64  `json:"searches"`
	ZeroResults int64  `json:"zeroResults"`
	Clicks      int64  `json:"clicks"`
}

// Stats aggregates tenant search analytics over a trailing window.
type Stats struct {
	TenantID       string     `json:"tenantId"`
	Days           int        `json:"days"`
	TotalSearches  int64      `json:"totalSearches"`
	ZeroResults    int64      `json:"zeroResults"`
	Clicks         int64      `json:"clicks"`
	AvgResultCount float64    `json:"avgResultCount"`
	Daily          []DayStats `json:"daily"`
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
