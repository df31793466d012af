// Package result defines ranked search results and the response payload.
package result

import (
	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/match"
)

// Ranked is a single search hit with its combined relevance score.
type Ranked struct {
	Record domain.Record `json:"record"`
	// Rank is the normalized relevance score in [0,1].
	Rank float64 `json:"rank"`
	// MatchType is the highest-confidence strategy that contributed.
	MatchType match.Type `json:"matchType"`
	// MatchedFields lists contributing fields, deduplicated, in the
	// canonical field order.
	MatchedFields []match.Field `json:"matchedFields"`
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

// Response is one page of ranked results. This is the payload cached by the
// orchestrator and returned on the wire.
type Response struct {
	Results         []Ranked `json:"results"`
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
