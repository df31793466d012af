// Package query defines the validated, immutable search query value type.
package query

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/staffdex/internal/domain/match"
)

// Search parameter limits and defaults.
const (
	// MaxQueryLength is the maximum allowed search text length in runes.
	MaxQueryLength = 200
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	// DefaultFuzzyThreshold is the baseline similarity floor for fuzzy hits.
	DefaultFuzzyThreshold = 0.3
)

// Filters are the recognized structured filters. Unknown keys are dropped at
// the transport boundary; everything the engine honors is enumerated here.
type Filters struct {
	Department      string
	Title           string
	Skills          []string
	IncludeInactive bool
}

// Options are deployment- or call-level overrides of the package
// defaults. Zero values mean "use defaults".
type Options struct {
	Weights        match.Weights
	FuzzyThreshold float64

	// Validation and paging limits, normally sourced from config.
	MaxQueryLength  int
	DefaultPageSize int
	MaxPageSize     int
}

// Query is a validated search query. Immutable once constructed.
type Query struct {
	tenantID       string
	text           string
	tokens         []string
	filters        Filters
	page           int
	pageSize       int
	weights        match.Weights
	fuzzyThreshold float64
}

// New validates and normalizes search parameters.
// The raw text is trimmed and case-folded; empty text is valid and marks the
// query as a short-circuit (IsEmpty). Callers pass page=DefaultPage when the
// page is unspecified; page < 1 is rejected. pageSize is clamped silently to
// [1, max], with 0 meaning "use the default size"; the limits come from opts
// and fall back to the package constants.
func New(tenantID, rawText string, filters Filters, page, pageSize int, opts Options) (Query, error) {
	if tenantID == "" {
		return Query{}, fmt.Errorf("tenant id is required")
	}

	maxLength := opts.MaxQueryLength
	if maxLength <= 0 {
		maxLength = MaxQueryLength
	}
	defaultSize := opts.DefaultPageSize
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	maxSize := opts.MaxPageSize
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}

	text := strings.ToLower(strings.TrimSpace(rawText))
	if utf8.RuneCountInString(text) > maxLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", maxLength)
	}

	if page < 1 {
		return Query{}, fmt.Errorf("page must be at least 1, got %d", page)
	}
	if pageSize == 0 {
		pageSize = defaultSize
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}

	weights := opts.Weights
	if weights.IsZero() {
		weights = match.DefaultWeights()
	}
	if weights.Exact < 0 || weights.Fuzzy < 0 || weights.Partial < 0 {
		return Query{}, fmt.Errorf("ranking weights must not be negative")
	}

	threshold := opts.FuzzyThreshold
	if threshold == 0 {
		threshold = DefaultFuzzyThreshold
	}
	if threshold < 0 || threshold > 1 {
		return Query{}, fmt.Errorf("fuzzy threshold must be between 0 and 1, got %v", threshold)
	}

	return Query{
		tenantID:       tenantID,
		text:           text,
		tokens:         Tokenize(text),
		filters:        normalizeFilters(filters),
		page:           page,
		pageSize:       pageSize,
		weights:        weights,
		fuzzyThreshold: threshold,
	}, nil
}

// TenantID returns the tenant the query is scoped to.
func (q *Query) TenantID() string { return q.tenantID }

// Text returns the normalized query text.
func (q *Query) Text() string { return q.text }

// Tokens returns the normalized query tokens.
func (q *Query) Tokens() []string { return q.tokens }

// Filters returns the structured filters.
func (q *Query) Filters() Filters { return q.filters }

// Page returns the requested 1-based page.
func (q *Query) Page() int { return q.page }

// PageSize returns the clamped page size.
func (q *Query) PageSize() int { return q.pageSize }

// Offset returns the 0-based slice offset for the requested page.
func (q *Query) Offset() int { return (q.page - 1) * q.pageSize }

// Weights returns the ranking strategy weights.
func (q *Query) Weights() match.Weights { return q.weights }

// FuzzyThreshold returns the similarity floor for fuzzy matching.
func (q *Query) FuzzyThreshold() float64 { return q.fuzzyThreshold }

// IsEmpty reports whether the query has no usable text.
// Empty queries are valid and short-circuit matching entirely.
func (q *Query) IsEmpty() bool { return len(q.tokens) == 0 }

var nonAlphaNumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Tokenize lowercases text, strips non-alphanumeric characters, and splits it
// into tokens, dropping anything that normalizes to nothing.
func Tokenize(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	var tokens []string
	for _, word := range words {
		word = nonAlphaNumeric.ReplaceAllString(word, "")
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func normalizeFilters(f Filters) Filters {
	out := Filters{
		Department:      strings.TrimSpace(f.Department),
		Title:           strings.TrimSpace(f.Title),
		IncludeInactive: f.IncludeInactive,
	}
	for _, s := range f.Skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out.Skills = append(out.Skills, s)
		}
	}
	return out
}
