// Package chi exposes the search engine over HTTP with chi routing.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/match"
	"github.com/kailas-cloud/staffdex/internal/domain/search/query"
	"github.com/kailas-cloud/staffdex/internal/domain/tenant"
	"github.com/kailas-cloud/staffdex/internal/metrics"
	analyticsuc "github.com/kailas-cloud/staffdex/internal/usecase/analytics"
	healthuc "github.com/kailas-cloud/staffdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/staffdex/internal/usecase/search"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned in the error envelope.
const (
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeForbidden        ErrorCode = "forbidden"
	CodeRateLimited      ErrorCode = "rate_limited"
	CodeSearchFailed     ErrorCode = "search_failed"
	CodeInternalError    ErrorCode = "internal_error"
	CodeBadRequest       ErrorCode = "bad_request"
)

// ErrorResponse is the error envelope for every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// SearchDefaults are the deployment-level query limits and ranking
// parameters, sourced from config. Zero fields fall back to the query
// package defaults.
type SearchDefaults struct {
	MaxQueryLength  int
	DefaultPageSize int
	MaxPageSize     int
	FuzzyThreshold  float64
	Weights         match.Weights
}

// Server wires the usecases to HTTP handlers.
type Server struct {
	search        *searchuc.Service
	analytics     *analyticsuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	defaults      SearchDefaults
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	analytics *analyticsuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:    search,
		analytics: analytics,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrTenantContext, http.StatusUnauthorized, CodeUnauthorized),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrRecordSource, http.StatusBadGateway, CodeSearchFailed),
		sentinelHandler(domain.ErrCacheUnavailable, http.StatusServiceUnavailable, CodeInternalError),
	}
	return s
}

// WithSearchDefaults sets the configured query limits and ranking
// parameters applied to every search request.
func (s *Server) WithSearchDefaults(d SearchDefaults) *Server {
	s.defaults = d
	return s
}

// RegisterRoutes mounts every API route on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", s.Search)
		r.Get("/suggestions", s.Suggestions)
		r.Get("/autocomplete", s.Autocomplete)
		r.Post("/track", s.Track)
		r.Delete("/cache", s.ClearCache)
		r.Get("/stats", s.Stats)
	})
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, domain.ErrTenantContext.Error())
		return
	}

	params := r.URL.Query()

	page, err := intParam(params.Get("page"), query.DefaultPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "page must be an integer")
		return
	}
	pageSize, err := intParam(params.Get("pageSize"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "pageSize must be an integer")
		return
	}
	fuzzyThreshold, err := floatParam(params.Get("fuzzyThreshold"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "fuzzyThreshold must be a number")
		return
	}

	filters := query.Filters{
		Department: params.Get("department"),
		Title:      params.Get("title"),
		Skills:     splitCSV(params.Get("skills")),
	}
	// Inactive records are admin-only.
	if params.Get("includeInactive") == "true" {
		if !tc.IsAdmin() {
			writeError(w, http.StatusForbidden, CodeForbidden, domain.ErrForbidden.Error())
			return
		}
		filters.IncludeInactive = true
	}

	opts := query.Options{
		Weights:         s.defaults.Weights,
		FuzzyThreshold:  s.defaults.FuzzyThreshold,
		MaxQueryLength:  s.defaults.MaxQueryLength,
		DefaultPageSize: s.defaults.DefaultPageSize,
		MaxPageSize:     s.defaults.MaxPageSize,
	}
	if fuzzyThreshold != 0 {
		opts.FuzzyThreshold = fuzzyThreshold
	}

	q, err := query.New(tc.ID, params.Get("q"), filters, page, pageSize, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	metrics.SearchResults.Observe(float64(resp.Total))
	writeJSON(w, http.StatusOK, resp)
}

// SuggestionsResponse is the payload for GET /api/v1/search/suggestions.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
	Query       string   `json:"query"`
	Count       int      `json:"count"`
}

// Suggestions handles GET /api/v1/search/suggestions.
func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, domain.ErrTenantContext.Error())
		return
	}

	params := r.URL.Query()
	limit, err := intParam(params.Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be an integer")
		return
	}

	text := params.Get("q")
	terms, err := s.search.Suggest(r.Context(), tc.ID, text, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if terms == nil {
		terms = []string{}
	}

	writeJSON(w, http.StatusOK, SuggestionsResponse{
		Suggestions: terms,
		Query:       text,
		Count:       len(terms),
	})
}

// AutocompleteResponse is the payload for GET /api/v1/search/autocomplete.
type AutocompleteResponse struct {
	Suggestions []string `json:"suggestions"`
	Query       string   `json:"query"`
	Type        string   `json:"type"`
	Count       int      `json:"count"`
}

// Autocomplete handles GET /api/v1/search/autocomplete.
func (s *Server) Autocomplete(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, domain.ErrTenantContext.Error())
		return
	}

	params := r.URL.Query()
	limit, err := intParam(params.Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be an integer")
		return
	}

	typ := searchuc.VocabType(params.Get("type"))
	if typ == "" {
		typ = searchuc.VocabAll
	}

	fragment := params.Get("q")
	terms, err := s.search.Autocomplete(r.Context(), tc.ID, fragment, typ, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if terms == nil {
		terms = []string{}
	}

	writeJSON(w, http.StatusOK, AutocompleteResponse{
		Suggestions: terms,
		Query:       fragment,
		Type:        string(typ),
		Count:       len(terms),
	})
}

// TrackRequest is the body for POST /api/v1/search/track.
type TrackRequest struct {
	Query         string `json:"query"`
	ResultCount   int    `json:"resultCount"`
	ClickedResult string `json:"clickedResult,omitempty"`
}

// Track handles POST /api/v1/search/track. Tracking is best-effort: a sink
// failure is logged and the client still gets an ok.
func (s *Server) Track(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, domain.ErrTenantContext.Error())
		return
	}

	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.analytics.Track(r.Context(), tc.ID, req.Query, req.ResultCount, req.ClickedResult); err != nil {
		s.logger.Warn("Failed to track search event",
			zap.String("tenant", tc.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ClearCache handles DELETE /api/v1/search/cache. Admin only.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, domain.ErrTenantContext.Error())
		return
	}
	if !tc.IsAdmin() {
		writeError(w, http.StatusForbidden, CodeForbidden, domain.ErrForbidden.Error())
		return
	}

	n, err := s.search.ClearCache(r.Context(), tc.ID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"cleared": n})
}

// Stats handles GET /api/v1/search/stats. Admin only.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, domain.ErrTenantContext.Error())
		return
	}
	if !tc.IsAdmin() {
		writeError(w, http.StatusForbidden, CodeForbidden, domain.ErrForbidden.Error())
		return
	}

	days, err := intParam(r.URL.Query().Get("days"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "days must be an integer")
		return
	}

	stats, err := s.analytics.GetStats(r.Context(), tc.ID, days)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// floatParam returns 0 for an absent value, which query.Options treats
// as "use the configured default".
func floatParam(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrRecordSource,
		domain.ErrCacheUnavailable,
		domain.ErrTenantContext,
		domain.ErrForbidden,
		domain.ErrRateLimited,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
