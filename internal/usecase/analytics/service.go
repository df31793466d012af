// Package analytics aggregates per-tenant search usage counters.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staffdex/internal/repository/analytics"
)

const (
	defaultStatsDays = 7
	maxStatsDays     = 90

	dayFormat = "2006-01-02"
)

// Service records search events and serves usage statistics.
type Service struct {
	counters Counters
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an analytics service.
func New(counters Counters, logger *zap.Logger) *Service {
	return &Service{counters: counters, logger: logger, now: time.Now}
}

// RecordSearch counts one executed search for the tenant's current day.
func (s *Service) RecordSearch(ctx context.Context, tenantID, text string, resultCount int, tookMs int64) error {
	day := s.day()

	if err := s.counters.IncrMetric(ctx, tenantID, day, analytics.MetricSearches, 1); err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	if err := s.counters.IncrMetric(ctx, tenantID, day, analytics.MetricResultsSum, int64(resultCount)); err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	if resultCount == 0 {
		if err := s.counters.IncrMetric(ctx, tenantID, day, analytics.MetricZeroResults, 1); err != nil {
			return fmt.Errorf("record search: %w", err)
		}
	}

	s.logger.Debug("Recorded search event",
		zap.String("event_id", uuid.NewString()),
		zap.String("tenant", tenantID),
		zap.String("query", text),
		zap.Int("result_count", resultCount),
		zap.Int64("took_ms", tookMs),
	)
	return nil
}

// Track counts a client-reported interaction. A click is only counted when
// the client names the clicked record.
func (s *Service) Track(ctx context.Context, tenantID, text string, resultCount int, clickedResult string) error {
	if clickedResult == "" {
		s.logger.Debug("Tracked search without click",
			zap.String("tenant", tenantID),
			zap.String("query", text),
			zap.Int("result_count", resultCount),
		)
		return nil
	}

	if err := s.counters.IncrMetric(ctx, tenantID, s.day(), analytics.MetricClicks, 1); err != nil {
		return fmt.Errorf("track click: %w", err)
	}
	s.logger.Debug("Tracked result click",
		zap.String("tenant", tenantID),
		zap.String("query", text),
		zap.String("clicked_result", clickedResult),
	)
	return nil
}

// DayStats are one day's counters for a tenant.
type DayStats struct {
	Day         string `json:"day"`
	Searches    int64  `json:"searches"`
	ZeroResults int64  `json:"zeroResults"`
	Clicks      int64  `json:"clicks"`
}

// Stats aggregates a tenant's counters over a trailing window of days.
type Stats struct {
	TenantID       string     `json:"tenantId"`
	Days           int        `json:"days"`
	TotalSearches  int64      `json:"totalSearches"`
	ZeroResults    int64      `json:"zeroResults"`
	Clicks         int64      `json:"clicks"`
	AvgResultCount float64    `json:"avgResultCount"`
	Daily          []DayStats `json:"daily"`
}

// GetStats aggregates the trailing days of counters, newest day first.
// days is clamped to [1, maxStatsDays]; zero means defaultStatsDays.
func (s *Service) GetStats(ctx context.Context, tenantID string, days int) (*Stats, error) {
	if days <= 0 {
		days = defaultStatsDays
	}
	if days > maxStatsDays {
		days = maxStatsDays
	}

	stats := &Stats{TenantID: tenantID, Days: days, Daily: make([]DayStats, 0, days)}
	var resultsSum int64

	today := s.now().UTC()
	for d := 0; d < days; d++ {
		day := today.AddDate(0, 0, -d).Format(dayFormat)

		searches, err := s.counters.GetMetric(ctx, tenantID, day, analytics.MetricSearches)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", day, err)
		}
		zero, err := s.counters.GetMetric(ctx, tenantID, day, analytics.MetricZeroResults)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", day, err)
		}
		clicks, err := s.counters.GetMetric(ctx, tenantID, day, analytics.MetricClicks)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", day, err)
		}
		sum, err := s.counters.GetMetric(ctx, tenantID, day, analytics.MetricResultsSum)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", day, err)
		}

		stats.TotalSearches += searches
		stats.ZeroResults += zero
		stats.Clicks += clicks
		resultsSum += sum
		stats.Daily = append(stats.Daily, DayStats{
			Day: day, Searches: searches, ZeroResults: zero, Clicks: clicks,
		})
	}

	if stats.TotalSearches > 0 {
		stats.AvgResultCount = float64(resultsSum) / float64(stats.TotalSearches)
	}
	return stats, nil
}

func (s *Service) day() string {
	return s.now().UTC().Format(dayFormat)
}
