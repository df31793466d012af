package search

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/match"
	"github.com/kailas-cloud/staffdex/internal/domain/search/result"
)

// rankCandidates combines per-record evidence into one ordered result list.
//
// rank = sum(fieldScore * strategyWeight) / (numFields * exactWeight), clamped
// to [0,1], so a record matching every field exactly scores 1.0. Ties break by
// updatedAt descending, then lastName ascending, then id ascending, which
// makes the ordering a deterministic total order.
func rankCandidates(candidates []domain.Record, evidence []match.Evidence, w match.Weights) []result.Ranked {
	byID := make(map[string]*domain.Record, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	grouped := make(map[string][]match.Evidence)
	for _, ev := range evidence {
		grouped[ev.RecordID] = append(grouped[ev.RecordID], ev)
	}

	norm := float64(len(match.Fields)) * w.Exact
	if norm <= 0 {
		norm = 1
	}

	ranked := make([]result.Ranked, 0, len(grouped))
	for id, evs := range grouped {
		rec, ok := byID[id]
		if !ok {
			continue
		}

		var score float64
		best := match.Type("")
		seen := make(map[match.Field]bool)
		for _, ev := range evs {
			score += ev.Score * w.ForType(ev.Type)
			if ev.Type.Confidence() > best.Confidence() {
				best = ev.Type
			}
			seen[ev.Field] = true
		}

		score /= norm
		if score > 1 {
			score = 1
		}
		if score < 0 {
			score = 0
		}

		ranked = append(ranked, result.Ranked{
			Record:        *rec,
			Rank:          score,
			MatchType:     best,
			MatchedFields: orderedFields(seen),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := &ranked[i], &ranked[j]
		if a.Rank != b.Rank {
			return a.Rank > b.Rank
		}
		if !a.Record.UpdatedAt.Equal(b.Record.UpdatedAt) {
			return a.Record.UpdatedAt.After(b.Record.UpdatedAt)
		}
		al, bl := strings.ToLower(a.Record.LastName), strings.ToLower(b.Record.LastName)
		if al != bl {
			return al < bl
		}
		return a.Record.ID < b.Record.ID
	})

	return ranked
}

// orderedFields renders the contributing fields in the canonical field order.
func orderedFields(seen map[match.Field]bool) []match.Field {
	out := make([]match.Field, 0, len(seen))
	for _, f := range match.Fields {
		if seen[f] {
			out = append(out, f)
		}
	}
	return out
}
