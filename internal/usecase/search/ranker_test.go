package search

import (
	"testing"
	"time"

	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/match"
)

func TestRankCandidates_MoreEvidenceRanksHigher(t *testing.T) {
	now := time.Now()
	candidates := []domain.Record{
		{ID: "one", TenantID: "t1", LastName: "A", UpdatedAt: now},
		{ID: "two", TenantID: "t1", LastName: "B", UpdatedAt: now},
	}
	evidence := []match.Evidence{
		{RecordID: "one", Field: match.FieldFirstName, Type: match.Exact, Score: 1.0},
		{RecordID: "two", Field: match.FieldFirstName, Type: match.Exact, Score: 1.0},
		{RecordID: "two", Field: match.FieldTitle, Type: match.Exact, Score: 1.0},
	}

	ranked := rankCandidates(candidates, evidence, match.DefaultWeights())
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked results, got %d", len(ranked))
	}
	if ranked[0].Record.ID != "two" {
		t.Errorf("expected the two-field match first, got %s", ranked[0].Record.ID)
	}
	if ranked[0].Rank <= ranked[1].Rank {
		t.Errorf("expected strictly higher rank: %v vs %v", ranked[0].Rank, ranked[1].Rank)
	}
}

func TestRankCandidates_StrategyWeighting(t *testing.T) {
	now := time.Now()
	candidates := []domain.Record{
		{ID: "exact", TenantID: "t1", UpdatedAt: now},
		{ID: "fuzzy", TenantID: "t1", UpdatedAt: now},
		{ID: "partial", TenantID: "t1", UpdatedAt: now},
	}
	evidence := []match.Evidence{
		{RecordID: "exact", Field: match.FieldFirstName, Type: match.Exact, Score: 1.0},
		{RecordID: "fuzzy", Field: match.FieldFirstName, Type: match.Fuzzy, Score: 1.0},
		{RecordID: "partial", Field: match.FieldFirstName, Type: match.Partial, Score: partialScore},
	}

	ranked := rankCandidates(candidates, evidence, match.DefaultWeights())
	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	order := []string{"exact", "fuzzy", "partial"}
	for i, want := range order {
		if ranked[i].Record.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ranked[i].Record.ID)
		}
	}
}

func TestRankCandidates_RankBounds(t *testing.T) {
	candidates := []domain.Record{{ID: "r", TenantID: "t1"}}
	var evidence []match.Evidence
	// Exact and fuzzy evidence on every field pushes the raw sum past the
	// normalizer. The rank must stay clamped.
	for _, f := range match.Fields {
		evidence = append(evidence,
			match.Evidence{RecordID: "r", Field: f, Type: match.Exact, Score: 1.0},
			match.Evidence{RecordID: "r", Field: f, Type: match.Fuzzy, Score: 1.0},
		)
	}

	ranked := rankCandidates(candidates, evidence, match.DefaultWeights())
	if len(ranked) != 1 {
		t.Fatalf("expected 1 result, got %d", len(ranked))
	}
	if ranked[0].Rank != 1.0 {
		t.Errorf("expected clamped rank 1.0, got %v", ranked[0].Rank)
	}
}

func TestRankCandidates_TieBreaks(t *testing.T) {
	now := time.Now()
	candidates := []domain.Record{
		{ID: "c", TenantID: "t1", LastName: "Young", UpdatedAt: now.Add(-time.Hour)},
		{ID: "a", TenantID: "t1", LastName: "older", UpdatedAt: now},
		{ID: "b", TenantID: "t1", LastName: "Older", UpdatedAt: now},
	}
	evidence := []match.Evidence{
		{RecordID: "a", Field: match.FieldFirstName, Type: match.Exact, Score: 1.0},
		{RecordID: "b", Field: match.FieldFirstName, Type: match.Exact, Score: 1.0},
		{RecordID: "c", Field: match.FieldFirstName, Type: match.Exact, Score: 1.0},
	}

	ranked := rankCandidates(candidates, evidence, match.DefaultWeights())
	// Same rank everywhere: newest updatedAt wins, then lastName
	// case-insensitively, then id.
	got := []string{ranked[0].Record.ID, ranked[1].Record.ID, ranked[2].Record.ID}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie-break order: got %v, want %v", got, want)
		}
	}
}

func TestRankCandidates_MatchTypeAndFields(t *testing.T) {
	candidates := []domain.Record{{ID: "r", TenantID: "t1"}}
	evidence := []match.Evidence{
		{RecordID: "r", Field: match.FieldBio, Type: match.Partial, Score: partialScore},
		{RecordID: "r", Field: match.FieldFirstName, Type: match.Fuzzy, Score: 0.8},
	}

	ranked := rankCandidates(candidates, evidence, match.DefaultWeights())
	if len(ranked) != 1 {
		t.Fatalf("expected 1 result, got %d", len(ranked))
	}
	if ranked[0].MatchType != match.Fuzzy {
		t.Errorf("expected the highest-confidence type fuzzy, got %s", ranked[0].MatchType)
	}
	fields := ranked[0].MatchedFields
	if len(fields) != 2 || fields[0] != match.FieldFirstName || fields[1] != match.FieldBio {
		t.Errorf("expected canonical field order [firstName bio], got %v", fields)
	}
}

func TestRankCandidates_EvidenceWithoutCandidate(t *testing.T) {
	evidence := []match.Evidence{
		{RecordID: "ghost", Field: match.FieldFirstName, Type: match.Exact, Score: 1.0},
	}
	if ranked := rankCandidates(nil, evidence, match.DefaultWeights()); len(ranked) != 0 {
		t.Errorf("expected no results for orphan evidence, got %d", len(ranked))
	}
}
