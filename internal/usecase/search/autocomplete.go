package search

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/staffdex/internal/domain"
)

// VocabType selects which vocabulary an autocomplete request draws from.
type VocabType string

// Autocomplete vocabularies.
const (
	VocabNames       VocabType = "names"
	VocabTitles      VocabType = "titles"
	VocabDepartments VocabType = "departments"
	VocabSkills      VocabType = "skills"
	VocabAll         VocabType = "all"
)

// IsValid checks if the vocabulary type is one of the supported values.
func (v VocabType) IsValid() bool {
	switch v {
	case VocabNames, VocabTitles, VocabDepartments, VocabSkills, VocabAll:
		return true
	default:
		return false
	}
}

// Autocomplete limits.
const (
	DefaultAutocompleteLimit = 5
	MaxAutocompleteLimit     = 20
)

// completionTerms collects the distinct display values for a vocabulary,
// preserving original casing and deduplicating case-insensitively.
func completionTerms(records []domain.Record, typ VocabType) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		key := strings.ToLower(term)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, term)
	}

	for i := range records {
		rec := &records[i]
		if typ == VocabNames || typ == VocabAll {
			add(rec.FirstName + " " + rec.LastName)
			add(rec.FirstName)
			add(rec.LastName)
		}
		if typ == VocabTitles || typ == VocabAll {
			add(rec.Title)
		}
		if typ == VocabDepartments || typ == VocabAll {
			add(rec.Department)
		}
		if typ == VocabSkills || typ == VocabAll {
			for _, s := range rec.Skills {
				add(s)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// complete returns up to limit terms for a fragment: prefix matches first in
// lexical order, then fuzzy fallback ordered by similarity. Results are
// already deduplicated by completionTerms.
func complete(fragment string, terms []string, fuzzyFloor float64, limit int) []string {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" || limit <= 0 {
		return nil
	}

	var out []string
	taken := make(map[string]bool)
	for _, term := range terms {
		if strings.HasPrefix(strings.ToLower(term), fragment) {
			out = append(out, term)
			taken[term] = true
			if len(out) == limit {
				return out
			}
		}
	}

	type scored struct {
		term string
		sim  float64
	}
	var fallback []scored
	for _, term := range terms {
		if taken[term] {
			continue
		}
		lower := strings.ToLower(term)
		sim := similarity(fragment, lower)
		for _, word := range strings.Fields(lower) {
			if s := similarity(fragment, word); s > sim {
				sim = s
			}
		}
		if sim >= fuzzyFloor {
			fallback = append(fallback, scored{term: term, sim: sim})
		}
	}

	sort.Slice(fallback, func(i, j int) bool {
		if fallback[i].sim != fallback[j].sim {
			return fallback[i].sim > fallback[j].sim
		}
		return strings.ToLower(fallback[i].term) < strings.ToLower(fallback[j].term)
	})

	for _, f := range fallback {
		out = append(out, f.term)
		if len(out) == limit {
			break
		}
	}
	return out
}
