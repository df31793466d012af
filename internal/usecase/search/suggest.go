package search

import (
	"sort"

	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/search/query"
)

// maxSuggestions caps the "did you mean" list.
const maxSuggestions = 5

// vocabulary collects the distinct lowercased tokens of names, titles,
// departments, and skills across the tenant's records, sorted.
func vocabulary(records []domain.Record) []string {
	seen := make(map[string]bool)
	add := func(text string) {
		for _, tok := range query.Tokenize(text) {
			seen[tok] = true
		}
	}

	for i := range records {
		rec := &records[i]
		add(rec.FirstName)
		add(rec.LastName)
		add(rec.Title)
		add(rec.Department)
		for _, s := range rec.Skills {
			add(s)
		}
	}

	out := make([]string, 0, len(seen))
	for term := range seen {
		out = append(out, term)
	}
	sort.Strings(out)
	return out
}

// suggestTerms returns up to limit vocabulary terms similar to any query
// token, above floor, ordered by similarity descending then lexically. Terms
// the query already contains are never suggested back.
func suggestTerms(tokens []string, vocab []string, floor float64, limit int) []string {
	if len(tokens) == 0 || limit <= 0 {
		return nil
	}
	if limit > maxSuggestions {
		limit = maxSuggestions
	}

	queryHas := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		queryHas[tok] = true
	}

	type scored struct {
		term string
		sim  float64
	}
	var hits []scored
	for _, term := range vocab {
		if queryHas[term] {
			continue
		}
		var best float64
		for _, tok := range tokens {
			if sim := similarity(tok, term); sim > best {
				best = sim
			}
		}
		if best >= floor {
			hits = append(hits, scored{term: term, sim: best})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].sim != hits[j].sim {
			return hits[i].sim > hits[j].sim
		}
		return hits[i].term < hits[j].term
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.term
	}
	return out
}
