package search

import (
	"strings"

	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/match"
	"github.com/kailas-cloud/staffdex/internal/domain/search/query"
)

// partialScore is the raw field score for a partial hit.
const partialScore = 0.5

// minPartialPrefix is the shared-prefix length that counts as a partial hit.
const minPartialPrefix = 3

// fieldValues returns the searchable values of one field, lowercased.
// Scalar fields carry a single value; skills carry one value per entry.
func fieldValues(rec *domain.Record, f match.Field) []string {
	switch f {
	case match.FieldFirstName:
		return []string{strings.ToLower(rec.FirstName)}
	case match.FieldLastName:
		return []string{strings.ToLower(rec.LastName)}
	case match.FieldTitle:
		return []string{strings.ToLower(rec.Title)}
	case match.FieldDepartment:
		return []string{strings.ToLower(rec.Department)}
	case match.FieldSkills:
		out := make([]string, 0, len(rec.Skills))
		for _, s := range rec.Skills {
			out = append(out, strings.ToLower(s))
		}
		return out
	case match.FieldBio:
		return []string{strings.ToLower(rec.Bio)}
	default:
		return nil
	}
}

// matchCandidates evaluates every candidate against the query and returns the
// accumulated evidence. Candidates with zero evidence produce nothing and are
// thereby excluded from results entirely.
func matchCandidates(candidates []domain.Record, q *query.Query) []match.Evidence {
	var out []match.Evidence
	for i := range candidates {
		out = append(out, evaluateRecord(&candidates[i], q)...)
	}
	return out
}

// evaluateRecord applies the three strategies to every searchable field, in
// the fixed precedence exact, fuzzy, partial. At most one evidence entry is
// emitted per field per strategy. An exact hit on a field rules out a partial
// hit on that same field; fuzzy evidence is independent.
func evaluateRecord(rec *domain.Record, q *query.Query) []match.Evidence {
	var out []match.Evidence
	for _, f := range match.Fields {
		values := fieldValues(rec, f)
		if len(values) == 0 {
			continue
		}

		exact := matchExact(f, values, q)
		if exact {
			out = append(out, match.Evidence{
				RecordID: rec.ID, Field: f, Type: match.Exact, Score: 1.0,
			})
		}

		if sim := matchFuzzy(values, q); sim >= q.FuzzyThreshold() {
			out = append(out, match.Evidence{
				RecordID: rec.ID, Field: f, Type: match.Fuzzy, Score: sim,
			})
		}

		if !exact && matchPartial(values, q) {
			out = append(out, match.Evidence{
				RecordID: rec.ID, Field: f, Type: match.Partial, Score: partialScore,
			})
		}
	}
	return out
}

// matchExact reports a case-insensitive containment of any full query token
// inside the field value. For skills the whole entry must match a token or
// the full query text.
func matchExact(f match.Field, values []string, q *query.Query) bool {
	if f == match.FieldSkills {
		for _, skill := range values {
			if skill == q.Text() {
				return true
			}
			for _, tok := range q.Tokens() {
				if skill == tok {
					return true
				}
			}
		}
		return false
	}

	for _, v := range values {
		for _, tok := range q.Tokens() {
			if strings.Contains(v, tok) {
				return true
			}
		}
	}
	return false
}

// matchFuzzy returns the best edit-distance similarity between any query
// token and any token of the field values.
func matchFuzzy(values []string, q *query.Query) float64 {
	var best float64
	for _, v := range values {
		for _, vtok := range query.Tokenize(v) {
			for _, tok := range q.Tokens() {
				if sim := similarity(tok, vtok); sim > best {
					best = sim
				}
			}
		}
	}
	return best
}

// matchPartial reports a prefix or reverse-containment overlap that exact
// matching did not already capture: a field token inside a query token, or a
// shared prefix of at least minPartialPrefix bytes.
func matchPartial(values []string, q *query.Query) bool {
	for _, v := range values {
		for _, vtok := range query.Tokenize(v) {
			for _, tok := range q.Tokens() {
				if len(vtok) >= 2 && strings.Contains(tok, vtok) {
					return true
				}
				if commonPrefixLen(tok, vtok) >= minPartialPrefix {
					return true
				}
			}
		}
	}
	return false
}
