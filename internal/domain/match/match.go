// Package match defines the matching strategies, searchable fields, and the
// per-field evidence produced by the matching engine.
package match

// Type is the matching strategy that produced a piece of evidence.
type Type string

// Matching strategies, in decreasing strictness.
const (
	Exact   Type = "exact"
	Fuzzy   Type = "fuzzy"
	Partial Type = "partial"
)

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	return t == Exact || t == Fuzzy || t == Partial
}

// Confidence orders strategies by strictness: exact > fuzzy > partial.
// Used to pick the reported match type for a record.
func (t Type) Confidence() int {
	switch t {
	case Exact:
		return 3
	case Fuzzy:
		return 2
	case Partial:
		return 1
	default:
		return 0
	}
}

// Field is a searchable record field.
type Field string

// Searchable fields.
const (
	FieldFirstName  Field = "firstName"
	FieldLastName   Field = "lastName"
	FieldTitle      Field = "title"
	FieldDepartment Field = "department"
	FieldSkills     Field = "skills"
	FieldBio        Field = "bio"
)

// Fields lists every searchable field in the canonical output order.
// Matched-field lists are always reported in this order.
var Fields = []Field{
	FieldFirstName, FieldLastName, FieldTitle,
	FieldDepartment, FieldSkills, FieldBio,
}

// Evidence is one successful (field, strategy) hit for a record.
// A record accumulates at most one Evidence per field per strategy.
type Evidence struct {
	RecordID string
	Field    Field
	Type     Type
	Score    float64
}

// Weights are the per-strategy multipliers used by the score combiner.
type Weights struct {
	Exact   float64
	Fuzzy   float64
	Partial float64
}

// DefaultWeights returns the baseline strategy weights.
func DefaultWeights() Weights {
	return Weights{Exact: 1.0, Fuzzy: 0.6, Partial: 0.3}
}

// ForType returns the weight for the given strategy.
func (w Weights) ForType(t Type) float64 {
	switch t {
	case Exact:
		return w.Exact
	case Fuzzy:
		return w.Fuzzy
	case Partial:
		return w.Partial
	default:
		return 0
	}
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w.Exact == 0 && w.Fuzzy == 0 && w.Partial == 0
}
