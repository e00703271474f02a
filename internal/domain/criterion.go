package domain

import "time"

// CriterionFamily separates entry-index criteria from vulnerability-index (IVI) criteria.
type CriterionFamily string

const (
	FamilyEntry CriterionFamily = "ENTRY"
	FamilyIVI   CriterionFamily = "IVI"
)

// Valid reports whether f is a known family.
func (f CriterionFamily) Valid() bool {
	return f == FamilyEntry || f == FamilyIVI
}

// MaxEntryWeight bounds entry-index weights.
const MaxEntryWeight = 10

// Criterion is one catalog entry.
type Criterion struct {
	ID         string          `db:"criterion_id" json:"id"`
	Family     CriterionFamily `db:"family" json:"family"`
	Kind       string          `db:"kind" json:"kind"`
	Weight     int             `db:"weight" json:"weight"`
	Modifiable bool            `db:"modifiable" json:"modifiable"`
	Text       string          `db:"text" json:"text"`
	Active     bool            `db:"active" json:"active"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// ValidateWeight checks the weight domain of the family.
func ValidateWeight(f CriterionFamily, w int) error {
	if w < 0 {
		return Errorf(KindInvalidInput, "weight must be non-negative, got %d", w)
	}
	if f == FamilyEntry && w > MaxEntryWeight {
		return Errorf(KindInvalidInput, "entry weight must be in [0,%d], got %d", MaxEntryWeight, w)
	}
	return nil
}

// CriteriaFilter narrows ListCriteria.
type CriteriaFilter struct {
	Family          CriterionFamily
	Kind            string
	Modifiable      *bool
	IncludeInactive bool
}
