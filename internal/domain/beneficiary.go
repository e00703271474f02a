package domain

import (
	"strings"
	"time"
)

// Beneficiary is a tracked individual (a "legajo"), unique by document key.
type Beneficiary struct {
	ID             string     `db:"beneficiary_id" json:"id"`
	DocumentType   string     `db:"document_type" json:"document_type"`
	DocumentNumber string     `db:"document_number" json:"document_number"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Active         bool       `db:"active" json:"active"`
	CreatedBy      string     `db:"created_by" json:"created_by"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// NormalizeDocument canonicalises a document key for uniqueness checks.
func NormalizeDocument(docType, docNumber string) (string, string) {
	docNumber = strings.NewReplacer(".", "", "-", "", " ", "").Replace(strings.TrimSpace(docNumber))
	return strings.ToUpper(strings.TrimSpace(docType)), docNumber
}

// IsMinorAt reports whether the beneficiary is under 18 at t. Unknown birth date is not a minor.
func (b *Beneficiary) IsMinorAt(t time.Time) bool {
	if b.BirthDate == nil {
		return false
	}
	return b.BirthDate.AddDate(18, 0, 0).After(t)
}

// Kinship describes what FromID is to ToID in a household link.
type Kinship string

const (
	KinshipParent        Kinship = "parent"
	KinshipChild         Kinship = "child"
	KinshipGrandparent   Kinship = "grandparent"
	KinshipGrandchild    Kinship = "grandchild"
	KinshipSibling       Kinship = "sibling"
	KinshipPartner       Kinship = "partner"
	KinshipUncleAunt     Kinship = "uncle_aunt"
	KinshipNephewNiece   Kinship = "nephew_niece"
	KinshipGuardian      Kinship = "guardian"
	KinshipWard          Kinship = "ward"
	KinshipOtherRelative Kinship = "other_relative"
	KinshipNonRelative   Kinship = "non_relative"
)

var kinshipInverse = map[Kinship]Kinship{
	KinshipParent:        KinshipChild,
	KinshipChild:         KinshipParent,
	KinshipGrandparent:   KinshipGrandchild,
	KinshipGrandchild:    KinshipGrandparent,
	KinshipSibling:       KinshipSibling,
	KinshipPartner:       KinshipPartner,
	KinshipUncleAunt:     KinshipNephewNiece,
	KinshipNephewNiece:   KinshipUncleAunt,
	KinshipGuardian:      KinshipWard,
	KinshipWard:          KinshipGuardian,
	KinshipOtherRelative: KinshipOtherRelative,
	KinshipNonRelative:   KinshipNonRelative,
}

// Valid reports whether k belongs to the closed kinship taxonomy.
func (k Kinship) Valid() bool {
	_, ok := kinshipInverse[k]
	return ok
}

// Inverse returns the kinship seen from the other side of the link.
func (k Kinship) Inverse() Kinship {
	return kinshipInverse[k]
}

// RelationshipQuality tags how the two members get along.
type RelationshipQuality string

const (
	QualityGood        RelationshipQuality = "good"
	QualityRegular     RelationshipQuality = "regular"
	QualityConflictive RelationshipQuality = "conflictive"
	QualityNoContact   RelationshipQuality = "no_contact"
)

// Valid reports whether q belongs to the closed quality taxonomy.
func (q RelationshipQuality) Valid() bool {
	switch q {
	case QualityGood, QualityRegular, QualityConflictive, QualityNoContact:
		return true
	}
	return false
}

// HouseholdLink relates two beneficiaries. FromID is <Kinship> of ToID;
// PrimaryCaregiver means FromID is the primary caregiver of ToID.
type HouseholdLink struct {
	ID               string              `json:"id"`
	FromID           string              `json:"from_id"`
	ToID             string              `json:"to_id"`
	Kinship          Kinship             `json:"kinship"`
	Cohabits         bool                `json:"cohabits"`
	PrimaryCaregiver bool                `json:"primary_caregiver"`
	Quality          RelationshipQuality `json:"quality"`
	CreatedBy        string              `json:"created_by"`
	CreatedAt        time.Time           `json:"created_at"`
}

// OrientedFrom returns the link as seen from beneficiaryID: FromID == beneficiaryID.
// PrimaryCaregiver is kept as stored and only meaningful in the stored orientation,
// so CaregiverOf tells the caller who cares for whom.
func (l HouseholdLink) OrientedFrom(beneficiaryID string) HouseholdLink {
	if l.FromID == beneficiaryID {
		return l
	}
	out := l
	out.FromID, out.ToID = l.ToID, l.FromID
	out.Kinship = l.Kinship.Inverse()
	return out
}

// PairKey is the unordered identity of the link.
func PairKey(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}
