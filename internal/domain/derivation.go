package domain

import (
	"encoding/json"
	"time"
)

type DerivationState string

const (
	DerivationPending     DerivationState = "PENDING"
	DerivationUnderReview DerivationState = "UNDER_REVIEW"
	DerivationAccepted    DerivationState = "ACCEPTED"
	DerivationAdvisory    DerivationState = "ADVISORY"
	DerivationRejected    DerivationState = "REJECTED"
	DerivationClosed      DerivationState = "CLOSED"
)

// Terminal reports whether no further derivation transition is possible.
// ACCEPTED is terminal for the derivation itself; the case continues in its PreAdmission.
func (s DerivationState) Terminal() bool {
	switch s {
	case DerivationAccepted, DerivationAdvisory, DerivationRejected, DerivationClosed:
		return true
	}
	return false
}

// Open reports whether the derivation can still be reviewed, accepted, rejected, advised or closed.
func (s DerivationState) Open() bool {
	return s == DerivationPending || s == DerivationUnderReview
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type RejectionReason string

const (
	RejectOutOfAgeRange           RejectionReason = "out_of_age_range"
	RejectOutOfTerritory          RejectionReason = "out_of_territory"
	RejectDuplicateCase           RejectionReason = "duplicate_case"
	RejectInsufficientInformation RejectionReason = "insufficient_information"
	RejectNotApplicable           RejectionReason = "not_applicable"
	RejectDeclinedByFamily        RejectionReason = "declined_by_family"
	RejectOther                   RejectionReason = "other"
)

func (r RejectionReason) Valid() bool {
	switch r {
	case RejectOutOfAgeRange, RejectOutOfTerritory, RejectDuplicateCase, RejectInsufficientInformation,
		RejectNotApplicable, RejectDeclinedByFamily, RejectOther:
		return true
	}
	return false
}

// Derivation routes a beneficiary from one program to another.
type Derivation struct {
	ID              string          `json:"id"`
	BeneficiaryID   string          `json:"beneficiary_id"`
	SourceProgramID string          `json:"source_program_id"`
	TargetProgramID string          `json:"target_program_id"`
	Priority        Priority        `json:"priority"`
	State           DerivationState `json:"state"`
	RejectionReason RejectionReason `json:"rejection_reason,omitempty"`
	RejectionDate   *time.Time      `json:"rejection_date,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedBy       string          `json:"updated_by,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DerivationFilter narrows ListDerivations. Zero fields are ignored.
type DerivationFilter struct {
	BeneficiaryID   string
	TargetProgramID string
	State           DerivationState
	Limit           int
}

// CaseLockKey is the serialisation key of the (beneficiary, program) case scope.
func CaseLockKey(beneficiaryID, programID string) string {
	return "case:" + beneficiaryID + ":" + programID
}

// Payload is the program-specific blob carried by a PreAdmission.
type Payload = json.RawMessage
