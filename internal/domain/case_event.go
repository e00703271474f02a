package domain

import "time"

type EventKind string

const (
	EventAcceptedToPreadm    EventKind = "ACCEPTED_TO_PREADM"
	EventPreadmFinalized     EventKind = "PREADM_FINALIZED"
	EventIVICreated          EventKind = "IVI_CREATED"
	EventIVIUpdated          EventKind = "IVI_UPDATED"
	EventEntryIndexCreated   EventKind = "ENTRY_INDEX_CREATED"
	EventEntryIndexUpdated   EventKind = "ENTRY_INDEX_UPDATED"
	EventAdmitted            EventKind = "ADMITTED"
	EventSlotAssigned        EventKind = "SLOT_ASSIGNED"
	EventSlotChanged         EventKind = "SLOT_CHANGED"
	EventInterventionCreated EventKind = "INTERVENTION_CREATED"
	EventInterventionUpdated EventKind = "INTERVENTION_UPDATED"
	EventExitIVI             EventKind = "EXIT_IVI"
	EventClosed              EventKind = "CLOSED"
	EventDerivationCreated   EventKind = "DERIVATION_CREATED"
	EventDerivationReviewed  EventKind = "DERIVATION_REVIEWED"
	EventDerivationAdvised   EventKind = "DERIVATION_ADVISED"
	EventPreadmDeleted       EventKind = "PREADM_DELETED"
	EventSlotReleased        EventKind = "SLOT_RELEASED"
	EventInterventionDeleted EventKind = "INTERVENTION_DELETED"
)

// AllEventKinds is used by metrics and the dashboard.
var AllEventKinds = []EventKind{
	EventDerivationCreated, EventDerivationReviewed, EventDerivationAdvised, EventAcceptedToPreadm,
	EventPreadmDeleted, EventPreadmFinalized, EventIVICreated, EventIVIUpdated, EventEntryIndexCreated,
	EventEntryIndexUpdated, EventAdmitted, EventSlotAssigned, EventSlotChanged, EventSlotReleased,
	EventInterventionCreated, EventInterventionUpdated, EventInterventionDeleted, EventExitIVI, EventClosed,
}

// CaseEvent is an append-only audit record. Seq is assigned by the store in commit order.
type CaseEvent struct {
	Seq            int64     `json:"seq"`
	ID             string    `json:"id"`
	BeneficiaryID  string    `json:"beneficiary_id"`
	ProgramID      string    `json:"program_id,omitempty"`
	DerivationID   string    `json:"derivation_id,omitempty"`
	PreAdmissionID string    `json:"pre_admission_id,omitempty"`
	AdmissionID    string    `json:"admission_id,omitempty"`
	Kind           EventKind `json:"kind"`
	Actor          string    `json:"actor"`
	At             time.Time `json:"at"`
	FreeText       string    `json:"free_text,omitempty"`
}

// EventFilter narrows the pull API. AfterSeq is exclusive.
type EventFilter struct {
	BeneficiaryID  string
	DerivationID   string
	PreAdmissionID string
	AdmissionID    string
	Kind           EventKind
	AfterSeq       int64
	Limit          int
}

// Matches applies the filter to one event.
func (f EventFilter) Matches(e *CaseEvent) bool {
	if f.BeneficiaryID != "" && e.BeneficiaryID != f.BeneficiaryID {
		return false
	}
	if f.DerivationID != "" && e.DerivationID != f.DerivationID {
		return false
	}
	if f.PreAdmissionID != "" && e.PreAdmissionID != f.PreAdmissionID {
		return false
	}
	if f.AdmissionID != "" && e.AdmissionID != f.AdmissionID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	return e.Seq > f.AfterSeq
}
