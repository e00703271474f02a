package httpapi

import "encoding/json"

type createCriterionDTO struct {
	Family     string `json:"family" validate:"required,oneof=ENTRY IVI"`
	Kind       string `json:"kind" validate:"required,max=64"`
	Weight     *int   `json:"weight" validate:"required,min=0"`
	Modifiable bool   `json:"modifiable"`
	Text       string `json:"text" validate:"required"`
}

type updateCriterionDTO struct {
	Kind       *string `json:"kind" validate:"omitempty,min=1,max=64"`
	Weight     *int    `json:"weight" validate:"omitempty,min=0"`
	Modifiable *bool   `json:"modifiable"`
	Text       *string `json:"text" validate:"omitempty,min=1"`
}

type programDTO struct {
	Name               string `json:"name" validate:"required"`
	AllocatesSeats     bool   `json:"allocates_seats"`
	RequiresEntryIndex bool   `json:"requires_entry_index"`
	Active             *bool  `json:"active"`
}

type agentDTO struct {
	Name   string `json:"name" validate:"required"`
	Active *bool  `json:"active"`
}

type createBeneficiaryDTO struct {
	DocumentType   string `json:"document_type" validate:"required,max=16"`
	DocumentNumber string `json:"document_number" validate:"required,max=32"`
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	BirthDate      string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
}

type householdDTO struct {
	ToID             string `json:"to_id" validate:"required"`
	Kinship          string `json:"kinship" validate:"required"`
	Cohabits         bool   `json:"cohabits"`
	PrimaryCaregiver bool   `json:"primary_caregiver"`
	Quality          string `json:"quality" validate:"required"`
}

type createDerivationDTO struct {
	BeneficiaryID   string `json:"beneficiary_id" validate:"required"`
	SourceProgramID string `json:"source_program_id"`
	TargetProgramID string `json:"target_program_id" validate:"required"`
	Priority        string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Notes           string `json:"notes"`
}

type acceptDTO struct {
	Payload json.RawMessage `json:"payload"`
}

type rejectDTO struct {
	Reason string `json:"reason" validate:"required"`
	Notes  string `json:"notes"`
}

type notesDTO struct {
	Notes string `json:"notes"`
}

type finalizeDTO struct {
	Decision string `json:"decision" validate:"required,oneof=ADMIT DECLINE"`
}

type createSnapshotDTO struct {
	Family       string   `json:"family" validate:"required,oneof=ENTRY IVI"`
	Phase        string   `json:"phase" validate:"required,oneof=ENTRY EXIT"`
	CriterionIDs []string `json:"criterion_ids" validate:"dive,required"`
	Notes        string   `json:"notes"`
}

type rewriteSnapshotDTO struct {
	CriterionIDs    []string `json:"criterion_ids" validate:"dive,required"`
	Notes           string   `json:"notes"`
	ExpectedVersion int      `json:"expected_version" validate:"min=0"`
}

type exitDTO struct {
	CriterionIDs []string `json:"criterion_ids" validate:"dive,required"`
	Notes        string   `json:"notes"`
}

type slotKeyDTO struct {
	Centre string `json:"centre" validate:"required"`
	Sala   string `json:"sala" validate:"required"`
	Shift  string `json:"shift" validate:"required"`
}

type assignSlotDTO struct {
	slotKeyDTO
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

type transferSlotDTO struct {
	To      slotKeyDTO `json:"to"`
	EndDate string     `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason  string     `json:"reason" validate:"required"`
	Notes   string     `json:"notes"`
}

type slotPoolDTO struct {
	slotKeyDTO
	Capacity *int `json:"capacity" validate:"required,min=0"`
}

type interventionDTO struct {
	CriterionID  string   `json:"criterion_id" validate:"required"`
	ActionTag    string   `json:"action_tag" validate:"required"`
	Responsibles []string `json:"responsibles" validate:"min=1,dive,required"`
	Impact       string   `json:"impact" validate:"required,oneof=WORKED REVERTED"`
	Notes        string   `json:"notes"`
}
