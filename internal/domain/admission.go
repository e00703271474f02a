package domain

import "time"

type AdmissionState string

const (
	AdmissionActive   AdmissionState = "ACTIVE"
	AdmissionInactive AdmissionState = "INACTIVE"
)

type AllocationState string

const (
	AllocationWaitlist AllocationState = "WAITLIST"
	AllocationAssigned AllocationState = "ASSIGNED"
	AllocationNA       AllocationState = "N/A"
)

// Admission is an active case inside a program. RequestedPool is set for seat programs
// from the pre-admission payload and drives the waitlist.
type Admission struct {
	ID              string          `json:"id"`
	PreAdmissionID  string          `json:"pre_admission_id"`
	DerivationID    string          `json:"derivation_id"`
	BeneficiaryID   string          `json:"beneficiary_id"`
	ProgramID       string          `json:"program_id"`
	State           AdmissionState  `json:"state"`
	AllocationState AllocationState `json:"allocation_state"`
	RequestedPool   *SlotKey        `json:"requested_pool,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	ClosedBy        string          `json:"closed_by,omitempty"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
}

// AdmissionLockKey serialises intervention writes of an admission.
func AdmissionLockKey(id string) string {
	return "admission:" + id
}
