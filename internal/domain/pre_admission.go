package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type PreAdmissionState string

const (
	PreAdmissionInProgress PreAdmissionState = "IN_PROGRESS"
	PreAdmissionFinalized  PreAdmissionState = "FINALIZED"
)

type Decision string

const (
	DecisionAdmit   Decision = "ADMIT"
	DecisionDecline Decision = "DECLINE"
)

func (d Decision) Valid() bool {
	return d == DecisionAdmit || d == DecisionDecline
}

// PreAdmission is the evaluation phase opened by accepting a derivation.
// Admitted is nil until finalized.
type PreAdmission struct {
	ID            string            `json:"id"`
	DerivationID  string            `json:"derivation_id"`
	BeneficiaryID string            `json:"beneficiary_id"`
	ProgramID     string            `json:"program_id"`
	State         PreAdmissionState `json:"state"`
	Payload       Payload           `json:"payload,omitempty"`
	HasIVI        bool              `json:"has_ivi"`
	HasEntryIndex bool              `json:"has_entry_index"`
	Admitted      *bool             `json:"admitted"`
	CreatedBy     string            `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
	FinalizedBy   string            `json:"finalized_by,omitempty"`
	FinalizedAt   *time.Time        `json:"finalized_at,omitempty"`
}

// RequestedPool reads the centre/sala/shift keys from the payload. ok is false if any is missing.
func (p *PreAdmission) RequestedPool() (SlotKey, bool) {
	return PoolFromPayload(p.Payload)
}

// PoolFromPayload extracts the requested slot pool from a program payload.
func PoolFromPayload(payload Payload) (SlotKey, bool) {
	if len(payload) == 0 {
		return SlotKey{}, false
	}
	var v struct {
		Centre string `json:"centre"`
		Sala   string `json:"sala"`
		Shift  string `json:"shift"`
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return SlotKey{}, false
	}
	k := SlotKey{Centre: strings.TrimSpace(v.Centre), Sala: strings.TrimSpace(v.Sala), Shift: strings.TrimSpace(v.Shift)}
	if k.Centre == "" || k.Sala == "" || k.Shift == "" {
		return SlotKey{}, false
	}
	return k, true
}

// PreAdmissionLockKey serialises snapshot creation for a pre-admission.
func PreAdmissionLockKey(id string) string {
	return "preadm:" + id
}
