package domain

import (
	"strings"
	"time"
)

// Standard salas and shifts. Any other value is accepted as an opaque tag.
const (
	SalaInfants = "infants"
	SalaTwo     = "2"
	SalaThree   = "3"

	ShiftMorning   = "morning"
	ShiftAfternoon = "afternoon"
)

// StandardSalas and StandardShifts list the reference pairs used by seeds and exports.
var (
	StandardSalas  = []string{SalaInfants, SalaTwo, SalaThree}
	StandardShifts = []string{ShiftMorning, ShiftAfternoon}
)

// SlotKey identifies a pool.
type SlotKey struct {
	Centre string `json:"centre" yaml:"centre"`
	Sala   string `json:"sala" yaml:"sala"`
	Shift  string `json:"shift" yaml:"shift"`
}

func (k SlotKey) String() string {
	return k.Centre + ":" + k.Sala + ":" + k.Shift
}

func (k SlotKey) Valid() bool {
	return strings.TrimSpace(k.Centre) != "" && strings.TrimSpace(k.Sala) != "" && strings.TrimSpace(k.Shift) != ""
}

// LockKey is the serialisation key of the pool.
func (k SlotKey) LockKey() string {
	return "pool:" + k.String()
}

// SlotPool holds the configured capacity of a pool.
type SlotPool struct {
	SlotKey
	Capacity  int       `json:"capacity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PoolOccupancy is the derived view of a pool.
type PoolOccupancy struct {
	SlotKey
	Capacity      int `json:"capacity"`
	AssignedCount int `json:"assigned_count"`
	WaitlistCount int `json:"waitlist_count"`
	Free          int `json:"free"`
}

// NewOccupancy derives Free, clamped at zero.
func NewOccupancy(p SlotPool, assigned, waitlist int) PoolOccupancy {
	free := p.Capacity - assigned
	if free < 0 {
		free = 0
	}
	return PoolOccupancy{SlotKey: p.SlotKey, Capacity: p.Capacity, AssignedCount: assigned, WaitlistCount: waitlist, Free: free}
}

type AllocationStatus string

const (
	AllocAssigned AllocationStatus = "ASSIGNED"
	AllocChanged  AllocationStatus = "CHANGED"
	AllocReleased AllocationStatus = "RELEASED"
)

type TransferReason string

const (
	TransferFamilyMove        TransferReason = "family_move"
	TransferScheduleChange    TransferReason = "schedule_change"
	TransferAgeProgression    TransferReason = "age_progression"
	TransferCapacityRebalance TransferReason = "capacity_rebalance"
	TransferOther             TransferReason = "other"
)

func (r TransferReason) Valid() bool {
	switch r {
	case TransferFamilyMove, TransferScheduleChange, TransferAgeProgression, TransferCapacityRebalance, TransferOther:
		return true
	}
	return false
}

// Allocation binds an admission to a pool for a period.
type Allocation struct {
	ID          string `json:"id"`
	AdmissionID string `json:"admission_id"`
	SlotKey
	State          AllocationStatus `json:"state"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	TransferReason TransferReason   `json:"transfer_reason,omitempty"`
	TransferNotes  string           `json:"transfer_notes,omitempty"`
	CreatedBy      string           `json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Day truncates t to a calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
