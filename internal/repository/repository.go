package repository

import (
	"context"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
)

// BeneficiaryRepository persists beneficiaries and their household links.
type BeneficiaryRepository interface {
	GetBeneficiary(ctx context.Context, id string) (*domain.Beneficiary, error)
	GetBeneficiaryByDocument(ctx context.Context, docType, docNumber string) (*domain.Beneficiary, error)
	InsertBeneficiary(ctx context.Context, b *domain.Beneficiary) error
	SetBeneficiaryActive(ctx context.Context, id string, active bool) error

	ListHouseholdLinks(ctx context.Context, beneficiaryID string) ([]domain.HouseholdLink, error)
	InsertHouseholdLink(ctx context.Context, l *domain.HouseholdLink) error
}

// CatalogRepository covers the configuration read by the VAAC: criteria, programs and responsible agents.
type CatalogRepository interface {
	GetCriterion(ctx context.Context, id string) (*domain.Criterion, error)
	ListCriteria(ctx context.Context, family domain.CriterionFamily, filter domain.CriteriaFilter) ([]domain.Criterion, error)
	InsertCriterion(ctx context.Context, c *domain.Criterion) error
	UpdateCriterion(ctx context.Context, c *domain.Criterion) error

	GetProgram(ctx context.Context, id string) (*domain.Program, error)
	ListPrograms(ctx context.Context) ([]domain.Program, error)
	UpsertProgram(ctx context.Context, p *domain.Program) error

	ListResponsibleAgents(ctx context.Context, activeOnly bool) ([]domain.ResponsibleAgent, error)
	UpsertResponsibleAgent(ctx context.Context, a *domain.ResponsibleAgent) error
}

// CaseRepository persists the state machine aggregates.
type CaseRepository interface {
	GetDerivation(ctx context.Context, id string) (*domain.Derivation, error)
	ListDerivations(ctx context.Context, filter domain.DerivationFilter) ([]domain.Derivation, error)
	// FindOpenDerivation returns the PENDING/UNDER_REVIEW derivation of the pair, or nil.
	FindOpenDerivation(ctx context.Context, beneficiaryID, targetProgramID string) (*domain.Derivation, error)
	InsertDerivation(ctx context.Context, d *domain.Derivation) error
	UpdateDerivation(ctx context.Context, d *domain.Derivation) error
	DeleteDerivation(ctx context.Context, id string) error

	GetPreAdmission(ctx context.Context, id string) (*domain.PreAdmission, error)
	InsertPreAdmission(ctx context.Context, p *domain.PreAdmission) error
	UpdatePreAdmission(ctx context.Context, p *domain.PreAdmission) error
	DeletePreAdmission(ctx context.Context, id string) error

	GetAdmission(ctx context.Context, id string) (*domain.Admission, error)
	GetAdmissionByPreAdmission(ctx context.Context, preAdmissionID string) (*domain.Admission, error)
	InsertAdmission(ctx context.Context, a *domain.Admission) error
	UpdateAdmission(ctx context.Context, a *domain.Admission) error
}

// SnapshotRepository persists assessment snapshots with their items and frames.
type SnapshotRepository interface {
	GetSnapshot(ctx context.Context, key string) (*domain.AssessmentSnapshot, error)
	// ListSnapshots returns the snapshots of a pre-admission ordered by created_at.
	ListSnapshots(ctx context.Context, preAdmissionID string) ([]domain.AssessmentSnapshot, error)
	InsertSnapshot(ctx context.Context, s *domain.AssessmentSnapshot) error
	// ReplaceSnapshotItems swaps the item set and header fields of an existing snapshot.
	ReplaceSnapshotItems(ctx context.Context, s *domain.AssessmentSnapshot) error
	DeleteSnapshots(ctx context.Context, preAdmissionID string) error
}

// SlotRepository persists pools and allocations. Counts are derived on every call.
type SlotRepository interface {
	GetSlotPool(ctx context.Context, key domain.SlotKey) (*domain.SlotPool, error)
	ListSlotPools(ctx context.Context) ([]domain.SlotPool, error)
	UpsertSlotPool(ctx context.Context, p *domain.SlotPool) error

	CountAssigned(ctx context.Context, key domain.SlotKey) (int, error)
	CountWaitlist(ctx context.Context, key domain.SlotKey) (int, error)
	// ListWaitlist returns ACTIVE admissions waiting for key ordered by created_at.
	ListWaitlist(ctx context.Context, key domain.SlotKey) ([]domain.Admission, error)

	// GetAssignedAllocation returns the ASSIGNED allocation of the admission, or nil.
	GetAssignedAllocation(ctx context.Context, admissionID string) (*domain.Allocation, error)
	ListAllocations(ctx context.Context, admissionID string) ([]domain.Allocation, error)
	InsertAllocation(ctx context.Context, a *domain.Allocation) error
	UpdateAllocation(ctx context.Context, a *domain.Allocation) error
}

// InterventionRepository persists the intervention log.
type InterventionRepository interface {
	GetIntervention(ctx context.Context, id string) (*domain.Intervention, error)
	ListInterventions(ctx context.Context, admissionID string) ([]domain.Intervention, error)
	InsertIntervention(ctx context.Context, i *domain.Intervention) error
	UpdateIntervention(ctx context.Context, i *domain.Intervention) error
	DeleteIntervention(ctx context.Context, id string) error
}

// EventRepository is the append-only audit log.
type EventRepository interface {
	// AppendEvent stores e and sets e.Seq.
	AppendEvent(ctx context.Context, e *domain.CaseEvent) error
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.CaseEvent, error)
}

// Tx is a unit of work. Lock serialises on key until the transaction ends.
type Tx interface {
	Lock(ctx context.Context, key string) error

	BeneficiaryRepository
	CatalogRepository
	CaseRepository
	SnapshotRepository
	SlotRepository
	InterventionRepository
	EventRepository
}

// Store opens units of work. Everything done inside fn commits together or not at all.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn in a read-only unit of work.
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// DefaultEventLimit caps ListEvents when the filter carries no limit.
const DefaultEventLimit = 500
