package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CaseService drives the derivation -> pre-admission -> admission state machine of one
// (beneficiary, target program) case.
type CaseService struct {
	*core
}

// ============================================
// Derivations
// ============================================

type CreateDerivationRequest struct {
	BeneficiaryID   string
	SourceProgramID string
	TargetProgramID string
	Priority        domain.Priority
	Notes           string
}

func (s *CaseService) CreateDerivation(ctx context.Context, actor domain.Actor, req CreateDerivationRequest) (*domain.Derivation, error) {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return nil, err
	}
	if req.BeneficiaryID == "" || req.TargetProgramID == "" {
		return nil, invalid("beneficiary and target program are required")
	}
	if req.Priority == "" {
		req.Priority = domain.PriorityMedium
	}
	if !req.Priority.Valid() {
		return nil, invalid("unknown priority %q", req.Priority)
	}

	d := &domain.Derivation{
		ID:              uuid.NewString(),
		BeneficiaryID:   req.BeneficiaryID,
		SourceProgramID: req.SourceProgramID,
		TargetProgramID: req.TargetProgramID,
		Priority:        req.Priority,
		State:           domain.DerivationPending,
		Notes:           strings.TrimSpace(req.Notes),
		CreatedBy:       actor.ID,
	}
	err := s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.CaseLockKey(d.BeneficiaryID, d.TargetProgramID)); err != nil {
			return err
		}
		b, err := u.GetBeneficiary(ctx, d.BeneficiaryID)
		if err != nil {
			return err
		}
		if !b.Active {
			return invalid("beneficiary %s is inactive", b.ID)
		}
		target, err := u.GetProgram(ctx, d.TargetProgramID)
		if err != nil {
			return err
		}
		if !target.Active {
			return invalid("program %s is inactive", target.ID)
		}
		if d.SourceProgramID != "" {
			if _, err := u.GetProgram(ctx, d.SourceProgramID); err != nil {
				return err
			}
		}
		open, err := u.FindOpenDerivation(ctx, d.BeneficiaryID, d.TargetProgramID)
		if err != nil {
			return err
		}
		if open != nil {
			return domain.Errorf(domain.KindConflict, "derivation %s is still open for this program", open.ID)
		}

		d.CreatedAt, d.UpdatedAt = u.now, u.now
		if err := u.InsertDerivation(ctx, d); err != nil {
			return err
		}
		return u.emit(ctx, derivationEvent(d, domain.EventDerivationCreated, string(d.Priority)))
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func derivationEvent(d *domain.Derivation, kind domain.EventKind, text string) domain.CaseEvent {
	return domain.CaseEvent{
		BeneficiaryID: d.BeneficiaryID,
		ProgramID:     d.TargetProgramID,
		DerivationID:  d.ID,
		Kind:          kind,
		FreeText:      text,
	}
}

// derivationRef reads the immutable case scope of a derivation ahead of locking.
func (c *core) derivationRef(ctx context.Context, id string) (*domain.Derivation, error) {
	var d *domain.Derivation
	err := c.read(ctx, func(tx repository.Tx) error {
		var err error
		d, err = tx.GetDerivation(ctx, id)
		return err
	})
	return d, err
}

// transition locks the case of derivation id, re-reads it and hands it to fn when it is still open.
func (s *CaseService) transition(ctx context.Context, actor domain.Actor, id string, fn func(u *unit, d *domain.Derivation) error) (*domain.Derivation, error) {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return nil, err
	}
	ref, err := s.derivationRef(ctx, id)
	if err != nil {
		return nil, err
	}
	var d *domain.Derivation
	err = s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.CaseLockKey(ref.BeneficiaryID, ref.TargetProgramID)); err != nil {
			return err
		}
		var err error
		d, err = u.GetDerivation(ctx, id)
		if err != nil {
			return err
		}
		if !d.State.Open() {
			return forbidden("derivation %s is %s", d.ID, d.State)
		}
		d.UpdatedBy, d.UpdatedAt = actor.ID, u.now
		return fn(u, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ReviewDerivation moves a PENDING derivation to UNDER_REVIEW.
func (s *CaseService) ReviewDerivation(ctx context.Context, actor domain.Actor, id string) (*domain.Derivation, error) {
	return s.transition(ctx, actor, id, func(u *unit, d *domain.Derivation) error {
		if d.State != domain.DerivationPending {
			return forbidden("derivation %s is already %s", d.ID, d.State)
		}
		d.State = domain.DerivationUnderReview
		if err := u.UpdateDerivation(ctx, d); err != nil {
			return err
		}
		return u.emit(ctx, derivationEvent(d, domain.EventDerivationReviewed, ""))
	})
}

// AcceptDerivation opens the pre-admission of the case. payload is program specific; seat
// programs read the requested pool from its centre, sala and shift keys.
func (s *CaseService) AcceptDerivation(ctx context.Context, actor domain.Actor, id string, payload domain.Payload) (*domain.PreAdmission, error) {
	if len(payload) > 0 && !json.Valid(payload) {
		return nil, invalid("pre-admission payload is not valid JSON")
	}
	var pa *domain.PreAdmission
	_, err := s.transition(ctx, actor, id, func(u *unit, d *domain.Derivation) error {
		d.State = domain.DerivationAccepted
		if err := u.UpdateDerivation(ctx, d); err != nil {
			return err
		}
		pa = &domain.PreAdmission{
			ID:            uuid.NewString(),
			DerivationID:  d.ID,
			BeneficiaryID: d.BeneficiaryID,
			ProgramID:     d.TargetProgramID,
			State:         domain.PreAdmissionInProgress,
			Payload:       payload,
			CreatedBy:     actor.ID,
			CreatedAt:     u.now,
		}
		if err := u.InsertPreAdmission(ctx, pa); err != nil {
			return err
		}
		ev := derivationEvent(d, domain.EventAcceptedToPreadm, "")
		ev.PreAdmissionID = pa.ID
		return u.emit(ctx, ev)
	})
	if err != nil {
		return nil, err
	}
	return pa, nil
}

// RejectDerivation closes the derivation with a reason from the closed taxonomy.
func (s *CaseService) RejectDerivation(ctx context.Context, actor domain.Actor, id string, reason domain.RejectionReason, notes string) (*domain.Derivation, error) {
	if !reason.Valid() {
		return nil, invalid("unknown rejection reason %q", reason)
	}
	return s.transition(ctx, actor, id, func(u *unit, d *domain.Derivation) error {
		now := u.now
		d.State = domain.DerivationRejected
		d.RejectionReason = reason
		d.RejectionDate = &now
		if n := strings.TrimSpace(notes); n != "" {
			d.Notes = n
		}
		if err := u.UpdateDerivation(ctx, d); err != nil {
			return err
		}
		text := string(reason)
		if n := strings.TrimSpace(notes); n != "" {
			text += ": " + n
		}
		return u.emit(ctx, derivationEvent(d, domain.EventClosed, text))
	})
}

// AdviseDerivation answers the derivation with advice only. ADVISORY is terminal.
func (s *CaseService) AdviseDerivation(ctx context.Context, actor domain.Actor, id, notes string) (*domain.Derivation, error) {
	return s.transition(ctx, actor, id, func(u *unit, d *domain.Derivation) error {
		d.State = domain.DerivationAdvisory
		if n := strings.TrimSpace(notes); n != "" {
			d.Notes = n
		}
		if err := u.UpdateDerivation(ctx, d); err != nil {
			return err
		}
		return u.emit(ctx, derivationEvent(d, domain.EventDerivationAdvised, strings.TrimSpace(notes)))
	})
}

func (s *CaseService) CloseDerivation(ctx context.Context, actor domain.Actor, id, notes string) (*domain.Derivation, error) {
	return s.transition(ctx, actor, id, func(u *unit, d *domain.Derivation) error {
		d.State = domain.DerivationClosed
		if err := u.UpdateDerivation(ctx, d); err != nil {
			return err
		}
		return u.emit(ctx, derivationEvent(d, domain.EventClosed, strings.TrimSpace(notes)))
	})
}

// DeleteDerivation removes a PENDING derivation. Nothing else is touched.
func (s *CaseService) DeleteDerivation(ctx context.Context, actor domain.Actor, id string) error {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return err
	}
	ref, err := s.derivationRef(ctx, id)
	if err != nil {
		return err
	}
	err = s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.CaseLockKey(ref.BeneficiaryID, ref.TargetProgramID)); err != nil {
			return err
		}
		d, err := u.GetDerivation(ctx, id)
		if err != nil {
			return err
		}
		if d.State != domain.DerivationPending {
			return forbidden("derivation %s is %s", d.ID, d.State)
		}
		if !actor.CanActOn(d.CreatedBy) {
			return unauthorized("derivation %s was created by %s", d.ID, d.CreatedBy)
		}
		return u.DeleteDerivation(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("derivation deleted", zap.String("derivation_id", id), zap.String("actor", actor.ID))
	return nil
}

// ============================================
// Pre-admissions
// ============================================

// FinalizePreAdmission closes the evaluation. ADMIT needs an ENTRY IVI snapshot, plus an
// ENTRY index snapshot when the program asks for one, and opens the admission.
// The returned admission is nil on DECLINE.
func (s *CaseService) FinalizePreAdmission(ctx context.Context, actor domain.Actor, id string, decision domain.Decision) (*domain.PreAdmission, *domain.Admission, error) {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return nil, nil, err
	}
	if !decision.Valid() {
		return nil, nil, invalid("unknown decision %q", decision)
	}
	ref, err := s.preAdmissionRef(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var pa *domain.PreAdmission
	var adm *domain.Admission
	err = s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.CaseLockKey(ref.BeneficiaryID, ref.ProgramID), domain.PreAdmissionLockKey(id)); err != nil {
			return err
		}
		var err error
		pa, err = u.GetPreAdmission(ctx, id)
		if err != nil {
			return err
		}
		if pa.State != domain.PreAdmissionInProgress {
			return forbidden("pre-admission %s is already %s", pa.ID, pa.State)
		}
		program, err := u.GetProgram(ctx, pa.ProgramID)
		if err != nil {
			return err
		}

		admit := decision == domain.DecisionAdmit
		if admit {
			if !pa.HasIVI {
				return domain.Errorf(domain.KindMissingAssessment, "pre-admission %s has no entry IVI snapshot", pa.ID)
			}
			if program.RequiresEntryIndex && !pa.HasEntryIndex {
				return domain.Errorf(domain.KindMissingAssessment, "pre-admission %s has no entry index snapshot", pa.ID)
			}
		}

		now := u.now
		pa.State = domain.PreAdmissionFinalized
		pa.Admitted = &admit
		pa.FinalizedBy = actor.ID
		pa.FinalizedAt = &now
		if err := u.UpdatePreAdmission(ctx, pa); err != nil {
			return err
		}
		if err := u.emit(ctx, domain.CaseEvent{
			BeneficiaryID:  pa.BeneficiaryID,
			ProgramID:      pa.ProgramID,
			DerivationID:   pa.DerivationID,
			PreAdmissionID: pa.ID,
			Kind:           domain.EventPreadmFinalized,
			FreeText:       string(decision),
		}); err != nil {
			return err
		}
		if !admit {
			return nil
		}

		adm = &domain.Admission{
			ID:              uuid.NewString(),
			PreAdmissionID:  pa.ID,
			DerivationID:    pa.DerivationID,
			BeneficiaryID:   pa.BeneficiaryID,
			ProgramID:       pa.ProgramID,
			State:           domain.AdmissionActive,
			AllocationState: domain.AllocationNA,
			CreatedBy:       actor.ID,
			CreatedAt:       now,
		}
		if program.AllocatesSeats {
			adm.AllocationState = domain.AllocationWaitlist
			if key, ok := pa.RequestedPool(); ok {
				adm.RequestedPool = &key
			}
		}
		if err := u.InsertAdmission(ctx, adm); err != nil {
			return err
		}
		return u.emit(ctx, admissionEvent(adm, domain.EventAdmitted, string(adm.AllocationState)))
	})
	if err != nil {
		return nil, nil, err
	}
	return pa, adm, nil
}

func admissionEvent(a *domain.Admission, kind domain.EventKind, text string) domain.CaseEvent {
	return domain.CaseEvent{
		BeneficiaryID:  a.BeneficiaryID,
		ProgramID:      a.ProgramID,
		DerivationID:   a.DerivationID,
		PreAdmissionID: a.PreAdmissionID,
		AdmissionID:    a.ID,
		Kind:           kind,
		FreeText:       text,
	}
}

// DeletePreAdmission drops an IN_PROGRESS pre-admission with its snapshots and reopens the
// derivation as PENDING.
func (s *CaseService) DeletePreAdmission(ctx context.Context, actor domain.Actor, id string) error {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return err
	}
	ref, err := s.preAdmissionRef(ctx, id)
	if err != nil {
		return err
	}
	return s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.CaseLockKey(ref.BeneficiaryID, ref.ProgramID), domain.PreAdmissionLockKey(id)); err != nil {
			return err
		}
		pa, err := u.GetPreAdmission(ctx, id)
		if err != nil {
			return err
		}
		if pa.State != domain.PreAdmissionInProgress {
			return forbidden("pre-admission %s is %s", pa.ID, pa.State)
		}
		if !actor.CanActOn(pa.CreatedBy) {
			return unauthorized("pre-admission %s was created by %s", pa.ID, pa.CreatedBy)
		}
		open, err := u.FindOpenDerivation(ctx, pa.BeneficiaryID, pa.ProgramID)
		if err != nil {
			return err
		}
		if open != nil {
			return domain.Errorf(domain.KindConflict, "derivation %s is already open for this program", open.ID)
		}

		if err := u.DeleteSnapshots(ctx, pa.ID); err != nil {
			return err
		}
		if err := u.DeletePreAdmission(ctx, pa.ID); err != nil {
			return err
		}
		d, err := u.GetDerivation(ctx, pa.DerivationID)
		if err != nil {
			return err
		}
		d.State = domain.DerivationPending
		d.UpdatedBy, d.UpdatedAt = actor.ID, u.now
		if err := u.UpdateDerivation(ctx, d); err != nil {
			return err
		}
		ev := derivationEvent(d, domain.EventPreadmDeleted, "")
		ev.PreAdmissionID = pa.ID
		return u.emit(ctx, ev)
	})
}

// ============================================
// Admissions
// ============================================

// EmitExitIVI records the EXIT IVI snapshot of an ACTIVE admission, turns it INACTIVE and
// releases its seat.
func (s *CaseService) EmitExitIVI(ctx context.Context, actor domain.Actor, admissionID string, criterionIDs []string, notes string) (*domain.AssessmentSnapshot, error) {
	return s.exitIVI(ctx, actor, admissionID, criterionIDs, notes)
}

// admissionRef reads the immutable scope of an admission ahead of locking.
func (c *core) admissionRef(ctx context.Context, id string) (*domain.Admission, error) {
	var a *domain.Admission
	err := c.read(ctx, func(tx repository.Tx) error {
		var err error
		a, err = tx.GetAdmission(ctx, id)
		return err
	})
	return a, err
}

func (c *core) exitIVI(ctx context.Context, actor domain.Actor, admissionID string, criterionIDs []string, notes string) (*domain.AssessmentSnapshot, error) {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return nil, err
	}
	ref, err := c.admissionRef(ctx, admissionID)
	if err != nil {
		return nil, err
	}

	var snap *domain.AssessmentSnapshot
	err = c.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx,
			domain.CaseLockKey(ref.BeneficiaryID, ref.ProgramID),
			domain.PreAdmissionLockKey(ref.PreAdmissionID),
			domain.AdmissionLockKey(ref.ID),
		); err != nil {
			return err
		}
		adm, err := u.GetAdmission(ctx, admissionID)
		if err != nil {
			return err
		}
		if adm.State != domain.AdmissionActive {
			return forbidden("admission %s is %s", adm.ID, adm.State)
		}
		pa, err := u.GetPreAdmission(ctx, adm.PreAdmissionID)
		if err != nil {
			return err
		}
		snap, err = buildSnapshot(ctx, u, pa, domain.FamilyIVI, domain.PhaseExit, criterionIDs, notes)
		if err != nil {
			return err
		}
		if err := u.InsertSnapshot(ctx, snap); err != nil {
			return err
		}

		if _, err := releaseAssigned(ctx, u, adm); err != nil {
			return err
		}
		now := u.now
		adm.State = domain.AdmissionInactive
		adm.AllocationState = domain.AllocationNA
		adm.ClosedBy = actor.ID
		adm.ClosedAt = &now
		if err := u.UpdateAdmission(ctx, adm); err != nil {
			return err
		}
		return u.emit(ctx, admissionEvent(adm, domain.EventExitIVI, snap.Key))
	})
	if err != nil {
		return nil, err
	}
	c.metrics.SnapshotScore(string(snap.Family), string(snap.Phase), snap.TotalScore, snap.MaxPossibleScore)
	return snap, nil
}

// ============================================
// Reads
// ============================================

func (s *CaseService) GetDerivation(ctx context.Context, actor domain.Actor, id string) (*domain.Derivation, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	return s.derivationRef(ctx, id)
}

func (s *CaseService) ListDerivations(ctx context.Context, actor domain.Actor, filter domain.DerivationFilter) ([]domain.Derivation, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	if filter.State != "" && !filter.State.Open() && !filter.State.Terminal() {
		return nil, invalid("unknown derivation state %q", filter.State)
	}
	var out []domain.Derivation
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListDerivations(ctx, filter)
		return err
	})
	return out, err
}

func (s *CaseService) GetPreAdmission(ctx context.Context, actor domain.Actor, id string) (*domain.PreAdmission, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	return s.preAdmissionRef(ctx, id)
}

func (s *CaseService) GetAdmission(ctx context.Context, actor domain.Actor, id string) (*domain.Admission, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	return s.admissionRef(ctx, id)
}
