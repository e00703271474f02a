package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssessmentService builds, rewrites and compares assessment snapshots.
type AssessmentService struct {
	*core
}

// ============================================
// Create
// ============================================

type CreateSnapshotRequest struct {
	PreAdmissionID string
	Family         domain.CriterionFamily
	Phase          domain.Phase
	CriterionIDs   []string
	Notes          string
}

// CreateSnapshot scores a selection against the active catalog of the family.
// ENTRY snapshots need the pre-admission IN_PROGRESS. An EXIT snapshot is always IVI and
// closes the admission born from the pre-admission, exactly like CaseService.EmitExitIVI.
func (s *AssessmentService) CreateSnapshot(ctx context.Context, actor domain.Actor, req CreateSnapshotRequest) (*domain.AssessmentSnapshot, error) {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return nil, err
	}
	if !req.Family.Valid() {
		return nil, invalid("unknown criterion family %q", req.Family)
	}
	if !req.Phase.Valid() {
		return nil, invalid("unknown phase %q", req.Phase)
	}

	if req.Phase == domain.PhaseExit {
		if req.Family != domain.FamilyIVI {
			return nil, invalid("exit snapshots belong to the IVI family")
		}
		var admissionID string
		err := s.read(ctx, func(tx repository.Tx) error {
			adm, err := tx.GetAdmissionByPreAdmission(ctx, req.PreAdmissionID)
			if err != nil {
				return err
			}
			admissionID = adm.ID
			return nil
		})
		if err != nil {
			return nil, err
		}
		return s.exitIVI(ctx, actor, admissionID, req.CriterionIDs, req.Notes)
	}

	pa, err := s.preAdmissionRef(ctx, req.PreAdmissionID)
	if err != nil {
		return nil, err
	}

	var snap *domain.AssessmentSnapshot
	err = s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.CaseLockKey(pa.BeneficiaryID, pa.ProgramID), domain.PreAdmissionLockKey(pa.ID)); err != nil {
			return err
		}
		pa, err := u.GetPreAdmission(ctx, req.PreAdmissionID)
		if err != nil {
			return err
		}
		if pa.State != domain.PreAdmissionInProgress {
			return forbidden("pre-admission %s is %s", pa.ID, pa.State)
		}

		snap, err = buildSnapshot(ctx, u, pa, req.Family, domain.PhaseEntry, req.CriterionIDs, req.Notes)
		if err != nil {
			return err
		}
		if err := u.InsertSnapshot(ctx, snap); err != nil {
			return err
		}

		kind := domain.EventIVICreated
		if req.Family == domain.FamilyIVI {
			pa.HasIVI = true
		} else {
			pa.HasEntryIndex = true
			kind = domain.EventEntryIndexCreated
		}
		if err := u.UpdatePreAdmission(ctx, pa); err != nil {
			return err
		}
		return u.emit(ctx, domain.CaseEvent{
			BeneficiaryID:  pa.BeneficiaryID,
			ProgramID:      pa.ProgramID,
			DerivationID:   pa.DerivationID,
			PreAdmissionID: pa.ID,
			Kind:           kind,
			FreeText:       snap.Key,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SnapshotScore(string(snap.Family), string(snap.Phase), snap.TotalScore, snap.MaxPossibleScore)
	return snap, nil
}

// preAdmissionRef reads the immutable identifiers of a pre-admission ahead of locking.
func (c *core) preAdmissionRef(ctx context.Context, id string) (*domain.PreAdmission, error) {
	var pa *domain.PreAdmission
	err := c.read(ctx, func(tx repository.Tx) error {
		var err error
		pa, err = tx.GetPreAdmission(ctx, id)
		return err
	})
	return pa, err
}

// buildSnapshot freezes the active catalog of family as the frame and scores ids against it.
func buildSnapshot(ctx context.Context, u *unit, pa *domain.PreAdmission, family domain.CriterionFamily, phase domain.Phase, ids []string, notes string) (*domain.AssessmentSnapshot, error) {
	catalog, err := u.ListCriteria(ctx, family, domain.CriteriaFilter{})
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, domain.Errorf(domain.KindNoCatalog, "no active %s criteria", family)
	}
	frame := make([]domain.FrameEntry, 0, len(catalog))
	for _, c := range catalog {
		frame = append(frame, domain.FrameEntry{CriterionID: c.ID, Weight: c.Weight})
	}

	items, total, missing := domain.Score(frame, ids)
	if len(missing) > 0 {
		return nil, domain.Errorf(domain.KindInvalidCriterion, "not active %s criteria: %s", family, strings.Join(missing, ", "))
	}
	return &domain.AssessmentSnapshot{
		Key:              uuid.NewString(),
		PreAdmissionID:   pa.ID,
		BeneficiaryID:    pa.BeneficiaryID,
		ProgramID:        pa.ProgramID,
		Family:           family,
		Phase:            phase,
		Items:            items,
		Frame:            frame,
		TotalScore:       total,
		MaxPossibleScore: domain.MaxScore(frame),
		Notes:            strings.TrimSpace(notes),
		Version:          1,
		CreatedBy:        u.actor.ID,
		CreatedAt:        u.now,
	}, nil
}

// ============================================
// Rewrite
// ============================================

type RewriteSnapshotRequest struct {
	CriterionIDs []string
	Notes        string
	// ExpectedVersion guards against lost updates when > 0.
	ExpectedVersion int
}

// RewriteSnapshot replaces the item set of a snapshot. Scores are recomputed against the
// frame frozen at creation, so MaxPossibleScore never moves.
func (s *AssessmentService) RewriteSnapshot(ctx context.Context, actor domain.Actor, key string, req RewriteSnapshotRequest) (*domain.AssessmentSnapshot, error) {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return nil, err
	}

	var snap *domain.AssessmentSnapshot
	err := s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.SnapshotLockKey(key)); err != nil {
			return err
		}
		var err error
		snap, err = u.GetSnapshot(ctx, key)
		if err != nil {
			return err
		}
		if !actor.CanActOn(snap.CreatedBy) {
			return unauthorized("snapshot %s was created by %s", key, snap.CreatedBy)
		}
		if req.ExpectedVersion > 0 && req.ExpectedVersion != snap.Version {
			return domain.Errorf(domain.KindConcurrentRewrite, "snapshot %s is at version %d, expected %d", key, snap.Version, req.ExpectedVersion)
		}

		items, total, missing := domain.Score(snap.Frame, req.CriterionIDs)
		if len(missing) > 0 {
			return domain.Errorf(domain.KindInvalidCriterion, "criteria outside the snapshot frame: %s", strings.Join(missing, ", "))
		}
		now := u.now
		snap.Items = items
		snap.TotalScore = total
		snap.Notes = strings.TrimSpace(req.Notes)
		snap.Version++
		snap.UpdatedBy = actor.ID
		snap.UpdatedAt = &now
		if err := u.ReplaceSnapshotItems(ctx, snap); err != nil {
			return err
		}

		pa, err := u.GetPreAdmission(ctx, snap.PreAdmissionID)
		if err != nil {
			return err
		}
		ev := domain.CaseEvent{
			BeneficiaryID:  snap.BeneficiaryID,
			ProgramID:      snap.ProgramID,
			DerivationID:   pa.DerivationID,
			PreAdmissionID: pa.ID,
			Kind:           domain.EventIVIUpdated,
			FreeText:       snap.Key,
		}
		if snap.Family == domain.FamilyEntry {
			ev.Kind = domain.EventEntryIndexUpdated
		}
		adm, err := u.GetAdmissionByPreAdmission(ctx, pa.ID)
		switch {
		case err == nil:
			ev.AdmissionID = adm.ID
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		return u.emit(ctx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("snapshot rewritten", zap.String("snapshot_key", key), zap.Int("version", snap.Version), zap.String("actor", actor.ID))
	return snap, nil
}

// ============================================
// Reads
// ============================================

func (s *AssessmentService) GetSnapshot(ctx context.Context, actor domain.Actor, key string) (*domain.AssessmentSnapshot, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var out *domain.AssessmentSnapshot
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.GetSnapshot(ctx, key)
		return err
	})
	return out, err
}

func (s *AssessmentService) ListSnapshots(ctx context.Context, actor domain.Actor, preAdmissionID string) ([]domain.AssessmentSnapshot, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var out []domain.AssessmentSnapshot
	err := s.read(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetPreAdmission(ctx, preAdmissionID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListSnapshots(ctx, preAdmissionID)
		return err
	})
	return out, err
}

// CompareEntryExit pairs the ENTRY IVI snapshot with the latest EXIT IVI snapshot of the
// pre-admission. Each keeps its own frame. NotFound when either side is missing.
func (s *AssessmentService) CompareEntryExit(ctx context.Context, actor domain.Actor, preAdmissionID string) (*domain.Comparison, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var snaps []domain.AssessmentSnapshot
	err := s.read(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetPreAdmission(ctx, preAdmissionID); err != nil {
			return err
		}
		var err error
		snaps, err = tx.ListSnapshots(ctx, preAdmissionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	var cmp domain.Comparison
	for i := range snaps {
		sn := &snaps[i]
		if sn.Family != domain.FamilyIVI {
			continue
		}
		switch sn.Phase {
		case domain.PhaseEntry:
			if cmp.Entry == nil {
				cmp.Entry = sn
			}
		case domain.PhaseExit:
			cmp.Exit = sn
		}
	}
	if cmp.Entry == nil {
		return nil, domain.NotFoundf("pre-admission %s has no entry IVI snapshot", preAdmissionID)
	}
	if cmp.Exit == nil {
		return nil, domain.NotFoundf("pre-admission %s has no exit IVI snapshot", preAdmissionID)
	}
	cmp.Deltas = criterionDeltas(cmp.Entry, cmp.Exit)
	return &cmp, nil
}

func criterionDeltas(entry, exit *domain.AssessmentSnapshot) []domain.CriterionDelta {
	byID := map[string]*domain.CriterionDelta{}
	for _, id := range entry.CriterionIDs() {
		byID[id] = &domain.CriterionDelta{CriterionID: id, InEntry: true}
	}
	for _, id := range exit.CriterionIDs() {
		d, ok := byID[id]
		if !ok {
			d = &domain.CriterionDelta{CriterionID: id}
			byID[id] = d
		}
		d.InExit = true
	}
	out := make([]domain.CriterionDelta, 0, len(byID))
	for _, d := range byID {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CriterionID < out[j].CriterionID })
	return out
}
