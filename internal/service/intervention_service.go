package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/repository"

	"github.com/google/uuid"
)

// InterventionService keeps the action log of ACTIVE admissions.
type InterventionService struct {
	*core
}

type InterventionRequest struct {
	CriterionID  string
	ActionTag    domain.ActionTag
	Responsibles []string
	Impact       domain.Impact
	Notes        string
}

func (r *InterventionRequest) normalize() error {
	if !r.ActionTag.Valid() {
		return invalid("unknown action tag %q", r.ActionTag)
	}
	if !r.Impact.Valid() {
		return invalid("unknown impact %q", r.Impact)
	}
	seen := map[string]bool{}
	codes := make([]string, 0, len(r.Responsibles))
	for _, c := range r.Responsibles {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}
	if len(codes) == 0 {
		return invalid("at least one responsible is required")
	}
	sort.Strings(codes)
	r.Responsibles = codes
	r.Notes = strings.TrimSpace(r.Notes)
	return nil
}

// checkRefs validates the criterion and the responsibles against the catalog.
func checkRefs(ctx context.Context, u *unit, r *InterventionRequest) error {
	c, err := u.GetCriterion(ctx, r.CriterionID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Errorf(domain.KindInvalidCriterion, "unknown criterion %s", r.CriterionID)
	}
	if err != nil {
		return err
	}
	if !c.Modifiable || !c.Active {
		return domain.Errorf(domain.KindInvalidCriterion, "criterion %s is not an active modifiable criterion", c.ID)
	}
	agents, err := u.ListResponsibleAgents(ctx, true)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(agents))
	for _, a := range agents {
		known[a.Code] = true
	}
	for _, code := range r.Responsibles {
		if !known[code] {
			return invalid("unknown responsible %q", code)
		}
	}
	return nil
}

// activeAdmission locks the admission and requires it ACTIVE.
func activeAdmission(ctx context.Context, u *unit, id string) (*domain.Admission, error) {
	if err := u.lock(ctx, domain.AdmissionLockKey(id)); err != nil {
		return nil, err
	}
	adm, err := u.GetAdmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if adm.State != domain.AdmissionActive {
		return nil, forbidden("admission %s is %s", adm.ID, adm.State)
	}
	return adm, nil
}

func (s *InterventionService) Create(ctx context.Context, actor domain.Actor, admissionID string, req InterventionRequest) (*domain.Intervention, error) {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return nil, err
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}

	var iv *domain.Intervention
	err := s.write(ctx, actor, func(u *unit) error {
		adm, err := activeAdmission(ctx, u, admissionID)
		if err != nil {
			return err
		}
		if err := checkRefs(ctx, u, &req); err != nil {
			return err
		}
		iv = &domain.Intervention{
			ID:           uuid.NewString(),
			AdmissionID:  adm.ID,
			CriterionID:  req.CriterionID,
			ActionTag:    req.ActionTag,
			Responsibles: req.Responsibles,
			Impact:       req.Impact,
			Notes:        req.Notes,
			CreatedBy:    actor.ID,
			CreatedAt:    u.now,
		}
		if err := u.InsertIntervention(ctx, iv); err != nil {
			return err
		}
		return u.emit(ctx, admissionEvent(adm, domain.EventInterventionCreated, string(iv.ActionTag)+" "+string(iv.Impact)))
	})
	if err != nil {
		return nil, err
	}
	return iv, nil
}

func (s *InterventionService) interventionRef(ctx context.Context, id string) (*domain.Intervention, error) {
	var iv *domain.Intervention
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		iv, err = tx.GetIntervention(ctx, id)
		return err
	})
	return iv, err
}

// Update revises an intervention of an ACTIVE admission.
func (s *InterventionService) Update(ctx context.Context, actor domain.Actor, id string, req InterventionRequest) (*domain.Intervention, error) {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return nil, err
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}
	ref, err := s.interventionRef(ctx, id)
	if err != nil {
		return nil, err
	}

	var iv *domain.Intervention
	err = s.write(ctx, actor, func(u *unit) error {
		adm, err := activeAdmission(ctx, u, ref.AdmissionID)
		if err != nil {
			return err
		}
		iv, err = u.GetIntervention(ctx, id)
		if err != nil {
			return err
		}
		if err := checkRefs(ctx, u, &req); err != nil {
			return err
		}
		now := u.now
		iv.CriterionID = req.CriterionID
		iv.ActionTag = req.ActionTag
		iv.Responsibles = req.Responsibles
		iv.Impact = req.Impact
		iv.Notes = req.Notes
		iv.UpdatedBy = actor.ID
		iv.UpdatedAt = &now
		if err := u.UpdateIntervention(ctx, iv); err != nil {
			return err
		}
		return u.emit(ctx, admissionEvent(adm, domain.EventInterventionUpdated, string(iv.ActionTag)+" "+string(iv.Impact)))
	})
	if err != nil {
		return nil, err
	}
	return iv, nil
}

// Delete removes an intervention. Only its creator, or an actor allowed to override
// authorship, may do so.
func (s *InterventionService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return err
	}
	ref, err := s.interventionRef(ctx, id)
	if err != nil {
		return err
	}
	return s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.AdmissionLockKey(ref.AdmissionID)); err != nil {
			return err
		}
		iv, err := u.GetIntervention(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanActOn(iv.CreatedBy) {
			return unauthorized("intervention %s was created by %s", iv.ID, iv.CreatedBy)
		}
		adm, err := u.GetAdmission(ctx, iv.AdmissionID)
		if err != nil {
			return err
		}
		if err := u.DeleteIntervention(ctx, id); err != nil {
			return err
		}
		return u.emit(ctx, admissionEvent(adm, domain.EventInterventionDeleted, iv.ID))
	})
}

func (s *InterventionService) List(ctx context.Context, actor domain.Actor, admissionID string) ([]domain.Intervention, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var out []domain.Intervention
	err := s.read(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetAdmission(ctx, admissionID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListInterventions(ctx, admissionID)
		return err
	})
	return out, err
}
