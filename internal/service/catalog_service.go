package service

import (
	"context"
	"strings"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService publishes the scoring criteria and the configuration the VAAC reads
// (programs, responsible agents). Edits never touch existing snapshots: each snapshot
// carries its own frozen frame.
type CatalogService struct {
	*core
}

// ListCriteria returns the catalog ordered by (kind, text, id).
func (s *CatalogService) ListCriteria(ctx context.Context, actor domain.Actor, family domain.CriterionFamily, filter domain.CriteriaFilter) ([]domain.Criterion, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	if family != "" && !family.Valid() {
		return nil, invalid("unknown criterion family %q", family)
	}
	var out []domain.Criterion
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListCriteria(ctx, family, filter)
		return err
	})
	return out, err
}

func (s *CatalogService) GetCriterion(ctx context.Context, actor domain.Actor, id string) (*domain.Criterion, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var out *domain.Criterion
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.GetCriterion(ctx, id)
		return err
	})
	return out, err
}

type CreateCriterionRequest struct {
	Family     domain.CriterionFamily
	Kind       string
	Weight     int
	Modifiable bool
	Text       string
}

func (s *CatalogService) CreateCriterion(ctx context.Context, actor domain.Actor, req CreateCriterionRequest) (*domain.Criterion, error) {
	if err := actor.Require(domain.CapAdminCatalog); err != nil {
		return nil, err
	}
	if !req.Family.Valid() {
		return nil, invalid("unknown criterion family %q", req.Family)
	}
	if err := domain.ValidateWeight(req.Family, req.Weight); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, invalid("criterion text is required")
	}

	now := s.now().UTC()
	c := &domain.Criterion{
		ID:         uuid.NewString(),
		Family:     req.Family,
		Kind:       strings.TrimSpace(req.Kind),
		Weight:     req.Weight,
		Modifiable: req.Modifiable,
		Text:       text,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.write(ctx, actor, func(u *unit) error {
		return u.InsertCriterion(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("criterion created", zap.String("criterion_id", c.ID), zap.String("family", string(c.Family)), zap.Int("weight", c.Weight), zap.String("actor", actor.ID))
	return c, nil
}

// UpdateCriterionRequest carries optional edits; nil fields are left unchanged.
type UpdateCriterionRequest struct {
	Kind       *string
	Weight     *int
	Modifiable *bool
	Text       *string
}

func (s *CatalogService) UpdateCriterion(ctx context.Context, actor domain.Actor, id string, req UpdateCriterionRequest) (*domain.Criterion, error) {
	if err := actor.Require(domain.CapAdminCatalog); err != nil {
		return nil, err
	}
	var out *domain.Criterion
	err := s.write(ctx, actor, func(u *unit) error {
		c, err := u.GetCriterion(ctx, id)
		if err != nil {
			return err
		}
		if req.Kind != nil {
			c.Kind = strings.TrimSpace(*req.Kind)
		}
		if req.Weight != nil {
			if err := domain.ValidateWeight(c.Family, *req.Weight); err != nil {
				return err
			}
			c.Weight = *req.Weight
		}
		if req.Modifiable != nil {
			c.Modifiable = *req.Modifiable
		}
		if req.Text != nil {
			text := strings.TrimSpace(*req.Text)
			if text == "" {
				return invalid("criterion text is required")
			}
			c.Text = text
		}
		c.UpdatedAt = u.now
		out = c
		return u.UpdateCriterion(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("criterion updated", zap.String("criterion_id", id), zap.Int("weight", out.Weight), zap.String("actor", actor.ID))
	return out, nil
}

// DeactivateCriterion hides the criterion from future snapshots. Existing snapshots stay valid.
func (s *CatalogService) DeactivateCriterion(ctx context.Context, actor domain.Actor, id string) (*domain.Criterion, error) {
	if err := actor.Require(domain.CapAdminCatalog); err != nil {
		return nil, err
	}
	var out *domain.Criterion
	err := s.write(ctx, actor, func(u *unit) error {
		c, err := u.GetCriterion(ctx, id)
		if err != nil {
			return err
		}
		c.Active = false
		c.UpdatedAt = u.now
		out = c
		return u.UpdateCriterion(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("criterion deactivated", zap.String("criterion_id", id), zap.String("actor", actor.ID))
	return out, nil
}

// ---- program registry ----

func (s *CatalogService) ListPrograms(ctx context.Context, actor domain.Actor) ([]domain.Program, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var out []domain.Program
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListPrograms(ctx)
		return err
	})
	return out, err
}

func (s *CatalogService) UpsertProgram(ctx context.Context, actor domain.Actor, p domain.Program) (*domain.Program, error) {
	if err := actor.Require(domain.CapAdminCatalog); err != nil {
		return nil, err
	}
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" || p.Name == "" {
		return nil, invalid("program id and name are required")
	}
	err := s.write(ctx, actor, func(u *unit) error {
		p.UpdatedAt = u.now
		return u.UpsertProgram(ctx, &p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("program upserted", zap.String("program_id", p.ID), zap.Bool("allocates_seats", p.AllocatesSeats), zap.String("actor", actor.ID))
	return &p, nil
}

// ---- responsible agents ----

func (s *CatalogService) ListResponsibleAgents(ctx context.Context, actor domain.Actor, activeOnly bool) ([]domain.ResponsibleAgent, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var out []domain.ResponsibleAgent
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.ListResponsibleAgents(ctx, activeOnly)
		return err
	})
	return out, err
}

func (s *CatalogService) UpsertResponsibleAgent(ctx context.Context, actor domain.Actor, a domain.ResponsibleAgent) (*domain.ResponsibleAgent, error) {
	if err := actor.Require(domain.CapAdminCatalog); err != nil {
		return nil, err
	}
	a.Code = strings.TrimSpace(a.Code)
	a.Name = strings.TrimSpace(a.Name)
	if a.Code == "" || a.Name == "" {
		return nil, invalid("responsible agent code and name are required")
	}
	if err := s.write(ctx, actor, func(u *unit) error { return u.UpsertResponsibleAgent(ctx, &a) }); err != nil {
		return nil, err
	}
	return &a, nil
}
