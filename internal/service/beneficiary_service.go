package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BeneficiaryService is the local face of the beneficiary registry: intake, lookup
// by document key and household links.
type BeneficiaryService struct {
	*core
}

func (s *BeneficiaryService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Beneficiary, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var out *domain.Beneficiary
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.GetBeneficiary(ctx, id)
		return err
	})
	return out, err
}

// GetByKey looks the document key up locally, then in the external registry when one is
// configured. Registry hits are imported so the beneficiary id stays stable afterwards.
func (s *BeneficiaryService) GetByKey(ctx context.Context, actor domain.Actor, docType, docNumber string) (*domain.Beneficiary, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	docType, docNumber = domain.NormalizeDocument(docType, docNumber)
	if docType == "" || docNumber == "" {
		return nil, invalid("document type and number are required")
	}

	var out *domain.Beneficiary
	err := s.read(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.GetBeneficiaryByDocument(ctx, docType, docNumber)
		return err
	})
	if err == nil || !errors.Is(err, domain.ErrNotFound) || s.registry == nil {
		return out, err
	}

	remote, rerr := s.registry.Lookup(ctx, docType, docNumber)
	if rerr != nil {
		if errors.Is(rerr, domain.ErrNotFound) {
			return nil, err
		}
		s.logger.Warn("registry lookup failed", zap.String("document_type", docType), zap.Error(rerr))
		return nil, err
	}
	return s.importRemote(ctx, actor, docType, docNumber, remote)
}

func (s *BeneficiaryService) importRemote(ctx context.Context, actor domain.Actor, docType, docNumber string, remote *domain.Beneficiary) (*domain.Beneficiary, error) {
	b := *remote
	if _, err := uuid.Parse(b.ID); err != nil {
		b.ID = uuid.NewString()
	}
	b.DocumentType, b.DocumentNumber = docType, docNumber
	b.Active = true
	b.CreatedBy = actor.ID

	var out *domain.Beneficiary
	err := s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, "beneficiary:"+docType+":"+docNumber); err != nil {
			return err
		}
		existing, err := u.GetBeneficiaryByDocument(ctx, docType, docNumber)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		b.CreatedAt = u.now
		out = &b
		return u.InsertBeneficiary(ctx, &b)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("beneficiary imported from registry", zap.String("beneficiary_id", out.ID), zap.String("actor", actor.ID))
	return out, nil
}

type CreateBeneficiaryRequest struct {
	DocumentType   string
	DocumentNumber string
	FirstName      string
	LastName       string
	BirthDate      *time.Time
}

// Create registers a beneficiary. A duplicated document key fails with Conflict.
func (s *BeneficiaryService) Create(ctx context.Context, actor domain.Actor, req CreateBeneficiaryRequest) (*domain.Beneficiary, error) {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return nil, err
	}
	docType, docNumber := domain.NormalizeDocument(req.DocumentType, req.DocumentNumber)
	if docType == "" || docNumber == "" {
		return nil, invalid("document type and number are required")
	}
	b := &domain.Beneficiary{
		ID:             uuid.NewString(),
		DocumentType:   docType,
		DocumentNumber: docNumber,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		BirthDate:      req.BirthDate,
		Active:         true,
		CreatedBy:      actor.ID,
	}
	err := s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, "beneficiary:"+docType+":"+docNumber); err != nil {
			return err
		}
		b.CreatedAt = u.now
		return u.InsertBeneficiary(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("beneficiary created", zap.String("beneficiary_id", b.ID), zap.String("actor", actor.ID))
	return b, nil
}

// SetActive soft-enables or soft-disables a beneficiary; beneficiaries are never deleted.
func (s *BeneficiaryService) SetActive(ctx context.Context, actor domain.Actor, id string, active bool) error {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return err
	}
	return s.write(ctx, actor, func(u *unit) error {
		return u.SetBeneficiaryActive(ctx, id, active)
	})
}

type LinkHouseholdRequest struct {
	FromID           string
	ToID             string
	Kinship          domain.Kinship
	Cohabits         bool
	PrimaryCaregiver bool
	Quality          domain.RelationshipQuality
}

// LinkHousehold records that FromID is <Kinship> of ToID. With PrimaryCaregiver set, FromID
// becomes the primary caregiver of ToID; a minor can have only one.
func (s *BeneficiaryService) LinkHousehold(ctx context.Context, actor domain.Actor, req LinkHouseholdRequest) (*domain.HouseholdLink, error) {
	if err := actor.Require(domain.CapMutateCase); err != nil {
		return nil, err
	}
	if req.FromID == "" || req.ToID == "" {
		return nil, invalid("both beneficiaries are required")
	}
	if req.FromID == req.ToID {
		return nil, invalid("a beneficiary cannot be linked to itself")
	}
	if !req.Kinship.Valid() {
		return nil, invalid("unknown kinship %q", req.Kinship)
	}
	if !req.Quality.Valid() {
		return nil, invalid("unknown relationship quality %q", req.Quality)
	}

	link := &domain.HouseholdLink{
		ID:               uuid.NewString(),
		FromID:           req.FromID,
		ToID:             req.ToID,
		Kinship:          req.Kinship,
		Cohabits:         req.Cohabits,
		PrimaryCaregiver: req.PrimaryCaregiver,
		Quality:          req.Quality,
		CreatedBy:        actor.ID,
	}
	err := s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, "household:"+req.FromID, "household:"+req.ToID); err != nil {
			return err
		}
		if _, err := u.GetBeneficiary(ctx, req.FromID); err != nil {
			return err
		}
		ward, err := u.GetBeneficiary(ctx, req.ToID)
		if err != nil {
			return err
		}
		link.CreatedAt = u.now

		if req.PrimaryCaregiver && ward.IsMinorAt(u.now) {
			links, err := u.ListHouseholdLinks(ctx, ward.ID)
			if err != nil {
				return err
			}
			for _, l := range links {
				if l.PrimaryCaregiver && l.ToID == ward.ID {
					return domain.Errorf(domain.KindConflict, "beneficiary %s already has primary caregiver %s", ward.ID, l.FromID)
				}
			}
		}
		return u.InsertHouseholdLink(ctx, link)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("household link created", zap.String("from_id", link.FromID), zap.String("to_id", link.ToID), zap.String("kinship", string(link.Kinship)), zap.String("actor", actor.ID))
	return link, nil
}

// ListHousehold returns the links of id, each oriented so FromID == id.
func (s *BeneficiaryService) ListHousehold(ctx context.Context, actor domain.Actor, id string) ([]domain.HouseholdLink, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var out []domain.HouseholdLink
	err := s.read(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetBeneficiary(ctx, id); err != nil {
			return err
		}
		links, err := tx.ListHouseholdLinks(ctx, id)
		if err != nil {
			return err
		}
		out = make([]domain.HouseholdLink, 0, len(links))
		for _, l := range links {
			out = append(out, l.OrientedFrom(id))
		}
		return nil
	})
	return out, err
}
