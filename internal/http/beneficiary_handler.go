package httpapi

import (
	"net/http"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/service"
)

func (h *Handler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var dto createBeneficiaryDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	req := service.CreateBeneficiaryRequest{
		DocumentType:   dto.DocumentType,
		DocumentNumber: dto.DocumentNumber,
		FirstName:      dto.FirstName,
		LastName:       dto.LastName,
	}
	if dto.BirthDate != "" {
		t, err := parseDate("birth_date", dto.BirthDate)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		req.BirthDate = &t
	}
	b, err := h.svc.Beneficiaries.Create(r.Context(), h.actor(r), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, b)
}

// LookupBeneficiary GET /beneficiaries/lookup?document_type=DNI&document_number=...
func (h *Handler) LookupBeneficiary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docType, docNumber := q.Get("document_type"), q.Get("document_number")
	if docType == "" || docNumber == "" {
		h.fail(w, r, domain.Errorf(domain.KindInvalidInput, "document_type and document_number are required"))
		return
	}
	b, err := h.svc.Beneficiaries.GetByKey(r.Context(), h.actor(r), docType, docNumber)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, b)
}

func (h *Handler) GetBeneficiary(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Beneficiaries.Get(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, b)
}

func (h *Handler) ListHousehold(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Beneficiaries.ListHousehold(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (h *Handler) LinkHousehold(w http.ResponseWriter, r *http.Request) {
	var dto householdDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	link, err := h.svc.Beneficiaries.LinkHousehold(r.Context(), h.actor(r), service.LinkHouseholdRequest{
		FromID:           r.PathValue("id"),
		ToID:             dto.ToID,
		Kinship:          domain.Kinship(dto.Kinship),
		Cohabits:         dto.Cohabits,
		PrimaryCaregiver: dto.PrimaryCaregiver,
		Quality:          domain.RelationshipQuality(dto.Quality),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, link)
}
