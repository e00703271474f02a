package httpapi

import (
	"net/http"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/service"
)

func (d interventionDTO) request() service.InterventionRequest {
	return service.InterventionRequest{
		CriterionID:  d.CriterionID,
		ActionTag:    domain.ActionTag(d.ActionTag),
		Responsibles: d.Responsibles,
		Impact:       domain.Impact(d.Impact),
		Notes:        d.Notes,
	}
}

func (h *Handler) ListInterventions(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Interventions.List(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (h *Handler) CreateIntervention(w http.ResponseWriter, r *http.Request) {
	var dto interventionDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	iv, err := h.svc.Interventions.Create(r.Context(), h.actor(r), r.PathValue("id"), dto.request())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, iv)
}

func (h *Handler) UpdateIntervention(w http.ResponseWriter, r *http.Request) {
	var dto interventionDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	iv, err := h.svc.Interventions.Update(r.Context(), h.actor(r), r.PathValue("id"), dto.request())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, iv)
}

func (h *Handler) DeleteIntervention(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Interventions.Delete(r.Context(), h.actor(r), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK[any](w, http.StatusOK, nil)
}
