package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/service"
)

// ListCriteria GET /criteria?family=&kind=&modifiable=&include_inactive=
func (h *Handler) ListCriteria(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.CriteriaFilter{
		Kind:            q.Get("kind"),
		IncludeInactive: q.Get("include_inactive") == "true",
	}
	if v := q.Get("modifiable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.fail(w, r, domain.Errorf(domain.KindInvalidInput, "modifiable must be a boolean"))
			return
		}
		filter.Modifiable = &b
	}
	out, err := h.svc.Catalog.ListCriteria(r.Context(), h.actor(r), domain.CriterionFamily(q.Get("family")), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (h *Handler) CreateCriterion(w http.ResponseWriter, r *http.Request) {
	var dto createCriterionDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.Catalog.CreateCriterion(r.Context(), h.actor(r), service.CreateCriterionRequest{
		Family:     domain.CriterionFamily(dto.Family),
		Kind:       dto.Kind,
		Weight:     *dto.Weight,
		Modifiable: dto.Modifiable,
		Text:       dto.Text,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCriterion(w http.ResponseWriter, r *http.Request) {
	var dto updateCriterionDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.Catalog.UpdateCriterion(r.Context(), h.actor(r), r.PathValue("id"), service.UpdateCriterionRequest{
		Kind:       dto.Kind,
		Weight:     dto.Weight,
		Modifiable: dto.Modifiable,
		Text:       dto.Text,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, c)
}

func (h *Handler) DeactivateCriterion(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Catalog.DeactivateCriterion(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, c)
}

func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Catalog.ListPrograms(r.Context(), h.actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (h *Handler) UpsertProgram(w http.ResponseWriter, r *http.Request) {
	var dto programDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	active := dto.Active == nil || *dto.Active
	p, err := h.svc.Catalog.UpsertProgram(r.Context(), h.actor(r), domain.Program{
		ID:                 r.PathValue("id"),
		Name:               dto.Name,
		AllocatesSeats:     dto.AllocatesSeats,
		RequiresEntryIndex: dto.RequiresEntryIndex,
		Active:             active,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, p)
}

// ListResponsibleAgents GET /responsible-agents?active=true
func (h *Handler) ListResponsibleAgents(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Catalog.ListResponsibleAgents(r.Context(), h.actor(r), r.URL.Query().Get("active") == "true")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (h *Handler) UpsertResponsibleAgent(w http.ResponseWriter, r *http.Request) {
	var dto agentDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.svc.Catalog.UpsertResponsibleAgent(r.Context(), h.actor(r), domain.ResponsibleAgent{
		Code:   r.PathValue("code"),
		Name:   dto.Name,
		Active: dto.Active == nil || *dto.Active,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, a)
}
