package httpapi

import (
	"net/http"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/export"
	"github.com/dsocial118/SISOC-sub000/internal/service"
)

func (h *Handler) CreateDerivation(w http.ResponseWriter, r *http.Request) {
	var dto createDerivationDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.Cases.CreateDerivation(r.Context(), h.actor(r), service.CreateDerivationRequest{
		BeneficiaryID:   dto.BeneficiaryID,
		SourceProgramID: dto.SourceProgramID,
		TargetProgramID: dto.TargetProgramID,
		Priority:        domain.Priority(dto.Priority),
		Notes:           dto.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, d)
}

// ListDerivations GET /derivations?beneficiary_id=&target_program_id=&state=&limit=
func (h *Handler) ListDerivations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.svc.Cases.ListDerivations(r.Context(), h.actor(r), domain.DerivationFilter{
		BeneficiaryID:   q.Get("beneficiary_id"),
		TargetProgramID: q.Get("target_program_id"),
		State:           domain.DerivationState(q.Get("state")),
		Limit:           parseInt(q.Get("limit"), 0),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (h *Handler) GetDerivation(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Cases.GetDerivation(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, d)
}

func (h *Handler) DeleteDerivation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cases.DeleteDerivation(r.Context(), h.actor(r), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK[any](w, http.StatusOK, nil)
}

func (h *Handler) ReviewDerivation(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Cases.ReviewDerivation(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, d)
}

func (h *Handler) AcceptDerivation(w http.ResponseWriter, r *http.Request) {
	var dto acceptDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	pa, err := h.svc.Cases.AcceptDerivation(r.Context(), h.actor(r), r.PathValue("id"), domain.Payload(dto.Payload))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, pa)
}

func (h *Handler) RejectDerivation(w http.ResponseWriter, r *http.Request) {
	var dto rejectDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.Cases.RejectDerivation(r.Context(), h.actor(r), r.PathValue("id"), domain.RejectionReason(dto.Reason), dto.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, d)
}

func (h *Handler) AdviseDerivation(w http.ResponseWriter, r *http.Request) {
	var dto notesDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.Cases.AdviseDerivation(r.Context(), h.actor(r), r.PathValue("id"), dto.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, d)
}

func (h *Handler) CloseDerivation(w http.ResponseWriter, r *http.Request) {
	var dto notesDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.Cases.CloseDerivation(r.Context(), h.actor(r), r.PathValue("id"), dto.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, d)
}

// Timeline GET /derivations/{id}/timeline[?format=xlsx]
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor := h.actor(r)
	if r.URL.Query().Get("format") == "xlsx" {
		evs, err := h.svc.Audit.ListEvents(r.Context(), actor, domain.EventFilter{DerivationID: id})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		data, err := export.TimelineWorkbook(evs)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeXLSX(w, "timeline-"+id+".xlsx", data)
		return
	}
	steps, err := h.svc.Audit.Timeline(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, steps)
}

func (h *Handler) GetPreAdmission(w http.ResponseWriter, r *http.Request) {
	pa, err := h.svc.Cases.GetPreAdmission(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, pa)
}

type finalizeResult struct {
	PreAdmission *domain.PreAdmission `json:"pre_admission"`
	Admission    *domain.Admission    `json:"admission,omitempty"`
}

func (h *Handler) FinalizePreAdmission(w http.ResponseWriter, r *http.Request) {
	var dto finalizeDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	pa, adm, err := h.svc.Cases.FinalizePreAdmission(r.Context(), h.actor(r), r.PathValue("id"), domain.Decision(dto.Decision))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, finalizeResult{PreAdmission: pa, Admission: adm})
}

func (h *Handler) DeletePreAdmission(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cases.DeletePreAdmission(r.Context(), h.actor(r), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK[any](w, http.StatusOK, nil)
}

func (h *Handler) GetAdmission(w http.ResponseWriter, r *http.Request) {
	adm, err := h.svc.Cases.GetAdmission(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, adm)
}

// ExitAdmission records the EXIT IVI and closes the admission.
func (h *Handler) ExitAdmission(w http.ResponseWriter, r *http.Request) {
	var dto exitDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := h.svc.Cases.EmitExitIVI(r.Context(), h.actor(r), r.PathValue("id"), dto.CriterionIDs, dto.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, snap)
}
