package httpapi

import (
	"net/http"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/service"
)

func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var dto createSnapshotDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := h.svc.Assessment.CreateSnapshot(r.Context(), h.actor(r), service.CreateSnapshotRequest{
		PreAdmissionID: r.PathValue("id"),
		Family:         domain.CriterionFamily(dto.Family),
		Phase:          domain.Phase(dto.Phase),
		CriterionIDs:   dto.CriterionIDs,
		Notes:          dto.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, snap)
}

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Assessment.ListSnapshots(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (h *Handler) CompareEntryExit(w http.ResponseWriter, r *http.Request) {
	cmp, err := h.svc.Assessment.CompareEntryExit(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, cmp)
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Assessment.GetSnapshot(r.Context(), h.actor(r), r.PathValue("key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, snap)
}

func (h *Handler) RewriteSnapshot(w http.ResponseWriter, r *http.Request) {
	var dto rewriteSnapshotDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := h.svc.Assessment.RewriteSnapshot(r.Context(), h.actor(r), r.PathValue("key"), service.RewriteSnapshotRequest{
		CriterionIDs:    dto.CriterionIDs,
		Notes:           dto.Notes,
		ExpectedVersion: dto.ExpectedVersion,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, snap)
}
