package httpapi

import (
	"net/http"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/export"
	"github.com/dsocial118/SISOC-sub000/internal/service"
)

func (k slotKeyDTO) key() domain.SlotKey {
	return domain.SlotKey{Centre: k.Centre, Sala: k.Sala, Shift: k.Shift}
}

// poolFromQuery reads ?centre=&sala=&shift=.
func poolFromQuery(r *http.Request) (domain.SlotKey, error) {
	q := r.URL.Query()
	k := domain.SlotKey{Centre: q.Get("centre"), Sala: q.Get("sala"), Shift: q.Get("shift")}
	if !k.Valid() {
		return k, domain.Errorf(domain.KindInvalidInput, "centre, sala and shift are required")
	}
	return k, nil
}

// ListSlotPools GET /slot-pools, or one pool with ?centre=&sala=&shift=.
func (h *Handler) ListSlotPools(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("centre") != "" {
		k, err := poolFromQuery(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		o, err := h.svc.Scheduler.Occupancy(r.Context(), h.actor(r), k)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, []domain.PoolOccupancy{*o})
		return
	}
	out, err := h.svc.Scheduler.ListOccupancy(r.Context(), h.actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (h *Handler) UpsertSlotPool(w http.ResponseWriter, r *http.Request) {
	var dto slotPoolDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.svc.Scheduler.UpsertSlotPool(r.Context(), h.actor(r), dto.key(), *dto.Capacity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, p)
}

func (h *Handler) Waitlist(w http.ResponseWriter, r *http.Request) {
	k, err := poolFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.Scheduler.Waitlist(r.Context(), h.actor(r), k)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (h *Handler) ExportOccupancy(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Scheduler.ListOccupancy(r.Context(), h.actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := export.OccupancyWorkbook(out)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeXLSX(w, "occupancy-"+time.Now().UTC().Format("20060102")+".xlsx", data)
}

func (h *Handler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Scheduler.ListAllocations(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

func (h *Handler) AssignSlot(w http.ResponseWriter, r *http.Request) {
	var dto assignSlotDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	start, err := parseDate("start_date", dto.StartDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.svc.Scheduler.AssignSlot(r.Context(), h.actor(r), r.PathValue("id"), dto.key(), start)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, a)
}

func (h *Handler) TransferSlot(w http.ResponseWriter, r *http.Request) {
	var dto transferSlotDTO
	if err := decode(r, &dto); err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := parseDate("end_date", dto.EndDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.svc.Scheduler.TransferSlot(r.Context(), h.actor(r), r.PathValue("id"), service.TransferSlotRequest{
		To:      dto.To.key(),
		EndDate: end,
		Reason:  domain.TransferReason(dto.Reason),
		Notes:   dto.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, a)
}

func (h *Handler) ReleaseSlot(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Scheduler.ReleaseSlot(r.Context(), h.actor(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, a)
}
