package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/events"
)

// ListEvents GET /events?beneficiary_id=&derivation_id=&pre_admission_id=&admission_id=&kind=&after_seq=&limit=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var after int64
	if v := q.Get("after_seq"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.fail(w, r, domain.Errorf(domain.KindInvalidInput, "after_seq must be an integer"))
			return
		}
		after = n
	}
	out, err := h.svc.Audit.ListEvents(r.Context(), h.actor(r), domain.EventFilter{
		BeneficiaryID:  q.Get("beneficiary_id"),
		DerivationID:   q.Get("derivation_id"),
		PreAdmissionID: q.Get("pre_admission_id"),
		AdmissionID:    q.Get("admission_id"),
		Kind:           domain.EventKind(q.Get("kind")),
		AfterSeq:       after,
		Limit:          parseInt(q.Get("limit"), 0),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// DashboardCounters GET /dashboard/counters?program_id=
func (h *Handler) DashboardCounters(w http.ResponseWriter, r *http.Request) {
	if err := h.actor(r).Require(domain.CapReadCase); err != nil {
		h.fail(w, r, err)
		return
	}
	if h.kv == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("dashboard counters need Redis"))
		return
	}
	programID := r.URL.Query().Get("program_id")
	if programID == "" {
		h.fail(w, r, domain.Errorf(domain.KindInvalidInput, "program_id is required"))
		return
	}
	counters, err := events.Counters(r.Context(), h.kv, programID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, counters)
}
