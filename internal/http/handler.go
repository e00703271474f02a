package httpapi

import (
	"net/http"

	"github.com/dsocial118/SISOC-sub000/internal/authz"
	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/service"
	"github.com/dsocial118/SISOC-sub000/internal/store"

	"go.uber.org/zap"
)

const APIPrefix = "/vaac/api/v1"

// Handler serves the VAAC case operations API.
type Handler struct {
	svc    *service.Services
	authz  *authz.Service
	kv     store.KV
	logger *zap.Logger
}

// NewHandler builds the API handler. kv may be nil when Redis is disabled; the dashboard
// endpoint then answers 503.
func NewHandler(svc *service.Services, az *authz.Service, kv store.KV, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		authz:  az,
		kv:     kv,
		logger: logger,
	}
}

// actor resolves the caller from X-User-Id / X-User-Role. Missing headers give an anonymous
// actor, which every service operation rejects.
func (h *Handler) actor(r *http.Request) domain.Actor {
	return h.authz.Actor(r.Header.Get("X-User-Id"), r.Header.Get("X-User-Role"))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, h.logger, r, err)
}

// Register mounts every API route on r.
func (h *Handler) Register(r *Router) {
	p := APIPrefix

	// catalog
	r.Handle("GET "+p+"/criteria", h.ListCriteria)
	r.Handle("POST "+p+"/criteria", h.CreateCriterion)
	r.Handle("PUT "+p+"/criteria/{id}", h.UpdateCriterion)
	r.Handle("POST "+p+"/criteria/{id}/deactivate", h.DeactivateCriterion)
	r.Handle("GET "+p+"/programs", h.ListPrograms)
	r.Handle("PUT "+p+"/programs/{id}", h.UpsertProgram)
	r.Handle("GET "+p+"/responsible-agents", h.ListResponsibleAgents)
	r.Handle("PUT "+p+"/responsible-agents/{code}", h.UpsertResponsibleAgent)

	// beneficiaries
	r.Handle("POST "+p+"/beneficiaries", h.CreateBeneficiary)
	r.Handle("GET "+p+"/beneficiaries/lookup", h.LookupBeneficiary)
	r.Handle("GET "+p+"/beneficiaries/{id}", h.GetBeneficiary)
	r.Handle("GET "+p+"/beneficiaries/{id}/household", h.ListHousehold)
	r.Handle("POST "+p+"/beneficiaries/{id}/household", h.LinkHousehold)

	// derivations
	r.Handle("POST "+p+"/derivations", h.CreateDerivation)
	r.Handle("GET "+p+"/derivations", h.ListDerivations)
	r.Handle("GET "+p+"/derivations/{id}", h.GetDerivation)
	r.Handle("DELETE "+p+"/derivations/{id}", h.DeleteDerivation)
	r.Handle("POST "+p+"/derivations/{id}/review", h.ReviewDerivation)
	r.Handle("POST "+p+"/derivations/{id}/accept", h.AcceptDerivation)
	r.Handle("POST "+p+"/derivations/{id}/reject", h.RejectDerivation)
	r.Handle("POST "+p+"/derivations/{id}/advise", h.AdviseDerivation)
	r.Handle("POST "+p+"/derivations/{id}/close", h.CloseDerivation)
	r.Handle("GET "+p+"/derivations/{id}/timeline", h.Timeline)

	// pre-admissions and assessments
	r.Handle("GET "+p+"/pre-admissions/{id}", h.GetPreAdmission)
	r.Handle("POST "+p+"/pre-admissions/{id}/finalize", h.FinalizePreAdmission)
	r.Handle("DELETE "+p+"/pre-admissions/{id}", h.DeletePreAdmission)
	r.Handle("GET "+p+"/pre-admissions/{id}/snapshots", h.ListSnapshots)
	r.Handle("POST "+p+"/pre-admissions/{id}/snapshots", h.CreateSnapshot)
	r.Handle("GET "+p+"/pre-admissions/{id}/comparison", h.CompareEntryExit)
	r.Handle("GET "+p+"/snapshots/{key}", h.GetSnapshot)
	r.Handle("PUT "+p+"/snapshots/{key}", h.RewriteSnapshot)

	// admissions, slots, interventions
	r.Handle("GET "+p+"/admissions/{id}", h.GetAdmission)
	r.Handle("POST "+p+"/admissions/{id}/exit", h.ExitAdmission)
	r.Handle("GET "+p+"/admissions/{id}/allocations", h.ListAllocations)
	r.Handle("POST "+p+"/admissions/{id}/slot", h.AssignSlot)
	r.Handle("POST "+p+"/admissions/{id}/slot/transfer", h.TransferSlot)
	r.Handle("POST "+p+"/admissions/{id}/slot/release", h.ReleaseSlot)
	r.Handle("GET "+p+"/admissions/{id}/interventions", h.ListInterventions)
	r.Handle("POST "+p+"/admissions/{id}/interventions", h.CreateIntervention)
	r.Handle("PUT "+p+"/interventions/{id}", h.UpdateIntervention)
	r.Handle("DELETE "+p+"/interventions/{id}", h.DeleteIntervention)

	r.Handle("GET "+p+"/slot-pools", h.ListSlotPools)
	r.Handle("PUT "+p+"/slot-pools", h.UpsertSlotPool)
	r.Handle("GET "+p+"/slot-pools/waitlist", h.Waitlist)
	r.Handle("GET "+p+"/slot-pools/export", h.ExportOccupancy)

	// audit
	r.Handle("GET "+p+"/events", h.ListEvents)
	r.Handle("GET "+p+"/dashboard/counters", h.DashboardCounters)
}
