package service

import (
	"testing"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterventionService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	adm := f.admit("33000001", progIntake, domain.SlotKey{})

	iv, err := f.svc.Interventions.Create(f.ctx, f.op1, adm.ID, InterventionRequest{
		CriterionID:  f.crit["c4"],
		ActionTag:    domain.ActionHomeVisit,
		Responsibles: []string{" psychologist ", "social_worker", "psychologist"},
		Impact:       domain.ImpactWorked,
		Notes:        "family agreed on a plan",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"psychologist", "social_worker"}, iv.Responsibles)

	upd, err := f.svc.Interventions.Update(f.ctx, f.op2, iv.ID, InterventionRequest{
		CriterionID:  f.crit["c4"],
		ActionTag:    domain.ActionHomeVisit,
		Responsibles: []string{"social_worker"},
		Impact:       domain.ImpactReverted,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ImpactReverted, upd.Impact)
	assert.Equal(t, "u2", upd.UpdatedBy)
	assert.Equal(t, "u1", upd.CreatedBy)

	list, err := f.svc.Interventions.List(f.ctx, f.viewer, adm.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	requireKind(t, f.svc.Interventions.Delete(f.ctx, f.op2, iv.ID), domain.KindUnauthorizedActor)
	require.NoError(t, f.svc.Interventions.Delete(f.ctx, f.op1, iv.ID))

	list, err = f.svc.Interventions.List(f.ctx, f.viewer, adm.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	evs, err := f.svc.Audit.ListEvents(f.ctx, f.viewer, domain.EventFilter{AdmissionID: adm.ID})
	require.NoError(t, err)
	kinds := []domain.EventKind{}
	for _, e := range evs {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []domain.EventKind{
		domain.EventAdmitted,
		domain.EventInterventionCreated,
		domain.EventInterventionUpdated,
		domain.EventInterventionDeleted,
	}, kinds)
}

func TestInterventionService_Validation(t *testing.T) {
	f := newFixture(t)
	adm := f.admit("33000002", progIntake, domain.SlotKey{})
	valid := InterventionRequest{
		CriterionID:  f.crit["c2"],
		ActionTag:    domain.ActionWorkshop,
		Responsibles: []string{"social_worker"},
		Impact:       domain.ImpactWorked,
	}
	create := func(mut func(r *InterventionRequest)) error {
		r := valid
		r.Responsibles = append([]string(nil), valid.Responsibles...)
		mut(&r)
		_, err := f.svc.Interventions.Create(f.ctx, f.op1, adm.ID, r)
		return err
	}

	requireKind(t, create(func(r *InterventionRequest) { r.CriterionID = f.crit["c1"] }), domain.KindInvalidCriterion)
	requireKind(t, create(func(r *InterventionRequest) { r.CriterionID = "missing" }), domain.KindInvalidCriterion)
	requireKind(t, create(func(r *InterventionRequest) { r.ActionTag = "phone_call" }), domain.KindInvalidInput)
	requireKind(t, create(func(r *InterventionRequest) { r.Impact = "MAYBE" }), domain.KindInvalidInput)
	requireKind(t, create(func(r *InterventionRequest) { r.Responsibles = []string{" "} }), domain.KindInvalidInput)
	requireKind(t, create(func(r *InterventionRequest) { r.Responsibles = []string{"lawyer"} }), domain.KindInvalidInput)
	require.NoError(t, create(func(*InterventionRequest) {}))

	_, err := f.svc.Interventions.Create(f.ctx, f.op1, "no-admission", valid)
	requireKind(t, err, domain.KindNotFound)

	// the log closes with the admission
	_, err = f.svc.Cases.EmitExitIVI(f.ctx, f.op1, adm.ID, f.ids("c2"), "")
	require.NoError(t, err)
	requireKind(t, create(func(*InterventionRequest) {}), domain.KindForbiddenTransition)
}
