package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, []domain.CaseEvent) error {
	p.calls++
	return errors.New("broker down")
}

func TestAuditService_EventsArePulledInCommitOrder(t *testing.T) {
	f := newFixture(t)
	f.pool(poolC1TwoMorning, 4)
	adm := f.admit("34000001", progNursery, poolC1TwoMorning)
	_, err := f.svc.Scheduler.AssignSlot(f.ctx, f.tech, adm.ID, poolC1TwoMorning, f.clock.Now())
	require.NoError(t, err)

	all, err := f.svc.Audit.ListEvents(f.ctx, f.viewer, domain.EventFilter{BeneficiaryID: adm.BeneficiaryID})
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Seq, all[i-1].Seq)
	}
	for _, e := range all {
		assert.Equal(t, adm.BeneficiaryID, e.BeneficiaryID)
		assert.Equal(t, progNursery, e.ProgramID)
		assert.NotEmpty(t, e.Actor)
	}

	page, err := f.svc.Audit.ListEvents(f.ctx, f.viewer, domain.EventFilter{BeneficiaryID: adm.BeneficiaryID, AfterSeq: all[1].Seq, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[2].Seq, page[0].Seq)

	slot, err := f.svc.Audit.ListEvents(f.ctx, f.viewer, domain.EventFilter{AdmissionID: adm.ID, Kind: domain.EventSlotAssigned})
	require.NoError(t, err)
	require.Len(t, slot, 1)
	assert.Equal(t, poolC1TwoMorning.String(), slot[0].FreeText)
	assert.Equal(t, "t1", slot[0].Actor)

	_, err = f.svc.Audit.ListEvents(f.ctx, f.viewer, domain.EventFilter{Kind: "TELEPORTED"})
	requireKind(t, err, domain.KindInvalidInput)
}

func TestAuditService_FailedOperationLeavesNoEvent(t *testing.T) {
	f := newFixture(t)
	f.pool(poolC1ThreeAfter, 0)
	adm := f.admit("34000002", progNursery, poolC1ThreeAfter)
	before := len(f.pub.kinds())

	_, err := f.svc.Scheduler.AssignSlot(f.ctx, f.tech, adm.ID, poolC1ThreeAfter, f.clock.Now())
	requireKind(t, err, domain.KindSlotExhausted)

	evs, err := f.svc.Audit.ListEvents(f.ctx, f.viewer, domain.EventFilter{AdmissionID: adm.ID, Kind: domain.EventSlotAssigned})
	require.NoError(t, err)
	assert.Empty(t, evs)
	assert.Len(t, f.pub.kinds(), before)
}

func TestAuditService_PublishFailureDoesNotUndoCommit(t *testing.T) {
	pub := &failingPublisher{}
	f := newFixture(t)
	f.svc = New(f.store, WithClock(f.clock.Now), WithPublisher(pub))

	b := f.beneficiary("34000003")
	d, err := f.svc.Cases.CreateDerivation(f.ctx, f.op1, CreateDerivationRequest{BeneficiaryID: b, TargetProgramID: progNursery})
	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)

	evs, err := f.svc.Audit.ListEvents(f.ctx, f.viewer, domain.EventFilter{DerivationID: d.ID})
	require.NoError(t, err)
	assert.Len(t, evs, 1)
}

func TestAuditService_TimelineAfterPreAdmissionDelete(t *testing.T) {
	f := newFixture(t)
	b := f.beneficiary("34000004")
	d, pa := f.openPreAdmission(f.op1, b, progNursery, nil)
	require.NoError(t, f.svc.Cases.DeletePreAdmission(f.ctx, f.op1, pa.ID))
	_, err := f.svc.Cases.RejectDerivation(f.ctx, f.op1, d.ID, domain.RejectDeclinedByFamily, "")
	require.NoError(t, err)

	steps, err := f.svc.Audit.Timeline(f.ctx, f.viewer, d.ID)
	require.NoError(t, err)
	stages := []domain.CaseStage{}
	for _, s := range steps {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []domain.CaseStage{
		domain.StagePending,
		domain.StagePreAdmission,
		domain.StagePending,
		domain.StageClosed,
	}, stages)

	_, err = f.svc.Audit.Timeline(f.ctx, f.viewer, "unknown")
	requireKind(t, err, domain.KindNotFound)
}

func TestAuditService_ValidateSequence(t *testing.T) {
	f := newFixture(t)
	ev := func(seq int64, kind domain.EventKind) domain.CaseEvent {
		return domain.CaseEvent{Seq: seq, Kind: kind}
	}

	require.NoError(t, f.svc.Audit.ValidateSequence([]domain.CaseEvent{
		ev(1, domain.EventDerivationCreated),
		ev(2, domain.EventDerivationReviewed),
		ev(3, domain.EventAcceptedToPreadm),
		ev(4, domain.EventEntryIndexCreated),
		ev(5, domain.EventIVICreated),
		ev(6, domain.EventPreadmFinalized),
		ev(7, domain.EventAdmitted),
		ev(8, domain.EventSlotAssigned),
		ev(9, domain.EventSlotChanged),
		ev(10, domain.EventSlotReleased),
		ev(11, domain.EventExitIVI),
		ev(12, domain.EventIVIUpdated),
	}))

	cases := map[string][]domain.CaseEvent{
		"admitted without finalize": {ev(1, domain.EventDerivationCreated), ev(2, domain.EventAdmitted)},
		"assign twice": {
			ev(1, domain.EventDerivationCreated), ev(2, domain.EventAcceptedToPreadm), ev(3, domain.EventPreadmFinalized),
			ev(4, domain.EventAdmitted), ev(5, domain.EventSlotAssigned), ev(6, domain.EventSlotAssigned),
		},
		"accept after close": {ev(1, domain.EventDerivationCreated), ev(2, domain.EventClosed), ev(3, domain.EventAcceptedToPreadm)},
		"out of order":       {ev(2, domain.EventDerivationCreated), ev(1, domain.EventDerivationReviewed)},
		"starts mid-case":    {ev(1, domain.EventIVICreated)},
	}
	for name, evs := range cases {
		t.Run(name, func(t *testing.T) {
			requireKind(t, f.svc.Audit.ValidateSequence(evs), domain.KindForbiddenTransition)
		})
	}
}
