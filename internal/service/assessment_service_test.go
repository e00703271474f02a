package service

import (
	"testing"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessmentService_SnapshotsKeepTheirFrame(t *testing.T) {
	f := newFixture(t)
	b := f.beneficiary("32000001")
	_, pa := f.openPreAdmission(f.op1, b, progIntake, nil)

	entry, err := f.svc.Assessment.CreateSnapshot(f.ctx, f.op1, CreateSnapshotRequest{
		PreAdmissionID: pa.ID,
		Family:         domain.FamilyIVI,
		Phase:          domain.PhaseEntry,
		CriterionIDs:   f.ids("c1", "c2", "c4"),
	})
	require.NoError(t, err)
	assert.Equal(t, 12, entry.TotalScore)
	assert.Equal(t, 20, entry.MaxPossibleScore)

	f.addCriterion("c6", domain.FamilyIVI, 5, false)
	_, adm, err := f.svc.Cases.FinalizePreAdmission(f.ctx, f.op1, pa.ID, domain.DecisionAdmit)
	require.NoError(t, err)

	exit, err := f.svc.Assessment.CreateSnapshot(f.ctx, f.op1, CreateSnapshotRequest{
		PreAdmissionID: pa.ID,
		Family:         domain.FamilyIVI,
		Phase:          domain.PhaseExit,
		CriterionIDs:   f.ids("c1", "c6"),
	})
	require.NoError(t, err)
	assert.Equal(t, 25, exit.MaxPossibleScore)
	assert.Equal(t, 8, exit.TotalScore)

	adm, err = f.svc.Cases.GetAdmission(f.ctx, f.viewer, adm.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AdmissionInactive, adm.State)

	cmp, err := f.svc.Assessment.CompareEntryExit(f.ctx, f.viewer, pa.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Key, cmp.Entry.Key)
	assert.Equal(t, 20, cmp.Entry.MaxPossibleScore)
	assert.Len(t, cmp.Entry.Frame, 5)
	assert.Equal(t, exit.Key, cmp.Exit.Key)
	assert.Len(t, cmp.Exit.Frame, 6)

	deltas := map[string]domain.CriterionDelta{}
	for _, d := range cmp.Deltas {
		deltas[d.CriterionID] = d
	}
	assert.Equal(t, domain.CriterionDelta{CriterionID: f.crit["c1"], InEntry: true, InExit: true}, deltas[f.crit["c1"]])
	assert.Equal(t, domain.CriterionDelta{CriterionID: f.crit["c2"], InEntry: true}, deltas[f.crit["c2"]])
	assert.Equal(t, domain.CriterionDelta{CriterionID: f.crit["c6"], InExit: true}, deltas[f.crit["c6"]])
}

func TestAssessmentService_CompareWithoutExit(t *testing.T) {
	f := newFixture(t)
	adm := f.admit("32000002", progIntake, domain.SlotKey{})

	_, err := f.svc.Assessment.CompareEntryExit(f.ctx, f.viewer, adm.PreAdmissionID)
	requireKind(t, err, domain.KindNotFound)
}

func TestAssessmentService_CriterionValidation(t *testing.T) {
	f := newFixture(t)
	b := f.beneficiary("32000003")
	_, pa := f.openPreAdmission(f.op1, b, progIntake, nil)
	create := func(family domain.CriterionFamily, phase domain.Phase, ids ...string) (*domain.AssessmentSnapshot, error) {
		return f.svc.Assessment.CreateSnapshot(f.ctx, f.op1, CreateSnapshotRequest{
			PreAdmissionID: pa.ID, Family: family, Phase: phase, CriterionIDs: ids,
		})
	}

	_, err := create(domain.FamilyIVI, domain.PhaseEntry, "no-such-criterion")
	requireKind(t, err, domain.KindInvalidCriterion)
	_, err = create(domain.FamilyIVI, domain.PhaseEntry, f.crit["c1"], f.crit["e1"])
	requireKind(t, err, domain.KindInvalidCriterion)
	_, err = create(domain.FamilyEntry, domain.PhaseExit, f.crit["e1"])
	requireKind(t, err, domain.KindInvalidInput)
	_, err = create("OTHER", domain.PhaseEntry)
	requireKind(t, err, domain.KindInvalidInput)

	// deactivated criteria can no longer be selected
	_, err = f.svc.Catalog.DeactivateCriterion(f.ctx, f.admin, f.crit["c3"])
	require.NoError(t, err)
	_, err = create(domain.FamilyIVI, domain.PhaseEntry, f.crit["c3"])
	requireKind(t, err, domain.KindInvalidCriterion)

	// duplicates collapse into one item
	snap, err := create(domain.FamilyIVI, domain.PhaseEntry, f.crit["c2"], f.crit["c2"])
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 4, snap.TotalScore)
	assert.Equal(t, 14, snap.MaxPossibleScore)

	for _, id := range f.ids("e1", "e2") {
		_, err = f.svc.Catalog.DeactivateCriterion(f.ctx, f.admin, id)
		require.NoError(t, err)
	}
	_, err = create(domain.FamilyEntry, domain.PhaseEntry)
	requireKind(t, err, domain.KindNoCatalog)

	pa, err = f.svc.Cases.GetPreAdmission(f.ctx, f.viewer, pa.ID)
	require.NoError(t, err)
	assert.True(t, pa.HasIVI)
	assert.False(t, pa.HasEntryIndex)
}

func TestAssessmentService_ExitNeedsAdmission(t *testing.T) {
	f := newFixture(t)
	b := f.beneficiary("32000004")
	_, pa := f.openPreAdmission(f.op1, b, progIntake, nil)

	_, err := f.svc.Assessment.CreateSnapshot(f.ctx, f.op1, CreateSnapshotRequest{
		PreAdmissionID: pa.ID, Family: domain.FamilyIVI, Phase: domain.PhaseExit, CriterionIDs: f.ids("c1"),
	})
	requireKind(t, err, domain.KindNotFound)
}

func TestAssessmentService_Rewrite(t *testing.T) {
	f := newFixture(t)
	b := f.beneficiary("32000005")
	_, pa := f.openPreAdmission(f.op1, b, progIntake, nil)
	snap, err := f.svc.Assessment.CreateSnapshot(f.ctx, f.op1, CreateSnapshotRequest{
		PreAdmissionID: pa.ID,
		Family:         domain.FamilyIVI,
		Phase:          domain.PhaseEntry,
		CriterionIDs:   f.ids("c1", "c3"),
		Notes:          "first visit",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)

	// rewriting with the same set leaves the totals alone
	same, err := f.svc.Assessment.RewriteSnapshot(f.ctx, f.op1, snap.Key, RewriteSnapshotRequest{
		CriterionIDs:    snap.CriterionIDs(),
		Notes:           "first visit",
		ExpectedVersion: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, snap.TotalScore, same.TotalScore)
	assert.Equal(t, snap.MaxPossibleScore, same.MaxPossibleScore)
	assert.Equal(t, 2, same.Version)
	assert.Equal(t, "u1", same.UpdatedBy)
	require.NotNil(t, same.UpdatedAt)

	_, err = f.svc.Assessment.RewriteSnapshot(f.ctx, f.op1, snap.Key, RewriteSnapshotRequest{CriterionIDs: f.ids("c1"), ExpectedVersion: 1})
	requireKind(t, err, domain.KindConcurrentRewrite)

	_, err = f.svc.Assessment.RewriteSnapshot(f.ctx, f.op2, snap.Key, RewriteSnapshotRequest{CriterionIDs: f.ids("c1")})
	requireKind(t, err, domain.KindUnauthorizedActor)

	// catalog edits after creation do not reach the frozen frame
	w := 9
	_, err = f.svc.Catalog.UpdateCriterion(f.ctx, f.admin, f.crit["c1"], UpdateCriterionRequest{Weight: &w})
	require.NoError(t, err)
	late := f.addCriterion("c7", domain.FamilyIVI, 1, false)

	_, err = f.svc.Assessment.RewriteSnapshot(f.ctx, f.admin, snap.Key, RewriteSnapshotRequest{CriterionIDs: []string{late}})
	requireKind(t, err, domain.KindInvalidCriterion)

	got, err := f.svc.Assessment.RewriteSnapshot(f.ctx, f.admin, snap.Key, RewriteSnapshotRequest{CriterionIDs: f.ids("c1", "c4")})
	require.NoError(t, err)
	assert.Equal(t, 8, got.TotalScore)
	assert.Equal(t, 20, got.MaxPossibleScore)
	assert.Equal(t, snap.Key, got.Key)
	assert.Equal(t, "admin-1", got.UpdatedBy)
	assert.LessOrEqual(t, got.TotalScore, got.MaxPossibleScore)

	evs, err := f.svc.Audit.ListEvents(f.ctx, f.viewer, domain.EventFilter{PreAdmissionID: pa.ID, Kind: domain.EventIVIUpdated})
	require.NoError(t, err)
	assert.Len(t, evs, 2)
	for _, e := range evs {
		assert.Equal(t, snap.Key, e.FreeText)
	}
}

func TestAssessmentService_CatalogWeightDomain(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Catalog.CreateCriterion(f.ctx, f.admin, CreateCriterionRequest{Family: domain.FamilyEntry, Weight: 11, Text: "too heavy"})
	requireKind(t, err, domain.KindInvalidInput)
	_, err = f.svc.Catalog.CreateCriterion(f.ctx, f.admin, CreateCriterionRequest{Family: domain.FamilyIVI, Weight: -1, Text: "negative"})
	requireKind(t, err, domain.KindInvalidInput)
	heavy, err := f.svc.Catalog.CreateCriterion(f.ctx, f.admin, CreateCriterionRequest{Family: domain.FamilyIVI, Weight: 40, Text: "heavy IVI"})
	require.NoError(t, err)
	assert.Equal(t, 40, heavy.Weight)

	list, err := f.svc.Catalog.ListCriteria(f.ctx, f.viewer, domain.FamilyEntry, domain.CriteriaFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
