package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testClock ticks one second per reading so created_at orders follow call order.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// recordingPublisher keeps what the services fan out after commit.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.CaseEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evs []domain.CaseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

const (
	progIntake  = "P1"
	progNursery = "P2"
	progIndexed = "P3"
)

var (
	poolC1TwoMorning = domain.SlotKey{Centre: "C1", Sala: domain.SalaTwo, Shift: domain.ShiftMorning}
	poolC1ThreeAfter = domain.SlotKey{Centre: "C1", Sala: domain.SalaThree, Shift: domain.ShiftAfternoon}
	poolC2TwoAfter   = domain.SlotKey{Centre: "C2", Sala: domain.SalaTwo, Shift: domain.ShiftAfternoon}
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	svc   *Services
	store *repository.MemoryStore
	clock *testClock
	pub   *recordingPublisher

	admin  domain.Actor
	op1    domain.Actor
	op2    domain.Actor
	tech   domain.Actor
	viewer domain.Actor

	// crit maps fixture names (c1..c5, e1, e2) to catalog ids
	crit map[string]string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  repository.NewMemoryStore(),
		clock:  &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		pub:    &recordingPublisher{},
		admin:  domain.NewActor("admin-1", domain.RoleAdministrator, domain.AllCapabilities...),
		op1:    domain.NewActor("u1", domain.RoleOperator, domain.CapReadCase, domain.CapMutateCase),
		op2:    domain.NewActor("u2", domain.RoleOperator, domain.CapReadCase, domain.CapMutateCase),
		tech:   domain.NewActor("t1", domain.RoleTechnical, domain.CapReadCase, domain.CapMutateCase, domain.CapAllocateSlot),
		viewer: domain.NewActor("v1", domain.RoleViewer, domain.CapReadCase),
		crit:   map[string]string{},
	}
	all := append([]Option{WithLogger(zap.NewNop()), WithClock(f.clock.Now), WithPublisher(f.pub)}, opts...)
	f.svc = New(f.store, all...)
	f.seed()
	return f
}

func (f *fixture) seed() {
	for _, p := range []domain.Program{
		{ID: progIntake, Name: "Intake", Active: true},
		{ID: progNursery, Name: "Nursery", AllocatesSeats: true, Active: true},
		{ID: progIndexed, Name: "Indexed", RequiresEntryIndex: true, Active: true},
	} {
		_, err := f.svc.Catalog.UpsertProgram(f.ctx, f.admin, p)
		require.NoError(f.t, err)
	}

	// IVI weights add up to 20
	for _, c := range []struct {
		name       string
		family     domain.CriterionFamily
		weight     int
		modifiable bool
	}{
		{"c1", domain.FamilyIVI, 3, false},
		{"c2", domain.FamilyIVI, 4, true},
		{"c3", domain.FamilyIVI, 6, false},
		{"c4", domain.FamilyIVI, 5, true},
		{"c5", domain.FamilyIVI, 2, false},
		{"e1", domain.FamilyEntry, 7, false},
		{"e2", domain.FamilyEntry, 3, false},
	} {
		f.addCriterion(c.name, c.family, c.weight, c.modifiable)
	}

	for _, a := range []domain.ResponsibleAgent{
		{Code: "social_worker", Name: "Social worker", Active: true},
		{Code: "psychologist", Name: "Psychologist", Active: true},
	} {
		_, err := f.svc.Catalog.UpsertResponsibleAgent(f.ctx, f.admin, a)
		require.NoError(f.t, err)
	}
}

func (f *fixture) addCriterion(name string, family domain.CriterionFamily, weight int, modifiable bool) string {
	c, err := f.svc.Catalog.CreateCriterion(f.ctx, f.admin, CreateCriterionRequest{
		Family:     family,
		Kind:       "household",
		Weight:     weight,
		Modifiable: modifiable,
		Text:       "criterion " + name,
	})
	require.NoError(f.t, err)
	f.crit[name] = c.ID
	return c.ID
}

func (f *fixture) ids(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		id, ok := f.crit[n]
		require.True(f.t, ok, "unknown fixture criterion %s", n)
		out = append(out, id)
	}
	return out
}

func (f *fixture) beneficiary(docNumber string) string {
	b, err := f.svc.Beneficiaries.Create(f.ctx, f.op1, CreateBeneficiaryRequest{
		DocumentType:   "DNI",
		DocumentNumber: docNumber,
		FirstName:      "Ana",
		LastName:       "Test " + docNumber,
	})
	require.NoError(f.t, err)
	return b.ID
}

func poolPayload(k domain.SlotKey) domain.Payload {
	raw, _ := json.Marshal(map[string]string{"centre": k.Centre, "sala": k.Sala, "shift": k.Shift, "school": "N/A"})
	return raw
}

func (f *fixture) pool(k domain.SlotKey, capacity int) {
	_, err := f.svc.Scheduler.UpsertSlotPool(f.ctx, f.admin, k, capacity)
	require.NoError(f.t, err)
}

// openPreAdmission creates a derivation to program and accepts it as actor.
func (f *fixture) openPreAdmission(actor domain.Actor, beneficiaryID, program string, payload domain.Payload) (*domain.Derivation, *domain.PreAdmission) {
	d, err := f.svc.Cases.CreateDerivation(f.ctx, actor, CreateDerivationRequest{
		BeneficiaryID:   beneficiaryID,
		SourceProgramID: progIntake,
		TargetProgramID: program,
		Priority:        domain.PriorityHigh,
	})
	require.NoError(f.t, err)
	pa, err := f.svc.Cases.AcceptDerivation(f.ctx, actor, d.ID, payload)
	require.NoError(f.t, err)
	return d, pa
}

// admit runs a case into an ACTIVE admission of program with an ENTRY IVI of {c1, c2, c5}.
func (f *fixture) admit(docNumber, program string, pool domain.SlotKey) *domain.Admission {
	b := f.beneficiary(docNumber)
	_, pa := f.openPreAdmission(f.op1, b, program, poolPayload(pool))
	_, err := f.svc.Assessment.CreateSnapshot(f.ctx, f.op1, CreateSnapshotRequest{
		PreAdmissionID: pa.ID,
		Family:         domain.FamilyIVI,
		Phase:          domain.PhaseEntry,
		CriterionIDs:   f.ids("c1", "c2", "c5"),
	})
	require.NoError(f.t, err)
	_, adm, err := f.svc.Cases.FinalizePreAdmission(f.ctx, f.op1, pa.ID, domain.DecisionAdmit)
	require.NoError(f.t, err)
	require.NotNil(f.t, adm)
	return adm
}

func (f *fixture) occupancy(k domain.SlotKey) *domain.PoolOccupancy {
	occ, err := f.svc.Scheduler.Occupancy(f.ctx, f.viewer, k)
	require.NoError(f.t, err)
	return occ
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, domain.KindOf(err), "unexpected error: %v", err)
}
