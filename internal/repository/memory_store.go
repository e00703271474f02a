package repository

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
)

// MemoryStore is used when the database is disabled (local runs, tests).
// A single mutex serialises every unit of work; each one works on a copy of the
// state that replaces the live state only when fn succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

var _ Store = (*MemoryStore)(nil)

var errReadOnly = errors.New("write attempted in read-only view")

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memoryTx{st: work}); err != nil {
		return err
	}
	// cancellation is honoured up to the commit point
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memoryTx{st: s.state, readOnly: true})
}

func (s *MemoryStore) Close() error { return nil }

type memState struct {
	seq           int64
	beneficiaries map[string]domain.Beneficiary
	links         map[string]domain.HouseholdLink
	criteria      map[string]domain.Criterion
	programs      map[string]domain.Program
	agents        map[string]domain.ResponsibleAgent
	derivations   map[string]domain.Derivation
	preAdmissions map[string]domain.PreAdmission
	admissions    map[string]domain.Admission
	snapshots     map[string]domain.AssessmentSnapshot
	pools         map[domain.SlotKey]domain.SlotPool
	allocations   map[string]domain.Allocation
	interventions map[string]domain.Intervention
	events        []domain.CaseEvent
}

func newMemState() *memState {
	return &memState{
		beneficiaries: map[string]domain.Beneficiary{},
		links:         map[string]domain.HouseholdLink{},
		criteria:      map[string]domain.Criterion{},
		programs:      map[string]domain.Program{},
		agents:        map[string]domain.ResponsibleAgent{},
		derivations:   map[string]domain.Derivation{},
		preAdmissions: map[string]domain.PreAdmission{},
		admissions:    map[string]domain.Admission{},
		snapshots:     map[string]domain.AssessmentSnapshot{},
		pools:         map[domain.SlotKey]domain.SlotPool{},
		allocations:   map[string]domain.Allocation{},
		interventions: map[string]domain.Intervention{},
	}
}

// clone copies the maps. Stored values are never mutated in place, so a shallow copy is enough.
func (m *memState) clone() *memState {
	return &memState{
		seq:           m.seq,
		beneficiaries: maps.Clone(m.beneficiaries),
		links:         maps.Clone(m.links),
		criteria:      maps.Clone(m.criteria),
		programs:      maps.Clone(m.programs),
		agents:        maps.Clone(m.agents),
		derivations:   maps.Clone(m.derivations),
		preAdmissions: maps.Clone(m.preAdmissions),
		admissions:    maps.Clone(m.admissions),
		snapshots:     maps.Clone(m.snapshots),
		pools:         maps.Clone(m.pools),
		allocations:   maps.Clone(m.allocations),
		interventions: maps.Clone(m.interventions),
		events:        append([]domain.CaseEvent(nil), m.events...),
	}
}

type memoryTx struct {
	st       *memState
	readOnly bool
}

var _ Tx = (*memoryTx)(nil)

// Lock is a no-op: the store mutex already serialises every unit of work.
func (t *memoryTx) Lock(ctx context.Context, _ string) error {
	return ctx.Err()
}

func (t *memoryTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

// ---- beneficiaries ----

func (t *memoryTx) GetBeneficiary(_ context.Context, id string) (*domain.Beneficiary, error) {
	b, ok := t.st.beneficiaries[id]
	if !ok {
		return nil, domain.NotFoundf("beneficiary %s", id)
	}
	return &b, nil
}

func (t *memoryTx) GetBeneficiaryByDocument(_ context.Context, docType, docNumber string) (*domain.Beneficiary, error) {
	for _, b := range t.st.beneficiaries {
		if b.DocumentType == docType && b.DocumentNumber == docNumber {
			return &b, nil
		}
	}
	return nil, domain.NotFoundf("beneficiary %s %s", docType, docNumber)
}

func (t *memoryTx) InsertBeneficiary(_ context.Context, b *domain.Beneficiary) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.beneficiaries[b.ID]; ok {
		return domain.Errorf(domain.KindConflict, "beneficiary %s exists", b.ID)
	}
	for _, other := range t.st.beneficiaries {
		if other.DocumentType == b.DocumentType && other.DocumentNumber == b.DocumentNumber {
			return domain.Errorf(domain.KindConflict, "document %s %s already registered", b.DocumentType, b.DocumentNumber)
		}
	}
	t.st.beneficiaries[b.ID] = *b
	return nil
}

func (t *memoryTx) SetBeneficiaryActive(_ context.Context, id string, active bool) error {
	if err := t.writable(); err != nil {
		return err
	}
	b, ok := t.st.beneficiaries[id]
	if !ok {
		return domain.NotFoundf("beneficiary %s", id)
	}
	b.Active = active
	t.st.beneficiaries[id] = b
	return nil
}

func (t *memoryTx) ListHouseholdLinks(_ context.Context, beneficiaryID string) ([]domain.HouseholdLink, error) {
	out := []domain.HouseholdLink{}
	for _, l := range t.st.links {
		if l.FromID == beneficiaryID || l.ToID == beneficiaryID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memoryTx) InsertHouseholdLink(_ context.Context, l *domain.HouseholdLink) error {
	if err := t.writable(); err != nil {
		return err
	}
	a, b := domain.PairKey(l.FromID, l.ToID)
	for _, other := range t.st.links {
		oa, ob := domain.PairKey(other.FromID, other.ToID)
		if oa == a && ob == b {
			return domain.Errorf(domain.KindConflict, "link between %s and %s exists", l.FromID, l.ToID)
		}
	}
	t.st.links[l.ID] = *l
	return nil
}

// ---- catalog ----

func (t *memoryTx) GetCriterion(_ context.Context, id string) (*domain.Criterion, error) {
	c, ok := t.st.criteria[id]
	if !ok {
		return nil, domain.NotFoundf("criterion %s", id)
	}
	return &c, nil
}

func (t *memoryTx) ListCriteria(_ context.Context, family domain.CriterionFamily, f domain.CriteriaFilter) ([]domain.Criterion, error) {
	out := []domain.Criterion{}
	for _, c := range t.st.criteria {
		if family != "" && c.Family != family {
			continue
		}
		if !f.IncludeInactive && !c.Active {
			continue
		}
		if f.Kind != "" && c.Kind != f.Kind {
			continue
		}
		if f.Modifiable != nil && c.Modifiable != *f.Modifiable {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Text != b.Text {
			return a.Text < b.Text
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (t *memoryTx) InsertCriterion(_ context.Context, c *domain.Criterion) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.criteria[c.ID]; ok {
		return domain.Errorf(domain.KindConflict, "criterion %s exists", c.ID)
	}
	t.st.criteria[c.ID] = *c
	return nil
}

func (t *memoryTx) UpdateCriterion(_ context.Context, c *domain.Criterion) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.criteria[c.ID]; !ok {
		return domain.NotFoundf("criterion %s", c.ID)
	}
	t.st.criteria[c.ID] = *c
	return nil
}

func (t *memoryTx) GetProgram(_ context.Context, id string) (*domain.Program, error) {
	p, ok := t.st.programs[id]
	if !ok {
		return nil, domain.NotFoundf("program %s", id)
	}
	return &p, nil
}

func (t *memoryTx) ListPrograms(_ context.Context) ([]domain.Program, error) {
	out := make([]domain.Program, 0, len(t.st.programs))
	for _, p := range t.st.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) UpsertProgram(_ context.Context, p *domain.Program) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.programs[p.ID] = *p
	return nil
}

func (t *memoryTx) ListResponsibleAgents(_ context.Context, activeOnly bool) ([]domain.ResponsibleAgent, error) {
	out := []domain.ResponsibleAgent{}
	for _, a := range t.st.agents {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (t *memoryTx) UpsertResponsibleAgent(_ context.Context, a *domain.ResponsibleAgent) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.agents[a.Code] = *a
	return nil
}
