package repository

import (
	"context"
	"slices"
	"sort"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
)

// ---- pools ----

func (t *memoryTx) GetSlotPool(_ context.Context, key domain.SlotKey) (*domain.SlotPool, error) {
	p, ok := t.st.pools[key]
	if !ok {
		return nil, domain.NotFoundf("slot pool %s", key)
	}
	return &p, nil
}

func (t *memoryTx) ListSlotPools(_ context.Context) ([]domain.SlotPool, error) {
	out := make([]domain.SlotPool, 0, len(t.st.pools))
	for _, p := range t.st.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (t *memoryTx) UpsertSlotPool(_ context.Context, p *domain.SlotPool) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.pools[p.SlotKey] = *p
	return nil
}

func (t *memoryTx) CountAssigned(_ context.Context, key domain.SlotKey) (int, error) {
	n := 0
	for _, a := range t.st.allocations {
		if a.SlotKey == key && a.State == domain.AllocAssigned {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) waiting(key domain.SlotKey) []domain.Admission {
	var out []domain.Admission
	for _, a := range t.st.admissions {
		if a.State == domain.AdmissionActive && a.AllocationState == domain.AllocationWaitlist &&
			a.RequestedPool != nil && *a.RequestedPool == key {
			out = append(out, cloneAdmission(a))
		}
	}
	return out
}

func (t *memoryTx) CountWaitlist(_ context.Context, key domain.SlotKey) (int, error) {
	return len(t.waiting(key)), nil
}

func (t *memoryTx) ListWaitlist(_ context.Context, key domain.SlotKey) ([]domain.Admission, error) {
	out := t.waiting(key)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if out == nil {
		out = []domain.Admission{}
	}
	return out, nil
}

// ---- allocations ----

func cloneAllocation(a domain.Allocation) domain.Allocation {
	if a.EndDate != nil {
		d := *a.EndDate
		a.EndDate = &d
	}
	return a
}

func (t *memoryTx) GetAssignedAllocation(_ context.Context, admissionID string) (*domain.Allocation, error) {
	for _, a := range t.st.allocations {
		if a.AdmissionID == admissionID && a.State == domain.AllocAssigned {
			a = cloneAllocation(a)
			return &a, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) ListAllocations(_ context.Context, admissionID string) ([]domain.Allocation, error) {
	out := []domain.Allocation{}
	for _, a := range t.st.allocations {
		if a.AdmissionID == admissionID {
			out = append(out, cloneAllocation(a))
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

func (t *memoryTx) InsertAllocation(ctx context.Context, a *domain.Allocation) error {
	if err := t.writable(); err != nil {
		return err
	}
	if a.State == domain.AllocAssigned {
		if cur, _ := t.GetAssignedAllocation(ctx, a.AdmissionID); cur != nil {
			return domain.Errorf(domain.KindConflict, "admission %s already holds allocation %s", a.AdmissionID, cur.ID)
		}
	}
	t.st.allocations[a.ID] = cloneAllocation(*a)
	return nil
}

func (t *memoryTx) UpdateAllocation(_ context.Context, a *domain.Allocation) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.allocations[a.ID]; !ok {
		return domain.NotFoundf("allocation %s", a.ID)
	}
	t.st.allocations[a.ID] = cloneAllocation(*a)
	return nil
}

// ---- interventions ----

func cloneIntervention(i domain.Intervention) domain.Intervention {
	i.Responsibles = slices.Clone(i.Responsibles)
	if i.UpdatedAt != nil {
		u := *i.UpdatedAt
		i.UpdatedAt = &u
	}
	return i
}

func (t *memoryTx) GetIntervention(_ context.Context, id string) (*domain.Intervention, error) {
	i, ok := t.st.interventions[id]
	if !ok {
		return nil, domain.NotFoundf("intervention %s", id)
	}
	i = cloneIntervention(i)
	return &i, nil
}

func (t *memoryTx) ListInterventions(_ context.Context, admissionID string) ([]domain.Intervention, error) {
	out := []domain.Intervention{}
	for _, i := range t.st.interventions {
		if i.AdmissionID == admissionID {
			out = append(out, cloneIntervention(i))
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (t *memoryTx) InsertIntervention(_ context.Context, i *domain.Intervention) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.interventions[i.ID] = cloneIntervention(*i)
	return nil
}

func (t *memoryTx) UpdateIntervention(_ context.Context, i *domain.Intervention) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.interventions[i.ID]; !ok {
		return domain.NotFoundf("intervention %s", i.ID)
	}
	t.st.interventions[i.ID] = cloneIntervention(*i)
	return nil
}

func (t *memoryTx) DeleteIntervention(_ context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.interventions[id]; !ok {
		return domain.NotFoundf("intervention %s", id)
	}
	delete(t.st.interventions, id)
	return nil
}

// ---- events ----

func (t *memoryTx) AppendEvent(_ context.Context, e *domain.CaseEvent) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.seq++
	e.Seq = t.st.seq
	t.st.events = append(t.st.events, *e)
	return nil
}

func (t *memoryTx) ListEvents(_ context.Context, f domain.EventFilter) ([]domain.CaseEvent, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	out := []domain.CaseEvent{}
	for i := range t.st.events {
		if !f.Matches(&t.st.events[i]) {
			continue
		}
		out = append(out, t.st.events[i])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
