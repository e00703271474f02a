package repository

import (
	"context"
	"slices"
	"sort"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
)

// ---- derivations ----

func (t *memoryTx) GetDerivation(_ context.Context, id string) (*domain.Derivation, error) {
	d, ok := t.st.derivations[id]
	if !ok {
		return nil, domain.NotFoundf("derivation %s", id)
	}
	return &d, nil
}

func (t *memoryTx) ListDerivations(_ context.Context, f domain.DerivationFilter) ([]domain.Derivation, error) {
	out := []domain.Derivation{}
	for _, d := range t.st.derivations {
		if f.BeneficiaryID != "" && d.BeneficiaryID != f.BeneficiaryID {
			continue
		}
		if f.TargetProgramID != "" && d.TargetProgramID != f.TargetProgramID {
			continue
		}
		if f.State != "" && d.State != f.State {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *memoryTx) FindOpenDerivation(_ context.Context, beneficiaryID, targetProgramID string) (*domain.Derivation, error) {
	for _, d := range t.st.derivations {
		if d.BeneficiaryID == beneficiaryID && d.TargetProgramID == targetProgramID && d.State.Open() {
			return &d, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) InsertDerivation(ctx context.Context, d *domain.Derivation) error {
	if err := t.writable(); err != nil {
		return err
	}
	if d.State.Open() {
		if open, _ := t.FindOpenDerivation(ctx, d.BeneficiaryID, d.TargetProgramID); open != nil {
			return domain.Errorf(domain.KindConflict, "beneficiary %s already has open derivation %s to %s", d.BeneficiaryID, open.ID, d.TargetProgramID)
		}
	}
	t.st.derivations[d.ID] = *d
	return nil
}

func (t *memoryTx) UpdateDerivation(_ context.Context, d *domain.Derivation) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.derivations[d.ID]; !ok {
		return domain.NotFoundf("derivation %s", d.ID)
	}
	if d.State.Open() {
		for _, other := range t.st.derivations {
			if other.ID != d.ID && other.BeneficiaryID == d.BeneficiaryID && other.TargetProgramID == d.TargetProgramID && other.State.Open() {
				return domain.Errorf(domain.KindConflict, "beneficiary %s already has open derivation %s to %s", d.BeneficiaryID, other.ID, d.TargetProgramID)
			}
		}
	}
	t.st.derivations[d.ID] = *d
	return nil
}

func (t *memoryTx) DeleteDerivation(_ context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.derivations[id]; !ok {
		return domain.NotFoundf("derivation %s", id)
	}
	delete(t.st.derivations, id)
	return nil
}

// ---- pre-admissions ----

func clonePreAdmission(p domain.PreAdmission) domain.PreAdmission {
	p.Payload = slices.Clone(p.Payload)
	if p.Admitted != nil {
		v := *p.Admitted
		p.Admitted = &v
	}
	return p
}

func (t *memoryTx) GetPreAdmission(_ context.Context, id string) (*domain.PreAdmission, error) {
	p, ok := t.st.preAdmissions[id]
	if !ok {
		return nil, domain.NotFoundf("pre-admission %s", id)
	}
	p = clonePreAdmission(p)
	return &p, nil
}

func (t *memoryTx) InsertPreAdmission(_ context.Context, p *domain.PreAdmission) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, other := range t.st.preAdmissions {
		if other.DerivationID == p.DerivationID {
			return domain.Errorf(domain.KindConflict, "derivation %s already has pre-admission %s", p.DerivationID, other.ID)
		}
	}
	t.st.preAdmissions[p.ID] = clonePreAdmission(*p)
	return nil
}

func (t *memoryTx) UpdatePreAdmission(_ context.Context, p *domain.PreAdmission) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.preAdmissions[p.ID]; !ok {
		return domain.NotFoundf("pre-admission %s", p.ID)
	}
	t.st.preAdmissions[p.ID] = clonePreAdmission(*p)
	return nil
}

func (t *memoryTx) DeletePreAdmission(_ context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.preAdmissions[id]; !ok {
		return domain.NotFoundf("pre-admission %s", id)
	}
	delete(t.st.preAdmissions, id)
	return nil
}

// ---- admissions ----

func cloneAdmission(a domain.Admission) domain.Admission {
	if a.RequestedPool != nil {
		k := *a.RequestedPool
		a.RequestedPool = &k
	}
	return a
}

func (t *memoryTx) GetAdmission(_ context.Context, id string) (*domain.Admission, error) {
	a, ok := t.st.admissions[id]
	if !ok {
		return nil, domain.NotFoundf("admission %s", id)
	}
	a = cloneAdmission(a)
	return &a, nil
}

func (t *memoryTx) GetAdmissionByPreAdmission(_ context.Context, preAdmissionID string) (*domain.Admission, error) {
	for _, a := range t.st.admissions {
		if a.PreAdmissionID == preAdmissionID {
			a = cloneAdmission(a)
			return &a, nil
		}
	}
	return nil, domain.NotFoundf("admission for pre-admission %s", preAdmissionID)
}

func (t *memoryTx) InsertAdmission(_ context.Context, a *domain.Admission) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, other := range t.st.admissions {
		if other.PreAdmissionID == a.PreAdmissionID {
			return domain.Errorf(domain.KindConflict, "pre-admission %s already admitted as %s", a.PreAdmissionID, other.ID)
		}
	}
	t.st.admissions[a.ID] = cloneAdmission(*a)
	return nil
}

func (t *memoryTx) UpdateAdmission(_ context.Context, a *domain.Admission) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.admissions[a.ID]; !ok {
		return domain.NotFoundf("admission %s", a.ID)
	}
	t.st.admissions[a.ID] = cloneAdmission(*a)
	return nil
}

// ---- snapshots ----

func cloneSnapshot(s domain.AssessmentSnapshot) domain.AssessmentSnapshot {
	s.Items = slices.Clone(s.Items)
	s.Frame = slices.Clone(s.Frame)
	return s
}

func (t *memoryTx) GetSnapshot(_ context.Context, key string) (*domain.AssessmentSnapshot, error) {
	s, ok := t.st.snapshots[key]
	if !ok {
		return nil, domain.NotFoundf("snapshot %s", key)
	}
	s = cloneSnapshot(s)
	return &s, nil
}

func (t *memoryTx) ListSnapshots(_ context.Context, preAdmissionID string) ([]domain.AssessmentSnapshot, error) {
	out := []domain.AssessmentSnapshot{}
	for _, s := range t.st.snapshots {
		if s.PreAdmissionID == preAdmissionID {
			out = append(out, cloneSnapshot(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (t *memoryTx) InsertSnapshot(_ context.Context, s *domain.AssessmentSnapshot) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.snapshots[s.Key]; ok {
		return domain.Errorf(domain.KindConflict, "snapshot %s exists", s.Key)
	}
	t.st.snapshots[s.Key] = cloneSnapshot(*s)
	return nil
}

func (t *memoryTx) ReplaceSnapshotItems(_ context.Context, s *domain.AssessmentSnapshot) error {
	if err := t.writable(); err != nil {
		return err
	}
	cur, ok := t.st.snapshots[s.Key]
	if !ok {
		return domain.NotFoundf("snapshot %s", s.Key)
	}
	cur.Items = slices.Clone(s.Items)
	cur.TotalScore = s.TotalScore
	cur.Notes = s.Notes
	cur.Version = s.Version
	cur.UpdatedBy = s.UpdatedBy
	cur.UpdatedAt = s.UpdatedAt
	t.st.snapshots[s.Key] = cur
	return nil
}

func (t *memoryTx) DeleteSnapshots(_ context.Context, preAdmissionID string) error {
	if err := t.writable(); err != nil {
		return err
	}
	for k, s := range t.st.snapshots {
		if s.PreAdmissionID == preAdmissionID {
			delete(t.st.snapshots, k)
		}
	}
	return nil
}
