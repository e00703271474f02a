package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/lib/pq"
)

const snapshotColumns = `
	snapshot_key::text AS snapshot_key,
	pre_admission_id::text AS pre_admission_id,
	beneficiary_id::text AS beneficiary_id,
	program_id,
	family,
	phase,
	total_score,
	max_possible_score,
	notes,
	version,
	created_by,
	created_at,
	updated_by,
	updated_at`

type snapshotRow struct {
	Key              string       `db:"snapshot_key"`
	PreAdmissionID   string       `db:"pre_admission_id"`
	BeneficiaryID    string       `db:"beneficiary_id"`
	ProgramID        string       `db:"program_id"`
	Family           string       `db:"family"`
	Phase            string       `db:"phase"`
	TotalScore       int          `db:"total_score"`
	MaxPossibleScore int          `db:"max_possible_score"`
	Notes            string       `db:"notes"`
	Version          int          `db:"version"`
	CreatedBy        string       `db:"created_by"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedBy        string       `db:"updated_by"`
	UpdatedAt        sql.NullTime `db:"updated_at"`
}

func (r *snapshotRow) toDomain() *domain.AssessmentSnapshot {
	s := &domain.AssessmentSnapshot{
		Key:              r.Key,
		PreAdmissionID:   r.PreAdmissionID,
		BeneficiaryID:    r.BeneficiaryID,
		ProgramID:        r.ProgramID,
		Family:           domain.CriterionFamily(r.Family),
		Phase:            domain.Phase(r.Phase),
		TotalScore:       r.TotalScore,
		MaxPossibleScore: r.MaxPossibleScore,
		Notes:            r.Notes,
		Version:          r.Version,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt,
		UpdatedBy:        r.UpdatedBy,
	}
	if r.UpdatedAt.Valid {
		ts := r.UpdatedAt.Time
		s.UpdatedAt = &ts
	}
	return s
}

type weightRow struct {
	CriterionID string `db:"criterion_id"`
	Weight      int    `db:"weight"`
}

// loadParts fills the items (in selection order) and the frozen frame of s.
func (t *pgTx) loadParts(ctx context.Context, s *domain.AssessmentSnapshot) error {
	var items []weightRow
	query := `
		SELECT criterion_id::text AS criterion_id, weight
		FROM assessment_snapshot_items
		WHERE snapshot_key = $1
		ORDER BY position
	`
	if err := t.tx.SelectContext(ctx, &items, query, s.Key); err != nil {
		return translate(err, "snapshot items "+s.Key)
	}
	var frame []weightRow
	query = `
		SELECT criterion_id::text AS criterion_id, weight
		FROM assessment_snapshot_frames
		WHERE snapshot_key = $1
		ORDER BY criterion_id
	`
	if err := t.tx.SelectContext(ctx, &frame, query, s.Key); err != nil {
		return translate(err, "snapshot frame "+s.Key)
	}
	s.Items = make([]domain.SnapshotItem, 0, len(items))
	for _, it := range items {
		s.Items = append(s.Items, domain.SnapshotItem{CriterionID: it.CriterionID, Weight: it.Weight})
	}
	s.Frame = make([]domain.FrameEntry, 0, len(frame))
	for _, f := range frame {
		s.Frame = append(s.Frame, domain.FrameEntry{CriterionID: f.CriterionID, Weight: f.Weight})
	}
	return nil
}

func (t *pgTx) GetSnapshot(ctx context.Context, key string) (*domain.AssessmentSnapshot, error) {
	var r snapshotRow
	if err := t.tx.GetContext(ctx, &r, `SELECT `+snapshotColumns+` FROM assessment_snapshots WHERE snapshot_key = $1`, key); err != nil {
		return nil, translate(err, "snapshot "+key)
	}
	s := r.toDomain()
	if err := t.loadParts(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *pgTx) ListSnapshots(ctx context.Context, preAdmissionID string) ([]domain.AssessmentSnapshot, error) {
	var rows []snapshotRow
	query := `SELECT ` + snapshotColumns + ` FROM assessment_snapshots WHERE pre_admission_id = $1 ORDER BY created_at, snapshot_key`
	if err := t.tx.SelectContext(ctx, &rows, query, preAdmissionID); err != nil {
		return nil, translate(err, "list snapshots")
	}
	out := make([]domain.AssessmentSnapshot, 0, len(rows))
	for i := range rows {
		s := rows[i].toDomain()
		if err := t.loadParts(ctx, s); err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// insertItems writes the item set with one statement via array parameters.
func (t *pgTx) insertItems(ctx context.Context, key string, items []domain.SnapshotItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	weights := make([]int64, len(items))
	positions := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.CriterionID
		weights[i] = int64(it.Weight)
		positions[i] = int64(i)
	}
	query := `
		INSERT INTO assessment_snapshot_items (snapshot_key, criterion_id, weight, position)
		SELECT $1::uuid, c, w, p FROM unnest($2::uuid[], $3::int[], $4::int[]) AS t(c, w, p)
	`
	_, err := t.tx.ExecContext(ctx, query, key, pq.Array(ids), pq.Array(weights), pq.Array(positions))
	return translate(err, "insert snapshot items "+key)
}

func (t *pgTx) InsertSnapshot(ctx context.Context, s *domain.AssessmentSnapshot) error {
	query := `
		INSERT INTO assessment_snapshots (
			snapshot_key, pre_admission_id, beneficiary_id, program_id, family, phase,
			total_score, max_possible_score, notes, version, created_by, created_at, updated_by, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := t.tx.ExecContext(ctx, query,
		s.Key, s.PreAdmissionID, s.BeneficiaryID, s.ProgramID, string(s.Family), string(s.Phase),
		s.TotalScore, s.MaxPossibleScore, s.Notes, s.Version, s.CreatedBy, s.CreatedAt, s.UpdatedBy, s.UpdatedAt,
	)
	if err != nil {
		return translate(err, "insert snapshot "+s.Key)
	}

	if len(s.Frame) > 0 {
		ids := make([]string, len(s.Frame))
		weights := make([]int64, len(s.Frame))
		for i, f := range s.Frame {
			ids[i] = f.CriterionID
			weights[i] = int64(f.Weight)
		}
		query = `
			INSERT INTO assessment_snapshot_frames (snapshot_key, criterion_id, weight)
			SELECT $1::uuid, c, w FROM unnest($2::uuid[], $3::int[]) AS t(c, w)
		`
		if _, err := t.tx.ExecContext(ctx, query, s.Key, pq.Array(ids), pq.Array(weights)); err != nil {
			return translate(err, "insert snapshot frame "+s.Key)
		}
	}
	return t.insertItems(ctx, s.Key, s.Items)
}

func (t *pgTx) ReplaceSnapshotItems(ctx context.Context, s *domain.AssessmentSnapshot) error {
	query := `
		UPDATE assessment_snapshots
		SET total_score = $2, notes = $3, version = $4, updated_by = $5, updated_at = $6
		WHERE snapshot_key = $1
	`
	res, err := t.tx.ExecContext(ctx, query, s.Key, s.TotalScore, s.Notes, s.Version, s.UpdatedBy, s.UpdatedAt)
	if err != nil {
		return translate(err, "update snapshot "+s.Key)
	}
	if err := mustAffect(res, "snapshot "+s.Key); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM assessment_snapshot_items WHERE snapshot_key = $1`, s.Key); err != nil {
		return translate(err, "delete snapshot items "+s.Key)
	}
	return t.insertItems(ctx, s.Key, s.Items)
}

func (t *pgTx) DeleteSnapshots(ctx context.Context, preAdmissionID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM assessment_snapshots WHERE pre_admission_id = $1`, preAdmissionID)
	return translate(err, "delete snapshots of "+preAdmissionID)
}
