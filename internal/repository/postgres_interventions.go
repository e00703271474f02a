package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/lib/pq"
)

const interventionColumns = `
	intervention_id::text AS intervention_id,
	admission_id::text AS admission_id,
	criterion_id::text AS criterion_id,
	action_tag,
	responsibles,
	impact,
	notes,
	created_by,
	created_at,
	updated_by,
	updated_at`

type interventionRow struct {
	ID           string         `db:"intervention_id"`
	AdmissionID  string         `db:"admission_id"`
	CriterionID  string         `db:"criterion_id"`
	ActionTag    string         `db:"action_tag"`
	Responsibles pq.StringArray `db:"responsibles"`
	Impact       string         `db:"impact"`
	Notes        string         `db:"notes"`
	CreatedBy    string         `db:"created_by"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedBy    string         `db:"updated_by"`
	UpdatedAt    sql.NullTime   `db:"updated_at"`
}

func (r *interventionRow) toDomain() *domain.Intervention {
	i := &domain.Intervention{
		ID:           r.ID,
		AdmissionID:  r.AdmissionID,
		CriterionID:  r.CriterionID,
		ActionTag:    domain.ActionTag(r.ActionTag),
		Responsibles: []string(r.Responsibles),
		Impact:       domain.Impact(r.Impact),
		Notes:        r.Notes,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedBy:    r.UpdatedBy,
	}
	if r.UpdatedAt.Valid {
		ts := r.UpdatedAt.Time
		i.UpdatedAt = &ts
	}
	return i
}

func (t *pgTx) GetIntervention(ctx context.Context, id string) (*domain.Intervention, error) {
	var r interventionRow
	if err := t.tx.GetContext(ctx, &r, `SELECT `+interventionColumns+` FROM interventions WHERE intervention_id = $1`, id); err != nil {
		return nil, translate(err, "intervention "+id)
	}
	return r.toDomain(), nil
}

func (t *pgTx) ListInterventions(ctx context.Context, admissionID string) ([]domain.Intervention, error) {
	var rows []interventionRow
	query := `SELECT ` + interventionColumns + ` FROM interventions WHERE admission_id = $1 ORDER BY created_at, intervention_id`
	if err := t.tx.SelectContext(ctx, &rows, query, admissionID); err != nil {
		return nil, translate(err, "list interventions of "+admissionID)
	}
	out := make([]domain.Intervention, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (t *pgTx) InsertIntervention(ctx context.Context, i *domain.Intervention) error {
	query := `
		INSERT INTO interventions (
			intervention_id, admission_id, criterion_id, action_tag, responsibles, impact, notes,
			created_by, created_at, updated_by, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := t.tx.ExecContext(ctx, query,
		i.ID, i.AdmissionID, i.CriterionID, string(i.ActionTag), pq.Array(i.Responsibles), string(i.Impact), i.Notes,
		i.CreatedBy, i.CreatedAt, i.UpdatedBy, i.UpdatedAt,
	)
	return translate(err, "insert intervention for "+i.AdmissionID)
}

func (t *pgTx) UpdateIntervention(ctx context.Context, i *domain.Intervention) error {
	query := `
		UPDATE interventions
		SET criterion_id = $2, action_tag = $3, responsibles = $4, impact = $5, notes = $6,
			updated_by = $7, updated_at = $8
		WHERE intervention_id = $1
	`
	res, err := t.tx.ExecContext(ctx, query,
		i.ID, i.CriterionID, string(i.ActionTag), pq.Array(i.Responsibles), string(i.Impact), i.Notes, i.UpdatedBy, i.UpdatedAt,
	)
	if err != nil {
		return translate(err, "update intervention "+i.ID)
	}
	return mustAffect(res, "intervention "+i.ID)
}

func (t *pgTx) DeleteIntervention(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM interventions WHERE intervention_id = $1`, id)
	if err != nil {
		return translate(err, "delete intervention "+id)
	}
	return mustAffect(res, "intervention "+id)
}
