package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
)

const criterionColumns = `
	criterion_id::text AS criterion_id,
	family,
	kind,
	weight,
	modifiable,
	text,
	active,
	created_at,
	updated_at`

func (t *pgTx) GetCriterion(ctx context.Context, id string) (*domain.Criterion, error) {
	var c domain.Criterion
	query := `SELECT ` + criterionColumns + ` FROM criteria WHERE criterion_id = $1`
	if err := t.tx.GetContext(ctx, &c, query, id); err != nil {
		return nil, translate(err, "criterion "+id)
	}
	return &c, nil
}

// ListCriteria builds its WHERE clause from the non-zero filter fields.
func (t *pgTx) ListCriteria(ctx context.Context, family domain.CriterionFamily, f domain.CriteriaFilter) ([]domain.Criterion, error) {
	where := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if family != "" {
		where = append(where, fmt.Sprintf("family = $%d", argIdx))
		args = append(args, string(family))
		argIdx++
	}
	if !f.IncludeInactive {
		where = append(where, "active")
	}
	if f.Kind != "" {
		where = append(where, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, f.Kind)
		argIdx++
	}
	if f.Modifiable != nil {
		where = append(where, fmt.Sprintf("modifiable = $%d", argIdx))
		args = append(args, *f.Modifiable)
	}

	query := fmt.Sprintf(`SELECT %s FROM criteria WHERE %s ORDER BY kind, text, criterion_id`,
		criterionColumns, strings.Join(where, " AND "))
	out := []domain.Criterion{}
	if err := t.tx.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, translate(err, "list criteria")
	}
	return out, nil
}

func (t *pgTx) InsertCriterion(ctx context.Context, c *domain.Criterion) error {
	query := `
		INSERT INTO criteria (criterion_id, family, kind, weight, modifiable, text, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := t.tx.ExecContext(ctx, query,
		c.ID, string(c.Family), c.Kind, c.Weight, c.Modifiable, c.Text, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	return translate(err, "insert criterion "+c.ID)
}

func (t *pgTx) UpdateCriterion(ctx context.Context, c *domain.Criterion) error {
	query := `
		UPDATE criteria
		SET kind = $2, weight = $3, modifiable = $4, text = $5, active = $6, updated_at = $7
		WHERE criterion_id = $1
	`
	res, err := t.tx.ExecContext(ctx, query, c.ID, c.Kind, c.Weight, c.Modifiable, c.Text, c.Active, c.UpdatedAt)
	if err != nil {
		return translate(err, "update criterion "+c.ID)
	}
	return mustAffect(res, "criterion "+c.ID)
}

const programColumns = `program_id, name, allocates_seats, requires_entry_index, active, updated_at`

func (t *pgTx) GetProgram(ctx context.Context, id string) (*domain.Program, error) {
	var p domain.Program
	if err := t.tx.GetContext(ctx, &p, `SELECT `+programColumns+` FROM programs WHERE program_id = $1`, id); err != nil {
		return nil, translate(err, "program "+id)
	}
	return &p, nil
}

func (t *pgTx) ListPrograms(ctx context.Context) ([]domain.Program, error) {
	out := []domain.Program{}
	if err := t.tx.SelectContext(ctx, &out, `SELECT `+programColumns+` FROM programs ORDER BY program_id`); err != nil {
		return nil, translate(err, "list programs")
	}
	return out, nil
}

func (t *pgTx) UpsertProgram(ctx context.Context, p *domain.Program) error {
	query := `
		INSERT INTO programs (program_id, name, allocates_seats, requires_entry_index, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (program_id) DO UPDATE SET
			name = EXCLUDED.name,
			allocates_seats = EXCLUDED.allocates_seats,
			requires_entry_index = EXCLUDED.requires_entry_index,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := t.tx.ExecContext(ctx, query, p.ID, p.Name, p.AllocatesSeats, p.RequiresEntryIndex, p.Active, p.UpdatedAt)
	return translate(err, "upsert program "+p.ID)
}

func (t *pgTx) ListResponsibleAgents(ctx context.Context, activeOnly bool) ([]domain.ResponsibleAgent, error) {
	query := `SELECT code, name, active FROM responsible_agents`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY code`
	out := []domain.ResponsibleAgent{}
	if err := t.tx.SelectContext(ctx, &out, query); err != nil {
		return nil, translate(err, "list responsible agents")
	}
	return out, nil
}

func (t *pgTx) UpsertResponsibleAgent(ctx context.Context, a *domain.ResponsibleAgent) error {
	query := `
		INSERT INTO responsible_agents (code, name, active) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, active = EXCLUDED.active
	`
	_, err := t.tx.ExecContext(ctx, query, a.Code, a.Name, a.Active)
	return translate(err, "upsert responsible agent "+a.Code)
}
