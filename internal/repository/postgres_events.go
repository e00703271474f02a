package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/google/uuid"
)

type caseEventRow struct {
	Seq            int64     `db:"seq"`
	ID             string    `db:"event_id"`
	BeneficiaryID  string    `db:"beneficiary_id"`
	ProgramID      string    `db:"program_id"`
	DerivationID   string    `db:"derivation_id"`
	PreAdmissionID string    `db:"pre_admission_id"`
	AdmissionID    string    `db:"admission_id"`
	Kind           string    `db:"kind"`
	Actor          string    `db:"actor"`
	At             time.Time `db:"at"`
	FreeText       string    `db:"free_text"`
}

// eventLogLockID is the advisory lock held from a tx's first event insert until
// it ends, so seq values become visible in the order they were assigned.
const eventLogLockID int64 = 0x7661616365767473

func (t *pgTx) AppendEvent(ctx context.Context, e *domain.CaseEvent) error {
	if !t.tailLocked {
		if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, eventLogLockID); err != nil {
			return fmt.Errorf("failed to lock event log: %w", err)
		}
		t.tailLocked = true
	}
	query := `
		INSERT INTO case_events (
			event_id, beneficiary_id, program_id, derivation_id, pre_admission_id, admission_id,
			kind, actor, at, free_text
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq
	`
	err := t.tx.QueryRowContext(ctx, query,
		e.ID, e.BeneficiaryID, e.ProgramID, e.DerivationID, e.PreAdmissionID, e.AdmissionID,
		string(e.Kind), e.Actor, e.At, e.FreeText,
	).Scan(&e.Seq)
	return translate(err, "append event "+string(e.Kind))
}

// ListEvents is the pull side of the event subscription, ordered by commit sequence.
func (t *pgTx) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.CaseEvent, error) {
	where := []string{"seq > $1"}
	args := []any{f.AfterSeq}
	argIdx := 2

	add := func(column, value string) {
		if value == "" {
			return
		}
		where = append(where, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	if f.BeneficiaryID != "" {
		if _, err := uuid.Parse(f.BeneficiaryID); err != nil {
			return []domain.CaseEvent{}, nil
		}
		add("beneficiary_id", f.BeneficiaryID)
	}
	add("derivation_id", f.DerivationID)
	add("pre_admission_id", f.PreAdmissionID)
	add("admission_id", f.AdmissionID)
	add("kind", string(f.Kind))

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	query := fmt.Sprintf(`
		SELECT seq, event_id::text AS event_id, beneficiary_id::text AS beneficiary_id, program_id,
			derivation_id, pre_admission_id, admission_id, kind, actor, at, free_text
		FROM case_events
		WHERE %s
		ORDER BY seq
		LIMIT $%d`, strings.Join(where, " AND "), argIdx)
	args = append(args, limit)

	var rows []caseEventRow
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate(err, "list events")
	}
	out := make([]domain.CaseEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.CaseEvent{
			Seq:            r.Seq,
			ID:             r.ID,
			BeneficiaryID:  r.BeneficiaryID,
			ProgramID:      r.ProgramID,
			DerivationID:   r.DerivationID,
			PreAdmissionID: r.PreAdmissionID,
			AdmissionID:    r.AdmissionID,
			Kind:           domain.EventKind(r.Kind),
			Actor:          r.Actor,
			At:             r.At,
			FreeText:       r.FreeText,
		})
	}
	return out, nil
}
