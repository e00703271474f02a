package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
)

// ---- pools ----

type slotPoolRow struct {
	Centre    string    `db:"centre"`
	Sala      string    `db:"sala"`
	Shift     string    `db:"shift"`
	Capacity  int       `db:"capacity"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r slotPoolRow) toDomain() domain.SlotPool {
	return domain.SlotPool{
		SlotKey:   domain.SlotKey{Centre: r.Centre, Sala: r.Sala, Shift: r.Shift},
		Capacity:  r.Capacity,
		UpdatedAt: r.UpdatedAt,
	}
}

func (t *pgTx) GetSlotPool(ctx context.Context, key domain.SlotKey) (*domain.SlotPool, error) {
	var r slotPoolRow
	query := `SELECT centre, sala, shift, capacity, updated_at FROM slot_pools WHERE centre = $1 AND sala = $2 AND shift = $3`
	if err := t.tx.GetContext(ctx, &r, query, key.Centre, key.Sala, key.Shift); err != nil {
		return nil, translate(err, "slot pool "+key.String())
	}
	p := r.toDomain()
	return &p, nil
}

func (t *pgTx) ListSlotPools(ctx context.Context) ([]domain.SlotPool, error) {
	var rows []slotPoolRow
	query := `SELECT centre, sala, shift, capacity, updated_at FROM slot_pools ORDER BY centre, sala, shift`
	if err := t.tx.SelectContext(ctx, &rows, query); err != nil {
		return nil, translate(err, "list slot pools")
	}
	out := make([]domain.SlotPool, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *pgTx) UpsertSlotPool(ctx context.Context, p *domain.SlotPool) error {
	query := `
		INSERT INTO slot_pools (centre, sala, shift, capacity, updated_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (centre, sala, shift) DO UPDATE SET capacity = EXCLUDED.capacity, updated_at = EXCLUDED.updated_at
	`
	_, err := t.tx.ExecContext(ctx, query, p.Centre, p.Sala, p.Shift, p.Capacity, p.UpdatedAt)
	return translate(err, "upsert slot pool "+p.String())
}

func (t *pgTx) CountAssigned(ctx context.Context, key domain.SlotKey) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM allocations WHERE centre = $1 AND sala = $2 AND shift = $3 AND state = 'ASSIGNED'`
	if err := t.tx.GetContext(ctx, &n, query, key.Centre, key.Sala, key.Shift); err != nil {
		return 0, translate(err, "count assigned "+key.String())
	}
	return n, nil
}

const waitlistWhere = `
	WHERE req_centre = $1 AND req_sala = $2 AND req_shift = $3
		AND state = 'ACTIVE' AND allocation_state = 'WAITLIST'`

func (t *pgTx) CountWaitlist(ctx context.Context, key domain.SlotKey) (int, error) {
	var n int
	if err := t.tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM admissions`+waitlistWhere, key.Centre, key.Sala, key.Shift); err != nil {
		return 0, translate(err, "count waitlist "+key.String())
	}
	return n, nil
}

func (t *pgTx) ListWaitlist(ctx context.Context, key domain.SlotKey) ([]domain.Admission, error) {
	var rows []admissionRow
	query := `SELECT ` + admissionColumns + ` FROM admissions` + waitlistWhere + ` ORDER BY created_at, admission_id`
	if err := t.tx.SelectContext(ctx, &rows, query, key.Centre, key.Sala, key.Shift); err != nil {
		return nil, translate(err, "list waitlist "+key.String())
	}
	out := make([]domain.Admission, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

// ---- allocations ----

const allocationColumns = `
	allocation_id::text AS allocation_id,
	admission_id::text AS admission_id,
	centre,
	sala,
	shift,
	state,
	start_date,
	end_date,
	transfer_reason,
	transfer_notes,
	created_by,
	created_at`

type allocationRow struct {
	ID             string       `db:"allocation_id"`
	AdmissionID    string       `db:"admission_id"`
	Centre         string       `db:"centre"`
	Sala           string       `db:"sala"`
	Shift          string       `db:"shift"`
	State          string       `db:"state"`
	StartDate      time.Time    `db:"start_date"`
	EndDate        sql.NullTime `db:"end_date"`
	TransferReason string       `db:"transfer_reason"`
	TransferNotes  string       `db:"transfer_notes"`
	CreatedBy      string       `db:"created_by"`
	CreatedAt      time.Time    `db:"created_at"`
}

func (r *allocationRow) toDomain() *domain.Allocation {
	a := &domain.Allocation{
		ID:             r.ID,
		AdmissionID:    r.AdmissionID,
		SlotKey:        domain.SlotKey{Centre: r.Centre, Sala: r.Sala, Shift: r.Shift},
		State:          domain.AllocationStatus(r.State),
		StartDate:      r.StartDate,
		TransferReason: domain.TransferReason(r.TransferReason),
		TransferNotes:  r.TransferNotes,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
	}
	if r.EndDate.Valid {
		d := r.EndDate.Time
		a.EndDate = &d
	}
	return a
}

func (t *pgTx) GetAssignedAllocation(ctx context.Context, admissionID string) (*domain.Allocation, error) {
	var rows []allocationRow
	query := `SELECT ` + allocationColumns + ` FROM allocations WHERE admission_id = $1 AND state = 'ASSIGNED'`
	if err := t.tx.SelectContext(ctx, &rows, query, admissionID); err != nil {
		return nil, translate(err, "assigned allocation of "+admissionID)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

func (t *pgTx) ListAllocations(ctx context.Context, admissionID string) ([]domain.Allocation, error) {
	var rows []allocationRow
	query := `SELECT ` + allocationColumns + ` FROM allocations WHERE admission_id = $1 ORDER BY created_at, allocation_id`
	if err := t.tx.SelectContext(ctx, &rows, query, admissionID); err != nil {
		return nil, translate(err, "list allocations of "+admissionID)
	}
	out := make([]domain.Allocation, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (t *pgTx) InsertAllocation(ctx context.Context, a *domain.Allocation) error {
	query := `
		INSERT INTO allocations (
			allocation_id, admission_id, centre, sala, shift, state, start_date, end_date,
			transfer_reason, transfer_notes, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := t.tx.ExecContext(ctx, query,
		a.ID, a.AdmissionID, a.Centre, a.Sala, a.Shift, string(a.State), a.StartDate, a.EndDate,
		string(a.TransferReason), a.TransferNotes, a.CreatedBy, a.CreatedAt,
	)
	return translate(err, "insert allocation for "+a.AdmissionID)
}

func (t *pgTx) UpdateAllocation(ctx context.Context, a *domain.Allocation) error {
	query := `
		UPDATE allocations
		SET state = $2, end_date = $3, transfer_reason = $4, transfer_notes = $5
		WHERE allocation_id = $1
	`
	res, err := t.tx.ExecContext(ctx, query, a.ID, string(a.State), a.EndDate, string(a.TransferReason), a.TransferNotes)
	if err != nil {
		return translate(err, "update allocation "+a.ID)
	}
	return mustAffect(res, "allocation "+a.ID)
}
