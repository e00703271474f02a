package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
)

// ---- derivations ----

const derivationColumns = `
	derivation_id::text AS derivation_id,
	beneficiary_id::text AS beneficiary_id,
	source_program_id,
	target_program_id,
	priority,
	state,
	rejection_reason,
	rejection_date,
	notes,
	created_by,
	created_at,
	updated_by,
	updated_at`

type derivationRow struct {
	ID              string         `db:"derivation_id"`
	BeneficiaryID   string         `db:"beneficiary_id"`
	SourceProgramID string         `db:"source_program_id"`
	TargetProgramID string         `db:"target_program_id"`
	Priority        string         `db:"priority"`
	State           string         `db:"state"`
	RejectionReason sql.NullString `db:"rejection_reason"`
	RejectionDate   sql.NullTime   `db:"rejection_date"`
	Notes           string         `db:"notes"`
	CreatedBy       string         `db:"created_by"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedBy       string         `db:"updated_by"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *derivationRow) toDomain() *domain.Derivation {
	d := &domain.Derivation{
		ID:              r.ID,
		BeneficiaryID:   r.BeneficiaryID,
		SourceProgramID: r.SourceProgramID,
		TargetProgramID: r.TargetProgramID,
		Priority:        domain.Priority(r.Priority),
		State:           domain.DerivationState(r.State),
		RejectionReason: domain.RejectionReason(r.RejectionReason.String),
		Notes:           r.Notes,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedBy:       r.UpdatedBy,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.RejectionDate.Valid {
		t := r.RejectionDate.Time
		d.RejectionDate = &t
	}
	return d
}

func (t *pgTx) GetDerivation(ctx context.Context, id string) (*domain.Derivation, error) {
	var r derivationRow
	if err := t.tx.GetContext(ctx, &r, `SELECT `+derivationColumns+` FROM derivations WHERE derivation_id = $1`, id); err != nil {
		return nil, translate(err, "derivation "+id)
	}
	return r.toDomain(), nil
}

func (t *pgTx) ListDerivations(ctx context.Context, f domain.DerivationFilter) ([]domain.Derivation, error) {
	where := []string{"TRUE"}
	args := []any{}
	argIdx := 1
	if f.BeneficiaryID != "" {
		where = append(where, fmt.Sprintf("beneficiary_id = $%d", argIdx))
		args = append(args, f.BeneficiaryID)
		argIdx++
	}
	if f.TargetProgramID != "" {
		where = append(where, fmt.Sprintf("target_program_id = $%d", argIdx))
		args = append(args, f.TargetProgramID)
		argIdx++
	}
	if f.State != "" {
		where = append(where, fmt.Sprintf("state = $%d", argIdx))
		args = append(args, string(f.State))
		argIdx++
	}
	query := fmt.Sprintf(`SELECT %s FROM derivations WHERE %s ORDER BY created_at, derivation_id`,
		derivationColumns, strings.Join(where, " AND "))
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	var rows []derivationRow
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate(err, "list derivations")
	}
	out := make([]domain.Derivation, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (t *pgTx) FindOpenDerivation(ctx context.Context, beneficiaryID, targetProgramID string) (*domain.Derivation, error) {
	var rows []derivationRow
	query := `SELECT ` + derivationColumns + `
		FROM derivations
		WHERE beneficiary_id = $1 AND target_program_id = $2 AND state IN ('PENDING', 'UNDER_REVIEW')
		LIMIT 1`
	if err := t.tx.SelectContext(ctx, &rows, query, beneficiaryID, targetProgramID); err != nil {
		return nil, translate(err, "find open derivation")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

func (t *pgTx) InsertDerivation(ctx context.Context, d *domain.Derivation) error {
	query := `
		INSERT INTO derivations (
			derivation_id, beneficiary_id, source_program_id, target_program_id, priority, state,
			rejection_reason, rejection_date, notes, created_by, created_at, updated_by, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := t.tx.ExecContext(ctx, query,
		d.ID, d.BeneficiaryID, d.SourceProgramID, d.TargetProgramID, string(d.Priority), string(d.State),
		nullString(string(d.RejectionReason)), d.RejectionDate, d.Notes, d.CreatedBy, d.CreatedAt, d.UpdatedBy, d.UpdatedAt,
	)
	return translate(err, fmt.Sprintf("derivation of %s to %s", d.BeneficiaryID, d.TargetProgramID))
}

func (t *pgTx) UpdateDerivation(ctx context.Context, d *domain.Derivation) error {
	query := `
		UPDATE derivations
		SET state = $2, priority = $3, rejection_reason = $4, rejection_date = $5, notes = $6,
			updated_by = $7, updated_at = $8
		WHERE derivation_id = $1
	`
	res, err := t.tx.ExecContext(ctx, query,
		d.ID, string(d.State), string(d.Priority), nullString(string(d.RejectionReason)), d.RejectionDate, d.Notes,
		d.UpdatedBy, d.UpdatedAt,
	)
	if err != nil {
		return translate(err, "update derivation "+d.ID)
	}
	return mustAffect(res, "derivation "+d.ID)
}

func (t *pgTx) DeleteDerivation(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM derivations WHERE derivation_id = $1`, id)
	if err != nil {
		return translate(err, "delete derivation "+id)
	}
	return mustAffect(res, "derivation "+id)
}

// ---- pre-admissions ----

const preAdmissionColumns = `
	pre_admission_id::text AS pre_admission_id,
	derivation_id::text AS derivation_id,
	beneficiary_id::text AS beneficiary_id,
	program_id,
	state,
	payload,
	has_ivi,
	has_entry_index,
	admitted,
	created_by,
	created_at,
	finalized_by,
	finalized_at`

type preAdmissionRow struct {
	ID            string       `db:"pre_admission_id"`
	DerivationID  string       `db:"derivation_id"`
	BeneficiaryID string       `db:"beneficiary_id"`
	ProgramID     string       `db:"program_id"`
	State         string       `db:"state"`
	Payload       []byte       `db:"payload"`
	HasIVI        bool         `db:"has_ivi"`
	HasEntryIndex bool         `db:"has_entry_index"`
	Admitted      sql.NullBool `db:"admitted"`
	CreatedBy     string       `db:"created_by"`
	CreatedAt     time.Time    `db:"created_at"`
	FinalizedBy   string       `db:"finalized_by"`
	FinalizedAt   sql.NullTime `db:"finalized_at"`
}

func (r *preAdmissionRow) toDomain() *domain.PreAdmission {
	p := &domain.PreAdmission{
		ID:            r.ID,
		DerivationID:  r.DerivationID,
		BeneficiaryID: r.BeneficiaryID,
		ProgramID:     r.ProgramID,
		State:         domain.PreAdmissionState(r.State),
		Payload:       r.Payload,
		HasIVI:        r.HasIVI,
		HasEntryIndex: r.HasEntryIndex,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		FinalizedBy:   r.FinalizedBy,
	}
	if r.Admitted.Valid {
		v := r.Admitted.Bool
		p.Admitted = &v
	}
	if r.FinalizedAt.Valid {
		ts := r.FinalizedAt.Time
		p.FinalizedAt = &ts
	}
	return p
}

// payloadArg passes an empty payload as SQL NULL.
func payloadArg(p domain.Payload) any {
	if len(p) == 0 {
		return nil
	}
	return []byte(p)
}

func (t *pgTx) GetPreAdmission(ctx context.Context, id string) (*domain.PreAdmission, error) {
	var r preAdmissionRow
	if err := t.tx.GetContext(ctx, &r, `SELECT `+preAdmissionColumns+` FROM pre_admissions WHERE pre_admission_id = $1`, id); err != nil {
		return nil, translate(err, "pre-admission "+id)
	}
	return r.toDomain(), nil
}

func (t *pgTx) InsertPreAdmission(ctx context.Context, p *domain.PreAdmission) error {
	query := `
		INSERT INTO pre_admissions (
			pre_admission_id, derivation_id, beneficiary_id, program_id, state, payload,
			has_ivi, has_entry_index, admitted, created_by, created_at, finalized_by, finalized_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := t.tx.ExecContext(ctx, query,
		p.ID, p.DerivationID, p.BeneficiaryID, p.ProgramID, string(p.State), payloadArg(p.Payload),
		p.HasIVI, p.HasEntryIndex, p.Admitted, p.CreatedBy, p.CreatedAt, p.FinalizedBy, p.FinalizedAt,
	)
	return translate(err, "insert pre-admission for derivation "+p.DerivationID)
}

func (t *pgTx) UpdatePreAdmission(ctx context.Context, p *domain.PreAdmission) error {
	query := `
		UPDATE pre_admissions
		SET state = $2, payload = $3, has_ivi = $4, has_entry_index = $5, admitted = $6,
			finalized_by = $7, finalized_at = $8
		WHERE pre_admission_id = $1
	`
	res, err := t.tx.ExecContext(ctx, query,
		p.ID, string(p.State), payloadArg(p.Payload), p.HasIVI, p.HasEntryIndex, p.Admitted, p.FinalizedBy, p.FinalizedAt,
	)
	if err != nil {
		return translate(err, "update pre-admission "+p.ID)
	}
	return mustAffect(res, "pre-admission "+p.ID)
}

func (t *pgTx) DeletePreAdmission(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM pre_admissions WHERE pre_admission_id = $1`, id)
	if err != nil {
		return translate(err, "delete pre-admission "+id)
	}
	return mustAffect(res, "pre-admission "+id)
}

// ---- admissions ----

const admissionColumns = `
	admission_id::text AS admission_id,
	pre_admission_id::text AS pre_admission_id,
	derivation_id::text AS derivation_id,
	beneficiary_id::text AS beneficiary_id,
	program_id,
	state,
	allocation_state,
	req_centre,
	req_sala,
	req_shift,
	created_by,
	created_at,
	closed_by,
	closed_at`

type admissionRow struct {
	ID              string         `db:"admission_id"`
	PreAdmissionID  string         `db:"pre_admission_id"`
	DerivationID    string         `db:"derivation_id"`
	BeneficiaryID   string         `db:"beneficiary_id"`
	ProgramID       string         `db:"program_id"`
	State           string         `db:"state"`
	AllocationState string         `db:"allocation_state"`
	ReqCentre       sql.NullString `db:"req_centre"`
	ReqSala         sql.NullString `db:"req_sala"`
	ReqShift        sql.NullString `db:"req_shift"`
	CreatedBy       string         `db:"created_by"`
	CreatedAt       time.Time      `db:"created_at"`
	ClosedBy        string         `db:"closed_by"`
	ClosedAt        sql.NullTime   `db:"closed_at"`
}

func (r *admissionRow) toDomain() *domain.Admission {
	a := &domain.Admission{
		ID:              r.ID,
		PreAdmissionID:  r.PreAdmissionID,
		DerivationID:    r.DerivationID,
		BeneficiaryID:   r.BeneficiaryID,
		ProgramID:       r.ProgramID,
		State:           domain.AdmissionState(r.State),
		AllocationState: domain.AllocationState(r.AllocationState),
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		ClosedBy:        r.ClosedBy,
	}
	if r.ReqCentre.Valid && r.ReqSala.Valid && r.ReqShift.Valid {
		a.RequestedPool = &domain.SlotKey{Centre: r.ReqCentre.String, Sala: r.ReqSala.String, Shift: r.ReqShift.String}
	}
	if r.ClosedAt.Valid {
		ts := r.ClosedAt.Time
		a.ClosedAt = &ts
	}
	return a
}

func poolArgs(k *domain.SlotKey) (sql.NullString, sql.NullString, sql.NullString) {
	if k == nil {
		return sql.NullString{}, sql.NullString{}, sql.NullString{}
	}
	return nullString(k.Centre), nullString(k.Sala), nullString(k.Shift)
}

func (t *pgTx) GetAdmission(ctx context.Context, id string) (*domain.Admission, error) {
	var r admissionRow
	if err := t.tx.GetContext(ctx, &r, `SELECT `+admissionColumns+` FROM admissions WHERE admission_id = $1`, id); err != nil {
		return nil, translate(err, "admission "+id)
	}
	return r.toDomain(), nil
}

func (t *pgTx) GetAdmissionByPreAdmission(ctx context.Context, preAdmissionID string) (*domain.Admission, error) {
	var r admissionRow
	query := `SELECT ` + admissionColumns + ` FROM admissions WHERE pre_admission_id = $1`
	if err := t.tx.GetContext(ctx, &r, query, preAdmissionID); err != nil {
		return nil, translate(err, "admission for pre-admission "+preAdmissionID)
	}
	return r.toDomain(), nil
}

func (t *pgTx) InsertAdmission(ctx context.Context, a *domain.Admission) error {
	centre, sala, shift := poolArgs(a.RequestedPool)
	query := `
		INSERT INTO admissions (
			admission_id, pre_admission_id, derivation_id, beneficiary_id, program_id, state, allocation_state,
			req_centre, req_sala, req_shift, created_by, created_at, closed_by, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := t.tx.ExecContext(ctx, query,
		a.ID, a.PreAdmissionID, a.DerivationID, a.BeneficiaryID, a.ProgramID, string(a.State), string(a.AllocationState),
		centre, sala, shift, a.CreatedBy, a.CreatedAt, a.ClosedBy, a.ClosedAt,
	)
	return translate(err, "insert admission for pre-admission "+a.PreAdmissionID)
}

func (t *pgTx) UpdateAdmission(ctx context.Context, a *domain.Admission) error {
	centre, sala, shift := poolArgs(a.RequestedPool)
	query := `
		UPDATE admissions
		SET state = $2, allocation_state = $3, req_centre = $4, req_sala = $5, req_shift = $6,
			closed_by = $7, closed_at = $8
		WHERE admission_id = $1
	`
	res, err := t.tx.ExecContext(ctx, query,
		a.ID, string(a.State), string(a.AllocationState), centre, sala, shift, a.ClosedBy, a.ClosedAt,
	)
	if err != nil {
		return translate(err, "update admission "+a.ID)
	}
	return mustAffect(res, "admission "+a.ID)
}
