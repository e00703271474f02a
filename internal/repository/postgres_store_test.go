package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresStore(db)
}

func derivationRows(id, beneficiaryID string, state domain.DerivationState) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"derivation_id", "beneficiary_id", "source_program_id", "target_program_id", "priority", "state",
		"rejection_reason", "rejection_date", "notes", "created_by", "created_at", "updated_by", "updated_at",
	}).AddRow(
		id, beneficiaryID, "P1", "P2", "HIGH", string(state),
		nil, nil, "", "u1", now, "", now,
	)
}

func TestPostgresStore_WithTx_LocksThenCommits(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	derivationID := uuid.NewString()
	beneficiaryID := uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs(domain.CaseLockKey(beneficiaryID, "P2")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM derivations WHERE derivation_id`).
		WithArgs(derivationID).
		WillReturnRows(derivationRows(derivationID, beneficiaryID, domain.DerivationPending))
	mock.ExpectCommit()

	var got *domain.Derivation
	err := store.WithTx(context.Background(), func(tx Tx) error {
		if err := tx.Lock(context.Background(), domain.CaseLockKey(beneficiaryID, "P2")); err != nil {
			return err
		}
		var err error
		got, err = tx.GetDerivation(context.Background(), derivationID)
		return err
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.DerivationPending, got.State)
	assert.Equal(t, domain.Priority("HIGH"), got.Priority)
	assert.Nil(t, got.RejectionDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithTx_RollsBackOnError(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithTx(context.Background(), func(tx Tx) error { return boom })

	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBeneficiary_NotFound(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	id := uuid.NewString()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM beneficiaries WHERE beneficiary_id`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := store.View(context.Background(), func(tx Tx) error {
		_, err := tx.GetBeneficiary(context.Background(), id)
		return err
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertBeneficiary_UniqueViolationIsConflict(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO beneficiaries`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertBeneficiary(context.Background(), &domain.Beneficiary{
			ID:             uuid.NewString(),
			DocumentType:   "DNI",
			DocumentNumber: "30000001",
			Active:         true,
			CreatedBy:      "u1",
			CreatedAt:      time.Now(),
		})
	})

	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendEvent_LocksEventLogOncePerTx(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock\(\$1\)`).
		WithArgs(eventLogLockID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO case_events`).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(42)))
	mock.ExpectQuery(`INSERT INTO case_events`).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(43)))
	mock.ExpectCommit()

	newEvent := func() *domain.CaseEvent {
		return &domain.CaseEvent{
			ID:            uuid.NewString(),
			BeneficiaryID: uuid.NewString(),
			Kind:          domain.EventClosed,
			Actor:         "u1",
			At:            time.Now(),
		}
	}
	first, second := newEvent(), newEvent()
	err := store.WithTx(context.Background(), func(tx Tx) error {
		if err := tx.AppendEvent(context.Background(), first); err != nil {
			return err
		}
		return tx.AppendEvent(context.Background(), second)
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), first.Seq)
	assert.Equal(t, int64(43), second.Seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEvents_FiltersBeneficiaryAsUUID(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	benID := uuid.NewString()
	rows := sqlmock.NewRows([]string{
		"seq", "event_id", "beneficiary_id", "program_id", "derivation_id", "pre_admission_id",
		"admission_id", "kind", "actor", "at", "free_text",
	}).AddRow(int64(7), uuid.NewString(), benID, "P2", "d-1", "", "", "CLOSED", "u1", time.Now(), "")

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE seq > \$1 AND beneficiary_id = \$2\s+ORDER BY seq`).
		WithArgs(int64(5), benID, int64(DefaultEventLimit)).
		WillReturnRows(rows)
	mock.ExpectCommit()

	var got []domain.CaseEvent
	err := store.View(context.Background(), func(tx Tx) error {
		var err error
		got, err = tx.ListEvents(context.Background(), domain.EventFilter{AfterSeq: 5, BeneficiaryID: benID})
		return err
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].Seq)
	assert.Equal(t, benID, got[0].BeneficiaryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEvents_MalformedBeneficiaryMatchesNothing(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := store.View(context.Background(), func(tx Tx) error {
		got, err := tx.ListEvents(context.Background(), domain.EventFilter{BeneficiaryID: "not-a-uuid"})
		assert.Empty(t, got)
		return err
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MalformedIDIsNotFound(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM derivations WHERE derivation_id`).
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`})
	mock.ExpectRollback()

	err := store.View(context.Background(), func(tx Tx) error {
		_, err := tx.GetDerivation(context.Background(), "not-a-uuid")
		return err
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCriteria_FiltersByFamilyAndModifiable(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	now := time.Now()
	id := uuid.NewString()
	rows := sqlmock.NewRows([]string{
		"criterion_id", "family", "kind", "weight", "modifiable", "text", "active", "created_at", "updated_at",
	}).AddRow(id, "IVI", "health", 4, true, "No health coverage", true, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM criteria WHERE TRUE AND family = \$1 AND active AND modifiable = \$2`).
		WithArgs("IVI", true).
		WillReturnRows(rows)
	mock.ExpectCommit()

	modifiable := true
	var got []domain.Criterion
	err := store.View(context.Background(), func(tx Tx) error {
		var err error
		got, err = tx.ListCriteria(context.Background(), domain.FamilyIVI, domain.CriteriaFilter{Modifiable: &modifiable})
		return err
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, 4, got[0].Weight)
	assert.Equal(t, domain.FamilyIVI, got[0].Family)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertSnapshot_WritesHeaderFrameAndItems(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	s := &domain.AssessmentSnapshot{
		Key:              uuid.NewString(),
		PreAdmissionID:   uuid.NewString(),
		BeneficiaryID:    uuid.NewString(),
		ProgramID:        "P2",
		Family:           domain.FamilyIVI,
		Phase:            domain.PhaseEntry,
		Items:            []domain.SnapshotItem{{CriterionID: uuid.NewString(), Weight: 3}},
		Frame:            []domain.FrameEntry{{CriterionID: uuid.NewString(), Weight: 3}, {CriterionID: uuid.NewString(), Weight: 5}},
		TotalScore:       3,
		MaxPossibleScore: 8,
		Version:          1,
		CreatedBy:        "u1",
		CreatedAt:        time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO assessment_snapshots`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO assessment_snapshot_frames`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO assessment_snapshot_items`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		return tx.InsertSnapshot(context.Background(), s)
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateDerivation_NoRowsIsNotFound(t *testing.T) {
	db, mock, store := setupMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE derivations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx Tx) error {
		return tx.UpdateDerivation(context.Background(), &domain.Derivation{ID: uuid.NewString(), State: domain.DerivationClosed})
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
