package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_FailedTxLeavesNoTrace(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := uuid.NewString()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.InsertBeneficiary(ctx, &domain.Beneficiary{ID: id, DocumentType: "DNI", DocumentNumber: "1"}))
		require.NoError(t, tx.AppendEvent(ctx, &domain.CaseEvent{ID: uuid.NewString(), BeneficiaryID: id, Kind: domain.EventClosed}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.View(ctx, func(tx Tx) error {
		_, err := tx.GetBeneficiary(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		events, err := tx.ListEvents(ctx, domain.EventFilter{})
		require.NoError(t, err)
		assert.Empty(t, events)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_CancelledContextDoesNotCommit(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := store.WithTx(ctx, func(tx Tx) error {
		cancel()
		return tx.UpsertProgram(ctx, &domain.Program{ID: "P1", Name: "Centres"})
	})
	require.ErrorIs(t, err, context.Canceled)

	_ = store.View(context.Background(), func(tx Tx) error {
		_, err := tx.GetProgram(context.Background(), "P1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	})
}

func TestMemoryStore_ViewIsReadOnly(t *testing.T) {
	store := NewMemoryStore()
	err := store.View(context.Background(), func(tx Tx) error {
		return tx.UpsertProgram(context.Background(), &domain.Program{ID: "P1"})
	})
	assert.Error(t, err)
}

func TestMemoryStore_UniqueConstraints(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()
	now := time.Now()

	err := store.WithTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.InsertBeneficiary(ctx, &domain.Beneficiary{ID: a, DocumentType: "DNI", DocumentNumber: "1"}))
		err := tx.InsertBeneficiary(ctx, &domain.Beneficiary{ID: b, DocumentType: "DNI", DocumentNumber: "1"})
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))

		require.NoError(t, tx.InsertBeneficiary(ctx, &domain.Beneficiary{ID: b, DocumentType: "DNI", DocumentNumber: "2"}))
		require.NoError(t, tx.InsertHouseholdLink(ctx, &domain.HouseholdLink{ID: uuid.NewString(), FromID: a, ToID: b, Kinship: domain.KinshipParent}))
		err = tx.InsertHouseholdLink(ctx, &domain.HouseholdLink{ID: uuid.NewString(), FromID: b, ToID: a, Kinship: domain.KinshipChild})
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))

		d := &domain.Derivation{ID: uuid.NewString(), BeneficiaryID: a, TargetProgramID: "P2", State: domain.DerivationPending, CreatedAt: now}
		require.NoError(t, tx.InsertDerivation(ctx, d))
		err = tx.InsertDerivation(ctx, &domain.Derivation{ID: uuid.NewString(), BeneficiaryID: a, TargetProgramID: "P2", State: domain.DerivationPending})
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))

		admissionID := uuid.NewString()
		key := domain.SlotKey{Centre: "C1", Sala: "2", Shift: "morning"}
		require.NoError(t, tx.InsertAllocation(ctx, &domain.Allocation{ID: uuid.NewString(), AdmissionID: admissionID, SlotKey: key, State: domain.AllocAssigned}))
		err = tx.InsertAllocation(ctx, &domain.Allocation{ID: uuid.NewString(), AdmissionID: admissionID, SlotKey: key, State: domain.AllocAssigned})
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_EventsAreSequencedAndFiltered(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	b1, b2 := uuid.NewString(), uuid.NewString()

	err := store.WithTx(ctx, func(tx Tx) error {
		for _, b := range []string{b1, b2, b1} {
			if err := tx.AppendEvent(ctx, &domain.CaseEvent{ID: uuid.NewString(), BeneficiaryID: b, Kind: domain.EventDerivationCreated}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	_ = store.View(ctx, func(tx Tx) error {
		all, err := tx.ListEvents(ctx, domain.EventFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i, e := range all {
			assert.Equal(t, int64(i+1), e.Seq)
		}

		mine, err := tx.ListEvents(ctx, domain.EventFilter{BeneficiaryID: b1, AfterSeq: 1})
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, int64(3), mine[0].Seq)
		return nil
	})
}

func TestMemoryStore_WaitlistOrderedByCreation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := domain.SlotKey{Centre: "C1", Sala: "3", Shift: "afternoon"}
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	err := store.WithTx(ctx, func(tx Tx) error {
		// inserted out of order on purpose
		for _, i := range []int{2, 0, 1} {
			k := key
			if err := tx.InsertAdmission(ctx, &domain.Admission{
				ID:              ids[i],
				PreAdmissionID:  uuid.NewString(),
				State:           domain.AdmissionActive,
				AllocationState: domain.AllocationWaitlist,
				RequestedPool:   &k,
				CreatedAt:       base.Add(time.Duration(i) * time.Minute),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	_ = store.View(ctx, func(tx Tx) error {
		wl, err := tx.ListWaitlist(ctx, key)
		require.NoError(t, err)
		require.Len(t, wl, 3)
		assert.Equal(t, ids, []string{wl[0].ID, wl[1].ID, wl[2].ID})
		n, err := tx.CountWaitlist(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		return nil
	})
}
