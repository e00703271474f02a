package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SchedulerService hands out seats of capacity-bound pools to ACTIVE admissions.
// Counts are always derived from allocations inside the unit of work that checks them.
type SchedulerService struct {
	*core
}

// ============================================
// Pools
// ============================================

// UpsertSlotPool sets the capacity of a pool, creating it when missing.
func (s *SchedulerService) UpsertSlotPool(ctx context.Context, actor domain.Actor, key domain.SlotKey, capacity int) (*domain.SlotPool, error) {
	if err := actor.Require(domain.CapAdminCatalog); err != nil {
		return nil, err
	}
	key = trimKey(key)
	if !key.Valid() {
		return nil, invalid("centre, sala and shift are required")
	}
	if capacity < 0 {
		return nil, invalid("capacity must be non-negative, got %d", capacity)
	}

	pool := &domain.SlotPool{SlotKey: key, Capacity: capacity}
	err := s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, key.LockKey()); err != nil {
			return err
		}
		assigned, err := u.CountAssigned(ctx, key)
		if err != nil {
			return err
		}
		if capacity < assigned {
			return badTransition("pool %s has %d assigned seats, capacity %d is too low", key, assigned, capacity)
		}
		pool.UpdatedAt = u.now
		return u.UpsertSlotPool(ctx, pool)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("slot pool configured", zap.String("pool", key.String()), zap.Int("capacity", capacity), zap.String("actor", actor.ID))
	return pool, nil
}

func trimKey(k domain.SlotKey) domain.SlotKey {
	return domain.SlotKey{Centre: strings.TrimSpace(k.Centre), Sala: strings.TrimSpace(k.Sala), Shift: strings.TrimSpace(k.Shift)}
}

// ============================================
// Allocations
// ============================================

// AssignSlot gives the admission a seat in key. Exactly one of several concurrent callers
// competing for the last seat wins; the rest get SlotExhausted.
func (s *SchedulerService) AssignSlot(ctx context.Context, actor domain.Actor, admissionID string, key domain.SlotKey, startDate time.Time) (*domain.Allocation, error) {
	if err := actor.Require(domain.CapAllocateSlot); err != nil {
		return nil, err
	}
	key = trimKey(key)
	if !key.Valid() {
		return nil, invalid("centre, sala and shift are required")
	}
	ref, err := s.admissionRef(ctx, admissionID)
	if err != nil {
		return nil, err
	}

	var alloc *domain.Allocation
	err = s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.CaseLockKey(ref.BeneficiaryID, ref.ProgramID), key.LockKey()); err != nil {
			return err
		}
		adm, err := s.seatedAdmission(ctx, u, admissionID)
		if err != nil {
			return err
		}
		current, err := u.GetAssignedAllocation(ctx, adm.ID)
		if err != nil {
			return err
		}
		if current != nil {
			return forbidden("admission %s already holds a seat in %s", adm.ID, current.SlotKey)
		}
		if err := ensureFree(ctx, u, key); err != nil {
			return err
		}

		if startDate.IsZero() {
			startDate = u.now
		}
		alloc = &domain.Allocation{
			ID:          uuid.NewString(),
			AdmissionID: adm.ID,
			SlotKey:     key,
			State:       domain.AllocAssigned,
			StartDate:   domain.Day(startDate),
			CreatedBy:   actor.ID,
			CreatedAt:   u.now,
		}
		if err := u.InsertAllocation(ctx, alloc); err != nil {
			return err
		}
		adm.AllocationState = domain.AllocationAssigned
		if err := u.UpdateAdmission(ctx, adm); err != nil {
			return err
		}
		return u.emit(ctx, admissionEvent(adm, domain.EventSlotAssigned, key.String()))
	})
	if err != nil {
		s.noteExhausted(err)
		return nil, err
	}
	return alloc, nil
}

type TransferSlotRequest struct {
	To      domain.SlotKey
	EndDate time.Time
	Reason  domain.TransferReason
	Notes   string
}

// TransferSlot closes the current allocation as CHANGED on EndDate and opens a new one in
// To starting the same day. Without a free seat in To nothing changes.
func (s *SchedulerService) TransferSlot(ctx context.Context, actor domain.Actor, admissionID string, req TransferSlotRequest) (*domain.Allocation, error) {
	if err := actor.Require(domain.CapAllocateSlot); err != nil {
		return nil, err
	}
	to := trimKey(req.To)
	if !to.Valid() {
		return nil, invalid("centre, sala and shift are required")
	}
	if req.EndDate.IsZero() {
		return nil, invalid("end date is required")
	}
	if !req.Reason.Valid() {
		return nil, invalid("unknown transfer reason %q", req.Reason)
	}
	ref, err := s.admissionRef(ctx, admissionID)
	if err != nil {
		return nil, err
	}

	var next *domain.Allocation
	err = s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.CaseLockKey(ref.BeneficiaryID, ref.ProgramID)); err != nil {
			return err
		}
		adm, err := s.seatedAdmission(ctx, u, admissionID)
		if err != nil {
			return err
		}
		current, err := u.GetAssignedAllocation(ctx, adm.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.Errorf(domain.KindAllocationMissing, "admission %s holds no seat", adm.ID)
		}
		if current.SlotKey == to {
			return badTransition("admission %s is already seated in %s", adm.ID, to)
		}
		end := domain.Day(req.EndDate)
		if end.Before(current.StartDate) {
			return badTransition("end date %s is before the allocation start %s", end.Format(time.DateOnly), current.StartDate.Format(time.DateOnly))
		}
		if err := u.lock(ctx, current.LockKey(), to.LockKey()); err != nil {
			return err
		}
		if err := ensureFree(ctx, u, to); err != nil {
			return err
		}

		notes := strings.TrimSpace(req.Notes)
		current.State = domain.AllocChanged
		current.EndDate = &end
		current.TransferReason = req.Reason
		current.TransferNotes = notes
		if err := u.UpdateAllocation(ctx, current); err != nil {
			return err
		}
		next = &domain.Allocation{
			ID:          uuid.NewString(),
			AdmissionID: adm.ID,
			SlotKey:     to,
			State:       domain.AllocAssigned,
			StartDate:   end,
			CreatedBy:   actor.ID,
			CreatedAt:   u.now,
		}
		if err := u.InsertAllocation(ctx, next); err != nil {
			return err
		}
		return u.emit(ctx, admissionEvent(adm, domain.EventSlotChanged, current.SlotKey.String()+" -> "+to.String()+" ("+string(req.Reason)+")"))
	})
	if err != nil {
		s.noteExhausted(err)
		return nil, err
	}
	return next, nil
}

// ReleaseSlot frees the seat of the admission today and leaves it unallocated.
func (s *SchedulerService) ReleaseSlot(ctx context.Context, actor domain.Actor, admissionID string) (*domain.Allocation, error) {
	if err := actor.Require(domain.CapAllocateSlot); err != nil {
		return nil, err
	}
	ref, err := s.admissionRef(ctx, admissionID)
	if err != nil {
		return nil, err
	}

	var released *domain.Allocation
	err = s.write(ctx, actor, func(u *unit) error {
		if err := u.lock(ctx, domain.CaseLockKey(ref.BeneficiaryID, ref.ProgramID)); err != nil {
			return err
		}
		adm, err := u.GetAdmission(ctx, admissionID)
		if err != nil {
			return err
		}
		released, err = releaseAssigned(ctx, u, adm)
		if err != nil {
			return err
		}
		if released == nil {
			return domain.Errorf(domain.KindAllocationMissing, "admission %s holds no seat", adm.ID)
		}
		adm.AllocationState = domain.AllocationNA
		if err := u.UpdateAdmission(ctx, adm); err != nil {
			return err
		}
		return u.emit(ctx, admissionEvent(adm, domain.EventSlotReleased, released.SlotKey.String()))
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// seatedAdmission re-reads the admission under the case lock and checks it can hold a seat.
func (s *SchedulerService) seatedAdmission(ctx context.Context, u *unit, id string) (*domain.Admission, error) {
	adm, err := u.GetAdmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if adm.State != domain.AdmissionActive {
		return nil, badTransition("admission %s is %s", adm.ID, adm.State)
	}
	program, err := u.GetProgram(ctx, adm.ProgramID)
	if err != nil {
		return nil, err
	}
	if !program.AllocatesSeats {
		return nil, badTransition("program %s does not allocate seats", program.ID)
	}
	return adm, nil
}

// ensureFree fails with SlotExhausted unless key has a free seat. The pool lock must be held.
func ensureFree(ctx context.Context, u *unit, key domain.SlotKey) error {
	pool, err := u.GetSlotPool(ctx, key)
	if err != nil {
		return err
	}
	assigned, err := u.CountAssigned(ctx, key)
	if err != nil {
		return err
	}
	if assigned >= pool.Capacity {
		return domain.Errorf(domain.KindSlotExhausted, "pool %s is full (%d/%d)", key, assigned, pool.Capacity)
	}
	return nil
}

// releaseAssigned marks the ASSIGNED allocation of adm RELEASED as of today. It returns nil
// when the admission holds no seat. The case lock must be held.
func releaseAssigned(ctx context.Context, u *unit, adm *domain.Admission) (*domain.Allocation, error) {
	alloc, err := u.GetAssignedAllocation(ctx, adm.ID)
	if err != nil || alloc == nil {
		return nil, err
	}
	if err := u.lock(ctx, alloc.LockKey()); err != nil {
		return nil, err
	}
	// an allocation released before it starts ends on its start date
	end := domain.Day(u.now)
	if end.Before(alloc.StartDate) {
		end = alloc.StartDate
	}
	alloc.State = domain.AllocReleased
	alloc.EndDate = &end
	if err := u.UpdateAllocation(ctx, alloc); err != nil {
		return nil, err
	}
	return alloc, nil
}

func (s *SchedulerService) noteExhausted(err error) {
	if errors.Is(err, domain.ErrSlotExhausted) {
		s.metrics.SlotExhausted()
	}
}

// ============================================
// Reads
// ============================================

func (s *SchedulerService) Occupancy(ctx context.Context, actor domain.Actor, key domain.SlotKey) (*domain.PoolOccupancy, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	key = trimKey(key)
	var out domain.PoolOccupancy
	err := s.read(ctx, func(tx repository.Tx) error {
		pool, err := tx.GetSlotPool(ctx, key)
		if err != nil {
			return err
		}
		out, err = occupancyOf(ctx, tx, *pool)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SchedulerService) ListOccupancy(ctx context.Context, actor domain.Actor) ([]domain.PoolOccupancy, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var out []domain.PoolOccupancy
	err := s.read(ctx, func(tx repository.Tx) error {
		pools, err := tx.ListSlotPools(ctx)
		if err != nil {
			return err
		}
		out = make([]domain.PoolOccupancy, 0, len(pools))
		for _, p := range pools {
			occ, err := occupancyOf(ctx, tx, p)
			if err != nil {
				return err
			}
			out = append(out, occ)
		}
		return nil
	})
	return out, err
}

func occupancyOf(ctx context.Context, tx repository.Tx, p domain.SlotPool) (domain.PoolOccupancy, error) {
	assigned, err := tx.CountAssigned(ctx, p.SlotKey)
	if err != nil {
		return domain.PoolOccupancy{}, err
	}
	waiting, err := tx.CountWaitlist(ctx, p.SlotKey)
	if err != nil {
		return domain.PoolOccupancy{}, err
	}
	return domain.NewOccupancy(p, assigned, waiting), nil
}

// Waitlist returns the admissions waiting for key, oldest first. Promotion is manual.
func (s *SchedulerService) Waitlist(ctx context.Context, actor domain.Actor, key domain.SlotKey) ([]domain.Admission, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	key = trimKey(key)
	var out []domain.Admission
	err := s.read(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetSlotPool(ctx, key); err != nil {
			return err
		}
		var err error
		out, err = tx.ListWaitlist(ctx, key)
		return err
	})
	return out, err
}

func (s *SchedulerService) ListAllocations(ctx context.Context, actor domain.Actor, admissionID string) ([]domain.Allocation, error) {
	if err := actor.Require(domain.CapReadCase); err != nil {
		return nil, err
	}
	var out []domain.Allocation
	err := s.read(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetAdmission(ctx, admissionID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListAllocations(ctx, admissionID)
		return err
	})
	return out, err
}
